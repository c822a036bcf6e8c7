package driver

import (
	"errors"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

type fakePage struct {
	playwright.Page

	url             string
	waitUntil       *playwright.WaitUntilState
	timeoutMillis   float64
	width, height   int
	fullPageCapture bool
}

func (p *fakePage) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.url = url
	if len(options) > 0 {
		p.waitUntil = options[0].WaitUntil
	}
	return nil, nil
}

func (p *fakePage) Title() (string, error)   { return "Example Domain", nil }
func (p *fakePage) Content() (string, error) { return "<html></html>", nil }

func (p *fakePage) SetDefaultTimeout(timeout float64) { p.timeoutMillis = timeout }

func (p *fakePage) SetViewportSize(width, height int) error {
	p.width, p.height = width, height
	return nil
}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	if len(options) > 0 && options[0].FullPage != nil {
		p.fullPageCapture = *options[0].FullPage
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

type fakeBrowser struct {
	playwright.Browser
	closed int
	err    error
}

func (b *fakeBrowser) Close(...playwright.BrowserCloseOptions) error {
	b.closed++
	return b.err
}

type fakeRuntime struct{ stopped int }

func (r *fakeRuntime) Stop() error { r.stopped++; return nil }

func newFakePlaywrightHandle() (*playwrightHandle, *fakePage, *fakeBrowser, *fakeRuntime) {
	page, browser, pw := &fakePage{}, &fakeBrowser{}, &fakeRuntime{}
	return &playwrightHandle{kind: WebKit, pw: pw, browser: browser, page: page}, page, browser, pw
}

func TestPlaywrightHandle_SetImplicitWaitUsesMilliseconds(t *testing.T) {
	t.Parallel()
	h, page, _, _ := newFakePlaywrightHandle()
	if err := h.SetImplicitWait(10 * time.Second); err != nil {
		t.Fatalf("SetImplicitWait: %v", err)
	}
	if page.timeoutMillis != 10000 {
		t.Fatalf("default timeout = %v ms, want 10000", page.timeoutMillis)
	}
}

func TestPlaywrightHandle_MaximizeSetsFullHDViewport(t *testing.T) {
	t.Parallel()
	h, page, _, _ := newFakePlaywrightHandle()
	if err := h.Maximize(); err != nil {
		t.Fatalf("Maximize: %v", err)
	}
	if page.width != 1920 || page.height != 1080 {
		t.Fatalf("viewport = %dx%d, want 1920x1080", page.width, page.height)
	}
}

func TestPlaywrightHandle_NavigateAndCapture(t *testing.T) {
	t.Parallel()
	h, page, _, _ := newFakePlaywrightHandle()
	if err := h.Navigate("https://example.com"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if page.url != "https://example.com" {
		t.Fatalf("url = %q", page.url)
	}
	if page.waitUntil == nil || *page.waitUntil != *playwright.WaitUntilStateDomcontentloaded {
		t.Fatalf("navigation should wait for domcontentloaded, got %v", page.waitUntil)
	}
	if title, _ := h.Title(); title != "Example Domain" {
		t.Fatalf("Title = %q", title)
	}
	if src, _ := h.PageSource(); src != "<html></html>" {
		t.Fatalf("PageSource = %q", src)
	}
	if !h.SupportsScreenshot() {
		t.Fatal("playwright handles support screenshots")
	}
	if _, err := h.Screenshot(); err != nil || !page.fullPageCapture {
		t.Fatalf("Screenshot err=%v fullPage=%t", err, page.fullPageCapture)
	}
}

func TestPlaywrightHandle_QuitClosesBrowserCloseStopsRuntime(t *testing.T) {
	t.Parallel()
	h, _, browser, pw := newFakePlaywrightHandle()

	if err := h.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if browser.closed != 1 || pw.stopped != 0 {
		t.Fatalf("after Quit: browser closed=%d runtime stopped=%d", browser.closed, pw.stopped)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if browser.closed != 1 || pw.stopped != 1 {
		t.Fatalf("after Close: browser closed=%d runtime stopped=%d", browser.closed, pw.stopped)
	}
}

func TestPlaywrightHandle_QuitErrorIsReturned(t *testing.T) {
	t.Parallel()
	h, _, browser, _ := newFakePlaywrightHandle()
	browser.err = errors.New("target closed")
	if err := h.Quit(); !errors.Is(err, browser.err) {
		t.Fatalf("Quit err = %v", err)
	}
}
