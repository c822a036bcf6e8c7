package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/browserhooks/internal/errs"
)

// Maximized viewport for Playwright pages, which have no OS window to maximize.
const (
	maximizedWidth  = 1920
	maximizedHeight = 1080
)

type playwrightLauncher struct{}

func (playwrightLauncher) Launch(_ context.Context, plan Plan) (Handle, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "playwright not available", err)
	}

	var browserType playwright.BrowserType
	switch plan.Kind {
	case Chromium:
		browserType = pw.Chromium
	case WebKit:
		browserType = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, errs.New(errs.UnsupportedBrowserKind, fmt.Sprintf("browser %q is not a playwright browser", plan.Kind))
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(plan.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("launch %s", plan.Kind), err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("open %s page", plan.Kind), err)
	}

	return &playwrightHandle{kind: plan.Kind, pw: pw, browser: browser, page: page}, nil
}

// pwRuntime is the Playwright driver process; *playwright.Playwright implements it.
type pwRuntime interface {
	Stop() error
}

type playwrightHandle struct {
	kind    Kind
	pw      pwRuntime
	browser playwright.Browser
	page    playwright.Page
}

func (h *playwrightHandle) Kind() Kind { return h.kind }

func (h *playwrightHandle) Navigate(url string) error {
	_, err := h.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (h *playwrightHandle) Title() (string, error) {
	return h.page.Title()
}

func (h *playwrightHandle) PageSource() (string, error) {
	return h.page.Content()
}

// SetImplicitWait maps to Playwright's default action timeout, which is
// the closest equivalent of a WebDriver implicit wait.
func (h *playwrightHandle) SetImplicitWait(d time.Duration) error {
	h.page.SetDefaultTimeout(float64(d.Milliseconds()))
	return nil
}

func (h *playwrightHandle) Maximize() error {
	return h.page.SetViewportSize(maximizedWidth, maximizedHeight)
}

func (h *playwrightHandle) SupportsScreenshot() bool { return true }

func (h *playwrightHandle) Screenshot() ([]byte, error) {
	return h.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
}

func (h *playwrightHandle) Quit() error {
	return h.browser.Close()
}

func (h *playwrightHandle) Close() error {
	return h.pw.Stop()
}
