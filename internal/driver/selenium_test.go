package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tebeka/selenium"
)

// fakeWebDriver overrides the WebDriver calls the handle makes; anything
// else panics through the nil embedded interface.
type fakeWebDriver struct {
	selenium.WebDriver

	url          string
	implicitWait time.Duration
	maximized    string
	quit         bool
}

func (f *fakeWebDriver) Get(url string) error { f.url = url; return nil }
func (f *fakeWebDriver) Title() (string, error) { return "Home", nil }
func (f *fakeWebDriver) PageSource() (string, error) { return "<html></html>", nil }
func (f *fakeWebDriver) SetImplicitWaitTimeout(d time.Duration) error { f.implicitWait = d; return nil }
func (f *fakeWebDriver) MaximizeWindow(name string) error { f.maximized = name; return nil }
func (f *fakeWebDriver) Screenshot() ([]byte, error) { return []byte{0x89, 'P', 'N', 'G'}, nil }
func (f *fakeWebDriver) Quit() error { f.quit = true; return nil }

type fakeService struct{ stopped int }

func (s *fakeService) Stop() error { s.stopped++; return nil }

func TestSeleniumHandle_DelegatesToWebDriver(t *testing.T) {
	t.Parallel()
	wd := &fakeWebDriver{}
	svc := &fakeService{}
	h := &seleniumHandle{kind: Chrome, wd: wd, svc: svc}

	if err := h.Navigate("http://localhost/"); err != nil || wd.url != "http://localhost/" {
		t.Fatalf("Navigate: err=%v url=%q", err, wd.url)
	}
	if title, err := h.Title(); err != nil || title != "Home" {
		t.Fatalf("Title = %q, %v", title, err)
	}
	if err := h.SetImplicitWait(10 * time.Second); err != nil || wd.implicitWait != 10*time.Second {
		t.Fatalf("SetImplicitWait: err=%v wait=%v", err, wd.implicitWait)
	}
	if err := h.Maximize(); err != nil || wd.maximized != "" {
		t.Fatalf("Maximize should target the current window: err=%v name=%q", err, wd.maximized)
	}
	if !h.SupportsScreenshot() {
		t.Fatal("WebDriver sessions support screenshots")
	}
	if png, err := h.Screenshot(); err != nil || len(png) == 0 {
		t.Fatalf("Screenshot = %v, %v", png, err)
	}
	if err := h.Quit(); err != nil || !wd.quit {
		t.Fatalf("Quit: err=%v quit=%t", err, wd.quit)
	}
	if err := h.Close(); err != nil || svc.stopped != 1 {
		t.Fatalf("Close: err=%v stopped=%d", err, svc.stopped)
	}
}

func TestSeleniumHandle_CloseWithoutService(t *testing.T) {
	t.Parallel()
	h := &seleniumHandle{kind: Firefox, wd: &fakeWebDriver{}}
	if err := h.Close(); err != nil {
		t.Fatalf("Close without service: %v", err)
	}
}

func TestWaitForStatus(t *testing.T) {
	t.Parallel()
	ready := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			ready = true
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := waitForStatus(context.Background(), srv.URL+"/status", 5*time.Second); err != nil {
		t.Fatalf("waitForStatus: %v", err)
	}
}

func TestWaitForStatus_TimesOut(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := waitForStatus(context.Background(), srv.URL+"/status", 300*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
