// Package drivertest provides in-memory driver handles for tests.
package drivertest

import (
	"context"
	"sync"
	"time"

	"github.com/kuitang/browserhooks/internal/driver"
)

// Handle is a scriptable driver.Handle. Zero values behave like a healthy
// session with an empty page and screenshot support.
type Handle struct {
	KindValue    driver.Kind
	TitleValue   string
	Source       string
	PNG          []byte
	NoScreenshot bool

	NavigateErr     error
	TitleErr        error
	SourceErr       error
	ScreenshotErr   error
	ImplicitWaitErr error
	MaximizeErr     error
	QuitErr         error
	CloseErr        error

	// PanicOnSource simulates a faulted session that panics when read.
	PanicOnSource bool
	// PanicOnQuit simulates a driver that panics while quitting.
	PanicOnQuit bool

	URL            string
	ImplicitWait   time.Duration
	Maximized      bool
	QuitCalls      int
	CloseCalls     int
	ScreenshotCall int
}

var _ driver.Handle = (*Handle)(nil)

func (h *Handle) Kind() driver.Kind { return h.KindValue }

func (h *Handle) Navigate(url string) error {
	if h.NavigateErr != nil {
		return h.NavigateErr
	}
	h.URL = url
	return nil
}

func (h *Handle) Title() (string, error) {
	return h.TitleValue, h.TitleErr
}

func (h *Handle) PageSource() (string, error) {
	if h.PanicOnSource {
		panic("session is faulted")
	}
	return h.Source, h.SourceErr
}

func (h *Handle) SetImplicitWait(d time.Duration) error {
	if h.ImplicitWaitErr != nil {
		return h.ImplicitWaitErr
	}
	h.ImplicitWait = d
	return nil
}

func (h *Handle) Maximize() error {
	if h.MaximizeErr != nil {
		return h.MaximizeErr
	}
	h.Maximized = true
	return nil
}

func (h *Handle) SupportsScreenshot() bool { return !h.NoScreenshot }

func (h *Handle) Screenshot() ([]byte, error) {
	h.ScreenshotCall++
	return h.PNG, h.ScreenshotErr
}

func (h *Handle) Quit() error {
	h.QuitCalls++
	if h.PanicOnQuit {
		panic("driver crashed during quit")
	}
	return h.QuitErr
}

func (h *Handle) Close() error {
	h.CloseCalls++
	return h.CloseErr
}

// Closed reports whether the handle was both quit and closed at least once.
func (h *Handle) Closed() bool {
	return h.QuitCalls > 0 && h.CloseCalls > 0
}

// Creator records Create calls and hands out fresh Handles.
type Creator struct {
	mu sync.Mutex

	// Err, when set, fails every Create call.
	Err error
	// Template, when set, builds each new handle.
	Template func(kind string) *Handle

	Kinds   []string
	Created []*Handle
}

// Create implements the session controller's creator contract.
func (c *Creator) Create(_ context.Context, kind string) (driver.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Kinds = append(c.Kinds, kind)
	if c.Err != nil {
		return nil, c.Err
	}
	var h *Handle
	if c.Template != nil {
		h = c.Template(kind)
	} else {
		h = &Handle{KindValue: driver.Kind(kind)}
	}
	c.Created = append(c.Created, h)
	return h, nil
}

// Last returns the most recently created handle, or nil.
func (c *Creator) Last() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Created) == 0 {
		return nil
	}
	return c.Created[len(c.Created)-1]
}
