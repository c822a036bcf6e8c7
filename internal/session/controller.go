// Package session owns the browser session of a test run: it starts and
// stops the one driver handle, publishes it to scenario steps, and
// captures diagnostics when a scenario fails.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/browserhooks/internal/artifact"
	"github.com/kuitang/browserhooks/internal/driver"
	"github.com/kuitang/browserhooks/internal/errs"
	"github.com/kuitang/browserhooks/internal/logutil"
	"github.com/kuitang/browserhooks/internal/obs"
)

// DefaultTimeout is the implicit wait applied to every new session.
const DefaultTimeout = 10 * time.Second

const sourcePreviewChars = 200

// Creator builds driver handles from browser tokens. *driver.Factory implements it.
type Creator interface {
	Create(ctx context.Context, kind string) (driver.Handle, error)
}

// Teardown records the outcome of Stop. Err collects quit/dispose
// failures; they are logged, never returned as errors.
type Teardown struct {
	Stopped bool
	Handle  driver.Handle
	Err     error
}

// Capture records the outcome of TakeScreenshot.
type Capture struct {
	SourcePath     string
	ScreenshotPath string
	Err            error
}

// Controller holds at most one active driver handle.
type Controller struct {
	driverName string
	creator    Creator
	artifacts  *artifact.Store
	now        func() time.Time

	id        string
	handle    driver.Handle
	published *Store
}

func newController(driverName string, creator Creator, artifacts *artifact.Store, now func() time.Time) *Controller {
	return &Controller{
		driverName: driverName,
		creator:    creator,
		artifacts:  artifacts,
		now:        now,
	}
}

// DriverName returns the browser token this controller starts.
func (c *Controller) DriverName() string { return c.driverName }

// Running reports whether a handle is active.
func (c *Controller) Running() bool { return c.handle != nil }

// Handle returns the active handle.
func (c *Controller) Handle() (driver.Handle, bool) {
	return c.handle, c.handle != nil
}

// SessionID returns the id of the active session, or "".
func (c *Controller) SessionID() string { return c.id }

func (c *Controller) logger(ctx context.Context) *slog.Logger {
	return obs.From(obs.WithCorrelation(ctx, obs.Correlation{
		SessionID: c.id,
		Browser:   c.driverName,
	})).With("pkg", "session")
}

// Start creates a new session, applies the implicit wait and maximizes
// the window, then publishes the handle to the context's scenario store.
// A session that is already running is stopped first.
func (c *Controller) Start(ctx context.Context) error {
	if c.handle != nil {
		c.logger(ctx).Warn("browser session already running; stopping it before starting a new one")
		c.Stop(ctx)
	}

	h, err := c.creator.Create(ctx, c.driverName)
	if err != nil {
		c.logger(ctx).Error("browser session failed to start", "error", err)
		return err
	}

	if err := configure(h); err != nil {
		teardownErr := errors.Join(safely("quit", h.Quit), safely("dispose", h.Close))
		c.logger(ctx).Error("browser session setup failed", "error", err, "teardown_error", teardownErr)
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("configure %s session: %v", c.driverName, err), err)
	}

	c.handle = h
	c.id = uuid.NewString()
	c.Publish(ctx)
	c.logger(ctx).Info("browser session started", "implicit_wait", DefaultTimeout.String())
	return nil
}

func configure(h driver.Handle) error {
	if err := h.SetImplicitWait(DefaultTimeout); err != nil {
		return fmt.Errorf("set implicit wait: %w", err)
	}
	if err := h.Maximize(); err != nil {
		return fmt.Errorf("maximize window: %w", err)
	}
	return nil
}

// Publish writes the active handle into the context's scenario store
// under BrowserKey. It does nothing when no session is running or the
// context carries no store.
func (c *Controller) Publish(ctx context.Context) {
	store := StoreFrom(ctx)
	if c.handle == nil || store == nil {
		return
	}
	store.Set(BrowserKey, c.handle)
	c.published = store
}

// Stop quits and disposes the active handle. It is a no-op without one.
// Dispose runs even when quit fails or panics. Failures are recorded in
// the result and logged; the handle is released either way.
func (c *Controller) Stop(ctx context.Context) Teardown {
	if c.handle == nil {
		return Teardown{}
	}

	h := c.handle
	log := c.logger(ctx)

	var quitErr, closeErr error
	if err := safely("quit", h.Quit); err != nil {
		quitErr = fmt.Errorf("quit: %w", err)
	}
	if err := safely("dispose", h.Close); err != nil {
		closeErr = fmt.Errorf("dispose: %w", err)
	}
	c.release(h)

	td := Teardown{Stopped: true, Handle: h, Err: errors.Join(quitErr, closeErr)}
	if td.Err != nil {
		log.Warn("browser session stop error", "error", td.Err)
	}
	log.Info("browser session stopped")
	return td
}

// safely runs fn, turning a panic from a faulted session into an error.
func safely(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", step, r)
		}
	}()
	return fn()
}

func (c *Controller) release(h driver.Handle) {
	if c.published != nil {
		if v, ok := c.published.Get(BrowserKey); ok && v == h {
			c.published.Delete(BrowserKey)
		}
		c.published = nil
	}
	c.handle = nil
	c.id = ""
}

// TakeScreenshot writes the page source and, when the handle supports it,
// a PNG screenshot for the scenario in ctx. Each artifact is attempted on
// its own. It never fails: every error, including a panic from a faulted
// session, is recorded in the result and logged.
func (c *Controller) TakeScreenshot(ctx context.Context) (capture Capture) {
	log := c.logger(ctx)
	defer func() {
		if r := recover(); r != nil {
			capture.Err = errors.Join(capture.Err, fmt.Errorf("panic while taking screenshot: %v", r))
		}
		if capture.Err != nil {
			log.Error("error while taking screenshot", "error", capture.Err)
		}
	}()

	if c.handle == nil {
		capture.Err = errs.New(errs.NotRunning, "no browser session is running")
		return capture
	}

	sc := ScenarioFrom(ctx)
	base := artifact.BaseName(sc.Feature, sc.Name, c.now())

	if err := c.artifacts.Prepare(); err != nil {
		capture.Err = err
		return capture
	}

	sourceErr := safely("page source capture", func() error {
		var err error
		capture.SourcePath, err = c.captureSource(ctx, log, base)
		return err
	})
	imageErr := safely("screenshot capture", func() error {
		var err error
		capture.ScreenshotPath, err = c.captureImage(ctx, log, base)
		return err
	})
	capture.Err = errors.Join(sourceErr, imageErr)
	return capture
}

func (c *Controller) captureSource(ctx context.Context, log *slog.Logger, base string) (string, error) {
	source, err := c.handle.PageSource()
	if err != nil {
		return "", fmt.Errorf("read page source: %w", err)
	}
	path, err := c.artifacts.WriteSource(ctx, base, source)
	if path != "" {
		log.Info("page source saved",
			"url", artifact.FileURL(path),
			"mirror", c.artifacts.MirrorURL(path),
			"preview", logutil.TruncateForLog(source, sourcePreviewChars),
		)
	}
	return path, err
}

func (c *Controller) captureImage(ctx context.Context, log *slog.Logger, base string) (string, error) {
	if !c.handle.SupportsScreenshot() {
		log.Debug("browser session does not support screenshots", "kind", string(c.handle.Kind()))
		return "", nil
	}
	png, err := c.handle.Screenshot()
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	path, err := c.artifacts.WriteScreenshot(ctx, base, png)
	if path != "" {
		log.Info("screenshot saved", "url", artifact.FileURL(path), "mirror", c.artifacts.MirrorURL(path))
	}
	return path, err
}
