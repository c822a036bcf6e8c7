package session

import (
	"context"
	"time"

	"github.com/kuitang/browserhooks/internal/artifact"
	"github.com/kuitang/browserhooks/internal/errs"
	"github.com/kuitang/browserhooks/internal/obs"
)

// Registry holds the current controller for one test run. Build one per
// run and hand it to the hooks; there is no package-level instance.
type Registry struct {
	creator   Creator
	artifacts *artifact.Store
	now       func() time.Time
	current   *Controller
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry returns a registry whose controllers create handles with
// creator and write diagnostics to artifacts.
func NewRegistry(creator Creator, artifacts *artifact.Store, opts ...Option) *Registry {
	r := &Registry{
		creator:   creator,
		artifacts: artifacts,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Set replaces the current controller with one for browserName. A
// running session of the previous controller is stopped first so its
// browser is not abandoned.
func (r *Registry) Set(ctx context.Context, browserName string) *Controller {
	if prev := r.current; prev != nil && prev.Running() {
		obs.From(ctx).Warn("replacing controller with a running session; stopping it",
			"pkg", "session",
			"previous_browser", prev.DriverName(),
			"browser", browserName,
		)
		prev.Stop(ctx)
	}
	r.current = newController(browserName, r.creator, r.artifacts, r.now)
	return r.current
}

// Instance returns the current controller. It fails with NotConfigured
// until Set has been called.
func (r *Registry) Instance() (*Controller, error) {
	if r.current == nil {
		return nil, errs.New(errs.NotConfigured, "set the session controller before using the browser")
	}
	return r.current, nil
}
