package driver

import (
	"context"
	"fmt"

	"github.com/kuitang/browserhooks/internal/errs"
	"github.com/kuitang/browserhooks/internal/logutil"
	"github.com/kuitang/browserhooks/internal/obs"
)

// Launcher turns a plan into a live session.
type Launcher interface {
	Launch(ctx context.Context, plan Plan) (Handle, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, plan Plan) (Handle, error)

func (f LauncherFunc) Launch(ctx context.Context, plan Plan) (Handle, error) {
	return f(ctx, plan)
}

// Factory creates handles from browser tokens.
type Factory struct {
	opts      Options
	launchers map[Backend]Launcher
}

// NewFactory returns a factory backed by the real WebDriver and Playwright launchers.
func NewFactory(opts Options) *Factory {
	return NewFactoryWithLaunchers(opts, map[Backend]Launcher{
		BackendSelenium:   seleniumLauncher{},
		BackendPlaywright: playwrightLauncher{},
	})
}

// NewFactoryWithLaunchers returns a factory using the given launchers.
func NewFactoryWithLaunchers(opts Options, launchers map[Backend]Launcher) *Factory {
	return &Factory{opts: opts, launchers: launchers}
}

// Options returns the factory-wide launch settings.
func (f *Factory) Options() Options {
	return f.opts
}

// Create launches a session for the given browser token. There is no
// retry and no fallback to another browser.
func (f *Factory) Create(ctx context.Context, kind string) (Handle, error) {
	plan, err := PlanFor(kind, f.opts)
	if err != nil {
		return nil, err
	}

	launcher, ok := f.launchers[plan.Backend]
	if !ok || launcher == nil {
		return nil, errs.New(errs.Unavailable, fmt.Sprintf("no %s launcher configured for %s", plan.Backend, plan.Kind))
	}

	obs.From(ctx).Info("launching browser driver",
		"kind", string(plan.Kind),
		"backend", plan.Backend.String(),
		"driver_path", plan.DriverPath,
		"headless", plan.Headless,
		"capabilities", logutil.FormatCapabilitiesForLog(plan.Capabilities),
	)

	h, err := launcher.Launch(ctx, plan)
	if err != nil {
		if errs.Is(err, errs.Internal) {
			return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("launch %s: %v", plan.Kind, err), err)
		}
		return nil, err
	}
	return h, nil
}
