// Package hooks binds the session controller to godog's scenario and
// suite lifecycle.
package hooks

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/cucumber/godog"

	"github.com/kuitang/browserhooks/internal/obs"
	"github.com/kuitang/browserhooks/internal/session"
)

// Hooks starts a browser session before each scenario, captures
// diagnostics when one fails and stops the session afterwards.
type Hooks struct {
	registry *session.Registry
	reuse    bool
}

// New returns hooks driving the registry's current controller. With reuse
// set, one session is kept open across scenarios and only stopped when
// the run ends.
func New(registry *session.Registry, reuse bool) *Hooks {
	return &Hooks{registry: registry, reuse: reuse}
}

// FeatureTitle derives a feature title from a feature file URI.
func FeatureTitle(uri string) string {
	base := path.Base(strings.ReplaceAll(uri, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func logger(ctx context.Context) *slog.Logger {
	return obs.From(ctx).With("pkg", "hooks")
}

// BeforeScenario attaches a fresh scenario store and the scenario identity
// to the context, then starts the browser session.
func (h *Hooks) BeforeScenario(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	scenario := session.Scenario{Feature: FeatureTitle(sc.Uri), Name: sc.Name}
	ctx = session.WithStore(ctx, session.NewStore())
	ctx = session.WithScenario(ctx, scenario)
	ctx = obs.WithCorrelation(ctx, obs.Correlation{Feature: scenario.Feature, Scenario: scenario.Name})

	ctrl, err := h.registry.Instance()
	if err != nil {
		return ctx, err
	}
	if h.reuse && ctrl.Running() {
		ctrl.Publish(ctx)
		logger(ctx).Debug("reusing browser session", "session_id", ctrl.SessionID())
		return ctx, nil
	}

	logger(ctx).Info("starting browser", "browser", ctrl.DriverName())
	return ctx, ctrl.Start(ctx)
}

// AfterScenario captures the page when the scenario failed and stops the
// session unless it is reused. It never adds an error of its own, so the
// scenario's failure is reported unchanged.
func (h *Hooks) AfterScenario(ctx context.Context, _ *godog.Scenario, scenarioErr error) (context.Context, error) {
	ctrl, err := h.registry.Instance()
	if err != nil {
		logger(ctx).Warn("no session controller after scenario", "error", err)
		return ctx, nil
	}

	if scenarioErr != nil && ctrl.Running() {
		logger(ctx).Info("scenario failed; capturing browser state", "error", scenarioErr)
		ctrl.TakeScreenshot(ctx)
	}
	if !h.reuse {
		ctrl.Stop(ctx)
	}
	return ctx, nil
}

// AfterTestRun stops the session left open by reuse, if any.
func (h *Hooks) AfterTestRun(ctx context.Context) {
	ctrl, err := h.registry.Instance()
	if err != nil {
		return
	}
	if td := ctrl.Stop(ctx); td.Stopped {
		logger(ctx).Info("browser closed at end of run")
	}
}

// InitializeTestSuite registers the end-of-run hook.
func (h *Hooks) InitializeTestSuite(ts *godog.TestSuiteContext) {
	ts.AfterSuite(func() { h.AfterTestRun(context.Background()) })
}

// InitializeScenario registers the per-scenario hooks.
func (h *Hooks) InitializeScenario(sc *godog.ScenarioContext) {
	sc.Before(h.BeforeScenario)
	sc.After(h.AfterScenario)
}
