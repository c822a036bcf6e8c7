package hooks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/browserhooks/internal/artifact"
	"github.com/kuitang/browserhooks/internal/driver"
	"github.com/kuitang/browserhooks/internal/driver/drivertest"
	"github.com/kuitang/browserhooks/internal/errs"
	"github.com/kuitang/browserhooks/internal/obs"
	"github.com/kuitang/browserhooks/internal/session"
	"github.com/kuitang/browserhooks/internal/steps"
)

type harness struct {
	creator  *drivertest.Creator
	registry *session.Registry
	dir      string
	logs     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var logs bytes.Buffer
	t.Cleanup(obs.SetOutputForTests(&logs))

	dir := filepath.Join(t.TempDir(), "testresults")
	creator := &drivertest.Creator{
		Template: func(kind string) *drivertest.Handle {
			return &drivertest.Handle{
				KindValue:  driver.Kind(kind),
				TitleValue: "Example Domain",
				Source:     "<html><title>Example Domain</title></html>",
				PNG:        []byte("\x89PNG"),
			}
		},
	}
	clock := func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local) }
	return &harness{
		creator:  creator,
		registry: session.NewRegistry(creator, artifact.NewStore(dir), session.WithClock(clock)),
		dir:      dir,
		logs:     &logs,
	}
}

func TestFeatureTitle(t *testing.T) {
	cases := map[string]string{
		"features/shopping_cart.feature": "shopping_cart",
		`features\windows\login.feature`: "login",
		"login.feature":                  "login",
		"features/noext":                 "noext",
		"":                               "",
	}
	for in, want := range cases {
		require.Equal(t, want, FeatureTitle(in), "FeatureTitle(%q)", in)
	}
}

func TestBeforeScenario_NotConfigured(t *testing.T) {
	h := newHarness(t)
	hooks := New(h.registry, false)

	_, err := hooks.BeforeScenario(context.Background(), &godog.Scenario{Name: "s", Uri: "f.feature"})
	require.Equal(t, errs.NotConfigured, errs.CodeOf(err))
}

func TestScenarioLifecycle(t *testing.T) {
	h := newHarness(t)
	h.registry.Set(context.Background(), "Chrome")
	hooks := New(h.registry, false)
	sc := &godog.Scenario{Name: "valid login", Uri: "features/login.feature"}

	ctx, err := hooks.BeforeScenario(context.Background(), sc)
	require.NoError(t, err)

	published, ok := session.BrowserFrom(ctx)
	require.True(t, ok)
	require.Same(t, h.creator.Last(), published)
	require.Equal(t, session.Scenario{Feature: "login", Name: "valid login"}, session.ScenarioFrom(ctx))
	require.Equal(t, "valid login", obs.CorrelationFromContext(ctx).Scenario)

	ctx, err = hooks.AfterScenario(ctx, sc, nil)
	require.NoError(t, err)
	_, ok = session.BrowserFrom(ctx)
	require.False(t, ok)
	require.True(t, h.creator.Last().Closed())

	_, statErr := os.Stat(h.dir)
	require.True(t, os.IsNotExist(statErr), "passing scenarios leave no artifacts")

	ctrl, err := h.registry.Instance()
	require.NoError(t, err)
	require.Equal(t, session.Teardown{}, ctrl.Stop(ctx))
}

func TestAfterScenario_FailureCapturesAndKeepsScenarioError(t *testing.T) {
	h := newHarness(t)
	h.registry.Set(context.Background(), "Chrome")
	hooks := New(h.registry, false)
	sc := &godog.Scenario{Name: "checkout", Uri: "features/cart.feature"}

	ctx, err := hooks.BeforeScenario(context.Background(), sc)
	require.NoError(t, err)

	_, err = hooks.AfterScenario(ctx, sc, errors.New("step failed"))
	require.NoError(t, err)

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{
		"error_Cart_Checkout_20261016_090000_source.html",
		"error_Cart_Checkout_20261016_090000_screenshot.png",
	}, names)
	require.True(t, h.creator.Last().Closed())
}

func TestAfterScenario_CaptureErrorsDoNotSurface(t *testing.T) {
	h := newHarness(t)
	h.creator.Template = func(kind string) *drivertest.Handle {
		return &drivertest.Handle{KindValue: driver.Kind(kind), PanicOnSource: true}
	}
	h.registry.Set(context.Background(), "Chrome")
	hooks := New(h.registry, false)
	sc := &godog.Scenario{Name: "s", Uri: "f.feature"}

	ctx, err := hooks.BeforeScenario(context.Background(), sc)
	require.NoError(t, err)
	_, err = hooks.AfterScenario(ctx, sc, errors.New("boom"))
	require.NoError(t, err)
	require.Contains(t, h.logs.String(), "error while taking screenshot")
}

func TestReuseWebSession(t *testing.T) {
	h := newHarness(t)
	h.registry.Set(context.Background(), "Firefox")
	hooks := New(h.registry, true)

	var handles []driver.Handle
	for _, name := range []string{"first", "second", "third"} {
		sc := &godog.Scenario{Name: name, Uri: "features/reuse.feature"}
		ctx, err := hooks.BeforeScenario(context.Background(), sc)
		require.NoError(t, err)
		got, ok := session.BrowserFrom(ctx)
		require.True(t, ok, "scenario %s must see the browser", name)
		handles = append(handles, got)
		_, err = hooks.AfterScenario(ctx, sc, nil)
		require.NoError(t, err)
	}

	require.Len(t, h.creator.Created, 1)
	require.Same(t, handles[0], handles[2])
	require.Zero(t, h.creator.Last().QuitCalls)

	hooks.AfterTestRun(context.Background())
	require.True(t, h.creator.Last().Closed())
	require.Contains(t, h.logs.String(), "browser closed at end of run")
}

func TestAfterTestRun_WithoutControllerIsNoop(t *testing.T) {
	h := newHarness(t)
	require.NotPanics(t, func() { New(h.registry, true).AfterTestRun(context.Background()) })
}

const cartFeature = `Feature: Shopping cart

  Scenario: open the shop
    When I navigate to "https://example.com"
    Then the page title should be "Example Domain"

  Scenario: wrong page
    When I navigate to "https://example.com"
    Then the page title should be "Checkout"
`

func runSuite(t *testing.T, h *harness, reuse bool) int {
	t.Helper()
	hooks := New(h.registry, reuse)
	suite := godog.TestSuite{
		Name:                 "browserhooks",
		TestSuiteInitializer: hooks.InitializeTestSuite,
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			hooks.InitializeScenario(sc)
			(&steps.Library{}).Register(sc)
		},
		Options: &godog.Options{
			Format:      "progress",
			Output:      io.Discard,
			Concurrency: 1,
			FeatureContents: []godog.Feature{
				{Name: "shopping_cart.feature", Contents: []byte(cartFeature)},
			},
		},
	}
	return suite.Run()
}

func TestSuite_FailingScenarioLeavesArtifacts(t *testing.T) {
	h := newHarness(t)
	h.registry.Set(context.Background(), "Chrome")

	status := runSuite(t, h, false)
	require.Equal(t, 1, status)

	require.Len(t, h.creator.Created, 2, "one browser per scenario")
	for _, handle := range h.creator.Created {
		require.Equal(t, "https://example.com", handle.URL)
		require.True(t, handle.Closed())
	}

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.True(t, strings.HasPrefix(e.Name(), "error_ShoppingCart_WrongPage_"), e.Name())
	}
}

func TestSuite_ReuseStopsOnceAtEnd(t *testing.T) {
	h := newHarness(t)
	h.registry.Set(context.Background(), "Chrome")

	status := runSuite(t, h, true)
	require.Equal(t, 1, status)
	require.Len(t, h.creator.Created, 1)
	last := h.creator.Last()
	require.Equal(t, 1, last.QuitCalls)
	require.Equal(t, 1, last.CloseCalls)
}

func TestSuite_UnsupportedBrowserFailsScenarios(t *testing.T) {
	h := newHarness(t)
	h.creator.Err = errs.New(errs.UnsupportedBrowserKind, `browser "Opera" does not exist`)
	h.registry.Set(context.Background(), "Opera")

	status := runSuite(t, h, false)
	require.Equal(t, 1, status)
	require.Equal(t, []string{"Opera", "Opera"}, h.creator.Kinds)
	_, err := os.Stat(h.dir)
	require.True(t, os.IsNotExist(err))
}
