// Package steps provides godog step definitions that drive the browser
// published by the scenario hooks.
package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/kuitang/browserhooks/internal/driver"
	"github.com/kuitang/browserhooks/internal/errs"
	"github.com/kuitang/browserhooks/internal/obs"
	"github.com/kuitang/browserhooks/internal/pages"
	"github.com/kuitang/browserhooks/internal/session"
	"github.com/kuitang/browserhooks/internal/urlutil"
)

// Library holds the step definitions. Relative URLs in navigation steps
// resolve against BaseURL.
type Library struct {
	BaseURL string
}

// Register adds the browser steps to the scenario context.
func (l *Library) Register(sc *godog.ScenarioContext) {
	sc.Step(`^I navigate to "([^"]*)"$`, l.NavigateTo)
	sc.Step(`^the page title should be "([^"]*)"$`, l.PageTitleShouldBe)
}

func browser(ctx context.Context) (driver.Handle, error) {
	h, ok := session.BrowserFrom(ctx)
	if !ok {
		return nil, errs.New(errs.NotRunning, "no browser published for this scenario")
	}
	return h, nil
}

// NavigateTo loads target in the scenario's browser.
func (l *Library) NavigateTo(ctx context.Context, target string) error {
	h, err := browser(ctx)
	if err != nil {
		return err
	}
	url, err := urlutil.Resolve(l.BaseURL, target)
	if err != nil {
		return err
	}
	obs.From(ctx).Debug("navigating", "pkg", "steps", "url", url)
	if err := h.Navigate(url); err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("navigate to %s: %v", url, err), err)
	}
	return nil
}

// PageTitleShouldBe checks the current page title.
func (l *Library) PageTitleShouldBe(ctx context.Context, title string) error {
	h, err := browser(ctx)
	if err != nil {
		return err
	}
	_, err = pages.New(h, title)
	return err
}
