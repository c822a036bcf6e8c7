// Package pages holds the page-object base used by step definitions.
package pages

import (
	"fmt"

	"github.com/kuitang/browserhooks/internal/errs"
)

// Titler reports the title of the page currently loaded in a browser.
// driver.Handle satisfies it.
type Titler interface {
	Title() (string, error)
}

// MismatchError is the cause of a PageMismatch error.
type MismatchError struct {
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected page title %q, got %q", e.Expected, e.Actual)
}

// Base is a page object bound to a browser whose current page was
// verified at construction.
type Base struct {
	Browser Titler
	Title   string
}

// New checks that the browser's current page title equals expectedTitle.
// The title is read once; callers wait for navigation to settle first.
func New(browser Titler, expectedTitle string) (*Base, error) {
	if browser == nil {
		return nil, errs.New(errs.NotRunning, "no browser session to check the page against")
	}
	actual, err := browser.Title()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "read page title: "+err.Error(), err)
	}
	if actual != expectedTitle {
		mismatch := &MismatchError{Expected: expectedTitle, Actual: actual}
		return nil, errs.Wrap(errs.PageMismatch, mismatch.Error(), mismatch)
	}
	return &Base{Browser: browser, Title: actual}, nil
}
