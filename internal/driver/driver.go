// Package driver maps browser-name tokens to live browser-automation
// sessions. Chrome, Firefox and IE run through WebDriver services
// (tebeka/selenium); Chromium and WebKit run through Playwright.
package driver

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/kuitang/browserhooks/internal/errs"
)

// Kind is a supported browser token.
type Kind string

const (
	Chrome   Kind = "Chrome"
	Firefox  Kind = "Firefox"
	IE       Kind = "IE"
	Chromium Kind = "Chromium"
	WebKit   Kind = "WebKit"
)

// Kinds lists every supported token.
var Kinds = []Kind{Chrome, Firefox, IE, Chromium, WebKit}

// Backend selects the automation library that launches a plan.
type Backend int

const (
	BackendSelenium Backend = iota
	BackendPlaywright
)

func (b Backend) String() string {
	switch b {
	case BackendSelenium:
		return "selenium"
	case BackendPlaywright:
		return "playwright"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

const (
	chromeDriverBinary = "chromedriver"
	geckoDriverBinary  = "geckodriver"
	ieDriverBinary     = "IEDriverServer.exe"
)

// Handle is one live browser-automation session.
type Handle interface {
	Kind() Kind
	Navigate(url string) error
	Title() (string, error)
	PageSource() (string, error)
	SetImplicitWait(d time.Duration) error
	Maximize() error

	// SupportsScreenshot declares whether Screenshot can produce an image.
	SupportsScreenshot() bool
	// Screenshot returns a PNG image of the current viewport.
	Screenshot() ([]byte, error)

	// Quit ends the browser session.
	Quit() error
	// Close releases what the session ran on: the driver service or the
	// Playwright runtime. Call after Quit.
	Close() error
}

// Options are the factory-wide launch settings.
type Options struct {
	DriversDir string // Relative or absolute; defaults to Support/Drivers
	Headless   bool
	Port       int // 0 picks a free local port
}

func (o Options) driversDir() string {
	if o.DriversDir == "" {
		return filepath.Join("Support", "Drivers")
	}
	return o.DriversDir
}

// Plan is the fixed launch configuration for one browser kind.
type Plan struct {
	Kind    Kind
	Backend Backend

	// DriverPath is the driver service binary. A bare name is resolved on PATH.
	DriverPath   string
	Capabilities selenium.Capabilities
	// URLPrefix is a format string taking the service port.
	URLPrefix string
	Port      int
	Headless  bool
}

// UnsupportedKindError names a browser token outside the supported set.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("browser %q does not exist", e.Kind)
}

// PlanFor maps a browser token to its launch plan. Tokens are case-sensitive.
func PlanFor(kind string, opts Options) (Plan, error) {
	switch Kind(kind) {
	case Chrome:
		caps := selenium.Capabilities{"browserName": "chrome"}
		if opts.Headless {
			caps.AddChrome(chrome.Capabilities{Args: []string{"--headless=new"}})
		}
		return Plan{
			Kind:         Chrome,
			Backend:      BackendSelenium,
			DriverPath:   filepath.Join(opts.driversDir(), executable(chromeDriverBinary)),
			Capabilities: caps,
			URLPrefix:    "http://localhost:%d/wd/hub",
			Port:         opts.Port,
			Headless:     opts.Headless,
		}, nil
	case Firefox:
		caps := selenium.Capabilities{"browserName": "firefox"}
		if opts.Headless {
			caps.AddFirefox(firefox.Capabilities{Args: []string{"-headless"}})
		}
		return Plan{
			Kind:         Firefox,
			Backend:      BackendSelenium,
			DriverPath:   executable(geckoDriverBinary),
			Capabilities: caps,
			URLPrefix:    "http://localhost:%d",
			Port:         opts.Port,
			Headless:     opts.Headless,
		}, nil
	case IE:
		caps := selenium.Capabilities{
			"browserName": "internet explorer",
			"se:ieOptions": map[string]any{
				"ignoreProtectedModeSettings": true,
				"ignoreZoomSetting":           true,
				"nativeEvents":                false,
			},
		}
		return Plan{
			Kind:         IE,
			Backend:      BackendSelenium,
			DriverPath:   filepath.Join(opts.driversDir(), ieDriverBinary),
			Capabilities: caps,
			URLPrefix:    "http://localhost:%d",
			Port:         opts.Port,
		}, nil
	case Chromium, WebKit:
		return Plan{
			Kind:     Kind(kind),
			Backend:  BackendPlaywright,
			Headless: opts.Headless,
		}, nil
	default:
		return Plan{}, errs.Wrap(
			errs.UnsupportedBrowserKind,
			fmt.Sprintf("browser %q does not exist", kind),
			&UnsupportedKindError{Kind: kind},
		)
	}
}

func executable(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
