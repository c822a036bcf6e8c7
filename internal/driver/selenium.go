package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/tebeka/selenium"
	"golang.org/x/time/rate"

	"github.com/kuitang/browserhooks/internal/errs"
)

const serviceStartTimeout = 20 * time.Second

// service is a running WebDriver endpoint.
type service interface {
	Stop() error
}

type seleniumLauncher struct{}

func (seleniumLauncher) Launch(ctx context.Context, plan Plan) (Handle, error) {
	port, err := resolvePort(plan.Port)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "allocate driver port", err)
	}

	svc, err := startService(ctx, plan, port)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("start %s driver service %s", plan.Kind, plan.DriverPath), err)
	}

	wd, err := selenium.NewRemote(plan.Capabilities, fmt.Sprintf(plan.URLPrefix, port))
	if err != nil {
		_ = svc.Stop()
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("open %s session", plan.Kind), err)
	}
	return &seleniumHandle{kind: plan.Kind, wd: wd, svc: svc}, nil
}

func startService(ctx context.Context, plan Plan, port int) (service, error) {
	switch plan.Kind {
	case Chrome:
		return selenium.NewChromeDriverService(plan.DriverPath, port)
	case Firefox:
		path, err := exec.LookPath(plan.DriverPath)
		if err != nil {
			return nil, err
		}
		return selenium.NewGeckoDriverService(path, port)
	case IE:
		return startIEDriverServer(ctx, plan.DriverPath, port)
	default:
		return nil, fmt.Errorf("no driver service for %s", plan.Kind)
	}
}

func resolvePort(port int) (int, error) {
	if port != 0 {
		return port, nil
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// processService runs IEDriverServer, for which the selenium package has
// no service constructor.
type processService struct {
	cmd *exec.Cmd
}

func startIEDriverServer(ctx context.Context, path string, port int) (*processService, error) {
	cmd := exec.Command(path, "/port="+strconv.Itoa(port))
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	svc := &processService{cmd: cmd}
	if err := waitForStatus(ctx, fmt.Sprintf("http://localhost:%d/status", port), serviceStartTimeout); err != nil {
		_ = svc.Stop()
		return nil, err
	}
	return svc, nil
}

func (p *processService) Stop() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	_ = p.cmd.Wait()
	return nil
}

const statusPollInterval = 100 * time.Millisecond

func waitForStatus(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(statusPollInterval), 1)
	for {
		// Wait fails early when the next poll would land past the deadline.
		if err := limiter.Wait(ctx); err != nil {
			<-ctx.Done()
			return fmt.Errorf("driver service at %s not ready: %w", url, ctx.Err())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

type seleniumHandle struct {
	kind Kind
	wd   selenium.WebDriver
	svc  service
}

func (h *seleniumHandle) Kind() Kind { return h.kind }

func (h *seleniumHandle) Navigate(url string) error {
	return h.wd.Get(url)
}

func (h *seleniumHandle) Title() (string, error) {
	return h.wd.Title()
}

func (h *seleniumHandle) PageSource() (string, error) {
	return h.wd.PageSource()
}

func (h *seleniumHandle) SetImplicitWait(d time.Duration) error {
	return h.wd.SetImplicitWaitTimeout(d)
}

func (h *seleniumHandle) Maximize() error {
	return h.wd.MaximizeWindow("")
}

func (h *seleniumHandle) SupportsScreenshot() bool { return true }

func (h *seleniumHandle) Screenshot() ([]byte, error) {
	return h.wd.Screenshot()
}

func (h *seleniumHandle) Quit() error {
	return h.wd.Quit()
}

func (h *seleniumHandle) Close() error {
	if h.svc == nil {
		return nil
	}
	return h.svc.Stop()
}
