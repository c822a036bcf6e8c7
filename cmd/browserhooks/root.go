package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cucumber/godog"
	"github.com/spf13/cobra"

	"github.com/kuitang/browserhooks/internal/artifact"
	"github.com/kuitang/browserhooks/internal/config"
	"github.com/kuitang/browserhooks/internal/driver"
	"github.com/kuitang/browserhooks/internal/errs"
	"github.com/kuitang/browserhooks/internal/hooks"
	"github.com/kuitang/browserhooks/internal/obs"
	"github.com/kuitang/browserhooks/internal/s3client"
	"github.com/kuitang/browserhooks/internal/session"
	"github.com/kuitang/browserhooks/internal/steps"
)

// statusError carries the exit status of a finished run.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("test run finished with status %d", e.status)
}

type rootFlags struct {
	settings   string
	browser    string
	reuse      bool
	headless   bool
	driversDir string
	baseURL    string
	resultsDir string
	port       int
	format     string
	tags       string
	noS3       bool
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "browserhooks [feature paths...]",
		Short: "Run Gherkin features against a real browser",
		Long: `browserhooks runs Gherkin feature files with godog, starting a
browser session before each scenario and stopping it afterwards.
When a scenario fails, the page source and a screenshot are written to the
results directory and optionally mirrored to an S3 bucket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.overrides(cmd, args))
			if err != nil {
				return errs.Wrap(errs.InvalidArgument, err.Error(), err)
			}
			obs.Init()
			cfg.PrintStartupSummary()

			ctx := cmd.Context()
			store, err := newArtifactStore(ctx, cfg)
			if err != nil {
				return err
			}
			factory := driver.NewFactory(driver.Options{
				DriversDir: cfg.DriversDir,
				Headless:   cfg.Headless,
				Port:       cfg.DriverPort,
			})
			status := runSuite(ctx, cfg, factory, store, cmd.OutOrStdout())
			if status != 0 {
				return &statusError{status: status}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.settings, "settings", "", "YAML settings file (default "+config.DefaultSettingsFile+")")
	flags.StringVar(&f.browser, "browser", "", "browser to drive: Chrome, Firefox, IE, Chromium or WebKit")
	flags.BoolVar(&f.reuse, "reuse", false, "keep one browser session open across scenarios")
	flags.BoolVar(&f.headless, "headless", false, "run the browser without a window")
	flags.StringVar(&f.driversDir, "drivers-dir", "", "directory holding chromedriver and IEDriverServer")
	flags.StringVar(&f.baseURL, "base-url", "", "base URL that relative step URLs resolve against")
	flags.StringVar(&f.resultsDir, "results-dir", "", "directory for failure artifacts")
	flags.IntVar(&f.port, "port", 0, "local driver port (0 picks a free port)")
	flags.StringVar(&f.format, "format", "", "godog output format")
	flags.StringVar(&f.tags, "tags", "", "godog tag expression")
	flags.BoolVar(&f.noS3, "no-s3", false, "do not mirror artifacts to S3")

	return cmd
}

// overrides maps explicitly set flags onto config overrides.
func (f *rootFlags) overrides(cmd *cobra.Command, args []string) config.Overrides {
	o := config.Overrides{
		SettingsFile: f.settings,
		Browser:      f.browser,
		DriversDir:   f.driversDir,
		BaseURL:      f.baseURL,
		ResultsDir:   f.resultsDir,
		Features:     args,
		Format:       f.format,
		Tags:         f.tags,
		NoS3:         f.noS3,
	}
	flags := cmd.Flags()
	if flags.Changed("reuse") {
		o.ReuseWebSession = &f.reuse
	}
	if flags.Changed("headless") {
		o.Headless = &f.headless
	}
	if flags.Changed("port") {
		o.DriverPort = &f.port
	}
	return o
}

func newArtifactStore(ctx context.Context, cfg *config.Config) (*artifact.Store, error) {
	store := artifact.NewStore(cfg.ResultsDir)
	if !cfg.MirrorEnabled() {
		return store, nil
	}
	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		BucketName:      cfg.ArtifactBucket,
		UsePathStyle:    cfg.AWSEndpointS3 != "",
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create artifact mirror: "+err.Error(), err)
	}
	return store.WithMirror(client, cfg.ArtifactPrefix), nil
}

// runSuite runs the configured features and returns godog's status.
func runSuite(ctx context.Context, cfg *config.Config, creator session.Creator, store *artifact.Store, out io.Writer) int {
	registry := session.NewRegistry(creator, store)
	registry.Set(ctx, cfg.Browser)
	h := hooks.New(registry, cfg.ReuseWebSession)
	lib := &steps.Library{BaseURL: cfg.BaseURL}

	suite := godog.TestSuite{
		Name:                 "browserhooks",
		TestSuiteInitializer: h.InitializeTestSuite,
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			h.InitializeScenario(sc)
			lib.Register(sc)
		},
		Options: &godog.Options{
			Format:      cfg.Format,
			Paths:       cfg.Features,
			Tags:        cfg.Tags,
			Output:      out,
			Concurrency: 1,
		},
	}
	status := suite.Run()
	obs.Pkg("main").Info("test run finished", "status", status, "browser", cfg.Browser)
	return status
}

// exitCode maps a command error to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return errs.ExitCode(errs.CodeOf(err))
}

// Execute runs the root command with args and returns the exit status.
func Execute(args []string) int {
	return execute(args, os.Stderr)
}

func execute(args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	var se *statusError
	if err != nil && !errors.As(err, &se) {
		fmt.Fprintln(stderr, "Error:", errorMessage(err))
	}
	return exitCode(err)
}

// errorMessage prefers the coded message; untyped errors, such as cobra's
// flag errors, are printed as they are.
func errorMessage(err error) string {
	if errs.Is(err, errs.Internal) {
		return err.Error()
	}
	return errs.MessageOf(err)
}
