// Package config provides configuration for the browserhooks runner.
// Settings are layered: built-in defaults, then an optional YAML settings
// file, then environment variables, then CLI flag overrides. Validation
// collects every problem before failing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/browserhooks/internal/urlutil"
)

const (
	DefaultBrowser      = "Chrome"
	DefaultDriversDir   = "Support/Drivers"
	DefaultResultsDir   = "testresults"
	DefaultSettingsFile = "appsettings.yaml"
	DefaultFormat       = "pretty"
	defaultS3Region     = "auto"
	defaultS3Prefix     = "testresults"
)

// Config holds all runner configuration.
type Config struct {
	// Browser session
	Browser         string // Driver token: Chrome, Firefox, IE, Chromium, WebKit
	ReuseWebSession bool   // Keep the session alive between scenarios
	Headless        bool
	DriversDir      string // Where chromedriver and IEDriverServer live
	DriverPort      int    // 0 picks a free local port

	// Site under test; relative step URLs resolve against it
	BaseURL string

	// Artifacts
	ResultsDir string

	// Suite
	Features []string
	Format   string
	Tags     string

	// Artifact mirror (optional; enabled when ArtifactBucket is set and NoS3 is false)
	NoS3               bool
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	ArtifactBucket     string // ARTIFACT_BUCKET
	ArtifactPrefix     string // ARTIFACT_PREFIX

	SettingsFile string
}

// Settings is the YAML settings file layout.
type Settings struct {
	Browser         string   `yaml:"browser"`
	ReuseWebSession *bool    `yaml:"reuseWebSession"`
	Headless        *bool    `yaml:"headless"`
	DriversDir      string   `yaml:"driversDir"`
	DriverPort      int      `yaml:"driverPort"`
	BaseURL         string   `yaml:"baseUrl"`
	ResultsDir      string   `yaml:"resultsDir"`
	Features        []string `yaml:"features"`
	Format          string   `yaml:"format"`
	Tags            string   `yaml:"tags"`
}

// Overrides carries CLI flag values. Nil pointers and empty strings mean
// the flag was not given.
type Overrides struct {
	SettingsFile    string
	Browser         string
	ReuseWebSession *bool
	Headless        *bool
	DriversDir      string
	DriverPort      *int
	BaseURL         string
	ResultsDir      string
	Features        []string
	Format          string
	Tags            string
	NoS3            bool
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Browser:        DefaultBrowser,
		DriversDir:     DefaultDriversDir,
		ResultsDir:     DefaultResultsDir,
		Features:       []string{"features"},
		Format:         DefaultFormat,
		AWSRegion:      defaultS3Region,
		ArtifactPrefix: defaultS3Prefix,
		SettingsFile:   DefaultSettingsFile,
	}
}

// Load builds the configuration from defaults, the settings file,
// environment variables and the given overrides, then validates it.
// A missing settings file is not an error; a malformed one is.
func Load(o Overrides) (*Config, error) {
	cfg := Default()

	cfg.SettingsFile = getEnvOrDefault("SETTINGS_FILE", cfg.SettingsFile)
	if o.SettingsFile != "" {
		cfg.SettingsFile = o.SettingsFile
	}
	settings, err := LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	cfg.applySettings(settings)
	cfg.applyEnv()
	cfg.applyOverrides(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSettings reads a YAML settings file. A missing file yields empty settings.
func LoadSettings(path string) (Settings, error) {
	var settings Settings
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return settings, nil
}

func (c *Config) applySettings(s Settings) {
	if s.Browser != "" {
		c.Browser = s.Browser
	}
	if s.ReuseWebSession != nil {
		c.ReuseWebSession = *s.ReuseWebSession
	}
	if s.Headless != nil {
		c.Headless = *s.Headless
	}
	if s.DriversDir != "" {
		c.DriversDir = s.DriversDir
	}
	if s.DriverPort != 0 {
		c.DriverPort = s.DriverPort
	}
	if s.BaseURL != "" {
		c.BaseURL = s.BaseURL
	}
	if s.ResultsDir != "" {
		c.ResultsDir = s.ResultsDir
	}
	if len(s.Features) > 0 {
		c.Features = s.Features
	}
	if s.Format != "" {
		c.Format = s.Format
	}
	if s.Tags != "" {
		c.Tags = s.Tags
	}
}

func (c *Config) applyEnv() {
	c.Browser = getEnvOrDefault("BROWSER", c.Browser)
	if v := strings.TrimSpace(os.Getenv("REUSE_WEB_SESSION")); v != "" {
		// Only the literal "true" enables reuse, matching the appSettings contract.
		c.ReuseWebSession = v == "true"
	}
	c.Headless = parseBoolOrDefault("HEADLESS", c.Headless)
	c.DriversDir = getEnvOrDefault("DRIVERS_DIR", c.DriversDir)
	c.DriverPort = parseIntOrDefault("DRIVER_PORT", c.DriverPort)
	c.BaseURL = getEnvOrDefault("BASE_URL", c.BaseURL)
	c.ResultsDir = getEnvOrDefault("RESULTS_DIR", c.ResultsDir)

	c.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	c.AWSRegion = getEnvOrDefault("AWS_REGION", c.AWSRegion)
	c.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	c.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	c.ArtifactBucket = strings.TrimSpace(os.Getenv("ARTIFACT_BUCKET"))
	c.ArtifactPrefix = getEnvOrDefault("ARTIFACT_PREFIX", c.ArtifactPrefix)
}

func (c *Config) applyOverrides(o Overrides) {
	if o.Browser != "" {
		c.Browser = o.Browser
	}
	if o.ReuseWebSession != nil {
		c.ReuseWebSession = *o.ReuseWebSession
	}
	if o.Headless != nil {
		c.Headless = *o.Headless
	}
	if o.DriversDir != "" {
		c.DriversDir = o.DriversDir
	}
	if o.DriverPort != nil {
		c.DriverPort = *o.DriverPort
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.ResultsDir != "" {
		c.ResultsDir = o.ResultsDir
	}
	if len(o.Features) > 0 {
		c.Features = o.Features
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	if o.Tags != "" {
		c.Tags = o.Tags
	}
	if o.NoS3 {
		c.NoS3 = true
	}
}

// Validate checks that the configuration is usable. The browser token
// itself is checked by the driver factory, which owns the supported set.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Browser) == "" {
		errs = append(errs, "BROWSER must not be empty")
	}
	if strings.TrimSpace(c.ResultsDir) == "" {
		errs = append(errs, "RESULTS_DIR must not be empty")
	}
	if c.DriverPort < 0 || c.DriverPort > 65535 {
		errs = append(errs, "DRIVER_PORT must be between 0 and 65535")
	}
	if c.BaseURL != "" && !urlutil.IsAbsolute(c.BaseURL) {
		errs = append(errs, "BASE_URL must be an absolute URL")
	}
	if len(c.Features) == 0 {
		errs = append(errs, "at least one feature path is required")
	}

	if c.MirrorEnabled() {
		if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
			errs = append(errs, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// MirrorEnabled reports whether artifacts should also be uploaded to S3.
func (c *Config) MirrorEnabled() bool {
	return !c.NoS3 && c.ArtifactBucket != ""
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "browserhooks starting...")
	fmt.Fprintf(os.Stderr, "  Browser:  %s (headless=%t, reuse=%t)\n", c.Browser, c.Headless, c.ReuseWebSession)
	fmt.Fprintf(os.Stderr, "  Drivers:  %s\n", c.DriversDir)
	if c.BaseURL != "" {
		fmt.Fprintf(os.Stderr, "  Base URL: %s\n", c.BaseURL)
	}
	fmt.Fprintf(os.Stderr, "  Results:  %s\n", c.ResultsDir)
	if c.MirrorEnabled() {
		fmt.Fprintf(os.Stderr, "  Mirror:   s3://%s/%s\n", c.ArtifactBucket, c.ArtifactPrefix)
	} else {
		fmt.Fprintln(os.Stderr, "  Mirror:   disabled")
	}
	fmt.Fprintf(os.Stderr, "  Features: %s\n", strings.Join(c.Features, ", "))
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
