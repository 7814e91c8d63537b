package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/testathon/shopcheck/internal/driver"
	"github.com/testathon/shopcheck/internal/fixtures"
	"github.com/testathon/shopcheck/internal/pages"
)

// DefaultBaseURL is the storefront the suite targets when BASE_URL is unset
const DefaultBaseURL = "https://testathon.live"

// SuiteConfig holds configuration for driving the storefront. The screenshot
// directory and the timeouts are overrides: left zero, the fixture catalog's
// suite config applies.
type SuiteConfig struct {
	BaseURL         string
	Driver          string
	Headless        bool
	ScreenshotDir   string
	PageLoadTimeout time.Duration
	ElementTimeout  time.Duration
	Workers         int
	Viewport        driver.Size
	// Seed feeds the random filter scenario; 0 draws a fresh one per run
	Seed uint64
}

// LoadSuiteConfig loads suite configuration from environment variables
func LoadSuiteConfig(getenv func(string) string) (*SuiteConfig, error) {
	config := &SuiteConfig{
		BaseURL:         strings.TrimRight(valueOr(getenv("BASE_URL"), DefaultBaseURL), "/"),
		Driver:          valueOr(getenv("DRIVER"), "playwright"),
		Headless:        true,
		ScreenshotDir:   getenv("SCREENSHOT_DIR"),
		Workers:         1,
		Viewport:        driver.Size{Width: 1366, Height: 768},
	}

	switch config.Driver {
	case "playwright", "rod":
	default:
		return nil, fmt.Errorf("DRIVER must be playwright or rod, got %q", config.Driver)
	}

	var err error
	if config.Headless, err = parseBool(getenv, "HEADLESS", config.Headless); err != nil {
		return nil, err
	}
	if config.PageLoadTimeout, err = parseDuration(getenv, "PAGE_LOAD_TIMEOUT", config.PageLoadTimeout); err != nil {
		return nil, err
	}
	if config.ElementTimeout, err = parseDuration(getenv, "ELEMENT_TIMEOUT", config.ElementTimeout); err != nil {
		return nil, err
	}
	if config.Workers, err = parsePositive(getenv, "WORKERS", config.Workers); err != nil {
		return nil, err
	}
	if config.Viewport.Width, err = parsePositive(getenv, "VIEWPORT_WIDTH", config.Viewport.Width); err != nil {
		return nil, err
	}
	if config.Viewport.Height, err = parsePositive(getenv, "VIEWPORT_HEIGHT", config.Viewport.Height); err != nil {
		return nil, err
	}
	if raw := getenv("SEED"); raw != "" {
		if config.Seed, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("SEED must be an unsigned integer: %w", err)
		}
	}

	return config, nil
}

// PageOptions returns the page-object options: the catalog's suite config
// with any environment override on top
func (c *SuiteConfig) PageOptions(suite fixtures.SuiteConfig) pages.Options {
	opts := pages.DefaultOptions(c.BaseURL).WithSuite(suite)
	if c.ScreenshotDir != "" {
		opts.ScreenshotDir = c.ScreenshotDir
	}
	if c.PageLoadTimeout > 0 {
		opts.PageLoadTimeout = c.PageLoadTimeout
	}
	if c.ElementTimeout > 0 {
		opts.ElementTimeout = c.ElementTimeout
	}
	return opts
}

// LaunchOptions returns the browser launch settings for this configuration
func (c *SuiteConfig) LaunchOptions() driver.LaunchOptions {
	return driver.LaunchOptions{Headless: c.Headless, Viewport: c.Viewport}
}

// LoginConfig overrides the sign-in settings of the fixture catalog
type LoginConfig struct {
	Path     string
	Password string
}

// LoadLoginConfig loads sign-in overrides from environment variables; unset
// variables keep the catalog's values
func LoadLoginConfig(getenv func(string) string) LoginConfig {
	path := getenv("LOGIN_PATH")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return LoginConfig{
		Path:     path,
		Password: getenv("LOGIN_PASSWORD"),
	}
}

// Apply writes the overrides into the catalog's login fixtures
func (c LoginConfig) Apply(login *fixtures.LoginFixtures) {
	if c.Path != "" {
		login.Path = c.Path
	}
	if c.Password != "" {
		login.Password = c.Password
	}
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func parseBool(getenv func(string) string, key string, fallback bool) (bool, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func parseDuration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 10s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return v, nil
}

func parsePositive(getenv func(string) string, key string, fallback int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if v < 1 {
		return 0, fmt.Errorf("%s must be at least 1, got %d", key, v)
	}
	return v, nil
}
