package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
)

type Config struct {
	AppConfig     *AppConfig
	TargetConfig  *TargetConfig
	BrowserConfig *BrowserConfig
	OutputConfig  *OutputConfig
}

type AppConfig struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	LogFile     string `envconfig:"LOG_FILE"`
	TraceStdout bool   `envconfig:"TRACE_STDOUT" default:"false"`
}

// TargetConfig describes the application under test.
type TargetConfig struct {
	BaseURL     string `envconfig:"BASE_URL"`
	Email       string `envconfig:"TEST_EMAIL"`
	Password    string `envconfig:"TEST_PASSWORD"`
	LoginPath   string `envconfig:"LOGIN_PATH" default:"/sign-in"`
	SuccessText string `envconfig:"SUCCESS_TEXT" default:"We've got you covered"`
}

type BrowserConfig struct {
	Headless          bool          `envconfig:"HEADLESS" default:"false"`
	RecordVideo       bool          `envconfig:"RECORD_VIDEO" default:"false"`
	VideoDir          string        `envconfig:"VIDEO_DIR" default:"reports/videos"`
	SlowMo            int           `envconfig:"BROWSER_SLOW_MO" default:"100"`
	Install           bool          `envconfig:"BROWSER_INSTALL" default:"true"`
	ScreenshotDir     string        `envconfig:"SCREENSHOT_DIR" default:"screenshots"`
	WaitUntil         string        `envconfig:"NAV_WAIT_UNTIL" default:"networkidle"`
	NavigationTimeout time.Duration `envconfig:"NAV_TIMEOUT" default:"15s"`
	ActionTimeout     time.Duration `envconfig:"ACTION_TIMEOUT" default:"10s"`
	ScreenshotTimeout time.Duration `envconfig:"SCREENSHOT_TIMEOUT" default:"10s"`
	SettleDelay       time.Duration `envconfig:"SETTLE_DELAY" default:"3s"`
	LoginSettleDelay  time.Duration `envconfig:"LOGIN_SETTLE_DELAY" default:"5s"`
}

type OutputConfig struct {
	FeaturesDir  string `envconfig:"FEATURES_DIR" default:"features"`
	OutputDir    string `envconfig:"OUTPUT_DIR" default:"AI-generated"`
	DumpCaptures bool   `envconfig:"DUMP_CAPTURES" default:"false"`
}

var waitUntilStates = []string{"load", "domcontentloaded", "networkidle", "commit"}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.normalize(); err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) normalize() error {
	var err error

	if c.OutputConfig.FeaturesDir, err = homedir.Expand(c.OutputConfig.FeaturesDir); err != nil {
		return fmt.Errorf("expand FEATURES_DIR: %w", err)
	}

	if c.OutputConfig.OutputDir, err = homedir.Expand(c.OutputConfig.OutputDir); err != nil {
		return fmt.Errorf("expand OUTPUT_DIR: %w", err)
	}

	if c.BrowserConfig.ScreenshotDir, err = homedir.Expand(c.BrowserConfig.ScreenshotDir); err != nil {
		return fmt.Errorf("expand SCREENSHOT_DIR: %w", err)
	}

	c.TargetConfig.BaseURL = strings.TrimRight(c.TargetConfig.BaseURL, "/")

	if c.TargetConfig.LoginPath != "" && !strings.HasPrefix(c.TargetConfig.LoginPath, "/") {
		c.TargetConfig.LoginPath = "/" + c.TargetConfig.LoginPath
	}

	c.BrowserConfig.WaitUntil = strings.ToLower(strings.TrimSpace(c.BrowserConfig.WaitUntil))

	return nil
}

func (c *Config) Validate() error {
	valid := false
	for _, state := range waitUntilStates {
		if c.BrowserConfig.WaitUntil == state {
			valid = true
			break
		}
	}

	if !valid {
		return fmt.Errorf("NAV_WAIT_UNTIL must be one of %s, got %q", strings.Join(waitUntilStates, ", "), c.BrowserConfig.WaitUntil)
	}

	timeouts := map[string]time.Duration{
		"NAV_TIMEOUT":        c.BrowserConfig.NavigationTimeout,
		"ACTION_TIMEOUT":     c.BrowserConfig.ActionTimeout,
		"SCREENSHOT_TIMEOUT": c.BrowserConfig.ScreenshotTimeout,
	}

	for _, key := range []string{"NAV_TIMEOUT", "ACTION_TIMEOUT", "SCREENSHOT_TIMEOUT"} {
		if timeouts[key] <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, timeouts[key])
		}
	}

	if c.TargetConfig.LoginPath == "" {
		return fmt.Errorf("LOGIN_PATH must not be empty")
	}

	return nil
}

// LoginURL is the absolute login page address.
func (c *Config) LoginURL() string {
	return c.TargetConfig.BaseURL + c.TargetConfig.LoginPath
}
