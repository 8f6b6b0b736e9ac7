package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "BOOKING_E2E"

// Engines understood by the browser package.
const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	RoomID  int    `mapstructure:"room_id"`
}

type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

type BrowserConfig struct {
	Engine            string        `mapstructure:"engine"`
	Name              string        `mapstructure:"name"`
	Headless          bool          `mapstructure:"headless"`
	SlowMo            time.Duration `mapstructure:"slow_mo"`
	ViewportWidth     int           `mapstructure:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SkipInstall       bool          `mapstructure:"skip_install"`
	ArtifactsDir      string        `mapstructure:"artifacts_dir"`
}

type DatesConfig struct {
	StartOffsetDays    int `mapstructure:"start_offset_days"`
	MaxProbeDays       int `mapstructure:"max_probe_days"`
	FallbackOffsetDays int `mapstructure:"fallback_offset_days"`
	FixedOffsetDays    int `mapstructure:"fixed_offset_days"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type TriageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// Config holds everything a suite run needs.
type Config struct {
	Site          SiteConfig    `mapstructure:"site"`
	API           APIConfig     `mapstructure:"api"`
	Browser       BrowserConfig `mapstructure:"browser"`
	Dates         DatesConfig   `mapstructure:"dates"`
	Marker        string        `mapstructure:"marker"`
	ResultTimeout time.Duration `mapstructure:"result_timeout"`
	Log           LogConfig     `mapstructure:"log"`
	MetricsFile   string        `mapstructure:"metrics_file"`
	Triage        TriageConfig  `mapstructure:"triage"`
}

// DefaultConfig returns the values the suite uses against the public demo targets.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL: "https://automationintesting.online",
			RoomID:  1,
		},
		API: APIConfig{
			BaseURL:       "https://restful-booker.herokuapp.com",
			Username:      "admin",
			Password:      "password123",
			Timeout:       10 * time.Second,
			RatePerSecond: 0,
		},
		Browser: BrowserConfig{
			Engine:            EnginePlaywright,
			Name:              "firefox",
			Headless:          true,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			ActionTimeout:     10 * time.Second,
			NavigationTimeout: 30 * time.Second,
			ArtifactsDir:      "test-results",
		},
		Dates: DatesConfig{
			StartOffsetDays:    1,
			MaxProbeDays:       60,
			FallbackOffsetDays: 90,
			FixedOffsetDays:    30,
		},
		Marker:        "TEST",
		ResultTimeout: 10 * time.Second,
		Log: LogConfig{
			Level: "info",
		},
		Triage: TriageConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// SetDefaults registers DefaultConfig on v so that env overrides and
// Unmarshal see every key.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("site.base_url", d.Site.BaseURL)
	v.SetDefault("site.room_id", d.Site.RoomID)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.username", d.API.Username)
	v.SetDefault("api.password", d.API.Password)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.rate_per_second", d.API.RatePerSecond)

	v.SetDefault("browser.engine", d.Browser.Engine)
	v.SetDefault("browser.name", d.Browser.Name)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.slow_mo", d.Browser.SlowMo)
	v.SetDefault("browser.viewport_width", d.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", d.Browser.ViewportHeight)
	v.SetDefault("browser.action_timeout", d.Browser.ActionTimeout)
	v.SetDefault("browser.navigation_timeout", d.Browser.NavigationTimeout)
	v.SetDefault("browser.skip_install", d.Browser.SkipInstall)
	v.SetDefault("browser.artifacts_dir", d.Browser.ArtifactsDir)

	v.SetDefault("dates.start_offset_days", d.Dates.StartOffsetDays)
	v.SetDefault("dates.max_probe_days", d.Dates.MaxProbeDays)
	v.SetDefault("dates.fallback_offset_days", d.Dates.FallbackOffsetDays)
	v.SetDefault("dates.fixed_offset_days", d.Dates.FixedOffsetDays)

	v.SetDefault("marker", d.Marker)
	v.SetDefault("result_timeout", d.ResultTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("triage.enabled", d.Triage.Enabled)
	v.SetDefault("triage.model", d.Triage.Model)
}

// New returns a viper instance wired with defaults, env overrides and the
// config file search path. path may be empty.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("booking-e2e")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	return v
}

// Load reads the optional config file, applies env overrides and validates.
func Load(path string) (*Config, error) {
	return FromViper(New(path), path != "")
}

// FromViper decodes and validates v. When requireFile is false a missing
// config file is not an error.
func FromViper(v *viper.Viper, requireFile bool) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if requireFile || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("site base URL", c.Site.BaseURL); err != nil {
		return err
	}
	if c.Site.RoomID <= 0 {
		return fmt.Errorf("room id must be positive")
	}
	if err := validateURL("api base URL", c.API.BaseURL); err != nil {
		return err
	}
	if c.API.Username == "" || c.API.Password == "" {
		return fmt.Errorf("api credentials cannot be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.API.RatePerSecond < 0 {
		return fmt.Errorf("api rate cannot be negative")
	}

	switch c.Browser.Engine {
	case EnginePlaywright:
		switch c.Browser.Name {
		case "firefox", "chromium", "webkit":
		default:
			return fmt.Errorf("browser name must be firefox, chromium or webkit, got %q", c.Browser.Name)
		}
	case EngineChromedp:
	default:
		return fmt.Errorf("browser engine must be %s or %s, got %q", EnginePlaywright, EngineChromedp, c.Browser.Engine)
	}
	if c.Browser.SlowMo < 0 {
		return fmt.Errorf("slow mo cannot be negative")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("action timeout must be positive")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}

	if c.Dates.StartOffsetDays < 0 {
		return fmt.Errorf("start offset cannot be negative")
	}
	if c.Dates.MaxProbeDays < 0 {
		return fmt.Errorf("max probe days cannot be negative")
	}
	if c.Dates.FallbackOffsetDays <= 0 {
		return fmt.Errorf("fallback offset must be positive")
	}
	if c.Dates.FixedOffsetDays <= 0 {
		return fmt.Errorf("fixed offset must be positive")
	}

	if strings.TrimSpace(c.Marker) == "" {
		return fmt.Errorf("marker cannot be empty")
	}
	if c.ResultTimeout <= 0 {
		return fmt.Errorf("result timeout must be positive")
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
