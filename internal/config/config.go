// Package config resolves issvis settings once at startup.
//
// Values are applied in this order, later sources winning:
//  1. Defaults
//  2. YAML config file (optional)
//  3. Environment variables (a .env file is loaded by the caller)
//  4. Command-line flags (applied by the caller)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceGoogle = "google"
	SourceCalDAV = "caldav"
)

// Google configures the Google Calendar events source.
type Google struct {
	CalendarID       string `yaml:"calendar_id"`
	ClientID         string `yaml:"client_id"`
	ClientSecret     string `yaml:"client_secret"`
	ClientSecretFile string `yaml:"client_secret_file"`
	TokenFile        string `yaml:"token_file"`
}

// CalDAV configures the CalDAV events source.
type CalDAV struct {
	Endpoint      string `yaml:"endpoint"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	CalendarName  string `yaml:"calendar_name"`
	LookaheadDays int    `yaml:"lookahead_days"`
	Timezone      string `yaml:"timezone"`
}

// Services holds the remote lookup endpoints.
type Services struct {
	GeocodeURL    string        `yaml:"geocode_url"`
	GeocodeAPIKey string        `yaml:"geocode_api_key"`
	SunriseURL    string        `yaml:"sunrise_url"`
	PassesURL     string        `yaml:"passes_url"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
}

// Config is the top-level application configuration.
type Config struct {
	Source    string   `yaml:"source"`
	MaxEvents int      `yaml:"max_events"`
	MaxPasses int      `yaml:"max_passes"`
	LogLevel  string   `yaml:"log_level"`
	Google    Google   `yaml:"google"`
	CalDAV    CalDAV   `yaml:"caldav"`
	Services  Services `yaml:"services"`
}

// Default returns the built-in configuration.
func Default() *Config {
	tokenFile := "ISS-station-passes.json"
	if home, err := os.UserHomeDir(); err == nil {
		tokenFile = filepath.Join(home, ".credentials", tokenFile)
	}

	return &Config{
		Source:    SourceGoogle,
		MaxEvents: 20,
		MaxPasses: 100,
		LogLevel:  "info",
		Google: Google{
			CalendarID:       "primary",
			ClientSecretFile: "client_secret.json",
			TokenFile:        tokenFile,
		},
		CalDAV: CalDAV{
			Endpoint:      "https://caldav.icloud.com/",
			LookaheadDays: 30,
		},
		Services: Services{
			GeocodeURL: "https://maps.googleapis.com/maps/api/geocode/json",
			SunriseURL: "https://api.sunrise-sunset.org/json",
			PassesURL:  "http://api.open-notify.org/iss-pass.json",
			Timeout:    10 * time.Second,
			Retries:    1,
		},
	}
}

// Load builds the configuration from defaults, the optional file at path and
// the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Source, "ISS_SOURCE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Google.CalendarID, "GOOGLE_CALENDAR_ID")
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.ClientSecretFile, "GOOGLE_CLIENT_SECRET_FILE")
	setString(&c.Google.TokenFile, "GOOGLE_TOKEN_FILE")
	setString(&c.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	setString(&c.CalDAV.Username, "CALDAV_USERNAME")
	setString(&c.CalDAV.Password, "CALDAV_PASSWORD")
	setString(&c.CalDAV.CalendarName, "CALDAV_CALENDAR_NAME")
	setString(&c.CalDAV.Timezone, "CALDAV_TIMEZONE")
	setString(&c.Services.GeocodeAPIKey, "GOOGLE_MAPS_API_KEY")
	setString(&c.Services.GeocodeURL, "GEOCODE_URL")
	setString(&c.Services.SunriseURL, "SUNRISE_URL")
	setString(&c.Services.PassesURL, "ISS_PASSES_URL")

	ints := []struct {
		dst *int
		env string
	}{
		{&c.MaxEvents, "MAX_EVENTS"},
		{&c.MaxPasses, "MAX_PASSES"},
		{&c.CalDAV.LookaheadDays, "CALDAV_LOOKAHEAD_DAYS"},
		{&c.Services.Retries, "HTTP_RETRIES"},
	}
	for _, i := range ints {
		if v := os.Getenv(i.env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", i.env, err)
			}
			*i.dst = n
		}
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT value: %w", err)
		}
		c.Services.Timeout = d
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	c.Source = strings.ToLower(c.Source)
	switch c.Source {
	case SourceGoogle:
		if c.Google.TokenFile == "" {
			return fmt.Errorf("google.token_file must be set")
		}
	case SourceCalDAV:
		if c.CalDAV.Username == "" || c.CalDAV.Password == "" {
			return fmt.Errorf("CALDAV_USERNAME and CALDAV_PASSWORD must be set for the caldav source")
		}
		if c.CalDAV.CalendarName == "" {
			return fmt.Errorf("CALDAV_CALENDAR_NAME must be set for the caldav source")
		}
		if c.CalDAV.Timezone != "" {
			if _, err := time.LoadLocation(c.CalDAV.Timezone); err != nil {
				return fmt.Errorf("invalid timezone '%s': %w", c.CalDAV.Timezone, err)
			}
		}
	default:
		return fmt.Errorf("source must be '%s' or '%s', got '%s'", SourceGoogle, SourceCalDAV, c.Source)
	}

	if c.MaxEvents <= 0 {
		return fmt.Errorf("max_events must be positive, got %d", c.MaxEvents)
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("max_passes must be positive, got %d", c.MaxPasses)
	}
	if c.Services.Timeout <= 0 {
		return fmt.Errorf("services.timeout must be positive, got %s", c.Services.Timeout)
	}
	if c.Services.Retries < 0 {
		return fmt.Errorf("services.retries must not be negative, got %d", c.Services.Retries)
	}
	return nil
}

// Location returns the zone for floating CalDAV times.
func (c *Config) Location() *time.Location {
	if c.CalDAV.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.CalDAV.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
