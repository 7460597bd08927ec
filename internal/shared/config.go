package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log         LogConfig         `toml:"log"`
	Database    DatabaseConfig    `toml:"database"`
	MusicBrainz MusicBrainzConfig `toml:"musicbrainz"`
	Breaker     BreakerConfig     `toml:"breaker"`
	LastFM      LastFMConfig      `toml:"lastfm"`
	Email       EmailConfig       `toml:"email"`
	Daemon      DaemonConfig      `toml:"daemon"`
	Blacklist   BlacklistConfig   `toml:"blacklist"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// MusicBrainzConfig contains catalog client settings.
//
// RequestDelay is the courtesy spacing enforced between any two catalog requests.
type MusicBrainzConfig struct {
	BaseURL      string `toml:"base_url"`
	UserAgent    string `toml:"user_agent"`
	RequestDelay string `toml:"request_delay"`
	Timeout      string `toml:"timeout"`
}

// BreakerConfig tunes the circuit breaker wrapped around upstream clients.
type BreakerConfig struct {
	FailureThreshold uint32 `toml:"failure_threshold"`
	OpenTimeout      string `toml:"open_timeout"`
}

// LastFMConfig contains listening-history service credentials.
type LastFMConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// EmailConfig contains SMTP settings for notification delivery.
type EmailConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	From          string `toml:"from"`
	FromName      string `toml:"from_name"`
	SubjectPrefix string `toml:"subject_prefix"`
	UseTLS        bool   `toml:"use_tls"`
	SiteURL       string `toml:"site_url"`
}

// DaemonConfig contains sweep and notification tuning.
//
// RefreshArtists forces an artist metadata refresh on every sweep; otherwise
// artists are refreshed only on ArtistRefreshDay of the month (UTC).
type DaemonConfig struct {
	ReleasePageSize  int    `toml:"release_page_size"`
	ImportPageSize   int    `toml:"import_page_size"`
	SearchLimit      int    `toml:"search_limit"`
	RecencyWeeks     int    `toml:"recency_weeks"`
	RefreshArtists   bool   `toml:"refresh_artists"`
	ArtistRefreshDay int    `toml:"artist_refresh_day"`
	CyclePause       string `toml:"cycle_pause"`
}

// BlacklistConfig lists catalog ids that are never resolved into artists.
type BlacklistConfig struct {
	Artists []string `toml:"artists"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks durations and page sizes.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"musicbrainz.request_delay": c.MusicBrainz.RequestDelay,
		"musicbrainz.timeout":       c.MusicBrainz.Timeout,
		"breaker.open_timeout":      c.Breaker.OpenTimeout,
		"daemon.cycle_pause":        c.Daemon.CyclePause,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}

	if c.Daemon.ReleasePageSize <= 0 || c.Daemon.ImportPageSize <= 0 || c.Daemon.SearchLimit < 2 {
		return fmt.Errorf("%w: page sizes must be positive and search_limit at least 2", ErrInvalidConfig)
	}
	if c.Daemon.ArtistRefreshDay < 0 || c.Daemon.ArtistRefreshDay > 31 {
		return fmt.Errorf("%w: daemon.artist_refresh_day must be within 0-31", ErrInvalidConfig)
	}

	return nil
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// RequestDelay returns the catalog request spacing.
func (c *Config) RequestDelay() time.Duration {
	return parseDuration(c.MusicBrainz.RequestDelay, 2*time.Second)
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.MusicBrainz.Timeout, 10*time.Second)
}

// BreakerTimeout returns how long an open breaker waits before probing.
func (c *Config) BreakerTimeout() time.Duration {
	return parseDuration(c.Breaker.OpenTimeout, time.Minute)
}

// CyclePause returns the idle time between two daemon cycles.
func (c *Config) CyclePause() time.Duration {
	return parseDuration(c.Daemon.CyclePause, 0)
}

// RecencyWindow returns the notification staleness cutoff.
func (c *Config) RecencyWindow() time.Duration {
	weeks := c.Daemon.RecencyWeeks
	if weeks <= 0 {
		weeks = 52
	}
	return time.Duration(weeks) * 7 * 24 * time.Hour
}

// BlacklistSet returns the normalized blacklist as a lookup set.
func (c *Config) BlacklistSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Blacklist.Artists))
	for _, mbid := range c.Blacklist.Artists {
		set[strings.ToLower(strings.TrimSpace(mbid))] = struct{}{}
	}
	return set
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
