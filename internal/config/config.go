package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"eventcal/internal/transition"
)

// Supported feed providers.
const (
	ProviderAtom   = "atom"
	ProviderGoogle = "google"
	ProviderICS    = "ics"
)

// DefaultFeed is the public calendar shown when nothing else is configured.
const DefaultFeed = "ieee.ece.utexas.edu_e1lj5bjmrlhe6dc59h6umr8qok@group.calendar.google.com"

// BasicAuthConfig holds HTTP Basic Auth credentials for the page and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TransitionConfig tunes the loader-to-list crossfade.
type TransitionConfig struct {
	// IntervalMs is the tick interval in milliseconds.
	IntervalMs int `yaml:"interval_ms" json:"interval_ms"`
	// Rate is the per-tick opacity change, as a fraction of the current value.
	Rate float64 `yaml:"rate" json:"rate"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the page and API.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron schedule (e.g. "*/15 * * * *") on which every
	// open page reloads its events. Empty disables refreshing.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Provider selects how Feed is read: "atom", "google" or "ics".
	Provider string `yaml:"provider" json:"provider"`

	// Feed identifies the calendar: a public calendar id or a feed URL for
	// "atom", a calendar id for "google", a URL for "ics".
	Feed string `yaml:"feed" json:"feed"`

	// APIKey authenticates Google Calendar API requests.
	APIKey string `yaml:"api_key,omitempty" json:"-"`

	// Endpoint overrides the Google Calendar API base URL.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	Transition TransitionConfig `yaml:"transition" json:"transition"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		RefreshCron: "*/15 * * * *",
		Provider:    ProviderAtom,
		Feed:        DefaultFeed,
		Transition: TransitionConfig{
			IntervalMs: 15,
			Rate:       0.1,
		},
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	switch c.Provider {
	case ProviderAtom, ProviderGoogle, ProviderICS:
	default:
		c.Provider = def.Provider
	}
	if c.Feed == "" {
		c.Feed = def.Feed
	}
	if c.Transition.IntervalMs <= 0 {
		c.Transition.IntervalMs = def.Transition.IntervalMs
	}
	if c.Transition.Rate <= 0 || c.Transition.Rate >= 1 {
		c.Transition.Rate = def.Transition.Rate
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if c.Provider == ProviderICS && c.Feed == DefaultFeed {
		return errors.New("config: ics provider needs a feed URL")
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "") != (c.BasicAuth.Password == "") {
		return errors.New("config: basic_auth needs both username and password")
	}
	return nil
}

// TransitionSettings converts the YAML values into a transition.Config.
func (c *Config) TransitionSettings() transition.Config {
	tc := transition.DefaultConfig()
	tc.Interval = time.Duration(c.Transition.IntervalMs) * time.Millisecond
	tc.Rate = c.Transition.Rate
	return tc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
