// Package config loads the session configuration consumed read-only by the
// exploration core.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/v0xg/webexplore/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config is the full session configuration. Treat it as immutable once
// Validate has succeeded.
type Config struct {
	MaxClicks                    int      `yaml:"maxClicks"`
	MaxConsecutiveFailures       int      `yaml:"maxConsecutiveFailures"`
	TargetNavigations            int      `yaml:"targetNavigations"`
	MaxElementsToShowRecommender int      `yaml:"maxElementsToShowRecommender"`
	RecentInteractionHistorySize int      `yaml:"recentInteractionHistorySize"`
	MaxElements                  int      `yaml:"maxElements"`
	IgnoredTags                  []string `yaml:"ignoredTags"`
	IncludeInvisible             bool     `yaml:"includeInvisible"`
	StayOnDomain                 bool     `yaml:"stayOnDomain"`
	StayOnPathPrefix             string   `yaml:"stayOnPathPrefix"`
	ExcludePatterns              []string `yaml:"excludePatterns"`

	Provider ProviderConfig `yaml:"provider"`
	Browser  BrowserConfig  `yaml:"browser"`
	Log      logging.Config `yaml:"log"`
}

// ProviderConfig selects and tunes the remote recommender. Credentials are
// never read from the file; they come from the environment.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"baseURL"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
}

// BrowserConfig holds browser configuration
type BrowserConfig struct {
	Headless      bool          `yaml:"headless"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	ProfileDir    string        `yaml:"profileDir"`
	Stealth       bool          `yaml:"stealth"`
	ActionTimeout time.Duration `yaml:"actionTimeout"`
	SettleTimeout time.Duration `yaml:"settleTimeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxClicks:                    30,
		MaxConsecutiveFailures:       5,
		TargetNavigations:            10,
		MaxElementsToShowRecommender: 40,
		RecentInteractionHistorySize: 10,
		MaxElements:                  100,
		IgnoredTags:                  []string{"script", "style", "noscript"},
		StayOnDomain:                 true,
		Provider: ProviderConfig{
			Timeout:     20 * time.Second,
			Temperature: 0.2,
			MaxTokens:   512,
		},
		Browser: BrowserConfig{
			Headless:      true,
			Width:         1280,
			Height:        720,
			ActionTimeout: 10 * time.Second,
			SettleTimeout: 5 * time.Second,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads a YAML file on top of Default. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if c.MaxClicks <= 0 {
		errs = append(errs, fmt.Errorf("maxClicks must be positive, got %d", c.MaxClicks))
	}
	if c.MaxConsecutiveFailures <= 0 {
		errs = append(errs, fmt.Errorf("maxConsecutiveFailures must be positive, got %d", c.MaxConsecutiveFailures))
	}
	if c.TargetNavigations < 0 {
		errs = append(errs, fmt.Errorf("targetNavigations must not be negative, got %d", c.TargetNavigations))
	}
	if c.MaxElementsToShowRecommender <= 0 {
		errs = append(errs, fmt.Errorf("maxElementsToShowRecommender must be positive, got %d", c.MaxElementsToShowRecommender))
	}
	if c.RecentInteractionHistorySize < 0 {
		errs = append(errs, fmt.Errorf("recentInteractionHistorySize must not be negative, got %d", c.RecentInteractionHistorySize))
	}
	if c.MaxElements <= 0 {
		errs = append(errs, fmt.Errorf("maxElements must be positive, got %d", c.MaxElements))
	}
	if c.StayOnPathPrefix != "" && !strings.HasPrefix(c.StayOnPathPrefix, "/") {
		errs = append(errs, fmt.Errorf("stayOnPathPrefix must start with '/', got %q", c.StayOnPathPrefix))
	}
	for _, p := range c.ExcludePatterns {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid exclude pattern '%s': %w", p, err))
		}
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("provider.timeout must be positive, got %s", c.Provider.Timeout))
	}
	if c.Provider.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("provider.maxTokens must be positive, got %d", c.Provider.MaxTokens))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("provider.temperature must be within [0, 2], got %g", c.Provider.Temperature))
	}

	return errors.Join(errs...)
}
