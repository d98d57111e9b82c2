package config

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/akeil/podfetch/pkg/db"
	"github.com/akeil/podfetch/pkg/hooks"
	"github.com/akeil/podfetch/pkg/model"
)

// Subscription is a seed definition from the config file.
// Entries listed here are upserted into the store on startup, so a
// config-managed setup works without ever calling "podfetch add".
type Subscription struct {
	Name string `toml:"-"`
	// URL is the full URL of the feed
	URL string `toml:"url"`
	// Title overrides the feed supplied title
	Title string `toml:"title"`
	// MaxEpisodes is the number of episodes to keep, 0 means unlimited
	MaxEpisodes int `toml:"max_episodes"`
	// FilenameTemplate overrides the application wide template
	FilenameTemplate string `toml:"filename_template"`
	// ContentDir overrides the default per-subscription directory
	ContentDir string `toml:"content_dir"`
	// Disabled excludes the subscription from updates
	Disabled bool `toml:"disabled"`
}

type Downloads struct {
	// Concurrency is the number of parallel downloads within one subscription.
	// Default is 1 (sequential).
	Concurrency int `toml:"concurrency"`
	// Parallel is the number of subscriptions updated at once
	Parallel int `toml:"parallel"`
}

type Daemon struct {
	// Schedule is a cron expression for periodic updates.
	// Format is https://pkg.go.dev/github.com/robfig/cron/v3
	Schedule string `toml:"schedule"`
	// UpdatePeriod is an alternative to Schedule.
	// Format is "300ms", "1.5h" or "2h45m".
	UpdatePeriod Duration `toml:"update_period"`
}

type Config struct {
	// DataDir is the base directory for downloaded episodes.
	// Each subscription gets a subdirectory named after it unless it
	// configures an explicit content_dir.
	DataDir string `toml:"data_dir"`
	// FilenameTemplate is the application wide episode filename template
	FilenameTemplate string `toml:"filename_template"`
	// Database configuration
	Database db.Config `toml:"database"`
	// Downloads configures update parallelism
	Downloads Downloads `toml:"downloads"`
	// Daemon configures the update schedule for daemon mode
	Daemon Daemon `toml:"daemon"`
	// Hooks maps an event name to the commands to run for it
	Hooks map[string][]*hooks.ExecHook `toml:"hooks"`
	// Subscriptions seeded from the config file, keyed by name
	Subscriptions map[string]*Subscription `toml:"subscriptions"`
}

// LoadConfig loads TOML configuration from a file path
func LoadConfig(path string) (*Config, error) {
	config := Config{}
	_, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config file")
	}

	for name, sub := range config.Subscriptions {
		sub.Name = name
	}

	config.applyDefaults(path)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	var result *multierror.Error

	if c.DataDir == "" {
		result = multierror.Append(result, errors.New("data directory is required"))
	}

	for name, sub := range c.Subscriptions {
		if sub.URL == "" {
			result = multierror.Append(result, errors.Errorf("URL is required for %q", name))
		}
	}

	for event := range c.Hooks {
		if !hooks.ValidEvent(event) {
			result = multierror.Append(result, errors.Errorf("unknown hook event %q", event))
		}
	}

	return result.ErrorOrNil()
}

func (c *Config) applyDefaults(configPath string) {
	if c.Database.Dir == "" {
		c.Database.Dir = filepath.Join(filepath.Dir(configPath), "db")
	}

	if c.FilenameTemplate == "" {
		c.FilenameTemplate = model.DefaultFilenameTemplate
	}

	if c.Downloads.Concurrency == 0 {
		c.Downloads.Concurrency = model.DefaultConcurrency
	}

	if c.Downloads.Parallel == 0 {
		c.Downloads.Parallel = model.DefaultParallelUpdates
	}

	if c.Daemon.UpdatePeriod.Duration == 0 {
		c.Daemon.UpdatePeriod = Duration{model.DefaultUpdatePeriod}
	}

	if c.Daemon.Schedule == "" {
		c.Daemon.Schedule = fmt.Sprintf("@every %s", c.Daemon.UpdatePeriod.String())
	}
}
