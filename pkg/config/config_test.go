package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeil/podfetch/pkg/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/data/podcasts"
filename_template = "{year}/{title}"

[database]
dir = "/data/db"

[downloads]
concurrency = 3
parallel = 8

[daemon]
update_period = "12h"

[subscriptions.gopod]
url = "http://example.com/feed.xml"
max_episodes = 10

[subscriptions.other]
url = "http://example.org/rss"
title = "The Other Show"
content_dir = "/media/other"
disabled = true

[[hooks.episode_downloaded]]
command = ["notify-send", "new episode"]
timeout = 30
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/podcasts", cfg.DataDir)
	assert.Equal(t, "{year}/{title}", cfg.FilenameTemplate)
	assert.Equal(t, "/data/db", cfg.Database.Dir)
	assert.Equal(t, 3, cfg.Downloads.Concurrency)
	assert.Equal(t, 8, cfg.Downloads.Parallel)
	assert.Equal(t, 12*time.Hour, cfg.Daemon.UpdatePeriod.Duration)
	assert.Equal(t, "@every 12h0m0s", cfg.Daemon.Schedule)

	require.Len(t, cfg.Subscriptions, 2)

	gopod := cfg.Subscriptions["gopod"]
	require.NotNil(t, gopod)
	assert.Equal(t, "gopod", gopod.Name)
	assert.Equal(t, "http://example.com/feed.xml", gopod.URL)
	assert.Equal(t, 10, gopod.MaxEpisodes)
	assert.False(t, gopod.Disabled)

	other := cfg.Subscriptions["other"]
	require.NotNil(t, other)
	assert.Equal(t, "The Other Show", other.Title)
	assert.Equal(t, "/media/other", other.ContentDir)
	assert.True(t, other.Disabled)

	require.Len(t, cfg.Hooks["episode_downloaded"], 1)
	hook := cfg.Hooks["episode_downloaded"][0]
	assert.Equal(t, []string{"notify-send", "new episode"}, hook.Command)
	assert.Equal(t, 30, hook.Timeout)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `data_dir = "/data/podcasts"`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Database lives next to the config file unless configured
	assert.Equal(t, filepath.Join(filepath.Dir(path), "db"), cfg.Database.Dir)
	assert.Equal(t, model.DefaultFilenameTemplate, cfg.FilenameTemplate)
	assert.Equal(t, model.DefaultConcurrency, cfg.Downloads.Concurrency)
	assert.Equal(t, model.DefaultParallelUpdates, cfg.Downloads.Parallel)
	assert.Equal(t, model.DefaultUpdatePeriod, cfg.Daemon.UpdatePeriod.Duration)
	assert.Equal(t, "@every 6h0m0s", cfg.Daemon.Schedule)
}

func TestLoadConfig_ExplicitSchedule(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/data/podcasts"

[daemon]
schedule = "0 */4 * * *"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0 */4 * * *", cfg.Daemon.Schedule)
}

func TestLoadConfig_MissingDataDir(t *testing.T) {
	path := writeConfig(t, `filename_template = "{title}"`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory is required")
}

func TestLoadConfig_SubscriptionWithoutURL(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/data/podcasts"

[subscriptions.broken]
title = "No URL"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `URL is required for "broken"`)
}

func TestLoadConfig_UnknownHookEvent(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/data/podcasts"

[[hooks.no_such_event]]
command = ["true"]
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown hook event "no_such_event"`)
}

func TestLoadConfig_InvalidToml(t *testing.T) {
	path := writeConfig(t, `data_dir = [broken`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_NoFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
