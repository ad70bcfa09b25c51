package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssd/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.toml", `
socket = "/tmp/rssd-test.sock"

[feeds]
list = ["https://example.org/feed.xml"]
queue = 10
refresh_interval = 60

[database]
path = "test.db"

[notify]
webhook = "https://hooks.example.org/abc"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/rssd-test.sock", cfg.Socket)
	assert.Equal(t, []string{"https://example.org/feed.xml"}, cfg.Feeds.List)
	assert.Equal(t, 10, cfg.Feeds.Queue)
	assert.Equal(t, time.Minute, cfg.Feeds.Refresh())
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, "https://hooks.example.org/abc", cfg.Notify.Webhook)

	// Defaults for everything the file left out
	assert.Equal(t, time.Hour, cfg.Feeds.Fail())
	assert.Equal(t, 5, cfg.Notify.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Notify.Backoff())
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, 0, cfg.Retention.MaxAgeDays)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfigBadToml(t *testing.T) {
	path := writeFile(t, "config.toml", `socket = [broken`)
	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestFeedsURLsMergesFile(t *testing.T) {
	feedFile := writeFile(t, "feeds.txt", `
https://one.example.org/rss

# a comment
https://two.example.org/atom
`)

	feeds := config.FeedsConfig{
		List:     []string{"https://zero.example.org/feed"},
		FilePath: feedFile,
	}

	assert.Equal(t, []string{
		"https://zero.example.org/feed",
		"https://one.example.org/rss",
		"https://two.example.org/atom",
	}, feeds.URLs())
}

func TestFeedsURLsMissingFileIgnored(t *testing.T) {
	feeds := config.FeedsConfig{
		List:     []string{"https://zero.example.org/feed"},
		FilePath: "/nonexistent/feeds.txt",
	}

	assert.Equal(t, []string{"https://zero.example.org/feed"}, feeds.URLs())
}
