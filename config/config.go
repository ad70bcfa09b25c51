package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FeedsConfig configures the watched feed set and polling behavior.
type FeedsConfig struct {
	List            []string `toml:"list"`
	FilePath        string   `toml:"file_path,omitempty"`
	Queue           int      `toml:"queue"`
	RefreshInterval int      `toml:"refresh_interval"`
	FailInterval    int      `toml:"fail_interval,omitempty"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// NotifyConfig configures the outbound notification sink.
type NotifyConfig struct {
	Webhook        string `toml:"webhook,omitempty"`
	MaxAttempts    int    `toml:"max_attempts,omitempty"`
	InitialBackoff int    `toml:"initial_backoff,omitempty"`
}

// ServerConfig configures the optional status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen,omitempty"`
}

// RetentionConfig controls pruning of old seen items. A zero max age
// keeps the dedup history forever.
type RetentionConfig struct {
	MaxAgeDays int `toml:"max_age_days,omitempty"`
}

// Config represents the top-level configuration. It is read once at
// startup and never re-read at runtime.
type Config struct {
	Socket    string          `toml:"socket"`
	Feeds     FeedsConfig     `toml:"feeds"`
	Database  DatabaseConfig  `toml:"database"`
	Notify    NotifyConfig    `toml:"notify"`
	Server    ServerConfig    `toml:"server"`
	Retention RetentionConfig `toml:"retention"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Socket == "" {
		c.Socket = "/tmp/rssd.sock"
	}
	if c.Database.Path == "" {
		c.Database.Path = "rssd.db"
	}
	if c.Feeds.Queue <= 0 {
		c.Feeds.Queue = 100
	}
	if c.Feeds.RefreshInterval <= 0 {
		c.Feeds.RefreshInterval = 300
	}
	if c.Feeds.FailInterval <= 0 {
		c.Feeds.FailInterval = 3600
	}
	if c.Notify.MaxAttempts <= 0 {
		c.Notify.MaxAttempts = 5
	}
	if c.Notify.InitialBackoff <= 0 {
		c.Notify.InitialBackoff = 1
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8090"
	}
}

// URLs returns the configured feed list merged with the optional feed
// file. Blank lines and comments in the file are skipped.
func (f *FeedsConfig) URLs() []string {
	urls := append([]string(nil), f.List...)
	if f.FilePath == "" {
		return urls
	}

	file, err := os.Open(f.FilePath)
	if err != nil {
		return urls
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	return urls
}

func (f *FeedsConfig) Refresh() time.Duration {
	return time.Duration(f.RefreshInterval) * time.Second
}

func (f *FeedsConfig) Fail() time.Duration {
	return time.Duration(f.FailInterval) * time.Second
}

func (n *NotifyConfig) Backoff() time.Duration {
	return time.Duration(n.InitialBackoff) * time.Second
}
