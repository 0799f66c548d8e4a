// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and the environment over the defaults.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"time"
)

// Data sources.
const (
	SourceEmbedded = "embedded"
	SourceRemote   = "remote"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// DataSource selects where documents come from: embedded or remote.
	DataSource string `koanf:"data_source"`

	// RemoteBaseURL is the directory the remote documents live under.
	RemoteBaseURL string `koanf:"remote_base_url"`

	// CacheTTL is how long a fetched remote document stays fresh.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// RefreshInterval rebuilds the snapshot periodically. Zero disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// TokenSymbol lists only tokens with this symbol when any match.
	TokenSymbol string `koanf:"token_symbol"`

	// FrameworkURL is the framework document metric links point into.
	FrameworkURL string `koanf:"framework_url"`

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// FormResetDelay is how long a finished form shows its outcome.
	FormResetDelay time.Duration `koanf:"form_reset_delay"`

	// MaxInflight caps concurrently tracked submissions.
	MaxInflight int64 `koanf:"max_inflight"`

	// InflightTTL expires a tracked submission that was never released.
	InflightTTL time.Duration `koanf:"inflight_ttl"`

	// Provider endpoints.
	EmailOctopusBaseURL string `koanf:"email_octopus_base_url"`
	NotionBaseURL       string `koanf:"notion_base_url"`

	// Provider secrets. Missing secrets only fail the affected form.
	EmailOctopusAPIKey string `koanf:"email_octopus_api_key"`
	EmailOctopusListID string `koanf:"email_octopus_list_id"`
	NotionAPIToken     string `koanf:"notion_api_token"`
	NotionDatabaseID   string `koanf:"notion_database_id"`
	SlackWebhookURL    string `koanf:"slack_webhook_url"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		ShutdownTimeout:     10 * time.Second,
		DataSource:          SourceEmbedded,
		RemoteBaseURL:       "https://raw.githubusercontent.com/aragon/ownership-token-index-framework/develop/data",
		CacheTTL:            5 * time.Minute,
		RefreshInterval:     5 * time.Minute,
		FrameworkURL:        "https://github.com/aragon/ownership-token-index-framework/blob/develop/README.md",
		HTTPTimeout:         10 * time.Second,
		FormResetDelay:      10 * time.Second,
		MaxInflight:         10_000,
		InflightTTL:         2 * time.Minute,
		EmailOctopusBaseURL: "https://emailoctopus.com/api/1.6",
		NotionBaseURL:       "https://api.notion.com",
	}
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataSource != SourceEmbedded && c.DataSource != SourceRemote:
		return fmt.Errorf("%w: data_source must be %q or %q, got %q", ErrInvalidConfig, SourceEmbedded, SourceRemote, c.DataSource)
	case c.DataSource == SourceRemote && c.RemoteBaseURL == "":
		return fmt.Errorf("%w: remote_base_url is required for the remote source", ErrInvalidConfig)
	case c.CacheTTL <= 0:
		return fmt.Errorf("%w: cache_ttl must be positive", ErrInvalidConfig)
	case c.RefreshInterval < 0:
		return fmt.Errorf("%w: refresh_interval must not be negative", ErrInvalidConfig)
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalidConfig)
	case c.FormResetDelay <= 0:
		return fmt.Errorf("%w: form_reset_delay must be positive", ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	case c.MaxInflight <= 0:
		return fmt.Errorf("%w: max_inflight must be positive", ErrInvalidConfig)
	case c.InflightTTL <= 0:
		return fmt.Errorf("%w: inflight_ttl must be positive", ErrInvalidConfig)
	}
	return nil
}
