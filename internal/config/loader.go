package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "OTF_"
	envConfig  = "OTF_CONFIG"
	keyDivider = "."
)

// secretEnv maps the provider variables used by existing deployments,
// which carry no prefix, to config keys.
var secretEnv = map[string]string{
	"EMAIL_OCTOPUS_API_KEY": "email_octopus_api_key",
	"EMAIL_OCTOPUS_LIST_ID": "email_octopus_list_id",
	"NOTION_API_TOKEN":      "notion_api_token",
	"NOTION_DATABASE_ID":    "notion_database_id",
	"SLACK_WEBHOOK_URL":     "slack_webhook_url",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if OTF_CONFIG is set
//  3. env (prefix OTF_)
//  4. unprefixed provider secrets
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(keyDivider)

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// OTF_CACHE_TTL -> cache_ttl. Keys stay flat to match the koanf tags.
	prefixed := env.Provider(envPrefix, keyDivider, func(s string) string {
		if s == envConfig {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	secrets := env.Provider("", keyDivider, func(s string) string {
		return secretEnv[s]
	})
	if err := k.Load(secrets, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg.DataSource = strings.ToLower(strings.TrimSpace(cfg.DataSource))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
