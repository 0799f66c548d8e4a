package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/aragon/ownership-token-framework/internal/config"
)

var configEnvVars = []string{
	"OTF_CONFIG",
	"OTF_ADDR",
	"OTF_LOG_LEVEL",
	"OTF_DATA_SOURCE",
	"OTF_CACHE_TTL",
	"OTF_REFRESH_INTERVAL",
	"OTF_TOKEN_SYMBOL",
	"OTF_MAX_INFLIGHT",
	"OTF_NOTION_API_TOKEN",
	"EMAIL_OCTOPUS_API_KEY",
	"EMAIL_OCTOPUS_LIST_ID",
	"NOTION_API_TOKEN",
	"NOTION_DATABASE_ID",
	"SLACK_WEBHOOK_URL",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "otf-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DataSource, convey.ShouldEqual, config.SourceEmbedded)
				convey.So(cfg.CacheTTL, convey.ShouldEqual, 5*time.Minute)
			})
		})

		convey.Convey("When loading config with prefixed environment variables", func() {
			_ = os.Setenv("OTF_ADDR", ":8080")
			_ = os.Setenv("OTF_DATA_SOURCE", "Remote")
			_ = os.Setenv("OTF_CACHE_TTL", "90s")
			_ = os.Setenv("OTF_REFRESH_INTERVAL", "0s")
			_ = os.Setenv("OTF_TOKEN_SYMBOL", "uni")
			_ = os.Setenv("OTF_MAX_INFLIGHT", "50")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DataSource, convey.ShouldEqual, config.SourceRemote)
				convey.So(cfg.CacheTTL, convey.ShouldEqual, 90*time.Second)
				convey.So(cfg.RefreshInterval, convey.ShouldEqual, time.Duration(0))
				convey.So(cfg.TokenSymbol, convey.ShouldEqual, "uni")
				convey.So(cfg.MaxInflight, convey.ShouldEqual, int64(50))
			})
		})

		convey.Convey("When the provider secrets are set without a prefix", func() {
			_ = os.Setenv("EMAIL_OCTOPUS_API_KEY", "eo-key")
			_ = os.Setenv("EMAIL_OCTOPUS_LIST_ID", "eo-list")
			_ = os.Setenv("NOTION_API_TOKEN", "secret_abc")
			_ = os.Setenv("NOTION_DATABASE_ID", "db-1")
			_ = os.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/x")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should be picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.EmailOctopusAPIKey, convey.ShouldEqual, "eo-key")
				convey.So(cfg.EmailOctopusListID, convey.ShouldEqual, "eo-list")
				convey.So(cfg.NotionAPIToken, convey.ShouldEqual, "secret_abc")
				convey.So(cfg.NotionDatabaseID, convey.ShouldEqual, "db-1")
				convey.So(cfg.SlackWebhookURL, convey.ShouldEqual, "https://hooks.slack.com/services/x")
			})
		})

		convey.Convey("When a secret is set both with and without the prefix", func() {
			_ = os.Setenv("OTF_NOTION_API_TOKEN", "prefixed")
			_ = os.Setenv("NOTION_API_TOKEN", "plain")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the unprefixed variable should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.NotionAPIToken, convey.ShouldEqual, "plain")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
log_level: debug
data_source: remote
remote_base_url: "https://example.org/data"
cache_ttl: 1m
form_reset_delay: 3s
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("OTF_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.RemoteBaseURL, convey.ShouldEqual, "https://example.org/data")
				convey.So(cfg.CacheTTL, convey.ShouldEqual, time.Minute)
				convey.So(cfg.FormResetDelay, convey.ShouldEqual, 3*time.Second)
			})

			convey.Convey("And environment variables should override the file", func() {
				_ = os.Setenv("OTF_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.CacheTTL, convey.ShouldEqual, time.Minute)
			})
		})

		convey.Convey("When the YAML file is malformed", func() {
			tmpFile := createTempConfigFile("addr: [unclosed")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("OTF_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then a load error should be returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("OTF_CONFIG", "/nonexistent/otf.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then a load error should be returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the address is cleared", func() {
			_ = os.Setenv("OTF_ADDR", "")

			_, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the data source is unknown", func() {
			_ = os.Setenv("OTF_DATA_SOURCE", "ftp")

			_, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
