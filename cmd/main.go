package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/aragon/ownership-token-framework/internal/adapters/cache"
	"github.com/aragon/ownership-token-framework/internal/adapters/chat"
	"github.com/aragon/ownership-token-framework/internal/adapters/http/api"
	"github.com/aragon/ownership-token-framework/internal/adapters/http/site"
	"github.com/aragon/ownership-token-framework/internal/adapters/http/swagger"
	"github.com/aragon/ownership-token-framework/internal/adapters/mailinglist"
	"github.com/aragon/ownership-token-framework/internal/adapters/source"
	"github.com/aragon/ownership-token-framework/internal/adapters/workspace"
	service "github.com/aragon/ownership-token-framework/internal/app"
	"github.com/aragon/ownership-token-framework/internal/config"
	"github.com/aragon/ownership-token-framework/internal/domain/dedupe"
	"github.com/aragon/ownership-token-framework/internal/domain/submission"
	"github.com/aragon/ownership-token-framework/pkg/logger"
	"github.com/aragon/ownership-token-framework/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 15 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("dataSource", cfg.DataSource),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}

// newService wires the data source and the submission pipeline into the
// service. The remote source refreshes on a ticker; the bundled copy never
// changes, so it is loaded once.
func newService(cfg *config.Config, log logger.Logger) *service.Service {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	var (
		loader  source.Loader = source.NewEmbedded()
		refresh time.Duration
	)
	if cfg.DataSource == config.SourceRemote {
		loader = source.NewRemote(
			source.WithBaseURL(cfg.RemoteBaseURL),
			source.WithHTTPClient(client),
			source.WithCache(cache.New[[]byte](cache.WithTTL(cfg.CacheTTL))),
			source.WithFallback(source.NewEmbedded()),
			source.WithLogger(log.Named("source")),
		)
		refresh = cfg.RefreshInterval
	}

	return service.New(
		service.WithLoader(loader),
		service.WithPipeline(newPipeline(cfg, client, log)),
		service.WithFrameworkURL(cfg.FrameworkURL),
		service.WithTokenSymbol(cfg.TokenSymbol),
		service.WithRefreshInterval(refresh),
		service.WithFormResetDelay(cfg.FormResetDelay),
		service.WithLogger(log.Named("service")),
	)
}

func newPipeline(cfg *config.Config, client *http.Client, log logger.Logger) *submission.Pipeline {
	list := mailinglist.New(cfg.EmailOctopusAPIKey, cfg.EmailOctopusListID,
		mailinglist.WithBaseURL(cfg.EmailOctopusBaseURL),
		mailinglist.WithHTTPClient(client),
	)
	ws := workspace.New(cfg.NotionAPIToken, cfg.NotionDatabaseID,
		workspace.WithBaseURL(cfg.NotionBaseURL),
		workspace.WithHTTPClient(client),
	)
	if !list.Configured() {
		log.Warn(context.Background(), "newsletter provider is not configured")
	}
	if !ws.Configured() {
		log.Warn(context.Background(), "token request workspace is not configured")
	}

	return submission.New(list, ws,
		submission.WithNotifier(chat.New(cfg.SlackWebhookURL, chat.WithHTTPClient(client))),
		submission.WithGuard(dedupe.NewInMemoryGuard(
			dedupe.WithMaxSize(int(cfg.MaxInflight)),
			dedupe.WithTTL(cfg.InflightTTL),
		)),
		submission.WithLogger(log.Named("submission")),
	)
}

// newMux registers every route. The site owns "GET /" and so only serves
// what no API pattern matches.
func newMux(ctx context.Context, svc *service.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithLogger(log.Named("api"))).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes the runtime gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateMemoryUsage(m.Alloc)
	metrics.UpdateGoroutineCount(runtime.NumGoroutine())
}
