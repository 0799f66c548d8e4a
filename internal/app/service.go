// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aragon/ownership-token-framework/internal/adapters/cache"
	"github.com/aragon/ownership-token-framework/internal/adapters/source"
	"github.com/aragon/ownership-token-framework/internal/domain/assessment"
	"github.com/aragon/ownership-token-framework/internal/domain/enrich"
	"github.com/aragon/ownership-token-framework/internal/domain/faq"
	"github.com/aragon/ownership-token-framework/internal/domain/framework"
	"github.com/aragon/ownership-token-framework/internal/domain/search"
	"github.com/aragon/ownership-token-framework/internal/domain/submission"
	"github.com/aragon/ownership-token-framework/internal/domain/token"
	"github.com/aragon/ownership-token-framework/pkg/logger"
	"github.com/aragon/ownership-token-framework/pkg/metrics"
)

// Snapshot is one immutable, consistent view of every data document.
type Snapshot struct {
	Catalog   *framework.Catalog
	Store     *assessment.Store
	Directory *token.Directory
	Resolver  *enrich.Resolver
	FAQ       []faq.Topic
	LoadedAt  time.Time
}

// Service implements the API dependencies for the disclosure index.
type Service struct {
	mu sync.Mutex

	// Core components
	loader   source.Loader
	pipeline *submission.Pipeline
	snapshot atomic.Pointer[Snapshot]

	// Configuration
	frameworkURL    string
	tokenSymbol     string
	refreshInterval time.Duration
	formResetDelay  time.Duration
	clock           clockwork.Clock

	// State
	started bool
	stopCh  chan struct{}
	done    chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLoader sets where snapshots are loaded from.
func WithLoader(l source.Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithPipeline sets the submission pipeline behind both forms.
func WithPipeline(p *submission.Pipeline) Option {
	return func(s *Service) { s.pipeline = p }
}

// WithFrameworkURL sets the framework document metric links point into.
func WithFrameworkURL(url string) Option {
	return func(s *Service) { s.frameworkURL = strings.TrimSpace(url) }
}

// WithTokenSymbol restricts the listed tokens to one symbol when any match.
func WithTokenSymbol(symbol string) Option {
	return func(s *Service) { s.tokenSymbol = symbol }
}

// WithRefreshInterval enables periodic reloads. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithFormResetDelay sets how long a finished form keeps its outcome.
func WithFormResetDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.formResetDelay = d
		}
	}
}

// WithClock sets the clock driving refreshes and form timers.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service. Without a loader the embedded documents are used.
func New(opts ...Option) *Service {
	s := &Service{
		loader:         source.NewEmbedded(),
		frameworkURL:   framework.DefaultBaseURL,
		formResetDelay: submission.DefaultResetDelay,
		clock:          clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the first snapshot and, when configured, starts the refresher.
// A failed first load is returned and the service stays stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting disclosure service...")

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	if s.refreshInterval > 0 {
		go s.refresher(ctx)
	} else {
		close(s.done)
	}

	s.started = true
	s.logger.Info(ctx, "disclosure service started",
		logger.Duration("refreshInterval", s.refreshInterval),
		logger.String("tokenSymbol", s.tokenSymbol),
	)
	return nil
}

// Stop halts the refresher. The last snapshot stays readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping disclosure service...")
	close(s.stopCh)
	<-s.done

	s.started = false
	s.logger.Info(context.Background(), "disclosure service stopped")
}

func (s *Service) refresher(ctx context.Context) {
	defer close(s.done)

	ticker := s.clock.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			// Refresh already logs and counts failures; the old snapshot stays.
			_ = s.Refresh(ctx)
		}
	}
}

// Refresh loads every document and swaps in a new snapshot. On failure the
// previous snapshot keeps serving.
func (s *Service) Refresh(ctx context.Context) error {
	if s.loader == nil {
		return ErrNoLoader
	}
	log := s.log()
	start := s.clock.Now()

	bundle, err := s.loader.Load(ctx)
	if err != nil {
		metrics.RecordRefreshError()
		log.Warn(ctx, "snapshot refresh failed, keeping previous snapshot",
			logger.Error(err),
			logger.Bool("hasSnapshot", s.snapshot.Load() != nil),
		)
		return err
	}

	snap := s.build(bundle)
	s.snapshot.Store(snap)

	metrics.RecordRefresh(float64(s.clock.Since(start).Microseconds())/1000, snap.LoadedAt.Unix())
	metrics.UpdateCatalogSize("tokens", snap.Directory.Len())
	metrics.UpdateCatalogSize("metrics", snap.Catalog.Len())
	metrics.UpdateCatalogSize("assessed_tokens", snap.Store.Len())
	metrics.UpdateCatalogSize("faq_topics", len(snap.FAQ))

	log.Debug(ctx, "snapshot refreshed",
		logger.Int("tokens", snap.Directory.Len()),
		logger.Int("metrics", snap.Catalog.Len()),
		logger.Int("assessedTokens", snap.Store.Len()),
	)
	return nil
}

func (s *Service) build(b source.Bundle) *Snapshot {
	catalog := framework.New(b.Framework, framework.WithBaseURL(s.frameworkURL))
	store := assessment.NewStore(b.Metrics)
	return &Snapshot{
		Catalog:   catalog,
		Store:     store,
		Directory: token.NewDirectory(b.Tokens, token.WithSymbolFilter(s.tokenSymbol)),
		Resolver:  enrich.New(catalog, store),
		FAQ:       faq.Clean(b.FAQ),
		LoadedAt:  s.clock.Now().UTC(),
	}
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}

// Current returns the serving snapshot.
func (s *Service) Current() (*Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// Framework returns the catalog metrics with their document links.
func (s *Service) Framework(_ context.Context) ([]framework.LinkedMetric, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return snap.Catalog.Linked(), nil
}

// Tokens lists tokens, optionally narrowed by a text filter and a network.
func (s *Service) Tokens(_ context.Context, filter, network string) ([]token.Token, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return snap.Directory.Filter(filter, network), nil
}

// Networks lists the networks of the listed tokens.
func (s *Service) Networks(_ context.Context) ([]string, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return snap.Directory.Networks(), nil
}

// Token looks a token up by id, ignoring case.
func (s *Service) Token(_ context.Context, id string) (token.Token, error) {
	snap, err := s.Current()
	if err != nil {
		return token.Token{}, err
	}
	return snap.Directory.Get(id)
}

// TokenMetrics resolves a token's assessment. Unknown tokens resolve to an empty list.
func (s *Service) TokenMetrics(_ context.Context, id string) ([]enrich.Metric, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	out := snap.Resolver.Resolve(id)
	metrics.RecordResolution(len(out) > 0)
	return out, nil
}

// Search runs the fuzzy token search over the listed tokens.
func (s *Service) Search(_ context.Context, query string) ([]token.Token, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	out := search.Search(query, snap.Directory.List())
	if strings.TrimSpace(query) != "" {
		metrics.RecordSearch(len(out))
	}
	return out, nil
}

// FAQ returns the question topics in authoring order.
func (s *Service) FAQ(_ context.Context) ([]faq.Topic, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return snap.FAQ, nil
}

// Subscribe signs an address up for the newsletter.
func (s *Service) Subscribe(ctx context.Context, email string) (submission.SignupResult, error) {
	if s.pipeline == nil {
		return submission.SignupResult{}, ErrNoPipeline
	}
	return s.pipeline.Subscribe(ctx, email)
}

// SubmitRequest forwards a token request.
func (s *Service) SubmitRequest(ctx context.Context, req submission.Request) (submission.SubmitResult, error) {
	if s.pipeline == nil {
		return submission.SubmitResult{}, ErrNoPipeline
	}
	return s.pipeline.SubmitRequest(ctx, req)
}

// FormResetDelay is how long a finished form shows its outcome.
func (s *Service) FormResetDelay() time.Duration {
	return s.formResetDelay
}

// NewForm creates a form state machine using the service clock and delay.
func (s *Service) NewForm(opts ...submission.FormOption) *submission.FormState {
	base := []submission.FormOption{
		submission.WithResetDelay(s.formResetDelay),
		submission.WithFormClock(s.clock),
	}
	return submission.NewFormState(append(base, opts...)...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	stats := map[string]any{
		"started":         started,
		"refreshInterval": s.refreshInterval.String(),
		"tokenSymbol":     s.tokenSymbol,
	}

	if snap := s.snapshot.Load(); snap != nil {
		stats["tokens"] = snap.Directory.Len()
		stats["metrics"] = snap.Catalog.Len()
		stats["assessedTokens"] = snap.Store.Len()
		stats["faqTopics"] = len(snap.FAQ)
		stats["loadedAt"] = snap.LoadedAt.Format(time.RFC3339)
	}

	if r, ok := s.loader.(interface{ CacheStats() cache.Stats }); ok {
		stats["cache"] = r.CacheStats()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateMemoryUsage(mem.HeapAlloc)
	metrics.UpdateGoroutineCount(runtime.NumGoroutine())
	stats["heapBytes"] = mem.HeapAlloc
	stats["goroutines"] = runtime.NumGoroutine()

	return stats
}
