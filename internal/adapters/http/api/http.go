// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aragon/ownership-token-framework/internal/domain/enrich"
	"github.com/aragon/ownership-token-framework/internal/domain/faq"
	"github.com/aragon/ownership-token-framework/internal/domain/framework"
	"github.com/aragon/ownership-token-framework/internal/domain/submission"
	"github.com/aragon/ownership-token-framework/internal/domain/token"
	"github.com/aragon/ownership-token-framework/pkg/logger"
)

// ReadDependencies serve the disclosure data.
type ReadDependencies interface {
	Framework(ctx context.Context) ([]framework.LinkedMetric, error)
	Tokens(ctx context.Context, filter, network string) ([]token.Token, error)
	Networks(ctx context.Context) ([]string, error)
	Token(ctx context.Context, id string) (token.Token, error)
	TokenMetrics(ctx context.Context, id string) ([]enrich.Metric, error)
	Search(ctx context.Context, query string) ([]token.Token, error)
	FAQ(ctx context.Context) ([]faq.Topic, error)
	FormResetDelay() time.Duration
}

// SubmitDependencies forward the two forms.
type SubmitDependencies interface {
	Subscribe(ctx context.Context, email string) (submission.SignupResult, error)
	SubmitRequest(ctx context.Context, req submission.Request) (submission.SubmitResult, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ReadDependencies
	SubmitDependencies
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	logger   logger.Logger
	renderer *Renderer
}

// WithLogger sets the logger used for unexpected errors.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRenderer sets the markdown renderer for notes and answers.
func WithRenderer(r *Renderer) ServerOption {
	return func(c *serverConfig) {
		if r != nil {
			c.renderer = r
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	readHandler   *ReadHandler
	submitHandler *SubmitHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	if cfg.renderer == nil {
		cfg.renderer = NewRenderer()
	}
	errs := &errorWriter{logger: cfg.logger}

	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		readHandler:   NewReadHandler(deps, cfg.renderer, errs),
		submitHandler: NewSubmitHandler(deps, errs),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("GET /framework", "framework", s.readHandler.HandleFramework)
	route("GET /tokens", "tokens", s.readHandler.HandleTokens)
	route("GET /tokens/{id}", "token", s.readHandler.HandleToken)
	route("GET /tokens/{id}/metrics", "token_metrics", s.readHandler.HandleTokenMetrics)
	route("GET /search", "search", s.readHandler.HandleSearch)
	route("GET /faq", "faq", s.readHandler.HandleFAQ)
	route("GET /config", "config", s.readHandler.HandleConfig)

	route("POST /newsletter", "newsletter", s.submitHandler.HandleNewsletter)
	route("POST /submit-token", "submit_token", s.submitHandler.HandleSubmitToken)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
