package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aragon/ownership-token-framework/internal/adapters/cache"
	"github.com/aragon/ownership-token-framework/pkg/logger"
	"github.com/aragon/ownership-token-framework/pkg/metrics"
)

// DefaultRemoteBaseURL is the raw content root of the published data repository.
const DefaultRemoteBaseURL = "https://raw.githubusercontent.com/aragon/ownership-token-index-framework/develop/data"

const (
	defaultHTTPTimeout = 10 * time.Second
	maxDocumentBytes   = 8 << 20
)

// RemoteOption configures a Remote source.
type RemoteOption func(*Remote)

// WithBaseURL sets the URL documents are fetched under.
func WithBaseURL(url string) RemoteOption {
	return func(r *Remote) {
		if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
			r.baseURL = url
		}
	}
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// WithCache sets the document cache.
func WithCache(c *cache.Cache[[]byte]) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithFallback sets the source used when a document cannot be fetched and
// no cached copy exists.
func WithFallback(f Fetcher) RemoteOption {
	return func(r *Remote) { r.fallback = f }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) RemoteOption {
	return func(r *Remote) { r.logger = l }
}

// Remote fetches documents over HTTP. Fresh copies are served from the
// cache, concurrent fetches of one document share a single download, and a
// failed download falls back to a stale copy and then to the fallback source.
type Remote struct {
	baseURL  string
	client   *http.Client
	cache    *cache.Cache[[]byte]
	group    singleflight.Group
	fallback Fetcher
	logger   logger.Logger
}

// NewRemote creates a remote source.
func NewRemote(opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL: DefaultRemoteBaseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.New[[]byte]()
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("source")
	}
	return r
}

// URL returns where doc is fetched from.
func (r *Remote) URL(doc Document) string {
	return r.baseURL + "/" + doc.File()
}

// Fetch returns the bytes of doc.
func (r *Remote) Fetch(ctx context.Context, doc Document) ([]byte, error) {
	key := string(doc)
	if data, ok := r.cache.Get(key); ok {
		metrics.RecordSourceCache(key, "hit")
		return data, nil
	}
	metrics.RecordSourceCache(key, "miss")

	v, err, _ := r.group.Do(key, func() (any, error) {
		data, err := r.download(ctx, doc)
		if err != nil {
			metrics.RecordSourceFetch(key, "error")
			return nil, err
		}
		metrics.RecordSourceFetch(key, "ok")
		r.cache.Set(key, data)
		return data, nil
	})
	if err == nil {
		return v.([]byte), nil
	}

	if stale, ok := r.cache.Stale(key); ok {
		metrics.RecordSourceCache(key, "stale")
		r.logger.Warn(ctx, "failed to fetch fresh document, using stale cache",
			logger.String("document", key),
			logger.Error(err),
		)
		return stale, nil
	}

	if r.fallback != nil {
		metrics.RecordSourceCache(key, "fallback")
		r.logger.Warn(ctx, "failed to fetch document, using bundled copy",
			logger.String("document", key),
			logger.Error(err),
		)
		return r.fallback.Fetch(ctx, doc)
	}
	return nil, err
}

// Load fetches and decodes every document.
func (r *Remote) Load(ctx context.Context) (Bundle, error) {
	return LoadAll(ctx, r)
}

// Invalidate drops the cached copy of doc.
func (r *Remote) Invalidate(doc Document) {
	r.cache.Invalidate(string(doc))
}

// InvalidateAll drops every cached document.
func (r *Remote) InvalidateAll() {
	r.cache.InvalidateAll()
}

// CacheStats reports the document cache contents.
func (r *Remote) CacheStats() cache.Stats {
	return r.cache.Stats()
}

func (r *Remote) download(ctx context.Context, doc Document) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(doc), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, doc, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, doc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDocumentBytes))
		return nil, fmt.Errorf("%w: %s: %s", ErrFetch, doc, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, doc, err)
	}
	// A document that does not decode is never cached.
	if err := Validate(doc, data); err != nil {
		return nil, err
	}
	return data, nil
}
