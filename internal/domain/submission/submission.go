// Package submission forwards the newsletter and token request forms to
// their external services.
//
// Every provider failure is translated into a small closed set of user-safe
// messages. Raw provider bodies only reach the logs and, for token requests,
// the fallback notification channel so a failed request can be recovered by
// hand.
package submission

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/aragon/ownership-token-framework/internal/domain/dedupe"
	"github.com/aragon/ownership-token-framework/pkg/logger"
	"github.com/aragon/ownership-token-framework/pkg/metrics"
)

// Form names used for metrics, logs and in-flight keys.
const (
	FormNewsletter = "newsletter"
	FormRequest    = "request"
)

// ProviderReply is the decoded outcome of a provider call that reached the
// provider. Code and Message come from the provider's error body when present.
type ProviderReply struct {
	StatusCode int
	Status     string
	Code       string
	Message    string
	Body       string
}

// OK reports a 2xx status.
func (r ProviderReply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusText returns the provider's status text, falling back to the
// standard text for the code.
func (r ProviderReply) StatusText() string {
	text := strings.TrimSpace(r.Status)
	// net/http formats Status as "404 Not Found"
	if code, rest, ok := strings.Cut(text, " "); ok && code == strconv.Itoa(r.StatusCode) {
		text = rest
	}
	if text == "" {
		text = http.StatusText(r.StatusCode)
	}
	return text
}

// MailingList subscribes addresses to the newsletter list.
type MailingList interface {
	// Configured reports whether the credentials needed to call out are set.
	Configured() bool
	// Subscribe adds email to the list. A non-nil error means the provider
	// could not be reached or its reply could not be read.
	Subscribe(ctx context.Context, email string) (ProviderReply, error)
}

// Workspace stores token requests in the workspace database.
type Workspace interface {
	Configured() bool
	CreateRequest(ctx context.Context, req Request, submittedAt time.Time) (ProviderReply, error)
}

// Failure is what the fallback channel receives for a lost request.
type Failure struct {
	SubmissionID string
	Detail       string
	Request      Request
}

// FallbackNotifier mirrors failed requests to an out-of-band channel.
type FallbackNotifier interface {
	Configured() bool
	Notify(ctx context.Context, f Failure) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotifier sets the fallback channel for failed token requests.
func WithNotifier(n FallbackNotifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithGuard sets the in-flight guard.
func WithGuard(g dedupe.Guard) Option {
	return func(p *Pipeline) {
		if g != nil {
			p.guard = g
		}
	}
}

// WithClock sets the clock used for timestamps and durations.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithIDGenerator overrides how submission ids are produced.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// Pipeline runs both form flows. It is safe for concurrent use.
type Pipeline struct {
	list      MailingList
	workspace Workspace
	notifier  FallbackNotifier
	guard     dedupe.Guard
	clock     clockwork.Clock
	logger    logger.Logger
	newID     func() string
}

// New creates a pipeline over the two providers.
func New(list MailingList, workspace Workspace, opts ...Option) *Pipeline {
	p := &Pipeline{
		list:      list,
		workspace: workspace,
		clock:     clockwork.NewRealClock(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.guard == nil {
		p.guard = dedupe.NewInMemoryGuard(dedupe.WithClock(p.clock))
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("submission")
	}
	return p
}

// acquire takes the in-flight key for a form and email.
func (p *Pipeline) acquire(ctx context.Context, op, form, email string) (release func(), err error) {
	key := form + ":" + strings.ToLower(email)
	if err := p.guard.Acquire(ctx, key); err != nil {
		metrics.RecordInflightRejection(form)
		switch {
		case errors.Is(err, dedupe.ErrInFlight):
			return nil, newError(op, KindInProgress, MsgInProgress, err)
		case errors.Is(err, dedupe.ErrFull):
			return nil, newError(op, KindRateLimited, MsgRateLimited, err)
		default:
			return nil, newError(op, KindUnavailable, MsgUnexpected, err)
		}
	}
	return func() { p.guard.Release(context.WithoutCancel(ctx), key) }, nil
}

func (p *Pipeline) record(form string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	metrics.RecordSubmission(form, outcome, float64(p.clock.Since(start).Microseconds())/1000)
}
