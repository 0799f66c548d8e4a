package submission

import (
	"context"
	"net/http"
	"strings"

	"github.com/aragon/ownership-token-framework/pkg/logger"
)

// SignupResult is the outcome of a successful newsletter signup.
type SignupResult struct {
	OK                bool `json:"ok"`
	AlreadySubscribed bool `json:"alreadySubscribed,omitempty"`
}

// Provider error codes, grouped by how they are handled.
var (
	alreadySubscribedCodes = codeSet(
		"MEMBER_EXISTS_WITH_EMAIL_ADDRESS",
		"MEMBER_EXISTS",
		"ALREADY_SUBSCRIBED",
		"MEMBER_ALREADY_SUBSCRIBED",
	)
	validationCodes = codeSet(
		"INVALID_PARAMETERS",
		"INVALID_EMAIL",
		"INVALID_EMAIL_ADDRESS",
	)
	configurationCodes = codeSet(
		"API_KEY_INVALID",
		"INVALID_API_KEY",
		"UNAUTHORISED",
		"UNAUTHORIZED",
		"FORBIDDEN",
		"NOT_FOUND",
	)
	rateLimitCodes = codeSet(
		"RATE_LIMITED",
		"TOO_MANY_REQUESTS",
	)
)

func codeSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func hasCode(set map[string]struct{}, code string) bool {
	_, ok := set[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Subscribe adds email to the newsletter. Re-subscribing an address that is
// already on the list succeeds with AlreadySubscribed set. No retries are made.
func (p *Pipeline) Subscribe(ctx context.Context, email string) (SignupResult, error) {
	const op = "newsletter.subscribe"
	start := p.clock.Now()

	res, err := p.subscribe(ctx, op, strings.TrimSpace(email))
	p.record(FormNewsletter, start, err)
	return res, err
}

func (p *Pipeline) subscribe(ctx context.Context, op, email string) (SignupResult, error) {
	if email == "" {
		return SignupResult{}, newError(op, KindValidation, MsgEmailRequired, nil)
	}

	if p.list == nil || !p.list.Configured() {
		p.logger.Error(ctx, "Server not configured", logger.String("form", FormNewsletter))
		return SignupResult{}, newError(op, KindConfiguration, MsgConfiguration, ErrConfiguration)
	}

	release, err := p.acquire(ctx, op, FormNewsletter, email)
	if err != nil {
		return SignupResult{}, err
	}
	defer release()

	reply, err := p.list.Subscribe(ctx, email)
	if err != nil {
		p.logger.Error(ctx, "newsletter provider unreachable", logger.Error(err))
		return SignupResult{}, newError(op, KindUnavailable, MsgSignupFailed, err)
	}

	res, cerr := classifySignup(op, reply)
	if cerr != nil {
		p.logger.Error(ctx, "newsletter signup failed",
			logger.Int("status", reply.StatusCode),
			logger.String("code", reply.Code),
			logger.String("message", reply.Message),
			logger.String("body", reply.Body),
			logger.String("kind", string(KindOf(cerr))),
		)
		return SignupResult{}, cerr
	}
	if res.AlreadySubscribed {
		p.logger.Info(ctx, "newsletter address already subscribed")
	}
	return res, nil
}

// classifySignup maps a provider reply onto the signup outcome. The checks
// run in priority order; the first that applies wins.
func classifySignup(op string, reply ProviderReply) (SignupResult, error) {
	status := reply.StatusCode
	switch {
	case reply.OK():
		return SignupResult{OK: true}, nil

	case hasCode(alreadySubscribedCodes, reply.Code) || status == http.StatusConflict:
		return SignupResult{OK: true, AlreadySubscribed: true}, nil

	case hasCode(validationCodes, reply.Code) ||
		status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		msg := strings.TrimSpace(reply.Message)
		if msg == "" {
			msg = MsgInvalidEmail
		}
		return SignupResult{}, newError(op, KindValidation, msg, providerError(reply))

	case hasCode(configurationCodes, reply.Code) ||
		status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound:
		return SignupResult{}, newError(op, KindConfiguration, MsgConfiguration, providerError(reply))

	case hasCode(rateLimitCodes, reply.Code) || status == http.StatusTooManyRequests:
		return SignupResult{}, newError(op, KindRateLimited, MsgRateLimited, providerError(reply))

	default:
		return SignupResult{}, newError(op, KindUnavailable, MsgSignupFailed, providerError(reply))
	}
}
