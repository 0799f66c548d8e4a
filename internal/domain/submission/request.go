package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aragon/ownership-token-framework/pkg/logger"
	"github.com/aragon/ownership-token-framework/pkg/metrics"
)

// Request is a token or feedback request from the submission form.
type Request struct {
	Name           string `json:"name"`
	Project        string `json:"project"`
	Request        string `json:"request"`
	AdditionalInfo string `json:"additionalInfo"`
	Email          string `json:"submitterEmail"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (r Request) Trimmed() Request {
	return Request{
		Name:           strings.TrimSpace(r.Name),
		Project:        strings.TrimSpace(r.Project),
		Request:        strings.TrimSpace(r.Request),
		AdditionalInfo: strings.TrimSpace(r.AdditionalInfo),
		Email:          strings.TrimSpace(r.Email),
	}
}

// MissingFields lists the wire names of empty fields in form order.
func (r Request) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", r.Name},
		{"project", r.Project},
		{"request", r.Request},
		{"additionalInfo", r.AdditionalInfo},
		{"submitterEmail", r.Email},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// SubmitResult is the outcome of a stored request.
type SubmitResult struct {
	OK bool `json:"ok"`
}

// ProviderError carries a non-2xx provider reply as an error cause.
type ProviderError struct {
	Reply ProviderReply
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider replied %d %s (code %s)", e.Reply.StatusCode, e.Reply.StatusText(), orDefault(e.Reply.Code, "unknown"))
}

func providerError(reply ProviderReply) error {
	return &ProviderError{Reply: reply}
}

// FailureDetail formats a provider reply for the fallback channel.
func FailureDetail(reply ProviderReply) string {
	return strings.Join([]string{
		fmt.Sprintf("*Status:* %d %s", reply.StatusCode, reply.StatusText()),
		"*Code:* " + orDefault(reply.Code, "unknown"),
		"*Message:* " + orDefault(reply.Message, "No message provided"),
	}, "\n")
}

func transportDetail(err error) string {
	return strings.Join([]string{
		"*Status:* unreachable",
		"*Code:* unknown",
		"*Message:* " + orDefault(err.Error(), "No message provided"),
	}, "\n")
}

// detailNotConfigured is sent when the workspace credentials are missing.
const detailNotConfigured = "Server not configured"

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// SubmitRequest stores a token request in the workspace database. When the
// request cannot be stored it is logged and mirrored to the fallback channel
// before the error is returned. A fallback failure never replaces the
// primary error.
func (p *Pipeline) SubmitRequest(ctx context.Context, req Request) (SubmitResult, error) {
	const op = "request.submit"
	start := p.clock.Now()

	res, err := p.submitRequest(ctx, op, req.Trimmed())
	p.record(FormRequest, start, err)
	return res, err
}

func (p *Pipeline) submitRequest(ctx context.Context, op string, req Request) (SubmitResult, error) {
	if missing := req.MissingFields(); len(missing) > 0 {
		return SubmitResult{}, newError(op, KindValidation, "Missing fields: "+strings.Join(missing, ", "), nil)
	}

	id := p.newID()

	if p.workspace == nil || !p.workspace.Configured() {
		p.fail(ctx, id, detailNotConfigured, req)
		return SubmitResult{}, newError(op, KindConfiguration, MsgConfiguration, ErrConfiguration)
	}

	release, err := p.acquire(ctx, op, FormRequest, req.Email)
	if err != nil {
		return SubmitResult{}, err
	}
	defer release()

	reply, err := p.workspace.CreateRequest(ctx, req, p.clock.Now().UTC())
	if err != nil {
		p.fail(ctx, id, transportDetail(err), req)
		return SubmitResult{}, newError(op, KindUnavailable, MsgSubmissionFailed, err)
	}
	if !reply.OK() {
		p.fail(ctx, id, FailureDetail(reply), req, logger.String("body", reply.Body))
		return SubmitResult{}, newError(op, KindUnavailable, MsgSubmissionFailed, providerError(reply))
	}

	p.logger.Info(ctx, "token request stored",
		logger.String("submission_id", id),
		logger.String("project", req.Project),
	)
	return SubmitResult{OK: true}, nil
}

// fail logs a lost request with its full payload and forwards it to the
// fallback channel when one is configured.
func (p *Pipeline) fail(ctx context.Context, id, detail string, req Request, extra ...logger.Field) {
	fields := append([]logger.Field{
		logger.String("submission_id", id),
		logger.String("detail", detail),
		logger.String("name", req.Name),
		logger.String("email", req.Email),
		logger.String("project", req.Project),
		logger.String("request", req.Request),
		logger.String("additional_info", req.AdditionalInfo),
	}, extra...)
	p.logger.Error(ctx, "token request submission failed", fields...)

	if p.notifier == nil || !p.notifier.Configured() {
		metrics.RecordFallbackNotification("skipped")
		return
	}

	// The caller may have gone away; the notification still goes out.
	nctx := context.WithoutCancel(ctx)
	if err := p.notifier.Notify(nctx, Failure{SubmissionID: id, Detail: detail, Request: req}); err != nil {
		metrics.RecordFallbackNotification("failed")
		p.logger.Warn(ctx, "fallback notification failed",
			logger.String("submission_id", id),
			logger.Error(err),
		)
		return
	}
	metrics.RecordFallbackNotification("sent")
}

// IsProviderStatus reports whether err wraps a provider reply with status code.
func IsProviderStatus(err error, code int) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Reply.StatusCode == code
}
