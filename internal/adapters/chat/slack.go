// Package chat posts failed token requests to a Slack incoming webhook so
// they can be recovered by hand.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aragon/ownership-token-framework/internal/domain/submission"
)

const headline = ":warning: *OTI Submission Failed*"

// ErrWebhook is returned when the webhook could not be reached or refused the message.
var ErrWebhook = errors.New("chat webhook failed")

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(n *Notifier) {
		if h != nil {
			n.http = h
		}
	}
}

// Notifier posts to one webhook URL.
type Notifier struct {
	webhookURL string
	http       *http.Client
}

// New creates a notifier. An empty URL yields a notifier that is not configured.
func New(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL: strings.TrimSpace(webhookURL),
		http:       &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Configured reports whether a webhook URL is set.
func (n *Notifier) Configured() bool {
	return n.webhookURL != ""
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type     string       `json:"type"`
	Text     *textObject  `json:"text,omitempty"`
	Fields   []textObject `json:"fields,omitempty"`
	Elements []textObject `json:"elements,omitempty"`
}

// Message is the webhook payload.
type Message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

func mrkdwn(s string) textObject {
	return textObject{Type: "mrkdwn", Text: s}
}

// BuildMessage lays out a failure: the error detail, then the form payload.
func BuildMessage(f submission.Failure) Message {
	header := headline + "\n\n" + f.Detail
	if f.SubmissionID != "" {
		header += "\n*Submission:* " + f.SubmissionID
	}
	r := f.Request
	return Message{
		Text: headline,
		Blocks: []block{
			{Type: "section", Text: ptr(mrkdwn(header))},
			{Type: "divider"},
			{Type: "context", Elements: []textObject{mrkdwn("*This was the form payload at failure:*")}},
			{Type: "section", Fields: []textObject{
				mrkdwn("*Name:*\n" + r.Name),
				mrkdwn("*Email:*\n" + r.Email),
				mrkdwn("*Project:*\n" + r.Project),
				mrkdwn("*Request:*\n" + r.Request),
			}},
			{Type: "section", Text: ptr(mrkdwn("*Additional Info:*\n" + r.AdditionalInfo))},
		},
	}
}

func ptr[T any](v T) *T { return &v }

// Notify posts the failure.
func (n *Notifier) Notify(ctx context.Context, f submission.Failure) error {
	if !n.Configured() {
		return fmt.Errorf("%w: no webhook url", ErrWebhook)
	}

	body, err := json.Marshal(BuildMessage(f))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWebhook, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWebhook, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWebhook, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrWebhook, resp.Status)
	}
	return nil
}
