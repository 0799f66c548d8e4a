// Package mailinglist is the EmailOctopus client behind newsletter signups.
package mailinglist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aragon/ownership-token-framework/internal/domain/submission"
)

// DefaultBaseURL is the EmailOctopus API root.
const DefaultBaseURL = "https://emailoctopus.com/api/1.6"

const maxReplyBytes = 64 << 10

// ErrRequest is returned when the call could not be made or read.
var ErrRequest = errors.New("mailing list request failed")

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// Client subscribes contacts to one list.
type Client struct {
	apiKey  string
	listID  string
	baseURL string
	http    *http.Client
}

// New creates a client. Empty credentials are allowed; Configured reports them.
func New(apiKey, listID string, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		listID:  strings.TrimSpace(listID),
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both the API key and list id are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.listID != ""
}

type contactRequest struct {
	APIKey       string `json:"api_key"`
	EmailAddress string `json:"email_address"`
	Status       string `json:"status"`
}

// errorReply covers both places the provider puts its error code.
type errorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Subscribe adds email to the list as a subscribed contact.
func (c *Client) Subscribe(ctx context.Context, email string) (submission.ProviderReply, error) {
	body, err := json.Marshal(contactRequest{APIKey: c.apiKey, EmailAddress: email, Status: "SUBSCRIBED"})
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	endpoint := c.baseURL + "/lists/" + url.PathEscape(c.listID) + "/contacts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	return parseReply(resp, raw), nil
}

// parseReply tolerates bodies that are not JSON; the status still classifies.
func parseReply(resp *http.Response, raw []byte) submission.ProviderReply {
	reply := submission.ProviderReply{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(raw),
	}
	if reply.OK() {
		return reply
	}

	var er errorReply
	if err := json.Unmarshal(raw, &er); err != nil {
		return reply
	}
	if er.Error != nil {
		reply.Code = er.Error.Code
		reply.Message = er.Error.Message
	}
	if reply.Code == "" {
		reply.Code = er.Code
	}
	if reply.Message == "" {
		reply.Message = er.Message
	}
	return reply
}
