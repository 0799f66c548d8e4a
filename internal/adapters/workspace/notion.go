// Package workspace stores token requests as pages in a Notion database.
package workspace

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

const (
	// DefaultBaseURL is the Notion API root.
	DefaultBaseURL = "https://api.notion.com"
	// APIVersion is the Notion-Version header value the page shape targets.
	APIVersion = "2022-06-28"

	maxReplyBytes = 64 << 10
)

// ErrRequest is returned when the call could not be made or read.
var ErrRequest = errors.New("workspace request failed")

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

// Client creates request pages in one database.
type Client struct {
	token      string
	databaseID string
	baseURL    string
	http       *http.Client
}

// New creates a client. Empty credentials are allowed; Configured reports them.
func New(token, databaseID string, opts ...Option) *Client {
	c := &Client{
		token:      strings.TrimSpace(token),
		databaseID: strings.TrimSpace(databaseID),
		baseURL:    DefaultBaseURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both the integration token and database id are set.
func (c *Client) Configured() bool {
	return c.token != "" && c.databaseID != ""
}

type text struct {
	Content string `json:"content"`
}

type richText struct {
	Text text `json:"text"`
}

type dateValue struct {
	Start string `json:"start"`
}

type selectValue struct {
	Name string `json:"name"`
}

type property struct {
	Title    []richText   `json:"title,omitempty"`
	RichText []richText   `json:"rich_text,omitempty"`
	Email    string       `json:"email,omitempty"`
	Date     *dateValue   `json:"date,omitempty"`
	Select   *selectValue `json:"select,omitempty"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type page struct {
	Parent     parent              `json:"parent"`
	Properties map[string]property `json:"properties"`
}

func content(s string) []richText {
	return []richText{{Text: text{Content: s}}}
}

func (c *Client) newPage(req submission.Request, submittedAt time.Time) page {
	return page{
		Parent: parent{DatabaseID: c.databaseID},
		Properties: map[string]property{
			"Project name":           {Title: content(req.Project)},
			"Your name":              {RichText: content(req.Name)},
			"Request":                {RichText: content(req.Request)},
			"Additional information": {RichText: content(req.AdditionalInfo)},
			"Your email":             {Email: req.Email},
			"Submitted at":           {Date: &dateValue{Start: submittedAt.UTC().Format(time.RFC3339)}},
			"Status":                 {Select: &selectValue{Name: "New"}},
		},
	}
}

// CreateRequest creates a page for req.
func (c *Client) CreateRequest(ctx context.Context, req submission.Request, submittedAt time.Time) (submission.ProviderReply, error) {
	body, err := json.Marshal(c.newPage(req, submittedAt))
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pages", bytes.NewReader(body))
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	hreq.Header.Set("Authorization", "Bearer "+c.token)
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Notion-Version", APIVersion)

	resp, err := c.http.Do(hreq)
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return submission.ProviderReply{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	reply := submission.ProviderReply{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	if !reply.OK() {
		var er struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &er) == nil {
			reply.Code = er.Code
			reply.Message = er.Message
		}
	}
	return reply, nil
}
