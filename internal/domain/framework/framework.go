// Package framework holds the canonical metric and criterion definitions.
// Catalog text is the source of truth for descriptions across the service.
package framework

import (
	"strings"
)

// DefaultBaseURL is the published framework document.
const DefaultBaseURL = "https://github.com/aragon/ownership-token-index-framework/blob/develop/README.md"

// Metric is the canonical definition of an evaluation dimension.
type Metric struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	About    string      `json:"about"`
	Anchor   string      `json:"anchor,omitempty"`
	Criteria []Criterion `json:"criteria,omitempty"`
}

// Criterion is the canonical definition of a testable sub-question.
type Criterion struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	About string `json:"about"`
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithBaseURL sets the framework document URL used by URL.
func WithBaseURL(url string) Option {
	return func(c *Catalog) {
		if url = strings.TrimSpace(url); url != "" {
			c.baseURL = url
		}
	}
}

// Catalog is an immutable index over framework definitions.
type Catalog struct {
	metrics   []Metric
	metricIdx map[string]int
	criteria  map[string]Criterion
	baseURL   string
}

// New indexes metrics by id. Metric and criterion ids are case-sensitive;
// the first definition of a repeated id wins.
func New(metrics []Metric, opts ...Option) *Catalog {
	c := &Catalog{
		metrics:   make([]Metric, len(metrics)),
		metricIdx: make(map[string]int, len(metrics)),
		criteria:  make(map[string]Criterion),
		baseURL:   DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	for i, m := range metrics {
		m.Criteria = append([]Criterion(nil), m.Criteria...)
		c.metrics[i] = m
		if _, exists := c.metricIdx[m.ID]; !exists {
			c.metricIdx[m.ID] = i
		}
		for _, cr := range m.Criteria {
			if _, exists := c.criteria[cr.ID]; !exists {
				c.criteria[cr.ID] = cr
			}
		}
	}
	return c
}

// Metric returns the definition for id.
func (c *Catalog) Metric(id string) (Metric, bool) {
	i, ok := c.metricIdx[id]
	if !ok {
		return Metric{}, false
	}
	return c.metrics[i], true
}

// Criterion returns the definition for id, searching every metric.
func (c *Catalog) Criterion(id string) (Criterion, bool) {
	cr, ok := c.criteria[id]
	return cr, ok
}

// Metrics returns all definitions in authoring order.
func (c *Catalog) Metrics() []Metric {
	out := make([]Metric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Len returns the number of metric definitions.
func (c *Catalog) Len() int {
	return len(c.metrics)
}

// BaseURL returns the framework document URL.
func (c *Catalog) BaseURL() string {
	return c.baseURL
}

// URL links to a metric's section of the framework document. Metrics
// without an anchor link to the document itself.
func (c *Catalog) URL(metricID string) string {
	m, ok := c.Metric(metricID)
	if !ok || m.Anchor == "" {
		return c.baseURL
	}
	return c.baseURL + "#" + strings.TrimPrefix(m.Anchor, "#")
}

// LinkedMetric is a definition together with its document link.
type LinkedMetric struct {
	Metric
	URL string `json:"url"`
}

// Linked returns every definition in authoring order with its URL.
func (c *Catalog) Linked() []LinkedMetric {
	out := make([]LinkedMetric, len(c.metrics))
	for i, m := range c.metrics {
		out[i] = LinkedMetric{Metric: m, URL: c.URL(m.ID)}
	}
	return out
}
