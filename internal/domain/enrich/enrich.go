// Package enrich merges canonical framework text onto per-token assessments.
//
// Catalog text wins whenever the catalog defines a non-empty description for
// an id; otherwise the assessment's own text is kept. The stored data is never
// modified: every call builds a fresh view.
package enrich

import (
	"github.com/aragon/ownership-token-framework/internal/domain/assessment"
	"github.com/aragon/ownership-token-framework/internal/domain/framework"
)

// Metric is the resolved read model of one assessed dimension.
type Metric struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	About     string      `json:"about"`
	AboutLink string      `json:"aboutLink"`
	Summary   string      `json:"summary,omitempty"`
	Tags      []string    `json:"tags"`
	Criteria  []Criterion `json:"criteria"`
	Tally     Tally       `json:"tally"`
}

// Criterion is the resolved read model of one criterion.
type Criterion struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	About    string                `json:"about"`
	Status   assessment.Status     `json:"status"`
	Notes    string                `json:"notes,omitempty"`
	Evidence []assessment.Evidence `json:"evidence"`
}

// Tally summarises a metric's criteria for cards and headers.
type Tally struct {
	EvidenceEntries int `json:"evidenceEntries"`
	Positive        int `json:"positive"`
	Neutral         int `json:"neutral"`
	AtRisk          int `json:"atRisk"`
	Unknown         int `json:"unknown"`
}

// Catalog is the subset of the framework catalog the resolver reads.
type Catalog interface {
	Metric(id string) (framework.Metric, bool)
	Criterion(id string) (framework.Criterion, bool)
	URL(metricID string) string
}

// Assessments is the subset of the assessment store the resolver reads.
type Assessments interface {
	Metrics(tokenID string) ([]assessment.Metric, bool)
}

// Resolver produces enriched metric views for tokens.
type Resolver struct {
	catalog Catalog
	store   Assessments
}

// New creates a resolver over a catalog and an assessment store.
func New(catalog Catalog, store Assessments) *Resolver {
	return &Resolver{catalog: catalog, store: store}
}

// Resolve returns the enriched metrics of a token in authoring order.
// Unknown tokens resolve to an empty, non-nil list.
func (r *Resolver) Resolve(tokenID string) []Metric {
	raw, ok := r.store.Metrics(tokenID)
	if !ok {
		return []Metric{}
	}

	out := make([]Metric, 0, len(raw))
	for _, m := range raw {
		out = append(out, r.metric(m))
	}
	return out
}

// Assessed reports whether the token has an assessment entry.
func (r *Resolver) Assessed(tokenID string) bool {
	_, ok := r.store.Metrics(tokenID)
	return ok
}

func (r *Resolver) metric(m assessment.Metric) Metric {
	about := m.About
	if def, ok := r.catalog.Metric(m.ID); ok && def.About != "" {
		about = def.About
	}

	res := Metric{
		ID:        m.ID,
		Name:      m.Name,
		About:     about,
		AboutLink: r.catalog.URL(m.ID),
		Summary:   m.Summary,
		Tags:      append([]string{}, m.Tags...),
		Criteria:  make([]Criterion, 0, len(m.Criteria)),
	}

	for _, c := range m.Criteria {
		crit := r.criterion(c)
		res.Criteria = append(res.Criteria, crit)
		res.Tally.add(crit)
	}
	return res
}

func (r *Resolver) criterion(c assessment.Criterion) Criterion {
	about := c.About
	if def, ok := r.catalog.Criterion(c.ID); ok && def.About != "" {
		about = def.About
	}
	return Criterion{
		ID:       c.ID,
		Name:     c.Name,
		About:    about,
		Status:   assessment.ParseStatus(string(c.Status)),
		Notes:    c.Notes,
		Evidence: assessment.NormalizeAll(c.Evidence),
	}
}

func (t *Tally) add(c Criterion) {
	t.EvidenceEntries += len(c.Evidence)
	switch c.Status {
	case assessment.StatusPositive:
		t.Positive++
	case assessment.StatusNeutral:
		t.Neutral++
	case assessment.StatusAtRisk:
		t.AtRisk++
	default:
		t.Unknown++
	}
}
