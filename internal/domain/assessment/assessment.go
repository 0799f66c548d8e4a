// Package assessment models per-token metric assessments as authored in the
// data documents.
package assessment

import (
	"maps"
	"slices"

	"github.com/aragon/ownership-token-framework/internal/domain/token"
)

// Metric is one assessed dimension for a token.
type Metric struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	About    string      `json:"about"`
	Summary  string      `json:"summary,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
	Criteria []Criterion `json:"criteria"`
}

// Criterion is one assessed sub-question.
type Criterion struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	About    string        `json:"about"`
	Status   Status        `json:"status"`
	Notes    string        `json:"notes,omitempty"`
	Evidence []EvidenceRef `json:"evidence"`
}

// Store holds the assessments of every token, keyed by normalized token id.
// It is read-only after construction.
type Store struct {
	byToken map[string][]Metric
	ids     []string
}

// NewStore indexes the document map token id -> metrics. Ids that collide
// after normalization are merged in lexical order of the raw ids.
func NewStore(doc map[string][]Metric) *Store {
	s := &Store{byToken: make(map[string][]Metric, len(doc))}
	for _, id := range slices.Sorted(maps.Keys(doc)) {
		metrics := doc[id]
		key := token.NormalizeID(id)
		if _, exists := s.byToken[key]; !exists {
			s.ids = append(s.ids, key)
		}
		s.byToken[key] = append(s.byToken[key], metrics...)
	}
	return s
}

// Metrics returns the stored metrics of a token in authoring order. The
// returned slice is shared with the store and must not be modified.
func (s *Store) Metrics(tokenID string) ([]Metric, bool) {
	m, ok := s.byToken[token.NormalizeID(tokenID)]
	return m, ok
}

// TokenIDs returns the normalized ids with assessments.
func (s *Store) TokenIDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the number of assessed tokens.
func (s *Store) Len() int {
	return len(s.byToken)
}
