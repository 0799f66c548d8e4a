// Package faq holds the frequently asked questions shown next to the index.
package faq

import (
	"strings"
)

// Question is a single entry.
type Question struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Topic groups questions under a heading.
type Topic struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	About     string     `json:"about,omitempty"`
	Questions []Question `json:"questions"`
}

// Document is the faq data file.
type Document struct {
	Topics []Topic `json:"topics"`
}

// Clean drops topics without questions and questions without an answer,
// keeping authoring order.
func Clean(topics []Topic) []Topic {
	out := make([]Topic, 0, len(topics))
	for _, t := range topics {
		qs := make([]Question, 0, len(t.Questions))
		for _, q := range t.Questions {
			if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
				continue
			}
			qs = append(qs, q)
		}
		if len(qs) == 0 {
			continue
		}
		t.Questions = qs
		out = append(out, t)
	}
	return out
}
