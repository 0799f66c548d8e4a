// Package search implements the fuzzy token finder and its keyboard cursor.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/aragon/ownership-token-framework/internal/domain/token"
)

// Match reports whether every rune of query occurs in target in the same
// relative order, ignoring case. Runes need not be adjacent.
func Match(query, target string) bool {
	fold := cases.Fold()
	q := []rune(fold.String(query))
	t := []rune(fold.String(target))

	qi := 0
	for ti := 0; ti < len(t) && qi < len(q); ti++ {
		if t[ti] == q[qi] {
			qi++
		}
	}
	return qi == len(q)
}

// Search returns the tokens whose name or symbol matches query, in list
// order. A blank query means search is inactive and yields no results.
func Search(query string, tokens []token.Token) []token.Token {
	q := strings.TrimSpace(query)
	if q == "" {
		return []token.Token{}
	}

	out := make([]token.Token, 0)
	for _, t := range tokens {
		if Match(q, t.Name) || Match(q, t.Symbol) {
			out = append(out, t)
		}
	}
	return out
}
