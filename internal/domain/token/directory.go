package token

import (
	"strings"
)

// Option configures a Directory.
type Option func(*directoryConfig)

type directoryConfig struct {
	symbol string
}

// WithSymbolFilter restricts the listing to tokens whose symbol matches.
// When no token matches, the filter is ignored and every token is listed.
func WithSymbolFilter(symbol string) Option {
	return func(c *directoryConfig) {
		c.symbol = NormalizeSymbol(symbol)
	}
}

// Directory is an immutable, ordered view of the listed tokens.
type Directory struct {
	tokens []Token
	byID   map[string]int
}

// NewDirectory builds a directory over tokens, keeping their order.
// Duplicate ids keep the first occurrence for lookups.
func NewDirectory(tokens []Token, opts ...Option) *Directory {
	cfg := directoryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	listed := tokens
	if cfg.symbol != "" {
		var matched []Token
		for _, t := range tokens {
			if NormalizeSymbol(t.Symbol) == cfg.symbol {
				matched = append(matched, t)
			}
		}
		if len(matched) > 0 {
			listed = matched
		}
	}

	d := &Directory{
		tokens: make([]Token, len(listed)),
		byID:   make(map[string]int, len(listed)),
	}
	copy(d.tokens, listed)
	for i, t := range d.tokens {
		key := NormalizeID(t.ID)
		if _, exists := d.byID[key]; !exists {
			d.byID[key] = i
		}
	}
	return d
}

// List returns the listed tokens in authoring order.
func (d *Directory) List() []Token {
	out := make([]Token, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// Len returns the number of listed tokens.
func (d *Directory) Len() int {
	return len(d.tokens)
}

// Get looks a token up by id, ignoring case and surrounding whitespace.
func (d *Directory) Get(id string) (Token, error) {
	i, ok := d.byID[NormalizeID(id)]
	if !ok {
		return Token{}, ErrNotFound
	}
	return d.tokens[i], nil
}

// Filter keeps tokens whose name or address contains text (case-insensitive)
// and, when network is non-empty, whose network equals it.
func (d *Directory) Filter(text, network string) []Token {
	needle := strings.ToLower(strings.TrimSpace(text))
	network = strings.TrimSpace(network)

	out := make([]Token, 0, len(d.tokens))
	for _, t := range d.tokens {
		if network != "" && t.Network != network {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Name), needle) &&
			!strings.Contains(strings.ToLower(t.Address), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Networks returns the distinct networks in first-seen order.
func (d *Directory) Networks() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range d.tokens {
		if t.Network == "" {
			continue
		}
		if _, ok := seen[t.Network]; ok {
			continue
		}
		seen[t.Network] = struct{}{}
		out = append(out, t.Network)
	}
	return out
}
