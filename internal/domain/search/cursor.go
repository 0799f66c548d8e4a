package search

import (
	"sync"

	"github.com/aragon/ownership-token-framework/internal/domain/token"
)

// None is the cursor index when no result is highlighted.
const None = -1

// Cursor tracks a query, its results and the highlighted row.
type Cursor struct {
	mu      sync.Mutex
	tokens  []token.Token
	query   string
	results []token.Token
	index   int
}

// NewCursor creates a cursor searching over tokens.
func NewCursor(tokens []token.Token) *Cursor {
	return &Cursor{
		tokens:  append([]token.Token(nil), tokens...),
		results: []token.Token{},
		index:   None,
	}
}

// SetQuery recomputes the results and clears the highlight.
func (c *Cursor) SetQuery(query string) []token.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.results = Search(query, c.tokens)
	c.index = None
	return append([]token.Token(nil), c.results...)
}

// Down moves the highlight forward, stopping at the last result.
// From no highlight it moves to the first result.
func (c *Cursor) Down() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.results) == 0 {
		return c.index
	}
	if c.index == None {
		c.index = 0
		return c.index
	}
	c.index = min(c.index+1, len(c.results)-1)
	return c.index
}

// Up moves the highlight back, stopping at the first result.
func (c *Cursor) Up() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.results) == 0 {
		return c.index
	}
	c.index = max(c.index-1, 0)
	return c.index
}

// Enter selects the first result and clears the query. It reports false
// and changes nothing when there are no results.
func (c *Cursor) Enter() (token.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.results) == 0 {
		return token.Token{}, false
	}
	selected := c.results[0]
	c.reset()
	return selected, true
}

// Clear resets the query and highlight.
func (c *Cursor) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Index returns the raw highlight index, None when nothing is highlighted.
func (c *Cursor) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Active returns the row to paint. With results the first row is painted
// even before any arrow key.
func (c *Cursor) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.results) > 0 {
		return max(c.index, 0)
	}
	return c.index
}

// Query returns the current query text.
func (c *Cursor) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Results returns the current results.
func (c *Cursor) Results() []token.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]token.Token(nil), c.results...)
}

func (c *Cursor) reset() {
	c.query = ""
	c.results = []token.Token{}
	c.index = None
}
