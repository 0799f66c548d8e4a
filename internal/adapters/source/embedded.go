package source

import (
	"context"
	"embed"
	"fmt"
)

//go:embed data/*.json
var bundled embed.FS

// Embedded serves the documents compiled into the binary.
type Embedded struct{}

// NewEmbedded returns the bundled source.
func NewEmbedded() *Embedded {
	return &Embedded{}
}

// Fetch returns the bundled copy of doc.
func (e *Embedded) Fetch(_ context.Context, doc Document) ([]byte, error) {
	data, err := bundled.ReadFile("data/" + doc.File())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, doc)
	}
	return data, nil
}

// Load decodes every bundled document.
func (e *Embedded) Load(ctx context.Context) (Bundle, error) {
	return LoadAll(ctx, e)
}
