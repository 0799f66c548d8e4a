// Package source loads the data documents the index is built from, either
// from the copies bundled into the binary or from the published data
// repository.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aragon/ownership-token-framework/internal/domain/assessment"
	"github.com/aragon/ownership-token-framework/internal/domain/faq"
	"github.com/aragon/ownership-token-framework/internal/domain/framework"
	"github.com/aragon/ownership-token-framework/internal/domain/token"
)

// Document names a data file.
type Document string

const (
	DocFramework Document = "framework"
	DocMetrics   Document = "metrics"
	DocTokens    Document = "tokens"
	DocFAQ       Document = "faq"
)

// Documents lists every document a bundle is built from.
var Documents = []Document{DocFramework, DocMetrics, DocTokens, DocFAQ}

// File returns the document's file name.
func (d Document) File() string {
	return string(d) + ".json"
}

// Sentinel errors.
var (
	ErrUnknownDocument = errors.New("unknown document")
	ErrDecode          = errors.New("document decode failed")
	ErrFetch           = errors.New("document fetch failed")
)

// Bundle is one consistent load of every document.
type Bundle struct {
	Framework []framework.Metric
	Metrics   map[string][]assessment.Metric
	Tokens    []token.Token
	FAQ       []faq.Topic
}

// Loader produces bundles.
type Loader interface {
	Load(ctx context.Context) (Bundle, error)
}

// Fetcher returns the raw bytes of a single document.
type Fetcher interface {
	Fetch(ctx context.Context, doc Document) ([]byte, error)
}

// Decode parses raw documents into a bundle. Every document must be present.
func Decode(raw map[Document][]byte) (Bundle, error) {
	var b Bundle
	for _, doc := range Documents {
		data, ok := raw[doc]
		if !ok {
			return Bundle{}, fmt.Errorf("%w: %s missing", ErrDecode, doc)
		}
		if err := decodeInto(&b, doc, data); err != nil {
			return Bundle{}, err
		}
	}
	return b, nil
}

func decodeInto(b *Bundle, doc Document, data []byte) error {
	var err error
	switch doc {
	case DocFramework:
		err = json.Unmarshal(data, &b.Framework)
	case DocMetrics:
		err = json.Unmarshal(data, &b.Metrics)
	case DocTokens:
		var wrapper struct {
			Tokens []token.Token `json:"tokens"`
		}
		err = json.Unmarshal(data, &wrapper)
		b.Tokens = wrapper.Tokens
	case DocFAQ:
		var d faq.Document
		err = json.Unmarshal(data, &d)
		b.FAQ = d.Topics
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDocument, doc)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, doc, err)
	}
	return nil
}

// Validate checks that a document decodes, without keeping the result.
func Validate(doc Document, data []byte) error {
	var b Bundle
	return decodeInto(&b, doc, data)
}

// LoadAll fetches every document through f and decodes them into a bundle.
func LoadAll(ctx context.Context, f Fetcher) (Bundle, error) {
	raw := make(map[Document][]byte, len(Documents))
	for _, doc := range Documents {
		data, err := f.Fetch(ctx, doc)
		if err != nil {
			return Bundle{}, err
		}
		raw[doc] = data
	}
	return Decode(raw)
}
