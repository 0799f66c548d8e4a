// Package token models the tokens listed by the index and the directory used
// to look them up.
package token

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ErrNotFound is returned when no listed token has the requested id.
var ErrNotFound = errors.New("token not found")

// Token is a listed token. ID is the only key used for lookup and routing;
// Symbol is not guaranteed to be unique.
type Token struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Address     string  `json:"address"`
	Network     string  `json:"network"`
	Icon        string  `json:"icon,omitempty"`
	Description string  `json:"description"`
	LastUpdated int64   `json:"lastUpdated"`
	UpdatedBy   Updater `json:"updatedBy"`
	Links       Links   `json:"links"`
}

// Updater identifies who last revised a token's assessment.
type Updater struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Links are optional external references for a token.
type Links struct {
	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Explorer string `json:"explorer,omitempty"`
}

// NormalizeID returns the lookup form of a token id: trimmed and case folded.
func NormalizeID(id string) string {
	return cases.Fold().String(strings.TrimSpace(id))
}

// NormalizeSymbol returns the comparison form of a symbol: trimmed and upper-cased.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
