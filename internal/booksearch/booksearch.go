// Package booksearch defines the provider-neutral book search contract and
// the normalisation helpers shared by the provider adapters.
//
// A deployment wires exactly one Searcher (see the aladin and kakao
// subpackages); callers never pick a provider per request.
package booksearch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultMaxResults is used when the caller does not ask for a count.
const DefaultMaxResults = 10

// ErrMissingCredential means the provider key is not set in the environment.
var ErrMissingCredential = errors.New("search provider credential is not configured")

// BookResult is one normalised search hit. It is never stored on its own;
// saving one creates a knowledge-base entry.
type BookResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Cover       string `json:"cover"`
	Color       string `json:"color"`
	Publisher   string `json:"publisher,omitempty"`
	PubDate     string `json:"pubDate,omitempty"`
	Description string `json:"description,omitempty"`
	ISBN13      string `json:"isbn13,omitempty"`
	Price       int    `json:"price,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Results is an ordered page of hits plus the provider's total count.
type Results struct {
	Books []BookResult
	Total int
}

// Searcher queries a book provider.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) (Results, error)
}

// ProviderError is an error reported by the upstream provider itself, as
// opposed to a transport failure.
type ProviderError struct {
	Provider string
	Status   int // upstream HTTP status, 0 if the error came in a 200 body
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// KeyFunc returns the provider credential, or "" when it is unset. It is
// called on every request so a rotated key takes effect without a restart.
type KeyFunc func() string

// EnvKey reads the credential from the named environment variable.
func EnvKey(name string) KeyFunc {
	return func() string { return strings.TrimSpace(os.Getenv(name)) }
}

// StaticKey always returns key.
func StaticKey(key string) KeyFunc {
	return func() string { return key }
}

// ClampMaxResults bounds n to [1, limit], mapping non-positive values to
// DefaultMaxResults.
func ClampMaxResults(n, limit int) int {
	if n <= 0 {
		n = DefaultMaxResults
	}
	return min(n, limit)
}
