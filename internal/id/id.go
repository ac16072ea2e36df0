// Package id generates short prefixed identifiers.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// TempPrefix marks a client-side placeholder that the knowledge base has not
// assigned an id to yet.
const TempPrefix = "temp"

// Generate creates a prefixed NanoID, e.g. "temp-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Temp returns a fresh placeholder id for an optimistic insert.
func Temp() string {
	return MustGenerate(TempPrefix)
}

// IsTemp reports whether id is a placeholder from Temp.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix+"-")
}
