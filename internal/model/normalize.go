package model

import (
	"crypto/rand"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace.
// Tag and folder names are compared in this form.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// NewID generates a new ULID.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ContainsString reports whether set contains s.
func ContainsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// AddToSet returns set with s appended unless already present.
// The input slice is never modified.
func AddToSet(set []string, s string) []string {
	if ContainsString(set, s) {
		return set
	}
	out := make([]string, 0, len(set)+1)
	out = append(out, set...)
	return append(out, s)
}

// RemoveFromSet returns a copy of set without s.
// Returns the original slice when s is absent.
func RemoveFromSet(set []string, s string) []string {
	if !ContainsString(set, s) {
		return set
	}
	out := make([]string, 0, len(set)-1)
	for _, v := range set {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// CleanSet trims entries, drops empties and removes duplicates, keeping order.
func CleanSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !ContainsString(out, v) {
			out = append(out, v)
		}
	}
	return out
}
