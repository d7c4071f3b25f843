// Package uuid generates the time-ordered identifiers used for accounts,
// sessions, destinations and actions.
package uuid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a UUIDv7 in canonical hyphenated form.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewSimple returns a UUIDv7 as 32 lowercase hex characters with no hyphens.
func NewSimple() string {
	return strings.ReplaceAll(New(), "-", "")
}

// Valid reports whether s parses as a UUID in either form.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
