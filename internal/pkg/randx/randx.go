/*
Package randx provides helpers for generating and validating opaque identifiers.

Room ids, user ids, and message ids are caller-supplied opaque strings in this
system; the server generates a UUID only when a client omitted a message id.
*/
package randx

import (
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxIDLength is the maximum accepted length, in bytes, for any
	// caller-supplied identifier (room id, user id, message id).
	MaxIDLength = 128

	// MaxNameLength is the maximum accepted length for display strings
	// such as room names and usernames.
	MaxNameLength = 256
)

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// IsValidID reports whether the given string is acceptable as an opaque identifier:
// non-empty, valid UTF-8, and no longer than MaxIDLength bytes.
func IsValidID(id string) bool {
	return id != "" && len(id) <= MaxIDLength && utf8.ValidString(id)
}

// IsValidName reports whether the given display string is acceptable:
// non-empty, valid UTF-8, and no longer than MaxNameLength bytes.
func IsValidName(name string) bool {
	return name != "" && len(name) <= MaxNameLength && utf8.ValidString(name)
}
