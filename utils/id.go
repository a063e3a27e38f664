package utils

import (
	"crypto/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// requestIDPattern restricts request identifiers to characters which are safe in file names and object keys.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// IsValidRequestID reports whether id can be used to derive artifact keys.
func IsValidRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}

// NewRequestID returns a monotonic ULID based on the current time.
func NewRequestID() string {
	return NewULIDFromTimestamp(time.Now())
}

// NewULIDFromTimestamp generates a lexically sortable identifier for t.
func NewULIDFromTimestamp(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// RequestIDFromPath derives the request identifier from the file stem of path.
// A new identifier is generated when the stem contains unsafe characters.
func RequestIDFromPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if IsValidRequestID(stem) {
		return stem
	}
	return NewRequestID()
}
