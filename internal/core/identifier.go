// internal/core/identifier.go
package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier signals a malformed table identifier supplied by a client.
var ErrInvalidIdentifier = errors.New("invalid table identifier")

// Regular expression for valid schema/table/column name segments (alphanumeric + underscore)
var identPartRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// TableIdentifier is a validated, dot-separated table reference such as
// "sop.widgets" or a bare "widgets". Every part is guaranteed to match
// [A-Za-z0-9_]+, which makes it safe to interpolate as a quoted identifier.
// Quoting itself is the query builder's job; this type guarantees only
// character-class safety.
type TableIdentifier struct {
	parts []string
}

// ParseTableIdentifier splits raw on '.', trims each segment and discards
// empty ones. It fails with ErrInvalidIdentifier when no segment remains or
// when any segment contains a character outside [A-Za-z0-9_].
func ParseTableIdentifier(raw string) (TableIdentifier, error) {
	segments := strings.Split(raw, ".")
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if !identPartRegex.MatchString(seg) {
			return TableIdentifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return TableIdentifier{}, fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	return TableIdentifier{parts: parts}, nil
}

// Parts returns the ordered identifier segments.
func (t TableIdentifier) Parts() []string {
	out := make([]string, len(t.parts))
	copy(out, t.parts)
	return out
}

// Schema returns the schema segment, or "" for an unqualified name.
func (t TableIdentifier) Schema() string {
	if len(t.parts) < 2 {
		return ""
	}
	return t.parts[0]
}

// Name returns the bare table name (the last segment).
func (t TableIdentifier) Name() string {
	if len(t.parts) == 0 {
		return ""
	}
	return t.parts[len(t.parts)-1]
}

// FullName returns the dotted form, e.g. "sop.widgets".
func (t TableIdentifier) FullName() string {
	return strings.Join(t.parts, ".")
}

func (t TableIdentifier) String() string {
	return t.FullName()
}

// IsValidIdentifier checks if a string is a valid single identifier segment
// (e.g. a column name). Applies basic format and length checks.
func IsValidIdentifier(name string) bool {
	return identPartRegex.MatchString(name) && len(name) > 0 && len(name) <= 64
}
