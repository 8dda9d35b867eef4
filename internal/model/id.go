package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks client-generated ids for records that have been applied
// optimistically but not yet confirmed by the server. Reconciliation replaces
// them with the server-assigned id.
const TempIDPrefix = "tmp_"

// NewID returns a new server-style record id.
func NewID() string {
	return uuid.NewString()
}

// NewTempID returns a client-generated temporary id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was generated client-side via NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// ShortID returns the first segment of a UUID-style id for display, e.g.
// "9b2d41ab". Non-UUID ids shorter than one segment are returned unchanged.
func ShortID(id string) string {
	id = strings.TrimPrefix(id, TempIDPrefix)
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// ValidateID returns an error if id is empty or all whitespace.
func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("empty %s id", kind)
	}
	return nil
}
