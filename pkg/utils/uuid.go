package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a random v4 UUID string.
func GenerateUUID() string {
	return uuid.NewString()
}

// ValidUUID reports whether s parses as a UUID. Incoming request ids that
// fail this are replaced.
func ValidUUID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
