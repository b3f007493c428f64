package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random (v4) identifier used for documents and sessions.
func NewID() string {
	return uuid.New().String()
}

// IsValidID reports whether id parses as a UUID.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
