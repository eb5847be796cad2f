package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUIDv4 rendered as 32 lowercase hex characters without hyphens.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
