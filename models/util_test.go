package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIDFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 32 {
			t.Fatalf("expected 32 chars, got %d (%s)", len(id), id)
		}
		if strings.Contains(id, "-") {
			t.Fatalf("id must not contain hyphens: %s", id)
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("NewID is not a uuid: %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
