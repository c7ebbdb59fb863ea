package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns an opaque record id such as "agent_3f9c01ab52de".
func NewID(prefix string) string {
	return prefix + "_" + randomToken(12)
}

// randomToken returns n lowercase hex characters.
func randomToken(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// RandomSuffix returns n random lowercase hex characters for generated
// names that must not collide in practice.
func RandomSuffix(n int) string {
	return randomToken(n)
}
