package engine

import "github.com/google/uuid"

// NameSource generates unique identifiers for rules and query invocations.
// Implemented by UUIDSource (production) and testutil.SequenceSource (tests).
type NameSource interface {
	Fresh(prefix string) string
}

// UUIDSource generates identifiers with a random UUID suffix.
type UUIDSource struct{}

// Fresh returns prefix-<uuid>.
func (UUIDSource) Fresh(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
