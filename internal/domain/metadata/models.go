// metadata contains models that hold data about data. Every persisted record
// carries one of these regardless of which storage backend is configured, so
// nothing in here is allowed to leak backend specifics.
package metadata

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreatedAt time.Time
type UpdatedAt time.Time

// Version is an opaque token that gets regenerated on every successful
// write. Matching is byte-for-byte; no ordering is implied.
type Version string

// GenerateVersion returns a fresh random Version token.
func GenerateVersion() Version {
	return Version(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

type Metadata struct {
	CreatedAt CreatedAt
	UpdatedAt UpdatedAt
	Version   Version
}
