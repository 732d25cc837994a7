package common

import (
	"time"

	"github.com/taules/taules/internal/domain/metadata"
)

// Metadata is the wire form of a record's system metadata. On record bodies
// these fields travel flattened into the record object itself; the struct
// exists so other payloads and conversions share one shape.
type Metadata struct {
	CreatedAt time.Time `json:"createdAt" swaggertype:"string" format:"date-time"`
	UpdatedAt time.Time `json:"updatedAt" swaggertype:"string" format:"date-time"`
	Version   string    `json:"version"`
}

// Creates an API model from the domain model
func FromDomainMetadata(m *metadata.Metadata) Metadata {
	return Metadata{
		CreatedAt: time.Time(m.CreatedAt),
		UpdatedAt: time.Time(m.UpdatedAt),
		Version:   string(m.Version),
	}
}
