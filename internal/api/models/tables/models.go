// tables holds the API Record models. A record travels as a single flat
// JSON object: the server-owned system fields (id, createdAt, updatedAt,
// version, deleted) merged with the table's domain attributes, so the
// flattening and splitting lives here and nowhere else.
package tables

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/taules/taules/internal/api/models/common"
	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/record"
)

// NewRecord is an incoming record body (create, replace or merge). Only the
// id and deleted system fields are honored on input; createdAt, updatedAt
// and version are server-owned and silently dropped.
type NewRecord struct {
	ID         *string
	Deleted    *bool
	Attributes record.Attributes
}

func (n *NewRecord) UnmarshalJSON(b []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	n.ID = nil
	n.Deleted = nil
	n.Attributes = make(record.Attributes, len(flat))
	for k, v := range flat {
		switch k {
		case record.FieldId:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("field [%s] must be a string, got [%v]", record.FieldId, v)
			}
			n.ID = &s
		case record.FieldDeleted:
			d, ok := v.(bool)
			if !ok {
				return fmt.Errorf("field [%s] must be a boolean, got [%v]", record.FieldDeleted, v)
			}
			n.Deleted = &d
		case record.FieldCreatedAt, record.FieldUpdatedAt, record.FieldVersion:
			// server-owned, ignored on input
		default:
			n.Attributes[k] = v
		}
	}
	return nil
}

func (n *NewRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(n.Attributes)+2)
	for k, v := range n.Attributes {
		if !record.IsSystemField(k) {
			flat[k] = v
		}
	}
	if n.ID != nil {
		flat[record.FieldId] = *n.ID
	}
	if n.Deleted != nil {
		flat[record.FieldDeleted] = *n.Deleted
	}
	return json.Marshal(flat)
}

// Converts an API model to the domain model
func (n *NewRecord) ToDomainNewRecord() record.NewRecord {
	var id *record.Id
	if n.ID != nil {
		domainId := record.Id(*n.ID)
		id = &domainId
	}
	return record.NewRecord{
		ID:         id,
		Attributes: n.Attributes,
	}
}

// ToDomainRecord builds the full-overwrite domain record for a replace of
// the given id. An absent deleted field means false: a plain replace
// resurrects nothing and buries nothing implicitly.
func (n *NewRecord) ToDomainRecord(id record.Id) record.Record {
	deleted := false
	if n.Deleted != nil {
		deleted = *n.Deleted
	}
	return record.Record{
		ID:         id,
		Attributes: n.Attributes,
		Deleted:    deleted,
	}
}

// Record is an outgoing record.
type Record struct {
	ID         string
	Deleted    bool
	Metadata   common.Metadata
	Attributes record.Attributes
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flatten(nil))
}

// Projected renders the record with only the chosen fields, for $select.
func (r Record) Projected(fields []string) map[string]interface{} {
	return r.flatten(fields)
}

func (r Record) flatten(selected []string) map[string]interface{} {
	flat := make(map[string]interface{}, len(r.Attributes)+5)
	for k, v := range r.Attributes {
		if !record.IsSystemField(k) {
			flat[k] = v
		}
	}
	flat[record.FieldId] = r.ID
	flat[record.FieldCreatedAt] = r.Metadata.CreatedAt.UTC().Format(time.RFC3339Nano)
	flat[record.FieldUpdatedAt] = r.Metadata.UpdatedAt.UTC().Format(time.RFC3339Nano)
	flat[record.FieldVersion] = r.Metadata.Version
	flat[record.FieldDeleted] = r.Deleted
	if len(selected) == 0 {
		return flat
	}
	projected := make(map[string]interface{}, len(selected))
	for _, field := range selected {
		if v, ok := flat[field]; ok {
			projected[field] = v
		}
	}
	return projected
}

// Creates an API model from the domain model
func FromDomainRecord(d *record.Record) Record {
	return Record{
		ID:         string(d.ID),
		Deleted:    d.Deleted,
		Metadata:   common.FromDomainMetadata(&d.Metadata),
		Attributes: d.Attributes,
	}
}

// ToDomainRecord converts back, for clients of this package that need the
// domain form of a wire record.
func (r *Record) ToDomainRecord() record.Record {
	return record.Record{
		ID:         record.Id(r.ID),
		Attributes: r.Attributes,
		Deleted:    r.Deleted,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(r.Metadata.CreatedAt),
			UpdatedAt: metadata.UpdatedAt(r.Metadata.UpdatedAt),
			Version:   metadata.Version(r.Metadata.Version),
		},
	}
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	r.Attributes = make(record.Attributes, len(flat))
	for k, v := range flat {
		switch k {
		case record.FieldId:
			if s, ok := v.(string); ok {
				r.ID = s
			}
		case record.FieldDeleted:
			if d, ok := v.(bool); ok {
				r.Deleted = d
			}
		case record.FieldCreatedAt:
			if t, err := parseWireTime(v); err == nil {
				r.Metadata.CreatedAt = t
			}
		case record.FieldUpdatedAt:
			if t, err := parseWireTime(v); err == nil {
				r.Metadata.UpdatedAt = t
			}
		case record.FieldVersion:
			if s, ok := v.(string); ok {
				r.Metadata.Version = s
			}
		default:
			r.Attributes[k] = v
		}
	}
	return nil
}

func parseWireTime(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("not a timestamp string: [%v]", v)
	}
	return time.Parse(time.RFC3339Nano, s)
}

// ListResult is one window of a table listing.
type ListResult struct {
	Items []Record `json:"items"`
	// Count is the total number of visible records matching the filter,
	// only present when the request asked for it.
	Count *int64 `json:"count,omitempty"`
	// NextLink points at the next window when this one was full.
	NextLink *string `json:"nextLink,omitempty"`
	// HasMore tells the transport layer whether to emit a next link; it
	// never travels on the wire itself.
	HasMore bool `json:"-"`
	// Selected carries the $select projection for the transport layer.
	Selected []string `json:"-"`
}

// V2ListResult is the inline-count envelope of the first protocol
// generation. Without an inline count, that generation returns a bare
// array of records instead.
type V2ListResult struct {
	Results []Record `json:"results"`
	Count   int64    `json:"count"`
}

// TableInfo describes one configured table on the meta endpoint.
type TableInfo struct {
	Name            string           `json:"name" binding:"required" example:"todoitem"`
	SoftDelete      bool             `json:"soft_delete"`
	Policy          string           `json:"policy" example:"personal"`
	DefaultPageSize uint             `json:"default_page_size" example:"50"`
	MaxPageSize     uint             `json:"max_page_size" example:"1000"`
	PurgeOlderThan  *common.Duration `json:"purge_older_than,omitempty" swaggertype:"string" example:"720h"`
}
