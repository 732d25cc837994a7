package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taules/taules/internal/domain/metadata"
)

// Id for a record that has been persisted. Callers may assign their own on
// create; absent one, a random Id is generated server side.
type Id string

// Generates a random id
func GenerateId() Id {
	return Id(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

const maxIdLength = 255

// ValidateId checks a caller-assigned id. Ids travel as path segments, so
// the rules mirror what URLs and every storage backend can carry safely.
func ValidateId(s string) error {
	if len(s) == 0 {
		return InvalidId{ID: s, Reason: "empty string"}
	}
	if len(s) > maxIdLength {
		return InvalidId{ID: s, Reason: fmt.Sprintf("longer than [%d] chars", maxIdLength)}
	}
	if s == "." || s == ".." {
		return InvalidId{ID: s, Reason: "reserved value"}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f {
			return InvalidId{ID: s, Reason: "contains control characters"}
		}
		if c == '/' || c == '\\' || c == '?' || c == '#' {
			return InvalidId{ID: s, Reason: fmt.Sprintf("contains invalid char [%c]", c)}
		}
	}
	return nil
}

// InvalidId is returned for ids that cannot be stored or addressed.
type InvalidId struct {
	ID     string
	Reason string
}

func (e InvalidId) Error() string {
	return fmt.Sprintf("Illegal record id [%v]: %s", e.ID, e.Reason)
}

// Attributes are the domain fields of a record, free-form JSON.
type Attributes map[string]interface{}

// Names of the system fields every record carries on the wire. Attributes
// may not use any of these.
const (
	FieldId        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldVersion   = "version"
	FieldDeleted   = "deleted"
)

var systemFields = map[string]bool{
	FieldId:        true,
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
	FieldVersion:   true,
	FieldDeleted:   true,
}

// IsSystemField returns true if the given field name is owned by the server.
func IsSystemField(name string) bool {
	return systemFields[name]
}

// A Record that has yet to be created. The Id is optional; the Attributes
// must not contain system fields.
type NewRecord struct {
	ID         *Id
	Attributes Attributes
}

// A Record that has been persisted.
//
// A Record is identified uniquely by its ID within a table and versioned
// according to its Metadata Version. Deleted marks a soft-deleted record
// that is retained for sync purposes.
type Record struct {
	ID         Id
	Attributes Attributes
	Deleted    bool
	Metadata   metadata.Metadata
}

// Clone returns a deep copy. Storage implementations hand out and accept
// clones only, so mutating a returned Record never touches stored state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	copied := *r
	copied.Attributes = cloneAttributes(r.Attributes)
	return &copied
}

// Field looks up a value by wire name, covering both system fields and
// attributes. The bool is false when the record has no such field.
func (r *Record) Field(name string) (interface{}, bool) {
	switch name {
	case FieldId:
		return string(r.ID), true
	case FieldCreatedAt:
		return time.Time(r.Metadata.CreatedAt), true
	case FieldUpdatedAt:
		return time.Time(r.Metadata.UpdatedAt), true
	case FieldVersion:
		return string(r.Metadata.Version), true
	case FieldDeleted:
		return r.Deleted, true
	default:
		v, ok := r.Attributes[name]
		return v, ok
	}
}

func cloneAttributes(attrs Attributes) Attributes {
	if attrs == nil {
		return nil
	}
	copied := make(Attributes, len(attrs))
	for k, v := range attrs {
		copied[k] = cloneValue(v)
	}
	return copied
}

func cloneValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		copied := make(map[string]interface{}, len(typed))
		for k, inner := range typed {
			copied[k] = cloneValue(inner)
		}
		return copied
	case []interface{}:
		copied := make([]interface{}, len(typed))
		for i, inner := range typed {
			copied[i] = cloneValue(inner)
		}
		return copied
	default:
		return v
	}
}
