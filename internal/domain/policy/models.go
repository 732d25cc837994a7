package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/taules/taules/internal/domain/caller"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
)

// Provider decides what a caller may see and do on a single table.
//
// The three methods are independent knobs over the same request: DataView
// narrows visibility, Authorize allows or denies an operation, and
// BeforeCommit adjusts a record that is about to be written. Handlers call
// them in exactly that conceptual order and never skip DataView, so a denied
// record is indistinguishable from an absent one.
type Provider interface {
	// DataView returns the visibility predicate for the caller. It is
	// composed in front of any client-supplied filter on queries and
	// applied to single records on reads and writes.
	DataView(ctx context.Context, identity caller.Identity) query.Condition

	// Authorize returns nil if the caller may perform the operation,
	// or a Denied error. rec is the record being written for write
	// operations and nil for QUERY.
	Authorize(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error

	// BeforeCommit runs after Authorize has allowed a write and may mutate
	// the record, typically to stamp ownership fields. Never called for
	// QUERY or READ.
	BeforeCommit(ctx context.Context, identity caller.Identity, op Operation, rec *record.Record) error
}

// Denied is returned by Authorize when the operation is not allowed.
// Anonymous distinguishes "who are you" failures from "you specifically
// may not" failures; the transport turns the former into a challenge.
type Denied struct {
	Op        Operation
	Reason    string
	Anonymous bool
}

func (d Denied) Error() string {
	return fmt.Sprintf("Operation [%v] denied: %s", d.Op, d.Reason)
}

// Operation boilerplate galore
// The operation of a table request that can be marshalled to and from JSON
type Operation uint8

const (
	QUERY Operation = iota
	READ
	CREATE
	REPLACE
	DELETE

	// Do not edit these
	opQuery   string = "query"
	opRead    string = "read"
	opCreate  string = "create"
	opReplace string = "replace"
	opDelete  string = "delete"
)

var toString = map[Operation]string{
	QUERY:   opQuery,
	READ:    opRead,
	CREATE:  opCreate,
	REPLACE: opReplace,
	DELETE:  opDelete,
}

var toID = map[string]Operation{
	opQuery:   QUERY,
	opRead:    READ,
	opCreate:  CREATE,
	opReplace: REPLACE,
	opDelete:  DELETE,
}

func (o Operation) String() string {
	return toString[o]
}

// IsWrite returns true for operations that modify data.
func (o Operation) IsWrite() bool {
	return o == CREATE || o == REPLACE || o == DELETE
}

// MarshalJSON marshals the enum as a quoted json string
func (o Operation) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(toString[o])
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

// UnmarshalJSON unmashals a quoted json string to the enum value
func (o *Operation) UnmarshalJSON(b []byte) error {
	var j string
	err := json.Unmarshal(b, &j)
	if err != nil {
		return err
	}
	if found, ok := toID[j]; ok {
		*o = found
		return nil
	} else {
		return fmt.Errorf("invalid operation: [%s]", string(b))
	}
}
