package storage

import (
	"context"
	"fmt"

	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/table"
)

// Repository takes care of the persistence of Records. One Repository serves
// every configured table; the table Name scopes each call.
//
// Implementations must hand out detached copies and accept detached copies:
// a Record obtained from a Repository can be freely mutated without touching
// stored state.
//
// Soft deletion does not exist at this level. Query includes soft-deleted
// records unless the Spec filters them out, Read returns them, and Delete
// always removes the row. Whether a delete is soft or hard is decided above.
type Repository interface {
	// Query runs the given Spec against a table and returns the matching
	// window of records.
	Query(ctx context.Context, tableName table.Name, spec query.Spec) (*query.Page, error)

	// Create persists the given NewRecord, generating an Id if none was
	// assigned, and stamps CreatedAt, UpdatedAt and the first Version.
	//
	// Returns AlreadyExists, carrying the current record, if the id is
	// already present (soft-deleted rows count as present).
	Create(ctx context.Context, tableName table.Name, newRecord *record.NewRecord) (*record.Record, error)

	// Read retrieves a Record by id, soft-deleted or not. Returns NotFound
	// when no such record exists.
	Read(ctx context.Context, tableName table.Name, id record.Id) (*record.Record, error)

	// Replace overwrites the attributes and deleted flag of the record with
	// the given id, keeping CreatedAt and regenerating UpdatedAt and
	// Version.
	//
	// When expectedVersion is non-nil the write only happens if it matches
	// the stored version byte for byte; otherwise InvalidVersion is
	// returned, carrying the authoritative record. The check and the write
	// are atomic with respect to other writers of the same id.
	Replace(ctx context.Context, tableName table.Name, rec *record.Record, expectedVersion *ExpectedVersion) (*record.Record, error)

	// Delete removes the record with the given id outright, honoring
	// expectedVersion the same way Replace does, and returns the removed
	// record.
	Delete(ctx context.Context, tableName table.Name, id record.Id, expectedVersion *ExpectedVersion) (*record.Record, error)

	// Check verifies that the backend is reachable and usable.
	Check(ctx context.Context) error
}

// ExpectedVersion is a precondition on a write: the stored version must
// equal this token exactly.
type ExpectedVersion struct {
	Version string
}

// <-- Domain Errors

// RepoErr is an error interface for Repository errors tied to a record.
type RepoErr interface {
	error
	Id() record.Id
}

type WrappingErr interface {
	error
	Unwrap() error
}

// NotFound is returned when no record with the given id exists in the table.
type NotFound struct {
	ID        record.Id
	TableName table.Name
}

func (e NotFound) Error() string {
	return fmt.Sprintf("Could not find [%v] in table [%v]", e.ID, e.TableName)
}

func (e NotFound) Id() record.Id {
	return e.ID
}

// InvalidVersion is returned when a write's expected version does not match
// the stored one. Current carries the authoritative record so callers can
// resolve the conflict.
type InvalidVersion struct {
	ID        record.Id
	TableName table.Name
	Current   *record.Record
}

func (e InvalidVersion) Error() string {
	return fmt.Sprintf("Version provided did not match persisted version for [%v] in table [%v]", e.ID, e.TableName)
}

func (e InvalidVersion) Id() record.Id {
	return e.ID
}

// AlreadyExists is returned when creating a record whose id is already
// present. Current carries the record that holds the id.
type AlreadyExists struct {
	ID        record.Id
	TableName table.Name
	Current   *record.Record
}

func (e AlreadyExists) Error() string {
	return fmt.Sprintf("Record with Id [%v] already exists in table [%v]", e.ID, e.TableName)
}

func (e AlreadyExists) Id() record.Id {
	return e.ID
}

// InvalidPersistedData is returned when stored bytes cannot be decoded into
// a Record.
type InvalidPersistedData struct {
	PersistedData interface{}
}

func (e InvalidPersistedData) Error() string {
	return fmt.Sprintf("Invalid persisted data [%v]", e.PersistedData)
}

//     Errors -->
