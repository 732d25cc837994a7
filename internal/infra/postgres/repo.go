// postgres holds a Repository backed by PostgreSQL. Every configured table
// shares one physical relation keyed by (table_name, id); the domain
// attributes live in a jsonb column.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/domain/table"
	"github.com/taules/taules/internal/infra/postgres/migrations"
)

type Repo struct {
	db     *sql.DB
	getUTC func() time.Time // for mocking
}

// NewRepo opens a pool against the given DSN. Call RunMigrations before
// serving from it.
func NewRepo(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &Repo{db: db, getUTC: func() time.Time {
		// timestamptz keeps microseconds
		return time.Now().UTC().Truncate(time.Microsecond)
	}}, nil
}

// For testing
func (r *Repo) SetUTCGetter(getter func() time.Time) {
	r.getUTC = getter
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (r *Repo) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.UpContext(ctx, r.db, ".")
}

// Close releases the underlying pool.
func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Query(ctx context.Context, tableName table.Name, spec query.Spec) (*query.Page, error) {
	q := `
		SELECT id, attributes, deleted, created_at, updated_at, version
		FROM taules_records
		WHERE table_name = $1
	`
	// the one pushdown worth doing: most listings only want live records,
	// everything else is evaluated in process
	if wantsOnlyLive(spec.Where) {
		q += ` AND deleted = false`
	}
	rows, err := r.db.QueryContext(ctx, q, string(tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var items []*record.Record
	for rows.Next() {
		item, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	page := query.Apply(spec, items)
	return &page, nil
}

func (r *Repo) Create(ctx context.Context, tableName table.Name, newRecord *record.NewRecord) (*record.Record, error) {
	id := record.GenerateId()
	if newRecord.ID != nil {
		id = *newRecord.ID
	}
	attributes, err := json.Marshal(newRecord.Attributes)
	if err != nil {
		return nil, err
	}
	now := r.getUTC()
	version := metadata.GenerateVersion()

	q := `
		INSERT INTO taules_records (table_name, id, attributes, deleted, created_at, updated_at, version)
		VALUES ($1, $2, $3, false, $4, $4, $5)
		ON CONFLICT (table_name, id) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, q, string(tableName), string(id), attributes, now, string(version))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		current, readErr := r.Read(ctx, tableName, id)
		if readErr != nil {
			return nil, readErr
		}
		return nil, storage.AlreadyExists{ID: id, TableName: tableName, Current: current}
	}
	return &record.Record{
		ID:         id,
		Attributes: newRecord.Attributes,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(now),
			UpdatedAt: metadata.UpdatedAt(now),
			Version:   version,
		},
	}, nil
}

func (r *Repo) Read(ctx context.Context, tableName table.Name, id record.Id) (*record.Record, error) {
	q := `
		SELECT id, attributes, deleted, created_at, updated_at, version
		FROM taules_records
		WHERE table_name = $1 AND id = $2;
	`
	row := r.db.QueryRowContext(ctx, q, string(tableName), string(id))
	read, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound{ID: id, TableName: tableName}
	}
	if err != nil {
		return nil, err
	}
	return read, nil
}

func (r *Repo) Replace(ctx context.Context, tableName table.Name, rec *record.Record, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	attributes, err := json.Marshal(rec.Attributes)
	if err != nil {
		return nil, err
	}
	now := r.getUTC()
	version := metadata.GenerateVersion()

	q := `
		UPDATE taules_records
		SET attributes = $1, deleted = $2, updated_at = $3, version = $4
		WHERE table_name = $5 AND id = $6
	`
	args := []interface{}{attributes, rec.Deleted, now, string(version), string(tableName), string(rec.ID)}
	if expectedVersion != nil {
		q += ` AND version = $7`
		args = append(args, expectedVersion.Version)
	}
	q += ` RETURNING created_at;`

	var createdAt time.Time
	err = r.db.QueryRowContext(ctx, q, args...).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		// either the row is gone or the version moved on; a re-read tells
		return nil, r.casFailure(ctx, tableName, rec.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &record.Record{
		ID:         rec.ID,
		Attributes: rec.Attributes,
		Deleted:    rec.Deleted,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(createdAt),
			UpdatedAt: metadata.UpdatedAt(now),
			Version:   version,
		},
	}, nil
}

func (r *Repo) Delete(ctx context.Context, tableName table.Name, id record.Id, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	q := `
		DELETE FROM taules_records
		WHERE table_name = $1 AND id = $2
	`
	args := []interface{}{string(tableName), string(id)}
	if expectedVersion != nil {
		q += ` AND version = $3`
		args = append(args, expectedVersion.Version)
	}
	q += ` RETURNING id, attributes, deleted, created_at, updated_at, version;`

	row := r.db.QueryRowContext(ctx, q, args...)
	removed, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.casFailure(ctx, tableName, id)
	}
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *Repo) Check(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// casFailure turns a zero-row conditional write into the right domain error:
// NotFound when the record is gone, InvalidVersion with the authoritative
// copy when it moved on.
func (r *Repo) casFailure(ctx context.Context, tableName table.Name, id record.Id) error {
	current, err := r.Read(ctx, tableName, id)
	if err != nil {
		return err
	}
	return storage.InvalidVersion{ID: id, TableName: tableName, Current: current}
}

// wantsOnlyLive reports whether the condition can only ever match records
// with deleted = false, which lets the select skip soft-deleted rows.
func wantsOnlyLive(cond query.Condition) bool {
	switch typed := cond.(type) {
	case *query.Compare:
		return typed.Field == record.FieldDeleted && typed.Op == query.Equals && typed.Value == false
	case *query.AndOf:
		for _, inner := range typed.Conditions {
			if wantsOnlyLive(inner) {
				return true
			}
		}
	}
	return false
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scannable) (*record.Record, error) {
	var (
		id         string
		attributes []byte
		deleted    bool
		createdAt  time.Time
		updatedAt  time.Time
		version    string
	)
	if err := row.Scan(&id, &attributes, &deleted, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}
	var domainAttributes record.Attributes
	if err := json.Unmarshal(attributes, &domainAttributes); err != nil {
		return nil, storage.InvalidPersistedData{PersistedData: string(attributes)}
	}
	return &record.Record{
		ID:         record.Id(id),
		Attributes: domainAttributes,
		Deleted:    deleted,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(createdAt),
			UpdatedAt: metadata.UpdatedAt(updatedAt),
			Version:   metadata.Version(version),
		},
	}, nil
}
