// memory holds an in-process Repository, useful for tests and for trying
// the server out without standing up any infrastructure.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/domain/table"
)

// Repo keeps every table in one map guarded by a single RWMutex. Writes take
// the write lock, which is what makes the version check-and-set atomic.
type Repo struct {
	mu     sync.RWMutex
	tables map[table.Name]map[record.Id]*record.Record
	getUTC func() time.Time // for mocking
}

// NewRepo returns an empty in-memory Repository.
func NewRepo() *Repo {
	return &Repo{
		tables: make(map[table.Name]map[record.Id]*record.Record),
		getUTC: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// For testing
func (r *Repo) SetUTCGetter(getter func() time.Time) {
	r.getUTC = getter
}

func (r *Repo) Query(ctx context.Context, tableName table.Name, spec query.Spec) (*query.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.tables[tableName]
	items := make([]*record.Record, 0, len(rows))
	for _, row := range rows {
		items = append(items, row)
	}
	page := query.Apply(spec, items)
	return &page, nil
}

func (r *Repo) Create(ctx context.Context, tableName table.Name, newRecord *record.NewRecord) (*record.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := record.GenerateId()
	if newRecord.ID != nil {
		id = *newRecord.ID
	}
	rows, ok := r.tables[tableName]
	if !ok {
		rows = make(map[record.Id]*record.Record)
		r.tables[tableName] = rows
	}
	if current, exists := rows[id]; exists {
		return nil, storage.AlreadyExists{ID: id, TableName: tableName, Current: current.Clone()}
	}
	now := r.getUTC()
	stored := (&record.Record{
		ID:         id,
		Attributes: newRecord.Attributes,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(now),
			UpdatedAt: metadata.UpdatedAt(now),
			Version:   metadata.GenerateVersion(),
		},
	}).Clone()
	rows[id] = stored
	return stored.Clone(), nil
}

func (r *Repo) Read(ctx context.Context, tableName table.Name, id record.Id) (*record.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if current, ok := r.tables[tableName][id]; ok {
		return current.Clone(), nil
	}
	return nil, storage.NotFound{ID: id, TableName: tableName}
}

func (r *Repo) Replace(ctx context.Context, tableName table.Name, rec *record.Record, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tables[tableName][rec.ID]
	if !ok {
		return nil, storage.NotFound{ID: rec.ID, TableName: tableName}
	}
	if expectedVersion != nil && string(current.Metadata.Version) != expectedVersion.Version {
		return nil, storage.InvalidVersion{ID: rec.ID, TableName: tableName, Current: current.Clone()}
	}
	stored := rec.Clone()
	stored.Metadata = metadata.Metadata{
		CreatedAt: current.Metadata.CreatedAt,
		UpdatedAt: metadata.UpdatedAt(r.getUTC()),
		Version:   metadata.GenerateVersion(),
	}
	r.tables[tableName][rec.ID] = stored
	return stored.Clone(), nil
}

func (r *Repo) Delete(ctx context.Context, tableName table.Name, id record.Id, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tables[tableName][id]
	if !ok {
		return nil, storage.NotFound{ID: id, TableName: tableName}
	}
	if expectedVersion != nil && string(current.Metadata.Version) != expectedVersion.Version {
		return nil, storage.InvalidVersion{ID: id, TableName: tableName, Current: current.Clone()}
	}
	delete(r.tables[tableName], id)
	return current, nil
}

func (r *Repo) Check(ctx context.Context) error {
	return nil
}
