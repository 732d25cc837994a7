// bbolt holds a Repository backed by a single bbolt file, one bucket per
// table. bbolt runs one writer at a time, so doing the version check and the
// write inside the same Update transaction is all the atomicity the contract
// asks for.
package bbolt

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/domain/table"
)

type Repo struct {
	db     *bbolt.DB
	getUTC func() time.Time // for mocking
}

// NewRepo opens or creates the bbolt database at the given path.
func NewRepo(path string) (*Repo, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	return &Repo{db: db, getUTC: func() time.Time {
		return time.Now().UTC()
	}}, nil
}

// For testing
func (r *Repo) SetUTCGetter(getter func() time.Time) {
	r.getUTC = getter
}

// Close releases the underlying database file.
func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Query(ctx context.Context, tableName table.Name, spec query.Spec) (*query.Page, error) {
	var items []*record.Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKey(tableName))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			rec, decodeErr := decodeRecord(v)
			if decodeErr != nil {
				return decodeErr
			}
			items = append(items, rec)
			return nil
		})
	})
	if err != nil {
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
	now := r.getUTC()
	stored := record.Record{
		ID:         id,
		Attributes: newRecord.Attributes,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(now),
			UpdatedAt: metadata.UpdatedAt(now),
			Version:   metadata.GenerateVersion(),
		},
	}
	encoded, err := json.Marshal(toPersistedRecord(&stored))
	if err != nil {
		return nil, err
	}

	err = r.db.Update(func(tx *bbolt.Tx) error {
		bucket, txErr := tx.CreateBucketIfNotExists(bucketKey(tableName))
		if txErr != nil {
			return txErr
		}
		if existing := bucket.Get([]byte(id)); existing != nil {
			current, decodeErr := decodeRecord(existing)
			if decodeErr != nil {
				return decodeErr
			}
			return storage.AlreadyExists{ID: id, TableName: tableName, Current: current}
		}
		return bucket.Put([]byte(id), encoded)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *Repo) Read(ctx context.Context, tableName table.Name, id record.Id) (*record.Record, error) {
	var read *record.Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := getRaw(tx, tableName, id)
		if data == nil {
			return storage.NotFound{ID: id, TableName: tableName}
		}
		var decodeErr error
		read, decodeErr = decodeRecord(data)
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	return read, nil
}

func (r *Repo) Replace(ctx context.Context, tableName table.Name, rec *record.Record, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	var stored record.Record
	err := r.db.Update(func(tx *bbolt.Tx) error {
		data := getRaw(tx, tableName, rec.ID)
		if data == nil {
			return storage.NotFound{ID: rec.ID, TableName: tableName}
		}
		current, decodeErr := decodeRecord(data)
		if decodeErr != nil {
			return decodeErr
		}
		if expectedVersion != nil && string(current.Metadata.Version) != expectedVersion.Version {
			return storage.InvalidVersion{ID: rec.ID, TableName: tableName, Current: current}
		}
		stored = record.Record{
			ID:         rec.ID,
			Attributes: rec.Attributes,
			Deleted:    rec.Deleted,
			Metadata: metadata.Metadata{
				CreatedAt: current.Metadata.CreatedAt,
				UpdatedAt: metadata.UpdatedAt(r.getUTC()),
				Version:   metadata.GenerateVersion(),
			},
		}
		encoded, encodeErr := json.Marshal(toPersistedRecord(&stored))
		if encodeErr != nil {
			return encodeErr
		}
		return tx.Bucket(bucketKey(tableName)).Put([]byte(rec.ID), encoded)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *Repo) Delete(ctx context.Context, tableName table.Name, id record.Id, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	var removed *record.Record
	err := r.db.Update(func(tx *bbolt.Tx) error {
		data := getRaw(tx, tableName, id)
		if data == nil {
			return storage.NotFound{ID: id, TableName: tableName}
		}
		current, decodeErr := decodeRecord(data)
		if decodeErr != nil {
			return decodeErr
		}
		if expectedVersion != nil && string(current.Metadata.Version) != expectedVersion.Version {
			return storage.InvalidVersion{ID: id, TableName: tableName, Current: current}
		}
		removed = current
		return tx.Bucket(bucketKey(tableName)).Delete([]byte(id))
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *Repo) Check(ctx context.Context) error {
	return r.db.View(func(tx *bbolt.Tx) error {
		return nil
	})
}

func bucketKey(tableName table.Name) []byte {
	return []byte(tableName)
}

func getRaw(tx *bbolt.Tx, tableName table.Name, id record.Id) []byte {
	bucket := tx.Bucket(bucketKey(tableName))
	if bucket == nil {
		return nil
	}
	return bucket.Get([]byte(id))
}

// Private persistence structures based entirely on basic types for ease of
// guaranteeing serdes.

type persistedRecord struct {
	ID         string                 `json:"id"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Deleted    bool                   `json:"deleted"`
	Version    string                 `json:"version"`
	Metadata   persistedMetadata      `json:"metadata"`
}

type persistedMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPersistedRecord(rec *record.Record) persistedRecord {
	return persistedRecord{
		ID:         string(rec.ID),
		Attributes: rec.Attributes,
		Deleted:    rec.Deleted,
		Version:    string(rec.Metadata.Version),
		Metadata: persistedMetadata{
			CreatedAt: time.Time(rec.Metadata.CreatedAt),
			UpdatedAt: time.Time(rec.Metadata.UpdatedAt),
		},
	}
}

func (p *persistedRecord) toDomainRecord() record.Record {
	return record.Record{
		ID:         record.Id(p.ID),
		Attributes: p.Attributes,
		Deleted:    p.Deleted,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(p.Metadata.CreatedAt),
			UpdatedAt: metadata.UpdatedAt(p.Metadata.UpdatedAt),
			Version:   metadata.Version(p.Version),
		},
	}
}

func decodeRecord(data []byte) (*record.Record, error) {
	var persisted persistedRecord
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, storage.InvalidPersistedData{PersistedData: string(data)}
	}
	domain := persisted.toDomainRecord()
	return &domain, nil
}
