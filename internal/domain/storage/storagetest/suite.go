// storagetest holds a Repository conformance suite. Every storage backend
// runs it against a fresh instance of itself, so the contract stays uniform
// no matter what sits underneath.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/domain/table"
)

const testTable = table.Name("todoitem")

// RunConformance exercises the whole Repository contract. Each subtest gets
// a fresh Repository from makeRepo.
func RunConformance(t *testing.T, makeRepo func(t *testing.T) storage.Repository) {
	ctx := context.Background()

	t.Run("create generates an id when the caller assigns none", func(t *testing.T) {
		repo := makeRepo(t)
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			Attributes: record.Attributes{"title": "get milk"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.NotEmpty(t, created.Metadata.Version)
		assert.False(t, created.Deleted)
		assert.True(t, time.Time(created.Metadata.CreatedAt).Equal(time.Time(created.Metadata.UpdatedAt)))
		assert.EqualValues(t, "get milk", created.Attributes["title"])
	})

	t.Run("create keeps a caller-assigned id", func(t *testing.T) {
		repo := makeRepo(t)
		id := record.Id("my-own-id")
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			ID:         &id,
			Attributes: record.Attributes{"title": "get milk"},
		})
		require.NoError(t, err)
		assert.EqualValues(t, id, created.ID)
	})

	t.Run("create with a duplicate id returns the current record", func(t *testing.T) {
		repo := makeRepo(t)
		id := record.Id("dupe")
		_, err := repo.Create(ctx, testTable, &record.NewRecord{
			ID:         &id,
			Attributes: record.Attributes{"title": "first"},
		})
		require.NoError(t, err)

		_, err = repo.Create(ctx, testTable, &record.NewRecord{
			ID:         &id,
			Attributes: record.Attributes{"title": "second"},
		})
		require.Error(t, err)
		alreadyExists, ok := err.(storage.AlreadyExists)
		require.True(t, ok, "expected AlreadyExists, got [%v]", err)
		assert.EqualValues(t, id, alreadyExists.ID)
		require.NotNil(t, alreadyExists.Current)
		assert.EqualValues(t, "first", alreadyExists.Current.Attributes["title"])
	})

	t.Run("create conflicts against soft-deleted records too", func(t *testing.T) {
		repo := makeRepo(t)
		id := record.Id("buried")
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			ID:         &id,
			Attributes: record.Attributes{"title": "first"},
		})
		require.NoError(t, err)
		buried := created.Clone()
		buried.Deleted = true
		_, err = repo.Replace(ctx, testTable, buried, nil)
		require.NoError(t, err)

		_, err = repo.Create(ctx, testTable, &record.NewRecord{ID: &id})
		require.Error(t, err)
		alreadyExists, ok := err.(storage.AlreadyExists)
		require.True(t, ok, "expected AlreadyExists, got [%v]", err)
		require.NotNil(t, alreadyExists.Current)
		assert.True(t, alreadyExists.Current.Deleted)
	})

	t.Run("read returns what create persisted", func(t *testing.T) {
		repo := makeRepo(t)
		attributes := record.Attributes{
			"title":    "get milk",
			"priority": float64(3),
			"done":     false,
			"notes":    nil,
			"tags":     []interface{}{"errand", "shopping"},
			"extra":    map[string]interface{}{"store": "corner"},
		}
		created, err := repo.Create(ctx, testTable, &record.NewRecord{Attributes: attributes})
		require.NoError(t, err)

		read, err := repo.Read(ctx, testTable, created.ID)
		require.NoError(t, err)
		assert.EqualValues(t, created.ID, read.ID)
		assert.EqualValues(t, created.Metadata.Version, read.Metadata.Version)
		assert.EqualValues(t, attributes, read.Attributes)
		assert.True(t, time.Time(created.Metadata.CreatedAt).Equal(time.Time(read.Metadata.CreatedAt)))
	})

	t.Run("read of a missing id", func(t *testing.T) {
		repo := makeRepo(t)
		_, err := repo.Read(ctx, testTable, "no-such-id")
		require.Error(t, err)
		notFound, ok := err.(storage.NotFound)
		require.True(t, ok, "expected NotFound, got [%v]", err)
		assert.EqualValues(t, "no-such-id", notFound.ID)
		assert.EqualValues(t, testTable, notFound.TableName)
	})

	t.Run("read returns soft-deleted records", func(t *testing.T) {
		repo := makeRepo(t)
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			Attributes: record.Attributes{"title": "get milk"},
		})
		require.NoError(t, err)
		buried := created.Clone()
		buried.Deleted = true
		_, err = repo.Replace(ctx, testTable, buried, nil)
		require.NoError(t, err)

		read, err := repo.Read(ctx, testTable, created.ID)
		require.NoError(t, err)
		assert.True(t, read.Deleted)
	})

	t.Run("replace overwrites attributes and regenerates the version", func(t *testing.T) {
		repo := makeRepo(t)
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			Attributes: record.Attributes{"title": "get milk", "priority": float64(3)},
		})
		require.NoError(t, err)

		incoming := &record.Record{
			ID:         created.ID,
			Attributes: record.Attributes{"title": "get oat milk"},
		}
		replaced, err := repo.Replace(ctx, testTable, incoming, nil)
		require.NoError(t, err)
		assert.EqualValues(t, record.Attributes{"title": "get oat milk"}, replaced.Attributes)
		assert.NotEqualValues(t, created.Metadata.Version, replaced.Metadata.Version)
		assert.True(t, time.Time(created.Metadata.CreatedAt).Equal(time.Time(replaced.Metadata.CreatedAt)))
		assert.False(t, time.Time(replaced.Metadata.UpdatedAt).Before(time.Time(created.Metadata.UpdatedAt)))

		read, err := repo.Read(ctx, testTable, created.ID)
		require.NoError(t, err)
		assert.EqualValues(t, replaced.Attributes, read.Attributes)
		assert.EqualValues(t, replaced.Metadata.Version, read.Metadata.Version)
	})

	t.Run("replace of a missing id", func(t *testing.T) {
		repo := makeRepo(t)
		_, err := repo.Replace(ctx, testTable, &record.Record{ID: "no-such-id"}, nil)
		require.Error(t, err)
		_, ok := err.(storage.NotFound)
		assert.True(t, ok, "expected NotFound, got [%v]", err)
	})

	t.Run("replace with the matching expected version", func(t *testing.T) {
		repo := makeRepo(t)
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			Attributes: record.Attributes{"title": "get milk"},
		})
		require.NoError(t, err)

		_, err = repo.Replace(ctx, testTable, created.Clone(), &storage.ExpectedVersion{
			Version: string(created.Metadata.Version),
		})
		assert.NoError(t, err)
	})

	t.Run("replace with a stale expected version", func(t *testing.T) {
		repo := makeRepo(t)
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			Attributes: record.Attributes{"title": "get milk"},
		})
		require.NoError(t, err)
		updated := created.Clone()
		updated.Attributes = record.Attributes{"title": "current truth"}
		latest, err := repo.Replace(ctx, testTable, updated, nil)
		require.NoError(t, err)

		stale := created.Clone()
		stale.Attributes = record.Attributes{"title": "stale write"}
		_, err = repo.Replace(ctx, testTable, stale, &storage.ExpectedVersion{
			Version: string(created.Metadata.Version),
		})
		require.Error(t, err)
		invalidVersion, ok := err.(storage.InvalidVersion)
		require.True(t, ok, "expected InvalidVersion, got [%v]", err)
		require.NotNil(t, invalidVersion.Current)
		assert.EqualValues(t, "current truth", invalidVersion.Current.Attributes["title"])

		read, err := repo.Read(ctx, testTable, created.ID)
		require.NoError(t, err)
		assert.EqualValues(t, latest.Metadata.Version, read.Metadata.Version)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		repo := makeRepo(t)
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			Attributes: record.Attributes{"title": "get milk"},
		})
		require.NoError(t, err)

		removed, err := repo.Delete(ctx, testTable, created.ID, nil)
		require.NoError(t, err)
		assert.EqualValues(t, created.ID, removed.ID)

		_, err = repo.Read(ctx, testTable, created.ID)
		require.Error(t, err)
		_, ok := err.(storage.NotFound)
		assert.True(t, ok, "expected NotFound, got [%v]", err)
	})

	t.Run("delete with a stale expected version", func(t *testing.T) {
		repo := makeRepo(t)
		created, err := repo.Create(ctx, testTable, &record.NewRecord{
			Attributes: record.Attributes{"title": "get milk"},
		})
		require.NoError(t, err)
		_, err = repo.Replace(ctx, testTable, created.Clone(), nil)
		require.NoError(t, err)

		_, err = repo.Delete(ctx, testTable, created.ID, &storage.ExpectedVersion{
			Version: string(created.Metadata.Version),
		})
		require.Error(t, err)
		_, ok := err.(storage.InvalidVersion)
		assert.True(t, ok, "expected InvalidVersion, got [%v]", err)

		_, err = repo.Read(ctx, testTable, created.ID)
		assert.NoError(t, err)
	})

	t.Run("delete of a missing id", func(t *testing.T) {
		repo := makeRepo(t)
		_, err := repo.Delete(ctx, testTable, "no-such-id", nil)
		require.Error(t, err)
		_, ok := err.(storage.NotFound)
		assert.True(t, ok, "expected NotFound, got [%v]", err)
	})

	t.Run("records are detached copies", func(t *testing.T) {
		repo := makeRepo(t)
		attributes := record.Attributes{"title": "get milk"}
		created, err := repo.Create(ctx, testTable, &record.NewRecord{Attributes: attributes})
		require.NoError(t, err)

		// neither the caller's map nor the returned record alias stored state
		attributes["title"] = "mutated input"
		created.Attributes["title"] = "mutated output"

		read, err := repo.Read(ctx, testTable, created.ID)
		require.NoError(t, err)
		assert.EqualValues(t, "get milk", read.Attributes["title"])
	})

	t.Run("query", func(t *testing.T) {
		runQueryConformance(ctx, t, makeRepo)
	})

	t.Run("tables are isolated", func(t *testing.T) {
		repo := makeRepo(t)
		other := table.Name("auditlog")
		id := record.Id("shared-id")
		_, err := repo.Create(ctx, testTable, &record.NewRecord{
			ID:         &id,
			Attributes: record.Attributes{"title": "in todoitem"},
		})
		require.NoError(t, err)
		_, err = repo.Create(ctx, other, &record.NewRecord{
			ID:         &id,
			Attributes: record.Attributes{"title": "in auditlog"},
		})
		require.NoError(t, err)

		_, err = repo.Delete(ctx, testTable, id, nil)
		require.NoError(t, err)

		read, err := repo.Read(ctx, other, id)
		require.NoError(t, err)
		assert.EqualValues(t, "in auditlog", read.Attributes["title"])

		page, err := repo.Query(ctx, other, query.Spec{})
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("check", func(t *testing.T) {
		repo := makeRepo(t)
		assert.NoError(t, repo.Check(ctx))
	})
}

// runQueryConformance seeds one table with a known set of records, then runs
// the Spec combinations every backend has to agree on.
//
// Seeded shape, in title order:
//
//	a: priority 1, done true
//	b: priority 4, done false
//	c: priority 2, done false, soft-deleted
//	d: priority 5, done true
//	e: no priority, done false
func runQueryConformance(ctx context.Context, t *testing.T, makeRepo func(t *testing.T) storage.Repository) {
	seed := func(t *testing.T) storage.Repository {
		repo := makeRepo(t)
		rows := []struct {
			id     string
			attrs  record.Attributes
			buried bool
		}{
			{"a", record.Attributes{"title": "a", "priority": float64(1), "done": true}, false},
			{"b", record.Attributes{"title": "b", "priority": float64(4), "done": false}, false},
			{"c", record.Attributes{"title": "c", "priority": float64(2), "done": false}, true},
			{"d", record.Attributes{"title": "d", "priority": float64(5), "done": true}, false},
			{"e", record.Attributes{"title": "e", "done": false}, false},
		}
		for _, row := range rows {
			id := record.Id(row.id)
			created, err := repo.Create(ctx, testTable, &record.NewRecord{ID: &id, Attributes: row.attrs})
			require.NoError(t, err)
			if row.buried {
				buried := created.Clone()
				buried.Deleted = true
				_, err = repo.Replace(ctx, testTable, buried, nil)
				require.NoError(t, err)
			}
		}
		return repo
	}

	ids := func(page *query.Page) []string {
		out := make([]string, 0, len(page.Items))
		for i := range page.Items {
			out = append(out, string(page.Items[i].ID))
		}
		return out
	}

	t.Run("an empty spec returns everything including soft-deleted", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Sort: []query.Sort{{Field: "title"}},
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"a", "b", "c", "d", "e"}, ids(page))
		assert.Nil(t, page.TotalCount)
	})

	t.Run("filter on the deleted flag", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Where: query.Where(record.FieldDeleted, query.Equals, false),
			Sort:  []query.Sort{{Field: "title"}},
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"a", "b", "d", "e"}, ids(page))
	})

	t.Run("filter on a string attribute", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Where: query.Where("title", query.Equals, "b"),
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"b"}, ids(page))
	})

	t.Run("filter on a numeric range", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Where: query.Where("priority", query.GreaterThan, float64(2)),
			Sort:  []query.Sort{{Field: "title"}},
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"b", "d"}, ids(page))
	})

	t.Run("filter on a boolean attribute", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Where: query.Where("done", query.Equals, true),
			Sort:  []query.Sort{{Field: "title"}},
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"a", "d"}, ids(page))
	})

	t.Run("filter on a text prefix", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Where: query.StartsWith("title", "b"),
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"b"}, ids(page))
	})

	t.Run("composite and-or-not filters", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Where: query.And(
				query.Where(record.FieldDeleted, query.Equals, false),
				query.Or(
					query.Where("priority", query.GreaterThanOrEqual, float64(4)),
					query.Not(query.Where("done", query.Equals, false)),
				),
			),
			Sort: []query.Sort{{Field: "title"}},
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"a", "b", "d"}, ids(page))
	})

	t.Run("sort descending with records missing the field last", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Sort: []query.Sort{{Field: "priority", Descending: true}},
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"d", "b", "c", "a", "e"}, ids(page))
	})

	t.Run("sort ascending with records missing the field last", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Sort: []query.Sort{{Field: "priority"}},
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"a", "c", "b", "d", "e"}, ids(page))
	})

	t.Run("skip and top page through a sorted listing", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Sort: []query.Sort{{Field: "title"}},
			Skip: 1,
			Top:  2,
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"b", "c"}, ids(page))
	})

	t.Run("skip past the end", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{Skip: 50})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("count covers all matches regardless of paging", func(t *testing.T) {
		repo := seed(t)
		page, err := repo.Query(ctx, testTable, query.Spec{
			Where:     query.Where(record.FieldDeleted, query.Equals, false),
			Sort:      []query.Sort{{Field: "title"}},
			Skip:      1,
			Top:       2,
			WithCount: true,
		})
		require.NoError(t, err)
		assert.EqualValues(t, []string{"b", "d"}, ids(page))
		require.NotNil(t, page.TotalCount)
		assert.EqualValues(t, 4, *page.TotalCount)
	})

	t.Run("querying an empty table", func(t *testing.T) {
		repo := makeRepo(t)
		page, err := repo.Query(ctx, testTable, query.Spec{WithCount: true})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		require.NotNil(t, page.TotalCount)
		assert.EqualValues(t, 0, *page.TotalCount)
	})
}
