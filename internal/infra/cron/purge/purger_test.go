package purge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"

	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/infra/apm/tracing"
	"github.com/taules/taules/internal/infra/metrics"
)

func testRetentions() []Retention {
	return []Retention{
		{Table: "todoitem", OlderThan: 24 * time.Hour},
	}
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

func tombstone(id record.Id, version string, updatedAt time.Time) record.Record {
	return record.Record{
		ID:      id,
		Deleted: true,
		Attributes: record.Attributes{
			"title": "done and dusted",
		},
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(updatedAt.Add(-time.Hour)),
			UpdatedAt: metadata.UpdatedAt(updatedAt),
			Version:   metadata.Version(version),
		},
	}
}

func buildPurger(repo storage.Repository) *purgerImpl {
	return &purgerImpl{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		repo:       repo,
		retentions: testRetentions(),
		tracer:     tracing.NoopTracer{},
		appMetrics: testMetrics(),
		mu:         sync.Mutex{},
		getUTC: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func Test_NewPurger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPurger(&storage.MockRepo{}, testRetentions(), time.Hour, tracing.NoopTracer{}, testMetrics())
	})
}

func Test_purgerImpl_runsOnInterval(t *testing.T) {
	queried := make(chan struct{})
	mockRepo := storage.MockRepo{
		QueryOverride: func() (*query.Page, error) {
			queried <- struct{}{}
			return &query.Page{}, nil
		},
	}
	purger := NewPurger(&mockRepo, testRetentions(), 1*time.Second, tracing.NoopTracer{}, testMetrics())
	purger.Start()
	select {
	case <-time.NewTicker(5 * time.Second).C:
		assert.Fail(t, "the purge never ran")
	case <-queried:
	}
	purger.Stop()
}

func Test_purgerImpl_purgeTable(t *testing.T) {
	frozenNow := time.Now().UTC()
	old := frozenNow.Add(-48 * time.Hour)
	mockRepo := storage.MockRepo{
		QueryOverride: func() (*query.Page, error) {
			return &query.Page{Items: []record.Record{
				tombstone("a", "v1", old),
				tombstone("b", "v2", old),
			}}, nil
		},
	}
	purger := buildPurger(&mockRepo)
	purger.getUTC = func() time.Time { return frozenNow }

	purged, err := purger.purgeTable(context.Background(), purger.retentions[0])
	assert.NoError(t, err)
	assert.EqualValues(t, 2, purged)
	assert.EqualValues(t, 1, mockRepo.QueryCalled)
	assert.EqualValues(t, 2, mockRepo.DeleteCalled)
	// deletes are conditional on the version the query saw
	if assert.NotNil(t, mockRepo.DeleteExpected) {
		assert.EqualValues(t, "v2", mockRepo.DeleteExpected.Version)
	}
	if assert.NotNil(t, mockRepo.QuerySpec) {
		assert.EqualValues(t, batchSize, mockRepo.QuerySpec.Top)
		assert.NotNil(t, mockRepo.QuerySpec.Where)
	}
}

func Test_purgerImpl_purgeTable_pagesThroughFullWindows(t *testing.T) {
	fullPage := make([]record.Record, batchSize)
	for i := range fullPage {
		fullPage[i] = tombstone(record.Id(string(rune('a'+i%26))), "v1", time.Now().UTC().Add(-48*time.Hour))
	}
	queries := 0
	mockRepo := storage.MockRepo{
		QueryOverride: func() (*query.Page, error) {
			queries++
			if queries == 1 {
				return &query.Page{Items: fullPage}, nil
			}
			return &query.Page{}, nil
		},
	}
	purger := buildPurger(&mockRepo)
	purged, err := purger.purgeTable(context.Background(), purger.retentions[0])
	assert.NoError(t, err)
	assert.EqualValues(t, batchSize, purged)
	assert.EqualValues(t, 2, mockRepo.QueryCalled)
}

func Test_purgerImpl_purgeTable_leavesChangedRecordsAlone(t *testing.T) {
	old := time.Now().UTC().Add(-48 * time.Hour)
	mockRepo := storage.MockRepo{
		QueryOverride: func() (*query.Page, error) {
			return &query.Page{Items: []record.Record{
				tombstone("resurrected", "stale", old),
				tombstone("still-dead", "v1", old),
			}}, nil
		},
	}
	deletes := 0
	mockRepo.DeleteOverride = func() (*record.Record, error) {
		deletes++
		if deletes == 1 {
			return nil, storage.InvalidVersion{ID: "resurrected", TableName: "todoitem"}
		}
		removed := tombstone("still-dead", "v1", old)
		return &removed, nil
	}
	purger := buildPurger(&mockRepo)
	purged, err := purger.purgeTable(context.Background(), purger.retentions[0])
	assert.NoError(t, err)
	assert.EqualValues(t, 1, purged)
	assert.EqualValues(t, 2, mockRepo.DeleteCalled)
}

func Test_purgerImpl_purgeTable_queryError(t *testing.T) {
	mockRepo := storage.MockRepo{
		QueryOverride: func() (*query.Page, error) {
			return nil, errors.New("backend is on fire")
		},
	}
	purger := buildPurger(&mockRepo)
	_, err := purger.purgeTable(context.Background(), purger.retentions[0])
	assert.Error(t, err)
}

func Test_purgerImpl_runOnce_metrics(t *testing.T) {
	old := time.Now().UTC().Add(-48 * time.Hour)
	mockRepo := storage.MockRepo{
		QueryOverride: func() (*query.Page, error) {
			return &query.Page{Items: []record.Record{tombstone("a", "v1", old)}}, nil
		},
	}
	purger := buildPurger(&mockRepo)
	purger.runOnce()
	assert.EqualValues(t, 1, testutil.ToFloat64(purger.appMetrics.PurgedRecords.WithLabelValues("todoitem")))
	assert.EqualValues(t, 0, testutil.ToFloat64(purger.appMetrics.PurgeFailures))
}

func Test_purgerImpl_runOnce_failureMetric(t *testing.T) {
	mockRepo := storage.MockRepo{
		QueryOverride: func() (*query.Page, error) {
			return nil, errors.New("backend is on fire")
		},
	}
	purger := buildPurger(&mockRepo)
	purger.runOnce()
	assert.EqualValues(t, 1, testutil.ToFloat64(purger.appMetrics.PurgeFailures))
}
