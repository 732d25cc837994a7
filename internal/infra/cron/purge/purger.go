package purge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/domain/table"
	"github.com/taules/taules/internal/domain/tracing"
	"github.com/taules/taules/internal/infra/metrics"
)

// batchSize caps how many tombstones a single query pulls back; a run loops
// until a short page comes back.
const batchSize = 500

// Retention describes how long one table keeps soft-deleted records around
// before they are removed for good.
type Retention struct {
	Table     table.Name
	OlderThan time.Duration
}

// Purger periodically hard-deletes records that were soft-deleted longer ago
// than their table's retention. Runs are idempotent, so running one Purger
// per server instance is fine.
type Purger interface {
	Start()
	Stop()
}

type purgerImpl struct {
	cron *cron.Cron

	repo storage.Repository

	retentions []Retention

	tracer tracing.Tracer

	appMetrics *metrics.Metrics

	mu sync.Mutex

	getUTC func() time.Time // for mocking
}

// NewPurger returns a Purger that sweeps all given retentions on the given
// interval, delegating the timer to the standard robfig/cron.
func NewPurger(repo storage.Repository, retentions []Retention, runInterval time.Duration, tracer tracing.Tracer, appMetrics *metrics.Metrics) Purger {
	impl := &purgerImpl{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		repo:       repo,
		retentions: retentions,
		tracer:     tracer,
		appMetrics: appMetrics,
		mu:         sync.Mutex{},
		getUTC: func() time.Time {
			return time.Now().UTC()
		},
	}
	job := cron.NewChain(
		cron.Recover(zeroLogCronLogger{}),
		cron.SkipIfStillRunning(zeroLogCronLogger{}),
	).Then(cron.FuncJob(impl.runOnce))
	impl.cron.Schedule(cron.Every(runInterval), job)
	return impl
}

func (i *purgerImpl) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cron.Start()
}

func (i *purgerImpl) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cron.Stop()
}

func (i *purgerImpl) runOnce() {
	tx := i.tracer.BackgroundTx("purge-soft-deleted")
	ctx := tx.Context()
	defer tx.End()
	for _, retention := range i.retentions {
		purged, err := i.purgeTable(ctx, retention)
		if err != nil {
			log.Error().
				Err(err).
				Str("table", string(retention.Table)).
				Msg("Failed to purge soft-deleted records")
			i.appMetrics.RecordPurgeFailure()
			continue
		}
		if purged > 0 && log.Info().Enabled() {
			log.Info().
				Str("table", string(retention.Table)).
				Uint("purged", purged).
				Msg("Purged soft-deleted records")
		}
		i.appMetrics.RecordPurgedRecords(string(retention.Table), int(purged))
	}
}

// purgeTable removes tombstones older than the table's cutoff, page by page.
// UpdatedAt doubles as the tombstone time because a soft delete rewrites it.
// Every delete is conditional on the version seen in the query, so a record
// resurrected or touched in between is left alone; such a record no longer
// matches the cutoff either, so the loop always advances.
func (i *purgerImpl) purgeTable(ctx context.Context, retention Retention) (uint, error) {
	cutoff := i.getUTC().Add(-retention.OlderThan)
	spec := query.Spec{
		Where: query.And(
			query.Where(record.FieldDeleted, query.Equals, true),
			query.Where(record.FieldUpdatedAt, query.LessThan, cutoff),
		),
		Top: batchSize,
	}
	var purged uint
	for {
		page, err := i.repo.Query(ctx, retention.Table, spec)
		if err != nil {
			return purged, err
		}
		for idx := range page.Items {
			tombstone := &page.Items[idx]
			expected := storage.ExpectedVersion{Version: string(tombstone.Metadata.Version)}
			if _, err := i.repo.Delete(ctx, retention.Table, tombstone.ID, &expected); err != nil {
				var notFound storage.NotFound
				var invalidVersion storage.InvalidVersion
				if errors.As(err, &notFound) || errors.As(err, &invalidVersion) {
					continue
				}
				return purged, err
			}
			purged++
		}
		if uint(len(page.Items)) < batchSize {
			return purged, nil
		}
	}
}

type zeroLogCronLogger struct {
}

func (z zeroLogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	if log.Info().Enabled() {
		formatted := formatTimeValues(keysAndValues)
		log.Info().Fields(formatted).Msg(msg)
	}
}

func (z zeroLogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if log.Error().Enabled() {
		formatted := formatTimeValues(keysAndValues)
		log.Error().Err(err).Fields(formatted).Msg(msg)
	}
}

// formatTimeValues formats any time.Time values as RFC3339 *and*
// returns the even-odd idx key-value pair slice as a map
func formatTimeValues(keysAndValues []interface{}) map[string]interface{} {
	formattedArgs := make(map[string]interface{}, len(keysAndValues)/2)
	for idx := 0; idx < len(keysAndValues); idx += 2 {
		var key string
		if s, ok := keysAndValues[idx].(string); ok {
			key = s
		} else {
			key = fmt.Sprint(keysAndValues[idx])
		}
		valueIdx := idx + 1
		if len(keysAndValues) > valueIdx {
			value := keysAndValues[valueIdx]
			if t, ok := value.(time.Time); ok {
				value = t.Format(time.RFC3339)
			}
			formattedArgs[key] = value
		}
	}
	return formattedArgs
}
