// metrics holds the Prometheus collectors for the server.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec   // table requests by table, method and status
	RequestDuration *prometheus.HistogramVec // table request latency in seconds
	PurgedRecords   *prometheus.CounterVec   // records removed by the purge job, by table
	PurgeFailures   prometheus.Counter       // purge runs that ended with an error
}

// NewMetrics initializes a Metrics instance, registering the collectors
// with the given registerer (nil means the default one).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taules_requests_total",
				Help: "Total number of table requests by table, method and status code",
			},
			[]string{"table", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "taules_request_duration_seconds",
				Help: "Table request latency in seconds",
				// 10ms to 10s
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"table", "method"},
		),
		PurgedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taules_purged_records_total",
				Help: "Total number of soft-deleted records removed by the purge job",
			},
			[]string{"table"},
		),
		PurgeFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "taules_purge_failures_total",
				Help: "Total number of purge runs that ended with an error",
			},
		),
	}
}

// RequestMiddleware observes every request passing through the table
// routes. The table label comes from the named route parameter, so
// cardinality stays bounded by the configured tables.
func (m *Metrics) RequestMiddleware(tableParamKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		table := c.Param(tableParamKey)
		if table == "" {
			table = "_meta"
		}
		m.RequestsTotal.WithLabelValues(table, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(table, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// RecordPurgedRecords adds to the purge counter for one table.
func (m *Metrics) RecordPurgedRecords(table string, count int) {
	m.PurgedRecords.WithLabelValues(table).Add(float64(count))
}

// RecordPurgeFailure increments the purge failure counter.
func (m *Metrics) RecordPurgeFailure() {
	m.PurgeFailures.Inc()
}
