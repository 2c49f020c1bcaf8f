package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodgram_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RecipeWrites counts recipe mutations by operation (create, update, delete).
	RecipeWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_recipe_writes_total",
		Help: "Total number of recipe writes",
	}, []string{"operation"})

	// RelationToggles counts favorite/cart/subscription changes.
	RelationToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_relation_toggles_total",
		Help: "Total number of relation add/remove operations",
	}, []string{"relation", "action"})

	// ShoppingListDownloads counts generated shopping lists.
	ShoppingListDownloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodgram_shopping_list_downloads_total",
		Help: "Total number of shopping lists downloaded",
	})

	// MediaUploadBytes records the size of decoded image uploads by kind.
	MediaUploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodgram_media_upload_bytes",
		Help:    "Size of decoded image uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
	}, []string{"kind"})

	// CacheLookups counts cache-aside lookups by cache name and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_cache_lookups_total",
		Help: "Total number of cache lookups",
	}, []string{"cache", "result"})
)

// DatabaseMetrics records query latency for a named repository.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a DatabaseMetrics bound to table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}
