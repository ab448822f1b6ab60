package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
)

// Exporter provides engine metrics in Prometheus/OpenMetrics text format.
type Exporter struct {
	mu sync.RWMutex

	// query counters: operation -> status -> count
	queriesTotal map[string]map[string]uint64

	// query durations per operation (seconds, last 1000 kept)
	queryDurations map[string][]float64

	// error counters by classifier category
	errorsTotal map[lqerrors.ErrorCategory]uint64

	retriesTotal     uint64
	cacheHitsTotal   uint64
	cacheMissesTotal uint64
}

// NewExporter creates a metrics exporter.
func NewExporter() *Exporter {
	return &Exporter{
		queriesTotal:   make(map[string]map[string]uint64),
		queryDurations: make(map[string][]float64),
		errorsTotal:    make(map[lqerrors.ErrorCategory]uint64),
	}
}

// RecordQuery records one query with its status and duration.
func (e *Exporter) RecordQuery(operation, status string, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queriesTotal[operation] == nil {
		e.queriesTotal[operation] = make(map[string]uint64)
	}
	e.queriesTotal[operation][status]++

	durations := append(e.queryDurations[operation], duration.Seconds())
	if len(durations) > 1000 {
		durations = durations[len(durations)-1000:]
	}
	e.queryDurations[operation] = durations
}

// RecordError records an error occurrence by category.
func (e *Exporter) RecordError(category lqerrors.ErrorCategory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorsTotal[category]++
}

// RecordRetry records one retried attempt.
func (e *Exporter) RecordRetry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retriesTotal++
}

// SetCacheStats overwrites the translation cache counters.
func (e *Exporter) SetCacheStats(hits, misses uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cacheHitsTotal = hits
	e.cacheMissesTotal = misses
}

// Export returns metrics in Prometheus/OpenMetrics format. Series are sorted
// so successive exports are comparable.
func (e *Exporter) Export() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var sb strings.Builder

	sb.WriteString("# HELP lazyq_queries_total Total number of queries by operation and status\n")
	sb.WriteString("# TYPE lazyq_queries_total counter\n")
	for _, operation := range sortedKeys(e.queriesTotal) {
		statuses := e.queriesTotal[operation]
		for _, status := range sortedKeys(statuses) {
			fmt.Fprintf(&sb, "lazyq_queries_total{operation=%q,status=%q} %d\n",
				operation, status, statuses[status])
		}
	}

	sb.WriteString("# HELP lazyq_query_duration_seconds Query duration in seconds\n")
	sb.WriteString("# TYPE lazyq_query_duration_seconds summary\n")
	for _, operation := range sortedKeys(e.queryDurations) {
		durations := e.queryDurations[operation]
		if len(durations) == 0 {
			continue
		}
		var sum float64
		min, max := durations[0], durations[0]
		for _, d := range durations {
			sum += d
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
		avg := sum / float64(len(durations))
		fmt.Fprintf(&sb, "lazyq_query_duration_seconds{operation=%q,quantile=\"0\"} %f\n", operation, min)
		fmt.Fprintf(&sb, "lazyq_query_duration_seconds{operation=%q,quantile=\"0.5\"} %f\n", operation, avg)
		fmt.Fprintf(&sb, "lazyq_query_duration_seconds{operation=%q,quantile=\"1\"} %f\n", operation, max)
		fmt.Fprintf(&sb, "lazyq_query_duration_seconds_sum{operation=%q} %f\n", operation, sum)
		fmt.Fprintf(&sb, "lazyq_query_duration_seconds_count{operation=%q} %d\n", operation, len(durations))
	}

	sb.WriteString("# HELP lazyq_errors_total Total number of errors by category\n")
	sb.WriteString("# TYPE lazyq_errors_total counter\n")
	categories := make([]int, 0, len(e.errorsTotal))
	for category := range e.errorsTotal {
		categories = append(categories, int(category))
	}
	sort.Ints(categories)
	for _, category := range categories {
		cat := lqerrors.ErrorCategory(category)
		fmt.Fprintf(&sb, "lazyq_errors_total{category=%q} %d\n", categoryString(cat), e.errorsTotal[cat])
	}

	sb.WriteString("# HELP lazyq_retries_total Total number of retried query attempts\n")
	sb.WriteString("# TYPE lazyq_retries_total counter\n")
	fmt.Fprintf(&sb, "lazyq_retries_total %d\n", e.retriesTotal)

	sb.WriteString("# HELP lazyq_translation_cache_hits_total Translation cache hits\n")
	sb.WriteString("# TYPE lazyq_translation_cache_hits_total counter\n")
	fmt.Fprintf(&sb, "lazyq_translation_cache_hits_total %d\n", e.cacheHitsTotal)

	sb.WriteString("# HELP lazyq_translation_cache_misses_total Translation cache misses\n")
	sb.WriteString("# TYPE lazyq_translation_cache_misses_total counter\n")
	fmt.Fprintf(&sb, "lazyq_translation_cache_misses_total %d\n", e.cacheMissesTotal)

	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// categoryString converts ErrorCategory to string.
func categoryString(category lqerrors.ErrorCategory) string {
	switch category {
	case lqerrors.ErrorTransient:
		return "transient"
	case lqerrors.ErrorPermanent:
		return "permanent"
	case lqerrors.ErrorValidation:
		return "validation"
	case lqerrors.ErrorNetwork:
		return "network"
	case lqerrors.ErrorTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
