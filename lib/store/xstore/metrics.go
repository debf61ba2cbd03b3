package xstore

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// operation names used as metric labels
const (
	opCreate        = "create"
	opGetByID       = "get_by_id"
	opGetByKey      = "get_by_key"
	opGetByProperty = "get_by_property"
	opFilter        = "filter"
	opSetByID       = "set_by_id"
	opSetByKey      = "set_by_key"
	opRemoveByID    = "remove_by_id"
	opRemoveByKey   = "remove_by_key"
)

// storeMetrics holds the metrics of one store.
//
// Thread-safety: All counters and gauges are safe for concurrent use.
type storeMetrics struct {
	set           *metrics.Set
	ops           map[string]*metrics.Counter
	flushes       *metrics.Counter
	flushErrors   *metrics.Counter
	flushDuration *metrics.Histogram

	// read by the callback gauges registered for this store
	records       atomic.Int64
	snapshotBytes atomic.Int64
}

// gaugeMu serializes the replacement of callback gauges across stores.
var gaugeMu sync.Mutex

func newStoreMetrics(set *metrics.Set, path string) *storeMetrics {
	label := fmt.Sprintf("store=%q", filepath.Base(path))

	m := &storeMetrics{
		set:           set,
		ops:           make(map[string]*metrics.Counter),
		flushes:       set.GetOrCreateCounter(fmt.Sprintf("xdb_flushes_total{%s}", label)),
		flushErrors:   set.GetOrCreateCounter(fmt.Sprintf("xdb_flush_errors_total{%s}", label)),
		flushDuration: set.GetOrCreateHistogram(fmt.Sprintf("xdb_flush_duration_seconds{%s}", label)),
	}

	for _, op := range []string{
		opCreate, opGetByID, opGetByKey, opGetByProperty, opFilter,
		opSetByID, opSetByKey, opRemoveByID, opRemoveByKey,
	} {
		m.ops[op] = set.GetOrCreateCounter(fmt.Sprintf("xdb_operations_total{%s,op=%q}", label, op))
	}

	// a store reopened in the same set takes the gauges over from its predecessor
	m.replaceGauge(fmt.Sprintf("xdb_records{%s}", label), &m.records)
	m.replaceGauge(fmt.Sprintf("xdb_snapshot_bytes{%s}", label), &m.snapshotBytes)

	return m
}

// replaceGauge registers a gauge reading v under name, dropping any gauge
// previously registered under that name.
func (m *storeMetrics) replaceGauge(name string, v *atomic.Int64) {
	gaugeMu.Lock()
	defer gaugeMu.Unlock()

	m.set.UnregisterMetric(name)
	m.set.NewGauge(name, func() float64 {
		return float64(v.Load())
	})
}

// op counts one call of the named operation.
func (m *storeMetrics) op(name string) {
	if c, ok := m.ops[name]; ok {
		c.Inc()
	}
}

// WritePrometheus writes the metrics of the store in Prometheus text format.
func (s *Store) WritePrometheus(w io.Writer) {
	s.metrics.set.WritePrometheus(w)
}
