package logging

import (
	"sort"
	"sync"
	"sync/atomic"
)

const (
	metricEventsPrefix  = "logging_events_total:"
	metricEventsDropped = "logging_events_dropped_total"
)

// Metrics is a concurrent map of named counters and gauges. The zero value
// is ready to use.
type Metrics struct {
	values sync.Map // string -> *atomic.Uint64
}

func (m *Metrics) slot(key string) *atomic.Uint64 {
	if existing, ok := m.values.Load(key); ok {
		return existing.(*atomic.Uint64)
	}
	actual, _ := m.values.LoadOrStore(key, new(atomic.Uint64))
	return actual.(*atomic.Uint64)
}

// Add increments a counter.
func (m *Metrics) Add(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Add(delta)
}

// Store sets a gauge.
func (m *Metrics) Store(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Store(value)
}

// Load returns the current value of a metric.
func (m *Metrics) Load(key string) uint64 {
	if m == nil {
		return 0
	}
	existing, ok := m.values.Load(key)
	if !ok {
		return 0
	}
	return existing.(*atomic.Uint64).Load()
}

// Snapshot copies every metric.
func (m *Metrics) Snapshot() map[string]uint64 {
	snapshot := make(map[string]uint64)
	if m == nil {
		return snapshot
	}
	m.values.Range(func(key, value any) bool {
		snapshot[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return snapshot
}

// Keys lists metric names in sorted order.
func (m *Metrics) Keys() []string {
	snapshot := m.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
