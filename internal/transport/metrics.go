// Copyright 2025 Joseph Cumines
//
// In-memory request metrics exported in Prometheus text format

package transport

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// MetricsRegistry collects request counters, latency histograms, and
// connection gauges for the HTTP transport, and renders them in Prometheus
// text exposition format on /metrics. It is deliberately dependency-free:
// the server has a single scrape surface and no push requirements.
type MetricsRegistry struct {
	mu        sync.RWMutex
	counters  map[string]map[string]uint64  // name -> label combo -> count
	gauges    map[string]float64            // name -> value
	latencies map[string]*latencyHistogram  // name -> histogram
}

type latencyHistogram struct {
	buckets []float64 // upper bounds, seconds
	counts  []uint64
	sum     float64
	total   uint64
}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

// NewMetricsRegistry returns an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters:  make(map[string]map[string]uint64),
		gauges:    make(map[string]float64),
		latencies: make(map[string]*latencyHistogram),
	}
}

// IncCounter increments a labeled counter.
func (m *MetricsRegistry) IncCounter(name, labels string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.counters[name]
	if c == nil {
		c = make(map[string]uint64)
		m.counters[name] = c
	}
	c[labels]++
}

// SetGauge sets a gauge value.
func (m *MetricsRegistry) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// AddGauge adjusts a gauge by delta.
func (m *MetricsRegistry) AddGauge(name string, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] += delta
}

// ObserveLatency records one request duration.
func (m *MetricsRegistry) ObserveLatency(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.latencies[name]
	if h == nil {
		h = &latencyHistogram{
			buckets: latencyBuckets,
			counts:  make([]uint64, len(latencyBuckets)),
		}
		m.latencies[name] = h
	}
	secs := d.Seconds()
	h.sum += secs
	h.total++
	for i, bound := range h.buckets {
		if secs <= bound {
			h.counts[i]++
		}
	}
}

// WriteTo renders the registry in Prometheus text format. Output order is
// deterministic for test stability.
func (m *MetricsRegistry) WriteTo(w io.Writer) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var written int64
	emit := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		written += int64(n)
		return err
	}

	for _, name := range sortedKeys(m.counters) {
		if err := emit("# TYPE %s counter\n", name); err != nil {
			return written, err
		}
		combos := m.counters[name]
		for _, labels := range sortedKeys(combos) {
			if labels == "" {
				if err := emit("%s %d\n", name, combos[labels]); err != nil {
					return written, err
				}
				continue
			}
			if err := emit("%s{%s} %d\n", name, labels, combos[labels]); err != nil {
				return written, err
			}
		}
	}

	gaugeNames := make([]string, 0, len(m.gauges))
	for name := range m.gauges {
		gaugeNames = append(gaugeNames, name)
	}
	sort.Strings(gaugeNames)
	for _, name := range gaugeNames {
		if err := emit("# TYPE %s gauge\n%s %g\n", name, name, m.gauges[name]); err != nil {
			return written, err
		}
	}

	for _, name := range sortedKeys(m.latencies) {
		h := m.latencies[name]
		if err := emit("# TYPE %s histogram\n", name); err != nil {
			return written, err
		}
		for i, bound := range h.buckets {
			if err := emit("%s_bucket{le=%q} %d\n", name, fmt.Sprintf("%g", bound), h.counts[i]); err != nil {
				return written, err
			}
		}
		if err := emit("%s_bucket{le=\"+Inf\"} %d\n%s_sum %g\n%s_count %d\n",
			name, h.total, name, h.sum, name, h.total); err != nil {
			return written, err
		}
	}
	return written, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
