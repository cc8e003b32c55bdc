// Package metrics provides Prometheus metrics for the local mint runtime.
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricType defines the type of a metric.
type MetricType string

const (
	// TypeCounter is a monotonically increasing counter.
	TypeCounter MetricType = "counter"
	// TypeGauge is a value that can go up and down.
	TypeGauge MetricType = "gauge"
	// TypeHistogram is a histogram with configurable buckets.
	TypeHistogram MetricType = "histogram"
)

// Metric is the interface for all metrics. Every metric is also a
// prometheus.Collector so it can be registered and scraped.
type Metric interface {
	prometheus.Collector
	Name() string
	Help() string
	Type() MetricType
}

// Counter is a thread-safe counter metric.
type Counter struct {
	name  string
	help  string
	desc  *prometheus.Desc
	value atomic.Uint64
}

// NewCounter creates a new counter metric.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help, desc: prometheus.NewDesc(name, help, nil, nil)}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(delta uint64) {
	c.value.Add(delta)
}

// Value returns the current counter value.
func (c *Counter) Value() uint64 {
	return c.value.Load()
}

// Name returns the metric name.
func (c *Counter) Name() string {
	return c.name
}

// Help returns the metric help text.
func (c *Counter) Help() string {
	return c.help
}

// Type returns the metric type.
func (c *Counter) Type() MetricType {
	return TypeCounter
}

// Describe implements prometheus.Collector.
func (c *Counter) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Counter) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(c.Value()))
}

// Gauge is a thread-safe gauge metric.
type Gauge struct {
	name  string
	help  string
	desc  *prometheus.Desc
	value atomic.Int64
}

// NewGauge creates a new gauge metric.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help, desc: prometheus.NewDesc(name, help, nil, nil)}
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(value int64) {
	g.value.Store(value)
}

// SetUint64 sets the gauge to the given unsigned value.
func (g *Gauge) SetUint64(value uint64) {
	g.value.Store(int64(value))
}

// Value returns the current gauge value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

// Name returns the metric name.
func (g *Gauge) Name() string {
	return g.name
}

// Help returns the metric help text.
func (g *Gauge) Help() string {
	return g.help
}

// Type returns the metric type.
func (g *Gauge) Type() MetricType {
	return TypeGauge
}

// Describe implements prometheus.Collector.
func (g *Gauge) Describe(ch chan<- *prometheus.Desc) {
	ch <- g.desc
}

// Collect implements prometheus.Collector.
func (g *Gauge) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, float64(g.Value()))
}

// Histogram is a thread-safe histogram metric. Bucket counts are cumulative.
type Histogram struct {
	mu      sync.RWMutex
	name    string
	help    string
	desc    *prometheus.Desc
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// DefaultHistogramBuckets are the default buckets for instruction latency, in seconds.
var DefaultHistogramBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0,
}

// NewHistogram creates a new histogram metric with the given buckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultHistogramBuckets
	}
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)

	return &Histogram{
		name:    name,
		help:    help,
		desc:    prometheus.NewDesc(name, help, nil, nil),
		buckets: sorted,
		counts:  make([]uint64, len(sorted)),
	}
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++
	for i, bucket := range h.buckets {
		if value <= bucket {
			h.counts[i]++
		}
	}
}

// ObserveDuration records a duration in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Name returns the metric name.
func (h *Histogram) Name() string {
	return h.name
}

// Help returns the metric help text.
func (h *Histogram) Help() string {
	return h.help
}

// Type returns the metric type.
func (h *Histogram) Type() MetricType {
	return TypeHistogram
}

// Describe implements prometheus.Collector.
func (h *Histogram) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.desc
}

// Collect implements prometheus.Collector.
func (h *Histogram) Collect(ch chan<- prometheus.Metric) {
	snap := h.Snapshot()
	buckets := make(map[float64]uint64, len(snap.Buckets))
	for _, bucket := range snap.Buckets {
		buckets[bucket.UpperBound] = bucket.Count
	}
	ch <- prometheus.MustNewConstHistogram(h.desc, snap.Count, snap.Sum, buckets)
}

// HistogramBucket represents a single cumulative bucket.
type HistogramBucket struct {
	UpperBound float64
	Count      uint64
}

// HistogramSnapshot is a point-in-time snapshot of a histogram.
type HistogramSnapshot struct {
	Buckets []HistogramBucket
	Sum     float64
	Count   uint64
}

// Snapshot returns a snapshot of the histogram.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := HistogramSnapshot{
		Buckets: make([]HistogramBucket, len(h.buckets)),
		Sum:     h.sum,
		Count:   h.count,
	}
	for i, bucket := range h.buckets {
		snap.Buckets[i] = HistogramBucket{UpperBound: bucket, Count: h.counts[i]}
	}
	return snap
}

// Metrics holds the runtime's metrics.
type Metrics struct {
	mu       sync.RWMutex
	metrics  map[string]Metric
	registry *prometheus.Registry

	// Counters
	InstructionsProcessed *Counter
	InstructionsFailed    *Counter
	ComputeUnitsConsumed  *Counter
	AccountsWritten       *Counter

	// Gauges
	AccountsCount *Gauge

	// Histograms
	InstructionDuration *Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		metrics:  make(map[string]Metric),
		registry: prometheus.NewRegistry(),

		InstructionsProcessed: NewCounter("x1mint_instructions_processed_total", "Total number of instructions processed"),
		InstructionsFailed:    NewCounter("x1mint_instructions_failed_total", "Total number of instructions that returned an error"),
		ComputeUnitsConsumed:  NewCounter("x1mint_compute_units_consumed_total", "Total compute units consumed by programs"),
		AccountsWritten:       NewCounter("x1mint_accounts_written_total", "Total number of account writes committed"),

		AccountsCount: NewGauge("x1mint_accounts_count", "Number of accounts in the store"),

		InstructionDuration: NewHistogram(
			"x1mint_instruction_duration_seconds",
			"Instruction processing duration in seconds",
			nil,
		),
	}

	for _, metric := range []Metric{
		m.InstructionsProcessed,
		m.InstructionsFailed,
		m.ComputeUnitsConsumed,
		m.AccountsWritten,
		m.AccountsCount,
		m.InstructionDuration,
	} {
		m.metrics[metric.Name()] = metric
		m.registry.MustRegister(metric)
	}

	return m
}

// Get returns a metric by name.
func (m *Metrics) Get(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics[name]
}

// RecordInstruction records the outcome of one processed instruction.
func (m *Metrics) RecordInstruction(failed bool, computeUnits uint64, accountsWritten int, duration time.Duration) {
	m.InstructionsProcessed.Inc()
	if failed {
		m.InstructionsFailed.Inc()
	}
	m.ComputeUnitsConsumed.Add(computeUnits)
	m.AccountsWritten.Add(uint64(accountsWritten))
	m.InstructionDuration.ObserveDuration(duration)
}

// Registry returns the Prometheus registry holding the runtime metrics.
// Other components may register their own collectors on it.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves every collector in the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
