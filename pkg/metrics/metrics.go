// Package metrics tracks conversion activity for ShapeShifter using
// Prometheus metrics.
//
// # Overview
//
// Each Collector owns a private registry, so a one-shot CLI run can dump
// its counters to a node_exporter textfile without sharing global state:
//
//	collector := metrics.NewCollector("convert")
//	timer := metrics.NewTimer("read")
//	tbl, err := adapter.Read(ctx, path, opts)
//	collector.ObserveStep("read", "tsv", timer.Stop())
//	collector.RecordRows("read", "tsv", int64(tbl.NumRows()))
//	collector.RecordConversion("tsv", "parquet", err)
//	_ = collector.WriteTextfile("/var/lib/node_exporter/shapeshifter.prom")
//
// # Metric Types
//
// Counter: rows read and written, conversions by outcome
// Histogram: step latency in seconds
// Gauge: throughput of the last conversion in rows per second
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

const namespace = "shapeshifter"

// Collector records conversion metrics for one component.
type Collector struct {
	name     string
	registry *prometheus.Registry

	rows        *prometheus.CounterVec   // rows by direction and format
	conversions *prometheus.CounterVec   // conversions by formats and status
	stepLatency *prometheus.HistogramVec // per step duration
	throughput  *prometheus.GaugeVec     // rows per second of the last conversion
	mu          sync.Mutex
}

// NewCollector creates a collector registered on its own registry.
// The name parameter identifies the component in metric labels.
func NewCollector(name string) *Collector {
	c := &Collector{
		name:     name,
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Total number of rows read or written",
			},
			[]string{"component", "direction", "format"},
		),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of conversions by outcome",
			},
			[]string{"component", "input_format", "output_format", "status"},
		),
		stepLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of conversion steps in seconds",
				Buckets: []float64{
					0.001, // 1ms - header reads
					0.01,  // 10ms - small files
					0.1,   // 100ms
					1,     // 1s - typical cohort files
					10,    // 10s
					60,    // 1m - very wide matrices
				},
			},
			[]string{"component", "step", "format"},
		),
		throughput: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "throughput_rows_per_second",
				Help:      "Rows per second of the last conversion",
			},
			[]string{"component", "input_format", "output_format"},
		),
	}

	c.registry.MustRegister(c.rows, c.conversions, c.stepLatency, c.throughput)
	return c
}

// Registry exposes the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRows adds n rows in direction ("read" or "write") for format
func (c *Collector) RecordRows(direction, format string, n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.rows.WithLabelValues(c.name, direction, format).Add(float64(n))
}

// ObserveStep records how long a conversion step took
func (c *Collector) ObserveStep(step, format string, d time.Duration) {
	if c == nil {
		return
	}
	c.stepLatency.WithLabelValues(c.name, step, format).Observe(d.Seconds())
}

// RecordConversion counts a finished conversion. A nil err counts as
// success; otherwise the status is the error type.
func (c *Collector) RecordConversion(inputFormat, outputFormat string, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
		var e *errors.Error
		if errors.As(err, &e) {
			status = string(e.Type)
		}
	}
	c.conversions.WithLabelValues(c.name, inputFormat, outputFormat, status).Inc()
}

// SetThroughput records the rows per second of a conversion
func (c *Collector) SetThroughput(inputFormat, outputFormat string, rowsPerSecond float64) {
	if c == nil {
		return
	}
	c.throughput.WithLabelValues(c.name, inputFormat, outputFormat).Set(rowsPerSecond)
}

// WriteTextfile writes every metric of the collector to path in the
// Prometheus text format, for the node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics").
			WithDetail("path", path)
	}
	return nil
}

// Timer provides a simple timing mechanism for measuring step durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
//
// Example:
//
//	timer := metrics.NewTimer("write")
//	err := adapter.Write(ctx, t, path, opts)
//	log.Info("written", zap.Duration("duration", timer.Stop()))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It may be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
