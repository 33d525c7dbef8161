// Package metrics exposes audit results as Prometheus metrics, so a run can be
// scraped through the node_exporter textfile collector.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/cachescan/internal/model"
)

const namespace = "cachescan"

// Recorder holds the collectors of one audit run.
type Recorder struct {
	registry *prometheus.Registry

	probesTotal          *prometheus.CounterVec
	probeDurationSeconds prometheus.Histogram
	cacheRatio           prometheus.Gauge
	meanHitAgeSeconds    prometheus.Gauge
	lastRunTimestamp     prometheus.Gauge
}

// NewRecorder creates a Recorder with its collectors registered on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of probes, partitioned by verdict status.",
			},
			[]string{"status"},
		),
		probeDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Probe latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		cacheRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_ratio_percent",
			Help:      "Share of probed targets served from cache, in percent.",
		}),
		meanHitAgeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_hit_age_seconds",
			Help:      "Mean Age of cache hits in seconds.",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last audit run finished.",
		}),
	}
	// A fresh registry cannot hold conflicting collectors.
	_ = r.Register(r.registry) //nolint:errcheck
	return r
}

// Register attaches the recorder's collectors to the supplied Prometheus registerer.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.probesTotal,
		r.probeDurationSeconds,
		r.cacheRatio,
		r.meanHitAgeSeconds,
		r.lastRunTimestamp,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveProbe records one classified probe.
func (r *Recorder) ObserveProbe(status model.Status, latency time.Duration) {
	r.probesTotal.WithLabelValues(string(status)).Inc()
	if latency < 0 {
		latency = 0
	}
	r.probeDurationSeconds.Observe(latency.Seconds())
}

// ObserveRun records the run-level statistics.
func (r *Recorder) ObserveRun(stats model.RunStats, finishedAt time.Time) {
	if ratio, ok := stats.CacheRatio(); ok {
		r.cacheRatio.Set(float64(ratio))
	}
	if age, ok := stats.MeanHitAge(); ok {
		r.meanHitAgeSeconds.Set(float64(age))
	}
	r.lastRunTimestamp.Set(float64(finishedAt.Unix()))
}

// WriteTextfile writes every collected metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
