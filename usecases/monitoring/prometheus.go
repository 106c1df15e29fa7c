//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds every metric vector of the process. Components
// curry the vectors with their own labels instead of registering metrics
// themselves, tests pass a throwaway registry.
type PrometheusMetrics struct {
	Registerer prometheus.Registerer

	CompactionRuns      *prometheus.CounterVec
	CompactionAttempts  *prometheus.CounterVec
	CompactionDurations *prometheus.HistogramVec
	CompactionFiles     *prometheus.CounterVec
	CleanupOperations   *prometheus.CounterVec
	FileIOBytes         *prometheus.CounterVec
	IngestRecords       *prometheus.CounterVec
	IngestCommits       *prometheus.CounterVec
	TableVersion        *prometheus.GaugeVec
	ConnectionsOpen     prometheus.Gauge
}

var (
	metrics     *PrometheusMetrics
	metricsOnce sync.Once
)

// GetMetrics returns the process-wide metrics, registered against the
// default prometheus registerer on first use.
func GetMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		metrics = NewPrometheusMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

func NewPrometheusMetrics(r prometheus.Registerer) *PrometheusMetrics {
	if r == nil {
		r = noop
	}
	f := promauto.With(r)

	return &PrometheusMetrics{
		Registerer: r,

		CompactionRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logtable_compaction_runs_total",
			Help: "Completed compaction transactions by outcome",
		}, []string{"table", "outcome"}),

		CompactionAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logtable_compaction_attempts_total",
			Help: "Individual commit attempts of compaction transactions",
		}, []string{"table", "mode", "outcome"}),

		CompactionDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logtable_compaction_durations_ms",
			Help:    "Duration of compaction steps in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 1.25, 25),
		}, []string{"table", "step"}),

		CompactionFiles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logtable_compaction_files_total",
			Help: "Data files consumed and produced by compactions",
		}, []string{"table", "direction"}),

		CleanupOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logtable_cleanup_operations_total",
			Help: "Cleanup deletions of log entries and data files",
		}, []string{"table", "operation", "result"}),

		FileIOBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logtable_file_io_bytes_total",
			Help: "Bytes read from and written to data files",
		}, []string{"table", "operation"}),

		IngestRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logtable_ingest_records_total",
			Help: "Records appended to the table",
		}, []string{"table"}),

		IngestCommits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logtable_ingest_commits_total",
			Help: "Append transactions committed by outcome",
		}, []string{"table", "outcome"}),

		TableVersion: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "logtable_table_version",
			Help: "Newest committed version last observed per table",
		}, []string{"table"}),

		ConnectionsOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "logtable_monitoring_connections_open",
			Help: "Open connections to the metrics endpoint",
		}),
	}
}
