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

package compactor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ent "github.com/weaviate/logtable/entities/tablelog"
	"github.com/weaviate/logtable/usecases/monitoring"
)

type Metrics struct {
	runs      *prometheus.CounterVec
	attempts  *prometheus.CounterVec
	durations prometheus.ObserverVec
	files     *prometheus.CounterVec
	cleanups  *prometheus.CounterVec
	version   prometheus.Gauge
}

func NewMetrics(promMetrics *monitoring.PrometheusMetrics,
	tableName string,
) *Metrics {
	if promMetrics == nil {
		return nil
	}

	table := prometheus.Labels{"table": tableName}
	return &Metrics{
		runs:      promMetrics.CompactionRuns.MustCurryWith(table),
		attempts:  promMetrics.CompactionAttempts.MustCurryWith(table),
		durations: promMetrics.CompactionDurations.MustCurryWith(table),
		files:     promMetrics.CompactionFiles.MustCurryWith(table),
		cleanups:  promMetrics.CleanupOperations.MustCurryWith(table),
		version:   promMetrics.TableVersion.With(table),
	}
}

func (m *Metrics) Run(outcome Outcome) {
	if m == nil {
		return
	}

	m.runs.With(prometheus.Labels{"outcome": outcome.String()}).Inc()
}

func (m *Metrics) Attempt(mode AttemptMode, result string) {
	if m == nil {
		return
	}

	m.attempts.With(prometheus.Labels{
		"mode":    mode.String(),
		"outcome": result,
	}).Inc()
}

func (m *Metrics) ObserveStep(step string, start time.Time) {
	if m == nil {
		return
	}

	took := float64(time.Since(start)) / float64(time.Millisecond)
	m.durations.With(prometheus.Labels{"step": step}).Observe(took)
}

func (m *Metrics) FilesCompacted(in, out int) {
	if m == nil {
		return
	}

	m.files.With(prometheus.Labels{"direction": "in"}).Add(float64(in))
	m.files.With(prometheus.Labels{"direction": "out"}).Add(float64(out))
}

func (m *Metrics) CleanupOp(operation, result string) {
	if m == nil {
		return
	}

	m.cleanups.With(prometheus.Labels{
		"operation": operation,
		"result":    result,
	}).Inc()
}

func (m *Metrics) SetVersion(version ent.Version) {
	if m == nil {
		return
	}

	m.version.Set(float64(version))
}
