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

package ingest

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weaviate/logtable/usecases/monitoring"
)

type Metrics struct {
	records prometheus.Counter
	commits *prometheus.CounterVec
}

func NewMetrics(promMetrics *monitoring.PrometheusMetrics,
	tableName string,
) *Metrics {
	if promMetrics == nil {
		return nil
	}

	table := prometheus.Labels{"table": tableName}
	return &Metrics{
		records: promMetrics.IngestRecords.With(table),
		commits: promMetrics.IngestCommits.MustCurryWith(table),
	}
}

func (m *Metrics) Records(n int) {
	if m == nil {
		return
	}

	m.records.Add(float64(n))
}

func (m *Metrics) Commit(outcome string) {
	if m == nil {
		return
	}

	m.commits.With(prometheus.Labels{"outcome": outcome}).Inc()
}
