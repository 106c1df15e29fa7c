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

// Package ingest implements the writer path of a table: every append turns
// one batch of records into one data file and one committed version. It is
// the producer of the many small files compaction later folds together.
package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	ent "github.com/weaviate/logtable/entities/tablelog"
	"github.com/weaviate/logtable/usecases/monitoring"
)

const (
	// DefaultBackoffInterval is the wait between conflicted append commits.
	// Appends are cheap to retry, so the interval is much shorter than the
	// compactor's.
	DefaultBackoffInterval = 50 * time.Millisecond

	// DefaultMaxRetries bounds the commit retries of a single append.
	DefaultMaxRetries = 10
)

// LogStore is the slice of the transaction log an appender needs.
type LogStore interface {
	RootDir() string
	EnsureInitialized() error
	CurrentVersion() (ent.Version, error)
	Commit(version ent.Version, info ent.CommitInfo, actions []ent.Action) error
}

// DataSink writes data files and reclaims them when a commit never happens.
type DataSink interface {
	WriteRecords(ctx context.Context, prefix string, seq int,
		partitionValues map[string]string, records [][]byte) (ent.AddFile, error)
	Delete(relPath string) error
}

// Appender commits record batches to a table, one data file and one version
// per batch. Concurrent appenders are safe against each other and against a
// running compaction, the log's exclusive version commit serializes them.
type Appender struct {
	store  LogStore
	files  DataSink
	logger logrus.FieldLogger

	metrics         *Metrics
	maxRetries      int
	backoffInterval time.Duration
	engineInfo      string
}

type Option func(a *Appender) error

// WithMaxRetries bounds how often a conflicted commit is retried before the
// append gives up.
func WithMaxRetries(n int) Option {
	return func(a *Appender) error {
		if n < 0 {
			return errors.Errorf("maxRetries must not be negative, got %d", n)
		}

		a.maxRetries = n
		return nil
	}
}

// WithBackoffInterval sets the fixed wait between conflicted commits.
func WithBackoffInterval(interval time.Duration) Option {
	return func(a *Appender) error {
		if interval <= 0 {
			return errors.Errorf("backoff interval must be positive, got %s", interval)
		}

		a.backoffInterval = interval
		return nil
	}
}

// WithMetrics attaches prometheus metrics, curried with the table name.
func WithMetrics(promMetrics *monitoring.PrometheusMetrics) Option {
	return func(a *Appender) error {
		a.metrics = NewMetrics(promMetrics, filepath.Base(a.store.RootDir()))
		return nil
	}
}

// WithEngineInfo overrides the engine identifier stamped into commitInfo.
func WithEngineInfo(engineInfo string) Option {
	return func(a *Appender) error {
		a.engineInfo = engineInfo
		return nil
	}
}

func NewAppender(store LogStore, files DataSink,
	logger logrus.FieldLogger, opts ...Option,
) (*Appender, error) {
	a := &Appender{
		store:           store,
		files:           files,
		logger:          logger,
		maxRetries:      DefaultMaxRetries,
		backoffInterval: DefaultBackoffInterval,
		engineInfo:      "logtable",
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Append writes records as a single data file below prefix and commits it
// as the next table version. The file is written once and reused across
// commit retries, only the version slot is contested. When no slot can be
// claimed within the retry budget the file is deleted again, a failed
// append leaves nothing behind.
func (a *Appender) Append(ctx context.Context, prefix string,
	partitionValues map[string]string, records [][]byte,
) (ent.Version, error) {
	if len(records) == 0 {
		return ent.VersionNone, errors.New("no records to append")
	}

	if err := a.store.EnsureInitialized(); err != nil {
		return ent.VersionNone, err
	}

	add, err := a.files.WriteRecords(ctx, prefix, 0, partitionValues, records)
	if err != nil {
		a.metrics.Commit("error")
		return ent.VersionNone, errors.Wrap(err, "write data file")
	}
	add.DataChange = true

	committed := ent.VersionNone
	commit := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		cur, err := a.store.CurrentVersion()
		if err != nil {
			return backoff.Permanent(err)
		}

		version := cur + 1
		info := ent.CommitInfo{
			Operation:   ent.OperationWrite,
			ReadVersion: cur,
			Timestamp:   time.Now().UnixMilli(),
			EngineInfo:  a.engineInfo,
		}

		err = a.store.Commit(version, info, []ent.Action{ent.NewAdd(add)})
		if ent.IsConflict(err) {
			a.logger.WithFields(logrus.Fields{
				"action":  "ingest_append",
				"version": version,
			}).Debug("append lost the commit race, backing off")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		committed = version
		return nil
	}

	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(a.backoffInterval), uint64(a.maxRetries))
	if err := backoff.Retry(commit, policy); err != nil {
		if derr := a.files.Delete(add.Path); derr != nil {
			a.logger.WithFields(logrus.Fields{
				"action": "ingest_append",
				"path":   add.Path,
			}).WithError(derr).Warning("uncommitted data file not reclaimed")
		}

		if ent.IsConflict(err) {
			a.metrics.Commit("conflict")
			return ent.VersionNone, errors.Wrapf(err, "append gave up after %d retries", a.maxRetries)
		}
		a.metrics.Commit("error")
		return ent.VersionNone, errors.Wrap(err, "commit append")
	}

	a.metrics.Commit("committed")
	a.metrics.Records(len(records))
	a.logger.WithFields(logrus.Fields{
		"action":  "ingest_append",
		"version": committed,
		"path":    add.Path,
		"records": len(records),
	}).Debug("append committed")

	return committed, nil
}
