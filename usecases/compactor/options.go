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

	"github.com/pkg/errors"

	"github.com/weaviate/logtable/entities/partitions"
	ent "github.com/weaviate/logtable/entities/tablelog"
	"github.com/weaviate/logtable/usecases/config"
	"github.com/weaviate/logtable/usecases/monitoring"
)

type Option func(c *Compactor) error

// WithVersion pins the snapshot version the transaction reads. By default
// the newest committed version at planning time is used, re-resolved on
// every attempt.
func WithVersion(version int64) Option {
	return func(c *Compactor) error {
		if version < config.VersionLatest {
			return errors.Errorf("version must be a committed version or %d for latest, got %d",
				config.VersionLatest, version)
		}

		c.version = ent.Version(version)
		return nil
	}
}

// WithNumFilePerDir sets how many data files one directory prefix holds
// after compaction.
func WithNumFilePerDir(n int) Option {
	return func(c *Compactor) error {
		if n < 1 {
			return errors.Errorf("numFilePerDir must be at least 1, got %d", n)
		}

		c.numFilePerDir = n
		return nil
	}
}

// WithRetryTimesForLock bounds how many plan-only probes run before the
// single execute attempt.
func WithRetryTimesForLock(n int) Option {
	return func(c *Compactor) error {
		if n < 0 {
			return errors.Errorf("retryTimesForLock must not be negative, got %d", n)
		}

		c.retryTimesForLock = n
		return nil
	}
}

// WithPartitionFilter restricts the transaction to files matching a
// conjunctive column=value predicate.
func WithPartitionFilter(filter string) Option {
	return func(c *Compactor) error {
		pred, err := partitions.Parse(filter)
		if err != nil {
			return err
		}

		c.predicate = pred
		return nil
	}
}

// WithBackoffInterval sets the fixed wait between conflicted probes.
func WithBackoffInterval(interval time.Duration) Option {
	return func(c *Compactor) error {
		if interval <= 0 {
			return errors.Errorf("backoff interval must be positive, got %s", interval)
		}

		c.backoffInterval = interval
		return nil
	}
}

// WithMetrics attaches prometheus metrics, curried with the table name.
func WithMetrics(promMetrics *monitoring.PrometheusMetrics) Option {
	return func(c *Compactor) error {
		c.metrics = NewMetrics(promMetrics, c.tableName())
		return nil
	}
}

// WithEngineInfo overrides the engine identifier stamped into commitInfo.
func WithEngineInfo(engineInfo string) Option {
	return func(c *Compactor) error {
		c.engineInfo = engineInfo
		return nil
	}
}

// FromConfig applies a validated compaction config in one step.
func FromConfig(cc config.Compaction) Option {
	return func(c *Compactor) error {
		if err := cc.Validate(); err != nil {
			return err
		}

		for _, opt := range []Option{
			WithVersion(cc.Version),
			WithNumFilePerDir(cc.NumFilePerDir),
			WithRetryTimesForLock(cc.RetryTimesForLock),
			WithPartitionFilter(cc.PartitionFilter),
		} {
			if err := opt(c); err != nil {
				return err
			}
		}
		return nil
	}
}
