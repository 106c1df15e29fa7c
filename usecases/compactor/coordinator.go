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

// Package compactor implements the optimistic compaction transaction for
// log-structured tables. A transaction reads a snapshot, rewrites the small
// files of each over-full directory into fewer larger ones and commits the
// swap as one atomic log entry. The log accepts at most one commit per
// version, so a concurrent writer surfaces as a commit conflict, never as
// corruption. Conflicted probes retry on a fixed backoff until the retry
// budget is spent; the rewrite itself runs exactly once.
package compactor

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/entities/partitions"
	ent "github.com/weaviate/logtable/entities/tablelog"
	"github.com/weaviate/logtable/usecases/config"
)

// DefaultBackoffInterval is the fixed wait between a conflicted probe and
// the next attempt.
const DefaultBackoffInterval = time.Second

// LogStore is the slice of the transaction log the compactor depends on,
// satisfied by adapters/repos/tablelog.Store. Commit is the serialization
// point: it must accept at most one commit per version and signal every
// losing writer with ErrConflict.
type LogStore interface {
	RootDir() string
	EnsureInitialized() error
	CurrentVersion() (ent.Version, error)
	VersionExists(version ent.Version) (bool, error)
	Commit(version ent.Version, info ent.CommitInfo, actions []ent.Action) error
	SnapshotAt(version ent.Version) (*ent.Snapshot, error)
	ReadEntry(version ent.Version) (*ent.CommitInfo, []ent.Action, error)
	ListEntries() ([]ent.LogEntryRef, error)
	RemoveEntry(ref ent.LogEntryRef) error
	WriteCheckpoint(snap *ent.Snapshot) error
}

// DataSink reads and writes the physical data files, satisfied by
// adapters/repos/datafiles.Repo. All paths are relative to the table root.
type DataSink interface {
	ReadRecords(ctx context.Context, files []ent.AddFile) ([][][]byte, error)
	WriteRecords(ctx context.Context, prefix string, seq int,
		partitionValues map[string]string, records [][]byte) (ent.AddFile, error)
	Delete(relPath string) error
}

type Compactor struct {
	store  LogStore
	files  DataSink
	logger logrus.FieldLogger

	metrics *Metrics

	version           ent.Version
	numFilePerDir     int
	retryTimesForLock int
	predicate         partitions.Predicate
	backoffInterval   time.Duration
	engineInfo        string
}

func New(store LogStore, files DataSink,
	logger logrus.FieldLogger, opts ...Option,
) (*Compactor, error) {
	c := &Compactor{
		store:             store,
		files:             files,
		logger:            logger,
		version:           ent.VersionNone,
		numFilePerDir:     config.DefaultNumFilePerDir,
		retryTimesForLock: config.DefaultRetryTimesForLock,
		backoffInterval:   DefaultBackoffInterval,
		engineInfo:        "logtable",
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Compactor) tableName() string {
	return filepath.Base(c.store.RootDir())
}

// Cleaner returns the cleanup manager sharing this transaction's store,
// sink, logger and metrics. Callers run it after a successful Run to
// truncate log history and drop the replaced data files.
func (c *Compactor) Cleaner() *Cleaner {
	return NewCleaner(c.store, c.files, c.logger, c.metrics)
}

// Run drives one compaction transaction to a terminal outcome. With a retry
// budget of N, attempts 0 through N-1 are plan-only probes: each stakes out
// the next log version with an empty entry and, when it loses the race,
// waits out the backoff interval before the next try. Attempt N is the
// single execute attempt that rewrites files and commits the real action
// set. An execute conflict aborts the transaction: every file the losing
// attempt wrote is deleted again before Run returns, the table is left
// exactly as the winner's commits describe it.
//
// Conflicts and an exhausted budget surface in the Result, not as an error.
// An error return means the attempt itself failed, after rolling back its
// files.
func (c *Compactor) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	bo := backoff.NewConstantBackOff(c.backoffInterval)

	for attempt := 0; ; attempt++ {
		mode := AttemptPlanOnly
		if attempt >= c.retryTimesForLock {
			mode = AttemptExecute
		}

		out, err := c.attempt(ctx, mode, attempt)
		if err != nil {
			c.metrics.Attempt(mode, "error")
			return nil, errors.Wrapf(err, "attempt %d (%s)", attempt, mode)
		}

		switch {
		case out.noop:
			c.metrics.Attempt(mode, "noop")
			res := c.result(OutcomeNoop, out, attempt, start)
			c.metrics.Run(res.Outcome)
			c.logger.WithFields(logrus.Fields{
				"action":       "compaction_run",
				"read_version": out.readVersion,
			}).Debug("nothing to compact")
			return res, nil

		case out.conflict && mode == AttemptPlanOnly:
			c.metrics.Attempt(mode, "conflict")
			c.logger.WithFields(logrus.Fields{
				"action":       "compaction_probe",
				"attempt":      attempt,
				"read_version": out.readVersion,
			}).Debug("probe lost the commit race, backing off")
			if err := c.wait(ctx, bo.NextBackOff()); err != nil {
				return nil, err
			}

		case out.conflict:
			c.metrics.Attempt(mode, "conflict")
			res := c.result(OutcomeAborted, out, attempt, start)
			c.metrics.Run(res.Outcome)
			c.logger.WithFields(logrus.Fields{
				"action":       "compaction_run",
				"read_version": out.readVersion,
				"attempts":     res.Attempts,
			}).Warning("aborted, a concurrent transaction won the final commit")
			return res, nil

		case mode == AttemptPlanOnly:
			c.metrics.Attempt(mode, "committed")
			c.logger.WithFields(logrus.Fields{
				"action":       "compaction_probe",
				"attempt":      attempt,
				"read_version": out.readVersion,
			}).Debug("probe committed")

		default:
			c.metrics.Attempt(mode, "committed")
			res := c.result(OutcomeSucceeded, out, attempt, start)
			c.metrics.Run(res.Outcome)
			c.metrics.SetVersion(out.commitVersion)
			c.metrics.FilesCompacted(out.sourceFiles, out.outputFiles)
			c.logger.WithFields(logrus.Fields{
				"action":         "compaction_run",
				"read_version":   out.readVersion,
				"commit_version": out.commitVersion,
				"groups":         out.groups,
				"source_files":   out.sourceFiles,
				"output_files":   out.outputFiles,
				"took":           res.Took,
			}).Info("compaction committed")
			return res, nil
		}
	}
}

type attemptOutcome struct {
	noop          bool
	conflict      bool
	readVersion   ent.Version
	commitVersion ent.Version
	groups        int
	sourceFiles   int
	outputFiles   int
}

// attempt runs one pass of the state machine: resolve and validate the
// snapshot version, then either probe the next log slot or rewrite and
// commit for real. A conflict is part of the outcome rather than an error,
// it is the one condition Run recovers from.
func (c *Compactor) attempt(ctx context.Context, mode AttemptMode, attempt int) (*attemptOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readVersion, err := c.store.CurrentVersion()
	if err != nil {
		return nil, err
	}
	if readVersion == ent.VersionNone {
		// a table nobody committed to yet: make sure the log directory
		// exists so the first writer finds it
		if err := c.store.EnsureInitialized(); err != nil {
			return nil, err
		}
	}

	resolved := c.version
	if resolved == ent.VersionNone {
		resolved = readVersion
	}
	ok, err := c.store.VersionExists(resolved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ent.VersionNotFoundError{Version: resolved}
	}

	out := &attemptOutcome{
		readVersion:   readVersion,
		commitVersion: readVersion + 1,
	}
	info := c.commitInfo(readVersion, mode, attempt)

	if mode == AttemptPlanOnly {
		err := c.store.Commit(readVersion+1, info, nil)
		if ent.IsConflict(err) {
			out.conflict = true
			out.commitVersion = ent.VersionNone
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	planStart := time.Now()
	plan, err := c.buildPlan(resolved)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveStep("plan", planStart)

	if plan.empty() {
		out.noop = true
		out.commitVersion = ent.VersionNone
		return out, nil
	}
	out.groups = len(plan.Groups)
	out.sourceFiles = plan.SourceFiles

	rewriteStart := time.Now()
	actions, written, err := c.rewrite(ctx, plan)
	if err != nil {
		c.rollback(written)
		return nil, errors.Wrap(err, "rewrite")
	}
	c.metrics.ObserveStep("rewrite", rewriteStart)
	out.outputFiles = len(written)

	commitStart := time.Now()
	err = c.store.Commit(readVersion+1, info, actions)
	if ent.IsConflict(err) {
		c.rollback(written)
		out.conflict = true
		out.commitVersion = ent.VersionNone
		out.outputFiles = 0
		return out, nil
	}
	if err != nil {
		c.rollback(written)
		return nil, err
	}
	c.metrics.ObserveStep("commit", commitStart)

	return out, nil
}

// rollback reclaims the files an uncommitted attempt wrote. The commit never
// happened, so nothing references them and deleting is always safe.
func (c *Compactor) rollback(written []string) {
	if len(written) == 0 {
		return
	}
	c.Cleaner().Rollback(written)
}

func (c *Compactor) result(outcome Outcome, out *attemptOutcome, attempt int, start time.Time) *Result {
	return &Result{
		Outcome:       outcome,
		ReadVersion:   out.readVersion,
		CommitVersion: out.commitVersion,
		Attempts:      attempt + 1,
		Groups:        out.groups,
		SourceFiles:   out.sourceFiles,
		OutputFiles:   out.outputFiles,
		Took:          time.Since(start),
	}
}

func (c *Compactor) commitInfo(readVersion ent.Version, mode AttemptMode, attempt int) ent.CommitInfo {
	params := map[string]string{
		config.PropCompactNumFilePerDir: strconv.Itoa(c.numFilePerDir),
		"mode":                          mode.String(),
		"attempt":                       strconv.Itoa(attempt),
	}
	if c.version != ent.VersionNone {
		params[config.PropCompactVersion] = strconv.FormatInt(int64(c.version), 10)
	}
	if !c.predicate.Empty() {
		params[config.PropCompactPartitionFilter] = c.predicate.String()
	}

	return ent.CommitInfo{
		Operation:       ent.OperationCompact,
		OperationParams: params,
		ReadVersion:     readVersion,
		Timestamp:       time.Now().UnixMilli(),
		EngineInfo:      c.engineInfo,
	}
}

func (c *Compactor) wait(ctx context.Context, interval time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(interval):
		return nil
	}
}
