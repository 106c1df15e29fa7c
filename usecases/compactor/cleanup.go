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
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	ent "github.com/weaviate/logtable/entities/tablelog"
)

type CleanupKind string

const (
	// CleanupLogEntry is the deletion of a log segment a newer checkpoint
	// made redundant.
	CleanupLogEntry CleanupKind = "log_entry"

	// CleanupDataFile is the deletion of a data file the committed
	// transaction removed from the table.
	CleanupDataFile CleanupKind = "data_file"

	// CleanupRollback is the deletion of a file written by an attempt whose
	// commit never happened.
	CleanupRollback CleanupKind = "rollback"
)

// CleanupOp records one best-effort delete and how it went.
type CleanupOp struct {
	Kind   CleanupKind
	Target string
	Err    error
}

// CleanupReport collects every operation of one cleanup pass. Individual
// failures never abort the pass, they stay visible here instead.
type CleanupReport struct {
	Ops []CleanupOp
}

// Deleted counts the operations that went through.
func (r *CleanupReport) Deleted() int {
	n := 0
	for _, op := range r.Ops {
		if op.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts the operations that did not.
func (r *CleanupReport) Failed() int {
	return len(r.Ops) - r.Deleted()
}

// Err aggregates every failed operation, nil when all went through.
func (r *CleanupReport) Err() error {
	var combined *multierror.Error
	for _, op := range r.Ops {
		if op.Err != nil {
			combined = multierror.Append(combined,
				errors.Wrapf(op.Err, "%s %q", op.Kind, op.Target))
		}
	}
	return combined.ErrorOrNil()
}

// Cleaner reclaims what a finished transaction no longer needs: log history
// a checkpoint superseded, data files the commit removed, and on the failure
// path the files an uncommitted attempt left behind. Everything here is
// best-effort, the commit is already durable (or already rolled back) by the
// time a Cleaner runs.
type Cleaner struct {
	store   LogStore
	files   DataSink
	logger  logrus.FieldLogger
	metrics *Metrics
}

func NewCleaner(store LogStore, files DataSink,
	logger logrus.FieldLogger, metrics *Metrics,
) *Cleaner {
	return &Cleaner{
		store:   store,
		files:   files,
		logger:  logger,
		metrics: metrics,
	}
}

// Clean runs the success-path cleanup for the commit at version committed.
// It checkpoints the committed state, deletes the log entries the checkpoint
// made redundant and physically deletes every file the commit removed from
// the table. Only reading the committed entry can fail the call, each delete
// is best-effort and recorded in the report.
//
// A log entry is only deleted when a checkpoint at or after it holds its
// state: a delta at v needs a checkpoint at >= v, a checkpoint at v needs a
// strictly newer one. Every surviving version stays reconstructible.
func (c *Cleaner) Clean(committed ent.Version) (*CleanupReport, error) {
	_, actions, err := c.store.ReadEntry(committed)
	if err != nil {
		return nil, errors.Wrapf(err, "read committed entry %d", committed)
	}

	if snap, err := c.store.SnapshotAt(committed); err != nil {
		c.logger.WithField("action", "compaction_cleanup").
			WithError(err).Warning("snapshot for cleanup checkpoint not readable")
	} else if err := c.store.WriteCheckpoint(snap); err != nil {
		c.logger.WithField("action", "compaction_cleanup").
			WithError(err).Warning("cleanup checkpoint not written")
	}

	refs, err := c.store.ListEntries()
	if err != nil {
		return nil, errors.Wrap(err, "list log entries")
	}

	checkpointed := ent.VersionNone
	for _, ref := range refs {
		if ref.Kind == ent.EntryKindCheckpoint && ref.Version > checkpointed {
			checkpointed = ref.Version
		}
	}

	report := &CleanupReport{}
	for _, ref := range refs {
		if ref.Version >= committed {
			continue
		}
		superseded := checkpointed >= ref.Version
		if ref.Kind == ent.EntryKindCheckpoint {
			superseded = checkpointed > ref.Version
		}
		if !superseded {
			continue
		}
		c.record(report, CleanupLogEntry, ref.Path, c.store.RemoveEntry(ref))
	}

	for _, rm := range ent.Removes(actions) {
		c.record(report, CleanupDataFile, rm.Path, c.files.Delete(rm.Path))
	}

	c.logger.WithFields(logrus.Fields{
		"action":         "compaction_cleanup",
		"commit_version": committed,
		"deleted":        report.Deleted(),
		"failed":         report.Failed(),
	}).Info("cleanup finished")

	return report, nil
}

// Rollback deletes the files written by an attempt whose commit never
// happened. Nothing in the log references them, so this can only reclaim
// space, never lose data.
func (c *Cleaner) Rollback(written []string) *CleanupReport {
	report := &CleanupReport{}
	for _, path := range written {
		c.record(report, CleanupRollback, path, c.files.Delete(path))
	}

	c.logger.WithFields(logrus.Fields{
		"action":  "compaction_rollback",
		"deleted": report.Deleted(),
		"failed":  report.Failed(),
	}).Debug("rolled back uncommitted files")

	return report
}

func (c *Cleaner) record(report *CleanupReport, kind CleanupKind, target string, err error) {
	report.Ops = append(report.Ops, CleanupOp{Kind: kind, Target: target, Err: err})

	result := "success"
	if err != nil {
		result = "error"
		c.logger.WithFields(logrus.Fields{
			"action": "compaction_cleanup",
			"kind":   string(kind),
			"target": target,
		}).WithError(err).Warning("cleanup delete failed")
	}
	c.metrics.CleanupOp(string(kind), result)
}
