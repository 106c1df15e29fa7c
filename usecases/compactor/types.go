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

	ent "github.com/weaviate/logtable/entities/tablelog"
)

// AttemptMode tells a single commit attempt what it may do.
type AttemptMode int

const (
	// AttemptPlanOnly reads a snapshot and commits an empty probe entry,
	// leaving every data file untouched. A probe that loses the commit race
	// costs nothing but the retry it consumed.
	AttemptPlanOnly AttemptMode = iota

	// AttemptExecute rewrites the planned groups and commits the full
	// add/remove action set. A transaction executes at most once.
	AttemptExecute
)

func (m AttemptMode) String() string {
	switch m {
	case AttemptPlanOnly:
		return "plan_only"
	case AttemptExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Outcome classifies how a compaction transaction ended.
type Outcome int

const (
	// OutcomeSucceeded means the execute attempt committed its action set.
	OutcomeSucceeded Outcome = iota

	// OutcomeNoop means planning found nothing to compact, no commit was
	// made and no retry was consumed.
	OutcomeNoop

	// OutcomeAborted means the execute attempt lost the commit race after
	// the retry budget was spent. Files written by the losing attempt were
	// rolled back, the table is untouched.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeNoop:
		return "noop"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result describes a finished compaction transaction.
type Result struct {
	Outcome Outcome

	// ReadVersion is the log version the deciding attempt committed
	// against. With a pinned snapshot version the two can differ, the
	// commit always claims the slot after the log's current tip.
	ReadVersion ent.Version

	// CommitVersion is the version the winning commit created. VersionNone
	// unless the outcome is OutcomeSucceeded.
	CommitVersion ent.Version

	// Attempts counts the state machine passes consumed, plan-only probes
	// included.
	Attempts int

	// Groups, SourceFiles and OutputFiles describe the executed rewrite.
	// Zero for noop and aborted outcomes.
	Groups      int
	SourceFiles int
	OutputFiles int

	Took time.Duration
}
