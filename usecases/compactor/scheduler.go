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
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/entities/cyclemanager"
)

// Scheduler runs compaction transactions on a fixed cadence. Each cycle is
// one full Run followed, on success, by cleanup of the superseded history.
// Cycles never overlap, a slow rewrite simply delays the next tick.
type Scheduler struct {
	compactor *Compactor
	cycle     cyclemanager.CycleManager
	logger    logrus.FieldLogger
}

func NewScheduler(compactor *Compactor, interval time.Duration,
	logger logrus.FieldLogger,
) *Scheduler {
	s := &Scheduler{
		compactor: compactor,
		logger:    logger,
	}
	s.cycle = cyclemanager.New(cyclemanager.NewFixedTicker(interval), s.run)
	return s
}

func (s *Scheduler) Start() {
	s.cycle.Start()
}

// Stop halts the cycle and waits for an in-flight run to finish. The run
// itself is never interrupted, a compaction transaction either completes or
// was never started.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.cycle.StopAndWait(ctx)
}

func (s *Scheduler) Running() bool {
	return s.cycle.Running()
}

func (s *Scheduler) run(shouldBreak cyclemanager.ShouldBreakFunc) bool {
	if shouldBreak() {
		return false
	}

	res, err := s.compactor.Run(context.Background())
	if err != nil {
		s.logger.WithField("action", "compaction_cycle").
			WithError(err).Error("scheduled compaction failed")
		return false
	}
	if res.Outcome != OutcomeSucceeded {
		return false
	}

	if _, err := s.compactor.Cleaner().Clean(res.CommitVersion); err != nil {
		s.logger.WithField("action", "compaction_cycle").
			WithError(err).Warning("cleanup after scheduled compaction failed")
	}
	return true
}
