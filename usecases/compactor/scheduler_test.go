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
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ent "github.com/weaviate/logtable/entities/tablelog"
)

func TestSchedulerCompactsAndCleans(t *testing.T) {
	_, store, files := newTestTable(t)
	for v := 0; v < 3; v++ {
		appendVersion(t, store, files, ent.Version(v), "events", nil, `{}`)
	}

	c := newTestCompactor(t, store, files, WithNumFilePerDir(2))
	logger, _ := test.NewNullLogger()
	s := NewScheduler(c, 5*time.Millisecond, logger)

	s.Start()
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool {
		cur, err := store.CurrentVersion()
		return err == nil && cur >= 3
	}, time.Second, time.Millisecond, "a scheduled compaction must commit")

	require.Nil(t, s.Stop(context.Background()))
	assert.False(t, s.Running())

	// the scheduler never stops mid-cycle, so the table is quiescent now:
	// the last cycle committed two merged files and cleaned up after itself
	cur, err := store.CurrentVersion()
	require.Nil(t, err)
	snap, err := store.SnapshotAt(cur)
	require.Nil(t, err)
	assert.Len(t, snap.Files, 2)
	assert.Len(t, listPaths(t, files), 2)

	refs, err := store.ListEntries()
	require.Nil(t, err)
	require.Len(t, refs, 2)
	for _, ref := range refs {
		assert.Equal(t, cur, ref.Version)
	}
}

func TestSchedulerSurvivesFailingCycles(t *testing.T) {
	_, store, files := newTestTable(t)

	// a table without commits makes every cycle fail
	c := newTestCompactor(t, store, files)
	logger, hook := test.NewNullLogger()
	s := NewScheduler(c, time.Millisecond, logger)

	s.Start()
	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "scheduled compaction failed" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	assert.True(t, s.Running())
	require.Nil(t, s.Stop(context.Background()))
}
