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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/logtable/adapters/repos/datafiles"
	"github.com/weaviate/logtable/adapters/repos/tablelog"
	ent "github.com/weaviate/logtable/entities/tablelog"
	"github.com/weaviate/logtable/usecases/config"
)

func newTestTable(t *testing.T) (string, *tablelog.Store, *datafiles.Repo) {
	t.Helper()
	root := t.TempDir()
	logger, _ := test.NewNullLogger()
	store := tablelog.NewStore(root, logger)
	require.Nil(t, store.EnsureInitialized())
	return root, store, datafiles.NewRepo(root, logger, nil)
}

func newTestCompactor(t *testing.T, store LogStore, files DataSink,
	opts ...Option,
) *Compactor {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c, err := New(store, files, logger, opts...)
	require.Nil(t, err)
	return c
}

// appendVersion commits one freshly written data file as the given version,
// the way a small ingest writer would.
func appendVersion(t *testing.T, store *tablelog.Store, files *datafiles.Repo,
	version ent.Version, prefix string, partitionValues map[string]string,
	records ...string,
) ent.AddFile {
	t.Helper()

	raw := make([][]byte, len(records))
	for i, rec := range records {
		raw[i] = []byte(rec)
	}
	add, err := files.WriteRecords(context.Background(), prefix, int(version),
		partitionValues, raw)
	require.Nil(t, err)
	add.DataChange = true

	info := ent.CommitInfo{
		Operation:   ent.OperationWrite,
		ReadVersion: version - 1,
		Timestamp:   time.Now().UnixMilli(),
	}
	require.Nil(t, store.Commit(version, info, []ent.Action{ent.NewAdd(add)}))
	return add
}

func listPaths(t *testing.T, files *datafiles.Repo) []string {
	t.Helper()
	physical, err := files.ListDataFiles()
	require.Nil(t, err)
	out := make([]string, len(physical))
	for i, p := range physical {
		out[i] = p.Path
	}
	return out
}

func readAll(t *testing.T, files *datafiles.Repo, adds []ent.AddFile) []string {
	t.Helper()
	records, err := files.ReadRecords(context.Background(), adds)
	require.Nil(t, err)
	var flat []string
	for _, recs := range records {
		for _, rec := range recs {
			flat = append(flat, string(rec))
		}
	}
	return flat
}

func TestRunCompactsDirectory(t *testing.T) {
	_, store, files := newTestTable(t)

	var want []string
	for v := 0; v < 5; v++ {
		rec := fmt.Sprintf(`{"id":%d}`, v)
		appendVersion(t, store, files, ent.Version(v), "events", nil, rec)
		want = append(want, rec)
	}

	c := newTestCompactor(t, store, files, WithNumFilePerDir(3))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, ent.Version(4), res.ReadVersion)
	assert.Equal(t, ent.Version(5), res.CommitVersion)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, res.Groups)
	assert.Equal(t, 5, res.SourceFiles)
	assert.Equal(t, 3, res.OutputFiles)

	snap, err := store.Snapshot()
	require.Nil(t, err)
	assert.Equal(t, ent.Version(5), snap.Version)
	require.Len(t, snap.Files, 3)

	seen := map[string]bool{}
	for _, f := range snap.Files {
		assert.True(t, strings.HasPrefix(f.Path, "events/"))
		assert.False(t, seen[f.Path], "path %q appears twice", f.Path)
		seen[f.Path] = true
		assert.False(t, f.DataChange)
	}
	assert.ElementsMatch(t, want, readAll(t, files, snap.Files))

	_, actions, err := store.ReadEntry(5)
	require.Nil(t, err)
	assert.Len(t, ent.Adds(actions), 3)
	assert.Len(t, ent.Removes(actions), 5)

	// the replaced files stay on disk until cleanup runs
	assert.Len(t, listPaths(t, files), 8)
}

func TestRunNoopBelowThreshold(t *testing.T) {
	_, store, files := newTestTable(t)
	appendVersion(t, store, files, 0, "events", nil, `{"id":0}`)
	appendVersion(t, store, files, 1, "events", nil, `{"id":1}`)

	c := newTestCompactor(t, store, files, WithNumFilePerDir(3))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.Equal(t, OutcomeNoop, res.Outcome)
	assert.Equal(t, ent.VersionNone, res.CommitVersion)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 0, res.OutputFiles)

	cur, err := store.CurrentVersion()
	require.Nil(t, err)
	assert.Equal(t, ent.Version(1), cur, "a noop must not commit anything")
	assert.Len(t, listPaths(t, files), 2)
}

func TestRunSkipsGroupsBelowThreshold(t *testing.T) {
	_, store, files := newTestTable(t)
	appendVersion(t, store, files, 0, "hot", nil, `{"id":0}`)
	appendVersion(t, store, files, 1, "hot", nil, `{"id":1}`)
	appendVersion(t, store, files, 2, "hot", nil, `{"id":2}`)
	cold := appendVersion(t, store, files, 3, "cold", nil, `{"id":3}`)

	c := newTestCompactor(t, store, files, WithNumFilePerDir(2))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, res.Groups)
	assert.Equal(t, 3, res.SourceFiles)
	assert.Equal(t, 2, res.OutputFiles)

	snap, err := store.Snapshot()
	require.Nil(t, err)
	require.Len(t, snap.Files, 3)

	var hot []ent.AddFile
	var coldSurvived bool
	for _, f := range snap.Files {
		if f.Path == cold.Path {
			coldSurvived = true
			continue
		}
		assert.True(t, strings.HasPrefix(f.Path, "hot/"))
		hot = append(hot, f)
	}
	assert.True(t, coldSurvived, "the under-threshold group must stay untouched")
	assert.Len(t, hot, 2)
}

func TestRunPartitionFilter(t *testing.T) {
	_, store, files := newTestTable(t)
	eu := map[string]string{"region": "eu"}
	us := map[string]string{"region": "us"}
	appendVersion(t, store, files, 0, "events", eu, `{"id":0}`)
	appendVersion(t, store, files, 1, "events", us, `{"id":1}`)
	appendVersion(t, store, files, 2, "events", eu, `{"id":2}`)
	appendVersion(t, store, files, 3, "events", us, `{"id":3}`)

	c := newTestCompactor(t, store, files, WithPartitionFilter("region=eu"))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 2, res.SourceFiles)
	assert.Equal(t, 1, res.OutputFiles)

	snap, err := store.Snapshot()
	require.Nil(t, err)
	require.Len(t, snap.Files, 3)

	var merged *ent.AddFile
	usLeft := 0
	for i, f := range snap.Files {
		switch f.PartitionValues["region"] {
		case "eu":
			require.Nil(t, merged, "all eu files must merge into one")
			merged = &snap.Files[i]
		case "us":
			usLeft++
		}
	}
	require.NotNil(t, merged)
	assert.Equal(t, 2, usLeft, "files outside the predicate stay untouched")
	assert.ElementsMatch(t, []string{`{"id":0}`, `{"id":2}`},
		readAll(t, files, []ent.AddFile{*merged}))
}

func TestRunVersionNotFound(t *testing.T) {
	_, store, files := newTestTable(t)
	for v := 0; v < 3; v++ {
		appendVersion(t, store, files, ent.Version(v), "events", nil, `{}`)
	}
	before := listPaths(t, files)

	c := newTestCompactor(t, store, files, WithVersion(7))
	res, err := c.Run(context.Background())
	require.NotNil(t, err)
	assert.Nil(t, res)
	assert.True(t, ent.IsVersionNotFound(err))

	cur, err := store.CurrentVersion()
	require.Nil(t, err)
	assert.Equal(t, ent.Version(2), cur)
	assert.Equal(t, before, listPaths(t, files), "no files may be touched")
}

func TestRunEmptyTable(t *testing.T) {
	_, store, files := newTestTable(t)

	c := newTestCompactor(t, store, files)
	res, err := c.Run(context.Background())
	require.NotNil(t, err)
	assert.Nil(t, res)
	assert.True(t, ent.IsVersionNotFound(err))
	assert.Contains(t, err.Error(), "no committed versions")
}

func TestRunProbesBeforeExecute(t *testing.T) {
	_, store, files := newTestTable(t)
	for v := 0; v < 3; v++ {
		appendVersion(t, store, files, ent.Version(v), "events", nil,
			fmt.Sprintf(`{"id":%d}`, v))
	}

	c := newTestCompactor(t, store, files, WithRetryTimesForLock(2))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, ent.Version(4), res.ReadVersion)
	assert.Equal(t, ent.Version(5), res.CommitVersion)

	// the two probes each claimed a version with a bare commitInfo entry
	for probe, version := range map[int]ent.Version{0: 3, 1: 4} {
		info, actions, err := store.ReadEntry(version)
		require.Nil(t, err)
		assert.Empty(t, actions, "probe entries carry no actions")
		assert.Equal(t, ent.OperationCompact, info.Operation)
		assert.Equal(t, "plan_only", info.OperationParams["mode"])
		assert.Equal(t, fmt.Sprintf("%d", probe), info.OperationParams["attempt"])
	}

	info, actions, err := store.ReadEntry(5)
	require.Nil(t, err)
	assert.Equal(t, "execute", info.OperationParams["mode"])
	assert.Equal(t, "2", info.OperationParams["attempt"])
	assert.Equal(t, ent.Version(4), info.ReadVersion)
	assert.Len(t, ent.Adds(actions), 1)
	assert.Len(t, ent.Removes(actions), 3)
}

// racingStore lets a rival writer sneak in a commit right before the
// compactor's own, recreating the timing of a concurrent transaction with
// the real exclusive-create conflict detection deciding the winner.
type racingStore struct {
	LogStore
	rival func(version ent.Version)
}

func (s *racingStore) Commit(version ent.Version, info ent.CommitInfo, actions []ent.Action) error {
	if s.rival != nil {
		s.rival(version)
	}
	return s.LogStore.Commit(version, info, actions)
}

func TestRunRetriesAfterProbeConflict(t *testing.T) {
	root, store, files := newTestTable(t)
	for v := 0; v < 3; v++ {
		appendVersion(t, store, files, ent.Version(v), "events", nil,
			fmt.Sprintf(`{"id":%d}`, v))
	}

	logger, _ := test.NewNullLogger()
	rivalStore := tablelog.NewStore(root, logger)

	racing := &racingStore{LogStore: store}
	fired := false
	racing.rival = func(version ent.Version) {
		if fired {
			return
		}
		fired = true

		add, err := files.WriteRecords(context.Background(), "other", 0, nil,
			[][]byte{[]byte(`{"rival":true}`)})
		require.Nil(t, err)
		add.DataChange = true
		require.Nil(t, rivalStore.Commit(version, ent.CommitInfo{
			Operation:   ent.OperationWrite,
			ReadVersion: version - 1,
			Timestamp:   time.Now().UnixMilli(),
		}, []ent.Action{ent.NewAdd(add)}))
	}

	c := newTestCompactor(t, racing, files,
		WithRetryTimesForLock(1),
		WithBackoffInterval(time.Millisecond),
		WithNumFilePerDir(2))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.True(t, fired)
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, ent.Version(3), res.ReadVersion, "retry must observe the rival's commit")
	assert.Equal(t, ent.Version(4), res.CommitVersion)

	// the rival's file is visible and survived the rewrite untouched
	snap, err := store.Snapshot()
	require.Nil(t, err)
	rivalSurvived := false
	for _, f := range snap.Files {
		if strings.HasPrefix(f.Path, "other/") {
			rivalSurvived = true
		}
	}
	assert.True(t, rivalSurvived)
}

func TestRunAbortsWhenBudgetExhausted(t *testing.T) {
	root, store, files := newTestTable(t)
	for v := 0; v < 3; v++ {
		appendVersion(t, store, files, ent.Version(v), "events", nil,
			fmt.Sprintf(`{"id":%d}`, v))
	}
	before := listPaths(t, files)

	logger, _ := test.NewNullLogger()
	rivalStore := tablelog.NewStore(root, logger)

	racing := &racingStore{LogStore: store}
	racing.rival = func(version ent.Version) {
		// the rival wins every slot the compactor goes for
		require.Nil(t, rivalStore.Commit(version, ent.CommitInfo{
			Operation:   ent.OperationWrite,
			ReadVersion: version - 1,
			Timestamp:   time.Now().UnixMilli(),
		}, nil))
	}

	c := newTestCompactor(t, racing, files,
		WithRetryTimesForLock(2),
		WithBackoffInterval(time.Millisecond))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.Equal(t, OutcomeAborted, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, ent.VersionNone, res.CommitVersion)
	assert.Equal(t, ent.Version(4), res.ReadVersion)
	assert.Equal(t, 0, res.OutputFiles)

	// everything the losing execute attempt wrote was rolled back
	assert.Equal(t, before, listPaths(t, files))

	// the table is exactly what the rival's commits describe
	snap, err := store.Snapshot()
	require.Nil(t, err)
	assert.Equal(t, ent.Version(5), snap.Version)
	assert.Len(t, snap.Files, 3)
}

// failingSink makes the nth write blow up to prove no half-rewritten state
// survives an attempt.
type failingSink struct {
	DataSink
	writes int
	failAt int
}

func (s *failingSink) WriteRecords(ctx context.Context, prefix string, seq int,
	partitionValues map[string]string, records [][]byte,
) (ent.AddFile, error) {
	s.writes++
	if s.writes == s.failAt {
		return ent.AddFile{}, fmt.Errorf("write %q: no space left on device", prefix)
	}
	return s.DataSink.WriteRecords(ctx, prefix, seq, partitionValues, records)
}

func TestRunRollsBackOnRewriteFailure(t *testing.T) {
	_, store, files := newTestTable(t)
	appendVersion(t, store, files, 0, "a", nil, `{"id":0}`)
	appendVersion(t, store, files, 1, "a", nil, `{"id":1}`)
	appendVersion(t, store, files, 2, "b", nil, `{"id":2}`)
	appendVersion(t, store, files, 3, "b", nil, `{"id":3}`)
	before := listPaths(t, files)

	sink := &failingSink{DataSink: files, failAt: 2}
	c := newTestCompactor(t, store, sink, WithNumFilePerDir(2))
	res, err := c.Run(context.Background())
	require.NotNil(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "rewrite")

	cur, err := store.CurrentVersion()
	require.Nil(t, err)
	assert.Equal(t, ent.Version(3), cur, "nothing may be committed")
	assert.Equal(t, before, listPaths(t, files),
		"files of the failed attempt must be deleted again")
}

func TestRunPinnedVersion(t *testing.T) {
	_, store, files := newTestTable(t)
	appendVersion(t, store, files, 0, "events", nil, `{"id":0}`)
	appendVersion(t, store, files, 1, "events", nil, `{"id":1}`)
	late := appendVersion(t, store, files, 2, "events", nil, `{"id":2}`)

	c := newTestCompactor(t, store, files, WithVersion(1))
	res, err := c.Run(context.Background())
	require.Nil(t, err)

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, ent.Version(2), res.ReadVersion,
		"the commit still claims the slot after the current tip")
	assert.Equal(t, ent.Version(3), res.CommitVersion)
	assert.Equal(t, 2, res.SourceFiles, "only files live at the pinned version")

	info, _, err := store.ReadEntry(3)
	require.Nil(t, err)
	assert.Equal(t, "1", info.OperationParams[config.PropCompactVersion])

	snap, err := store.Snapshot()
	require.Nil(t, err)
	lateSurvived := false
	for _, f := range snap.Files {
		if f.Path == late.Path {
			lateSurvived = true
		}
	}
	assert.True(t, lateSurvived, "files added after the pinned version stay")
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, store, files := newTestTable(t)
	logger, _ := test.NewNullLogger()

	for name, opt := range map[string]Option{
		"zero numFilePerDir":   WithNumFilePerDir(0),
		"negative retries":     WithRetryTimesForLock(-1),
		"version below latest": WithVersion(-2),
		"zero backoff":         WithBackoffInterval(0),
		"malformed filter":     WithPartitionFilter("region"),
		"config out of range":  FromConfig(config.Compaction{NumFilePerDir: -3}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(store, files, logger, opt)
			assert.NotNil(t, err)
		})
	}
}

func TestFromConfig(t *testing.T) {
	_, store, files := newTestTable(t)
	logger, _ := test.NewNullLogger()

	c, err := New(store, files, logger, FromConfig(config.Compaction{
		Version:           4,
		NumFilePerDir:     2,
		RetryTimesForLock: 3,
		PartitionFilter:   "region=eu",
	}))
	require.Nil(t, err)

	assert.Equal(t, ent.Version(4), c.version)
	assert.Equal(t, 2, c.numFilePerDir)
	assert.Equal(t, 3, c.retryTimesForLock)
	assert.False(t, c.predicate.Empty())
}
