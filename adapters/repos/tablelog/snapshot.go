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

package tablelog

import (
	"sort"

	"github.com/pkg/errors"

	ent "github.com/weaviate/logtable/entities/tablelog"
)

// SnapshotAt reconstructs the table state as of version by replaying the
// log: it seeds from the newest checkpoint at or below version, then applies
// the delta entries up to and including version in ascending order. Versions
// whose delta chain was cut short by retention cleanup are no longer
// reconstructible and yield an error.
func (s *Store) SnapshotAt(version ent.Version) (*ent.Snapshot, error) {
	if version < 0 {
		return nil, ent.VersionNotFoundError{Version: version}
	}

	refs, err := s.ListEntries()
	if err != nil {
		return nil, err
	}

	maxSeen := ent.VersionNone
	cpVersion := ent.VersionNone
	deltas := map[ent.Version]bool{}
	for _, ref := range refs {
		if ref.Version > maxSeen {
			maxSeen = ref.Version
		}
		switch ref.Kind {
		case ent.EntryKindCheckpoint:
			if ref.Version <= version && ref.Version > cpVersion {
				cpVersion = ref.Version
			}
		case ent.EntryKindDelta:
			deltas[ref.Version] = true
		}
	}

	if version > maxSeen {
		return nil, ent.VersionNotFoundError{Version: version}
	}

	files := map[string]ent.AddFile{}
	replayFrom := ent.Version(0)
	if cpVersion >= 0 {
		cpFiles, err := s.readCheckpoint(cpVersion)
		if err != nil {
			return nil, err
		}
		for _, add := range cpFiles {
			files[add.Path] = add
		}
		replayFrom = cpVersion + 1
	}

	for v := replayFrom; v <= version; v++ {
		if !deltas[v] {
			return nil, errors.Errorf(
				"cannot reconstruct version %d: log entry for version %d was already removed",
				version, v)
		}

		_, actions, err := s.ReadEntry(v)
		if err != nil {
			return nil, err
		}

		for _, action := range actions {
			switch {
			case action.Add != nil:
				files[action.Add.Path] = *action.Add
			case action.Remove != nil:
				delete(files, action.Remove.Path)
			}
		}
	}

	out := make([]ent.AddFile, 0, len(files))
	for _, add := range files {
		out = append(out, add)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return &ent.Snapshot{Version: version, Files: out}, nil
}

// Snapshot returns the state at the newest committed version. A table
// without any commits yields a VersionNotFoundError.
func (s *Store) Snapshot() (*ent.Snapshot, error) {
	cur, err := s.CurrentVersion()
	if err != nil {
		return nil, err
	}
	if cur == ent.VersionNone {
		return nil, ent.VersionNotFoundError{Version: ent.VersionNone}
	}
	return s.SnapshotAt(cur)
}
