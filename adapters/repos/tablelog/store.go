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

// Package tablelog persists a table's transaction log as one immutable file
// per committed version inside the _table_log directory. The log is the sole
// source of truth for table state, data files are immutable payload that the
// log points at. Concurrency control is optimistic: whoever creates the next
// version's entry file first wins, everyone else observes ErrConflict.
package tablelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/entities/diskio"
	ent "github.com/weaviate/logtable/entities/tablelog"
)

const (
	logDirName           = "_table_log"
	lastCheckpointMarker = "_last_checkpoint"
	deltaSuffix          = ".json"
	checkpointSuffix     = ".checkpoint.json"
	versionDigits        = 20

	// DefaultCheckpointInterval is the number of commits between automatic
	// checkpoints. Without checkpoints the log can never be truncated.
	DefaultCheckpointInterval = 10
)

type Store struct {
	rootDir            string
	logDir             string
	checkpointInterval int
	logger             logrus.FieldLogger
}

func NewStore(rootDir string, logger logrus.FieldLogger) *Store {
	return &Store{
		rootDir:            rootDir,
		logDir:             filepath.Join(rootDir, logDirName),
		checkpointInterval: DefaultCheckpointInterval,
		logger:             logger,
	}
}

// SetCheckpointInterval overrides how many commits apart automatic
// checkpoints are written. Zero or negative disables them.
func (s *Store) SetCheckpointInterval(interval int) {
	s.checkpointInterval = interval
}

// RootDir returns the table root directory this store operates on. Data file
// paths in log entries are relative to it.
func (s *Store) RootDir() string {
	return s.rootDir
}

// EnsureInitialized creates the log directory if it does not exist yet. Safe
// to call on every open, including concurrently from multiple writers.
func (s *Store) EnsureInitialized() error {
	if err := os.MkdirAll(s.logDir, 0o755); err != nil {
		return errors.Wrapf(err, "create log directory %q", s.logDir)
	}
	return nil
}

// ListEntries returns all log entries sorted by version, the checkpoint of a
// version sorting before its delta. Foreign files in the log directory, such
// as the _last_checkpoint marker or leftover temp files, are skipped.
func (s *Store) ListEntries() ([]ent.LogEntryRef, error) {
	dirents, err := os.ReadDir(s.logDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read log directory %q", s.logDir)
	}

	var refs []ent.LogEntryRef
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		ref, ok := parseEntryName(de.Name())
		if !ok {
			continue
		}
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Version != refs[j].Version {
			return refs[i].Version < refs[j].Version
		}
		return refs[i].Kind < refs[j].Kind
	})

	return refs, nil
}

// CurrentVersion returns the newest committed version, or VersionNone when
// the log holds no delta entries yet.
func (s *Store) CurrentVersion() (ent.Version, error) {
	refs, err := s.ListEntries()
	if err != nil {
		return ent.VersionNone, err
	}

	cur := ent.VersionNone
	for _, ref := range refs {
		if ref.Kind == ent.EntryKindDelta && ref.Version > cur {
			cur = ref.Version
		}
	}
	return cur, nil
}

// VersionExists reports whether version is part of log history. A version
// whose delta was truncated away still exists as long as a checkpoint holds
// its state.
func (s *Store) VersionExists(version ent.Version) (bool, error) {
	if version < 0 {
		return false, nil
	}

	ok, err := diskio.FileExists(filepath.Join(s.logDir, deltaFileName(version)))
	if ok || err != nil {
		return ok, err
	}
	return diskio.FileExists(filepath.Join(s.logDir, checkpointFileName(version)))
}

// Commit writes the delta entry for version with exclusive-create semantics.
// The create call is the serialization point: if another writer committed
// this version first, ErrConflict is returned and nothing is written.
func (s *Store) Commit(version ent.Version, info ent.CommitInfo, actions []ent.Action) error {
	if version < 0 {
		return errors.Errorf("cannot commit negative version %d", version)
	}

	data, err := MarshalEntry(info, actions)
	if err != nil {
		return errors.Wrapf(err, "encode log entry for version %d", version)
	}

	path := filepath.Join(s.logDir, deltaFileName(version))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		return ent.ErrConflict
	}
	if err != nil {
		return errors.Wrapf(err, "create log entry %q", path)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrapf(err, "write log entry %q", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrapf(err, "fsync log entry %q", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close log entry %q", path)
	}

	if err := diskio.Fsync(s.logDir); err != nil {
		return errors.Wrapf(err, "fsync log directory %q", s.logDir)
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "tablelog_commit",
		"version": version,
		"adds":    len(ent.Adds(actions)),
		"removes": len(ent.Removes(actions)),
	}).Debug("committed log entry")

	s.maybeCheckpoint(version)

	return nil
}

// maybeCheckpoint writes a checkpoint when version lands on the configured
// interval. The commit is already durable at this point, so failures are
// logged and swallowed, the next interval gets another chance.
func (s *Store) maybeCheckpoint(version ent.Version) {
	if s.checkpointInterval <= 0 || version <= 0 ||
		version%ent.Version(s.checkpointInterval) != 0 {
		return
	}

	snap, err := s.SnapshotAt(version)
	if err == nil {
		err = s.WriteCheckpoint(snap)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"action":  "tablelog_checkpoint",
			"version": version,
		}).WithError(err).Warning("interval checkpoint not written")
	}
}

// ReadEntry decodes the delta entry for version. A missing file yields a
// VersionNotFoundError, an undecodable one a CorruptEntryError.
func (s *Store) ReadEntry(version ent.Version) (*ent.CommitInfo, []ent.Action, error) {
	path := filepath.Join(s.logDir, deltaFileName(version))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, ent.VersionNotFoundError{Version: version}
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read log entry %q", path)
	}

	info, actions, err := UnmarshalEntry(data)
	if err != nil {
		return nil, nil, ent.CorruptEntryError{Path: path, Reason: err.Error()}
	}
	return info, actions, nil
}

// RemoveEntry deletes a single log entry file. Used by retention cleanup
// after a checkpoint has superseded the entry. Missing files are ignored so
// that concurrent cleaners do not trip over each other.
func (s *Store) RemoveEntry(ref ent.LogEntryRef) error {
	path := filepath.Join(s.logDir, ref.Path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove log entry %q", path)
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "tablelog_cleanup",
		"version": ref.Version,
		"kind":    ref.Kind,
	}).Debug("removed log entry")

	return nil
}

func deltaFileName(version ent.Version) string {
	return fmt.Sprintf("%020d%s", version, deltaSuffix)
}

func checkpointFileName(version ent.Version) string {
	return fmt.Sprintf("%020d%s", version, checkpointSuffix)
}

// parseEntryName maps a log directory file name back to a LogEntryRef. The
// ref's Path carries the base name, not the full path. Checkpoint names end
// in ".json" too, so they must be matched first.
func parseEntryName(name string) (ent.LogEntryRef, bool) {
	switch {
	case strings.HasSuffix(name, checkpointSuffix):
		v, ok := parseVersion(strings.TrimSuffix(name, checkpointSuffix))
		if !ok {
			return ent.LogEntryRef{}, false
		}
		return ent.LogEntryRef{Version: v, Kind: ent.EntryKindCheckpoint, Path: name}, true

	case strings.HasSuffix(name, deltaSuffix):
		v, ok := parseVersion(strings.TrimSuffix(name, deltaSuffix))
		if !ok {
			return ent.LogEntryRef{}, false
		}
		return ent.LogEntryRef{Version: v, Kind: ent.EntryKindDelta, Path: name}, true

	default:
		return ent.LogEntryRef{}, false
	}
}

func parseVersion(raw string) (ent.Version, bool) {
	if len(raw) != versionDigits {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return ent.Version(n), true
}
