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
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/entities/diskio"
	ent "github.com/weaviate/logtable/entities/tablelog"
)

// lastCheckpoint mirrors the JSON body of the _last_checkpoint marker file.
// Size is the number of add lines in the referenced checkpoint entry.
type lastCheckpoint struct {
	Version ent.Version `json:"version"`
	Size    int64       `json:"size"`
}

// LastCheckpoint returns the version the _last_checkpoint marker points at.
// The second return is false when no checkpoint was written yet.
func (s *Store) LastCheckpoint() (ent.Version, bool, error) {
	path := filepath.Join(s.logDir, lastCheckpointMarker)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ent.VersionNone, false, nil
	}
	if err != nil {
		return ent.VersionNone, false, errors.Wrapf(err, "read checkpoint marker %q", path)
	}

	var lc lastCheckpoint
	if err := json.Unmarshal(data, &lc); err != nil {
		return ent.VersionNone, false, ent.CorruptEntryError{Path: path, Reason: err.Error()}
	}
	return lc.Version, true, nil
}

// WriteCheckpoint persists the full file listing of snap as a checkpoint
// entry and moves the _last_checkpoint marker to it. Once the marker points
// at version v, every delta at or below v is no longer needed for replay and
// becomes a cleanup candidate. Both files are written through a temp file and
// renamed into place, a crash can never leave a half-written checkpoint
// visible under its final name.
func (s *Store) WriteCheckpoint(snap *ent.Snapshot) error {
	if snap.Version < 0 {
		return errors.New("cannot checkpoint a table without commits")
	}

	data, err := marshalCheckpoint(snap)
	if err != nil {
		return errors.Wrapf(err, "encode checkpoint for version %d", snap.Version)
	}

	path := filepath.Join(s.logDir, checkpointFileName(snap.Version))
	if err := s.writeAtomically(path, data); err != nil {
		return errors.Wrapf(err, "write checkpoint %q", path)
	}

	marker, err := json.Marshal(lastCheckpoint{
		Version: snap.Version,
		Size:    int64(len(snap.Files)),
	})
	if err != nil {
		return errors.Wrap(err, "encode checkpoint marker")
	}

	markerPath := filepath.Join(s.logDir, lastCheckpointMarker)
	if err := s.writeAtomically(markerPath, marker); err != nil {
		return errors.Wrapf(err, "write checkpoint marker %q", markerPath)
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "tablelog_checkpoint",
		"version": snap.Version,
		"files":   len(snap.Files),
	}).Debug("wrote checkpoint")

	return nil
}

func (s *Store) writeAtomically(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	return diskio.Fsync(s.logDir)
}

func (s *Store) readCheckpoint(version ent.Version) ([]ent.AddFile, error) {
	path := filepath.Join(s.logDir, checkpointFileName(version))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read checkpoint %q", path)
	}

	files, err := unmarshalCheckpoint(data)
	if err != nil {
		return nil, ent.CorruptEntryError{Path: path, Reason: err.Error()}
	}
	return files, nil
}

// marshalCheckpoint encodes the surviving files of a snapshot as
// newline-delimited add lines. Checkpoints carry no commitInfo and no
// removes, they are a materialized view, not a diff.
func marshalCheckpoint(snap *ent.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for i := range snap.Files {
		if err := enc.Encode(entryLine{Add: &snap.Files[i]}); err != nil {
			return nil, errors.Wrapf(err, "encode add line %d", i)
		}
	}
	return buf.Bytes(), nil
}

func unmarshalCheckpoint(data []byte) ([]ent.AddFile, error) {
	var files []ent.AddFile

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var line entryLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		if line.Add == nil || line.CommitInfo != nil || line.Remove != nil {
			return nil, errors.Errorf("line %d: checkpoint entries may only carry add lines", lineNo)
		}
		files = append(files, *line.Add)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan checkpoint")
	}

	return files, nil
}
