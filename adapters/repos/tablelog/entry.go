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

	"github.com/pkg/errors"

	ent "github.com/weaviate/logtable/entities/tablelog"
)

// entryLine is the wire form of a single line in a log entry file. Exactly
// one member is set per line.
type entryLine struct {
	CommitInfo *ent.CommitInfo `json:"commitInfo,omitempty"`
	Add        *ent.AddFile    `json:"add,omitempty"`
	Remove     *ent.RemoveFile `json:"remove,omitempty"`
}

func (l entryLine) validate() error {
	set := 0
	if l.CommitInfo != nil {
		set++
	}
	if l.Add != nil {
		set++
	}
	if l.Remove != nil {
		set++
	}
	if set != 1 {
		return errors.Errorf("expected exactly one of commitInfo, add, remove per line, got %d", set)
	}
	return nil
}

// MarshalEntry encodes a delta entry as newline-delimited JSON: the
// commitInfo line first, then one line per action in input order.
func MarshalEntry(info ent.CommitInfo, actions []ent.Action) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	if err := enc.Encode(entryLine{CommitInfo: &info}); err != nil {
		return nil, errors.Wrap(err, "encode commitInfo line")
	}

	for i, action := range actions {
		if err := action.Validate(); err != nil {
			return nil, errors.Wrapf(err, "action %d", i)
		}
		if err := enc.Encode(entryLine{Add: action.Add, Remove: action.Remove}); err != nil {
			return nil, errors.Wrapf(err, "encode action %d", i)
		}
	}

	return buf.Bytes(), nil
}

// UnmarshalEntry decodes a delta entry. The commitInfo may be absent in
// entries written by foreign tools, in which case nil is returned for it.
func UnmarshalEntry(data []byte) (*ent.CommitInfo, []ent.Action, error) {
	var info *ent.CommitInfo
	var actions []ent.Action

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
			return nil, nil, errors.Wrapf(err, "line %d", lineNo)
		}
		if err := line.validate(); err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", lineNo)
		}

		switch {
		case line.CommitInfo != nil:
			if info != nil {
				return nil, nil, errors.Errorf("line %d: duplicate commitInfo", lineNo)
			}
			info = line.CommitInfo
		case line.Add != nil:
			actions = append(actions, ent.NewAdd(*line.Add))
		case line.Remove != nil:
			actions = append(actions, ent.NewRemove(*line.Remove))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "scan entry")
	}

	return info, actions, nil
}
