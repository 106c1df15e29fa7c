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

import "github.com/pkg/errors"

// Operation names recorded in a commit's metadata.
const (
	OperationWrite   = "WRITE"
	OperationCompact = "COMPACT"
)

// AddFile makes a data file logically part of the table as of the version it
// is committed at. Paths are always relative to the table root and use
// forward slashes regardless of platform.
type AddFile struct {
	Path             string            `json:"path"`
	Size             int64             `json:"size"`
	PartitionValues  map[string]string `json:"partitionValues,omitempty"`
	ModificationTime int64             `json:"modificationTime"`
	DataChange       bool              `json:"dataChange"`
	Stats            *FileStats        `json:"stats,omitempty"`
}

// FileStats carries per-file statistics. Kept minimal on purpose, the
// compaction protocol only ever needs record counts.
type FileStats struct {
	NumRecords int64 `json:"numRecords"`
}

// RemoveFile removes a data file from the table as of the version it is
// committed at. The physical file may outlive the action until cleanup gets
// to it.
type RemoveFile struct {
	Path              string `json:"path"`
	DeletionTimestamp int64  `json:"deletionTimestamp,omitempty"`
	DataChange        bool   `json:"dataChange"`
}

// Action is one atomic element of a state transition. Exactly one member is
// set; the JSON representation keys the member name, one object per log
// line.
type Action struct {
	Add    *AddFile    `json:"add,omitempty"`
	Remove *RemoveFile `json:"remove,omitempty"`
}

func NewAdd(add AddFile) Action {
	return Action{Add: &add}
}

func NewRemove(remove RemoveFile) Action {
	return Action{Remove: &remove}
}

// Validate ensures the tagged union holds exactly one member.
func (a Action) Validate() error {
	if a.Add == nil && a.Remove == nil {
		return errors.New("action carries neither add nor remove")
	}
	if a.Add != nil && a.Remove != nil {
		return errors.Errorf("action carries both add (%q) and remove (%q)",
			a.Add.Path, a.Remove.Path)
	}
	return nil
}

// Adds extracts the add actions of an action set in order.
func Adds(actions []Action) []AddFile {
	var out []AddFile
	for _, a := range actions {
		if a.Add != nil {
			out = append(out, *a.Add)
		}
	}
	return out
}

// Removes extracts the remove actions of an action set in order.
func Removes(actions []Action) []RemoveFile {
	var out []RemoveFile
	for _, a := range actions {
		if a.Remove != nil {
			out = append(out, *a.Remove)
		}
	}
	return out
}

// CommitInfo is the operation metadata attached to every commit. It is
// serialized as the first line of a delta entry and never influences
// snapshot state.
type CommitInfo struct {
	Operation       string            `json:"operation"`
	OperationParams map[string]string `json:"operationParams,omitempty"`
	ReadVersion     Version           `json:"readVersion"`
	Timestamp       int64             `json:"timestamp"`
	EngineInfo      string            `json:"engineInfo,omitempty"`
}
