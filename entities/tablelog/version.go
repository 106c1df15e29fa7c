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

// Version identifies a point in a table log's history. Versions are
// non-negative and strictly increasing; the log's current version is the
// highest version committed so far.
type Version int64

// VersionNone marks a log without any committed entry, e.g. a freshly
// initialized table.
const VersionNone Version = -1

// EntryKind distinguishes the two kinds of files that make up log history.
type EntryKind string

const (
	// EntryKindDelta is a single committed state transition.
	EntryKindDelta EntryKind = "delta"
	// EntryKindCheckpoint is a consolidated snapshot of the live-file state
	// at its version, making older raw entries redundant.
	EntryKindCheckpoint EntryKind = "checkpoint"
)

// LogEntryRef points at one physical log segment file without parsing its
// contents.
type LogEntryRef struct {
	Version Version
	Kind    EntryKind
	Path    string
}
