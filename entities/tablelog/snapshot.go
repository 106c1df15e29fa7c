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

// Snapshot is the materialized live-file state of a table at a single
// version: every add not yet matched by a remove at or before that version.
// Files are sorted by path and paths are unique, a path is never represented
// by two live adds at once.
type Snapshot struct {
	Version Version
	Files   []AddFile
}

// TotalSize sums the sizes of all live files.
func (s *Snapshot) TotalSize() int64 {
	var size int64
	for _, f := range s.Files {
		size += f.Size
	}
	return size
}

// TotalRecords sums the record counts of all live files that carry stats.
func (s *Snapshot) TotalRecords() int64 {
	var n int64
	for _, f := range s.Files {
		if f.Stats != nil {
			n += f.Stats.NumRecords
		}
	}
	return n
}
