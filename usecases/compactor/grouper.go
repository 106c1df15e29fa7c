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
	"sort"
	"strings"

	"github.com/weaviate/logtable/entities/partitions"
	ent "github.com/weaviate/logtable/entities/tablelog"
)

// Group is the unit of rewriting: all live data files sharing one directory
// prefix.
type Group struct {
	// Prefix is the path up to the final "/". Files at the table root share
	// the empty prefix.
	Prefix string
	Files  []ent.AddFile
}

// GroupByPrefix splits files by their directory prefix, keeping only files
// the predicate matches. The output is deterministic for a given input:
// groups sorted by prefix, files within a group in input order. Two
// planners over the same snapshot derive identical groups.
func GroupByPrefix(files []ent.AddFile, pred partitions.Predicate) []Group {
	byPrefix := map[string][]ent.AddFile{}
	for _, f := range files {
		if !pred.Match(f.PartitionValues) {
			continue
		}

		prefix := ""
		if i := strings.LastIndex(f.Path, "/"); i >= 0 {
			prefix = f.Path[:i]
		}
		byPrefix[prefix] = append(byPrefix[prefix], f)
	}

	prefixes := make([]string, 0, len(byPrefix))
	for prefix := range byPrefix {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	groups := make([]Group, 0, len(prefixes))
	for _, prefix := range prefixes {
		groups = append(groups, Group{Prefix: prefix, Files: byPrefix[prefix]})
	}
	return groups
}

// splitRecords partitions records into at most n chunks of near-equal size,
// preserving order. Chunks that would come out empty are not returned,
// compacting three records toward five files makes three files, not five.
func splitRecords(records [][]byte, n int) [][][]byte {
	if len(records) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > len(records) {
		n = len(records)
	}

	base := len(records) / n
	extra := len(records) % n

	chunks := make([][][]byte, 0, n)
	idx := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, records[idx:idx+size])
		idx += size
	}
	return chunks
}
