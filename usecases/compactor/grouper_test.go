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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/logtable/entities/partitions"
	ent "github.com/weaviate/logtable/entities/tablelog"
)

func addAt(path string, partitionValues map[string]string) ent.AddFile {
	return ent.AddFile{Path: path, PartitionValues: partitionValues}
}

func TestGroupByPrefix(t *testing.T) {
	files := []ent.AddFile{
		addAt("events/part-b.ndjson", nil),
		addAt("part-a.ndjson", nil),
		addAt("events/2024/part-d.ndjson", nil),
		addAt("events/part-c.ndjson", nil),
	}

	groups := GroupByPrefix(files, partitions.Predicate{})
	require.Len(t, groups, 3)

	assert.Equal(t, "", groups[0].Prefix)
	assert.Equal(t, []ent.AddFile{files[1]}, groups[0].Files)

	assert.Equal(t, "events", groups[1].Prefix)
	assert.Equal(t, []ent.AddFile{files[0], files[3]}, groups[1].Files,
		"files keep their input order within a group")

	assert.Equal(t, "events/2024", groups[2].Prefix)
	assert.Equal(t, []ent.AddFile{files[2]}, groups[2].Files)
}

func TestGroupByPrefixAppliesPredicate(t *testing.T) {
	pred, err := partitions.Parse("region=eu")
	require.Nil(t, err)

	files := []ent.AddFile{
		addAt("events/part-a.ndjson", map[string]string{"region": "eu"}),
		addAt("events/part-b.ndjson", map[string]string{"region": "us"}),
		addAt("events/part-c.ndjson", nil),
		addAt("other/part-d.ndjson", map[string]string{"region": "eu"}),
	}

	groups := GroupByPrefix(files, pred)
	require.Len(t, groups, 2)
	assert.Equal(t, []ent.AddFile{files[0]}, groups[0].Files)
	assert.Equal(t, []ent.AddFile{files[3]}, groups[1].Files)
}

func TestGroupByPrefixIsDeterministic(t *testing.T) {
	files := []ent.AddFile{
		addAt("c/part-a.ndjson", nil),
		addAt("a/part-b.ndjson", nil),
		addAt("b/part-c.ndjson", nil),
		addAt("a/part-d.ndjson", nil),
	}

	first := GroupByPrefix(files, partitions.Predicate{})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, GroupByPrefix(files, partitions.Predicate{}))
	}
}

func TestSplitRecords(t *testing.T) {
	records := func(n int) [][]byte {
		out := make([][]byte, n)
		for i := range out {
			out[i] = []byte{byte(i)}
		}
		return out
	}

	tests := []struct {
		name      string
		records   int
		n         int
		wantSizes []int
	}{
		{name: "remainder spread over leading chunks", records: 5, n: 3, wantSizes: []int{2, 2, 1}},
		{name: "single chunk", records: 3, n: 1, wantSizes: []int{3}},
		{name: "even split", records: 4, n: 2, wantSizes: []int{2, 2}},
		{name: "more chunks than records", records: 2, n: 5, wantSizes: []int{1, 1}},
		{name: "zero chunks clamps to one", records: 3, n: 0, wantSizes: []int{3}},
		{name: "no records", records: 0, n: 5, wantSizes: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := records(tt.records)
			chunks := splitRecords(in, tt.n)

			if tt.records == 0 {
				assert.Nil(t, chunks)
				return
			}

			sizes := make([]int, 0, len(chunks))
			var flat [][]byte
			for _, chunk := range chunks {
				sizes = append(sizes, len(chunk))
				flat = append(flat, chunk...)
			}

			assert.Equal(t, tt.wantSizes, sizes)
			assert.Equal(t, in, flat,
				"concatenating the chunks must restore the input")
		})
	}
}
