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

	ent "github.com/weaviate/logtable/entities/tablelog"
)

func TestCommonPartitionValues(t *testing.T) {
	tests := []struct {
		name  string
		files []ent.AddFile
		want  map[string]string
	}{
		{
			name: "all files agree",
			files: []ent.AddFile{
				addAt("a", map[string]string{"region": "eu", "year": "2026"}),
				addAt("b", map[string]string{"region": "eu", "year": "2026"}),
			},
			want: map[string]string{"region": "eu", "year": "2026"},
		},
		{
			name: "disagreement drops the column",
			files: []ent.AddFile{
				addAt("a", map[string]string{"region": "eu", "year": "2026"}),
				addAt("b", map[string]string{"region": "us", "year": "2026"}),
			},
			want: map[string]string{"year": "2026"},
		},
		{
			name: "missing column drops it too",
			files: []ent.AddFile{
				addAt("a", map[string]string{"region": "eu"}),
				addAt("b", nil),
			},
			want: nil,
		},
		{
			name: "single file keeps everything",
			files: []ent.AddFile{
				addAt("a", map[string]string{"region": "eu"}),
			},
			want: map[string]string{"region": "eu"},
		},
		{
			name:  "no files",
			files: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commonPartitionValues(tt.files))
		})
	}
}
