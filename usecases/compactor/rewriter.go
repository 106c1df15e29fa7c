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
	"context"
	"time"

	ent "github.com/weaviate/logtable/entities/tablelog"
)

// rewrite materializes the plan: for every group it reads the source files,
// concatenates their records in file order, and writes them back as at most
// numFilePerDir files under the same prefix. It returns the action set for
// the commit (adds first, then removes) together with the paths of all files
// written, so the caller can delete them again if the commit never happens.
func (c *Compactor) rewrite(ctx context.Context, plan *Plan) ([]ent.Action, []string, error) {
	var actions []ent.Action
	var removes []ent.Action
	var written []string

	now := time.Now().UnixMilli()
	for _, group := range plan.Groups {
		records, err := c.files.ReadRecords(ctx, group.Files)
		if err != nil {
			return nil, written, err
		}

		var flat [][]byte
		for _, recs := range records {
			flat = append(flat, recs...)
		}
		partitionValues := commonPartitionValues(group.Files)

		for seq, chunk := range splitRecords(flat, c.numFilePerDir) {
			add, err := c.files.WriteRecords(ctx, group.Prefix, seq, partitionValues, chunk)
			if err != nil {
				return nil, written, err
			}
			written = append(written, add.Path)

			// Compaction shuffles bytes without changing table contents.
			add.DataChange = false
			actions = append(actions, ent.NewAdd(add))
		}

		for _, f := range group.Files {
			removes = append(removes, ent.NewRemove(ent.RemoveFile{
				Path:              f.Path,
				DeletionTimestamp: now,
				DataChange:        false,
			}))
		}
	}

	return append(actions, removes...), written, nil
}

// commonPartitionValues keeps the column=value pairs shared by every file in
// the group. Files carved out of the same directory usually agree on all of
// them; where they disagree the merged file simply drops the column.
func commonPartitionValues(files []ent.AddFile) map[string]string {
	if len(files) == 0 {
		return nil
	}

	common := map[string]string{}
	for col, val := range files[0].PartitionValues {
		common[col] = val
	}
	for _, f := range files[1:] {
		for col, val := range common {
			if other, ok := f.PartitionValues[col]; !ok || other != val {
				delete(common, col)
			}
		}
	}
	if len(common) == 0 {
		return nil
	}
	return common
}
