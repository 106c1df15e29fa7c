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
	ent "github.com/weaviate/logtable/entities/tablelog"
)

// Plan is the outcome of one planning pass: which directory groups are worth
// rewriting, based on which snapshot. An empty Groups slice means the table
// is already as compact as the settings ask for.
type Plan struct {
	SnapshotVersion ent.Version
	Groups          []Group
	SourceFiles     int
}

func (p *Plan) empty() bool {
	return len(p.Groups) == 0
}

// buildPlan materializes the snapshot at the resolved version and keeps the
// groups holding at least numFilePerDir files. Smaller groups are skipped
// before any file is read, a directory below the threshold costs no I/O.
func (c *Compactor) buildPlan(version ent.Version) (*Plan, error) {
	snap, err := c.store.SnapshotAt(version)
	if err != nil {
		return nil, err
	}

	plan := &Plan{SnapshotVersion: snap.Version}
	for _, group := range GroupByPrefix(snap.Files, c.predicate) {
		if len(group.Files) < c.numFilePerDir {
			continue
		}
		plan.Groups = append(plan.Groups, group)
		plan.SourceFiles += len(group.Files)
	}
	return plan, nil
}
