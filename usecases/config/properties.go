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

package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Property keys accepted by ParseProperties. They mirror the option names
// callers pass per operation, layered over the file/env/flag config.
const (
	PropCompactVersion           = "compactVersion"
	PropCompactNumFilePerDir     = "compactNumFilePerDir"
	PropCompactRetryTimesForLock = "compactRetryTimesForLock"
	PropCompactPartitionFilter   = "compactPartitionFilter"
)

// ParseProperties overlays per-operation properties onto base and validates
// the result. Unknown keys carrying the compact prefix are rejected, they
// are almost certainly typos. Other keys are ignored so callers can share
// one property bag across subsystems.
func ParseProperties(base Compaction, props map[string]string) (Compaction, error) {
	out := base

	for k, v := range props {
		switch k {
		case PropCompactVersion:
			asInt, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return out, errors.Wrapf(err, "parse %s", PropCompactVersion)
			}
			out.Version = asInt

		case PropCompactNumFilePerDir:
			asInt, err := strconv.Atoi(v)
			if err != nil {
				return out, errors.Wrapf(err, "parse %s", PropCompactNumFilePerDir)
			}
			out.NumFilePerDir = asInt

		case PropCompactRetryTimesForLock:
			asInt, err := strconv.Atoi(v)
			if err != nil {
				return out, errors.Wrapf(err, "parse %s", PropCompactRetryTimesForLock)
			}
			out.RetryTimesForLock = asInt

		case PropCompactPartitionFilter:
			out.PartitionFilter = v

		default:
			if strings.HasPrefix(k, "compact") {
				return out, errors.Errorf("unknown compaction property %q", k)
			}
		}
	}

	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}
