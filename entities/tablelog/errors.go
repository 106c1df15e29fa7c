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
	"errors"
	"fmt"
)

// ErrConflict signals that another transaction committed the version this
// transaction attempted to claim. The caller may retry against a newer read
// version; the log itself stays consistent.
var ErrConflict = errors.New("concurrent transaction committed this version first")

// IsConflict reports whether err (or anything it wraps) is a commit
// conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// VersionNotFoundError is returned when a requested version does not exist
// in log history, either because it was never committed or because cleanup
// truncated it away.
type VersionNotFoundError struct {
	Version Version
}

func (e VersionNotFoundError) Error() string {
	if e.Version == VersionNone {
		return "log has no committed versions"
	}
	return fmt.Sprintf("version %d does not exist in log history", e.Version)
}

// IsVersionNotFound reports whether err (or anything it wraps) is a
// VersionNotFoundError.
func IsVersionNotFound(err error) bool {
	var target VersionNotFoundError
	return errors.As(err, &target)
}

// CorruptEntryError is returned when a log segment file cannot be decoded or
// violates a log invariant, such as two live adds for one path.
type CorruptEntryError struct {
	Path   string
	Reason string
}

func (e CorruptEntryError) Error() string {
	return fmt.Sprintf("corrupt log entry %q: %s", e.Path, e.Reason)
}
