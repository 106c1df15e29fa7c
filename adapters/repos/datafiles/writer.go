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

package datafiles

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/entities/diskio"
	ent "github.com/weaviate/logtable/entities/tablelog"
)

// WriteRecords persists records as a single data file below prefix and
// returns the add payload describing it. File names embed a sequence number
// and a random uuid, concurrent writers can never collide on a name. The
// xxh64 digest of the content is written to a sidecar next to the file.
//
// The returned AddFile leaves DataChange unset, the surrounding commit
// decides whether the write changed table content or only rearranged it.
func (r *Repo) WriteRecords(ctx context.Context, prefix string, seq int,
	partitionValues map[string]string, records [][]byte,
) (ent.AddFile, error) {
	if err := ctx.Err(); err != nil {
		return ent.AddFile{}, err
	}

	name := fmt.Sprintf("part-%05d-%s%s", seq, uuid.New().String(), DataFileSuffix)
	rel := name
	if prefix != "" {
		rel = path.Join(prefix, name)
	}

	abs, err := r.resolve(rel)
	if err != nil {
		return ent.AddFile{}, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ent.AddFile{}, errors.Wrapf(err, "create data directory for %q", rel)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return ent.AddFile{}, errors.Wrapf(err, "create data file %q", abs)
	}

	digest := xxhash.New()
	w := diskio.NewMeteredWriter(io.MultiWriter(f, digest), func(n int64) {
		r.metrics.WriteBytes(n)
	})

	if err := writeNDJSON(w, records); err != nil {
		f.Close()
		os.Remove(abs)
		return ent.AddFile{}, errors.Wrapf(err, "write data file %q", abs)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(abs)
		return ent.AddFile{}, errors.Wrapf(err, "fsync data file %q", abs)
	}
	if err := f.Close(); err != nil {
		os.Remove(abs)
		return ent.AddFile{}, errors.Wrapf(err, "close data file %q", abs)
	}

	sum := fmt.Sprintf("%016x\n", digest.Sum64())
	if err := writeFileSynced(abs+ChecksumSuffix, []byte(sum)); err != nil {
		os.Remove(abs)
		return ent.AddFile{}, errors.Wrapf(err, "write checksum sidecar for %q", abs)
	}

	if err := diskio.Fsync(filepath.Dir(abs)); err != nil {
		return ent.AddFile{}, errors.Wrapf(err, "fsync data directory of %q", rel)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return ent.AddFile{}, errors.Wrapf(err, "stat data file %q", abs)
	}

	r.logger.WithFields(logrus.Fields{
		"action":  "datafiles_write",
		"path":    rel,
		"records": len(records),
		"bytes":   info.Size(),
	}).Debug("wrote data file")

	return ent.AddFile{
		Path:             rel,
		Size:             info.Size(),
		PartitionValues:  partitionValues,
		ModificationTime: info.ModTime().UnixMilli(),
		Stats:            &ent.FileStats{NumRecords: int64(len(records))},
	}, nil
}

func writeNDJSON(w io.Writer, records [][]byte) error {
	buf := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := buf.Write(rec); err != nil {
			return err
		}
		if err := buf.WriteByte('\n'); err != nil {
			return err
		}
	}
	return buf.Flush()
}

func writeFileSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
