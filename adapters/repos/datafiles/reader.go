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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/entities/concurrency"
	"github.com/weaviate/logtable/entities/diskio"
	enterrors "github.com/weaviate/logtable/entities/errors"
	ent "github.com/weaviate/logtable/entities/tablelog"
)

// ChecksumError reports a data file whose content no longer matches its
// checksum sidecar.
type ChecksumError struct {
	Path     string
	Expected string
	Actual   string
}

func (e ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %q: sidecar has %s, content is %s",
		e.Path, e.Expected, e.Actual)
}

// ReadRecords loads the given files concurrently, bounded by the context's
// concurrency budget. The result is index aligned with files and record
// order within a file is preserved. When a checksum sidecar exists, the file
// content is verified against it before its records are handed out.
func (r *Repo) ReadRecords(ctx context.Context, files []ent.AddFile) ([][][]byte, error) {
	out := make([][][]byte, len(files))

	eg := enterrors.NewErrorGroupWrapper(r.logger)
	eg.SetLimit(concurrency.BudgetFromCtx(ctx, concurrency.DefaultBudget()))

	for i := range files {
		i := i
		relPath := files[i].Path
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			records, err := r.readOne(relPath)
			if err != nil {
				return err
			}
			out[i] = records
			return nil
		}, relPath)
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) readOne(relPath string) ([][]byte, error) {
	abs, err := r.resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "open data file %q", abs)
	}
	defer f.Close()

	digest := xxhash.New()
	reader := diskio.NewMeteredReader(io.TeeReader(f, digest), func(n, ns int64) {
		r.metrics.ReadBytes(n)
	})

	var records [][]byte
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		rec := make([]byte, len(line))
		copy(rec, line)
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan data file %q", abs)
	}

	sidecar, err := os.ReadFile(abs + ChecksumSuffix)
	if os.IsNotExist(err) {
		// files written by foreign tools may lack a sidecar
		r.logger.WithFields(logrus.Fields{
			"action": "datafiles_read",
			"path":   relPath,
		}).Warn("data file has no checksum sidecar, skipping verification")
		return records, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read checksum sidecar of %q", abs)
	}

	expected := strings.TrimSpace(string(sidecar))
	actual := fmt.Sprintf("%016x", digest.Sum64())
	if expected != actual {
		return nil, ChecksumError{Path: relPath, Expected: expected, Actual: actual}
	}

	return records, nil
}
