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

// Package datafiles reads and writes the immutable data files a table's log
// points at. Records are newline-delimited JSON, each data file carries an
// xxh64 checksum sidecar. The repo never mutates a file in place: writers
// create new files, cleanup deletes whole files, everything in between is
// the log's business.
package datafiles

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/entities/diskio"
	"github.com/weaviate/logtable/usecases/monitoring"
)

const (
	DataFileSuffix = ".ndjson"
	ChecksumSuffix = ".xxh64"

	logDirName = "_table_log"
)

type Repo struct {
	rootDir string
	logger  logrus.FieldLogger
	metrics *Metrics
}

func NewRepo(rootDir string, logger logrus.FieldLogger,
	promMetrics *monitoring.PrometheusMetrics,
) *Repo {
	return &Repo{
		rootDir: rootDir,
		logger:  logger,
		metrics: NewMetrics(promMetrics, filepath.Base(rootDir)),
	}
}

// resolve maps a slash-separated table-relative path to an absolute path,
// rejecting anything that would escape the table root. Log entries are data
// read from disk, their paths are not trusted.
func (r *Repo) resolve(relPath string) (string, error) {
	return diskio.SanitizeFilePathJoin(r.rootDir, filepath.FromSlash(relPath))
}

// PhysicalFile describes a data file found on disk, with its path relative
// to the table root in slash form.
type PhysicalFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// ListDataFiles walks the table root and returns every data file outside
// the log directory, sorted by path. Checksum sidecars are not listed, they
// share the fate of their data file.
func (r *Repo) ListDataFiles() ([]PhysicalFile, error) {
	logDir := filepath.Join(r.rootDir, logDirName)

	var out []PhysicalFile
	err := filepath.WalkDir(r.rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == logDir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ChecksumSuffix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.rootDir, p)
		if err != nil {
			return err
		}

		out = append(out, PhysicalFile{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk table root %q", r.rootDir)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Delete removes a data file and its checksum sidecar, then prunes any
// directories the removal left empty. Missing files are ignored so that
// repeated cleanup runs stay idempotent.
func (r *Repo) Delete(relPath string) error {
	abs, err := r.resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove data file %q", abs)
	}
	if err := os.Remove(abs + ChecksumSuffix); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove checksum sidecar of %q", abs)
	}

	for rel := path.Dir(path.Clean(relPath)); rel != "." && rel != "/"; rel = path.Dir(rel) {
		removed, err := diskio.RemoveDirIfEmpty(filepath.Join(r.rootDir, filepath.FromSlash(rel)))
		if err != nil {
			return errors.Wrapf(err, "prune directory of %q", relPath)
		}
		if !removed {
			break
		}
	}

	r.logger.WithFields(logrus.Fields{
		"action": "datafiles_delete",
		"path":   relPath,
	}).Debug("deleted data file")

	return nil
}

type Metrics struct {
	readBytes  prometheus.Counter
	writeBytes prometheus.Counter
}

func NewMetrics(prom *monitoring.PrometheusMetrics, table string) *Metrics {
	if prom == nil {
		return nil
	}
	return &Metrics{
		readBytes: prom.FileIOBytes.With(prometheus.Labels{
			"table": table, "operation": "read",
		}),
		writeBytes: prom.FileIOBytes.With(prometheus.Labels{
			"table": table, "operation": "write",
		}),
	}
}

func (m *Metrics) ReadBytes(n int64) {
	if m == nil {
		return
	}
	m.readBytes.Add(float64(n))
}

func (m *Metrics) WriteBytes(n int64) {
	if m == nil {
		return
	}
	m.writeBytes.Add(float64(n))
}
