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

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/logtable/adapters/repos/datafiles"
	"github.com/weaviate/logtable/adapters/repos/tablelog"
	enterrors "github.com/weaviate/logtable/entities/errors"
	"github.com/weaviate/logtable/entities/partitions"
	ent "github.com/weaviate/logtable/entities/tablelog"
	"github.com/weaviate/logtable/usecases/compactor"
	"github.com/weaviate/logtable/usecases/config"
	"github.com/weaviate/logtable/usecases/ingest"
	"github.com/weaviate/logtable/usecases/monitoring"
)

const (
	// TargetOptimize runs one compaction transaction and exits.
	TargetOptimize = "optimize"
	// TargetAppend commits records from stdin as one new version.
	TargetAppend = "append"
	// TargetShow prints the current table state.
	TargetShow = "show"
	// TargetSchedule runs compactions on a fixed cadence until stopped.
	TargetSchedule = "schedule"
)

// Options represents command line options
type Options struct {
	config.Flags

	Target          string   `long:"target" description:"how logtable should run: optimize (default), append, show or schedule"`
	Properties      []string `long:"property" description:"per-run table property overriding the config, like compactVersion=41 (repeatable)"`
	AppendPrefix    string   `long:"append-prefix" description:"directory prefix appended data files are written under"`
	AppendPartition string   `long:"append-partition" description:"partition values of the appended file in column=value[,column=value] form"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		// go-flags already printed the problem
		os.Exit(1)
	}

	log := logger().WithField("app", "logtable")

	cfg, err := config.LoadConfig(&opts.Flags, log)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	if len(opts.Properties) > 0 {
		props := map[string]string{}
		for _, prop := range opts.Properties {
			key, value, found := strings.Cut(prop, "=")
			if !found {
				log.WithField("property", prop).Fatal("--property must be of the form key=value")
			}
			props[key] = value
		}
		if cfg.Compaction, err = config.ParseProperties(cfg.Compaction, props); err != nil {
			log.WithError(err).Fatal("invalid --property")
		}
	}

	var promMetrics *monitoring.PrometheusMetrics
	if cfg.Monitoring.Enabled {
		promMetrics = monitoring.GetMetrics()
	}

	store := tablelog.NewStore(cfg.Persistence.TableRoot, log)
	store.SetCheckpointInterval(cfg.Persistence.CheckpointInterval)
	files := datafiles.NewRepo(cfg.Persistence.TableRoot, log, promMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.Target {
	case TargetOptimize, "":
		runOptimize(ctx, cfg, store, files, promMetrics, log)
	case TargetAppend:
		runAppend(ctx, opts, store, files, promMetrics, log)
	case TargetShow:
		runShow(store)
	case TargetSchedule:
		runSchedule(ctx, cfg, store, files, promMetrics, log)
	default:
		log.WithField("target", opts.Target).
			Fatal("--target must be optimize, append, show or schedule")
	}
}

func newCompactor(cfg config.Config, store *tablelog.Store, files *datafiles.Repo,
	promMetrics *monitoring.PrometheusMetrics, log logrus.FieldLogger,
) *compactor.Compactor {
	c, err := compactor.New(store, files, log,
		compactor.FromConfig(cfg.Compaction),
		compactor.WithMetrics(promMetrics))
	if err != nil {
		log.WithError(err).Fatal("invalid compaction options")
	}
	return c
}

func runOptimize(ctx context.Context, cfg config.Config, store *tablelog.Store,
	files *datafiles.Repo, promMetrics *monitoring.PrometheusMetrics, log logrus.FieldLogger,
) {
	c := newCompactor(cfg, store, files, promMetrics, log)

	res, err := c.Run(ctx)
	if err != nil {
		log.WithError(err).Fatal("compaction failed")
	}

	switch res.Outcome {
	case compactor.OutcomeSucceeded:
		if _, err := c.Cleaner().Clean(res.CommitVersion); err != nil {
			log.WithError(err).Warning("cleanup after compaction failed")
		}
		fmt.Printf("compacted %d files into %d, committed version %d\n",
			res.SourceFiles, res.OutputFiles, res.CommitVersion)

	case compactor.OutcomeNoop:
		fmt.Println("nothing to compact")

	case compactor.OutcomeAborted:
		log.WithField("attempts", res.Attempts).
			Warning("compaction aborted, concurrent writers kept winning the commit race")
		os.Exit(1)
	}
}

func runAppend(ctx context.Context, opts Options, store *tablelog.Store,
	files *datafiles.Repo, promMetrics *monitoring.PrometheusMetrics, log logrus.FieldLogger,
) {
	pred, err := partitions.Parse(opts.AppendPartition)
	if err != nil {
		log.WithError(err).Fatal("invalid --append-partition")
	}
	var partitionValues map[string]string
	if !pred.Empty() {
		partitionValues = map[string]string{}
		for _, term := range pred.Terms() {
			partitionValues[term.Column] = term.Value
		}
	}

	records, err := readRecords(os.Stdin)
	if err != nil {
		log.WithError(err).Fatal("failed to read records from stdin")
	}

	a, err := ingest.NewAppender(store, files, log, ingest.WithMetrics(promMetrics))
	if err != nil {
		log.WithError(err).Fatal("invalid append options")
	}

	version, err := a.Append(ctx, opts.AppendPrefix, partitionValues, records)
	if err != nil {
		log.WithError(err).Fatal("append failed")
	}
	fmt.Printf("appended %d records, committed version %d\n", len(records), version)
}

func readRecords(f *os.File) ([][]byte, error) {
	var records [][]byte

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := make([]byte, len(line))
		copy(rec, line)
		records = append(records, rec)
	}
	return records, scanner.Err()
}

func runShow(store *tablelog.Store) {
	cur, err := store.CurrentVersion()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read table version: %s\n", err)
		os.Exit(1)
	}
	if cur == ent.VersionNone {
		fmt.Println("table has no committed versions")
		return
	}

	fmt.Printf("version:    %d\n", cur)

	if cpVersion, ok, err := store.LastCheckpoint(); err == nil && ok {
		fmt.Printf("checkpoint: %d\n", cpVersion)
	} else {
		fmt.Printf("checkpoint: none\n")
	}

	snap, err := store.SnapshotAt(cur)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read snapshot: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("files:      %d (%d bytes)\n", len(snap.Files), snap.TotalSize())
	for _, f := range snap.Files {
		fmt.Printf("  %10d  %s\n", f.Size, f.Path)
	}
}

func runSchedule(ctx context.Context, cfg config.Config, store *tablelog.Store,
	files *datafiles.Repo, promMetrics *monitoring.PrometheusMetrics, log logrus.FieldLogger,
) {
	c := newCompactor(cfg, store, files, promMetrics, log)
	s := compactor.NewScheduler(c, cfg.Compaction.Interval, log)

	if cfg.Monitoring.Enabled {
		enterrors.GoWrapper(func() {
			if err := monitoring.ServeMetrics(ctx, cfg.Monitoring.Port, log); err != nil {
				log.WithError(err).Error("metrics endpoint failed")
			}
		}, log)
	}

	s.Start()
	log.WithFields(logrus.Fields{
		"action":   "startup",
		"interval": cfg.Compaction.Interval,
	}).Info("compaction scheduler running")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("scheduler did not stop in time")
		os.Exit(1)
	}
	log.WithField("action", "shutdown").Info("scheduler stopped")
}

// logger is set up from env because logging must work before the config is
// even loaded. Defaults to log level info and json format.
func logger() *logrus.Logger {
	logger := logrus.New()
	if os.Getenv("LOG_FORMAT") != "text" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "trace":
		logger.SetLevel(logrus.TraceLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
