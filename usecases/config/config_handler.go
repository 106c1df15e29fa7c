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
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/weaviate/logtable/entities/partitions"
)

// DefaultConfigFile is the default file when no config file is provided
const DefaultConfigFile string = "./logtable.conf.json"

const (
	// DefaultNumFilePerDir is the number of data files a compaction leaves
	// behind per directory prefix.
	DefaultNumFilePerDir = 1

	// DefaultRetryTimesForLock is the number of plan-only commit attempts
	// before the single execute attempt.
	DefaultRetryTimesForLock = 0

	// DefaultCheckpointInterval is the number of commits between automatic
	// log checkpoints.
	DefaultCheckpointInterval = 10

	DefaultMonitoringPort     = 2112
	DefaultCompactionInterval = 15 * time.Minute
)

// VersionLatest selects the newest committed version at planning time.
const VersionLatest = int64(-1)

// Flags are input options
type Flags struct {
	ConfigFile string `long:"config-file" description:"path to config file (default: ./logtable.conf.json)"`

	TableRoot          string `long:"table-root" description:"path to the table root directory"`
	CheckpointInterval *int   `long:"checkpoint-interval" description:"commits between automatic log checkpoints, 0 disables, defaults to 10"`

	CompactVersion    *int64 `long:"compact-version" description:"version to compact, defaults to the newest committed version"`
	NumFilePerDir     int    `long:"compact-num-file-per-dir" description:"data files to leave per directory prefix, defaults to 1"`
	RetryTimesForLock *int   `long:"compact-retry-times-for-lock" description:"plan-only attempts before the single execute attempt, defaults to 0"`
	PartitionFilter   string `long:"compact-partition-filter" description:"partition predicate in column=value[,column=value] form"`

	CompactionInterval time.Duration `long:"compaction-interval" description:"cadence of scheduled compactions"`

	MonitoringEnabled bool `long:"monitoring-enabled" description:"serve a prometheus metrics endpoint"`
	MonitoringPort    int  `long:"monitoring-port" description:"port for the metrics endpoint, defaults to 2112"`
}

// Config outline of the config file
type Config struct {
	Name        string      `json:"name" yaml:"name"`
	Debug       bool        `json:"debug" yaml:"debug"`
	Persistence Persistence `json:"persistence" yaml:"persistence"`
	Compaction  Compaction  `json:"compaction" yaml:"compaction"`
	Monitoring  Monitoring  `json:"monitoring" yaml:"monitoring"`
}

type Persistence struct {
	TableRoot string `json:"table_root" yaml:"table_root"`

	// CheckpointInterval is how many commits apart the log store writes
	// checkpoints. Zero disables automatic checkpointing.
	CheckpointInterval int `json:"checkpoint_interval" yaml:"checkpoint_interval"`
}

// Compaction holds the tuning options of compaction transactions.
type Compaction struct {
	// Version pins the snapshot the transaction reads. VersionLatest means
	// the newest committed version at planning time.
	Version int64 `json:"compact_version" yaml:"compact_version"`

	// NumFilePerDir is how many data files one directory prefix holds after
	// compaction.
	NumFilePerDir int `json:"compact_num_file_per_dir" yaml:"compact_num_file_per_dir"`

	// RetryTimesForLock bounds the plan-only attempts under contention. The
	// execute attempt that rewrites files happens exactly once, after these.
	RetryTimesForLock int `json:"compact_retry_times_for_lock" yaml:"compact_retry_times_for_lock"`

	// PartitionFilter restricts compaction to files matching a conjunctive
	// column=value predicate. Empty means the whole table.
	PartitionFilter string `json:"compact_partition_filter" yaml:"compact_partition_filter"`

	// Interval is the cadence of scheduled compactions.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

type Monitoring struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

func DefaultConfig() Config {
	return Config{
		Name: "logtable",
		Persistence: Persistence{
			CheckpointInterval: DefaultCheckpointInterval,
		},
		Compaction: Compaction{
			Version:           VersionLatest,
			NumFilePerDir:     DefaultNumFilePerDir,
			RetryTimesForLock: DefaultRetryTimesForLock,
			Interval:          DefaultCompactionInterval,
		},
		Monitoring: Monitoring{
			Port: DefaultMonitoringPort,
		},
	}
}

// LoadConfig layers configuration values in this order, the last writer of
// an option wins:
//  1. Config file
//  2. Environment variables
//  3. Command line flags
func LoadConfig(flags *Flags, logger logrus.FieldLogger) (Config, error) {
	config := DefaultConfig()

	configFileName := flags.ConfigFile
	// Set default if not given
	if configFileName == "" {
		configFileName = DefaultConfigFile
	}

	// Read config file
	file, err := os.ReadFile(configFileName)
	_ = err // explicitly ignore

	// Load config from config file if present
	if len(file) > 0 {
		logger.WithField("action", "config_load").
			WithField("config_file_path", configFileName).
			Info("loaded config file")
		if err := parseConfigFile(file, configFileName, &config); err != nil {
			return config, configErr(err)
		}
	}

	// Load config from env
	if err := FromEnv(&config); err != nil {
		return config, configErr(err)
	}

	// Load config from flags
	fromFlags(flags, &config)

	if err := config.Validate(); err != nil {
		return config, configErr(err)
	}

	return config, nil
}

func parseConfigFile(file []byte, name string, config *Config) error {
	m := regexp.MustCompile(`.*\.(\w+)$`).FindStringSubmatch(name)
	if len(m) < 2 {
		return fmt.Errorf("config file does not have a file ending, got '%s'", name)
	}

	switch m[1] {
	case "json":
		if err := json.Unmarshal(file, config); err != nil {
			return fmt.Errorf("error unmarshalling the json config file: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(file, config); err != nil {
			return fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension '%s', use .yaml or .json", m[1])
	}

	return nil
}

// fromFlags parses values from flags given as parameter and overrides values in the config
func fromFlags(flags *Flags, config *Config) {
	if flags.TableRoot != "" {
		config.Persistence.TableRoot = flags.TableRoot
	}
	if flags.CheckpointInterval != nil {
		config.Persistence.CheckpointInterval = *flags.CheckpointInterval
	}
	if flags.CompactVersion != nil {
		config.Compaction.Version = *flags.CompactVersion
	}
	if flags.NumFilePerDir > 0 {
		config.Compaction.NumFilePerDir = flags.NumFilePerDir
	}
	if flags.RetryTimesForLock != nil {
		config.Compaction.RetryTimesForLock = *flags.RetryTimesForLock
	}
	if flags.PartitionFilter != "" {
		config.Compaction.PartitionFilter = flags.PartitionFilter
	}
	if flags.CompactionInterval > 0 {
		config.Compaction.Interval = flags.CompactionInterval
	}
	if flags.MonitoringEnabled {
		config.Monitoring.Enabled = true
	}
	if flags.MonitoringPort > 0 {
		config.Monitoring.Port = flags.MonitoringPort
	}
}

func (c *Config) Validate() error {
	if c.Persistence.TableRoot == "" {
		return errors.New("persistence.table_root must be set")
	}
	if c.Persistence.CheckpointInterval < 0 {
		return errors.Errorf("persistence.checkpoint_interval must not be negative, got %d",
			c.Persistence.CheckpointInterval)
	}
	if err := c.Compaction.Validate(); err != nil {
		return errors.Wrap(err, "compaction")
	}
	if c.Monitoring.Enabled && (c.Monitoring.Port < 1 || c.Monitoring.Port > 65535) {
		return errors.Errorf("monitoring.port must be a valid port, got %d", c.Monitoring.Port)
	}
	return nil
}

func (c Compaction) Validate() error {
	if c.Version < VersionLatest {
		return errors.Errorf("compact_version must be a committed version or %d for latest, got %d",
			VersionLatest, c.Version)
	}
	if c.NumFilePerDir < 1 {
		return errors.Errorf("compact_num_file_per_dir must be at least 1, got %d", c.NumFilePerDir)
	}
	if c.RetryTimesForLock < 0 {
		return errors.Errorf("compact_retry_times_for_lock must not be negative, got %d",
			c.RetryTimesForLock)
	}
	if _, err := partitions.Parse(c.PartitionFilter); err != nil {
		return errors.Wrap(err, "compact_partition_filter")
	}
	if c.Interval < 0 {
		return errors.Errorf("interval must not be negative, got %s", c.Interval)
	}
	return nil
}

func configErr(err error) error {
	return errors.Wrap(err, "invalid config")
}
