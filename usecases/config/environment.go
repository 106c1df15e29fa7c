package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those that
// are set
func FromEnv(config *Config) error {
	if v := os.Getenv("PERSISTENCE_TABLE_ROOT"); v != "" {
		config.Persistence.TableRoot = v
	}

	if v := os.Getenv("PERSISTENCE_CHECKPOINT_INTERVAL"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse PERSISTENCE_CHECKPOINT_INTERVAL as int")
		}
		config.Persistence.CheckpointInterval = asInt
	}

	if v := os.Getenv("COMPACT_VERSION"); v != "" {
		asInt, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "parse COMPACT_VERSION as int")
		}
		config.Compaction.Version = asInt
	}

	if v := os.Getenv("COMPACT_NUM_FILE_PER_DIR"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse COMPACT_NUM_FILE_PER_DIR as int")
		}
		config.Compaction.NumFilePerDir = asInt
	}

	if v := os.Getenv("COMPACT_RETRY_TIMES_FOR_LOCK"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse COMPACT_RETRY_TIMES_FOR_LOCK as int")
		}
		config.Compaction.RetryTimesForLock = asInt
	}

	if v := os.Getenv("COMPACT_PARTITION_FILTER"); v != "" {
		config.Compaction.PartitionFilter = v
	}

	if v := os.Getenv("COMPACTION_INTERVAL"); v != "" {
		asDuration, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse COMPACTION_INTERVAL as duration")
		}
		config.Compaction.Interval = asDuration
	}

	if enabled(os.Getenv("MONITORING_ENABLED")) {
		config.Monitoring.Enabled = true

		if v := os.Getenv("MONITORING_PORT"); v != "" {
			asInt, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "parse MONITORING_PORT as int")
			}
			config.Monitoring.Port = asInt
		}
	}

	return nil
}

func enabled(value string) bool {
	if value == "" {
		return false
	}

	if value == "on" ||
		value == "1" ||
		value == "true" {
		return true
	}

	return false
}
