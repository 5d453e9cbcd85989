//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"

	entcfg "github.com/weaviate/raftapply/entities/config"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those that
// are set
func FromEnv(config *Config) error {
	if v := os.Getenv("PERSISTENCE_DATA_PATH"); v != "" {
		config.DataPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.Log.Format = v
	}

	config.Bolt.Timeout = entcfg.DurationFromEnv("BOLT_OPEN_TIMEOUT", config.Bolt.Timeout)

	if v := os.Getenv("SNAPSHOT_RETAIN"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse SNAPSHOT_RETAIN as int")
		}
		config.Snapshot.Retain = asInt
	}
	if v := os.Getenv("SNAPSHOT_CHUNK_CONCURRENCY"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse SNAPSHOT_CHUNK_CONCURRENCY as int")
		}
		config.Snapshot.ChunkConcurrency = asInt
	}
	config.Snapshot.RefreshInterval = entcfg.DurationFromEnv("SNAPSHOT_REFRESH_INTERVAL", config.Snapshot.RefreshInterval)

	config.Compaction.Interval = entcfg.DurationFromEnv("COMPACTION_INTERVAL", config.Compaction.Interval)
	if v := os.Getenv("COMPACTION_SEGMENT_SIZE"); v != "" {
		asUint, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "parse COMPACTION_SEGMENT_SIZE as uint")
		}
		config.Compaction.SegmentSize = asUint
	}

	if entcfg.Enabled(os.Getenv("PROMETHEUS_MONITORING_ENABLED")) {
		config.Monitoring.Enabled = true

		if v := os.Getenv("PROMETHEUS_MONITORING_PORT"); v != "" {
			asInt, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "parse PROMETHEUS_MONITORING_PORT as int")
			}
			config.Monitoring.Port = asInt
		}
	}

	return nil
}
