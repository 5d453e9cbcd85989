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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("BOLT_OPEN_TIMEOUT", "1500ms")
	t.Setenv("SNAPSHOT_RETAIN", "5")
	t.Setenv("SNAPSHOT_CHUNK_CONCURRENCY", "8")
	t.Setenv("SNAPSHOT_REFRESH_INTERVAL", "1m")
	t.Setenv("COMPACTION_INTERVAL", "10s")
	t.Setenv("COMPACTION_SEGMENT_SIZE", "128")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("PROMETHEUS_MONITORING_ENABLED", "true")
	t.Setenv("PROMETHEUS_MONITORING_PORT", "9200")

	c := Default()
	require.NoError(t, FromEnv(&c))
	assert.Equal(t, 1500*time.Millisecond, c.Bolt.Timeout)
	assert.Equal(t, 5, c.Snapshot.Retain)
	assert.Equal(t, 8, c.Snapshot.ChunkConcurrency)
	assert.Equal(t, time.Minute, c.Snapshot.RefreshInterval)
	assert.Equal(t, 10*time.Second, c.Compaction.Interval)
	assert.Equal(t, uint64(128), c.Compaction.SegmentSize)
	assert.Equal(t, "text", c.Log.Format)
	assert.True(t, c.Monitoring.Enabled)
	assert.Equal(t, 9200, c.Monitoring.Port)
}

func TestFromEnvKeepsUnsetValues(t *testing.T) {
	c := Default()
	require.NoError(t, FromEnv(&c))
	assert.Equal(t, Default(), c)
}

func TestFromEnvInvalidNumbers(t *testing.T) {
	for _, name := range []string{"SNAPSHOT_RETAIN", "SNAPSHOT_CHUNK_CONCURRENCY", "COMPACTION_SEGMENT_SIZE"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "many")
			c := Default()
			err := FromEnv(&c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}

	t.Run("PROMETHEUS_MONITORING_PORT", func(t *testing.T) {
		t.Setenv("PROMETHEUS_MONITORING_ENABLED", "on")
		t.Setenv("PROMETHEUS_MONITORING_PORT", "high")
		c := Default()
		assert.Error(t, FromEnv(&c))
	})
}
