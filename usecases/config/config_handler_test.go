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
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := writeConfig(t, "raftapply.yaml", `
data_path: /var/lib/raftapply
log:
  level: debug
  format: text
bolt:
  timeout: 2s
snapshot:
  retain: 3
  refresh_interval: 30s
compaction:
  interval: 5m
  segment_size: 64
monitoring:
  enabled: true
  port: 9100
`)

	c, err := Load(Flags{ConfigFile: path}, logger)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/raftapply", c.DataPath)
	assert.Equal(t, Log{Level: "debug", Format: "text"}, c.Log)
	assert.Equal(t, 2*time.Second, c.Bolt.Timeout)
	assert.Equal(t, 3, c.Snapshot.Retain)
	assert.Equal(t, 30*time.Second, c.Snapshot.RefreshInterval)
	assert.Equal(t, DefaultChunkConcurrency, c.Snapshot.ChunkConcurrency)
	assert.Equal(t, 5*time.Minute, c.Compaction.Interval)
	assert.Equal(t, uint64(64), c.Compaction.SegmentSize)
	assert.True(t, c.Monitoring.Enabled)
	assert.Equal(t, 9100, c.Monitoring.Port)
	assert.Equal(t, "/var/lib/raftapply/raft.db", c.LogStorePath())
}

func TestLoadOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := writeConfig(t, "raftapply.yml", "data_path: /from/file\nlog:\n  level: warn\n")
	t.Setenv("PERSISTENCE_DATA_PATH", "/from/env")
	t.Setenv("LOG_LEVEL", "error")

	c, err := Load(Flags{ConfigFile: path, LogLevel: "trace"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", c.DataPath)
	assert.Equal(t, "trace", c.Log.Level)
}

func TestLoadMissingDefaultFileIsFine(t *testing.T) {
	logger, _ := test.NewNullLogger()

	c, err := Load(Flags{}, logger)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()

	tests := []struct {
		name  string
		flags func(t *testing.T) Flags
	}{
		{
			name: "explicit file missing",
			flags: func(t *testing.T) Flags {
				return Flags{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}
			},
		},
		{
			name: "unsupported extension",
			flags: func(t *testing.T) Flags {
				return Flags{ConfigFile: writeConfig(t, "raftapply.conf", "data_path: x")}
			},
		},
		{
			name: "malformed yaml",
			flags: func(t *testing.T) Flags {
				return Flags{ConfigFile: writeConfig(t, "raftapply.yaml", "log: [")}
			},
		},
		{
			name: "invalid level",
			flags: func(t *testing.T) Flags {
				return Flags{ConfigFile: writeConfig(t, "raftapply.yaml", "log:\n  level: loud\n")}
			},
		},
		{
			name: "invalid format flag",
			flags: func(t *testing.T) Flags {
				return Flags{ConfigFile: writeConfig(t, "raftapply.yaml", ""), LogFormat: "xml"}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.flags(t), logger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"data path", func(c *Config) { c.DataPath = "" }, "data_path"},
		{"retain", func(c *Config) { c.Snapshot.Retain = 0 }, "snapshot.retain"},
		{"refresh", func(c *Config) { c.Snapshot.RefreshInterval = 0 }, "snapshot.refresh_interval"},
		{"segment", func(c *Config) { c.Compaction.SegmentSize = 0 }, "compaction.segment_size"},
		{"interval", func(c *Config) { c.Compaction.Interval = -time.Second }, "compaction.interval"},
		{"port", func(c *Config) {
			c.Monitoring.Enabled = true
			c.Monitoring.Port = 0
		}, "monitoring.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	l := NewLogger(Log{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

	l = NewLogger(Log{Level: "WARNING", Format: "json"})
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}
