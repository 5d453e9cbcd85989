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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/weaviate/raftapply/usecases/monitoring"
)

const (
	DefaultConfigFile         = "./raftapply.yaml"
	DefaultDataPath           = "./data"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultBoltTimeout        = 5 * time.Second
	DefaultSnapshotRetain     = 2
	DefaultRefreshInterval    = 10 * time.Second
	DefaultCompactionInterval = time.Minute
	DefaultSegmentSize        = uint64(1)
	DefaultMetricsPort        = 2112
	DefaultChunkConcurrency   = 4
)

// Flags are input options shared by every command.
type Flags struct {
	ConfigFile string `long:"config-file" description:"path to config file (default: ./raftapply.yaml)"`
	DataPath   string `long:"data-path" description:"directory holding the log store and the snapshots"`
	LogLevel   string `long:"log-level" description:"one of panic, fatal, error, warn, info, debug, trace"`
	LogFormat  string `long:"log-format" description:"json or text"`
}

type Config struct {
	DataPath   string            `json:"data_path" yaml:"data_path"`
	Log        Log               `json:"log" yaml:"log"`
	Bolt       Bolt              `json:"bolt" yaml:"bolt"`
	Snapshot   Snapshot          `json:"snapshot" yaml:"snapshot"`
	Compaction Compaction        `json:"compaction" yaml:"compaction"`
	Monitoring monitoring.Config `json:"monitoring" yaml:"monitoring"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Bolt struct {
	// Timeout bounds the wait for the file lock when opening the log store.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

type Snapshot struct {
	Retain           int           `json:"retain" yaml:"retain"`
	RefreshInterval  time.Duration `json:"refresh_interval" yaml:"refresh_interval"`
	ChunkConcurrency int           `json:"chunk_concurrency" yaml:"chunk_concurrency"`
}

type Compaction struct {
	Interval    time.Duration `json:"interval" yaml:"interval"`
	SegmentSize uint64        `json:"segment_size" yaml:"segment_size"`
}

// Default returns a config that is valid without any file or environment.
func Default() Config {
	return Config{
		DataPath: DefaultDataPath,
		Log:      Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Bolt:     Bolt{Timeout: DefaultBoltTimeout},
		Snapshot: Snapshot{
			Retain:           DefaultSnapshotRetain,
			RefreshInterval:  DefaultRefreshInterval,
			ChunkConcurrency: DefaultChunkConcurrency,
		},
		Compaction: Compaction{Interval: DefaultCompactionInterval, SegmentSize: DefaultSegmentSize},
		Monitoring: monitoring.Config{Port: DefaultMetricsPort},
	}
}

func (c Config) LogStorePath() string {
	return filepath.Join(c.DataPath, "raft.db")
}

func (c Config) Validate() error {
	if c.DataPath == "" {
		return configErr(fmt.Errorf("data_path must be set"))
	}
	if _, err := logLevelFromString(c.Log.Level); err != nil {
		return configErr(fmt.Errorf("log.level %q: %w", c.Log.Level, err))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return configErr(fmt.Errorf("log.format must be either 'json' or 'text', got %q", c.Log.Format))
	}
	if err := c.Snapshot.Validate(); err != nil {
		return configErr(err)
	}
	if err := c.Compaction.Validate(); err != nil {
		return configErr(err)
	}
	if c.Monitoring.Enabled && (c.Monitoring.Port <= 0 || c.Monitoring.Port > 65535) {
		return configErr(fmt.Errorf("monitoring.port must be between 1 and 65535"))
	}
	return nil
}

func (s Snapshot) Validate() error {
	if s.Retain < 1 {
		return fmt.Errorf("snapshot.retain must be at least 1")
	}
	if s.RefreshInterval <= 0 {
		return fmt.Errorf("snapshot.refresh_interval must be positive")
	}
	return nil
}

func (c Compaction) Validate() error {
	if c.SegmentSize < 1 {
		return fmt.Errorf("compaction.segment_size must be at least 1")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("compaction.interval must be positive")
	}
	return nil
}

// Load builds the config in this order, later sources overriding earlier
// ones:
// 1. Defaults
// 2. Config file, if present
// 3. Environment variables
// 4. Command line flags
func Load(flags Flags, logger logrus.FieldLogger) (Config, error) {
	config := Default()

	name := flags.ConfigFile
	if name == "" {
		name = DefaultConfigFile
	}
	file, err := os.ReadFile(name)
	switch {
	case err == nil:
		if err := parseConfigFile(file, name, &config); err != nil {
			return config, configErr(err)
		}
		logger.WithField("config_file", name).Debug("loaded config file")
	case flags.ConfigFile != "":
		// only an explicitly requested file must exist
		return config, configErr(errors.Wrapf(err, "read config file %q", name))
	}

	if err := FromEnv(&config); err != nil {
		return config, configErr(err)
	}
	fromFlags(&config, flags)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func parseConfigFile(file []byte, name string, config *Config) error {
	switch ext := filepath.Ext(name); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(file, config); err != nil {
			return fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension '%s', use .yaml or .yml", ext)
	}
	return nil
}

func fromFlags(config *Config, flags Flags) {
	if flags.DataPath != "" {
		config.DataPath = flags.DataPath
	}
	if flags.LogLevel != "" {
		config.Log.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		config.Log.Format = flags.LogFormat
	}
}

func configErr(err error) error {
	return fmt.Errorf("invalid config: %w", err)
}
