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

package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster"
	"github.com/weaviate/raftapply/cluster/apply"
	"github.com/weaviate/raftapply/usecases/config"
)

// Options represents Command line options shared by all commands
type Options struct {
	config.Flags
}

func main() {
	var opts Options
	log := logrus.WithFields(logrus.Fields{"app": "raftapply"}).Logger

	parser := flags.NewParser(&opts, flags.Default)
	addCommand(parser, log, "replay", "apply the stored log",
		"Treats every stored entry as committed and applies it after the latest snapshot.",
		&replayCommand{opts: &opts})
	addCommand(parser, log, "compact", "run one log compaction",
		"Removes the log prefix covered by both the latest snapshot and the given watermark.",
		&compactCommand{opts: &opts})
	addCommand(parser, log, "chunk", "split a snapshot into checksummed chunks",
		"Builds one chunk per snapshot file and optionally exports them with a manifest.",
		&chunkCommand{opts: &opts})
	addCommand(parser, log, "serve", "keep applying and compacting",
		"Runs snapshot refresh and log compaction cycles and exposes prometheus metrics.",
		&serveCommand{opts: &opts})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func addCommand(parser *flags.Parser, log *logrus.Logger, name, short, long string, data interface{}) {
	if _, err := parser.AddCommand(name, short, long, data); err != nil {
		log.WithError(err).Fatal("failed to register command " + name)
	}
}

// setup loads the config and builds the logger every command starts with.
func setup(opts *Options) (config.Config, *logrus.Logger, error) {
	bootstrap := logrus.New()
	cfg, err := config.Load(opts.Flags, bootstrap)
	if err != nil {
		return cfg, bootstrap, err
	}
	logger := config.NewLogger(cfg.Log)
	logger.WithField("data_path", cfg.DataPath).Debug("config loaded")
	return cfg, logger, nil
}

func newStore(cfg config.Config, logger *logrus.Logger, reg prometheus.Registerer, listeners ...apply.CommitListener) *cluster.Store {
	return cluster.New(cluster.Config{
		WorkDir:        cfg.DataPath,
		BoltTimeout:    cfg.Bolt.Timeout,
		SnapshotRetain: cfg.Snapshot.Retain,
		SegmentSize:    cfg.Compaction.SegmentSize,
		Listeners:      listeners,
		Logger:         logger,
		Registerer:     reg,
	})
}
