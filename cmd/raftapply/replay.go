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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster"
)

type replayCommand struct {
	opts *Options

	Snapshot bool          `long:"snapshot" description:"persist a snapshot of the replay counters once everything is applied"`
	Timeout  time.Duration `long:"timeout" default:"0s" description:"give up after this long, 0 waits until done"`
}

func (c *replayCommand) Execute(_ []string) error {
	cfg, logger, err := setup(c.opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	listener := newCountingListener(logger)
	st := newStore(cfg, logger, nil, listener)
	if err := st.Open(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore(st, logger)

	last, err := st.Log().LastIndex()
	if err != nil {
		return fmt.Errorf("read last log index: %w", err)
	}
	started := time.Now()
	st.Commit(last)
	if err := waitApplied(ctx, st, last); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"last_log_index": last,
		"took":           time.Since(started),
	}).Info("replay finished")

	if c.Snapshot {
		state, err := json.Marshal(listener.Stats())
		if err != nil {
			return fmt.Errorf("encode replay state: %w", err)
		}
		meta, err := st.Snapshot(state)
		if err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"snapshot_id": meta.ID,
			"index":       meta.Index,
		}).Info("snapshot persisted")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"store":    st.Stats(),
		"listener": listener.Stats(),
	})
}

// waitApplied polls until the engine marked index as applied.
func waitApplied(ctx context.Context, st *cluster.Store, index uint64) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for st.Engine().LastApplied().Index < index {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for index %d, applied %d: %w",
				index, st.Engine().LastApplied().Index, ctx.Err())
		case <-t.C:
		}
	}
	return nil
}

func closeStore(st *cluster.Store, logger logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.Close(ctx); err != nil {
		logger.WithError(err).Error("close store")
	}
}
