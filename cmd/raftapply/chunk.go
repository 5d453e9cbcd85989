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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/snapshots"
	"github.com/weaviate/raftapply/cluster/types"
	"github.com/weaviate/raftapply/cluster/utils"
	ent "github.com/weaviate/raftapply/entities/snapshots"
	"github.com/weaviate/raftapply/usecases/monitoring"
	usesnapshots "github.com/weaviate/raftapply/usecases/snapshots"
)

type chunkCommand struct {
	opts *Options

	Snapshot string `long:"snapshot" description:"snapshot id to chunk, defaults to the latest one"`
	Out      string `long:"out" description:"export the chunks and a manifest into this directory"`
}

func (c *chunkCommand) Execute(_ []string) error {
	cfg, logger, err := setup(c.opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := snapshots.NewFileStore(cfg.DataPath, cfg.Snapshot.Retain, logger)
	if err != nil {
		return err
	}
	builder := usesnapshots.NewBuilder(logger, monitoring.NewPrometheusMetrics(nil), cfg.Snapshot.ChunkConcurrency)

	var (
		id     string
		index  uint64
		term   uint64
		chunks []ent.SnapshotChunk
	)
	// the snapshot can be reaped by a concurrent writer while it is read,
	// in that case start over with whatever is latest now
	err = utils.Retry(ctx, utils.NewBackoff(), func() error {
		var rerr error
		if id, index, term, rerr = c.resolve(store); rerr != nil {
			return backoff.Permanent(rerr)
		}
		files, rerr := store.Files(id)
		if rerr != nil {
			return rerr
		}
		chunks, rerr = builder.BuildChunks(ctx, files, id)
		if rerr != nil && !errors.Is(rerr, types.ErrSnapshotFileIO) {
			return backoff.Permanent(rerr)
		}
		return rerr
	}, func(err error, wait time.Duration) {
		logger.WithError(err).WithField("snapshot_id", id).Warnf("reading snapshot failed, retrying in %s", wait)
	})
	if err != nil {
		return fmt.Errorf("chunk snapshot: %w", err)
	}

	for _, chunk := range chunks {
		logger.WithFields(logrus.Fields{
			"snapshot_id": chunk.SnapshotID,
			"chunk":       chunk.ChunkName,
			"total":       chunk.TotalCount,
			"size":        len(chunk.Content),
			"checksum":    fmt.Sprintf("%08x", chunk.Checksum),
		}).Info("snapshot chunk")
	}

	if c.Out == "" {
		return nil
	}
	m, err := usesnapshots.Export(c.Out, index, term, chunks)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"snapshot_id": m.SnapshotID,
		"chunks":      len(m.Chunks),
		"manifest":    ent.BuildManifestPath(m.SnapshotID, c.Out),
	}).Info("snapshot exported")
	return nil
}

func (c *chunkCommand) resolve(store *snapshots.Store) (string, uint64, uint64, error) {
	if c.Snapshot == "" {
		meta, err := store.Latest()
		if err != nil {
			return "", 0, 0, err
		}
		return meta.ID, meta.Index, meta.Term, nil
	}
	meta, rc, err := store.Open(c.Snapshot)
	if err != nil {
		return "", 0, 0, err
	}
	defer rc.Close()
	return meta.ID, meta.Index, meta.Term, nil
}
