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

// Package snapshots turns the files of a durable snapshot into checksummed
// chunks, moves them in and out of an export directory and verifies them
// on the receiving side.
package snapshots

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/types"
	"github.com/weaviate/raftapply/entities/diskio"
	enterrors "github.com/weaviate/raftapply/entities/errors"
	ent "github.com/weaviate/raftapply/entities/snapshots"
	"github.com/weaviate/raftapply/usecases/integrity"
	"github.com/weaviate/raftapply/usecases/monitoring"
)

const defaultConcurrency = 4

type Builder struct {
	logger      logrus.FieldLogger
	metrics     *monitoring.PrometheusMetrics
	concurrency int
}

// NewBuilder returns a builder reading at most concurrency files at a time.
// Values below one fall back to a small default.
func NewBuilder(logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics, concurrency int) *Builder {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Builder{
		logger:      logger.WithField("action", "snapshot_chunks"),
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// BuildChunk reads file completely and wraps it into a chunk named after
// the file. A partial chunk is never returned.
func BuildChunk(file, snapshotID string, totalCount int32) (ent.SnapshotChunk, error) {
	return NewBuilder(logrus.StandardLogger(), nil, 1).BuildChunk(file, snapshotID, totalCount)
}

func (b *Builder) BuildChunk(file, snapshotID string, totalCount int32) (ent.SnapshotChunk, error) {
	start := time.Now()
	content, err := b.read(file)
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"snapshot_id": snapshotID,
			"file":        file,
		}).WithError(err).Error("failed to read snapshot file")
		return ent.SnapshotChunk{}, fmt.Errorf("%w: read %s: %w", types.ErrSnapshotFileIO, file, err)
	}

	chunk := ent.SnapshotChunk{
		SnapshotID: snapshotID,
		TotalCount: totalCount,
		ChunkName:  filepath.Base(file),
		Checksum:   integrity.Checksum(content),
		Content:    content,
	}
	b.metrics.ChunkBuilt()
	b.logger.WithFields(logrus.Fields{
		"snapshot_id": snapshotID,
		"chunk":       chunk.ChunkName,
		"size":        len(content),
		"checksum":    fmt.Sprintf("%08x", chunk.Checksum),
		"took":        time.Since(start),
	}).Debug("built snapshot chunk")
	return chunk, nil
}

func (b *Builder) read(file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(diskio.NewMeteredReader(f, func(n, _ int64) {
		b.metrics.ChunkBytesRead(n)
	}))
}

// BuildChunks builds one chunk per file, sorted by chunk name. It fails as
// soon as any file cannot be read.
func (b *Builder) BuildChunks(ctx context.Context, files []string, snapshotID string) ([]ent.SnapshotChunk, error) {
	chunks := make([]ent.SnapshotChunk, len(files))
	total := int32(len(files))

	eg, ctx := enterrors.NewErrorGroupWithContextWrapper(b.logger, ctx, "snapshot_id", snapshotID)
	eg.SetLimit(b.concurrency)
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := b.BuildChunk(file, snapshotID, total)
			if err != nil {
				return err
			}
			chunks[i] = c
			return nil
		}, file)
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkName < chunks[j].ChunkName })
	return chunks, nil
}
