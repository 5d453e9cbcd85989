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

package compaction

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/executor"
	"github.com/weaviate/raftapply/cluster/future"
	"github.com/weaviate/raftapply/cluster/types"
	"github.com/weaviate/raftapply/usecases/monitoring"
)

// Log is the part of the log the controller needs.
type Log interface {
	IsCompactable(index uint64) bool
	CompactableIndex(index uint64) uint64
	FirstIndex() (uint64, error)
	Compact(index uint64) error
}

// Controller removes log prefixes that the application no longer needs.
// Deletions run on their own sequential context so that they never delay
// applying entries.
type Controller struct {
	log     Log
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics
	ctx     *executor.Sequential

	watermark atomic.Pointer[types.Position]
}

func New(log Log, logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics) *Controller {
	c := &Controller{
		log:     log,
		logger:  logger.WithField("action", "compaction"),
		metrics: metrics,
	}
	c.watermark.Store(&types.Position{})
	c.ctx = executor.NewSequential("compaction", c.logger)
	return c
}

// SetCompactablePosition records the highest index the application agrees
// to lose. The term is kept for diagnostics only.
func (c *Controller) SetCompactablePosition(index, term uint64) {
	c.watermark.Store(&types.Position{Index: index, Term: term})
}

func (c *Controller) CompactableIndex() uint64 {
	return c.watermark.Load().Index
}

// Compact deletes every entry before the segment holding the watermark.
// When there is nothing to delete the returned future is already complete.
func (c *Controller) Compact() *future.Future[struct{}] {
	watermark := c.CompactableIndex()
	if !c.log.IsCompactable(watermark) {
		c.metrics.CompactionSkipped()
		return future.Completed(struct{}{})
	}

	index := c.log.CompactableIndex(watermark)
	// reading the first index is cheap, only deletions go to the
	// compaction context
	first, err := c.log.FirstIndex()
	if err != nil {
		c.logger.WithError(err).Error("read first log index")
		c.metrics.CompactionFinished(index, 0, err)
		return future.Failed[struct{}](fmt.Errorf("%w: first index: %w", types.ErrCompaction, err))
	}
	if index <= first {
		c.metrics.CompactionSkipped()
		return future.Completed(struct{}{})
	}

	f := future.New[struct{}]()
	if err := c.ctx.Execute(func() { c.compact(index, f) }); err != nil {
		f.Fail(fmt.Errorf("%w: %w", types.ErrCompaction, err))
	}
	return f
}

func (c *Controller) compact(index uint64, f *future.Future[struct{}]) {
	logger := c.logger.WithFields(logrus.Fields{
		"index":     index,
		"watermark": c.CompactableIndex(),
	})
	logger.Debug("compacting log")

	start := time.Now()
	err := c.log.Compact(index)
	took := time.Since(start)
	c.metrics.CompactionFinished(index, took, err)

	if err != nil {
		logger.WithError(err).Error("log compaction failed")
		f.Fail(fmt.Errorf("%w: compact up to %d: %w", types.ErrCompaction, index, err))
		return
	}
	logger.WithField("took", took).Info("log compacted")
	f.Complete(struct{}{})
}

// Close waits for a running compaction and rejects new ones.
func (c *Controller) Close() {
	c.ctx.Close()
}
