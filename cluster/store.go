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

// Package cluster wires the committed log, the snapshot store, the apply
// engine and the log compaction of a single node together.
package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/raft"
	raftbolt "github.com/hashicorp/raft-boltdb/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/apply"
	"github.com/weaviate/raftapply/cluster/compaction"
	"github.com/weaviate/raftapply/cluster/future"
	"github.com/weaviate/raftapply/cluster/raftlog"
	"github.com/weaviate/raftapply/cluster/snapshots"
	"github.com/weaviate/raftapply/cluster/types"
	"github.com/weaviate/raftapply/usecases/monitoring"
)

const (
	raftDBName = "raft.db"

	// logCacheCapacity is the maximum number of logs to cache in-memory.
	// This is used to reduce disk I/O for the recently committed entries.
	logCacheCapacity = 512

	nRetainedSnapShots = 2
)

type Config struct {
	WorkDir        string
	BoltTimeout    time.Duration
	SnapshotRetain int
	SegmentSize    uint64

	// LogStore replaces the bolt store under WorkDir, mostly for tests.
	LogStore raft.LogStore

	Listeners  []apply.CommitListener
	Logger     *logrus.Logger
	Registerer prometheus.Registerer
}

// Store is the local node side of the replicated log: entries handed over
// by the consensus layer are stored, applied in order once committed and
// removed again once a snapshot covers them.
type Store struct {
	cfg Config
	// log is a shorthand to the logger passed in the config to reduce the amount of indirection when logging in the
	// code
	log     *logrus.Logger
	metrics *monitoring.PrometheusMetrics

	// open is set on opening the store
	open atomic.Bool

	// raft log store, nil when an external store was configured
	boltStore *raftbolt.BoltStore
	logCache  *raft.LogCache

	raftLog    *raftlog.Log
	snapshots  *snapshots.Store
	engine     *apply.Engine
	compaction *compaction.Controller
}

func New(cfg Config) *Store {
	if cfg.SnapshotRetain < 1 {
		cfg.SnapshotRetain = nRetainedSnapShots
	}
	if cfg.SegmentSize < 1 {
		cfg.SegmentSize = 1
	}
	return &Store{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: monitoring.NewPrometheusMetrics(cfg.Registerer),
	}
}

// Open opens the log and snapshot stores and starts applying from the
// latest snapshot. Opening an open store does nothing.
func (st *Store) Open(ctx context.Context) (err error) {
	if st.open.Load() {
		return nil
	}
	defer func() { st.open.Store(err == nil) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(st.cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", st.cfg.WorkDir, err)
	}

	store := st.cfg.LogStore
	if store == nil {
		st.boltStore, err = raftlog.OpenBolt(filepath.Join(st.cfg.WorkDir, raftDBName), st.cfg.BoltTimeout)
		if err != nil {
			return fmt.Errorf("bolt db: %w", err)
		}
		store = st.boltStore
	}

	st.logCache, err = raft.NewLogCache(logCacheCapacity, store)
	if err != nil {
		st.closeBolt()
		return fmt.Errorf("log cache: %w", err)
	}

	st.snapshots, err = snapshots.NewFileStore(st.cfg.WorkDir, st.cfg.SnapshotRetain, st.log)
	if err != nil {
		st.closeBolt()
		return err
	}
	st.metrics.SnapshotAdvanced(st.snapshots.CurrentSnapshotIndex())

	st.raftLog = raftlog.New(st.logCache, st.snapshots, st.log, raftlog.WithSegmentSize(st.cfg.SegmentSize))
	st.engine = apply.New(apply.Config{
		Reader:    st.raftLog.OpenReader(1, raftlog.ModeCommits),
		Snapshots: st.snapshots,
		Listeners: st.cfg.Listeners,
		Logger:    st.log,
		Metrics:   st.metrics,
	})
	st.compaction = compaction.New(st.raftLog, st.log, st.metrics)

	first, _ := st.raftLog.FirstIndex()
	last, _ := st.raftLog.LastIndex()
	st.log.WithFields(logrus.Fields{
		"work_dir":            st.cfg.WorkDir,
		"first_log_index":     first,
		"last_log_index":      last,
		"last_snapshot_index": st.snapshots.CurrentSnapshotIndex(),
	}).Info("store opened")
	return nil
}

func (st *Store) closeBolt() {
	if st.boltStore != nil {
		if err := st.boltStore.Close(); err != nil {
			st.log.WithError(err).Warn("close log store")
		}
		st.boltStore = nil
	}
}

// Close stops applying and compacting, then closes the log store. Every
// failure is reported, not only the first one.
func (st *Store) Close(ctx context.Context) error {
	if !st.open.Load() {
		return nil
	}
	st.open.Store(false)

	var result *multierror.Error
	done := make(chan struct{})
	go func() {
		defer close(done)
		st.log.Info("closing apply engine ...")
		if err := st.engine.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		st.log.Info("closing log compaction ...")
		st.compaction.Close()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("close store: %w", ctx.Err())
	}

	if st.boltStore != nil {
		st.log.Info("closing log store ...")
		if err := st.boltStore.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close log store: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Append stores entries received from the consensus layer. They are not
// applied before they are committed.
func (st *Store) Append(entries ...*raft.Log) error {
	if !st.open.Load() {
		return types.ErrClosed
	}
	return st.raftLog.Append(entries...)
}

// Commit raises the commit index and lets the engine catch up.
func (st *Store) Commit(index uint64) {
	if !st.open.Load() {
		return
	}
	st.raftLog.Commit(index)
	st.engine.NotifyCommitted(st.raftLog.CommitIndex())
}

// Snapshot persists state as covering everything applied so far and lets
// the engine skip past it. It refuses to write a snapshot older than the
// current one.
func (st *Store) Snapshot(state []byte) (*raft.SnapshotMeta, error) {
	if !st.open.Load() {
		return nil, types.ErrClosed
	}
	pos := st.engine.LastApplied()
	// entries skipped past a newer snapshot do not move the marker
	if current := st.snapshots.CurrentSnapshotIndex(); pos.Index < current {
		return nil, fmt.Errorf("last applied index %d is behind snapshot index %d", pos.Index, current)
	}
	meta, err := st.snapshots.Persist(pos.Index, pos.Term, state)
	if err != nil {
		return nil, err
	}
	st.metrics.SnapshotAdvanced(st.snapshots.CurrentSnapshotIndex())
	return meta, nil
}

// RefreshSnapshot picks up snapshots written by another process, e.g. a
// snapshot installed from a leader.
func (st *Store) RefreshSnapshot() (uint64, error) {
	if !st.open.Load() {
		return 0, types.ErrClosed
	}
	before := st.snapshots.CurrentSnapshotIndex()
	index, err := st.snapshots.Refresh()
	if err != nil {
		return index, err
	}
	if index > before {
		st.metrics.SnapshotAdvanced(index)
		st.engine.NotifyCommitted(st.raftLog.CommitIndex())
	}
	return index, nil
}

// Compact runs one compaction cycle up to the position the application
// agreed to lose.
func (st *Store) Compact() *future.Future[struct{}] {
	if !st.open.Load() {
		return future.Failed[struct{}](fmt.Errorf("%w: %w", types.ErrCompaction, types.ErrClosed))
	}
	return st.compaction.Compact()
}

func (st *Store) SetCompactablePosition(index, term uint64) {
	if st.open.Load() {
		st.compaction.SetCompactablePosition(index, term)
	}
}

func (st *Store) Engine() *apply.Engine { return st.engine }

func (st *Store) Log() *raftlog.Log { return st.raftLog }

func (st *Store) Snapshots() *snapshots.Store { return st.snapshots }

// Stats returns internal statistics from this store, for informational/debugging purposes only.
//
// Since this is for information/debugging we want to avoid enforcing unnecessary restrictions on
// what can go in these stats, thus we're returning map[string]any. However, any values added to
// this map should be able to be JSON encoded.
func (st *Store) Stats() map[string]any {
	stats := map[string]any{
		"open":     st.open.Load(),
		"work_dir": st.cfg.WorkDir,
	}
	if !st.open.Load() {
		return stats
	}

	first, _ := st.raftLog.FirstIndex()
	last, _ := st.raftLog.LastIndex()
	applied := st.engine.LastApplied()
	stats["first_log_index"] = first
	stats["last_log_index"] = last
	stats["commit_index"] = st.raftLog.CommitIndex()
	stats["last_snapshot_index"] = st.snapshots.CurrentSnapshotIndex()
	stats["last_enqueued_index"] = st.engine.LastEnqueued()
	stats["last_applied_index"] = applied.Index
	stats["last_applied_term"] = applied.Term
	stats["pending_applies"] = st.engine.Pending()
	stats["compactable_index"] = st.compaction.CompactableIndex()
	return stats
}
