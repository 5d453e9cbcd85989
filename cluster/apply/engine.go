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

// Package apply turns committed log entries into ordered apply or skip
// decisions and advances the last applied marker.
package apply

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/executor"
	"github.com/weaviate/raftapply/cluster/future"
	"github.com/weaviate/raftapply/cluster/types"
	enterrors "github.com/weaviate/raftapply/entities/errors"
	"github.com/weaviate/raftapply/usecases/monitoring"
)

// CommitListener is invoked once per applied entry, in increasing index
// order. It is never invoked for skipped entries.
type CommitListener interface {
	OnCommit(entry types.LogEntry) error
}

type CommitListenerFunc func(entry types.LogEntry) error

func (f CommitListenerFunc) OnCommit(entry types.LogEntry) error {
	return f(entry)
}

// Reader is a sequential reader over committed entries.
type Reader interface {
	HasNext() bool
	NextIndex() uint64
	Next() (types.LogEntry, error)
	Reset(index uint64)
	Close() error
}

type Config struct {
	// Reader is owned by the engine from now on and repositioned right
	// after the current snapshot.
	Reader    Reader
	Snapshots types.SnapshotIndexer
	Listeners []CommitListener
	Logger    logrus.FieldLogger
	Metrics   *monitoring.PrometheusMetrics
}

// Engine applies committed entries exactly once in strictly increasing
// index order. Every step runs on a single sequential context, the reader
// and the enqueue cursor are only touched there.
type Engine struct {
	logger    logrus.FieldLogger
	metrics   *monitoring.PrometheusMetrics
	snapshots types.SnapshotIndexer
	ctx       *executor.Sequential

	// reader is confined to ctx
	reader Reader

	listenersMu sync.Mutex
	listeners   atomic.Pointer[[]CommitListener]

	// written on ctx only, atomic so that they can be observed elsewhere
	lastEnqueued atomic.Uint64
	lastApplied  atomic.Pointer[types.Position]
}

func New(cfg Config) *Engine {
	e := &Engine{
		logger:    cfg.Logger.WithField("action", "apply"),
		metrics:   cfg.Metrics,
		snapshots: cfg.Snapshots,
		reader:    cfg.Reader,
	}
	listeners := append([]CommitListener(nil), cfg.Listeners...)
	e.listeners.Store(&listeners)

	// everything up to the snapshot is already part of the application
	// state, reading resumes right after it
	start := cfg.Snapshots.CurrentSnapshotIndex()
	e.lastEnqueued.Store(start)
	e.lastApplied.Store(&types.Position{Index: start})
	e.reader.Reset(start + 1)

	e.ctx = executor.NewSequential("apply", e.logger)

	e.logger.WithField("snapshot_index", start).Info("apply engine started")
	return e
}

// AddCommitListener registers l for all entries applied from now on.
func (e *Engine) AddCommitListener(l CommitListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	cur := *e.listeners.Load()
	next := make([]CommitListener, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, l)
	e.listeners.Store(&next)
}

// LastApplied returns the position of the last entry marked as applied.
func (e *Engine) LastApplied() types.Position {
	return *e.lastApplied.Load()
}

// LastEnqueued returns the highest index scheduled for application.
func (e *Engine) LastEnqueued() uint64 {
	return e.lastEnqueued.Load()
}

// Pending returns the number of queued apply tasks.
func (e *Engine) Pending() int {
	return e.ctx.Pending()
}

// NotifyCommitted asks the engine to catch up to index. It never blocks.
func (e *Engine) NotifyCommitted(index uint64) {
	if err := e.ctx.Execute(func() { e.applyAll(index) }); err != nil {
		e.logger.WithField("index", index).WithError(err).Debug("commit notification dropped")
	}
}

// ApplyByIndex applies the entry at index, which must be the next entry
// the reader produces.
func (e *Engine) ApplyByIndex(index uint64) *future.Future[types.Applied] {
	f := future.New[types.Applied]()
	if err := e.ctx.Execute(func() { e.applyIndex(index, f) }); err != nil {
		f.Fail(fmt.Errorf("apply index %d: %w", index, err))
	}
	return f
}

// ApplyEntry applies an entry the caller already holds.
func (e *Engine) ApplyEntry(entry types.LogEntry) *future.Future[types.Applied] {
	f := future.New[types.Applied]()
	if err := e.ctx.Execute(func() { e.applyEntry(entry, f) }); err != nil {
		f.Fail(fmt.Errorf("apply index %d: %w", entry.Index, err))
	}
	return f
}

// Close runs what is already queued, rejects anything new and releases the
// reader.
func (e *Engine) Close() error {
	e.ctx.Close()
	if err := e.reader.Close(); err != nil {
		return fmt.Errorf("close log reader: %w", err)
	}
	e.logger.WithField("last_applied_index", e.LastApplied().Index).Info("apply engine closed")
	return nil
}

func (e *Engine) applyAll(index uint64) {
	// a snapshot installed past the cursor supersedes everything up to it;
	// anything still queued below it is skipped when it runs
	snapshotIndex := e.snapshots.CurrentSnapshotIndex()
	if snapshotIndex > e.lastEnqueued.Load() {
		e.lastEnqueued.Store(snapshotIndex)
	}
	if e.reader.NextIndex() <= snapshotIndex {
		e.logger.WithFields(logrus.Fields{
			"from":           e.reader.NextIndex(),
			"snapshot_index": snapshotIndex,
		}).Debug("fast-forward reader past snapshot")
		e.reader.Reset(snapshotIndex + 1)
	}

	for e.lastEnqueued.Load() < index {
		next := e.lastEnqueued.Load() + 1
		if err := e.ctx.Execute(func() { e.applyIndex(next, nil) }); err != nil {
			e.logger.WithField("index", next).WithError(err).Debug("stop enqueueing")
			return
		}
		e.lastEnqueued.Store(next)
	}
	e.metrics.Enqueued(e.lastEnqueued.Load())
}

func (e *Engine) applyIndex(index uint64, f *future.Future[types.Applied]) {
	if e.reader.HasNext() && e.reader.NextIndex() == index {
		entry, err := e.reader.Next()
		if err != nil {
			e.logger.WithField("index", index).WithError(err).Error("failed to read entry")
			e.metrics.EntryFailed(monitoring.ReasonRead)
			fail(f, fmt.Errorf("read entry %d: %w", index, err))
			return
		}
		e.applyEntry(entry, f)
		return
	}

	// the entry may already be compacted away, the reader must not wait
	// for it
	if index <= e.snapshots.CurrentSnapshotIndex() {
		if e.reader.NextIndex() <= index {
			e.reader.Reset(index + 1)
		}
		e.metrics.EntrySkipped(monitoring.ReasonSnapshot)
		complete(f, types.Applied{Index: index, Skipped: true})
		return
	}

	e.logger.WithFields(logrus.Fields{
		"index":      index,
		"next_index": e.reader.NextIndex(),
	}).Error("cannot apply index")
	e.metrics.EntryFailed(monitoring.ReasonOutOfSequence)
	fail(f, fmt.Errorf("cannot apply index %d, next index is %d: %w",
		index, e.reader.NextIndex(), types.ErrOutOfSequence))
}

func (e *Engine) applyEntry(entry types.LogEntry, f *future.Future[types.Applied]) {
	logger := e.logger.WithFields(logrus.Fields{
		"index": entry.Index,
		"term":  entry.Term,
		"type":  entry.Type.String(),
	})
	logger.Trace("applying entry")

	// superseded by a snapshot: the state already contains it
	if entry.Index <= e.snapshots.CurrentSnapshotIndex() {
		e.metrics.EntrySkipped(monitoring.ReasonSnapshot)
		complete(f, types.Applied{Index: entry.Index, Term: entry.Term, Skipped: true})
		return
	}
	if entry.Index <= e.LastApplied().Index {
		e.metrics.EntrySkipped(monitoring.ReasonApplied)
		complete(f, types.Applied{Index: entry.Index, Term: entry.Term, Skipped: true})
		return
	}
	// applying past a gap would later skip the entries in between as
	// already applied
	if expected := max(e.LastApplied().Index, e.snapshots.CurrentSnapshotIndex()) + 1; entry.Index > expected {
		logger.WithField("expected_index", expected).Error("cannot apply entry")
		e.metrics.EntryFailed(monitoring.ReasonOutOfSequence)
		fail(f, fmt.Errorf("cannot apply entry %d, next index is %d: %w",
			entry.Index, expected, types.ErrOutOfSequence))
		return
	}

	var err error
	if !entry.Type.Supported() {
		err = fmt.Errorf("entry %d of kind %d: %w", entry.Index, entry.RawType, types.ErrUnsupportedEntry)
		logger.WithField("raw_type", entry.RawType).Warn("unsupported entry type, marking as applied")
		e.metrics.EntryFailed(monitoring.ReasonUnsupported)
	} else if err = e.notifyListeners(entry); err != nil {
		logger.WithError(err).Error("commit listener failed, marking as applied")
		e.metrics.EntryFailed(monitoring.ReasonListener)
	} else {
		e.metrics.EntryApplied(entry.Index)
	}

	// mark as applied regardless of the result so that a poisoned entry
	// never stalls the log
	e.lastApplied.Store(&types.Position{Index: entry.Index, Term: entry.Term})
	e.metrics.MarkerAdvanced(entry.Index)

	if err != nil {
		fail(f, err)
		return
	}
	complete(f, types.Applied{Index: entry.Index, Term: entry.Term})
}

func (e *Engine) notifyListeners(entry types.LogEntry) error {
	var result *multierror.Error
	for _, l := range *e.listeners.Load() {
		if err := enterrors.SafeCall(func() error { return l.OnCommit(entry) }); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("commit listener at index %d: %w", entry.Index, err)
	}
	return nil
}

func complete(f *future.Future[types.Applied], v types.Applied) {
	if f != nil {
		f.Complete(v)
	}
}

func fail(f *future.Future[types.Applied], err error) {
	if f != nil {
		f.Fail(err)
	}
}
