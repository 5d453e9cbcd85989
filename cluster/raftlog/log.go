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

// Package raftlog exposes a hashicorp/raft LogStore as the committed,
// index-addressed log consumed by the apply engine and the compaction
// controller.
package raftlog

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/raft"
	raftbolt "github.com/hashicorp/raft-boltdb/v2"
	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/weaviate/raftapply/cluster/boundary"
	"github.com/weaviate/raftapply/cluster/types"
)

// Mode controls which entries a Reader can see.
type Mode int

const (
	// ModeAll exposes every stored entry.
	ModeAll Mode = iota
	// ModeCommits exposes only entries at or below the commit index.
	ModeCommits
)

// Log wraps a raft.LogStore with a commit index and the compaction rules.
// The store itself must be safe for concurrent use, both the bolt and the
// in-memory stores are.
type Log struct {
	store     raft.LogStore
	snapshots types.SnapshotIndexer
	logger    logrus.FieldLogger

	commitIndex boundary.Monotonic
	// segmentSize is the compaction granularity. Entries are only ever
	// removed in whole segments.
	segmentSize uint64
}

type Option func(*Log)

// WithSegmentSize sets the number of entries per compaction segment.
func WithSegmentSize(n uint64) Option {
	return func(l *Log) {
		if n > 0 {
			l.segmentSize = n
		}
	}
}

func New(store raft.LogStore, snapshots types.SnapshotIndexer, logger logrus.FieldLogger, opts ...Option) *Log {
	l := &Log{
		store:       store,
		snapshots:   snapshots,
		logger:      logger.WithField("action", "raft_log"),
		segmentSize: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OpenBolt opens (or creates) a bolt backed log store at path. timeout
// bounds how long to wait for the file lock held by another process.
func OpenBolt(path string, timeout time.Duration) (*raftbolt.BoltStore, error) {
	store, err := raftbolt.New(raftbolt.Options{
		Path:        path,
		BoltOptions: &bbolt.Options{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt log store %s: %w", path, err)
	}
	return store, nil
}

// Append stores entries. Indexes must be contiguous with what is stored.
func (l *Log) Append(entries ...*raft.Log) error {
	if len(entries) == 0 {
		return nil
	}
	if err := l.store.StoreLogs(entries); err != nil {
		return fmt.Errorf("store logs [%d..%d]: %w", entries[0].Index, entries[len(entries)-1].Index, err)
	}
	return nil
}

// Commit marks everything up to index as committed. The commit index never
// moves backwards.
func (l *Log) Commit(index uint64) {
	l.commitIndex.Advance(index)
}

func (l *Log) CommitIndex() uint64 {
	return l.commitIndex.Load()
}

func (l *Log) FirstIndex() (uint64, error) {
	return l.store.FirstIndex()
}

func (l *Log) LastIndex() (uint64, error) {
	return l.store.LastIndex()
}

// Entry reads the entry at index regardless of the commit index.
func (l *Log) Entry(index uint64) (types.LogEntry, error) {
	var e raft.Log
	if err := l.store.GetLog(index, &e); err != nil {
		return types.LogEntry{}, fmt.Errorf("get log %d: %w", index, err)
	}
	return EntryFromRaft(&e), nil
}

// IsCompactable reports whether entries up to index are captured by a
// durable snapshot and committed, so that discarding them loses nothing.
func (l *Log) IsCompactable(index uint64) bool {
	return index > 0 &&
		index <= l.CommitIndex() &&
		index <= l.snapshots.CurrentSnapshotIndex()
}

// CompactableIndex returns the truncation point for index: the first index
// of the segment containing it. Compacting to that point keeps index itself.
func (l *Log) CompactableIndex(index uint64) uint64 {
	if index == 0 || l.segmentSize <= 1 {
		return index
	}
	return ((index-1)/l.segmentSize)*l.segmentSize + 1
}

// Compact discards every entry strictly below index.
func (l *Log) Compact(index uint64) error {
	first, err := l.store.FirstIndex()
	if err != nil {
		return fmt.Errorf("first index: %w", err)
	}
	if first == 0 || index <= first {
		return nil
	}
	if err := l.store.DeleteRange(first, index-1); err != nil {
		return fmt.Errorf("delete range [%d..%d]: %w", first, index-1, err)
	}
	l.logger.WithFields(logrus.Fields{
		"from": first,
		"to":   index - 1,
	}).Debug("log entries removed")
	return nil
}

// OpenReader returns a reader whose next entry is index. Index 0 is
// treated as 1, the first possible raft index.
func (l *Log) OpenReader(index uint64, mode Mode) *Reader {
	r := &Reader{log: l, mode: mode}
	r.Reset(index)
	return r
}

// Reader walks the log sequentially. It is not safe for concurrent use and
// is meant to be owned by a single execution context.
type Reader struct {
	log    *Log
	mode   Mode
	next   uint64
	peeked *raft.Log
	closed bool
}

// Reset repositions the reader so that index is the next entry.
func (r *Reader) Reset(index uint64) {
	if index == 0 {
		index = 1
	}
	r.next = index
	r.peeked = nil
}

func (r *Reader) NextIndex() uint64 {
	return r.next
}

// FirstIndex is the first index retained by the underlying log, 0 if empty.
func (r *Reader) FirstIndex() uint64 {
	first, err := r.log.FirstIndex()
	if err != nil {
		return 0
	}
	return first
}

// HasNext reports whether the entry at NextIndex is stored and visible in
// the reader's mode.
func (r *Reader) HasNext() bool {
	if r.closed {
		return false
	}
	if r.mode == ModeCommits && r.next > r.log.CommitIndex() {
		return false
	}
	if r.peeked != nil && r.peeked.Index == r.next {
		return true
	}

	var e raft.Log
	if err := r.log.store.GetLog(r.next, &e); err != nil {
		if !errors.Is(err, raft.ErrLogNotFound) {
			r.log.logger.WithError(err).WithField("index", r.next).Warn("read log entry")
		}
		return false
	}
	r.peeked = &e
	return true
}

// Next returns the entry at NextIndex and advances the reader.
func (r *Reader) Next() (types.LogEntry, error) {
	if !r.HasNext() {
		return types.LogEntry{}, fmt.Errorf("read log entry %d: %w", r.next, raft.ErrLogNotFound)
	}
	entry := EntryFromRaft(r.peeked)
	r.peeked = nil
	r.next++
	return entry, nil
}

func (r *Reader) Close() error {
	r.closed = true
	r.peeked = nil
	return nil
}

// EntryFromRaft converts a stored raft log into a LogEntry. Kinds this
// version does not handle map to types.EntryUnknown.
func EntryFromRaft(l *raft.Log) types.LogEntry {
	return types.LogEntry{
		Index:   l.Index,
		Term:    l.Term,
		Type:    entryType(l.Type),
		RawType: uint8(l.Type),
		Data:    l.Data,
	}
}

func entryType(t raft.LogType) types.EntryType {
	switch t {
	case raft.LogCommand:
		return types.EntryCommand
	case raft.LogNoop:
		return types.EntryNoop
	case raft.LogBarrier:
		return types.EntryBarrier
	case raft.LogConfiguration:
		return types.EntryConfiguration
	default:
		return types.EntryUnknown
	}
}
