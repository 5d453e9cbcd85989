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

package types

import "fmt"

// EntryType is the kind of a committed log entry. EntryUnknown is a
// first-class variant so that callers handling kinds must handle it too.
type EntryType uint8

const (
	EntryUnknown EntryType = iota
	EntryCommand
	EntryNoop
	EntryBarrier
	EntryConfiguration
)

func (t EntryType) String() string {
	switch t {
	case EntryCommand:
		return "command"
	case EntryNoop:
		return "noop"
	case EntryBarrier:
		return "barrier"
	case EntryConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Supported reports whether entries of this kind can be handed to commit
// listeners.
func (t EntryType) Supported() bool {
	switch t {
	case EntryCommand, EntryNoop, EntryBarrier, EntryConfiguration:
		return true
	default:
		return false
	}
}

// LogEntry is a committed record read from the log. It must not be mutated
// once handed out.
type LogEntry struct {
	Index uint64
	Term  uint64
	Type  EntryType
	// RawType is the kind as stored, kept for diagnostics when Type is
	// EntryUnknown.
	RawType uint8
	Data    []byte
}

func (e LogEntry) String() string {
	return fmt.Sprintf("LogEntry{index=%d term=%d type=%s}", e.Index, e.Term, e.Type)
}

// Position identifies an entry in the log by index and term.
type Position struct {
	Index uint64
	Term  uint64
}

// Applied is the outcome of applying one entry.
type Applied struct {
	Index uint64
	Term  uint64
	// Skipped is set when the entry was superseded by a snapshot or had
	// already been applied, in which case no listener was invoked.
	Skipped bool
}

// SnapshotIndexer exposes the index of the latest durable snapshot.
type SnapshotIndexer interface {
	CurrentSnapshotIndex() uint64
}
