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

import "errors"

var (
	// ErrOutOfSequence is returned when a single entry apply is requested for
	// an index the sequential reader cannot supply next.
	ErrOutOfSequence = errors.New("index out of sequence")

	// ErrUnsupportedEntry is returned when the entry kind is not recognized by
	// this version. The last applied marker still moves past such an entry.
	ErrUnsupportedEntry = errors.New("unsupported entry type")

	// ErrCompaction wraps disk failures while compacting the log.
	ErrCompaction = errors.New("compact log")

	// ErrSnapshotFileIO wraps failures reading a snapshot file into a chunk.
	ErrSnapshotFileIO = errors.New("read snapshot file")

	// ErrChecksumMismatch is returned by receivers whose recomputed checksum
	// disagrees with the one carried by a chunk.
	ErrChecksumMismatch = errors.New("snapshot chunk checksum mismatch")

	// ErrClosed is returned for work submitted after shutdown.
	ErrClosed = errors.New("closed")
)
