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

// Package boundary holds the monotone scalars shared between the apply and
// compaction goroutines: the snapshot boundary, the commit index and the
// compaction watermark. There is one writer per value; readers may observe
// a lagging value but never one that goes backwards.
package boundary

import "sync/atomic"

// Monotonic is a uint64 that only moves forward. The zero value is ready to
// use and starts at 0.
type Monotonic struct {
	v atomic.Uint64
}

// NewMonotonic returns a Monotonic starting at v.
func NewMonotonic(v uint64) *Monotonic {
	m := &Monotonic{}
	m.v.Store(v)
	return m
}

func (m *Monotonic) Load() uint64 {
	return m.v.Load()
}

// Advance raises the value to v. It returns false, leaving the value
// untouched, when v is not greater than the current value.
func (m *Monotonic) Advance(v uint64) bool {
	for {
		cur := m.v.Load()
		if v <= cur {
			return false
		}
		if m.v.CompareAndSwap(cur, v) {
			return true
		}
	}
}

// Snapshot is a boundary that can be handed to components that only need
// the current snapshot index.
type Snapshot struct {
	Monotonic
}

func (s *Snapshot) CurrentSnapshotIndex() uint64 {
	return s.Load()
}
