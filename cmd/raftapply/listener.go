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
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/types"
)

// countingListener stands in for an application state machine: it keeps
// per kind counters of the entries it was handed.
type countingListener struct {
	logger logrus.FieldLogger

	mu     sync.Mutex
	counts map[string]uint64
	bytes  uint64
	last   types.Position
}

func newCountingListener(logger logrus.FieldLogger) *countingListener {
	return &countingListener{
		logger: logger.WithField("action", "replay_listener"),
		counts: map[string]uint64{},
	}
}

func (l *countingListener) OnCommit(e types.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[e.Type.String()]++
	l.bytes += uint64(len(e.Data))
	l.last = types.Position{Index: e.Index, Term: e.Term}
	l.logger.WithFields(logrus.Fields{
		"index": e.Index,
		"term":  e.Term,
		"type":  e.Type.String(),
		"size":  len(e.Data),
	}).Trace("entry applied")
	return nil
}

func (l *countingListener) Stats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]uint64, len(l.counts))
	for k, v := range l.counts {
		counts[k] = v
	}
	return map[string]any{
		"entries":            counts,
		"bytes":              l.bytes,
		"last_applied_index": l.last.Index,
		"last_applied_term":  l.last.Term,
	}
}
