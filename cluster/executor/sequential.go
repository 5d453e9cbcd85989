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

// Package executor provides sequential execution contexts: a single worker
// goroutine running submitted tasks one at a time in submission order.
package executor

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/raftapply/cluster/types"
	enterrors "github.com/weaviate/raftapply/entities/errors"
)

// Sequential runs tasks strictly FIFO on one goroutine. Submitting never
// blocks: the queue is unbounded, so a task may safely submit follow-up work
// to the context it runs on.
type Sequential struct {
	name   string
	logger logrus.FieldLogger

	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool

	done chan struct{}
}

// NewSequential starts a new context. Two contexts never share a worker.
func NewSequential(name string, logger logrus.FieldLogger) *Sequential {
	s := &Sequential{
		name:   name,
		logger: logger.WithField("executor", name),
		done:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	enterrors.GoWrapper(s.run, s.logger)
	return s
}

func (s *Sequential) Name() string { return s.name }

// Execute appends task to the queue. It fails with types.ErrClosed once
// Close was called.
func (s *Sequential) Execute(task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrClosed
	}
	s.tasks = append(s.tasks, task)
	s.cond.Signal()
	return nil
}

// Pending returns the number of queued tasks not yet started.
func (s *Sequential) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close stops accepting tasks, runs what is already queued and waits for
// the worker to exit. Tasks submitted by draining tasks are rejected.
func (s *Sequential) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.cond.Signal()
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Sequential) run() {
	defer close(s.done)
	for {
		task, ok := s.next()
		if !ok {
			return
		}
		s.runTask(task)
	}
}

func (s *Sequential) next() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.tasks) == 0 {
		if s.closed {
			return nil, false
		}
		s.cond.Wait()
	}
	task := s.tasks[0]
	s.tasks[0] = nil
	s.tasks = s.tasks[1:]
	return task, true
}

func (s *Sequential) runTask(task func()) {
	err := enterrors.SafeCall(func() error {
		task()
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("task failed")
	}
}
