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

package cyclemanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/raftapply/entities/errors"
)

type (
	// indicates whether cyclemanager's stop was requested to allow safely
	// break execution of CycleFunc and stop cyclemanager earlier
	ShouldBreakFunc func() bool
	// return value indicates whether actual work was done in the cycle
	CycleFunc func(shouldBreak ShouldBreakFunc) bool
)

type callback struct {
	name string
	fn   CycleFunc
}

// CycleManager runs registered callbacks one after another on every tick.
type CycleManager struct {
	sync.Mutex

	interval  time.Duration
	logger    logrus.FieldLogger
	callbacks []callback
	running   bool
	stop      chan struct{}
	stopped   chan struct{}
}

func New(name string, interval time.Duration, logger logrus.FieldLogger) *CycleManager {
	return &CycleManager{
		interval: interval,
		logger:   logger.WithField("cycle", name),
	}
}

func (c *CycleManager) Register(name string, fn CycleFunc) {
	c.Lock()
	defer c.Unlock()
	c.callbacks = append(c.callbacks, callback{name: name, fn: fn})
}

// Starts instance, does not block
// Does nothing if instance is already started
func (c *CycleManager) Start() {
	c.Lock()
	defer c.Unlock()

	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})

	stop, stopped := c.stop, c.stopped
	enterrors.GoWrapper(func() {
		defer close(stopped)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.cycle(stop)
			}
		}
	}, c.logger)
}

func (c *CycleManager) cycle(stop chan struct{}) {
	shouldBreak := func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}

	c.Lock()
	callbacks := c.callbacks
	c.Unlock()

	for _, cb := range callbacks {
		if shouldBreak() {
			return
		}
		err := enterrors.SafeCall(func() error {
			if cb.fn(shouldBreak) {
				c.logger.WithField("callback", cb.name).Trace("cycle did work")
			}
			return nil
		})
		if err != nil {
			c.logger.WithField("callback", cb.name).WithError(err).Error("cycle callback failed")
		}
	}
}

// StopAndWait requests a stop and waits for a running callback to return.
// It gives up when ctx expires.
func (c *CycleManager) StopAndWait(ctx context.Context) error {
	c.Lock()
	if !c.running {
		c.Unlock()
		return nil
	}
	c.running = false
	close(c.stop)
	stopped := c.stopped
	c.Unlock()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop cycle: %w", ctx.Err())
	}
}

func (c *CycleManager) Running() bool {
	c.Lock()
	defer c.Unlock()
	return c.running
}
