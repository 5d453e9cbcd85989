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
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleRunsCallbacks(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New("test", time.Millisecond, logger)

	var first, second atomic.Int32
	c.Register("first", func(ShouldBreakFunc) bool {
		first.Add(1)
		return true
	})
	c.Register("second", func(ShouldBreakFunc) bool {
		second.Add(1)
		return false
	})

	assert.False(t, c.Running())
	c.Start()
	c.Start()
	assert.True(t, c.Running())

	require.Eventually(t, func() bool {
		return first.Load() >= 3 && second.Load() >= 3
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, c.StopAndWait(context.Background()))
	assert.False(t, c.Running())

	after := first.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, first.Load())

	// stopping again is a no-op
	require.NoError(t, c.StopAndWait(context.Background()))
}

func TestCyclePanicDoesNotStopLoop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New("test", time.Millisecond, logger)

	var calls atomic.Int32
	c.Register("panics", func(ShouldBreakFunc) bool {
		calls.Add(1)
		panic("cycle exploded")
	})
	c.Start()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, time.Millisecond)
	require.NoError(t, c.StopAndWait(context.Background()))
}

func TestStopAndWaitHonorsContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New("test", time.Millisecond, logger)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	c.Register("blocking", func(ShouldBreakFunc) bool {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return true
	})
	c.Start()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.StopAndWait(ctx), context.DeadlineExceeded)
	close(release)
}

func TestShouldBreakAfterStop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := New("test", time.Millisecond, logger)

	broke := make(chan bool, 1)
	started := make(chan struct{})
	c.Register("long", func(shouldBreak ShouldBreakFunc) bool {
		select {
		case <-started:
			return false
		default:
			close(started)
		}
		for !shouldBreak() {
			time.Sleep(time.Millisecond)
		}
		broke <- true
		return true
	})
	c.Start()
	<-started
	require.NoError(t, c.StopAndWait(context.Background()))
	assert.True(t, <-broke)
}
