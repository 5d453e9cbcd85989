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

package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/raftapply/cluster/types"
)

func TestSequentialRunsInSubmissionOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewSequential("test", logger)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, s.Execute(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	s.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestSequentialNeverOverlaps(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewSequential("test", logger)

	var running, overlaps atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = s.Execute(func() {
					if running.Add(1) > 1 {
						overlaps.Add(1)
					}
					time.Sleep(time.Microsecond)
					running.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	s.Close()
	assert.Zero(t, overlaps.Load())
}

func TestSequentialTaskMaySubmitFollowUps(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewSequential("test", logger)

	done := make(chan struct{})
	var order []string
	require.NoError(t, s.Execute(func() {
		order = append(order, "first")
		_ = s.Execute(func() {
			order = append(order, "follow-up")
			close(done)
		})
	}))
	require.NoError(t, s.Execute(func() { order = append(order, "second") }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follow-up never ran")
	}
	s.Close()
	assert.Equal(t, []string{"first", "second", "follow-up"}, order)
}

func TestSequentialRecoversFromPanics(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := NewSequential("test", logger)

	require.NoError(t, s.Execute(func() { panic("poison") }))
	ran := make(chan struct{})
	require.NoError(t, s.Execute(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}
	s.Close()
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "task failed", hook.LastEntry().Message)
}

func TestSequentialCloseDrainsAndRejects(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewSequential("test", logger)

	block := make(chan struct{})
	var ran atomic.Int32
	require.NoError(t, s.Execute(func() { <-block }))
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Execute(func() { ran.Add(1) }))
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	require.Eventually(t, func() bool {
		return s.Execute(func() {}) != nil
	}, time.Second, time.Millisecond)
	close(block)
	<-closed

	assert.Equal(t, int32(5), ran.Load())
	assert.ErrorIs(t, s.Execute(func() {}), types.ErrClosed)
	s.Close() // idempotent
}
