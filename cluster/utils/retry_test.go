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

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryEventuallySucceeds(t *testing.T) {
	calls, notified := 0, 0
	err := Retry(context.Background(), ConstantBackoff(3, time.Millisecond), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, func(error, time.Duration) { notified++ })
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	fail := errors.New("always")
	err := Retry(context.Background(), ConstantBackoff(2, time.Millisecond), func() error {
		calls++
		return fail
	}, nil)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 3, calls)
}

func TestRetryPermanent(t *testing.T) {
	calls := 0
	fail := errors.New("broken")
	err := Retry(context.Background(), NewBackoff(), func() error {
		calls++
		return backoff.Permanent(fail)
	}, nil)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, NewExponentialBackoff(time.Millisecond, 0), func() error {
		return errors.New("never")
	}, nil)
	assert.Error(t, err)
}
