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
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewBackoff returns the backoff used for short lived local retries, e.g.
// reading a snapshot that is being replaced.
func NewBackoff() backoff.BackOff {
	return ConstantBackoff(3, 50*time.Millisecond)
}

// ConstantBackoff retries maxrtry times, waiting interval in between.
func ConstantBackoff(maxrtry int, interval time.Duration) backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxrtry))
}

// After MaxElapsedTime the backoff.BackOff returns Stop.
// It never stops if MaxElapsedTime == 0.
func NewExponentialBackoff(initialInterval time.Duration, maxElapsedTime time.Duration) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initialInterval
	eb.MaxElapsedTime = maxElapsedTime
	return eb
}

// Retry runs op until it succeeds, b gives up or ctx is done. Errors
// wrapped with backoff.Permanent are returned right away. notify may be nil.
func Retry(ctx context.Context, b backoff.BackOff, op func() error, notify func(error, time.Duration)) error {
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}
