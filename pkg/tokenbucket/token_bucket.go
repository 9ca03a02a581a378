// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package tokenbucket

import (
	"context"
	"sync"
	"time"
)

// TokenBucket limits a rate of bytes (or anything else counted in int64).
// Callers take what they're about to use and wait for the bucket to refill
// if it runs dry. It is safe for use by multiple goroutines at once.
type TokenBucket struct {
	lock     sync.Mutex
	rate     float64 // tokens per second
	capacity float64
	current  float64
	last     time.Time
}

// New returns a full token bucket that fills at 'rate' tokens per second up
// to 'capacity' tokens.
func New(rate, capacity int64) *TokenBucket {
	return &TokenBucket{
		rate:     float64(rate),
		capacity: float64(capacity),
		current:  float64(capacity),
		last:     time.Now(),
	}
}

// Wait takes 'n' tokens and sleeps until the balance is no longer negative,
// or until 'ctx' is done. Tokens taken stay taken even if it returns early.
func (tb *TokenBucket) Wait(ctx context.Context, n int64) error {
	d := tb.take(n, time.Now())
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// take brings the bucket up to 'now', takes 'n' tokens, possibly leaving a
// negative balance, and returns how long to sleep until the balance is zero
// again (negative if there was enough).
func (tb *TokenBucket) take(n int64, now time.Time) time.Duration {
	tb.lock.Lock()
	defer tb.lock.Unlock()

	if elapsed := now.Sub(tb.last); elapsed > 0 {
		tb.current += tb.rate * elapsed.Seconds()
		tb.last = now
	}
	if tb.current > tb.capacity {
		tb.current = tb.capacity
	}
	tb.current -= float64(n)
	return time.Duration(-tb.current / tb.rate * float64(time.Second))
}

// SetRate changes the rate and capacity of the bucket.
func (tb *TokenBucket) SetRate(rate, capacity int64) {
	tb.lock.Lock()
	tb.rate = float64(rate)
	tb.capacity = float64(capacity)
	tb.lock.Unlock()
}
