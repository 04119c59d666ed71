// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called. After channels and tickers register
// pending waiters that fire when the clock advances past their
// deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{
		current: initial,
	}
	clock.waitersChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for testing. Time advances only
// when Advance is called. After channels and tickers block until the
// clock is advanced past their deadline.
type FakeClock struct {
	mu             sync.Mutex
	current        time.Time
	waiters        []*fakeWaiter
	waitersChanged *sync.Cond
}

// fakeWaiter represents a pending After or ticker operation.
type fakeWaiter struct {
	deadline time.Time

	// channel receives the fire time.
	channel chan time.Time

	// interval is non-zero for ticker waiters. After firing, the
	// waiter is rescheduled at deadline + interval.
	interval time.Duration

	// stopped is set by Ticker.Stop. Stopped waiters are skipped
	// during Advance and garbage-collected.
	stopped bool

	// fired is set after a one-shot waiter fires. Prevents
	// double-firing on overlapping Advance calls.
	fired bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives after duration d elapses. If
// d <= 0, the channel receives immediately without registering a
// waiter.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}

	c.waiters = append(c.waiters, &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	c.waitersChanged.Broadcast()
	return channel
}

// NewTicker returns a Ticker that delivers ticks on its C channel at
// the specified interval. Panics if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	waiter := &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
		interval: d,
	}
	c.waiters = append(c.waiters, waiter)
	c.waitersChanged.Broadcast()

	return &Ticker{
		C: channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.stopped = true
		},
		resetFunc: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.interval = d
			waiter.deadline = c.current.Add(d)
			waiter.stopped = false
		},
	}
}

// Advance moves the clock forward by d and fires all waiters whose
// deadlines fall within the new time. Waiters fire in deadline order
// for determinism.
//
// Channel sends are non-blocking (matching time.Ticker's drop-if-full
// behavior). For tickers, if the advance spans multiple intervals, the
// ticker fires once per interval; ticks that overflow the channel
// buffer are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		toFire := c.collectExpired(target)
		if len(toFire) == 0 {
			return
		}

		// Fire in deadline order for determinism.
		sort.Slice(toFire, func(i, j int) bool {
			return toFire[i].deadline.Before(toFire[j].deadline)
		})

		for _, waiter := range toFire {
			select {
			case waiter.channel <- waiter.deadline:
			default:
			}
		}
	}
}

// collectExpired gathers waiters due at or before target, marks
// one-shot waiters fired, reschedules tickers, and prunes dead
// entries. Each call returns at most one firing per waiter so that
// tickers spanning multiple intervals fire once per interval across
// successive calls.
func (c *FakeClock) collectExpired(target time.Time) []*fakeWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toFire []*fakeWaiter
	kept := c.waiters[:0]
	for _, waiter := range c.waiters {
		if waiter.stopped || waiter.fired {
			continue
		}
		if waiter.deadline.After(target) {
			kept = append(kept, waiter)
			continue
		}

		// Copy the waiter so the fire time is stable even after
		// a ticker reschedule below.
		fired := *waiter
		toFire = append(toFire, &fired)

		if waiter.interval > 0 {
			waiter.deadline = waiter.deadline.Add(waiter.interval)
			kept = append(kept, waiter)
		} else {
			waiter.fired = true
		}
	}
	c.waiters = kept
	return toFire
}

// WaitForTimers blocks until at least n waiters (After channels plus
// active tickers) are registered. Use this to synchronize with a
// goroutine that registers its timer after being started, eliminating
// the race between timer registration and Advance.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeWaitersLocked() < n {
		c.waitersChanged.Wait()
	}
}

// activeWaitersLocked counts waiters that have neither fired nor been
// stopped. Must be called with c.mu held.
func (c *FakeClock) activeWaitersLocked() int {
	count := 0
	for _, waiter := range c.waiters {
		if !waiter.stopped && !waiter.fired {
			count++
		}
	}
	return count
}
