// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var fakeTestEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNow(t *testing.T) {
	c := Fake(fakeTestEpoch)
	if got := c.Now(); !got.Equal(fakeTestEpoch) {
		t.Errorf("Now() = %v, want %v", got, fakeTestEpoch)
	}

	c.Advance(90 * time.Second)
	want := fakeTestEpoch.Add(90 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	c := Fake(fakeTestEpoch)
	ch := c.After(time.Minute)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(59 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case fired := <-ch:
		want := fakeTestEpoch.Add(time.Minute)
		if !fired.Equal(want) {
			t.Errorf("fire time = %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(fakeTestEpoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTicker(t *testing.T) {
	c := Fake(fakeTestEpoch)
	ticker := c.NewTicker(30 * time.Second)
	defer ticker.Stop()

	c.Advance(30 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	// A multi-interval advance delivers at most one tick per
	// Advance pass into the capacity-1 channel; overflow is dropped,
	// matching time.Ticker.
	c.Advance(90 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after multi-interval advance")
	}
}

func TestFakeTickerStop(t *testing.T) {
	c := Fake(fakeTestEpoch)
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeOneShotDoesNotRefire(t *testing.T) {
	c := Fake(fakeTestEpoch)
	ch := c.After(time.Second)

	c.Advance(time.Second)
	<-ch

	c.Advance(time.Hour)
	select {
	case <-ch:
		t.Fatal("one-shot waiter fired twice")
	default:
	}
}

func TestWaitForTimers(t *testing.T) {
	c := Fake(fakeTestEpoch)

	registered := make(chan struct{})
	go func() {
		c.After(time.Minute)
		close(registered)
	}()

	<-registered
	c.WaitForTimers(1) // must not block: one waiter is registered
}
