/*
 * Copyright © 2023 Laminar Markets, Ltd.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package clock abstracts wall time so poll scheduling and expiration
// checks can be driven deterministically in tests.
package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	// HasExpired reports whether the window starting at start has fully
	// elapsed.
	HasExpired(start time.Time, window time.Duration) bool
	// ScheduleTimer runs f once after the duration unless cancelled first.
	// Cancellation of the context cancels the timer too.
	ScheduleTimer(ctx context.Context, d time.Duration, f func()) (cancel func())
}

type realClock struct{}

// RealClock returns the wall-time clock.
func RealClock() Clock {
	return &realClock{}
}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func (c *realClock) HasExpired(start time.Time, window time.Duration) bool {
	return time.Now().After(start.Add(window))
}

func (c *realClock) ScheduleTimer(ctx context.Context, d time.Duration, f func()) (cancel func()) {
	timerCtx, cancel := context.WithCancel(ctx)
	timer := time.NewTimer(d)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			f()
		case <-timerCtx.Done():
		}
	}()
	return cancel
}

// FakeClock is a manually advanced clock. Timers only fire inside
// Advance, in fire-time order, so tests control exactly when scheduled
// work runs.
type FakeClock struct {
	mux     sync.Mutex
	now     time.Time
	pending []*fakeTimer
}

type fakeTimer struct {
	fireAt    time.Time
	callback  func()
	cancelled bool
}

// NewFakeClock starts a fake clock at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.now
}

func (c *FakeClock) HasExpired(start time.Time, window time.Duration) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.now.After(start.Add(window))
}

func (c *FakeClock) ScheduleTimer(_ context.Context, d time.Duration, f func()) (cancel func()) {
	c.mux.Lock()
	defer c.mux.Unlock()
	timer := &fakeTimer{fireAt: c.now.Add(d), callback: f}
	c.pending = append(c.pending, timer)
	return func() {
		c.mux.Lock()
		defer c.mux.Unlock()
		timer.cancelled = true
	}
}

// Advance moves the clock forward and fires every due timer. Callbacks
// run outside the clock lock so they may schedule further timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mux.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	var still []*fakeTimer
	for _, t := range c.pending {
		switch {
		case t.cancelled:
		case !t.fireAt.After(c.now):
			due = append(due, t)
		default:
			still = append(still, t)
		}
	}
	c.pending = still
	sort.SliceStable(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })
	c.mux.Unlock()

	for _, t := range due {
		t.callback()
	}
}

// PendingTimers returns the number of live scheduled timers.
func (c *FakeClock) PendingTimers() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}
