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

package statemachine

import (
	"context"

	"github.com/laminar-markets/laminar-client-go/internal/log"
)

const defaultEventBuffer = 32

// EventLoop serializes all event processing for one state machine onto
// a single goroutine, so background I/O goroutines only ever hand their
// results back as queued events.
type EventLoop[S State, E Lockable] struct {
	sm          *StateMachine[S, E]
	entity      E
	name        string
	events      chan Event
	stopLoop    chan struct{}
	loopStopped chan struct{}
}

// EventLoopConfig wires a state machine, its entity and the loop
// parameters together.
type EventLoopConfig[S State, E Lockable] struct {
	InitialState S
	Definitions  StateDefinitions[S, E]
	Entity       E
	// Name appears in log lines.
	Name string
	// BufferSize is the event channel depth; zero means the default.
	BufferSize int
	// TransitionCallback observes committed transitions (optional).
	TransitionCallback TransitionCallback[S, E]
}

func NewEventLoop[S State, E Lockable](conf EventLoopConfig[S, E]) *EventLoop[S, E] {
	sm := NewStateMachine(conf.InitialState, conf.Definitions)
	if conf.TransitionCallback != nil {
		sm.OnTransition(conf.TransitionCallback)
	}
	buffer := conf.BufferSize
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	name := conf.Name
	if name == "" {
		name = "eventloop"
	}
	return &EventLoop[S, E]{
		sm:          sm,
		entity:      conf.Entity,
		name:        name,
		events:      make(chan Event, buffer),
		stopLoop:    make(chan struct{}, 1),
		loopStopped: make(chan struct{}),
	}
}

// Start runs the loop until Stop or context cancellation. Call as a
// goroutine.
func (el *EventLoop[S, E]) Start(ctx context.Context) {
	defer close(el.loopStopped)
	log.L(ctx).Debugf("%s: started", el.name)

	for {
		select {
		case event := <-el.events:
			if sync, ok := event.(*SyncEvent); ok {
				close(sync.Done)
				continue
			}
			if err := el.sm.ProcessEvent(ctx, el.entity, event); err != nil {
				log.L(ctx).Errorf("%s: event %s failed: %v", el.name, event.TypeString(), err)
			}
		case <-el.stopLoop:
			log.L(ctx).Debugf("%s: stopped", el.name)
			return
		case <-ctx.Done():
			log.L(ctx).Debugf("%s: context cancelled", el.name)
			return
		}
	}
}

// QueueEvent queues an event, blocking when the buffer is full.
func (el *EventLoop[S, E]) QueueEvent(ctx context.Context, event Event) {
	select {
	case el.events <- event:
	case <-el.loopStopped:
		log.L(ctx).Tracef("%s: dropping %s after stop", el.name, event.TypeString())
	}
}

// TryQueueEvent queues without blocking; false means the buffer was
// full and the event was dropped.
func (el *EventLoop[S, E]) TryQueueEvent(ctx context.Context, event Event) bool {
	select {
	case el.events <- event:
		return true
	default:
		log.L(ctx).Warnf("%s: buffer full, dropping %s", el.name, event.TypeString())
		return false
	}
}

// Stop signals the loop and waits for it to exit.
func (el *EventLoop[S, E]) Stop() {
	el.StopAsync()
	<-el.loopStopped
}

// StopAsync signals the loop without waiting.
func (el *EventLoop[S, E]) StopAsync() {
	select {
	case <-el.loopStopped:
	default:
		select {
		case el.stopLoop <- struct{}{}:
		default:
		}
	}
}

// WaitForStop blocks until the loop has exited.
func (el *EventLoop[S, E]) WaitForStop() {
	<-el.loopStopped
}

// Stopped reports whether the loop has exited.
func (el *EventLoop[S, E]) Stopped() bool {
	select {
	case <-el.loopStopped:
		return true
	default:
		return false
	}
}

// Sync queues a barrier event and waits until everything queued before
// it has been processed. Test helper.
func (el *EventLoop[S, E]) Sync(ctx context.Context) {
	sync := NewSyncEvent()
	el.QueueEvent(ctx, sync)
	select {
	case <-sync.Done:
	case <-el.loopStopped:
	case <-ctx.Done():
	}
}

// StateMachine exposes the underlying machine.
func (el *EventLoop[S, E]) StateMachine() *StateMachine[S, E] {
	return el.sm
}

// CurrentState returns the machine's current state.
func (el *EventLoop[S, E]) CurrentState() S {
	return el.sm.CurrentState()
}
