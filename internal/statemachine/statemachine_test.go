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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState int

const (
	state_Idle testState = iota
	state_Running
	state_Done
	state_Failed
)

const (
	event_Start  EventType = 100
	event_Finish EventType = 101
	event_Fail   EventType = 102
)

type testEntity struct {
	sync.Mutex
	starts   int
	entries  []testState
	lastData string
	ready    bool
}

type testEvent struct {
	BaseEvent
	eventType EventType
	data      string
}

func (e *testEvent) Type() EventType { return e.eventType }

func (e *testEvent) TypeString() string {
	switch e.eventType {
	case event_Start:
		return "event_Start"
	case event_Finish:
		return "event_Finish"
	case event_Fail:
		return "event_Fail"
	}
	return "unknown"
}

func newTestEvent(eventType EventType) *testEvent {
	return &testEvent{BaseEvent: BaseEvent{EventTime: time.Now()}, eventType: eventType}
}

func testDefinitions() StateDefinitions[testState, *testEntity] {
	return StateDefinitions[testState, *testEntity]{
		state_Idle: {
			Events: map[EventType]EventHandler[testState, *testEntity]{
				event_Start: {
					OnEvent: func(ctx context.Context, e *testEntity, event Event) error {
						e.starts++
						e.lastData = event.(*testEvent).data
						return nil
					},
					Transitions: []Transition[testState, *testEntity]{
						{To: state_Running, If: func(ctx context.Context, e *testEntity) bool { return e.ready }},
						{To: state_Failed},
					},
				},
			},
		},
		state_Running: {
			OnEntry: func(ctx context.Context, e *testEntity) error {
				e.entries = append(e.entries, state_Running)
				return nil
			},
			Events: map[EventType]EventHandler[testState, *testEntity]{
				event_Finish: {
					Transitions: []Transition[testState, *testEntity]{{To: state_Done}},
				},
				event_Fail: {
					Transitions: []Transition[testState, *testEntity]{{To: state_Failed}},
				},
			},
		},
		state_Done:   {},
		state_Failed: {},
	}
}

func TestFirstMatchingTransitionWins(t *testing.T) {
	ctx := context.Background()
	entity := &testEntity{ready: true}
	sm := NewStateMachine(state_Idle, testDefinitions())

	start := newTestEvent(event_Start)
	start.data = "payload"
	require.NoError(t, sm.ProcessEvent(ctx, entity, start))
	assert.Equal(t, state_Running, sm.CurrentState())
	assert.Equal(t, 1, entity.starts)
	assert.Equal(t, "payload", entity.lastData)
	assert.Equal(t, []testState{state_Running}, entity.entries)
}

func TestGuardedFallbackTransition(t *testing.T) {
	ctx := context.Background()
	entity := &testEntity{ready: false}
	sm := NewStateMachine(state_Idle, testDefinitions())

	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Start)))
	assert.Equal(t, state_Failed, sm.CurrentState())
}

func TestUnhandledEventIgnored(t *testing.T) {
	ctx := context.Background()
	entity := &testEntity{ready: true}
	sm := NewStateMachine(state_Idle, testDefinitions())

	// event_Finish is not handled in Idle.
	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Finish)))
	assert.Equal(t, state_Idle, sm.CurrentState())

	// Terminal states handle nothing at all.
	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Start)))
	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Finish)))
	assert.Equal(t, state_Done, sm.CurrentState())
	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Fail)))
	assert.Equal(t, state_Done, sm.CurrentState())
	assert.Equal(t, 1, entity.starts)
}

func TestValidatorDropsEvent(t *testing.T) {
	ctx := context.Background()
	definitions := testDefinitions()
	handler := definitions[state_Idle].Events[event_Start]
	handler.Validator = func(ctx context.Context, e *testEntity, event Event) (bool, error) {
		return event.(*testEvent).data != "", nil
	}
	definitions[state_Idle].Events[event_Start] = handler

	entity := &testEntity{ready: true}
	sm := NewStateMachine(state_Idle, definitions)

	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Start)))
	assert.Equal(t, state_Idle, sm.CurrentState())
	assert.Equal(t, 0, entity.starts)

	accepted := newTestEvent(event_Start)
	accepted.data = "ok"
	require.NoError(t, sm.ProcessEvent(ctx, entity, accepted))
	assert.Equal(t, state_Running, sm.CurrentState())
}

func TestGuardedActions(t *testing.T) {
	ctx := context.Background()
	var fired []string
	definitions := testDefinitions()
	handler := definitions[state_Idle].Events[event_Start]
	handler.Actions = []ActionRule[*testEntity]{
		{Action: func(ctx context.Context, e *testEntity) error {
			fired = append(fired, "always")
			return nil
		}},
		{
			If: func(ctx context.Context, e *testEntity) bool { return e.ready },
			Action: func(ctx context.Context, e *testEntity) error {
				fired = append(fired, "guarded")
				return nil
			},
		},
	}
	definitions[state_Idle].Events[event_Start] = handler

	entity := &testEntity{ready: false}
	sm := NewStateMachine(state_Idle, definitions)
	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Start)))
	assert.Equal(t, []string{"always"}, fired)
}

func TestOnEventErrorAbortsTransition(t *testing.T) {
	ctx := context.Background()
	definitions := testDefinitions()
	handler := definitions[state_Idle].Events[event_Start]
	handler.OnEvent = func(ctx context.Context, e *testEntity, event Event) error {
		return errors.New("pop")
	}
	definitions[state_Idle].Events[event_Start] = handler

	entity := &testEntity{ready: true}
	sm := NewStateMachine(state_Idle, definitions)
	require.Error(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Start)))
	assert.Equal(t, state_Idle, sm.CurrentState())
}

func TestTransitionCallback(t *testing.T) {
	ctx := context.Background()
	type hop struct{ from, to testState }
	var hops []hop

	entity := &testEntity{ready: true}
	sm := NewStateMachine(state_Idle, testDefinitions())
	sm.OnTransition(func(ctx context.Context, e *testEntity, from, to testState, event Event) {
		hops = append(hops, hop{from, to})
	})

	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Start)))
	require.NoError(t, sm.ProcessEvent(ctx, entity, newTestEvent(event_Finish)))
	assert.Equal(t, []hop{{state_Idle, state_Running}, {state_Running, state_Done}}, hops)
}

func TestGuardCombinators(t *testing.T) {
	ctx := context.Background()
	entity := &testEntity{}
	yes := func(ctx context.Context, e *testEntity) bool { return true }
	no := func(ctx context.Context, e *testEntity) bool { return false }

	assert.True(t, Not[*testEntity](no)(ctx, entity))
	assert.False(t, Not[*testEntity](yes)(ctx, entity))
	assert.True(t, And(yes, yes)(ctx, entity))
	assert.False(t, And(yes, no)(ctx, entity))
	assert.True(t, Or(no, yes)(ctx, entity))
	assert.False(t, Or(no, no)(ctx, entity))
}

func TestEventLoopProcessesInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entity := &testEntity{ready: true}
	loop := NewEventLoop(EventLoopConfig[testState, *testEntity]{
		InitialState: state_Idle,
		Definitions:  testDefinitions(),
		Entity:       entity,
		Name:         "test-loop",
	})
	go loop.Start(ctx)
	defer loop.Stop()

	loop.QueueEvent(ctx, newTestEvent(event_Start))
	loop.QueueEvent(ctx, newTestEvent(event_Finish))
	loop.Sync(ctx)

	assert.Equal(t, state_Done, loop.CurrentState())
	assert.Equal(t, 1, entity.starts)
}

func TestEventLoopStopIdempotent(t *testing.T) {
	ctx := context.Background()
	loop := NewEventLoop(EventLoopConfig[testState, *testEntity]{
		InitialState: state_Idle,
		Definitions:  testDefinitions(),
		Entity:       &testEntity{},
	})
	go loop.Start(ctx)

	loop.Stop()
	loop.Stop()
	loop.StopAsync()
	assert.True(t, loop.Stopped())
}

func TestEventLoopContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewEventLoop(EventLoopConfig[testState, *testEntity]{
		InitialState: state_Idle,
		Definitions:  testDefinitions(),
		Entity:       &testEntity{},
	})
	go loop.Start(ctx)

	cancel()
	loop.WaitForStop()
	assert.True(t, loop.Stopped())
}
