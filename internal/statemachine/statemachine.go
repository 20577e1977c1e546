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

// Package statemachine is a typed, declarative state machine: states and
// events are enums, each state declares the events it handles, and each
// handler declares guarded actions and an ordered transition list. A
// submission lifecycle is expressed as data rather than as a tangle of
// flags, and every mutation of the entity happens under its lock inside
// the event loop.
package statemachine

import (
	"context"
	"time"

	"github.com/laminar-markets/laminar-client-go/internal/log"
)

// State constrains state types to comparable enums.
type State interface {
	comparable
}

// Lockable is implemented by entities so ProcessEvent can hold the
// entity's lock for the full handling of one event.
type Lockable interface {
	Lock()
	Unlock()
}

// Action mutates the entity. The entity lock is held.
type Action[E any] func(ctx context.Context, entity E) error

// EventAction applies event-specific data to the entity before guards
// are evaluated.
type EventAction[E any] func(ctx context.Context, entity E, event Event) error

// Guard is a side-effect-free predicate over the entity.
type Guard[E any] func(ctx context.Context, entity E) bool

// Validator decides whether an event applies at all in the current
// state. Returning false drops the event silently; an error aborts it.
type Validator[E any] func(ctx context.Context, entity E, event Event) (bool, error)

// ActionRule is an action with an optional guard; a nil guard always
// fires.
type ActionRule[E any] struct {
	If     Guard[E]
	Action Action[E]
}

// Transition is one candidate transition out of a state. The first
// transition whose guard passes is taken; On runs before the target
// state's entry action.
type Transition[S State, E any] struct {
	To S
	If Guard[E]
	On Action[E]
}

// EventHandler declares how one event type is handled in one state.
type EventHandler[S State, E any] struct {
	Validator   Validator[E]
	OnEvent     EventAction[E]
	Actions     []ActionRule[E]
	Transitions []Transition[S, E]
}

// StateDefinition declares a state's entry action and its handled
// events. Events absent from the map are ignored in that state, which
// is how late or duplicate notifications die quietly in terminal states.
type StateDefinition[S State, E any] struct {
	OnEntry Action[E]
	Events  map[EventType]EventHandler[S, E]
}

type StateDefinitions[S State, E any] map[S]StateDefinition[S, E]

// TransitionCallback observes committed transitions.
type TransitionCallback[S State, E any] func(ctx context.Context, entity E, from, to S, event Event)

type StateMachine[S State, E Lockable] struct {
	current            S
	lastTransition     time.Time
	definitions        StateDefinitions[S, E]
	transitionCallback TransitionCallback[S, E]
}

func NewStateMachine[S State, E Lockable](initial S, definitions StateDefinitions[S, E]) *StateMachine[S, E] {
	return &StateMachine[S, E]{
		current:        initial,
		lastTransition: time.Now(),
		definitions:    definitions,
	}
}

// OnTransition registers a callback observing every committed transition.
func (sm *StateMachine[S, E]) OnTransition(cb TransitionCallback[S, E]) {
	sm.transitionCallback = cb
}

// ProcessEvent handles one event under the entity's lock: validate,
// apply OnEvent, run guarded actions, then take the first matching
// transition. Events not handled in the current state are ignored.
func (sm *StateMachine[S, E]) ProcessEvent(ctx context.Context, entity E, event Event) error {
	entity.Lock()
	defer entity.Unlock()

	handler, ok := sm.handlerFor(sm.current, event)
	if !ok {
		log.L(ctx).Tracef("ignoring event %s in state %v", event.TypeString(), sm.current)
		return nil
	}

	if handler.Validator != nil {
		valid, err := handler.Validator(ctx, entity, event)
		if err != nil {
			return err
		}
		if !valid {
			log.L(ctx).Debugf("event %s not valid in state %v, dropped", event.TypeString(), sm.current)
			return nil
		}
	}

	if handler.OnEvent != nil {
		if err := handler.OnEvent(ctx, entity, event); err != nil {
			return err
		}
	}

	for _, rule := range handler.Actions {
		if rule.If == nil || rule.If(ctx, entity) {
			if err := rule.Action(ctx, entity); err != nil {
				return err
			}
		}
	}

	return sm.transition(ctx, entity, event, handler)
}

func (sm *StateMachine[S, E]) handlerFor(state S, event Event) (EventHandler[S, E], bool) {
	def, ok := sm.definitions[state]
	if !ok {
		return EventHandler[S, E]{}, false
	}
	handler, ok := def.Events[event.Type()]
	return handler, ok
}

func (sm *StateMachine[S, E]) transition(ctx context.Context, entity E, event Event, handler EventHandler[S, E]) error {
	for _, rule := range handler.Transitions {
		if rule.If != nil && !rule.If(ctx, entity) {
			continue
		}

		from := sm.current
		sm.current = rule.To
		sm.lastTransition = time.Now()
		log.L(ctx).Debugf("transition %v -> %v on %s", from, rule.To, event.TypeString())

		if rule.On != nil {
			if err := rule.On(ctx, entity); err != nil {
				return err
			}
		}
		if def, ok := sm.definitions[sm.current]; ok && def.OnEntry != nil {
			if err := def.OnEntry(ctx, entity); err != nil {
				return err
			}
		}
		if sm.transitionCallback != nil {
			sm.transitionCallback(ctx, entity, from, sm.current, event)
		}
		// First matching transition wins.
		return nil
	}
	return nil
}

// CurrentState returns the machine's current state. Callers coordinate
// their own locking; inside actions and guards the entity lock is
// already held.
func (sm *StateMachine[S, E]) CurrentState() S {
	return sm.current
}

// LastTransition returns when the machine last changed state.
func (sm *StateMachine[S, E]) LastTransition() time.Time {
	return sm.lastTransition
}
