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

import "time"

// EventType discriminates events within one state machine. Values are
// defined by the owning package; negative values are reserved here.
type EventType int

// Event is anything that can be fed into a state machine.
type Event interface {
	Type() EventType
	TypeString() string
	GetEventTime() time.Time
}

// BaseEvent supplies the timestamp half of Event; concrete events embed
// it and implement Type/TypeString themselves.
type BaseEvent struct {
	EventTime time.Time
}

func (e *BaseEvent) GetEventTime() time.Time {
	return e.EventTime
}

// syncEventType is reserved so it can never collide with caller-defined
// event types.
const syncEventType EventType = -1

// SyncEvent is a test-only barrier: when the event loop dequeues it, all
// previously queued events have been fully processed and Done is closed.
type SyncEvent struct {
	BaseEvent
	Done chan struct{}
}

func NewSyncEvent() *SyncEvent {
	return &SyncEvent{Done: make(chan struct{})}
}

func (*SyncEvent) Type() EventType {
	return syncEventType
}

func (*SyncEvent) TypeString() string {
	return "SyncEvent"
}
