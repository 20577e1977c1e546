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

package orchestrator

import (
	"github.com/laminar-markets/laminar-client-go/internal/builder"
	"github.com/laminar-markets/laminar-client-go/internal/statemachine"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
)

const (
	// Event_Begin starts (or restarts, after a sequence resync) the
	// build of a submission.
	Event_Begin statemachine.EventType = iota
	// Event_BuildResult reports the reserve+build+sign pipeline outcome.
	Event_BuildResult
	// Event_SubmitResult reports the node's response to the submission.
	Event_SubmitResult
	// Event_PollDue fires when the poll timer elapses.
	Event_PollDue
	// Event_PollResult reports one transaction status poll.
	Event_PollResult
	// Event_Cancel is the caller's cancellation request. Only honored
	// before the transaction reaches the node.
	Event_Cancel
)

type beginEvent struct {
	statemachine.BaseEvent
}

func (*beginEvent) Type() statemachine.EventType { return Event_Begin }
func (*beginEvent) TypeString() string           { return "Event_Begin" }

type buildResultEvent struct {
	statemachine.BaseEvent
	signed *builder.SignedTransaction
	// seq is meaningful only when reserved is true.
	seq      uint64
	reserved bool
	err      error
}

func (*buildResultEvent) Type() statemachine.EventType { return Event_BuildResult }
func (*buildResultEvent) TypeString() string           { return "Event_BuildResult" }

type submitResultEvent struct {
	statemachine.BaseEvent
	pending *lamapi.PendingTransaction
	err     error
}

func (*submitResultEvent) Type() statemachine.EventType { return Event_SubmitResult }
func (*submitResultEvent) TypeString() string           { return "Event_SubmitResult" }

type pollDueEvent struct {
	statemachine.BaseEvent
}

func (*pollDueEvent) Type() statemachine.EventType { return Event_PollDue }
func (*pollDueEvent) TypeString() string           { return "Event_PollDue" }

type pollResultEvent struct {
	statemachine.BaseEvent
	tx  *lamapi.Transaction
	err error
}

func (*pollResultEvent) Type() statemachine.EventType { return Event_PollResult }
func (*pollResultEvent) TypeString() string           { return "Event_PollResult" }

type cancelEvent struct {
	statemachine.BaseEvent
}

func (*cancelEvent) Type() statemachine.EventType { return Event_Cancel }
func (*cancelEvent) TypeString() string           { return "Event_Cancel" }
