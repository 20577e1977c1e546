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
	"context"
	"errors"

	"github.com/laminar-markets/laminar-client-go/internal/builder"
	"github.com/laminar-markets/laminar-client-go/internal/log"
	"github.com/laminar-markets/laminar-client-go/internal/statemachine"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
)

// submissionStates declares the full lifecycle. Events not listed for a
// state are dropped there, which is what makes duplicate and late
// responses harmless once a terminal state is reached.
func submissionStates() statemachine.StateDefinitions[State, *Submission] {
	return statemachine.StateDefinitions[State, *Submission]{
		State_Building: {
			OnEntry: actionStartBuild,
			Events: map[statemachine.EventType]statemachine.EventHandler[State, *Submission]{
				Event_Begin: {
					Actions: []statemachine.ActionRule[*Submission]{{Action: actionStartBuild}},
				},
				Event_BuildResult: {
					OnEvent: applyBuildResult,
					Transitions: []statemachine.Transition[State, *Submission]{
						{To: State_Signed, If: buildSucceeded},
						{To: State_Failed},
					},
				},
				Event_Cancel: {
					Transitions: []statemachine.Transition[State, *Submission]{
						{To: State_Failed, On: actionMarkCancelled},
					},
				},
			},
		},
		State_Signed: {
			OnEntry: actionStartSubmit,
			Events: map[statemachine.EventType]statemachine.EventHandler[State, *Submission]{
				Event_SubmitResult: {
					OnEvent: applySubmitResult,
					Transitions: []statemachine.Transition[State, *Submission]{
						{To: State_Submitted, If: submitSucceeded},
						{To: State_Building, If: statemachine.And(submitRetriable, canResubmit), On: actionPrepareResubmit},
						{To: State_Failed},
					},
				},
			},
		},
		State_Submitted: {
			OnEntry: actionSchedulePoll,
			Events: map[statemachine.EventType]statemachine.EventHandler[State, *Submission]{
				Event_PollDue: {
					Transitions: []statemachine.Transition[State, *Submission]{
						{To: State_Polling},
					},
				},
			},
		},
		State_Polling: {
			OnEntry: actionStartPoll,
			Events: map[statemachine.EventType]statemachine.EventHandler[State, *Submission]{
				Event_PollDue: {
					Actions: []statemachine.ActionRule[*Submission]{{Action: actionStartPoll}},
				},
				Event_PollResult: {
					OnEvent: applyPollResult,
					Actions: []statemachine.ActionRule[*Submission]{
						{If: verdictIs(verdictPending), Action: actionReschedulePoll},
					},
					Transitions: []statemachine.Transition[State, *Submission]{
						{To: State_Confirmed, If: verdictIs(verdictConfirmed)},
						{To: State_Failed, If: verdictIs(verdictRejected)},
						{To: State_Expired, If: verdictIs(verdictExpired)},
					},
				},
			},
		},
		State_Confirmed: {
			OnEntry: enterConfirmed,
			Events:  lateEvents(),
		},
		State_Failed: {
			OnEntry: enterFailed,
			Events:  lateEvents(),
		},
		State_Expired: {
			OnEntry: enterExpired,
			Events:  lateEvents(),
		},
	}
}

// lateEvents handles stragglers in terminal states: a build that raced
// a cancellation may still carry a live reservation that must be
// returned to the pool. finalize leaves the loop running while such a
// build is outstanding, so the handler also performs the deferred stop.
func lateEvents() map[statemachine.EventType]statemachine.EventHandler[State, *Submission] {
	return map[statemachine.EventType]statemachine.EventHandler[State, *Submission]{
		Event_BuildResult: {
			OnEvent: func(ctx context.Context, s *Submission, event statemachine.Event) error {
				ev := event.(*buildResultEvent)
				s.buildInFlight = false
				if ev.reserved {
					if err := s.orch.pool.Release(ctx, s.sender, ev.seq); err != nil {
						log.L(ctx).Debugf("late release of sequence %d skipped: %v", ev.seq, err)
					}
				}
				s.loop.StopAsync()
				return nil
			},
		},
	}
}

// toLamError normalizes any error into the taxonomy, defaulting to a
// network classification for unwrapped transport errors.
func toLamError(err error) *lamapi.Error {
	var lamErr *lamapi.Error
	if errors.As(err, &lamErr) {
		return lamErr
	}
	return lamapi.WrapError(lamapi.ErrorKindNetwork, err, "submission failed")
}

// --- Building ---

// actionStartBuild launches the reserve+build+sign pipeline. On a
// resubmission the pipeline resyncs the account first so the fresh
// reservation reflects chain reality.
func actionStartBuild(ctx context.Context, s *Submission) error {
	needsResync := s.needsResync
	s.needsResync = false
	s.buildInFlight = true

	go func() {
		ev := &buildResultEvent{BaseEvent: statemachine.BaseEvent{EventTime: s.orch.clock.Now()}}
		defer s.loop.QueueEvent(ctx, ev)

		if needsResync {
			if err := s.orch.pool.Resync(ctx, s.sender); err != nil {
				ev.err = err
				return
			}
		}
		seq, err := s.orch.pool.Reserve(ctx, s.sender)
		if err != nil {
			ev.err = err
			return
		}
		ev.seq, ev.reserved = seq, true

		meta := builder.Metadata{
			ChainID:                 s.orch.conf.ChainID,
			LaminarAddress:          s.orch.conf.LaminarAddress,
			MaxGasAmount:            s.orch.conf.MaxGasAmount,
			GasUnitPrice:            s.orch.conf.GasUnitPrice,
			ExpirationTimestampSecs: uint64(s.orch.clock.Now().Add(s.orch.conf.ExpirationWindow).Unix()),
		}
		raw, err := builder.Build(s.intent, s.sender, seq, meta)
		if err != nil {
			ev.err = err
			return
		}
		signature, err := s.signer.Sign(ctx, raw.SigningMessage())
		if err != nil {
			ev.err = err
			return
		}
		ev.signed = raw.Attach(s.signer.PublicKey(), signature)
	}()
	return nil
}

func applyBuildResult(ctx context.Context, s *Submission, event statemachine.Event) error {
	ev := event.(*buildResultEvent)
	s.buildInFlight = false
	if ev.reserved {
		s.seq = ev.seq
		s.seqReserved = true
	}
	if ev.err != nil {
		s.lastErr = toLamError(ev.err)
		return nil
	}
	s.signed = ev.signed
	s.hash = ev.signed.Hash()
	return nil
}

func buildSucceeded(ctx context.Context, s *Submission) bool {
	return s.signed != nil && s.lastErr == nil
}

func actionMarkCancelled(ctx context.Context, s *Submission) error {
	s.lastErr = lamapi.NewError(lamapi.ErrorKindValidation, "submission cancelled before reaching the node")
	return nil
}

// --- Signed ---

func actionStartSubmit(ctx context.Context, s *Submission) error {
	s.submitAttempts++
	s.orch.metrics.IncSubmitted(s.intent.Name())
	encoded := s.signed.Encode()

	go func() {
		pending, err := s.orch.gateway.SubmitTransaction(ctx, encoded)
		s.loop.QueueEvent(ctx, &submitResultEvent{
			BaseEvent: statemachine.BaseEvent{EventTime: s.orch.clock.Now()},
			pending:   pending,
			err:       err,
		})
	}()
	return nil
}

func applySubmitResult(ctx context.Context, s *Submission, event statemachine.Event) error {
	ev := event.(*submitResultEvent)
	if ev.err != nil {
		s.lastErr = toLamError(ev.err)
		if lamapi.IsSequenceMismatch(ev.err) {
			s.orch.metrics.IncSequenceMismatches()
			log.L(ctx).Warnf("sequence %d rejected by node: %v", s.seq, ev.err)
		}
		return nil
	}
	if ev.pending != nil {
		log.L(ctx).Debugf("node accepted transaction %s at sequence %s", ev.pending.Hash, ev.pending.SequenceNumber)
	}
	s.lastErr = nil
	return nil
}

func submitSucceeded(ctx context.Context, s *Submission) bool {
	return s.lastErr == nil
}

// submitRetriable covers the two submit failures worth another attempt
// while a reservation is held: a node-side sequence rejection, and a
// transport failure where the transaction may or may not have landed.
// Both release the burned number and resync before rebuilding.
func submitRetriable(ctx context.Context, s *Submission) bool {
	if s.lastErr == nil {
		return false
	}
	return s.lastErr.Kind == lamapi.ErrorKindSequenceMismatch || s.lastErr.Kind == lamapi.ErrorKindNetwork
}

func canResubmit(ctx context.Context, s *Submission) bool {
	return s.submitAttempts <= s.orch.conf.MaxResubmissions
}

// actionPrepareResubmit returns the rejected reservation and rearms the
// build with a forced resync. The rejected number stays burned locally;
// the resync decides whether the chain already consumed it.
func actionPrepareResubmit(ctx context.Context, s *Submission) error {
	s.orch.metrics.IncResubmissions()
	if s.seqReserved {
		if err := s.orch.pool.Release(ctx, s.sender, s.seq); err != nil {
			log.L(ctx).Debugf("release of rejected sequence %d skipped: %v", s.seq, err)
		}
		s.seqReserved = false
	}
	s.signed = nil
	s.lastErr = nil
	s.needsResync = true
	return nil
}

// --- Submitted / Polling ---

func actionSchedulePoll(ctx context.Context, s *Submission) error {
	interval := s.pollInterval
	s.cancelTimer = s.orch.clock.ScheduleTimer(ctx, interval, func() {
		s.loop.QueueEvent(ctx, &pollDueEvent{BaseEvent: statemachine.BaseEvent{EventTime: s.orch.clock.Now()}})
	})
	return nil
}

func actionStartPoll(ctx context.Context, s *Submission) error {
	hash := s.hash
	go func() {
		tx, err := s.orch.gateway.GetTransactionByHash(ctx, hash)
		s.loop.QueueEvent(ctx, &pollResultEvent{
			BaseEvent: statemachine.BaseEvent{EventTime: s.orch.clock.Now()},
			tx:        tx,
			err:       err,
		})
	}()
	return nil
}

// applyPollResult reduces one poll response to a verdict. Network
// errors and still-pending responses both leave the submission in
// flight until the expiration timestamp passes with no chain record.
func applyPollResult(ctx context.Context, s *Submission, event statemachine.Event) error {
	ev := event.(*pollResultEvent)
	expired := uint64(s.orch.clock.Now().Unix()) > s.signed.Raw.ExpirationTimestampSecs

	switch {
	case ev.err != nil:
		s.lastErr = toLamError(ev.err)
		if expired {
			s.verdict = verdictExpired
		} else {
			s.verdict = verdictPending
		}
	case ev.tx == nil:
		if expired {
			s.verdict = verdictExpired
		} else {
			s.verdict = verdictPending
		}
	case ev.tx.Executed():
		s.pollTx = ev.tx
		if ev.tx.Succeeded() {
			s.verdict = verdictConfirmed
		} else {
			s.verdict = verdictRejected
		}
	default:
		// Known to the node but not yet executed.
		s.verdict = verdictPending
	}
	return nil
}

func verdictIs(v pollVerdict) statemachine.Guard[*Submission] {
	return func(ctx context.Context, s *Submission) bool {
		return s.verdict == v
	}
}

// actionReschedulePoll arms the next poll with a doubled interval,
// capped at the configured maximum.
func actionReschedulePoll(ctx context.Context, s *Submission) error {
	next := s.pollInterval * 2
	if next > s.orch.conf.MaxPollInterval {
		next = s.orch.conf.MaxPollInterval
	}
	s.pollInterval = next
	s.cancelTimer = s.orch.clock.ScheduleTimer(ctx, next, func() {
		s.loop.QueueEvent(ctx, &pollDueEvent{BaseEvent: statemachine.BaseEvent{EventTime: s.orch.clock.Now()}})
	})
	return nil
}

// --- Terminal states ---

func enterConfirmed(ctx context.Context, s *Submission) error {
	tx := s.pollTx
	events := make([]lamapi.LaminarEvent, 0, len(tx.Events))
	for _, raw := range tx.Events {
		addr, ok := raw.TypeAddress()
		if !ok || addr != s.orch.conf.LaminarAddress {
			continue
		}
		decoded, ok, err := lamapi.DecodeLaminarEvent(raw.Type, raw.Data)
		if err != nil {
			log.L(ctx).Warnf("undecodable DEX event %s: %v", raw.Type, err)
			continue
		}
		if ok {
			events = append(events, *decoded)
		}
	}

	s.finalize(ctx, &lamapi.Outcome{
		Status: lamapi.StatusConfirmed,
		Transaction: &lamapi.LaminarTransaction{
			Info:      *tx,
			Events:    events,
			Timestamp: tx.Timestamp,
		},
	})
	return nil
}

func enterFailed(ctx context.Context, s *Submission) error {
	outcome := &lamapi.Outcome{Status: lamapi.StatusFailed, Err: s.lastErr}
	if s.pollTx != nil && s.pollTx.Executed() && !s.pollTx.Succeeded() {
		// The chain's own failure reason, verbatim.
		outcome.FailureReason = s.pollTx.VMStatus
		outcome.Err = lamapi.NewError(lamapi.ErrorKindChainExecution, "transaction rejected by contract")
		outcome.Err.VMStatus = s.pollTx.VMStatus
	}
	s.finalize(ctx, outcome)
	return nil
}

func enterExpired(ctx context.Context, s *Submission) error {
	err := lamapi.NewError(lamapi.ErrorKindExpiration,
		"no confirmation before expiration; outcome indeterminate, query chain state before retrying")
	s.finalize(ctx, &lamapi.Outcome{Status: lamapi.StatusExpired, Err: err})
	return nil
}
