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

// Package orchestrator drives one submission from intent to terminal
// outcome. Each submission is a state machine on its own event loop:
// network I/O happens in background goroutines that feed their results
// back as events, so the lifecycle logic itself is single-threaded and
// the first terminal state always wins.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/laminar-markets/laminar-client-go/internal/builder"
	"github.com/laminar-markets/laminar-client-go/internal/clock"
	"github.com/laminar-markets/laminar-client-go/internal/log"
	"github.com/laminar-markets/laminar-client-go/internal/metrics"
	"github.com/laminar-markets/laminar-client-go/internal/statemachine"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// State is the lifecycle of one submission.
type State int

const (
	State_Building State = iota
	State_Signed
	State_Submitted
	State_Polling
	State_Confirmed
	State_Failed
	State_Expired
)

func (s State) String() string {
	switch s {
	case State_Building:
		return "Building"
	case State_Signed:
		return "Signed"
	case State_Submitted:
		return "Submitted"
	case State_Polling:
		return "Polling"
	case State_Confirmed:
		return "Confirmed"
	case State_Failed:
		return "Failed"
	case State_Expired:
		return "Expired"
	}
	return "Unknown"
}

// Terminal reports whether a state is an endpoint of the lifecycle.
func (s State) Terminal() bool {
	return s == State_Confirmed || s == State_Failed || s == State_Expired
}

// NodeGateway is the slice of the gateway the orchestrator needs.
type NodeGateway interface {
	SubmitTransaction(ctx context.Context, signedTx []byte) (*lamapi.PendingTransaction, error)
	GetTransactionByHash(ctx context.Context, hash lamtypes.Bytes32) (*lamapi.Transaction, error)
}

// SequencePool is the slice of the sequencer the orchestrator needs.
type SequencePool interface {
	Reserve(ctx context.Context, addr lamtypes.Address) (uint64, error)
	Release(ctx context.Context, addr lamtypes.Address, seq uint64) error
	Resync(ctx context.Context, addr lamtypes.Address) error
}

// Signer produces the sender's signature over a signing message. The
// orchestrator never sees key material.
type Signer interface {
	PublicKey() []byte
	Sign(ctx context.Context, message []byte) ([]byte, error)
}

// Config is the resolved submission tuning. The facade derives it from
// the user-facing configuration.
type Config struct {
	ChainID        uint8
	LaminarAddress lamtypes.Address
	MaxGasAmount   uint64
	GasUnitPrice   uint64
	// ExpirationWindow is how long after build a transaction stays valid.
	ExpirationWindow time.Duration
	// PollInterval is the first poll delay; the delay doubles on every
	// inconclusive poll up to MaxPollInterval.
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	// MaxResubmissions bounds rebuilds after a sequence mismatch.
	MaxResubmissions int
}

// Orchestrator creates and runs submissions against a fixed set of
// engine dependencies.
type Orchestrator struct {
	gateway  NodeGateway
	pool     SequencePool
	clock    clock.Clock
	metrics  metrics.SubmissionMetrics
	conf     Config
	inFlight atomic.Int64
}

func New(gw NodeGateway, pool SequencePool, clk clock.Clock, m metrics.SubmissionMetrics, conf Config) *Orchestrator {
	if clk == nil {
		clk = clock.RealClock()
	}
	if m == nil {
		m = metrics.Noop()
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = 200 * time.Millisecond
	}
	if conf.MaxPollInterval < conf.PollInterval {
		conf.MaxPollInterval = 2 * time.Second
	}
	if conf.ExpirationWindow <= 0 {
		conf.ExpirationWindow = 30 * time.Second
	}
	if conf.MaxResubmissions < 0 {
		conf.MaxResubmissions = 0
	}
	return &Orchestrator{gateway: gw, pool: pool, clock: clk, metrics: m, conf: conf}
}

// Submission is one in-flight transaction. All mutable fields are owned
// by the event loop and guarded by the embedded mutex.
type Submission struct {
	sync.Mutex

	id     uuid.UUID
	intent builder.Intent
	sender lamtypes.Address
	signer Signer
	orch   *Orchestrator

	loop *statemachine.EventLoop[State, *Submission]
	// loopCtx outlives the caller's context: a submitted transaction is
	// polled to its terminal state even if the caller walks away.
	loopCtx context.Context

	seq         uint64
	seqReserved bool
	// buildInFlight holds the event loop open across a terminal
	// transition so a racing build result can still return its
	// reservation to the pool.
	buildInFlight bool
	signed        *builder.SignedTransaction
	hash          lamtypes.Bytes32

	submitAttempts int
	needsResync    bool
	startedAt      time.Time
	pollInterval   time.Duration
	cancelTimer    func()

	// verdict of the latest poll, computed in the Event_PollResult
	// handler so transition guards stay trivial.
	verdict pollVerdict
	pollTx  *lamapi.Transaction
	lastErr *lamapi.Error
	outcome *lamapi.Outcome
	done    chan struct{}
}

type pollVerdict int

const (
	verdictPending pollVerdict = iota
	verdictConfirmed
	verdictRejected
	verdictExpired
)

// Submit validates the intent and launches its lifecycle. Validation
// failures return synchronously and consume nothing.
func (o *Orchestrator) Submit(ctx context.Context, intent builder.Intent, sender lamtypes.Address, signer Signer) (*Submission, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if sender.IsZero() {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "sender address is required")
	}

	s := &Submission{
		id:           uuid.New(),
		intent:       intent,
		sender:       sender,
		signer:       signer,
		orch:         o,
		startedAt:    o.clock.Now(),
		pollInterval: o.conf.PollInterval,
		done:         make(chan struct{}),
	}
	s.loopCtx = log.WithLogField(context.WithoutCancel(ctx), "submission", s.id.String())

	s.loop = statemachine.NewEventLoop(statemachine.EventLoopConfig[State, *Submission]{
		InitialState: State_Building,
		Definitions:  submissionStates(),
		Entity:       s,
		Name:         "submission-" + s.id.String(),
	})

	o.inFlight.Add(1)
	o.metrics.SetInFlight(int(o.inFlight.Load()))

	go s.loop.Start(s.loopCtx)
	// The initial state's work is kicked off by an explicit event since
	// entry actions only run on transitions.
	s.loop.QueueEvent(s.loopCtx, &beginEvent{})
	return s, nil
}

// ID identifies this submission in logs and metrics.
func (s *Submission) ID() uuid.UUID {
	return s.id
}

// Done closes when the submission reaches a terminal state.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks for the terminal outcome. Context cancellation abandons
// the wait only; the submission keeps running in the background until
// its own terminal state so the sequence number is always released.
func (s *Submission) Wait(ctx context.Context) (*lamapi.Outcome, error) {
	select {
	case <-s.done:
		return s.Outcome(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outcome returns the terminal outcome, or nil before Done closes.
func (s *Submission) Outcome() *lamapi.Outcome {
	s.Lock()
	defer s.Unlock()
	return s.outcome
}

// Hash returns the transaction hash once the submission has been
// signed; the zero hash before that.
func (s *Submission) Hash() lamtypes.Bytes32 {
	s.Lock()
	defer s.Unlock()
	return s.hash
}

// State returns the current lifecycle state.
func (s *Submission) State() State {
	s.Lock()
	defer s.Unlock()
	return s.loop.CurrentState()
}

// Cancel requests cancellation. Before the transaction reaches the
// node this aborts the submission; afterwards it is advisory only, and
// the submission continues to its natural terminal state.
func (s *Submission) Cancel(ctx context.Context) {
	s.loop.QueueEvent(ctx, &cancelEvent{})
}

// finalize commits the terminal outcome: release the reservation, stop
// the timer and the loop, record metrics, wake waiters. Runs as the
// entry action of every terminal state, under the submission lock.
func (s *Submission) finalize(ctx context.Context, outcome *lamapi.Outcome) {
	if s.outcome != nil {
		return
	}
	s.outcome = outcome

	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
	if s.seqReserved {
		if err := s.orch.pool.Release(ctx, s.sender, s.seq); err != nil {
			// A resync may have already collected the number.
			log.L(ctx).Debugf("release of sequence %d skipped: %v", s.seq, err)
		}
		s.seqReserved = false
	}

	op := s.intent.Name()
	switch outcome.Status {
	case lamapi.StatusConfirmed:
		s.orch.metrics.IncConfirmed(op)
	case lamapi.StatusFailed:
		s.orch.metrics.IncFailed(op)
	case lamapi.StatusExpired:
		s.orch.metrics.IncExpired(op)
	}
	s.orch.metrics.ObserveConfirmationLatency(op, s.orch.clock.Now().Sub(s.startedAt))
	s.orch.inFlight.Add(-1)
	s.orch.metrics.SetInFlight(int(s.orch.inFlight.Load()))

	log.L(ctx).Infof("submission %s %s: %s", s.id, op, outcome)
	close(s.done)
	// A build that raced a cancellation still owes its result event;
	// the terminal state's handler stops the loop once it lands.
	if !s.buildInFlight {
		s.loop.StopAsync()
	}
}
