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

// Package sequencer hands out per-account transaction sequence numbers.
// Each account gets a strictly monotonic counter: N concurrent
// reservations receive N distinct consecutive numbers, and a number is
// never reused once handed out, whatever the fate of its transaction.
// Counters for different accounts never contend.
package sequencer

import (
	"context"
	"sync"

	"github.com/laminar-markets/laminar-client-go/internal/log"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// ChainReader is the slice of the gateway the sequencer needs to learn
// the authoritative on-chain sequence number.
type ChainReader interface {
	GetAccount(ctx context.Context, addr lamtypes.Address) (*lamapi.AccountData, error)
}

type Sequencer struct {
	mux      sync.Mutex
	accounts map[lamtypes.Address]*accountCounter
	chain    ChainReader
}

// accountCounter tracks one account. Its lock is never held across
// network I/O; resync fetches first and applies under the lock after.
type accountCounter struct {
	mux      sync.Mutex
	synced   bool
	next     uint64
	reserved map[uint64]bool
}

func New(chain ChainReader) *Sequencer {
	return &Sequencer{
		accounts: make(map[lamtypes.Address]*accountCounter),
		chain:    chain,
	}
}

func (s *Sequencer) counter(addr lamtypes.Address) *accountCounter {
	s.mux.Lock()
	defer s.mux.Unlock()
	counter, ok := s.accounts[addr]
	if !ok {
		counter = &accountCounter{reserved: make(map[uint64]bool)}
		s.accounts[addr] = counter
	}
	return counter
}

// Reserve hands out the account's next sequence number. The first
// reservation for an account syncs from the chain.
func (s *Sequencer) Reserve(ctx context.Context, addr lamtypes.Address) (uint64, error) {
	counter := s.counter(addr)

	counter.mux.Lock()
	if counter.synced {
		seq := counter.next
		counter.next++
		counter.reserved[seq] = true
		counter.mux.Unlock()
		return seq, nil
	}
	counter.mux.Unlock()

	if err := s.Resync(ctx, addr); err != nil {
		return 0, err
	}

	counter.mux.Lock()
	defer counter.mux.Unlock()
	seq := counter.next
	counter.next++
	counter.reserved[seq] = true
	return seq, nil
}

// Release marks a reservation as settled. Every reservation is released
// exactly once, whatever its outcome; the number stays burned because
// the counter never moves backwards. Releasing an unknown reservation
// is an error so double releases surface in tests.
func (s *Sequencer) Release(ctx context.Context, addr lamtypes.Address, seq uint64) error {
	counter := s.counter(addr)
	counter.mux.Lock()
	defer counter.mux.Unlock()
	if !counter.reserved[seq] {
		return lamapi.NewError(lamapi.ErrorKindValidation, "sequence number %d for %s was not reserved", seq, addr.ShortString())
	}
	delete(counter.reserved, seq)
	log.L(ctx).Tracef("released sequence %d for %s, %d in flight", seq, addr.ShortString(), len(counter.reserved))
	return nil
}

// Resync fetches the authoritative sequence number and reconciles the
// local counter: the counter never moves below an in-flight
// reservation, and reservations the chain has already consumed are
// dropped so their releases become no-ops detected by callers.
func (s *Sequencer) Resync(ctx context.Context, addr lamtypes.Address) error {
	account, err := s.chain.GetAccount(ctx, addr)
	if err != nil {
		return err
	}
	chainSeq := account.SequenceNumber.Uint64()

	counter := s.counter(addr)
	counter.mux.Lock()
	defer counter.mux.Unlock()

	if chainSeq > counter.next {
		counter.next = chainSeq
	}
	for seq := range counter.reserved {
		if seq < chainSeq {
			delete(counter.reserved, seq)
		}
	}
	counter.synced = true
	log.L(ctx).Debugf("resynced %s: chain=%d next=%d inflight=%d",
		addr.ShortString(), chainSeq, counter.next, len(counter.reserved))
	return nil
}

// InFlight returns the number of outstanding reservations for an
// account.
func (s *Sequencer) InFlight(addr lamtypes.Address) int {
	counter := s.counter(addr)
	counter.mux.Lock()
	defer counter.mux.Unlock()
	return len(counter.reserved)
}

// Next returns the number the next reservation would receive. Test and
// diagnostics helper; the value is stale the moment the lock drops.
func (s *Sequencer) Next(addr lamtypes.Address) uint64 {
	counter := s.counter(addr)
	counter.mux.Lock()
	defer counter.mux.Unlock()
	return counter.next
}
