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

package lamapi

import (
	"fmt"

	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// OutcomeStatus is the terminal status of one submission.
type OutcomeStatus int

const (
	// StatusConfirmed: the chain executed the transaction successfully.
	StatusConfirmed OutcomeStatus = iota
	// StatusFailed: the submission reached a definitive failure, either
	// before the chain saw it or because the contract rejected it.
	StatusFailed
	// StatusExpired: the expiration timestamp passed with no chain record.
	// The outcome is indeterminate; the caller must query account or
	// order state before assuming the action did not happen.
	StatusExpired
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	case StatusExpired:
		return "expired"
	}
	return fmt.Sprintf("outcomeStatus(%d)", int(s))
}

// LaminarTransaction is a confirmed transaction with the DEX events it
// emitted under the Laminar deployment address.
type LaminarTransaction struct {
	Info      Transaction
	Events    []LaminarEvent
	Timestamp lamtypes.U64
}

// Outcome is the terminal result of one submission.
type Outcome struct {
	Status OutcomeStatus
	// Transaction is set when Status is StatusConfirmed.
	Transaction *LaminarTransaction
	// FailureReason carries the chain's failure reason verbatim when the
	// contract rejected the transaction.
	FailureReason string
	// Err is the structured error for failed or expired submissions.
	Err *Error
}

func (o *Outcome) Confirmed() bool { return o.Status == StatusConfirmed }
func (o *Outcome) Failed() bool    { return o.Status == StatusFailed }
func (o *Outcome) Expired() bool   { return o.Status == StatusExpired }

func (o *Outcome) String() string {
	switch o.Status {
	case StatusConfirmed:
		if o.Transaction != nil {
			return fmt.Sprintf("confirmed (tx %s)", o.Transaction.Info.Hash)
		}
		return "confirmed"
	case StatusFailed:
		if o.FailureReason != "" {
			return fmt.Sprintf("failed: %s", o.FailureReason)
		}
		if o.Err != nil {
			return fmt.Sprintf("failed: %s", o.Err)
		}
		return "failed"
	case StatusExpired:
		return "expired (indeterminate)"
	}
	return o.Status.String()
}
