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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// NodeIndex is the node's ledger info summary from GET /v1.
type NodeIndex struct {
	ChainID         uint8        `json:"chain_id"`
	LedgerVersion   lamtypes.U64 `json:"ledger_version"`
	LedgerTimestamp lamtypes.U64 `json:"ledger_timestamp"`
	BlockHeight     lamtypes.U64 `json:"block_height"`
	NodeRole        string       `json:"node_role"`
}

// AccountData is the response of GET /v1/accounts/{address}: the
// authoritative sequence number lives here.
type AccountData struct {
	SequenceNumber    lamtypes.U64      `json:"sequence_number"`
	AuthenticationKey lamtypes.HexBytes `json:"authentication_key"`
}

// MoveResource is one resource under an account, with its Move type
// string (possibly generic) and undecoded field data.
type MoveResource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TypeParams parses the generic type arguments out of the resource type
// string, e.g. "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>".
func (r *MoveResource) TypeParams() ([]TypeTag, error) {
	open := strings.Index(r.Type, "<")
	if open < 0 {
		return nil, nil
	}
	if !strings.HasSuffix(r.Type, ">") {
		return nil, fmt.Errorf("malformed resource type %q", r.Type)
	}
	inner := r.Type[open+1 : len(r.Type)-1]

	var tags []TypeTag
	depth, start := 0, 0
	for i := 0; i <= len(inner); i++ {
		if i == len(inner) || (inner[i] == ',' && depth == 0) {
			part := strings.TrimSpace(inner[start:i])
			if part == "" {
				return nil, fmt.Errorf("malformed resource type %q", r.Type)
			}
			// Nested generics keep only the outer tag shape.
			if nested := strings.Index(part, "<"); nested >= 0 {
				part = part[:nested]
			}
			tag, err := ParseTypeTag(part)
			if err != nil {
				return nil, err
			}
			tags = append(tags, tag)
			start = i + 1
			continue
		}
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
		}
	}
	return tags, nil
}

// RawEvent is the node's event envelope: a Move event with its type
// string and undecoded payload.
type RawEvent struct {
	Version        lamtypes.U64    `json:"version"`
	SequenceNumber lamtypes.U64    `json:"sequence_number"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
}

// TypeAddress returns the address component of the event's Move type,
// used to filter events down to the ones emitted by the DEX deployment.
func (e *RawEvent) TypeAddress() (lamtypes.Address, bool) {
	addr, _, found := strings.Cut(e.Type, "::")
	if !found {
		return lamtypes.Address{}, false
	}
	parsed, err := lamtypes.ParseAddress(addr)
	if err != nil {
		return lamtypes.Address{}, false
	}
	return parsed, true
}

// PendingTransaction is the node's acknowledgment of an accepted
// submission; the hash is the idempotency key for status polling.
type PendingTransaction struct {
	Hash                    lamtypes.Bytes32 `json:"hash"`
	Sender                  lamtypes.Address `json:"sender"`
	SequenceNumber          lamtypes.U64     `json:"sequence_number"`
	MaxGasAmount            lamtypes.U64     `json:"max_gas_amount"`
	GasUnitPrice            lamtypes.U64     `json:"gas_unit_price"`
	ExpirationTimestampSecs lamtypes.U64     `json:"expiration_timestamp_secs"`
}

// Transaction type discriminators used by GET /v1/transactions/by_hash.
const (
	TransactionTypePending = "pending_transaction"
	TransactionTypeUser    = "user_transaction"
)

// Transaction is a transaction record returned by the node. A pending
// record has no execution fields yet; a user transaction carries the
// execution result and emitted events.
type Transaction struct {
	Type                    string           `json:"type"`
	Hash                    lamtypes.Bytes32 `json:"hash"`
	Sender                  lamtypes.Address `json:"sender"`
	SequenceNumber          lamtypes.U64     `json:"sequence_number"`
	MaxGasAmount            lamtypes.U64     `json:"max_gas_amount"`
	GasUnitPrice            lamtypes.U64     `json:"gas_unit_price"`
	GasUsed                 lamtypes.U64     `json:"gas_used"`
	ExpirationTimestampSecs lamtypes.U64     `json:"expiration_timestamp_secs"`
	Version                 lamtypes.U64     `json:"version"`
	Success                 *bool            `json:"success,omitempty"`
	VMStatus                string           `json:"vm_status"`
	Timestamp               lamtypes.U64     `json:"timestamp"`
	Events                  []RawEvent       `json:"events"`
	Payload                 json.RawMessage  `json:"payload,omitempty"`
}

// Pending returns true while the transaction is accepted but not yet
// executed.
func (t *Transaction) Pending() bool {
	return t.Type == TransactionTypePending
}

// Executed returns true once the node reports an execution result.
func (t *Transaction) Executed() bool {
	return t.Type == TransactionTypeUser && t.Success != nil
}

// Succeeded returns true for an executed transaction whose VM status is
// success.
func (t *Transaction) Succeeded() bool {
	return t.Executed() && *t.Success
}

// Balance is the 0x1::coin::CoinStore balance field shape.
type Balance struct {
	Coin struct {
		Value lamtypes.U64 `json:"value"`
	} `json:"coin"`
}

// Node API error codes this client distinguishes.
const (
	ErrorCodeSequenceNumberTooOld     = "sequence_number_too_old"
	ErrorCodeInvalidTransactionUpdate = "invalid_transaction_update"
	ErrorCodeVMError                  = "vm_error"
	ErrorCodeTransactionNotFound      = "transaction_not_found"
	ErrorCodeResourceNotFound         = "resource_not_found"
	ErrorCodeAccountNotFound          = "account_not_found"
)

// AptosError is the node REST API error envelope.
type AptosError struct {
	Message     string  `json:"message"`
	ErrorCode   string  `json:"error_code"`
	VMErrorCode *uint64 `json:"vm_error_code,omitempty"`
}

func (e *AptosError) Error() string {
	if e.ErrorCode == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}
