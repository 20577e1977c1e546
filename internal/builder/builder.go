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

// Package builder turns logical trading intents into unsigned
// transactions. Build is pure: the same intent, sender, sequence number
// and metadata always produce byte-identical output, so a resubmission
// after resync differs only in the fields that must differ.
package builder

import (
	"crypto/ed25519"

	"golang.org/x/crypto/sha3"

	"github.com/laminar-markets/laminar-client-go/internal/bcs"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// DefaultMaxGasAmount matches the deployed contract's worst-case order
// matching cost.
const DefaultMaxGasAmount = 1_000_000

// Metadata is the chain context stamped onto every transaction.
type Metadata struct {
	ChainID                 uint8
	LaminarAddress          lamtypes.Address
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
}

// RawTransaction is the unsigned transaction in the chain's canonical
// field order.
type RawTransaction struct {
	Sender                  lamtypes.Address
	SequenceNumber          uint64
	Payload                 *EntryFunction
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
	ChainID                 uint8
}

// Build assembles the unsigned transaction for an intent. Validation
// failures surface before the caller reserves a sequence number.
func Build(intent Intent, sender lamtypes.Address, sequenceNumber uint64, meta Metadata) (*RawTransaction, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if sender.IsZero() {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "sender address is required")
	}
	if meta.LaminarAddress.IsZero() {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "laminar deployment address is required")
	}
	if meta.ExpirationTimestampSecs == 0 {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "expiration timestamp is required")
	}
	maxGas := meta.MaxGasAmount
	if maxGas == 0 {
		maxGas = DefaultMaxGasAmount
	}
	return &RawTransaction{
		Sender:                  sender,
		SequenceNumber:          sequenceNumber,
		Payload:                 intent.payload(meta.LaminarAddress),
		MaxGasAmount:            maxGas,
		GasUnitPrice:            meta.GasUnitPrice,
		ExpirationTimestampSecs: meta.ExpirationTimestampSecs,
		ChainID:                 meta.ChainID,
	}, nil
}

// Encode returns the BCS encoding of the raw transaction.
func (tx *RawTransaction) Encode() []byte {
	enc := bcs.NewEncoder().
		FixedBytes(tx.Sender.Bytes()).
		U64(tx.SequenceNumber)
	tx.Payload.encode(enc)
	enc.U64(tx.MaxGasAmount).
		U64(tx.GasUnitPrice).
		U64(tx.ExpirationTimestampSecs).
		U8(tx.ChainID)
	return enc.Bytes()
}

// Domain separation prefixes: the chain hashes a salt string before the
// transaction bytes so signatures over different structures can never
// collide.
var (
	rawTransactionSalt = sha3.Sum256([]byte("APTOS::RawTransaction"))
	transactionSalt    = sha3.Sum256([]byte("APTOS::Transaction"))
)

// SigningMessage returns the exact bytes the sender signs.
func (tx *RawTransaction) SigningMessage() []byte {
	raw := tx.Encode()
	msg := make([]byte, 0, len(rawTransactionSalt)+len(raw))
	msg = append(msg, rawTransactionSalt[:]...)
	msg = append(msg, raw...)
	return msg
}

// SignedTransaction pairs a raw transaction with its ed25519
// authenticator.
type SignedTransaction struct {
	Raw       *RawTransaction
	PublicKey []byte
	Signature []byte
}

// Sign produces the signed transaction using the ed25519 private key.
func (tx *RawTransaction) Sign(priv ed25519.PrivateKey) *SignedTransaction {
	return &SignedTransaction{
		Raw:       tx,
		PublicKey: priv.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(priv, tx.SigningMessage()),
	}
}

// Attach builds the signed transaction from an externally produced
// signature, for signer implementations that do not expose key bytes.
func (tx *RawTransaction) Attach(publicKey, signature []byte) *SignedTransaction {
	return &SignedTransaction{Raw: tx, PublicKey: publicKey, Signature: signature}
}

// Encode returns the BCS encoding submitted to the node.
func (st *SignedTransaction) Encode() []byte {
	enc := bcs.NewEncoder()
	enc.FixedBytes(st.Raw.Encode())
	enc.Uleb128(authenticatorVariantEd25519).
		VarBytes(st.PublicKey).
		VarBytes(st.Signature)
	return enc.Bytes()
}

// Hash computes the transaction hash the node will report for this
// submission, the idempotency key for status polling. The chain hashes
// the user-transaction enum encoding under the transaction salt.
func (st *SignedTransaction) Hash() lamtypes.Bytes32 {
	enc := bcs.NewEncoder()
	enc.FixedBytes(transactionSalt[:])
	enc.U8(0) // Transaction::UserTransaction variant
	enc.FixedBytes(st.Encode())
	return lamtypes.Bytes32(sha3.Sum256(enc.Bytes()))
}
