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
	"errors"
	"fmt"
)

// ErrorKind classifies every error the client surfaces, so callers can
// decide whether the logical intent is safe to retry.
type ErrorKind int

const (
	// ErrorKindValidation: the intent was malformed; detected before any
	// network call and never consumes a sequence number.
	ErrorKindValidation ErrorKind = iota
	// ErrorKindNetwork: transport failure after internal retries were
	// exhausted.
	ErrorKindNetwork
	// ErrorKindSequenceMismatch: the chain rejected the sequence number as
	// stale or already used.
	ErrorKindSequenceMismatch
	// ErrorKindChainExecution: the transaction executed and the contract
	// rejected it; retrying the identical transaction fails identically.
	ErrorKindChainExecution
	// ErrorKindExpiration: no confirmation before the transaction expired;
	// the outcome is indeterminate.
	ErrorKindExpiration
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindValidation:
		return "validation"
	case ErrorKindNetwork:
		return "network"
	case ErrorKindSequenceMismatch:
		return "sequence_mismatch"
	case ErrorKindChainExecution:
		return "chain_execution"
	case ErrorKindExpiration:
		return "expiration"
	}
	return fmt.Sprintf("errorKind(%d)", int(k))
}

// Error is the structured error surfaced across the client boundary:
// a kind for dispatch plus the underlying detail verbatim.
type Error struct {
	Kind ErrorKind
	// HTTPStatus is set for errors raised from a node response.
	HTTPStatus int
	// ErrorCode is the node API error code, when one was returned.
	ErrorCode string
	// VMStatus is the chain execution status for chain_execution errors.
	VMStatus string

	msg   string
	cause error
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind wrapping a cause.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%s): %s", e.msg, e.Kind, e.cause)
	}
	return fmt.Sprintf("%s (%s)", e.msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the ErrorKind from any error in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func isKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsValidation(err error) bool       { return isKind(err, ErrorKindValidation) }
func IsNetwork(err error) bool          { return isKind(err, ErrorKindNetwork) }
func IsSequenceMismatch(err error) bool { return isKind(err, ErrorKindSequenceMismatch) }
func IsChainExecution(err error) bool   { return isKind(err, ErrorKindChainExecution) }
func IsExpiration(err error) bool       { return isKind(err, ErrorKindExpiration) }
