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

package lamtypes

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an on-chain account address.
const AddressLength = 32

// Address is a 32 byte on-chain account address.
//
// The node API accepts and emits addresses as hex strings, both in the
// long zero-padded form and the short literal form (e.g. "0x1").
type Address [AddressLength]byte

// ParseAddress parses a hex address string, with or without the "0x"
// prefix, accepting short literals by left-padding with zeros.
func ParseAddress(s string) (Address, error) {
	var a Address
	str := strings.TrimPrefix(s, "0x")
	if str == "" {
		return a, fmt.Errorf("invalid address %q", s)
	}
	if len(str) > AddressLength*2 {
		return a, fmt.Errorf("address %q longer than %d bytes", s, AddressLength)
	}
	if len(str)%2 == 1 {
		str = "0" + str
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[AddressLength-len(b):], b)
	return a, nil
}

// MustParseAddress parses a hex address string and panics on failure.
// Intended for well-known constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex returns the long-form zero-padded hex string with "0x" prefix.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ShortString returns the short literal form with leading zeros trimmed,
// as used for Move resource type strings (e.g. "0x1::coin::CoinStore<...>").
func (a Address) ShortString() string {
	trimmed := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}

func (a Address) String() string {
	return a.Hex()
}

// IsZero returns true for the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
