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

// HexBytes is a byte slice that marshals to/from a "0x" prefixed hex string,
// the convention used by the node REST API for binary payloads.
type HexBytes []byte

// ParseHexBytes parses a hex string with or without the "0x" prefix.
func ParseHexBytes(s string) (HexBytes, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	return b, nil
}

func (h HexBytes) String() string {
	return "0x" + hex.EncodeToString(h)
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := ParseHexBytes(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// Bytes32 is a fixed 32 byte value, used for transaction hashes.
type Bytes32 [32]byte

// ParseBytes32 parses a 32 byte hex string with or without the "0x" prefix.
func ParseBytes32(s string) (Bytes32, error) {
	var b32 Bytes32
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return b32, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	if len(b) != 32 {
		return b32, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(b32[:], b)
	return b32, nil
}

func (b Bytes32) String() string {
	return "0x" + hex.EncodeToString(b[:])
}

// IsZero returns true for the all-zero value.
func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

func (b Bytes32) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Bytes32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseBytes32(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
