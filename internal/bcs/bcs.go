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

// Package bcs implements the subset of Binary Canonical Serialization
// needed to encode transactions and entry function arguments for the
// chain. BCS is a deterministic format: a value has exactly one encoding,
// which is what makes transaction hashing and idempotent rebuild
// diagnostics possible.
package bcs

import (
	"encoding/binary"
)

// Encoder accumulates a BCS byte stream. The zero value is ready to use.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded stream.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Bool(v bool) *Encoder {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
	return e
}

func (e *Encoder) U8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

func (e *Encoder) U16(v uint16) *Encoder {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
	return e
}

func (e *Encoder) U32(v uint32) *Encoder {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) U64(v uint64) *Encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

// Uleb128 appends a ULEB128 variable-length unsigned integer, used by BCS
// for sequence lengths and enum variant indexes.
func (e *Encoder) Uleb128(v uint64) *Encoder {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v&0x7f)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
	return e
}

// FixedBytes appends raw bytes with no length prefix (fixed-size fields
// such as addresses and signatures of known length).
func (e *Encoder) FixedBytes(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// VarBytes appends a length-prefixed byte vector.
func (e *Encoder) VarBytes(b []byte) *Encoder {
	e.Uleb128(uint64(len(b)))
	e.buf = append(e.buf, b...)
	return e
}

// String appends a length-prefixed UTF-8 string.
func (e *Encoder) String(s string) *Encoder {
	return e.VarBytes([]byte(s))
}

// EncodeU64 returns the standalone BCS encoding of a u64 value, the form
// used for individual entry function arguments.
func EncodeU64(v uint64) []byte {
	return NewEncoder().U64(v).Bytes()
}

// EncodeU8 returns the standalone BCS encoding of a u8 value.
func EncodeU8(v uint8) []byte {
	return []byte{v}
}

// EncodeBool returns the standalone BCS encoding of a bool value.
func EncodeBool(v bool) []byte {
	return NewEncoder().Bool(v).Bytes()
}

// EncodeFixedBytes returns a copy of b; fixed-size values such as
// addresses encode with no length prefix.
func EncodeFixedBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
