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

package builder

import (
	"github.com/laminar-markets/laminar-client-go/internal/bcs"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// BCS enum variants used in transaction encoding. The payload enum also
// has script variants this client never produces.
const (
	payloadVariantEntryFunction = 2
	typeTagVariantStruct        = 7
	authenticatorVariantEd25519 = 0
)

// ModuleID addresses a Move module: publisher account plus module name.
type ModuleID struct {
	Address lamtypes.Address
	Name    string
}

func (m ModuleID) encode(enc *bcs.Encoder) {
	enc.FixedBytes(m.Address.Bytes()).String(m.Name)
}

// EntryFunction is the only transaction payload this client produces: a
// call to a public entry function with type arguments and BCS-encoded
// value arguments.
type EntryFunction struct {
	Module   ModuleID
	Function string
	TypeArgs []lamapi.TypeTag
	Args     [][]byte
}

func (f *EntryFunction) encode(enc *bcs.Encoder) {
	enc.Uleb128(payloadVariantEntryFunction)
	f.Module.encode(enc)
	enc.String(f.Function)
	enc.Uleb128(uint64(len(f.TypeArgs)))
	for _, tag := range f.TypeArgs {
		encodeTypeTag(enc, tag)
	}
	enc.Uleb128(uint64(len(f.Args)))
	for _, arg := range f.Args {
		enc.VarBytes(arg)
	}
}

// encodeTypeTag writes a struct type tag. Generic struct tags never
// appear as coin types on this DEX so nested type arguments encode
// empty.
func encodeTypeTag(enc *bcs.Encoder, tag lamapi.TypeTag) {
	enc.Uleb128(typeTagVariantStruct).
		FixedBytes(tag.Address.Bytes()).
		String(tag.Module).
		String(tag.Name).
		Uleb128(0)
}
