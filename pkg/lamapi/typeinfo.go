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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// TypeTag identifies a Move struct type such as a coin
// (e.g. "0x1::aptos_coin::AptosCoin"). It is used as a generic type
// argument on entry functions and in resource type strings.
type TypeTag struct {
	Address lamtypes.Address
	Module  string
	Name    string
}

// ParseTypeTag parses an "addr::module::name" type string.
func ParseTypeTag(s string) (TypeTag, error) {
	var tag TypeTag
	parts := strings.Split(s, "::")
	if len(parts) != 3 {
		return tag, fmt.Errorf("invalid type tag %q", s)
	}
	addr, err := lamtypes.ParseAddress(parts[0])
	if err != nil {
		return tag, fmt.Errorf("invalid type tag %q: %w", s, err)
	}
	if parts[1] == "" || parts[2] == "" {
		return tag, fmt.Errorf("invalid type tag %q", s)
	}
	return TypeTag{Address: addr, Module: parts[1], Name: parts[2]}, nil
}

// MustParseTypeTag parses a type string and panics on failure. Intended
// for well-known constants and tests.
func MustParseTypeTag(s string) TypeTag {
	tag, err := ParseTypeTag(s)
	if err != nil {
		panic(err)
	}
	return tag
}

// IsZero returns true for the zero tag, used to detect unset coin types.
func (t TypeTag) IsZero() bool {
	return t.Address.IsZero() && t.Module == "" && t.Name == ""
}

// String renders the short-literal form used in resource type strings.
func (t TypeTag) String() string {
	return fmt.Sprintf("%s::%s::%s", t.Address.ShortString(), t.Module, t.Name)
}

// TypeInfo is the on-chain 0x1::type_info::TypeInfo representation of a
// type, emitted inside DEX events. The node serializes the module and
// struct names as hex-encoded UTF-8.
type TypeInfo struct {
	AccountAddress lamtypes.Address
	ModuleName     string
	StructName     string
}

func (t TypeInfo) String() string {
	return fmt.Sprintf("%s::%s::%s", t.AccountAddress.ShortString(), t.ModuleName, t.StructName)
}

// Tag converts the event representation back into a TypeTag.
func (t TypeInfo) Tag() TypeTag {
	return TypeTag{Address: t.AccountAddress, Module: t.ModuleName, Name: t.StructName}
}

func (t TypeInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AccountAddress string `json:"account_address"`
		ModuleName     string `json:"module_name"`
		StructName     string `json:"struct_name"`
	}{
		AccountAddress: t.AccountAddress.ShortString(),
		ModuleName:     "0x" + hex.EncodeToString([]byte(t.ModuleName)),
		StructName:     "0x" + hex.EncodeToString([]byte(t.StructName)),
	})
}

func (t *TypeInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccountAddress string `json:"account_address"`
		ModuleName     string `json:"module_name"`
		StructName     string `json:"struct_name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	addr, err := lamtypes.ParseAddress(raw.AccountAddress)
	if err != nil {
		return err
	}
	moduleName, err := hexName(raw.ModuleName)
	if err != nil {
		return err
	}
	structName, err := hexName(raw.StructName)
	if err != nil {
		return err
	}
	*t = TypeInfo{AccountAddress: addr, ModuleName: moduleName, StructName: structName}
	return nil
}

func hexName(s string) (string, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid hex-encoded name %q: %w", s, err)
	}
	return string(b), nil
}
