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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressShortLiteral(t *testing.T) {
	a, err := ParseAddress("0x1")
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", a.Hex())
	assert.Equal(t, "0x1", a.ShortString())
}

func TestParseAddressLongForm(t *testing.T) {
	long := "0x88fbd33f54e1126269769780feb24480428179f552e2313fbe571b72e62a1ca1"
	a, err := ParseAddress(long)
	require.NoError(t, err)
	assert.Equal(t, long, a.Hex())
	assert.Equal(t, long, a.ShortString())
}

func TestParseAddressOddLength(t *testing.T) {
	a, err := ParseAddress("0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", a.ShortString())
}

func TestParseAddressInvalid(t *testing.T) {
	_, err := ParseAddress("")
	assert.Error(t, err)
	_, err = ParseAddress("0x")
	assert.Error(t, err)
	_, err = ParseAddress("0xzz")
	assert.Error(t, err)
	_, err = ParseAddress("0x" + string(make([]byte, 70)))
	assert.Error(t, err)
}

func TestAddressJSONRoundTrip(t *testing.T) {
	a := MustParseAddress("0x42")
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var back Address
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestZeroAddress(t *testing.T) {
	var a Address
	assert.True(t, a.IsZero())
	assert.Equal(t, "0x0", a.ShortString())
	assert.False(t, MustParseAddress("0x1").IsZero())
}

func TestU64FromString(t *testing.T) {
	var u U64
	require.NoError(t, json.Unmarshal([]byte(`"18446744073709551615"`), &u))
	assert.Equal(t, uint64(18446744073709551615), u.Uint64())
}

func TestU64FromNumber(t *testing.T) {
	var u U64
	require.NoError(t, json.Unmarshal([]byte(`42`), &u))
	assert.Equal(t, uint64(42), u.Uint64())
}

func TestU64Invalid(t *testing.T) {
	var u U64
	assert.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &u))
	assert.Error(t, json.Unmarshal([]byte(`true`), &u))
	assert.Error(t, json.Unmarshal([]byte(`-1`), &u))
}

func TestU64Marshal(t *testing.T) {
	data, err := json.Marshal(U64(7))
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(data))
}

func TestHexBytesRoundTrip(t *testing.T) {
	h := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"0xdeadbeef"`, string(data))

	var back HexBytes
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, h, back)
}

func TestBytes32Parse(t *testing.T) {
	s := "0x32af05b8c62ee5bfe9b4a596b4db2bcb5a5bd9bba2fa2c7ad8b322e7dc1b0b0e"
	b, err := ParseBytes32(s)
	require.NoError(t, err)
	assert.Equal(t, s, b.String())

	_, err = ParseBytes32("0x1234")
	assert.Error(t, err)
}
