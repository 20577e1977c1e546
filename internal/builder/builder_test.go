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
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

var (
	testLaminar = lamtypes.MustParseAddress("0xcafe")
	testSender  = lamtypes.MustParseAddress("0xfeed")
	testMarket  = Market{
		Base:      lamapi.MustParseTypeTag("0x1::aptos_coin::AptosCoin"),
		Quote:     lamapi.MustParseTypeTag("0xcafe::usd::USD"),
		BookOwner: lamtypes.MustParseAddress("0xb00c"),
	}
)

func testMeta() Metadata {
	return Metadata{
		ChainID:                 38,
		LaminarAddress:          testLaminar,
		GasUnitPrice:            100,
		ExpirationTimestampSecs: 1700000600,
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	intent := PlaceLimitOrder{
		Market:      testMarket,
		Side:        lamapi.Bid,
		Price:       10050,
		Size:        2500,
		TimeInForce: lamapi.GoodTillCanceled,
	}

	tx1, err := Build(intent, testSender, 7, testMeta())
	require.NoError(t, err)
	tx2, err := Build(intent, testSender, 7, testMeta())
	require.NoError(t, err)

	assert.Equal(t, tx1.Encode(), tx2.Encode())
	assert.Equal(t, tx1.SigningMessage(), tx2.SigningMessage())
}

func TestBuildStampsMetadata(t *testing.T) {
	tx, err := Build(RegisterUser{}, testSender, 3, testMeta())
	require.NoError(t, err)

	assert.Equal(t, testSender, tx.Sender)
	assert.Equal(t, uint64(3), tx.SequenceNumber)
	assert.Equal(t, uint64(DefaultMaxGasAmount), tx.MaxGasAmount)
	assert.Equal(t, uint64(100), tx.GasUnitPrice)
	assert.Equal(t, uint64(1700000600), tx.ExpirationTimestampSecs)
	assert.Equal(t, uint8(38), tx.ChainID)
	assert.Equal(t, "register_user", tx.Payload.Function)
	assert.Equal(t, testLaminar, tx.Payload.Module.Address)
}

func TestRawTransactionEncoding(t *testing.T) {
	tx, err := Build(RegisterUser{}, testSender, 5, testMeta())
	require.NoError(t, err)
	encoded := tx.Encode()

	// sender (32) then little-endian sequence number.
	assert.Equal(t, testSender.Bytes(), encoded[:32])
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(encoded[32:40]))
	// entry function payload variant.
	assert.Equal(t, byte(2), encoded[40])
	// trailing chain id.
	assert.Equal(t, byte(38), encoded[len(encoded)-1])
}

func TestSigningMessageSaltPrefix(t *testing.T) {
	tx, err := Build(RegisterUser{}, testSender, 0, testMeta())
	require.NoError(t, err)

	msg := tx.SigningMessage()
	assert.Equal(t, rawTransactionSalt[:], msg[:32])
	assert.Equal(t, tx.Encode(), msg[32:])
}

func TestSignAndHash(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx, err := Build(Deposit{Coin: testMarket.Base, Amount: 1000}, testSender, 9, testMeta())
	require.NoError(t, err)

	signed := tx.Sign(priv)
	assert.Equal(t, []byte(pub), signed.PublicKey)
	assert.True(t, ed25519.Verify(pub, tx.SigningMessage(), signed.Signature))

	// Authenticator trails the raw transaction: variant, pubkey, signature.
	encoded := signed.Encode()
	raw := tx.Encode()
	assert.Equal(t, raw, encoded[:len(raw)])
	assert.Equal(t, byte(authenticatorVariantEd25519), encoded[len(raw)])

	hash := signed.Hash()
	assert.False(t, hash.IsZero())
	assert.Equal(t, hash, signed.Hash())

	// A different sequence number yields a different hash.
	tx2, err := Build(Deposit{Coin: testMarket.Base, Amount: 1000}, testSender, 10, testMeta())
	require.NoError(t, err)
	assert.NotEqual(t, hash, tx2.Sign(priv).Hash())
}

func TestAttachMatchesSign(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx, err := Build(RegisterUser{}, testSender, 1, testMeta())
	require.NoError(t, err)

	signed := tx.Sign(priv)
	attached := tx.Attach(pub, signed.Signature)
	assert.Equal(t, signed.Encode(), attached.Encode())
	assert.Equal(t, signed.Hash(), attached.Hash())
}

func TestValidationFailures(t *testing.T) {
	meta := testMeta()

	cases := []struct {
		name   string
		intent Intent
	}{
		{"limit order zero price", PlaceLimitOrder{Market: testMarket, Side: lamapi.Bid, Price: 0, Size: 100}},
		{"limit order zero size", PlaceLimitOrder{Market: testMarket, Side: lamapi.Bid, Price: 100, Size: 0}},
		{"limit order bad side", PlaceLimitOrder{Market: testMarket, Side: lamapi.Side(9), Price: 100, Size: 100}},
		{"limit order bad tif", PlaceLimitOrder{Market: testMarket, Side: lamapi.Ask, Price: 100, Size: 100, TimeInForce: lamapi.TimeInForce(9)}},
		{"market order zero size", PlaceMarketOrder{Market: testMarket, Side: lamapi.Ask, Size: 0}},
		{"market order no book owner", PlaceMarketOrder{Market: Market{Base: testMarket.Base, Quote: testMarket.Quote}, Side: lamapi.Ask, Size: 10}},
		{"amend zero size", AmendOrder{Market: testMarket, Side: lamapi.Bid, Price: 100, Size: 0}},
		{"cancel bad side", CancelOrder{Market: testMarket, Side: lamapi.Side(4)}},
		{"deposit zero amount", Deposit{Coin: testMarket.Base, Amount: 0}},
		{"withdraw missing coin", Withdraw{Amount: 5}},
		{"register missing coin", RegisterForCoin{}},
		{"orderbook zero min size", CreateOrderBook{Base: testMarket.Base, Quote: testMarket.Quote, MinSizeAmount: 0}},
		{"orderbook missing quote", CreateOrderBook{Base: testMarket.Base, MinSizeAmount: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.intent, testSender, 0, meta)
			require.Error(t, err)
			assert.True(t, lamapi.IsValidation(err))
		})
	}
}

func TestBuildRejectsBadMetadata(t *testing.T) {
	meta := testMeta()
	meta.LaminarAddress = lamtypes.Address{}
	_, err := Build(RegisterUser{}, testSender, 0, meta)
	require.Error(t, err)
	assert.True(t, lamapi.IsValidation(err))

	meta = testMeta()
	meta.ExpirationTimestampSecs = 0
	_, err = Build(RegisterUser{}, testSender, 0, meta)
	require.Error(t, err)

	_, err = Build(RegisterUser{}, lamtypes.Address{}, 0, testMeta())
	require.Error(t, err)
}

func TestCancelOrderPayloadArgs(t *testing.T) {
	intent := CancelOrder{
		Market:  testMarket,
		OrderID: lamapi.OrderID{CreationNum: 77, Addr: testSender},
		Side:    lamapi.Ask,
	}
	tx, err := Build(intent, testSender, 0, testMeta())
	require.NoError(t, err)

	payload := tx.Payload
	assert.Equal(t, "cancel_order", payload.Function)
	require.Len(t, payload.TypeArgs, 2)
	require.Len(t, payload.Args, 3)
	assert.Equal(t, testMarket.BookOwner.Bytes(), payload.Args[0])
	assert.Equal(t, uint64(77), binary.LittleEndian.Uint64(payload.Args[1]))
	assert.Equal(t, []byte{uint8(lamapi.Ask)}, payload.Args[2])
}
