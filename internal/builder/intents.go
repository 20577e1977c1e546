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

// Move modules the client calls into.
const (
	bookModule        = "book"
	vaultModule       = "vault"
	managedCoinModule = "managed_coin"
)

// Intent is a logical trading action before it becomes a transaction.
// Validate runs before any sequence number is reserved or any network
// call is made, so a malformed intent costs nothing.
type Intent interface {
	// Name is the stable identifier used in logs and metrics.
	Name() string
	Validate() error
	// payload builds the entry function against the DEX deployment
	// address. Only called after Validate has passed.
	payload(laminar lamtypes.Address) *EntryFunction
}

// Market identifies one order book: its coin pair and owning account.
type Market struct {
	Base      lamapi.TypeTag
	Quote     lamapi.TypeTag
	BookOwner lamtypes.Address
}

func (m Market) validate() error {
	if m.Base.IsZero() || m.Quote.IsZero() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "market base and quote coin types are required")
	}
	if m.BookOwner.IsZero() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "market book owner address is required")
	}
	return nil
}

// RegisterUser registers the sender to trade on the DEX.
type RegisterUser struct{}

func (RegisterUser) Name() string { return "register_user" }

func (RegisterUser) Validate() error { return nil }

func (RegisterUser) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: bookModule},
		Function: "register_user",
	}
}

// RegisterForCoin registers the sender's account to hold a coin type,
// via the framework's managed_coin module.
type RegisterForCoin struct {
	Coin lamapi.TypeTag
}

func (RegisterForCoin) Name() string { return "register_for_coin" }

func (i RegisterForCoin) Validate() error {
	if i.Coin.IsZero() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "coin type is required")
	}
	return nil
}

func (i RegisterForCoin) payload(lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: lamtypes.MustParseAddress("0x1"), Name: managedCoinModule},
		Function: "register",
		TypeArgs: []lamapi.TypeTag{i.Coin},
	}
}

// CreateOrderBook creates a new market owned by the sender.
type CreateOrderBook struct {
	Base          lamapi.TypeTag
	Quote         lamapi.TypeTag
	PriceDecimals uint8
	SizeDecimals  uint8
	MinSizeAmount uint64
}

func (CreateOrderBook) Name() string { return "create_orderbook" }

func (i CreateOrderBook) Validate() error {
	if i.Base.IsZero() || i.Quote.IsZero() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "base and quote coin types are required")
	}
	if i.MinSizeAmount == 0 {
		return lamapi.NewError(lamapi.ErrorKindValidation, "minimum size amount must be positive")
	}
	return nil
}

func (i CreateOrderBook) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: bookModule},
		Function: "create_orderbook",
		TypeArgs: []lamapi.TypeTag{i.Base, i.Quote},
		Args: [][]byte{
			bcs.EncodeU8(i.PriceDecimals),
			bcs.EncodeU8(i.SizeDecimals),
			bcs.EncodeU64(i.MinSizeAmount),
		},
	}
}

// PlaceLimitOrder rests (or crosses) a priced order on a book.
type PlaceLimitOrder struct {
	Market      Market
	Side        lamapi.Side
	Price       uint64
	Size        uint64
	TimeInForce lamapi.TimeInForce
	PostOnly    bool
}

func (PlaceLimitOrder) Name() string { return "place_limit_order" }

func (i PlaceLimitOrder) Validate() error {
	if err := i.Market.validate(); err != nil {
		return err
	}
	if !i.Side.Valid() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "invalid side %d", i.Side)
	}
	if i.Price == 0 {
		return lamapi.NewError(lamapi.ErrorKindValidation, "limit order price must be positive")
	}
	if i.Size == 0 {
		return lamapi.NewError(lamapi.ErrorKindValidation, "order size must be positive")
	}
	if !i.TimeInForce.Valid() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "invalid time in force %d", i.TimeInForce)
	}
	return nil
}

func (i PlaceLimitOrder) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: bookModule},
		Function: "place_limit_order",
		TypeArgs: []lamapi.TypeTag{i.Market.Base, i.Market.Quote},
		Args: [][]byte{
			bcs.EncodeFixedBytes(i.Market.BookOwner.Bytes()),
			bcs.EncodeU8(uint8(i.Side)),
			bcs.EncodeU64(i.Price),
			bcs.EncodeU64(i.Size),
			bcs.EncodeU8(uint8(i.TimeInForce)),
			bcs.EncodeBool(i.PostOnly),
		},
	}
}

// PlaceMarketOrder crosses the book for immediate execution at the best
// available prices.
type PlaceMarketOrder struct {
	Market Market
	Side   lamapi.Side
	Size   uint64
}

func (PlaceMarketOrder) Name() string { return "place_market_order" }

func (i PlaceMarketOrder) Validate() error {
	if err := i.Market.validate(); err != nil {
		return err
	}
	if !i.Side.Valid() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "invalid side %d", i.Side)
	}
	if i.Size == 0 {
		return lamapi.NewError(lamapi.ErrorKindValidation, "order size must be positive")
	}
	return nil
}

func (i PlaceMarketOrder) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: bookModule},
		Function: "place_market_order",
		TypeArgs: []lamapi.TypeTag{i.Market.Base, i.Market.Quote},
		Args: [][]byte{
			bcs.EncodeFixedBytes(i.Market.BookOwner.Bytes()),
			bcs.EncodeU8(uint8(i.Side)),
			bcs.EncodeU64(i.Size),
		},
	}
}

// AmendOrder changes the price and/or size of a resting order. Pass the
// current value for whichever field is unchanged.
type AmendOrder struct {
	Market  Market
	OrderID lamapi.OrderID
	Side    lamapi.Side
	Price   uint64
	Size    uint64
}

func (AmendOrder) Name() string { return "amend_order" }

func (i AmendOrder) Validate() error {
	if err := i.Market.validate(); err != nil {
		return err
	}
	if !i.Side.Valid() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "invalid side %d", i.Side)
	}
	if i.Price == 0 || i.Size == 0 {
		return lamapi.NewError(lamapi.ErrorKindValidation, "amended price and size must be positive")
	}
	return nil
}

func (i AmendOrder) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: bookModule},
		Function: "amend_order",
		TypeArgs: []lamapi.TypeTag{i.Market.Base, i.Market.Quote},
		Args: [][]byte{
			bcs.EncodeFixedBytes(i.Market.BookOwner.Bytes()),
			bcs.EncodeU64(i.OrderID.CreationNum.Uint64()),
			bcs.EncodeU8(uint8(i.Side)),
			bcs.EncodeU64(i.Price),
			bcs.EncodeU64(i.Size),
		},
	}
}

// CancelOrder removes a resting order from a book.
type CancelOrder struct {
	Market  Market
	OrderID lamapi.OrderID
	Side    lamapi.Side
}

func (CancelOrder) Name() string { return "cancel_order" }

func (i CancelOrder) Validate() error {
	if err := i.Market.validate(); err != nil {
		return err
	}
	if !i.Side.Valid() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "invalid side %d", i.Side)
	}
	return nil
}

func (i CancelOrder) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: bookModule},
		Function: "cancel_order",
		TypeArgs: []lamapi.TypeTag{i.Market.Base, i.Market.Quote},
		Args: [][]byte{
			bcs.EncodeFixedBytes(i.Market.BookOwner.Bytes()),
			bcs.EncodeU64(i.OrderID.CreationNum.Uint64()),
			bcs.EncodeU8(uint8(i.Side)),
		},
	}
}

// Deposit moves collateral from the sender's coin store into the DEX
// vault.
type Deposit struct {
	Coin   lamapi.TypeTag
	Amount uint64
}

func (Deposit) Name() string { return "deposit" }

func (i Deposit) Validate() error {
	if i.Coin.IsZero() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "coin type is required")
	}
	if i.Amount == 0 {
		return lamapi.NewError(lamapi.ErrorKindValidation, "deposit amount must be positive")
	}
	return nil
}

func (i Deposit) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: vaultModule},
		Function: "deposit",
		TypeArgs: []lamapi.TypeTag{i.Coin},
		Args:     [][]byte{bcs.EncodeU64(i.Amount)},
	}
}

// Withdraw moves collateral from the DEX vault back to the sender's
// coin store.
type Withdraw struct {
	Coin   lamapi.TypeTag
	Amount uint64
}

func (Withdraw) Name() string { return "withdraw" }

func (i Withdraw) Validate() error {
	if i.Coin.IsZero() {
		return lamapi.NewError(lamapi.ErrorKindValidation, "coin type is required")
	}
	if i.Amount == 0 {
		return lamapi.NewError(lamapi.ErrorKindValidation, "withdraw amount must be positive")
	}
	return nil
}

func (i Withdraw) payload(laminar lamtypes.Address) *EntryFunction {
	return &EntryFunction{
		Module:   ModuleID{Address: laminar, Name: vaultModule},
		Function: "withdraw",
		TypeArgs: []lamapi.TypeTag{i.Coin},
		Args:     [][]byte{bcs.EncodeU64(i.Amount)},
	}
}
