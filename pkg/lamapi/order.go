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
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// OrderID identifies an order (or book) on chain: the guid creation
// number scoped to the creating account.
type OrderID struct {
	CreationNum lamtypes.U64     `json:"creation_num"`
	Addr        lamtypes.Address `json:"addr"`
}

// ParseOrderID parses the "addr:creationNum" form produced by String.
func ParseOrderID(s string) (OrderID, error) {
	var id OrderID
	addrStr, numStr, found := strings.Cut(s, ":")
	if !found {
		return id, fmt.Errorf("invalid order id %q", s)
	}
	addr, err := lamtypes.ParseAddress(addrStr)
	if err != nil {
		return id, fmt.Errorf("invalid order id %q: %w", s, err)
	}
	var num lamtypes.U64
	if err := num.UnmarshalJSON([]byte(`"` + numStr + `"`)); err != nil {
		return id, fmt.Errorf("invalid order id %q: %w", s, err)
	}
	return OrderID{CreationNum: num, Addr: addr}, nil
}

func (id OrderID) String() string {
	return fmt.Sprintf("%s:%s", id.Addr.ShortString(), id.CreationNum)
}

func (id OrderID) Equal(other OrderID) bool {
	return id.CreationNum == other.CreationNum && id.Addr == other.Addr
}

// Instrument describes the fixed-point scaling of a book: prices and
// sizes are u64 integers scaled by the configured decimals.
type Instrument struct {
	Owner         lamtypes.Address `json:"owner"`
	PriceDecimals uint8            `json:"price_decimals"`
	SizeDecimals  uint8            `json:"size_decimals"`
	MinSizeAmount lamtypes.U64     `json:"min_size_amount"`
	BaseDecimals  uint8            `json:"base_decimals"`
	QuoteDecimals uint8            `json:"quote_decimals"`
}

// PriceToDecimal converts a fixed-point on-chain price to a human decimal.
func (i Instrument) PriceToDecimal(price uint64) decimal.Decimal {
	return decimal.New(int64(price), -int32(i.PriceDecimals))
}

// SizeToDecimal converts a fixed-point on-chain size to a human decimal.
func (i Instrument) SizeToDecimal(size uint64) decimal.Decimal {
	return decimal.New(int64(size), -int32(i.SizeDecimals))
}

// PriceFromDecimal converts a human decimal price to the on-chain
// fixed-point representation, rejecting values that do not fit the tick.
func (i Instrument) PriceFromDecimal(d decimal.Decimal) (uint64, error) {
	return fixedPointFromDecimal(d, i.PriceDecimals, "price")
}

// SizeFromDecimal converts a human decimal size to the on-chain
// fixed-point representation, rejecting values that do not fit the tick.
func (i Instrument) SizeFromDecimal(d decimal.Decimal) (uint64, error) {
	return fixedPointFromDecimal(d, i.SizeDecimals, "size")
}

func fixedPointFromDecimal(d decimal.Decimal, decimals uint8, what string) (uint64, error) {
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%s %s has more than %d decimal places", what, d, decimals)
	}
	if scaled.IsNegative() {
		return 0, fmt.Errorf("%s %s is negative", what, d)
	}
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("%s %s overflows u64", what, d)
	}
	return scaled.BigInt().Uint64(), nil
}

// Order is an order reconstructed from book state and events. State and
// Fills are populated client-side (the resource itself does not carry
// them) so they are skipped during resource decoding.
type Order struct {
	ID            OrderID      `json:"id"`
	Side          Side         `json:"side"`
	Price         lamtypes.U64 `json:"price"`
	Size          lamtypes.U64 `json:"size"`
	PostOnly      bool         `json:"post_only"`
	RemainingSize lamtypes.U64 `json:"remaining_size"`
	State         OrderState   `json:"-"`
	Fills         []FillEvent  `json:"-"`
}
