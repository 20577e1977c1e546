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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// DexEvent is implemented by every event payload emitted by the book
// module. EventStoreField names the event handle field on the
// OrderBookStore resource that holds the stream.
type DexEvent interface {
	EventStoreField() string
}

// CreateOrderBookEvent is emitted when a new market is created.
type CreateOrderBookEvent struct {
	BookID        OrderID          `json:"book_id"`
	Creator       lamtypes.Address `json:"creator"`
	Base          TypeInfo         `json:"base"`
	Quote         TypeInfo         `json:"quote"`
	PriceDecimals uint8            `json:"price_decimals"`
	SizeDecimals  uint8            `json:"size_decimals"`
	MinSizeAmount lamtypes.U64     `json:"min_size_amount"`
	BaseDecimals  uint8            `json:"base_decimals"`
	QuoteDecimals uint8            `json:"quote_decimals"`
	Time          lamtypes.U64     `json:"time"`
}

func (CreateOrderBookEvent) EventStoreField() string { return "create_orderbook_events" }

// PlaceOrderEvent is emitted when an order is accepted onto a book.
type PlaceOrderEvent struct {
	BookID      OrderID      `json:"book_id"`
	OrderID     OrderID      `json:"order_id"`
	Side        Side         `json:"side"`
	Price       lamtypes.U64 `json:"price"`
	Size        lamtypes.U64 `json:"size"`
	TimeInForce TimeInForce  `json:"time_in_force"`
	PostOnly    bool         `json:"post_only"`
	Time        lamtypes.U64 `json:"time"`
}

func (PlaceOrderEvent) EventStoreField() string { return "place_order_events" }

// AmendOrderEvent is emitted when an order's price or size is changed.
type AmendOrderEvent struct {
	BookID  OrderID      `json:"book_id"`
	OrderID OrderID      `json:"order_id"`
	AmendID OrderID      `json:"amend_id"`
	Side    Side         `json:"side"`
	Price   lamtypes.U64 `json:"price"`
	Size    lamtypes.U64 `json:"size"`
	Time    lamtypes.U64 `json:"time"`
}

func (AmendOrderEvent) EventStoreField() string { return "amend_order_events" }

// CancelOrderEvent is emitted when an order is removed from a book.
type CancelOrderEvent struct {
	BookID   OrderID      `json:"book_id"`
	OrderID  OrderID      `json:"order_id"`
	CancelID OrderID      `json:"cancel_id"`
	Side     Side         `json:"side"`
	Reason   uint8        `json:"reason"`
	Time     lamtypes.U64 `json:"time"`
}

func (CancelOrderEvent) EventStoreField() string { return "cancel_order_events" }

// FillEvent is emitted for each trade an order participates in.
type FillEvent struct {
	BookID        OrderID      `json:"book_id"`
	OrderID       OrderID      `json:"order_id"`
	Side          Side         `json:"side"`
	Price         lamtypes.U64 `json:"price"`
	FillSize      lamtypes.U64 `json:"fill_size"`
	Fee           lamtypes.U64 `json:"fee"`
	FeeRate       lamtypes.U64 `json:"fee_rate"`
	Time          lamtypes.U64 `json:"time"`
	RemainingSize lamtypes.U64 `json:"remaining_size"`
	IsMaker       bool         `json:"is_maker"`
}

func (FillEvent) EventStoreField() string { return "fill_events" }

// LaminarEvent is the decoded form of one DEX event attached to an
// executed transaction. Exactly one of the payload pointers is set.
type LaminarEvent struct {
	MoveType        string
	CreateOrderBook *CreateOrderBookEvent
	PlaceOrder      *PlaceOrderEvent
	AmendOrder      *AmendOrderEvent
	CancelOrder     *CancelOrderEvent
	Fill            *FillEvent
}

// DecodeLaminarEvent decodes a raw transaction event by its Move struct
// name. Returns false for event types that do not belong to the book
// module (the caller filters by address, this filters by shape).
func DecodeLaminarEvent(moveType string, data json.RawMessage) (*LaminarEvent, bool, error) {
	// Strip generic parameters first: the type arguments carry their
	// own "::" separators, so the last segment is only the struct name
	// once "<...>" is gone.
	name := moveType
	if idx := strings.Index(name, "<"); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		name = name[idx+2:]
	}

	ev := &LaminarEvent{MoveType: moveType}
	var payload any
	switch name {
	case "CreateOrderBookEvent":
		ev.CreateOrderBook = &CreateOrderBookEvent{}
		payload = ev.CreateOrderBook
	case "PlaceOrderEvent":
		ev.PlaceOrder = &PlaceOrderEvent{}
		payload = ev.PlaceOrder
	case "AmendOrderEvent":
		ev.AmendOrder = &AmendOrderEvent{}
		payload = ev.AmendOrder
	case "CancelOrderEvent":
		ev.CancelOrder = &CancelOrderEvent{}
		payload = ev.CancelOrder
	case "FillEvent":
		ev.Fill = &FillEvent{}
		payload = ev.Fill
	default:
		return nil, false, nil
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", moveType, err)
	}
	return ev, true, nil
}
