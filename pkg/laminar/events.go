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

package laminar

import (
	"context"
	"encoding/json"

	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
)

func (c *Client) eventStoreType() string {
	return c.laminar.ShortString() + "::book::OrderBookStore"
}

// dexEvents fetches the account's full stream for one event store
// field and decodes each payload into the given event type.
func dexEvents[E lamapi.DexEvent](ctx context.Context, c *Client) ([]E, error) {
	var zero E
	raws, err := c.node.GetAccountEvents(ctx, c.signer.Address(), c.eventStoreType(), zero.EventStoreField(), 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(raws))
	for _, raw := range raws {
		var ev E
		if err := json.Unmarshal(raw.Data, &ev); err != nil {
			return nil, lamapi.WrapError(lamapi.ErrorKindNetwork, err, "decoding %s event", zero.EventStoreField())
		}
		out = append(out, ev)
	}
	return out, nil
}

// FetchOrderBooks lists every market creation event visible to this
// account's event store.
func (c *Client) FetchOrderBooks(ctx context.Context) ([]lamapi.CreateOrderBookEvent, error) {
	return dexEvents[lamapi.CreateOrderBookEvent](ctx, c)
}

// PlaceOrderEvents lists this account's order placements on one book.
func (c *Client) PlaceOrderEvents(ctx context.Context, bookID lamapi.OrderID) ([]lamapi.PlaceOrderEvent, error) {
	events, err := dexEvents[lamapi.PlaceOrderEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	out := events[:0:0]
	for _, ev := range events {
		if ev.BookID.Equal(bookID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// AmendOrderEvents lists this account's order amendments on one book.
func (c *Client) AmendOrderEvents(ctx context.Context, bookID lamapi.OrderID) ([]lamapi.AmendOrderEvent, error) {
	events, err := dexEvents[lamapi.AmendOrderEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	out := events[:0:0]
	for _, ev := range events {
		if ev.BookID.Equal(bookID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// CancelOrderEvents lists this account's order cancellations on one book.
func (c *Client) CancelOrderEvents(ctx context.Context, bookID lamapi.OrderID) ([]lamapi.CancelOrderEvent, error) {
	events, err := dexEvents[lamapi.CancelOrderEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	out := events[:0:0]
	for _, ev := range events {
		if ev.BookID.Equal(bookID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// FillEvents lists this account's fills on one book.
func (c *Client) FillEvents(ctx context.Context, bookID lamapi.OrderID) ([]lamapi.FillEvent, error) {
	events, err := dexEvents[lamapi.FillEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	out := events[:0:0]
	for _, ev := range events {
		if ev.BookID.Equal(bookID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// GetPlaceEvent returns the placement event for one order.
func (c *Client) GetPlaceEvent(ctx context.Context, orderID lamapi.OrderID) (*lamapi.PlaceOrderEvent, error) {
	events, err := dexEvents[lamapi.PlaceOrderEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.OrderID.Equal(orderID) {
			return &ev, nil
		}
	}
	return nil, lamapi.NewError(lamapi.ErrorKindValidation, "order %s not found", orderID)
}

func (c *Client) amendEventsForOrder(ctx context.Context, orderID lamapi.OrderID) ([]lamapi.AmendOrderEvent, error) {
	events, err := dexEvents[lamapi.AmendOrderEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	var out []lamapi.AmendOrderEvent
	for _, ev := range events {
		if ev.OrderID.Equal(orderID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (c *Client) cancelEventForOrder(ctx context.Context, orderID lamapi.OrderID) (*lamapi.CancelOrderEvent, error) {
	events, err := dexEvents[lamapi.CancelOrderEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.OrderID.Equal(orderID) {
			return &ev, nil
		}
	}
	return nil, nil
}

func (c *Client) fillEventsForOrder(ctx context.Context, orderID lamapi.OrderID) ([]lamapi.FillEvent, error) {
	events, err := dexEvents[lamapi.FillEvent](ctx, c)
	if err != nil {
		return nil, err
	}
	var out []lamapi.FillEvent
	for _, ev := range events {
		if ev.OrderID.Equal(orderID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// GetOrder reconstructs one of this account's orders from its event
// history: price and size reflect the last amendment, the remaining
// size comes from the latest fill, and the state follows from fills
// and cancellation.
func (c *Client) GetOrder(ctx context.Context, orderID lamapi.OrderID) (*lamapi.Order, error) {
	place, err := c.GetPlaceEvent(ctx, orderID)
	if err != nil {
		return nil, err
	}
	amends, err := c.amendEventsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	cancel, err := c.cancelEventForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	fills, err := c.fillEventsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	price, size := place.Price, place.Size
	if len(amends) > 0 {
		last := amends[len(amends)-1]
		price, size = last.Price, last.Size
	}

	remaining := size
	if len(fills) > 0 {
		remaining = fills[len(fills)-1].RemainingSize
	}

	state := lamapi.OrderOpen
	switch {
	case cancel != nil || remaining == 0:
		state = lamapi.OrderClosed
	case len(fills) > 0:
		state = lamapi.OrderPartiallyFilled
	}

	return &lamapi.Order{
		ID:            orderID,
		Side:          place.Side,
		Price:         price,
		Size:          size,
		PostOnly:      place.PostOnly,
		RemainingSize: remaining,
		State:         state,
		Fills:         fills,
	}, nil
}
