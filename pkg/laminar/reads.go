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
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// SequenceNumber fetches the account's current sequence number from
// chain state, bypassing the local pool.
func (c *Client) SequenceNumber(ctx context.Context) (uint64, error) {
	account, err := c.node.GetAccount(ctx, c.signer.Address())
	if err != nil {
		return 0, err
	}
	return uint64(account.SequenceNumber), nil
}

// DoesCoinExist checks whether a coin type has been published, by
// looking for its CoinInfo resource under the declaring address.
func (c *Client) DoesCoinExist(ctx context.Context, coin lamapi.TypeTag) (bool, error) {
	resourceType := fmt.Sprintf("0x1::coin::CoinInfo<%s>", coin)
	res, err := c.node.GetAccountResource(ctx, coin.Address, resourceType)
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

// IsRegisteredForCoin checks whether the account has a coin store for
// the given coin type.
func (c *Client) IsRegisteredForCoin(ctx context.Context, coin lamapi.TypeTag) (bool, error) {
	res, err := c.node.GetAccountResource(ctx, c.signer.Address(), coinStoreType(coin))
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

// CoinBalance reads the account's balance for a coin type from its
// coin store.
func (c *Client) CoinBalance(ctx context.Context, coin lamapi.TypeTag) (lamtypes.U64, error) {
	res, err := c.node.GetAccountResource(ctx, c.signer.Address(), coinStoreType(coin))
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, lamapi.NewError(lamapi.ErrorKindValidation, "account holds no coin store for %s", coin)
	}
	var store lamapi.Balance
	if err := json.Unmarshal(res.Data, &store); err != nil {
		return 0, lamapi.WrapError(lamapi.ErrorKindNetwork, err, "decoding coin store for %s", coin)
	}
	return store.Coin.Value, nil
}

// IsUserRegistered checks whether the account has registered to trade,
// by looking for its order book event store.
func (c *Client) IsUserRegistered(ctx context.Context) (bool, error) {
	res, err := c.node.GetAccountResource(ctx, c.signer.Address(), c.eventStoreType())
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

// FetchOrderBook reads both sides of a market's book from chain state
// and merges them into one decoded OrderBook.
func (c *Client) FetchOrderBook(ctx context.Context, m Market) (*lamapi.OrderBook, error) {
	if m.Base.IsZero() || m.Quote.IsZero() {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "market base and quote coin types are required")
	}
	if m.BookOwner.IsZero() {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "market book owner address is required")
	}

	var bids, asks *lamapi.OrderBook
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bids, err = c.fetchOrderBookSide(gctx, c.bookSideType("OrderBookBids", m), m.BookOwner)
		return err
	})
	g.Go(func() (err error) {
		asks, err = c.fetchOrderBookSide(gctx, c.bookSideType("OrderBookAsks", m), m.BookOwner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	book := bids
	book.Asks = asks.Asks
	return book, nil
}

func (c *Client) bookSideType(side string, m Market) string {
	return fmt.Sprintf("%s::book::%s<%s, %s>", c.laminar.ShortString(), side, m.Base, m.Quote)
}

func (c *Client) fetchOrderBookSide(ctx context.Context, resourceType string, owner lamtypes.Address) (*lamapi.OrderBook, error) {
	res, err := c.node.GetAccountResource(ctx, owner, resourceType)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "order book resource %s not found under %s", resourceType, owner.ShortString())
	}
	var book lamapi.OrderBook
	if err := json.Unmarshal(res.Data, &book); err != nil {
		return nil, lamapi.WrapError(lamapi.ErrorKindNetwork, err, "decoding %s", resourceType)
	}
	params, err := res.TypeParams()
	if err != nil {
		return nil, lamapi.WrapError(lamapi.ErrorKindNetwork, err, "decoding %s type params", resourceType)
	}
	book.TypeTags = params
	return &book, nil
}

func coinStoreType(coin lamapi.TypeTag) string {
	return fmt.Sprintf("0x1::coin::CoinStore<%s>", coin)
}
