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

// Package laminar is the client library for trading on Laminar Markets,
// an on-chain central limit order book on Aptos. A Client owns the node
// connection, the per-account sequence number pool and the submission
// engine; each trading call builds, signs and submits one entry
// function transaction and reports its terminal outcome.
package laminar

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/laminar-markets/laminar-client-go/internal/builder"
	"github.com/laminar-markets/laminar-client-go/internal/clock"
	"github.com/laminar-markets/laminar-client-go/internal/gateway"
	"github.com/laminar-markets/laminar-client-go/internal/metrics"
	"github.com/laminar-markets/laminar-client-go/internal/orchestrator"
	"github.com/laminar-markets/laminar-client-go/internal/sequencer"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// Market identifies one order book: the coin pair and the account that
// owns the book resource.
type Market struct {
	Base      lamapi.TypeTag
	Quote     lamapi.TypeTag
	BookOwner lamtypes.Address
}

func (m Market) builderMarket() builder.Market {
	return builder.Market{Base: m.Base, Quote: m.Quote, BookOwner: m.BookOwner}
}

// Client is the Laminar Markets trading client for one account.
type Client struct {
	mux     sync.Mutex
	conf    *Config
	node    *gateway.Client
	pool    *sequencer.Sequencer
	orch    *orchestrator.Orchestrator
	signer  Signer
	laminar lamtypes.Address
	chainID uint8
	metrics metrics.SubmissionMetrics
	clk     clock.Clock
}

// ClientOption customizes client construction.
type ClientOption func(*Client)

// WithMetricsRegistry registers submission metrics on the given
// Prometheus registry.
func WithMetricsRegistry(registry *prometheus.Registry) ClientOption {
	return func(c *Client) {
		c.metrics = metrics.InitMetrics(context.Background(), registry)
	}
}

// Connect creates a client against the configured fullnode: it fetches
// the chain id from the node index and primes the account's sequence
// number from chain state.
func Connect(ctx context.Context, conf *Config, signer Signer, opts ...ClientOption) (*Client, error) {
	if conf == nil || conf.Node.URL == "" {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "node URL is required")
	}
	laminar, err := lamtypes.ParseAddress(conf.Laminar)
	if err != nil {
		return nil, lamapi.WrapError(lamapi.ErrorKindValidation, err, "invalid laminar deployment address")
	}
	if signer == nil {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "a signer is required")
	}

	c := &Client{
		conf:    conf,
		signer:  signer,
		laminar: laminar,
		metrics: metrics.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.node = gateway.NewClient(conf.gatewayConfig())
	index, err := c.node.GetIndex(ctx)
	if err != nil {
		return nil, err
	}
	c.chainID = index.ChainID
	c.pool = sequencer.New(c.node)
	c.orch = orchestrator.New(c.node, c.pool, c.clk, c.metrics, conf.orchestratorConfig(c.chainID, laminar))

	if err := c.pool.Resync(ctx, signer.Address()); err != nil {
		return nil, err
	}
	return c, nil
}

// ConnectWithProfile connects using key material from a named profile
// in an Aptos CLI config file.
func ConnectWithProfile(ctx context.Context, conf *Config, path, profileName string, opts ...ClientOption) (*Client, error) {
	profile, err := LoadProfile(path, profileName)
	if err != nil {
		return nil, err
	}
	signer, err := SignerFromProfile(profile)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, conf, signer, opts...)
}

// Address returns the trading account address.
func (c *Client) Address() lamtypes.Address {
	return c.signer.Address()
}

// Laminar returns the DEX deployment address.
func (c *Client) Laminar() lamtypes.Address {
	return c.laminar
}

// ChainID returns the chain id learned at connect time, or by the last
// UpdateChainID call.
func (c *Client) ChainID() uint8 {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.chainID
}

// UpdateChainID refetches the chain id from the node index. Needed
// when a devnet redeploy changes the chain id under a stable URL. New
// submissions pick up the new id; in-flight ones keep the old.
func (c *Client) UpdateChainID(ctx context.Context) error {
	index, err := c.node.GetIndex(ctx)
	if err != nil {
		return err
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	if index.ChainID != c.chainID {
		c.chainID = index.ChainID
		c.orch = orchestrator.New(c.node, c.pool, c.clk, c.metrics, c.conf.orchestratorConfig(c.chainID, c.laminar))
	}
	return nil
}

// Submission is an in-flight transaction. It resolves to a terminal
// Outcome independently of the caller's context.
type Submission struct {
	sub *orchestrator.Submission
}

// ID identifies the submission in logs and metrics.
func (s *Submission) ID() uuid.UUID {
	return s.sub.ID()
}

// Done closes when the submission reaches its terminal outcome.
func (s *Submission) Done() <-chan struct{} {
	return s.sub.Done()
}

// Wait blocks for the terminal outcome. Cancelling the context
// abandons the wait only; the submission keeps running.
func (s *Submission) Wait(ctx context.Context) (*lamapi.Outcome, error) {
	return s.sub.Wait(ctx)
}

// Outcome returns the terminal outcome, or nil while in flight.
func (s *Submission) Outcome() *lamapi.Outcome {
	return s.sub.Outcome()
}

// Hash returns the transaction hash once signed; zero before that.
func (s *Submission) Hash() lamtypes.Bytes32 {
	return s.sub.Hash()
}

// Cancel aborts the submission if it has not reached the node yet.
// After submission it is advisory only.
func (s *Submission) Cancel(ctx context.Context) {
	s.sub.Cancel(ctx)
}

func (c *Client) submit(ctx context.Context, intent builder.Intent) (*Submission, error) {
	c.mux.Lock()
	orch := c.orch
	c.mux.Unlock()
	sub, err := orch.Submit(ctx, intent, c.signer.Address(), c.signer)
	if err != nil {
		return nil, err
	}
	return &Submission{sub: sub}, nil
}

func (c *Client) run(ctx context.Context, intent builder.Intent) (*lamapi.Outcome, error) {
	sub, err := c.submit(ctx, intent)
	if err != nil {
		return nil, err
	}
	return sub.Wait(ctx)
}

// PlaceLimitOrder places a limit order and waits for its outcome.
func (c *Client) PlaceLimitOrder(ctx context.Context, m Market, side lamapi.Side, price, size uint64, tif lamapi.TimeInForce, postOnly bool) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.PlaceLimitOrder{
		Market: m.builderMarket(), Side: side, Price: price, Size: size, TimeInForce: tif, PostOnly: postOnly,
	})
}

// PlaceLimitOrderAsync places a limit order without waiting.
func (c *Client) PlaceLimitOrderAsync(ctx context.Context, m Market, side lamapi.Side, price, size uint64, tif lamapi.TimeInForce, postOnly bool) (*Submission, error) {
	return c.submit(ctx, builder.PlaceLimitOrder{
		Market: m.builderMarket(), Side: side, Price: price, Size: size, TimeInForce: tif, PostOnly: postOnly,
	})
}

// PlaceMarketOrder places a market order and waits for its outcome.
func (c *Client) PlaceMarketOrder(ctx context.Context, m Market, side lamapi.Side, size uint64) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.PlaceMarketOrder{Market: m.builderMarket(), Side: side, Size: size})
}

// PlaceMarketOrderAsync places a market order without waiting.
func (c *Client) PlaceMarketOrderAsync(ctx context.Context, m Market, side lamapi.Side, size uint64) (*Submission, error) {
	return c.submit(ctx, builder.PlaceMarketOrder{Market: m.builderMarket(), Side: side, Size: size})
}

// AmendOrder changes the price and/or size of a resting order.
func (c *Client) AmendOrder(ctx context.Context, m Market, id lamapi.OrderID, side lamapi.Side, price, size uint64) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.AmendOrder{Market: m.builderMarket(), OrderID: id, Side: side, Price: price, Size: size})
}

// AmendOrderAsync amends without waiting.
func (c *Client) AmendOrderAsync(ctx context.Context, m Market, id lamapi.OrderID, side lamapi.Side, price, size uint64) (*Submission, error) {
	return c.submit(ctx, builder.AmendOrder{Market: m.builderMarket(), OrderID: id, Side: side, Price: price, Size: size})
}

// CancelOrder removes a resting order from the book.
func (c *Client) CancelOrder(ctx context.Context, m Market, id lamapi.OrderID, side lamapi.Side) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.CancelOrder{Market: m.builderMarket(), OrderID: id, Side: side})
}

// CancelOrderAsync cancels without waiting.
func (c *Client) CancelOrderAsync(ctx context.Context, m Market, id lamapi.OrderID, side lamapi.Side) (*Submission, error) {
	return c.submit(ctx, builder.CancelOrder{Market: m.builderMarket(), OrderID: id, Side: side})
}

// Deposit moves coins from the account's coin store into the DEX
// vault as trading collateral.
func (c *Client) Deposit(ctx context.Context, coin lamapi.TypeTag, amount uint64) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.Deposit{Coin: coin, Amount: amount})
}

// DepositAsync deposits without waiting.
func (c *Client) DepositAsync(ctx context.Context, coin lamapi.TypeTag, amount uint64) (*Submission, error) {
	return c.submit(ctx, builder.Deposit{Coin: coin, Amount: amount})
}

// Withdraw moves collateral from the DEX vault back to the account's
// coin store.
func (c *Client) Withdraw(ctx context.Context, coin lamapi.TypeTag, amount uint64) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.Withdraw{Coin: coin, Amount: amount})
}

// WithdrawAsync withdraws without waiting.
func (c *Client) WithdrawAsync(ctx context.Context, coin lamapi.TypeTag, amount uint64) (*Submission, error) {
	return c.submit(ctx, builder.Withdraw{Coin: coin, Amount: amount})
}

// RegisterUser registers the account to trade on Laminar.
func (c *Client) RegisterUser(ctx context.Context) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.RegisterUser{})
}

// RegisterForCoin registers the account's coin store for a coin type.
func (c *Client) RegisterForCoin(ctx context.Context, coin lamapi.TypeTag) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.RegisterForCoin{Coin: coin})
}

// CreateOrderBook creates a new market owned by the account.
func (c *Client) CreateOrderBook(ctx context.Context, base, quote lamapi.TypeTag, priceDecimals, sizeDecimals uint8, minSizeAmount uint64) (*lamapi.Outcome, error) {
	return c.run(ctx, builder.CreateOrderBook{
		Base: base, Quote: quote, PriceDecimals: priceDecimals, SizeDecimals: sizeDecimals, MinSizeAmount: minSizeAmount,
	})
}

// NextSequenceNumber is the client's local view of the next sequence
// number to be reserved for this account.
func (c *Client) NextSequenceNumber() uint64 {
	return c.pool.Next(c.signer.Address())
}

// InFlight is the number of sequence numbers currently reserved by
// unresolved submissions for this account.
func (c *Client) InFlight() int {
	return c.pool.InFlight(c.signer.Address())
}
