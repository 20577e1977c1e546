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
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

const testLaminarAddr = "0x1a31"

// fakeNode is an in-process Aptos fullnode stub serving the REST
// surface the client touches.
type fakeNode struct {
	t      *testing.T
	server *httptest.Server

	mux        sync.Mutex
	chainID    uint8
	accountSeq uint64
	// resources maps resource type string to its data document.
	resources map[string]json.RawMessage
	// events maps event store field name to raw event envelopes.
	events  map[string][]json.RawMessage
	submits [][]byte
	// pollTx, when set, is served for every by_hash lookup.
	pollTx any
}

func newFakeNode(t *testing.T) *fakeNode {
	n := &fakeNode{
		t:          t,
		chainID:    33,
		accountSeq: 5,
		resources:  map[string]json.RawMessage{},
		events:     map[string][]json.RawMessage{},
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.handle))
	t.Cleanup(n.server.Close)
	return n
}

func (n *fakeNode) handle(w http.ResponseWriter, r *http.Request) {
	n.mux.Lock()
	defer n.mux.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/v1")

	switch {
	case path == "" || path == "/":
		fmt.Fprintf(w, `{"chain_id":%d,"ledger_version":"1000","ledger_timestamp":"1700000000000000","block_height":"500","node_role":"full_node"}`, n.chainID)

	case r.Method == http.MethodPost && path == "/transactions":
		body, _ := io.ReadAll(r.Body)
		n.submits = append(n.submits, body)
		fmt.Fprintf(w, `{"hash":"0x%064d","sender":"0x1","sequence_number":"%d","max_gas_amount":"1000000","gas_unit_price":"100","expiration_timestamp_secs":"999"}`, len(n.submits), n.accountSeq)

	case strings.HasPrefix(path, "/transactions/by_hash/"):
		if n.pollTx == nil {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"transaction not found","error_code":"transaction_not_found"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(n.pollTx)

	case strings.Contains(path, "/resource/"):
		resourceType := path[strings.Index(path, "/resource/")+len("/resource/"):]
		data, ok := n.resources[resourceType]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"resource not found","error_code":"resource_not_found"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"type": resourceType, "data": data})

	case strings.Contains(path, "/events/"):
		field := path[strings.LastIndex(path, "/")+1:]
		envelopes := n.events[field]
		if envelopes == nil {
			envelopes = []json.RawMessage{}
		}
		_ = json.NewEncoder(w).Encode(envelopes)

	case strings.HasPrefix(path, "/accounts/"):
		fmt.Fprintf(w, `{"sequence_number":"%d","authentication_key":"0x00"}`, n.accountSeq)

	default:
		n.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (n *fakeNode) setResource(resourceType string, data string) {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.resources[resourceType] = json.RawMessage(data)
}

func (n *fakeNode) addEvent(field string, eventType string, data any) {
	payload, err := json.Marshal(data)
	require.NoError(n.t, err)
	envelope, err := json.Marshal(map[string]any{
		"version":         "1",
		"sequence_number": "0",
		"type":            eventType,
		"data":            json.RawMessage(payload),
	})
	require.NoError(n.t, err)
	n.mux.Lock()
	defer n.mux.Unlock()
	n.events[field] = append(n.events[field], envelope)
}

func (n *fakeNode) setPollTx(tx any) {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.pollTx = tx
}

func (n *fakeNode) submitted() [][]byte {
	n.mux.Lock()
	defer n.mux.Unlock()
	out := make([][]byte, len(n.submits))
	copy(out, n.submits)
	return out
}

func testClientConfig(url string) *Config {
	return &Config{
		Node:    NodeConfig{URL: url},
		Laminar: testLaminarAddr,
		Submit: SubmitConfig{
			PollInterval:    P("1ms"),
			MaxPollInterval: P("5ms"),
		},
	}
}

func newTestSigner(t *testing.T) *LocalSigner {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return NewLocalSigner(priv)
}

func testMarket(t *testing.T) Market {
	return Market{
		Base:      lamapi.MustParseTypeTag("0x1::aptos_coin::AptosCoin"),
		Quote:     lamapi.MustParseTypeTag(testLaminarAddr + "::usdc::USDC"),
		BookOwner: lamtypes.MustParseAddress("0xb00c"),
	}
}

func connect(t *testing.T, n *fakeNode) *Client {
	c, err := Connect(context.Background(), testClientConfig(n.server.URL), newTestSigner(t))
	require.NoError(t, err)
	return c
}

func TestConnectPrimesFromChain(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)

	assert.Equal(t, uint8(33), c.ChainID())
	assert.Equal(t, lamtypes.MustParseAddress(testLaminarAddr), c.Laminar())
	// Local view of the next number matches the chain.
	assert.Equal(t, uint64(5), c.NextSequenceNumber())
	assert.Equal(t, 0, c.InFlight())

	onChain, err := c.SequenceNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), onChain)
}

func TestConnectValidation(t *testing.T) {
	_, err := Connect(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, lamapi.IsValidation(err))

	_, err = Connect(context.Background(), &Config{Node: NodeConfig{URL: "http://localhost:1"}, Laminar: "nonsense"}, nil)
	require.Error(t, err)
	assert.True(t, lamapi.IsValidation(err))
}

func TestPlaceLimitOrderConfirmed(t *testing.T) {
	n := newFakeNode(t)
	success := true
	n.setPollTx(map[string]any{
		"type":                      "user_transaction",
		"hash":                      "0x" + strings.Repeat("ab", 32),
		"sender":                    "0x1",
		"sequence_number":           "5",
		"success":                   success,
		"vm_status":                 "Executed successfully",
		"timestamp":                 "1700000000000000",
		"gas_used":                  "55",
		"max_gas_amount":            "1000000",
		"gas_unit_price":            "100",
		"expiration_timestamp_secs": "999",
		"version":                   "1001",
		"events": []map[string]any{
			{
				"version":         "1001",
				"sequence_number": "0",
				"type":            testLaminarAddr + "::book::PlaceOrderEvent",
				"data": map[string]any{
					"book_id":       map[string]any{"creation_num": "7", "addr": "0xb00c"},
					"order_id":      map[string]any{"creation_num": "42", "addr": "0xb00c"},
					"side":          0,
					"price":         "102500",
					"size":          "1000000",
					"time_in_force": 0,
					"post_only":     false,
					"time":          "1700000000000000",
				},
			},
		},
	})
	c := connect(t, n)

	outcome, err := c.PlaceLimitOrder(context.Background(), testMarket(t),
		lamapi.Bid, 102_500, 1_000_000, lamapi.GoodTillCanceled, false)
	require.NoError(t, err)
	require.True(t, outcome.Confirmed())
	require.NotNil(t, outcome.Transaction)
	require.Len(t, outcome.Transaction.Events, 1)
	require.NotNil(t, outcome.Transaction.Events[0].PlaceOrder)
	assert.Equal(t, "42", outcome.Transaction.Events[0].PlaceOrder.OrderID.CreationNum.String())

	// The signed transaction carried the primed sequence number and the
	// account as sender, and the pool moved on to the next number.
	submits := n.submitted()
	require.Len(t, submits, 1)
	raw := submits[0]
	require.Greater(t, len(raw), 40)
	assert.Equal(t, c.Address().Bytes(), raw[:32])
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(raw[32:40]))
	assert.Equal(t, uint64(6), c.NextSequenceNumber())
	assert.Equal(t, 0, c.InFlight())
}

func TestDepositAsync(t *testing.T) {
	n := newFakeNode(t)
	success := true
	n.setPollTx(map[string]any{
		"type":            "user_transaction",
		"hash":            "0x" + strings.Repeat("cd", 32),
		"sender":          "0x1",
		"sequence_number": "5",
		"success":         success,
		"vm_status":       "Executed successfully",
		"timestamp":       "1700000000000000",
		"version":         "1002",
		"events":          []map[string]any{},
	})
	c := connect(t, n)

	sub, err := c.DepositAsync(context.Background(), testMarket(t).Base, 500)
	require.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", sub.ID().String())

	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not resolve")
	}
	require.NotNil(t, sub.Outcome())
	assert.True(t, sub.Outcome().Confirmed())
	assert.False(t, sub.Hash().IsZero())
}

func TestChainRejectionSurfacesVMStatus(t *testing.T) {
	const vmStatus = "Move abort in 0x1a31::vault: EINSUFFICIENT_BALANCE(0x3)"
	n := newFakeNode(t)
	success := false
	n.setPollTx(map[string]any{
		"type":            "user_transaction",
		"hash":            "0x" + strings.Repeat("ef", 32),
		"sender":          "0x1",
		"sequence_number": "5",
		"success":         success,
		"vm_status":       vmStatus,
		"timestamp":       "1700000000000000",
		"version":         "1003",
		"events":          []map[string]any{},
	})
	c := connect(t, n)

	outcome, err := c.Withdraw(context.Background(), testMarket(t).Base, 10_000)
	require.NoError(t, err)
	require.True(t, outcome.Failed())
	assert.Equal(t, vmStatus, outcome.FailureReason)
}

func TestUpdateChainID(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)
	require.Equal(t, uint8(33), c.ChainID())

	n.mux.Lock()
	n.chainID = 34
	n.mux.Unlock()

	require.NoError(t, c.UpdateChainID(context.Background()))
	assert.Equal(t, uint8(34), c.ChainID())
}

func TestCoinReads(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)
	ctx := context.Background()
	coin := testMarket(t).Base

	exists, err := c.DoesCoinExist(ctx, coin)
	require.NoError(t, err)
	assert.False(t, exists)

	n.setResource(fmt.Sprintf("0x1::coin::CoinInfo<%s>", coin), `{"decimals":8,"name":"Aptos Coin","symbol":"APT"}`)
	exists, err = c.DoesCoinExist(ctx, coin)
	require.NoError(t, err)
	assert.True(t, exists)

	registered, err := c.IsRegisteredForCoin(ctx, coin)
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = c.CoinBalance(ctx, coin)
	require.Error(t, err)
	assert.True(t, lamapi.IsValidation(err))

	n.setResource(fmt.Sprintf("0x1::coin::CoinStore<%s>", coin), `{"coin":{"value":"123456"}}`)
	registered, err = c.IsRegisteredForCoin(ctx, coin)
	require.NoError(t, err)
	assert.True(t, registered)

	balance, err := c.CoinBalance(ctx, coin)
	require.NoError(t, err)
	assert.Equal(t, lamtypes.U64(123456), balance)
}

func TestIsUserRegistered(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)

	registered, err := c.IsUserRegistered(context.Background())
	require.NoError(t, err)
	assert.False(t, registered)

	n.setResource(c.eventStoreType(), `{"place_order_events":{"counter":"0"}}`)
	registered, err = c.IsUserRegistered(context.Background())
	require.NoError(t, err)
	assert.True(t, registered)
}

// bookSideDoc builds the splay-tree resource document for one side
// holding a single price level with one resting order.
func bookSideDoc(price uint64, orderNum int) string {
	return fmt.Sprintf(`{
		"id": {"creation_num": "7", "addr": "0xb00c"},
		"instrument": {"owner": "0xb00c", "price_decimals": 3, "size_decimals": 6, "min_size_amount": "1000", "base_decimals": 8, "quote_decimals": 6},
		"bids": {
			"nodes": [{"key": "%d", "value": {"head": {"value": "0"}, "nodes": [
				{"next": {"value": "18446744073709551615"}, "value": {"vec": [
					{"id": {"creation_num": "%d", "addr": "0xb00c"}, "side": 0, "price": "%d", "size": "5", "post_only": false, "remaining_size": "5"}
				]}}
			]}}],
			"removed_nodes": []
		}
	}`, price, orderNum, price)
}

func TestFetchOrderBook(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)
	m := testMarket(t)

	_, err := c.FetchOrderBook(context.Background(), m)
	require.Error(t, err)
	assert.True(t, lamapi.IsValidation(err))

	// Each side is a separate resource; asks arrive under the bids key
	// of its own document and are remapped by the resource type.
	bidsDoc := bookSideDoc(100, 11)
	asksDoc := strings.Replace(bookSideDoc(105, 12), `"bids"`, `"asks"`, 1)
	n.setResource(c.bookSideType("OrderBookBids", m), bidsDoc)
	n.setResource(c.bookSideType("OrderBookAsks", m), asksDoc)

	book, err := c.FetchOrderBook(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, book.Bids, 1)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, uint64(100), book.Bids[0].Price)
	assert.Equal(t, uint64(105), book.Asks[0].Price)
	best, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint64(100), best.Price)
	require.Len(t, book.TypeTags, 2)
	assert.Equal(t, "aptos_coin", book.TypeTags[0].Module)
}

func TestFetchOrderBookMissing(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)

	_, err := c.FetchOrderBook(context.Background(), testMarket(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func bookID() map[string]any {
	return map[string]any{"creation_num": "7", "addr": "0xb00c"}
}

func orderIDDoc(num string) map[string]any {
	return map[string]any{"creation_num": num, "addr": "0xb00c"}
}

func TestEventReads(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)
	ctx := context.Background()
	eventType := testLaminarAddr + "::book::PlaceOrderEvent"

	n.addEvent("create_orderbook_events", testLaminarAddr+"::book::CreateOrderBookEvent", map[string]any{
		"book_id": bookID(), "creator": "0xb00c",
		"base":           map[string]any{"account_address": "0x1", "module_name": "0x6170746f735f636f696e", "struct_name": "0x4170746f73436f696e"},
		"quote":          map[string]any{"account_address": "0x1a31", "module_name": "0x75736463", "struct_name": "0x55534443"},
		"price_decimals": 3, "size_decimals": 6, "min_size_amount": "1000",
		"base_decimals": 8, "quote_decimals": 6, "time": "1",
	})
	n.addEvent("place_order_events", eventType, map[string]any{
		"book_id": bookID(), "order_id": orderIDDoc("42"), "side": 0,
		"price": "100", "size": "10", "time_in_force": 0, "post_only": true, "time": "2",
	})
	n.addEvent("place_order_events", eventType, map[string]any{
		"book_id": map[string]any{"creation_num": "9", "addr": "0xe15e"}, "order_id": orderIDDoc("43"), "side": 1,
		"price": "101", "size": "5", "time_in_force": 0, "post_only": false, "time": "3",
	})

	books, err := c.FetchOrderBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "aptos_coin", books[0].Base.ModuleName)

	id := lamapi.OrderID{CreationNum: 7, Addr: lamtypes.MustParseAddress("0xb00c")}
	places, err := c.PlaceOrderEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "42", places[0].OrderID.CreationNum.String())
}

func TestGetOrder(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)
	ctx := context.Background()

	n.addEvent("place_order_events", testLaminarAddr+"::book::PlaceOrderEvent", map[string]any{
		"book_id": bookID(), "order_id": orderIDDoc("42"), "side": 0,
		"price": "100", "size": "10", "time_in_force": 0, "post_only": true, "time": "1",
	})
	n.addEvent("amend_order_events", testLaminarAddr+"::book::AmendOrderEvent", map[string]any{
		"book_id": bookID(), "order_id": orderIDDoc("42"), "amend_id": orderIDDoc("50"), "side": 0,
		"price": "110", "size": "8", "time": "2",
	})
	n.addEvent("fill_events", testLaminarAddr+"::book::FillEvent", map[string]any{
		"book_id": bookID(), "order_id": orderIDDoc("42"), "side": 0,
		"price": "110", "fill_size": "5", "fee": "1", "fee_rate": "10",
		"time": "3", "remaining_size": "3", "is_maker": true,
	})

	order, err := c.GetOrder(ctx, lamapi.OrderID{CreationNum: 42, Addr: lamtypes.MustParseAddress("0xb00c")})
	require.NoError(t, err)
	assert.Equal(t, lamtypes.U64(110), order.Price)
	assert.Equal(t, lamtypes.U64(8), order.Size)
	assert.Equal(t, lamtypes.U64(3), order.RemainingSize)
	assert.Equal(t, lamapi.OrderPartiallyFilled, order.State)
	assert.True(t, order.PostOnly)
	require.Len(t, order.Fills, 1)

	// Unknown orders are reported, not fabricated.
	_, err = c.GetOrder(ctx, lamapi.OrderID{CreationNum: 99, Addr: lamtypes.MustParseAddress("0xb00c")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetOrderClosedByCancel(t *testing.T) {
	n := newFakeNode(t)
	c := connect(t, n)
	ctx := context.Background()

	n.addEvent("place_order_events", testLaminarAddr+"::book::PlaceOrderEvent", map[string]any{
		"book_id": bookID(), "order_id": orderIDDoc("42"), "side": 1,
		"price": "100", "size": "10", "time_in_force": 0, "post_only": false, "time": "1",
	})
	n.addEvent("cancel_order_events", testLaminarAddr+"::book::CancelOrderEvent", map[string]any{
		"book_id": bookID(), "order_id": orderIDDoc("42"), "cancel_id": orderIDDoc("60"), "side": 1,
		"reason": 0, "time": "2",
	})

	order, err := c.GetOrder(ctx, lamapi.OrderID{CreationNum: 42, Addr: lamtypes.MustParseAddress("0xb00c")})
	require.NoError(t, err)
	assert.Equal(t, lamapi.OrderClosed, order.State)
	// No fills: the full amended size is still outstanding at close.
	assert.Equal(t, lamtypes.U64(10), order.RemainingSize)
}
