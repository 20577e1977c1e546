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
	"sort"

	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// PriceLevel is one price point of a book side with its resting orders in
// time priority.
type PriceLevel struct {
	Price  uint64
	Orders []Order
}

// OrderBook is the decoded book state for one market. Levels on both
// sides are sorted by ascending price; the best bid is the last bid
// level and the best ask is the first ask level.
type OrderBook struct {
	ID         OrderID
	Instrument Instrument
	Bids       []PriceLevel
	Asks       []PriceLevel
	TypeTags   []TypeTag
}

// BestBid returns the highest bid level, or false for an empty side.
func (b *OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[len(b.Bids)-1], true
}

// BestAsk returns the lowest ask level, or false for an empty side.
func (b *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// The on-chain book stores each side as a splay tree of price levels,
// each level holding a linked queue of orders in slab-allocated nodes.
// The wire types below mirror that storage so the JSON resource can be
// flattened into plain price levels.

// nilNodeIdx is the sentinel used by guarded indexes for "no node".
const nilNodeIdx = ^uint64(0)

type guardedIdx struct {
	Value lamtypes.U64 `json:"value"`
}

type orderOption struct {
	Vec []Order `json:"vec"`
}

type orderNode struct {
	Next  guardedIdx  `json:"next"`
	Value orderOption `json:"value"`
}

type orderQueue struct {
	Head  guardedIdx  `json:"head"`
	Nodes []orderNode `json:"nodes"`
}

type levelNode struct {
	Key   lamtypes.U64 `json:"key"`
	Value orderQueue   `json:"value"`
}

type bookSide struct {
	Nodes        []levelNode    `json:"nodes"`
	RemovedNodes []lamtypes.U64 `json:"removed_nodes"`
}

// levels flattens the side's live tree nodes into price levels, walking
// each level's order queue from head in FIFO order. Slab slots listed in
// removed_nodes are free-list entries, not live levels.
func (s *bookSide) levels() ([]PriceLevel, error) {
	removed := make(map[uint64]bool, len(s.RemovedNodes))
	for _, idx := range s.RemovedNodes {
		removed[uint64(idx)] = true
	}

	out := make([]PriceLevel, 0, len(s.Nodes))
	for i, node := range s.Nodes {
		if removed[uint64(i)] {
			continue
		}
		orders, err := node.Value.flatten()
		if err != nil {
			return nil, fmt.Errorf("price level %s: %w", node.Key, err)
		}
		out = append(out, PriceLevel{Price: uint64(node.Key), Orders: orders})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (q *orderQueue) flatten() ([]Order, error) {
	var orders []Order
	current := uint64(q.Head.Value)
	for steps := 0; current != nilNodeIdx; steps++ {
		if steps > len(q.Nodes) {
			return nil, fmt.Errorf("order queue contains a cycle")
		}
		if current >= uint64(len(q.Nodes)) {
			return nil, fmt.Errorf("order queue index %d out of range", current)
		}
		node := q.Nodes[current]
		if len(node.Value.Vec) == 0 {
			return nil, fmt.Errorf("order queue node %d holds no order", current)
		}
		orders = append(orders, node.Value.Vec[0])
		current = uint64(node.Next.Value)
	}
	return orders, nil
}

func (b *OrderBook) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         *OrderID    `json:"id"`
		Instrument *Instrument `json:"instrument"`
		Bids       *bookSide   `json:"bids"`
		Asks       *bookSide   `json:"asks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == nil {
		return fmt.Errorf("order book resource missing id")
	}
	if raw.Instrument == nil {
		return fmt.Errorf("order book resource missing instrument")
	}
	if raw.Bids == nil && raw.Asks == nil {
		return fmt.Errorf("order book resource has neither bids nor asks")
	}

	book := OrderBook{ID: *raw.ID, Instrument: *raw.Instrument}
	if raw.Bids != nil {
		levels, err := raw.Bids.levels()
		if err != nil {
			return fmt.Errorf("decoding bids: %w", err)
		}
		book.Bids = levels
	}
	if raw.Asks != nil {
		levels, err := raw.Asks.levels()
		if err != nil {
			return fmt.Errorf("decoding asks: %w", err)
		}
		book.Asks = levels
	}
	*b = book
	return nil
}
