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

// Package lamapi holds the typed API surface shared between the client
// facade and the submission engine: order book and order types, DEX event
// payloads, node REST DTOs, and the error taxonomy.
//
// The on-chain book module encodes enums as u8; the node REST API emits
// them as JSON numbers or numeric strings depending on context, so the
// enum types here accept both.
package lamapi

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Side is the side of the book an order rests on.
type Side uint8

const (
	Bid Side = 0
	Ask Side = 1
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// Valid returns true for a known side value.
func (s Side) Valid() bool {
	return s == Bid || s == Ask
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint8(s))
}

func (s *Side) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, 1, "side")
	if err != nil {
		return err
	}
	*s = Side(v)
	return nil
}

// TimeInForce controls how a limit order interacts with the book after
// matching: rest (GTC), cancel the remainder (IOC), or all-or-nothing (FOK).
type TimeInForce uint8

const (
	GoodTillCanceled  TimeInForce = 0
	ImmediateOrCancel TimeInForce = 1
	FillOrKill        TimeInForce = 2
)

func (t TimeInForce) String() string {
	switch t {
	case GoodTillCanceled:
		return "GTC"
	case ImmediateOrCancel:
		return "IOC"
	case FillOrKill:
		return "FOK"
	}
	return fmt.Sprintf("timeInForce(%d)", uint8(t))
}

// Valid returns true for a known time-in-force value.
func (t TimeInForce) Valid() bool {
	return t <= FillOrKill
}

func (t TimeInForce) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint8(t))
}

func (t *TimeInForce) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, 2, "time_in_force")
	if err != nil {
		return err
	}
	*t = TimeInForce(v)
	return nil
}

// OrderState is the lifecycle state of an order, reconstructed client-side
// from place/amend/cancel/fill events.
type OrderState uint8

const (
	OrderOpen            OrderState = 0
	OrderPartiallyFilled OrderState = 1
	OrderClosed          OrderState = 2
)

func (s OrderState) String() string {
	switch s {
	case OrderOpen:
		return "open"
	case OrderPartiallyFilled:
		return "partially_filled"
	case OrderClosed:
		return "closed"
	}
	return fmt.Sprintf("orderState(%d)", uint8(s))
}

func (s OrderState) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint8(s))
}

func (s *OrderState) UnmarshalJSON(data []byte) error {
	v, err := enumFromJSON(data, 2, "order state")
	if err != nil {
		return err
	}
	*s = OrderState(v)
	return nil
}

// enumFromJSON decodes a u8 enum emitted as either a JSON number or a
// numeric string, bounds-checked against the highest known variant.
func enumFromJSON(data []byte, max uint64, what string) (uint64, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, err
	}
	var v uint64
	switch t := raw.(type) {
	case float64:
		v = uint64(t)
	case string:
		parsed, err := strconv.ParseUint(t, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", what, t)
		}
		v = parsed
	default:
		return 0, fmt.Errorf("invalid %s of type %T", what, raw)
	}
	if v > max {
		return 0, fmt.Errorf("invalid %s value %d", what, v)
	}
	return v, nil
}
