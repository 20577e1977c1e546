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

package lamtypes

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// U64 is an unsigned 64 bit integer that marshals to a decimal JSON string,
// matching the node REST API convention for u64 Move values (JSON numbers
// cannot represent the full u64 range).
//
// Unmarshaling accepts either a string or a bare number, since some fields
// are emitted either way depending on the node version.
type U64 uint64

func (u U64) Uint64() uint64 {
	return uint64(u)
}

func (u U64) String() string {
	return strconv.FormatUint(uint64(u), 10)
}

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *U64) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid u64 string %q: %w", v, err)
		}
		*u = U64(parsed)
		return nil
	case float64:
		if v < 0 {
			return fmt.Errorf("invalid u64 value %v", v)
		}
		*u = U64(uint64(v))
		return nil
	default:
		return fmt.Errorf("invalid u64 value of type %T", raw)
	}
}
