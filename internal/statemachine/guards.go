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

package statemachine

import "context"

// Not negates a guard.
func Not[E any](guard Guard[E]) Guard[E] {
	return func(ctx context.Context, entity E) bool {
		return !guard(ctx, entity)
	}
}

// And passes only when every guard passes, short-circuiting on the
// first failure.
func And[E any](guards ...Guard[E]) Guard[E] {
	return func(ctx context.Context, entity E) bool {
		for _, guard := range guards {
			if !guard(ctx, entity) {
				return false
			}
		}
		return true
	}
}

// Or passes when any guard passes, short-circuiting on the first pass.
func Or[E any](guards ...Guard[E]) Guard[E] {
	return func(ctx context.Context, entity E) bool {
		for _, guard := range guards {
			if guard(ctx, entity) {
				return true
			}
		}
		return false
	}
}
