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
	"time"

	"github.com/laminar-markets/laminar-client-go/internal/gateway"
	"github.com/laminar-markets/laminar-client-go/internal/orchestrator"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// Config is the user-facing client configuration. Optional fields are
// pointers; nil means "use the default from ConfigDefaults".
type Config struct {
	// Node configures the Aptos fullnode connection.
	Node NodeConfig `json:"node" yaml:"node"`
	// Laminar is the address the DEX modules are deployed under.
	Laminar string `json:"laminar" yaml:"laminar"`
	// Submit tunes transaction submission and confirmation polling.
	Submit SubmitConfig `json:"submit" yaml:"submit"`
}

type NodeConfig struct {
	// URL of the fullnode, e.g. "https://fullnode.mainnet.aptoslabs.com".
	URL               string   `json:"url" yaml:"url"`
	RequestTimeout    *string  `json:"requestTimeout" yaml:"requestTimeout"`
	MaxAttempts       *int     `json:"maxAttempts" yaml:"maxAttempts"`
	InitialBackoff    *string  `json:"initialBackoff" yaml:"initialBackoff"`
	MaxBackoff        *string  `json:"maxBackoff" yaml:"maxBackoff"`
	RequestsPerSecond *float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             *int     `json:"burst" yaml:"burst"`
}

type SubmitConfig struct {
	MaxGasAmount     *uint64 `json:"maxGasAmount" yaml:"maxGasAmount"`
	GasUnitPrice     *uint64 `json:"gasUnitPrice" yaml:"gasUnitPrice"`
	ExpirationWindow *string `json:"expirationWindow" yaml:"expirationWindow"`
	PollInterval     *string `json:"pollInterval" yaml:"pollInterval"`
	MaxPollInterval  *string `json:"maxPollInterval" yaml:"maxPollInterval"`
	MaxResubmissions *int    `json:"maxResubmissions" yaml:"maxResubmissions"`
}

// P returns a pointer to the given value, for setting optional fields.
func P[T any](v T) *T {
	return &v
}

var ConfigDefaults = Config{
	Node: NodeConfig{
		RequestTimeout:    P("30s"),
		MaxAttempts:       P(3),
		InitialBackoff:    P("100ms"),
		MaxBackoff:        P("2s"),
		RequestsPerSecond: P(float64(0)),
		Burst:             P(0),
	},
	Submit: SubmitConfig{
		MaxGasAmount:     P(uint64(1_000_000)),
		GasUnitPrice:     P(uint64(100)),
		ExpirationWindow: P("30s"),
		PollInterval:     P("200ms"),
		MaxPollInterval:  P("2s"),
		MaxResubmissions: P(1),
	},
}

func durationOr(v *string, def *string) time.Duration {
	s := *def
	if v != nil {
		s = *v
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(*def)
	}
	return d
}

func intOr(v *int, def *int) int {
	if v != nil {
		return *v
	}
	return *def
}

func uint64Or(v *uint64, def *uint64) uint64 {
	if v != nil {
		return *v
	}
	return *def
}

func float64Or(v *float64, def *float64) float64 {
	if v != nil {
		return *v
	}
	return *def
}

func (c *Config) gatewayConfig() gateway.Config {
	d := ConfigDefaults.Node
	return gateway.Config{
		URL:               c.Node.URL,
		RequestTimeout:    durationOr(c.Node.RequestTimeout, d.RequestTimeout),
		MaxAttempts:       intOr(c.Node.MaxAttempts, d.MaxAttempts),
		InitialBackoff:    durationOr(c.Node.InitialBackoff, d.InitialBackoff),
		MaxBackoff:        durationOr(c.Node.MaxBackoff, d.MaxBackoff),
		RequestsPerSecond: float64Or(c.Node.RequestsPerSecond, d.RequestsPerSecond),
		Burst:             intOr(c.Node.Burst, d.Burst),
	}
}

func (c *Config) orchestratorConfig(chainID uint8, laminar lamtypes.Address) orchestrator.Config {
	d := ConfigDefaults.Submit
	return orchestrator.Config{
		ChainID:          chainID,
		LaminarAddress:   laminar,
		MaxGasAmount:     uint64Or(c.Submit.MaxGasAmount, d.MaxGasAmount),
		GasUnitPrice:     uint64Or(c.Submit.GasUnitPrice, d.GasUnitPrice),
		ExpirationWindow: durationOr(c.Submit.ExpirationWindow, d.ExpirationWindow),
		PollInterval:     durationOr(c.Submit.PollInterval, d.PollInterval),
		MaxPollInterval:  durationOr(c.Submit.MaxPollInterval, d.MaxPollInterval),
		MaxResubmissions: intOr(c.Submit.MaxResubmissions, d.MaxResubmissions),
	}
}
