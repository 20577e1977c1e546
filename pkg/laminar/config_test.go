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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

func TestConfigDefaultsResolution(t *testing.T) {
	conf := &Config{Node: NodeConfig{URL: "http://node"}}

	gw := conf.gatewayConfig()
	assert.Equal(t, "http://node", gw.URL)
	assert.Equal(t, 30*time.Second, gw.RequestTimeout)
	assert.Equal(t, 3, gw.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, gw.InitialBackoff)
	assert.Equal(t, 2*time.Second, gw.MaxBackoff)
	assert.Zero(t, gw.RequestsPerSecond)

	orch := conf.orchestratorConfig(33, lamtypes.MustParseAddress("0x1a31"))
	assert.Equal(t, uint8(33), orch.ChainID)
	assert.Equal(t, uint64(1_000_000), orch.MaxGasAmount)
	assert.Equal(t, uint64(100), orch.GasUnitPrice)
	assert.Equal(t, 30*time.Second, orch.ExpirationWindow)
	assert.Equal(t, 200*time.Millisecond, orch.PollInterval)
	assert.Equal(t, 2*time.Second, orch.MaxPollInterval)
	assert.Equal(t, 1, orch.MaxResubmissions)
}

func TestConfigOverrides(t *testing.T) {
	conf := &Config{
		Node: NodeConfig{
			URL:            "http://node",
			RequestTimeout: P("5s"),
			MaxAttempts:    P(7),
		},
		Submit: SubmitConfig{
			GasUnitPrice:     P(uint64(250)),
			ExpirationWindow: P("2m"),
			MaxResubmissions: P(0),
		},
	}

	gw := conf.gatewayConfig()
	assert.Equal(t, 5*time.Second, gw.RequestTimeout)
	assert.Equal(t, 7, gw.MaxAttempts)

	orch := conf.orchestratorConfig(1, lamtypes.MustParseAddress("0x1"))
	assert.Equal(t, uint64(250), orch.GasUnitPrice)
	assert.Equal(t, 2*time.Minute, orch.ExpirationWindow)
	assert.Equal(t, 0, orch.MaxResubmissions)

	// Unparseable durations fall back to the default.
	conf.Submit.PollInterval = P("soon")
	assert.Equal(t, 200*time.Millisecond, conf.orchestratorConfig(1, lamtypes.MustParseAddress("0x1")).PollInterval)
}

func TestConfigFromYAML(t *testing.T) {
	doc := `
node:
  url: "https://fullnode.mainnet.aptoslabs.com"
  requestTimeout: "10s"
laminar: "0x1a31"
submit:
  gasUnitPrice: 150
  maxResubmissions: 2
`
	var conf Config
	require.NoError(t, yaml.Unmarshal([]byte(doc), &conf))
	assert.Equal(t, "https://fullnode.mainnet.aptoslabs.com", conf.Node.URL)
	assert.Equal(t, "0x1a31", conf.Laminar)
	require.NotNil(t, conf.Submit.GasUnitPrice)
	assert.Equal(t, uint64(150), *conf.Submit.GasUnitPrice)
	assert.Equal(t, 10*time.Second, conf.gatewayConfig().RequestTimeout)
	assert.Equal(t, 2, conf.orchestratorConfig(1, lamtypes.MustParseAddress("0x1")).MaxResubmissions)
}
