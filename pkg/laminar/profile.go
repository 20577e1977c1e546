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
	"os"

	"gopkg.in/yaml.v3"

	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
)

// Profile is one named profile from an Aptos CLI config file
// (.aptos/config.yaml). Account is optional; when present it overrides
// the address derived from the key, for accounts with rotated
// authentication keys.
type Profile struct {
	PrivateKey string `yaml:"private_key"`
	Account    string `yaml:"account"`
}

type profileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadProfile reads an Aptos CLI config file and returns the named
// profile.
func LoadProfile(path, name string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lamapi.WrapError(lamapi.ErrorKindValidation, err, "reading profile config %q", path)
	}
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, lamapi.WrapError(lamapi.ErrorKindValidation, err, "parsing profile config %q", path)
	}
	if file.Profiles == nil {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "profile config %q has no profiles section", path)
	}
	profile, ok := file.Profiles[name]
	if !ok {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "profile %q not found in %q", name, path)
	}
	if profile.PrivateKey == "" {
		return nil, lamapi.NewError(lamapi.ErrorKindValidation, "profile %q has no private key", name)
	}
	return &profile, nil
}
