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
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// Signer signs transaction signing messages on behalf of one account.
// Implementations may hold the key locally or proxy to an external
// signing service.
type Signer interface {
	Address() lamtypes.Address
	PublicKey() []byte
	Sign(ctx context.Context, message []byte) ([]byte, error)
}

// ed25519 single-key scheme identifier used in authentication key
// derivation.
const ed25519Scheme = 0x00

// LocalSigner holds an ed25519 key in memory.
type LocalSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr lamtypes.Address
}

// NewLocalSigner wraps an ed25519 private key. The account address is
// derived from the public key unless overridden with SetAddress.
func NewLocalSigner(priv ed25519.PrivateKey) *LocalSigner {
	pub := priv.Public().(ed25519.PublicKey)
	return &LocalSigner{priv: priv, pub: pub, addr: deriveAddress(pub)}
}

// NewLocalSignerFromHex parses a hex-encoded ed25519 key, with or
// without a 0x prefix. Accepts a 32-byte seed or a 64-byte full key.
func NewLocalSignerFromHex(key string) (*LocalSigner, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, lamapi.WrapError(lamapi.ErrorKindValidation, err, "invalid private key hex")
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return NewLocalSigner(ed25519.NewKeyFromSeed(raw)), nil
	case ed25519.PrivateKeySize:
		return NewLocalSigner(ed25519.PrivateKey(raw)), nil
	}
	return nil, lamapi.NewError(lamapi.ErrorKindValidation,
		"private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
}

// SignerFromProfile builds a LocalSigner from an Aptos CLI profile.
func SignerFromProfile(profile *Profile) (*LocalSigner, error) {
	signer, err := NewLocalSignerFromHex(profile.PrivateKey)
	if err != nil {
		return nil, err
	}
	if profile.Account != "" {
		addr, err := lamtypes.ParseAddress(profile.Account)
		if err != nil {
			return nil, lamapi.WrapError(lamapi.ErrorKindValidation, err, "invalid profile account address")
		}
		signer.addr = addr
	}
	return signer, nil
}

// deriveAddress computes the account address for a single ed25519 key:
// sha3-256 over the public key followed by the scheme identifier.
func deriveAddress(pub ed25519.PublicKey) lamtypes.Address {
	preimage := make([]byte, 0, len(pub)+1)
	preimage = append(preimage, pub...)
	preimage = append(preimage, ed25519Scheme)
	return lamtypes.Address(sha3.Sum256(preimage))
}

func (s *LocalSigner) Address() lamtypes.Address {
	return s.addr
}

func (s *LocalSigner) PublicKey() []byte {
	return s.pub
}

func (s *LocalSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}
