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

// Package gateway is the only component that talks to an Aptos fullnode.
// It wraps the node REST API in typed calls, classifies every failure
// into the client's error taxonomy, and absorbs transient faults with
// bounded exponential backoff so callers above it never retry
// themselves.
package gateway

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/laminar-markets/laminar-client-go/internal/log"
	"github.com/laminar-markets/laminar-client-go/pkg/lamapi"
	"github.com/laminar-markets/laminar-client-go/pkg/lamtypes"
)

// bcsContentType is required by the node for signed transaction bodies.
const bcsContentType = "application/x.aptos.signed_transaction+bcs"

// Config tunes the HTTP client. Zero values fall back to the defaults
// resolved by the facade config.
type Config struct {
	// URL is the fullnode base URL, e.g. "https://fullnode.mainnet.aptoslabs.com".
	URL string
	// RequestTimeout bounds each individual HTTP attempt.
	RequestTimeout time.Duration
	// MaxAttempts bounds retries of one logical call, including the
	// first attempt.
	MaxAttempts int
	// InitialBackoff and MaxBackoff shape the retry schedule. Jitter is
	// applied by the backoff implementation.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RequestsPerSecond rate-limits outbound calls; zero disables the
	// limiter.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	http        *resty.Client
	limiter     *rate.Limiter
	maxAttempts int
	initial     time.Duration
	maxInterval time.Duration
}

func NewClient(conf Config) *Client {
	httpClient := resty.New().
		SetBaseURL(conf.URL+"/v1").
		SetHeader("Accept", "application/json")
	if conf.RequestTimeout > 0 {
		httpClient.SetTimeout(conf.RequestTimeout)
	}

	var limiter *rate.Limiter
	if conf.RequestsPerSecond > 0 {
		burst := conf.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(conf.RequestsPerSecond), burst)
	}

	maxAttempts := conf.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	initial := conf.InitialBackoff
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	maxInterval := conf.MaxBackoff
	if maxInterval <= 0 {
		maxInterval = 2 * time.Second
	}

	return &Client{
		http:        httpClient,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		initial:     initial,
		maxInterval: maxInterval,
	}
}

// withRetry runs op with exponential backoff and jitter, retrying only
// failures classified as network errors. Everything else is final on
// the first occurrence.
func (c *Client) withRetry(ctx context.Context, name string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initial
	policy.MaxInterval = c.maxInterval

	attempt := 0
	wrapped := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(lamapi.WrapError(lamapi.ErrorKindNetwork, err, "%s aborted", name))
			}
		}
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !lamapi.IsNetwork(err) {
			return backoff.Permanent(err)
		}
		log.L(ctx).Warnf("%s attempt %d/%d failed: %v", name, attempt, c.maxAttempts, err)
		return err
	}

	err := backoff.Retry(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxAttempts-1)), ctx))
	if permanent, ok := err.(*backoff.PermanentError); ok {
		return permanent.Err
	}
	return err
}

// classify maps one HTTP exchange to the error taxonomy. A nil return
// means the response was a success.
func classify(resp *resty.Response, err error, apiErr *lamapi.AptosError) error {
	if err != nil {
		return lamapi.WrapError(lamapi.ErrorKindNetwork, err, "node request failed")
	}
	if !resp.IsError() {
		return nil
	}

	status := resp.StatusCode()
	code := ""
	message := resp.Status()
	if apiErr != nil && apiErr.Message != "" {
		code = apiErr.ErrorCode
		message = apiErr.Message
	}

	var kind lamapi.ErrorKind
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		kind = lamapi.ErrorKindNetwork
	case code == lamapi.ErrorCodeSequenceNumberTooOld,
		code == lamapi.ErrorCodeInvalidTransactionUpdate,
		code == lamapi.ErrorCodeVMError:
		// The node reports a stale or reused sequence number under
		// these codes; the orchestrator resyncs and resubmits once.
		kind = lamapi.ErrorKindSequenceMismatch
	default:
		kind = lamapi.ErrorKindValidation
	}

	e := lamapi.NewError(kind, "node returned %d: %s", status, message)
	e.HTTPStatus = status
	e.ErrorCode = code
	return e
}

// GetIndex fetches the ledger summary, including the chain id every
// transaction must be bound to.
func (c *Client) GetIndex(ctx context.Context) (*lamapi.NodeIndex, error) {
	var index lamapi.NodeIndex
	err := c.withRetry(ctx, "get index", func() error {
		var apiErr lamapi.AptosError
		resp, err := c.http.R().SetContext(ctx).SetResult(&index).SetError(&apiErr).Get("/")
		return classify(resp, err, &apiErr)
	})
	if err != nil {
		return nil, err
	}
	return &index, nil
}

// GetAccount fetches the account record holding the authoritative
// on-chain sequence number.
func (c *Client) GetAccount(ctx context.Context, addr lamtypes.Address) (*lamapi.AccountData, error) {
	var account lamapi.AccountData
	err := c.withRetry(ctx, "get account", func() error {
		var apiErr lamapi.AptosError
		resp, err := c.http.R().SetContext(ctx).
			SetResult(&account).SetError(&apiErr).
			Get("/accounts/" + addr.Hex())
		return classify(resp, err, &apiErr)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccountResource fetches one typed resource under an account.
// Returns nil with no error when the resource does not exist.
func (c *Client) GetAccountResource(ctx context.Context, addr lamtypes.Address, resourceType string) (*lamapi.MoveResource, error) {
	var resource lamapi.MoveResource
	found := false
	err := c.withRetry(ctx, "get resource", func() error {
		var apiErr lamapi.AptosError
		resp, err := c.http.R().SetContext(ctx).
			SetResult(&resource).SetError(&apiErr).
			Get("/accounts/" + addr.Hex() + "/resource/" + resourceType)
		if err == nil && resp.StatusCode() == http.StatusNotFound {
			return nil
		}
		if cerr := classify(resp, err, &apiErr); cerr != nil {
			return cerr
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &resource, nil
}

// GetAccountResources fetches all resources under an account.
func (c *Client) GetAccountResources(ctx context.Context, addr lamtypes.Address) ([]lamapi.MoveResource, error) {
	var resources []lamapi.MoveResource
	err := c.withRetry(ctx, "get resources", func() error {
		var apiErr lamapi.AptosError
		resp, err := c.http.R().SetContext(ctx).
			SetResult(&resources).SetError(&apiErr).
			Get("/accounts/" + addr.Hex() + "/resources")
		return classify(resp, err, &apiErr)
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}

// GetAccountEvents pages through an event stream identified by the
// event handle struct and field under the account.
func (c *Client) GetAccountEvents(ctx context.Context, addr lamtypes.Address, handleStruct, field string, start, limit uint64) ([]lamapi.RawEvent, error) {
	var events []lamapi.RawEvent
	err := c.withRetry(ctx, "get events", func() error {
		var apiErr lamapi.AptosError
		req := c.http.R().SetContext(ctx).SetResult(&events).SetError(&apiErr)
		if limit > 0 {
			req.SetQueryParam("limit", strconv.FormatUint(limit, 10))
		}
		if start > 0 {
			req.SetQueryParam("start", strconv.FormatUint(start, 10))
		}
		resp, err := req.Get("/accounts/" + addr.Hex() + "/events/" + handleStruct + "/" + field)
		return classify(resp, err, &apiErr)
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// SubmitTransaction posts a BCS-encoded signed transaction. Sequence
// mismatch classification happens here so the orchestrator can react
// without inspecting response bodies.
func (c *Client) SubmitTransaction(ctx context.Context, signedTx []byte) (*lamapi.PendingTransaction, error) {
	var pending lamapi.PendingTransaction
	err := c.withRetry(ctx, "submit transaction", func() error {
		var apiErr lamapi.AptosError
		resp, err := c.http.R().SetContext(ctx).
			SetHeader("Content-Type", bcsContentType).
			SetBody(signedTx).
			SetResult(&pending).SetError(&apiErr).
			Post("/transactions")
		return classify(resp, err, &apiErr)
	})
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

// GetTransactionByHash polls one transaction. A not-yet-known hash
// returns nil with no error; the caller decides whether that means
// still-propagating or expired.
func (c *Client) GetTransactionByHash(ctx context.Context, hash lamtypes.Bytes32) (*lamapi.Transaction, error) {
	var tx lamapi.Transaction
	found := false
	err := c.withRetry(ctx, "get transaction", func() error {
		var apiErr lamapi.AptosError
		resp, err := c.http.R().SetContext(ctx).
			SetResult(&tx).SetError(&apiErr).
			Get("/transactions/by_hash/" + hash.String())
		if err == nil && resp.StatusCode() == http.StatusNotFound {
			return nil
		}
		if cerr := classify(resp, err, &apiErr); cerr != nil {
			return cerr
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &tx, nil
}

// SimulateTransaction runs the transaction against current state
// without committing, for gas estimation. The body is the BCS signed
// transaction with a zeroed signature.
func (c *Client) SimulateTransaction(ctx context.Context, signedTx []byte) ([]lamapi.Transaction, error) {
	var results []lamapi.Transaction
	err := c.withRetry(ctx, "simulate transaction", func() error {
		var apiErr lamapi.AptosError
		resp, err := c.http.R().SetContext(ctx).
			SetHeader("Content-Type", bcsContentType).
			SetBody(signedTx).
			SetResult(&results).SetError(&apiErr).
			Post("/transactions/simulate")
		return classify(resp, err, &apiErr)
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, lamapi.NewError(lamapi.ErrorKindNetwork, "simulation returned no results")
	}
	return results, nil
}

// BaseURL returns the resolved node API root, for logging.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}
