// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/hyperledger-labs/web3-node
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package simulation forwards transaction simulation requests to the Tenderly
// API. The node does not simulate transactions itself.
package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/log"
)

// DefaultBaseURL is the base url of the Tenderly API.
const DefaultBaseURL = "https://api.tenderly.co/api/v1"

// Header carrying the access key.
const accessKeyHeader = "X-Access-Key"

// DefaultMaxResponseSize is the default limit on the size of the upstream
// response that is passed through.
const DefaultMaxResponseSize = 16 << 20

// Config holds the Tenderly credentials.
type Config struct {
	BaseURL   string // Defaults to DefaultBaseURL.
	User      string
	Project   string
	AccessKey string
	Timeout   time.Duration // Defaults to 30s.

	// MaxResponseSize in bytes. Larger responses fail with a network error.
	// Defaults to DefaultMaxResponseSize.
	MaxResponseSize int64
}

// Client sends simulation requests to Tenderly.
type Client struct {
	log.Logger
	cfg        Config
	httpClient *http.Client
}

// Response is the upstream response, passed through without modification.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// NewClient returns a client for the given credentials. It fails if any of
// them is missing.
func NewClient(cfg Config) (*Client, error) {
	required := []struct{ name, value string }{
		{"simulation user", cfg.User},
		{"simulation project", cfg.Project},
		{"simulation access key", cfg.AccessKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, web3.NewAPIErrInvalidConfig(errors.New("required for simulations"), r.name, "")
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = DefaultMaxResponseSize
	}
	return &Client{
		Logger:     log.NewLoggerWithField("component", "simulation"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) simulateURL() string {
	return fmt.Sprintf("%s/account/%s/project/%s/simulate", strings.TrimSuffix(c.cfg.BaseURL, "/"),
		c.cfg.User, c.cfg.Project)
}

// Simulate sends the simulation request. The fields of the request are sent
// as is, with save and save_if_fails set to true.
//
// Any response from the upstream, including error statuses, is returned
// without an error. An error is returned only if the request could not be
// made.
func (c *Client) Simulate(ctx context.Context, request map[string]interface{}) (Response, error) {
	payload := make(map[string]interface{}, len(request)+2)
	for k, v := range request {
		payload[k] = v
	}
	payload["save"] = true
	payload["save_if_fails"] = true

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, web3.NewAPIErrInvalidArgument(err, "simulation request", "")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.simulateURL(), bytes.NewReader(body))
	if err != nil {
		return Response{}, web3.NewAPIErrUnknownInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessKeyHeader, c.cfg.AccessKey)

	c.WithField("network_id", request["network_id"]).Info("Sending simulation request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, c.networkErr(err)
	}
	defer resp.Body.Close() // nolint: errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseSize+1))
	if err != nil {
		return Response{}, c.networkErr(err)
	}
	if int64(len(respBody)) > c.cfg.MaxResponseSize {
		return Response{}, c.networkErr(errors.Errorf("response exceeds %d bytes", c.cfg.MaxResponseSize))
	}
	c.WithField("status", resp.StatusCode).Debug("Received simulation response")
	return Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

func (c *Client) networkErr(err error) web3.APIError {
	return web3.NewAPIErrNetwork(errors.WithMessage(err, "tenderly"), 0, "simulate")
}

// BalanceOfRequest returns a request that simulates reading the token
// balance of from, on the given network.
func BalanceOfRequest(networkID uint64, from, token string) (map[string]interface{}, error) {
	fromAddr, err := ethereum.ParseAddress(from)
	if err != nil {
		return nil, web3.NewAPIErrInvalidAddress(err, "from", from)
	}
	tokenAddr, err := ethereum.ParseAddress(token)
	if err != nil {
		return nil, web3.NewAPIErrInvalidAddress(err, "token", token)
	}
	input, err := ethereum.PackERC20Call("balanceOf", fromAddr)
	if err != nil {
		return nil, web3.NewAPIErrUnknownInternal(err)
	}
	return map[string]interface{}{
		"network_id": fmt.Sprint(networkID),
		"from":       fromAddr.Hex(),
		"to":         tokenAddr.Hex(),
		"input":      hexutil.Encode(input),
		"value":      "0",
	}, nil
}
