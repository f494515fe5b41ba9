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

// Package client implements a client for the REST API of the node.
//
// Errors returned by the node are decoded into web3.APIError, so that callers
// can handle them the same way as errors returned in process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/api/rest"
	"github.com/hyperledger-labs/web3-node/yield"
)

// Client sends requests to the node.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the node at the url in the config. No request is
// made.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("invalid node url %q: should be an http or https url", cfg.URL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// URL returns the url of the node.
func (c *Client) URL() string {
	return c.baseURL
}

// Chains returns the chains supported by the node.
func (c *Client) Chains(ctx context.Context) ([]rest.Chain, error) {
	var chains []rest.Chain
	err := c.do(ctx, http.MethodGet, "/api/v1/chains", nil, &chains)
	return chains, err
}

// Pools returns the yield pools on the chain.
func (c *Client) Pools(ctx context.Context, chainID uint64) ([]yield.Pool, error) {
	var resp rest.PoolsResp
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/chains/%d/pools", chainID), nil, &resp)
	return resp.Pools, err
}

// OptimalPools returns the pools on the chain within the risk tolerance,
// ordered by their risk adjusted return.
func (c *Client) OptimalPools(ctx context.Context, chainID uint64, riskTolerance int) ([]yield.Pool, error) {
	var resp rest.PoolsResp
	path := fmt.Sprintf("/api/v1/chains/%d/pools/optimal?%s=%d", chainID, rest.ArgNameRiskTolerance, riskTolerance)
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Pools, err
}

// Token returns the metadata of the token on the chain, and the balance of
// holder if it is not empty.
func (c *Client) Token(ctx context.Context, chainID uint64, token, holder string) (rest.Token, error) {
	path := fmt.Sprintf("/api/v1/chains/%d/tokens/%s", chainID, url.PathEscape(token))
	if holder != "" {
		path += "?" + url.Values{string(rest.ArgNameHolder): {holder}}.Encode()
	}
	var resp rest.Token
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

// TokenPrice returns the USD price of the token.
func (c *Client) TokenPrice(ctx context.Context, chainID uint64, token string) (rest.TokenPrice, error) {
	var resp rest.TokenPrice
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/chains/%d/tokens/%s/price", chainID, url.PathEscape(token)), nil, &resp)
	return resp, err
}

// Allowance returns the amount of the token the spender may transfer on
// behalf of the owner.
func (c *Client) Allowance(ctx context.Context, chainID uint64, token, owner, spender string) (rest.Allowance, error) {
	path := fmt.Sprintf("/api/v1/chains/%d/tokens/%s/allowance?", chainID, url.PathEscape(token)) + url.Values{
		string(rest.ArgNameOwner):   {owner},
		string(rest.ArgNameSpender): {spender},
	}.Encode()
	var resp rest.Allowance
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

// State returns the state of the session.
func (c *Client) State(ctx context.Context) (rest.SessionState, error) {
	var resp rest.SessionState
	err := c.do(ctx, http.MethodGet, "/api/v1/session", nil, &resp)
	return resp, err
}

// SetProviderType selects the provider type of the session.
func (c *Client) SetProviderType(ctx context.Context, t web3.ProviderType) (rest.SessionState, error) {
	var resp rest.SessionState
	err := c.do(ctx, http.MethodPut, "/api/v1/session/provider", rest.SetProviderTypeReq{ProviderType: string(t)}, &resp)
	return resp, err
}

// SetChain selects the chain of the session.
func (c *Client) SetChain(ctx context.Context, chainID uint64) (rest.SessionState, error) {
	var resp rest.SessionState
	err := c.do(ctx, http.MethodPut, "/api/v1/session/chain", rest.SetChainReq{ChainID: chainID}, &resp)
	return resp, err
}

// SetAddress sets the address watched by the session and returns its balance.
func (c *Client) SetAddress(ctx context.Context, address string) (rest.Balance, error) {
	var resp rest.Balance
	err := c.do(ctx, http.MethodPut, "/api/v1/session/address", rest.SetAddressReq{Address: address}, &resp)
	return resp, err
}

// ConnectWallet connects the wallet of the node.
func (c *Client) ConnectWallet(ctx context.Context) (rest.ConnectResp, error) {
	var resp rest.ConnectResp
	err := c.do(ctx, http.MethodPost, "/api/v1/session/connect", nil, &resp)
	return resp, err
}

// RefreshBalance reads the balance of the address of the session.
func (c *Client) RefreshBalance(ctx context.Context) (rest.Balance, error) {
	var resp rest.Balance
	err := c.do(ctx, http.MethodPost, "/api/v1/session/balance", nil, &resp)
	return resp, err
}

// SendTransaction transfers amount, in the native currency, to the address.
func (c *Client) SendTransaction(ctx context.Context, to, amount string) (rest.Tx, error) {
	var resp rest.Tx
	err := c.do(ctx, http.MethodPost, "/api/v1/session/transactions", rest.SendTxReq{To: to, Amount: amount}, &resp)
	return resp, err
}

// TransferToken transfers amount, in token units, to the address.
func (c *Client) TransferToken(ctx context.Context, token, to, amount string) (rest.Tx, error) {
	var resp rest.Tx
	err := c.do(ctx, http.MethodPost, "/api/v1/session/tokens/"+url.PathEscape(token)+"/transfer",
		rest.TokenTransferReq{To: to, Amount: amount}, &resp)
	return resp, err
}

// ApproveToken allows the spender to transfer up to amount of the token on
// behalf of the connected account.
func (c *Client) ApproveToken(ctx context.Context, token, spender, amount string) (rest.Tx, error) {
	var resp rest.Tx
	err := c.do(ctx, http.MethodPost, "/api/v1/session/tokens/"+url.PathEscape(token)+"/approve",
		rest.TokenApproveReq{Spender: spender, Amount: amount}, &resp)
	return resp, err
}

// SignMessage signs the message with the connected wallet.
func (c *Client) SignMessage(ctx context.Context, message string) (string, error) {
	var resp rest.SignResp
	err := c.do(ctx, http.MethodPost, "/api/v1/session/sign", rest.SignReq{Message: message}, &resp)
	return resp.Signature, err
}

// VerifySignature checks the signature on the node.
func (c *Client) VerifySignature(ctx context.Context, message, signature, address string) (bool, error) {
	var resp rest.VerifyResp
	err := c.do(ctx, http.MethodPost, "/api/v1/signatures/verify",
		rest.VerifyReq{Message: message, Signature: signature, Address: address}, &resp)
	return resp.Valid, err
}

// Simulate sends the simulation request and returns the status and the raw
// body of the response.
func (c *Client) Simulate(ctx context.Context, request map[string]interface{}) (int, []byte, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/tenderly/simulate", request)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() // nolint: errcheck
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading response")
	}
	return resp.StatusCode, body, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	resp, err := c.send(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeErr(resp)
	}
	if err = json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, reqBody interface{}) (*http.Response, error) {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	return resp, errors.Wrap(err, "sending request to node")
}

func decodeErr(resp *http.Response) error {
	var errResp rest.ErrorResp
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading error response")
	}
	if err = json.Unmarshal(data, &errResp); err != nil || errResp.Error.Code == 0 {
		return errors.Errorf("node returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return ToAPIError(errResp.Error)
}

// ToAPIError converts an error returned by the REST API to an APIError.
// Additional info is returned in its decoded JSON form.
func ToAPIError(msg rest.MsgError) web3.APIError {
	return web3.NewAPIErr(parseCategory(msg.Category), web3.ErrorCode(msg.Code), errors.New(msg.Message), msg.AddInfo)
}

func parseCategory(s string) web3.ErrorCategory {
	for c := web3.ParticipantError; c <= web3.InternalError; c++ {
		if c.String() == s {
			return c
		}
	}
	return web3.InternalError
}
