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

// Package rpchost implements a wallet host that forwards the requests to a
// JSON-RPC endpoint holding unlocked accounts, such as a development node.
package rpchost

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node/log"
)

// Host forwards wallet requests to a JSON-RPC endpoint.
type Host struct {
	log.Logger
	client *rpc.Client
}

// Dial returns a host for the endpoint at url. For http endpoints, no request
// is made until the first wallet request.
func Dial(ctx context.Context, url string) (*Host, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to wallet endpoint")
	}
	return New(client), nil
}

// New returns a host using the given client.
func New(client *rpc.Client) *Host {
	return &Host{
		Logger: log.NewLoggerWithField("wallet-host", "rpc"),
		client: client,
	}
}

// Request sends the request to the endpoint. Wallet errors returned by the
// endpoint keep their error codes.
func (h *Host) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	h.WithField("method", method).Debug("Forwarding wallet request")
	err := h.client.CallContext(ctx, result, method, params...)
	return errors.WithMessagef(err, "wallet request %s", method)
}

// Close closes the connection to the endpoint.
func (h *Host) Close() {
	h.client.Close()
}
