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

package ethereum

import (
	"context"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// ChainReader is a read-only client for a blockchain node. It is used for
// reads that are not part of the provider contract, such as token data.
type ChainReader struct {
	client  *ethclient.Client
	chainID uint64
}

// DialChainReader initializes a connection to the blockchain node at the url.
//
// For http endpoints, no request is made until the first read, so the errors
// from a wrong url or API key are returned by the reads.
func DialChainReader(ctx context.Context, url string, chainID uint64, connTimeout time.Duration) (*ChainReader, error) {
	ctx, cancel := context.WithTimeout(ctx, connTimeout)
	defer cancel()
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to node of chain %d", chainID)
	}
	return &ChainReader{client: client, chainID: chainID}, nil
}

// NewChainReader returns a reader over an existing client. Closing the
// reader closes the client.
func NewChainReader(client *ethclient.Client, chainID uint64) *ChainReader {
	return &ChainReader{client: client, chainID: chainID}
}

// ChainID returns the chain id the reader was configured for.
func (r *ChainReader) ChainID() uint64 { return r.chainID }

// BalanceAt reads the on-chain balance of the given address at the latest
// block.
func (r *ChainReader) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	bal, err := r.client.BalanceAt(ctx, addr, nil)
	return bal, errors.Wrap(err, "reading on-chain balance")
}

// Close closes the underlying connection.
func (r *ChainReader) Close() {
	r.client.Close()
}

// RedactURL removes the rpc url, which can contain an API key, from the
// error.
func RedactURL(err error, rpcURL string) error {
	if err == nil {
		return nil
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = errors.WithMessagef(urlErr.Err, "%s request to rpc endpoint", urlErr.Op)
	}
	if rpcURL != "" && strings.Contains(err.Error(), rpcURL) {
		err = errors.New(strings.ReplaceAll(err.Error(), rpcURL, "<rpc-url>"))
	}
	return err
}
