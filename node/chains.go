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

package node

import (
	"context"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/wallet/keystore"
)

type rpcURLFunc func(web3.ChainDescriptor) string

// backends holds one chain client per chain for the keystore wallet host.
type backends struct {
	chains web3.ROChainRegistry
	rpcURL rpcURLFunc

	mtx     sync.Mutex
	clients map[uint64]*ethclient.Client
}

func newBackends(chains web3.ROChainRegistry, rpcURL rpcURLFunc) *backends {
	return &backends{
		chains:  chains,
		rpcURL:  rpcURL,
		clients: make(map[uint64]*ethclient.Client),
	}
}

// Backend implements keystore.BackendResolver. Only registered chains are
// known to the wallet.
func (b *backends) Backend(chainID uint64) (keystore.BackendClient, error) {
	chain, ok := b.chains.Chain(chainID)
	if !ok {
		return nil, errors.Errorf("chain %d is not registered", chainID)
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if client, ok := b.clients[chainID]; ok {
		return client, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	client, err := ethclient.DialContext(ctx, b.rpcURL(chain))
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to node of chain %d", chainID)
	}
	b.clients[chainID] = client
	return client, nil
}

func (b *backends) Close() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	for id, client := range b.clients {
		client.Close()
		delete(b.clients, id)
	}
}

// tokenReaders implements rest.TokenReader with one chain reader per chain.
type tokenReaders struct {
	chains web3.ROChainRegistry
	rpcURL rpcURLFunc

	mtx     sync.Mutex
	readers map[uint64]*ethereum.ChainReader
}

func newTokenReaders(chains web3.ROChainRegistry, rpcURL rpcURLFunc) *tokenReaders {
	return &tokenReaders{
		chains:  chains,
		rpcURL:  rpcURL,
		readers: make(map[uint64]*ethereum.ChainReader),
	}
}

func (t *tokenReaders) reader(ctx context.Context, chainID uint64) (*ethereum.ChainReader, error) {
	chain, ok := t.chains.Chain(chainID)
	if !ok {
		return nil, web3.NewAPIErrResourceNotFound("chain", strconv.FormatUint(chainID, 10))
	}
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if r, ok := t.readers[chainID]; ok {
		return r, nil
	}
	url := t.rpcURL(chain)
	r, err := ethereum.DialChainReader(ctx, url, chainID, connTimeout)
	if err != nil {
		return nil, web3.NewAPIErrNetwork(ethereum.RedactURL(err, url), chainID, "dial")
	}
	t.readers[chainID] = r
	return r, nil
}

// TokenInfo implements rest.TokenReader.
func (t *tokenReaders) TokenInfo(ctx context.Context, chainID uint64, token string) (ethereum.TokenInfo, error) {
	r, err := t.reader(ctx, chainID)
	if err != nil {
		return ethereum.TokenInfo{}, err
	}
	info, err := r.TokenInfo(ctx, token)
	return info, t.redact(err, chainID)
}

// TokenBalance implements rest.TokenReader.
func (t *tokenReaders) TokenBalance(ctx context.Context, chainID uint64, token, holder string) (*big.Int, error) {
	r, err := t.reader(ctx, chainID)
	if err != nil {
		return nil, err
	}
	bal, err := r.TokenBalance(ctx, token, holder)
	return bal, t.redact(err, chainID)
}

// TokenAllowance implements rest.TokenReader.
func (t *tokenReaders) TokenAllowance(ctx context.Context, chainID uint64, token, owner, spender string) (*big.Int, error) {
	r, err := t.reader(ctx, chainID)
	if err != nil {
		return nil, err
	}
	allowance, err := r.TokenAllowance(ctx, token, owner, spender)
	return allowance, t.redact(err, chainID)
}

// redact keeps InvalidTokenError matchable, as the rest layer maps it to an
// invalid argument.
func (t *tokenReaders) redact(err error, chainID uint64) error {
	if err == nil {
		return nil
	}
	var invalidToken blockchain.InvalidTokenError
	if errors.As(err, &invalidToken) {
		return err
	}
	chain, _ := t.chains.Chain(chainID)
	return ethereum.RedactURL(err, t.rpcURL(chain))
}

func (t *tokenReaders) Close() {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for id, r := range t.readers {
		r.Close()
		delete(t.readers, id)
	}
}
