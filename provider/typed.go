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

package provider

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain"
	"github.com/hyperledger-labs/web3-node/wallet"
)

// Typed uses a public client for reads and a separate wallet client for
// writes, in the style of the modern typed libraries. Reads are batched with
// a check of the chain id. It does not support signing messages.
type Typed struct {
	*base
	public publicClient
	wallet walletClient
}

var _ web3.Provider = &Typed{}

// publicClient serves the unauthenticated reads.
type publicClient struct {
	rpc     *rpc.Client
	chainID uint64
}

// walletClient resolves the account and submits transactions through the
// wallet host.
type walletClient struct {
	host web3.WalletHost
}

// NewTyped returns a typed style provider for the chain.
func NewTyped(cfg Config) (*Typed, error) {
	b, err := newBase(web3.ProviderTyped, cfg)
	if err != nil {
		return nil, err
	}
	return &Typed{
		base:   b,
		public: publicClient{rpc: b.rpc, chainID: cfg.Chain.ChainID},
		wallet: walletClient{host: cfg.Host},
	}, nil
}

// balance reads the chain id and the balance in a single batch. It fails if
// the endpoint serves a different chain.
func (c publicClient) balance(ctx context.Context, addr common.Address) (*hexutil.Big, string, error) {
	var chainID hexutil.Uint64
	var bal hexutil.Big
	batch := []rpc.BatchElem{
		{Method: "eth_chainId", Result: &chainID},
		{Method: "eth_getBalance", Args: []interface{}{addr, "latest"}, Result: &bal},
	}
	if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, "eth_getBalance", err
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, elem.Method, elem.Error
		}
	}
	if uint64(chainID) != c.chainID {
		return nil, "eth_chainId", blockchain.NewChainMismatchError(c.chainID, uint64(chainID))
	}
	return &bal, "", nil
}

// account returns the first account exposed by the wallet.
func (c walletClient) account(ctx context.Context) (common.Address, bool, error) {
	var accs []common.Address
	if err := c.host.Request(ctx, &accs, wallet.MethodAccounts); err != nil {
		return common.Address{}, false, err
	}
	if len(accs) == 0 {
		return common.Address{}, false, nil
	}
	return accs[0], true, nil
}

// GetBalance returns the native currency balance of the address.
func (p *Typed) GetBalance(ctx context.Context, address string) (string, error) {
	p.WithField("method", "GetBalance").Info("Received request with params:", address)

	addr, apiErr := p.parseAddress(ArgNameAddress, address)
	if apiErr != nil {
		return "", p.logErr("GetBalance", apiErr)
	}
	bal, method, err := p.public.balance(ctx, addr)
	if err != nil {
		return "", p.logErr("GetBalance", p.networkErr(err, method))
	}
	return p.format(bal.ToInt()), nil
}

// ConnectWallet requests access to the accounts of the wallet.
func (p *Typed) ConnectWallet(ctx context.Context) (web3.Signer, error) {
	return p.connect(ctx)
}

// SendTransaction sends amount to the address. The sender is resolved from
// the wallet before each transaction, so that an account switched in the
// wallet is used.
func (p *Typed) SendTransaction(ctx context.Context, to, amount string) (string, error) {
	p.WithField("method", "SendTransaction").Infof("Received request with params %s, %s", to, amount)

	toAddr, value, apiErr := p.parseTransfer(to, amount)
	if apiErr != nil {
		return "", p.logErr("SendTransaction", apiErr)
	}
	if _, apiErr = p.connectedAccount(OpSendTransaction); apiErr != nil {
		return "", p.logErr("SendTransaction", apiErr)
	}
	from, ok, err := p.wallet.account(ctx)
	if err != nil {
		return "", p.logErr("SendTransaction", p.walletErr(err, OpSendTransaction, wallet.MethodAccounts))
	}
	if !ok {
		return "", p.logErr("SendTransaction", web3.NewAPIErrNotConnected(OpSendTransaction))
	}
	hash, apiErr := p.submit(ctx, OpSendTransaction, wallet.TxArgs{From: from.Hex(), To: toAddr.Hex(), Value: (*hexutil.Big)(value)})
	if apiErr != nil {
		return "", p.logErr("SendTransaction", apiErr)
	}
	return hash, nil
}

// SignMessage is not supported.
func (p *Typed) SignMessage(context.Context, string) (string, error) {
	return "", p.logErr("SignMessage", web3.NewAPIErrUnsupportedOperation(OpSignMessage, p.typ))
}
