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

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/wallet"
)

// Ethers reads through a typed chain client and writes through the signer of
// the connected wallet. It is the only provider that supports signing
// messages.
type Ethers struct {
	*base
	client *ethclient.Client
}

var _ web3.Provider = &Ethers{}

// NewEthers returns an ethers style provider for the chain.
func NewEthers(cfg Config) (*Ethers, error) {
	b, err := newBase(web3.ProviderEthers, cfg)
	if err != nil {
		return nil, err
	}
	return &Ethers{base: b, client: ethclient.NewClient(b.rpc)}, nil
}

// GetBalance returns the native currency balance of the address.
func (p *Ethers) GetBalance(ctx context.Context, address string) (string, error) {
	p.WithField("method", "GetBalance").Info("Received request with params:", address)

	addr, apiErr := p.parseAddress(ArgNameAddress, address)
	if apiErr != nil {
		return "", p.logErr("GetBalance", apiErr)
	}
	wei, err := p.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return "", p.logErr("GetBalance", p.networkErr(err, "eth_getBalance"))
	}
	return p.format(wei), nil
}

// ConnectWallet requests access to the accounts of the wallet.
func (p *Ethers) ConnectWallet(ctx context.Context) (web3.Signer, error) {
	return p.connect(ctx)
}

// SendTransaction sends amount to the address from the connected account.
func (p *Ethers) SendTransaction(ctx context.Context, to, amount string) (string, error) {
	return p.sendTransfer(ctx, to, amount)
}

// SignMessage signs the message with the connected account. The signature is
// hex encoded with V = 27/28.
func (p *Ethers) SignMessage(ctx context.Context, message string) (string, error) {
	p.WithField("method", "SignMessage").Info("Received request with params:", message)

	from, apiErr := p.connectedAccount(OpSignMessage)
	if apiErr != nil {
		return "", p.logErr("SignMessage", apiErr)
	}
	var sig hexutil.Bytes
	err := p.host.Request(ctx, &sig, wallet.MethodPersonalSign, hexutil.Encode([]byte(message)), from.Hex())
	if err != nil {
		return "", p.logErr("SignMessage", p.walletErr(err, OpSignMessage, wallet.MethodPersonalSign))
	}
	return sig.String(), nil
}
