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
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
)

// Classic issues raw JSON-RPC calls and decodes the responses itself, in the
// style of the classic RPC libraries. It does not support signing messages.
type Classic struct {
	*base
}

var _ web3.Provider = &Classic{}

// NewClassic returns a classic RPC style provider for the chain.
func NewClassic(cfg Config) (*Classic, error) {
	b, err := newBase(web3.ProviderClassic, cfg)
	if err != nil {
		return nil, err
	}
	return &Classic{base: b}, nil
}

// GetBalance returns the native currency balance of the address.
func (p *Classic) GetBalance(ctx context.Context, address string) (string, error) {
	p.WithField("method", "GetBalance").Info("Received request with params:", address)

	addr, apiErr := p.parseAddress(ArgNameAddress, address)
	if apiErr != nil {
		return "", p.logErr("GetBalance", apiErr)
	}
	var result string
	if err := p.rpc.CallContext(ctx, &result, "eth_getBalance", addr.Hex(), "latest"); err != nil {
		return "", p.logErr("GetBalance", p.networkErr(err, "eth_getBalance"))
	}
	wei, err := hexutil.DecodeBig(result)
	if err != nil {
		err = errors.Wrapf(err, "decoding balance %q", result)
		return "", p.logErr("GetBalance", p.networkErr(err, "eth_getBalance"))
	}
	return p.format(wei), nil
}

// ConnectWallet requests access to the accounts of the wallet.
func (p *Classic) ConnectWallet(ctx context.Context) (web3.Signer, error) {
	return p.connect(ctx)
}

// SendTransaction sends amount to the address from the connected account.
func (p *Classic) SendTransaction(ctx context.Context, to, amount string) (string, error) {
	return p.sendTransfer(ctx, to, amount)
}

// SignMessage is not supported.
func (p *Classic) SignMessage(context.Context, string) (string, error) {
	return "", p.logErr("SignMessage", web3.NewAPIErrUnsupportedOperation(OpSignMessage, p.typ))
}
