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
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/currency"
	"github.com/hyperledger-labs/web3-node/wallet"
)

// TransferToken transfers amount of the ERC20 token to the address from the
// connected account. The amount is converted using the decimals read from
// the token contract.
func (b *base) TransferToken(ctx context.Context, token, to, amount string) (string, error) {
	return b.writeToken(ctx, tokenWrite{
		method: "TransferToken", op: OpTransferToken, call: "transfer",
		token: token, argName: ArgNameTo, counterparty: to, amount: amount,
	})
}

// ApproveToken sets the allowance of the spender in the ERC20 token for the
// connected account.
func (b *base) ApproveToken(ctx context.Context, token, spender, amount string) (string, error) {
	return b.writeToken(ctx, tokenWrite{
		method: "ApproveToken", op: OpApproveToken, call: "approve",
		token: token, argName: ArgNameSpender, counterparty: spender, amount: amount,
	})
}

// tokenWrite describes a call of an ERC20 method taking an address and an
// amount.
type tokenWrite struct {
	method, op, call string

	token        string
	argName      web3.ArgumentName
	counterparty string
	amount       string
}

func (b *base) writeToken(ctx context.Context, w tokenWrite) (string, error) {
	b.WithField("method", w.method).Infof("Received request with params %s, %s, %s", w.token, w.counterparty, w.amount)

	tokenAddr, counterparty, apiErr := b.parseTokenWrite(w)
	if apiErr != nil {
		return "", b.logErr(w.method, apiErr)
	}
	from, apiErr := b.connectedAccount(w.op)
	if apiErr != nil {
		return "", b.logErr(w.method, apiErr)
	}

	decimals, err := b.tokens.TokenDecimals(ctx, tokenAddr.Hex())
	if err != nil {
		return "", b.logErr(w.method, b.tokenErr(err, w.token))
	}
	value, err := currency.New("", decimals).Parse(w.amount)
	if err != nil {
		return "", b.logErr(w.method, web3.NewAPIErrInvalidAmount(err, ArgNameAmount, w.amount))
	}
	data, err := ethereum.PackERC20Call(w.call, counterparty, value)
	if err != nil {
		return "", b.logErr(w.method, web3.NewAPIErrUnknownInternal(err))
	}

	hash, apiErr := b.submit(ctx, w.op, wallet.TxArgs{From: from.Hex(), To: tokenAddr.Hex(), Data: data})
	if apiErr != nil {
		return "", b.logErr(w.method, apiErr)
	}
	return hash, nil
}

// parseTokenWrite validates the arguments that can be checked without
// knowing the decimals of the token. It makes no network calls.
func (b *base) parseTokenWrite(w tokenWrite) (token, counterparty common.Address, _ web3.APIError) {
	token, apiErr := b.parseAddress(ArgNameToken, w.token)
	if apiErr != nil {
		return common.Address{}, common.Address{}, apiErr
	}
	if counterparty, apiErr = b.parseAddress(w.argName, w.counterparty); apiErr != nil {
		return common.Address{}, common.Address{}, apiErr
	}
	if err := currency.ValidateAmount(w.amount); err != nil {
		return common.Address{}, common.Address{}, web3.NewAPIErrInvalidAmount(err, ArgNameAmount, w.amount)
	}
	return token, counterparty, nil
}

// tokenErr maps errors from reading the token contract. Addresses that do not
// hold a token are invalid arguments.
func (b *base) tokenErr(err error, token string) web3.APIError {
	var invalidToken blockchain.InvalidTokenError
	if errors.As(err, &invalidToken) {
		return web3.NewAPIErrInvalidArgument(err, ArgNameToken, token)
	}
	return b.networkErr(err, "eth_call")
}
