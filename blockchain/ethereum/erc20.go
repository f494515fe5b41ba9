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
	"strings"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node/blockchain"
)

// ERC20ABI is the subset of the ERC20 interface used by the node.
const ERC20ABI = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var erc20 = mustParseABI(ERC20ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TokenInfo holds the metadata of an ERC20 token.
type TokenInfo struct {
	Address     string
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
}

// TokenInfo reads the metadata of the ERC20 token at the given address.
//
// If the contract does not return data for any of the calls, an
// InvalidTokenError is returned.
func (r *ChainReader) TokenInfo(ctx context.Context, token string) (TokenInfo, error) {
	info := TokenInfo{Address: token}
	var err error
	if info.Name, err = callOne[string](ctx, r, token, "name"); err != nil {
		return TokenInfo{}, err
	}
	if info.Symbol, err = callOne[string](ctx, r, token, "symbol"); err != nil {
		return TokenInfo{}, err
	}
	if info.Decimals, err = callOne[uint8](ctx, r, token, "decimals"); err != nil {
		return TokenInfo{}, err
	}
	if info.TotalSupply, err = callOne[*big.Int](ctx, r, token, "totalSupply"); err != nil {
		return TokenInfo{}, err
	}
	return info, nil
}

// TokenBalance reads the balance of the holder in the ERC20 token at the given
// address, in the smallest unit of the token.
func (r *ChainReader) TokenBalance(ctx context.Context, token, holder string) (*big.Int, error) {
	holderAddr, err := ParseAddress(holder)
	if err != nil {
		return nil, errors.WithMessage(err, "parsing holder address")
	}
	return callOne[*big.Int](ctx, r, token, "balanceOf", holderAddr)
}

// TokenDecimals reads the number of decimals of the ERC20 token at the given
// address.
func (r *ChainReader) TokenDecimals(ctx context.Context, token string) (uint8, error) {
	return callOne[uint8](ctx, r, token, "decimals")
}

// TokenAllowance reads the amount the spender may transfer on behalf of the
// owner, in the smallest unit of the token.
func (r *ChainReader) TokenAllowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	ownerAddr, err := ParseAddress(owner)
	if err != nil {
		return nil, errors.WithMessage(err, "parsing owner address")
	}
	spenderAddr, err := ParseAddress(spender)
	if err != nil {
		return nil, errors.WithMessage(err, "parsing spender address")
	}
	return callOne[*big.Int](ctx, r, token, "allowance", ownerAddr, spenderAddr)
}

func callOne[T any](ctx context.Context, r *ChainReader, token, method string, args ...interface{}) (T, error) {
	var zero T
	tokenAddr, err := ParseAddress(token)
	if err != nil {
		return zero, errors.WithMessage(err, "parsing token address")
	}
	input, err := erc20.Pack(method, args...)
	if err != nil {
		return zero, errors.Wrap(err, "packing "+method)
	}

	output, err := r.client.CallContract(ctx, geth.CallMsg{To: &tokenAddr, Data: input}, nil)
	if err != nil {
		return zero, errors.Wrap(err, "calling "+method)
	}
	if len(output) == 0 {
		return zero, blockchain.NewInvalidTokenError(token, errors.Errorf("no data returned for %s", method))
	}
	values, err := erc20.Unpack(method, output)
	if err != nil {
		return zero, blockchain.NewInvalidTokenError(token, errors.Wrap(err, "unpacking "+method))
	}
	value, ok := values[0].(T)
	if !ok {
		return zero, blockchain.NewInvalidTokenError(token, errors.Errorf("unexpected type %T for %s", values[0], method))
	}
	return value, nil
}

// PackERC20Call returns the call data for the given method of the ERC20
// interface.
func PackERC20Call(method string, args ...interface{}) ([]byte, error) {
	input, err := erc20.Pack(method, args...)
	return input, errors.Wrap(err, "packing "+method)
}
