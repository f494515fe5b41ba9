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

package ethereum_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node/blockchain"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum/ethereumtest"
)

func Test_ChainReader(t *testing.T) {
	node := ethereumtest.NewNode(t, 1)
	ctx := context.Background()

	holder := ethereumtest.NewRandomAddress(t)
	tokenAddr := ethereumtest.NewRandomAddress(t)
	node.SetBalance(holder, big.NewInt(42))
	node.AddToken(tokenAddr, &ethereumtest.Token{
		Name:        "USD Coin",
		Symbol:      "USDC",
		Decimals:    6,
		TotalSupply: big.NewInt(1e12),
		Balances:    map[common.Address]*big.Int{holder: big.NewInt(2500000)},
		Allowances: map[common.Address]map[common.Address]*big.Int{
			holder: {tokenAddr: big.NewInt(100)},
		},
	})

	r, err := ethereum.DialChainReader(ctx, node.URL, 1, time.Second)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	assert.Equal(t, uint64(1), r.ChainID())

	t.Run("balance", func(t *testing.T) {
		bal, err := r.BalanceAt(ctx, holder.Hex())
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(42), bal)
	})

	t.Run("token_info", func(t *testing.T) {
		info, err := r.TokenInfo(ctx, tokenAddr.Hex())
		require.NoError(t, err)
		assert.Equal(t, "USD Coin", info.Name)
		assert.Equal(t, "USDC", info.Symbol)
		assert.Equal(t, uint8(6), info.Decimals)
		assert.Equal(t, 0, big.NewInt(1e12).Cmp(info.TotalSupply))
	})

	t.Run("token_balance", func(t *testing.T) {
		bal, err := r.TokenBalance(ctx, tokenAddr.Hex(), holder.Hex())
		require.NoError(t, err)
		assert.Equal(t, 0, big.NewInt(2500000).Cmp(bal))
	})

	t.Run("token_decimals", func(t *testing.T) {
		decimals, err := r.TokenDecimals(ctx, tokenAddr.Hex())
		require.NoError(t, err)
		assert.Equal(t, uint8(6), decimals)
	})

	t.Run("token_allowance", func(t *testing.T) {
		spender := ethereumtest.NewRandomAddress(t)
		allowance, err := r.TokenAllowance(ctx, tokenAddr.Hex(), holder.Hex(), spender.Hex())
		require.NoError(t, err)
		assert.Zero(t, allowance.Sign())

		allowance, err = r.TokenAllowance(ctx, tokenAddr.Hex(), holder.Hex(), tokenAddr.Hex())
		require.NoError(t, err)
		assert.Equal(t, 0, big.NewInt(100).Cmp(allowance))

		_, err = r.TokenAllowance(ctx, tokenAddr.Hex(), holder.Hex(), "0x12")
		require.Error(t, err)
	})

	t.Run("err_not_a_token", func(t *testing.T) {
		_, err := r.TokenInfo(ctx, holder.Hex())
		require.Error(t, err)
		invalidTokenErr := blockchain.InvalidTokenError{}
		assert.True(t, errors.As(err, &invalidTokenErr))
	})

	t.Run("err_invalid_address", func(t *testing.T) {
		_, err := r.TokenBalance(ctx, tokenAddr.Hex(), "0x1234")
		require.Error(t, err)
		_, err = r.BalanceAt(ctx, "0x1234")
		require.Error(t, err)
	})

	t.Run("err_node_unavailable", func(t *testing.T) {
		node.SetFailing(true)
		t.Cleanup(func() { node.SetFailing(false) })
		_, err := r.BalanceAt(ctx, holder.Hex())
		require.Error(t, err)
	})
}
