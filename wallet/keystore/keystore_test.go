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

package keystore_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum/ethereumtest"
	"github.com/hyperledger-labs/web3-node/wallet"
	"github.com/hyperledger-labs/web3-node/wallet/keystore"
)

type setup struct {
	node *ethereumtest.Node
	ws   *ethereumtest.WalletSetup
	addr common.Address
}

func newSetup(t *testing.T) setup {
	t.Helper()

	node := ethereumtest.NewNode(t, 1)
	ws := ethereumtest.NewWalletSetup(t, 1)
	node.SetBalance(ws.Accs[0].Address, big.NewInt(1e18))
	return setup{node: node, ws: ws, addr: ws.Accs[0].Address}
}

func (s setup) newHost(t *testing.T, approve keystore.Approver) *keystore.Host {
	t.Helper()

	client, err := ethclient.Dial(s.node.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	host, err := keystore.New(keystore.Config{
		Keystore: s.ws.Keystore,
		Account:  s.addr.Hex(),
		Password: ethereumtest.Password,
		ChainID:  1,
		Backends: func(chainID uint64) (keystore.BackendClient, error) {
			if chainID != s.node.ChainID {
				return nil, errors.Errorf("no backend for chain %d", chainID)
			}
			return client, nil
		},
		Approve: approve,
	})
	require.NoError(t, err)
	return host
}

func Test_Host(t *testing.T) {
	s := newSetup(t)
	host := s.newHost(t, nil)
	var _ web3.WalletHost = host
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("unauthorized_before_connect", func(t *testing.T) {
		var accs []common.Address
		require.NoError(t, host.Request(ctx, &accs, wallet.MethodAccounts))
		assert.Empty(t, accs)

		err := host.Request(ctx, nil, wallet.MethodPersonalSign, hexutil.Encode([]byte("msg")), s.addr.Hex())
		code, ok := wallet.ErrorCode(err)
		require.True(t, ok)
		assert.Equal(t, wallet.CodeUnauthorized, code)
	})

	t.Run("request_accounts", func(t *testing.T) {
		var accs []string
		require.NoError(t, host.Request(ctx, &accs, wallet.MethodRequestAccounts))
		require.Len(t, accs, 1)
		assert.True(t, ethereum.IsValidAddress(accs[0]))
		assert.Equal(t, s.addr, common.HexToAddress(accs[0]))
	})

	t.Run("chain_id", func(t *testing.T) {
		var chainID hexutil.Uint64
		require.NoError(t, host.Request(ctx, &chainID, wallet.MethodChainID))
		assert.EqualValues(t, 1, chainID)
	})

	t.Run("switch_chain", func(t *testing.T) {
		require.NoError(t, host.Request(ctx, nil, wallet.MethodSwitchChain, wallet.SwitchChainArgs{ChainID: 1}))

		err := host.Request(ctx, nil, wallet.MethodSwitchChain, map[string]string{"chainId": "0x89"})
		code, ok := wallet.ErrorCode(err)
		require.True(t, ok)
		assert.Equal(t, wallet.CodeUnknownChain, code)
		assert.Equal(t, uint64(1), host.ChainID())
	})

	t.Run("personal_sign", func(t *testing.T) {
		var sig string
		require.NoError(t, host.Request(ctx, &sig, wallet.MethodPersonalSign, hexutil.Encode([]byte("msg")), s.addr.Hex()))
		assert.True(t, ethereum.VerifySignature("msg", sig, s.addr.Hex()))
	})

	t.Run("send_transaction", func(t *testing.T) {
		to := ethereumtest.NewRandomAddress(t)
		args := wallet.TxArgs{From: s.addr.Hex(), To: to.Hex(), Value: (*hexutil.Big)(big.NewInt(5000))}
		for i := 0; i < 2; i++ {
			var hash common.Hash
			require.NoError(t, host.Request(ctx, &hash, wallet.MethodSendTransaction, args))
			tx, ok := s.node.Transaction(hash)
			require.True(t, ok)
			assert.Equal(t, uint64(i), tx.Nonce())
			assert.Equal(t, uint64(21000), tx.Gas())
		}
		assert.Equal(t, big.NewInt(10000), s.node.Balance(to))
	})

	t.Run("send_transaction_other_account", func(t *testing.T) {
		args := wallet.TxArgs{From: ethereumtest.NewRandomAddress(t).Hex(), To: s.addr.Hex()}
		err := host.Request(ctx, nil, wallet.MethodSendTransaction, args)
		code, ok := wallet.ErrorCode(err)
		require.True(t, ok)
		assert.Equal(t, wallet.CodeUnauthorized, code)
	})

	t.Run("unsupported_method", func(t *testing.T) {
		err := host.Request(ctx, nil, "eth_signTypedData_v4")
		code, ok := wallet.ErrorCode(err)
		require.True(t, ok)
		assert.Equal(t, wallet.CodeUnsupportedMethod, code)
	})
}

func Test_Host_Rejected(t *testing.T) {
	s := newSetup(t)
	var prompts []string
	host := s.newHost(t, func(_ context.Context, method, summary string) bool {
		prompts = append(prompts, method)
		return false
	})

	var accs []common.Address
	err := host.Request(context.Background(), &accs, wallet.MethodRequestAccounts)
	require.Error(t, err)
	assert.True(t, wallet.IsUserRejected(err))
	assert.Equal(t, []string{wallet.MethodRequestAccounts}, prompts)
	assert.Equal(t, int64(0), s.node.Requests())
}

func Test_New_Errors(t *testing.T) {
	s := newSetup(t)
	resolver := func(uint64) (keystore.BackendClient, error) { return nil, errors.New("none") }

	_, err := keystore.New(keystore.Config{
		Keystore: s.ws.Keystore, Account: s.addr.Hex(), Password: "wrong", Backends: resolver,
	})
	require.Error(t, err)

	_, err = keystore.New(keystore.Config{Keystore: s.ws.Keystore, Account: s.addr.Hex(), Password: ethereumtest.Password})
	require.Error(t, err)

	_, err = keystore.New(keystore.Config{Backends: resolver})
	require.Error(t, err)
}
