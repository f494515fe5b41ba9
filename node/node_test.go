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

package node_test

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum/ethereumtest"
	"github.com/hyperledger-labs/web3-node/client"
	"github.com/hyperledger-labs/web3-node/node"
	"github.com/hyperledger-labs/web3-node/web3test"
)

var oneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func newConfig(chain *ethereumtest.Node) web3.NodeConfig {
	return web3.NodeConfig{
		LogLevel:     "debug",
		ProviderType: "ethers",
		ChainID:      chain.ChainID,
		RefreshDelay: 20 * time.Millisecond,
		RPCOverrides: map[uint64]string{chain.ChainID: chain.URL},
		WalletHost:   web3.WalletHostNone,
	}
}

// startNode serves the node on a free port and returns a client for it.
func startNode(t *testing.T, cfg web3.NodeConfig) (*node.Node, *client.Client) {
	t.Helper()
	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	cfg.ListenAddr = fmt.Sprintf("127.0.0.1:%d", port)

	n, err := node.New(cfg)
	require.NoError(t, err)
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- n.Serve(listener) }()
	t.Cleanup(func() {
		n.Close()
		assert.NoError(t, <-served)
	})

	c, err := client.New(client.Config{URL: "http://" + cfg.ListenAddr, Timeout: 10 * time.Second})
	require.NoError(t, err)
	return n, c
}

func Test_New_InvalidConfig(t *testing.T) {
	chain := ethereumtest.NewNode(t, 1)
	tests := []struct {
		name   string
		modify func(*web3.NodeConfig)
	}{
		{"provider", func(cfg *web3.NodeConfig) { cfg.ProviderType = "ethers6" }},
		{"chain", func(cfg *web3.NodeConfig) { cfg.ChainID = 5 }},
		{"chains_file", func(cfg *web3.NodeConfig) { cfg.ChainsFile = "testdata/missing.yaml" }},
		{"pools_file", func(cfg *web3.NodeConfig) { cfg.PoolsFile = "testdata/missing.yaml" }},
		{"wallet_host", func(cfg *web3.NodeConfig) { cfg.WalletHost = "metamask" }},
		{"wallet_rpc_url", func(cfg *web3.NodeConfig) {
			cfg.WalletHost = web3.WalletHostRPC
			cfg.WalletRPCURL = "ftp://127.0.0.1"
		}},
		{"keystore", func(cfg *web3.NodeConfig) {
			cfg.WalletHost = web3.WalletHostKeystore
			cfg.KeystorePath = "testdata/missing"
		}},
		{"partial_simulation_credentials", func(cfg *web3.NodeConfig) { cfg.SimulationUser = "alice" }},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := newConfig(chain)
			tc.modify(&cfg)
			_, err := node.New(cfg)
			assert.Error(t, err)
		})
	}
}

func Test_Node_ReadOnly(t *testing.T) {
	chain := ethereumtest.NewNode(t, 1)
	addr := ethereumtest.NewRandomAddress(t)
	chain.SetBalance(addr, new(big.Int).Mul(big.NewInt(3), oneEther))
	n, c := startNode(t, newConfig(chain))
	ctx := context.Background()

	assert.Equal(t, []string{"ETH", "MATIC"}, n.Currencies().Symbols())

	bal, err := c.SetAddress(ctx, addr.Hex())
	require.NoError(t, err)
	assert.Equal(t, "3", bal.Value)
	assert.Equal(t, "ETH", bal.Symbol)

	conn, err := c.ConnectWallet(ctx)
	require.NoError(t, err)
	assert.False(t, conn.Connected)

	_, err = c.SignMessage(ctx, "hello")
	web3test.RequireAPIErrorCode(t, err, web3.ErrNotConnected)

	for _, pt := range web3.ProviderTypes() {
		_, err = c.SetProviderType(ctx, pt)
		require.NoError(t, err)
		bal, err = c.RefreshBalance(ctx)
		require.NoError(t, err, pt)
		assert.Equal(t, "3", bal.Value, pt)
	}

	resp, err := http.Get(c.URL() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() // nolint: errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func Test_Node_RPCWallet(t *testing.T) {
	chain := ethereumtest.NewNode(t, 1)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := chain.AddDevAccount(key, new(big.Int).Mul(big.NewInt(2), oneEther))
	to := ethereumtest.NewRandomAddress(t)

	cfg := newConfig(chain)
	cfg.WalletHost = web3.WalletHostRPC
	cfg.WalletRPCURL = chain.URL
	_, c := startNode(t, cfg)
	ctx := context.Background()

	conn, err := c.ConnectWallet(ctx)
	require.NoError(t, err)
	require.True(t, conn.Connected)
	assert.Equal(t, from.Hex(), conn.Address)

	sig, err := c.SignMessage(ctx, "hello")
	require.NoError(t, err)
	valid, err := c.VerifySignature(ctx, "hello", sig, from.Hex())
	require.NoError(t, err)
	assert.True(t, valid)

	tx, err := c.SendTransaction(ctx, to.Hex(), "0.5")
	require.NoError(t, err)
	assert.Equal(t, "https://etherscan.io/tx/"+tx.Hash, tx.ExplorerURL)
	assert.Equal(t, 0, chain.Balance(to).Cmp(new(big.Int).Div(oneEther, big.NewInt(2))))

	require.Eventually(t, func() bool {
		state, err := c.State(ctx)
		return err == nil && state.Balance != nil && state.Balance.Value == "1.499979" && !state.Loading
	}, 2*time.Second, 10*time.Millisecond)
	state, err := c.State(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.LastTx)
	assert.Equal(t, tx.Hash, state.LastTx.Hash)
}

func Test_Node_KeystoreWallet(t *testing.T) {
	chain := ethereumtest.NewNode(t, 1)
	ws := ethereumtest.NewWalletSetup(t, 1)
	chain.SetBalance(ws.Accs[0].Address, oneEther)
	to := ethereumtest.NewRandomAddress(t)

	cfg := newConfig(chain)
	cfg.WalletHost = web3.WalletHostKeystore
	cfg.KeystorePath = ws.KeystorePath
	cfg.KeystoreAcc = ws.Accs[0].Address.Hex()
	cfg.KeystorePwd = ethereumtest.Password
	cfg.AutoApprove = true
	_, c := startNode(t, cfg)
	ctx := context.Background()

	conn, err := c.ConnectWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.Accs[0].Address.Hex(), conn.Address)

	_, err = c.SendTransaction(ctx, to.Hex(), "0.25")
	require.NoError(t, err)
	assert.Equal(t, 0, chain.Balance(to).Cmp(new(big.Int).Div(oneEther, big.NewInt(4))))

	t.Run("wrong_password", func(t *testing.T) {
		cfg.KeystorePwd = "wrong"
		_, err := node.New(cfg)
		assert.Error(t, err)
	})
}

func Test_Node_Tokens(t *testing.T) {
	chain := ethereumtest.NewNode(t, 1)
	token := ethereumtest.NewRandomAddress(t)
	holder := ethereumtest.NewRandomAddress(t)
	chain.AddToken(token, &ethereumtest.Token{
		Name:        "Test Token",
		Symbol:      "TT",
		Decimals:    6,
		TotalSupply: big.NewInt(10_000_000),
		Balances:    map[common.Address]*big.Int{holder: big.NewInt(1_500_000)},
	})
	_, c := startNode(t, newConfig(chain))

	info, err := c.Token(context.Background(), 1, token.Hex(), holder.Hex())
	require.NoError(t, err)
	assert.Equal(t, "TT", info.Symbol)
	assert.Equal(t, "10", info.TotalSupply)
	assert.Equal(t, "1.5", info.Balance)

	_, err = c.Token(context.Background(), 1, holder.Hex(), "")
	web3test.RequireAPIErrorCode(t, err, web3.ErrInvalidArgument)
}

func Test_Node_Pools(t *testing.T) {
	chain := ethereumtest.NewNode(t, 1)
	cfg := newConfig(chain)
	cfg.PoolsFile = "../yield/testdata/pools.yaml"
	_, c := startNode(t, cfg)

	pools, err := c.OptimalPools(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "compound-eth-usdc", pools[0].ID)
}
