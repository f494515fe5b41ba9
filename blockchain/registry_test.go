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

package blockchain_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain"
)

func Test_Implements(t *testing.T) {
	assert.Implements(t, (*web3.ROChainRegistry)(nil), new(blockchain.Registry))
	assert.Implements(t, (*web3.ChainRegistry)(nil), new(blockchain.Registry))
}

func Test_DefaultChains(t *testing.T) {
	r, err := blockchain.NewRegistry(blockchain.DefaultChains()...)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 137, 42161, 10}, r.ChainIDs())

	for _, id := range r.ChainIDs() {
		c, ok := r.Chain(id)
		require.True(t, ok)
		assert.Contains(t, c.RPCTemplate, "%s")
		assert.Equal(t, uint8(18), c.NativeDecimals)
		assert.NotEmpty(t, c.ExplorerURL)
	}
}

func Test_ChainName(t *testing.T) {
	tests := []struct {
		chainID uint64
		want    string
	}{
		{1, "Ethereum"},
		{137, "Polygon"},
		{42161, "Arbitrum"},
		{10, "Optimism"},
		{0, "Unknown"},
		{5, "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, blockchain.ChainName(tt.chainID))
		assert.Equal(t, tt.want, blockchain.ChainName(tt.chainID), "should be pure")
	}
}

func Test_Registry_Register(t *testing.T) {
	valid := web3.ChainDescriptor{ChainID: 31337, Name: "Local", RPCTemplate: "http://127.0.0.1:8545", NativeSymbol: "ETH"}

	t.Run("happy", func(t *testing.T) {
		r, err := blockchain.NewRegistry()
		require.NoError(t, err)
		require.NoError(t, r.Register(valid))

		got, ok := r.Chain(31337)
		require.True(t, ok)
		assert.Equal(t, valid, got)
		assert.Equal(t, "Local", r.Name(31337))
	})

	t.Run("err_duplicate", func(t *testing.T) {
		r, err := blockchain.NewRegistry(valid)
		require.NoError(t, err)
		err = r.Register(valid)
		require.Error(t, err)
		t.Log(err)
	})

	invalid := map[string]func(c *web3.ChainDescriptor){
		"err_zero_id":      func(c *web3.ChainDescriptor) { c.ChainID = 0 },
		"err_empty_name":   func(c *web3.ChainDescriptor) { c.Name = "" },
		"err_empty_rpc":    func(c *web3.ChainDescriptor) { c.RPCTemplate = "" },
		"err_empty_symbol": func(c *web3.ChainDescriptor) { c.NativeSymbol = "" },
	}
	for name, modify := range invalid {
		t.Run(name, func(t *testing.T) {
			c := valid
			modify(&c)
			_, err := blockchain.NewRegistry(c)
			require.Error(t, err)
			t.Log(err)
		})
	}

	t.Run("concurrent_reads", func(t *testing.T) {
		r, err := blockchain.NewRegistry(blockchain.DefaultChains()...)
		require.NoError(t, err)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.Len(t, r.Chains(), 4)
			}()
		}
		wg.Wait()
	})
}

func Test_LoadRegistry(t *testing.T) {
	t.Run("happy_defaults_only", func(t *testing.T) {
		r, err := blockchain.LoadRegistry("")
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 137, 42161, 10}, r.ChainIDs())
	})

	t.Run("happy_with_file", func(t *testing.T) {
		r, err := blockchain.LoadRegistry("testdata/chains.yaml")
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 137, 42161, 10, 11155111}, r.ChainIDs())

		sepolia, ok := r.Chain(11155111)
		require.True(t, ok)
		assert.Equal(t, "Sepolia", sepolia.Name)
		assert.Equal(t, 12*time.Second, sepolia.AverageBlockTime)
		assert.Equal(t, "https://eth-sepolia.g.alchemy.com/v2/key", sepolia.RPCURL("key"))

		polygon, ok := r.Chain(137)
		require.True(t, ok)
		assert.Equal(t, "Polygon PoS", polygon.Name)
		assert.Equal(t, "https://polygon-rpc.com", polygon.RPCURL("key"), "template without placeholder")
		assert.Equal(t, []string{"Aave", "QuickSwap"}, polygon.Protocols)
	})

	t.Run("err_missing_file", func(t *testing.T) {
		_, err := blockchain.LoadRegistry("testdata/missing.yaml")
		require.Error(t, err)
		t.Log(err)
	})

	t.Run("err_invalid_file", func(t *testing.T) {
		_, err := blockchain.LoadRegistry("testdata/invalid_chains.yaml")
		require.Error(t, err)
		t.Log(err)
	})
}

func Test_ChainDescriptor_TxURL(t *testing.T) {
	c, ok := func() (web3.ChainDescriptor, bool) {
		r, err := blockchain.NewRegistry(blockchain.DefaultChains()...)
		require.NoError(t, err)
		return r.Chain(1)
	}()
	require.True(t, ok)
	assert.Equal(t, "https://etherscan.io/tx/0xabc", c.TxURL("0xabc"))
	assert.Empty(t, web3.ChainDescriptor{}.TxURL("0xabc"))
}
