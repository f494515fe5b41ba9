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

package yield_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/yield"
)

func ids(pools []yield.Pool) []string {
	out := make([]string, len(pools))
	for i := range pools {
		out[i] = pools[i].ID
	}
	return out
}

func Test_OptimalYield(t *testing.T) {
	src, err := yield.NewStaticSource(
		yield.Pool{ID: "a", ChainID: 1, APY: 4, RiskScore: 2},  // 2.0
		yield.Pool{ID: "b", ChainID: 1, APY: 9, RiskScore: 3},  // 3.0
		yield.Pool{ID: "c", ChainID: 1, APY: 20, RiskScore: 8}, // 2.5, filtered at tolerance 5
		yield.Pool{ID: "d", ChainID: 1, APY: 0, RiskScore: 1},
		yield.Pool{ID: "e", ChainID: 1, APY: 6, RiskScore: 3},  // 2.0, after a
		yield.Pool{ID: "f", ChainID: 137, APY: 50, RiskScore: 1},
	)
	require.NoError(t, err)
	m := yield.NewManager(src)

	pools, err := m.OptimalYield(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "e"}, ids(pools))

	pools, err = m.OptimalYield(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a", "e"}, ids(pools))

	t.Run("no_pools_on_chain", func(t *testing.T) {
		pools, err := m.OptimalYield(context.Background(), 10, 10)
		require.NoError(t, err)
		assert.Empty(t, pools)
	})

	t.Run("invalid_tolerance", func(t *testing.T) {
		for _, tolerance := range []int{0, 11, -1} {
			_, err := m.OptimalYield(context.Background(), 1, tolerance)
			assert.True(t, web3.HasCode(err, web3.ErrInvalidArgument), "tolerance %d", tolerance)
		}
	})
}

func Test_DefaultPools(t *testing.T) {
	src, err := yield.LoadStaticSource("")
	require.NoError(t, err)
	for _, chainID := range []uint64{1, 137, 42161, 10} {
		pools, err := src.Pools(context.Background(), chainID)
		require.NoError(t, err)
		assert.NotEmpty(t, pools, "chain %d", chainID)
		for _, p := range pools {
			assert.Equal(t, chainID, p.ChainID)
		}
	}
}

func Test_LoadStaticSource(t *testing.T) {
	src, err := yield.LoadStaticSource("testdata/pools.yaml")
	require.NoError(t, err)

	pools, err := src.Pools(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, yield.Pool{
		ID:        "compound-eth-usdc",
		Protocol:  "Compound",
		Type:      yield.ProtocolTypeLending,
		ChainID:   1,
		Address:   "0xc3d688B66703497DAA19211EEdff47f25384cdc3",
		Symbol:    "USDC",
		APY:       3.5,
		TVL:       5e8,
		RiskScore: 2,
	}, pools[0])

	t.Run("invalid_risk", func(t *testing.T) {
		_, err := yield.LoadStaticSource("testdata/invalid_pools.yaml")
		assert.Error(t, err)
	})
	t.Run("missing_file", func(t *testing.T) {
		_, err := yield.LoadStaticSource("testdata/missing.yaml")
		assert.Error(t, err)
	})
}
