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

// Package yield provides yield pool data per chain and ranks the pools by
// their risk adjusted return.
//
// The pool data is informational. The node does not deposit into pools.
package yield

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ProtocolType is the kind of protocol that operates a pool.
type ProtocolType string

// Enumeration of protocol types.
const (
	ProtocolTypeLending       ProtocolType = "LENDING"
	ProtocolTypeDEX           ProtocolType = "DEX"
	ProtocolTypeYield         ProtocolType = "YIELD"
	ProtocolTypeLiquidStaking ProtocolType = "LIQUID_STAKING"
	ProtocolTypeDerivative    ProtocolType = "DERIVATIVE"
)

// Bounds for risk scores. Higher is riskier.
const (
	MinRiskScore = 1
	MaxRiskScore = 10
)

// Pool describes a yield pool on a chain.
type Pool struct {
	ID        string       `yaml:"id" json:"id"`
	Protocol  string       `yaml:"protocol" json:"protocol"`
	Type      ProtocolType `yaml:"type" json:"type"`
	ChainID   uint64       `yaml:"chain_id" json:"chainId"`
	Address   string       `yaml:"address,omitempty" json:"address,omitempty"`
	Symbol    string       `yaml:"symbol" json:"symbol"`
	APY       float64      `yaml:"apy" json:"apy"`
	TVL       float64      `yaml:"tvl" json:"tvl"`
	RiskScore int          `yaml:"risk_score" json:"riskScore"`
}

// Source provides the pools on a chain.
type Source interface {
	Pools(ctx context.Context, chainID uint64) ([]Pool, error)
}

// StaticSource serves a fixed list of pools.
type StaticSource struct {
	pools []Pool
}

// NewStaticSource returns a source serving the given pools. Pools with a risk
// score outside [MinRiskScore, MaxRiskScore] are rejected.
func NewStaticSource(pools ...Pool) (*StaticSource, error) {
	for _, p := range pools {
		if p.RiskScore < MinRiskScore || p.RiskScore > MaxRiskScore {
			return nil, errors.Errorf("pool %s: risk score %d out of range [%d, %d]",
				p.ID, p.RiskScore, MinRiskScore, MaxRiskScore)
		}
		if p.ChainID == 0 {
			return nil, errors.Errorf("pool %s: chain id should be non zero", p.ID)
		}
	}
	return &StaticSource{pools: append([]Pool(nil), pools...)}, nil
}

// Pools implements Source.
func (s *StaticSource) Pools(_ context.Context, chainID uint64) ([]Pool, error) {
	var pools []Pool
	for _, p := range s.pools {
		if p.ChainID == chainID {
			pools = append(pools, p)
		}
	}
	return pools, nil
}

// DefaultPools returns illustrative pools on the default chains.
func DefaultPools() []Pool {
	return []Pool{
		{ID: "aave-v3-eth-usdc", Protocol: "Aave", Type: ProtocolTypeLending, ChainID: 1,
			Address: "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2", Symbol: "USDC", APY: 4.2, TVL: 1.2e9, RiskScore: 2},
		{ID: "lido-steth", Protocol: "Lido", Type: ProtocolTypeLiquidStaking, ChainID: 1,
			Address: "0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84", Symbol: "STETH", APY: 3.1, TVL: 2.3e10, RiskScore: 2},
		{ID: "yearn-eth-dai", Protocol: "Yearn", Type: ProtocolTypeYield, ChainID: 1,
			Symbol: "DAI", APY: 6.8, TVL: 1.4e8, RiskScore: 4},
		{ID: "aave-v3-polygon-usdc", Protocol: "Aave", Type: ProtocolTypeLending, ChainID: 137,
			Address: "0x794a61358D6845594F94dc1DB02A252b5b4814aD", Symbol: "USDC", APY: 5.1, TVL: 2.1e8, RiskScore: 2},
		{ID: "quickswap-matic-usdc", Protocol: "QuickSwap", Type: ProtocolTypeDEX, ChainID: 137,
			Symbol: "WMATIC-USDC", APY: 18.5, TVL: 3.2e7, RiskScore: 6},
		{ID: "gmx-glp", Protocol: "GMX", Type: ProtocolTypeDerivative, ChainID: 42161,
			Symbol: "GLP", APY: 14.2, TVL: 4.5e8, RiskScore: 5},
		{ID: "radiant-arb-usdc", Protocol: "Radiant", Type: ProtocolTypeLending, ChainID: 42161,
			Symbol: "USDC", APY: 7.4, TVL: 9.0e7, RiskScore: 4},
		{ID: "velodrome-op-usdc", Protocol: "Velodrome", Type: ProtocolTypeDEX, ChainID: 10,
			Symbol: "OP-USDC", APY: 22.0, TVL: 4.1e7, RiskScore: 7},
		{ID: "aave-v3-op-usdc", Protocol: "Aave", Type: ProtocolTypeLending, ChainID: 10,
			Address: "0x794a61358D6845594F94dc1DB02A252b5b4814aD", Symbol: "USDC", APY: 3.9, TVL: 1.1e8, RiskScore: 2},
	}
}

// poolsFile is the layout of the YAML file with pools.
type poolsFile struct {
	Pools []Pool `yaml:"pools"`
}

// ParsePoolsFile reads the pools from the YAML file.
func ParsePoolsFile(path string) ([]Pool, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WithMessage(err, "reading pools file")
	}
	var f poolsFile
	if err = yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing pools file")
	}
	return f.Pools, nil
}

// LoadStaticSource returns a static source with the pools from the file, or
// with the default pools if no file path is given.
func LoadStaticSource(poolsFilePath string) (*StaticSource, error) {
	if poolsFilePath == "" {
		return NewStaticSource(DefaultPools()...)
	}
	pools, err := ParsePoolsFile(poolsFilePath)
	if err != nil {
		return nil, err
	}
	return NewStaticSource(pools...)
}
