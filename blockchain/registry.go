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

package blockchain

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/web3-node"
)

// UnknownChainName is the display name for chain ids that are not registered.
const UnknownChainName = "Unknown"

// DefaultChains returns the chains supported by the node out of the box.
// The RPC templates expect an Alchemy API key.
func DefaultChains() []web3.ChainDescriptor {
	return []web3.ChainDescriptor{
		{
			ChainID:          1,
			Name:             "Ethereum",
			RPCTemplate:      "https://eth-mainnet.g.alchemy.com/v2/%s",
			NativeSymbol:     "ETH",
			NativeDecimals:   18,
			ExplorerURL:      "https://etherscan.io",
			ChainType:        "L1",
			AverageBlockTime: 12 * time.Second,
			Confirmations:    12,
			Protocols:        []string{"Aave", "Compound", "Yearn", "Lido", "RocketPool"},
		},
		{
			ChainID:          137,
			Name:             "Polygon",
			RPCTemplate:      "https://polygon-mainnet.g.alchemy.com/v2/%s",
			NativeSymbol:     "MATIC",
			NativeDecimals:   18,
			ExplorerURL:      "https://polygonscan.com",
			ChainType:        "L2",
			AverageBlockTime: 2 * time.Second,
			Confirmations:    64,
			Protocols:        []string{"Aave", "Curve", "Balancer", "QuickSwap"},
		},
		{
			ChainID:          42161,
			Name:             "Arbitrum",
			RPCTemplate:      "https://arb-mainnet.g.alchemy.com/v2/%s",
			NativeSymbol:     "ETH",
			NativeDecimals:   18,
			ExplorerURL:      "https://arbiscan.io",
			ChainType:        "L2",
			AverageBlockTime: 250 * time.Millisecond,
			Confirmations:    20,
			Protocols:        []string{"GMX", "Radiant", "JonesDAO", "Socket"},
		},
		{
			ChainID:          10,
			Name:             "Optimism",
			RPCTemplate:      "https://opt-mainnet.g.alchemy.com/v2/%s",
			NativeSymbol:     "ETH",
			NativeDecimals:   18,
			ExplorerURL:      "https://optimistic.etherscan.io",
			ChainType:        "L2",
			AverageBlockTime: 2 * time.Second,
			Confirmations:    20,
			Protocols:        []string{"Aave", "Velodrome", "Beefy", "Stargate"},
		},
	}
}

var defaultRegistry = mustNewRegistry(DefaultChains()...)

// ChainName returns the display name of the chain among the default chains.
// It returns "Unknown" for any other chain id.
func ChainName(chainID uint64) string {
	return defaultRegistry.Name(chainID)
}

// Registry implements a chain registry with chain descriptors indexed by
// chain id.
//
// Chains are registered when the node starts and are not modified later. It
// uses a slice to keep track of the registration order, so that listing the
// chains always returns the same order.
type Registry struct {
	mtx    sync.RWMutex
	ids    []uint64
	chains map[uint64]web3.ChainDescriptor
}

// NewRegistry initializes a chain registry with the given chains.
func NewRegistry(chains ...web3.ChainDescriptor) (*Registry, error) {
	r := &Registry{
		chains: make(map[uint64]web3.ChainDescriptor),
	}
	for _, c := range chains {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func mustNewRegistry(chains ...web3.ChainDescriptor) *Registry {
	r, err := NewRegistry(chains...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds the chain to the registry. It returns an error if the chain
// descriptor is incomplete or a chain with the same id is already registered.
func (r *Registry) Register(c web3.ChainDescriptor) error {
	if err := validate(c); err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.chains[c.ChainID]; ok {
		return errors.Errorf("chain %d already registered", c.ChainID)
	}
	c.Protocols = append([]string(nil), c.Protocols...)
	r.chains[c.ChainID] = c
	r.ids = append(r.ids, c.ChainID)
	return nil
}

func validate(c web3.ChainDescriptor) error {
	switch {
	case c.ChainID == 0:
		return errors.New("chain id should be non zero")
	case c.Name == "":
		return errors.Errorf("chain %d: name should not be empty", c.ChainID)
	case c.RPCTemplate == "":
		return errors.Errorf("chain %d: rpc template should not be empty", c.ChainID)
	case c.NativeSymbol == "":
		return errors.Errorf("chain %d: native symbol should not be empty", c.ChainID)
	}
	return nil
}

// Chain returns the descriptor of the chain with the given id.
func (r *Registry) Chain(chainID uint64) (web3.ChainDescriptor, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	c, ok := r.chains[chainID]
	return c, ok
}

// ChainIDs returns the ids of the registered chains in the order of
// registration.
func (r *Registry) ChainIDs() []uint64 {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	idsCopy := make([]uint64, len(r.ids))
	copy(idsCopy, r.ids)
	return idsCopy
}

// Chains returns the descriptors of the registered chains in the order of
// registration.
func (r *Registry) Chains() []web3.ChainDescriptor {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	chains := make([]web3.ChainDescriptor, 0, len(r.ids))
	for _, id := range r.ids {
		chains = append(chains, r.chains[id])
	}
	return chains
}

// Name returns the display name of the chain, or "Unknown" if it is not
// registered.
func (r *Registry) Name(chainID uint64) string {
	c, ok := r.Chain(chainID)
	if !ok {
		return UnknownChainName
	}
	return c.Name
}

// chainsFile is the layout of the YAML file with additional chains.
type chainsFile struct {
	Chains []web3.ChainDescriptor `yaml:"chains"`
}

// ParseChainsFile reads the chain descriptors from the YAML file.
func ParseChainsFile(path string) ([]web3.ChainDescriptor, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WithMessage(err, "reading chains file")
	}
	var f chainsFile
	if err = yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing chains file")
	}
	return f.Chains, nil
}

// MergeChains returns base with the chains in extra appended. An entry in extra
// with the same chain id as an entry in base replaces it at its position.
func MergeChains(base, extra []web3.ChainDescriptor) []web3.ChainDescriptor {
	merged := append([]web3.ChainDescriptor(nil), base...)
	index := make(map[uint64]int, len(merged))
	for i, c := range merged {
		index[c.ChainID] = i
	}
	for _, c := range extra {
		if i, ok := index[c.ChainID]; ok {
			merged[i] = c
			continue
		}
		index[c.ChainID] = len(merged)
		merged = append(merged, c)
	}
	return merged
}

// LoadRegistry initializes a registry with the default chains and the chains
// from the file, if a file path is given.
func LoadRegistry(chainsFilePath string) (*Registry, error) {
	chains := DefaultChains()
	if chainsFilePath != "" {
		extra, err := ParseChainsFile(chainsFilePath)
		if err != nil {
			return nil, err
		}
		chains = MergeChains(chains, extra)
	}
	return NewRegistry(chains...)
}
