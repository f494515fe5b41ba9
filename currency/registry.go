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

package currency

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
)

// Registry implements a currency registry with currencies indexed by
// symbols.
//
// It uses a slice to keep track of registered symbols because iterating over
// map to retrieve the symbols each time will result in different ordering of
// symbols in the list.
type Registry struct {
	mtx        sync.RWMutex
	symbols    []string
	currencies map[string]web3.Currency
}

// NewRegistry initializes a currency registry.
func NewRegistry() *Registry {
	return &Registry{
		currencies: make(map[string]web3.Currency),
	}
}

// Symbols returns a list of all the currencies registered in
// this registry, in the order of registration.
func (r *Registry) Symbols() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	registeredSymbolsCopy := make([]string, len(r.symbols))
	copy(registeredSymbolsCopy, r.symbols)
	return registeredSymbolsCopy
}

// IsRegistered checks if there is a currency registered for the given symbol.
func (r *Registry) IsRegistered(symbol string) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.isRegistered(symbol)
}

func (r *Registry) isRegistered(symbol string) bool {
	c, ok := r.currencies[symbol]
	return ok && c != nil
}

// Register initializes a currency, registers it with the registry and
// returns it.
//
// Returns an error if a currency is already registered for the symbol.
func (r *Registry) Register(symbol string, decimals uint8) (web3.Currency, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.isRegistered(symbol) {
		return nil, errors.Errorf("currency already registered for symbol %s", symbol)
	}
	c := New(symbol, decimals)
	r.currencies[symbol] = c
	r.symbols = append(r.symbols, symbol)
	return c, nil
}

// Currency returns the currency registered for the given symbol. If none is
// registered, it returns nil.
//
// So, caller should do a nil check before using the currency.
func (r *Registry) Currency(symbol string) web3.Currency {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.currencies[symbol]
}

// RegisterNative registers the native currencies of the given chains. Chains
// sharing a symbol must use the same number of decimals.
func (r *Registry) RegisterNative(chains []web3.ChainDescriptor) error {
	for _, c := range chains {
		if existing := r.Currency(c.NativeSymbol); existing != nil {
			if existing.Decimals() != c.NativeDecimals {
				return errors.Errorf("chain %d: %s registered with %d decimals, got %d",
					c.ChainID, c.NativeSymbol, existing.Decimals(), c.NativeDecimals)
			}
			continue
		}
		if _, err := r.Register(c.NativeSymbol, c.NativeDecimals); err != nil {
			return err
		}
	}
	return nil
}
