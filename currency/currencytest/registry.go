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

package currencytest

import (
	"github.com/hyperledger-labs/web3-node/currency"
)

// Registry returns a new currency registry for use in tests with the native
// currencies of the default chains already registered.
//
// In the node, the registry is initialized from the chain registry and passed
// onto the components.
func Registry() *currency.Registry {
	r := currency.NewRegistry()
	//nolint: errcheck		// Registering currencies on new registry will not fail.
	r.Register(currency.ETHSymbol, currency.ETHDecimals)
	//nolint: errcheck
	r.Register("MATIC", 18)
	return r
}
