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

// Package ethereum provides the ethereum specific helpers used by the node:
// address validation and formatting, signature verification for messages
// signed with the ethereum signed message prefix, keystore setup, wallet
// generation and a read-only chain client for balances and ERC20 tokens.
//
// All the functionality is delegated to the "go-ethereum" project. The
// helpers that do not need a chain are pure and safe for concurrent use.
package ethereum
