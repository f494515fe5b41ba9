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

// Package session implements the orchestration over the active provider. A
// session holds the selected provider type and chain, and replaces the
// provider whenever either of them changes.
//
// Operations on a provider are serialized: an operation started while another
// one is in flight on the same provider fails with a Busy error. Results of
// operations on a replaced provider are returned to the caller, but never
// update the state of the session.
package session
