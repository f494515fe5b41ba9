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

package client

import "time"

// DefaultTimeout is the timeout for requests to the node when none is
// configured.
const DefaultTimeout = 60 * time.Second

// Config represents the configuration parameters for the node API client.
type Config struct {
	// URL of the node REST API, for example http://127.0.0.1:8080.
	URL string
	// Timeout for each request. Transactions and wallet prompts can take a
	// while, so it should allow for user interaction.
	Timeout time.Duration
}
