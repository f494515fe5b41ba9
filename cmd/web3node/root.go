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

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})
}

var rootCmd = &cobra.Command{
	Use:   "web3node",
	Short: "A node for reading balances and sending transactions on EVM chains.",
	Long: `
A node for reading balances and sending transactions on EVM chains. It holds a
single session bound to one provider type and one chain. The provider type and
the chain can be switched at runtime, in which case the session rebuilds its
provider handle. Reads go to the RPC endpoint of the chain and signing requests
go to the configured wallet host.

The session, the chain registry and the supporting services (token reads, yield
pools, transaction simulation) are served via a REST API.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
