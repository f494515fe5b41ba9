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
	"github.com/abiosoft/ishell"

	"github.com/hyperledger-labs/web3-node/client"
)

var (
	nodeCmdUsage = "Usage: node [sub-command]"
	nodeCmd      = &ishell.Cmd{
		Name: "node",
		Help: "Use the command to access the node related functionalities." + nodeCmdUsage,
		Func: nodeFn,
	}

	nodeConnectCmdUsage = "Usage: node connect [url]"
	nodeConnectCmd      = &ishell.Cmd{
		Name: "connect",
		Help: "Connect to a running web3 node instance. Use tab completion to cycle through default values." +
			nodeConnectCmdUsage,
		Completer: func([]string) []string {
			return []string{"http://127.0.0.1:8080"} // Provide default values as autocompletion.
		},
		Func: nodeConnectFn,
	}
)

func init() {
	nodeCmd.AddCmd(nodeConnectCmd)
}

func nodeFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func nodeConnectFn(c *ishell.Context) {
	countReqArgs := 1
	if len(c.Args) != countReqArgs {
		printArgCountError(c, countReqArgs)
		return
	}

	nodeURL := c.Args[0]
	cl, err := client.New(client.Config{URL: nodeURL})
	if err != nil {
		c.Printf("%s\n\n", redf("Error connecting to web3 node at %s: %v", nodeURL, err))
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	state, err := cl.State(ctx)
	if err != nil {
		printAPIError(c, "connecting to web3 node", err)
		return
	}
	nodeClient = cl
	c.Printf("%s\n\n", greenf("Connected to web3 node at %s. Session uses %s provider on %s.",
		nodeURL, state.ProviderType, state.ChainName))
}
