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
	"encoding/json"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/hyperledger-labs/web3-node/simulation"
)

var (
	simulateCmdUsage = "Usage: simulate [sub-command]"
	simulateCmd      = &ishell.Cmd{
		Name: "simulate",
		Help: "Use this command to simulate transactions via the node." + simulateCmdUsage,
		Func: simulateFn,
	}

	simulateBalanceOfCmdUsage = "Usage: simulate balance-of [chain id] [from address] [token address]"
	simulateBalanceOfCmd      = &ishell.Cmd{
		Name: "balance-of",
		Help: "Simulate an ERC20 balanceOf call for the from address." + simulateBalanceOfCmdUsage,
		Func: simulateBalanceOfFn,
	}
)

func init() {
	simulateCmd.AddCmd(simulateBalanceOfCmd)
}

func simulateFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func simulateBalanceOfFn(c *ishell.Context) {
	if !checkArgs(c, 3) {
		return
	}
	chainID, err := strconv.ParseUint(c.Args[0], 10, 64)
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing chain id: %v", err))
		return
	}
	req, err := simulation.BalanceOfRequest(chainID, c.Args[1], c.Args[2])
	if err != nil {
		printAPIError(c, "building simulation request", err)
		return
	}

	ctx, cancel := requestCtx()
	defer cancel()
	status, body, err := nodeClient.Simulate(ctx, req)
	if err != nil {
		printAPIError(c, "simulating", err)
		return
	}
	var resp interface{}
	if err = json.Unmarshal(body, &resp); err != nil {
		resp = string(body)
	}
	if status >= 400 {
		c.Printf("%s\n\n", redf("Simulation returned status %d:\n%s", status, prettify(resp)))
		return
	}
	c.Printf("%s\n\n", greenf("Simulation result:\n%s", prettify(resp)))
}
