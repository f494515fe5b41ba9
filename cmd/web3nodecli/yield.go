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
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/hyperledger-labs/web3-node/yield"
)

var (
	yieldCmdUsage = "Usage: yield [sub-command]"
	yieldCmd      = &ishell.Cmd{
		Name: "yield",
		Help: "Use this command to read yield pools on a chain." + yieldCmdUsage,
		Func: yieldFn,
	}

	yieldPoolsCmdUsage = "Usage: yield pools [chain id]"
	yieldPoolsCmd      = &ishell.Cmd{
		Name: "pools",
		Help: "List the yield pools on the chain." + yieldPoolsCmdUsage,
		Func: yieldPoolsFn,
	}

	yieldOptimalCmdUsage = "Usage: yield optimal [chain id] [risk tolerance 1-10]"
	yieldOptimalCmd      = &ishell.Cmd{
		Name: "optimal",
		Help: "List the yield pools within the risk tolerance, best return per risk first." + yieldOptimalCmdUsage,
		Func: yieldOptimalFn,
	}
)

func init() {
	yieldCmd.AddCmd(yieldPoolsCmd)
	yieldCmd.AddCmd(yieldOptimalCmd)
}

func yieldFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func yieldPoolsFn(c *ishell.Context) {
	if !checkArgs(c, 1) {
		return
	}
	chainID, err := strconv.ParseUint(c.Args[0], 10, 64)
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing chain id: %v", err))
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	pools, err := nodeClient.Pools(ctx, chainID)
	if err != nil {
		printAPIError(c, "reading pools", err)
		return
	}
	printPools(c, pools)
}

func yieldOptimalFn(c *ishell.Context) {
	if !checkArgs(c, 2) {
		return
	}
	chainID, err := strconv.ParseUint(c.Args[0], 10, 64)
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing chain id: %v", err))
		return
	}
	riskTolerance, err := strconv.Atoi(c.Args[1])
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing risk tolerance: %v", err))
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	pools, err := nodeClient.OptimalPools(ctx, chainID, riskTolerance)
	if err != nil {
		printAPIError(c, "reading optimal pools", err)
		return
	}
	printPools(c, pools)
}

func printPools(c *ishell.Context, pools []yield.Pool) {
	if len(pools) == 0 {
		c.Printf("%s\n\n", redf("No pools found."))
		return
	}
	for i := range pools {
		c.Printf("%s\n", greenf("%-24s %-16s %-8s apy: %6.2f%%  risk: %2d  tvl: %.0f",
			pools[i].ID, pools[i].Protocol, pools[i].Symbol, pools[i].APY, pools[i].RiskScore, pools[i].TVL))
	}
	c.Printf("\n")
}
