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
	"strings"

	"github.com/abiosoft/ishell"
)

var (
	chainCmdUsage = "Usage: chain [sub-command]"
	chainCmd      = &ishell.Cmd{
		Name: "chain",
		Help: "Use this command to read the chains supported by the node and the tokens on them." + chainCmdUsage,
		Func: chainFn,
	}

	chainListCmdUsage = "Usage: chain list"
	chainListCmd      = &ishell.Cmd{
		Name: "list",
		Help: "List the chains supported by the node." + chainListCmdUsage,
		Func: chainListFn,
	}

	chainTokenCmdUsage = "Usage: chain token [chain id] [token address] [holder address (optional)]"
	chainTokenCmd      = &ishell.Cmd{
		Name: "token",
		Help: "Read the details of an ERC20 token and optionally the balance of a holder." + chainTokenCmdUsage,
		Func: chainTokenFn,
	}

	chainPriceCmdUsage = "Usage: chain price [chain id] [token address]"
	chainPriceCmd      = &ishell.Cmd{
		Name: "price",
		Help: "Read the USD price of an ERC20 token." + chainPriceCmdUsage,
		Func: chainPriceFn,
	}

	chainAllowanceCmdUsage = "Usage: chain allowance [chain id] [token address] [owner] [spender]"
	chainAllowanceCmd      = &ishell.Cmd{
		Name: "allowance",
		Help: "Read the amount of an ERC20 token the spender may transfer for the owner." + chainAllowanceCmdUsage,
		Func: chainAllowanceFn,
	}

	chainVerifyCmdUsage = "Usage: chain verify [address] [signature] [message]"
	chainVerifyCmd      = &ishell.Cmd{
		Name: "verify",
		Help: "Verify that the signature on the message was made by the address. The message can contain spaces." +
			chainVerifyCmdUsage,
		Func: chainVerifyFn,
	}
)

func init() {
	chainCmd.AddCmd(chainListCmd)
	chainCmd.AddCmd(chainTokenCmd)
	chainCmd.AddCmd(chainPriceCmd)
	chainCmd.AddCmd(chainAllowanceCmd)
	chainCmd.AddCmd(chainVerifyCmd)
}

func chainFn(c *ishell.Context) {
	c.Println(c.Cmd.HelpText())
}

func chainListFn(c *ishell.Context) {
	if !checkArgs(c, 0) {
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	chains, err := nodeClient.Chains(ctx)
	if err != nil {
		printAPIError(c, "reading chains", err)
		return
	}
	for i := range chains {
		c.Printf("%s\n", greenf("%d\t%s\t%s", chains[i].ChainID, chains[i].Name, chains[i].NativeSymbol))
	}
	c.Printf("\n")
}

func chainTokenFn(c *ishell.Context) {
	if nodeClient == nil {
		printNodeNotConnectedError(c)
		return
	}
	if len(c.Args) != 2 && len(c.Args) != 3 {
		printArgCountError(c, 2)
		return
	}
	chainID, err := strconv.ParseUint(c.Args[0], 10, 64)
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing chain id: %v", err))
		return
	}
	var holder string
	if len(c.Args) == 3 {
		holder = c.Args[2]
	}

	ctx, cancel := requestCtx()
	defer cancel()
	token, err := nodeClient.Token(ctx, chainID, c.Args[1], holder)
	if err != nil {
		printAPIError(c, "reading token", err)
		return
	}
	c.Printf("%s\n\n", greenf("Token:\n%s", prettify(token)))
}

func chainVerifyFn(c *ishell.Context) {
	if nodeClient == nil {
		printNodeNotConnectedError(c)
		return
	}
	if len(c.Args) < 3 {
		printArgCountError(c, 3)
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	valid, err := nodeClient.VerifySignature(ctx, strings.Join(c.Args[2:], " "), c.Args[1], c.Args[0])
	if err != nil {
		printAPIError(c, "verifying signature", err)
		return
	}
	if !valid {
		c.Printf("%s\n\n", redf("Signature is not valid for the address."))
		return
	}
	c.Printf("%s\n\n", greenf("Signature is valid."))
}

func chainPriceFn(c *ishell.Context) {
	if !checkArgs(c, 2) {
		return
	}
	chainID, err := strconv.ParseUint(c.Args[0], 10, 64)
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing chain id: %v", err))
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	price, err := nodeClient.TokenPrice(ctx, chainID, c.Args[1])
	if err != nil {
		printAPIError(c, "reading price", err)
		return
	}
	c.Printf("%s\n\n", greenf("%s USD (%s)", price.USD, price.Source))
}

func chainAllowanceFn(c *ishell.Context) {
	if !checkArgs(c, 4) {
		return
	}
	chainID, err := strconv.ParseUint(c.Args[0], 10, 64)
	if err != nil {
		c.Printf("%s\n\n", redf("Error parsing chain id: %v", err))
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	allowance, err := nodeClient.Allowance(ctx, chainID, c.Args[1], c.Args[2], c.Args[3])
	if err != nil {
		printAPIError(c, "reading allowance", err)
		return
	}
	c.Printf("%s\n\n", greenf("Allowance: %s", allowance.Allowance))
}
