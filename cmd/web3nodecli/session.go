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

	"github.com/hyperledger-labs/web3-node"
)

var (
	sessionCmdUsage = "Usage: session [sub-command]"
	sessionCmd      = &ishell.Cmd{
		Name: "session",
		Help: "Use this command to access the session of the node." + sessionCmdUsage,
		Func: sessionFn,
	}

	sessionStateCmdUsage = "Usage: session state"
	sessionStateCmd      = &ishell.Cmd{
		Name: "state",
		Help: "Print the state of the session." + sessionStateCmdUsage,
		Func: sessionStateFn,
	}

	sessionProviderCmdUsage = "Usage: session provider [ethers|web3|viem]"
	sessionProviderCmd      = &ishell.Cmd{
		Name: "provider",
		Help: "Switch the provider type of the session." + sessionProviderCmdUsage,
		Completer: func([]string) []string {
			return []string{string(web3.ProviderEthers), string(web3.ProviderClassic), string(web3.ProviderTyped)}
		},
		Func: sessionProviderFn,
	}

	sessionChainCmdUsage = "Usage: session chain [chain id]"
	sessionChainCmd      = &ishell.Cmd{
		Name: "chain",
		Help: "Switch the chain of the session." + sessionChainCmdUsage,
		Completer: func([]string) []string {
			return []string{"1", "137", "42161", "10"} // Provide default values as autocompletion.
		},
		Func: sessionChainFn,
	}

	sessionAddressCmdUsage = "Usage: session address [address]"
	sessionAddressCmd      = &ishell.Cmd{
		Name: "address",
		Help: "Set the address whose balance is read, without connecting a wallet." + sessionAddressCmdUsage,
		Func: sessionAddressFn,
	}

	sessionConnectCmdUsage = "Usage: session connect"
	sessionConnectCmd      = &ishell.Cmd{
		Name: "connect",
		Help: "Connect the wallet of the node and read the balance of its account." + sessionConnectCmdUsage,
		Func: sessionConnectFn,
	}

	sessionBalanceCmdUsage = "Usage: session balance"
	sessionBalanceCmd      = &ishell.Cmd{
		Name: "balance",
		Help: "Read the balance of the session address." + sessionBalanceCmdUsage,
		Func: sessionBalanceFn,
	}

	sessionSendCmdUsage = "Usage: session send [to] [amount]"
	sessionSendCmd      = &ishell.Cmd{
		Name: "send",
		Help: "Send the amount in native currency to the address, via the wallet." + sessionSendCmdUsage,
		Func: sessionSendFn,
	}

	sessionTransferCmdUsage = "Usage: session transfer [token] [to] [amount]"
	sessionTransferCmd      = &ishell.Cmd{
		Name: "transfer",
		Help: "Transfer the amount of the ERC20 token to the address, via the wallet." + sessionTransferCmdUsage,
		Func: sessionTransferFn,
	}

	sessionApproveCmdUsage = "Usage: session approve [token] [spender] [amount]"
	sessionApproveCmd      = &ishell.Cmd{
		Name: "approve",
		Help: "Allow the spender to transfer up to the amount of the ERC20 token, via the wallet." + sessionApproveCmdUsage,
		Func: sessionApproveFn,
	}

	sessionSignCmdUsage = "Usage: session sign [message]"
	sessionSignCmd      = &ishell.Cmd{
		Name: "sign",
		Help: "Sign the message with the wallet. The message can contain spaces." + sessionSignCmdUsage,
		Func: sessionSignFn,
	}
)

func init() {
	sessionCmd.AddCmd(sessionStateCmd)
	sessionCmd.AddCmd(sessionProviderCmd)
	sessionCmd.AddCmd(sessionChainCmd)
	sessionCmd.AddCmd(sessionAddressCmd)
	sessionCmd.AddCmd(sessionConnectCmd)
	sessionCmd.AddCmd(sessionBalanceCmd)
	sessionCmd.AddCmd(sessionSendCmd)
	sessionCmd.AddCmd(sessionTransferCmd)
	sessionCmd.AddCmd(sessionApproveCmd)
	sessionCmd.AddCmd(sessionSignCmd)
}

func sessionFn(c *ishell.Context) {
	if nodeClient == nil {
		printNodeNotConnectedError(c)
		return
	}
	c.Println(c.Cmd.HelpText())
}

func sessionStateFn(c *ishell.Context) {
	if !checkArgs(c, 0) {
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	state, err := nodeClient.State(ctx)
	if err != nil {
		printAPIError(c, "reading session state", err)
		return
	}
	c.Printf("%s\n\n", greenf("Session state:\n%s", prettify(state)))
}

func sessionProviderFn(c *ishell.Context) {
	if !checkArgs(c, 1) {
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	state, err := nodeClient.SetProviderType(ctx, web3.ProviderType(c.Args[0]))
	if err != nil {
		printAPIError(c, "switching provider", err)
		return
	}
	c.Printf("%s\n\n", greenf("Session uses %s provider on %s.", state.ProviderType, state.ChainName))
}

func sessionChainFn(c *ishell.Context) {
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
	state, err := nodeClient.SetChain(ctx, chainID)
	if err != nil {
		printAPIError(c, "switching chain", err)
		return
	}
	c.Printf("%s\n\n", greenf("Session uses %s provider on %s.", state.ProviderType, state.ChainName))
}

func sessionAddressFn(c *ishell.Context) {
	if !checkArgs(c, 1) {
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	bal, err := nodeClient.SetAddress(ctx, c.Args[0])
	if err != nil {
		printAPIError(c, "setting address", err)
		return
	}
	c.Printf("%s\n\n", greenf("Balance of %s: %s %s", bal.Address, bal.Value, bal.Symbol))
}

func sessionConnectFn(c *ishell.Context) {
	if !checkArgs(c, 0) {
		return
	}
	c.Printf("Waiting for the wallet to approve the connection...\n")
	ctx, cancel := requestCtx()
	defer cancel()
	resp, err := nodeClient.ConnectWallet(ctx)
	if err != nil {
		printAPIError(c, "connecting wallet", err)
		return
	}
	if !resp.Connected {
		c.Printf("%s\n\n", redf("Wallet did not provide an account."))
		return
	}
	c.Printf("%s\n\n", greenf("Wallet connected. Address: %s", resp.Address))
}

func sessionBalanceFn(c *ishell.Context) {
	if !checkArgs(c, 0) {
		return
	}
	ctx, cancel := requestCtx()
	defer cancel()
	bal, err := nodeClient.RefreshBalance(ctx)
	if err != nil {
		printAPIError(c, "reading balance", err)
		return
	}
	c.Printf("%s\n\n", greenf("Balance of %s: %s %s", bal.Address, bal.Value, bal.Symbol))
}

func sessionSendFn(c *ishell.Context) {
	if !checkArgs(c, 2) {
		return
	}
	c.Printf("Waiting for the wallet to approve the transaction...\n")
	ctx, cancel := requestCtx()
	defer cancel()
	tx, err := nodeClient.SendTransaction(ctx, c.Args[0], c.Args[1])
	if err != nil {
		printAPIError(c, "sending transaction", err)
		return
	}
	c.Printf("%s\n\n", greenf("Transaction sent. Hash: %s\nExplorer: %s", tx.Hash, tx.ExplorerURL))
}

func sessionTransferFn(c *ishell.Context) {
	if !checkArgs(c, 3) {
		return
	}
	c.Printf("Waiting for the wallet to approve the transfer...\n")
	ctx, cancel := requestCtx()
	defer cancel()
	tx, err := nodeClient.TransferToken(ctx, c.Args[0], c.Args[1], c.Args[2])
	if err != nil {
		printAPIError(c, "transferring token", err)
		return
	}
	c.Printf("%s\n\n", greenf("Transfer sent. Hash: %s\nExplorer: %s", tx.Hash, tx.ExplorerURL))
}

func sessionApproveFn(c *ishell.Context) {
	if !checkArgs(c, 3) {
		return
	}
	c.Printf("Waiting for the wallet to approve the allowance...\n")
	ctx, cancel := requestCtx()
	defer cancel()
	tx, err := nodeClient.ApproveToken(ctx, c.Args[0], c.Args[1], c.Args[2])
	if err != nil {
		printAPIError(c, "approving token", err)
		return
	}
	c.Printf("%s\n\n", greenf("Approval sent. Hash: %s\nExplorer: %s", tx.Hash, tx.ExplorerURL))
}

func sessionSignFn(c *ishell.Context) {
	if nodeClient == nil {
		printNodeNotConnectedError(c)
		return
	}
	if len(c.Args) == 0 {
		printArgCountError(c, 1)
		return
	}
	c.Printf("Waiting for the wallet to approve the signature...\n")
	ctx, cancel := requestCtx()
	defer cancel()
	sig, err := nodeClient.SignMessage(ctx, strings.Join(c.Args, " "))
	if err != nil {
		printAPIError(c, "signing message", err)
		return
	}
	c.Printf("%s\n\n", greenf("Signature: %s", sig))
}
