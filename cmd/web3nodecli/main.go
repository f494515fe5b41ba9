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
	"context"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/fatih/color"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/client"
)

var (
	// File that stores history of commands used in the interactive shell.
	// This will be preserved across the multiple runs of web3node cli.
	// It will be located in the home directory.
	historyFile = ".web3nodecli_history"

	// Singleton instance of ishell that is used throughout this program.
	// this will be initialized in main().
	sh *ishell.Shell

	// Singleton instance of the REST client that will be used by all
	// functions in this program. It is set when connecting to a node.
	nodeClient *client.Client

	// Timeout for each request sent to the node. Requests that make the
	// wallet prompt the user can take long, hence the generous value.
	requestTimeout = 2 * time.Minute

	// SPrintf style functions that produce colored text.
	redf   = color.New(color.FgRed).SprintfFunc()
	greenf = color.New(color.FgGreen).SprintfFunc()
)

func main() {
	// New shell includes help, clear, exit commands by default.
	sh = ishell.New()

	// Read and write history to $HOME/historyFile
	sh.SetHomeHistoryPath(historyFile)

	sh.AddCmd(nodeCmd)
	sh.AddCmd(chainCmd)
	sh.AddCmd(sessionCmd)
	sh.AddCmd(yieldCmd)
	sh.AddCmd(simulateCmd)

	sh.Printf("Web3 node cli application.\n\n")
	sh.Printf("%s\n\n", greenf("Connect to a web3 node instance using 'node connect' for making any requests."))

	sh.Run()
}

func requestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// printNodeNotConnectedError is a helper function to print error message that is used across mutiple commands.
func printNodeNotConnectedError(c ishell.Actions) {
	c.Printf("%s\n\n", redf("Not connected to web3 node, connect using 'node connect' command."))
}

// printArgCountError is a helper function to print error message that is used across mutiple commands.
func printArgCountError(c *ishell.Context, reqArgCount int) {
	c.Printf("%s\n\n", redf("Got %d arg(s). Want %d.", len(c.Args), reqArgCount))
	c.Printf("Command help:\t%s\n\n", c.Cmd.Help)
}

// printAPIError is a helper function to print error message that is used across mutiple commands.
func printAPIError(c ishell.Actions, action string, err error) {
	c.Printf("%s\n\n", redf("Error %s: %s", action, apiErrorString(err)))
}

// apiErrorString formats the error message returned by the API into pretty strings.
func apiErrorString(err error) string {
	apiErr, ok := web3.AsAPIError(err)
	if !ok {
		return fmt.Sprintf("sending command to web3 node: %v", err)
	}
	return fmt.Sprintf("category: %s, code: %d, message: %s, additional info: %+v",
		apiErr.Category(), apiErr.Code(), apiErr.Message(), apiErr.AddInfo())
}

// checkArgs prints an error and returns false if the node is not connected
// or the count of args does not match.
func checkArgs(c *ishell.Context, countReqArgs int) bool {
	if nodeClient == nil {
		printNodeNotConnectedError(c)
		return false
	}
	if len(c.Args) != countReqArgs {
		printArgCountError(c, countReqArgs)
		return false
	}
	return true
}
