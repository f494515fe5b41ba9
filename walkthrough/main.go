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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/web3-node/client"
)

const (
	// flag names for the walkthrough.
	urlF     = "url"
	toF      = "to"
	amountF  = "amount"
	messageF = "message"
	waitF    = "wait"
)

func main() {
	walkthroughApp := &cobra.Command{
		Use:   "walkthrough",
		Short: "Run a scripted session against a running web3 node",
		Long: `
Run a scripted session against a running web3 node: connect the wallet, read the
balance, sign a message and verify the signature. If a recipient is specified,
also send the amount to it and wait for the balance to be refreshed.

The node should be started with a wallet host (keystore or rpc). With the
keystore host, requests must be approved in the terminal of the node unless
autoapprove is set.`,
		Run: walkthrough,
	}
	addFlagSet(walkthroughApp)
	if err := walkthroughApp.Execute(); err != nil {
		fmt.Println("Error initializing walkthrough app -", err)
		os.Exit(1)
	}
}

func addFlagSet(app *cobra.Command) {
	app.Flags().String(urlF, "http://127.0.0.1:8080", "URL of the web3 node REST API")
	app.Flags().String(toF, "", "Recipient of the transaction. Use empty string to skip sending")
	app.Flags().String(amountF, "0.001", "Amount in native currency to send to the recipient")
	app.Flags().String(messageF, "hello from web3 node walkthrough", "Message to sign")
	app.Flags().Duration(waitF, 30*time.Second, "Max duration to wait for the balance refresh after sending")
}

func walkthrough(app *cobra.Command, _ []string) {
	nodeURL, _ := app.Flags().GetString(urlF)
	opts := options{}
	opts.To, _ = app.Flags().GetString(toF)
	opts.Amount, _ = app.Flags().GetString(amountF)
	opts.Message, _ = app.Flags().GetString(messageF)
	opts.Wait, _ = app.Flags().GetDuration(waitF)

	c, err := client.New(client.Config{URL: nodeURL, Timeout: 2 * time.Minute})
	if err != nil {
		fmt.Println("Error initializing client -", err)
		os.Exit(1)
	}
	if err = run(context.Background(), c, opts, app.OutOrStdout()); err != nil {
		fmt.Println("Walkthrough failed -", err)
		os.Exit(1)
	}
	fmt.Println("Walkthrough execution complete")
}
