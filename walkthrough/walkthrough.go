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
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node/api/rest"
	"github.com/hyperledger-labs/web3-node/client"
)

// pollInterval is the interval for polling the session state while waiting
// for the balance refresh after a transaction.
const pollInterval = 200 * time.Millisecond

type options struct {
	To      string
	Amount  string
	Message string
	Wait    time.Duration
}

var (
	stepColor   = color.New(color.FgGreen)
	detailColor = color.New(color.FgYellow)
)

// run executes the walkthrough steps using the client and prints the
// progress to out.
func run(ctx context.Context, c *client.Client, opts options, out io.Writer) error {
	state, err := c.State(ctx)
	if err != nil {
		return errors.WithMessage(err, "reading session state")
	}
	step(out, "Session uses %s provider on %s", state.ProviderType, state.ChainName)

	conn, err := c.ConnectWallet(ctx)
	if err != nil {
		return errors.WithMessage(err, "connecting wallet")
	}
	if !conn.Connected {
		return errors.New("wallet did not provide an account")
	}
	step(out, "Wallet connected")
	detail(out, "address: %s", conn.Address)

	bal, err := c.RefreshBalance(ctx)
	if err != nil {
		return errors.WithMessage(err, "reading balance")
	}
	step(out, "Balance read")
	detail(out, "balance: %s %s", bal.Value, bal.Symbol)

	sig, err := c.SignMessage(ctx, opts.Message)
	if err != nil {
		return errors.WithMessage(err, "signing message")
	}
	step(out, "Message signed")
	detail(out, "message: %q\n  signature: %s", opts.Message, sig)

	valid, err := c.VerifySignature(ctx, opts.Message, sig, conn.Address)
	if err != nil {
		return errors.WithMessage(err, "verifying signature")
	}
	if !valid {
		return errors.New("signature does not verify for the wallet address")
	}
	step(out, "Signature verified")

	if opts.To == "" {
		return nil
	}
	sentAt := time.Now()
	tx, err := c.SendTransaction(ctx, opts.To, opts.Amount)
	if err != nil {
		return errors.WithMessage(err, "sending transaction")
	}
	step(out, "Sent %s %s to %s", opts.Amount, bal.Symbol, opts.To)
	detail(out, "hash: %s\n  explorer: %s", tx.Hash, tx.ExplorerURL)

	refreshed, err := waitForRefresh(ctx, c, sentAt, opts.Wait)
	if err != nil {
		return err
	}
	step(out, "Balance refreshed")
	detail(out, "balance: %s %s", refreshed.Value, refreshed.Symbol)
	return nil
}

// waitForRefresh polls the session state until it holds a balance read after
// the given time.
func waitForRefresh(ctx context.Context, c *client.Client, after time.Time, wait time.Duration) (rest.Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		state, err := c.State(ctx)
		if err != nil {
			return rest.Balance{}, errors.WithMessage(err, "reading session state")
		}
		if state.Balance != nil && !state.Loading && state.Balance.ReadAt.After(after) {
			return *state.Balance, nil
		}
		select {
		case <-ctx.Done():
			return rest.Balance{}, errors.New("balance was not refreshed in time")
		case <-ticker.C:
		}
	}
}

func step(out io.Writer, format string, args ...interface{}) {
	_, _ = stepColor.Fprintf(out, "\n> "+format+"\n", args...)
}

func detail(out io.Writer, format string, args ...interface{}) {
	_, _ = detailColor.Fprintf(out, "  "+format+"\n", args...)
}
