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

package keystore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// PromptApprover returns an approver that prints each request to out and
// reads the answer from in. Only "y" and "yes" approve. Prompts are
// serialized, and a request whose context expires while waiting is
// rejected.
func PromptApprover(in io.Reader, out io.Writer) Approver {
	var mtx sync.Mutex
	answers := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			answers <- scanner.Text()
		}
		close(answers)
	}()

	return func(ctx context.Context, method, summary string) bool {
		mtx.Lock()
		defer mtx.Unlock()
		fmt.Fprintf(out, "Wallet request %s: %s. Approve? [y/N]: ", method, summary) // nolint: errcheck
		select {
		case answer, ok := <-answers:
			if !ok {
				return false
			}
			answer = strings.ToLower(strings.TrimSpace(answer))
			return answer == "y" || answer == "yes"
		case <-ctx.Done():
			fmt.Fprintln(out, "timed out") // nolint: errcheck
			return false
		}
	}
}
