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

package blockchain

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidTokenError indicates that the contract at the address does not
// implement the expected token interface.
type InvalidTokenError struct {
	Address string
	err     error
}

// Error implements error interface.
func (e InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token contract at address %s: %v", e.Address, e.err)
}

// Unwrap returns the original error.
func (e InvalidTokenError) Unwrap() error {
	return e.err
}

// NewInvalidTokenError constructs and returns an InvalidTokenError.
func NewInvalidTokenError(address string, err error) error {
	return errors.WithStack(InvalidTokenError{
		Address: address,
		err:     err,
	})
}

// ChainMismatchError indicates that a node or a wallet is on a different
// chain than expected.
type ChainMismatchError struct {
	Want uint64
	Got  uint64
}

// Error implements error interface.
func (e ChainMismatchError) Error() string {
	return fmt.Sprintf("chain id mismatch: want %d, got %d", e.Want, e.Got)
}

// NewChainMismatchError constructs and returns a ChainMismatchError.
func NewChainMismatchError(want, got uint64) error {
	return errors.WithStack(ChainMismatchError{
		Want: want,
		Got:  got,
	})
}
