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

// Package wallet defines the request methods, arguments and errors shared by
// the wallet host implementations. The request semantics follow EIP-1193.
package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Request methods served by the wallet hosts.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodPersonalSign    = "personal_sign"
	MethodSendTransaction = "eth_sendTransaction"
)

// Provider error codes defined in EIP-1193 and EIP-3326.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeUnknownChain      = 4902
)

// TxArgs are the parameters of an eth_sendTransaction request.
type TxArgs struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
}

// SwitchChainArgs are the parameters of a wallet_switchEthereumChain request.
type SwitchChainArgs struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

// Error is a wallet level failure with an EIP-1193 error code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewError returns a wallet error with the code and a formatted message.
func NewError(code int, format string, args ...interface{}) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e Error) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

// ErrorCode implements the error code interface used by go-ethereum's rpc
// package, so that codes survive a round trip through a JSON-RPC server.
func (e Error) ErrorCode() int {
	return e.Code
}

type codedError interface {
	ErrorCode() int
}

// ErrorCode returns the wallet error code carried by err or any error wrapped
// in it.
func ErrorCode(err error) (int, bool) {
	var coded codedError
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejected reports whether the user declined the request.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}
