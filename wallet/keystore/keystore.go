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

// Package keystore implements a development wallet host backed by an
// encrypted keystore. It serves the subset of the wallet requests used by the
// providers and asks an Approver before revealing accounts, signing or
// sending.
package keystore

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"sync"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/log"
	"github.com/hyperledger-labs/web3-node/wallet"
)

// Gas limit for plain value transfers.
const transferGas = 21000

// BackendClient is the subset of the chain client used to build and submit
// transactions. It is satisfied by *ethclient.Client.
type BackendClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg geth.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// BackendResolver returns the backend for a chain. An error means the chain
// is unknown to the wallet.
type BackendResolver func(chainID uint64) (BackendClient, error)

// Approver is asked before a request is served. Returning false rejects the
// request with the user rejected error code.
type Approver func(ctx context.Context, method, summary string) bool

// AutoApprove approves every request.
func AutoApprove(context.Context, string, string) bool { return true }

// Config holds the parameters for a keystore wallet host.
type Config struct {
	Keystore *keystore.KeyStore
	Account  string
	Password string
	ChainID  uint64 // Chain the wallet is on initially.
	Backends BackendResolver
	Approve  Approver // Defaults to AutoApprove.
}

// Host is a wallet host for a single keystore account.
type Host struct {
	log.Logger

	ks       *keystore.KeyStore
	acc      accounts.Account
	password string
	backends BackendResolver
	approve  Approver

	mtx       sync.Mutex
	chainID   uint64
	connected bool
}

// New returns a host for the account in the keystore. The password is
// checked when the host is created.
func New(cfg Config) (*Host, error) {
	if cfg.Keystore == nil {
		return nil, errors.New("keystore is required")
	}
	if cfg.Backends == nil {
		return nil, errors.New("backend resolver is required")
	}
	acc, err := ethereum.FindAccount(cfg.Keystore, cfg.Account, cfg.Password)
	if err != nil {
		return nil, err
	}
	approve := cfg.Approve
	if approve == nil {
		approve = AutoApprove
	}
	return &Host{
		Logger:   log.NewLoggerWithFields(log.Fields{"wallet-host": "keystore", "account": acc.Address.Hex()}),
		ks:       cfg.Keystore,
		acc:      acc,
		password: cfg.Password,
		backends: cfg.Backends,
		approve:  approve,
		chainID:  cfg.ChainID,
	}, nil
}

// Address returns the address of the account held by the host.
func (h *Host) Address() common.Address {
	return h.acc.Address
}

// ChainID returns the chain the wallet is currently on.
func (h *Host) ChainID() uint64 {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.chainID
}

// Request serves the wallet request. The result is decoded the same way as a
// JSON-RPC response, so any type that can hold the JSON encoded response can
// be passed.
func (h *Host) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	h.WithField("method", method).Debug("Received wallet request")

	var resp interface{}
	var err error
	switch method {
	case wallet.MethodRequestAccounts:
		resp, err = h.requestAccounts(ctx)
	case wallet.MethodAccounts:
		resp = h.accounts()
	case wallet.MethodChainID:
		resp = hexutil.Uint64(h.ChainID())
	case wallet.MethodSwitchChain:
		resp, err = h.switchChain(params)
	case wallet.MethodPersonalSign:
		resp, err = h.personalSign(ctx, params)
	case wallet.MethodSendTransaction:
		resp, err = h.sendTransaction(ctx, params)
	default:
		err = wallet.NewError(wallet.CodeUnsupportedMethod, "method %s is not supported", method)
	}
	if err != nil {
		h.WithError(err).WithField("method", method).Error("Serving wallet request")
		return err
	}
	return decodeResult(resp, result)
}

func (h *Host) requestAccounts(ctx context.Context) ([]common.Address, error) {
	h.mtx.Lock()
	connected := h.connected
	h.mtx.Unlock()
	if connected {
		return []common.Address{h.acc.Address}, nil
	}
	if !h.approve(ctx, wallet.MethodRequestAccounts, "connect account "+h.acc.Address.Hex()) {
		return nil, wallet.NewError(wallet.CodeUserRejected, "user rejected the request")
	}
	h.mtx.Lock()
	h.connected = true
	h.mtx.Unlock()
	return []common.Address{h.acc.Address}, nil
}

func (h *Host) accounts() []common.Address {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if !h.connected {
		return []common.Address{}
	}
	return []common.Address{h.acc.Address}
}

func (h *Host) switchChain(params []interface{}) (interface{}, error) {
	var args wallet.SwitchChainArgs
	if err := decodeParams(params, &args); err != nil {
		return nil, err
	}
	chainID := uint64(args.ChainID)
	if _, err := h.backends(chainID); err != nil {
		return nil, wallet.NewError(wallet.CodeUnknownChain, "unrecognized chain id %d", chainID)
	}
	h.mtx.Lock()
	h.chainID = chainID
	h.mtx.Unlock()
	return nil, nil
}

// personalSign expects the params in the order (data, address).
func (h *Host) personalSign(ctx context.Context, params []interface{}) (hexutil.Bytes, error) {
	var data hexutil.Bytes
	var address string
	if err := decodeParams(params, &data, &address); err != nil {
		return nil, err
	}
	if err := h.checkAuthorized(address); err != nil {
		return nil, err
	}
	if !h.approve(ctx, wallet.MethodPersonalSign, "sign message "+string(data)) {
		return nil, wallet.NewError(wallet.CodeUserRejected, "user rejected the signature")
	}

	sig, err := h.ks.SignHashWithPassphrase(h.acc, h.password, accounts.TextHash(data))
	if err != nil {
		return nil, errors.Wrap(err, "signing message")
	}
	sig[64] += 27 // Transform V from 0/1 to 27/28 according to the yellow paper.
	return sig, nil
}

func (h *Host) sendTransaction(ctx context.Context, params []interface{}) (common.Hash, error) {
	var args wallet.TxArgs
	if err := decodeParams(params, &args); err != nil {
		return common.Hash{}, err
	}
	if err := h.checkAuthorized(args.From); err != nil {
		return common.Hash{}, err
	}
	to, err := ethereum.ParseAddress(args.To)
	if err != nil {
		return common.Hash{}, errors.WithMessage(err, "parsing recipient")
	}
	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}
	if !h.approve(ctx, wallet.MethodSendTransaction, "send "+value.String()+" wei to "+to.Hex()) {
		return common.Hash{}, wallet.NewError(wallet.CodeUserRejected, "user rejected the transaction")
	}

	chainID := h.ChainID()
	backend, err := h.backends(chainID)
	if err != nil {
		return common.Hash{}, errors.WithMessagef(err, "resolving backend for chain %d", chainID)
	}
	tx, err := h.buildTx(ctx, backend, to, value, args)
	if err != nil {
		return common.Hash{}, err
	}
	signed, err := h.ks.SignTxWithPassphrase(h.acc, h.password, tx, new(big.Int).SetUint64(chainID))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "signing transaction")
	}
	if err = backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Wrap(err, "sending transaction")
	}
	h.WithField("hash", signed.Hash().Hex()).Info("Sent transaction")
	return signed.Hash(), nil
}

func (h *Host) buildTx(ctx context.Context, backend BackendClient, to common.Address, value *big.Int,
	args wallet.TxArgs) (*types.Transaction, error) {
	nonce, err := backend.PendingNonceAt(ctx, h.acc.Address)
	if err != nil {
		return nil, errors.Wrap(err, "reading nonce")
	}
	gasPrice := (*big.Int)(args.GasPrice)
	if gasPrice == nil {
		if gasPrice, err = backend.SuggestGasPrice(ctx); err != nil {
			return nil, errors.Wrap(err, "reading gas price")
		}
	}
	gas := uint64(transferGas)
	switch {
	case args.Gas != nil:
		gas = uint64(*args.Gas)
	case len(args.Data) != 0:
		msg := geth.CallMsg{From: h.acc.Address, To: &to, Value: value, Data: args.Data}
		if gas, err = backend.EstimateGas(ctx, msg); err != nil {
			return nil, errors.Wrap(err, "estimating gas")
		}
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     args.Data,
	}), nil
}

func (h *Host) checkAuthorized(address string) error {
	h.mtx.Lock()
	connected := h.connected
	h.mtx.Unlock()
	if !connected {
		return wallet.NewError(wallet.CodeUnauthorized, "account is not connected")
	}
	if !strings.EqualFold(address, h.acc.Address.Hex()) {
		return wallet.NewError(wallet.CodeUnauthorized, "account %s is not held by the wallet", address)
	}
	return nil
}

// decodeParams decodes the params into targets as a JSON-RPC server would.
func decodeParams(params []interface{}, targets ...interface{}) error {
	if len(params) < len(targets) {
		return errors.Errorf("expected %d params, got %d", len(targets), len(params))
	}
	for i, target := range targets {
		raw, err := json.Marshal(params[i])
		if err != nil {
			return errors.Wrapf(err, "encoding param %d", i)
		}
		if err = json.Unmarshal(raw, target); err != nil {
			return errors.Wrapf(err, "decoding param %d", i)
		}
	}
	return nil
}

func decodeResult(resp, result interface{}) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encoding result")
	}
	return errors.Wrap(json.Unmarshal(raw, result), "decoding result")
}
