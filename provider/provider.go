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

// Package provider implements the three backend adapter styles that satisfy
// web3.Provider. All of them read from the chain RPC endpoint without a
// wallet, and write through the wallet host once a wallet is connected.
//
// Constructing a provider performs no network I/O. Arguments are validated
// before any request is made.
package provider

import (
	"context"
	"math/big"
	"net/url"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/currency"
	"github.com/hyperledger-labs/web3-node/log"
	"github.com/hyperledger-labs/web3-node/wallet"
)

// Enumeration of valid argument names for using in InvalidArgument errors.
const (
	ArgNameAddress      web3.ArgumentName = "address"
	ArgNameTo           web3.ArgumentName = "to"
	ArgNameAmount       web3.ArgumentName = "amount"
	ArgNameProviderType web3.ArgumentName = "providerType"
	ArgNameToken        web3.ArgumentName = "token"
	ArgNameSpender      web3.ArgumentName = "spender"
)

// Operation names used in the errors.
const (
	OpGetBalance      = "get balance"
	OpConnectWallet   = "connect wallet"
	OpSendTransaction = "send transaction"
	OpSignMessage     = "sign message"
	OpTransferToken   = "transfer token"
	OpApproveToken    = "approve token"
)

// Config holds the parameters for constructing a provider.
type Config struct {
	Chain  web3.ChainDescriptor
	RPCURL string          // Endpoint for reads. Only http and https are supported.
	Host   web3.WalletHost // Optional. Without a host, ConnectWallet returns nil.
}

// New returns a provider of the given type for the chain.
func New(t web3.ProviderType, cfg Config) (web3.Provider, error) {
	switch t {
	case web3.ProviderEthers:
		return NewEthers(cfg)
	case web3.ProviderClassic:
		return NewClassic(cfg)
	case web3.ProviderTyped:
		return NewTyped(cfg)
	default:
		return nil, web3.NewAPIErrInvalidArgument(nil, ArgNameProviderType, string(t))
	}
}

// base holds the parts common to all the providers: the read client, the
// wallet host and the connection state.
type base struct {
	log.Logger

	typ      web3.ProviderType
	chain    web3.ChainDescriptor
	currency web3.Currency
	host     web3.WalletHost
	rpc      *rpc.Client
	rpcURL   string
	tokens   *ethereum.ChainReader

	mtx     sync.Mutex
	state   web3.ConnectionState
	account common.Address
}

func newBase(t web3.ProviderType, cfg Config) (*base, error) {
	u, err := url.Parse(cfg.RPCURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		// The url is not included in the error as it can contain the API key.
		return nil, web3.NewAPIErrInvalidConfig(errors.New("should be an http or https url"),
			"rpc url", cfg.Chain.Name)
	}
	client, err := rpc.DialHTTP(cfg.RPCURL)
	if err != nil {
		return nil, web3.NewAPIErrInvalidConfig(errors.New("cannot create rpc client"), "rpc url", cfg.Chain.Name)
	}
	return &base{
		Logger:   log.NewLoggerWithFields(log.Fields{"provider": string(t), "chain": cfg.Chain.ChainID}),
		typ:      t,
		chain:    cfg.Chain,
		currency: currency.New(cfg.Chain.NativeSymbol, cfg.Chain.NativeDecimals),
		host:     cfg.Host,
		rpc:      client,
		rpcURL:   cfg.RPCURL,
		tokens:   ethereum.NewChainReader(ethclient.NewClient(client), cfg.Chain.ChainID),
	}, nil
}

// Type returns the type of the provider.
func (b *base) Type() web3.ProviderType { return b.typ }

// ChainID returns the chain the provider is bound to.
func (b *base) ChainID() uint64 { return b.chain.ChainID }

// Connection returns the state of the wallet connection.
func (b *base) Connection() web3.ConnectionState {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.state
}

// Close closes the read client.
func (b *base) Close() {
	b.rpc.Close()
}

type signer struct {
	address common.Address
}

func (s signer) Address() string { return s.address.Hex() }

func (b *base) hostAvailable() bool {
	if b.host == nil {
		return false
	}
	if r, ok := b.host.(web3.AvailabilityReporter); ok {
		return r.Available()
	}
	return true
}

func (b *base) setState(state web3.ConnectionState) {
	b.mtx.Lock()
	b.state = state
	b.mtx.Unlock()
}

// connect requests the accounts from the wallet host and aligns the wallet
// to the chain of the provider. A failed attempt returns the provider to
// Disconnected, so that reads continue and the user can retry.
func (b *base) connect(ctx context.Context) (web3.Signer, error) {
	b.WithField("method", "ConnectWallet").Info("Received request")
	if !b.hostAvailable() {
		b.WithField("method", "ConnectWallet").Info("No wallet host present")
		return nil, nil
	}

	b.setState(web3.Connecting)
	addr, apiErr := b.requestAccount(ctx)
	if apiErr == nil {
		apiErr = b.alignChain(ctx)
	}
	if apiErr != nil {
		b.setState(web3.Failed)
		b.logErr("ConnectWallet", apiErr)
		b.setState(web3.Disconnected)
		return nil, apiErr
	}

	b.mtx.Lock()
	b.state = web3.Connected
	b.account = addr
	b.mtx.Unlock()
	b.WithFields(log.Fields{"method": "ConnectWallet", "account": addr.Hex()}).Info("Wallet connected")
	return signer{addr}, nil
}

func (b *base) requestAccount(ctx context.Context) (common.Address, web3.APIError) {
	var accs []string
	if err := b.host.Request(ctx, &accs, wallet.MethodRequestAccounts); err != nil {
		return common.Address{}, b.connectErr(err, wallet.MethodRequestAccounts)
	}
	if len(accs) == 0 {
		return common.Address{}, web3.NewAPIErrConnectionFailed(errors.New("wallet returned no accounts"), b.chain.ChainID)
	}
	addr, err := ethereum.ParseAddress(accs[0])
	if err != nil {
		return common.Address{}, web3.NewAPIErrConnectionFailed(errors.WithMessage(err, "wallet account"), b.chain.ChainID)
	}
	return addr, nil
}

// alignChain switches the wallet to the chain of the provider, if it is on a
// different one.
func (b *base) alignChain(ctx context.Context) web3.APIError {
	var walletChain hexutil.Uint64
	if err := b.host.Request(ctx, &walletChain, wallet.MethodChainID); err != nil {
		return b.connectErr(err, wallet.MethodChainID)
	}
	if uint64(walletChain) == b.chain.ChainID {
		return nil
	}
	b.WithFields(log.Fields{"from": uint64(walletChain), "to": b.chain.ChainID}).Info("Switching wallet chain")
	args := wallet.SwitchChainArgs{ChainID: hexutil.Uint64(b.chain.ChainID)}
	if err := b.host.Request(ctx, nil, wallet.MethodSwitchChain, args); err != nil {
		return b.connectErr(err, wallet.MethodSwitchChain)
	}
	return nil
}

// connectedAccount returns the account of the connected wallet.
func (b *base) connectedAccount(op string) (common.Address, web3.APIError) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.state != web3.Connected {
		return common.Address{}, web3.NewAPIErrNotConnected(op)
	}
	return b.account, nil
}

func (b *base) parseAddress(name web3.ArgumentName, address string) (common.Address, web3.APIError) {
	addr, err := ethereum.ParseAddress(address)
	if err != nil {
		return common.Address{}, web3.NewAPIErrInvalidAddress(err, name, address)
	}
	return addr, nil
}

// parseTransfer validates the arguments of a transfer. It makes no network
// calls.
func (b *base) parseTransfer(to, amount string) (common.Address, *big.Int, web3.APIError) {
	toAddr, apiErr := b.parseAddress(ArgNameTo, to)
	if apiErr != nil {
		return common.Address{}, nil, apiErr
	}
	value, err := b.currency.Parse(amount)
	if err != nil {
		return common.Address{}, nil, web3.NewAPIErrInvalidAmount(err, ArgNameAmount, amount)
	}
	return toAddr, value, nil
}

// sendTransfer validates the transfer, checks the wallet is connected and
// submits it through the wallet host.
func (b *base) sendTransfer(ctx context.Context, to, amount string) (string, error) {
	b.WithField("method", "SendTransaction").Infof("Received request with params %s, %s", to, amount)

	toAddr, value, apiErr := b.parseTransfer(to, amount)
	if apiErr != nil {
		return "", b.logErr("SendTransaction", apiErr)
	}
	from, apiErr := b.connectedAccount(OpSendTransaction)
	if apiErr != nil {
		return "", b.logErr("SendTransaction", apiErr)
	}
	args := wallet.TxArgs{From: from.Hex(), To: toAddr.Hex(), Value: (*hexutil.Big)(value)}
	hash, apiErr := b.submit(ctx, OpSendTransaction, args)
	if apiErr != nil {
		return "", b.logErr("SendTransaction", apiErr)
	}
	return hash, nil
}

// submit sends the transaction through the wallet host and returns the
// transaction hash.
func (b *base) submit(ctx context.Context, op string, args wallet.TxArgs) (string, web3.APIError) {
	var hash common.Hash
	if err := b.host.Request(ctx, &hash, wallet.MethodSendTransaction, args); err != nil {
		return "", b.walletErr(err, op, wallet.MethodSendTransaction)
	}
	b.WithFields(log.Fields{"op": op, "hash": hash.Hex()}).Info("Transaction submitted")
	return hash.Hex(), nil
}

func (b *base) format(wei *big.Int) string {
	return b.currency.Format(wei)
}

func (b *base) logErr(method string, apiErr web3.APIError) web3.APIError {
	b.WithFields(web3.APIErrAsMap(method, apiErr)).Error(apiErr.Message())
	return apiErr
}

// connectErr maps errors from the wallet host during connect.
func (b *base) connectErr(err error, method string) web3.APIError {
	if wallet.IsUserRejected(err) {
		return web3.NewAPIErrUserRejected(err, method)
	}
	return web3.NewAPIErrConnectionFailed(b.redact(err), b.chain.ChainID)
}

// walletErr maps errors from the wallet host after connect. Errors without a
// wallet error code are failures of the node behind the wallet.
func (b *base) walletErr(err error, op, method string) web3.APIError {
	code, ok := wallet.ErrorCode(err)
	switch {
	case ok && code == wallet.CodeUserRejected:
		return web3.NewAPIErrUserRejected(err, method)
	case ok && code == wallet.CodeUnauthorized:
		return web3.NewAPIErrNotConnected(op)
	case ok && code >= 4000 && code < 5000:
		return web3.NewAPIErrConnectionFailed(err, b.chain.ChainID)
	default:
		return b.networkErr(err, method)
	}
}

func (b *base) networkErr(err error, method string) web3.APIError {
	return web3.NewAPIErrNetwork(b.redact(err), b.chain.ChainID, method)
}

func (b *base) redact(err error) error {
	return ethereum.RedactURL(err, b.rpcURL)
}
