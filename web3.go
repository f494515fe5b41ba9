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

// Package web3 defines the types and interfaces shared by the components of
// the web3 node. Implementations live in the sub packages; exported methods in
// this package use only types defined here and in the standard library.
package web3

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// ProviderType enumerates the backend adapter styles that implement the
// Provider interface.
type ProviderType string

// Supported provider types.
const (
	// ProviderEthers reads through a typed chain client and signs through the
	// wallet host. It supports all operations.
	ProviderEthers ProviderType = "ethers"
	// ProviderClassic issues raw JSON-RPC calls and decodes them manually.
	// It does not support message signing.
	ProviderClassic ProviderType = "web3"
	// ProviderTyped uses a typed public client with batched reads and a
	// separate wallet client. It does not support message signing.
	ProviderTyped ProviderType = "viem"
)

// ProviderTypes returns all the supported provider types in a fixed order.
func ProviderTypes() []ProviderType {
	return []ProviderType{ProviderEthers, ProviderClassic, ProviderTyped}
}

// ParseProviderType returns the provider type for the given string. Matching
// is case insensitive.
func ParseProviderType(s string) (ProviderType, error) {
	for _, t := range ProviderTypes() {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown provider type %q", s)
}

// ChainDescriptor identifies a supported network.
type ChainDescriptor struct {
	ChainID          uint64        `yaml:"chain_id"`
	Name             string        `yaml:"name"`
	RPCTemplate      string        `yaml:"rpc_template"` // %s is replaced with the API key, if present.
	NativeSymbol     string        `yaml:"native_symbol"`
	NativeDecimals   uint8         `yaml:"native_decimals"`
	ExplorerURL      string        `yaml:"explorer_url"`
	ChainType        string        `yaml:"chain_type"`
	AverageBlockTime time.Duration `yaml:"average_block_time"`
	Confirmations    int           `yaml:"confirmations"`
	Protocols        []string      `yaml:"protocols"`
}

// RPCURL returns the RPC endpoint for the chain using the given API key.
func (c ChainDescriptor) RPCURL(apiKey string) string {
	if !strings.Contains(c.RPCTemplate, "%s") {
		return c.RPCTemplate
	}
	return fmt.Sprintf(c.RPCTemplate, apiKey)
}

// TxURL returns the explorer deep link for the given transaction hash.
func (c ChainDescriptor) TxURL(hash string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.ExplorerURL, "/") + "/tx/" + hash
}

// ROChainRegistry provides read access to the chains supported by the node.
type ROChainRegistry interface {
	Chain(chainID uint64) (ChainDescriptor, bool)
	ChainIDs() []uint64
	Name(chainID uint64) string
}

// ChainRegistry extends ROChainRegistry with a method to register chains.
type ChainRegistry interface {
	ROChainRegistry
	Register(ChainDescriptor) error
}

//go:generate mockery --name WalletHost --output ./internal/mocks

// WalletHost is the wallet capable environment through which the providers
// request accounts, signatures and transactions. The semantics of Request
// follow EIP-1193: params are JSON encodable and the response is decoded
// into result, which must be a pointer.
//
// Errors returned by the host for wallet level failures implement
//
//	interface{ ErrorCode() int }
//
// with the EIP-1193 provider error codes.
type WalletHost interface {
	Request(ctx context.Context, result interface{}, method string, params ...interface{}) error
}

// AvailabilityReporter is optionally implemented by wallet hosts that are not
// always present. For example, a browser bridge is available only while a
// browser is attached.
type AvailabilityReporter interface {
	Available() bool
}

// Signer is the handle for a connected wallet account.
type Signer interface {
	Address() string
}

// ConnectionState tracks whether a write capable signer is attached to a
// provider.
type ConnectionState int

// Connection states of a provider.
const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Failed
)

// String implements the stringer interface for ConnectionState.
func (s ConnectionState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"connected",
		"failed",
	}[s]
}

//go:generate mockery --name Provider --output ./internal/mocks

// Provider is the capability contract implemented by each backend adapter.
// A provider is bound to a single chain for its lifetime.
//
// Errors returned by the methods are APIErrors.
type Provider interface {
	Type() ProviderType
	ChainID() uint64
	Connection() ConnectionState

	// GetBalance returns the native currency balance of the address as a
	// decimal string. It does not require a connected wallet.
	GetBalance(ctx context.Context, address string) (string, error)

	// ConnectWallet returns nil signer and nil error when no wallet host is
	// present.
	ConnectWallet(ctx context.Context) (Signer, error)

	// SendTransaction transfers amount (decimal, in the native currency) to
	// the given address and returns the transaction hash.
	SendTransaction(ctx context.Context, to, amount string) (string, error)

	// SignMessage signs the message using the ethereum signed message prefix.
	SignMessage(ctx context.Context, message string) (string, error)

	// TransferToken transfers amount (decimal, in units of the token) of the
	// ERC20 token to the given address and returns the transaction hash.
	TransferToken(ctx context.Context, token, to, amount string) (string, error)

	// ApproveToken allows spender to transfer up to amount of the ERC20 token
	// on behalf of the connected account and returns the transaction hash.
	ApproveToken(ctx context.Context, token, spender, amount string) (string, error)

	Close()
}

// Currency converts between the decimal representation of amounts and the
// integer amount in the smallest unit of the currency.
type Currency interface {
	Symbol() string
	Decimals() uint8

	// Parse returns the amount in the smallest unit without loss of
	// precision.
	Parse(string) (*big.Int, error)
	// Format returns the exact decimal representation.
	Format(*big.Int) string
	// Print returns a representation rounded for display.
	Print(*big.Int) string
}

// ROCurrencyRegistry provides read access to a currency registry.
type ROCurrencyRegistry interface {
	IsRegistered(symbol string) bool
	Currency(symbol string) Currency
	Symbols() []string
}

// CurrencyRegistry provides access to a currency registry, with support for
// registering currencies.
type CurrencyRegistry interface {
	ROCurrencyRegistry
	Register(symbol string, decimals uint8) (Currency, error)
}

// BalanceSnapshot is a balance read for an address on a chain.
type BalanceSnapshot struct {
	Value   string
	Symbol  string
	Address string
	ChainID uint64
	ReadAt  time.Time
}

// TxReceiptRef refers to a submitted transaction. It is used for display
// only; confirmation is not tracked.
type TxReceiptRef struct {
	Hash        string
	ChainID     uint64
	ExplorerURL string
}

// SessionState is a snapshot of the state of a session.
type SessionState struct {
	ProviderType ProviderType
	ChainID      uint64
	ChainName    string
	NativeSymbol string
	Address      string // Empty if no address is known.
	Connection   ConnectionState
	Balance      *BalanceSnapshot // Nil until the first read for the current provider.
	Loading      bool
	LastError    string // Error of the last operation, cleared when an operation starts.
	LastTx       *TxReceiptRef
	Version      uint64 // Incremented each time the provider is replaced.
}

//go:generate mockery --name SessionAPI --output ./internal/mocks

// SessionAPI is the orchestration layer over the active provider. It holds
// the selected provider type and chain, and the state derived from the
// operations on them.
type SessionAPI interface {
	SetProviderType(ProviderType) error
	SetChain(chainID uint64) error
	SetAddress(ctx context.Context, address string) (BalanceSnapshot, error)
	ConnectWallet(context.Context) (Signer, error)
	RefreshBalance(context.Context) (BalanceSnapshot, error)
	SendTransaction(ctx context.Context, to, amount string) (TxReceiptRef, error)
	SignMessage(ctx context.Context, message string) (string, error)
	TransferToken(ctx context.Context, token, to, amount string) (TxReceiptRef, error)
	ApproveToken(ctx context.Context, token, spender, amount string) (TxReceiptRef, error)
	State() SessionState
	Close()
}

// Wallet host types that can be configured for the node.
const (
	WalletHostNone     = "none"
	WalletHostKeystore = "keystore"
	WalletHostRPC      = "rpc"
	WalletHostBridge   = "bridge"
)

// NodeConfig represents the configurable parameters of a web3 node.
type NodeConfig struct {
	LogLevel  string // LogLevel represents the log level for the node and all derived loggers.
	LogFile   string // LogFile represents the file to write logs. Empty string represents stdout.
	LogFormat string // LogFormat is one of text and json. Empty string represents text.

	ListenAddr      string        // Address for the REST API.
	CORSOrigins     []string      // Origins allowed to call the REST API from browsers. Empty allows all.
	ProviderType    string        // Provider type for the initial session handle.
	ChainID         uint64        // Chain for the initial session handle.
	APIKey          string        // API key substituted into the RPC templates.
	RefreshDelay    time.Duration // Delay before refreshing the balance after a transaction.
	ChainsFile      string        // Optional YAML file with additional chains.
	PoolsFile       string        // Optional YAML file with yield pools.
	LiveYieldSource string        // Optional URL for live pool data. Empty disables it.

	RPCOverrides map[uint64]string // RPC URLs used instead of the template for the given chains.

	WalletHost   string // One of none, keystore, rpc, bridge.
	WalletRPCURL string // URL for the rpc wallet host.
	KeystorePath string // Keystore directory for the keystore wallet host.
	KeystorePwd  string // Password for the keystore account.
	KeystoreAcc  string // Address of the keystore account.
	AutoApprove  bool   // Approve keystore wallet prompts without asking.

	SimulationUser    string // Tenderly account.
	SimulationProject string // Tenderly project.
	SimulationKey     string // Tenderly access key.
}
