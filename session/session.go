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

package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/log"
)

// Error type is used to define error constants for this package.
type Error string

// Error implements error interface.
func (e Error) Error() string {
	return string(e)
}

// Definition of error constants for this package.
const (
	ErrSessionClosed Error = "action not allowed on a closed session"
)

// DefaultRefreshDelay is the delay before the balance is refreshed after a
// transaction is submitted.
const DefaultRefreshDelay = 2 * time.Second

// Timeout for the refreshes started by the session itself.
const backgroundRefreshTimeout = 30 * time.Second

// Enumeration of valid resource types for used in ResourceNotFound errors.
const (
	ResTypeChain web3.ResourceType = "chain"
)

// Enumeration of valid argument names for using in InvalidArgument errors.
const (
	ArgNameProviderType web3.ArgumentName = "providerType"
	ArgNameAddress      web3.ArgumentName = "address"
)

// Operation names used in the errors.
const (
	opRefreshBalance  = "refresh balance"
	opConnectWallet   = "connect wallet"
	opSendTransaction = "send transaction"
	opSignMessage     = "sign message"
	opTransferToken   = "transfer token"
	opApproveToken    = "approve token"
)

// ProviderFactory constructs the provider of the given type for the chain.
// It should not make any network requests.
type ProviderFactory func(t web3.ProviderType, chain web3.ChainDescriptor) (web3.Provider, error)

// Config holds the parameters for a session.
type Config struct {
	ProviderType web3.ProviderType
	ChainID      uint64
	RefreshDelay time.Duration // Defaults to DefaultRefreshDelay if zero.

	// OnRebuild, if set, is called each time a provider is constructed.
	OnRebuild func(t web3.ProviderType, chainID uint64)
}

// handle is a provider along with the version of the session it was
// constructed for.
type handle struct {
	provider web3.Provider
	chain    web3.ChainDescriptor
	version  uint64

	// Guarded by the mutex of the session.
	inFlight bool
	retired  bool
}

// Session implements web3.SessionAPI.
type Session struct {
	log.Logger

	chains       web3.ROChainRegistry
	newProvider  ProviderFactory
	refreshDelay time.Duration
	onRebuild    func(web3.ProviderType, uint64)

	mtx          sync.Mutex
	providerType web3.ProviderType
	handle       *handle
	version      uint64
	address      string
	balance      *web3.BalanceSnapshot
	lastTx       *web3.TxReceiptRef
	lastErr      error
	loading      bool
	timers       map[*time.Timer]struct{}
	closed       bool

	background sync.WaitGroup
}

var _ web3.SessionAPI = &Session{}

// New returns a session with a provider for the configured type and chain.
func New(cfg Config, chains web3.ROChainRegistry, factory ProviderFactory) (*Session, error) {
	if _, err := web3.ParseProviderType(string(cfg.ProviderType)); err != nil {
		return nil, web3.NewAPIErrInvalidArgument(err, ArgNameProviderType, string(cfg.ProviderType))
	}
	chain, ok := chains.Chain(cfg.ChainID)
	if !ok {
		return nil, web3.NewAPIErrResourceNotFound(ResTypeChain, strconv.FormatUint(cfg.ChainID, 10))
	}
	refreshDelay := cfg.RefreshDelay
	if refreshDelay == 0 {
		refreshDelay = DefaultRefreshDelay
	}

	s := &Session{
		Logger:       log.NewLoggerWithField("component", "session"),
		chains:       chains,
		newProvider:  factory,
		refreshDelay: refreshDelay,
		onRebuild:    cfg.OnRebuild,
		timers:       make(map[*time.Timer]struct{}),
	}
	if err := s.rebuild(cfg.ProviderType, chain); err != nil {
		return nil, err
	}
	return s, nil
}

// SetProviderType replaces the provider with one of the given type, on the
// current chain. It is a no-op if the type is unchanged.
func (s *Session) SetProviderType(t web3.ProviderType) error {
	s.WithField("method", "SetProviderType").Info("Received request with params:", t)

	parsed, err := web3.ParseProviderType(string(t))
	if err != nil {
		apiErr := web3.NewAPIErrInvalidArgument(err, ArgNameProviderType, string(t))
		s.WithFields(web3.APIErrAsMap("SetProviderType", apiErr)).Error(apiErr.Message())
		return apiErr
	}
	t = parsed
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return web3.NewAPIErrUnknownInternal(ErrSessionClosed)
	}
	chain := s.handle.chain
	unchanged := s.providerType == t
	s.mtx.Unlock()
	if unchanged {
		return nil
	}
	return s.rebuild(t, chain)
}

// SetChain replaces the provider with one for the given chain, of the
// current type. It is a no-op if the chain is unchanged.
func (s *Session) SetChain(chainID uint64) error {
	s.WithField("method", "SetChain").Info("Received request with params:", chainID)

	chain, ok := s.chains.Chain(chainID)
	if !ok {
		apiErr := web3.NewAPIErrResourceNotFound(ResTypeChain, strconv.FormatUint(chainID, 10))
		s.WithFields(web3.APIErrAsMap("SetChain", apiErr)).Error(apiErr.Message())
		return apiErr
	}
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return web3.NewAPIErrUnknownInternal(ErrSessionClosed)
	}
	t := s.providerType
	unchanged := s.handle.chain.ChainID == chainID
	s.mtx.Unlock()
	if unchanged {
		return nil
	}
	return s.rebuild(t, chain)
}

// rebuild constructs a new provider and makes it the active one. Pending
// refreshes are cancelled and the state derived from the old provider is
// cleared. If an address is known, its balance is read in the background.
func (s *Session) rebuild(t web3.ProviderType, chain web3.ChainDescriptor) error {
	p, err := s.newProvider(t, chain)
	if err != nil {
		apiErr, ok := web3.AsAPIError(err)
		if !ok {
			apiErr = web3.NewAPIErrUnknownInternal(err)
		}
		s.WithFields(web3.APIErrAsMap("rebuild", apiErr)).Error(apiErr.Message())
		return apiErr
	}

	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		p.Close()
		return web3.NewAPIErrUnknownInternal(ErrSessionClosed)
	}
	old := s.handle
	s.version++
	version := s.version
	s.handle = &handle{provider: p, chain: chain, version: version}
	s.providerType = t
	s.stopTimers()
	s.balance = nil
	s.lastErr = nil
	s.loading = false
	address := s.address
	closeOld := old != nil && s.retire(old)
	s.mtx.Unlock()

	if closeOld {
		old.provider.Close()
	}
	if s.onRebuild != nil {
		s.onRebuild(t, chain.ChainID)
	}
	s.WithFields(log.Fields{"provider": t, "chain": chain.ChainID, "version": version}).Info("Provider ready")

	if address != "" {
		s.refreshInBackground(version)
	}
	return nil
}

// retire marks the handle as replaced and reports if it can be closed right
// away. Otherwise it is closed when the in-flight operation ends. Should be
// called with the mutex held.
func (s *Session) retire(h *handle) bool {
	h.retired = true
	return !h.inFlight
}

// stopTimers should be called with the mutex held.
func (s *Session) stopTimers() {
	for timer := range s.timers {
		timer.Stop()
		delete(s.timers, timer)
	}
}

// begin marks the active provider as busy. In the same critical section, the
// last error is cleared and the loading flag is set.
func (s *Session) begin(op string) (*handle, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil, web3.NewAPIErrUnknownInternal(ErrSessionClosed)
	}
	h := s.handle
	if h.inFlight {
		return nil, web3.NewAPIErrBusy(op)
	}
	h.inFlight = true
	s.lastErr = nil
	s.loading = true
	return h, nil
}

// end releases the provider. If the provider is still the active one, the
// error is recorded and apply is called with the mutex held. Otherwise the
// result is stale and dropped.
func (s *Session) end(h *handle, err error, apply func()) {
	s.mtx.Lock()
	h.inFlight = false
	current := !h.retired && h.version == s.version
	if current {
		s.loading = false
		s.lastErr = err
		if err == nil && apply != nil {
			apply()
		}
	}
	closeRetired := h.retired
	s.mtx.Unlock()

	if !current {
		s.WithFields(log.Fields{"version": h.version, "chain": h.chain.ChainID}).Debug("Dropping stale result")
	}
	if closeRetired {
		h.provider.Close()
	}
}

func (s *Session) logErr(method string, err error) {
	if apiErr, ok := web3.AsAPIError(err); ok {
		s.WithFields(web3.APIErrAsMap(method, apiErr)).Error(apiErr.Message())
		return
	}
	s.WithField("method", method).Error(err)
}

// SetAddress sets the address to watch without connecting a wallet, and
// reads its balance.
func (s *Session) SetAddress(ctx context.Context, address string) (web3.BalanceSnapshot, error) {
	s.WithField("method", "SetAddress").Info("Received request with params:", address)

	addr, err := ethereum.ParseAddress(address)
	if err != nil {
		apiErr := web3.NewAPIErrInvalidAddress(err, ArgNameAddress, address)
		s.logErr("SetAddress", apiErr)
		return web3.BalanceSnapshot{}, apiErr
	}
	s.mtx.Lock()
	if s.address != addr.Hex() {
		s.address = addr.Hex()
		s.balance = nil
	}
	s.mtx.Unlock()
	return s.RefreshBalance(ctx)
}

// RefreshBalance reads the balance of the known address.
func (s *Session) RefreshBalance(ctx context.Context) (web3.BalanceSnapshot, error) {
	s.WithField("method", "RefreshBalance").Info("Received request")

	h, err := s.begin(opRefreshBalance)
	if err != nil {
		s.logErr("RefreshBalance", err)
		return web3.BalanceSnapshot{}, err
	}
	s.mtx.Lock()
	address := s.address
	s.mtx.Unlock()
	if address == "" {
		err = web3.NewAPIErrNotConnected(opRefreshBalance)
		s.end(h, err, nil)
		s.logErr("RefreshBalance", err)
		return web3.BalanceSnapshot{}, err
	}

	value, err := h.provider.GetBalance(ctx, address)
	snapshot := web3.BalanceSnapshot{
		Value:   value,
		Symbol:  h.chain.NativeSymbol,
		Address: address,
		ChainID: h.chain.ChainID,
		ReadAt:  time.Now(),
	}
	s.end(h, err, func() {
		// The address may have been changed while reading.
		if s.address == address {
			s.balance = &snapshot
		}
	})
	if err != nil {
		return web3.BalanceSnapshot{}, err
	}
	return snapshot, nil
}

// ConnectWallet connects the wallet on the active provider. On success, the
// address of the wallet becomes the known address and its balance is read.
//
// If no wallet host is present, it returns a nil signer and no error.
func (s *Session) ConnectWallet(ctx context.Context) (web3.Signer, error) {
	s.WithField("method", "ConnectWallet").Info("Received request")

	h, err := s.begin(opConnectWallet)
	if err != nil {
		s.logErr("ConnectWallet", err)
		return nil, err
	}
	signer, err := h.provider.ConnectWallet(ctx)
	connected := false
	s.end(h, err, func() {
		if signer != nil {
			if s.address != signer.Address() {
				s.balance = nil
			}
			s.address = signer.Address()
			connected = true
		}
	})
	if err != nil {
		return nil, err
	}
	if connected {
		// Errors are recorded in the state.
		_, _ = s.RefreshBalance(ctx) // nolint: errcheck
	}
	return signer, nil
}

// SendTransaction sends amount (in the native currency) to the address. On
// success, the balance is refreshed once after the refresh delay.
func (s *Session) SendTransaction(ctx context.Context, to, amount string) (web3.TxReceiptRef, error) {
	s.WithField("method", "SendTransaction").Infof("Received request with params %s, %s", to, amount)
	return s.submitTx("SendTransaction", opSendTransaction, func(p web3.Provider) (string, error) {
		return p.SendTransaction(ctx, to, amount)
	})
}

// SignMessage signs the message with the connected wallet.
func (s *Session) SignMessage(ctx context.Context, message string) (string, error) {
	s.WithField("method", "SignMessage").Info("Received request with params:", message)

	h, err := s.begin(opSignMessage)
	if err != nil {
		s.logErr("SignMessage", err)
		return "", err
	}
	sig, err := h.provider.SignMessage(ctx, message)
	s.end(h, err, nil)
	return sig, err
}

// TransferToken transfers amount of the ERC20 token to the address. Like
// SendTransaction, the balance is refreshed once after the refresh delay, as
// the transaction pays gas in the native currency.
func (s *Session) TransferToken(ctx context.Context, token, to, amount string) (web3.TxReceiptRef, error) {
	s.WithField("method", "TransferToken").Infof("Received request with params %s, %s, %s", token, to, amount)
	return s.submitTx("TransferToken", opTransferToken, func(p web3.Provider) (string, error) {
		return p.TransferToken(ctx, token, to, amount)
	})
}

// ApproveToken sets the allowance of the spender in the ERC20 token.
func (s *Session) ApproveToken(ctx context.Context, token, spender, amount string) (web3.TxReceiptRef, error) {
	s.WithField("method", "ApproveToken").Infof("Received request with params %s, %s, %s", token, spender, amount)
	return s.submitTx("ApproveToken", opApproveToken, func(p web3.Provider) (string, error) {
		return p.ApproveToken(ctx, token, spender, amount)
	})
}

// submitTx runs send on the active provider and records the transaction as
// the last one.
func (s *Session) submitTx(method, op string,
	send func(web3.Provider) (string, error)) (web3.TxReceiptRef, error) {
	h, err := s.begin(op)
	if err != nil {
		s.logErr(method, err)
		return web3.TxReceiptRef{}, err
	}
	hash, err := send(h.provider)
	ref := web3.TxReceiptRef{Hash: hash, ChainID: h.chain.ChainID, ExplorerURL: h.chain.TxURL(hash)}
	s.end(h, err, func() {
		s.lastTx = &ref
		s.scheduleRefresh(h.version)
	})
	if err != nil {
		return web3.TxReceiptRef{}, err
	}
	return ref, nil
}

// scheduleRefresh starts a timer for a single refresh of the balance. It
// should be called with the mutex held.
func (s *Session) scheduleRefresh(version uint64) {
	var timer *time.Timer
	timer = time.AfterFunc(s.refreshDelay, func() {
		s.mtx.Lock()
		_, pending := s.timers[timer]
		delete(s.timers, timer)
		s.mtx.Unlock()
		if pending {
			s.refreshInBackground(version)
		}
	})
	s.timers[timer] = struct{}{}
}

// refreshInBackground reads the balance if the provider has not been
// replaced since version. It is skipped if another operation is in flight.
func (s *Session) refreshInBackground(version uint64) {
	s.mtx.Lock()
	if s.closed || s.version != version {
		s.mtx.Unlock()
		return
	}
	s.background.Add(1)
	s.mtx.Unlock()

	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
		defer cancel()

		s.mtx.Lock()
		stale := s.version != version
		s.mtx.Unlock()
		if stale {
			return
		}
		if _, err := s.RefreshBalance(ctx); web3.HasCode(err, web3.ErrBusy) {
			s.Debug("Skipped background refresh, provider busy")
		}
	}()
}

// State returns a snapshot of the session state.
func (s *Session) State() web3.SessionState {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	h := s.handle
	state := web3.SessionState{
		ProviderType: s.providerType,
		ChainID:      h.chain.ChainID,
		ChainName:    h.chain.Name,
		NativeSymbol: h.chain.NativeSymbol,
		Address:      s.address,
		Connection:   h.provider.Connection(),
		Loading:      s.loading,
		Version:      h.version,
	}
	if s.balance != nil {
		balance := *s.balance
		state.Balance = &balance
	}
	if s.lastTx != nil {
		lastTx := *s.lastTx
		state.LastTx = &lastTx
	}
	if s.lastErr != nil {
		state.LastError = s.lastErr.Error()
	}
	return state
}

// Close stops the pending refreshes, waits for the background refreshes and
// closes the provider.
func (s *Session) Close() {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return
	}
	s.closed = true
	s.stopTimers()
	s.mtx.Unlock()

	s.background.Wait()

	s.mtx.Lock()
	h := s.handle
	closeNow := s.retire(h)
	s.mtx.Unlock()
	if closeNow {
		h.provider.Close()
	}
	s.Info("Session closed")
}
