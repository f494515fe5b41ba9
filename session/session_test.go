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

package session_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain"
	"github.com/hyperledger-labs/web3-node/internal/mocks"
	"github.com/hyperledger-labs/web3-node/session"
	"github.com/hyperledger-labs/web3-node/web3test"
)

const (
	addr   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	toAddr = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

type testSigner string

func (s testSigner) Address() string { return string(s) }

// providers serves mock providers to the session, registered by type and
// chain.
type providers struct {
	mtx   sync.Mutex
	byKey map[string]*mocks.Provider
	built []string
}

func newProviders() *providers {
	return &providers{byKey: make(map[string]*mocks.Provider)}
}

func key(t web3.ProviderType, chainID uint64) string {
	return fmt.Sprintf("%s/%d", t, chainID)
}

func (ps *providers) add(t web3.ProviderType, chainID uint64) *mocks.Provider {
	p := &mocks.Provider{}
	p.On("Type").Return(t).Maybe()
	p.On("ChainID").Return(chainID).Maybe()
	p.On("Connection").Return(web3.Disconnected).Maybe()
	p.On("Close").Return().Maybe()

	ps.mtx.Lock()
	ps.byKey[key(t, chainID)] = p
	ps.mtx.Unlock()
	return p
}

func (ps *providers) factory(t web3.ProviderType, chain web3.ChainDescriptor) (web3.Provider, error) {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	p, ok := ps.byKey[key(t, chain.ChainID)]
	if !ok {
		return nil, errors.Errorf("no provider for %s", key(t, chain.ChainID))
	}
	ps.built = append(ps.built, key(t, chain.ChainID))
	return p, nil
}

func newSession(t *testing.T, ps *providers, refreshDelay time.Duration) *session.Session {
	t.Helper()

	chains, err := blockchain.NewRegistry(blockchain.DefaultChains()...)
	require.NoError(t, err)
	s, err := session.New(session.Config{
		ProviderType: web3.ProviderEthers,
		ChainID:      1,
		RefreshDelay: refreshDelay,
	}, chains, ps.factory)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// blockingBalance makes the next GetBalance call on p block until release is
// closed. started is closed when the call begins.
func blockingBalance(p *mocks.Provider, value string) (started, release chan struct{}) {
	started, release = make(chan struct{}), make(chan struct{})
	p.On("GetBalance", mock.Anything, addr).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(value, nil).Once()
	return started, release
}

type result struct {
	snapshot web3.BalanceSnapshot
	err      error
}

func setAddressAsync(s *session.Session) chan result {
	resultCh := make(chan result, 1)
	go func() {
		snapshot, err := s.SetAddress(context.Background(), addr)
		resultCh <- result{snapshot, err}
	}()
	return resultCh
}

func Test_SessionAPI_Interface(t *testing.T) {
	assert.Implements(t, (*web3.SessionAPI)(nil), new(session.Session))
}

func Test_New(t *testing.T) {
	chains, err := blockchain.NewRegistry(blockchain.DefaultChains()...)
	require.NoError(t, err)
	ps := newProviders()
	ps.add(web3.ProviderEthers, 1)

	t.Run("happy", func(t *testing.T) {
		s, err := session.New(session.Config{ProviderType: web3.ProviderEthers, ChainID: 1}, chains, ps.factory)
		require.NoError(t, err)
		defer s.Close()

		state := s.State()
		assert.Equal(t, web3.ProviderEthers, state.ProviderType)
		assert.Equal(t, uint64(1), state.ChainID)
		assert.Equal(t, "Ethereum", state.ChainName)
		assert.Equal(t, "ETH", state.NativeSymbol)
		assert.Equal(t, uint64(1), state.Version)
		assert.Nil(t, state.Balance)
		assert.Empty(t, state.Address)
	})

	t.Run("unknown_chain", func(t *testing.T) {
		_, err := session.New(session.Config{ProviderType: web3.ProviderEthers, ChainID: 5}, chains, ps.factory)
		apiErr := web3test.RequireAPIErrorCode(t, err, web3.ErrResourceNotFound)
		web3test.AssertErrInfoResourceNotFound(t, apiErr.AddInfo(), session.ResTypeChain, "5")
	})

	t.Run("unknown_provider_type", func(t *testing.T) {
		_, err := session.New(session.Config{ProviderType: "ethersv6", ChainID: 1}, chains, ps.factory)
		web3test.RequireAPIErrorCode(t, err, web3.ErrInvalidArgument)
	})

	t.Run("factory_error", func(t *testing.T) {
		_, err := session.New(session.Config{ProviderType: web3.ProviderTyped, ChainID: 1}, chains, ps.factory)
		web3test.RequireAPIErrorCode(t, err, web3.ErrUnknownInternal)

		failing := func(web3.ProviderType, web3.ChainDescriptor) (web3.Provider, error) {
			return nil, web3.NewAPIErrInvalidConfig(errors.New("bad url"), "rpc url", "Ethereum")
		}
		_, err = session.New(session.Config{ProviderType: web3.ProviderTyped, ChainID: 1}, chains, failing)
		web3test.RequireAPIErrorCode(t, err, web3.ErrInvalidConfig)
	})
}

func Test_SetChain_StaleResultDiscarded(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	p137 := ps.add(web3.ProviderEthers, 137)
	s := newSession(t, ps, time.Hour)

	started, release := blockingBalance(p1, "1.25")
	resultCh := setAddressAsync(s)
	<-started

	p137.On("GetBalance", mock.Anything, addr).Return("5", nil)
	require.NoError(t, s.SetChain(137))
	p1.AssertNotCalled(t, "Close")

	require.Eventually(t, func() bool {
		b := s.State().Balance
		return b != nil && b.ChainID == 137
	}, time.Second, 10*time.Millisecond)

	close(release)
	res := <-resultCh
	require.NoError(t, res.err)
	assert.Equal(t, "1.25", res.snapshot.Value, "caller should receive its own result")
	assert.Equal(t, uint64(1), res.snapshot.ChainID)

	state := s.State()
	require.NotNil(t, state.Balance)
	assert.Equal(t, "5", state.Balance.Value)
	assert.Equal(t, uint64(137), state.Balance.ChainID)
	assert.Equal(t, "MATIC", state.Balance.Symbol)
	assert.Equal(t, uint64(137), state.ChainID)
	assert.Equal(t, uint64(2), state.Version)
	assert.Empty(t, state.LastError)
	p1.AssertNumberOfCalls(t, "Close", 1)
}

func Test_Busy(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	s := newSession(t, ps, time.Hour)

	started, release := blockingBalance(p1, "1")
	resultCh := setAddressAsync(s)
	<-started

	_, err := s.SendTransaction(context.Background(), toAddr, "0.1")
	web3test.RequireAPIErrorCode(t, err, web3.ErrBusy)
	_, err = s.RefreshBalance(context.Background())
	web3test.RequireAPIErrorCode(t, err, web3.ErrBusy)
	_, err = s.SignMessage(context.Background(), "msg")
	web3test.RequireAPIErrorCode(t, err, web3.ErrBusy)

	state := s.State()
	assert.True(t, state.Loading)
	assert.Empty(t, state.LastError, "rejected operations should not touch the state")

	close(release)
	res := <-resultCh
	require.NoError(t, res.err)
	assert.False(t, s.State().Loading)
	p1.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything, mock.Anything)
	p1.AssertNotCalled(t, "SignMessage", mock.Anything, mock.Anything)
}

func Test_LastErrorCleared(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	s := newSession(t, ps, time.Hour)

	netErr := web3.NewAPIErrNetwork(errors.New("503 Service Unavailable"), 1, "eth_getBalance")
	p1.On("GetBalance", mock.Anything, addr).Return("", netErr).Once()
	_, err := s.SetAddress(context.Background(), addr)
	web3test.RequireAPIErrorCode(t, err, web3.ErrNetwork)
	state := s.State()
	assert.Contains(t, state.LastError, "eth_getBalance")
	assert.Nil(t, state.Balance)

	started, release := blockingBalance(p1, "3")
	resultCh := make(chan error, 1)
	go func() {
		_, err := s.RefreshBalance(context.Background())
		resultCh <- err
	}()
	<-started
	state = s.State()
	assert.Empty(t, state.LastError, "error should be cleared when an operation starts")
	assert.True(t, state.Loading)

	close(release)
	require.NoError(t, <-resultCh)
	state = s.State()
	assert.Empty(t, state.LastError)
	require.NotNil(t, state.Balance)
	assert.Equal(t, "3", state.Balance.Value)
	assert.Equal(t, addr, state.Balance.Address)
}

func Test_SendTransaction_DelayedRefresh(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	s := newSession(t, ps, 50*time.Millisecond)

	p1Calls := countingBalance(p1, "1")
	p1.On("SendTransaction", mock.Anything, toAddr, "0.1").Return("0xabc", nil)
	_, err := s.SetAddress(context.Background(), addr)
	require.NoError(t, err)

	ref, err := s.SendTransaction(context.Background(), toAddr, "0.1")
	require.NoError(t, err)
	assert.Equal(t, web3.TxReceiptRef{Hash: "0xabc", ChainID: 1, ExplorerURL: "https://etherscan.io/tx/0xabc"}, ref)
	require.NotNil(t, s.State().LastTx)
	assert.Equal(t, ref, *s.State().LastTx)

	require.Eventually(t, func() bool {
		return p1Calls.Load() == 2
	}, time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(2), p1Calls.Load(), "exactly one refresh should follow a transaction")
}

func Test_SendTransaction_Error(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	s := newSession(t, ps, 10*time.Millisecond)

	p1.On("SendTransaction", mock.Anything, "0x123", "1").
		Return("", web3.NewAPIErrInvalidAddress(nil, "to", "0x123"))
	_, err := s.SendTransaction(context.Background(), "0x123", "1")
	web3test.RequireAPIErrorCode(t, err, web3.ErrInvalidAddress)

	time.Sleep(50 * time.Millisecond)
	state := s.State()
	assert.Nil(t, state.LastTx)
	assert.Contains(t, state.LastError, "0x123")
	p1.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
}

func Test_TokenWrites(t *testing.T) {
	const token = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	s := newSession(t, ps, 10*time.Millisecond)

	p1Calls := countingBalance(p1, "1")
	p1.On("TransferToken", mock.Anything, token, toAddr, "1.5").Return("0xaaa", nil)
	p1.On("ApproveToken", mock.Anything, token, toAddr, "2").Return("0xbbb", nil)
	p1.On("ApproveToken", mock.Anything, token, toAddr, "1e5").
		Return("", web3.NewAPIErrInvalidAmount(nil, "amount", "1e5"))
	_, err := s.SetAddress(context.Background(), addr)
	require.NoError(t, err)

	ref, err := s.TransferToken(context.Background(), token, toAddr, "1.5")
	require.NoError(t, err)
	assert.Equal(t, "https://etherscan.io/tx/0xaaa", ref.ExplorerURL)
	require.Eventually(t, func() bool {
		return p1Calls.Load() == 2
	}, time.Second, 10*time.Millisecond, "a token transfer should refresh the balance")

	ref, err = s.ApproveToken(context.Background(), token, toAddr, "2")
	require.NoError(t, err)
	assert.Equal(t, "0xbbb", ref.Hash)
	require.NotNil(t, s.State().LastTx)
	assert.Equal(t, ref, *s.State().LastTx)

	_, err = s.ApproveToken(context.Background(), token, toAddr, "1e5")
	web3test.RequireAPIErrorCode(t, err, web3.ErrInvalidAmount)
	state := s.State()
	assert.Equal(t, "0xbbb", state.LastTx.Hash)
	assert.Contains(t, state.LastError, "1e5")
}

func Test_Rebuild_CancelsPendingRefresh(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	p2 := ps.add(web3.ProviderClassic, 1)
	s := newSession(t, ps, 100*time.Millisecond)

	p1Calls := countingBalance(p1, "1")
	p1.On("SendTransaction", mock.Anything, toAddr, "0.1").Return("0xabc", nil)
	p2Calls := countingBalance(p2, "1")
	_, err := s.SetAddress(context.Background(), addr)
	require.NoError(t, err)
	_, err = s.SendTransaction(context.Background(), toAddr, "0.1")
	require.NoError(t, err)

	require.NoError(t, s.SetProviderType(web3.ProviderClassic))
	require.Eventually(t, func() bool {
		return p2Calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), p1Calls.Load())
	assert.Equal(t, int32(1), p2Calls.Load())
	p1.AssertNumberOfCalls(t, "Close", 1)

	state := s.State()
	assert.Equal(t, web3.ProviderClassic, state.ProviderType)
	assert.Equal(t, addr, state.Address, "address should be kept across providers")
}

func Test_SetProviderType_SetChain_Errors(t *testing.T) {
	ps := newProviders()
	ps.add(web3.ProviderEthers, 1)
	s := newSession(t, ps, time.Hour)

	err := s.SetProviderType("ethersv6")
	web3test.RequireAPIErrorCode(t, err, web3.ErrInvalidArgument)

	err = s.SetChain(5)
	web3test.RequireAPIErrorCode(t, err, web3.ErrResourceNotFound)

	err = s.SetChain(42161)
	web3test.RequireAPIErrorCode(t, err, web3.ErrUnknownInternal)

	require.NoError(t, s.SetProviderType(web3.ProviderEthers))
	require.NoError(t, s.SetChain(1))
	assert.Equal(t, uint64(1), s.State().Version, "unchanged type or chain should not rebuild")
	assert.Equal(t, []string{"ethers/1"}, ps.built)
}

func Test_ConnectWallet(t *testing.T) {
	t.Run("no_host", func(t *testing.T) {
		ps := newProviders()
		p1 := ps.add(web3.ProviderEthers, 1)
		s := newSession(t, ps, time.Hour)
		p1.On("ConnectWallet", mock.Anything).Return(nil, nil)

		signer, err := s.ConnectWallet(context.Background())
		require.NoError(t, err)
		assert.Nil(t, signer)
		assert.Empty(t, s.State().Address)

		_, err = s.RefreshBalance(context.Background())
		web3test.RequireAPIErrorCode(t, err, web3.ErrNotConnected)
		assert.Contains(t, s.State().LastError, "requires a connected wallet")
		p1.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
	})

	t.Run("happy", func(t *testing.T) {
		ps := newProviders()
		p1 := ps.add(web3.ProviderEthers, 1)
		s := newSession(t, ps, time.Hour)
		p1.On("ConnectWallet", mock.Anything).Return(testSigner(addr), nil)
		p1.On("GetBalance", mock.Anything, addr).Return("0.5", nil)

		signer, err := s.ConnectWallet(context.Background())
		require.NoError(t, err)
		assert.Equal(t, addr, signer.Address())

		state := s.State()
		assert.Equal(t, addr, state.Address)
		require.NotNil(t, state.Balance)
		assert.Equal(t, "0.5", state.Balance.Value)
	})

	t.Run("rejected", func(t *testing.T) {
		ps := newProviders()
		p1 := ps.add(web3.ProviderEthers, 1)
		s := newSession(t, ps, time.Hour)
		p1.On("ConnectWallet", mock.Anything).Return(nil,
			web3.NewAPIErrUserRejected(errors.New("user denied"), "eth_requestAccounts"))

		signer, err := s.ConnectWallet(context.Background())
		web3test.RequireAPIErrorCode(t, err, web3.ErrUserRejected)
		assert.Nil(t, signer)
		assert.Contains(t, s.State().LastError, "user rejected")
	})
}

func Test_SetAddress_Invalid(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	s := newSession(t, ps, time.Hour)

	_, err := s.SetAddress(context.Background(), "0x123")
	web3test.RequireAPIErrorCode(t, err, web3.ErrInvalidAddress)
	assert.Empty(t, s.State().Address)
	p1.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
}

func Test_SignMessage(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderClassic, 1)
	chains, err := blockchain.NewRegistry(blockchain.DefaultChains()...)
	require.NoError(t, err)
	s, err := session.New(session.Config{ProviderType: web3.ProviderClassic, ChainID: 1}, chains, ps.factory)
	require.NoError(t, err)
	defer s.Close()

	p1.On("SignMessage", mock.Anything, "msg").Return("", web3.NewAPIErrUnsupportedOperation("sign message", web3.ProviderClassic))
	_, err = s.SignMessage(context.Background(), "msg")
	web3test.RequireAPIErrorCode(t, err, web3.ErrUnsupportedOperation)
	assert.Contains(t, s.State().LastError, "not supported")
}

func Test_Close(t *testing.T) {
	ps := newProviders()
	p1 := ps.add(web3.ProviderEthers, 1)
	var rebuilds []uint64
	chains, err := blockchain.NewRegistry(blockchain.DefaultChains()...)
	require.NoError(t, err)
	s, err := session.New(session.Config{
		ProviderType: web3.ProviderEthers,
		ChainID:      1,
		OnRebuild:    func(_ web3.ProviderType, chainID uint64) { rebuilds = append(rebuilds, chainID) },
	}, chains, ps.factory)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, rebuilds)

	s.Close()
	s.Close()
	p1.AssertNumberOfCalls(t, "Close", 1)

	_, err = s.RefreshBalance(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrSessionClosed)
	require.Error(t, s.SetChain(137))
}

// countingBalance makes GetBalance on p return value and count the calls.
func countingBalance(p *mocks.Provider, value string) *atomic.Int32 {
	calls := new(atomic.Int32)
	p.On("GetBalance", mock.Anything, addr).Run(func(mock.Arguments) {
		calls.Add(1)
	}).Return(value, nil)
	return calls
}
