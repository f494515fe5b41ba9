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

// Package node wires the components of the web3 node from the node
// configuration: the chain registry, the wallet host, the providers, the
// session and the supporting services served over the REST API.
package node

import (
	"context"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/api/rest"
	"github.com/hyperledger-labs/web3-node/blockchain"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/currency"
	"github.com/hyperledger-labs/web3-node/log"
	"github.com/hyperledger-labs/web3-node/metrics"
	"github.com/hyperledger-labs/web3-node/prices"
	"github.com/hyperledger-labs/web3-node/provider"
	"github.com/hyperledger-labs/web3-node/session"
	"github.com/hyperledger-labs/web3-node/simulation"
	"github.com/hyperledger-labs/web3-node/wallet/bridge"
	"github.com/hyperledger-labs/web3-node/wallet/keystore"
	"github.com/hyperledger-labs/web3-node/wallet/rpchost"
	"github.com/hyperledger-labs/web3-node/yield"
)

// Timeout for establishing connections to the wallet endpoint and the
// blockchain nodes. For http endpoints, no request is made while connecting.
const connTimeout = 10 * time.Second

// Node holds the components of a running web3 node.
type Node struct {
	log.Logger
	cfg web3.NodeConfig

	chains     *blockchain.Registry
	currencies *currency.Registry
	metrics    *metrics.Metrics
	session    *session.Session
	server     *rest.Server

	host    web3.WalletHost
	closers []func()

	closeOnce sync.Once
}

// New returns a node initialized using the given config. The logger should
// be initialized before calling New.
//
// No requests are made to the blockchain nodes or to the wallet until the
// first operation that needs them.
func New(cfg web3.NodeConfig) (_ *Node, err error) {
	n := &Node{
		Logger:     log.NewLoggerWithField("node", 1), // ID of the node is always 1.
		cfg:        cfg,
		currencies: currency.NewRegistry(),
		metrics:    metrics.New(),
	}
	defer func() {
		if err != nil {
			n.Close()
		}
	}()

	if n.chains, err = blockchain.LoadRegistry(cfg.ChainsFile); err != nil {
		return nil, web3.NewAPIErrInvalidConfig(err, "chains file", cfg.ChainsFile)
	}
	if err = n.currencies.RegisterNative(n.chains.Chains()); err != nil {
		return nil, web3.NewAPIErrInvalidConfig(err, "chains file", cfg.ChainsFile)
	}
	providerType, err := web3.ParseProviderType(cfg.ProviderType)
	if err != nil {
		return nil, web3.NewAPIErrInvalidConfig(err, "provider", cfg.ProviderType)
	}

	var bridgeHandler http.Handler
	if n.host, bridgeHandler, err = n.newWalletHost(); err != nil {
		return nil, err
	}

	if n.session, err = session.New(session.Config{
		ProviderType: providerType,
		ChainID:      cfg.ChainID,
		RefreshDelay: cfg.RefreshDelay,
		OnRebuild:    n.metrics.ObserveRebuild,
	}, n.chains, n.newProvider); err != nil {
		return nil, err
	}
	n.closers = append(n.closers, n.session.Close)

	yieldManager, err := n.newYieldManager()
	if err != nil {
		return nil, err
	}
	tokens := newTokenReaders(n.chains, n.rpcURL)
	n.closers = append(n.closers, tokens.Close)

	restCfg := rest.Config{
		Session:      n.session,
		Chains:       n.chains,
		Yield:        yieldManager,
		Tokens:       tokens,
		Prices:       prices.NewOracle(prices.Config{}),
		Bridge:       bridgeHandler,
		Metrics:      n.metrics.Handler(),
		AllowOrigins: cfg.CORSOrigins,
	}
	simulator, err := n.newSimulator()
	if err != nil {
		return nil, err
	}
	if simulator != nil {
		restCfg.Simulator = simulator
	}
	if n.server, err = rest.NewServer(restCfg); err != nil {
		return nil, err
	}

	n.WithFields(log.Fields{
		"provider":    providerType,
		"chain":       cfg.ChainID,
		"wallet-host": walletHostType(cfg.WalletHost),
	}).Info("Node initialized")
	return n, nil
}

// newProvider implements session.ProviderFactory.
func (n *Node) newProvider(t web3.ProviderType, chain web3.ChainDescriptor) (web3.Provider, error) {
	p, err := provider.New(t, provider.Config{
		Chain:  chain,
		RPCURL: n.rpcURL(chain),
		Host:   n.host,
	})
	if err != nil {
		return nil, err
	}
	return n.metrics.Instrument(p), nil
}

// rpcURL returns the override for the chain, if there is one, or the url
// from the template of the chain with the API key.
func (n *Node) rpcURL(chain web3.ChainDescriptor) string {
	if url, ok := n.cfg.RPCOverrides[chain.ChainID]; ok {
		return url
	}
	return chain.RPCURL(n.cfg.APIKey)
}

func walletHostType(t string) string {
	if t == "" {
		return web3.WalletHostNone
	}
	return strings.ToLower(t)
}

// newWalletHost returns the configured wallet host. For the bridge host, the
// handler for the bridge endpoints is also returned.
func (n *Node) newWalletHost() (web3.WalletHost, http.Handler, error) {
	switch walletHostType(n.cfg.WalletHost) {
	case web3.WalletHostNone:
		return nil, nil, nil
	case web3.WalletHostRPC:
		ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
		defer cancel()
		host, err := rpchost.Dial(ctx, n.cfg.WalletRPCURL)
		if err != nil {
			return nil, nil, web3.NewAPIErrInvalidConfig(err, "wallet rpc url", "")
		}
		n.closers = append(n.closers, host.Close)
		return host, nil, nil
	case web3.WalletHostKeystore:
		host, err := n.newKeystoreHost()
		if err != nil {
			return nil, nil, err
		}
		return host, nil, nil
	case web3.WalletHostBridge:
		b := bridge.New(bridge.DefaultConfig())
		n.closers = append(n.closers, b.Close)
		return b, b.Handler(), nil
	default:
		return nil, nil, web3.NewAPIErrInvalidConfig(errors.New("should be one of none, keystore, rpc, bridge"),
			"wallet host", n.cfg.WalletHost)
	}
}

func (n *Node) newKeystoreHost() (*keystore.Host, error) {
	ks, err := ethereum.OpenKeystore(n.cfg.KeystorePath, ethereum.StandardScrypt())
	if err != nil {
		return nil, web3.NewAPIErrInvalidConfig(err, "keystore", n.cfg.KeystorePath)
	}
	backends := newBackends(n.chains, n.rpcURL)
	n.closers = append(n.closers, backends.Close)

	approve := keystore.AutoApprove
	if !n.cfg.AutoApprove {
		approve = keystore.PromptApprover(os.Stdin, os.Stderr)
	}
	host, err := keystore.New(keystore.Config{
		Keystore: ks,
		Account:  n.cfg.KeystoreAcc,
		Password: n.cfg.KeystorePwd,
		ChainID:  n.cfg.ChainID,
		Backends: backends.Backend,
		Approve:  approve,
	})
	if err != nil {
		return nil, web3.NewAPIErrInvalidConfig(err, "keystore account", n.cfg.KeystoreAcc)
	}
	return host, nil
}

func (n *Node) newYieldManager() (*yield.Manager, error) {
	static, err := yield.LoadStaticSource(n.cfg.PoolsFile)
	if err != nil {
		return nil, web3.NewAPIErrInvalidConfig(err, "pools file", n.cfg.PoolsFile)
	}
	if n.cfg.LiveYieldSource == "" {
		return yield.NewManager(static), nil
	}
	return yield.NewManager(yield.NewLlamaSource(n.cfg.LiveYieldSource, yield.DefaultCacheTTL, static)), nil
}

// newSimulator returns nil if no simulation credentials are configured.
func (n *Node) newSimulator() (*simulation.Client, error) {
	if n.cfg.SimulationUser == "" && n.cfg.SimulationProject == "" && n.cfg.SimulationKey == "" {
		return nil, nil
	}
	return simulation.NewClient(simulation.Config{
		User:      n.cfg.SimulationUser,
		Project:   n.cfg.SimulationProject,
		AccessKey: n.cfg.SimulationKey,
	})
}

// Session returns the session of the node.
func (n *Node) Session() web3.SessionAPI {
	return n.session
}

// Chains returns the chain registry of the node.
func (n *Node) Chains() web3.ROChainRegistry {
	return n.chains
}

// Currencies returns the registry of the native currencies of the chains.
func (n *Node) Currencies() web3.ROCurrencyRegistry {
	return n.currencies
}

// Handler returns the http handler serving the REST API.
func (n *Node) Handler() http.Handler {
	return n.server.Handler()
}

// Serve serves the REST API on the listener until the node is closed.
func (n *Node) Serve(listener net.Listener) error {
	return n.server.Serve(listener)
}

// ListenAndServe serves the REST API on the configured address until the
// node is closed.
func (n *Node) ListenAndServe() error {
	return n.server.ListenAndServe(n.cfg.ListenAddr)
}

// Close stops the server and releases the resources held by the node. It is
// safe to call Close more than once.
func (n *Node) Close() {
	n.closeOnce.Do(func() {
		if n.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := n.server.Shutdown(ctx); err != nil {
				n.WithError(err).Error("Shutting down REST API")
			}
			cancel()
		}
		for i := len(n.closers) - 1; i >= 0; i-- {
			n.closers[i]()
		}
		n.Info("Node closed")
	})
}
