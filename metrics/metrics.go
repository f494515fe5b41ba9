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

// Package metrics collects prometheus metrics for the provider operations of
// the node.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/hyperledger-labs/web3-node"
)

// Namespace of all the metrics.
const Namespace = "web3_node"

// Metrics holds the collectors in a registry of its own, so that multiple
// instances can be used in tests.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	balance    *prometheus.GaugeVec
	rebuilds   *prometheus.CounterVec
}

// New returns a Metrics with all the collectors registered.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "provider_operations_total",
		Help:      "Number of provider operations by provider type, operation and result",
	}, []string{"provider", "operation", "result"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "provider_operation_duration_seconds",
		Help:      "Time spent in provider operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "operation"})
	m.balance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "balance",
		Help:      "Last balance read, in the native currency of the chain",
	}, []string{"chain", "address"})
	m.rebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "provider_rebuilds_total",
		Help:      "Number of times the active provider was replaced",
	}, []string{"provider", "chain"})

	m.registry.MustRegister(
		m.operations, m.duration, m.balance, m.rebuilds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the http handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRebuild counts a replacement of the active provider.
func (m *Metrics) ObserveRebuild(t web3.ProviderType, chainID uint64) {
	m.rebuilds.WithLabelValues(string(t), strconv.FormatUint(chainID, 10)).Inc()
}

func (m *Metrics) observe(t web3.ProviderType, operation string, start time.Time, err error) {
	m.duration.WithLabelValues(string(t), operation).Observe(time.Since(start).Seconds())
	m.operations.WithLabelValues(string(t), operation, result(err)).Inc()
}

// result is "ok" or the code of the API error.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	if apiErr, ok := web3.AsAPIError(err); ok {
		return strconv.Itoa(int(apiErr.Code()))
	}
	return "error"
}

// Instrument returns a provider that records the metrics for the operations
// of p.
func (m *Metrics) Instrument(p web3.Provider) web3.Provider {
	return &instrumented{Provider: p, m: m}
}

type instrumented struct {
	web3.Provider
	m *Metrics
}

func (i *instrumented) GetBalance(ctx context.Context, address string) (string, error) {
	start := time.Now()
	bal, err := i.Provider.GetBalance(ctx, address)
	i.m.observe(i.Type(), "get_balance", start, err)
	if err == nil {
		if d, perr := decimal.NewFromString(bal); perr == nil {
			chain := strconv.FormatUint(i.ChainID(), 10)
			i.m.balance.WithLabelValues(chain, address).Set(d.InexactFloat64())
		}
	}
	return bal, err
}

func (i *instrumented) ConnectWallet(ctx context.Context) (web3.Signer, error) {
	start := time.Now()
	signer, err := i.Provider.ConnectWallet(ctx)
	i.m.observe(i.Type(), "connect_wallet", start, err)
	return signer, err
}

func (i *instrumented) SendTransaction(ctx context.Context, to, amount string) (string, error) {
	start := time.Now()
	hash, err := i.Provider.SendTransaction(ctx, to, amount)
	i.m.observe(i.Type(), "send_transaction", start, err)
	return hash, err
}

func (i *instrumented) SignMessage(ctx context.Context, message string) (string, error) {
	start := time.Now()
	sig, err := i.Provider.SignMessage(ctx, message)
	i.m.observe(i.Type(), "sign_message", start, err)
	return sig, err
}

func (i *instrumented) TransferToken(ctx context.Context, token, to, amount string) (string, error) {
	start := time.Now()
	hash, err := i.Provider.TransferToken(ctx, token, to, amount)
	i.m.observe(i.Type(), "transfer_token", start, err)
	return hash, err
}

func (i *instrumented) ApproveToken(ctx context.Context, token, spender, amount string) (string, error) {
	start := time.Now()
	hash, err := i.Provider.ApproveToken(ctx, token, spender, amount)
	i.m.observe(i.Type(), "approve_token", start, err)
	return hash, err
}
