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

// Package prices reads USD prices of ERC20 tokens from public price APIs.
// Coingecko is queried first and DefiLlama is used when it fails.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/log"
)

// Base urls of the price APIs.
const (
	DefaultCoingeckoURL = "https://api.coingecko.com/api/v3"
	DefaultLlamaURL     = "https://coins.llama.fi"
)

// DefaultCacheTTL is the duration for which the price of a token is served
// from the cache.
const DefaultCacheTTL = 30 * time.Second

// ResTypePrice is used in ResourceNotFound errors when no source knows the
// token.
const ResTypePrice web3.ResourceType = "price"

// ArgNameToken is used in errors for an invalid token address.
const ArgNameToken web3.ArgumentName = "token"

// Source identifies the API a price was read from.
type Source string

// Supported price sources, in the order they are queried.
const (
	SourceCoingecko Source = "coingecko"
	SourceDefiLlama Source = "defillama"
)

// coingeckoPlatforms maps chain ids to asset platform ids of Coingecko.
var coingeckoPlatforms = map[uint64]string{
	1:     "ethereum",
	137:   "polygon-pos",
	42161: "arbitrum-one",
	10:    "optimistic-ethereum",
}

// llamaChains maps chain ids to chain prefixes of the DefiLlama coins API.
var llamaChains = map[uint64]string{
	1:     "ethereum",
	137:   "polygon",
	42161: "arbitrum",
	10:    "optimism",
}

// Price is the USD price of a token.
type Price struct {
	ChainID   uint64
	Token     string
	Symbol    string // Empty if the source does not report it.
	USD       decimal.Decimal
	Source    Source
	FetchedAt time.Time
}

// Config holds the parameters of an oracle. Empty urls select the defaults
// and a zero TTL selects DefaultCacheTTL.
type Config struct {
	CoingeckoURL string
	LlamaURL     string
	TTL          time.Duration
}

// Oracle reads token prices and caches them per chain and token.
type Oracle struct {
	log.Logger
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mtx   sync.Mutex
	cache map[string]Price
}

// NewOracle returns an oracle for the given config. No requests are made
// until the first price is read.
func NewOracle(cfg Config) *Oracle {
	if cfg.CoingeckoURL == "" {
		cfg.CoingeckoURL = DefaultCoingeckoURL
	}
	if cfg.LlamaURL == "" {
		cfg.LlamaURL = DefaultLlamaURL
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultCacheTTL
	}
	return &Oracle{
		Logger:     log.NewLoggerWithField("component", "prices"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
		cache:      make(map[string]Price),
	}
}

// errNotListed is returned by a source that has no price for the token.
var errNotListed = errors.New("token not listed")

// TokenPrice returns the USD price of the token on the chain.
//
// If no source has a price for the token, a ResourceNotFound error is
// returned. If a source could not be reached and none returned a price, a
// Network error is returned.
func (o *Oracle) TokenPrice(ctx context.Context, chainID uint64, token string) (Price, error) {
	addr, err := ethereum.ParseAddress(token)
	if err != nil {
		return Price{}, web3.NewAPIErrInvalidAddress(err, ArgNameToken, token)
	}
	key := fmt.Sprintf("%d-%s", chainID, addr.Hex())
	if p, ok := o.cached(key); ok {
		return p, nil
	}

	sources := []struct {
		name  Source
		fetch func(context.Context, uint64, string) (Price, error)
	}{
		{SourceCoingecko, o.fromCoingecko},
		{SourceDefiLlama, o.fromLlama},
	}
	var lastErr error
	for _, s := range sources {
		p, err := s.fetch(ctx, chainID, addr.Hex())
		if err == nil {
			p.ChainID, p.Token, p.Source, p.FetchedAt = chainID, addr.Hex(), s.name, o.now()
			o.store(key, p)
			return p, nil
		}
		o.WithFields(log.Fields{"source": s.name, "chain": chainID, "token": addr.Hex()}).
			WithError(err).Debug("No price from source")
		if !errors.Is(err, errNotListed) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return Price{}, web3.NewAPIErrNetwork(lastErr, chainID, "token price")
	}
	return Price{}, web3.NewAPIErrResourceNotFound(ResTypePrice, strconv.FormatUint(chainID, 10)+":"+addr.Hex())
}

func (o *Oracle) cached(key string) (Price, bool) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	p, ok := o.cache[key]
	if !ok || o.now().Sub(p.FetchedAt) >= o.cfg.TTL {
		return Price{}, false
	}
	return p, true
}

func (o *Oracle) store(key string, p Price) {
	o.mtx.Lock()
	o.cache[key] = p
	o.mtx.Unlock()
}

type coingeckoResponse struct {
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

func (o *Oracle) fromCoingecko(ctx context.Context, chainID uint64, token string) (Price, error) {
	platform, ok := coingeckoPlatforms[chainID]
	if !ok {
		return Price{}, errNotListed
	}
	url := fmt.Sprintf("%s/coins/%s/contract/%s", strings.TrimSuffix(o.cfg.CoingeckoURL, "/"), platform, token)
	var resp coingeckoResponse
	if err := o.getJSON(ctx, url, &resp); err != nil {
		return Price{}, err
	}
	usd, ok := resp.MarketData.CurrentPrice["usd"]
	if !ok {
		return Price{}, errNotListed
	}
	return Price{Symbol: strings.ToUpper(resp.Symbol), USD: usd}, nil
}

type llamaCoin struct {
	Price  decimal.Decimal `json:"price"`
	Symbol string          `json:"symbol"`
}

type llamaResponse struct {
	Coins map[string]llamaCoin `json:"coins"`
}

func (o *Oracle) fromLlama(ctx context.Context, chainID uint64, token string) (Price, error) {
	chain, ok := llamaChains[chainID]
	if !ok {
		return Price{}, errNotListed
	}
	coinID := chain + ":" + token
	url := fmt.Sprintf("%s/prices/current/%s", strings.TrimSuffix(o.cfg.LlamaURL, "/"), coinID)
	var resp llamaResponse
	if err := o.getJSON(ctx, url, &resp); err != nil {
		return Price{}, err
	}
	for id, coin := range resp.Coins {
		if strings.EqualFold(id, coinID) {
			return Price{Symbol: coin.Symbol, USD: coin.Price}, nil
		}
	}
	return Price{}, errNotListed
}

// getJSON decodes the response of a GET request. A 404 status means the
// source does not list the token.
func (o *Oracle) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "requesting price")
	}
	defer resp.Body.Close() // nolint: errcheck
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotListed
	case resp.StatusCode != http.StatusOK:
		return errors.Errorf("unexpected status: %s", resp.Status)
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(v), "decoding price")
}
