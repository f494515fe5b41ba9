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

package yield

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/log"
)

// DefaultLlamaURL is the pools endpoint of the DefiLlama yields API.
const DefaultLlamaURL = "https://yields.llama.fi/pools"

// DefaultCacheTTL is the duration for which fetched pools are served from the
// cache.
const DefaultCacheTTL = 30 * time.Second

// Pools per chain kept from the live data, ordered by TVL.
const maxPoolsPerChain = 50

// llamaChains maps chain ids to chain names used by DefiLlama.
var llamaChains = map[uint64]string{
	1:     "Ethereum",
	137:   "Polygon",
	42161: "Arbitrum",
	10:    "Optimism",
}

type llamaPool struct {
	Pool       string  `json:"pool"`
	Chain      string  `json:"chain"`
	Project    string  `json:"project"`
	Symbol     string  `json:"symbol"`
	TVL        float64 `json:"tvlUsd"`
	APY        float64 `json:"apy"`
	Stablecoin bool    `json:"stablecoin"`
	ILRisk     string  `json:"ilRisk"`
	Exposure   string  `json:"exposure"`
}

type llamaResponse struct {
	Status string      `json:"status"`
	Data   []llamaPool `json:"data"`
}

// LlamaSource fetches pools from the DefiLlama yields API.
//
// The response is cached for the configured TTL. If fetching fails, the
// pools of the fallback source are returned, if one is set.
type LlamaSource struct {
	log.Logger
	url        string
	ttl        time.Duration
	fallback   Source
	httpClient *http.Client
	now        func() time.Time

	mtx       sync.Mutex
	fetchedAt time.Time
	cached    []llamaPool
}

// NewLlamaSource returns a source fetching from the given url. An empty url
// selects DefaultLlamaURL and a zero ttl selects DefaultCacheTTL.
func NewLlamaSource(url string, ttl time.Duration, fallback Source) *LlamaSource {
	if url == "" {
		url = DefaultLlamaURL
	}
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &LlamaSource{
		Logger:     log.NewLoggerWithField("component", "yield"),
		url:        url,
		ttl:        ttl,
		fallback:   fallback,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// Pools implements Source.
func (s *LlamaSource) Pools(ctx context.Context, chainID uint64) ([]Pool, error) {
	chainName, ok := llamaChains[chainID]
	if !ok {
		return s.fromFallback(ctx, chainID)
	}
	all, err := s.fetch(ctx)
	if err != nil {
		s.WithError(err).Warn("Fetching live pools failed, using fallback")
		if s.fallback == nil {
			return nil, web3.NewAPIErrNetwork(err, chainID, "yield pools")
		}
		return s.fromFallback(ctx, chainID)
	}

	var pools []Pool
	for _, p := range all {
		if !strings.EqualFold(p.Chain, chainName) {
			continue
		}
		pools = append(pools, Pool{
			ID:        p.Pool,
			Protocol:  p.Project,
			Type:      ProtocolTypeYield,
			ChainID:   chainID,
			Symbol:    p.Symbol,
			APY:       p.APY,
			TVL:       p.TVL,
			RiskScore: riskScore(p),
		})
	}
	sort.SliceStable(pools, func(i, j int) bool { return pools[i].TVL > pools[j].TVL })
	if len(pools) > maxPoolsPerChain {
		pools = pools[:maxPoolsPerChain]
	}
	return pools, nil
}

func (s *LlamaSource) fromFallback(ctx context.Context, chainID uint64) ([]Pool, error) {
	if s.fallback == nil {
		return nil, nil
	}
	return s.fallback.Pools(ctx, chainID)
}

func (s *LlamaSource) fetch(ctx context.Context) ([]llamaPool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.cached != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "requesting pools")
	}
	defer resp.Body.Close() // nolint: errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}
	var decoded llamaResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decoding pools")
	}
	s.cached = decoded.Data
	s.fetchedAt = s.now()
	s.WithField("count", len(decoded.Data)).Debug("Fetched live pools")
	return s.cached, nil
}

// riskScore derives a score from the risk indicators of DefiLlama. Stablecoin
// pools start low, impermanent loss and multi asset exposure add to it.
func riskScore(p llamaPool) int {
	score := 5
	if p.Stablecoin {
		score = 2
	}
	if strings.EqualFold(p.ILRisk, "yes") {
		score += 3
	}
	if strings.EqualFold(p.Exposure, "multi") {
		score++
	}
	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	return score
}
