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

package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
)

const (
	usdc = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

type upstream struct {
	url   string
	hits  atomic.Int32
	paths chan string

	mtx    sync.Mutex
	status int
	body   string
}

func (u *upstream) respondWith(status int, body string) {
	u.mtx.Lock()
	u.status, u.body = status, body
	u.mtx.Unlock()
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{paths: make(chan string, 10), status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		select {
		case u.paths <- r.URL.Path:
		default:
		}
		u.mtx.Lock()
		status, body := u.status, u.body
		u.mtx.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	u.url = srv.URL
	return u
}

const (
	coingeckoBody = `{"id":"usd-coin","symbol":"usdc","market_data":{"current_price":{"usd":0.9998,"eur":0.92}}}`
	llamaBody     = `{"coins":{"ethereum:` + weth + `":{"price":3120.55,"symbol":"WETH","timestamp":1700000000}}}`
)

func Test_Oracle_Coingecko(t *testing.T) {
	gecko := newUpstream(t, http.StatusOK, coingeckoBody)
	llama := newUpstream(t, http.StatusOK, llamaBody)
	o := NewOracle(Config{CoingeckoURL: gecko.url, LlamaURL: llama.url, TTL: time.Minute})
	now := time.Now()
	o.now = func() time.Time { return now }

	p, err := o.TokenPrice(context.Background(), 137, usdc)
	require.NoError(t, err)
	assert.Equal(t, "0.9998", p.USD.String())
	assert.Equal(t, "USDC", p.Symbol)
	assert.Equal(t, SourceCoingecko, p.Source)
	assert.Equal(t, uint64(137), p.ChainID)
	assert.Equal(t, "/coins/polygon-pos/contract/"+usdc, <-gecko.paths)
	assert.Zero(t, llama.hits.Load())

	t.Run("cached_per_token", func(t *testing.T) {
		_, err := o.TokenPrice(context.Background(), 137, usdc)
		require.NoError(t, err)
		assert.Equal(t, int32(1), gecko.hits.Load())

		_, err = o.TokenPrice(context.Background(), 1, usdc)
		require.NoError(t, err)
		assert.Equal(t, int32(2), gecko.hits.Load(), "another chain is another cache entry")
	})

	t.Run("cache_expires", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, err := o.TokenPrice(context.Background(), 137, usdc)
		require.NoError(t, err)
		assert.Equal(t, int32(3), gecko.hits.Load())
	})
}

func Test_Oracle_FallbackToDefiLlama(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			gecko := newUpstream(t, status, `{"error":"coin not found"}`)
			llama := newUpstream(t, http.StatusOK, llamaBody)
			o := NewOracle(Config{CoingeckoURL: gecko.url, LlamaURL: llama.url})

			p, err := o.TokenPrice(context.Background(), 1, weth)
			require.NoError(t, err)
			assert.Equal(t, "3120.55", p.USD.String())
			assert.Equal(t, "WETH", p.Symbol)
			assert.Equal(t, SourceDefiLlama, p.Source)
			assert.Equal(t, "/prices/current/ethereum:"+weth, <-llama.paths)
		})
	}
}

func Test_Oracle_Errors(t *testing.T) {
	t.Run("invalid_token", func(t *testing.T) {
		gecko := newUpstream(t, http.StatusOK, coingeckoBody)
		o := NewOracle(Config{CoingeckoURL: gecko.url, LlamaURL: gecko.url})
		_, err := o.TokenPrice(context.Background(), 1, "0x12")
		assert.True(t, web3.HasCode(err, web3.ErrInvalidAddress))
		assert.Zero(t, gecko.hits.Load())
	})

	t.Run("not_listed", func(t *testing.T) {
		gecko := newUpstream(t, http.StatusNotFound, `{}`)
		llama := newUpstream(t, http.StatusOK, `{"coins":{}}`)
		o := NewOracle(Config{CoingeckoURL: gecko.url, LlamaURL: llama.url})
		_, err := o.TokenPrice(context.Background(), 1, usdc)
		assert.True(t, web3.HasCode(err, web3.ErrResourceNotFound))
	})

	t.Run("unsupported_chain", func(t *testing.T) {
		gecko := newUpstream(t, http.StatusOK, coingeckoBody)
		o := NewOracle(Config{CoingeckoURL: gecko.url, LlamaURL: gecko.url})
		_, err := o.TokenPrice(context.Background(), 5, usdc)
		assert.True(t, web3.HasCode(err, web3.ErrResourceNotFound))
		assert.Zero(t, gecko.hits.Load())
	})

	t.Run("sources_down", func(t *testing.T) {
		gecko := newUpstream(t, http.StatusBadGateway, ``)
		llama := newUpstream(t, http.StatusInternalServerError, ``)
		o := NewOracle(Config{CoingeckoURL: gecko.url, LlamaURL: llama.url})
		_, err := o.TokenPrice(context.Background(), 1, usdc)
		assert.True(t, web3.HasCode(err, web3.ErrNetwork))
		assert.Equal(t, int32(1), llama.hits.Load())
	})

	t.Run("failures_not_cached", func(t *testing.T) {
		gecko := newUpstream(t, http.StatusBadGateway, ``)
		llama := newUpstream(t, http.StatusBadGateway, ``)
		o := NewOracle(Config{CoingeckoURL: gecko.url, LlamaURL: llama.url})
		_, err := o.TokenPrice(context.Background(), 1, usdc)
		require.Error(t, err)

		gecko.respondWith(http.StatusOK, coingeckoBody)
		p, err := o.TokenPrice(context.Background(), 1, usdc)
		require.NoError(t, err)
		assert.Equal(t, "0.9998", p.USD.String())
	})
}
