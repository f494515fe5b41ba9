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

package simulation_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/simulation"
)

const usdt = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

type recorded struct {
	path      string
	accessKey string
	body      map[string]interface{}
}

func newUpstream(t *testing.T, status int, respBody string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.accessKey = r.Header.Get("X-Access-Key")
		data, err := io.ReadAll(r.Body)
		if err == nil {
			_ = json.Unmarshal(data, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newClient(t *testing.T, baseURL string) *simulation.Client {
	t.Helper()
	c, err := simulation.NewClient(simulation.Config{
		BaseURL:   baseURL,
		User:      "alice",
		Project:   "demo",
		AccessKey: "key-123",
	})
	require.NoError(t, err)
	return c
}

func Test_NewClient_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  simulation.Config
	}{
		{"user", simulation.Config{Project: "p", AccessKey: "k"}},
		{"project", simulation.Config{User: "u", AccessKey: "k"}},
		{"access_key", simulation.Config{User: "u", Project: "p", AccessKey: "  "}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := simulation.NewClient(tc.cfg)
			require.Error(t, err)
			assert.True(t, web3.HasCode(err, web3.ErrInvalidConfig))
		})
	}
}

func Test_Simulate(t *testing.T) {
	srv, rec := newUpstream(t, http.StatusOK, `{"transaction":{"status":true}}`)
	c := newClient(t, srv.URL+"/")

	request, err := simulation.BalanceOfRequest(1, "0x0000000000000000000000000000000000000001", usdt)
	require.NoError(t, err)

	resp, err := c.Simulate(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.JSONEq(t, `{"transaction":{"status":true}}`, string(resp.Body))

	assert.Equal(t, "/account/alice/project/demo/simulate", rec.path)
	assert.Equal(t, "key-123", rec.accessKey)
	assert.Equal(t, true, rec.body["save"])
	assert.Equal(t, true, rec.body["save_if_fails"])
	assert.Equal(t, "1", rec.body["network_id"])
	assert.Equal(t, usdt, rec.body["to"])
	assert.Equal(t, "0x70a08231"+
		"0000000000000000000000000000000000000000000000000000000000000001", rec.body["input"])
}

func Test_Simulate_UpstreamErrorPassedThrough(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusBadRequest, `{"error":{"message":"invalid network"}}`)
	c := newClient(t, srv.URL)

	resp, err := c.Simulate(context.Background(), map[string]interface{}{"network_id": "999"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":{"message":"invalid network"}}`, string(resp.Body))
}

func Test_Simulate_ResponseSizeLimit(t *testing.T) {
	body := `{"transaction":{"status":true}}`
	srv, _ := newUpstream(t, http.StatusOK, body)

	newLimited := func(limit int64) *simulation.Client {
		c, err := simulation.NewClient(simulation.Config{
			BaseURL:         srv.URL,
			User:            "alice",
			Project:         "demo",
			AccessKey:       "key-123",
			MaxResponseSize: limit,
		})
		require.NoError(t, err)
		return c
	}

	t.Run("exact_limit", func(t *testing.T) {
		resp, err := newLimited(int64(len(body))).Simulate(context.Background(), map[string]interface{}{})
		require.NoError(t, err)
		assert.Equal(t, body, string(resp.Body))
	})

	t.Run("over_limit", func(t *testing.T) {
		resp, err := newLimited(int64(len(body))-1).Simulate(context.Background(), map[string]interface{}{})
		require.Error(t, err)
		assert.True(t, web3.HasCode(err, web3.ErrNetwork))
		assert.Nil(t, resp.Body)
	})
}

func Test_Simulate_Unreachable(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, "{}")
	c := newClient(t, srv.URL)
	srv.Close()

	_, err := c.Simulate(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, web3.HasCode(err, web3.ErrNetwork))
}

func Test_BalanceOfRequest_InvalidAddress(t *testing.T) {
	_, err := simulation.BalanceOfRequest(1, "0x123", usdt)
	assert.True(t, web3.HasCode(err, web3.ErrInvalidAddress))

	_, err = simulation.BalanceOfRequest(1, "0x0000000000000000000000000000000000000001", "usdt")
	assert.True(t, web3.HasCode(err, web3.ErrInvalidAddress))
}
