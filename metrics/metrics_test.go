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

package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/internal/mocks"
	"github.com/hyperledger-labs/web3-node/metrics"
)

const addr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func Test_Instrument(t *testing.T) {
	m := metrics.New()
	p := &mocks.Provider{}
	p.On("Type").Return(web3.ProviderClassic)
	p.On("ChainID").Return(uint64(137))
	p.On("GetBalance", mock.Anything, addr).Return("2.25", nil)
	p.On("SignMessage", mock.Anything, "msg").Return("",
		web3.NewAPIErrUnsupportedOperation("sign message", web3.ProviderClassic))
	p.On("TransferToken", mock.Anything, addr, addr, "1").Return("0xabc", nil)

	ip := m.Instrument(p)
	ctx := context.Background()

	bal, err := ip.GetBalance(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "2.25", bal)
	_, err = ip.SignMessage(ctx, "msg")
	require.Error(t, err)
	_, err = ip.TransferToken(ctx, addr, addr, "1")
	require.NoError(t, err)
	m.ObserveRebuild(web3.ProviderClassic, 137)

	server := httptest.NewServer(m.Handler())
	defer server.Close()
	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint: errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body),
		`web3_node_provider_operations_total{operation="get_balance",provider="web3",result="ok"} 1`)
	assert.Contains(t, string(body),
		`web3_node_provider_operations_total{operation="sign_message",provider="web3",result="205"} 1`)
	assert.Contains(t, string(body),
		`web3_node_provider_operations_total{operation="transfer_token",provider="web3",result="ok"} 1`)
	assert.Contains(t, string(body), `web3_node_balance{address="`+addr+`",chain="137"} 2.25`)
	assert.Contains(t, string(body), `web3_node_provider_rebuilds_total{chain="137",provider="web3"} 1`)
	p.AssertExpectations(t)
}

func Test_New_Independent(t *testing.T) {
	m1, m2 := metrics.New(), metrics.New()
	m1.ObserveRebuild(web3.ProviderEthers, 1)

	count, err := testutil.GatherAndCount(m1.Registry(), "web3_node_provider_rebuilds_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = testutil.GatherAndCount(m2.Registry(), "web3_node_provider_rebuilds_total")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
