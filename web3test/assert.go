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

package web3test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
)

// DecimalPattern is the shape of every balance returned by the providers.
var DecimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// AssertAPIError tests if the passed error contains expected category, code
// and phrases in the message.
func AssertAPIError(t *testing.T, e web3.APIError, categ web3.ErrorCategory, code web3.ErrorCode, msgs ...string) {
	t.Helper()

	require.Error(t, e)
	assert.Equal(t, categ, e.Category())
	assert.Equal(t, code, e.Code())
	for _, msg := range msgs {
		assert.Contains(t, e.Message(), msg)
	}
}

// RequireAPIErrorCode tests if the passed error is an APIError with the
// expected code and returns it.
func RequireAPIErrorCode(t *testing.T, err error, code web3.ErrorCode) web3.APIError {
	t.Helper()

	require.Error(t, err)
	apiErr, ok := web3.AsAPIError(err)
	require.Truef(t, ok, "not an api error: %v", err)
	require.Equal(t, code, apiErr.Code(), apiErr.Message())
	return apiErr
}

// AssertDecimal tests if the value has the shape of a balance.
func AssertDecimal(t *testing.T, value string) {
	t.Helper()

	assert.Regexp(t, DecimalPattern, value)
}

// AssertErrInfoUserRejected tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoUserRejected(t *testing.T, info interface{}, method string) {
	t.Helper()

	addInfo, ok := info.(web3.ErrInfoUserRejected)
	require.True(t, ok)
	assert.Equal(t, method, addInfo.Method)
}

// AssertErrInfoConnectionFailed tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoConnectionFailed(t *testing.T, info interface{}, chainID uint64) {
	t.Helper()

	addInfo, ok := info.(web3.ErrInfoConnectionFailed)
	require.True(t, ok)
	assert.Equal(t, chainID, addInfo.ChainID)
}

// AssertErrInfoInvalidArgument tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoInvalidArgument(t *testing.T, info interface{}, name web3.ArgumentName, value string) {
	t.Helper()

	addInfo, ok := info.(web3.ErrInfoInvalidArgument)
	require.True(t, ok)
	assert.Equal(t, string(name), addInfo.Name)
	assert.Equal(t, value, addInfo.Value)
	t.Log("requirement:", addInfo.Requirement)
}

// AssertErrInfoUnsupportedOperation tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoUnsupportedOperation(t *testing.T, info interface{}, operation string, pt web3.ProviderType) {
	t.Helper()

	addInfo, ok := info.(web3.ErrInfoUnsupportedOperation)
	require.True(t, ok)
	assert.Equal(t, operation, addInfo.Operation)
	assert.Equal(t, string(pt), addInfo.ProviderType)
}

// AssertErrInfoResourceNotFound tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoResourceNotFound(t *testing.T, info interface{}, resourceType web3.ResourceType, id string) {
	t.Helper()

	addInfo, ok := info.(web3.ErrInfoResourceNotFound)
	require.True(t, ok)
	assert.Equal(t, string(resourceType), addInfo.Type)
	assert.Equal(t, id, addInfo.ID)
}

// AssertErrInfoInvalidConfig tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoInvalidConfig(t *testing.T, info interface{}, name, value string) {
	t.Helper()

	addInfo, ok := info.(web3.ErrInfoInvalidConfig)
	require.True(t, ok)
	assert.Equal(t, name, addInfo.Name)
	assert.Equal(t, value, addInfo.Value)
}

// AssertErrInfoNetwork tests if additional info field is of
// correct type and has expected values.
func AssertErrInfoNetwork(t *testing.T, info interface{}, chainID uint64, method string) {
	t.Helper()

	addInfo, ok := info.(web3.ErrInfoNetwork)
	require.True(t, ok)
	assert.Equal(t, chainID, addInfo.ChainID)
	assert.Equal(t, method, addInfo.Method)
}
