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

package web3_test

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/web3test"
)

var errTest = fmt.Errorf("const error for test")

type customError1 struct{ actualErr error }

func (c customError1) Error() string { return "custom error 1: " + c.actualErr.Error() }
func (c customError1) Unwrap() error { return c.actualErr }

type customError2 struct{ actualErr error }

func (c customError2) Error() string { return "custom error 2: " + c.actualErr.Error() }
func (c customError2) Unwrap() error { return c.actualErr }

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func Test_NewAPIErr(t *testing.T) {
	// Construct an error that contain an underlying custom error and error constant.
	// So that, they can be inspected using errors.(Is|As)
	err := errors.WithStack(customError1{
		actualErr: customError2{errTest},
	})

	category := web3.InternalError
	code := web3.ErrUnknownInternal
	apiErr := web3.NewAPIErr(category, code, err, nil)

	web3test.AssertAPIError(t, apiErr, category, code, err.Error())

	wantErrMsg := "Internal 401:custom error 1: custom error 2: const error for test"
	stackTrace, ok := err.(stackTracer)
	require.True(t, ok)

	assert.Equal(t, wantErrMsg, apiErr.Error())
	assert.Equal(t, wantErrMsg, fmt.Sprintf("%v", apiErr))
	assert.Equal(t, fmt.Sprintf("%q", wantErrMsg), fmt.Sprintf("%q", apiErr))
	assert.Contains(t, fmt.Sprintf("%+v", apiErr), fmt.Sprintf("%+v", stackTrace))

	eCause := errors.Cause(apiErr)
	require.EqualError(t, eCause, err.Error())
	eUnwrap := errors.Unwrap(apiErr)
	require.EqualError(t, eUnwrap, err.Error())

	e1 := customError1{}
	ok = errors.As(err, &e1)
	require.True(t, ok)

	e2 := customError2{}
	ok = errors.As(err, &e2)
	require.True(t, ok)

	ok = errors.Is(e2, errTest)
	require.True(t, ok)
}

func Test_AsAPIError(t *testing.T) {
	apiErr := web3.NewAPIErrBusy("refresh balance")

	t.Run("wrapped", func(t *testing.T) {
		got, ok := web3.AsAPIError(errors.WithMessage(apiErr, "outer"))
		require.True(t, ok)
		assert.Equal(t, web3.ErrBusy, got.Code())
		assert.True(t, web3.HasCode(apiErr, web3.ErrBusy))
		assert.False(t, web3.HasCode(apiErr, web3.ErrNetwork))
	})
	t.Run("plain", func(t *testing.T) {
		_, ok := web3.AsAPIError(errTest)
		assert.False(t, ok)
		assert.False(t, web3.HasCode(nil, web3.ErrBusy))
	})
}

func Test_NewAPIErrUserRejected(t *testing.T) {
	err := errors.New("user denied account access")
	method := "eth_requestAccounts"
	wantMsg := fmt.Sprintf("user rejected the %s request: %v", method, err)

	apiErr := web3.NewAPIErrUserRejected(err, method)
	web3test.AssertAPIError(t, apiErr, web3.ParticipantError, web3.ErrUserRejected, wantMsg)
	web3test.AssertErrInfoUserRejected(t, apiErr.AddInfo(), method)
}

func Test_NewAPIErrConnectionFailed(t *testing.T) {
	err := errors.New("wallet not responding")
	wantMsg := fmt.Sprintf("connecting wallet on chain 137: %v", err)

	apiErr := web3.NewAPIErrConnectionFailed(err, 137)
	web3test.AssertAPIError(t, apiErr, web3.ParticipantError, web3.ErrConnectionFailed, wantMsg)
	web3test.AssertErrInfoConnectionFailed(t, apiErr.AddInfo(), 137)
}

func Test_NewErrInvalidArgument(t *testing.T) {
	name := web3.ArgumentName("any-name")
	value := "any-value"
	err := errors.New("any-error")
	wantMsg := fmt.Sprintf("invalid value for %s: %s: %v", name, value, err)

	apiErr := web3.NewAPIErrInvalidArgument(err, name, value)
	web3test.AssertAPIError(t, apiErr, web3.ClientError, web3.ErrInvalidArgument, wantMsg)
	web3test.AssertErrInfoInvalidArgument(t, apiErr.AddInfo(), name, value)
}

func Test_NewErrInvalidAddress_Amount(t *testing.T) {
	tests := []struct {
		name    string
		newErr  func(error, web3.ArgumentName, string) web3.APIError
		code    web3.ErrorCode
		argName web3.ArgumentName
		value   string
	}{
		{"address", web3.NewAPIErrInvalidAddress, web3.ErrInvalidAddress, "to", "0x1234"},
		{"amount", web3.NewAPIErrInvalidAmount, web3.ErrInvalidAmount, "amount", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantMsg := fmt.Sprintf("invalid value for %s: %s", tt.argName, tt.value)

			apiErr := tt.newErr(nil, tt.argName, tt.value)
			web3test.AssertAPIError(t, apiErr, web3.ClientError, tt.code, wantMsg)
			web3test.AssertErrInfoInvalidArgument(t, apiErr.AddInfo(), tt.argName, tt.value)
			addInfo := apiErr.AddInfo().(web3.ErrInfoInvalidArgument)
			assert.NotEmpty(t, addInfo.Requirement)
		})
	}
}

func Test_NewErrNotConnected(t *testing.T) {
	apiErr := web3.NewAPIErrNotConnected("send transaction")
	web3test.AssertAPIError(t, apiErr, web3.ClientError, web3.ErrNotConnected,
		"send transaction requires a connected wallet")
	assert.Nil(t, apiErr.AddInfo())
}

func Test_NewErrUnsupportedOperation(t *testing.T) {
	apiErr := web3.NewAPIErrUnsupportedOperation("sign message", web3.ProviderClassic)
	web3test.AssertAPIError(t, apiErr, web3.ClientError, web3.ErrUnsupportedOperation,
		"sign message is not supported by web3 provider")
	web3test.AssertErrInfoUnsupportedOperation(t, apiErr.AddInfo(), "sign message", web3.ProviderClassic)
}

func Test_NewErrResourceNotFound(t *testing.T) {
	resourceType := web3.ResourceType("any-type")
	resourceID := "any-id"
	wantMsg := fmt.Sprintf("cannot find %s with ID: %s", resourceType, resourceID)

	apiErr := web3.NewAPIErrResourceNotFound(resourceType, resourceID)
	web3test.AssertAPIError(t, apiErr, web3.ClientError, web3.ErrResourceNotFound, wantMsg)
	web3test.AssertErrInfoResourceNotFound(t, apiErr.AddInfo(), resourceType, resourceID)
}

func Test_NewErrInvalidConfig(t *testing.T) {
	name := "any-name"
	value := "any-value"
	err := errors.New("any-error")
	wantMsg := fmt.Sprintf("invalid value for %s: %s: %v", name, value, err)

	apiErr := web3.NewAPIErrInvalidConfig(err, name, value)
	web3test.AssertAPIError(t, apiErr, web3.ClientError, web3.ErrInvalidConfig, wantMsg)
	web3test.AssertErrInfoInvalidConfig(t, apiErr.AddInfo(), name, value)
}

func Test_NewErrNetwork(t *testing.T) {
	err := errors.New("connection refused")
	wantMsg := fmt.Sprintf("eth_getBalance on chain 1: %v", err)

	apiErr := web3.NewAPIErrNetwork(err, 1, "eth_getBalance")
	web3test.AssertAPIError(t, apiErr, web3.ProtocolFatalError, web3.ErrNetwork, wantMsg)
	web3test.AssertErrInfoNetwork(t, apiErr.AddInfo(), 1, "eth_getBalance")
}

func Test_NewErrUnknownInternal(t *testing.T) {
	err := errors.New("any-error")
	wantMsg := fmt.Sprintf("unknown internal error: %v", err)

	apiErr := web3.NewAPIErrUnknownInternal(err)
	web3test.AssertAPIError(t, apiErr, web3.InternalError, web3.ErrUnknownInternal, wantMsg)
}

func Test_APIErrAsMap(t *testing.T) {
	method := "test method"
	apiErr := web3.NewAPIErrUnknownInternal(errors.New("any-error"))
	errAsMap := web3.APIErrAsMap(method, apiErr)
	assert.Equal(t, errAsMap, map[string]interface{}{
		"method":   method,
		"category": web3.InternalError.String(),
		"code":     web3.ErrUnknownInternal,
	})
}
