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

package rest

import (
	"net/http"

	"github.com/hyperledger-labs/web3-node"
)

// FromError converts an APIError to its REST representation.
func FromError(err web3.APIError) MsgError {
	return MsgError{
		Category: err.Category().String(),
		Code:     int(err.Code()),
		Message:  err.Message(),
		AddInfo:  err.AddInfo(),
	}
}

// HTTPStatus returns the status code of the response for the error.
func HTTPStatus(err web3.APIError) int {
	switch err.Code() {
	case web3.ErrUserRejected:
		return http.StatusForbidden
	case web3.ErrConnectionFailed, web3.ErrNetwork:
		return http.StatusBadGateway
	case web3.ErrInvalidArgument, web3.ErrInvalidAddress, web3.ErrInvalidAmount:
		return http.StatusBadRequest
	case web3.ErrNotConnected, web3.ErrBusy:
		return http.StatusConflict
	case web3.ErrUnsupportedOperation:
		return http.StatusUnprocessableEntity
	case web3.ErrResourceNotFound:
		return http.StatusNotFound
	case web3.ErrInvalidConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
