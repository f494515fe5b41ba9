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

package web3

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// APIError represents the error returned by the providers, the session and
// the APIs of the node.
//
// Along with the error message, this error type assigns to each error
// an error category that describes how the error should be handled,
// an error code that identifies specific types of error and
// additional info that contains data related to the error as key value pairs.
type APIError interface {
	Category() ErrorCategory
	Code() ErrorCode
	Message() string
	AddInfo() interface{}
	Error() string
}

// ErrorCategory represents the category of the error, which describes how the
// error should be handled by the client.
type ErrorCategory int

const (
	// ParticipantError is caused by the wallet, or the user operating it, not
	// completing the request.
	//
	// To resolve this, the user should approve the request in the wallet or
	// fix the wallet setup and retry.
	ParticipantError ErrorCategory = iota

	// ClientError is caused by the errors in the request from the client. It
	// could be errors in arguments, in configuration or requests made in a
	// state where they cannot be served.
	//
	// To resolve this, the client should provide valid arguments or wait for
	// the state to change and then retry.
	ClientError

	// ProtocolFatalError is caused by a failure of an external system, such as
	// the blockchain node, while serving the request.
	//
	// To resolve this, user should manually inspect the error message and
	// handle it.
	ProtocolFatalError

	// InternalError is caused due to unintended behavior in the node software.
	//
	// To resolve this, user should manually inspect the error message and
	// handle it.
	InternalError
)

// String implements the stringer interface for ErrorCategory.
func (c ErrorCategory) String() string {
	return [...]string{
		"Participant",
		"Client",
		"Protocol Fatal",
		"Internal",
	}[c]
}

// ErrorCode is a numeric code assigned to identify the specific type of error.
// The keys in the additional field is fixed for each error code.
type ErrorCode int

// Error code definitions.
const (
	ErrUserRejected         ErrorCode = 101
	ErrConnectionFailed     ErrorCode = 102
	ErrInvalidArgument      ErrorCode = 201
	ErrInvalidAddress       ErrorCode = 202
	ErrInvalidAmount        ErrorCode = 203
	ErrNotConnected         ErrorCode = 204
	ErrUnsupportedOperation ErrorCode = 205
	ErrBusy                 ErrorCode = 206
	ErrResourceNotFound     ErrorCode = 207
	ErrInvalidConfig        ErrorCode = 208
	ErrNetwork              ErrorCode = 301
	ErrUnknownInternal      ErrorCode = 401
)

type (
	// ErrInfoUserRejected represents the fields in the additional info for
	// ErrUserRejected.
	ErrInfoUserRejected struct {
		Method string
	}

	// ErrInfoConnectionFailed represents the fields in the additional info for
	// ErrConnectionFailed.
	ErrInfoConnectionFailed struct {
		ChainID uint64
	}

	// ErrInfoInvalidArgument represents the fields in the additional info for
	// ErrInvalidArgument, ErrInvalidAddress and ErrInvalidAmount.
	ErrInfoInvalidArgument struct {
		Name        string
		Value       string
		Requirement string
	}

	// ErrInfoUnsupportedOperation represents the fields in the additional
	// info for ErrUnsupportedOperation.
	ErrInfoUnsupportedOperation struct {
		Operation    string
		ProviderType string
	}

	// ErrInfoResourceNotFound represents the fields in the additional info for
	// ErrResourceNotFound.
	ErrInfoResourceNotFound struct {
		Type string
		ID   string
	}

	// ErrInfoInvalidConfig represents the fields in the additional info for
	// ErrInvalidConfig.
	ErrInfoInvalidConfig struct {
		Name  string
		Value string
	}

	// ErrInfoNetwork represents the fields in the additional info for
	// ErrNetwork. The RPC URL is not included as it may contain an API key.
	ErrInfoNetwork struct {
		ChainID uint64
		Method  string
	}
)

// APIError is returned by the API of the node.
//
// It implements Cause() and Unwrap() methods that implements the underlying
// error, which can further be unwrapped, inspected.
//
// It also implements a customer Formatter, so that the stack trace of
// underlying error is printed when using "%+v" verb.
type apiError struct {
	category ErrorCategory
	code     ErrorCode
	err      error
	addInfo  interface{}
}

// Category returns the error category for this API Error.
func (e apiError) Category() ErrorCategory { return e.category }

// Code returns the error code for this API Error.
func (e apiError) Code() ErrorCode { return e.code }

// Message returns the error message for this API Error.
func (e apiError) Message() string { return e.err.Error() }

// AddInfo returns the additional info for this API Error.
func (e apiError) AddInfo() interface{} {
	return e.addInfo
}

// Error implement the error interface for API error.
func (e apiError) Error() string {
	return fmt.Sprintf("%s %d:%v", e.Category(), e.Code(), e.Message())
}

func (e apiError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s %d:%+v", e.Category(), e.Code(), e.err)
			return
		}
		fallthrough
	case 's':
		//nolint: errcheck,gosec	// Error of ioString need not be checked.
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

func (e apiError) Cause() error { return e.err }

func (e apiError) Unwrap() error { return e.err }

// NewAPIErr returns an APIErr with given parameters.
//
// For most use cases, call the error code specific constructor functions.
// This function is intended for use in places only where an APIErr is to be
// modified.
func NewAPIErr(category ErrorCategory, code ErrorCode, err error, addInfo interface{}) APIError {
	return apiError{
		category: category,
		code:     code,
		err:      err,
		addInfo:  addInfo,
	}
}

// AsAPIError returns the APIError contained in err, if there is one.
func AsAPIError(err error) (APIError, bool) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HasCode reports whether err is an APIError with the given code.
func HasCode(err error, code ErrorCode) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code() == code
}

// NewAPIErrUserRejected returns an ErrUserRejected API Error for the given
// wallet request method.
func NewAPIErrUserRejected(err error, method string) APIError {
	message := fmt.Sprintf("user rejected the %s request", method)
	return NewAPIErr(
		ParticipantError,
		ErrUserRejected,
		errors.WithMessage(err, message),
		ErrInfoUserRejected{
			Method: method,
		},
	)
}

// NewAPIErrConnectionFailed returns an ErrConnectionFailed API Error for the
// given chain.
func NewAPIErrConnectionFailed(err error, chainID uint64) APIError {
	message := fmt.Sprintf("connecting wallet on chain %d", chainID)
	return NewAPIErr(
		ParticipantError,
		ErrConnectionFailed,
		errors.WithMessage(err, message),
		ErrInfoConnectionFailed{
			ChainID: chainID,
		},
	)
}

// ArgumentName type is used enumerate valid argument names for use
// InvalidArgument error.
//
// The enumeration of valid constants should be defined in the package using
// the error constructors.
type ArgumentName string

// NewAPIErrInvalidArgument returns an ErrInvalidArgument API Error with the given
// argument name and value.
func NewAPIErrInvalidArgument(err error, name ArgumentName, value string) APIError {
	return newAPIErrInvalidArg(ErrInvalidArgument, err, name, value, "")
}

// NewAPIErrInvalidAddress returns an ErrInvalidAddress API Error with the
// given argument name and value.
func NewAPIErrInvalidAddress(err error, name ArgumentName, value string) APIError {
	return newAPIErrInvalidArg(ErrInvalidAddress, err, name, value,
		"hex encoded 20 byte address, checksummed if mixed case")
}

// NewAPIErrInvalidAmount returns an ErrInvalidAmount API Error with the given
// argument name and value.
func NewAPIErrInvalidAmount(err error, name ArgumentName, value string) APIError {
	return newAPIErrInvalidArg(ErrInvalidAmount, err, name, value,
		"non-negative decimal, not finer than the smallest unit")
}

func newAPIErrInvalidArg(code ErrorCode, err error, name ArgumentName, value, requirement string) APIError {
	message := fmt.Sprintf("invalid value for %s: %s", name, value)
	if err == nil {
		err = errors.New(message)
	} else {
		err = errors.WithMessage(err, message)
	}
	return NewAPIErr(
		ClientError,
		code,
		err,
		ErrInfoInvalidArgument{
			Name:        string(name),
			Value:       value,
			Requirement: requirement,
		},
	)
}

// NewAPIErrNotConnected returns an ErrNotConnected API Error for an operation
// that requires a connected wallet.
func NewAPIErrNotConnected(operation string) APIError {
	message := fmt.Sprintf("%s requires a connected wallet", operation)
	return NewAPIErr(
		ClientError,
		ErrNotConnected,
		errors.New(message),
		nil,
	)
}

// NewAPIErrUnsupportedOperation returns an ErrUnsupportedOperation API Error
// for the given operation and provider type.
func NewAPIErrUnsupportedOperation(operation string, providerType ProviderType) APIError {
	message := fmt.Sprintf("%s is not supported by %s provider", operation, providerType)
	return NewAPIErr(
		ClientError,
		ErrUnsupportedOperation,
		errors.New(message),
		ErrInfoUnsupportedOperation{
			Operation:    operation,
			ProviderType: string(providerType),
		},
	)
}

// NewAPIErrBusy returns an ErrBusy API Error for an operation that was
// rejected because another one is in progress.
func NewAPIErrBusy(operation string) APIError {
	message := fmt.Sprintf("cannot start %s: another operation is in progress", operation)
	return NewAPIErr(
		ClientError,
		ErrBusy,
		errors.New(message),
		nil,
	)
}

// ResourceType is used to enumerate valid resource types in ResourceNotFound
// errors.
//
// The enumeration of valid constants should be defined in the package using
// the error constructors.
type ResourceType string

// NewAPIErrResourceNotFound returns an ErrResourceNotFound API Error with
// the given resource type and ID.
func NewAPIErrResourceNotFound(resourceType ResourceType, resourceID string) APIError {
	message := fmt.Sprintf("cannot find %s with ID: %s", resourceType, resourceID)
	return NewAPIErr(
		ClientError,
		ErrResourceNotFound,
		errors.New(message),
		ErrInfoResourceNotFound{
			Type: string(resourceType),
			ID:   resourceID,
		},
	)
}

// NewAPIErrInvalidConfig returns an ErrInvalidConfig, API Error with the given
// config name and value.
func NewAPIErrInvalidConfig(err error, name, value string) APIError {
	message := fmt.Sprintf("invalid value for %s: %s", name, value)
	return NewAPIErr(
		ClientError,
		ErrInvalidConfig,
		errors.WithMessage(err, message),
		ErrInfoInvalidConfig{
			Name:  name,
			Value: value,
		},
	)
}

// NewAPIErrNetwork returns an ErrNetwork API Error for a failed request to the
// blockchain node of the given chain.
func NewAPIErrNetwork(err error, chainID uint64, method string) APIError {
	message := fmt.Sprintf("%s on chain %d", method, chainID)
	return NewAPIErr(
		ProtocolFatalError,
		ErrNetwork,
		errors.WithMessage(err, message),
		ErrInfoNetwork{
			ChainID: chainID,
			Method:  method,
		},
	)
}

// NewAPIErrUnknownInternal returns an ErrUnknownInternal API Error with the given
// error message.
func NewAPIErrUnknownInternal(err error) APIError {
	message := "unknown internal error"
	return NewAPIErr(
		InternalError,
		ErrUnknownInternal,
		errors.WithMessage(err, message),
		nil,
	)
}

// APIErrAsMap returns a map containing entries for the method and each of
// the fields in the api error (except message). The map can be directly passed
// to the logger for logging the data in a structured format.
func APIErrAsMap(method string, err APIError) map[string]interface{} {
	return map[string]interface{}{
		"method":   method,
		"category": err.Category().String(),
		"code":     err.Code(),
	}
}
