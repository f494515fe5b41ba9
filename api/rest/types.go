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
	"time"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/prices"
	"github.com/hyperledger-labs/web3-node/yield"
)

type (
	// MsgError is the body of every error response.
	MsgError struct {
		Category string      `json:"category"`
		Code     int         `json:"code"`
		Message  string      `json:"message"`
		AddInfo  interface{} `json:"addInfo,omitempty"`
	}

	// ErrorResp wraps MsgError in error responses.
	ErrorResp struct {
		Error MsgError `json:"error"`
	}

	// Chain is a registered chain.
	Chain struct {
		ChainID          uint64   `json:"chainId"`
		Name             string   `json:"name"`
		NativeSymbol     string   `json:"nativeSymbol"`
		NativeDecimals   uint8    `json:"nativeDecimals"`
		ExplorerURL      string   `json:"explorerUrl"`
		ChainType        string   `json:"chainType"`
		AverageBlockTime int64    `json:"averageBlockTimeMs"`
		Protocols        []string `json:"protocols"`
	}

	// PoolsResp lists yield pools on a chain.
	PoolsResp struct {
		ChainID uint64       `json:"chainId"`
		Pools   []yield.Pool `json:"pools"`
	}

	// Token is the metadata of an ERC20 token and optionally the balance of a
	// holder. Amounts are decimal strings in token units.
	Token struct {
		ChainID     uint64 `json:"chainId"`
		Address     string `json:"address"`
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Decimals    uint8  `json:"decimals"`
		TotalSupply string `json:"totalSupply"`
		Holder      string `json:"holder,omitempty"`
		Balance     string `json:"balance,omitempty"`
	}

	// Allowance is the amount the spender may transfer on behalf of the
	// owner, as a decimal string in token units.
	Allowance struct {
		ChainID   uint64 `json:"chainId"`
		Token     string `json:"token"`
		Owner     string `json:"owner"`
		Spender   string `json:"spender"`
		Allowance string `json:"allowance"`
	}

	// TokenPrice is the USD price of a token.
	TokenPrice struct {
		ChainID   uint64    `json:"chainId"`
		Token     string    `json:"token"`
		Symbol    string    `json:"symbol,omitempty"`
		USD       string    `json:"usd"`
		Source    string    `json:"source"`
		FetchedAt time.Time `json:"fetchedAt"`
	}

	// Balance is a balance snapshot.
	Balance struct {
		Value   string    `json:"value"`
		Symbol  string    `json:"symbol"`
		Address string    `json:"address"`
		ChainID uint64    `json:"chainId"`
		ReadAt  time.Time `json:"readAt"`
	}

	// Tx refers to a submitted transaction.
	Tx struct {
		Hash        string `json:"hash"`
		ChainID     uint64 `json:"chainId"`
		ExplorerURL string `json:"explorerUrl"`
	}

	// SessionState is the state of the session.
	SessionState struct {
		ProviderType string   `json:"providerType"`
		ChainID      uint64   `json:"chainId"`
		ChainName    string   `json:"chainName"`
		NativeSymbol string   `json:"nativeSymbol"`
		Address      string   `json:"address,omitempty"`
		Connection   string   `json:"connection"`
		Balance      *Balance `json:"balance,omitempty"`
		Loading      bool     `json:"loading"`
		LastError    string   `json:"lastError,omitempty"`
		LastTx       *Tx      `json:"lastTx,omitempty"`
		Version      uint64   `json:"version"`
	}

	// SetProviderTypeReq selects the provider type of the session.
	SetProviderTypeReq struct {
		ProviderType string `json:"providerType"`
	}

	// SetChainReq selects the chain of the session.
	SetChainReq struct {
		ChainID uint64 `json:"chainId"`
	}

	// SetAddressReq sets the address watched by the session.
	SetAddressReq struct {
		Address string `json:"address"`
	}

	// ConnectResp is the result of connecting the wallet. Connected is false
	// and Address is empty if no wallet is available.
	ConnectResp struct {
		Connected bool   `json:"connected"`
		Address   string `json:"address,omitempty"`
	}

	// SendTxReq transfers amount, in the native currency, to the address.
	SendTxReq struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}

	// TokenTransferReq transfers amount, in token units, to the address.
	TokenTransferReq struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}

	// TokenApproveReq allows the spender to transfer up to amount, in token
	// units, on behalf of the connected account.
	TokenApproveReq struct {
		Spender string `json:"spender"`
		Amount  string `json:"amount"`
	}

	// SignReq signs the message with the connected wallet.
	SignReq struct {
		Message string `json:"message"`
	}

	// SignResp holds a signature.
	SignResp struct {
		Signature string `json:"signature"`
	}

	// VerifyReq checks that the signature over the message was made by the
	// address.
	VerifyReq struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
		Address   string `json:"address"`
	}

	// VerifyResp is the result of a signature verification.
	VerifyResp struct {
		Valid bool `json:"valid"`
	}
)

// FromChain converts a chain descriptor to its REST representation.
func FromChain(c web3.ChainDescriptor) Chain {
	return Chain{
		ChainID:          c.ChainID,
		Name:             c.Name,
		NativeSymbol:     c.NativeSymbol,
		NativeDecimals:   c.NativeDecimals,
		ExplorerURL:      c.ExplorerURL,
		ChainType:        c.ChainType,
		AverageBlockTime: c.AverageBlockTime.Milliseconds(),
		Protocols:        c.Protocols,
	}
}

// FromPrice converts a token price to its REST representation.
func FromPrice(p prices.Price) TokenPrice {
	return TokenPrice{
		ChainID:   p.ChainID,
		Token:     p.Token,
		Symbol:    p.Symbol,
		USD:       p.USD.String(),
		Source:    string(p.Source),
		FetchedAt: p.FetchedAt,
	}
}

// FromBalance converts a balance snapshot to its REST representation.
func FromBalance(b web3.BalanceSnapshot) Balance {
	return Balance{
		Value:   b.Value,
		Symbol:  b.Symbol,
		Address: b.Address,
		ChainID: b.ChainID,
		ReadAt:  b.ReadAt,
	}
}

// FromTx converts a transaction reference to its REST representation.
func FromTx(tx web3.TxReceiptRef) Tx {
	return Tx{
		Hash:        tx.Hash,
		ChainID:     tx.ChainID,
		ExplorerURL: tx.ExplorerURL,
	}
}

// FromSessionState converts a session state to its REST representation.
func FromSessionState(s web3.SessionState) SessionState {
	state := SessionState{
		ProviderType: string(s.ProviderType),
		ChainID:      s.ChainID,
		ChainName:    s.ChainName,
		NativeSymbol: s.NativeSymbol,
		Address:      s.Address,
		Connection:   s.Connection.String(),
		Loading:      s.Loading,
		LastError:    s.LastError,
		Version:      s.Version,
	}
	if s.Balance != nil {
		b := FromBalance(*s.Balance)
		state.Balance = &b
	}
	if s.LastTx != nil {
		tx := FromTx(*s.LastTx)
		state.LastTx = &tx
	}
	return state
}
