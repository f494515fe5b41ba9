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

// Package rest implements the REST API of the node over the session, the
// chain registry and the supporting services.
package rest

import (
	"context"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/currency"
	"github.com/hyperledger-labs/web3-node/log"
	"github.com/hyperledger-labs/web3-node/prices"
	"github.com/hyperledger-labs/web3-node/simulation"
	"github.com/hyperledger-labs/web3-node/yield"
)

// Resource types and argument names used in errors returned by the server.
const (
	ResTypeChain web3.ResourceType = "chain"

	ArgNameChainID       web3.ArgumentName = "chainId"
	ArgNameToken         web3.ArgumentName = "token"
	ArgNameHolder        web3.ArgumentName = "holder"
	ArgNameOwner         web3.ArgumentName = "owner"
	ArgNameSpender       web3.ArgumentName = "spender"
	ArgNameRiskTolerance web3.ArgumentName = "riskTolerance"
	ArgNameBody          web3.ArgumentName = "body"
)

// Limit on the size of request bodies.
const maxBodySize = 1 << 20

// Message returned for failed simulations, matching the upstream proxy.
const simulationFailed = "Simulation failed"

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// YieldAPI provides the yield pools on a chain.
type YieldAPI interface {
	Pools(ctx context.Context, chainID uint64) ([]yield.Pool, error)
	OptimalYield(ctx context.Context, chainID uint64, riskTolerance int) ([]yield.Pool, error)
}

// TokenReader reads ERC20 token data on a chain.
type TokenReader interface {
	TokenInfo(ctx context.Context, chainID uint64, token string) (ethereum.TokenInfo, error)
	TokenBalance(ctx context.Context, chainID uint64, token, holder string) (*big.Int, error)
	TokenAllowance(ctx context.Context, chainID uint64, token, owner, spender string) (*big.Int, error)
}

// PriceOracle provides USD prices of tokens.
type PriceOracle interface {
	TokenPrice(ctx context.Context, chainID uint64, token string) (prices.Price, error)
}

// Simulator forwards transaction simulation requests.
type Simulator interface {
	Simulate(ctx context.Context, request map[string]interface{}) (simulation.Response, error)
}

// Config holds the services served by the API. Session and Chains are
// required. The endpoints of the optional services that are nil return
// ErrInvalidConfig, except Bridge and Metrics, whose routes are not mounted.
type Config struct {
	Session   web3.SessionAPI
	Chains    web3.ROChainRegistry
	Yield     YieldAPI
	Tokens    TokenReader
	Prices    PriceOracle
	Simulator Simulator
	Bridge    http.Handler
	Metrics   http.Handler

	// AllowOrigins lists the origins allowed by CORS. Empty allows all
	// origins, without credentials.
	AllowOrigins []string
}

// Server serves the REST API.
type Server struct {
	log.Logger
	cfg    Config
	router *gin.Engine

	httpServer *http.Server
}

// NewServer returns a server for the given services. It fails only if the
// CORS origins are invalid.
func NewServer(cfg Config) (*Server, error) {
	s := &Server{
		Logger: log.NewLoggerWithField("component", "rest"),
		cfg:    cfg,
	}
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	if err := corsCfg.Validate(); err != nil {
		return nil, web3.NewAPIErrInvalidConfig(err, "corsorigins", strings.Join(cfg.AllowOrigins, ","))
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), cors.New(corsCfg))

	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		v1.GET("/chains", s.getChains)
		v1.GET("/chains/:chainId/pools", s.getPools)
		v1.GET("/chains/:chainId/pools/optimal", s.getOptimalPools)
		v1.GET("/chains/:chainId/tokens/:token", s.getToken)
		v1.GET("/chains/:chainId/tokens/:token/allowance", s.getAllowance)
		v1.GET("/chains/:chainId/tokens/:token/price", s.getPrice)

		session := v1.Group("/session")
		session.GET("", s.getSession)
		session.PUT("/provider", s.setProviderType)
		session.PUT("/chain", s.setChain)
		session.PUT("/address", s.setAddress)
		session.POST("/connect", s.connectWallet)
		session.POST("/balance", s.refreshBalance)
		session.POST("/transactions", s.sendTransaction)
		session.POST("/sign", s.signMessage)
		session.POST("/tokens/:token/transfer", s.transferToken)
		session.POST("/tokens/:token/approve", s.approveToken)

		v1.POST("/signatures/verify", s.verifySignature)
		api.POST("/tenderly/simulate", s.simulate)
	}

	if cfg.Bridge != nil {
		r.Any("/bridge/*path", gin.WrapH(http.StripPrefix("/bridge", cfg.Bridge)))
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	s.router = r
	s.httpServer = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the http handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve serves the API on the listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	s.WithField("addr", listener.Addr().String()).Info("Serving REST API")
	err := s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "serving REST API")
}

// ListenAndServe listens on the address and serves the API.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "starting listener")
	}
	return s.Serve(listener)
}

// Shutdown stops the server gracefully. Serve returns immediately if called
// after Shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// logRequests logs each request at debug level once it is served.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("Served request")
	}
}

func (s *Server) getChains(c *gin.Context) {
	ids := s.cfg.Chains.ChainIDs()
	chains := make([]Chain, 0, len(ids))
	for _, id := range ids {
		if chain, ok := s.cfg.Chains.Chain(id); ok {
			chains = append(chains, FromChain(chain))
		}
	}
	c.JSON(http.StatusOK, chains)
}

func (s *Server) getPools(c *gin.Context) {
	chainID, apiErr := s.chainID(c)
	if apiErr == nil && s.cfg.Yield == nil {
		apiErr = notConfigured("yield")
	}
	if apiErr != nil {
		s.respondErr(c, "GetPools", apiErr)
		return
	}
	pools, err := s.cfg.Yield.Pools(c.Request.Context(), chainID)
	if err != nil {
		s.respondErr(c, "GetPools", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, PoolsResp{ChainID: chainID, Pools: nonNil(pools)})
}

func (s *Server) getOptimalPools(c *gin.Context) {
	errResponse := func(err web3.APIError) { s.respondErr(c, "GetOptimalPools", err) }

	chainID, apiErr := s.chainID(c)
	if apiErr != nil {
		errResponse(apiErr)
		return
	}
	tolerance := yield.MaxRiskScore
	if value, ok := c.GetQuery(string(ArgNameRiskTolerance)); ok && value != "" {
		var err error
		if tolerance, err = strconv.Atoi(value); err != nil {
			errResponse(web3.NewAPIErrInvalidArgument(err, ArgNameRiskTolerance, value))
			return
		}
	}
	if s.cfg.Yield == nil {
		errResponse(notConfigured("yield"))
		return
	}
	pools, err := s.cfg.Yield.OptimalYield(c.Request.Context(), chainID, tolerance)
	if err != nil {
		errResponse(toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, PoolsResp{ChainID: chainID, Pools: nonNil(pools)})
}

func (s *Server) getToken(c *gin.Context) {
	errResponse := func(err web3.APIError) { s.respondErr(c, "GetToken", err) }

	chainID, token, apiErr := s.chainAndToken(c)
	if apiErr != nil {
		errResponse(apiErr)
		return
	}
	holder := c.Query(string(ArgNameHolder))
	if holder != "" {
		if apiErr = parseAddress(ArgNameHolder, holder); apiErr != nil {
			errResponse(apiErr)
			return
		}
	}
	if s.cfg.Tokens == nil {
		errResponse(notConfigured("tokens"))
		return
	}

	ctx := c.Request.Context()
	info, err := s.cfg.Tokens.TokenInfo(ctx, chainID, token)
	if err != nil {
		errResponse(tokenErr(err, chainID, token))
		return
	}
	tokenCurrency := currency.New(info.Symbol, info.Decimals)
	resp := Token{
		ChainID:     chainID,
		Address:     token,
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: tokenCurrency.Format(info.TotalSupply),
	}
	if holder != "" {
		bal, err := s.cfg.Tokens.TokenBalance(ctx, chainID, token, holder)
		if err != nil {
			errResponse(tokenErr(err, chainID, token))
			return
		}
		resp.Holder = holder
		resp.Balance = tokenCurrency.Format(bal)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getAllowance(c *gin.Context) {
	errResponse := func(err web3.APIError) { s.respondErr(c, "GetAllowance", err) }

	chainID, token, apiErr := s.chainAndToken(c)
	if apiErr != nil {
		errResponse(apiErr)
		return
	}
	owner, spender := c.Query(string(ArgNameOwner)), c.Query(string(ArgNameSpender))
	if apiErr = parseAddress(ArgNameOwner, owner); apiErr == nil {
		apiErr = parseAddress(ArgNameSpender, spender)
	}
	if apiErr == nil && s.cfg.Tokens == nil {
		apiErr = notConfigured("tokens")
	}
	if apiErr != nil {
		errResponse(apiErr)
		return
	}

	ctx := c.Request.Context()
	info, err := s.cfg.Tokens.TokenInfo(ctx, chainID, token)
	if err != nil {
		errResponse(tokenErr(err, chainID, token))
		return
	}
	allowance, err := s.cfg.Tokens.TokenAllowance(ctx, chainID, token, owner, spender)
	if err != nil {
		errResponse(tokenErr(err, chainID, token))
		return
	}
	c.JSON(http.StatusOK, Allowance{
		ChainID:   chainID,
		Token:     token,
		Owner:     owner,
		Spender:   spender,
		Allowance: currency.New(info.Symbol, info.Decimals).Format(allowance),
	})
}

func (s *Server) getPrice(c *gin.Context) {
	chainID, token, apiErr := s.chainAndToken(c)
	if apiErr == nil && s.cfg.Prices == nil {
		apiErr = notConfigured("prices")
	}
	if apiErr != nil {
		s.respondErr(c, "GetPrice", apiErr)
		return
	}
	price, err := s.cfg.Prices.TokenPrice(c.Request.Context(), chainID, token)
	if err != nil {
		s.respondErr(c, "GetPrice", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromPrice(price))
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, FromSessionState(s.cfg.Session.State()))
}

func (s *Server) setProviderType(c *gin.Context) {
	var req SetProviderTypeReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "SetProviderType", apiErr)
		return
	}
	if err := s.cfg.Session.SetProviderType(web3.ProviderType(req.ProviderType)); err != nil {
		s.respondErr(c, "SetProviderType", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromSessionState(s.cfg.Session.State()))
}

func (s *Server) setChain(c *gin.Context) {
	var req SetChainReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "SetChain", apiErr)
		return
	}
	if err := s.cfg.Session.SetChain(req.ChainID); err != nil {
		s.respondErr(c, "SetChain", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromSessionState(s.cfg.Session.State()))
}

func (s *Server) setAddress(c *gin.Context) {
	var req SetAddressReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "SetAddress", apiErr)
		return
	}
	bal, err := s.cfg.Session.SetAddress(c.Request.Context(), req.Address)
	if err != nil {
		s.respondErr(c, "SetAddress", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromBalance(bal))
}

func (s *Server) connectWallet(c *gin.Context) {
	signer, err := s.cfg.Session.ConnectWallet(c.Request.Context())
	if err != nil {
		s.respondErr(c, "ConnectWallet", toAPIError(err))
		return
	}
	if signer == nil {
		c.JSON(http.StatusOK, ConnectResp{})
		return
	}
	c.JSON(http.StatusOK, ConnectResp{Connected: true, Address: signer.Address()})
}

func (s *Server) refreshBalance(c *gin.Context) {
	bal, err := s.cfg.Session.RefreshBalance(c.Request.Context())
	if err != nil {
		s.respondErr(c, "RefreshBalance", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromBalance(bal))
}

func (s *Server) sendTransaction(c *gin.Context) {
	var req SendTxReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "SendTransaction", apiErr)
		return
	}
	tx, err := s.cfg.Session.SendTransaction(c.Request.Context(), req.To, req.Amount)
	if err != nil {
		s.respondErr(c, "SendTransaction", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromTx(tx))
}

func (s *Server) transferToken(c *gin.Context) {
	var req TokenTransferReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "TransferToken", apiErr)
		return
	}
	tx, err := s.cfg.Session.TransferToken(c.Request.Context(), c.Param("token"), req.To, req.Amount)
	if err != nil {
		s.respondErr(c, "TransferToken", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromTx(tx))
}

func (s *Server) approveToken(c *gin.Context) {
	var req TokenApproveReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "ApproveToken", apiErr)
		return
	}
	tx, err := s.cfg.Session.ApproveToken(c.Request.Context(), c.Param("token"), req.Spender, req.Amount)
	if err != nil {
		s.respondErr(c, "ApproveToken", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, FromTx(tx))
}

func (s *Server) signMessage(c *gin.Context) {
	var req SignReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "SignMessage", apiErr)
		return
	}
	sig, err := s.cfg.Session.SignMessage(c.Request.Context(), req.Message)
	if err != nil {
		s.respondErr(c, "SignMessage", toAPIError(err))
		return
	}
	c.JSON(http.StatusOK, SignResp{Signature: sig})
}

func (s *Server) verifySignature(c *gin.Context) {
	var req VerifyReq
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "VerifySignature", apiErr)
		return
	}
	valid := ethereum.VerifySignature(req.Message, req.Signature, req.Address)
	c.JSON(http.StatusOK, VerifyResp{Valid: valid})
}

// simulate passes the upstream response through. Failures to reach the
// upstream are reported with a generic message.
func (s *Server) simulate(c *gin.Context) {
	var req map[string]interface{}
	if apiErr := decode(c, &req); apiErr != nil {
		s.respondErr(c, "Simulate", apiErr)
		return
	}
	if s.cfg.Simulator == nil {
		s.respondErr(c, "Simulate", notConfigured("simulation"))
		return
	}
	resp, err := s.cfg.Simulator.Simulate(c.Request.Context(), req)
	if err != nil {
		s.WithError(err).Error("Simulation request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": simulationFailed})
		return
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

func (s *Server) chainID(c *gin.Context) (uint64, web3.APIError) {
	value := c.Param("chainId")
	chainID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, web3.NewAPIErrInvalidArgument(err, ArgNameChainID, value)
	}
	if _, ok := s.cfg.Chains.Chain(chainID); !ok {
		return 0, web3.NewAPIErrResourceNotFound(ResTypeChain, value)
	}
	return chainID, nil
}

// chainAndToken returns the chain id and the token address from the path.
func (s *Server) chainAndToken(c *gin.Context) (uint64, string, web3.APIError) {
	chainID, apiErr := s.chainID(c)
	if apiErr != nil {
		return 0, "", apiErr
	}
	token := c.Param("token")
	if apiErr = parseAddress(ArgNameToken, token); apiErr != nil {
		return 0, "", apiErr
	}
	return chainID, token, nil
}

func (s *Server) respondErr(c *gin.Context, method string, err web3.APIError) {
	s.WithFields(web3.APIErrAsMap(method, err)).Error(err.Message())
	c.JSON(HTTPStatus(err), ErrorResp{Error: FromError(err)})
}

func parseAddress(name web3.ArgumentName, address string) web3.APIError {
	if _, err := ethereum.ParseAddress(address); err != nil {
		return web3.NewAPIErrInvalidAddress(err, name, address)
	}
	return nil
}

// decode binds the JSON body of the request, limited to maxBodySize.
func decode(c *gin.Context, v interface{}) web3.APIError {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(v); err != nil {
		return web3.NewAPIErrInvalidArgument(err, ArgNameBody, "")
	}
	return nil
}

func toAPIError(err error) web3.APIError {
	if apiErr, ok := web3.AsAPIError(err); ok {
		return apiErr
	}
	return web3.NewAPIErrUnknownInternal(err)
}

func notConfigured(service string) web3.APIError {
	return web3.NewAPIErrInvalidConfig(errors.New("service not configured"), service, "")
}

func tokenErr(err error, chainID uint64, token string) web3.APIError {
	var invalidToken blockchain.InvalidTokenError
	if errors.As(err, &invalidToken) {
		return web3.NewAPIErrInvalidArgument(err, ArgNameToken, token)
	}
	if apiErr, ok := web3.AsAPIError(err); ok {
		return apiErr
	}
	return web3.NewAPIErrNetwork(err, chainID, "token info")
}

func nonNil(pools []yield.Pool) []yield.Pool {
	if pools == nil {
		return []yield.Pool{}
	}
	return pools
}
