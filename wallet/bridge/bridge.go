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

// Package bridge implements a wallet host that relays the requests to the
// wallet of a browser. The browser opens the page served by the bridge, which
// connects back over a websocket and forwards each request to the injected
// EIP-1193 provider (window.ethereum).
package bridge

import (
	"context"
	_ "embed" // for the relay page.
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/web3-node/log"
	"github.com/hyperledger-labs/web3-node/wallet"
)

//go:embed relay.html
var relayPage []byte

// Config holds the websocket parameters of the bridge.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration // Should be less than PongWait.
	MaxMessageSize int64
}

// DefaultConfig returns the configuration used by the node.
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     ((60 * time.Second) * 9) / 10, // ping period = (pongWait * 9)/10
		MaxMessageSize: 64 * 1024,
	}
}

type request struct {
	ID     uint64        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wallet.Error   `json:"error,omitempty"`
}

type pendingRequest struct {
	conn *websocket.Conn
	resp chan response
}

// Bridge is a wallet host backed by the wallet of an attached browser. Only
// one browser is attached at a time, a new one replaces the previous.
type Bridge struct {
	log.Logger
	cfg      Config
	upgrader websocket.Upgrader

	mtx     sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]pendingRequest

	writeMtx sync.Mutex
	nextID   atomic.Uint64
}

// New returns a bridge with no browser attached.
func New(cfg Config) *Bridge {
	return &Bridge{
		Logger:  log.NewLoggerWithField("wallet-host", "bridge"),
		cfg:     cfg,
		pending: make(map[uint64]pendingRequest),
	}
}

// Handler returns the http handler serving the relay page at "/" and the
// websocket endpoint at "/ws".
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", b.servePage)
	mux.HandleFunc("GET /ws", b.serveWS)
	return mux
}

// Available reports whether a browser is attached.
func (b *Bridge) Available() bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.conn != nil
}

func (b *Bridge) servePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(relayPage); err != nil {
		b.WithError(err).Error("Writing relay page")
	}
}

func (b *Bridge) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Errors returned by upgrader.Upgrade are due to issues in the
		// incoming request. Hence log and ignore the connection.
		b.WithError(err).Error("Upgrading bridge connection")
		return
	}
	b.attach(conn)
}

func (b *Bridge) attach(conn *websocket.Conn) {
	b.mtx.Lock()
	prev := b.conn
	b.conn = conn
	b.mtx.Unlock()
	if prev != nil {
		b.Info("Replacing attached browser")
		b.detach(prev)
	}
	b.Info("Browser attached")

	done := make(chan struct{})
	go b.readHandler(conn, done)
	go b.pingHandler(conn, done)
}

// detach closes the connection and fails the requests pending on it.
func (b *Bridge) detach(conn *websocket.Conn) {
	if err := conn.Close(); err != nil {
		b.WithError(err).Debug("Closing bridge connection")
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.conn == conn {
		b.conn = nil
	}
	for id, p := range b.pending {
		if p.conn != conn {
			continue
		}
		p.resp <- response{ID: id, Error: &wallet.Error{Code: wallet.CodeDisconnected, Message: "browser detached"}}
		delete(b.pending, id)
	}
}

func (b *Bridge) readHandler(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		close(done)
		b.detach(conn)
		b.Info("Browser detached")
	}()

	conn.SetReadLimit(b.cfg.MaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait)); err != nil {
		b.WithError(err).Error("Setting read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.WithError(err).Error("Connection closed with unexpected error")
			}
			return
		}
		var resp response
		if err := json.Unmarshal(message, &resp); err != nil {
			b.WithError(err).Error("Decoding bridge response")
			continue
		}
		b.deliver(resp)
	}
}

func (b *Bridge) pingHandler(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(b.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.writeMtx.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(b.cfg.WriteWait))
			b.writeMtx.Unlock()
			if err != nil {
				b.WithError(err).Debug("Sending ping")
				return
			}
		}
	}
}

func (b *Bridge) deliver(resp response) {
	b.mtx.Lock()
	p, ok := b.pending[resp.ID]
	delete(b.pending, resp.ID)
	b.mtx.Unlock()
	if !ok {
		b.WithField("id", resp.ID).Warn("Response for unknown request")
		return
	}
	p.resp <- resp
}

// Request relays the request to the browser wallet and waits for the
// response or the context to expire. Without an attached browser, it fails
// with the disconnected error code.
func (b *Bridge) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	req := request{ID: b.nextID.Add(1), Method: method, Params: params}
	if req.Params == nil {
		req.Params = []interface{}{}
	}
	msg, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encoding bridge request")
	}

	respCh := make(chan response, 1)
	b.mtx.Lock()
	conn := b.conn
	if conn == nil {
		b.mtx.Unlock()
		return wallet.NewError(wallet.CodeDisconnected, "no browser attached")
	}
	b.pending[req.ID] = pendingRequest{conn: conn, resp: respCh}
	b.mtx.Unlock()
	b.WithField("method", method).Debug("Relaying wallet request")

	b.writeMtx.Lock()
	err = conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, msg)
	}
	b.writeMtx.Unlock()
	if err != nil {
		b.forget(req.ID)
		return errors.Wrap(err, "relaying request to browser")
	}

	select {
	case <-ctx.Done():
		b.forget(req.ID)
		return errors.Wrapf(ctx.Err(), "waiting for %s response", method)
	case resp := <-respCh:
		if resp.Error != nil {
			return *resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		return errors.Wrap(json.Unmarshal(resp.Result, result), "decoding bridge response")
	}
}

func (b *Bridge) forget(id uint64) {
	b.mtx.Lock()
	delete(b.pending, id)
	b.mtx.Unlock()
}

// Close detaches the browser, if any.
func (b *Bridge) Close() {
	b.mtx.Lock()
	conn := b.conn
	b.mtx.Unlock()
	if conn != nil {
		b.detach(conn)
	}
}
