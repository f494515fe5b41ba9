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

package ethereumtest

import (
	"crypto/ecdsa"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
)

// Wallet error codes as defined in EIP-1193, returned by the dev accounts of
// the node.
const (
	codeUserRejected = 4001
	codeUnauthorized = 4100
	codeUnknownChain = 4902
)

// GasPrice is the gas price suggested by the node.
var GasPrice = big.NewInt(1e9)

// Node is an in-memory ethereum node serving the JSON-RPC methods used by the
// providers over http. Transactions are applied immediately, there are no
// blocks.
//
// Like development nodes, it can hold unlocked accounts and serve
// eth_requestAccounts, eth_sendTransaction and personal_sign for them.
type Node struct {
	URL     string
	ChainID uint64

	mtx      sync.Mutex
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	txs      map[common.Hash]*types.Transaction
	tokens   map[common.Address]*Token
	devKeys  map[common.Address]*ecdsa.PrivateKey
	devAddrs []common.Address
	reject   bool

	requests atomic.Int64
	failing  atomic.Bool
	methods  sync.Map // method name => *atomic.Int64
}

// Token is an ERC20 token deployed on the node. Transactions calling
// transfer and approve update Balances and Allowances.
type Token struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	Balances    map[common.Address]*big.Int
	Allowances  map[common.Address]map[common.Address]*big.Int // owner => spender => amount
}

// NewNode starts a node for the given chain. It is stopped when the test
// completes.
func NewNode(t *testing.T, chainID uint64) *Node {
	t.Helper()

	n := &Node{
		ChainID:  chainID,
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		txs:      make(map[common.Hash]*types.Transaction),
		tokens:   make(map[common.Address]*Token),
		devKeys:  make(map[common.Address]*ecdsa.PrivateKey),
	}

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethAPI{n}))
	require.NoError(t, server.RegisterName("personal", &personalAPI{n}))
	require.NoError(t, server.RegisterName("wallet", &walletAPI{n}))

	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.requests.Add(1)
		if n.failing.Load() {
			http.Error(w, "node unavailable", http.StatusServiceUnavailable)
			return
		}
		server.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	n.URL = httpServer.URL
	return n
}

// Requests returns the number of http requests received by the node.
func (n *Node) Requests() int64 {
	return n.requests.Load()
}

// Calls returns the number of times the JSON-RPC method was served.
func (n *Node) Calls(method string) int64 {
	c, ok := n.methods.Load(method)
	if !ok {
		return 0
	}
	return c.(*atomic.Int64).Load()
}

func (n *Node) count(method string) {
	c, _ := n.methods.LoadOrStore(method, new(atomic.Int64))
	c.(*atomic.Int64).Add(1)
}

// SetFailing makes the node respond to all requests with an http error.
func (n *Node) SetFailing(failing bool) {
	n.failing.Store(failing)
}

// RejectWalletRequests makes the dev accounts reject the requests as if the
// user declined them.
func (n *Node) RejectWalletRequests(reject bool) {
	n.mtx.Lock()
	n.reject = reject
	n.mtx.Unlock()
}

// SetBalance sets the balance of the address in wei.
func (n *Node) SetBalance(addr common.Address, wei *big.Int) {
	n.mtx.Lock()
	n.balances[addr] = new(big.Int).Set(wei)
	n.mtx.Unlock()
}

// Balance returns the balance of the address in wei.
func (n *Node) Balance(addr common.Address) *big.Int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.balance(addr)
}

func (n *Node) balance(addr common.Address) *big.Int {
	if b, ok := n.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Transaction returns the transaction with the hash, if it was applied.
func (n *Node) Transaction(hash common.Hash) (*types.Transaction, bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	tx, ok := n.txs[hash]
	return tx, ok
}

// AddToken deploys the token at the address.
func (n *Node) AddToken(addr common.Address, token *Token) {
	n.mtx.Lock()
	n.tokens[addr] = token
	n.mtx.Unlock()
}

// TokenBalance returns the balance of the holder in the token deployed at the
// address.
func (n *Node) TokenBalance(token, holder common.Address) *big.Int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if tok, ok := n.tokens[token]; ok {
		return tok.balanceOf(holder)
	}
	return new(big.Int)
}

// TokenAllowance returns the amount the spender may transfer on behalf of the
// owner in the token deployed at the address.
func (n *Node) TokenAllowance(token, owner, spender common.Address) *big.Int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if tok, ok := n.tokens[token]; ok {
		return tok.allowance(owner, spender)
	}
	return new(big.Int)
}

// AddDevAccount adds an unlocked account to the node, funded with the given
// balance.
func (n *Node) AddDevAccount(key *ecdsa.PrivateKey, wei *big.Int) common.Address {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	n.mtx.Lock()
	n.devKeys[addr] = key
	n.devAddrs = append(n.devAddrs, addr)
	n.balances[addr] = new(big.Int).Set(wei)
	n.mtx.Unlock()
	return addr
}

func (n *Node) applyTx(tx *types.Transaction) (common.Hash, error) {
	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(n.ChainID))
	from, err := types.Sender(signer, tx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "invalid sender")
	}
	if tx.To() == nil {
		return common.Hash{}, errors.New("contract creation not supported")
	}

	n.mtx.Lock()
	defer n.mtx.Unlock()
	if tx.Nonce() != n.nonces[from] {
		return common.Hash{}, errors.Errorf("nonce too low: want %d, got %d", n.nonces[from], tx.Nonce())
	}
	cost := new(big.Int).Mul(tx.GasPrice(), new(big.Int).SetUint64(tx.Gas()))
	cost.Add(cost, tx.Value())
	balance := n.balance(from)
	if balance.Cmp(cost) < 0 {
		return common.Hash{}, errors.New("insufficient funds for gas * price + value")
	}
	if tok, ok := n.tokens[*tx.To()]; ok && len(tx.Data()) != 0 {
		if err = tok.exec(from, tx.Data()); err != nil {
			return common.Hash{}, err
		}
	}
	n.balances[from] = balance.Sub(balance, cost)
	n.balances[*tx.To()] = new(big.Int).Add(n.balance(*tx.To()), tx.Value())
	n.nonces[from]++
	n.txs[tx.Hash()] = tx
	return tx.Hash(), nil
}

type walletError struct {
	code int
	msg  string
}

func (e walletError) Error() string  { return e.msg }
func (e walletError) ErrorCode() int { return e.code }

// callArgs holds the arguments of eth_call, eth_estimateGas and
// eth_sendTransaction.
type callArgs struct {
	From     *common.Address `json:"from"`
	To       *common.Address `json:"to"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Data     *hexutil.Bytes  `json:"data"`
	Input    *hexutil.Bytes  `json:"input"`
}

func (a callArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

type ethAPI struct{ n *Node }

func (api *ethAPI) ChainId() hexutil.Uint64 {
	api.n.count("eth_chainId")
	return hexutil.Uint64(api.n.ChainID)
}

func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	api.n.count("eth_blockNumber")
	api.n.mtx.Lock()
	defer api.n.mtx.Unlock()
	return hexutil.Uint64(len(api.n.txs))
}

func (api *ethAPI) GetBalance(addr common.Address, block string) *hexutil.Big {
	api.n.count("eth_getBalance")
	return (*hexutil.Big)(api.n.Balance(addr))
}

func (api *ethAPI) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	api.n.count("eth_getTransactionCount")
	api.n.mtx.Lock()
	defer api.n.mtx.Unlock()
	return hexutil.Uint64(api.n.nonces[addr])
}

func (api *ethAPI) GasPrice() *hexutil.Big {
	api.n.count("eth_gasPrice")
	return (*hexutil.Big)(new(big.Int).Set(GasPrice))
}

func (api *ethAPI) EstimateGas(args callArgs, block *string) hexutil.Uint64 {
	api.n.count("eth_estimateGas")
	if len(args.data()) == 0 {
		return 21000
	}
	return 100000
}

func (api *ethAPI) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	api.n.count("eth_sendRawTransaction")
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	return api.n.applyTx(tx)
}

func (api *ethAPI) Call(args callArgs, block *string) (hexutil.Bytes, error) {
	api.n.count("eth_call")
	if args.To == nil {
		return nil, errors.New("missing to address")
	}
	api.n.mtx.Lock()
	defer api.n.mtx.Unlock()
	token, ok := api.n.tokens[*args.To]
	if !ok {
		return hexutil.Bytes{}, nil
	}
	return token.call(args.data())
}

func (api *ethAPI) Accounts() []common.Address {
	api.n.count("eth_accounts")
	api.n.mtx.Lock()
	defer api.n.mtx.Unlock()
	return append([]common.Address{}, api.n.devAddrs...)
}

func (api *ethAPI) RequestAccounts() ([]common.Address, error) {
	api.n.count("eth_requestAccounts")
	api.n.mtx.Lock()
	defer api.n.mtx.Unlock()
	if api.n.reject {
		return nil, walletError{codeUserRejected, "user rejected the request"}
	}
	return append([]common.Address{}, api.n.devAddrs...), nil
}

func (api *ethAPI) SendTransaction(args callArgs) (common.Hash, error) {
	api.n.count("eth_sendTransaction")
	if args.From == nil || args.To == nil {
		return common.Hash{}, errors.New("from and to are required")
	}
	api.n.mtx.Lock()
	key, ok := api.n.devKeys[*args.From]
	reject := api.n.reject
	nonce := api.n.nonces[*args.From]
	api.n.mtx.Unlock()
	if !ok {
		return common.Hash{}, walletError{codeUnauthorized, "unknown account"}
	}
	if reject {
		return common.Hash{}, walletError{codeUserRejected, "user rejected the transaction"}
	}

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: GasPrice,
		Gas:      21000,
		To:       args.To,
		Value:    value,
		Data:     args.data(),
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(api.n.ChainID)), key)
	if err != nil {
		return common.Hash{}, err
	}
	return api.n.applyTx(signed)
}

type personalAPI struct{ n *Node }

// Sign serves personal_sign.
func (api *personalAPI) Sign(data hexutil.Bytes, addr common.Address, passwd *string) (hexutil.Bytes, error) {
	api.n.count("personal_sign")
	api.n.mtx.Lock()
	key, ok := api.n.devKeys[addr]
	reject := api.n.reject
	api.n.mtx.Unlock()
	if !ok {
		return nil, walletError{codeUnauthorized, "unknown account"}
	}
	if reject {
		return nil, walletError{codeUserRejected, "user rejected the signature"}
	}
	return ethereum.SignText(key, data)
}

type walletAPI struct{ n *Node }

type switchChainArgs struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

// SwitchEthereumChain serves wallet_switchEthereumChain.
func (api *walletAPI) SwitchEthereumChain(args switchChainArgs) (interface{}, error) {
	api.n.count("wallet_switchEthereumChain")
	if uint64(args.ChainID) != api.n.ChainID {
		return nil, walletError{codeUnknownChain, "unrecognized chain id"}
	}
	return nil, nil
}

var erc20 = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ethereum.ERC20ABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

func (tok *Token) call(input []byte) (hexutil.Bytes, error) {
	if len(input) < 4 {
		return hexutil.Bytes{}, nil
	}
	method, err := erc20.MethodById(input[:4])
	if err != nil {
		return nil, errors.New("execution reverted")
	}
	var out []byte
	switch method.Name {
	case "name":
		out, err = method.Outputs.Pack(tok.Name)
	case "symbol":
		out, err = method.Outputs.Pack(tok.Symbol)
	case "decimals":
		out, err = method.Outputs.Pack(tok.Decimals)
	case "totalSupply":
		out, err = method.Outputs.Pack(tok.TotalSupply)
	case "balanceOf":
		args, uerr := method.Inputs.Unpack(input[4:])
		if uerr != nil {
			return nil, uerr
		}
		out, err = method.Outputs.Pack(tok.balanceOf(args[0].(common.Address)))
	case "allowance":
		args, uerr := method.Inputs.Unpack(input[4:])
		if uerr != nil {
			return nil, uerr
		}
		out, err = method.Outputs.Pack(tok.allowance(args[0].(common.Address), args[1].(common.Address)))
	case "transfer", "approve":
		out, err = method.Outputs.Pack(true)
	}
	return out, err
}

func (tok *Token) balanceOf(holder common.Address) *big.Int {
	if bal, ok := tok.Balances[holder]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

func (tok *Token) allowance(owner, spender common.Address) *big.Int {
	if amount, ok := tok.Allowances[owner][spender]; ok {
		return new(big.Int).Set(amount)
	}
	return new(big.Int)
}

// exec applies a transfer or approve call sent by from. Other calls revert.
func (tok *Token) exec(from common.Address, input []byte) error {
	if len(input) < 4 {
		return errors.New("execution reverted")
	}
	method, err := erc20.MethodById(input[:4])
	if err != nil {
		return errors.New("execution reverted")
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return errors.Wrap(err, "execution reverted")
	}
	switch method.Name {
	case "transfer":
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		bal := tok.balanceOf(from)
		if bal.Cmp(amount) < 0 {
			return errors.New("execution reverted: transfer amount exceeds balance")
		}
		if tok.Balances == nil {
			tok.Balances = make(map[common.Address]*big.Int)
		}
		tok.Balances[from] = bal.Sub(bal, amount)
		tok.Balances[to] = new(big.Int).Add(tok.balanceOf(to), amount)
	case "approve":
		spender, amount := args[0].(common.Address), args[1].(*big.Int)
		if tok.Allowances == nil {
			tok.Allowances = make(map[common.Address]map[common.Address]*big.Int)
		}
		if tok.Allowances[from] == nil {
			tok.Allowances[from] = make(map[common.Address]*big.Int)
		}
		tok.Allowances[from][spender] = new(big.Int).Set(amount)
	default:
		return errors.New("execution reverted")
	}
	return nil
}
