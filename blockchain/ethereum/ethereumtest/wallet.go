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
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
)

// Password is used for all the accounts created by NewWalletSetup.
const Password = "test-password"

// WalletSetup holds a keystore with any number of keys for testing. To enable
// faster unlocking of the keys, it uses weak encryption parameters for the
// storage encryption of the keys.
type WalletSetup struct {
	KeystorePath string
	Keystore     *keystore.KeyStore
	Accs         []accounts.Account
	Keys         []*ecdsa.PrivateKey
}

// NewWalletSetup initializes a keystore with n accounts in a temporary
// directory, that is removed after the test.
func NewWalletSetup(t *testing.T, n uint) *WalletSetup {
	t.Helper()

	ksPath := t.TempDir()
	ks, err := ethereum.OpenKeystore(ksPath, ethereum.WeakScrypt())
	require.NoError(t, err)

	ws := &WalletSetup{KeystorePath: ksPath, Keystore: ks}
	for idx := uint(0); idx < n; idx++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		acc, err := ks.ImportECDSA(key, Password)
		require.NoErrorf(t, err, "importing key %d", idx)
		ws.Accs = append(ws.Accs, acc)
		ws.Keys = append(ws.Keys, key)
	}
	return ws
}

// NewRandomAddress generates a random address. It generates the address only
// from a fresh key, that is discarded.
func NewRandomAddress(t *testing.T) common.Address {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey)
}
