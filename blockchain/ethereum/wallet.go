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

package ethereum

import (
	"os"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Standard encryption parameters should be uses for real wallets. Using these parameters will
// cause the decryption to use 256MB of RAM and takes approx 1s on a modern processor.
//
// Weak encryption parameters should be used for test wallets. Using these parameters will
// cause the can be decrypted and unlocked faster.
const (
	StandardScryptN = keystore.StandardScryptN
	StandardScryptP = keystore.StandardScryptP
	WeakScryptN     = 2
	WeakScryptP     = 1
)

// ScryptParams defines the parameters for scrypt encryption algorithm, used or storage encryption of keys.
//
// Weak values should be used only for testing purposes (enables faster unlocking). Use standard values otherwise.
type ScryptParams struct {
	N, P int
}

// StandardScrypt returns the scrypt parameters for real wallets.
func StandardScrypt() ScryptParams {
	return ScryptParams{N: StandardScryptN, P: StandardScryptP}
}

// WeakScrypt returns the scrypt parameters for test wallets.
func WeakScrypt() ScryptParams {
	return ScryptParams{N: WeakScryptN, P: WeakScryptP}
}

// OpenKeystore opens the keystore at the given path, which should exist.
func OpenKeystore(keystorePath string, params ScryptParams) (*keystore.KeyStore, error) {
	if _, err := os.Stat(keystorePath); err != nil {
		return nil, errors.Wrap(err, "opening keystore")
	}
	return keystore.NewKeyStore(keystorePath, params.N, params.P), nil
}

// FindAccount returns the account in the keystore for the given address and
// checks that it can be unlocked with the password.
func FindAccount(ks *keystore.KeyStore, address, password string) (accounts.Account, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return accounts.Account{}, errors.WithMessage(err, "parsing account address")
	}
	acc, err := ks.Find(accounts.Account{Address: addr})
	if err != nil {
		return accounts.Account{}, errors.Wrap(err, "finding account "+addr.Hex())
	}
	if err = ks.Unlock(acc, password); err != nil {
		return accounts.Account{}, errors.Wrap(err, "unlocking account "+addr.Hex())
	}
	return acc, errors.Wrap(ks.Lock(acc.Address), "locking account")
}

// NewAccount creates a new account protected by the password in the keystore
// and returns its address.
func NewAccount(ks *keystore.KeyStore, password string) (string, error) {
	acc, err := ks.NewAccount(password)
	if err != nil {
		return "", errors.Wrap(err, "creating account")
	}
	return acc.Address.Hex(), nil
}

// GenerateWallet generates a random key and returns the checksummed address
// and the hex encoded private key. It is intended for test and demo setups.
func GenerateWallet() (address, privateKey string, err error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", errors.Wrap(err, "generating key")
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(crypto.FromECDSA(key)), nil
}
