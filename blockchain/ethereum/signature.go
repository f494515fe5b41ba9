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
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SignatureLength is the length of an ethereum signature in [R | S | V]
// format.
const SignatureLength = crypto.SignatureLength

// SignText signs the message with the key as per EIP-191. The
// message is prefixed with "\x19Ethereum Signed Message:\n" and its length
// before hashing.
//
// Signature will be in [R | S | V] format with last byte V = 27/28.
func SignText(key *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), key)
	if err != nil {
		return nil, errors.Wrap(err, "signing message")
	}
	sig[crypto.RecoveryIDOffset] += 27 // Transform V from 0/1 to 27/28 according to the yellow paper.
	return sig, nil
}

// RecoverSigner returns the address of the account that signed the message
// with the ethereum signed message prefix. V can be 0/1 or 27/28.
func RecoverSigner(message, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, errors.Errorf("signature length should be %d, got %d", SignatureLength, len(sig))
	}
	sigCopy := make([]byte, SignatureLength)
	copy(sigCopy, sig)
	if sigCopy[crypto.RecoveryIDOffset] >= 27 {
		sigCopy[crypto.RecoveryIDOffset] -= 27
	}
	if sigCopy[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, errors.New("invalid recovery id in signature")
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash(message), sigCopy)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "recovering public key")
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// VerifySignature reports whether the hex encoded signature over the message
// was made by the given address. It returns false for any malformed input or
// failure in recovering the signer.
func VerifySignature(message, signature, address string) (valid bool) {
	defer func() {
		if recover() != nil {
			valid = false
		}
	}()

	addr, err := ParseAddress(address)
	if err != nil {
		return false
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false
	}
	signer, err := RecoverSigner([]byte(message), sig)
	if err != nil {
		return false
	}
	return signer == addr
}
