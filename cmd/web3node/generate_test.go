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

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
)

func Test_GenerateArtifacts(t *testing.T) {
	tempDir := t.TempDir()
	password := "test-password"

	addr, err := generateArtifacts(tempDir, password, ethereum.WeakScrypt())
	require.NoError(t, err)
	assert.True(t, ethereum.IsValidAddress(addr))

	ksPath := filepath.Join(tempDir, keystoreDir)
	keyFiles, err := os.ReadDir(ksPath)
	require.NoError(t, err)
	require.Len(t, keyFiles, 1)
	assert.True(t, strings.HasPrefix(keyFiles[0].Name(), "UTC"))

	ks, err := ethereum.OpenKeystore(ksPath, ethereum.WeakScrypt())
	require.NoError(t, err)
	_, err = ethereum.FindAccount(ks, addr, password)
	require.NoError(t, err)

	cfg, err := parseArgs(t, "--configfile", filepath.Join(tempDir, nodeConfigFile))
	require.NoError(t, err)
	assert.Equal(t, addr, cfg.KeystoreAcc)
	assert.Equal(t, password, cfg.KeystorePwd)
	assert.Equal(t, keystoreDir, cfg.KeystorePath)
	assert.Equal(t, web3.WalletHostKeystore, cfg.WalletHost)
	assert.Equal(t, string(web3.ProviderEthers), cfg.ProviderType)
	assert.EqualValues(t, 1, cfg.ChainID)

	t.Run("err_exists", func(t *testing.T) {
		_, err := generateArtifacts(tempDir, password, ethereum.WeakScrypt())
		require.Error(t, err)
		t.Log(err)
	})
}
