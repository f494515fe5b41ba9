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
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/blockchain/ethereum"
	"github.com/hyperledger-labs/web3-node/session"
)

const (
	nodeConfigFile = "node.yaml"
	keystoreDir    = "keystore"

	passwordGenF = "password"

	defaultListenAddr = ":8080"

	dirFileMode  = os.FileMode(0o750) // file mode for creating the keystore directory.
	fileFileMode = os.FileMode(0o600) // file mode for the node config file, as it contains the password.
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate demo artifacts",
	Long: `
Generate demo artifacts for the node in the current directory.

- keystore directory with a new account protected by the password.
- node.yaml file that uses the keystore wallet host with this account.

Note:
=====
The account is not funded. Fund it on the chain configured in node.yaml
before sending transactions. Use the keystore only for development.
`,

	Run: generate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String(passwordGenF, "", "password for the generated keystore account.")
}

func generate(cmd *cobra.Command, _ []string) {
	password, err := cmd.Flags().GetString(passwordGenF)
	if err != nil {
		panic("unknown flag " + passwordGenF + "\n")
	}
	addr, err := generateArtifacts(".", password, ethereum.StandardScrypt())
	if err != nil {
		fmt.Printf("Error generating node configuration artifacts: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated account %s in %s directory and node configuration file: %s\n",
		addr, keystoreDir, nodeConfigFile)
}

// generateArtifacts creates a keystore directory with a new account and a
// node config file using it in the given directory. It returns the address of
// the account.
func generateArtifacts(dir, password string, params ethereum.ScryptParams) (string, error) {
	ksPath := filepath.Join(dir, keystoreDir)
	cfgPath := filepath.Join(dir, nodeConfigFile)
	for _, path := range []string{ksPath, cfgPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			return "", errors.New("file exists - " + path)
		}
	}

	if err := os.Mkdir(ksPath, dirFileMode); err != nil {
		return "", errors.Wrap(err, "creating dir - "+ksPath)
	}
	ks, err := ethereum.OpenKeystore(ksPath, params)
	if err != nil {
		return "", err
	}
	addr, err := ethereum.NewAccount(ks, password)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(nodeConfigValues(addr, password))
	if err != nil {
		return "", errors.Wrap(err, "encoding node config")
	}
	return addr, errors.Wrap(os.WriteFile(cfgPath, data, fileFileMode), "writing node config")
}

// nodeConfigValues returns the values of the generated node config file,
// keyed as in the config file.
func nodeConfigValues(addr, password string) map[string]interface{} {
	return map[string]interface{}{
		"loglevel":        "info",
		"logfile":         "",
		"logformat":       "text",
		"listenaddr":      defaultListenAddr,
		"providertype":    string(web3.ProviderEthers),
		"chainid":         uint64(1),
		"apikey":          "",
		"refreshdelay":    session.DefaultRefreshDelay.String(),
		"chainsfile":      "",
		"poolsfile":       "",
		"liveyieldsource": "",
		"wallethost":      web3.WalletHostKeystore,
		"keystorepath":    keystoreDir,
		"keystorepwd":     password,
		"keystoreacc":     addr,
		"autoapprove":     false,
	}
}
