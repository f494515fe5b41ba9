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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hyperledger-labs/web3-node"
	"github.com/hyperledger-labs/web3-node/log"
	"github.com/hyperledger-labs/web3-node/node"
)

const (
	// flag names for run command.
	loglevelF        = "loglevel"
	logfileF         = "logfile"
	logformatF       = "logformat"
	listenF          = "listen"
	corsoriginsF     = "corsorigins"
	providerF        = "provider"
	chainF           = "chain"
	apikeyF          = "apikey"
	refreshdelayF    = "refreshdelay"
	chainsfileF      = "chainsfile"
	poolsfileF       = "poolsfile"
	yieldsourceF     = "yieldsource"
	wallethostF      = "wallethost"
	walletrpcF       = "walletrpc"
	keystoreF        = "keystore"
	passwordF        = "password"
	accountF         = "account"
	autoapproveF     = "autoapprove"
	tenderlyUserF    = "tenderlyuser"
	tenderlyProjectF = "tenderlyproject"
	tenderlyKeyF     = "tenderlykey"
	configfileF      = "configfile" // can only be specified in flag, not via config file.

	// default values for flags in run command.
	defaultConfigFile = "node.yaml"
)

var (
	// Viper instance for parsing node configuration file. Each flag in the nodeCfgFlags list (that are defined
	// on the run command) will also be attached to the viper instance, so that the values from flags (when
	// specified), override the values defined in the configuration files.
	nodeCfgViper *viper.Viper

	// Flags corresponding to node configuration parameters. Each of this flag can individually override the
	// default values in config file. Also, the node configuration can be fully specified by using all of these
	// flags, in which case no config file is needed and configFile flag can be unspecified.
	nodeCfgFlags = []string{
		loglevelF,
		logfileF,
		logformatF,
		listenF,
		corsoriginsF,
		providerF,
		chainF,
		apikeyF,
		refreshdelayF,
		chainsfileF,
		poolsfileF,
		yieldsourceF,
		wallethostF,
		walletrpcF,
		keystoreF,
		passwordF,
		accountF,
		autoapproveF,
		tenderlyUserF,
		tenderlyProjectF,
		tenderlyKeyF,
	}

	// Keys in the config file for the flags whose name differs from the
	// field in the node config. For others, the key is the flag name.
	nodeCfgKeys = map[string]string{
		listenF:          "listenaddr",
		providerF:        "providertype",
		chainF:           "chainid",
		yieldsourceF:     "liveyieldsource",
		walletrpcF:       "walletrpcurl",
		keystoreF:        "keystorepath",
		passwordF:        "keystorepwd",
		accountF:         "keystoreacc",
		tenderlyUserF:    "simulationuser",
		tenderlyProjectF: "simulationproject",
		tenderlyKeyF:     "simulationkey",
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
	defineFlags(runCmd.Flags())

	// Bind the configuration flags to viper instance,
	// values in flags (when specified), takes precedence over those in config file.
	var err error
	if nodeCfgViper, err = newNodeCfgViper(runCmd.Flags()); err != nil {
		panic(err)
	}
}

func defineFlags(fs *pflag.FlagSet) {
	fs.String(configfileF, defaultConfigFile, "node config file")

	// All these flags should have zero values for defaults, as their only purpose is allow the user to
	// explicitly specify the configuration.
	fs.String(loglevelF, "", "Log level. Supported levels: debug, info, error")
	fs.String(logfileF, "", "Log file path. Use empty string for stdout")
	fs.String(logformatF, "", "Log format. Supported formats: text, json")
	fs.String(listenF, "", "Address for the REST API to listen on, e.g. :8080")
	fs.StringSlice(corsoriginsF, nil, "Origins allowed to call the REST API from browsers. Leave unset to allow all")
	fs.String(providerF, "", "Provider type for the session. Supported types: ethers, web3, viem")
	fs.Uint64(chainF, 0, "Chain ID for the session")
	fs.String(apikeyF, "", "API key substituted into the RPC endpoint templates of the chains")
	fs.Duration(refreshdelayF, time.Duration(0), "Delay before refreshing the balance after a transaction")
	fs.String(chainsfileF, "", "YAML file with additional chains. Use empty string for the built-in chains only")
	fs.String(poolsfileF, "", "YAML file with yield pools. Use empty string for the built-in pools")
	fs.String(yieldsourceF, "", "URL for live yield pool data. Use empty string to disable")
	fs.String(wallethostF, "", "Wallet host. Supported hosts: none, keystore, rpc, bridge")
	fs.String(walletrpcF, "", "URL of the wallet rpc endpoint, for the rpc wallet host")
	fs.String(keystoreF, "", "Keystore directory, for the keystore wallet host")
	fs.String(passwordF, "", "Password of the keystore account")
	fs.String(accountF, "", "Address of the keystore account as hex string with 0x prefix")
	fs.Bool(autoapproveF, false, "Approve requests to the keystore wallet without prompting")
	fs.String(tenderlyUserF, "", "Tenderly account for transaction simulation")
	fs.String(tenderlyProjectF, "", "Tenderly project for transaction simulation")
	fs.String(tenderlyKeyF, "", "Tenderly access key for transaction simulation")
}

// newNodeCfgViper returns a viper instance with each of the node config flags
// in the flag set bound to its key.
func newNodeCfgViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for _, flag := range nodeCfgFlags {
		key, ok := nodeCfgKeys[flag]
		if !ok {
			key = flag
		}
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, errors.WithMessage(err, "binding flag "+flag)
		}
	}
	return v, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the web3node",
	Long: `Start the web3 node. The node serves the session and the supporting services via a REST API.

Configuration can be specified in the config file or via flags. Values in the
flags override that in the config file.

If no flags are specified, default path for config file is used. However, if
all the config flags are specified, config file is ignored.`,
	Run: run,
}

func run(cmd *cobra.Command, _ []string) {
	nodeCfg, err := parseNodeConfig(cmd.LocalNonPersistentFlags(), nodeCfgViper)
	if err != nil {
		fmt.Printf("Error parsing node config: %v\n", err)
		os.Exit(1)
	}
	if err = log.InitLogger(nodeCfg.LogLevel, nodeCfg.LogFile, nodeCfg.LogFormat); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	n, err := node.New(nodeCfg)
	if err != nil {
		fmt.Printf("Error initializing node: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		n.Close()
	}()

	fmt.Printf("Running web3 node with the below config:\n%s.\n\nServing REST API at %s\n\n",
		prettify(nodeCfg), nodeCfg.ListenAddr)
	if err := n.ListenAndServe(); err != nil {
		fmt.Printf("Server returned with error: %v\n", err)
		n.Close()
		os.Exit(1)
	}
}

func parseNodeConfig(fs *pflag.FlagSet, v *viper.Viper) (web3.NodeConfig, error) {
	// Ignore config file, if all config flags are specified.
	if !areAllFlagsSpecified(fs, nodeCfgFlags...) {
		nodeCfgFile, err := fs.GetString(configfileF)
		if err != nil {
			panic("unknown flag configfile\n")
		}

		// Read config from file.
		v.SetConfigFile(filepath.Clean(nodeCfgFile))
		v.SetConfigType("yaml")
		if err = v.ReadInConfig(); err != nil {
			return web3.NodeConfig{}, errors.Wrap(err, "reading node config file")
		}
		fmt.Printf("Using node config file - %s\n", nodeCfgFile)
	}

	// Copy the configuration from viper to struct.
	var nodeCfg web3.NodeConfig
	if err := v.Unmarshal(&nodeCfg); err != nil {
		return web3.NodeConfig{}, errors.Wrap(err, "unmarshaling node config from viper instance")
	}
	return nodeCfg, nil
}
