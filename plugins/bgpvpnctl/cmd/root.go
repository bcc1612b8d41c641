// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd implements the command tree of the bgpvpnctl tool.
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpnctl/client"
)

var (
	serverURL string
	fileName  string
)

// Execute runs the bgpvpnctl command tree.
func Execute() {
	var rootCmd = &cobra.Command{Use: "bgpvpnctl"}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://127.0.0.1:9191", "base URL of the BGP VPN API server")

	rootCmd.AddCommand(vpnCmd())
	rootCmd.AddCommand(netAssocCmd())
	rootCmd.AddCommand(routerAssocCmd())
	rootCmd.AddCommand(networkCmd())
	rootCmd.AddCommand(routerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// apiClient returns the client configured by the --server flag.
func apiClient() *client.Client {
	return client.NewClient(serverURL)
}

// exitOnError prints the error and terminates with a non-zero exit code.
func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// readResourceFile loads a YAML or JSON resource definition into out.
func readResourceFile(out interface{}) error {
	data, err := ioutil.ReadFile(fileName)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
