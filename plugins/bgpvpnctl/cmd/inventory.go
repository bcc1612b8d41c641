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

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
)

func networkCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "network",
		Short: "Manage the network inventory",
	}

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List networks",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			networks, err := apiClient().ListNetworks()
			exitOnError(err)
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tNODE\tSUBNETS\tVXLAN-VNI")
			for _, n := range networks {
				var subnets string
				for i, subnet := range n.Subnets {
					if i > 0 {
						subnets += ","
					}
					subnets += subnet.Prefix
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", n.Id, n.Name, n.Node, subnets, n.VxlanVni)
			}
			w.Flush()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "get network-id",
		Short: "Show one network",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			n, err := apiClient().GetNetwork(args[0])
			exitOnError(err)
			printYAML(n)
		},
	})

	put := &cobra.Command{
		Use:   "put network-id",
		Short: "Create or update a network from a file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			n := &network.Network{}
			exitOnError(readResourceFile(n))
			n.Id = args[0]
			stored, err := apiClient().PutNetwork(n)
			exitOnError(err)
			printYAML(stored)
		},
	}
	put.Flags().StringVarP(&fileName, "file", "f", "", "YAML/JSON file with the network definition")
	put.MarkFlagRequired("file")
	root.AddCommand(put)

	root.AddCommand(&cobra.Command{
		Use:   "delete network-id",
		Short: "Delete a network",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(apiClient().DeleteNetwork(args[0]))
			fmt.Println("Deleted network", args[0])
		},
	})

	return root
}

func routerCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "router",
		Short: "Manage the router inventory",
	}

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List routers",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			routers, err := apiClient().ListRouters()
			exitOnError(err)
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tNODE\tINTERFACES\tSTATIC-ROUTES")
			for _, r := range routers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
					r.Id, r.Name, r.Node, len(r.Interfaces), len(r.StaticRoutes))
			}
			w.Flush()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "get router-id",
		Short: "Show one router",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r, err := apiClient().GetRouter(args[0])
			exitOnError(err)
			printYAML(r)
		},
	})

	put := &cobra.Command{
		Use:   "put router-id",
		Short: "Create or update a router from a file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r := &router.Router{}
			exitOnError(readResourceFile(r))
			r.Id = args[0]
			stored, err := apiClient().PutRouter(r)
			exitOnError(err)
			printYAML(stored)
		},
	}
	put.Flags().StringVarP(&fileName, "file", "f", "", "YAML/JSON file with the router definition")
	put.MarkFlagRequired("file")
	root.AddCommand(put)

	root.AddCommand(&cobra.Command{
		Use:   "delete router-id",
		Short: "Delete a router",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(apiClient().DeleteRouter(args[0]))
			fmt.Println("Deleted router", args[0])
		},
	})

	return root
}

// printYAML prints a single resource in the YAML format.
func printYAML(resource interface{}) {
	data, err := yaml.Marshal(resource)
	exitOnError(err)
	fmt.Print(string(data))
}
