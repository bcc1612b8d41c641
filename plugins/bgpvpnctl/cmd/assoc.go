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

	"github.com/spf13/cobra"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
)

func netAssocCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "netassoc",
		Short: "Manage network associations of a VPN",
	}

	root.AddCommand(&cobra.Command{
		Use:   "list vpn-id",
		Short: "List network associations of a VPN",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			assocs, err := apiClient().ListNetworkAssociations(args[0])
			exitOnError(err)
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVPN\tNETWORK")
			for _, assoc := range assocs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", assoc.Id, assoc.VpnId, assoc.NetworkId)
			}
			w.Flush()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "create vpn-id network-id",
		Short: "Associate a network with a VPN",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			created, err := apiClient().CreateNetworkAssociation(args[0], args[1])
			exitOnError(err)
			printYAML(created)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "delete vpn-id assoc-id",
		Short: "Delete a network association",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(apiClient().DeleteNetworkAssociation(args[0], args[1]))
			fmt.Println("Deleted network association", args[1])
		},
	})

	return root
}

func routerAssocCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "routerassoc",
		Short: "Manage router associations of a VPN",
	}

	root.AddCommand(&cobra.Command{
		Use:   "list vpn-id",
		Short: "List router associations of a VPN",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			assocs, err := apiClient().ListRouterAssociations(args[0])
			exitOnError(err)
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVPN\tROUTER\tADVERTISE-EXTRA-ROUTES")
			for _, assoc := range assocs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n",
					assoc.Id, assoc.VpnId, assoc.RouterId, assoc.AdvertiseExtraRoutes)
			}
			w.Flush()
		},
	})

	var advertiseExtraRoutes bool
	create := &cobra.Command{
		Use:   "create vpn-id router-id",
		Short: "Associate a router with a VPN",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			created, err := apiClient().CreateRouterAssociation(args[0], args[1], advertiseExtraRoutes)
			exitOnError(err)
			printYAML(created)
		},
	}
	create.Flags().BoolVar(&advertiseExtraRoutes, "advertise-extra-routes", true,
		"advertise the static routes of the router into the VPN")
	root.AddCommand(create)

	update := &cobra.Command{
		Use:   "update vpn-id assoc-id",
		Short: "Toggle advertisement of the extra routes",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			updated, err := apiClient().UpdateRouterAssociation(args[0], &routerassoc.RouterAssociation{
				Id:                   args[1],
				AdvertiseExtraRoutes: advertiseExtraRoutes,
			})
			exitOnError(err)
			printYAML(updated)
		},
	}
	update.Flags().BoolVar(&advertiseExtraRoutes, "advertise-extra-routes", true,
		"advertise the static routes of the router into the VPN")
	root.AddCommand(update)

	root.AddCommand(&cobra.Command{
		Use:   "delete vpn-id assoc-id",
		Short: "Delete a router association",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(apiClient().DeleteRouterAssociation(args[0], args[1]))
			fmt.Println("Deleted router association", args[1])
		},
	})

	return root
}
