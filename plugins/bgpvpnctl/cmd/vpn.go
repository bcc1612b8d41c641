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
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bestjie/networking-bgpvpn/pkg/rtrd"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
)

func vpnCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vpn",
		Short: "Manage BGP VPN instances",
	}

	var typeFilter, tenantFilter, networkFilter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List VPNs",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			query := url.Values{}
			if typeFilter != "" {
				query.Set("type", typeFilter)
			}
			if tenantFilter != "" {
				query.Set("tenant_id", tenantFilter)
			}
			if networkFilter != "" {
				query.Set("network_id", networkFilter)
			}
			vpns, err := apiClient().ListVPNs(query)
			exitOnError(err)
			printVPNs(vpns)
		},
	}
	list.Flags().StringVar(&typeFilter, "type", "", "filter by VPN type (l2 / l3)")
	list.Flags().StringVar(&tenantFilter, "tenant", "", "filter by tenant ID")
	list.Flags().StringVar(&networkFilter, "network", "", "filter by associated network ID")
	root.AddCommand(list)

	root.AddCommand(&cobra.Command{
		Use:   "get vpn-id",
		Short: "Show one VPN",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := apiClient().GetVPN(args[0])
			exitOnError(err)
			printYAML(v)
		},
	})

	var name, vpnType, tenant string
	var routeTargets, importTargets, exportTargets, rds []string
	var vni uint32
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a VPN",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			v := &vpn.VPN{}
			if fileName != "" {
				exitOnError(readResourceFile(v))
			} else {
				v.Name = name
				v.Type = vpnType
				v.TenantId = tenant
				v.RouteTargets = routeTargets
				v.ImportTargets = importTargets
				v.ExportTargets = exportTargets
				v.RouteDistinguishers = rds
				v.Vni = vni
			}
			created, err := apiClient().CreateVPN(v)
			exitOnError(err)
			printYAML(created)
		},
	}
	create.Flags().StringVarP(&fileName, "file", "f", "", "YAML/JSON file with the VPN definition")
	create.Flags().StringVar(&name, "name", "", "VPN name")
	create.Flags().StringVar(&vpnType, "type", vpn.TypeL3, "VPN type (l2 / l3)")
	create.Flags().StringVar(&tenant, "tenant", "", "tenant ID")
	create.Flags().StringSliceVar(&routeTargets, "rt", nil, "route targets (import+export)")
	create.Flags().StringSliceVar(&importTargets, "import-rt", nil, "import-only route targets")
	create.Flags().StringSliceVar(&exportTargets, "export-rt", nil, "export-only route targets")
	create.Flags().StringSliceVar(&rds, "rd", nil, "route distinguishers")
	create.Flags().Uint32Var(&vni, "vni", 0, "VXLAN VNI (l2 VPNs)")
	root.AddCommand(create)

	update := &cobra.Command{
		Use:   "update vpn-id",
		Short: "Update a VPN from a file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v := &vpn.VPN{}
			exitOnError(readResourceFile(v))
			v.Id = args[0]
			updated, err := apiClient().UpdateVPN(v)
			exitOnError(err)
			printYAML(updated)
		},
	}
	update.Flags().StringVarP(&fileName, "file", "f", "", "YAML/JSON file with the VPN definition")
	update.MarkFlagRequired("file")
	root.AddCommand(update)

	root.AddCommand(&cobra.Command{
		Use:   "delete vpn-id",
		Short: "Delete a VPN",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(apiClient().DeleteVPN(args[0]))
			fmt.Println("Deleted VPN", args[0])
		},
	})

	return root
}

func printVPNs(vpns []*vpn.VPN) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tROUTE-TARGETS\tRDS\tVNI")
	for _, v := range vpns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			v.Id, v.Name, v.Type,
			rtrd.JoinList(v.RouteTargets), rtrd.JoinList(v.RouteDistinguishers), v.Vni)
	}
	w.Flush()
}
