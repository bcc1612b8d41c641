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

// Package vpp implements the renderer translating VPN attachments into
// VPP and Linux dataplane configuration applied through the vpp-agent
// KVScheduler: VRF tables, loopbacks and inter-VRF routes for l3 VPNs,
// bridge domains with VXLAN tunnels and BVIs for l2 VPNs, plus mirrored
// host routes for router attachments.
package vpp

import (
	"fmt"
	"net"
	"sort"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/ligato/cn-infra/logging"
	linux_l3 "github.com/ligato/vpp-agent/api/models/linux/l3"
	vpp_interfaces "github.com/ligato/vpp-agent/api/models/vpp/interfaces"
	vpp_l2 "github.com/ligato/vpp-agent/api/models/vpp/l2"
	vpp_l3 "github.com/ligato/vpp-agent/api/models/vpp/l3"
	"github.com/ligato/vpp-agent/pkg/models"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/config"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer"
	controller "github.com/bestjie/networking-bgpvpn/plugins/controller/api"
	"github.com/bestjie/networking-bgpvpn/plugins/stats"
)

const (
	// name prefixes of the rendered objects
	vrfLoopNamePrefix = "bgpvpn-loop-"
	bviNamePrefix     = "bgpvpnBVI-"
	bdNamePrefix      = "bgpvpnBD-"

	// split-horizon group of VXLAN interfaces in l2 VPN bridge domains
	vxlanSplitHorizonGroup = 1

	anyIPv4Addr = "0.0.0.0"
)

// Renderer renders VPN attachments into the VPP/Linux configuration.
//
// The VRF table, the VRF loopback, the bridge domain and the BVI are shared
// by all attachments of the same VPN. The renderer therefore keeps all local
// attachments and re-renders the merged per-VPN configuration whenever one
// of them changes, so that shared objects survive removal of a single
// attachment and carry the addresses of every remaining one.
type Renderer struct {
	Deps

	// local attachments by attachment key
	attachments map[string]*renderer.VPNAttachment
}

// Deps lists dependencies of the VPP renderer.
type Deps struct {
	Log    logging.Logger
	Config *config.Config

	UpdateTxnFactory func(change string) controller.UpdateOperations
	ResyncTxnFactory func() controller.ResyncOperations

	Stats stats.API
}

// Init initializes the renderer.
func (rndr *Renderer) Init() error {
	rndr.attachments = make(map[string]*renderer.VPNAttachment)
	return nil
}

// AfterInit is NOOP.
func (rndr *Renderer) AfterInit() error {
	return nil
}

// AddAttachment renders a newly added VPN attachment.
func (rndr *Renderer) AddAttachment(attachment *renderer.VPNAttachment) error {
	txn := rndr.UpdateTxnFactory(fmt.Sprintf("add attachment %s", attachment.Key()))

	prevConfig := rndr.vpnConfig(attachment.VpnId)
	rndr.attachments[attachment.Key()] = attachment
	applyDiff(txn, prevConfig, rndr.vpnConfig(attachment.VpnId))

	rndr.pushStats()
	return nil
}

// UpdateAttachment re-renders a changed VPN attachment.
func (rndr *Renderer) UpdateAttachment(oldAttachment, newAttachment *renderer.VPNAttachment) error {
	txn := rndr.UpdateTxnFactory(fmt.Sprintf("update attachment %s", newAttachment.Key()))

	prevConfig := rndr.vpnConfig(oldAttachment.VpnId)
	delete(rndr.attachments, oldAttachment.Key())
	rndr.attachments[newAttachment.Key()] = newAttachment
	applyDiff(txn, prevConfig, rndr.vpnConfig(oldAttachment.VpnId))
	if newAttachment.VpnId != oldAttachment.VpnId {
		addConfig(txn, rndr.vpnConfig(newAttachment.VpnId))
	}

	rndr.pushStats()
	return nil
}

// DeleteAttachment un-renders a removed VPN attachment. Objects shared with
// other attachments of the same VPN are kept and re-rendered without the
// removed one.
func (rndr *Renderer) DeleteAttachment(attachment *renderer.VPNAttachment) error {
	txn := rndr.UpdateTxnFactory(fmt.Sprintf("delete attachment %s", attachment.Key()))

	prevConfig := rndr.vpnConfig(attachment.VpnId)
	delete(rndr.attachments, attachment.Key())
	applyDiff(txn, prevConfig, rndr.vpnConfig(attachment.VpnId))

	rndr.pushStats()
	return nil
}

// Resync renders the full configuration for the given snapshot of attachments.
func (rndr *Renderer) Resync(resyncEv *renderer.ResyncEventData) error {
	txn := rndr.ResyncTxnFactory()
	rndr.attachments = make(map[string]*renderer.VPNAttachment)

	vpns := make(map[string]struct{})
	for _, attachment := range resyncEv.Attachments {
		rndr.attachments[attachment.Key()] = attachment
		vpns[attachment.VpnId] = struct{}{}
	}
	for vpnId := range vpns {
		addConfig(txn, rndr.vpnConfig(vpnId))
	}

	rndr.pushStats()
	return nil
}

// Close is NOOP.
func (rndr *Renderer) Close() error {
	return nil
}

// addConfig adds all the key-value pairs into the transaction.
func addConfig(txn controller.ResyncOperations, config controller.KeyValuePairs) {
	for key, value := range config {
		txn.Put(key, value)
	}
}

// applyDiff removes keys no longer present and (re-)puts the new config.
func applyDiff(txn controller.UpdateOperations, prevConfig, newConfig controller.KeyValuePairs) {
	for key := range prevConfig {
		if _, kept := newConfig[key]; !kept {
			txn.Delete(key)
		}
	}
	addConfig(txn, newConfig)
}

// pushStats exports the current attachment counts.
func (rndr *Renderer) pushStats() {
	if rndr.Stats == nil {
		return
	}
	counts := map[string]int{vpn.TypeL2: 0, vpn.TypeL3: 0}
	for _, attachment := range rndr.attachments {
		counts[attachment.VpnType]++
	}
	for vpnType, count := range counts {
		rndr.Stats.PushAttachmentCount(vpnType, count)
	}
}

// vpnAttachments returns the local attachments of the VPN, ordered by the
// attachment key for deterministic rendering.
func (rndr *Renderer) vpnAttachments(vpnId string) (attachments []*renderer.VPNAttachment) {
	for _, attachment := range rndr.attachments {
		if attachment.VpnId == vpnId {
			attachments = append(attachments, attachment)
		}
	}
	sort.Slice(attachments, func(i, j int) bool {
		return attachments[i].Key() < attachments[j].Key()
	})
	return attachments
}

// vpnConfig returns the merged dataplane configuration of all local
// attachments of the VPN.
func (rndr *Renderer) vpnConfig(vpnId string) controller.KeyValuePairs {
	attachments := rndr.vpnAttachments(vpnId)
	if len(attachments) == 0 {
		return nil
	}
	if attachments[0].VpnType == vpn.TypeL2 {
		return rndr.l2VpnConfig(attachments)
	}
	return rndr.l3VpnConfig(attachments)
}

/********************************** L3 VPN ***********************************/

// l3VpnConfig renders the VRF table, the VRF loopback carrying the gateway
// addresses of all attached subnets, the inter-VRF routes towards the tenant
// networks and the extra routes of the attached routers.
func (rndr *Renderer) l3VpnConfig(attachments []*renderer.VPNAttachment) controller.KeyValuePairs {
	cfg := make(controller.KeyValuePairs)
	shared := attachments[0]

	vrf := &vpp_l3.VrfTable{
		Id:       shared.VrfId,
		Protocol: vpp_l3.VrfTable_IPV4,
		Label:    "bgpvpn-" + shared.VpnId,
	}
	cfg[vpp_l3.VrfTableKey(vrf.Id, vrf.Protocol)] = vrf

	loop := &vpp_interfaces.Interface{
		Name:    vrfLoopNamePrefix + shared.VpnId,
		Type:    vpp_interfaces.Interface_SOFTWARE_LOOPBACK,
		Enabled: true,
		Vrf:     shared.VrfId,
	}

	for _, attachment := range attachments {
		// local subnets reachable from the VPN VRF via the tenant VRF
		for _, subnet := range attachment.Subnets {
			addr, err := subnetGatewayCIDR(subnet)
			if err != nil {
				rndr.Log.Warnf("Skipping malformed subnet %s: %v", subnet.Prefix, err)
				continue
			}
			loop.IpAddresses = appendIfMissing(loop.IpAddresses, addr)

			route := &vpp_l3.Route{
				Type:        vpp_l3.Route_INTER_VRF,
				VrfId:       attachment.VrfId,
				DstNetwork:  subnet.Prefix,
				ViaVrfId:    0,
				NextHopAddr: anyIPv4Addr,
			}
			cfg[models.Key(route)] = route
		}

		// extra routes of the attached router
		for _, staticRoute := range attachment.StaticRoutes {
			route := &vpp_l3.Route{
				VrfId:       attachment.VrfId,
				DstNetwork:  staticRoute.DstNetwork,
				NextHopAddr: staticRoute.NextHop,
			}
			cfg[models.Key(route)] = route

			// mirror of the route in the host network stack
			if attachment.Kind == renderer.AttachmentKindRouter && rndr.Config.HostInterconnect != "" {
				linuxRoute := &linux_l3.Route{
					OutgoingInterface: rndr.Config.HostInterconnect,
					Scope:             linux_l3.Route_GLOBAL,
					DstNetwork:        staticRoute.DstNetwork,
					GwAddr:            staticRoute.NextHop,
				}
				cfg[linux_l3.RouteKey(linuxRoute.DstNetwork, linuxRoute.OutgoingInterface)] = linuxRoute
			}
		}
	}
	cfg[vpp_interfaces.InterfaceKey(loop.Name)] = loop

	return cfg
}

/********************************** L2 VPN ***********************************/

// l2VpnConfig renders the bridge domain extended with VXLAN tunnels towards
// the configured peers, and the BVI loopback carrying the gateway addresses
// of all attached subnets.
func (rndr *Renderer) l2VpnConfig(attachments []*renderer.VPNAttachment) controller.KeyValuePairs {
	cfg := make(controller.KeyValuePairs)
	shared := attachments[0]

	bviName := bviNamePrefix + shared.VpnId
	bd := &vpp_l2.BridgeDomain{
		Name:                bdNamePrefix + shared.VpnId,
		Learn:               true,
		Forward:             true,
		Flood:               true,
		UnknownUnicastFlood: true,
		Interfaces: []*vpp_l2.BridgeDomain_Interface{
			{
				Name:                    bviName,
				BridgedVirtualInterface: true,
				SplitHorizonGroup:       vxlanSplitHorizonGroup,
			},
		},
	}

	for i, peer := range rndr.Config.VxlanPeers {
		vxlan := &vpp_interfaces.Interface{
			Name: fmt.Sprintf("vxlan-%s-%d", shared.VpnId, i),
			Type: vpp_interfaces.Interface_VXLAN_TUNNEL,
			Link: &vpp_interfaces.Interface_Vxlan{
				Vxlan: &vpp_interfaces.VxlanLink{
					SrcAddress: rndr.Config.NodeIP,
					DstAddress: peer,
					Vni:        shared.Vni,
				},
			},
			Enabled: true,
		}
		cfg[vpp_interfaces.InterfaceKey(vxlan.Name)] = vxlan
		bd.Interfaces = append(bd.Interfaces, &vpp_l2.BridgeDomain_Interface{
			Name:              vxlan.Name,
			SplitHorizonGroup: vxlanSplitHorizonGroup,
		})
	}
	cfg[vpp_l2.BridgeDomainKey(bd.Name)] = bd

	bvi := &vpp_interfaces.Interface{
		Name:    bviName,
		Type:    vpp_interfaces.Interface_SOFTWARE_LOOPBACK,
		Enabled: true,
	}
	for _, attachment := range attachments {
		for _, subnet := range attachment.Subnets {
			addr, err := subnetGatewayCIDR(subnet)
			if err != nil {
				rndr.Log.Warnf("Skipping malformed subnet %s: %v", subnet.Prefix, err)
				continue
			}
			bvi.IpAddresses = appendIfMissing(bvi.IpAddresses, addr)
		}
	}
	cfg[vpp_interfaces.InterfaceKey(bvi.Name)] = bvi

	return cfg
}

/********************************** helpers **********************************/

// subnetGatewayCIDR returns the gateway address of the subnet in the CIDR
// format. The first host address is used when no gateway is configured.
func subnetGatewayCIDR(subnet renderer.Subnet) (string, error) {
	_, ipNet, err := net.ParseCIDR(subnet.Prefix)
	if err != nil {
		return "", err
	}
	gwIP := net.ParseIP(subnet.GatewayIP)
	if gwIP == nil {
		gwIP, err = cidr.Host(ipNet, 1)
		if err != nil {
			return "", err
		}
	}
	ones, _ := ipNet.Mask.Size()
	return fmt.Sprintf("%s/%d", gwIP.String(), ones), nil
}

func appendIfMissing(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
