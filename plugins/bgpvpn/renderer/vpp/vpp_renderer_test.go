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

package vpp

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/gogo/protobuf/proto"

	"github.com/ligato/cn-infra/logging/logrus"
	vpp_interfaces "github.com/ligato/vpp-agent/api/models/vpp/interfaces"
	vpp_l2 "github.com/ligato/vpp-agent/api/models/vpp/l2"
	vpp_l3 "github.com/ligato/vpp-agent/api/models/vpp/l3"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/config"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer"
	controller "github.com/bestjie/networking-bgpvpn/plugins/controller/api"
)

// mockTxn records the key-value pairs put into / deleted from transactions.
type mockTxn struct {
	values  map[string]proto.Message
	deleted map[string]bool
}

func newMockTxn() *mockTxn {
	return &mockTxn{
		values:  make(map[string]proto.Message),
		deleted: make(map[string]bool),
	}
}

func (m *mockTxn) Put(key string, value proto.Message) {
	m.values[key] = value
	delete(m.deleted, key)
}

func (m *mockTxn) Get(key string) proto.Message {
	return m.values[key]
}

func (m *mockTxn) Delete(key string) {
	delete(m.values, key)
	m.deleted[key] = true
}

func newTestRenderer(txn *mockTxn) *Renderer {
	cfg := config.DefaultConfig()
	cfg.NodeIP = "192.168.1.1"
	cfg.VxlanPeers = []string{"192.168.1.2", "192.168.1.3"}
	rndr := &Renderer{
		Deps: Deps{
			Log:    logrus.DefaultLogger(),
			Config: cfg,
			UpdateTxnFactory: func(change string) controller.UpdateOperations {
				return txn
			},
			ResyncTxnFactory: func() controller.ResyncOperations {
				return txn
			},
		},
	}
	rndr.Init()
	return rndr
}

func l3Attachment() *renderer.VPNAttachment {
	return &renderer.VPNAttachment{
		VpnId:              "vpn1",
		Kind:               renderer.AttachmentKindNetwork,
		TargetId:           "net1",
		VpnType:            vpn.TypeL3,
		RouteDistinguisher: "64512:1",
		VrfId:              10,
		Subnets: []renderer.Subnet{
			{Prefix: "10.1.0.0/24", GatewayIP: "10.1.0.1"},
		},
	}
}

func l2Attachment() *renderer.VPNAttachment {
	return &renderer.VPNAttachment{
		VpnId:              "vpn2",
		Kind:               renderer.AttachmentKindNetwork,
		TargetId:           "net2",
		VpnType:            vpn.TypeL2,
		RouteDistinguisher: "64512:2",
		Vni:                5000,
		VrfId:              11,
		Subnets: []renderer.Subnet{
			{Prefix: "10.2.0.0/24"},
		},
	}
}

func TestAddL3Attachment(t *testing.T) {
	RegisterTestingT(t)
	txn := newMockTxn()
	rndr := newTestRenderer(txn)

	err := rndr.AddAttachment(l3Attachment())
	Expect(err).To(BeNil())

	// VRF table
	vrfKey := vpp_l3.VrfTableKey(10, vpp_l3.VrfTable_IPV4)
	vrf, isVrf := txn.values[vrfKey].(*vpp_l3.VrfTable)
	Expect(isVrf).To(BeTrue())
	Expect(vrf.Label).To(Equal("bgpvpn-vpn1"))

	// VRF loopback with the gateway address
	loopKey := vpp_interfaces.InterfaceKey("bgpvpn-loop-vpn1")
	loop, isLoop := txn.values[loopKey].(*vpp_interfaces.Interface)
	Expect(isLoop).To(BeTrue())
	Expect(loop.Vrf).To(Equal(uint32(10)))
	Expect(loop.IpAddresses).To(Equal([]string{"10.1.0.1/24"}))

	// inter-VRF route towards the local subnet
	var interVrfRoute *vpp_l3.Route
	for _, value := range txn.values {
		if route, isRoute := value.(*vpp_l3.Route); isRoute {
			interVrfRoute = route
		}
	}
	Expect(interVrfRoute).ToNot(BeNil())
	Expect(interVrfRoute.Type).To(Equal(vpp_l3.Route_INTER_VRF))
	Expect(interVrfRoute.VrfId).To(Equal(uint32(10)))
	Expect(interVrfRoute.DstNetwork).To(Equal("10.1.0.0/24"))
}

func TestAddL2Attachment(t *testing.T) {
	RegisterTestingT(t)
	txn := newMockTxn()
	rndr := newTestRenderer(txn)

	err := rndr.AddAttachment(l2Attachment())
	Expect(err).To(BeNil())

	// bridge domain with the BVI and one interface per VXLAN peer
	bdKey := vpp_l2.BridgeDomainKey("bgpvpnBD-vpn2")
	bd, isBD := txn.values[bdKey].(*vpp_l2.BridgeDomain)
	Expect(isBD).To(BeTrue())
	Expect(bd.Interfaces).To(HaveLen(3))
	Expect(bd.Interfaces[0].BridgedVirtualInterface).To(BeTrue())

	// VXLAN tunnels towards both peers, carrying the VNI
	vxlanKey := vpp_interfaces.InterfaceKey("vxlan-vpn2-0")
	vxlan, isVxlan := txn.values[vxlanKey].(*vpp_interfaces.Interface)
	Expect(isVxlan).To(BeTrue())
	Expect(vxlan.GetVxlan().Vni).To(Equal(uint32(5000)))
	Expect(vxlan.GetVxlan().SrcAddress).To(Equal("192.168.1.1"))
	Expect(vxlan.GetVxlan().DstAddress).To(Equal("192.168.1.2"))

	// BVI uses the first host address when no gateway is configured
	bviKey := vpp_interfaces.InterfaceKey("bgpvpnBVI-vpn2")
	bvi, isBvi := txn.values[bviKey].(*vpp_interfaces.Interface)
	Expect(isBvi).To(BeTrue())
	Expect(bvi.IpAddresses).To(Equal([]string{"10.2.0.1/24"}))
}

func TestSharedVpnObjectsAcrossAttachments(t *testing.T) {
	RegisterTestingT(t)
	txn := newMockTxn()
	rndr := newTestRenderer(txn)

	first := l3Attachment()
	second := l3Attachment()
	second.TargetId = "net2"
	second.Subnets = []renderer.Subnet{
		{Prefix: "10.9.0.0/24", GatewayIP: "10.9.0.1"},
	}

	err := rndr.AddAttachment(first)
	Expect(err).To(BeNil())
	err = rndr.AddAttachment(second)
	Expect(err).To(BeNil())

	// the shared loopback carries the gateways of both attachments
	loopKey := vpp_interfaces.InterfaceKey("bgpvpn-loop-vpn1")
	loop, isLoop := txn.values[loopKey].(*vpp_interfaces.Interface)
	Expect(isLoop).To(BeTrue())
	Expect(loop.IpAddresses).To(Equal([]string{"10.1.0.1/24", "10.9.0.1/24"}))

	// removal of one attachment keeps the VRF and the loopback of the other
	err = rndr.DeleteAttachment(second)
	Expect(err).To(BeNil())

	vrfKey := vpp_l3.VrfTableKey(10, vpp_l3.VrfTable_IPV4)
	Expect(txn.values).To(HaveKey(vrfKey))
	loop, isLoop = txn.values[loopKey].(*vpp_interfaces.Interface)
	Expect(isLoop).To(BeTrue())
	Expect(loop.IpAddresses).To(Equal([]string{"10.1.0.1/24"}))

	var dstNetworks []string
	for _, value := range txn.values {
		if route, isRoute := value.(*vpp_l3.Route); isRoute {
			dstNetworks = append(dstNetworks, route.DstNetwork)
		}
	}
	Expect(dstNetworks).To(Equal([]string{"10.1.0.0/24"}))
}

func TestUpdateRemovesStaleConfig(t *testing.T) {
	RegisterTestingT(t)
	txn := newMockTxn()
	rndr := newTestRenderer(txn)

	oldAttachment := l3Attachment()
	err := rndr.AddAttachment(oldAttachment)
	Expect(err).To(BeNil())

	newAttachment := l3Attachment()
	newAttachment.Subnets = []renderer.Subnet{
		{Prefix: "10.5.0.0/24", GatewayIP: "10.5.0.1"},
	}
	err = rndr.UpdateAttachment(oldAttachment, newAttachment)
	Expect(err).To(BeNil())

	// the route of the old subnet was deleted, the new one added
	oldRouteDeleted := false
	for key := range txn.deleted {
		if txn.values[key] == nil {
			oldRouteDeleted = true
		}
	}
	Expect(oldRouteDeleted).To(BeTrue())

	var dstNetworks []string
	for _, value := range txn.values {
		if route, isRoute := value.(*vpp_l3.Route); isRoute {
			dstNetworks = append(dstNetworks, route.DstNetwork)
		}
	}
	Expect(dstNetworks).To(Equal([]string{"10.5.0.0/24"}))
}

func TestDeleteAttachment(t *testing.T) {
	RegisterTestingT(t)
	txn := newMockTxn()
	rndr := newTestRenderer(txn)

	attachment := l3Attachment()
	err := rndr.AddAttachment(attachment)
	Expect(err).To(BeNil())
	Expect(txn.values).ToNot(BeEmpty())

	err = rndr.DeleteAttachment(attachment)
	Expect(err).To(BeNil())
	Expect(txn.values).To(BeEmpty())
}

func TestResync(t *testing.T) {
	RegisterTestingT(t)
	txn := newMockTxn()
	rndr := newTestRenderer(txn)

	err := rndr.Resync(&renderer.ResyncEventData{
		Attachments: []*renderer.VPNAttachment{l3Attachment(), l2Attachment()},
	})
	Expect(err).To(BeNil())

	Expect(txn.values).To(HaveKey(vpp_l3.VrfTableKey(10, vpp_l3.VrfTable_IPV4)))
	Expect(txn.values).To(HaveKey(vpp_l2.BridgeDomainKey("bgpvpnBD-vpn2")))
}
