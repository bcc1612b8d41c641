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

package processor

import (
	"fmt"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/ligato/cn-infra/logging/logrus"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/config"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer"
	controller "github.com/bestjie/networking-bgpvpn/plugins/controller/api"
)

const (
	thisNode  = "node-1"
	otherNode = "node-2"
)

// mockRenderer records the stream of attachment events.
type mockRenderer struct {
	attachments map[string]*renderer.VPNAttachment
	resyncCount int
}

func newMockRenderer() *mockRenderer {
	return &mockRenderer{attachments: make(map[string]*renderer.VPNAttachment)}
}

func (m *mockRenderer) AddAttachment(attachment *renderer.VPNAttachment) error {
	m.attachments[attachment.Key()] = attachment
	return nil
}

func (m *mockRenderer) UpdateAttachment(oldAttachment, newAttachment *renderer.VPNAttachment) error {
	delete(m.attachments, oldAttachment.Key())
	m.attachments[newAttachment.Key()] = newAttachment
	return nil
}

func (m *mockRenderer) DeleteAttachment(attachment *renderer.VPNAttachment) error {
	delete(m.attachments, attachment.Key())
	return nil
}

func (m *mockRenderer) Resync(resyncEv *renderer.ResyncEventData) error {
	m.resyncCount++
	m.attachments = make(map[string]*renderer.VPNAttachment)
	for _, attachment := range resyncEv.Attachments {
		m.attachments[attachment.Key()] = attachment
	}
	return nil
}

// mockServiceLabel returns a fixed microservice label.
type mockServiceLabel struct{}

func (m *mockServiceLabel) GetAgentLabel() string {
	return thisNode
}

func (m *mockServiceLabel) GetAgentPrefix() string {
	return "/vnf-agent/" + thisNode + "/"
}

func (m *mockServiceLabel) GetDifferentAgentPrefix(label string) string {
	return "/vnf-agent/" + label + "/"
}

func (m *mockServiceLabel) GetAllAgentsPrefix() string {
	return "/vnf-agent/"
}

func newTestProcessor(rndr renderer.BGPVPNRendererAPI) *BGPVPNProcessor {
	processor := &BGPVPNProcessor{
		Deps: Deps{
			Log:          logrus.DefaultLogger(),
			ServiceLabel: &mockServiceLabel{},
			Config:       config.DefaultConfig(),
		},
	}
	processor.Init()
	processor.RegisterRenderer(rndr)
	return processor
}

func testVPN(id string) *vpn.VPN {
	return &vpn.VPN{
		Id:           id,
		Name:         "vpn-" + id,
		Type:         vpn.TypeL3,
		RouteTargets: []string{"64512:100"},
	}
}

func localNetwork(id string) *network.Network {
	return &network.Network{
		Id:   id,
		Node: thisNode,
		Subnets: []*network.Subnet{
			{Prefix: "10.1.0.0/24", GatewayIp: "10.1.0.1"},
		},
	}
}

func TestResyncLocalNetworkAssociation(t *testing.T) {
	RegisterTestingT(t)
	rndr := newMockRenderer()
	processor := newTestProcessor(rndr)

	state := controller.DBStateData{
		vpn.Keyword: controller.KeyValuePairs{
			vpn.Key("vpn1"): testVPN("vpn1"),
		},
		network.Keyword: controller.KeyValuePairs{
			network.Key("net1"): localNetwork("net1"),
		},
		netassoc.Keyword: controller.KeyValuePairs{
			netassoc.Key("assoc1"): &netassoc.NetworkAssociation{
				Id: "assoc1", VpnId: "vpn1", NetworkId: "net1",
			},
		},
	}

	err := processor.Resync(state)
	Expect(err).To(BeNil())
	Expect(rndr.resyncCount).To(Equal(1))
	Expect(rndr.attachments).To(HaveLen(1))

	attachment := rndr.attachments["vpn1/network/net1"]
	Expect(attachment).ToNot(BeNil())
	Expect(attachment.VpnType).To(Equal(vpn.TypeL3))
	Expect(attachment.ImportTargets).To(Equal([]string{"64512:100"}))
	Expect(attachment.ExportTargets).To(Equal([]string{"64512:100"}))
	Expect(attachment.VrfId).To(Equal(uint32(10)))
	Expect(attachment.Subnets).To(HaveLen(1))
	Expect(attachment.Subnets[0].Prefix).To(Equal("10.1.0.0/24"))
}

func TestResyncIgnoresRemoteNetworks(t *testing.T) {
	RegisterTestingT(t)
	rndr := newMockRenderer()
	processor := newTestProcessor(rndr)

	remoteNet := localNetwork("net1")
	remoteNet.Node = otherNode
	state := controller.DBStateData{
		vpn.Keyword: controller.KeyValuePairs{
			vpn.Key("vpn1"): testVPN("vpn1"),
		},
		network.Keyword: controller.KeyValuePairs{
			network.Key("net1"): remoteNet,
		},
		netassoc.Keyword: controller.KeyValuePairs{
			netassoc.Key("assoc1"): &netassoc.NetworkAssociation{
				Id: "assoc1", VpnId: "vpn1", NetworkId: "net1",
			},
		},
	}

	err := processor.Resync(state)
	Expect(err).To(BeNil())
	Expect(rndr.attachments).To(BeEmpty())
}

func TestUpdateAddsAndRemovesAttachment(t *testing.T) {
	RegisterTestingT(t)
	rndr := newMockRenderer()
	processor := newTestProcessor(rndr)

	err := processor.Resync(controller.DBStateData{})
	Expect(err).To(BeNil())

	// add VPN, network, association one by one
	err = processor.Update(&controller.DBStateChange{
		Resource: vpn.Keyword,
		Key:      vpn.Key("vpn1"),
		NewValue: testVPN("vpn1"),
	})
	Expect(err).To(BeNil())
	Expect(rndr.attachments).To(BeEmpty())

	err = processor.Update(&controller.DBStateChange{
		Resource: network.Keyword,
		Key:      network.Key("net1"),
		NewValue: localNetwork("net1"),
	})
	Expect(err).To(BeNil())
	Expect(rndr.attachments).To(BeEmpty())

	assoc := &netassoc.NetworkAssociation{Id: "assoc1", VpnId: "vpn1", NetworkId: "net1"}
	err = processor.Update(&controller.DBStateChange{
		Resource: netassoc.Keyword,
		Key:      netassoc.Key("assoc1"),
		NewValue: assoc,
	})
	Expect(err).To(BeNil())
	Expect(rndr.attachments).To(HaveLen(1))

	// deleting the association removes the attachment
	err = processor.Update(&controller.DBStateChange{
		Resource:  netassoc.Keyword,
		Key:       netassoc.Key("assoc1"),
		PrevValue: assoc,
		NewValue:  nil,
	})
	Expect(err).To(BeNil())
	Expect(rndr.attachments).To(BeEmpty())
}

func TestRouterAssociationWithExtraRoutes(t *testing.T) {
	RegisterTestingT(t)
	rndr := newMockRenderer()
	processor := newTestProcessor(rndr)

	state := controller.DBStateData{
		vpn.Keyword: controller.KeyValuePairs{
			vpn.Key("vpn1"): testVPN("vpn1"),
		},
		network.Keyword: controller.KeyValuePairs{
			network.Key("net1"): localNetwork("net1"),
		},
		router.Keyword: controller.KeyValuePairs{
			router.Key("router1"): &router.Router{
				Id:   "router1",
				Node: thisNode,
				Interfaces: []*router.Interface{
					{NetworkId: "net1", IpAddress: "10.1.0.1"},
				},
				StaticRoutes: []*router.StaticRoute{
					{DstNetwork: "192.168.0.0/16", NextHop: "10.1.0.254"},
				},
			},
		},
		routerassoc.Keyword: controller.KeyValuePairs{
			routerassoc.Key("assoc1"): &routerassoc.RouterAssociation{
				Id: "assoc1", VpnId: "vpn1", RouterId: "router1",
				AdvertiseExtraRoutes: true,
			},
		},
	}

	err := processor.Resync(state)
	Expect(err).To(BeNil())
	Expect(rndr.attachments).To(HaveLen(1))

	attachment := rndr.attachments["vpn1/router/router1"]
	Expect(attachment).ToNot(BeNil())
	Expect(attachment.Subnets).To(HaveLen(1))
	Expect(attachment.StaticRoutes).To(HaveLen(1))
	Expect(attachment.StaticRoutes[0].DstNetwork).To(Equal("192.168.0.0/16"))

	// turning AdvertiseExtraRoutes off drops the static routes
	err = processor.Update(&controller.DBStateChange{
		Resource: routerassoc.Keyword,
		Key:      routerassoc.Key("assoc1"),
		NewValue: &routerassoc.RouterAssociation{
			Id: "assoc1", VpnId: "vpn1", RouterId: "router1",
			AdvertiseExtraRoutes: false,
		},
	})
	Expect(err).To(BeNil())
	attachment = rndr.attachments["vpn1/router/router1"]
	Expect(attachment).ToNot(BeNil())
	Expect(attachment.StaticRoutes).To(BeEmpty())
}

func TestRDSelection(t *testing.T) {
	RegisterTestingT(t)
	rndr := newMockRenderer()
	processor := newTestProcessor(rndr)

	// two nodes host the VPN, this node sorts second
	v := testVPN("vpn1")
	v.RouteDistinguishers = []string{"64512:1", "64512:2"}
	net1 := localNetwork("net1")
	net0 := localNetwork("net0")
	net0.Node = "node-0"

	state := controller.DBStateData{
		vpn.Keyword: controller.KeyValuePairs{
			vpn.Key("vpn1"): v,
		},
		network.Keyword: controller.KeyValuePairs{
			network.Key("net0"): net0,
			network.Key("net1"): net1,
		},
		netassoc.Keyword: controller.KeyValuePairs{
			netassoc.Key("assoc0"): &netassoc.NetworkAssociation{
				Id: "assoc0", VpnId: "vpn1", NetworkId: "net0",
			},
			netassoc.Key("assoc1"): &netassoc.NetworkAssociation{
				Id: "assoc1", VpnId: "vpn1", NetworkId: "net1",
			},
		},
	}

	err := processor.Resync(state)
	Expect(err).To(BeNil())
	attachment := rndr.attachments["vpn1/network/net1"]
	Expect(attachment).ToNot(BeNil())
	Expect(attachment.RouteDistinguisher).To(Equal("64512:2"))

	// with a single-entry RD list the second node derives its RD
	v2 := testVPN("vpn1")
	v2.RouteDistinguishers = []string{"64512:10"}
	err = processor.Update(&controller.DBStateChange{
		Resource: vpn.Keyword,
		Key:      vpn.Key("vpn1"),
		NewValue: v2,
	})
	Expect(err).To(BeNil())
	attachment = rndr.attachments["vpn1/network/net1"]
	Expect(attachment).ToNot(BeNil())
	Expect(attachment.RouteDistinguisher).To(Equal("64512:11"))
}

func TestDerivedRDSkipsListedRDs(t *testing.T) {
	RegisterTestingT(t)
	rndr := newMockRenderer()
	processor := newTestProcessor(rndr)

	// three nodes host the VPN, this node sorts third and derives its RD
	// from the first listed one; 64512:12 belongs to the second node and
	// must not be reused
	v := testVPN("vpn1")
	v.RouteDistinguishers = []string{"64512:10", "64512:12"}

	state := controller.DBStateData{
		vpn.Keyword: controller.KeyValuePairs{
			vpn.Key("vpn1"): v,
		},
		network.Keyword: controller.KeyValuePairs{},
		netassoc.Keyword: controller.KeyValuePairs{},
	}
	for i, node := range []string{"node-0a", "node-0b", thisNode} {
		id := fmt.Sprintf("net%d", i)
		net := localNetwork(id)
		net.Node = node
		state[network.Keyword][network.Key(id)] = net
		state[netassoc.Keyword][netassoc.Key("assoc-"+id)] = &netassoc.NetworkAssociation{
			Id: "assoc-" + id, VpnId: "vpn1", NetworkId: id,
		}
	}

	err := processor.Resync(state)
	Expect(err).To(BeNil())
	attachment := rndr.attachments["vpn1/network/net2"]
	Expect(attachment).ToNot(BeNil())
	Expect(attachment.RouteDistinguisher).To(Equal("64512:11"))
}

func TestVrfAssignmentIsDeterministic(t *testing.T) {
	RegisterTestingT(t)
	rndr := newMockRenderer()
	processor := newTestProcessor(rndr)

	state := controller.DBStateData{
		vpn.Keyword: controller.KeyValuePairs{
			vpn.Key("vpn-b"): testVPN("vpn-b"),
			vpn.Key("vpn-a"): testVPN("vpn-a"),
		},
		network.Keyword: controller.KeyValuePairs{
			network.Key("net1"): localNetwork("net1"),
			network.Key("net2"): localNetwork("net2"),
		},
		netassoc.Keyword: controller.KeyValuePairs{
			netassoc.Key("assoc1"): &netassoc.NetworkAssociation{
				Id: "assoc1", VpnId: "vpn-a", NetworkId: "net1",
			},
			netassoc.Key("assoc2"): &netassoc.NetworkAssociation{
				Id: "assoc2", VpnId: "vpn-b", NetworkId: "net2",
			},
		},
	}

	err := processor.Resync(state)
	Expect(err).To(BeNil())
	Expect(rndr.attachments).To(HaveLen(2))

	// VRF IDs follow the sorted order of VPN IDs
	Expect(rndr.attachments["vpn-a/network/net1"].VrfId).To(Equal(uint32(10)))
	Expect(rndr.attachments["vpn-b/network/net2"].VrfId).To(Equal(uint32(11)))
}
