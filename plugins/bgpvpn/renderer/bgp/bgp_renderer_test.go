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

package bgp

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/ligato/cn-infra/logging/logrus"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpspeaker"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/config"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer"
)

// mockSpeaker records the paths originated through the speaker API.
type mockSpeaker struct {
	paths map[string]*bgpspeaker.Path
}

func newMockSpeaker() *mockSpeaker {
	return &mockSpeaker{paths: make(map[string]*bgpspeaker.Path)}
}

func (m *mockSpeaker) AnnouncePath(path *bgpspeaker.Path) error {
	m.paths[path.Key()] = path
	return nil
}

func (m *mockSpeaker) WithdrawPath(path *bgpspeaker.Path) error {
	delete(m.paths, path.Key())
	return nil
}

func (m *mockSpeaker) ListPaths() []*bgpspeaker.Path {
	var paths []*bgpspeaker.Path
	for _, path := range m.paths {
		paths = append(paths, path)
	}
	return paths
}

func newTestRenderer(speaker bgpspeaker.API) *Renderer {
	cfg := config.DefaultConfig()
	cfg.NodeIP = "192.168.1.1"
	rndr := &Renderer{
		Deps: Deps{
			Log:     logrus.DefaultLogger(),
			Config:  cfg,
			Speaker: speaker,
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
		ImportTargets:      []string{"64512:100"},
		ExportTargets:      []string{"64512:100"},
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
		ImportTargets:      []string{"64512:200"},
		ExportTargets:      []string{"64512:200"},
		RouteDistinguisher: "64512:2",
		Vni:                5000,
		VrfId:              11,
	}
}

func TestAddL3Attachment(t *testing.T) {
	RegisterTestingT(t)
	speaker := newMockSpeaker()
	rndr := newTestRenderer(speaker)

	err := rndr.AddAttachment(l3Attachment())
	Expect(err).To(BeNil())
	Expect(speaker.paths).To(HaveLen(1))

	path := speaker.paths["vpnv4/64512:1/10.1.0.0/24"]
	Expect(path).ToNot(BeNil())
	Expect(path.Family).To(Equal(bgpspeaker.FamilyVPNv4))
	Expect(path.Label).To(Equal(uint32(100010)))
	Expect(path.NextHop).To(Equal("192.168.1.1"))
	Expect(path.RouteTargets).To(Equal([]string{"64512:100"}))
}

func TestAddL2Attachment(t *testing.T) {
	RegisterTestingT(t)
	speaker := newMockSpeaker()
	rndr := newTestRenderer(speaker)

	err := rndr.AddAttachment(l2Attachment())
	Expect(err).To(BeNil())
	Expect(speaker.paths).To(HaveLen(1))

	path := speaker.paths["evpn/64512:2/5000"]
	Expect(path).ToNot(BeNil())
	Expect(path.Family).To(Equal(bgpspeaker.FamilyEVPN))
	Expect(path.Vni).To(Equal(uint32(5000)))
	Expect(path.NextHop).To(Equal("192.168.1.1"))
}

func TestStaticRoutesAnnounced(t *testing.T) {
	RegisterTestingT(t)
	speaker := newMockSpeaker()
	rndr := newTestRenderer(speaker)

	attachment := l3Attachment()
	attachment.Kind = renderer.AttachmentKindRouter
	attachment.TargetId = "router1"
	attachment.StaticRoutes = []renderer.StaticRoute{
		{DstNetwork: "192.168.0.0/16", NextHop: "10.1.0.254"},
	}

	err := rndr.AddAttachment(attachment)
	Expect(err).To(BeNil())
	Expect(speaker.paths).To(HaveLen(2))
	Expect(speaker.paths["vpnv4/64512:1/192.168.0.0/16"]).ToNot(BeNil())
}

func TestUpdateWithdrawsStalePaths(t *testing.T) {
	RegisterTestingT(t)
	speaker := newMockSpeaker()
	rndr := newTestRenderer(speaker)

	oldAttachment := l3Attachment()
	err := rndr.AddAttachment(oldAttachment)
	Expect(err).To(BeNil())

	newAttachment := l3Attachment()
	newAttachment.Subnets = []renderer.Subnet{
		{Prefix: "10.2.0.0/24", GatewayIP: "10.2.0.1"},
	}
	err = rndr.UpdateAttachment(oldAttachment, newAttachment)
	Expect(err).To(BeNil())
	Expect(speaker.paths).To(HaveLen(1))
	Expect(speaker.paths["vpnv4/64512:1/10.2.0.0/24"]).ToNot(BeNil())
}

func TestDeleteAttachment(t *testing.T) {
	RegisterTestingT(t)
	speaker := newMockSpeaker()
	rndr := newTestRenderer(speaker)

	attachment := l3Attachment()
	err := rndr.AddAttachment(attachment)
	Expect(err).To(BeNil())
	Expect(speaker.paths).To(HaveLen(1))

	err = rndr.DeleteAttachment(attachment)
	Expect(err).To(BeNil())
	Expect(speaker.paths).To(BeEmpty())
}

func TestResyncWithdrawsObsoletePaths(t *testing.T) {
	RegisterTestingT(t)
	speaker := newMockSpeaker()
	rndr := newTestRenderer(speaker)

	// a path left over from the previous life of the speaker
	speaker.AnnouncePath(&bgpspeaker.Path{
		Family:  bgpspeaker.FamilyVPNv4,
		Prefix:  "10.99.0.0/24",
		RD:      "64512:99",
		Label:   100099,
		NextHop: "192.168.1.1",
	})

	err := rndr.Resync(&renderer.ResyncEventData{
		Attachments: []*renderer.VPNAttachment{l3Attachment(), l2Attachment()},
	})
	Expect(err).To(BeNil())
	Expect(speaker.paths).To(HaveLen(2))
	Expect(speaker.paths["vpnv4/64512:99/10.99.0.0/24"]).To(BeNil())
	Expect(speaker.paths["vpnv4/64512:1/10.1.0.0/24"]).ToNot(BeNil())
	Expect(speaker.paths["evpn/64512:2/5000"]).ToNot(BeNil())
}
