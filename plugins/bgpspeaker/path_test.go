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

package bgpspeaker

import (
	"net"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/golang/protobuf/ptypes"

	bgpapi "github.com/osrg/gobgp/api"
)

func TestVPNv4APIPath(t *testing.T) {
	RegisterTestingT(t)

	path := &Path{
		Family:       FamilyVPNv4,
		Prefix:       "10.1.0.0/24",
		RD:           "64512:1",
		RouteTargets: []string{"64512:100", "10.0.0.1:200"},
		Label:        100010,
		NextHop:      "192.168.1.1",
	}
	apiPath, err := toAPIPath(path)
	Expect(err).To(BeNil())
	Expect(apiPath.Family.Afi).To(Equal(bgpapi.Family_AFI_IP))
	Expect(apiPath.Family.Safi).To(Equal(bgpapi.Family_SAFI_MPLS_VPN))

	nlri := &bgpapi.LabeledVPNIPAddressPrefix{}
	err = ptypes.UnmarshalAny(apiPath.Nlri, nlri)
	Expect(err).To(BeNil())
	Expect(nlri.Prefix).To(Equal("10.1.0.0"))
	Expect(nlri.PrefixLen).To(Equal(uint32(24)))
	Expect(nlri.Labels).To(Equal([]uint32{100010}))

	// origin + next hop + extended communities
	Expect(apiPath.Pattrs).To(HaveLen(3))
}

func TestEVPNAPIPath(t *testing.T) {
	RegisterTestingT(t)

	path := &Path{
		Family:       FamilyEVPN,
		RD:           "64512:2",
		RouteTargets: []string{"64512:200"},
		Vni:          5000,
		NextHop:      "192.168.1.1",
	}
	apiPath, err := toAPIPath(path)
	Expect(err).To(BeNil())
	Expect(apiPath.Family.Afi).To(Equal(bgpapi.Family_AFI_L2VPN))
	Expect(apiPath.Family.Safi).To(Equal(bgpapi.Family_SAFI_EVPN))

	nlri := &bgpapi.EVPNInclusiveMulticastEthernetTagRoute{}
	err = ptypes.UnmarshalAny(apiPath.Nlri, nlri)
	Expect(err).To(BeNil())
	Expect(nlri.IpAddress).To(Equal("192.168.1.1"))

	// origin + next hop + extended communities + PMSI tunnel
	Expect(apiPath.Pattrs).To(HaveLen(4))

	// the PMSI tunnel id is the 4-byte VTEP address
	pmsi := &bgpapi.PmsiTunnelAttribute{}
	err = ptypes.UnmarshalAny(apiPath.Pattrs[3], pmsi)
	Expect(err).To(BeNil())
	Expect(pmsi.Label).To(Equal(uint32(5000)))
	Expect(pmsi.Id).To(Equal([]byte(net.ParseIP("192.168.1.1").To4())))
}

func TestInvalidPathsRejected(t *testing.T) {
	RegisterTestingT(t)

	_, err := toAPIPath(&Path{Family: "vpnv6"})
	Expect(err).ToNot(BeNil())

	_, err = toAPIPath(&Path{Family: FamilyVPNv4, RD: "64512:1", Prefix: "not-a-prefix"})
	Expect(err).ToNot(BeNil())

	_, err = toAPIPath(&Path{Family: FamilyVPNv4, RD: "bad-rd", Prefix: "10.0.0.0/24"})
	Expect(err).ToNot(BeNil())

	_, err = toAPIPath(&Path{Family: FamilyEVPN, RD: "64512:1", Vni: 5000, NextHop: "not-an-ip"})
	Expect(err).ToNot(BeNil())
}

func TestPathKeyAndEqual(t *testing.T) {
	RegisterTestingT(t)

	vpnv4 := &Path{Family: FamilyVPNv4, RD: "64512:1", Prefix: "10.1.0.0/24"}
	evpn := &Path{Family: FamilyEVPN, RD: "64512:1", Vni: 5000}
	Expect(vpnv4.Key()).To(Equal("vpnv4/64512:1/10.1.0.0/24"))
	Expect(evpn.Key()).To(Equal("evpn/64512:1/5000"))

	other := &Path{Family: FamilyVPNv4, RD: "64512:1", Prefix: "10.1.0.0/24"}
	Expect(vpnv4.Equal(other)).To(BeTrue())
	other.Label = 42
	Expect(vpnv4.Equal(other)).To(BeFalse())
}
