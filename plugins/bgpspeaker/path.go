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
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/any"
	"github.com/pkg/errors"

	bgpapi "github.com/osrg/gobgp/api"

	"github.com/bestjie/networking-bgpvpn/pkg/rtrd"
)

// Address families of the paths originated by the speaker.
const (
	// FamilyVPNv4 is a labeled IPv4 VPN unicast route.
	FamilyVPNv4 = "vpnv4"

	// FamilyEVPN is an EVPN inclusive multicast (type 3) route.
	FamilyEVPN = "evpn"
)

const (
	// route target extended community subtype
	extCommRouteTarget = 0x02

	// PMSI tunnel type for VXLAN ingress replication
	pmsiIngressReplication = 6
)

var (
	vpnv4Family = &bgpapi.Family{
		Afi:  bgpapi.Family_AFI_IP,
		Safi: bgpapi.Family_SAFI_MPLS_VPN,
	}
	evpnFamily = &bgpapi.Family{
		Afi:  bgpapi.Family_AFI_L2VPN,
		Safi: bgpapi.Family_SAFI_EVPN,
	}
)

// Path is a single route originated by the speaker.
type Path struct {
	// Family is one of FamilyVPNv4, FamilyEVPN.
	Family string

	// Prefix is the advertised IPv4 prefix in the CIDR format.
	// Unused for EVPN paths.
	Prefix string

	// RD is the route distinguisher of the path.
	RD string

	// RouteTargets lists the route targets attached to the path.
	RouteTargets []string

	// Label is the MPLS label of a VPNv4 path.
	Label uint32

	// Vni is the VXLAN VNI of an EVPN path.
	Vni uint32

	// NextHop is the IP address of the advertising node.
	NextHop string
}

// Key returns a string that uniquely identifies the path.
func (p *Path) Key() string {
	if p.Family == FamilyEVPN {
		return fmt.Sprintf("%s/%s/%d", p.Family, p.RD, p.Vni)
	}
	return fmt.Sprintf("%s/%s/%s", p.Family, p.RD, p.Prefix)
}

// String describes the path for logging purposes.
func (p *Path) String() string {
	if p.Family == FamilyEVPN {
		return fmt.Sprintf("Path <family:%s rd:%s vni:%d nextHop:%s rt:%v>",
			p.Family, p.RD, p.Vni, p.NextHop, p.RouteTargets)
	}
	return fmt.Sprintf("Path <family:%s rd:%s prefix:%s label:%d nextHop:%s rt:%v>",
		p.Family, p.RD, p.Prefix, p.Label, p.NextHop, p.RouteTargets)
}

// Equal compares the path with another one.
func (p *Path) Equal(p2 *Path) bool {
	return p.Family == p2.Family && p.Prefix == p2.Prefix && p.RD == p2.RD &&
		p.Label == p2.Label && p.Vni == p2.Vni && p.NextHop == p2.NextHop &&
		rtrd.Equal(p.RouteTargets, p2.RouteTargets)
}

// toAPIPath translates Path into the GoBGP representation.
func toAPIPath(path *Path) (*bgpapi.Path, error) {
	switch path.Family {
	case FamilyVPNv4:
		return toVPNv4APIPath(path)
	case FamilyEVPN:
		return toEVPNAPIPath(path)
	}
	return nil, errors.Errorf("unsupported path family: %s", path.Family)
}

func toVPNv4APIPath(path *Path) (*bgpapi.Path, error) {
	rd, err := marshalRD(path.RD)
	if err != nil {
		return nil, err
	}
	prefix, prefixLen, err := splitPrefix(path.Prefix)
	if err != nil {
		return nil, err
	}
	nlri, err := ptypes.MarshalAny(&bgpapi.LabeledVPNIPAddressPrefix{
		Labels:    []uint32{path.Label},
		Rd:        rd,
		Prefix:    prefix,
		PrefixLen: prefixLen,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal VPNv4 NLRI")
	}

	attrs, err := commonPathAttrs(path, vpnv4Family, nlri)
	if err != nil {
		return nil, err
	}
	return &bgpapi.Path{
		Family: vpnv4Family,
		Nlri:   nlri,
		Pattrs: attrs,
	}, nil
}

func toEVPNAPIPath(path *Path) (*bgpapi.Path, error) {
	rd, err := marshalRD(path.RD)
	if err != nil {
		return nil, err
	}
	nlri, err := ptypes.MarshalAny(&bgpapi.EVPNInclusiveMulticastEthernetTagRoute{
		Rd:          rd,
		EthernetTag: 0,
		IpAddress:   path.NextHop,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal EVPN NLRI")
	}

	attrs, err := commonPathAttrs(path, evpnFamily, nlri)
	if err != nil {
		return nil, err
	}

	// VXLAN ingress replication towards the advertising VTEP
	tunnelID := net.ParseIP(path.NextHop).To4()
	if tunnelID == nil {
		return nil, errors.Errorf("invalid next hop for the PMSI tunnel: %s", path.NextHop)
	}
	pmsi, err := ptypes.MarshalAny(&bgpapi.PmsiTunnelAttribute{
		Type:  pmsiIngressReplication,
		Label: path.Vni,
		Id:    tunnelID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal the PMSI tunnel attribute")
	}
	attrs = append(attrs, pmsi)

	return &bgpapi.Path{
		Family: evpnFamily,
		Nlri:   nlri,
		Pattrs: attrs,
	}, nil
}

// commonPathAttrs builds the path attributes shared by VPNv4 and EVPN
// paths: origin, MP_REACH_NLRI with the next hop and the route target
// extended communities.
func commonPathAttrs(path *Path, family *bgpapi.Family, nlri *any.Any) ([]*any.Any, error) {
	origin, err := ptypes.MarshalAny(&bgpapi.OriginAttribute{
		Origin: 0, // IGP
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal the origin attribute")
	}

	nextHop, err := ptypes.MarshalAny(&bgpapi.MpReachNLRIAttribute{
		Family:   family,
		NextHops: []string{path.NextHop},
		Nlris:    []*any.Any{nlri},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal the next hop attribute")
	}

	var communities []*any.Any
	for _, rt := range path.RouteTargets {
		comm, err := marshalRouteTarget(rt)
		if err != nil {
			return nil, err
		}
		communities = append(communities, comm)
	}
	extComm, err := ptypes.MarshalAny(&bgpapi.ExtendedCommunitiesAttribute{
		Communities: communities,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal the extended communities attribute")
	}

	return []*any.Any{origin, nextHop, extComm}, nil
}

// marshalRD translates a textual route distinguisher into the GoBGP
// representation.
func marshalRD(rd string) (*any.Any, error) {
	value, err := rtrd.ParseRouteDistinguisher(rd)
	if err != nil {
		return nil, err
	}
	var marshalled *any.Any
	switch value.Type {
	case rtrd.IPv4Address:
		marshalled, err = ptypes.MarshalAny(&bgpapi.RouteDistinguisherIPAddress{
			Admin:    value.IP.String(),
			Assigned: value.Assigned,
		})
	case rtrd.FourOctetAS:
		marshalled, err = ptypes.MarshalAny(&bgpapi.RouteDistinguisherFourOctetAS{
			Admin:    value.ASN,
			Assigned: value.Assigned,
		})
	default:
		marshalled, err = ptypes.MarshalAny(&bgpapi.RouteDistinguisherTwoOctetAS{
			Admin:    value.ASN,
			Assigned: value.Assigned,
		})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal route distinguisher %s", rd)
	}
	return marshalled, nil
}

// marshalRouteTarget translates a textual route target into a GoBGP
// extended community.
func marshalRouteTarget(rt string) (*any.Any, error) {
	value, err := rtrd.ParseRouteTarget(rt)
	if err != nil {
		return nil, err
	}
	var marshalled *any.Any
	switch value.Type {
	case rtrd.IPv4Address:
		marshalled, err = ptypes.MarshalAny(&bgpapi.IPv4AddressSpecificExtended{
			IsTransitive: true,
			SubType:      extCommRouteTarget,
			Address:      value.IP.String(),
			LocalAdmin:   value.Assigned,
		})
	case rtrd.FourOctetAS:
		marshalled, err = ptypes.MarshalAny(&bgpapi.FourOctetAsSpecificExtended{
			IsTransitive: true,
			SubType:      extCommRouteTarget,
			As:           value.ASN,
			LocalAdmin:   value.Assigned,
		})
	default:
		marshalled, err = ptypes.MarshalAny(&bgpapi.TwoOctetAsSpecificExtended{
			IsTransitive: true,
			SubType:      extCommRouteTarget,
			As:           value.ASN,
			LocalAdmin:   value.Assigned,
		})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal route target %s", rt)
	}
	return marshalled, nil
}

// splitPrefix splits a CIDR into the address and the prefix length.
func splitPrefix(prefix string) (addr string, prefixLen uint32, err error) {
	parts := strings.Split(prefix, "/")
	if len(parts) != 2 {
		return "", 0, errors.Errorf("invalid prefix: %s", prefix)
	}
	length, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return "", 0, errors.Errorf("invalid prefix length: %s", prefix)
	}
	return parts[0], uint32(length), nil
}
