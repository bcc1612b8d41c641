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

package vpn

import (
	"github.com/gogo/protobuf/proto"
)

const (
	// TypeL2 marks an EVPN-based L2 VPN.
	TypeL2 = "l2"

	// TypeL3 marks an IP (RFC 4364 style) L3 VPN.
	TypeL3 = "l3"
)

// VPN describes a single BGP VPN instance.
//
// RouteTargets are used for both import and export; ImportTargets and
// ExportTargets extend the respective direction only. RouteDistinguishers
// is the list of RDs the nodes may choose from when originating routes
// for this VPN (auto-allocated by the server when left empty).
type VPN struct {
	Id                  string   `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	TenantId            string   `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
	Name                string   `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Type                string   `protobuf:"bytes,4,opt,name=type,proto3" json:"type,omitempty"`
	RouteTargets        []string `protobuf:"bytes,5,rep,name=route_targets,json=routeTargets,proto3" json:"route_targets,omitempty"`
	ImportTargets       []string `protobuf:"bytes,6,rep,name=import_targets,json=importTargets,proto3" json:"import_targets,omitempty"`
	ExportTargets       []string `protobuf:"bytes,7,rep,name=export_targets,json=exportTargets,proto3" json:"export_targets,omitempty"`
	RouteDistinguishers []string `protobuf:"bytes,8,rep,name=route_distinguishers,json=routeDistinguishers,proto3" json:"route_distinguishers,omitempty"`
	AutoAggregate       bool     `protobuf:"varint,9,opt,name=auto_aggregate,json=autoAggregate,proto3" json:"auto_aggregate,omitempty"`
	Vni                 uint32   `protobuf:"varint,10,opt,name=vni,proto3" json:"vni,omitempty"`
}

// Reset implements the proto.Message interface.
func (m *VPN) Reset() { *m = VPN{} }

// String converts the VPN into a human-readable string.
func (m *VPN) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*VPN) ProtoMessage() {}

// GetId returns the VPN ID.
func (m *VPN) GetId() string {
	if m != nil {
		return m.Id
	}
	return ""
}

// GetType returns the VPN type (l2 / l3).
func (m *VPN) GetType() string {
	if m != nil {
		return m.Type
	}
	return ""
}

// GetRouteTargets returns the list of route targets used for both
// the import and the export direction.
func (m *VPN) GetRouteTargets() []string {
	if m != nil {
		return m.RouteTargets
	}
	return nil
}

// GetRouteDistinguishers returns the list of route distinguishers.
func (m *VPN) GetRouteDistinguishers() []string {
	if m != nil {
		return m.RouteDistinguishers
	}
	return nil
}

func init() {
	proto.RegisterType((*VPN)(nil), "bgpvpn.VPN")
}
