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

package network

import (
	"github.com/gogo/protobuf/proto"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
)

// Keyword identifies networks in the data store.
const Keyword = "network"

// Network is an inventory item describing a tenant network and the node
// it is placed on. It is published by the orchestration layer and only
// read by this service.
type Network struct {
	Id       string    `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	TenantId string    `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
	Name     string    `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Node     string    `protobuf:"bytes,4,opt,name=node,proto3" json:"node,omitempty"`
	Subnets  []*Subnet `protobuf:"bytes,5,rep,name=subnets,proto3" json:"subnets,omitempty"`
	VxlanVni uint32    `protobuf:"varint,6,opt,name=vxlan_vni,json=vxlanVni,proto3" json:"vxlan_vni,omitempty"`
}

// Subnet is a single IP subnet of a network.
type Subnet struct {
	Prefix    string `protobuf:"bytes,1,opt,name=prefix,proto3" json:"prefix,omitempty"`
	GatewayIp string `protobuf:"bytes,2,opt,name=gateway_ip,json=gatewayIp,proto3" json:"gateway_ip,omitempty"`
}

// Reset implements the proto.Message interface.
func (m *Network) Reset() { *m = Network{} }

// String converts the network into a human-readable string.
func (m *Network) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*Network) ProtoMessage() {}

// GetNode returns the name of the node hosting this network.
func (m *Network) GetNode() string {
	if m != nil {
		return m.Node
	}
	return ""
}

// GetSubnets returns the subnets of the network.
func (m *Network) GetSubnets() []*Subnet {
	if m != nil {
		return m.Subnets
	}
	return nil
}

// Reset implements the proto.Message interface.
func (m *Subnet) Reset() { *m = Subnet{} }

// String converts the subnet into a human-readable string.
func (m *Subnet) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*Subnet) ProtoMessage() {}

// KeyPrefix returns the key prefix identifying all networks
// in the data store.
func KeyPrefix() string {
	return modelkey.KeyPrefix(Keyword)
}

// Key returns the key under which a given network is stored
// in the data store.
func Key(id string) string {
	return modelkey.Key(Keyword, id)
}

// ParseIDFromKey parses the network ID from the associated
// data-store key.
func ParseIDFromKey(key string) (id string, err error) {
	return modelkey.ParseIDFromKey(Keyword, key)
}

func init() {
	proto.RegisterType((*Network)(nil), "bgpvpn.Network")
	proto.RegisterType((*Subnet)(nil), "bgpvpn.Network.Subnet")
}
