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

package router

import (
	"github.com/gogo/protobuf/proto"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
)

// Keyword identifies routers in the data store.
const Keyword = "router"

// Router is an inventory item describing a tenant router and the node
// it is placed on. It is published by the orchestration layer and only
// read by this service.
type Router struct {
	Id           string         `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	TenantId     string         `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
	Name         string         `protobuf:"bytes,3,opt,name=name,proto3" json:"name,omitempty"`
	Node         string         `protobuf:"bytes,4,opt,name=node,proto3" json:"node,omitempty"`
	Interfaces   []*Interface   `protobuf:"bytes,5,rep,name=interfaces,proto3" json:"interfaces,omitempty"`
	StaticRoutes []*StaticRoute `protobuf:"bytes,6,rep,name=static_routes,json=staticRoutes,proto3" json:"static_routes,omitempty"`
}

// Interface connects the router to one network.
type Interface struct {
	NetworkId string `protobuf:"bytes,1,opt,name=network_id,json=networkId,proto3" json:"network_id,omitempty"`
	IpAddress string `protobuf:"bytes,2,opt,name=ip_address,json=ipAddress,proto3" json:"ip_address,omitempty"`
}

// StaticRoute is an extra route configured on the router.
type StaticRoute struct {
	DstNetwork string `protobuf:"bytes,1,opt,name=dst_network,json=dstNetwork,proto3" json:"dst_network,omitempty"`
	NextHop    string `protobuf:"bytes,2,opt,name=next_hop,json=nextHop,proto3" json:"next_hop,omitempty"`
}

// Reset implements the proto.Message interface.
func (m *Router) Reset() { *m = Router{} }

// String converts the router into a human-readable string.
func (m *Router) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*Router) ProtoMessage() {}

// GetNode returns the name of the node hosting this router.
func (m *Router) GetNode() string {
	if m != nil {
		return m.Node
	}
	return ""
}

// GetInterfaces returns the router interfaces.
func (m *Router) GetInterfaces() []*Interface {
	if m != nil {
		return m.Interfaces
	}
	return nil
}

// GetStaticRoutes returns the extra routes configured on the router.
func (m *Router) GetStaticRoutes() []*StaticRoute {
	if m != nil {
		return m.StaticRoutes
	}
	return nil
}

// Reset implements the proto.Message interface.
func (m *Interface) Reset() { *m = Interface{} }

// String converts the interface into a human-readable string.
func (m *Interface) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*Interface) ProtoMessage() {}

// Reset implements the proto.Message interface.
func (m *StaticRoute) Reset() { *m = StaticRoute{} }

// String converts the static route into a human-readable string.
func (m *StaticRoute) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*StaticRoute) ProtoMessage() {}

// KeyPrefix returns the key prefix identifying all routers
// in the data store.
func KeyPrefix() string {
	return modelkey.KeyPrefix(Keyword)
}

// Key returns the key under which a given router is stored
// in the data store.
func Key(id string) string {
	return modelkey.Key(Keyword, id)
}

// ParseIDFromKey parses the router ID from the associated
// data-store key.
func ParseIDFromKey(key string) (id string, err error) {
	return modelkey.ParseIDFromKey(Keyword, key)
}

func init() {
	proto.RegisterType((*Router)(nil), "bgpvpn.Router")
	proto.RegisterType((*Interface)(nil), "bgpvpn.Router.Interface")
	proto.RegisterType((*StaticRoute)(nil), "bgpvpn.Router.StaticRoute")
}
