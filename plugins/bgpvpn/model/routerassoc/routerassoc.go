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

package routerassoc

import (
	"github.com/gogo/protobuf/proto"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
)

// Keyword identifies router associations in the data store.
const Keyword = "routerassoc"

// RouterAssociation attaches a router to a VPN instance.
// With AdvertiseExtraRoutes enabled (the default), static routes
// configured on the router are advertised into the VPN as well.
type RouterAssociation struct {
	Id                   string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	TenantId             string `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
	VpnId                string `protobuf:"bytes,3,opt,name=vpn_id,json=vpnId,proto3" json:"vpn_id,omitempty"`
	RouterId             string `protobuf:"bytes,4,opt,name=router_id,json=routerId,proto3" json:"router_id,omitempty"`
	AdvertiseExtraRoutes bool   `protobuf:"varint,5,opt,name=advertise_extra_routes,json=advertiseExtraRoutes,proto3" json:"advertise_extra_routes,omitempty"`
}

// Reset implements the proto.Message interface.
func (m *RouterAssociation) Reset() { *m = RouterAssociation{} }

// String converts the association into a human-readable string.
func (m *RouterAssociation) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*RouterAssociation) ProtoMessage() {}

// GetVpnId returns the ID of the associated VPN.
func (m *RouterAssociation) GetVpnId() string {
	if m != nil {
		return m.VpnId
	}
	return ""
}

// GetRouterId returns the ID of the associated router.
func (m *RouterAssociation) GetRouterId() string {
	if m != nil {
		return m.RouterId
	}
	return ""
}

// KeyPrefix returns the key prefix identifying all router associations
// in the data store.
func KeyPrefix() string {
	return modelkey.KeyPrefix(Keyword)
}

// Key returns the key under which a given association is stored
// in the data store.
func Key(id string) string {
	return modelkey.Key(Keyword, id)
}

// ParseIDFromKey parses the association ID from the associated
// data-store key.
func ParseIDFromKey(key string) (id string, err error) {
	return modelkey.ParseIDFromKey(Keyword, key)
}

func init() {
	proto.RegisterType((*RouterAssociation)(nil), "bgpvpn.RouterAssociation")
}
