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

package netassoc

import (
	"github.com/gogo/protobuf/proto"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
)

// Keyword identifies network associations in the data store.
const Keyword = "netassoc"

// NetworkAssociation attaches a network to a VPN instance.
type NetworkAssociation struct {
	Id        string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	TenantId  string `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
	VpnId     string `protobuf:"bytes,3,opt,name=vpn_id,json=vpnId,proto3" json:"vpn_id,omitempty"`
	NetworkId string `protobuf:"bytes,4,opt,name=network_id,json=networkId,proto3" json:"network_id,omitempty"`
}

// Reset implements the proto.Message interface.
func (m *NetworkAssociation) Reset() { *m = NetworkAssociation{} }

// String converts the association into a human-readable string.
func (m *NetworkAssociation) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*NetworkAssociation) ProtoMessage() {}

// GetVpnId returns the ID of the associated VPN.
func (m *NetworkAssociation) GetVpnId() string {
	if m != nil {
		return m.VpnId
	}
	return ""
}

// GetNetworkId returns the ID of the associated network.
func (m *NetworkAssociation) GetNetworkId() string {
	if m != nil {
		return m.NetworkId
	}
	return ""
}

// KeyPrefix returns the key prefix identifying all network associations
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
	proto.RegisterType((*NetworkAssociation)(nil), "bgpvpn.NetworkAssociation")
}
