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

// Package dbresources lists all the BGP VPN resources stored in the data
// store by the API server and watched by the per-node agents.
package dbresources

import (
	"github.com/gogo/protobuf/proto"

	"github.com/ligato/cn-infra/servicelabel"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	controller_api "github.com/bestjie/networking-bgpvpn/plugins/controller/api"
)

// GetDBResources returns metadata for all the resources of the BGP VPN
// data model. Key prefixes are absolute, i.e. prefixed with the agent
// prefix of the API server which writes them.
func GetDBResources() []*controller_api.DBResource {
	serverPrefix := servicelabel.GetDifferentAgentPrefix(modelkey.MicroserviceLabel)
	return []*controller_api.DBResource{
		{
			Keyword:          vpn.Keyword,
			ProtoMessageName: proto.MessageName((*vpn.VPN)(nil)),
			KeyPrefix:        serverPrefix + vpn.KeyPrefix(),
		},
		{
			Keyword:          netassoc.Keyword,
			ProtoMessageName: proto.MessageName((*netassoc.NetworkAssociation)(nil)),
			KeyPrefix:        serverPrefix + netassoc.KeyPrefix(),
		},
		{
			Keyword:          routerassoc.Keyword,
			ProtoMessageName: proto.MessageName((*routerassoc.RouterAssociation)(nil)),
			KeyPrefix:        serverPrefix + routerassoc.KeyPrefix(),
		},
		{
			Keyword:          network.Keyword,
			ProtoMessageName: proto.MessageName((*network.Network)(nil)),
			KeyPrefix:        serverPrefix + network.KeyPrefix(),
		},
		{
			Keyword:          router.Keyword,
			ProtoMessageName: proto.MessageName((*router.Router)(nil)),
			KeyPrefix:        serverPrefix + router.KeyPrefix(),
		},
	}
}
