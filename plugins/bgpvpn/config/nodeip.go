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

package config

import (
	"net"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// DiscoverNodeIP returns the first global unicast IPv4 address found on
// a host link that is up. It is used as the VXLAN tunnel source and the
// BGP next hop when the node IP is not configured explicitly.
func DiscoverNodeIP() (string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return "", errors.Wrap(err, "failed to list host links")
	}
	for _, link := range links {
		if link.Attrs().Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return "", errors.Wrapf(err, "failed to list addresses of link %s",
				link.Attrs().Name)
		}
		for _, addr := range addrs {
			if addr.IP.IsLoopback() || !addr.IP.IsGlobalUnicast() {
				continue
			}
			return addr.IP.String(), nil
		}
	}
	return "", errors.New("no usable IPv4 address found on host links")
}
