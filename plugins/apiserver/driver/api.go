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

// Package driver defines the service-driver abstraction of the API server.
// Drivers hook into the lifecycle of BGP VPN resources: precommit methods
// run before the datastore write and may mutate or veto the request,
// postcommit methods run after a successful write.
package driver

import (
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
)

// Driver is implemented by every service driver registered with the API
// server. Precommit errors abort the operation and nothing is written into
// the datastore. Postcommit errors are logged only, the write stands.
type Driver interface {
	// String identifies the driver in logs.
	String() string

	// SupportedTypes returns the VPN types ("l2", "l3") handled by this
	// driver. The driver is skipped for VPNs of other types.
	SupportedTypes() []string

	CreateVPNPrecommit(v *vpn.VPN) error
	CreateVPNPostcommit(v *vpn.VPN) error

	// CreateVPNAbort undoes the changes made by a successful
	// CreateVPNPrecommit when a later precommit or the datastore write
	// failed and the VPN is not going to be persisted.
	CreateVPNAbort(v *vpn.VPN) error

	UpdateVPNPrecommit(oldVPN, newVPN *vpn.VPN) error
	UpdateVPNPostcommit(oldVPN, newVPN *vpn.VPN) error

	DeleteVPNPrecommit(v *vpn.VPN) error
	DeleteVPNPostcommit(v *vpn.VPN) error

	CreateNetAssocPrecommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error
	CreateNetAssocPostcommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error
	DeleteNetAssocPostcommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error

	CreateRouterAssocPrecommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error
	CreateRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error
	UpdateRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error
	DeleteRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error
}

// SupportsType tells whether the driver handles VPNs of the given type.
func SupportsType(d Driver, vpnType string) bool {
	for _, t := range d.SupportedTypes() {
		if t == vpnType {
			return true
		}
	}
	return false
}

// DriverBase is a no-op implementation of Driver meant for embedding.
type DriverBase struct{}

// SupportedTypes defaults to all VPN types.
func (b *DriverBase) SupportedTypes() []string {
	return []string{vpn.TypeL2, vpn.TypeL3}
}

// CreateVPNPrecommit is a NOOP.
func (b *DriverBase) CreateVPNPrecommit(v *vpn.VPN) error { return nil }

// CreateVPNPostcommit is a NOOP.
func (b *DriverBase) CreateVPNPostcommit(v *vpn.VPN) error { return nil }

// CreateVPNAbort is a NOOP.
func (b *DriverBase) CreateVPNAbort(v *vpn.VPN) error { return nil }

// UpdateVPNPrecommit is a NOOP.
func (b *DriverBase) UpdateVPNPrecommit(oldVPN, newVPN *vpn.VPN) error { return nil }

// UpdateVPNPostcommit is a NOOP.
func (b *DriverBase) UpdateVPNPostcommit(oldVPN, newVPN *vpn.VPN) error { return nil }

// DeleteVPNPrecommit is a NOOP.
func (b *DriverBase) DeleteVPNPrecommit(v *vpn.VPN) error { return nil }

// DeleteVPNPostcommit is a NOOP.
func (b *DriverBase) DeleteVPNPostcommit(v *vpn.VPN) error { return nil }

// CreateNetAssocPrecommit is a NOOP.
func (b *DriverBase) CreateNetAssocPrecommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error {
	return nil
}

// CreateNetAssocPostcommit is a NOOP.
func (b *DriverBase) CreateNetAssocPostcommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error {
	return nil
}

// DeleteNetAssocPostcommit is a NOOP.
func (b *DriverBase) DeleteNetAssocPostcommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error {
	return nil
}

// CreateRouterAssocPrecommit is a NOOP.
func (b *DriverBase) CreateRouterAssocPrecommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error {
	return nil
}

// CreateRouterAssocPostcommit is a NOOP.
func (b *DriverBase) CreateRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error {
	return nil
}

// UpdateRouterAssocPostcommit is a NOOP.
func (b *DriverBase) UpdateRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error {
	return nil
}

// DeleteRouterAssocPostcommit is a NOOP.
func (b *DriverBase) DeleteRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error {
	return nil
}
