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

package renderer

import (
	"fmt"

	"github.com/bestjie/networking-bgpvpn/pkg/rtrd"
)

// BGPVPNRendererAPI defines the API of a BGP VPN renderer.
//
// A renderer is a pluggable component of the bgpvpn plugin, sitting below
// the processor and implementing propagation of VPN attachments into one
// specific backend. The vpp renderer translates attachments into dataplane
// configuration (VRFs, bridge domains, VXLAN tunnels, routes), while the
// bgp renderer originates and withdraws the corresponding VPNv4/EVPN routes
// through the local BGP speaker. Every registered renderer is given the
// same stream of attachments computed by the processor.
//
// Resync() passes the current snapshot of all attachments local to this
// node. Upon receipt, the renderer is supposed to make sure that its
// rendered state matches the snapshot and to resolve any discrepancies.
// Resync is always called on the agent startup, but may also be triggered
// during the runtime when a potential data loss has been detected.
type BGPVPNRendererAPI interface {
	// AddAttachment is called for a newly added VPN attachment.
	AddAttachment(attachment *VPNAttachment) error

	// UpdateAttachment informs the renderer about a change in the
	// configuration of an existing attachment.
	UpdateAttachment(oldAttachment, newAttachment *VPNAttachment) error

	// DeleteAttachment is called for every removed attachment.
	DeleteAttachment(attachment *VPNAttachment) error

	// Resync provides a complete snapshot of all local VPN attachments.
	Resync(resyncEv *ResyncEventData) error
}

// Attachment kinds.
const (
	// AttachmentKindNetwork is an attachment created by a network association.
	AttachmentKindNetwork = "network"

	// AttachmentKindRouter is an attachment created by a router association.
	AttachmentKindRouter = "router"
)

// VPNAttachment is a less-abstract, free of indirect references
// representation of one VPN association local to this node.
// It joins the VPN with the associated network or router and carries
// everything a renderer needs: parsed route targets, the route
// distinguisher selected for this node, the VNI and the local VRF,
// the local subnets and the expanded static routes.
type VPNAttachment struct {
	// VpnId identifies the VPN this attachment belongs to.
	VpnId string

	// Kind is either AttachmentKindNetwork or AttachmentKindRouter.
	Kind string

	// TargetId is the ID of the associated network or router.
	TargetId string

	// VpnType is the type of the VPN ("l2" / "l3").
	VpnType string

	// ImportTargets / ExportTargets are the effective (union-ed) route
	// targets in the canonical form.
	ImportTargets []string
	ExportTargets []string

	// RouteDistinguisher selected for routes originated by this node.
	RouteDistinguisher string

	// Vni is the VXLAN network identifier (l2 VPNs only).
	Vni uint32

	// VrfId is the VPP VRF table rendered for this attachment.
	VrfId uint32

	// Subnets are the local subnets covered by this attachment.
	Subnets []Subnet

	// StaticRoutes are extra routes to advertise and render
	// (router attachments with AdvertiseExtraRoutes only).
	StaticRoutes []StaticRoute
}

// Subnet is a single IP subnet of the attached network.
type Subnet struct {
	Prefix    string
	GatewayIP string
}

// StaticRoute is one extra route of the attached router.
type StaticRoute struct {
	DstNetwork string
	NextHop    string
}

// ResyncEventData is the snapshot of all local attachments passed to
// renderers on resync.
type ResyncEventData struct {
	Attachments []*VPNAttachment
}

// Key returns the identifier of the attachment, unique across VPNs,
// kinds and targets.
func (a *VPNAttachment) Key() string {
	return a.VpnId + "/" + a.Kind + "/" + a.TargetId
}

// String converts the attachment into a human-readable string.
func (a *VPNAttachment) String() string {
	return fmt.Sprintf("VPNAttachment <%s> {type: %s, rd: %s, import: %v, export: %v, "+
		"vni: %d, vrf: %d, subnets: %v, staticRoutes: %v}",
		a.Key(), a.VpnType, a.RouteDistinguisher, a.ImportTargets, a.ExportTargets,
		a.Vni, a.VrfId, a.Subnets, a.StaticRoutes)
}

// Equal compares two attachments for equality.
func (a *VPNAttachment) Equal(b *VPNAttachment) bool {
	if a.VpnId != b.VpnId || a.Kind != b.Kind || a.TargetId != b.TargetId ||
		a.VpnType != b.VpnType || a.RouteDistinguisher != b.RouteDistinguisher ||
		a.Vni != b.Vni || a.VrfId != b.VrfId {
		return false
	}
	if !rtrd.Equal(a.ImportTargets, b.ImportTargets) ||
		!rtrd.Equal(a.ExportTargets, b.ExportTargets) {
		return false
	}
	if len(a.Subnets) != len(b.Subnets) || len(a.StaticRoutes) != len(b.StaticRoutes) {
		return false
	}
	for i := range a.Subnets {
		if a.Subnets[i] != b.Subnets[i] {
			return false
		}
	}
	for i := range a.StaticRoutes {
		if a.StaticRoutes[i] != b.StaticRoutes[i] {
			return false
		}
	}
	return true
}
