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

// Package processor computes the set of VPN attachments local to this node
// from the datastore snapshot and feeds them to the registered renderers.
package processor

import (
	"fmt"
	"sort"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/bestjie/networking-bgpvpn/pkg/rtrd"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/config"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer"
	controller "github.com/bestjie/networking-bgpvpn/plugins/controller/api"
)

// BGPVPNProcessor joins VPNs with their associations and the local
// network/router inventory. The result of the join, a set of VPNAttachments,
// is diffed against the previously rendered state and the difference is
// pushed to every registered renderer.
type BGPVPNProcessor struct {
	Deps

	renderers []renderer.BGPVPNRendererAPI

	// datastore mirror, keyed by resource ID
	vpns         map[string]*vpn.VPN
	netAssocs    map[string]*netassoc.NetworkAssociation
	routerAssocs map[string]*routerassoc.RouterAssociation
	networks     map[string]*network.Network
	routers      map[string]*router.Router

	// currently rendered attachments, keyed by attachment key
	attachments map[string]*renderer.VPNAttachment
}

// Deps lists dependencies of the BGPVPN processor.
type Deps struct {
	Log          logging.Logger
	ServiceLabel servicelabel.ReaderAPI
	Config       *config.Config
}

// Init initializes the processor.
func (p *BGPVPNProcessor) Init() error {
	p.reset()
	return nil
}

// AfterInit is NOOP.
func (p *BGPVPNProcessor) AfterInit() error {
	return nil
}

// Close is NOOP.
func (p *BGPVPNProcessor) Close() error {
	return nil
}

func (p *BGPVPNProcessor) reset() {
	p.vpns = make(map[string]*vpn.VPN)
	p.netAssocs = make(map[string]*netassoc.NetworkAssociation)
	p.routerAssocs = make(map[string]*routerassoc.RouterAssociation)
	p.networks = make(map[string]*network.Network)
	p.routers = make(map[string]*router.Router)
	p.attachments = make(map[string]*renderer.VPNAttachment)
}

// RegisterRenderer registers a new renderer. Every renderer receives the
// full stream of attachment events.
func (p *BGPVPNProcessor) RegisterRenderer(r renderer.BGPVPNRendererAPI) error {
	p.renderers = append(p.renderers, r)
	return nil
}

// Resync rebuilds the processor state from the full datastore snapshot
// and lets every renderer re-synchronize against it.
func (p *BGPVPNProcessor) Resync(dbState controller.DBStateData) error {
	p.reset()

	for _, value := range dbState[vpn.Keyword] {
		if v, ok := value.(*vpn.VPN); ok {
			p.vpns[v.Id] = v
		}
	}
	for _, value := range dbState[netassoc.Keyword] {
		if a, ok := value.(*netassoc.NetworkAssociation); ok {
			p.netAssocs[a.Id] = a
		}
	}
	for _, value := range dbState[routerassoc.Keyword] {
		if a, ok := value.(*routerassoc.RouterAssociation); ok {
			p.routerAssocs[a.Id] = a
		}
	}
	for _, value := range dbState[network.Keyword] {
		if n, ok := value.(*network.Network); ok {
			p.networks[n.Id] = n
		}
	}
	for _, value := range dbState[router.Keyword] {
		if r, ok := value.(*router.Router); ok {
			p.routers[r.Id] = r
		}
	}

	p.attachments = p.recalculateAttachments()
	resyncEv := &renderer.ResyncEventData{}
	for _, attachment := range p.attachments {
		resyncEv.Attachments = append(resyncEv.Attachments, attachment)
	}
	sort.Slice(resyncEv.Attachments, func(i, j int) bool {
		return resyncEv.Attachments[i].Key() < resyncEv.Attachments[j].Key()
	})

	p.Log.Debugf("Resync with %d local VPN attachments", len(resyncEv.Attachments))
	for _, r := range p.renderers {
		if err := r.Resync(resyncEv); err != nil {
			return err
		}
	}
	return nil
}

// Update processes a single datastore change: the change is applied to the
// datastore mirror, attachments are recalculated and the difference is
// rendered.
func (p *BGPVPNProcessor) Update(event controller.Event) error {
	change, isDBChange := event.(*controller.DBStateChange)
	if !isDBChange {
		return nil
	}
	if err := p.applyChange(change); err != nil {
		return err
	}
	return p.renderDiff()
}

// Revert is NOOP (the processor handles best-effort changes only).
func (p *BGPVPNProcessor) Revert(event controller.Event) error {
	return nil
}

// applyChange updates the datastore mirror with a single change.
func (p *BGPVPNProcessor) applyChange(change *controller.DBStateChange) error {
	value := change.NewValue
	if value == nil {
		value = change.PrevValue
	}
	if value == nil {
		return nil
	}
	isDelete := change.NewValue == nil

	switch change.Resource {
	case vpn.Keyword:
		v, ok := value.(*vpn.VPN)
		if !ok {
			return fmt.Errorf("unexpected value type for resource %s", change.Resource)
		}
		if isDelete {
			delete(p.vpns, v.Id)
		} else {
			p.vpns[v.Id] = v
		}
	case netassoc.Keyword:
		a, ok := value.(*netassoc.NetworkAssociation)
		if !ok {
			return fmt.Errorf("unexpected value type for resource %s", change.Resource)
		}
		if isDelete {
			delete(p.netAssocs, a.Id)
		} else {
			p.netAssocs[a.Id] = a
		}
	case routerassoc.Keyword:
		a, ok := value.(*routerassoc.RouterAssociation)
		if !ok {
			return fmt.Errorf("unexpected value type for resource %s", change.Resource)
		}
		if isDelete {
			delete(p.routerAssocs, a.Id)
		} else {
			p.routerAssocs[a.Id] = a
		}
	case network.Keyword:
		n, ok := value.(*network.Network)
		if !ok {
			return fmt.Errorf("unexpected value type for resource %s", change.Resource)
		}
		if isDelete {
			delete(p.networks, n.Id)
		} else {
			p.networks[n.Id] = n
		}
	case router.Keyword:
		r, ok := value.(*router.Router)
		if !ok {
			return fmt.Errorf("unexpected value type for resource %s", change.Resource)
		}
		if isDelete {
			delete(p.routers, r.Id)
		} else {
			p.routers[r.Id] = r
		}
	}
	return nil
}

// renderDiff recalculates the attachments and pushes the difference against
// the previously rendered state to every renderer.
func (p *BGPVPNProcessor) renderDiff() error {
	newAttachments := p.recalculateAttachments()

	// sorted keys for deterministic rendering order
	var keys []string
	for key := range p.attachments {
		keys = append(keys, key)
	}
	for key := range newAttachments {
		if _, known := p.attachments[key]; !known {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		oldAttachment, hadOld := p.attachments[key]
		newAttachment, hasNew := newAttachments[key]
		switch {
		case !hadOld && hasNew:
			p.Log.Infof("Adding attachment %s", newAttachment)
			for _, r := range p.renderers {
				if err := r.AddAttachment(newAttachment); err != nil {
					return err
				}
			}
		case hadOld && !hasNew:
			p.Log.Infof("Deleting attachment %s", oldAttachment)
			for _, r := range p.renderers {
				if err := r.DeleteAttachment(oldAttachment); err != nil {
					return err
				}
			}
		case hadOld && hasNew && !oldAttachment.Equal(newAttachment):
			p.Log.Infof("Updating attachment %s", newAttachment)
			for _, r := range p.renderers {
				if err := r.UpdateAttachment(oldAttachment, newAttachment); err != nil {
					return err
				}
			}
		}
	}

	p.attachments = newAttachments
	return nil
}

// recalculateAttachments joins VPNs, associations and the local inventory
// into the set of attachments local to this node.
func (p *BGPVPNProcessor) recalculateAttachments() map[string]*renderer.VPNAttachment {
	attachments := make(map[string]*renderer.VPNAttachment)
	nodeLabel := p.ServiceLabel.GetAgentLabel()
	vrfIDs := p.vrfAssignment()

	for _, assoc := range p.netAssocs {
		v := p.vpns[assoc.VpnId]
		net := p.networks[assoc.NetworkId]
		if v == nil || net == nil || net.Node != nodeLabel {
			continue
		}
		attachment := p.newAttachment(v, renderer.AttachmentKindNetwork, net.Id, vrfIDs[v.Id])
		for _, subnet := range net.Subnets {
			attachment.Subnets = append(attachment.Subnets, renderer.Subnet{
				Prefix:    subnet.Prefix,
				GatewayIP: subnet.GatewayIp,
			})
		}
		if attachment.Vni == 0 {
			attachment.Vni = net.VxlanVni
		}
		attachments[attachment.Key()] = attachment
	}

	for _, assoc := range p.routerAssocs {
		v := p.vpns[assoc.VpnId]
		rtr := p.routers[assoc.RouterId]
		if v == nil || rtr == nil || rtr.Node != nodeLabel {
			continue
		}
		attachment := p.newAttachment(v, renderer.AttachmentKindRouter, rtr.Id, vrfIDs[v.Id])
		for _, iface := range rtr.Interfaces {
			net := p.networks[iface.NetworkId]
			if net == nil {
				continue
			}
			for _, subnet := range net.Subnets {
				attachment.Subnets = append(attachment.Subnets, renderer.Subnet{
					Prefix:    subnet.Prefix,
					GatewayIP: subnet.GatewayIp,
				})
			}
		}
		if assoc.AdvertiseExtraRoutes {
			for _, route := range rtr.StaticRoutes {
				attachment.StaticRoutes = append(attachment.StaticRoutes, renderer.StaticRoute{
					DstNetwork: route.DstNetwork,
					NextHop:    route.NextHop,
				})
			}
		}
		attachments[attachment.Key()] = attachment
	}

	return attachments
}

// newAttachment builds the VPN-level part of an attachment.
func (p *BGPVPNProcessor) newAttachment(v *vpn.VPN, kind, targetID string, vrfID uint32) *renderer.VPNAttachment {
	return &renderer.VPNAttachment{
		VpnId:              v.Id,
		Kind:               kind,
		TargetId:           targetID,
		VpnType:            v.Type,
		ImportTargets:      rtrd.Union(v.RouteTargets, v.ImportTargets),
		ExportTargets:      rtrd.Union(v.RouteTargets, v.ExportTargets),
		RouteDistinguisher: p.selectRD(v),
		Vni:                v.Vni,
		VrfId:              vrfID,
	}
}

// vrfAssignment deterministically maps VPN IDs onto VPP VRF table IDs.
// All nodes see the same datastore snapshot, so they converge to the same
// assignment.
func (p *BGPVPNProcessor) vrfAssignment() map[string]uint32 {
	var ids []string
	for id := range p.vpns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	assignment := make(map[string]uint32)
	for i, id := range ids {
		assignment[id] = p.Config.VrfIdBase + uint32(i)
	}
	return assignment
}

// selectRD picks the route distinguisher this node uses for routes of the
// given VPN. Nodes hosting the VPN are ordered by their labels and each
// takes the RD from the VPN list by its index. Nodes beyond the list length
// derive an RD from the first one, or fabricate one when the list is empty.
func (p *BGPVPNProcessor) selectRD(v *vpn.VPN) string {
	nodes := p.nodesOfVPN(v.Id)
	nodeLabel := p.ServiceLabel.GetAgentLabel()
	nodeIdx := len(nodes)
	for i, node := range nodes {
		if node == nodeLabel {
			nodeIdx = i
			break
		}
	}
	if nodeIdx == len(nodes) {
		// the node hosts no attachment of the VPN yet, take the first
		// index beyond the listed nodes instead of clashing with one of them
		p.Log.Warnf("Node %s not found among the nodes of VPN %s", nodeLabel, v.Id)
	}

	rds := v.RouteDistinguishers
	if nodeIdx < len(rds) {
		return rds[nodeIdx]
	}
	if len(rds) > 0 {
		parsed, err := rtrd.ParseRouteDistinguisher(rds[0])
		if err == nil {
			return deriveRD(parsed, rds, nodeIdx-len(rds))
		}
		p.Log.Warnf("Unable to parse RD %s of VPN %s: %v", rds[0], v.Id, err)
	}
	return fmt.Sprintf("%d:%d", p.Config.DefaultASN, uint32(nodeIdx)+1)
}

// deriveRD fabricates the route distinguisher of the <offset>-th node beyond
// the configured RD list by incrementing the assigned number of the first
// listed RD, skipping values explicitly listed for other nodes.
func deriveRD(base rtrd.Value, rds []string, offset int) string {
	taken := make(map[string]bool)
	for _, rd := range rds {
		taken[rd] = true
	}
	derived := base
	for {
		derived.Assigned++
		if taken[derived.String()] {
			continue
		}
		if offset == 0 {
			return derived.String()
		}
		offset--
	}
}

// nodesOfVPN returns the sorted set of node labels hosting attachments
// of the given VPN.
func (p *BGPVPNProcessor) nodesOfVPN(vpnID string) []string {
	nodeSet := make(map[string]bool)
	for _, assoc := range p.netAssocs {
		if assoc.VpnId != vpnID {
			continue
		}
		if net := p.networks[assoc.NetworkId]; net != nil && net.Node != "" {
			nodeSet[net.Node] = true
		}
	}
	for _, assoc := range p.routerAssocs {
		if assoc.VpnId != vpnID {
			continue
		}
		if rtr := p.routers[assoc.RouterId]; rtr != nil && rtr.Node != "" {
			nodeSet[rtr.Node] = true
		}
	}
	var nodes []string
	for node := range nodeSet {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}
