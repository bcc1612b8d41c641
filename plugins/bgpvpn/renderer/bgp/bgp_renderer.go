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

// Package bgp implements the renderer that originates VPNv4 and EVPN
// routes for local VPN attachments through the embedded BGP speaker.
package bgp

import (
	"github.com/pkg/errors"

	"github.com/ligato/cn-infra/logging"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpspeaker"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/config"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer"
	"github.com/bestjie/networking-bgpvpn/plugins/stats"
)

// Renderer translates VPN attachments into BGP route advertisements.
// Every subnet and static route of an l3 attachment becomes one VPNv4
// path labeled with the MPLS label of the attachment VRF; every l2
// attachment becomes one EVPN inclusive multicast path carrying the VNI.
type Renderer struct {
	Deps

	// paths announced for each attachment, by attachment key
	announced map[string][]*bgpspeaker.Path
}

// Deps lists dependencies of the BGP renderer.
type Deps struct {
	Log     logging.Logger
	Config  *config.Config
	Speaker bgpspeaker.API
	Stats   stats.API /* nil if stats are disabled */
}

// Init initializes the renderer.
func (rndr *Renderer) Init() error {
	rndr.announced = make(map[string][]*bgpspeaker.Path)
	if rndr.Config == nil {
		rndr.Config = config.DefaultConfig()
	}
	return nil
}

// AddAttachment announces the routes of a newly added VPN attachment.
func (rndr *Renderer) AddAttachment(attachment *renderer.VPNAttachment) error {
	rndr.Log.Infof("Announcing routes for new attachment %s", attachment.Key())

	paths := rndr.attachmentPaths(attachment)
	if err := rndr.announce(paths); err != nil {
		return err
	}
	rndr.announced[attachment.Key()] = paths
	rndr.pushStats()
	return nil
}

// UpdateAttachment reflects a change in the configuration of an existing
// attachment. Stale paths are withdrawn, new ones announced, unchanged
// paths are re-announced to refresh their attributes.
func (rndr *Renderer) UpdateAttachment(oldAttachment, newAttachment *renderer.VPNAttachment) error {
	rndr.Log.Infof("Updating routes for attachment %s", newAttachment.Key())

	newPaths := rndr.attachmentPaths(newAttachment)
	desired := make(map[string]bool)
	for _, path := range newPaths {
		desired[path.Key()] = true
	}
	for _, path := range rndr.announced[oldAttachment.Key()] {
		if desired[path.Key()] {
			continue
		}
		if err := rndr.Speaker.WithdrawPath(path); err != nil {
			return rndr.logError(err)
		}
	}
	if err := rndr.announce(newPaths); err != nil {
		return err
	}
	delete(rndr.announced, oldAttachment.Key())
	rndr.announced[newAttachment.Key()] = newPaths
	rndr.pushStats()
	return nil
}

// DeleteAttachment withdraws all the routes of a removed attachment.
func (rndr *Renderer) DeleteAttachment(attachment *renderer.VPNAttachment) error {
	rndr.Log.Infof("Withdrawing routes for removed attachment %s", attachment.Key())

	for _, path := range rndr.announced[attachment.Key()] {
		if err := rndr.Speaker.WithdrawPath(path); err != nil {
			return rndr.logError(err)
		}
	}
	delete(rndr.announced, attachment.Key())
	rndr.pushStats()
	return nil
}

// Resync reconciles the paths originated by the speaker with the
// snapshot of local attachments.
func (rndr *Renderer) Resync(resyncEv *renderer.ResyncEventData) error {
	rndr.announced = make(map[string][]*bgpspeaker.Path)
	desired := make(map[string]*bgpspeaker.Path)
	for _, attachment := range resyncEv.Attachments {
		paths := rndr.attachmentPaths(attachment)
		rndr.announced[attachment.Key()] = paths
		for _, path := range paths {
			desired[path.Key()] = path
		}
	}

	// withdraw obsolete paths left over from the previous life of the speaker
	for _, path := range rndr.Speaker.ListPaths() {
		if _, wanted := desired[path.Key()]; wanted {
			continue
		}
		if err := rndr.Speaker.WithdrawPath(path); err != nil {
			return rndr.logError(err)
		}
	}

	for _, path := range desired {
		if err := rndr.Speaker.AnnouncePath(path); err != nil {
			return rndr.logError(err)
		}
	}
	rndr.pushStats()
	return nil
}

// announce originates the given set of paths.
func (rndr *Renderer) announce(paths []*bgpspeaker.Path) error {
	for _, path := range paths {
		if err := rndr.Speaker.AnnouncePath(path); err != nil {
			return rndr.logError(err)
		}
	}
	return nil
}

// attachmentPaths computes the set of paths to originate for the
// given attachment.
func (rndr *Renderer) attachmentPaths(attachment *renderer.VPNAttachment) (paths []*bgpspeaker.Path) {
	if attachment.VpnType == vpn.TypeL2 {
		paths = append(paths, &bgpspeaker.Path{
			Family:       bgpspeaker.FamilyEVPN,
			RD:           attachment.RouteDistinguisher,
			RouteTargets: attachment.ExportTargets,
			Vni:          attachment.Vni,
			NextHop:      rndr.Config.NodeIP,
		})
		return paths
	}

	label := rndr.Config.MplsLabelBase + attachment.VrfId
	for _, subnet := range attachment.Subnets {
		paths = append(paths, &bgpspeaker.Path{
			Family:       bgpspeaker.FamilyVPNv4,
			Prefix:       subnet.Prefix,
			RD:           attachment.RouteDistinguisher,
			RouteTargets: attachment.ExportTargets,
			Label:        label,
			NextHop:      rndr.Config.NodeIP,
		})
	}
	for _, route := range attachment.StaticRoutes {
		paths = append(paths, &bgpspeaker.Path{
			Family:       bgpspeaker.FamilyVPNv4,
			Prefix:       route.DstNetwork,
			RD:           attachment.RouteDistinguisher,
			RouteTargets: attachment.ExportTargets,
			Label:        label,
			NextHop:      rndr.Config.NodeIP,
		})
	}
	return paths
}

// pushStats exports the number of currently announced routes per family.
func (rndr *Renderer) pushStats() {
	if rndr.Stats == nil {
		return
	}
	counts := map[string]int{
		bgpspeaker.FamilyVPNv4: 0,
		bgpspeaker.FamilyEVPN:  0,
	}
	for _, paths := range rndr.announced {
		for _, path := range paths {
			counts[path.Family]++
		}
	}
	for family, count := range counts {
		rndr.Stats.PushRouteCount(family, count)
	}
}

// logError counts and returns the given error.
func (rndr *Renderer) logError(err error) error {
	if err == nil {
		return nil
	}
	if rndr.Stats != nil {
		rndr.Stats.Error("bgp-renderer")
	}
	return errors.WithStack(err)
}
