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

package bgpvpn

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpspeaker"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/config"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/processor"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer/bgp"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/renderer/vpp"
	controller "github.com/bestjie/networking-bgpvpn/plugins/controller/api"
	"github.com/bestjie/networking-bgpvpn/plugins/stats"
)

// Plugin watches the BGP VPN configuration written by the API server into
// the data store and renders the VPN attachments local to this node into
// the VPP dataplane configuration and BGP route advertisements.
type Plugin struct {
	Deps

	config *config.Config

	// ongoing transaction
	resyncTxn controller.ResyncOperations
	updateTxn controller.UpdateOperations
	changes   []string

	// layers of the bgpvpn plugin
	processor   *processor.BGPVPNProcessor
	vppRenderer *vpp.Renderer
	bgpRenderer *bgp.Renderer
}

// Deps defines dependencies of the bgpvpn plugin.
type Deps struct {
	infra.PluginDeps
	ServiceLabel servicelabel.ReaderAPI
	BGPSpeaker   bgpspeaker.API /* used by the bgp renderer to originate routes */
	Stats        stats.API      /* used for exporting the statistics */
}

// Init initializes the bgpvpn plugin layers.
func (p *Plugin) Init() error {
	var err error

	// load configuration
	p.config = config.DefaultConfig()
	_, err = p.Cfg.LoadValue(p.config)
	if err != nil {
		return err
	}
	p.Log.Infof("BGP VPN plugin configuration: %+v", *p.config)

	if p.config.NodeIP == "" {
		p.config.NodeIP, err = config.DiscoverNodeIP()
		if err != nil {
			return errors.Wrap(err, "unable to determine the node IP")
		}
		p.Log.Infof("Discovered node IP: %s", p.config.NodeIP)
	}

	p.processor = &processor.BGPVPNProcessor{
		Deps: processor.Deps{
			Log:          p.Log.NewLogger("-bgpvpnProcessor"),
			ServiceLabel: p.ServiceLabel,
			Config:       p.config,
		},
	}

	p.vppRenderer = &vpp.Renderer{
		Deps: vpp.Deps{
			Log:    p.Log.NewLogger("-vppRenderer"),
			Config: p.config,
			UpdateTxnFactory: func(change string) controller.UpdateOperations {
				p.changes = append(p.changes, change)
				return p.updateTxn
			},
			ResyncTxnFactory: func() controller.ResyncOperations {
				return p.resyncTxn
			},
			Stats: p.Stats,
		},
	}

	p.bgpRenderer = &bgp.Renderer{
		Deps: bgp.Deps{
			Log:     p.Log.NewLogger("-bgpRenderer"),
			Config:  p.config,
			Speaker: p.BGPSpeaker,
			Stats:   p.Stats,
		},
	}

	p.processor.Init()
	p.vppRenderer.Init()
	p.bgpRenderer.Init()

	// Register renderers.
	p.processor.RegisterRenderer(p.vppRenderer)
	if p.BGPSpeaker != nil {
		p.processor.RegisterRenderer(p.bgpRenderer)
	} else {
		p.Log.Warn("No BGP speaker provided, routes of local attachments will not be advertised")
	}
	return nil
}

// AfterInit can be used by renderers to run additional initialization
// once all the plugins are initialized.
func (p *Plugin) AfterInit() error {
	p.processor.AfterInit()
	p.vppRenderer.AfterInit()
	return nil
}

// HandlesEvent selects:
//  - any resync event
//  - DBStateChange for VPNs, associations and the network/router inventory
func (p *Plugin) HandlesEvent(event controller.Event) bool {
	if event.Method() != controller.Update {
		return true
	}
	if change, isDBChange := event.(*controller.DBStateChange); isDBChange {
		switch change.Resource {
		case vpn.Keyword:
			return true
		case netassoc.Keyword:
			return true
		case routerassoc.Keyword:
			return true
		case network.Keyword:
			return true
		case router.Keyword:
			return true
		default:
			// unhandled resource change
			return false
		}
	}

	// unhandled event
	return false
}

// Resync is called by Controller to handle event that requires full
// re-synchronization.
// For startup resync, resyncCount is 1. Higher counter values identify
// run-time resync.
func (p *Plugin) Resync(event controller.Event, dbState controller.DBStateData,
	resyncCount int, txn controller.ResyncOperations) error {

	p.resyncTxn = txn
	p.updateTxn = nil
	return p.processor.Resync(dbState)
}

// Update is called for DBStateChange of the watched resources.
func (p *Plugin) Update(event controller.Event, txn controller.UpdateOperations) (changeDescription string, err error) {
	p.resyncTxn = nil
	p.updateTxn = txn
	p.changes = []string{}
	err = p.processor.Update(event)
	changeDescription = strings.Join(p.changes, ", ")
	return changeDescription, err
}

// Revert is NOOP, the watched events are not reverted.
func (p *Plugin) Revert(event controller.Event) error {
	return p.processor.Revert(event)
}

// Close cleans up the plugin resources.
func (p *Plugin) Close() error {
	return nil
}
