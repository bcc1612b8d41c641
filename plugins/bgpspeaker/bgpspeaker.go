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

// Package bgpspeaker embeds a GoBGP speaker into the agent. The speaker
// maintains the BGP sessions towards the configured neighbors (VPNv4 and
// EVPN address families) and exposes a simple announce/withdraw API used
// by the bgp renderer to originate routes for local VPN attachments.
package bgpspeaker

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"

	bgpapi "github.com/osrg/gobgp/api"
	gobgp "github.com/osrg/gobgp/pkg/server"
)

// API defines the methods provided by the BGP speaker for use by
// the bgp renderer.
type API interface {
	// AnnouncePath originates the given path.
	AnnouncePath(path *Path) error

	// WithdrawPath withdraws a previously announced path.
	WithdrawPath(path *Path) error

	// ListPaths returns all the paths currently originated by this speaker.
	ListPaths() []*Path
}

// Plugin embeds the GoBGP speaker.
type Plugin struct {
	Deps

	config *Config
	server *gobgp.BgpServer

	// paths originated by this speaker, by path key
	mutex     sync.Mutex
	announced map[string]*Path
}

// Deps lists dependencies of the bgpspeaker plugin.
type Deps struct {
	infra.PluginDeps

	HTTPHandlers rest.HTTPHandlers
}

// Config holds the BGP speaker configuration.
type Config struct {
	// ASN is the local autonomous system number.
	ASN uint32 `json:"asn"`

	// RouterID is the BGP identifier. Discovered from host links
	// when empty.
	RouterID string `json:"routerID"`

	// ListenPort is the local BGP port. Use -1 to disable the listener
	// (the speaker then only connects actively).
	ListenPort int32 `json:"listenPort"`

	// Neighbors lists the BGP peers of this node.
	Neighbors []Neighbor `json:"neighbors"`
}

// Neighbor is a single BGP peer.
type Neighbor struct {
	Address string `json:"address"`
	ASN     uint32 `json:"asn"`
}

// DefaultConfig returns configuration for the bgpspeaker plugin with
// default values.
func DefaultConfig() *Config {
	return &Config{
		ASN:        64512,
		ListenPort: 179,
	}
}

// Init loads the configuration, starts the BGP server and connects
// the configured neighbors.
func (p *Plugin) Init() error {
	p.announced = make(map[string]*Path)

	p.config = DefaultConfig()
	if p.Cfg != nil {
		found, err := p.Cfg.LoadValue(p.config)
		if err != nil {
			return err
		}
		if !found {
			p.Log.Debugf("%s config not found, using defaults", p.PluginName)
		}
	}

	routerID := p.config.RouterID
	if routerID == "" {
		var err error
		routerID, err = discoverRouterID()
		if err != nil {
			return errors.Wrap(err, "failed to discover the BGP router ID")
		}
		p.Log.Infof("Discovered BGP router ID: %s", routerID)
	}

	p.server = gobgp.NewBgpServer()
	go p.server.Serve()

	err := p.server.StartBgp(context.Background(), &bgpapi.StartBgpRequest{
		Global: &bgpapi.Global{
			As:         p.config.ASN,
			RouterId:   routerID,
			ListenPort: p.config.ListenPort,
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to start the BGP speaker")
	}

	for _, neighbor := range p.config.Neighbors {
		if err := p.addNeighbor(neighbor); err != nil {
			return err
		}
	}

	p.registerRESTHandlers()

	p.Log.Infof("BGP speaker started (ASN %d, router ID %s, %d neighbors)",
		p.config.ASN, routerID, len(p.config.Neighbors))
	return nil
}

// Close stops the BGP server.
func (p *Plugin) Close() error {
	if p.server == nil {
		return nil
	}
	return p.server.StopBgp(context.Background(), &bgpapi.StopBgpRequest{})
}

// addNeighbor connects a single BGP peer with the VPNv4 and EVPN
// address families enabled.
func (p *Plugin) addNeighbor(neighbor Neighbor) error {
	err := p.server.AddPeer(context.Background(), &bgpapi.AddPeerRequest{
		Peer: &bgpapi.Peer{
			Conf: &bgpapi.PeerConf{
				NeighborAddress: neighbor.Address,
				PeerAs:          neighbor.ASN,
			},
			AfiSafis: []*bgpapi.AfiSafi{
				{
					Config: &bgpapi.AfiSafiConfig{
						Family:  vpnv4Family,
						Enabled: true,
					},
				},
				{
					Config: &bgpapi.AfiSafiConfig{
						Family:  evpnFamily,
						Enabled: true,
					},
				},
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to add BGP neighbor %s", neighbor.Address)
	}
	return nil
}

// AnnouncePath originates the given path.
func (p *Plugin) AnnouncePath(path *Path) error {
	apiPath, err := toAPIPath(path)
	if err != nil {
		return err
	}
	_, err = p.server.AddPath(context.Background(), &bgpapi.AddPathRequest{
		TableType: bgpapi.TableType_GLOBAL,
		Path:      apiPath,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to announce path %s", path.Key())
	}

	p.mutex.Lock()
	p.announced[path.Key()] = path
	p.mutex.Unlock()

	p.Log.Debugf("Announced path %s", path.Key())
	return nil
}

// WithdrawPath withdraws a previously announced path.
func (p *Plugin) WithdrawPath(path *Path) error {
	apiPath, err := toAPIPath(path)
	if err != nil {
		return err
	}
	err = p.server.DeletePath(context.Background(), &bgpapi.DeletePathRequest{
		TableType: bgpapi.TableType_GLOBAL,
		Path:      apiPath,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to withdraw path %s", path.Key())
	}

	p.mutex.Lock()
	delete(p.announced, path.Key())
	p.mutex.Unlock()

	p.Log.Debugf("Withdrawn path %s", path.Key())
	return nil
}

// ListPaths returns all the paths currently originated by this speaker.
func (p *Plugin) ListPaths() []*Path {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var paths []*Path
	for _, path := range p.announced {
		paths = append(paths, path)
	}
	return paths
}
