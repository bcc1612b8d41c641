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

// Package apiserver implements the northbound REST API of the BGP VPN
// service: CRUD for VPNs, their network/router associations and the
// network/router inventory, with validation and a pluggable service-driver
// framework. All resources are persisted into the datastore under the
// server's microservice-label prefix, from where the per-node agents
// pick them up.
package apiserver

import (
	"sync"

	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/infra"
	prometheusplugin "github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver"
	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver/autoalloc"
	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver/stats"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
	"github.com/bestjie/networking-bgpvpn/plugins/idalloc"
)

// APIServer is the plugin providing the northbound REST API.
type APIServer struct {
	Deps

	config  *Config
	store   *store
	drivers []driver.Driver

	// guards read-modify-write sequences across concurrent API requests
	mutex sync.Mutex
}

// Deps lists dependencies of the APIServer plugin.
type Deps struct {
	infra.PluginDeps

	HTTPHandlers rest.HTTPHandlers
	DB           keyval.KvProtoPlugin
	IDAlloc      idalloc.API
	Prometheus   prometheusplugin.API

	// Drivers are extra service drivers registered by the application,
	// appended after the built-in ones (autoalloc, stats).
	Drivers []driver.Driver
}

// Config holds the API server configuration.
type Config struct {
	// AutoRD enables route-distinguisher auto-allocation for VPNs
	// created without one.
	AutoRD bool `json:"autoRD"`

	// AutoRDASN is the ASN used in auto-generated route distinguishers.
	AutoRDASN uint32 `json:"autoRDASN"`

	// RDIndexMin / RDIndexMax bound the assigned-number pool for
	// auto-generated route distinguishers.
	RDIndexMin uint32 `json:"rdIndexMin"`
	RDIndexMax uint32 `json:"rdIndexMax"`

	// VniMin / VniMax bound the VNI pool for l2 VPNs created without
	// an explicit VNI.
	VniMin uint32 `json:"vniMin"`
	VniMax uint32 `json:"vniMax"`
}

// DefaultConfig returns configuration for the API server with default values.
func DefaultConfig() *Config {
	allocDefaults := autoalloc.DefaultConfig()
	return &Config{
		AutoRD:     allocDefaults.AutoRD,
		AutoRDASN:  allocDefaults.AutoRDASN,
		RDIndexMin: allocDefaults.RDIndexMin,
		RDIndexMax: allocDefaults.RDIndexMax,
		VniMin:     allocDefaults.VniMin,
		VniMax:     allocDefaults.VniMax,
	}
}

// Init loads the configuration, connects the datastore broker, instantiates
// the built-in drivers and registers the REST handlers.
func (p *APIServer) Init() error {
	if err := p.loadConfig(); err != nil {
		return err
	}

	broker := p.DB.NewBroker(servicelabel.GetDifferentAgentPrefix(modelkey.MicroserviceLabel))
	p.store = newStore(broker)

	if p.IDAlloc != nil {
		p.drivers = append(p.drivers, autoalloc.NewDriver(p.IDAlloc, &autoalloc.Config{
			AutoRD:     p.config.AutoRD,
			AutoRDASN:  p.config.AutoRDASN,
			RDIndexMin: p.config.RDIndexMin,
			RDIndexMax: p.config.RDIndexMax,
			VniMin:     p.config.VniMin,
			VniMax:     p.config.VniMax,
		}, p.Log))
	}
	statsDriver, err := stats.NewDriver(p.Prometheus, p.Log)
	if err != nil {
		return err
	}
	if statsDriver != nil {
		p.drivers = append(p.drivers, statsDriver)
	}
	p.drivers = append(p.drivers, p.Drivers...)

	for _, d := range p.drivers {
		p.Log.Infof("Registered service driver: %s", d)
	}

	p.registerRESTHandlers()
	return nil
}

// Close cleans up the resources.
func (p *APIServer) Close() error {
	return nil
}

// loadConfig loads the configuration file for the plugin.
func (p *APIServer) loadConfig() error {
	p.config = DefaultConfig()
	if p.Cfg == nil {
		return nil
	}
	found, err := p.Cfg.LoadValue(p.config)
	if err != nil {
		return err
	}
	if !found {
		p.Log.Debugf("%s config not found, using defaults", p.PluginName)
	}
	p.Log.Infof("%s config: %+v", p.PluginName, *p.config)
	return nil
}

// driversForType returns registered drivers handling the given VPN type.
func (p *APIServer) driversForType(vpnType string) (drivers []driver.Driver) {
	for _, d := range p.drivers {
		if driver.SupportsType(d, vpnType) {
			drivers = append(drivers, d)
		}
	}
	return drivers
}
