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

package main

import (
	"github.com/ligato/cn-infra/agent"
	"github.com/ligato/cn-infra/health/probe"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/bestjie/networking-bgpvpn/plugins/apiserver"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
)

// BGPVPNServer exposes the BGP VPN REST API and writes the configuration
// into the data store watched by the per-node agents.
type BGPVPNServer struct {
	ServiceLabel servicelabel.ReaderAPI
	HealthProbe  *probe.Plugin
	APIServer    *apiserver.APIServer
}

func (s *BGPVPNServer) String() string {
	return "BGPVPNServer"
}

// Init is called at startup phase. Method added in order to implement Plugin interface.
func (s *BGPVPNServer) Init() error {
	return nil
}

// Close is called at cleanup phase. Method added in order to implement Plugin interface.
func (s *BGPVPNServer) Close() error {
	return nil
}

func main() {

	servicelabel.DefaultPlugin.MicroserviceLabel = modelkey.MicroserviceLabel

	bgpvpnServer := &BGPVPNServer{
		ServiceLabel: &servicelabel.DefaultPlugin,
		HealthProbe:  &probe.DefaultPlugin,
		APIServer:    &apiserver.DefaultPlugin,
	}

	a := agent.NewAgent(agent.AllPlugins(bgpvpnServer))
	if err := a.Run(); err != nil {
		logrus.DefaultLogger().Fatal(err)
	}
}
