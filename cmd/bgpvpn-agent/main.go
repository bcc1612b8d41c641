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
	"github.com/ligato/cn-infra/db/keyval/bolt"
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/health/probe"
	"github.com/ligato/cn-infra/health/statuscheck"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/ligato/vpp-agent/plugins/govppmux"
	"github.com/ligato/vpp-agent/plugins/kvscheduler"
	linux_ifplugin "github.com/ligato/vpp-agent/plugins/linux/ifplugin"
	linux_l3plugin "github.com/ligato/vpp-agent/plugins/linux/l3plugin"
	linux_nsplugin "github.com/ligato/vpp-agent/plugins/linux/nsplugin"
	vpp_ifplugin "github.com/ligato/vpp-agent/plugins/vpp/ifplugin"
	vpp_l2plugin "github.com/ligato/vpp-agent/plugins/vpp/l2plugin"
	vpp_l3plugin "github.com/ligato/vpp-agent/plugins/vpp/l3plugin"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpspeaker"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn"
	"github.com/bestjie/networking-bgpvpn/plugins/controller"
	controller_api "github.com/bestjie/networking-bgpvpn/plugins/controller/api"
	"github.com/bestjie/networking-bgpvpn/plugins/dbresources"
	"github.com/bestjie/networking-bgpvpn/plugins/stats"
)

// BGPVPNAgent watches the BGP VPN configuration in the data store and
// renders the attachments local to this node into the VPP/Linux dataplane
// and BGP route advertisements.
type BGPVPNAgent struct {
	ServiceLabel servicelabel.ReaderAPI
	HealthProbe  *probe.Plugin
	StatusCheck  *statuscheck.Plugin
	HTTPHandlers *rest.Plugin
	Prometheus   *prometheus.Plugin

	KVScheduler *kvscheduler.Scheduler
	GoVPP       *govppmux.Plugin

	VPPIfPlugin   *vpp_ifplugin.IfPlugin
	VPPL2Plugin   *vpp_l2plugin.L2Plugin
	VPPL3Plugin   *vpp_l3plugin.L3Plugin
	LinuxIfPlugin *linux_ifplugin.IfPlugin
	LinuxL3Plugin *linux_l3plugin.L3Plugin
	LinuxNsPlugin *linux_nsplugin.NsPlugin

	Controller *controller.Controller
	BGPSpeaker *bgpspeaker.Plugin
	Stats      *stats.Plugin
	BGPVPN     *bgpvpn.Plugin
}

func (a *BGPVPNAgent) String() string {
	return "BGPVPNAgent"
}

// Init is called at startup phase. Method added in order to implement Plugin interface.
func (a *BGPVPNAgent) Init() error {
	return nil
}

// Close is called at cleanup phase. Method added in order to implement Plugin interface.
func (a *BGPVPNAgent) Close() error {
	return nil
}

func main() {

	bgpvpnPlugin := &bgpvpn.DefaultPlugin

	controllerPlugin := controller.NewPlugin(controller.UseDeps(func(deps *controller.Deps) {
		deps.LocalDB = &bolt.DefaultPlugin
		deps.RemoteDB = &etcd.DefaultPlugin
		deps.DBResources = dbresources.GetDBResources()
		deps.EventHandlers = []controller_api.EventHandler{
			bgpvpnPlugin,
		}
	}))

	bgpvpnAgent := &BGPVPNAgent{
		ServiceLabel: &servicelabel.DefaultPlugin,
		HealthProbe:  &probe.DefaultPlugin,
		StatusCheck:  &statuscheck.DefaultPlugin,
		HTTPHandlers: &rest.DefaultPlugin,
		Prometheus:   &prometheus.DefaultPlugin,

		KVScheduler: &kvscheduler.DefaultPlugin,
		GoVPP:       &govppmux.DefaultPlugin,

		VPPIfPlugin:   &vpp_ifplugin.DefaultPlugin,
		VPPL2Plugin:   &vpp_l2plugin.DefaultPlugin,
		VPPL3Plugin:   &vpp_l3plugin.DefaultPlugin,
		LinuxIfPlugin: &linux_ifplugin.DefaultPlugin,
		LinuxL3Plugin: &linux_l3plugin.DefaultPlugin,
		LinuxNsPlugin: &linux_nsplugin.DefaultPlugin,

		Controller: controllerPlugin,
		BGPSpeaker: &bgpspeaker.DefaultPlugin,
		Stats:      &stats.DefaultPlugin,
		BGPVPN:     bgpvpnPlugin,
	}

	a := agent.NewAgent(agent.AllPlugins(bgpvpnAgent))
	if err := a.Run(); err != nil {
		logrus.DefaultLogger().Fatal(err)
	}
}
