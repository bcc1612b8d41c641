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

// Package stats implements the service driver exporting counts of BGP VPN
// resources as Prometheus gauges on the API server registry.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ligato/cn-infra/logging"
	prometheusplugin "github.com/ligato/cn-infra/rpc/prometheus"

	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
)

const (
	metricsPath = "/metrics"

	vpnCountMetric   = "bgpvpn_vpns"
	assocCountMetric = "bgpvpn_associations"

	typeLabel = "type"
	kindLabel = "kind"

	kindNetwork = "network"
	kindRouter  = "router"
)

// Driver maintains Prometheus gauges with resource counts.
type Driver struct {
	driver.DriverBase

	log        logging.Logger
	vpnCount   *prometheus.GaugeVec
	assocCount *prometheus.GaugeVec
}

// NewDriver creates the stats driver and registers its gauges with the
// provided Prometheus plugin. Returns nil driver if prom is nil.
func NewDriver(prom prometheusplugin.API, log logging.Logger) (*Driver, error) {
	if prom == nil {
		return nil, nil
	}
	d := &Driver{log: log}

	err := prom.NewRegistry(metricsPath, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError, ErrorLog: log})
	if err != nil {
		return nil, err
	}

	d.vpnCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: vpnCountMetric,
		Help: "Number of configured BGP VPNs",
	}, []string{typeLabel})
	d.assocCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: assocCountMetric,
		Help: "Number of BGP VPN associations",
	}, []string{kindLabel})

	for _, metric := range []prometheus.Collector{d.vpnCount, d.assocCount} {
		if err := prom.Register(metricsPath, metric); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// String identifies the driver in logs.
func (d *Driver) String() string {
	return "stats"
}

// CreateVPNPostcommit bumps the VPN gauge.
func (d *Driver) CreateVPNPostcommit(v *vpn.VPN) error {
	d.vpnCount.WithLabelValues(v.Type).Inc()
	return nil
}

// DeleteVPNPostcommit decrements the VPN gauge.
func (d *Driver) DeleteVPNPostcommit(v *vpn.VPN) error {
	d.vpnCount.WithLabelValues(v.Type).Dec()
	return nil
}

// CreateNetAssocPostcommit bumps the association gauge.
func (d *Driver) CreateNetAssocPostcommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error {
	d.assocCount.WithLabelValues(kindNetwork).Inc()
	return nil
}

// DeleteNetAssocPostcommit decrements the association gauge.
func (d *Driver) DeleteNetAssocPostcommit(v *vpn.VPN, assoc *netassoc.NetworkAssociation) error {
	d.assocCount.WithLabelValues(kindNetwork).Dec()
	return nil
}

// CreateRouterAssocPostcommit bumps the association gauge.
func (d *Driver) CreateRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error {
	d.assocCount.WithLabelValues(kindRouter).Inc()
	return nil
}

// DeleteRouterAssocPostcommit decrements the association gauge.
func (d *Driver) DeleteRouterAssocPostcommit(v *vpn.VPN, assoc *routerassoc.RouterAssociation) error {
	d.assocCount.WithLabelValues(kindRouter).Dec()
	return nil
}
