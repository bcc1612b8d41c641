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

// Package stats exports BGP VPN agent metrics (rendered attachments,
// announced routes, event-loop errors) to Prometheus.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ligato/cn-infra/infra"
	prometheusplugin "github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/servicelabel"
)

const (
	metricsPath = "/metrics"

	attachmentCountMetric = "bgpvpn_attachments"
	routeCountMetric      = "bgpvpn_routes"
	errorCountMetric      = "bgpvpn_errors"

	nodeLabel   = "node"
	typeLabel   = "type"
	familyLabel = "family"
	partLabel   = "component"
)

// API defines the methods renderers use to export their metrics.
type API interface {
	// PushAttachmentCount sets the number of rendered attachments
	// of the given VPN type.
	PushAttachmentCount(vpnType string, count int)

	// PushRouteCount sets the number of announced routes of the given
	// address family.
	PushRouteCount(family string, count int)

	// Error increments the error counter of the given component.
	Error(component string)
}

// Plugin exports BGP VPN metrics via the Prometheus plugin.
type Plugin struct {
	Deps

	attachmentCount *prometheus.GaugeVec
	routeCount      *prometheus.GaugeVec
	errorCount      *prometheus.CounterVec
}

// Deps lists dependencies of the stats plugin.
type Deps struct {
	infra.PluginDeps

	ServiceLabel servicelabel.ReaderAPI
	Prometheus   prometheusplugin.API
}

// Init creates the metrics registry and registers the gauge vectors.
func (p *Plugin) Init() error {
	if p.Prometheus == nil {
		p.Log.Warn("No prometheus plugin provided, BGP VPN metrics will not be exported")
		return nil
	}

	err := p.Prometheus.NewRegistry(metricsPath, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError, ErrorLog: p.Log})
	if err != nil {
		return err
	}

	constLabels := prometheus.Labels{
		nodeLabel: p.ServiceLabel.GetAgentLabel(),
	}
	p.attachmentCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        attachmentCountMetric,
		Help:        "Number of VPN attachments rendered on this node",
		ConstLabels: constLabels,
	}, []string{typeLabel})
	p.routeCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        routeCountMetric,
		Help:        "Number of routes announced by this node",
		ConstLabels: constLabels,
	}, []string{familyLabel})
	p.errorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        errorCountMetric,
		Help:        "Number of errors encountered while rendering VPN attachments",
		ConstLabels: constLabels,
	}, []string{partLabel})

	for _, metric := range []prometheus.Collector{p.attachmentCount, p.routeCount, p.errorCount} {
		if err := p.Prometheus.Register(metricsPath, metric); err != nil {
			return err
		}
	}
	return nil
}

// Close is NOOP.
func (p *Plugin) Close() error {
	return nil
}

// PushAttachmentCount sets the number of rendered attachments of given VPN type.
func (p *Plugin) PushAttachmentCount(vpnType string, count int) {
	if p.attachmentCount == nil {
		return
	}
	p.attachmentCount.WithLabelValues(vpnType).Set(float64(count))
}

// PushRouteCount sets the number of announced routes of given address family.
func (p *Plugin) PushRouteCount(family string, count int) {
	if p.routeCount == nil {
		return
	}
	p.routeCount.WithLabelValues(family).Set(float64(count))
}

// Error increments the error counter of the given component.
func (p *Plugin) Error(component string) {
	if p.errorCount == nil {
		return
	}
	p.errorCount.WithLabelValues(component).Inc()
}
