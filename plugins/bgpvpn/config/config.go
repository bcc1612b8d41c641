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

// Package config defines the configuration of the bgpvpn plugin.
package config

// Config holds the bgpvpn plugin configuration.
type Config struct {
	// VrfIdBase is the first VPP VRF table ID used for VPN VRFs.
	// IDs below the base are left for the base networking (main/pod VRFs).
	VrfIdBase uint32 `json:"vrfIdBase"`

	// DefaultASN is used in route distinguishers fabricated for nodes
	// that do not fit into the RD list of the VPN.
	DefaultASN uint32 `json:"defaultASN"`

	// NodeIP overrides the IP address used as the VXLAN tunnel source
	// and the BGP next hop. Discovered from host links when empty.
	NodeIP string `json:"nodeIP"`

	// HostInterconnect is the name of the host-side interface used as
	// the outgoing interface of mirrored Linux routes.
	HostInterconnect string `json:"hostInterconnect"`

	// MplsLabelBase is the first MPLS label assigned to VPN VRFs
	// (label = base + VRF id offset).
	MplsLabelBase uint32 `json:"mplsLabelBase"`

	// VxlanPeers lists the VTEP addresses of the other nodes towards
	// which l2 VPN bridge domains are extended with VXLAN tunnels.
	VxlanPeers []string `json:"vxlanPeers"`
}

// DefaultConfig returns configuration for the bgpvpn plugin with default values.
func DefaultConfig() *Config {
	return &Config{
		VrfIdBase:        10,
		DefaultASN:       64512,
		HostInterconnect: "tap-vpp2",
		MplsLabelBase:    100000,
	}
}
