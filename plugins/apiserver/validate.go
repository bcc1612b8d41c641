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

package apiserver

import (
	"fmt"
	"net"
	"net/http"

	"github.com/bestjie/networking-bgpvpn/pkg/rtrd"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
)

// maxVni is the highest valid 24-bit VXLAN network identifier.
const maxVni = 1<<24 - 1

// apiError carries the HTTP status code alongside the message.
type apiError struct {
	code int
	msg  string
}

func (e *apiError) Error() string {
	return e.msg
}

func errBadRequest(format string, args ...interface{}) *apiError {
	return &apiError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func errNotFound(format string, args ...interface{}) *apiError {
	return &apiError{code: http.StatusNotFound, msg: fmt.Sprintf(format, args...)}
}

func errConflict(format string, args ...interface{}) *apiError {
	return &apiError{code: http.StatusConflict, msg: fmt.Sprintf(format, args...)}
}

// statusCode maps an error onto the HTTP status code to render.
func statusCode(err error) int {
	if apiErr, ok := err.(*apiError); ok {
		return apiErr.code
	}
	return http.StatusInternalServerError
}

// validateVPN checks the VPN resource before it is persisted.
func validateVPN(v *vpn.VPN) error {
	if v.Type != vpn.TypeL2 && v.Type != vpn.TypeL3 {
		return errBadRequest("BGPVPN type must be one of: %s, %s", vpn.TypeL2, vpn.TypeL3)
	}
	if len(v.RouteTargets) == 0 {
		return errBadRequest("Empty route target list for BGPVPN %s (MissingRouteTarget)", v.Id)
	}
	if err := rtrd.ValidateRouteTargetList(v.RouteTargets); err != nil {
		return errBadRequest("Invalid route target for BGPVPN %s: %v", v.Id, err)
	}
	if err := rtrd.ValidateRouteTargetList(v.ImportTargets); err != nil {
		return errBadRequest("Invalid import target for BGPVPN %s: %v", v.Id, err)
	}
	if err := rtrd.ValidateRouteTargetList(v.ExportTargets); err != nil {
		return errBadRequest("Invalid export target for BGPVPN %s: %v", v.Id, err)
	}
	if err := rtrd.ValidateRouteDistinguisherList(v.RouteDistinguishers); err != nil {
		return errBadRequest("Invalid route distinguisher for BGPVPN %s: %v", v.Id, err)
	}
	if v.Vni > maxVni {
		return errBadRequest("VNI %d out of range for BGPVPN %s", v.Vni, v.Id)
	}
	if v.Vni != 0 && v.Type != vpn.TypeL2 {
		return errBadRequest("VNI can only be set on l2 BGPVPN %s", v.Id)
	}
	return nil
}

// validateVPNUpdate checks constraints between the stored and the updated VPN.
func validateVPNUpdate(oldVPN, newVPN *vpn.VPN) error {
	if newVPN.Type != oldVPN.Type {
		return errBadRequest("BGPVPN %s type cannot be changed", oldVPN.Id)
	}
	if len(newVPN.RouteTargets) == 0 {
		return errBadRequest("Empty route target list for BGPVPN %s (MissingRouteTarget)", oldVPN.Id)
	}
	return validateVPN(newVPN)
}

// validateNetwork checks the network inventory resource.
func validateNetwork(n *network.Network) error {
	if n.Node == "" {
		return errBadRequest("Network %s has no node assigned", n.Id)
	}
	for _, subnet := range n.Subnets {
		if _, _, err := net.ParseCIDR(subnet.Prefix); err != nil {
			return errBadRequest("Invalid subnet prefix %s in network %s", subnet.Prefix, n.Id)
		}
		if subnet.GatewayIp != "" && net.ParseIP(subnet.GatewayIp) == nil {
			return errBadRequest("Invalid gateway IP %s in network %s", subnet.GatewayIp, n.Id)
		}
	}
	if n.VxlanVni > maxVni {
		return errBadRequest("VNI %d out of range for network %s", n.VxlanVni, n.Id)
	}
	return nil
}

// validateRouter checks the router inventory resource.
func validateRouter(r *router.Router) error {
	if r.Node == "" {
		return errBadRequest("Router %s has no node assigned", r.Id)
	}
	for _, iface := range r.Interfaces {
		if iface.NetworkId == "" {
			return errBadRequest("Router %s interface has no network assigned", r.Id)
		}
		if iface.IpAddress != "" && net.ParseIP(iface.IpAddress) == nil {
			return errBadRequest("Invalid interface IP %s in router %s", iface.IpAddress, r.Id)
		}
	}
	for _, route := range r.StaticRoutes {
		if _, _, err := net.ParseCIDR(route.DstNetwork); err != nil {
			return errBadRequest("Invalid static route destination %s in router %s", route.DstNetwork, r.Id)
		}
		if net.ParseIP(route.NextHop) == nil {
			return errBadRequest("Invalid static route next hop %s in router %s", route.NextHop, r.Id)
		}
	}
	return nil
}
