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
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
)

const (
	// URL prefix of the BGP VPN API.
	apiPrefix = "/bgpvpn/api/v1"

	vpnsURL         = apiPrefix + "/vpns"
	vpnURL          = vpnsURL + "/{vpnId}"
	netAssocsURL    = vpnURL + "/network_associations"
	netAssocURL     = netAssocsURL + "/{assocId}"
	routerAssocsURL = vpnURL + "/router_associations"
	routerAssocURL  = routerAssocsURL + "/{assocId}"
	networksURL     = apiPrefix + "/networks"
	networkURL      = networksURL + "/{networkId}"
	routersURL      = apiPrefix + "/routers"
	routerURL       = routersURL + "/{routerId}"
)

// errorString wraps an error message for JSON rendering.
type errorString struct {
	Error string
}

func (p *APIServer) registerRESTHandlers() {
	if p.HTTPHandlers == nil {
		p.Log.Warn("No http handlers provided, skipping registration of BGP VPN REST API")
		return
	}

	p.HTTPHandlers.RegisterHTTPHandler(vpnsURL, p.vpnsHandler, "GET", "POST")
	p.HTTPHandlers.RegisterHTTPHandler(vpnURL, p.vpnHandler, "GET", "PUT", "DELETE")
	p.HTTPHandlers.RegisterHTTPHandler(netAssocsURL, p.netAssocsHandler, "GET", "POST")
	p.HTTPHandlers.RegisterHTTPHandler(netAssocURL, p.netAssocHandler, "GET", "DELETE")
	p.HTTPHandlers.RegisterHTTPHandler(routerAssocsURL, p.routerAssocsHandler, "GET", "POST")
	p.HTTPHandlers.RegisterHTTPHandler(routerAssocURL, p.routerAssocHandler, "GET", "PUT", "DELETE")
	p.HTTPHandlers.RegisterHTTPHandler(networksURL, p.networksHandler, "GET")
	p.HTTPHandlers.RegisterHTTPHandler(networkURL, p.networkHandler, "GET", "PUT", "DELETE")
	p.HTTPHandlers.RegisterHTTPHandler(routersURL, p.routersHandler, "GET")
	p.HTTPHandlers.RegisterHTTPHandler(routerURL, p.routerHandler, "GET", "PUT", "DELETE")

	p.Log.Infof("BGP VPN REST API registered under %s", apiPrefix)
}

func (p *APIServer) renderError(formatter *render.Render, w http.ResponseWriter, err error) {
	p.Log.Errorf("API error: %v", err)
	formatter.JSON(w, statusCode(err), errorString{Error: err.Error()})
}

// projectFields reduces the resource to the requested set of json fields.
// With an empty field list the resource is returned as-is.
func projectFields(resource interface{}, fields []string) interface{} {
	if len(fields) == 0 {
		return resource
	}
	data, err := json.Marshal(resource)
	if err != nil {
		return resource
	}
	full := map[string]interface{}{}
	if err := json.Unmarshal(data, &full); err != nil {
		return resource
	}
	projected := map[string]interface{}{}
	for _, field := range fields {
		if val, exists := full[field]; exists {
			projected[field] = val
		}
	}
	return projected
}

func parseFields(query url.Values) (fields []string) {
	for _, raw := range query["fields"] {
		for _, field := range strings.Split(raw, ",") {
			if field = strings.TrimSpace(field); field != "" {
				fields = append(fields, field)
			}
		}
	}
	return fields
}

func decodeBody(req *http.Request, resource interface{}) error {
	body, err := ioutil.ReadAll(req.Body)
	if err != nil {
		return errBadRequest("Failed to read request body: %v", err)
	}
	if err := json.Unmarshal(body, resource); err != nil {
		return errBadRequest("Failed to parse request body: %v", err)
	}
	return nil
}

/**************************** VPN handlers ****************************/

func (p *APIServer) vpnsHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case "GET":
			vpns, err := p.listVPNsFiltered(req.URL.Query())
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			fields := parseFields(req.URL.Query())
			result := []interface{}{}
			for _, v := range vpns {
				result = append(result, projectFields(v, fields))
			}
			formatter.JSON(w, http.StatusOK, result)

		case "POST":
			v := &vpn.VPN{}
			if err := decodeBody(req, v); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			created, err := p.createVPN(v)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusCreated, created)
		}
	}
}

func (p *APIServer) vpnHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		vpnID := mux.Vars(req)["vpnId"]
		switch req.Method {
		case "GET":
			v, err := p.getVPNOr404(vpnID)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusOK, projectFields(v, parseFields(req.URL.Query())))

		case "PUT":
			body, err := ioutil.ReadAll(req.Body)
			if err != nil {
				p.renderError(formatter, w, errBadRequest("Failed to read request body: %v", err))
				return
			}
			updated, err := p.updateVPN(vpnID, body)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusOK, updated)

		case "DELETE":
			if err := p.deleteVPNByID(vpnID); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusNoContent, nil)
		}
	}
}

func (p *APIServer) listVPNsFiltered(query url.Values) ([]*vpn.VPN, error) {
	vpns, err := p.store.listVPNs()
	if err != nil {
		return nil, err
	}

	// ?network_id= filters VPNs associated with the given network
	var vpnsOfNetwork map[string]bool
	if networkID := query.Get("network_id"); networkID != "" {
		vpnsOfNetwork = map[string]bool{}
		assocs, err := p.store.listNetAssocs()
		if err != nil {
			return nil, err
		}
		for _, a := range assocs {
			if a.NetworkId == networkID {
				vpnsOfNetwork[a.VpnId] = true
			}
		}
	}

	var filtered []*vpn.VPN
	for _, v := range vpns {
		if tenantID := query.Get("tenant_id"); tenantID != "" && v.TenantId != tenantID {
			continue
		}
		if vpnType := query.Get("type"); vpnType != "" && v.Type != vpnType {
			continue
		}
		if name := query.Get("name"); name != "" && v.Name != name {
			continue
		}
		if vpnsOfNetwork != nil && !vpnsOfNetwork[v.Id] {
			continue
		}
		filtered = append(filtered, v)
	}
	return filtered, nil
}

func (p *APIServer) getVPNOr404(id string) (*vpn.VPN, error) {
	v, err := p.store.getVPN(id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errNotFound("BGPVPN %s could not be found", id)
	}
	return v, nil
}

func (p *APIServer) createVPN(v *vpn.VPN) (*vpn.VPN, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if v.Id == "" {
		v.Id = newUUID()
	}
	if existing, err := p.store.getVPN(v.Id); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, errConflict("BGPVPN %s already exists", v.Id)
	}
	if err := validateVPN(v); err != nil {
		return nil, err
	}

	drivers := p.driversForType(v.Type)
	for i, d := range drivers {
		if err := d.CreateVPNPrecommit(v); err != nil {
			p.abortCreateVPN(v, drivers[:i])
			return nil, err
		}
	}
	if err := p.store.putVPN(v); err != nil {
		p.abortCreateVPN(v, drivers)
		return nil, err
	}
	for _, d := range drivers {
		if err := d.CreateVPNPostcommit(v); err != nil {
			p.Log.Errorf("Driver %s create postcommit failed for VPN %s: %v", d, v.Id, err)
		}
	}

	p.Log.Infof("Created BGPVPN %s (type %s)", v.Id, v.Type)
	return v, nil
}

// abortCreateVPN lets the drivers whose precommit already passed undo their
// changes (e.g. release auto-allocated IDs) for a create that will not be
// persisted.
func (p *APIServer) abortCreateVPN(v *vpn.VPN, drivers []driver.Driver) {
	for _, d := range drivers {
		if err := d.CreateVPNAbort(v); err != nil {
			p.Log.Errorf("Driver %s create abort failed for VPN %s: %v", d, v.Id, err)
		}
	}
}

func (p *APIServer) updateVPN(id string, body []byte) (*vpn.VPN, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	oldVPN, err := p.getVPNOr404(id)
	if err != nil {
		return nil, err
	}

	// merge semantics: fields present in the request override stored ones
	newVPN := &vpn.VPN{}
	*newVPN = *oldVPN
	if err := json.Unmarshal(body, newVPN); err != nil {
		return nil, errBadRequest("Failed to parse request body: %v", err)
	}
	newVPN.Id = id

	if err := validateVPNUpdate(oldVPN, newVPN); err != nil {
		return nil, err
	}

	drivers := p.driversForType(oldVPN.Type)
	for _, d := range drivers {
		if err := d.UpdateVPNPrecommit(oldVPN, newVPN); err != nil {
			return nil, err
		}
	}
	if err := p.store.putVPN(newVPN); err != nil {
		return nil, err
	}
	for _, d := range drivers {
		if err := d.UpdateVPNPostcommit(oldVPN, newVPN); err != nil {
			p.Log.Errorf("Driver %s update postcommit failed for VPN %s: %v", d, id, err)
		}
	}

	p.Log.Infof("Updated BGPVPN %s", id)
	return newVPN, nil
}

func (p *APIServer) deleteVPNByID(id string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	v, err := p.getVPNOr404(id)
	if err != nil {
		return err
	}
	netAssocs, routerAssocs, err := p.store.assocsForVPN(id)
	if err != nil {
		return err
	}
	if len(netAssocs) > 0 || len(routerAssocs) > 0 {
		return errConflict("BGPVPN %s is currently in use, delete its associations first (NetworkInUse)", id)
	}

	drivers := p.driversForType(v.Type)
	for _, d := range drivers {
		if err := d.DeleteVPNPrecommit(v); err != nil {
			return err
		}
	}
	if err := p.store.deleteVPN(id); err != nil {
		return err
	}
	for _, d := range drivers {
		if err := d.DeleteVPNPostcommit(v); err != nil {
			p.Log.Errorf("Driver %s delete postcommit failed for VPN %s: %v", d, id, err)
		}
	}

	p.Log.Infof("Deleted BGPVPN %s", id)
	return nil
}

/********************* network association handlers *********************/

func (p *APIServer) netAssocsHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		vpnID := mux.Vars(req)["vpnId"]
		switch req.Method {
		case "GET":
			if _, err := p.getVPNOr404(vpnID); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			assocs, _, err := p.store.assocsForVPN(vpnID)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			fields := parseFields(req.URL.Query())
			result := []interface{}{}
			for _, a := range assocs {
				result = append(result, projectFields(a, fields))
			}
			formatter.JSON(w, http.StatusOK, result)

		case "POST":
			assoc := &netassoc.NetworkAssociation{}
			if err := decodeBody(req, assoc); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			created, err := p.createNetAssoc(vpnID, assoc)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusCreated, created)
		}
	}
}

func (p *APIServer) netAssocHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		vpnID, assocID := vars["vpnId"], vars["assocId"]
		switch req.Method {
		case "GET":
			assoc, err := p.getNetAssocOr404(vpnID, assocID)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusOK, assoc)

		case "DELETE":
			if err := p.deleteNetAssocByID(vpnID, assocID); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusNoContent, nil)
		}
	}
}

func (p *APIServer) getNetAssocOr404(vpnID, assocID string) (*netassoc.NetworkAssociation, error) {
	assoc, err := p.store.getNetAssoc(assocID)
	if err != nil {
		return nil, err
	}
	if assoc == nil || assoc.VpnId != vpnID {
		return nil, errNotFound("BGPVPN network association %s could not be found", assocID)
	}
	return assoc, nil
}

func (p *APIServer) createNetAssoc(vpnID string, assoc *netassoc.NetworkAssociation) (
	*netassoc.NetworkAssociation, error) {

	p.mutex.Lock()
	defer p.mutex.Unlock()

	v, err := p.getVPNOr404(vpnID)
	if err != nil {
		return nil, err
	}
	net, err := p.store.getNetwork(assoc.NetworkId)
	if err != nil {
		return nil, err
	}
	if net == nil {
		return nil, errNotFound("Network %s could not be found", assoc.NetworkId)
	}

	existing, err := p.store.listNetAssocs()
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.VpnId == vpnID && a.NetworkId == assoc.NetworkId {
			return nil, errConflict("BGPVPN %s is already associated with network %s",
				vpnID, assoc.NetworkId)
		}
	}

	if assoc.Id == "" {
		assoc.Id = newUUID()
	}
	assoc.VpnId = vpnID
	if assoc.TenantId == "" {
		assoc.TenantId = v.TenantId
	}

	drivers := p.driversForType(v.Type)
	for _, d := range drivers {
		if err := d.CreateNetAssocPrecommit(v, assoc); err != nil {
			return nil, err
		}
	}
	if err := p.store.putNetAssoc(assoc); err != nil {
		return nil, err
	}
	for _, d := range drivers {
		if err := d.CreateNetAssocPostcommit(v, assoc); err != nil {
			p.Log.Errorf("Driver %s net-assoc postcommit failed for VPN %s: %v", d, vpnID, err)
		}
	}

	p.Log.Infof("Associated network %s with BGPVPN %s", assoc.NetworkId, vpnID)
	return assoc, nil
}

func (p *APIServer) deleteNetAssocByID(vpnID, assocID string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	v, err := p.getVPNOr404(vpnID)
	if err != nil {
		return err
	}
	assoc, err := p.getNetAssocOr404(vpnID, assocID)
	if err != nil {
		return err
	}
	if err := p.store.deleteNetAssoc(assocID); err != nil {
		return err
	}
	for _, d := range p.driversForType(v.Type) {
		if err := d.DeleteNetAssocPostcommit(v, assoc); err != nil {
			p.Log.Errorf("Driver %s net-assoc delete postcommit failed for VPN %s: %v", d, vpnID, err)
		}
	}

	p.Log.Infof("Removed association of network %s with BGPVPN %s", assoc.NetworkId, vpnID)
	return nil
}

/********************* router association handlers *********************/

func (p *APIServer) routerAssocsHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		vpnID := mux.Vars(req)["vpnId"]
		switch req.Method {
		case "GET":
			if _, err := p.getVPNOr404(vpnID); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			_, assocs, err := p.store.assocsForVPN(vpnID)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			fields := parseFields(req.URL.Query())
			result := []interface{}{}
			for _, a := range assocs {
				result = append(result, projectFields(a, fields))
			}
			formatter.JSON(w, http.StatusOK, result)

		case "POST":
			assoc := &routerassoc.RouterAssociation{AdvertiseExtraRoutes: true}
			if err := decodeBody(req, assoc); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			created, err := p.createRouterAssoc(vpnID, assoc)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusCreated, created)
		}
	}
}

func (p *APIServer) routerAssocHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		vpnID, assocID := vars["vpnId"], vars["assocId"]
		switch req.Method {
		case "GET":
			assoc, err := p.getRouterAssocOr404(vpnID, assocID)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusOK, assoc)

		case "PUT":
			update := &routerassoc.RouterAssociation{}
			if err := decodeBody(req, update); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			updated, err := p.updateRouterAssoc(vpnID, assocID, update.AdvertiseExtraRoutes)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusOK, updated)

		case "DELETE":
			if err := p.deleteRouterAssocByID(vpnID, assocID); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusNoContent, nil)
		}
	}
}

func (p *APIServer) getRouterAssocOr404(vpnID, assocID string) (*routerassoc.RouterAssociation, error) {
	assoc, err := p.store.getRouterAssoc(assocID)
	if err != nil {
		return nil, err
	}
	if assoc == nil || assoc.VpnId != vpnID {
		return nil, errNotFound("BGPVPN router association %s could not be found", assocID)
	}
	return assoc, nil
}

func (p *APIServer) createRouterAssoc(vpnID string, assoc *routerassoc.RouterAssociation) (
	*routerassoc.RouterAssociation, error) {

	p.mutex.Lock()
	defer p.mutex.Unlock()

	v, err := p.getVPNOr404(vpnID)
	if err != nil {
		return nil, err
	}
	rtr, err := p.store.getRouter(assoc.RouterId)
	if err != nil {
		return nil, err
	}
	if rtr == nil {
		return nil, errNotFound("Router %s could not be found", assoc.RouterId)
	}

	existing, err := p.store.listRouterAssocs()
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.VpnId == vpnID && a.RouterId == assoc.RouterId {
			return nil, errConflict("BGPVPN %s is already associated with router %s",
				vpnID, assoc.RouterId)
		}
	}

	if assoc.Id == "" {
		assoc.Id = newUUID()
	}
	assoc.VpnId = vpnID
	if assoc.TenantId == "" {
		assoc.TenantId = v.TenantId
	}

	drivers := p.driversForType(v.Type)
	for _, d := range drivers {
		if err := d.CreateRouterAssocPrecommit(v, assoc); err != nil {
			return nil, err
		}
	}
	if err := p.store.putRouterAssoc(assoc); err != nil {
		return nil, err
	}
	for _, d := range drivers {
		if err := d.CreateRouterAssocPostcommit(v, assoc); err != nil {
			p.Log.Errorf("Driver %s router-assoc postcommit failed for VPN %s: %v", d, vpnID, err)
		}
	}

	p.Log.Infof("Associated router %s with BGPVPN %s", assoc.RouterId, vpnID)
	return assoc, nil
}

func (p *APIServer) updateRouterAssoc(vpnID, assocID string, advertiseExtraRoutes bool) (
	*routerassoc.RouterAssociation, error) {

	p.mutex.Lock()
	defer p.mutex.Unlock()

	v, err := p.getVPNOr404(vpnID)
	if err != nil {
		return nil, err
	}
	assoc, err := p.getRouterAssocOr404(vpnID, assocID)
	if err != nil {
		return nil, err
	}

	// only the AdvertiseExtraRoutes flag is mutable
	assoc.AdvertiseExtraRoutes = advertiseExtraRoutes
	if err := p.store.putRouterAssoc(assoc); err != nil {
		return nil, err
	}
	for _, d := range p.driversForType(v.Type) {
		if err := d.UpdateRouterAssocPostcommit(v, assoc); err != nil {
			p.Log.Errorf("Driver %s router-assoc update postcommit failed for VPN %s: %v", d, vpnID, err)
		}
	}
	return assoc, nil
}

func (p *APIServer) deleteRouterAssocByID(vpnID, assocID string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	v, err := p.getVPNOr404(vpnID)
	if err != nil {
		return err
	}
	assoc, err := p.getRouterAssocOr404(vpnID, assocID)
	if err != nil {
		return err
	}
	if err := p.store.deleteRouterAssoc(assocID); err != nil {
		return err
	}
	for _, d := range p.driversForType(v.Type) {
		if err := d.DeleteRouterAssocPostcommit(v, assoc); err != nil {
			p.Log.Errorf("Driver %s router-assoc delete postcommit failed for VPN %s: %v", d, vpnID, err)
		}
	}

	p.Log.Infof("Removed association of router %s with BGPVPN %s", assoc.RouterId, vpnID)
	return nil
}

/********************** network inventory handlers **********************/

func (p *APIServer) networksHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		networks, err := p.store.listNetworks()
		if err != nil {
			p.renderError(formatter, w, err)
			return
		}
		fields := parseFields(req.URL.Query())
		result := []interface{}{}
		for _, n := range networks {
			if tenantID := req.URL.Query().Get("tenant_id"); tenantID != "" && n.TenantId != tenantID {
				continue
			}
			result = append(result, projectFields(n, fields))
		}
		formatter.JSON(w, http.StatusOK, result)
	}
}

func (p *APIServer) networkHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		networkID := mux.Vars(req)["networkId"]
		switch req.Method {
		case "GET":
			n, err := p.store.getNetwork(networkID)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			if n == nil {
				p.renderError(formatter, w, errNotFound("Network %s could not be found", networkID))
				return
			}
			formatter.JSON(w, http.StatusOK, n)

		case "PUT":
			n := &network.Network{}
			if err := decodeBody(req, n); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			n.Id = networkID
			if err := validateNetwork(n); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			if err := p.store.putNetwork(n); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusOK, n)

		case "DELETE":
			if err := p.deleteNetworkByID(networkID); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusNoContent, nil)
		}
	}
}

func (p *APIServer) deleteNetworkByID(id string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	n, err := p.store.getNetwork(id)
	if err != nil {
		return err
	}
	if n == nil {
		return errNotFound("Network %s could not be found", id)
	}
	assocs, err := p.store.listNetAssocs()
	if err != nil {
		return err
	}
	for _, a := range assocs {
		if a.NetworkId == id {
			return errConflict("Network %s is associated with BGPVPN %s (NetworkInUse)", id, a.VpnId)
		}
	}
	return p.store.deleteNetwork(id)
}

/*********************** router inventory handlers ***********************/

func (p *APIServer) routersHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		routers, err := p.store.listRouters()
		if err != nil {
			p.renderError(formatter, w, err)
			return
		}
		fields := parseFields(req.URL.Query())
		result := []interface{}{}
		for _, r := range routers {
			if tenantID := req.URL.Query().Get("tenant_id"); tenantID != "" && r.TenantId != tenantID {
				continue
			}
			result = append(result, projectFields(r, fields))
		}
		formatter.JSON(w, http.StatusOK, result)
	}
}

func (p *APIServer) routerHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		routerID := mux.Vars(req)["routerId"]
		switch req.Method {
		case "GET":
			r, err := p.store.getRouter(routerID)
			if err != nil {
				p.renderError(formatter, w, err)
				return
			}
			if r == nil {
				p.renderError(formatter, w, errNotFound("Router %s could not be found", routerID))
				return
			}
			formatter.JSON(w, http.StatusOK, r)

		case "PUT":
			r := &router.Router{}
			if err := decodeBody(req, r); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			r.Id = routerID
			if err := validateRouter(r); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			if err := p.store.putRouter(r); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusOK, r)

		case "DELETE":
			if err := p.deleteRouterByID(routerID); err != nil {
				p.renderError(formatter, w, err)
				return
			}
			formatter.JSON(w, http.StatusNoContent, nil)
		}
	}
}

func (p *APIServer) deleteRouterByID(id string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	r, err := p.store.getRouter(id)
	if err != nil {
		return err
	}
	if r == nil {
		return errNotFound("Router %s could not be found", id)
	}
	assocs, err := p.store.listRouterAssocs()
	if err != nil {
		return err
	}
	for _, a := range assocs {
		if a.RouterId == id {
			return errConflict("Router %s is associated with BGPVPN %s (NetworkInUse)", id, a.VpnId)
		}
	}
	return p.store.deleteRouter(id)
}
