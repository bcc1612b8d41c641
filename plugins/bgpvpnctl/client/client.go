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

// Package client implements the REST client of the BGP VPN API server
// used by the bgpvpnctl tool.
package client

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
)

const (
	apiPrefix      = "/bgpvpn/api/v1"
	requestTimeout = 30 * time.Second
)

// Client talks to the BGP VPN API server.
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// errorString is the error payload returned by the server.
type errorString struct {
	Error string `json:"Error"`
}

// NewClient creates a new client for the API server on the given base URL
// (e.g. http://127.0.0.1:9191).
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

/************************************ VPNs ***********************************/

// ListVPNs returns all VPNs, optionally filtered by the given query
// (e.g. "type=l3").
func (c *Client) ListVPNs(query url.Values) (vpns []*vpn.VPN, err error) {
	err = c.get(apiPrefix+"/vpns", query, &vpns)
	return vpns, err
}

// GetVPN returns a single VPN by ID.
func (c *Client) GetVPN(id string) (v *vpn.VPN, err error) {
	err = c.get(apiPrefix+"/vpns/"+id, nil, &v)
	return v, err
}

// CreateVPN creates a new VPN and returns it with the server-filled fields.
func (c *Client) CreateVPN(v *vpn.VPN) (created *vpn.VPN, err error) {
	err = c.send("POST", apiPrefix+"/vpns", v, &created)
	return created, err
}

// UpdateVPN modifies an existing VPN.
func (c *Client) UpdateVPN(v *vpn.VPN) (updated *vpn.VPN, err error) {
	err = c.send("PUT", apiPrefix+"/vpns/"+v.Id, v, &updated)
	return updated, err
}

// DeleteVPN removes a VPN by ID.
func (c *Client) DeleteVPN(id string) error {
	return c.send("DELETE", apiPrefix+"/vpns/"+id, nil, nil)
}

/***************************** network associations **************************/

// ListNetworkAssociations returns the network associations of a VPN.
func (c *Client) ListNetworkAssociations(vpnID string) (assocs []*netassoc.NetworkAssociation, err error) {
	err = c.get(apiPrefix+"/vpns/"+vpnID+"/network_associations", nil, &assocs)
	return assocs, err
}

// CreateNetworkAssociation associates a network with a VPN.
func (c *Client) CreateNetworkAssociation(vpnID, networkID string) (created *netassoc.NetworkAssociation, err error) {
	assoc := &netassoc.NetworkAssociation{NetworkId: networkID}
	err = c.send("POST", apiPrefix+"/vpns/"+vpnID+"/network_associations", assoc, &created)
	return created, err
}

// DeleteNetworkAssociation removes a network association of a VPN.
func (c *Client) DeleteNetworkAssociation(vpnID, assocID string) error {
	return c.send("DELETE", apiPrefix+"/vpns/"+vpnID+"/network_associations/"+assocID, nil, nil)
}

/****************************** router associations **************************/

// ListRouterAssociations returns the router associations of a VPN.
func (c *Client) ListRouterAssociations(vpnID string) (assocs []*routerassoc.RouterAssociation, err error) {
	err = c.get(apiPrefix+"/vpns/"+vpnID+"/router_associations", nil, &assocs)
	return assocs, err
}

// CreateRouterAssociation associates a router with a VPN.
func (c *Client) CreateRouterAssociation(vpnID, routerID string, advertiseExtraRoutes bool) (created *routerassoc.RouterAssociation, err error) {
	assoc := &routerassoc.RouterAssociation{
		RouterId:             routerID,
		AdvertiseExtraRoutes: advertiseExtraRoutes,
	}
	err = c.send("POST", apiPrefix+"/vpns/"+vpnID+"/router_associations", assoc, &created)
	return created, err
}

// UpdateRouterAssociation modifies an existing router association.
func (c *Client) UpdateRouterAssociation(vpnID string, assoc *routerassoc.RouterAssociation) (updated *routerassoc.RouterAssociation, err error) {
	err = c.send("PUT", apiPrefix+"/vpns/"+vpnID+"/router_associations/"+assoc.Id, assoc, &updated)
	return updated, err
}

// DeleteRouterAssociation removes a router association of a VPN.
func (c *Client) DeleteRouterAssociation(vpnID, assocID string) error {
	return c.send("DELETE", apiPrefix+"/vpns/"+vpnID+"/router_associations/"+assocID, nil, nil)
}

/********************************** networks *********************************/

// ListNetworks returns the network inventory.
func (c *Client) ListNetworks() (networks []*network.Network, err error) {
	err = c.get(apiPrefix+"/networks", nil, &networks)
	return networks, err
}

// GetNetwork returns a single network by ID.
func (c *Client) GetNetwork(id string) (n *network.Network, err error) {
	err = c.get(apiPrefix+"/networks/"+id, nil, &n)
	return n, err
}

// PutNetwork creates or updates a network in the inventory.
func (c *Client) PutNetwork(n *network.Network) (stored *network.Network, err error) {
	err = c.send("PUT", apiPrefix+"/networks/"+n.Id, n, &stored)
	return stored, err
}

// DeleteNetwork removes a network from the inventory.
func (c *Client) DeleteNetwork(id string) error {
	return c.send("DELETE", apiPrefix+"/networks/"+id, nil, nil)
}

/********************************** routers **********************************/

// ListRouters returns the router inventory.
func (c *Client) ListRouters() (routers []*router.Router, err error) {
	err = c.get(apiPrefix+"/routers", nil, &routers)
	return routers, err
}

// GetRouter returns a single router by ID.
func (c *Client) GetRouter(id string) (r *router.Router, err error) {
	err = c.get(apiPrefix+"/routers/"+id, nil, &r)
	return r, err
}

// PutRouter creates or updates a router in the inventory.
func (c *Client) PutRouter(r *router.Router) (stored *router.Router, err error) {
	err = c.send("PUT", apiPrefix+"/routers/"+r.Id, r, &stored)
	return stored, err
}

// DeleteRouter removes a router from the inventory.
func (c *Client) DeleteRouter(id string) error {
	return c.send("DELETE", apiPrefix+"/routers/"+id, nil, nil)
}

/********************************** plumbing *********************************/

// get sends a GET request and decodes the response into reply.
func (c *Client) get(path string, query url.Values, reply interface{}) error {
	reqURL := c.serverURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return err
	}
	return c.do(req, reply)
}

// send sends a request with a JSON body and decodes the response into
// reply (unless nil).
func (c *Client) send(method, path string, body, reply interface{}) error {
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, c.serverURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, reply)
}

// do executes the request and surfaces non-2xx responses as errors
// carrying the server-side error message.
func (c *Client) do(req *http.Request, reply interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", c.serverURL)
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverErr := errorString{}
		if err := json.Unmarshal(data, &serverErr); err == nil && serverErr.Error != "" {
			return errors.New(serverErr.Error)
		}
		return errors.Errorf("server returned %s", resp.Status)
	}
	if reply == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, reply)
}
