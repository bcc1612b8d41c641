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
	"github.com/ligato/cn-infra/db/keyval"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
)

// store provides typed access to the BGP VPN resources persisted
// in the datastore.
type store struct {
	broker keyval.ProtoBroker
}

func newStore(broker keyval.ProtoBroker) *store {
	return &store{broker: broker}
}

func (s *store) getVPN(id string) (*vpn.VPN, error) {
	v := &vpn.VPN{}
	found, _, err := s.broker.GetValue(vpn.Key(id), v)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return v, nil
}

func (s *store) listVPNs() (vpns []*vpn.VPN, err error) {
	it, err := s.broker.ListValues(vpn.KeyPrefix())
	if err != nil {
		return nil, err
	}
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		v := &vpn.VPN{}
		if err = kv.GetValue(v); err != nil {
			return nil, err
		}
		vpns = append(vpns, v)
	}
	return vpns, nil
}

func (s *store) putVPN(v *vpn.VPN) error {
	return s.broker.Put(vpn.Key(v.Id), v)
}

func (s *store) deleteVPN(id string) error {
	_, err := s.broker.Delete(vpn.Key(id))
	return err
}

func (s *store) getNetAssoc(id string) (*netassoc.NetworkAssociation, error) {
	a := &netassoc.NetworkAssociation{}
	found, _, err := s.broker.GetValue(netassoc.Key(id), a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return a, nil
}

func (s *store) listNetAssocs() (assocs []*netassoc.NetworkAssociation, err error) {
	it, err := s.broker.ListValues(netassoc.KeyPrefix())
	if err != nil {
		return nil, err
	}
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		a := &netassoc.NetworkAssociation{}
		if err = kv.GetValue(a); err != nil {
			return nil, err
		}
		assocs = append(assocs, a)
	}
	return assocs, nil
}

func (s *store) putNetAssoc(a *netassoc.NetworkAssociation) error {
	return s.broker.Put(netassoc.Key(a.Id), a)
}

func (s *store) deleteNetAssoc(id string) error {
	_, err := s.broker.Delete(netassoc.Key(id))
	return err
}

func (s *store) getRouterAssoc(id string) (*routerassoc.RouterAssociation, error) {
	a := &routerassoc.RouterAssociation{}
	found, _, err := s.broker.GetValue(routerassoc.Key(id), a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return a, nil
}

func (s *store) listRouterAssocs() (assocs []*routerassoc.RouterAssociation, err error) {
	it, err := s.broker.ListValues(routerassoc.KeyPrefix())
	if err != nil {
		return nil, err
	}
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		a := &routerassoc.RouterAssociation{}
		if err = kv.GetValue(a); err != nil {
			return nil, err
		}
		assocs = append(assocs, a)
	}
	return assocs, nil
}

func (s *store) putRouterAssoc(a *routerassoc.RouterAssociation) error {
	return s.broker.Put(routerassoc.Key(a.Id), a)
}

func (s *store) deleteRouterAssoc(id string) error {
	_, err := s.broker.Delete(routerassoc.Key(id))
	return err
}

func (s *store) getNetwork(id string) (*network.Network, error) {
	n := &network.Network{}
	found, _, err := s.broker.GetValue(network.Key(id), n)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return n, nil
}

func (s *store) listNetworks() (networks []*network.Network, err error) {
	it, err := s.broker.ListValues(network.KeyPrefix())
	if err != nil {
		return nil, err
	}
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		n := &network.Network{}
		if err = kv.GetValue(n); err != nil {
			return nil, err
		}
		networks = append(networks, n)
	}
	return networks, nil
}

func (s *store) putNetwork(n *network.Network) error {
	return s.broker.Put(network.Key(n.Id), n)
}

func (s *store) deleteNetwork(id string) error {
	_, err := s.broker.Delete(network.Key(id))
	return err
}

func (s *store) getRouter(id string) (*router.Router, error) {
	r := &router.Router{}
	found, _, err := s.broker.GetValue(router.Key(id), r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return r, nil
}

func (s *store) listRouters() (routers []*router.Router, err error) {
	it, err := s.broker.ListValues(router.KeyPrefix())
	if err != nil {
		return nil, err
	}
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		r := &router.Router{}
		if err = kv.GetValue(r); err != nil {
			return nil, err
		}
		routers = append(routers, r)
	}
	return routers, nil
}

func (s *store) putRouter(r *router.Router) error {
	return s.broker.Put(router.Key(r.Id), r)
}

func (s *store) deleteRouter(id string) error {
	_, err := s.broker.Delete(router.Key(id))
	return err
}

// assocsForVPN returns all associations referencing the given VPN.
func (s *store) assocsForVPN(vpnID string) (netAssocs []*netassoc.NetworkAssociation,
	routerAssocs []*routerassoc.RouterAssociation, err error) {

	allNetAssocs, err := s.listNetAssocs()
	if err != nil {
		return nil, nil, err
	}
	for _, a := range allNetAssocs {
		if a.VpnId == vpnID {
			netAssocs = append(netAssocs, a)
		}
	}
	allRouterAssocs, err := s.listRouterAssocs()
	if err != nil {
		return nil, nil, err
	}
	for _, a := range allRouterAssocs {
		if a.VpnId == vpnID {
			routerAssocs = append(routerAssocs, a)
		}
	}
	return netAssocs, routerAssocs, nil
}
