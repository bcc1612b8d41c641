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
	"net/url"
	"strings"
	"testing"

	"github.com/gogo/protobuf/proto"
	. "github.com/onsi/gomega"

	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/logging"

	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver"
	"github.com/bestjie/networking-bgpvpn/plugins/apiserver/driver/autoalloc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/netassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/network"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/router"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/routerassoc"
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/vpn"
	"github.com/bestjie/networking-bgpvpn/plugins/idalloc/allocation"
)

/**************************** mock broker ****************************/

type mockBroker struct {
	data map[string]proto.Message
}

func newMockBroker() *mockBroker {
	return &mockBroker{data: map[string]proto.Message{}}
}

func (mb *mockBroker) Put(key string, data proto.Message, opts ...datasync.PutOption) error {
	mb.data[key] = proto.Clone(data)
	return nil
}

func (mb *mockBroker) GetValue(key string, reqObj proto.Message) (found bool, rev int64, err error) {
	stored, found := mb.data[key]
	if !found {
		return false, 0, nil
	}
	tmp, err := proto.Marshal(stored)
	if err != nil {
		return false, 0, err
	}
	return true, 0, proto.Unmarshal(tmp, reqObj)
}

func (mb *mockBroker) Delete(key string, opts ...datasync.DelOption) (existed bool, err error) {
	_, existed = mb.data[key]
	delete(mb.data, key)
	return existed, nil
}

func (mb *mockBroker) NewTxn() keyval.ProtoTxn {
	return nil
}

func (mb *mockBroker) ListKeys(prefix string) (keyval.ProtoKeyIterator, error) {
	return nil, nil
}

func (mb *mockBroker) ListValues(key string) (keyval.ProtoKeyValIterator, error) {
	var match []string
	for k := range mb.data {
		if strings.HasPrefix(k, key) {
			match = append(match, k)
		}
	}
	return &mockIterator{broker: mb, match: match}, nil
}

type mockIterator struct {
	broker *mockBroker
	match  []string
	index  int
}

func (mi *mockIterator) GetNext() (kv keyval.ProtoKeyVal, stop bool) {
	if mi.index >= len(mi.match) {
		return nil, true
	}
	key := mi.match[mi.index]
	mi.index++
	return &mockKeyVal{key: key, val: mi.broker.data[key]}, false
}

func (mi *mockIterator) Close() error {
	return nil
}

type mockKeyVal struct {
	key string
	val proto.Message
}

func (mk *mockKeyVal) GetValue(val proto.Message) error {
	tmp, err := proto.Marshal(mk.val)
	if err != nil {
		return err
	}
	return proto.Unmarshal(tmp, val)
}

func (mk *mockKeyVal) GetPrevValue(val proto.Message) (exists bool, err error) {
	return false, nil
}

func (mk *mockKeyVal) GetKey() string {
	return mk.key
}

func (mk *mockKeyVal) GetRevision() int64 {
	return 0
}

/**************************** mock idalloc ****************************/

type mockIDAlloc struct {
	pools  map[string]*allocation.Range
	allocs map[string]map[string]uint32
	next   map[string]uint32
}

func newMockIDAlloc() *mockIDAlloc {
	return &mockIDAlloc{
		pools:  map[string]*allocation.Range{},
		allocs: map[string]map[string]uint32{},
		next:   map[string]uint32{},
	}
}

func (m *mockIDAlloc) InitPool(name string, poolRange *allocation.Range) error {
	if _, exists := m.pools[name]; !exists {
		m.pools[name] = poolRange
		m.allocs[name] = map[string]uint32{}
		m.next[name] = poolRange.MinId
	}
	return nil
}

func (m *mockIDAlloc) GetOrAllocateID(poolName string, idLabel string) (uint32, error) {
	if id, exists := m.allocs[poolName][idLabel]; exists {
		return id, nil
	}
	id := m.next[poolName]
	m.next[poolName]++
	m.allocs[poolName][idLabel] = id
	return id, nil
}

func (m *mockIDAlloc) ReleaseID(poolName string, idLabel string) error {
	delete(m.allocs[poolName], idLabel)
	return nil
}

/**************************** test helpers ****************************/

func newTestServer(drivers ...driver.Driver) *APIServer {
	p := &APIServer{}
	p.PluginName = "apiserver"
	p.Log = logging.ForPlugin("apiserver-test")
	p.config = DefaultConfig()
	p.store = newStore(newMockBroker())
	p.drivers = drivers
	return p
}

func testVPN(id string) *vpn.VPN {
	return &vpn.VPN{
		Id:           id,
		TenantId:     "tenant-1",
		Name:         "test-vpn",
		Type:         vpn.TypeL3,
		RouteTargets: []string{"64512:10"},
	}
}

func addNetwork(p *APIServer, id string) {
	err := p.store.putNetwork(&network.Network{
		Id:   id,
		Node: "node-1",
		Subnets: []*network.Subnet{
			{Prefix: "10.1.0.0/24", GatewayIp: "10.1.0.1"},
		},
	})
	Expect(err).ToNot(HaveOccurred())
}

func addRouter(p *APIServer, id string) {
	err := p.store.putRouter(&router.Router{
		Id:   id,
		Node: "node-1",
	})
	Expect(err).ToNot(HaveOccurred())
}

/**************************** VPN tests ****************************/

func TestCreateVPN(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()

	created, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())
	Expect(created.Id).To(Equal("vpn-1"))

	stored, err := p.store.getVPN("vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(stored).ToNot(BeNil())
	Expect(stored.RouteTargets).To(Equal([]string{"64512:10"}))
}

func TestCreateVPNGeneratesID(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()

	v := testVPN("")
	created, err := p.createVPN(v)
	Expect(err).ToNot(HaveOccurred())
	Expect(created.Id).ToNot(BeEmpty())
}

func TestCreateVPNValidation(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()

	// invalid type
	v := testVPN("vpn-1")
	v.Type = "l4"
	_, err := p.createVPN(v)
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(400))

	// missing route targets
	v = testVPN("vpn-1")
	v.RouteTargets = nil
	_, err = p.createVPN(v)
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).To(ContainSubstring("MissingRouteTarget"))

	// malformed route target
	v = testVPN("vpn-1")
	v.RouteTargets = []string{"not-a-target"}
	_, err = p.createVPN(v)
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(400))

	// VNI on l3 VPN
	v = testVPN("vpn-1")
	v.Vni = 5000
	_, err = p.createVPN(v)
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(400))
}

func TestCreateVPNConflict(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()

	_, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())

	_, err = p.createVPN(testVPN("vpn-1"))
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(409))
}

func TestUpdateVPN(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()

	_, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())

	updated, err := p.updateVPN("vpn-1", []byte(`{"name": "renamed"}`))
	Expect(err).ToNot(HaveOccurred())
	Expect(updated.Name).To(Equal("renamed"))
	// merge semantics keep the unspecified fields
	Expect(updated.RouteTargets).To(Equal([]string{"64512:10"}))

	// type is immutable
	_, err = p.updateVPN("vpn-1", []byte(`{"type": "l2"}`))
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(400))

	// route targets cannot be emptied
	_, err = p.updateVPN("vpn-1", []byte(`{"route_targets": []}`))
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).To(ContainSubstring("MissingRouteTarget"))

	// unknown VPN
	_, err = p.updateVPN("unknown", []byte(`{}`))
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(404))
	Expect(err.Error()).To(ContainSubstring("could not be found"))
}

func TestDeleteVPN(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()
	addNetwork(p, "net-1")

	_, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())

	_, err = p.createNetAssoc("vpn-1", &netassoc.NetworkAssociation{NetworkId: "net-1"})
	Expect(err).ToNot(HaveOccurred())

	// delete refused while associations exist
	err = p.deleteVPNByID("vpn-1")
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(409))
	Expect(err.Error()).To(ContainSubstring("NetworkInUse"))

	assocs, _, err := p.store.assocsForVPN("vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(assocs).To(HaveLen(1))
	err = p.deleteNetAssocByID("vpn-1", assocs[0].Id)
	Expect(err).ToNot(HaveOccurred())

	err = p.deleteVPNByID("vpn-1")
	Expect(err).ToNot(HaveOccurred())

	stored, err := p.store.getVPN("vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(stored).To(BeNil())
}

func TestListVPNsFiltered(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()
	addNetwork(p, "net-1")

	v1 := testVPN("vpn-1")
	_, err := p.createVPN(v1)
	Expect(err).ToNot(HaveOccurred())

	v2 := testVPN("vpn-2")
	v2.TenantId = "tenant-2"
	v2.Type = vpn.TypeL2
	_, err = p.createVPN(v2)
	Expect(err).ToNot(HaveOccurred())

	_, err = p.createNetAssoc("vpn-1", &netassoc.NetworkAssociation{NetworkId: "net-1"})
	Expect(err).ToNot(HaveOccurred())

	vpns, err := p.listVPNsFiltered(url.Values{})
	Expect(err).ToNot(HaveOccurred())
	Expect(vpns).To(HaveLen(2))

	vpns, err = p.listVPNsFiltered(url.Values{"tenant_id": []string{"tenant-2"}})
	Expect(err).ToNot(HaveOccurred())
	Expect(vpns).To(HaveLen(1))
	Expect(vpns[0].Id).To(Equal("vpn-2"))

	vpns, err = p.listVPNsFiltered(url.Values{"type": []string{"l3"}})
	Expect(err).ToNot(HaveOccurred())
	Expect(vpns).To(HaveLen(1))
	Expect(vpns[0].Id).To(Equal("vpn-1"))

	vpns, err = p.listVPNsFiltered(url.Values{"network_id": []string{"net-1"}})
	Expect(err).ToNot(HaveOccurred())
	Expect(vpns).To(HaveLen(1))
	Expect(vpns[0].Id).To(Equal("vpn-1"))
}

/************************* association tests *************************/

func TestCreateNetAssoc(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()
	addNetwork(p, "net-1")

	_, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())

	assoc, err := p.createNetAssoc("vpn-1", &netassoc.NetworkAssociation{NetworkId: "net-1"})
	Expect(err).ToNot(HaveOccurred())
	Expect(assoc.Id).ToNot(BeEmpty())
	Expect(assoc.VpnId).To(Equal("vpn-1"))
	Expect(assoc.TenantId).To(Equal("tenant-1"))

	// duplicate association
	_, err = p.createNetAssoc("vpn-1", &netassoc.NetworkAssociation{NetworkId: "net-1"})
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(409))

	// unknown network
	_, err = p.createNetAssoc("vpn-1", &netassoc.NetworkAssociation{NetworkId: "unknown"})
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(404))

	// unknown VPN
	_, err = p.createNetAssoc("unknown", &netassoc.NetworkAssociation{NetworkId: "net-1"})
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(404))
}

func TestRouterAssoc(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()
	addRouter(p, "router-1")

	_, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())

	assoc, err := p.createRouterAssoc("vpn-1", &routerassoc.RouterAssociation{
		RouterId:             "router-1",
		AdvertiseExtraRoutes: true,
	})
	Expect(err).ToNot(HaveOccurred())
	Expect(assoc.AdvertiseExtraRoutes).To(BeTrue())

	// only AdvertiseExtraRoutes is mutable
	updated, err := p.updateRouterAssoc("vpn-1", assoc.Id, false)
	Expect(err).ToNot(HaveOccurred())
	Expect(updated.AdvertiseExtraRoutes).To(BeFalse())
	Expect(updated.RouterId).To(Equal("router-1"))

	err = p.deleteRouterAssocByID("vpn-1", assoc.Id)
	Expect(err).ToNot(HaveOccurred())

	_, err = p.getRouterAssocOr404("vpn-1", assoc.Id)
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(404))
}

/************************* inventory tests *************************/

func TestDeleteNetworkInUse(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer()
	addNetwork(p, "net-1")

	_, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())
	_, err = p.createNetAssoc("vpn-1", &netassoc.NetworkAssociation{NetworkId: "net-1"})
	Expect(err).ToNot(HaveOccurred())

	err = p.deleteNetworkByID("net-1")
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(409))
}

func TestValidateNetwork(t *testing.T) {
	RegisterTestingT(t)

	err := validateNetwork(&network.Network{Id: "net-1"})
	Expect(err).To(HaveOccurred()) // no node

	err = validateNetwork(&network.Network{
		Id: "net-1", Node: "node-1",
		Subnets: []*network.Subnet{{Prefix: "not-a-prefix"}},
	})
	Expect(err).To(HaveOccurred())

	err = validateNetwork(&network.Network{
		Id: "net-1", Node: "node-1",
		Subnets: []*network.Subnet{{Prefix: "10.0.0.0/16", GatewayIp: "10.0.0.1"}},
	})
	Expect(err).ToNot(HaveOccurred())
}

/************************* driver tests *************************/

func TestAutoAllocDriver(t *testing.T) {
	RegisterTestingT(t)
	idAlloc := newMockIDAlloc()
	allocDriver := autoalloc.NewDriver(idAlloc, nil, logging.ForPlugin("autoalloc-test"))
	p := newTestServer(allocDriver)

	// l3 VPN without RD gets one auto-allocated
	created, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).ToNot(HaveOccurred())
	Expect(created.RouteDistinguishers).To(HaveLen(1))
	Expect(created.RouteDistinguishers[0]).To(Equal("64512:1"))

	// l2 VPN without VNI gets one auto-allocated
	v := testVPN("vpn-2")
	v.Type = vpn.TypeL2
	created, err = p.createVPN(v)
	Expect(err).ToNot(HaveOccurred())
	Expect(created.Vni).To(BeEquivalentTo(5000))

	// explicit RD is left alone
	v = testVPN("vpn-3")
	v.RouteDistinguishers = []string{"64512:999"}
	created, err = p.createVPN(v)
	Expect(err).ToNot(HaveOccurred())
	Expect(created.RouteDistinguishers).To(Equal([]string{"64512:999"}))

	// delete releases the allocations
	err = p.deleteVPNByID("vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(idAlloc.allocs[autoalloc.RDPoolName]).ToNot(HaveKey("vpn-1"))
}

type vetoDriver struct {
	driver.DriverBase
}

func (d *vetoDriver) String() string { return "veto" }

func (d *vetoDriver) CreateVPNPrecommit(v *vpn.VPN) error {
	return errConflict("vetoed by driver")
}

func TestAutoAllocReleasedOnAbortedCreate(t *testing.T) {
	RegisterTestingT(t)
	idAlloc := newMockIDAlloc()
	allocDriver := autoalloc.NewDriver(idAlloc, nil, logging.ForPlugin("autoalloc-test"))
	p := newTestServer(allocDriver, &vetoDriver{})

	v := testVPN("vpn-1")
	v.Type = vpn.TypeL2
	_, err := p.createVPN(v)
	Expect(err).To(HaveOccurred())

	// the RD and the VNI allocated by the precommit were released
	Expect(idAlloc.allocs[autoalloc.RDPoolName]).ToNot(HaveKey("vpn-1"))
	Expect(idAlloc.allocs[autoalloc.VNIPoolName]).ToNot(HaveKey("vpn-1"))
}

func TestDriverPrecommitVeto(t *testing.T) {
	RegisterTestingT(t)
	p := newTestServer(&vetoDriver{})

	_, err := p.createVPN(testVPN("vpn-1"))
	Expect(err).To(HaveOccurred())
	Expect(statusCode(err)).To(Equal(409))

	// nothing was written
	stored, err := p.store.getVPN("vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(stored).To(BeNil())
}

/************************* projection tests *************************/

func TestProjectFields(t *testing.T) {
	RegisterTestingT(t)

	projected := projectFields(testVPN("vpn-1"), []string{"id", "type"})
	asMap, ok := projected.(map[string]interface{})
	Expect(ok).To(BeTrue())
	Expect(asMap).To(HaveKeyWithValue("id", "vpn-1"))
	Expect(asMap).To(HaveKeyWithValue("type", "l3"))
	Expect(asMap).ToNot(HaveKey("route_targets"))
}
