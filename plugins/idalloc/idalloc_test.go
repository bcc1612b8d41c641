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

package idalloc

import (
	"bytes"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/logging"

	"github.com/bestjie/networking-bgpvpn/plugins/idalloc/allocation"
)

// mockAtomicBroker simulates a key-value datastore with atomic operations.
type mockAtomicBroker struct {
	data map[string][]byte

	// when > 0, that many CompareAndSwap calls fail (simulating concurrent writers)
	casFailures int
}

func newMockAtomicBroker() *mockAtomicBroker {
	return &mockAtomicBroker{data: map[string][]byte{}}
}

func (m *mockAtomicBroker) OnConnect(callback func() error) {
	callback()
}

func (m *mockAtomicBroker) NewBrokerWithAtomic(keyPrefix string) keyval.BytesBrokerWithAtomic {
	return m
}

func (m *mockAtomicBroker) Put(key string, data []byte, opts ...datasync.PutOption) error {
	m.data[key] = data
	return nil
}

func (m *mockAtomicBroker) GetValue(key string) (data []byte, found bool, revision int64, err error) {
	data, found = m.data[key]
	return data, found, 0, nil
}

func (m *mockAtomicBroker) Delete(key string, opts ...datasync.DelOption) (existed bool, err error) {
	_, existed = m.data[key]
	delete(m.data, key)
	return existed, nil
}

func (m *mockAtomicBroker) NewTxn() keyval.BytesTxn {
	return nil
}

func (m *mockAtomicBroker) ListKeys(prefix string) (keyval.BytesKeyIterator, error) {
	return nil, nil
}

func (m *mockAtomicBroker) ListValues(key string) (keyval.BytesKeyValIterator, error) {
	return nil, nil
}

func (m *mockAtomicBroker) PutIfNotExists(key string, data []byte) (succeeded bool, err error) {
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = data
	return true, nil
}

func (m *mockAtomicBroker) CompareAndSwap(key string, oldData, newData []byte) (succeeded bool, err error) {
	if m.casFailures > 0 {
		m.casFailures--
		return false, nil
	}
	if !bytes.Equal(m.data[key], oldData) {
		return false, nil
	}
	m.data[key] = newData
	return true, nil
}

func (m *mockAtomicBroker) CompareAndDelete(key string, data []byte) (succeeded bool, err error) {
	if !bytes.Equal(m.data[key], data) {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

// mockServiceLabel implements servicelabel.ReaderAPI.
type mockServiceLabel struct {
	label string
}

func (m *mockServiceLabel) GetAgentLabel() string {
	return m.label
}

func (m *mockServiceLabel) GetAgentPrefix() string {
	return "/vnf-agent/" + m.label + "/"
}

func (m *mockServiceLabel) GetAllAgentsPrefix() string {
	return "/vnf-agent/"
}

func (m *mockServiceLabel) GetDifferentAgentPrefix(microserviceLabel string) string {
	return "/vnf-agent/" + microserviceLabel + "/"
}

func newTestAllocator(db KVDBWithAtomic) *IDAllocator {
	a := &IDAllocator{}
	a.PluginName = "idalloc"
	a.Log = logging.ForPlugin("idalloc-test")
	a.ServiceLabel = &mockServiceLabel{label: "bgpvpn-server"}
	a.DB = db
	Expect(a.Init()).To(Succeed())
	return a
}

func TestBasicAllocation(t *testing.T) {
	RegisterTestingT(t)
	a := newTestAllocator(newMockAtomicBroker())

	err := a.InitPool("vni", &allocation.Range{MinId: 4000, MaxId: 4005})
	Expect(err).ToNot(HaveOccurred())

	id1, err := a.GetOrAllocateID("vni", "vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(id1).To(BeEquivalentTo(4000))

	id2, err := a.GetOrAllocateID("vni", "vpn-2")
	Expect(err).ToNot(HaveOccurred())
	Expect(id2).To(BeEquivalentTo(4001))

	// repeated request for the same label returns the same ID
	id, err := a.GetOrAllocateID("vni", "vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(id).To(Equal(id1))
}

func TestReservedIDs(t *testing.T) {
	RegisterTestingT(t)
	a := newTestAllocator(newMockAtomicBroker())

	err := a.InitPool("rd", &allocation.Range{MinId: 1, MaxId: 10, Reserved: []uint32{1, 2, 3}})
	Expect(err).ToNot(HaveOccurred())

	id, err := a.GetOrAllocateID("rd", "node-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(id).To(BeEquivalentTo(4))
}

func TestPoolExhaustion(t *testing.T) {
	RegisterTestingT(t)
	a := newTestAllocator(newMockAtomicBroker())

	err := a.InitPool("small", &allocation.Range{MinId: 1, MaxId: 2})
	Expect(err).ToNot(HaveOccurred())

	_, err = a.GetOrAllocateID("small", "a")
	Expect(err).ToNot(HaveOccurred())
	_, err = a.GetOrAllocateID("small", "b")
	Expect(err).ToNot(HaveOccurred())

	_, err = a.GetOrAllocateID("small", "c")
	Expect(err).To(HaveOccurred())
}

func TestReleaseID(t *testing.T) {
	RegisterTestingT(t)
	a := newTestAllocator(newMockAtomicBroker())

	err := a.InitPool("vni", &allocation.Range{MinId: 100, MaxId: 101})
	Expect(err).ToNot(HaveOccurred())

	id1, err := a.GetOrAllocateID("vni", "vpn-1")
	Expect(err).ToNot(HaveOccurred())
	_, err = a.GetOrAllocateID("vni", "vpn-2")
	Expect(err).ToNot(HaveOccurred())

	err = a.ReleaseID("vni", "vpn-1")
	Expect(err).ToNot(HaveOccurred())

	// released ID can be allocated again
	id3, err := a.GetOrAllocateID("vni", "vpn-3")
	Expect(err).ToNot(HaveOccurred())
	Expect(id3).To(Equal(id1))

	// releasing a non-existing allocation is a NOOP
	err = a.ReleaseID("vni", "unknown")
	Expect(err).ToNot(HaveOccurred())
}

func TestReInitPool(t *testing.T) {
	RegisterTestingT(t)
	a := newTestAllocator(newMockAtomicBroker())

	err := a.InitPool("vni", &allocation.Range{MinId: 1, MaxId: 100})
	Expect(err).ToNot(HaveOccurred())

	// re-init with matching range succeeds
	err = a.InitPool("vni", &allocation.Range{MinId: 1, MaxId: 100})
	Expect(err).ToNot(HaveOccurred())

	// re-init with a different range fails
	err = a.InitPool("vni", &allocation.Range{MinId: 1, MaxId: 200})
	Expect(err).To(HaveOccurred())
}

func TestSharedPool(t *testing.T) {
	RegisterTestingT(t)
	db := newMockAtomicBroker()

	// two allocators sharing the same datastore
	a1 := newTestAllocator(db)
	a2 := newTestAllocator(db)

	err := a1.InitPool("vni", &allocation.Range{MinId: 10, MaxId: 20})
	Expect(err).ToNot(HaveOccurred())
	err = a2.InitPool("vni", &allocation.Range{MinId: 10, MaxId: 20})
	Expect(err).ToNot(HaveOccurred())

	id1, err := a1.GetOrAllocateID("vni", "vpn-1")
	Expect(err).ToNot(HaveOccurred())

	// second allocator does not see the cached allocation, CAS forces a re-read
	id2, err := a2.GetOrAllocateID("vni", "vpn-2")
	Expect(err).ToNot(HaveOccurred())
	Expect(id2).ToNot(Equal(id1))

	// label allocated by the first allocator resolves to the same ID on the second
	id, err := a2.GetOrAllocateID("vni", "vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(id).To(Equal(id1))
}

func TestAllocationRetry(t *testing.T) {
	RegisterTestingT(t)
	db := newMockAtomicBroker()
	a := newTestAllocator(db)

	err := a.InitPool("vni", &allocation.Range{MinId: 1, MaxId: 100})
	Expect(err).ToNot(HaveOccurred())

	// simulate concurrent writer interfering with the first two attempts
	db.casFailures = 2

	id, err := a.GetOrAllocateID("vni", "vpn-1")
	Expect(err).ToNot(HaveOccurred())
	Expect(id).To(BeEquivalentTo(1))
}
