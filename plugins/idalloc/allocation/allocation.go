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

// Package allocation defines the data model of the distributed
// ID-allocation pools.
package allocation

import (
	"github.com/gogo/protobuf/proto"

	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
)

// Pool holds the state of one named ID-allocation pool.
type Pool struct {
	Name        string                 `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Range       *Range                 `protobuf:"bytes,2,opt,name=range,proto3" json:"range,omitempty"`
	Allocations map[string]*Allocation `protobuf:"bytes,3,rep,name=allocations,proto3" json:"allocations,omitempty"`
}

// Range defines the set of IDs the pool may allocate from.
type Range struct {
	MinId    uint32   `protobuf:"varint,1,opt,name=min_id,json=minId,proto3" json:"min_id,omitempty"`
	MaxId    uint32   `protobuf:"varint,2,opt,name=max_id,json=maxId,proto3" json:"max_id,omitempty"`
	Reserved []uint32 `protobuf:"varint,3,rep,packed,name=reserved,proto3" json:"reserved,omitempty"`
}

// Allocation is a single allocated ID, keyed in the pool by its label.
type Allocation struct {
	Id    uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Owner string `protobuf:"bytes,2,opt,name=owner,proto3" json:"owner,omitempty"`
}

// Reset implements the proto.Message interface.
func (m *Pool) Reset() { *m = Pool{} }

// String converts the pool into a human-readable string.
func (m *Pool) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*Pool) ProtoMessage() {}

// Reset implements the proto.Message interface.
func (m *Range) Reset() { *m = Range{} }

// String converts the range into a human-readable string.
func (m *Range) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*Range) ProtoMessage() {}

// Reset implements the proto.Message interface.
func (m *Allocation) Reset() { *m = Allocation{} }

// String converts the allocation into a human-readable string.
func (m *Allocation) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements the proto.Message interface.
func (*Allocation) ProtoMessage() {}

// KeyPrefix returns the prefix where all ID-allocation pools are persisted.
func KeyPrefix() string {
	return modelkey.AllocPrefix
}

// Key returns the key under which the given pool is stored in the data store.
func Key(poolName string) string {
	return KeyPrefix() + poolName
}

func init() {
	proto.RegisterType((*Pool)(nil), "bgpvpn.AllocationPool")
	proto.RegisterType((*Range)(nil), "bgpvpn.AllocationPool.Range")
	proto.RegisterType((*Allocation)(nil), "bgpvpn.AllocationPool.Allocation")
}
