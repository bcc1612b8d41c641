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

package api

import (
	"fmt"
	"strings"

	"github.com/gogo/protobuf/proto"
)

// KeyValuePairs is a set of key-value pairs.
type KeyValuePairs map[string]proto.Message

// DBStateData contains the BGP VPN configuration read from the data store,
// organized as key-value pairs sorted by the resource type.
type DBStateData map[string]KeyValuePairs // resource keyword -> {(key, value)}

// DBResource describes one type of resource stored in the data store
// and watched by the Controller.
type DBResource struct {
	// Keyword identifies the resource among all the watched resources.
	Keyword string

	// ProtoMessageName is the name of the registered proto message used
	// to un-marshal resource values.
	ProtoMessageName string

	// KeyPrefix under which instances of the resource are stored
	// (absolute, i.e. including the agent prefix of the writer).
	KeyPrefix string
}

/********************************* DB Resync **********************************/

// DBResync is the event that carries the full snapshot of the BGP VPN
// configuration as stored in the data store. It is the first event every
// event handler receives and may be also fired during the runtime to recover
// from a potential data loss between the agent and the data store.
type DBResync struct {
	DBState DBStateData
}

// GetName returns name of the DBResync event.
func (ev *DBResync) GetName() string {
	return "Database Resync"
}

// String describes DBResync event.
func (ev *DBResync) String() string {
	str := ev.GetName()
	for resource, data := range ev.DBState {
		var ids []string
		for key := range data {
			ids = append(ids, key)
		}
		str += fmt.Sprintf("\n* %dx %s: %s",
			len(data), resource, strings.Join(ids, ", "))
	}
	return str
}

// Method is Resync.
func (ev *DBResync) Method() EventMethodType {
	return Resync
}

// IsBlocking returns false.
func (ev *DBResync) IsBlocking() bool {
	return false
}

// Done is NOOP.
func (ev *DBResync) Done(error) {
	return
}

/******************************* DB State Change ******************************/

// DBStateChange is the event that carries a change of a single value
// from the data store.
type DBStateChange struct {
	Key       string
	Resource  string
	PrevValue proto.Message
	NewValue  proto.Message // nil if the value was deleted
}

// GetName returns name of the DBStateChange event.
func (ev *DBStateChange) GetName() string {
	return "DB State Change"
}

// String describes DBStateChange event.
func (ev *DBStateChange) String() string {
	return fmt.Sprintf("%s\n"+
		"* key: %s\n"+
		"* prev-value: %s\n"+
		"* new-value: %s",
		ev.GetName(), ev.Key,
		protoToString(ev.PrevValue), protoToString(ev.NewValue))
}

// Method is Update.
func (ev *DBStateChange) Method() EventMethodType {
	return Update
}

// TransactionType is BestEffort.
func (ev *DBStateChange) TransactionType() UpdateTransactionType {
	return BestEffort
}

// Direction is Forward.
func (ev *DBStateChange) Direction() UpdateDirectionType {
	return Forward
}

// IsBlocking returns false.
func (ev *DBStateChange) IsBlocking() bool {
	return false
}

// Done is NOOP.
func (ev *DBStateChange) Done(error) {
	return
}

func protoToString(msg proto.Message) string {
	if msg == nil {
		return "<nil>"
	}
	return msg.String()
}
