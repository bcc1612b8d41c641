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
	"context"

	"github.com/gogo/protobuf/proto"
)

// Transaction collects the configuration changes prepared by event handlers
// (e.g. the attachments rendered by the bgpvpn plugin) and applies them in
// one commit.
type Transaction interface {
	UpdateOperations

	// Commit applies the collected changes.
	Commit(ctx context.Context) error
}

// ResyncOperations are the transaction operations available to handlers of
// Resync-type events.
type ResyncOperations interface {
	// Put prepares addition or modification of a value.
	// <value> cannot be nil.
	Put(key string, value proto.Message)

	// Get returns a value already prepared by this transaction, nil if the
	// value is set to be deleted or has not been set at all. Prepared values
	// can still be changed until the transaction is committed.
	Get(key string) proto.Message
}

// UpdateOperations are the transaction operations available to handlers of
// Update-type events.
type UpdateOperations interface {
	ResyncOperations

	// Delete prepares removal of an existing value.
	Delete(key string)
}
