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
	"fmt"

	"github.com/gogo/protobuf/proto"

	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/bestjie/networking-bgpvpn/plugins/idalloc/allocation"
)

const (
	maxIDAllocationAttempts = 10
)

// IDAllocator implements allocation of numeric identifiers from named pools
// persisted in the data store. Allocations survive restarts and are safe
// against concurrent writers (guarded by compare-and-swap).
type IDAllocator struct {
	Deps

	dbBrokerUnsafe keyval.BytesBrokerWithAtomic
	serializer     keyval.SerializerJSON

	poolCache map[string]*allocation.Pool // pool name to pool data
	poolMeta  map[string]*poolMetadata    // pool name to pool metadata
}

// Deps lists dependencies of the IDAllocator plugin.
type Deps struct {
	infra.PluginDeps

	ServiceLabel servicelabel.ReaderAPI
	DB           KVDBWithAtomic
}

// KVDBWithAtomic defines the API the allocator needs from the key-value
// datastore: connection callbacks plus brokers capable of atomic
// compare-and-swap operations.
type KVDBWithAtomic interface {
	// OnConnect registers callback to be triggered once the (first) connection
	// to DB is established. If the connection is already established,
	// the callback is called immediately (synchronously).
	OnConnect(callback func() error)

	// NewBrokerWithAtomic creates a broker with atomic operations, prefixing
	// all keys with the given prefix.
	NewBrokerWithAtomic(keyPrefix string) keyval.BytesBrokerWithAtomic
}

// poolMetadata contains metadata of a pool used for faster ID allocation.
type poolMetadata struct {
	reservedIDs  map[uint32]bool
	allocatedIDs map[uint32]string // id to label map
}

// Init initializes plugin internals.
func (a *IDAllocator) Init() (err error) {
	a.serializer = keyval.SerializerJSON{}
	a.poolCache = make(map[string]*allocation.Pool)
	a.poolMeta = make(map[string]*poolMetadata)
	return nil
}

// Close cleans up the resources.
func (a *IDAllocator) Close() error {
	return nil
}

// InitPool initializes ID allocation pool with given name and ID range.
// If the pool already exists, returns success if the pool range matches with
// the existing one (and effectively does nothing), error otherwise.
func (a *IDAllocator) InitPool(name string, poolRange *allocation.Range) (err error) {

	// if pool with given name already exists, check if their specifications are same
	if pool, exists := a.poolCache[name]; exists {
		if proto.Equal(pool.Range, poolRange) {
			// the pool specification matches
			return nil
		}
		a.Log.Errorf("ID pool %s already exists with different specification: %v", name, pool)
		return fmt.Errorf("ID pool %s already exists with different specification", name)
	}

	pool := &allocation.Pool{
		Name:        name,
		Range:       poolRange,
		Allocations: map[string]*allocation.Allocation{},
	}

	// save the pool in db
	encodedPool, err := a.serializer.Marshal(pool)
	if err != nil {
		a.Log.Error(err)
		return err
	}
	db, err := a.getDBBroker()
	if err != nil {
		a.Log.Error(err)
		return err
	}
	success, err := db.PutIfNotExists(allocation.Key(name), encodedPool)

	if err == nil && success == false {
		// the pool already exists in db, check if the specification matches
		existPool, _ := a.dbReadPool(name)
		if existPool != nil {
			if !proto.Equal(pool.Range, existPool.Range) {
				return fmt.Errorf("ID pool %s already exists with different specification", name)
			}
			pool = existPool
		}
	} else if err != nil {
		a.Log.Errorf("Error by writing allocation pool to db: %v", err)
		return err
	}

	// cache the pool
	a.poolCache[pool.Name] = pool
	a.poolMeta[pool.Name] = a.buildPoolMetadata(pool)

	a.Log.Debugf("Initialized ID allocation pool %v, metadata: %v", pool, a.poolMeta[pool.Name])

	return nil
}

// GetOrAllocateID returns allocated ID in given pool for given label. If the ID
// was not already allocated, allocates a new available ID.
func (a *IDAllocator) GetOrAllocateID(poolName string, idLabel string) (id uint32, err error) {

	pool, poolMeta, err := a.getPool(poolName)
	if err != nil {
		a.Log.Error(err)
		return
	}

	succeeded := false
	for i := 0; i < maxIDAllocationAttempts; i++ {
		id, succeeded, err = a.tryToAllocateID(pool, poolMeta, idLabel)
		if err != nil {
			break
		}
		if succeeded {
			// successfully allocated an ID
			poolMeta.allocatedIDs[id] = idLabel
			break
		} else {
			// pool changed in db, re-read from db and retry
			pool, poolMeta, err = a.reloadPool(poolName)
			if err != nil {
				break
			}
		}
	}
	if err == nil && !succeeded {
		err = fmt.Errorf("ID allocation for pool %s failed in %d attempts", poolName, maxIDAllocationAttempts)
	}
	if err != nil {
		a.Log.Errorf("Error by allocating ID: %v", err)
		return 0, err
	}

	a.Log.Debugf("ID for label '%s' in pool %s: %d", idLabel, poolName, id)
	return id, nil
}

// ReleaseID releases existing allocation for given pool and label.
// NOOP if the pool or the allocation does not exist.
func (a *IDAllocator) ReleaseID(poolName string, idLabel string) (err error) {

	pool := a.poolCache[poolName]
	if pool == nil {
		pool, err = a.dbReadPool(poolName)
		if pool == nil || err != nil {
			return err
		}
		a.poolCache[poolName] = pool
		a.poolMeta[poolName] = a.buildPoolMetadata(pool)
	}
	poolMeta := a.poolMeta[poolName]
	alloc, exists := pool.Allocations[idLabel]
	if !exists {
		return nil
	}

	succeeded := false
	for i := 0; i < maxIDAllocationAttempts; i++ {
		succeeded, err = a.tryToReleaseID(pool, idLabel)
		if err != nil {
			break
		}
		if succeeded {
			// successfully released the ID
			delete(poolMeta.allocatedIDs, alloc.Id)
			break
		} else {
			// pool changed in db, re-read from db and retry
			pool, poolMeta, err = a.reloadPool(poolName)
			if err != nil {
				break
			}
		}
	}
	if err == nil && !succeeded {
		err = fmt.Errorf("ID release from pool %s failed in %d attempts", poolName, maxIDAllocationAttempts)
	}
	if err != nil {
		a.Log.Errorf("Error by releasing ID: %v", err)
		return err
	}

	a.Log.Debugf("Released ID for label '%s' in pool %s: %d", idLabel, poolName, alloc.Id)

	return nil
}

// tryToAllocateID attempts to allocate an ID for given pool and label.
func (a *IDAllocator) tryToAllocateID(pool *allocation.Pool, poolMeta *poolMetadata, idLabel string) (
	id uint32, succeeded bool, err error) {

	// step 0, try to get already allocated ID number
	if alloc, exists := pool.Allocations[idLabel]; exists {
		return alloc.Id, true, nil
	}

	// step 1, find a free ID number
	found := false
	for id = pool.Range.MinId; id <= pool.Range.MaxId; id++ {
		if _, reserved := poolMeta.reservedIDs[id]; reserved {
			continue
		}
		if _, used := poolMeta.allocatedIDs[id]; !used {
			found = true
			break
		}
	}
	if !found {
		err = fmt.Errorf("no more space left in pool %s", pool.Name)
		return
	}

	// step 2, try to write into db
	prevData, err := a.serializer.Marshal(pool)
	if err != nil {
		return 0, false, err
	}
	pool.Allocations[idLabel] = &allocation.Allocation{
		Id:    id,
		Owner: a.ServiceLabel.GetAgentLabel(),
	}
	newData, err := a.serializer.Marshal(pool)
	if err != nil {
		return 0, false, err
	}
	db, err := a.getDBBroker()
	if err != nil {
		a.Log.Error(err)
		return 0, false, err
	}
	succeeded, err = db.CompareAndSwap(allocation.Key(pool.Name), prevData, newData)

	return
}

// tryToReleaseID attempts to release an ID for given pool and label.
func (a *IDAllocator) tryToReleaseID(pool *allocation.Pool, idLabel string) (succeeded bool, err error) {

	if _, exists := pool.Allocations[idLabel]; !exists {
		// already released
		return true, nil
	}

	// snapshot the pool before removing the allocation, CAS compares
	// against the state currently stored in db
	prevData, err := a.serializer.Marshal(pool)
	if err != nil {
		return false, err
	}
	delete(pool.Allocations, idLabel)
	newData, err := a.serializer.Marshal(pool)
	if err != nil {
		return false, err
	}
	db, err := a.getDBBroker()
	if err != nil {
		a.Log.Error(err)
		return false, err
	}
	succeeded, err = db.CompareAndSwap(allocation.Key(pool.Name), prevData, newData)
	return
}

// getPool returns the pool with given name from the cache, falling back
// to a read from db.
func (a *IDAllocator) getPool(poolName string) (*allocation.Pool, *poolMetadata, error) {
	pool := a.poolCache[poolName]
	if pool == nil {
		var err error
		pool, err = a.dbReadPool(poolName)
		if err != nil {
			return nil, nil, err
		}
		if pool == nil {
			return nil, nil, fmt.Errorf("ID pool %s does not exist", poolName)
		}
		a.poolCache[poolName] = pool
		a.poolMeta[poolName] = a.buildPoolMetadata(pool)
	}
	poolMeta := a.poolMeta[poolName]
	if poolMeta == nil {
		poolMeta = a.buildPoolMetadata(pool)
		a.poolMeta[poolName] = poolMeta
	}
	return pool, poolMeta, nil
}

// reloadPool re-reads the pool with given name from db and refreshes the cache.
func (a *IDAllocator) reloadPool(poolName string) (*allocation.Pool, *poolMetadata, error) {
	pool, err := a.dbReadPool(poolName)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		return nil, nil, fmt.Errorf("ID pool %s does not exist", poolName)
	}
	meta := a.buildPoolMetadata(pool)
	a.poolCache[poolName] = pool
	a.poolMeta[poolName] = meta
	return pool, meta, nil
}

// dbReadPool reads pool data from database.
func (a *IDAllocator) dbReadPool(poolName string) (pool *allocation.Pool, err error) {
	db, err := a.getDBBroker()
	if err != nil {
		a.Log.Error(err)
		return nil, err
	}
	existData, found, _, err := db.GetValue(allocation.Key(poolName))
	if err != nil {
		return nil, err
	}
	if found {
		pool = &allocation.Pool{}
		err = a.serializer.Unmarshal(existData, pool)
		if err != nil {
			return nil, err
		}
	}
	return
}

// buildPoolMetadata builds metadata for the provided allocation pool.
func (a *IDAllocator) buildPoolMetadata(pool *allocation.Pool) *poolMetadata {
	if pool == nil {
		return nil
	}
	meta := &poolMetadata{
		allocatedIDs: map[uint32]string{},
		reservedIDs:  map[uint32]bool{},
	}
	for _, id := range pool.Range.Reserved {
		meta.reservedIDs[id] = true
	}
	for label, alloc := range pool.Allocations {
		meta.allocatedIDs[alloc.Id] = label
	}
	return meta
}

// getDBBroker returns broker for accessing the database, error if the database
// is not connected.
func (a *IDAllocator) getDBBroker() (keyval.BytesBrokerWithAtomic, error) {
	// return error if the datastore is not connected
	dbIsConnected := false
	a.DB.OnConnect(func() error {
		dbIsConnected = true
		return nil
	})
	if !dbIsConnected {
		return nil, fmt.Errorf("database is not connected")
	}
	// return existing broker if possible
	if a.dbBrokerUnsafe == nil {
		a.dbBrokerUnsafe = a.DB.NewBrokerWithAtomic(a.ServiceLabel.GetAgentPrefix())
	}
	return a.dbBrokerUnsafe, nil
}
