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

package controller

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gogo/protobuf/proto"

	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/logging"

	"github.com/bestjie/networking-bgpvpn/plugins/controller/api"
)

// healthCheckProbeKey is a key used to probe the remote DB connection state.
const healthCheckProbeKey = "/probe-etcd-connection"

// dbWatcher watches the BGP VPN configuration in the remote database
// for changes. Resync and data change events are pushed to the event loop
// as two different events:
//  * DBResync: full snapshot of the configuration
//  * DBStateChange: a change of a single value
//
// Furthermore, the watched content of the remote database is mirrored into
// the local DB. When remote DB is not accessible (typically during early
// startup), the watcher will use the local DB to resync from. Meanwhile,
// watching for changes is inactive. Once the connection to remote DB is
// (re)gained, the watcher performs resync against the remote database
// - also updating the locally mirrored data for future outages - and
// re-activates the watching.
type dbWatcher struct {
	sync.Mutex
	*dbWatcherArgs

	remoteIsConnected bool
	resyncCount       int
	resyncReqs        chan bool // true if this is localDB-fallback resync

	keyPrefixes []string

	remoteBroker  keyval.ProtoBroker
	remoteWatcher keyval.ProtoWatcher
	localBroker   keyval.ProtoBroker

	remoteChangeCh     chan datasync.ProtoWatchResp
	remoteWatchCloseCh chan string

	processedVals map[string]datasync.KeyVal // key -> value with revision

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// dbWatcherArgs collects input arguments for dbWatcher.
type dbWatcherArgs struct {
	log logging.Logger

	eventLoop api.EventLoop

	localDB  keyval.KvProtoPlugin // optional
	remoteDB keyval.KvProtoPlugin

	resources []*api.DBResource

	delayLocalResync        time.Duration
	remoteDBProbingInterval time.Duration
}

var (
	// ErrClosedWatcher is returned when dbWatcher is used when it is already closed.
	ErrClosedWatcher = errors.New("dbWatcher was closed")
	// ErrResyncReqQueueFull is returned when queue for resync request is full.
	ErrResyncReqQueueFull = errors.New("queue with resync requests is full")
)

// newDBWatcher is the constructor for dbWatcher.
func newDBWatcher(args *dbWatcherArgs) *dbWatcher {
	watcher := &dbWatcher{
		dbWatcherArgs:  args,
		resyncReqs:     make(chan bool, 10),
		remoteChangeCh: make(chan datasync.ProtoWatchResp, 100),
		processedVals:  make(map[string]datasync.KeyVal),
	}
	watcher.ctx, watcher.cancel = context.WithCancel(context.Background())

	// collect key prefixes to watch
	for _, resource := range args.resources {
		watcher.keyPrefixes = append(watcher.keyPrefixes, resource.KeyPrefix)
	}

	// trigger periodic remoteDB probing after the first connection has been established
	args.remoteDB.OnConnect(watcher.onFirstConnect)

	if args.localDB != nil {
		watcher.localBroker = args.localDB.NewBroker("")
		// schedule startup-resync from local DB in case remoteDB is not accessible
		watcher.wg.Add(1)
		go watcher.scheduleLocalResync(args.delayLocalResync)
	}

	// start go routine processing resync requests and remote DB changes
	watcher.wg.Add(1)
	go watcher.watchDB()
	return watcher
}

// scheduleLocalResync is run in a separate go routine to trigger startup
// resync from localDB as a fallback solution if connection with the remote DB
// hasn't been established within the given time period.
func (w *dbWatcher) scheduleLocalResync(delay time.Duration) {
	defer w.wg.Done()

	select {
	case <-w.ctx.Done():
		return
	case <-time.After(delay):
		err := w.requestResync(true)
		if err != nil {
			w.log.Errorf("Failed to request resync against local DB: %v", err)
		}
	}
}

// onFirstConnect is triggered by remoteDB once connection with remote DB is
// established (called only for the first connection, cannot be used to detect
// reconnect).
func (w *dbWatcher) onFirstConnect() error {
	w.Lock()
	defer w.Unlock()

	w.remoteBroker = w.remoteDB.NewBroker("")
	w.remoteWatcher = w.remoteDB.NewWatcher("")

	// start periodic probing
	w.wg.Add(1)
	go w.periodicRemoteDBProbing()
	return nil
}

// periodicRemoteDBProbing runs in a separate go routine a periodic probing
// of the connection to remoteDB.
func (w *dbWatcher) periodicRemoteDBProbing() {
	defer w.wg.Done()

	w.probeRemoteDB()
	for {
		select {
		case <-time.After(w.remoteDBProbingInterval):
			w.probeRemoteDB()

		case <-w.ctx.Done():
			return
		}
	}
}

// probeRemoteDB checks if the connection to remote DB is functioning properly.
func (w *dbWatcher) probeRemoteDB() {
	w.Lock()
	defer w.Unlock()

	if _, _, err := w.remoteBroker.GetValue(healthCheckProbeKey, nil); err != nil {
		if w.remoteIsConnected {
			w.remoteIsConnected = false
			w.log.Warn("Lost connection to Remote DB")
		}
		return
	}

	if !w.remoteIsConnected {
		w.remoteIsConnected = true
		w.log.Info("Connection to Remote DB was (re-)established")

		// restart watching (can be broken)
		w.restartWatching()

		// request resync against remoteDB
		err := w.requestResync(false)
		if err != nil {
			w.log.Errorf("Failed to request resync against remote DB: %v", err)
		}
	}
}

// requestResync is used to request DB resync.
// The watcher loads a snapshot of the database, wraps it into the DBResync
// event and pushes it into the event loop.
func (w *dbWatcher) requestResync(local bool) error {
	select {
	case <-w.ctx.Done():
		return ErrClosedWatcher
	case w.resyncReqs <- local:
		return nil
	default:
		return ErrResyncReqQueueFull
	}
}

// watchDB processes resync requests and watches remoteDB for changes.
func (w *dbWatcher) watchDB() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case local := <-w.resyncReqs:
			w.runResync(local)

		case change := <-w.remoteChangeCh:
			w.processChange(change)
		}
	}
}

// restartWatching (re)starts watching for changes in remote DB.
// The method assumes that dbWatcher is in the locked state.
func (w *dbWatcher) restartWatching() {
	w.stopWatching()
	w.remoteWatchCloseCh = make(chan string)
	w.remoteWatcher.Watch(w.onRemoteDBChange, w.remoteWatchCloseCh, w.keyPrefixes...)
}

// stopWatching stops watching of remote DB.
func (w *dbWatcher) stopWatching() {
	if w.remoteWatchCloseCh != nil {
		close(w.remoteWatchCloseCh)
		w.remoteWatchCloseCh = nil
	}
}

// onRemoteDBChange is callback triggered when a change from remote DB is received.
func (w *dbWatcher) onRemoteDBChange(change datasync.ProtoWatchResp) {
	select {
	case w.remoteChangeCh <- change:
		return
	default:
		w.log.Error("Failed to enqueue remote DB data change, requesting resync")
		if err := w.requestResync(false); err != nil {
			w.log.Error("Even queue for resync requests is full")
		}
	}
}

// runResync runs resync against local or remote DB.
func (w *dbWatcher) runResync(local bool) {
	w.Lock()
	defer w.Unlock()

	if local && (w.resyncCount > 0 || w.remoteIsConnected) {
		// no need for fallback local resync
		w.log.Info("Skipping resync against local DB")
		return
	}

	if !local && !w.remoteIsConnected {
		w.log.Info("Unable to resync against remote DB - connection is not available")
		return
	}

	w.resyncCount++
	if local {
		w.runResyncFromLocalDB()
	} else {
		w.runResyncFromRemoteDB()
	}
}

// runResyncFromLocalDB executes resync from data mirrored into the local DB.
// In reality, the method is called at most once as the startup resync.
// In case of an error, another (local) resync is NOT requested.
// The method assumes that dbWatcher is in the locked state.
func (w *dbWatcher) runResyncFromLocalDB() {
	event := &api.DBResync{
		DBState: make(api.DBStateData),
	}

	err := w.loadDBStateForResync(w.localBroker, event, nil)
	if err != nil {
		w.log.Errorf("Resync from local DB has failed: %v", err)
		return
	}

	err = w.eventLoop.PushEvent(event)
	if err != nil {
		w.log.Errorf("Failed to push (local) resync event: %v", err)
	}
}

// runResyncFromRemoteDB executes resync from the remote DB.
// The method assumes that dbWatcher is in the locked state.
func (w *dbWatcher) runResyncFromRemoteDB() {
	var err error
	defer func() {
		if err != nil {
			w.log.Errorf("Resync from remote DB has failed: %v, requesting another resync", err)
			if err := w.requestResync(false); err != nil {
				w.log.Errorf("Even queue for resync requests is broken: %v", err)
			}
		}
	}()

	event := &api.DBResync{
		DBState: make(api.DBStateData),
	}
	processedVals := make(map[string]datasync.KeyVal)

	// load the BGP VPN configuration from remote DB
	err = w.loadDBStateForResync(w.remoteBroker, event, processedVals)
	if err != nil {
		return
	}

	// resync local DB mirror:
	if w.localBroker != nil {
		//   1. read keys currently stored in local DB, remove the obsolete ones
		var keyIterator keyval.ProtoKeyIterator
		keyIterator, err = w.localBroker.ListKeys("")
		if err != nil {
			return
		}
		for {
			key, _, stop := keyIterator.GetNext()
			if stop {
				break
			}
			if _, inRemote := processedVals[key]; !inRemote {
				_, err = w.localBroker.Delete(key)
				if err != nil {
					return
				}
			}
		}
		keyIterator.Close()
		//   2. update values present in the remote DB
		for _, kvs := range event.DBState {
			for key, value := range kvs {
				err = w.localBroker.Put(key, value)
				if err != nil {
					return
				}
			}
		}
	}

	// send resync event
	err = w.eventLoop.PushEvent(event)
	if err != nil {
		return
	}

	// now that the resync succeeded, update the map with last processed revisions
	w.processedVals = processedVals
}

// loadDBStateForResync is a helper method shared between runResyncFromLocalDB
// and runResyncFromRemoteDB, used to load the configuration from the given DB.
// <event> and <values> are output parameters, both optional.
func (w *dbWatcher) loadDBStateForResync(broker keyval.ProtoBroker, event *api.DBResync,
	values map[string]datasync.KeyVal) error {

	for _, resource := range w.resources {
		event.DBState[resource.Keyword] = make(api.KeyValuePairs)
		iterator, err := broker.ListValues(resource.KeyPrefix)
		if err != nil {
			return err
		}
		for {
			kv, stop := iterator.GetNext()
			if stop {
				break
			}

			// un-marshal the value
			valueType := proto.MessageType(resource.ProtoMessageName)
			if valueType == nil {
				w.log.Warnf("Failed to instantiate proto message for resource: %s", resource.Keyword)
				continue
			}
			value := reflect.New(valueType.Elem()).Interface().(proto.Message)
			err := kv.GetValue(value)
			if err != nil {
				w.log.Warnf("Failed to de-serialize value for key: %s", kv.GetKey())
				continue
			}

			if values != nil {
				values[kv.GetKey()] = kv
			}
			event.DBState[resource.Keyword][kv.GetKey()] = value
		}
		iterator.Close()
	}
	return nil
}

// processChange processes a change received from remote DB.
func (w *dbWatcher) processChange(change datasync.ProtoWatchResp) {
	w.Lock()
	defer w.Unlock()
	key := change.GetKey()

	// check if this revision was already processed
	prevRev, hasPrevRev := w.processedVals[key]
	if hasPrevRev {
		if prevRev.GetRevision() >= change.GetRevision() {
			w.log.Debugf("Ignoring already processed revision for key=%s", key)
			return
		}
	}
	w.processedVals[key] = change

	resourceMeta := w.getResourceByKey(key)
	if resourceMeta == nil {
		w.log.Warnf("Received change for unknown resource (key=%s)", key)
		return
	}

	// un-marshal the value
	var resourceNewVal, resourcePrevVal proto.Message
	valueType := proto.MessageType(resourceMeta.ProtoMessageName)
	if valueType == nil {
		w.log.Warnf("Failed to instantiate proto message for resource: %s", resourceMeta.Keyword)
		return
	}
	if change.GetChangeType() != datasync.Delete {
		resourceNewVal = reflect.New(valueType.Elem()).Interface().(proto.Message)
		if err := change.GetValue(resourceNewVal); err != nil {
			w.log.Warnf("Failed to de-serialize new value for key: %s", key)
			resourceNewVal = nil
		}
	}

	// try to deserialize the previous value
	var (
		err      error
		withPrev bool
	)
	resourcePrevVal = reflect.New(valueType.Elem()).Interface().(proto.Message)
	if hasPrevRev {
		// prioritize previous value known to dbwatcher
		withPrev = true
		err = prevRev.GetValue(resourcePrevVal)
	} else {
		withPrev, err = change.GetPrevValue(resourcePrevVal)
	}
	if err != nil {
		w.log.Warnf("Failed to de-serialize previous value for key: %s", key)
	}
	if !withPrev || err != nil {
		resourcePrevVal = nil
	}

	// update local DB mirror
	if w.localBroker != nil {
		if change.GetChangeType() == datasync.Delete {
			w.localBroker.Delete(key)
		} else if resourceNewVal != nil {
			w.localBroker.Put(key, resourceNewVal)
		}
	}

	// finally send event about the change
	event := &api.DBStateChange{
		Key:       key,
		Resource:  resourceMeta.Keyword,
		PrevValue: resourcePrevVal,
		NewValue:  resourceNewVal,
	}
	err = w.eventLoop.PushEvent(event)
	if err != nil {
		w.log.Errorf("Failed to push data change event: %v, requesting resync", err)
		if err := w.requestResync(false); err != nil {
			w.log.Errorf("Even queue for resync requests is broken: %v", err)
		}
	}
}

// getResourceByKey returns metadata for the resource with the given key,
// nil if the key does not belong to any watched resource.
func (w *dbWatcher) getResourceByKey(key string) *api.DBResource {
	for _, resource := range w.resources {
		if strings.HasPrefix(key, resource.KeyPrefix) {
			return resource
		}
	}
	return nil
}

// close stops watching of the database.
func (w *dbWatcher) close() {
	w.cancel()
	w.wg.Wait()
	w.stopWatching()
}
