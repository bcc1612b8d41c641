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

// Package modelkey defines the layout of the BGP VPN configuration
// in the data store, shared between the API server (writer) and
// the per-node agents (readers).
package modelkey

import (
	"fmt"
	"strings"
)

const (
	// MicroserviceLabel is the service label of the API server.
	// All configuration is stored under the key prefix derived from it.
	MicroserviceLabel = "bgpvpn-server"

	// ConfigPrefix is the common prefix of all configuration items
	// (relative to the server's agent prefix).
	ConfigPrefix = "config/v1"

	// AllocPrefix is the common prefix of the ID-allocation pools
	// (relative to the server's agent prefix).
	AllocPrefix = "alloc/"
)

// KeyPrefix returns the common prefix for all items of a given resource.
func KeyPrefix(keyword string) string {
	return ConfigPrefix + "/" + keyword + "/"
}

// Key returns the key under which a given resource instance is stored
// in the data store.
func Key(keyword string, id string) string {
	return KeyPrefix(keyword) + id
}

// ParseIDFromKey parses the resource ID from the associated data-store key.
func ParseIDFromKey(keyword string, key string) (id string, err error) {
	if suffix := strings.TrimPrefix(key, KeyPrefix(keyword)); suffix != key &&
		suffix != "" && !strings.Contains(suffix, "/") {
		return suffix, nil
	}
	return "", fmt.Errorf("invalid format of the key %s", key)
}
