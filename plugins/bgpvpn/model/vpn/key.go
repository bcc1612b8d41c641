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

package vpn

import (
	"github.com/bestjie/networking-bgpvpn/plugins/bgpvpn/model/modelkey"
)

// Keyword identifies VPN instances in the data store.
const Keyword = "vpn"

// KeyPrefix returns the key prefix identifying all VPN instances
// in the data store.
func KeyPrefix() string {
	return modelkey.KeyPrefix(Keyword)
}

// Key returns the key under which a given VPN is stored in the data store.
func Key(id string) string {
	return modelkey.Key(Keyword, id)
}

// ParseIDFromKey parses the VPN ID from the associated data-store key.
func ParseIDFromKey(key string) (id string, err error) {
	return modelkey.ParseIDFromKey(Keyword, key)
}
