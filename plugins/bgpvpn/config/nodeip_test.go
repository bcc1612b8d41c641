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

package config

import (
	"net"
	"testing"

	. "github.com/onsi/gomega"
)

func TestDiscoverNodeIP(t *testing.T) {
	RegisterTestingT(t)

	// hosts without a usable address (e.g. an isolated netns) report an error,
	// everything else yields a global unicast IPv4 address
	nodeIP, err := DiscoverNodeIP()
	if err != nil {
		Expect(nodeIP).To(BeEmpty())
		return
	}
	ip := net.ParseIP(nodeIP)
	Expect(ip).ToNot(BeNil())
	Expect(ip.To4()).ToNot(BeNil())
	Expect(ip.IsGlobalUnicast()).To(BeTrue())
}
