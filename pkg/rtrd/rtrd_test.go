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

package rtrd_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/bestjie/networking-bgpvpn/pkg/rtrd"
)

func TestParseTwoOctetAS(t *testing.T) {
	RegisterTestingT(t)

	v, err := rtrd.ParseRouteTarget("64512:1001")
	Expect(err).To(BeNil())
	Expect(v.Type).To(Equal(rtrd.TwoOctetAS))
	Expect(v.ASN).To(BeEquivalentTo(64512))
	Expect(v.Assigned).To(BeEquivalentTo(1001))
	Expect(v.String()).To(Equal("64512:1001"))

	// assigned number may use the full 32 bits
	v, err = rtrd.ParseRouteTarget("100:4294967295")
	Expect(err).To(BeNil())
	Expect(v.Assigned).To(BeEquivalentTo(uint32(4294967295)))
}

func TestParseIPv4Address(t *testing.T) {
	RegisterTestingT(t)

	v, err := rtrd.ParseRouteTarget("192.0.2.1:999")
	Expect(err).To(BeNil())
	Expect(v.Type).To(Equal(rtrd.IPv4Address))
	Expect(v.IP.String()).To(Equal("192.0.2.1"))
	Expect(v.Assigned).To(BeEquivalentTo(999))
	Expect(v.String()).To(Equal("192.0.2.1:999"))

	// assigned number limited to 16 bits for the IPv4 form
	_, err = rtrd.ParseRouteTarget("192.0.2.1:65536")
	Expect(err).ToNot(BeNil())

	// IPv6 administrator is not allowed
	_, err = rtrd.ParseRouteTarget("2001:db8::1:5")
	Expect(err).ToNot(BeNil())
}

func TestParseFourOctetAS(t *testing.T) {
	RegisterTestingT(t)

	v, err := rtrd.ParseRouteTarget("4200000000:5")
	Expect(err).To(BeNil())
	Expect(v.Type).To(Equal(rtrd.FourOctetAS))
	Expect(v.ASN).To(BeEquivalentTo(uint32(4200000000)))
	Expect(v.Assigned).To(BeEquivalentTo(5))

	// assigned number limited to 16 bits for the 4-byte ASN form
	_, err = rtrd.ParseRouteTarget("4200000000:65536")
	Expect(err).ToNot(BeNil())
}

func TestParseInvalid(t *testing.T) {
	RegisterTestingT(t)

	for _, rt := range []string{"", ":", "64512", "64512:", ":17",
		"foo:1", "64512:bar", "64512:-1", "5000000000:1"} {
		_, err := rtrd.ParseRouteTarget(rt)
		Expect(err).ToNot(BeNil(), "route target: "+rt)
	}
}

func TestParseRouteDistinguisher(t *testing.T) {
	RegisterTestingT(t)

	v, err := rtrd.ParseRouteDistinguisher("64512:74")
	Expect(err).To(BeNil())
	Expect(v.Type).To(Equal(rtrd.TwoOctetAS))

	_, err = rtrd.ParseRouteDistinguisher("bad")
	Expect(err).ToNot(BeNil())
}

func TestValidateLists(t *testing.T) {
	RegisterTestingT(t)

	Expect(rtrd.ValidateRouteTargetList(nil)).To(BeNil())
	Expect(rtrd.ValidateRouteTargetList([]string{"64512:1", "192.0.2.9:2"})).To(BeNil())
	Expect(rtrd.ValidateRouteTargetList([]string{"64512:1", "nonsense"})).ToNot(BeNil())
	Expect(rtrd.ValidateRouteDistinguisherList([]string{"64512:10"})).To(BeNil())
	Expect(rtrd.ValidateRouteDistinguisherList([]string{""})).ToNot(BeNil())
}

func TestSplitJoin(t *testing.T) {
	RegisterTestingT(t)

	Expect(rtrd.SplitList("64512:1, 64512:2,,64512:3 ")).
		To(Equal([]string{"64512:1", "64512:2", "64512:3"}))
	Expect(rtrd.SplitList("")).To(BeNil())
	Expect(rtrd.JoinList([]string{"64512:1", "64512:2"})).To(Equal("64512:1,64512:2"))
}

func TestUnionEqual(t *testing.T) {
	RegisterTestingT(t)

	union := rtrd.Union([]string{"64512:2", "64512:1"}, []string{"64512:3", "64512:1"})
	Expect(union).To(Equal([]string{"64512:1", "64512:2", "64512:3"}))

	Expect(rtrd.Equal([]string{"a:1", "b:2"}, []string{"b:2", "a:1"})).To(BeTrue())
	Expect(rtrd.Equal([]string{"a:1"}, []string{"a:1", "b:2"})).To(BeFalse())
	Expect(rtrd.Equal(nil, nil)).To(BeTrue())
}
