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

package rtrd

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// Type discriminates the three textual forms of a route target
// / route distinguisher.
type Type int

const (
	// TwoOctetAS is the <2-byte-asn>:<4-byte-assigned> form.
	TwoOctetAS Type = iota

	// IPv4Address is the <ipv4>:<2-byte-assigned> form.
	IPv4Address

	// FourOctetAS is the <4-byte-asn>:<2-byte-assigned> form.
	FourOctetAS
)

// String converts Type into a human-readable string.
func (t Type) String() string {
	switch t {
	case TwoOctetAS:
		return "two-octet-as"
	case IPv4Address:
		return "ipv4-address"
	case FourOctetAS:
		return "four-octet-as"
	}
	return "INVALID"
}

// Value is a parsed route target or route distinguisher.
type Value struct {
	Type     Type
	ASN      uint32 // valid for TwoOctetAS and FourOctetAS
	IP       net.IP // valid for IPv4Address
	Assigned uint32
}

// String returns the canonical textual form of the value.
func (v Value) String() string {
	if v.Type == IPv4Address {
		return fmt.Sprintf("%s:%d", v.IP.String(), v.Assigned)
	}
	return fmt.Sprintf("%d:%d", v.ASN, v.Assigned)
}

// ParseRouteTarget parses a route target from its textual form.
func ParseRouteTarget(rt string) (Value, error) {
	return parse(rt, "route target")
}

// ParseRouteDistinguisher parses a route distinguisher from its textual
// form. Route distinguishers share the grammar of route targets.
func ParseRouteDistinguisher(rd string) (Value, error) {
	return parse(rd, "route distinguisher")
}

func parse(str, kind string) (v Value, err error) {
	str = strings.TrimSpace(str)
	sepIdx := strings.LastIndex(str, ":")
	if sepIdx <= 0 || sepIdx == len(str)-1 {
		return v, fmt.Errorf("invalid %s %q: expected <admin>:<assigned>", kind, str)
	}
	admin := str[:sepIdx]
	assigned, err := strconv.ParseUint(str[sepIdx+1:], 10, 32)
	if err != nil {
		return v, fmt.Errorf("invalid %s %q: bad assigned number: %v", kind, str, err)
	}
	v.Assigned = uint32(assigned)

	if ip := net.ParseIP(admin); ip != nil {
		if ip.To4() == nil {
			return v, fmt.Errorf("invalid %s %q: admin address must be IPv4", kind, str)
		}
		if assigned > 0xffff {
			return v, fmt.Errorf("invalid %s %q: assigned number exceeds 16 bits", kind, str)
		}
		v.Type = IPv4Address
		v.IP = ip.To4()
		return v, nil
	}

	asn, err := strconv.ParseUint(admin, 10, 32)
	if err != nil {
		return v, fmt.Errorf("invalid %s %q: bad administrator field: %v", kind, str, err)
	}
	v.ASN = uint32(asn)
	if asn > 0xffff {
		if assigned > 0xffff {
			return v, fmt.Errorf("invalid %s %q: assigned number exceeds 16 bits", kind, str)
		}
		v.Type = FourOctetAS
		return v, nil
	}
	v.Type = TwoOctetAS
	return v, nil
}

// ValidateRouteTargetList parses every item of the list and returns
// the first error encountered, if any. Empty lists are valid.
func ValidateRouteTargetList(rts []string) error {
	for _, rt := range rts {
		if _, err := ParseRouteTarget(rt); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRouteDistinguisherList parses every item of the list and
// returns the first error encountered, if any.
func ValidateRouteDistinguisherList(rds []string) error {
	for _, rd := range rds {
		if _, err := ParseRouteDistinguisher(rd); err != nil {
			return err
		}
	}
	return nil
}

// SplitList splits a comma-joined list of route targets / route
// distinguishers into a slice, trimming whitespace and skipping
// empty items.
func SplitList(joined string) (list []string) {
	for _, item := range strings.Split(joined, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}

// JoinList joins route targets / route distinguishers into the
// comma-separated form used on the wire and in the CLI.
func JoinList(list []string) string {
	return strings.Join(list, ",")
}

// Union merges two lists into one without duplicates. The result is
// sorted to make it deterministic regardless of the input order.
func Union(a, b []string) []string {
	present := make(map[string]struct{})
	var union []string
	for _, list := range [][]string{a, b} {
		for _, item := range list {
			if _, known := present[item]; known {
				continue
			}
			present[item] = struct{}{}
			union = append(union, item)
		}
	}
	sort.Strings(union)
	return union
}

// Equal compares two lists as sets.
func Equal(a, b []string) bool {
	setA := make(map[string]struct{})
	for _, item := range a {
		setA[item] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, item := range b {
		setB[item] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for item := range setA {
		if _, has := setB[item]; !has {
			return false
		}
	}
	return true
}
