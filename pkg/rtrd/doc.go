// Package rtrd implements parsing, validation and formatting of BGP
// route targets and route distinguishers in their textual forms:
// <2-byte-asn>:<assigned>, <ipv4-address>:<assigned> and
// <4-byte-asn>:<assigned>.
package rtrd
