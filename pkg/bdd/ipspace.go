/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bdd

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"github.com/np-guard/models/pkg/ipblock"
	"github.com/np-guard/models/pkg/netp"
)

// IP protocol numbers of the protocols known to netp.
var protocolNumbers = map[netp.ProtocolString]uint64{
	netp.ProtocolStringICMP: 1,
	netp.ProtocolStringTCP:  6,
	netp.ProtocolStringUDP:  17,
}

// ProtocolNumber returns the IP protocol number of a protocol name.
func ProtocolNumber(p netp.ProtocolString) (uint64, error) {
	n, ok := protocolNumbers[netp.ProtocolString(strings.ToUpper(string(p)))]
	if !ok {
		return 0, fmt.Errorf("unknown protocol %q", p)
	}
	return n, nil
}

// ProtocolName returns the name of an IP protocol number, or the number itself.
func ProtocolName(n uint64) string {
	for name, num := range protocolNumbers {
		if num == n {
			return string(name)
		}
	}
	return fmt.Sprint(n)
}

// IPSpace is the set where an address field belongs to block. A nil block matches everything.
func IPSpace(v BitVec, block *ipblock.IPBlock) (BDD, error) {
	if block == nil {
		return v.f.One(), nil
	}
	res := v.f.Zero()
	for _, cidr := range block.ToCidrList() {
		prefix, err := parsePrefix(cidr)
		if err != nil {
			return BDD{}, err
		}
		addr := prefix.Addr().As4()
		res = res.Or(v.Prefix(uint64(binary.BigEndian.Uint32(addr[:])), prefix.Bits()))
	}
	return res, nil
}

func parsePrefix(cidr string) (netip.Prefix, error) {
	if !strings.Contains(cidr, "/") {
		addr, err := netip.ParseAddr(cidr)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return netip.Prefix{}, err
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("only IPv4 is supported, got %s", cidr)
	}
	return prefix.Masked(), nil
}

// DstIPSpace is the set of packets whose destination address is in block.
func (p *Packet) DstIPSpace(block *ipblock.IPBlock) (BDD, error) {
	return IPSpace(p.DstIP, block)
}

// SrcIPSpace is the set of packets whose source address is in block.
func (p *Packet) SrcIPSpace(block *ipblock.IPBlock) (BDD, error) {
	return IPSpace(p.SrcIP, block)
}

// Protocol is the set of packets of the named protocol.
func (p *Packet) Protocol(name netp.ProtocolString) (BDD, error) {
	n, err := ProtocolNumber(name)
	if err != nil {
		return BDD{}, err
	}
	return p.IPProtocol.Value(n), nil
}

// AddrString renders an IPv4 address held in a 32-bit field.
func AddrString(x uint64) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(x))
	return netip.AddrFrom4(b).String()
}
