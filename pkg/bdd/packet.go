/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bdd

import (
	"fmt"
)

const (
	ipBits       = 32
	portBits     = 16
	protocolBits = 8

	// HeaderBits is the number of variables encoding the 5-tuple.
	HeaderBits = 2*ipBits + 2*portBits + protocolBits

	// swapBits scratch variables hold addresses and ports halfway through a swap
	swapBits = 2*ipBits + 2*portBits
)

// Packet lays out the packet header fields over a Factory, followed by tag variables
// that the analysis allocates for its own bookkeeping.
type Packet struct {
	f          *Factory
	DstIP      BitVec
	SrcIP      BitVec
	DstPort    BitVec
	SrcPort    BitVec
	IPProtocol BitVec

	header VarSet
	// a replacement may not map onto a variable it also renames, so swaps go
	// through scratch variables in two passes
	toScratch   *Pairing
	fromScratch *Pairing
	tags        []BitVec
}

// NewPacket creates a factory holding the 5-tuple, the swap scratch variables and
// tagBits variables for tags.
func NewPacket(tagBits int, opts ...FactoryOption) (*Packet, error) {
	f, err := NewFactory(HeaderBits+swapBits+tagBits, opts...)
	if err != nil {
		return nil, err
	}
	p := &Packet{f: f}
	fields := []struct {
		vec   *BitVec
		name  string
		width int
	}{
		{&p.DstIP, "dstIp", ipBits},
		{&p.SrcIP, "srcIp", ipBits},
		{&p.DstPort, "dstPort", portBits},
		{&p.SrcPort, "srcPort", portBits},
		{&p.IPProtocol, "ipProtocol", protocolBits},
	}
	for _, field := range fields {
		if *field.vec, err = NewBitVec(f, field.name, field.width); err != nil {
			return nil, err
		}
	}
	p.header = f.NewVarSet(append(append(append(append(p.DstIP.Vars(), p.SrcIP.Vars()...),
		p.DstPort.Vars()...), p.SrcPort.Vars()...), p.IPProtocol.Vars()...)...)

	scratch, err := f.Allocate(swapBits)
	if err != nil {
		return nil, err
	}
	from := append(append(append(p.DstIP.Vars(), p.SrcIP.Vars()...), p.DstPort.Vars()...), p.SrcPort.Vars()...)
	to := append(append(append(p.SrcIP.Vars(), p.DstIP.Vars()...), p.SrcPort.Vars()...), p.DstPort.Vars()...)
	if p.toScratch, err = f.NewPairing(from, scratch); err != nil {
		return nil, fmt.Errorf("building source/destination pairing: %w", err)
	}
	if p.fromScratch, err = f.NewPairing(scratch, to); err != nil {
		return nil, fmt.Errorf("building source/destination pairing: %w", err)
	}
	return p, nil
}

// Factory returns the arena of the packet layout.
func (p *Packet) Factory() *Factory {
	return p.f
}

// AllocateTag reserves a tag field of the given width.
func (p *Packet) AllocateTag(name string, width int) (BitVec, error) {
	tag, err := NewBitVec(p.f, name, width)
	if err != nil {
		return BitVec{}, err
	}
	p.tags = append(p.tags, tag)
	return tag, nil
}

// HeaderVars is the set of 5-tuple variables.
func (p *Packet) HeaderVars() VarSet {
	return p.header
}

// ProjectHeader drops every constraint on tag variables.
func (p *Packet) ProjectHeader(b BDD) BDD {
	return b.Project(p.header)
}

// SwapSourceAndDestination exchanges source and destination addresses and ports.
func (p *Packet) SwapSourceAndDestination(b BDD) BDD {
	return b.Replace(p.toScratch).Replace(p.fromScratch)
}

// Swapped returns the field that SwapSourceAndDestination exchanges with v.
func (p *Packet) Swapped(v BitVec) BitVec {
	switch v.name {
	case p.DstIP.name:
		return p.SrcIP
	case p.SrcIP.name:
		return p.DstIP
	case p.DstPort.name:
		return p.SrcPort
	case p.SrcPort.name:
		return p.DstPort
	default:
		return v
	}
}
