/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bdd

import (
	"fmt"
)

const ephemeralPortMin = 49152

// Flow is one concrete packet header.
type Flow struct {
	SrcIP      uint64
	DstIP      uint64
	SrcPort    uint64
	DstPort    uint64
	IPProtocol uint64
}

func (fl Flow) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d (%s)", AddrString(fl.SrcIP), fl.SrcPort,
		AddrString(fl.DstIP), fl.DstPort, ProtocolName(fl.IPProtocol))
}

// Src and Dst render the addresses of the flow.
func (fl Flow) Src() string { return AddrString(fl.SrcIP) }
func (fl Flow) Dst() string { return AddrString(fl.DstIP) }

// Example picks one packet of b, favoring TCP packets from an ephemeral source port.
// It returns false when b is empty.
func (p *Packet) Example(b BDD) (Flow, bool) {
	if b.IsZero() {
		return Flow{}, false
	}
	tcp := p.IPProtocol.Value(protocolNumbers["TCP"])
	for _, pref := range []BDD{tcp, p.SrcPort.Geq(ephemeralPortMin)} {
		if c := b.And(pref); !c.IsZero() {
			b = c
		}
	}
	assignment := make([]bool, p.f.NumVars())
	for i := range assignment {
		if c := b.And(p.f.NVar(i)); !c.IsZero() {
			b = c
			continue
		}
		b = b.And(p.f.Var(i))
		assignment[i] = true
	}
	return Flow{
		SrcIP:      p.SrcIP.Decode(assignment),
		DstIP:      p.DstIP.Decode(assignment),
		SrcPort:    p.SrcPort.Decode(assignment),
		DstPort:    p.DstPort.Decode(assignment),
		IPProtocol: p.IPProtocol.Decode(assignment),
	}, true
}

// FlowBDD is the set holding exactly the header of fl, with any tag values.
func (p *Packet) FlowBDD(fl Flow) BDD {
	return p.f.And(
		p.SrcIP.Value(fl.SrcIP),
		p.DstIP.Value(fl.DstIP),
		p.SrcPort.Value(fl.SrcPort),
		p.DstPort.Value(fl.DstPort),
		p.IPProtocol.Value(fl.IPProtocol),
	)
}
