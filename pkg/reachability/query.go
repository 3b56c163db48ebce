/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"slices"

	"github.com/np-guard/models/pkg/ipblock"

	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

// SourceAssignment says that flows may start at Locations with source addresses in
// SrcIPs. A nil SrcIPs allows every source address.
type SourceAssignment struct {
	Locations []IngressLocation
	SrcIPs    *ipblock.IPBlock
}

// Query describes one reachability question.
type Query struct {
	// Sources lists where flows start. Empty means every active interface link.
	Sources []SourceAssignment
	// HeaderSpace constrains the flows at their sources and, widened by translation
	// pools, at their dispositions. Its source-interface fields are ignored.
	HeaderSpace network.HeaderSpace
	// ForbiddenTransit devices must not forward the flows to another device.
	ForbiddenTransit []string
	// RequiredTransit devices: flows must be forwarded by at least one of them.
	RequiredTransit []string
	// FinalNodes are the devices whose dispositions count. Empty means every device.
	FinalNodes []string
	// Dispositions of interest. Empty means the success dispositions.
	Dispositions []state.Disposition
	// IgnoreFilters treats every filter as permitting everything.
	IgnoreFilters bool
}

// DefaultLoopRounds bounds the forward rounds of the loop detector: a hop budget of
// 256 network hops, six graph states per hop.
const DefaultLoopRounds = 256 * 6

// Options are the engine settings shared by every query of a Factory.
type Options struct {
	// LoopRounds bounds the loop detector rounds; zero means DefaultLoopRounds.
	LoopRounds int
	// Optimize runs the graph optimizer before every fixpoint.
	Optimize bool
	// NodeSize and CacheSize size the BDD tables; zero keeps the defaults.
	NodeSize  int
	CacheSize int
}

func (o Options) loopRounds() int {
	if o.LoopRounds <= 0 {
		return DefaultLoopRounds
	}
	return o.LoopRounds
}

func (q *Query) dispositions() []state.Disposition {
	if len(q.Dispositions) == 0 {
		return state.SuccessDispositions()
	}
	res := slices.Clone(q.Dispositions)
	slices.Sort(res)
	return slices.Compact(res)
}

// wantsLoops tells whether Loop is among the dispositions, and returns the others.
func (q *Query) wantsLoops() (bool, []state.Disposition) {
	var others []state.Disposition
	loop := false
	for _, d := range q.dispositions() {
		if d == state.Loop {
			loop = true
		} else {
			others = append(others, d)
		}
	}
	return loop, others
}

// withDispositions returns a copy of q asking for ds.
func (q *Query) withDispositions(ds []state.Disposition) *Query {
	res := *q
	res.Dispositions = ds
	return &res
}

// AllSources assigns every source address to the link of every active interface.
func AllSources(net *network.Network) []SourceAssignment {
	var locs []IngressLocation
	for _, name := range net.DeviceNames() {
		for _, iface := range net.Devices[name].ActiveInterfaceNames() {
			locs = append(locs, InterfaceLinkLocation(name, iface))
		}
	}
	return []SourceAssignment{{Locations: locs}}
}
