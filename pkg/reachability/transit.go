/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"github.com/np-guard/reachability-analyzer/pkg/common"
	"github.com/np-guard/reachability-analyzer/pkg/graph"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// leavesDevice tells whether e forwards packets from one device to its neighbour.
func leavesDevice(e graph.Edge) bool {
	switch e.Pre.Kind {
	case state.KindPreOutEdgePostNat, state.KindPreOutEdgeSession:
		return e.Post.Kind == state.KindPreInInterface
	default:
		return false
	}
}

// instrumentTransit drops the edges leaving forbidden transit devices and tracks, in
// the transit bit, whether a required transit device forwarded the packets: the bit
// is cleared at origination, set when leaving a required device and checked before
// Query.
func (f *Factory) instrumentTransit(edges []graph.Edge, q *Query) []graph.Edge {
	forbidden := common.NewGenericSet(q.ForbiddenTransit...)
	required := common.NewGenericSet(q.RequiredTransit...)
	if len(forbidden) == 0 && len(required) == 0 {
		return edges
	}
	clearBit := transition.SetVars(f.transitTag.VarSet(), f.transitBit().Not())
	setBit := transition.SetVars(f.transitTag.VarSet(), f.transitBit())
	check := transition.Constrain(f.transitBit())
	res := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		switch {
		case leavesDevice(e) && forbidden.Contains(e.Pre.Node):
			continue
		case len(required) == 0:
		case leavesDevice(e) && required.Contains(e.Pre.Node):
			e.Transition = transition.Compose(e.Transition, setBit)
		case e.Pre.IsOrigination():
			e.Transition = transition.Compose(clearBit, e.Transition)
		case e.Post.Kind == state.KindQuery:
			e.Transition = transition.Compose(e.Transition, check)
		}
		res = append(res, e)
	}
	return res
}
