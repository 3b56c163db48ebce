/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"slices"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// BidirectionalResult splits the forward flows that reach their destination by the
// fate of their return flows. A flow with several return paths may be in both maps.
type BidirectionalResult struct {
	ReturnSucceeded map[IngressLocation]bdd.BDD
	ReturnFailed    map[IngressLocation]bdd.BDD
}

// successEdges constrains the edges out of the states of success to the packets that
// did not get back.
func (b *edgeBuilder) successEdges(success map[state.Expr]bdd.BDD) {
	if len(success) == 0 {
		return
	}
	for i := range b.edges {
		e := &b.edges[i]
		if succ, ok := success[e.Pre]; ok {
			e.Transition = transition.Compose(transition.Constrain(succ.Not()), e.Transition)
		}
	}
}

// returnRoot returns where the return flows of packets reaching the forward terminal
// state s start.
func returnRoot(s state.Expr) (state.Expr, bool) {
	switch s.Kind {
	case state.KindVrfAccept:
		return state.OriginateVrf(s.Node, s.VRF), true
	case state.KindNodeInterfaceDeliveredToSubnet, state.KindNodeInterfaceExitsNetwork:
		return state.OriginateInterfaceLink(s.Node, s.Iface), true
	default:
		return state.Expr{}, false
	}
}

// successStates returns where the return flows of packets starting at root get back.
func successStates(root state.Expr) []state.Expr {
	switch root.Kind {
	case state.KindOriginateInterfaceLink:
		return []state.Expr{
			state.NodeInterfaceDeliveredToSubnet(root.Node, root.Iface),
			state.NodeInterfaceExitsNetwork(root.Node, root.Iface),
		}
	default:
		return []state.Expr{state.NodeAccept(root.Node)}
	}
}

func unionInto(m map[state.Expr]bdd.BDD, s state.Expr, b bdd.BDD) {
	if b.IsZero() {
		return
	}
	if prev, ok := m[s]; ok {
		b = b.Or(prev)
	}
	m[s] = b
}

// Bidirectional answers q for the forward flows that reach a success disposition,
// and tells for which of them the return flows get back to the source. Return flows
// go through the sessions the forward flows set up.
func (f *Factory) Bidirectional(q *Query) (*BidirectionalResult, error) {
	if loop, _ := q.wantsLoops(); loop {
		return nil, unsupportedErrorf("loop disposition in a bidirectional query")
	}
	res := &BidirectionalResult{
		ReturnSucceeded: map[IngressLocation]bdd.BDD{},
		ReturnFailed:    map[IngressLocation]bdd.BDD{},
	}
	fq := q.withDispositions(state.SuccessDispositions())
	roots, err := f.rootBDDs(fq)
	if err != nil {
		return nil, err
	}
	fg, err := f.buildGraph(fq, &graphPlan{roots: roots, dispositions: fq.Dispositions})
	if err != nil {
		return nil, err
	}
	reach, err := f.forwardAndBackward(fq, fg, roots)
	if err != nil {
		return nil, err
	}

	returnRoots := map[state.Expr]bdd.BDD{}
	terminals := map[state.Expr][]state.Expr{}
	for _, s := range sortedStates(reach) {
		root, ok := returnRoot(s)
		if !ok {
			continue
		}
		unionInto(returnRoots, root, f.returnFlows(reach[s]))
		terminals[root] = append(terminals[root], s)
	}
	if len(returnRoots) == 0 {
		return res, nil
	}
	sessions, err := f.computeSessions(fq, reach)
	if err != nil {
		return nil, err
	}

	success := map[state.Expr]bdd.BDD{}
	for _, root := range sortedStates(roots) {
		for _, s := range successStates(root) {
			unionInto(success, s, f.returnFlows(roots[root]))
		}
	}
	failures := slices.DeleteFunc(state.FailureDispositions(), func(d state.Disposition) bool { return d == state.Loop })
	rq := &Query{Dispositions: failures, IgnoreFilters: q.IgnoreFilters}
	rg, err := f.buildGraph(rq, &graphPlan{
		roots:        returnRoots,
		dispositions: failures,
		sessions:     sessions,
		success:      success,
		optimize:     f.opts.Optimize,
		keep:         sortedStates(success),
	})
	if err != nil {
		return nil, err
	}
	succeeded := rg.Backward(success)
	failed := rg.Backward(map[state.Expr]bdd.BDD{state.Query: f.f.One()})

	succSeeds, failSeeds := map[state.Expr]bdd.BDD{}, map[state.Expr]bdd.BDD{}
	for _, root := range sortedStates(returnRoots) {
		for _, t := range terminals[root] {
			if b, ok := succeeded[root]; ok {
				unionInto(succSeeds, t, f.returnFlows(b).And(reach[t]))
			}
			if b, ok := failed[root]; ok {
				unionInto(failSeeds, t, f.returnFlows(b).And(reach[t]))
			}
		}
	}
	f.atRoots(res.ReturnSucceeded, roots, fg.Backward(succSeeds))
	f.atRoots(res.ReturnFailed, roots, fg.Backward(failSeeds))
	logging.Debugf("bidirectional: %d sessions, %d sources with returning flows, %d with failing returns",
		len(sessions), len(res.ReturnSucceeded), len(res.ReturnFailed))
	queriesAnswered.WithLabelValues(analysisBidirectional).Inc()
	return res, nil
}
