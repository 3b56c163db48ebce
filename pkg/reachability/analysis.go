/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"iter"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/graph"
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

const (
	analysisReachability  = "reachability"
	analysisLoop          = "loop"
	analysisMultipath     = "multipath"
	analysisBidirectional = "bidirectional"
)

// graphPlan selects the edges of one graph.
type graphPlan struct {
	roots map[state.Expr]bdd.BDD
	// dispositions connected to Query; none for the loop detector
	dispositions []state.Disposition
	// sessions of the return pass
	sessions []*Session
	// success holds, per terminal state, the return flows that got back; edges out of
	// those states only carry the other packets
	success map[state.Expr]bdd.BDD

	optimize      bool
	keep          []state.Expr
	keepSelfLoops bool
}

// buildGraph generates the edges of plan for q and builds the graph.
func (f *Factory) buildGraph(q *Query, plan *graphPlan) (*graph.Graph, error) {
	b := &edgeBuilder{f: f, q: q}
	if err := b.rootEdges(plan.roots); err != nil {
		return nil, err
	}
	if err := b.deviceEdges(); err != nil {
		return nil, err
	}
	if len(plan.dispositions) > 0 {
		b.dispositionEdges()
		b.queryEdges(plan.dispositions)
	}
	if len(plan.sessions) > 0 {
		if err := b.sessionEdges(plan.sessions, plan.roots); err != nil {
			return nil, err
		}
	}
	b.successEdges(plan.success)
	g := graph.New(f.instrumentTransit(b.edges, q))
	logging.Debugf("graph: %d states, %d edges", g.NumStates(), g.NumEdges())
	if !plan.optimize {
		return g, nil
	}
	keep := append(sortedStates(plan.roots), state.Query)
	keep = append(keep, plan.keep...)
	return graph.Optimize(g, graph.OptimizeOptions{Keep: keep, KeepSelfLoops: plan.keepSelfLoops}), nil
}

// rootBDDs returns the origination states of the sources of q with the packets each
// may start with.
func (f *Factory) rootBDDs(q *Query) (map[state.Expr]bdd.BDD, error) {
	hs, err := f.headerSpaceBDD("", &q.HeaderSpace)
	if err != nil {
		return nil, err
	}
	sources := q.Sources
	if len(sources) == 0 {
		sources = AllSources(f.net)
	}
	res := map[state.Expr]bdd.BDD{}
	for _, sa := range sources {
		b := hs
		if sa.SrcIPs != nil {
			ips, err := f.pkt.SrcIPSpace(sa.SrcIPs)
			if err != nil {
				return nil, err
			}
			b = b.And(ips)
		}
		if b.IsZero() {
			continue
		}
		for _, loc := range sa.Locations {
			s := loc.State()
			if prev, ok := res[s]; ok {
				res[s] = prev.Or(b)
			} else {
				res[s] = b
			}
		}
	}
	if len(res) == 0 {
		return nil, configErrorf("no sources are compatible with the headerspace constraint")
	}
	return res, nil
}

// atRoots maps the packets found at origination states to their ingress locations,
// keeping only header fields. Results are unioned into res.
func (f *Factory) atRoots(res map[IngressLocation]bdd.BDD, roots map[state.Expr]bdd.BDD, found map[state.Expr]bdd.BDD) {
	for _, root := range sortedStates(roots) {
		b, ok := found[root]
		if !ok {
			continue
		}
		b = f.pkt.ProjectHeader(b)
		if b.IsZero() {
			continue
		}
		loc, _ := locationOf(root)
		if prev, ok := res[loc]; ok {
			b = b.Or(prev)
		}
		res[loc] = b
	}
}

// Graph builds the graph answering q, optimized when the factory options ask for it.
func (f *Factory) Graph(q *Query) (*graph.Graph, error) {
	roots, err := f.rootBDDs(q)
	if err != nil {
		return nil, err
	}
	_, others := q.wantsLoops()
	return f.buildGraph(q, &graphPlan{roots: roots, dispositions: others, optimize: f.opts.Optimize})
}

// Reachability returns, per ingress location, the packets that start there and end
// in one of the dispositions of q. The Loop disposition adds the packets found by the
// loop detector.
func (f *Factory) Reachability(q *Query) (map[IngressLocation]bdd.BDD, error) {
	roots, err := f.rootBDDs(q)
	if err != nil {
		return nil, err
	}
	loops, others := q.wantsLoops()
	res := map[IngressLocation]bdd.BDD{}
	if len(others) > 0 {
		g, err := f.buildGraph(q, &graphPlan{roots: roots, dispositions: others, optimize: f.opts.Optimize})
		if err != nil {
			return nil, err
		}
		seed, err := f.finalHeaderSpace(q)
		if err != nil {
			return nil, err
		}
		f.atRoots(res, roots, g.Backward(map[state.Expr]bdd.BDD{state.Query: seed}))
	}
	if loops {
		looping, err := f.LoopDetector().Detect(q)
		if err != nil {
			return nil, err
		}
		for loc, b := range looping {
			if prev, ok := res[loc]; ok {
				b = b.Or(prev)
			}
			res[loc] = b
		}
	}
	queriesAnswered.WithLabelValues(analysisReachability).Inc()
	return res, nil
}

// AllBDDs returns, for every state of the unoptimized graph of q, the packets that
// both come from a source of q and reach one of its dispositions.
func (f *Factory) AllBDDs(q *Query) (map[state.Expr]bdd.BDD, error) {
	roots, err := f.rootBDDs(q)
	if err != nil {
		return nil, err
	}
	_, others := q.wantsLoops()
	g, err := f.buildGraph(q, &graphPlan{roots: roots, dispositions: others})
	if err != nil {
		return nil, err
	}
	return f.forwardAndBackward(q, g, roots)
}

func (f *Factory) forwardAndBackward(q *Query, g *graph.Graph, roots map[state.Expr]bdd.BDD) (map[state.Expr]bdd.BDD, error) {
	seed, err := f.finalHeaderSpace(q)
	if err != nil {
		return nil, err
	}
	seeds := map[state.Expr]bdd.BDD{}
	for root := range roots {
		seeds[root] = f.f.One()
	}
	fwd := g.Forward(seeds)
	bwd := g.Backward(map[state.Expr]bdd.BDD{state.Query: seed})
	res := map[state.Expr]bdd.BDD{}
	for s, b := range fwd {
		other, ok := bwd[s]
		if !ok {
			continue
		}
		if both := b.And(other); !both.IsZero() {
			res[s] = both
		}
	}
	return res, nil
}

// Traces enumerates the paths taken by the packets of q that start at loc and end in
// one of its dispositions. When q asks for loops, paths that come back to a state with
// some of the packets they had there are reported as well.
func (f *Factory) Traces(q *Query, loc IngressLocation) (iter.Seq[graph.Trace], error) {
	roots, err := f.rootBDDs(q)
	if err != nil {
		return nil, err
	}
	start, ok := roots[loc.State()]
	if !ok {
		return nil, configErrorf("%s is not a source of the query", loc)
	}
	loops, others := q.wantsLoops()
	g, err := f.buildGraph(q, &graphPlan{roots: roots, dispositions: others})
	if err != nil {
		return nil, err
	}
	all := g.Traces(loc.State(), start)
	return func(yield func(graph.Trace) bool) {
		for t := range all {
			switch {
			case t.Loop && (!loops || !f.closesLoop(t)):
				continue
			case !t.Loop && t.Last().State != state.Query:
				continue
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

// closesLoop tells whether the last hop of t brings back headers that were already at
// the same state earlier on t. Tags differ between the two visits.
func (f *Factory) closesLoop(t graph.Trace) bool {
	last := t.Last()
	for _, h := range t.Hops[:len(t.Hops)-1] {
		if h.State == last.State {
			return f.pkt.ProjectHeader(h.BDD).Intersects(f.pkt.ProjectHeader(last.BDD))
		}
	}
	return false
}
