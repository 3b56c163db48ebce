/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/graph"
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

// LoopDetector finds the packets that can be forwarded forever. Packets are pushed
// through the graph in synchronous rounds; packets still in flight after the last
// round are loop candidates, confirmed when some of them come back to the same state.
type LoopDetector struct {
	f      *Factory
	rounds int
}

func (f *Factory) LoopDetector() *LoopDetector {
	return &LoopDetector{f: f, rounds: f.opts.loopRounds()}
}

// Detect returns, per ingress location of q, the packets that start there and loop.
func (ld *LoopDetector) Detect(q *Query) (map[IngressLocation]bdd.BDD, error) {
	f := ld.f
	roots, err := f.rootBDDs(q)
	if err != nil {
		return nil, err
	}
	g, err := f.buildGraph(q, &graphPlan{roots: roots, optimize: f.opts.Optimize, keepSelfLoops: true})
	if err != nil {
		return nil, err
	}
	frontier := map[state.Expr]bdd.BDD{}
	for root := range roots {
		frontier[root] = f.f.One()
	}
	for round := 0; round < ld.rounds && len(frontier) > 0; round++ {
		frontier = step(g, frontier)
	}
	candidates := sortedStates(frontier)
	loopCandidates.Add(float64(len(candidates)))
	logging.Debugf("loop detector: %d candidate states after %d rounds", len(candidates), ld.rounds)

	confirmed := map[state.Expr]bdd.BDD{}
	for _, s := range candidates {
		if b := ld.confirm(g, s, frontier[s]); !b.IsZero() {
			confirmed[s] = b
		}
	}
	loopsConfirmed.Add(float64(len(confirmed)))
	res := map[IngressLocation]bdd.BDD{}
	if len(confirmed) > 0 {
		f.atRoots(res, roots, g.Backward(confirmed))
	}
	queriesAnswered.WithLabelValues(analysisLoop).Inc()
	return res, nil
}

// confirm returns the packets of p at s that come back to s with a header in p,
// exploring at most the detector's round budget.
func (ld *LoopDetector) confirm(g *graph.Graph, s state.Expr, p bdd.BDD) bdd.BDD {
	res := ld.f.f.Zero()
	frontier := map[state.Expr]bdd.BDD{s: p}
	for round := 0; round < ld.rounds && len(frontier) > 0; round++ {
		frontier = step(g, frontier)
		if back, ok := frontier[s]; ok {
			res = res.Or(back.And(p))
			if res.Equal(p) {
				break
			}
		}
	}
	return res
}

// step moves every packet of frontier along one edge.
func step(g *graph.Graph, frontier map[state.Expr]bdd.BDD) map[state.Expr]bdd.BDD {
	next := map[state.Expr]bdd.BDD{}
	for _, s := range sortedStates(frontier) {
		for _, e := range g.Successors(s) {
			b := e.Transition.Forward(frontier[s])
			if b.IsZero() {
				continue
			}
			if prev, ok := next[e.Post]; ok {
				b = b.Or(prev)
			}
			next[e.Post] = b
		}
	}
	return next
}
