/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package graph

import (
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// OptimizeOptions selects which parts of the graph the optimizer must leave alone.
type OptimizeOptions struct {
	// Keep lists the states whose reachable packets must not change.
	Keep []state.Expr
	// KeepSelfLoops disables self-loop removal, for loop detection.
	KeepSelfLoops bool
}

type optimizer struct {
	g       *Graph
	keep    []bool
	removed []bool
	queued  []bool
	queue   []int
	opts    OptimizeOptions
}

// Optimize returns a smaller graph with the same reachable packets at every kept state,
// for seeds placed on kept states. It prunes states without predecessors or without
// successors, splices out states with a single predecessor and a single successor, and
// drops self-loops that cannot let new packets through.
func Optimize(g *Graph, opts OptimizeOptions) *Graph {
	o := &optimizer{
		g:       g.clone(),
		keep:    make([]bool, len(g.states)),
		removed: make([]bool, len(g.states)),
		queued:  make([]bool, len(g.states)),
		opts:    opts,
	}
	for _, s := range opts.Keep {
		if id, ok := o.g.ids[s]; ok {
			o.keep[id] = true
		}
	}
	for id := range o.g.states {
		o.push(id)
	}
	statesBefore, edgesBefore := g.NumStates(), g.NumEdges()
	for len(o.queue) > 0 {
		id := o.queue[0]
		o.queue = o.queue[1:]
		o.queued[id] = false
		o.visit(id)
	}
	logging.Debugf("optimizer: %d states / %d edges reduced to %d states / %d edges",
		statesBefore, edgesBefore, o.g.NumStates(), o.g.NumEdges())
	return o.g
}

func (o *optimizer) push(id int) {
	if o.keep[id] || o.removed[id] || o.queued[id] {
		return
	}
	o.queued[id] = true
	o.queue = append(o.queue, id)
}

func (o *optimizer) pushAll(ids []int) {
	for _, id := range ids {
		o.push(id)
	}
}

func (o *optimizer) visit(id int) {
	if o.keep[id] || o.removed[id] {
		return
	}
	g := o.g
	if selfLoop, ok := g.out[id][id]; ok {
		if !o.opts.KeepSelfLoops && transition.IsSelfLoopSafe(selfLoop) {
			g.removeEdgeByID(id, id)
		}
	}
	_, hasSelfLoop := g.out[id][id]
	preds := others(g.in[id], id)
	succs := others(g.out[id], id)

	switch {
	case len(preds) == 0:
		// unreachable from any kept state
		o.remove(id)
		o.pushAll(succs)
		optimizerRemovedStates.Inc()
	case len(succs) == 0 && !(hasSelfLoop && o.opts.KeepSelfLoops):
		// reaches no kept state
		o.remove(id)
		o.pushAll(preds)
		optimizerRemovedStates.Inc()
	case len(preds) == 1 && len(succs) == 1 && !hasSelfLoop:
		from, to := preds[0], succs[0]
		composed := transition.Compose(g.out[from][id], g.out[id][to])
		o.remove(id)
		if composed != transition.Zero {
			g.addEdgeByID(from, to, composed)
		}
		o.push(from)
		o.push(to)
		optimizerSplicedStates.Inc()
	}
}

func (o *optimizer) remove(id int) {
	g := o.g
	for _, to := range sortedKeys(g.out[id]) {
		g.removeEdgeByID(id, to)
	}
	for _, from := range sortedKeys(g.in[id]) {
		g.removeEdgeByID(from, id)
	}
	o.removed[id] = true
}

func others(adj map[int]transition.Transition, self int) []int {
	var res []int
	for _, k := range sortedKeys(adj) {
		if k != self {
			res = append(res, k)
		}
	}
	return res
}
