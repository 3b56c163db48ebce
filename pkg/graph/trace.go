/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package graph

import (
	"iter"
	"strings"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

// Hop is one step of a trace: the packets present at a state.
type Hop struct {
	State state.Expr
	BDD   bdd.BDD
}

// Trace is a path through the graph from a start state. It ends at a state without
// successors, or at a state already on the path when Loop is set.
type Trace struct {
	Hops []Hop
	Loop bool
}

// Last returns the final hop of the trace.
func (t Trace) Last() Hop {
	return t.Hops[len(t.Hops)-1]
}

func (t Trace) String() string {
	parts := make([]string, len(t.Hops))
	for i, h := range t.Hops {
		parts[i] = h.State.String()
	}
	res := strings.Join(parts, " -> ")
	if t.Loop {
		res += " (loop)"
	}
	return res
}

// Traces enumerates, depth first, every simple path from start along which some packet
// of pred travels. The sequence is computed lazily and can be iterated several times.
func (g *Graph) Traces(start state.Expr, pred bdd.BDD) iter.Seq[Trace] {
	return func(yield func(Trace) bool) {
		if pred.IsZero() {
			return
		}
		onPath := map[state.Expr]bool{start: true}
		g.walk([]Hop{{State: start, BDD: pred}}, onPath, yield)
	}
}

// walk returns false once the consumer stopped the iteration.
func (g *Graph) walk(path []Hop, onPath map[state.Expr]bool, yield func(Trace) bool) bool {
	cur := path[len(path)-1]
	extended := false
	for _, e := range g.Successors(cur.State) {
		next := e.Transition.Forward(cur.BDD)
		if next.IsZero() {
			continue
		}
		extended = true
		hops := append(path[:len(path):len(path)], Hop{State: e.Post, BDD: next})
		if onPath[e.Post] {
			if !yield(Trace{Hops: hops, Loop: true}) {
				return false
			}
			continue
		}
		onPath[e.Post] = true
		ok := g.walk(hops, onPath, yield)
		delete(onPath, e.Post)
		if !ok {
			return false
		}
	}
	if !extended {
		return yield(Trace{Hops: path})
	}
	return true
}
