/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package graph holds the reachability graph: states connected by edges labeled with
// transitions, and the algorithms over it (fixpoint propagation, optimization, traces).
package graph

import (
	"slices"

	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// Edge moves packets from Pre to Post through Transition.
type Edge struct {
	Pre        state.Expr
	Post       state.Expr
	Transition transition.Transition
}

func (e Edge) String() string {
	return e.Pre.String() + " -> " + e.Post.String()
}

// Graph is an adjacency table over integer state ids. It is not modified once built.
type Graph struct {
	ids    map[state.Expr]int
	states []state.Expr
	out    []map[int]transition.Transition
	in     []map[int]transition.Transition
}

// New builds a graph from edges, merging parallel edges with transition.Union in the
// order they are given. State ids follow first appearance, so the same edge list
// always produces the same graph.
func New(edges []Edge) *Graph {
	g := newEmpty()
	for _, e := range edges {
		g.addEdge(e.Pre, e.Post, e.Transition)
	}
	return g
}

func newEmpty() *Graph {
	return &Graph{ids: map[state.Expr]int{}}
}

func (g *Graph) id(s state.Expr) int {
	if id, ok := g.ids[s]; ok {
		return id
	}
	id := len(g.states)
	g.ids[s] = id
	g.states = append(g.states, s)
	g.out = append(g.out, map[int]transition.Transition{})
	g.in = append(g.in, map[int]transition.Transition{})
	return id
}

func (g *Graph) addEdge(pre, post state.Expr, t transition.Transition) {
	if t == transition.Zero {
		return
	}
	g.addEdgeByID(g.id(pre), g.id(post), t)
}

func (g *Graph) addEdgeByID(from, to int, t transition.Transition) {
	if existing, ok := g.out[from][to]; ok {
		t = transition.Union(existing, t)
	}
	g.out[from][to] = t
	g.in[to][from] = t
}

func (g *Graph) removeEdgeByID(from, to int) {
	delete(g.out[from], to)
	delete(g.in[to], from)
}

// Contains tells whether s is a state of the graph.
func (g *Graph) Contains(s state.Expr) bool {
	_, ok := g.ids[s]
	return ok
}

// States returns every state touched by an edge, sorted.
func (g *Graph) States() []state.Expr {
	var res []state.Expr
	for id, s := range g.states {
		if len(g.out[id]) > 0 || len(g.in[id]) > 0 {
			res = append(res, s)
		}
	}
	slices.SortFunc(res, state.Compare)
	return res
}

// NumStates counts the states touched by an edge.
func (g *Graph) NumStates() int {
	n := 0
	for id := range g.states {
		if len(g.out[id]) > 0 || len(g.in[id]) > 0 {
			n++
		}
	}
	return n
}

// NumEdges counts the edges of the graph.
func (g *Graph) NumEdges() int {
	n := 0
	for _, succ := range g.out {
		n += len(succ)
	}
	return n
}

func sortedKeys(m map[int]transition.Transition) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Successors returns the edges leaving s.
func (g *Graph) Successors(s state.Expr) []Edge {
	id, ok := g.ids[s]
	if !ok {
		return nil
	}
	var res []Edge
	for _, to := range sortedKeys(g.out[id]) {
		res = append(res, Edge{Pre: s, Post: g.states[to], Transition: g.out[id][to]})
	}
	return res
}

// Predecessors returns the edges entering s.
func (g *Graph) Predecessors(s state.Expr) []Edge {
	id, ok := g.ids[s]
	if !ok {
		return nil
	}
	var res []Edge
	for _, from := range sortedKeys(g.in[id]) {
		res = append(res, Edge{Pre: g.states[from], Post: s, Transition: g.in[id][from]})
	}
	return res
}

// Edge returns the transition from pre to post, if any.
func (g *Graph) Edge(pre, post state.Expr) (transition.Transition, bool) {
	from, ok1 := g.ids[pre]
	to, ok2 := g.ids[post]
	if !ok1 || !ok2 {
		return nil, false
	}
	t, ok := g.out[from][to]
	return t, ok
}

// Edges lists all edges, sorted by source then target state.
func (g *Graph) Edges() []Edge {
	var res []Edge
	for _, s := range g.States() {
		res = append(res, g.Successors(s)...)
	}
	slices.SortStableFunc(res, func(a, b Edge) int {
		if c := state.Compare(a.Pre, b.Pre); c != 0 {
			return c
		}
		return state.Compare(a.Post, b.Post)
	})
	return res
}

// clone copies the adjacency tables; transitions are immutable and shared.
func (g *Graph) clone() *Graph {
	c := &Graph{
		ids:    make(map[state.Expr]int, len(g.ids)),
		states: slices.Clone(g.states),
		out:    make([]map[int]transition.Transition, len(g.out)),
		in:     make([]map[int]transition.Transition, len(g.in)),
	}
	for s, id := range g.ids {
		c.ids[s] = id
	}
	for id := range g.out {
		c.out[id] = make(map[int]transition.Transition, len(g.out[id]))
		for k, v := range g.out[id] {
			c.out[id][k] = v
		}
		c.in[id] = make(map[int]transition.Transition, len(g.in[id]))
		for k, v := range g.in[id] {
			c.in[id][k] = v
		}
	}
	return c
}
