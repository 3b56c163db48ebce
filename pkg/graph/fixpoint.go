/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package graph

import (
	"slices"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// Forward computes, for every state, the packets that can reach it from the roots.
// The result is the least fixpoint containing the roots; states reached by nothing
// are absent.
func (g *Graph) Forward(roots map[state.Expr]bdd.BDD) map[state.Expr]bdd.BDD {
	fixpointRuns.WithLabelValues(directionForward).Inc()
	return g.propagate(roots, g.out, directionForward, func(t transition.Transition, s bdd.BDD) bdd.BDD {
		return t.Forward(s)
	})
}

// Backward computes, for every state, the packets at that state that can reach one of
// the seeds with the seed's packets.
func (g *Graph) Backward(seeds map[state.Expr]bdd.BDD) map[state.Expr]bdd.BDD {
	fixpointRuns.WithLabelValues(directionBackward).Inc()
	return g.propagate(seeds, g.in, directionBackward, func(t transition.Transition, s bdd.BDD) bdd.BDD {
		return t.Backward(s)
	})
}

type applyFunc func(t transition.Transition, s bdd.BDD) bdd.BDD

// propagate is a FIFO worklist fixpoint over the given direction of the adjacency table.
func (g *Graph) propagate(seeds map[state.Expr]bdd.BDD, adj []map[int]transition.Transition,
	direction string, apply applyFunc) map[state.Expr]bdd.BDD {
	reached := make([]bdd.BDD, len(g.states))
	has := make([]bool, len(g.states))
	queued := make([]bool, len(g.states))
	var queue []int

	res := map[state.Expr]bdd.BDD{}
	seedStates := make([]state.Expr, 0, len(seeds))
	for s := range seeds {
		seedStates = append(seedStates, s)
	}
	slices.SortFunc(seedStates, state.Compare)
	for _, s := range seedStates {
		b := seeds[s]
		if b.IsZero() {
			continue
		}
		id, ok := g.ids[s]
		if !ok {
			res[s] = b
			continue
		}
		if has[id] {
			reached[id] = reached[id].Or(b)
		} else {
			reached[id], has[id] = b, true
		}
		if !queued[id] {
			queued[id] = true
			queue = append(queue, id)
		}
	}

	visits := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		queued[cur] = false
		visits++
		curBDD := reached[cur]
		for _, next := range sortedKeys(adj[cur]) {
			out := apply(adj[cur][next], curBDD)
			if out.IsZero() {
				continue
			}
			if has[next] {
				merged := reached[next].Or(out)
				if merged.Equal(reached[next]) {
					continue
				}
				reached[next] = merged
			} else {
				reached[next], has[next] = out, true
			}
			if !queued[next] {
				queued[next] = true
				queue = append(queue, next)
			}
		}
	}
	fixpointVisits.WithLabelValues(direction).Add(float64(visits))
	logging.Debugf("%s fixpoint: %d seeds, %d state visits", direction, len(seeds), visits)

	for id, ok := range has {
		if ok {
			res[g.states[id]] = reached[id]
		}
	}
	return res
}
