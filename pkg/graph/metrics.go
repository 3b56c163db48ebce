/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	directionForward  = "forward"
	directionBackward = "backward"
)

var (
	fixpointRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reachability_fixpoint_runs_total",
		Help: "Number of fixpoint propagations, by direction",
	}, []string{"direction"})

	fixpointVisits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reachability_fixpoint_state_visits_total",
		Help: "Number of states popped from fixpoint worklists, by direction",
	}, []string{"direction"})

	optimizerRemovedStates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachability_optimizer_removed_states_total",
		Help: "Number of states removed by the graph optimizer",
	})

	optimizerSplicedStates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachability_optimizer_spliced_states_total",
		Help: "Number of states spliced out by the graph optimizer",
	})
)
