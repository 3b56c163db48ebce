/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesAnswered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reachability_queries_total",
		Help: "Number of answered queries, by analysis",
	}, []string{"analysis"})

	loopCandidates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachability_loop_candidates_total",
		Help: "Number of states still holding packets after the loop detector rounds",
	})

	loopsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachability_loops_confirmed_total",
		Help: "Number of loop candidates confirmed by a recurrence",
	})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachability_sessions_total",
		Help: "Number of firewall sessions created by forward passes",
	})
)
