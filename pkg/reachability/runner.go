/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/network"
)

// JobKind selects the analysis of a Job.
type JobKind int

const (
	ReachabilityJob JobKind = iota
	MultipathJob
	BidirectionalJob
)

func (k JobKind) String() string {
	switch k {
	case ReachabilityJob:
		return analysisReachability
	case MultipathJob:
		return analysisMultipath
	case BidirectionalJob:
		return analysisBidirectional
	default:
		return fmt.Sprintf("JobKind(%d)", int(k))
	}
}

// Job is one query to answer.
type Job struct {
	Name  string
	Kind  JobKind
	Query Query
}

// JobResult holds the answer to a Job. Its BDDs belong to Factory and must only be
// combined with BDDs of the same factory.
type JobResult struct {
	Job     Job
	Factory *Factory

	Reachable       map[IngressLocation]bdd.BDD
	Inconsistencies []Inconsistency
	Bidirectional   *BidirectionalResult
}

// Run answers job.
func (f *Factory) Run(job *Job) (*JobResult, error) {
	res := &JobResult{Job: *job, Factory: f}
	var err error
	switch job.Kind {
	case ReachabilityJob:
		res.Reachable, err = f.Reachability(&job.Query)
	case MultipathJob:
		res.Inconsistencies, err = f.MultipathConsistency(&job.Query)
	case BidirectionalJob:
		res.Bidirectional, err = f.Bidirectional(&job.Query)
	default:
		err = invariantErrorf("unknown job kind %s", job.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.Name, err)
	}
	return res, nil
}

// RunQueries answers jobs concurrently, each with its own factory. Results are in job
// order. The first failing job cancels the jobs not started yet.
func RunQueries(ctx context.Context, net *network.Network, opts Options, jobs []Job) ([]*JobResult, error) {
	res := make([]*JobResult, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := NewFactory(net, opts)
			if err != nil {
				return err
			}
			res[i], err = f.Run(&jobs[i])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
