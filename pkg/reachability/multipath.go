/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"fmt"
	"slices"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

// Inconsistency reports flows starting at Location that have two different fates.
type Inconsistency struct {
	Location IngressLocation
	Flows    bdd.BDD
	Example  bdd.Flow
}

func (i *Inconsistency) String() string {
	return fmt.Sprintf("%s: %s", i.Location, i.Example)
}

// CheckMultipath returns, per location present in both a and b, the flows in both,
// sorted by location.
func (f *Factory) CheckMultipath(a, b map[IngressLocation]bdd.BDD) []Inconsistency {
	locs := make([]IngressLocation, 0, len(a))
	for loc := range a {
		locs = append(locs, loc)
	}
	slices.SortFunc(locs, CompareLocations)
	var res []Inconsistency
	for _, loc := range locs {
		other, ok := b[loc]
		if !ok {
			continue
		}
		both := a[loc].And(other)
		example, ok := f.pkt.Example(both)
		if !ok {
			continue
		}
		res = append(res, Inconsistency{Location: loc, Flows: both, Example: example})
	}
	return res
}

// MultipathConsistency finds the flows of q that some path delivers and another path
// drops or loops.
func (f *Factory) MultipathConsistency(q *Query) ([]Inconsistency, error) {
	success, err := f.Reachability(q.withDispositions(state.SuccessDispositions()))
	if err != nil {
		return nil, err
	}
	failure, err := f.Reachability(q.withDispositions(state.FailureDispositions()))
	if err != nil {
		return nil, err
	}
	queriesAnswered.WithLabelValues(analysisMultipath).Inc()
	return f.CheckMultipath(success, failure), nil
}
