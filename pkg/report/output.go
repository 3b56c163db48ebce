/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package report renders the answers of reachability jobs as text, markdown or JSON.
package report

import (
	"errors"
	"os"
	"slices"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/reachability"
)

type OutFormat int64

const (
	JSON OutFormat = iota
	Text
	MD
)

const (
	writeFileMde = 0o600
)

const (
	outcomeReachable       = "reachable"
	outcomeInconsistent    = "inconsistent"
	outcomeReturnSucceeded = "return-succeeded"
	outcomeReturnFailed    = "return-failed"
)

// resultLine is one location of one job, with an example flow of its answer.
type resultLine struct {
	Location reachability.IngressLocation
	Outcome  string
	Example  bdd.Flow
}

type OutputGenerator struct {
	results []*reachability.JobResult
}

func NewOutputGenerator(results []*reachability.JobResult) *OutputGenerator {
	return &OutputGenerator{results: results}
}

// Generate renders the results in format f and writes them to outFile, unless it is empty.
func (o *OutputGenerator) Generate(f OutFormat, outFile string) (string, error) {
	var formatter OutputFormatter
	switch f {
	case JSON:
		formatter = &JSONoutputFormatter{}
	case Text:
		formatter = &TextOutputFormatter{}
	case MD:
		formatter = &MDoutputFormatter{}
	default:
		return "", errors.New("unsupported output format")
	}
	out, err := formatter.WriteOutput(o.results)
	if err != nil {
		return "", err
	}
	return out, WriteToFile(out, outFile)
}

// OutputFormatter renders the results of a set of jobs.
type OutputFormatter interface {
	WriteOutput(results []*reachability.JobResult) (string, error)
}

func WriteToFile(content, fileName string) error {
	if fileName != "" {
		return os.WriteFile(fileName, []byte(content), writeFileMde)
	}
	return nil
}

// jobLines returns the lines of one job, sorted by location then outcome.
func jobLines(r *reachability.JobResult) []resultLine {
	pkt := r.Factory.Packet()
	var res []resultLine
	add := func(loc reachability.IngressLocation, outcome string, b bdd.BDD) {
		example, ok := pkt.Example(b)
		if !ok {
			return
		}
		res = append(res, resultLine{Location: loc, Outcome: outcome, Example: example})
	}
	for loc, b := range r.Reachable {
		add(loc, outcomeReachable, b)
	}
	for i := range r.Inconsistencies {
		add(r.Inconsistencies[i].Location, outcomeInconsistent, r.Inconsistencies[i].Flows)
	}
	if r.Bidirectional != nil {
		for loc, b := range r.Bidirectional.ReturnSucceeded {
			add(loc, outcomeReturnSucceeded, b)
		}
		for loc, b := range r.Bidirectional.ReturnFailed {
			add(loc, outcomeReturnFailed, b)
		}
	}
	slices.SortFunc(res, func(a, b resultLine) int {
		if c := reachability.CompareLocations(a.Location, b.Location); c != 0 {
			return c
		}
		switch {
		case a.Outcome < b.Outcome:
			return -1
		case a.Outcome > b.Outcome:
			return 1
		}
		return 0
	})
	return res
}
