/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"encoding/json"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/reachability"
)

type JSONoutputFormatter struct {
}

type flowJSON struct {
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	SrcPort  uint64 `json:"src_port"`
	DstPort  uint64 `json:"dst_port"`
	Protocol string `json:"protocol"`
}

type lineJSON struct {
	Location string   `json:"location"`
	Outcome  string   `json:"outcome"`
	Example  flowJSON `json:"example"`
}

type jobJSON struct {
	Name     string     `json:"name"`
	Analysis string     `json:"analysis"`
	Results  []lineJSON `json:"results"`
}

type allInfo struct {
	Jobs []jobJSON `json:"jobs"`
}

func toFlowJSON(fl bdd.Flow) flowJSON {
	return flowJSON{Src: fl.Src(), Dst: fl.Dst(), SrcPort: fl.SrcPort, DstPort: fl.DstPort, Protocol: bdd.ProtocolName(fl.IPProtocol)}
}

func (j *JSONoutputFormatter) WriteOutput(results []*reachability.JobResult) (string, error) {
	all := allInfo{Jobs: make([]jobJSON, len(results))}
	for i, r := range results {
		job := jobJSON{Name: r.Job.Name, Analysis: r.Job.Kind.String(), Results: []lineJSON{}}
		for _, l := range jobLines(r) {
			job.Results = append(job.Results, lineJSON{Location: l.Location.String(), Outcome: l.Outcome, Example: toFlowJSON(l.Example)})
		}
		all.Jobs[i] = job
	}
	out, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
