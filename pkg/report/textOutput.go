/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"fmt"
	"strings"

	"github.com/np-guard/reachability-analyzer/pkg/reachability"
)

type TextOutputFormatter struct {
}

func headerOfJob(r *reachability.JobResult) string {
	return fmt.Sprintf("%s analysis: %s\n", r.Job.Kind, r.Job.Name)
}

func (t *TextOutputFormatter) WriteOutput(results []*reachability.JobResult) (string, error) {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(headerOfJob(r))
		lines := jobLines(r)
		if len(lines) == 0 {
			sb.WriteString("no flows found\n")
			continue
		}
		for _, l := range lines {
			fmt.Fprintf(&sb, "%s : %s : example %s\n", l.Location, l.Outcome, l.Example)
		}
	}
	return sb.String(), nil
}
