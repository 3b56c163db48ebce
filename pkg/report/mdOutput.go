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

type MDoutputFormatter struct {
}

const (
	mdDefaultHeader = "| location | outcome | example |\n|----------|---------|---------|"
)

func (m *MDoutputFormatter) WriteOutput(results []*reachability.JobResult) (string, error) {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		lines := []string{"## " + strings.TrimSuffix(headerOfJob(r), "\n")}
		jl := jobLines(r)
		if len(jl) == 0 {
			lines = append(lines, "no flows found")
		} else {
			lines = append(lines, mdDefaultHeader)
			for _, l := range jl {
				lines = append(lines, resultLineMD(&l))
			}
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

// formats a result line for md output
func resultLineMD(l *resultLine) string {
	return fmt.Sprintf("| %s | %s | %s |", l.Location, l.Outcome, l.Example)
}
