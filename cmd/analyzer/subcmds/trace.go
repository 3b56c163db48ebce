/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subcmds

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/spf13/cobra"

	"github.com/np-guard/reachability-analyzer/pkg/graph"
	"github.com/np-guard/reachability-analyzer/pkg/reachability"
	"github.com/np-guard/reachability-analyzer/pkg/report"
)

const (
	maxTracesFlag    = "max-traces"
	defaultMaxTraces = 10
)

func newTraceCommand(args *inArgs) *cobra.Command {
	maxTraces := defaultMaxTraces
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the paths flows take from an ingress location",
		Long: `lists the paths through the network along which flows starting at the given ingress
		location reach one of the given dispositions, with an example flow for each path`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormatForMode(cmd.Use, []formatSetting{textFormat}, args); err != nil {
				return err
			}
			if maxTraces <= 0 {
				return fmt.Errorf("%s must be positive", maxTracesFlag)
			}
			return validateQueryFlags(cmd, &args.query)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			doc, err := buildQuery(cmd, args)
			if err != nil {
				return err
			}
			if len(doc.Sources) != 1 {
				return errors.New("trace needs exactly one ingress location, given with --" + srcFlag)
			}
			q, err := doc.toQuery()
			if err != nil {
				return err
			}
			f, err := newFactory(args)
			if err != nil {
				return err
			}
			loc := q.Sources[0].Locations[0]
			traces, err := f.Traces(q, loc)
			if err != nil {
				return err
			}
			out := formatTraces(f, loc, traces, maxTraces)
			if err := report.WriteToFile(out, args.outputFile); err != nil {
				return err
			}
			return printOutput(cmd, args, out)
		},
	}
	addQueryFlags(cmd, &args.query)
	cmd.Flags().IntVar(&maxTraces, maxTracesFlag, defaultMaxTraces, "maximal number of paths to show")
	return cmd
}

func formatTraces(f *reachability.Factory, loc reachability.IngressLocation, traces iter.Seq[graph.Trace], limit int) string {
	var sb strings.Builder
	n := 0
	for t := range traces {
		if n == limit {
			fmt.Fprintf(&sb, "more paths exist; showing the first %d\n", limit)
			break
		}
		n++
		fmt.Fprintf(&sb, "path %d from %s:\n", n, loc)
		for _, h := range t.Hops {
			fmt.Fprintf(&sb, "    %s\n", h.State)
		}
		pkt := f.Packet()
		if example, ok := pkt.Example(pkt.ProjectHeader(t.Last().BDD)); ok {
			fmt.Fprintf(&sb, "    example flow: %s\n", example)
		}
	}
	if n == 0 {
		fmt.Fprintf(&sb, "no path from %s\n", loc)
	}
	return sb.String()
}
