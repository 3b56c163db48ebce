/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subcmds

import (
	"github.com/spf13/cobra"

	"github.com/np-guard/reachability-analyzer/pkg/graph"
	"github.com/np-guard/reachability-analyzer/pkg/report"
)

func newGraphCommand(args *inArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the graph answering a query",
		Long:  `exports the graph of states and edges built for the given query, in DOT or SVG`,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormatForMode(cmd.Use, []formatSetting{dotFormat, svgFormat}, args); err != nil {
				return err
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
			q, err := doc.toQuery()
			if err != nil {
				return err
			}
			f, err := newFactory(args)
			if err != nil {
				return err
			}
			g, err := f.Graph(q)
			if err != nil {
				return err
			}
			out := g.ToDOT()
			if args.outputFormat == svgFormat {
				svg, err := graph.RenderSVG(cmd.Context(), out)
				if err != nil {
					return err
				}
				out = string(svg)
			}
			if err := report.WriteToFile(out, args.outputFile); err != nil {
				return err
			}
			return printOutput(cmd, args, out)
		},
	}
	addQueryFlags(cmd, &args.query)
	return cmd
}
