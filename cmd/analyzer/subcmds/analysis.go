/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subcmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/reachability"
	"github.com/np-guard/reachability-analyzer/pkg/report"
)

func (args *inArgs) options() reachability.Options {
	return reachability.Options{LoopRounds: args.loopRounds, Optimize: args.optimize}
}

func loadNetwork(args *inArgs) (*network.Network, error) {
	net, err := network.Load(args.networkFile)
	if err != nil {
		return nil, err
	}
	logging.Debugf("loaded %d devices from %s", len(net.Devices), args.networkFile)
	return net, nil
}

// newFactory loads the network and prepares the symbolic encoding of its facts.
func newFactory(args *inArgs) (*reachability.Factory, error) {
	net, err := loadNetwork(args)
	if err != nil {
		return nil, err
	}
	return reachability.NewFactory(net, args.options())
}

// analysisJobs runs jobs on the network and prints or stores the report.
func analysisJobs(cmd *cobra.Command, args *inArgs, jobs []reachability.Job) error {
	cmd.SilenceUsage = true  // if we got this far, flags are syntactically correct, so no need to print usage
	cmd.SilenceErrors = true // also, error will be printed to logger in main(), so no need for cobra to also print it

	net, err := loadNetwork(args)
	if err != nil {
		return err
	}
	results, err := reachability.RunQueries(cmd.Context(), net, args.options(), jobs)
	if err != nil {
		return err
	}
	out, err := report.NewOutputGenerator(results).Generate(args.outputFormat.ToReportFormat(), args.outputFile)
	if err != nil {
		return fmt.Errorf("output generation error: %w", err)
	}
	return printOutput(cmd, args, out)
}

func printOutput(cmd *cobra.Command, args *inArgs, out string) error {
	if args.outputFile == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}
	return nil
}

// singleJobCommand is a command answering one query, given by flags and settings file.
func singleJobCommand(args *inArgs, kind reachability.JobKind, use, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormatForMode(cmd.Use, reportFormats, args); err != nil {
				return err
			}
			return validateQueryFlags(cmd, &args.query)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := buildQuery(cmd, args)
			if err != nil {
				return err
			}
			q, err := doc.toQuery()
			if err != nil {
				return err
			}
			name := doc.Name
			if name == "" {
				name = use
			}
			return analysisJobs(cmd, args, []reachability.Job{{Name: name, Kind: kind, Query: *q}})
		},
	}
	addQueryFlags(cmd, &args.query)
	return cmd
}

func newReachCommand(args *inArgs) *cobra.Command {
	return singleJobCommand(args, reachability.ReachabilityJob, "reach",
		"Report the flows that reach the given dispositions",
		`reports, per ingress location, the flows that start there and end in one of the given dispositions`)
}

func newMultipathCommand(args *inArgs) *cobra.Command {
	return singleJobCommand(args, reachability.MultipathJob, "multipath",
		"Report flows whose fate depends on the path taken",
		`reports, per ingress location, the flows that some path delivers while another path drops or loops`)
}

func newBidirectionalCommand(args *inArgs) *cobra.Command {
	return singleJobCommand(args, reachability.BidirectionalJob, "bidir",
		"Report whether the replies to delivered flows get back",
		`reports, per ingress location, the delivered flows whose replies, going through the sessions
		the flows set up, get back to the source or fail on the way`)
}

func newLoopsCommand(args *inArgs) *cobra.Command {
	cmd := singleJobCommand(args, reachability.ReachabilityJob, "loops",
		"Report the flows that loop forever",
		`reports, per ingress location, the flows caught in a forwarding loop`)
	run := cmd.RunE
	cmd.RunE = func(c *cobra.Command, a []string) error {
		args.query.dispositions = nil
		if err := c.Flags().Set(dispositionFlag, "loop"); err != nil {
			return err
		}
		return run(c, a)
	}
	return cmd
}

func newRunCommand(args *inArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every query of the query settings file",
		Long:  `runs the queries of the query settings file concurrently and reports their answers in order`,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateFormatForMode(cmd.Use, reportFormats, args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := buildJobs(args)
			if err != nil {
				return err
			}
			return analysisJobs(cmd, args, jobs)
		},
	}
}
