/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//	package subcmds defines reachanalyzer's subcommands, their flags and their behavior.
//
// We use the various Run methods of cobra.Command as follows (order corresponds to execution order).
// 1. PersistentPreRun (root) - initialize logger
// 2. PersistentPreRunE/PreRunE (subcommands) - check flag validity
// 3. RunE (subcommands) - load the network, build the queries and run the analysis with parsed flag values
//
// This order prevents code duplication - all common code is in root; subcommand-specific code is in its subcommand
package subcmds

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/version"
)

const (
	networkFlag    = "network"
	queryFileFlag  = "query"
	optimizeFlag   = "optimize"
	loopRoundsFlag = "loop-rounds"

	outputFileFlag   = "filename"
	outputFormatFlag = "output"
	quietFlag        = "quiet"
	verboseFlag      = "verbose"
)

// inArgs holds parsed flag values
type inArgs struct {
	networkFile  string
	queryFile    string
	optimize     bool
	loopRounds   int
	outputFile   string
	outputFormat formatSetting
	quiet        bool
	verbose      bool

	query queryArgs
}

func NewRootCommand() *cobra.Command {
	args := &inArgs{}

	rootCmd := &cobra.Command{
		Use:     "reachanalyzer",
		Short:   "reachanalyzer is a CLI that analyzes packet reachability in a network",
		Long:    `reachanalyzer answers reachability questions symbolically, over the forwarding facts of the given network.`,
		Version: version.VersionCore,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			verbosity := logging.MediumVerbosity
			if args.quiet {
				verbosity = logging.LowVerbosity
			} else if args.verbose {
				verbosity = logging.HighVerbosity
			}
			logging.Init(verbosity) // initializes a thread-safe singleton logger
		},
	}

	rootCmd.PersistentFlags().StringVarP(&args.networkFile, networkFlag, "n", "", "file path to the network facts (YAML)")
	_ = rootCmd.MarkPersistentFlagRequired(networkFlag)
	rootCmd.PersistentFlags().StringVar(&args.queryFile, queryFileFlag, "",
		"file path to query settings (TOML); flags override the values of its first query")
	rootCmd.PersistentFlags().BoolVar(&args.optimize, optimizeFlag, false, "simplify the graph before computing fixpoints")
	rootCmd.PersistentFlags().IntVar(&args.loopRounds, loopRoundsFlag, 0, "bound on the rounds of the loop detector; 0 for the default")

	rootCmd.PersistentFlags().StringVarP(&args.outputFile, outputFileFlag, "f", "", "file path to store results")
	rootCmd.PersistentFlags().VarP(&args.outputFormat, outputFormatFlag, "o", "output format; "+mustBeOneOf(allFormats))

	rootCmd.PersistentFlags().BoolVarP(&args.quiet, quietFlag, "q", false, "runs quietly, reports only severe errors and results")
	rootCmd.PersistentFlags().BoolVarP(&args.verbose, verboseFlag, "v", false, "runs with more informative messages printed to log")
	rootCmd.MarkFlagsMutuallyExclusive(quietFlag, verboseFlag)

	rootCmd.PersistentFlags().SortFlags = false

	rootCmd.AddCommand(newReachCommand(args))
	rootCmd.AddCommand(newMultipathCommand(args))
	rootCmd.AddCommand(newBidirectionalCommand(args))
	rootCmd.AddCommand(newLoopsCommand(args))
	rootCmd.AddCommand(newRunCommand(args))
	rootCmd.AddCommand(newTraceCommand(args))
	rootCmd.AddCommand(newGraphCommand(args))
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true}) // disable help command. should use --help flag instead

	cobra.EnableTraverseRunHooks = true

	return rootCmd
}

func mustBeOneOf(values []string) string {
	return fmt.Sprintf("must be one of [%s]", strings.Join(values, ", "))
}
