/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"os"

	"github.com/np-guard/reachability-analyzer/cmd/analyzer/subcmds"
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/reachability"
)

// exit codes, by the kind of the failure
const (
	exitFailure     = 1
	exitConfig      = 2
	exitUnsupported = 3
	exitInvariant   = 4
)

// _main runs the analyzer on command-line arguments and returns an error instead of exiting,
// so that tests can run it
func _main(cmdlineArgs []string) error {
	rootCmd := subcmds.NewRootCommand()
	rootCmd.SetArgs(cmdlineArgs)
	return rootCmd.Execute()
}

func exitCode(err error) int {
	var (
		configErr      *reachability.ConfigError
		unsupportedErr *reachability.UnsupportedError
		invariantErr   *reachability.InvariantError
	)
	switch {
	case errors.As(err, &configErr):
		return exitConfig
	case errors.As(err, &unsupportedErr):
		return exitUnsupported
	case errors.As(err, &invariantErr):
		return exitInvariant
	default:
		return exitFailure
	}
}

func main() {
	if err := _main(os.Args[1:]); err != nil {
		logging.Init(logging.MediumVerbosity) // just in case it wasn't initialized earlier
		logging.Errorf("%v. exiting...", err)
		os.Exit(exitCode(err))
	}
}
