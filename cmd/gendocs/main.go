/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// gendocs writes the markdown reference of the reachanalyzer commands to the given
// directory, or to the current directory.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/np-guard/reachability-analyzer/cmd/analyzer/subcmds"
)

func main() {
	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatal(err)
	}

	cmd := subcmds.NewRootCommand()
	cmd.DisableAutoGenTag = true

	err := doc.GenMarkdownTree(cmd, dir)
	if err != nil {
		log.Fatal(err)
	}
}
