/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	networkFile = "testdata/network.yaml"
	queriesFile = "testdata/queries.toml"
)

func TestMain(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		expected []string
	}{
		{
			name:     "txt_reach",
			args:     "reach --src gw[inside] --dst 8.8.8.8 --protocol tcp",
			expected: []string{"reachability analysis: reach\n", "gw[inside] : reachable : example ", "-> 8.8.8.8:"},
		},
		{
			name:     "txt_reach_telnet_denied",
			args:     "reach --src gw[inside] --dst 8.8.8.8 --protocol tcp --dst-min-port 23 --dst-max-port 23 --disposition denied-out",
			expected: []string{"gw[inside] : reachable : example ", "-> 8.8.8.8:23 (TCP)"},
		},
		{
			name:     "md_reach_from_settings_with_override",
			args:     "reach --query " + queriesFile + " --dst-min-port 23 --dst-max-port 23 -o md",
			expected: []string{"## reachability analysis: web\nno flows found"},
		},
		{
			name:     "json_reach_optimized",
			args:     "reach --optimize --src gw[outside] --dst 10.0.0.9 -o json",
			expected: []string{`"analysis": "reachability"`, `"location": "gw[outside]"`, `"dst": "10.0.0.9"`},
		},
		{
			name:     "txt_multipath",
			args:     "multipath",
			expected: []string{"multipath analysis: multipath\nno flows found"},
		},
		{
			name:     "txt_bidir",
			args:     "bidir --src gw[inside] --src-ips 10.0.0.5 --dst 8.8.8.0/24",
			expected: []string{"bidirectional analysis: bidir\n", "gw[inside] : return-succeeded : example 10.0.0.5:"},
		},
		{
			name:     "txt_loops",
			args:     "loops --loop-rounds 20",
			expected: []string{"reachability analysis: loops\nno flows found"},
		},
		{
			name: "json_run_settings",
			args: "run --query " + queriesFile + " -o json",
			expected: []string{
				`"name": "web"`, `"name": "telnet-dropped"`, `"name": "replies"`,
				`"outcome": "reachable"`, `"outcome": "return-succeeded"`, `"dst_port": 23`,
			},
		},
		{
			name:     "txt_trace",
			args:     "trace --src gw[inside] --dst 8.8.8.8 --protocol tcp --dst-min-port 80 --dst-max-port 80",
			expected: []string{"path 1 from gw[inside]:\n    OriginateInterfaceLink(gw, inside)\n", "    Query\n", "example flow: "},
		},
		{
			name:     "dot_graph",
			args:     "graph --src gw[inside] --dst 8.8.8.8",
			expected: []string{"digraph reachability {", `"OriginateInterfaceLink(gw, inside)"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outFile := filepath.Join(t.TempDir(), "out")
			args := append([]string{"-q", "-n", networkFile, "-f", outFile}, strings.Fields(tt.args)...)
			require.Nil(t, _main(args))
			out, err := os.ReadFile(outFile)
			require.Nil(t, err)
			for _, want := range tt.expected {
				require.Contains(t, cleanStr(string(out)), want, "output of %q", tt.args)
			}
		})
	}
}

// comparison should be insensitive to line comparators; cleaning strings from line comparators
func cleanStr(str string) string {
	return strings.ReplaceAll(str, "\r", "")
}

func TestCommandsFailExecute(t *testing.T) {
	badKind := filepath.Join(t.TempDir(), "bad.toml")
	require.Nil(t, os.WriteFile(badKind, []byte("[[query]]\nname = \"x\"\nkind = \"sideways\"\n"), 0o600))
	unknownKey := filepath.Join(t.TempDir(), "unknown.toml")
	require.Nil(t, os.WriteFile(unknownKey, []byte("[[query]]\nname = \"x\"\ndestination = \"8.8.8.8\"\n"), 0o600))

	tests := []struct {
		name                  string
		args                  []string
		expectedErrorContains string
	}{
		{
			name:                  "network_not_specified",
			args:                  []string{"reach"},
			expectedErrorContains: `required flag(s) "network" not set`,
		},
		{
			name:                  "missing_arg_flag",
			args:                  []string{"reach", "-n"},
			expectedErrorContains: "flag needs an argument",
		},
		{
			name:                  "quiet_and_verbose",
			args:                  []string{"reach", "-n", networkFile, "-q", "-v"},
			expectedErrorContains: "if any flags in the group [quiet verbose] are set none of the others can be",
		},
		{
			name:                  "wrong_format_for_trace",
			args:                  []string{"trace", "-n", networkFile, "--src", "gw[inside]", "-o", "md"},
			expectedErrorContains: "output format for trace must be one of [txt]",
		},
		{
			name:                  "wrong_format_for_graph",
			args:                  []string{"graph", "-n", networkFile, "-o", "json"},
			expectedErrorContains: "output format for graph must be one of [dot, svg]",
		},
		{
			name:                  "unknown_disposition",
			args:                  []string{"reach", "-n", networkFile, "--disposition", "lost"},
			expectedErrorContains: `unknown disposition "lost"`,
		},
		{
			name:                  "ports_without_protocol",
			args:                  []string{"reach", "-n", networkFile, "--dst-min-port", "80"},
			expectedErrorContains: "protocol tcp or udp must be specified when specifying ports",
		},
		{
			name:                  "min_port_above_max_port",
			args:                  []string{"reach", "-n", networkFile, "--protocol", "udp", "--dst-min-port", "90", "--dst-max-port", "80"},
			expectedErrorContains: "dst-min-port 90 must not be larger than dst-max-port 80",
		},
		{
			name:                  "bad_location",
			args:                  []string{"reach", "-n", networkFile, "--src", "gw"},
			expectedErrorContains: `invalid location "gw"`,
		},
		{
			name:                  "unknown_device",
			args:                  []string{"reach", "-n", networkFile, "--src", "core[eth0]"},
			expectedErrorContains: "unknown device core",
		},
		{
			name:                  "trace_without_source",
			args:                  []string{"trace", "-n", networkFile},
			expectedErrorContains: "trace needs exactly one ingress location",
		},
		{
			name:                  "run_without_settings",
			args:                  []string{"run", "-n", networkFile},
			expectedErrorContains: "the run command needs query settings",
		},
		{
			name:                  "unknown_query_kind",
			args:                  []string{"run", "-n", networkFile, "--query", badKind},
			expectedErrorContains: `query x: unknown kind "sideways"`,
		},
		{
			name:                  "unknown_settings_key",
			args:                  []string{"run", "-n", networkFile, "--query", unknownKey},
			expectedErrorContains: "unknown keys query.destination",
		},
		{
			name:                  "missing_network_file",
			args:                  []string{"reach", "-n", "testdata/nope.yaml"},
			expectedErrorContains: "nope.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := _main(tt.args)
			require.NotNil(t, err)
			require.Contains(t, err.Error(), tt.expectedErrorContains,
				"error mismatch for test %q, actual: %q, expected contains: %q", tt.name, err.Error(), tt.expectedErrorContains)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "flag_error", args: []string{"reach"}, code: exitFailure},
		{name: "unknown_device", args: []string{"reach", "-n", networkFile, "--src", "core[eth0]"}, code: exitConfig},
		{name: "loops_in_bidir", args: []string{"bidir", "-n", networkFile, "--disposition", "loop"}, code: exitUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := _main(tt.args)
			require.NotNil(t, err)
			require.Equal(t, tt.code, exitCode(err), err.Error())
		})
	}
}
