/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subcmds

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/reachability"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

func TestLoadQueryFile(t *testing.T) {
	t.Parallel()
	docs, err := loadQueryFile("../testdata/queries.toml")
	require.Nil(t, err)
	require.Len(t, docs, 3)

	job, err := docs[1].toJob(1)
	require.Nil(t, err)
	require.Equal(t, "telnet-dropped", job.Name)
	require.Equal(t, reachability.ReachabilityJob, job.Kind)
	require.Equal(t, []state.Disposition{state.DeniedOut}, job.Query.Dispositions)
	require.Equal(t, []network.PortRange{{Min: 23, Max: 23}}, job.Query.HeaderSpace.DstPorts)
	require.Equal(t, []reachability.IngressLocation{reachability.InterfaceLinkLocation("gw", "inside")},
		job.Query.Sources[0].Locations)

	job, err = docs[2].toJob(2)
	require.Nil(t, err)
	require.Equal(t, reachability.BidirectionalJob, job.Kind)
	require.NotNil(t, job.Query.Sources[0].SrcIPs)

	job, err = (&queryDoc{}).toJob(4)
	require.Nil(t, err)
	require.Equal(t, "query-5", job.Name)
	require.Empty(t, job.Query.Sources)
}

func TestOverrideWithFlags(t *testing.T) {
	t.Parallel()
	args := &queryArgs{}
	cmd := &cobra.Command{Use: "test"}
	addQueryFlags(cmd, args)
	require.Nil(t, cmd.ParseFlags([]string{
		"--src", "r1[eth0]", "--src", "r2[vrf=blue]", "--protocol", "udp", "--dst-max-port", "53",
		"--disposition", "no-route,null-routed", "--disposition", "loop",
	}))
	require.Nil(t, validateQueryFlags(cmd, args))

	doc := &queryDoc{Name: "base", DstIPs: []string{"8.8.8.8"}, Protocols: []string{"tcp"}, FinalNodes: []string{"r9"}}
	overrideWithFlags(cmd, args, doc)
	require.Equal(t, &queryDoc{
		Name:         "base",
		Sources:      []string{"r1[eth0]", "r2[vrf=blue]"},
		DstIPs:       []string{"8.8.8.8"},
		Protocols:    []string{"UDP"},
		DstPorts:     []string{"1-53"},
		Dispositions: []string{"no-route", "null-routed", "loop"},
		FinalNodes:   []string{"r9"},
	}, doc)

	q, err := doc.toQuery()
	require.Nil(t, err)
	require.Equal(t, []reachability.IngressLocation{
		reachability.InterfaceLinkLocation("r1", "eth0"),
		reachability.VrfLocation("r2", "blue"),
	}, q.Sources[0].Locations)
	require.Nil(t, q.Sources[0].SrcIPs)
}

func TestPortsWithProtocolFromSettings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		flags     []string
		doc       queryDoc
		expectErr bool
	}{
		{
			name:  "protocol from settings, ports from flags",
			flags: []string{"--dst-min-port", "23", "--dst-max-port", "23"},
			doc:   queryDoc{Protocols: []string{"tcp"}, DstPorts: []string{"80"}},
		},
		{
			name:  "ports from settings, protocol from flags",
			flags: []string{"--protocol", "udp"},
			doc:   queryDoc{SrcPorts: []string{"53"}},
		},
		{
			name:      "ports without any protocol",
			flags:     []string{"--dst-min-port", "23"},
			doc:       queryDoc{DstIPs: []string{"8.8.8.8"}},
			expectErr: true,
		},
		{
			name:      "icmp flag replaces the settings protocol",
			flags:     []string{"--protocol", "icmp"},
			doc:       queryDoc{Protocols: []string{"tcp"}, DstPorts: []string{"80"}},
			expectErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			args := &queryArgs{}
			cmd := &cobra.Command{Use: "test"}
			addQueryFlags(cmd, args)
			require.Nil(t, cmd.ParseFlags(tt.flags))
			require.Nil(t, validateQueryFlags(cmd, args))
			doc := tt.doc
			overrideWithFlags(cmd, args, &doc)
			_, err := doc.toQuery()
			if tt.expectErr {
				require.ErrorIs(t, err, errPortsWithoutProtocol)
				return
			}
			require.Nil(t, err)
		})
	}
}

func TestFormatSetting(t *testing.T) {
	t.Parallel()
	var fs formatSetting
	require.Nil(t, fs.Set("JSON"))
	require.Equal(t, jsonFormat, fs)
	require.NotNil(t, fs.Set("drawio"))

	args := &inArgs{}
	require.Nil(t, validateFormatForMode("graph", []formatSetting{dotFormat, svgFormat}, args))
	require.Equal(t, dotFormat, args.outputFormat)
	require.NotNil(t, validateFormatForMode("trace", []formatSetting{textFormat}, args))
}
