/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

func TestLoopDetection(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
		opts Options
		loop bool
	}{
		{name: "cycle", doc: pingPong, loop: true},
		{name: "cycle with few rounds", doc: pingPong, opts: Options{LoopRounds: 20}, loop: true},
		{name: "cycle optimized", doc: pingPong, opts: Options{Optimize: true}, loop: true},
		{name: "acyclic", doc: pingPongFixed},
		{name: "acyclic optimized", doc: pingPongFixed, opts: Options{Optimize: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFactory(t, tt.doc, tt.opts)
			ingress := InterfaceLinkLocation("a", "eth0")
			res, err := f.LoopDetector().Detect(&Query{Sources: from(ingress)})
			require.Nil(t, err)
			if !tt.loop {
				require.Empty(t, res)
				return
			}
			require.Len(t, res, 1)
			dst, err := f.pkt.DstIPSpace(ips(t, "10.9.0.0/16"))
			require.Nil(t, err)
			requireSameBDD(t, dst, res[ingress])
		})
	}
}

func TestLoopRestrictedToHeaderSpace(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, pingPong, Options{})
	ingress := InterfaceLinkLocation("a", "eth0")
	q := &Query{Sources: from(ingress), HeaderSpace: network.HeaderSpace{DstIPs: ips(t, "10.9.1.0/24", "10.10.0.0/16")}}
	res, err := f.LoopDetector().Detect(q)
	require.Nil(t, err)
	dst, err := f.pkt.DstIPSpace(ips(t, "10.9.1.0/24"))
	require.Nil(t, err)
	requireSameBDD(t, dst, res[ingress])
}

func TestLoopWithOtherDispositions(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, pingPong, Options{})
	ingress := InterfaceLinkLocation("a", "eth0")
	res, err := f.Reachability(&Query{Sources: from(ingress), Dispositions: []state.Disposition{state.Loop, state.NoRoute}})
	require.Nil(t, err)
	require.True(t, res[ingress].IsOne())

	res, err = f.Reachability(&Query{Sources: from(ingress), Dispositions: []state.Disposition{state.NoRoute}})
	require.Nil(t, err)
	dst, err := f.pkt.DstIPSpace(ips(t, "10.9.0.0/16"))
	require.Nil(t, err)
	requireSameBDD(t, dst.Not(), res[ingress])
}

func TestLoopRoundBoundInsensitive(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{name: "cycle", doc: pingPong},
		{name: "acyclic", doc: pingPongFixed},
		{name: "diamond", doc: diamond},
		{name: "ecmp", doc: ecmpFiltered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFactory(t, tt.doc, Options{})
			q := &Query{Sources: AllSources(f.Network())}
			want, err := f.LoopDetector().Detect(q)
			require.Nil(t, err)
			got, err := (&LoopDetector{f: f, rounds: 4 * DefaultLoopRounds}).Detect(q)
			require.Nil(t, err)
			require.Equal(t, len(want), len(got))
			for loc, b := range want {
				requireSameBDD(t, b, got[loc], loc.String())
			}
		})
	}
}

func TestLoopTraces(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		doc          string
		dispositions []state.Disposition
		loops        bool
	}{
		{name: "loops asked", doc: pingPong, dispositions: []state.Disposition{state.Loop}, loops: true},
		{name: "loops not asked", doc: pingPong, dispositions: []state.Disposition{state.NoRoute}},
		{name: "acyclic", doc: pingPongFixed, dispositions: []state.Disposition{state.Loop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFactory(t, tt.doc, Options{})
			ingress := InterfaceLinkLocation("a", "eth0")
			q := &Query{Sources: from(ingress), Dispositions: tt.dispositions}
			traces, err := f.Traces(q, ingress)
			require.Nil(t, err)
			looping, err := f.pkt.DstIPSpace(ips(t, "10.9.0.0/16"))
			require.Nil(t, err)
			loops := 0
			for tr := range traces {
				if !tr.Loop {
					continue
				}
				loops++
				require.Equal(t, ingress.State(), tr.Hops[0].State)
				require.True(t, f.pkt.ProjectHeader(tr.Last().BDD).Subset(looping), tr.String())
			}
			require.Equal(t, tt.loops, loops > 0)
		})
	}
}

func TestTracesStartFromSourcePackets(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, pingPong, Options{})
	ingress := InterfaceLinkLocation("a", "eth0")
	q := &Query{
		Sources:      from(ingress),
		HeaderSpace:  dstTCP(t, "10.9.1.1"),
		Dispositions: []state.Disposition{state.Loop},
	}
	traces, err := f.Traces(q, ingress)
	require.Nil(t, err)
	roots, err := f.rootBDDs(q)
	require.Nil(t, err)
	n := 0
	for tr := range traces {
		n++
		requireSameBDD(t, roots[ingress.State()], tr.Hops[0].BDD)
	}
	require.Positive(t, n)
}
