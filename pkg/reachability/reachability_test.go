/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"errors"
	"testing"

	"github.com/np-guard/models/pkg/netp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

func TestTelnetFiltered(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, singleFirewall, Options{})
	ingress := InterfaceLinkLocation("fw", "eth0")

	ssh := &Query{Sources: from(ingress), HeaderSpace: dstTCP(t, "10.2.0.0/16", 22)}
	res, err := f.Reachability(ssh)
	require.Nil(t, err)
	require.Len(t, res, 1)
	requireSameBDD(t, hsBDD(t, f, ssh.HeaderSpace), res[ingress])

	telnet := &Query{Sources: from(ingress), HeaderSpace: dstTCP(t, "10.2.0.0/16", 23)}
	res, err = f.Reachability(telnet)
	require.Nil(t, err)
	require.Empty(t, res)

	res, err = f.Reachability(telnet.withDispositions([]state.Disposition{state.DeniedOut}))
	require.Nil(t, err)
	requireSameBDD(t, hsBDD(t, f, telnet.HeaderSpace), res[ingress])
}

func TestFilterEdgesPartition(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, singleFirewall, Options{})
	q := &Query{Sources: from(InterfaceLinkLocation("fw", "eth0"))}
	roots, err := f.rootBDDs(q)
	require.Nil(t, err)
	g, err := f.buildGraph(q, &graphPlan{roots: roots, dispositions: state.AllDispositions()})
	require.Nil(t, err)

	pre := state.PreOutInterfaceDeliveredToSubnet("fw", "eth1")
	drop, ok := g.Edge(pre, state.NodeDropAclOut("fw"))
	require.True(t, ok)
	pass, ok := g.Edge(pre, state.SetupSessionDeliveredToSubnet("fw", "eth1"))
	require.True(t, ok)
	one := f.f.One()
	dropped, passed := drop.Forward(one), pass.Forward(one)
	require.True(t, dropped.Or(passed).IsOne())
	require.True(t, dropped.And(passed).IsZero())

	permit, err := f.permitBDD("fw", "no-telnet", q)
	require.Nil(t, err)
	requireSameBDD(t, permit.Not(), dropped)
}

func TestFinalHeaderSpaceWidening(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, natGatewayDoc(false), Options{})
	q := &Query{HeaderSpace: network.HeaderSpace{SrcIPs: ips(t, "10.0.0.1")}}
	res, err := f.finalHeaderSpace(q)
	require.Nil(t, err)
	src, err := f.pkt.SrcIPSpace(ips(t, "10.0.0.1", "1.1.1.1"))
	require.Nil(t, err)
	requireSameBDD(t, src, res)

	// nothing to widen when the translated field is not constrained
	q = &Query{HeaderSpace: dstTCP(t, "8.8.8.8")}
	res, err = f.finalHeaderSpace(q)
	require.Nil(t, err)
	requireSameBDD(t, hsBDD(t, f, q.HeaderSpace), res)
}

func TestNATForwardReachability(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, natGatewayDoc(false), Options{})
	ingress := InterfaceLinkLocation("gw", "inside")
	q := &Query{
		Sources:     []SourceAssignment{{Locations: []IngressLocation{ingress}, SrcIPs: ips(t, "10.0.0.1")}},
		HeaderSpace: dstTCP(t, "8.8.8.8", 80),
	}
	res, err := f.Reachability(q)
	require.Nil(t, err)
	roots, err := f.rootBDDs(q)
	require.Nil(t, err)
	requireSameBDD(t, roots[ingress.State()], res[ingress])

	all, err := f.AllBDDs(q)
	require.Nil(t, err)
	exits := f.pkt.ProjectHeader(all[state.NodeInterfaceExitsNetwork("gw", "outside")])
	translated, err := f.pkt.SrcIPSpace(ips(t, "1.1.1.1"))
	require.Nil(t, err)
	requireSameBDD(t, hsBDD(t, f, q.HeaderSpace).And(translated), exits)
}

func TestTransit(t *testing.T) {
	t.Parallel()
	dst := "10.7.0.0/16"
	tests := []struct {
		name      string
		forbidden []string
		required  []string
		final     []string
		reachable bool
	}{
		{name: "unconstrained", reachable: true},
		{name: "one branch forbidden", forbidden: []string{"b"}, reachable: true},
		{name: "both branches forbidden", forbidden: []string{"b", "d"}},
		{name: "source forbidden", forbidden: []string{"a"}},
		{name: "branch required", required: []string{"d"}, reachable: true},
		{name: "required and forbidden", required: []string{"b"}, forbidden: []string{"b"}},
		{name: "delivering device does not transit", required: []string{"c"}},
		{name: "final node delivers", final: []string{"c"}, reachable: true},
		{name: "final node forwards", final: []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFactory(t, diamond, Options{})
			ingress := InterfaceLinkLocation("a", "eth0")
			q := &Query{
				Sources:          from(ingress),
				HeaderSpace:      network.HeaderSpace{DstIPs: ips(t, dst)},
				ForbiddenTransit: tt.forbidden,
				RequiredTransit:  tt.required,
				FinalNodes:       tt.final,
			}
			res, err := f.Reachability(q)
			require.Nil(t, err)
			if !tt.reachable {
				require.Empty(t, res)
				return
			}
			requireSameBDD(t, hsBDD(t, f, q.HeaderSpace), res[ingress])
		})
	}
}

func TestPolicyLeavesPartition(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, policyRouter, Options{})
	leaves, err := f.compilePolicy("r", f.net.Devices["r"].PacketPolicies["pbr"])
	require.Nil(t, err)
	require.ElementsMatch(t, []string{"drop", "fib", "fib:blue"}, keys(leaves.byKey))

	union := f.f.Zero()
	for _, b := range leaves.byKey {
		require.True(t, union.And(b).IsZero())
		union = union.Or(b)
	}
	require.True(t, union.IsOne())

	google, err := f.pkt.DstIPSpace(ips(t, "8.8.8.8"))
	require.Nil(t, err)
	udp, err := f.pkt.Protocol(netp.ProtocolStringUDP)
	require.Nil(t, err)
	requireSameBDD(t, google, leaves.byKey["drop"])
	requireSameBDD(t, udp.Diff(google), leaves.byKey["fib:blue"])
}

func TestPolicyRouting(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, policyRouter, Options{})
	ingress := InterfaceLinkLocation("r", "eth0")
	q := &Query{Sources: from(ingress), Dispositions: []state.Disposition{state.DeniedIn}}
	res, err := f.Reachability(q)
	require.Nil(t, err)
	google, err := f.pkt.DstIPSpace(ips(t, "8.8.8.8"))
	require.Nil(t, err)
	requireSameBDD(t, google, res[ingress])

	all, err := f.AllBDDs(&Query{Sources: from(ingress)})
	require.Nil(t, err)
	udp, err := f.pkt.Protocol(netp.ProtocolStringUDP)
	require.Nil(t, err)
	requireSameBDD(t, udp.Diff(google), f.pkt.ProjectHeader(all[state.NodeInterfaceExitsNetwork("r", "eth2")]))
	requireSameBDD(t, udp.Or(google).Not(), f.pkt.ProjectHeader(all[state.NodeInterfaceExitsNetwork("r", "eth1")]))
}

func TestOptimizedReachability(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{singleFirewall, diamond, ecmpFiltered, policyRouter, pingPong} {
		f := newTestFactory(t, doc, Options{})
		for _, ds := range [][]state.Disposition{state.SuccessDispositions(), state.FailureDispositions()} {
			q := &Query{Dispositions: ds}
			f.opts.Optimize = false
			plain, err := f.Reachability(q)
			require.Nil(t, err)
			f.opts.Optimize = true
			optimized, err := f.Reachability(q)
			require.Nil(t, err)
			require.Equal(t, len(plain), len(optimized))
			for loc, b := range plain {
				requireSameBDD(t, b, optimized[loc], loc.String())
			}
		}
	}
}

func TestFixpointIdempotence(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, ecmpFiltered, Options{})
	g, err := f.Graph(&Query{})
	require.Nil(t, err)
	seeds := map[state.Expr]bdd.BDD{}
	for _, loc := range AllSources(f.net)[0].Locations {
		seeds[loc.State()] = f.f.One()
	}
	once := g.Forward(seeds)
	twice := g.Forward(once)
	require.Equal(t, len(once), len(twice))
	for s, b := range once {
		requireSameBDD(t, b, twice[s], s.String())
	}
}

func TestDeterministicGraph(t *testing.T) {
	t.Parallel()
	digest := func() uint64 {
		f := newTestFactory(t, ecmpFiltered, Options{})
		g, err := f.Graph(&Query{Dispositions: state.AllDispositions()})
		require.Nil(t, err)
		return g.Digest()
	}
	require.Equal(t, digest(), digest())
}

func TestTraces(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, singleFirewall, Options{})
	ingress := InterfaceLinkLocation("fw", "eth0")
	q := &Query{Sources: from(ingress), HeaderSpace: dstTCP(t, "10.2.0.0/16", 22)}
	traces, err := f.Traces(q, ingress)
	require.Nil(t, err)
	var got []string
	for tr := range traces {
		got = append(got, tr.String())
	}
	require.Equal(t, []string{
		"OriginateInterfaceLink(fw, eth0) -> PreInInterface(fw, eth0) -> PostInInterface(fw, eth0) -> PostInVrf(fw, default)" +
			" -> PreOutVrf(fw, default) -> PreOutInterfaceDeliveredToSubnet(fw, eth1) -> SetupSessionDeliveredToSubnet(fw, eth1)" +
			" -> NodeInterfaceDeliveredToSubnet(fw, eth1) -> DeliveredToSubnet -> Query",
	}, got)

	_, err = f.Traces(q, InterfaceLinkLocation("fw", "eth1"))
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
}

func TestFactoryKeepsValidationErrors(t *testing.T) {
	t.Parallel()
	net := &network.Network{Devices: map[string]*network.Device{
		"r1": {
			Name:       "r1",
			Interfaces: map[string]*network.Interface{"eth0": {Name: "eth0", VRF: "default", IncomingFilter: "nope"}},
			VRFs:       map[string]*network.VRF{"default": {Name: "default"}},
		},
	}}
	_, err := NewFactory(net, Options{})
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	var refErr *network.ReferenceError
	require.True(t, errors.As(err, &refErr))
	require.Equal(t, "r1", refErr.Device)
	require.EqualError(t, err, "device r1: interface eth0 uses unknown filter nope")
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, singleFirewall, Options{})
	_, err := f.Reachability(&Query{
		Sources:     []SourceAssignment{{Locations: []IngressLocation{InterfaceLinkLocation("fw", "eth0")}, SrcIPs: ips(t, "10.0.0.0/8")}},
		HeaderSpace: network.HeaderSpace{SrcIPs: ips(t, "192.168.0.0/16")},
	})
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	require.EqualError(t, err, "no sources are compatible with the headerspace constraint")

	_, err = f.Reachability(&Query{Sources: from(InterfaceLinkLocation("nope", "eth0"))})
	require.True(t, errors.As(err, &configErr))
	require.EqualError(t, err, "location nope[eth0]: unknown device nope")

	_, err = f.Reachability(&Query{Sources: from(VrfLocation("fw", "blue"))})
	require.True(t, errors.As(err, &configErr))
}

func TestQueryMetrics(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, singleFirewall, Options{})
	before := testutil.ToFloat64(queriesAnswered.WithLabelValues(analysisReachability))
	_, err := f.Reachability(&Query{})
	require.Nil(t, err)
	require.GreaterOrEqual(t, testutil.ToFloat64(queriesAnswered.WithLabelValues(analysisReachability)), before+1)
}

func keys[V any](m map[string]V) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	return res
}
