/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/state"
)

func TestMultipathInconsistency(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, ecmpFiltered, Options{})
	ingress := InterfaceLinkLocation("r1", "eth0")
	res, err := f.MultipathConsistency(&Query{Sources: from(ingress)})
	require.Nil(t, err)
	require.Len(t, res, 1)
	require.Equal(t, ingress, res[0].Location)
	low, err := f.pkt.DstIPSpace(ips(t, "10.5.0.0/24"))
	require.Nil(t, err)
	requireSameBDD(t, low, res[0].Flows)
	require.True(t, strings.HasPrefix(res[0].Example.Dst(), "10.5.0."), res[0].Example.String())

	// the same flows are both delivered and denied
	delivered, err := f.Reachability(&Query{Sources: from(ingress), Dispositions: []state.Disposition{state.DeliveredToSubnet}})
	require.Nil(t, err)
	denied, err := f.Reachability(&Query{Sources: from(ingress), Dispositions: []state.Disposition{state.DeniedOut}})
	require.Nil(t, err)
	requireSameBDD(t, low, delivered[ingress].And(denied[ingress]))
}

func TestMultipathConsistent(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{singleFirewall, diamond, pingPongFixed} {
		f := newTestFactory(t, doc, Options{})
		res, err := f.MultipathConsistency(&Query{})
		require.Nil(t, err)
		require.Empty(t, res)
	}
}

func TestCheckMultipath(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, diamond, Options{})
	a, b := InterfaceLinkLocation("a", "eth0"), InterfaceLinkLocation("c", "lan")
	web, err := f.pkt.DstIPSpace(ips(t, "10.7.1.0/24"))
	require.Nil(t, err)
	res := f.CheckMultipath(
		map[IngressLocation]bdd.BDD{b: f.f.One(), a: web},
		map[IngressLocation]bdd.BDD{a: f.f.One(), b: web.Not()},
	)
	require.Len(t, res, 2)
	require.Equal(t, a, res[0].Location)
	requireSameBDD(t, web, res[0].Flows)
	require.Equal(t, b, res[1].Location)
	requireSameBDD(t, web.Not(), res[1].Flows)

	require.Empty(t, f.CheckMultipath(map[IngressLocation]bdd.BDD{a: web}, map[IngressLocation]bdd.BDD{a: web.Not()}))
}
