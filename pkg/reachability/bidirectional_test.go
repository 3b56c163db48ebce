/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/state"
)

func TestBidirectionalNAT(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		session  bool
		optimize bool
	}{
		{name: "with session", session: true},
		{name: "with session optimized", session: true, optimize: true},
		{name: "without session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFactory(t, natGatewayDoc(tt.session), Options{Optimize: tt.optimize})
			q := natQuery(t)
			ingress := InterfaceLinkLocation("gw", "inside")
			roots, err := f.rootBDDs(q)
			require.Nil(t, err)
			sent := roots[ingress.State()]

			res, err := f.Bidirectional(q)
			require.Nil(t, err)
			if tt.session {
				requireSameBDD(t, sent, res.ReturnSucceeded[ingress])
				require.Empty(t, res.ReturnFailed)
				return
			}
			// the reply to 1.1.1.1 has no route back
			require.Empty(t, res.ReturnSucceeded)
			requireSameBDD(t, sent, res.ReturnFailed[ingress])
		})
	}
}

func TestBidirectionalOriginatingSessions(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, hostWithSessions, Options{})
	ingress := InterfaceLinkLocation("c", "lan")
	q := &Query{
		Sources:     []SourceAssignment{{Locations: []IngressLocation{ingress}, SrcIPs: ips(t, "10.1.0.0/24")}},
		HeaderSpace: dstTCP(t, "10.2.0.5", 22),
	}
	roots, err := f.rootBDDs(q)
	require.Nil(t, err)
	res, err := f.Bidirectional(q)
	require.Nil(t, err)
	requireSameBDD(t, roots[ingress.State()], res.ReturnSucceeded[ingress])
	require.Empty(t, res.ReturnFailed)
}

func TestBidirectionalNothingDelivered(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, singleFirewall, Options{})
	q := &Query{Sources: from(InterfaceLinkLocation("fw", "eth0")), HeaderSpace: dstTCP(t, "10.2.0.1", 23)}
	res, err := f.Bidirectional(q)
	require.Nil(t, err)
	require.Empty(t, res.ReturnSucceeded)
	require.Empty(t, res.ReturnFailed)
}

func TestBidirectionalRejectsLoops(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, pingPong, Options{})
	_, err := f.Bidirectional(&Query{Dispositions: []state.Disposition{state.Loop}})
	var unsupported *UnsupportedError
	require.True(t, errors.As(err, &unsupported), err)
}
