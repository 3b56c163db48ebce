/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/common"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

func natQuery(t *testing.T) *Query {
	return &Query{
		Sources:     []SourceAssignment{{Locations: []IngressLocation{InterfaceLinkLocation("gw", "inside")}, SrcIPs: ips(t, "10.0.0.1")}},
		HeaderSpace: dstTCP(t, "8.8.8.8", 80),
	}
}

func sessionsOf(t *testing.T, f *Factory, q *Query) []*Session {
	t.Helper()
	reach, err := f.AllBDDs(q)
	require.Nil(t, err)
	sessions, err := f.computeSessions(q, reach)
	require.Nil(t, err)
	return sessions
}

func TestNATSessionReversesTranslation(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, natGatewayDoc(true), Options{})
	q := natQuery(t)
	sessions := sessionsOf(t, f, q)
	require.Len(t, sessions, 1)
	s := sessions[0]
	require.Equal(t, "gw", s.Node)
	require.Equal(t, InterfaceScope{Interfaces: []string{"outside"}}, s.Scope)
	require.Equal(t, SessionAction{Kind: SessionForwardOutInterface, OutInterface: "inside"}, s.Action)

	// the return flows are addressed to the translated source
	translated, err := f.pkt.DstIPSpace(ips(t, "1.1.1.1"))
	require.Nil(t, err)
	require.True(t, s.Flows.Subset(translated))

	// undoing the translation and swapping back gives the flows that were sent
	roots, err := f.rootBDDs(q)
	require.Nil(t, err)
	sent := roots[InterfaceLinkLocation("gw", "inside").State()]
	requireSameBDD(t, sent, f.pkt.SwapSourceAndDestination(s.Transformation.Forward(s.Flows)))
}

func TestReverseNATKeepsForwardPairs(t *testing.T) {
	t.Parallel()
	const sharedPool = `
devices:
  - name: gw
    interfaces:
      - name: inside
      - name: outside
        pre-transformation-outgoing-filter: per-host
        outgoing-transformation:
          guard:
            src-ips: [10.0.0.0/24]
          steps:
            - field: src-ip
              pool: [1.1.1.1]
        firewall-session: {}
    filters:
      - name: per-host
        lines:
          - {action: permit, match: {src-ips: [10.0.0.1], protocols: [tcp], dst-ports: ["80"]}}
          - {action: permit, match: {src-ips: [10.0.0.2], protocols: [tcp], dst-ports: ["22"]}}
    vrfs:
      - name: default
        interfaces:
          inside:
            delivered-to-subnet: [10.0.0.0/24]
          outside:
            exits-network: [8.8.8.0/24]
`
	f := newTestFactory(t, sharedPool, Options{})
	q := &Query{
		Sources:     []SourceAssignment{{Locations: []IngressLocation{InterfaceLinkLocation("gw", "inside")}, SrcIPs: ips(t, "10.0.0.0/24")}},
		HeaderSpace: dstTCP(t, "8.8.8.8"),
	}
	sessions := sessionsOf(t, f, q)
	require.Len(t, sessions, 1)
	s := sessions[0]

	host := func(addr string) bdd.BDD {
		b, err := f.pkt.DstIPSpace(ips(t, addr))
		require.Nil(t, err)
		return b
	}
	tests := []struct {
		name    string
		srcPort uint64
		back    string
		never   string
	}{
		{name: "web replies", srcPort: 80, back: "10.0.0.1", never: "10.0.0.2"},
		{name: "ssh replies", srcPort: 22, back: "10.0.0.2", never: "10.0.0.1"},
	}
	for _, tt := range tests {
		restored := s.Transformation.Forward(s.Flows.And(f.pkt.SrcPort.Value(tt.srcPort)))
		require.True(t, restored.Intersects(host(tt.back)), tt.name)
		require.False(t, restored.Intersects(host(tt.never)), tt.name)
	}

	// the restored return flows are exactly the swapped flows that were sent
	roots, err := f.rootBDDs(q)
	require.Nil(t, err)
	web, err := f.pkt.SrcIPSpace(ips(t, "10.0.0.1"))
	require.Nil(t, err)
	ssh, err := f.pkt.SrcIPSpace(ips(t, "10.0.0.2"))
	require.Nil(t, err)
	sent := roots[InterfaceLinkLocation("gw", "inside").State()].And(
		web.And(f.pkt.DstPort.Value(80)).Or(ssh.And(f.pkt.DstPort.Value(22))))
	requireSameBDD(t, sent, f.pkt.SwapSourceAndDestination(s.Transformation.Forward(s.Flows)))
}

func TestNoSessionsWithoutFirewallSession(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, natGatewayDoc(false), Options{})
	require.Empty(t, sessionsOf(t, f, natQuery(t)))
}

func TestSessionActions(t *testing.T) {
	t.Parallel()
	const fibSession = `
devices:
  - name: fw
    interfaces:
      - name: eth0
      - name: eth1
        firewall-session: {fib-lookup: true}
    vrfs:
      - name: default
        interfaces:
          eth1:
            exits-network: [0.0.0.0/0]
`
	const neighbourSession = `
devices:
  - name: r
    interfaces: [{name: eth0}, {name: eth1}]
    vrfs:
      - name: default
        routes:
          - {destination: 8.8.8.0/24, interface: eth1, neighbor: fw, neighbor-interface: eth0}
  - name: fw
    interfaces:
      - name: eth0
      - name: eth1
        firewall-session: {}
    vrfs:
      - name: default
        interfaces:
          eth1:
            exits-network: [0.0.0.0/0]
`
	tests := []struct {
		name   string
		doc    string
		source IngressLocation
		action SessionAction
	}{
		{
			name:   "fib lookup",
			doc:    fibSession,
			source: InterfaceLinkLocation("fw", "eth0"),
			action: SessionAction{Kind: SessionFibLookup},
		},
		{
			name:   "forward to neighbour",
			doc:    neighbourSession,
			source: InterfaceLinkLocation("r", "eth0"),
			action: SessionAction{
				Kind:         SessionForwardOutInterface,
				OutInterface: "eth0",
				NextHop:      &common.Pair[string]{First: "r", Second: "eth1"},
			},
		},
		{
			name:   "originated by the device",
			doc:    fibSession,
			source: VrfLocation("fw", "default"),
			action: SessionAction{Kind: SessionAccept},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFactory(t, tt.doc, Options{})
			q := &Query{Sources: from(tt.source), HeaderSpace: dstTCP(t, "8.8.8.8", 443)}
			sessions := sessionsOf(t, f, q)
			require.Len(t, sessions, 1)
			require.Equal(t, "fw", sessions[0].Node)
			require.Equal(t, tt.action, sessions[0].Action)
			require.Equal(t, InterfaceScope{Interfaces: []string{"eth1"}}, sessions[0].Scope)
		})
	}
}

func TestOriginatingSessions(t *testing.T) {
	t.Parallel()
	f := newTestFactory(t, hostWithSessions, Options{})
	q := &Query{
		Sources:     []SourceAssignment{{Locations: []IngressLocation{InterfaceLinkLocation("c", "lan")}, SrcIPs: ips(t, "10.1.0.7")}},
		HeaderSpace: dstTCP(t, "10.2.0.5", 22),
	}
	sessions := sessionsOf(t, f, q)
	require.Len(t, sessions, 1)
	s := sessions[0]
	require.Equal(t, "h", s.Node)
	require.Equal(t, OriginatingScope{VRF: "default"}, s.Scope)
	require.Equal(t, SessionAction{Kind: SessionFibLookup}, s.Action)

	back, err := f.pkt.DstIPSpace(ips(t, "10.1.0.7"))
	require.Nil(t, err)
	require.True(t, s.Flows.Subset(back))
}

type unknownScope struct{}

func (unknownScope) String() string  { return "unknown" }
func (unknownScope) isSessionScope() {}

func TestSessionEdgeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		session     Session
		unsupported bool
	}{
		{
			name:    "unknown device",
			session: Session{Node: "nope", Scope: InterfaceScope{Interfaces: []string{"outside"}}},
		},
		{
			name:    "unknown scope",
			session: Session{Node: "gw", Scope: unknownScope{}},
		},
		{
			name:    "unknown action",
			session: Session{Node: "gw", Scope: InterfaceScope{Interfaces: []string{"outside"}}, Action: SessionAction{Kind: 7}},
		},
		{
			name:        "originating session accepting",
			session:     Session{Node: "gw", Scope: OriginatingScope{VRF: "default"}, Action: SessionAction{Kind: SessionAccept}},
			unsupported: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFactory(t, natGatewayDoc(true), Options{})
			s := tt.session
			s.Flows = f.f.One()
			s.Transformation = transition.Identity
			b := &edgeBuilder{f: f, q: &Query{}}
			err := b.sessionEdges([]*Session{&s}, map[state.Expr]bdd.BDD{})
			require.NotNil(t, err)
			if tt.unsupported {
				var unsupported *UnsupportedError
				require.True(t, errors.As(err, &unsupported), err)
				return
			}
			var invariant *InvariantError
			require.True(t, errors.As(err, &invariant), err)
		})
	}
}
