/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"fmt"
	"testing"

	"github.com/np-guard/models/pkg/ipblock"
	"github.com/np-guard/models/pkg/netp"
	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/network"
)

// singleFirewall: one device, traffic enters on eth0 and leaves eth1 to 10.2.0.0/16,
// where telnet is filtered.
const singleFirewall = `
devices:
  - name: fw
    interfaces:
      - name: eth0
      - name: eth1
        outgoing-filter: no-telnet
    filters:
      - name: no-telnet
        lines:
          - action: deny
            match:
              protocols: [tcp]
              dst-ports: ["23"]
          - action: permit
    vrfs:
      - name: default
        interfaces:
          eth1:
            delivered-to-subnet: [10.2.0.0/16]
`

// diamond: a spreads 10.7.0.0/16 over b and d, both forward it to c, which delivers.
const diamond = `
devices:
  - name: a
    interfaces: [{name: eth0}, {name: to-b}, {name: to-d}]
    vrfs:
      - name: default
        routes:
          - {destination: 10.7.0.0/16, interface: to-b, neighbor: b, neighbor-interface: to-a}
          - {destination: 10.7.0.0/16, interface: to-d, neighbor: d, neighbor-interface: to-a}
  - name: b
    interfaces: [{name: to-a}, {name: to-c}]
    vrfs:
      - name: default
        routes:
          - {destination: 10.7.0.0/16, interface: to-c, neighbor: c, neighbor-interface: from-b}
  - name: d
    interfaces: [{name: to-a}, {name: to-c}]
    vrfs:
      - name: default
        routes:
          - {destination: 10.7.0.0/16, interface: to-c, neighbor: c, neighbor-interface: from-d}
  - name: c
    interfaces: [{name: from-b}, {name: from-d}, {name: lan}]
    vrfs:
      - name: default
        routes:
          - {destination: 10.7.0.0/16, interface: lan, connected: true}
`

// ecmpFiltered: r1 load-balances 10.5.0.0/16 over r2 and r3; r2 filters 10.5.0.0/24.
const ecmpFiltered = `
devices:
  - name: r1
    interfaces: [{name: eth0}, {name: eth1}, {name: eth2}]
    vrfs:
      - name: default
        routes:
          - {destination: 10.5.0.0/16, interface: eth1, neighbor: r2, neighbor-interface: eth0}
          - {destination: 10.5.0.0/16, interface: eth2, neighbor: r3, neighbor-interface: eth0}
  - name: r2
    interfaces:
      - name: eth0
      - name: eth1
        outgoing-filter: deny-low
    filters:
      - name: deny-low
        lines:
          - {action: deny, match: {dst-ips: [10.5.0.0/24]}}
          - {action: permit}
    vrfs:
      - name: default
        routes:
          - {destination: 10.5.0.0/16, interface: eth1, connected: true}
  - name: r3
    interfaces: [{name: eth0}, {name: eth1}]
    vrfs:
      - name: default
        routes:
          - {destination: 10.5.0.0/16, interface: eth1, connected: true}
`

// pingPong routes 10.9.0.0/16 from a to b and back; pingPongFixed lets b deliver it.
const pingPong = `
devices:
  - name: a
    interfaces: [{name: eth0}, {name: eth1}]
    vrfs:
      - name: default
        arp-true:
          - {interface: eth1, neighbor: b, neighbor-interface: eth0, dst: [10.9.0.0/16]}
  - name: b
    interfaces: [{name: eth0}, {name: lan}]
    vrfs:
      - name: default
        arp-true:
          - {interface: eth0, neighbor: a, neighbor-interface: eth1, dst: [10.9.0.0/16]}
`

const pingPongFixed = `
devices:
  - name: a
    interfaces: [{name: eth0}, {name: eth1}]
    vrfs:
      - name: default
        arp-true:
          - {interface: eth1, neighbor: b, neighbor-interface: eth0, dst: [10.9.0.0/16]}
  - name: b
    interfaces: [{name: eth0}, {name: lan}]
    vrfs:
      - name: default
        interfaces:
          lan:
            delivered-to-subnet: [10.9.0.0/16]
`

// natGateway translates 10.0.0.1 to 1.1.1.1 on the way out and keeps sessions on
// outside. The session setting is substituted by natGatewayDoc.
const natGatewayTemplate = `
devices:
  - name: gw
    interfaces:
      - name: inside
      - name: outside
        outgoing-transformation:
          guard:
            src-ips: [10.0.0.1]
          steps:
            - field: src-ip
              pool: [1.1.1.1]
%s
    vrfs:
      - name: default
        interfaces:
          inside:
            delivered-to-subnet: [10.0.0.0/24]
          outside:
            exits-network: [8.8.8.0/24]
`

// hostWithSessions: c forwards 10.2.0.0/24 to the host h, which answers the
// connections it accepts from its own VRF.
const hostWithSessions = `
devices:
  - name: c
    interfaces: [{name: lan}, {name: wan}]
    vrfs:
      - name: default
        routes:
          - {destination: 10.1.0.0/24, interface: lan, connected: true}
          - {destination: 10.2.0.0/24, interface: wan, neighbor: h, neighbor-interface: eth0}
  - name: h
    interfaces: [{name: eth0}]
    vrfs:
      - name: default
        originating-sessions: true
        interfaces:
          eth0:
            accepted: [10.2.0.5]
        routes:
          - {destination: 10.1.0.0/24, interface: eth0, neighbor: c, neighbor-interface: wan}
`

// policyRouter drops 8.8.8.8 and routes UDP with the blue VRF.
const policyRouter = `
devices:
  - name: r
    interfaces:
      - {name: eth0, packet-policy: pbr}
      - {name: eth1}
      - {name: eth2, vrf: blue}
    packet-policies:
      - name: pbr
        statements:
          - if:
              match: {dst-ips: [8.8.8.8]}
              then:
                - return: {action: drop}
          - if:
              match: {protocols: [udp]}
              then:
                - return: {action: fib, vrf: blue}
        default: {action: fib}
    vrfs:
      - name: default
        interfaces:
          eth1:
            exits-network: [0.0.0.0/0]
      - name: blue
        interfaces:
          eth2:
            exits-network: [0.0.0.0/0]
`

func natGatewayDoc(withSession bool) string {
	session := ""
	if withSession {
		session = "        firewall-session: {}"
	}
	return fmt.Sprintf(natGatewayTemplate, session)
}

func parseNet(t *testing.T, doc string) *network.Network {
	t.Helper()
	net, err := network.Parse([]byte(doc))
	require.Nil(t, err)
	return net
}

func newTestFactory(t *testing.T, doc string, opts Options) *Factory {
	t.Helper()
	f, err := NewFactory(parseNet(t, doc), opts)
	require.Nil(t, err)
	return f
}

func ips(t *testing.T, addrs ...string) *ipblock.IPBlock {
	t.Helper()
	res := ipblock.New()
	for _, a := range addrs {
		b, err := ipblock.FromCidrOrAddress(a)
		require.Nil(t, err)
		res = res.Union(b)
	}
	return res
}

func from(locs ...IngressLocation) []SourceAssignment {
	return []SourceAssignment{{Locations: locs}}
}

// hsBDD is the header-only set of packets of hs.
func hsBDD(t *testing.T, f *Factory, hs network.HeaderSpace) bdd.BDD {
	t.Helper()
	b, err := f.headerSpaceBDD("", &hs)
	require.Nil(t, err)
	return b
}

func dstTCP(t *testing.T, dst string, ports ...int64) network.HeaderSpace {
	hs := network.HeaderSpace{DstIPs: ips(t, dst), Protocols: []netp.ProtocolString{netp.ProtocolStringTCP}}
	for _, p := range ports {
		hs.DstPorts = append(hs.DstPorts, network.PortRange{Min: p, Max: p})
	}
	return hs
}

func requireSameBDD(t *testing.T, want, got bdd.BDD, msgAndArgs ...any) {
	t.Helper()
	require.True(t, want.Equal(got), msgAndArgs...)
}
