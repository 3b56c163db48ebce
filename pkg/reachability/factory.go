/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package reachability builds the reachability graph of a network and answers
// reachability, loop, multipath and bidirectional queries over it.
package reachability

import (
	"fmt"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/common"
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/network"
)

// sourceOriginatingFromDevice is the source-interface value of flows a device
// originates itself. Interface names are never empty.
const sourceOriginatingFromDevice = ""

// noLastHop is the last-hop value of flows that did not come from a neighbor.
var noLastHop = common.Pair[string]{}

// Factory answers queries about one network. It owns one BDD table and must be used
// from a single goroutine.
type Factory struct {
	net  *network.Network
	opts Options
	pkt  *bdd.Packet
	f    *bdd.Factory

	// source interface of the flow at its current device, one domain per device over
	// a shared bit-vector
	srcTag  bdd.BitVec
	sources map[string]*bdd.FiniteDomain[string]

	// interface of the previous device the flow left, per receiving interface of the
	// devices that create sessions
	lastHopTag bdd.BitVec
	lastHops   map[common.Pair[string]]*bdd.FiniteDomain[common.Pair[string]]

	// set once the flow was forwarded by a required transit device
	transitTag bdd.BitVec

	// node-specific tag variables, erased when a flow leaves a device
	nodeTagVars bdd.VarSet

	permits map[common.Pair[string]]bdd.BDD
}

// NewFactory lays out the packet and tag variables needed for net.
func NewFactory(net *network.Network, opts Options) (*Factory, error) {
	if err := net.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	maxSources := 1
	for _, d := range net.Devices {
		maxSources = max(maxSources, len(d.Interfaces)+1)
	}
	incoming := map[common.Pair[string]][]common.Pair[string]{}
	for _, l := range net.Links() {
		to := common.Pair[string]{First: l.Node2, Second: l.Iface2}
		incoming[to] = append(incoming[to], common.Pair[string]{First: l.Node1, Second: l.Iface1})
	}
	tracked := sessionDevices(net)
	maxLastHops := 1
	for _, name := range tracked.AsList() {
		for _, iface := range net.Devices[name].InterfaceNames() {
			maxLastHops = max(maxLastHops, len(incoming[common.Pair[string]{First: name, Second: iface}])+1)
		}
	}
	srcBits, lastHopBits := bdd.BitsFor(maxSources), bdd.BitsFor(maxLastHops)

	var fopts []bdd.FactoryOption
	if opts.NodeSize > 0 {
		fopts = append(fopts, bdd.WithNodeSize(opts.NodeSize))
	}
	if opts.CacheSize > 0 {
		fopts = append(fopts, bdd.WithCacheSize(opts.CacheSize))
	}
	pkt, err := bdd.NewPacket(srcBits+lastHopBits+1, fopts...)
	if err != nil {
		return nil, err
	}
	res := &Factory{
		net:      net,
		opts:     opts,
		pkt:      pkt,
		f:        pkt.Factory(),
		sources:  map[string]*bdd.FiniteDomain[string]{},
		lastHops: map[common.Pair[string]]*bdd.FiniteDomain[common.Pair[string]]{},
		permits:  map[common.Pair[string]]bdd.BDD{},
	}
	if res.srcTag, err = pkt.AllocateTag("srcIface", srcBits); err != nil {
		return nil, err
	}
	if res.lastHopTag, err = pkt.AllocateTag("lastHop", lastHopBits); err != nil {
		return nil, err
	}
	if res.transitTag, err = pkt.AllocateTag("transit", 1); err != nil {
		return nil, err
	}
	for _, name := range net.DeviceNames() {
		values := append([]string{sourceOriginatingFromDevice}, net.Devices[name].InterfaceNames()...)
		if res.sources[name], err = bdd.NewFiniteDomain(res.srcTag, values); err != nil {
			return nil, fmt.Errorf("device %s: %w", name, err)
		}
	}
	for _, name := range tracked.AsList() {
		for _, iface := range net.Devices[name].InterfaceNames() {
			to := common.Pair[string]{First: name, Second: iface}
			values := append([]common.Pair[string]{noLastHop}, incoming[to]...)
			if res.lastHops[to], err = bdd.NewFiniteDomain(res.lastHopTag, values); err != nil {
				return nil, fmt.Errorf("device %s: %w", name, err)
			}
		}
	}
	res.nodeTagVars = res.f.Union(res.srcTag.VarSet(), res.lastHopTag.VarSet())
	logging.Debugf("factory: %d devices, %d variables (%d source, %d last-hop tag bits)",
		len(net.Devices), res.f.NumVars(), srcBits, lastHopBits)
	return res, nil
}

// sessionDevices returns the devices that may create sessions.
func sessionDevices(net *network.Network) common.GenericSet[string] {
	res := common.NewGenericSet[string]()
	for name, d := range net.Devices {
		for _, iface := range d.Interfaces {
			if iface.FirewallSession != nil && !iface.Shutdown {
				res.Add(name)
			}
		}
		for _, vrf := range d.VRFs {
			if vrf.OriginatingSessions {
				res.Add(name)
			}
		}
	}
	return res
}

// Packet returns the header layout, e.g. to pick example flows from results.
func (f *Factory) Packet() *bdd.Packet {
	return f.pkt
}

// Network returns the analyzed network.
func (f *Factory) Network() *network.Network {
	return f.net
}

// sourceBDD is the set of flows that entered node through src.
func (f *Factory) sourceBDD(node, src string) bdd.BDD {
	b, _ := f.sources[node].Value(src)
	return b
}

// lastHopBDD is the set of flows received on (node, iface) from lastHop; One when the
// interface is not tracked.
func (f *Factory) lastHopBDD(node, iface string, lastHop common.Pair[string]) bdd.BDD {
	d, ok := f.lastHops[common.Pair[string]{First: node, Second: iface}]
	if !ok {
		return f.f.One()
	}
	b, _ := d.Value(lastHop)
	return b
}

// hasLastHops tells whether the receiving interface tracks last hops.
func (f *Factory) hasLastHops(node, iface string) bool {
	_, ok := f.lastHops[common.Pair[string]{First: node, Second: iface}]
	return ok
}

// lastHopValues returns the tracked last hops of a receiving interface.
func (f *Factory) lastHopValues(node, iface string) []common.Pair[string] {
	d, ok := f.lastHops[common.Pair[string]{First: node, Second: iface}]
	if !ok {
		return nil
	}
	return d.Values()
}

// transitBit is the set of flows already forwarded by a required transit device.
func (f *Factory) transitBit() bdd.BDD {
	return f.transitTag.Value(1)
}
