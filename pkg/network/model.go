/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package network is the input of the reachability engine: the forwarding and
// filtering facts of every device, already extracted from device configurations.
package network

import (
	"slices"

	"github.com/np-guard/models/pkg/ipblock"

	"github.com/np-guard/reachability-analyzer/pkg/common"
)

// DefaultVRF is the VRF interfaces belong to when none is given.
const DefaultVRF = "default"

// Network is a set of devices connected by the links found in their forwarding facts.
type Network struct {
	Devices map[string]*Device
}

// Device is one router, firewall or host.
type Device struct {
	Name           string
	Interfaces     map[string]*Interface
	VRFs           map[string]*VRF
	Filters        map[string]*Filter
	PacketPolicies map[string]*PacketPolicy
}

// Interface holds the per-interface filtering and translation facts.
type Interface struct {
	Name     string
	VRF      string
	Shutdown bool

	// filter names, empty for none
	IncomingFilter                   string
	PostTransformationIncomingFilter string
	PreTransformationOutgoingFilter  string
	OutgoingFilter                   string

	IncomingTransformation *Transformation
	OutgoingTransformation *Transformation

	// PacketPolicy routes packets received on this interface instead of the VRF table.
	PacketPolicy string

	// FirewallSession marks the interface as creating sessions for flows leaving it.
	FirewallSession *FirewallSessionInfo
}

// FirewallSessionInfo configures how return traffic of sessions is handled.
type FirewallSessionInfo struct {
	// FibLookup routes return traffic with the session FIB instead of sending it back
	// to the interface the forward flow came from.
	FibLookup bool
	// SessionInterfaces are the interfaces on which return traffic is matched. Empty
	// means the interface itself.
	SessionInterfaces []string
}

// VRF holds the forwarding facts of one routing instance.
type VRF struct {
	Name string

	// Routes, when given, are compiled into the facts below by RoutesToFacts.
	Routes []*Route

	// Routable destinations have some route, null routes included.
	Routable *ipblock.IPBlock
	// NullRouted destinations are dropped.
	NullRouted *ipblock.IPBlock
	// NextVRF destinations are looked up again in another VRF.
	NextVRF map[string]*ipblock.IPBlock
	// Interfaces maps interface names to their per-interface forwarding facts.
	Interfaces map[string]*InterfaceForwarding
	// ArpTrue lists the links over which destinations are forwarded with ARP success.
	ArpTrue []ArpTrueEdge

	// OriginatingSessions creates sessions for flows accepted by the device in this VRF.
	OriginatingSessions bool
}

// InterfaceForwarding are the destinations per disposition of one egress interface.
type InterfaceForwarding struct {
	Accepted            *ipblock.IPBlock
	DeliveredToSubnet   *ipblock.IPBlock
	ExitsNetwork        *ipblock.IPBlock
	NeighborUnreachable *ipblock.IPBlock
	InsufficientInfo    *ipblock.IPBlock
}

// Link is a directed layer-3 adjacency between two interfaces.
type Link struct {
	Node1  string
	Iface1 string
	Node2  string
	Iface2 string
}

func (l Link) compare(o Link) int {
	for _, pair := range [][2]string{{l.Node1, o.Node1}, {l.Iface1, o.Iface1}, {l.Node2, o.Node2}, {l.Iface2, o.Iface2}} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ArpTrueEdge: destinations Dst forwarded over Link reach the neighbor.
type ArpTrueEdge struct {
	Link Link
	Dst  *ipblock.IPBlock
}

// DeviceNames returns the device names, sorted.
func (n *Network) DeviceNames() []string {
	return common.SortedKeys(n.Devices)
}

// Interface looks up an interface of a device.
func (n *Network) Interface(node, iface string) (*Interface, bool) {
	d, ok := n.Devices[node]
	if !ok {
		return nil, false
	}
	i, ok := d.Interfaces[iface]
	return i, ok
}

// Links returns every link used by some ARP-true edge, sorted and without duplicates.
func (n *Network) Links() []Link {
	seen := map[Link]bool{}
	var res []Link
	for _, d := range n.Devices {
		for _, v := range d.VRFs {
			for _, e := range v.ArpTrue {
				if !seen[e.Link] {
					seen[e.Link] = true
					res = append(res, e.Link)
				}
			}
		}
	}
	slices.SortFunc(res, Link.compare)
	return res
}

// InterfaceNames returns the device's interface names, sorted.
func (d *Device) InterfaceNames() []string {
	return common.SortedKeys(d.Interfaces)
}

// ActiveInterfaceNames returns the names of the interfaces that are not shut down, sorted.
func (d *Device) ActiveInterfaceNames() []string {
	var res []string
	for _, name := range d.InterfaceNames() {
		if !d.Interfaces[name].Shutdown {
			res = append(res, name)
		}
	}
	return res
}

// VRFNames returns the device's VRF names, sorted.
func (d *Device) VRFNames() []string {
	return common.SortedKeys(d.VRFs)
}

// InterfacesInVRF returns the active interfaces of a VRF, sorted.
func (d *Device) InterfacesInVRF(vrf string) []string {
	var res []string
	for _, name := range d.ActiveInterfaceNames() {
		if d.Interfaces[name].VRF == vrf {
			res = append(res, name)
		}
	}
	return res
}

// InterfaceNames returns the interfaces with forwarding facts in the VRF, sorted.
func (v *VRF) InterfaceNames() []string {
	return common.SortedKeys(v.Interfaces)
}

// NextVRFNames returns the VRFs destinations are delegated to, sorted.
func (v *VRF) NextVRFNames() []string {
	return common.SortedKeys(v.NextVRF)
}

// orEmpty returns b, or the empty block when b is nil.
func orEmpty(b *ipblock.IPBlock) *ipblock.IPBlock {
	if b == nil {
		return ipblock.New()
	}
	return b
}
