/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"fmt"
	"sort"

	"github.com/np-guard/models/pkg/ipblock"

	"github.com/np-guard/reachability-analyzer/pkg/logging"
)

// RouteAction is what a route does with matching packets.
type RouteAction int

const (
	// Deliver forwards the packet out of an interface. Several deliver routes with the
	// same prefix and priority share the traffic (ECMP).
	Deliver RouteAction = iota
	// Delegate looks the packet up again in another VRF.
	Delegate
	// Drop drops the packet (null route).
	Drop
)

// NextHop is where a deliver route sends packets.
type NextHop struct {
	Interface string
	// Neighbor and NeighborInterface name the device on the other side of the link;
	// empty when the destination is outside the modeled network.
	Neighbor          string
	NeighborInterface string
	// Connected marks the destination as directly attached to the interface.
	Connected bool
}

// Route is a static route of a VRF.
type Route struct {
	Name        string
	Destination string
	// Priority breaks ties between routes of the same prefix length, lower first.
	Priority int
	Action   RouteAction
	NextHop  NextHop
	// NextVRF is the target of Delegate.
	NextVRF string

	destIPBlock   *ipblock.IPBlock
	destPrefixLen int64
}

// NewRoute parses the destination of a route.
func NewRoute(name, dest string, action RouteAction, priority int) (*Route, error) {
	res := &Route{Name: name, Destination: dest, Action: action, Priority: priority}
	var err error
	if res.destIPBlock, err = ipblock.FromCidr(dest); err != nil {
		return nil, fmt.Errorf("route %s: invalid destination CIDR: %w", name, err)
	}
	if res.destPrefixLen, err = res.destIPBlock.PrefixLength(); err != nil {
		return nil, fmt.Errorf("route %s: %w", name, err)
	}
	return res, nil
}

// sortRoutes orders routes by prefix length, longest first, then by priority.
func sortRoutes(routes []*Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].destPrefixLen != routes[j].destPrefixLen {
			return routes[i].destPrefixLen > routes[j].destPrefixLen
		}
		return routes[i].Priority < routes[j].Priority
	})
}

// RoutesToFacts replaces the forwarding facts of a VRF with those of its routes. The
// destinations of all routes are split into disjoint blocks; each block follows the
// most specific route with the best priority, and all equally good deliver routes
// when there are several.
func RoutesToFacts(device *Device, vrf *VRF) error {
	if len(vrf.Routes) == 0 {
		return nil
	}
	routes := append([]*Route(nil), vrf.Routes...)
	sortRoutes(routes)

	vrf.Routable = ipblock.New()
	vrf.NullRouted = ipblock.New()
	vrf.NextVRF = map[string]*ipblock.IPBlock{}
	if vrf.Interfaces == nil {
		vrf.Interfaces = map[string]*InterfaceForwarding{}
	}
	vrf.ArpTrue = nil
	arpTrue := map[Link]*ipblock.IPBlock{}
	var links []Link

	destIPBlocks := make([]*ipblock.IPBlock, len(routes))
	for i, r := range routes {
		destIPBlocks[i] = r.destIPBlock
		vrf.Routable = vrf.Routable.Union(r.destIPBlock)
	}
	for _, disjointDest := range ipblock.DisjointIPBlocks(destIPBlocks, destIPBlocks) {
		best := bestRoutes(routes, disjointDest)
		for _, r := range best {
			logging.Debugf("%s/%s: %s follows route %s", device.Name, vrf.Name, disjointDest.ToIPRanges(), r.Name)
			switch r.Action {
			case Drop:
				vrf.NullRouted = vrf.NullRouted.Union(disjointDest)
			case Delegate:
				vrf.NextVRF[r.NextVRF] = orEmpty(vrf.NextVRF[r.NextVRF]).Union(disjointDest)
			case Deliver:
				if r.NextHop.Neighbor != "" {
					l := Link{Node1: device.Name, Iface1: r.NextHop.Interface, Node2: r.NextHop.Neighbor,
						Iface2: r.NextHop.NeighborInterface}
					if _, ok := arpTrue[l]; !ok {
						links = append(links, l)
					}
					arpTrue[l] = orEmpty(arpTrue[l]).Union(disjointDest)
					continue
				}
				fwd := vrf.Interfaces[r.NextHop.Interface]
				if fwd == nil {
					fwd = &InterfaceForwarding{}
					vrf.Interfaces[r.NextHop.Interface] = fwd
				}
				if r.NextHop.Connected {
					fwd.DeliveredToSubnet = orEmpty(fwd.DeliveredToSubnet).Union(disjointDest)
				} else {
					fwd.ExitsNetwork = orEmpty(fwd.ExitsNetwork).Union(disjointDest)
				}
			}
		}
	}
	for _, l := range links {
		vrf.ArpTrue = append(vrf.ArpTrue, ArpTrueEdge{Link: l, Dst: arpTrue[l]})
	}
	return nil
}

// bestRoutes returns the first route containing dest and, for deliver routes, every
// later deliver route with the same prefix length and priority.
func bestRoutes(sorted []*Route, dest *ipblock.IPBlock) []*Route {
	var res []*Route
	for _, r := range sorted {
		if !dest.ContainedIn(r.destIPBlock) {
			continue
		}
		if len(res) == 0 {
			res = append(res, r)
			if r.Action != Deliver {
				return res
			}
			continue
		}
		first := res[0]
		if r.Action == Deliver && r.destPrefixLen == first.destPrefixLen && r.Priority == first.Priority {
			res = append(res, r)
		}
	}
	return res
}
