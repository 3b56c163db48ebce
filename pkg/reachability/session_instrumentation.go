/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/graph"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// sessionEdges adds the return-pass edges of sessions to b. Packets matched by a
// session at some state take only the session edges: every other edge out of that
// state is constrained to the packets no session matches.
func (b *edgeBuilder) sessionEdges(sessions []*Session, roots map[state.Expr]bdd.BDD) error {
	f := b.f
	matched := map[state.Expr]bdd.BDD{}
	var added []graph.Edge
	addSession := func(pre, post state.Expr, t transition.Transition, flows bdd.BDD) {
		if t == transition.Zero {
			return
		}
		added = append(added, graph.Edge{Pre: pre, Post: post, Transition: t})
		if prev, ok := matched[pre]; ok {
			flows = flows.Or(prev)
		}
		matched[pre] = flows
	}
	fibDevices := map[string]bool{}
	for _, s := range sessions {
		d, ok := f.net.Devices[s.Node]
		if !ok {
			return invariantErrorf("session at unknown device %s", s.Node)
		}
		core := transition.Compose(transition.Constrain(s.Flows), s.Transformation)
		switch scope := s.Scope.(type) {
		case InterfaceScope:
			for _, ifName := range scope.Interfaces {
				iface, ok := d.Interfaces[ifName]
				if !ok || iface.Shutdown {
					continue
				}
				var post state.Expr
				switch s.Action.Kind {
				case SessionAccept:
					post = state.NodeAccept(s.Node)
				case SessionFibLookup:
					post = state.PostInVrfSession(s.Node, iface.VRF)
					fibDevices[s.Node] = true
				case SessionForwardOutInterface:
					if nh := s.Action.NextHop; nh != nil {
						post = state.PreOutEdgeSession(s.Node, s.Action.OutInterface, nh.First, nh.Second)
					} else {
						post = state.NodeInterfaceDeliveredToSubnet(s.Node, s.Action.OutInterface)
					}
				default:
					return invariantErrorf("%s: unknown session action %s", s, s.Action)
				}
				addSession(state.PreInInterface(s.Node, ifName), post, core, s.Flows)
			}
		case OriginatingScope:
			if s.Action.Kind != SessionFibLookup {
				return unsupportedErrorf("%s: originating sessions support only fib-lookup actions", s)
			}
			fibDevices[s.Node] = true
			starts := []state.Expr{state.OriginateVrf(s.Node, scope.VRF)}
			for _, ifName := range d.InterfacesInVRF(scope.VRF) {
				starts = append(starts, state.OriginateInterface(s.Node, ifName))
			}
			for _, start := range starts {
				t := transition.Compose(f.originate(s.Node), core)
				if root, ok := roots[start]; ok {
					t = transition.Compose(transition.Constrain(root), t)
				}
				addSession(start, state.PostInVrfSession(s.Node, scope.VRF), t, s.Flows)
			}
		default:
			return invariantErrorf("%s: unknown session scope %T", s, s.Scope)
		}
	}

	for i := range b.edges {
		e := &b.edges[i]
		if flows, ok := matched[e.Pre]; ok {
			e.Transition = transition.Compose(transition.Constrain(flows.Not()), e.Transition)
		}
	}
	for _, e := range added {
		b.add(e.Pre, e.Post, e.Transition)
	}

	for _, name := range f.net.DeviceNames() {
		if !fibDevices[name] {
			continue
		}
		d := f.net.Devices[name]
		for _, vrf := range d.VRFNames() {
			if err := b.fibEdges(d, vrf, sessionFib, nil); err != nil {
				return err
			}
		}
	}
	tracked := sessionDevices(f.net)
	for _, l := range f.net.Links() {
		if !tracked.Contains(l.Node1) ||
			!f.activeInterface(l.Node1, l.Iface1) || !f.activeInterface(l.Node2, l.Iface2) {
			continue
		}
		b.add(state.PreOutEdgeSession(l.Node1, l.Iface1, l.Node2, l.Iface2), state.PreInInterface(l.Node2, l.Iface2),
			f.enterInterface(l.Node1, l.Iface1, l.Node2, l.Iface2))
	}
	return nil
}
