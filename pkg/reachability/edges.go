/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"slices"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/common"
	"github.com/np-guard/reachability-analyzer/pkg/graph"
	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// edgeBuilder collects the edges of one graph. Every generator appends to edges and
// returns the first error it meets.
type edgeBuilder struct {
	f     *Factory
	q     *Query
	edges []graph.Edge
}

func (b *edgeBuilder) add(pre, post state.Expr, t transition.Transition) {
	if t == transition.Zero {
		return
	}
	b.edges = append(b.edges, graph.Edge{Pre: pre, Post: post, Transition: t})
}

// filters bundles the permit predicates of the four filters of an interface.
type filters struct {
	in, postTransIn, preTransOut, out bdd.BDD
}

func (f *Factory) interfaceFilters(node string, iface *network.Interface, q *Query) (*filters, error) {
	res := &filters{}
	for _, p := range []struct {
		dst  *bdd.BDD
		name string
	}{
		{&res.in, iface.IncomingFilter},
		{&res.postTransIn, iface.PostTransformationIncomingFilter},
		{&res.preTransOut, iface.PreTransformationOutgoingFilter},
		{&res.out, iface.OutgoingFilter},
	} {
		permit, err := f.permitBDD(node, p.name, q)
		if err != nil {
			return nil, err
		}
		*p.dst = permit
	}
	return res, nil
}

// enterInterface tags flows crossing the link (n1,i1) -> (n2,i2) with their new
// source interface and, when tracked, their last hop.
func (f *Factory) enterInterface(n1, i1, n2, i2 string) transition.Transition {
	setSource := transition.SetVars(f.srcTag.VarSet(), f.sourceBDD(n2, i2))
	if !f.hasLastHops(n2, i2) {
		return transition.Compose(setSource, transition.RemoveVars(f.lastHopTag.VarSet(), f.f))
	}
	lastHop := f.lastHopBDD(n2, i2, common.Pair[string]{First: n1, Second: i1})
	return transition.Compose(setSource, transition.SetVars(f.lastHopTag.VarSet(), lastHop))
}

// originate tags flows created by node itself.
func (f *Factory) originate(node string) transition.Transition {
	return transition.SetVars(f.srcTag.VarSet(), f.sourceBDD(node, sourceOriginatingFromDevice))
}

// rootEdges connects every origination state to the first stage of its device.
func (b *edgeBuilder) rootEdges(roots map[state.Expr]bdd.BDD) error {
	f := b.f
	for _, root := range sortedStates(roots) {
		loc, ok := locationOf(root)
		if !ok {
			return invariantErrorf("%s is not an origination state", root)
		}
		d, ok := f.net.Devices[loc.Node]
		if !ok {
			return configErrorf("location %s: unknown device %s", loc, loc.Node)
		}
		constraint := transition.Constrain(roots[root])
		switch loc.Kind {
		case LocationVrf:
			if _, ok := d.VRFs[loc.Name]; !ok {
				return configErrorf("location %s: unknown vrf %s", loc, loc.Name)
			}
			b.add(root, state.PostInVrf(loc.Node, loc.Name), transition.Compose(constraint, f.originate(loc.Node)))
		case LocationInterface, LocationInterfaceLink:
			iface, ok := d.Interfaces[loc.Name]
			if !ok {
				return configErrorf("location %s: unknown interface %s", loc, loc.Name)
			}
			if iface.Shutdown {
				continue
			}
			if loc.Kind == LocationInterface {
				b.add(root, state.PostInVrf(loc.Node, iface.VRF), transition.Compose(constraint, f.originate(loc.Node)))
				continue
			}
			enter := transition.SetVars(f.srcTag.VarSet(), f.sourceBDD(loc.Node, loc.Name))
			lastHop := transition.Identity
			if f.hasLastHops(loc.Node, loc.Name) {
				lastHop = transition.SetVars(f.lastHopTag.VarSet(), f.lastHopBDD(loc.Node, loc.Name, noLastHop))
			}
			b.add(root, state.PreInInterface(loc.Node, loc.Name), transition.Compose(constraint, enter, lastHop))
		}
	}
	return nil
}

// ingressEdges filters and translates packets received on the active interfaces of a
// device, then hands them to the VRF or to the interface's packet policy.
func (b *edgeBuilder) ingressEdges(d *network.Device) error {
	for _, name := range d.ActiveInterfaceNames() {
		iface := d.Interfaces[name]
		fl, err := b.f.interfaceFilters(d.Name, iface, b.q)
		if err != nil {
			return err
		}
		nat, err := b.f.transformation(d.Name, iface.IncomingTransformation)
		if err != nil {
			return err
		}
		preIn, postIn := state.PreInInterface(d.Name, name), state.PostInInterface(d.Name, name)
		dropIn := state.NodeDropAclIn(d.Name)
		b.add(preIn, dropIn, transition.Constrain(fl.in.Not()))
		b.add(preIn, postIn, transition.Compose(transition.Constrain(fl.in), nat))
		b.add(postIn, dropIn, transition.Constrain(fl.postTransIn.Not()))
		next := state.PostInVrf(d.Name, iface.VRF)
		if iface.PacketPolicy != "" {
			next = state.PacketPolicyStatement(d.Name, iface.VRF, iface.PacketPolicy)
		}
		b.add(postIn, next, transition.Constrain(fl.postTransIn))
	}
	return nil
}

// acceptEdges lead packets accepted by an interface to the device's accept state.
func (b *edgeBuilder) acceptEdges(d *network.Device) {
	for _, name := range d.ActiveInterfaceNames() {
		b.add(state.InterfaceAccept(d.Name, name), state.VrfAccept(d.Name, d.Interfaces[name].VRF), transition.Identity)
	}
	for _, vrf := range d.VRFNames() {
		b.add(state.VrfAccept(d.Name, vrf), state.NodeAccept(d.Name), transition.Identity)
	}
}

// linkEgressEdges filters and translates packets forwarded over a link from node1, and
// delivers them to the neighbour.
func (b *edgeBuilder) linkEgressEdges(l network.Link) error {
	iface, ok := b.f.net.Interface(l.Node1, l.Iface1)
	if !ok || iface.Shutdown || !b.f.activeInterface(l.Node2, l.Iface2) {
		return nil
	}
	fl, err := b.f.interfaceFilters(l.Node1, iface, b.q)
	if err != nil {
		return err
	}
	nat, err := b.f.transformation(l.Node1, iface.OutgoingTransformation)
	if err != nil {
		return err
	}
	preOut := state.PreOutEdge(l.Node1, l.Iface1, l.Node2, l.Iface2)
	postNat := state.PreOutEdgePostNat(l.Node1, l.Iface1, l.Node2, l.Iface2)
	dropOut := state.NodeDropAclOut(l.Node1)
	b.add(preOut, dropOut, transition.Constrain(fl.preTransOut.Not()))
	b.add(preOut, postNat, transition.Compose(transition.Constrain(fl.preTransOut), nat))
	b.add(postNat, dropOut, transition.Constrain(fl.out.Not()))
	b.add(postNat, state.PreInInterface(l.Node2, l.Iface2),
		transition.Compose(transition.Constrain(fl.out), b.f.enterInterface(l.Node1, l.Iface1, l.Node2, l.Iface2)))
	return nil
}

// interfaceEgressEdges handles packets leaving an interface without a known neighbour.
func (b *edgeBuilder) interfaceEgressEdges(d *network.Device, name string, kinds common.GenericSet[state.Kind]) error {
	iface := d.Interfaces[name]
	fl, err := b.f.interfaceFilters(d.Name, iface, b.q)
	if err != nil {
		return err
	}
	nat, err := b.f.transformation(d.Name, iface.OutgoingTransformation)
	if err != nil {
		return err
	}
	drop := transition.Union(
		transition.Constrain(fl.preTransOut.Not()),
		transition.Compose(transition.Constrain(fl.preTransOut), nat, transition.Constrain(fl.out.Not())))
	pass := transition.Compose(transition.Constrain(fl.preTransOut), nat, transition.Constrain(fl.out))
	for _, kind := range kinds.AsList() {
		pre := state.Expr{Kind: kind, Node: d.Name, Iface: name}
		b.add(pre, state.NodeDropAclOut(d.Name), drop)
		switch kind {
		case state.KindPreOutInterfaceDeliveredToSubnet:
			setup := state.SetupSessionDeliveredToSubnet(d.Name, name)
			b.add(pre, setup, pass)
			b.add(setup, state.NodeInterfaceDeliveredToSubnet(d.Name, name), transition.Identity)
		case state.KindPreOutInterfaceExitsNetwork:
			setup := state.SetupSessionExitsNetwork(d.Name, name)
			b.add(pre, setup, pass)
			b.add(setup, state.NodeInterfaceExitsNetwork(d.Name, name), transition.Identity)
		case state.KindPreOutInterfaceInsufficientInfo:
			b.add(pre, state.NodeInterfaceInsufficientInfo(d.Name, name), pass)
		case state.KindPreOutInterfaceNeighborUnreachable:
			b.add(pre, state.NodeInterfaceNeighborUnreachable(d.Name, name), pass)
		default:
			return invariantErrorf("unexpected interface egress state %s", kind)
		}
	}
	return nil
}

// dispositionEdges lead the terminal states of the final nodes to the global
// dispositions, forgetting the device-specific tags.
func (b *edgeBuilder) dispositionEdges() {
	f := b.f
	final := b.q.FinalNodes
	if len(final) == 0 {
		final = f.net.DeviceNames()
	}
	forget := transition.RemoveVars(f.nodeTagVars, f.f)
	for _, node := range final {
		d, ok := f.net.Devices[node]
		if !ok {
			continue
		}
		terminals := []state.Expr{
			state.NodeAccept(node), state.NodeDropAclIn(node), state.NodeDropAclOut(node),
			state.NodeDropNoRoute(node), state.NodeDropNullRoute(node),
		}
		for _, name := range d.ActiveInterfaceNames() {
			terminals = append(terminals,
				state.NodeInterfaceDeliveredToSubnet(node, name), state.NodeInterfaceExitsNetwork(node, name),
				state.NodeInterfaceInsufficientInfo(node, name), state.NodeInterfaceNeighborUnreachable(node, name))
		}
		for _, s := range terminals {
			global, _ := s.GlobalDisposition()
			b.add(s, global, forget)
		}
	}
}

// queryEdges lead the requested dispositions to Query.
func (b *edgeBuilder) queryEdges(dispositions []state.Disposition) {
	for _, d := range dispositions {
		if s, ok := state.DispositionState(d); ok {
			b.add(s, state.Query, transition.Identity)
		}
	}
}

func (f *Factory) activeInterface(node, iface string) bool {
	i, ok := f.net.Interface(node, iface)
	return ok && !i.Shutdown
}

// deviceEdges generates the ingress, forwarding and egress edges of every device.
func (b *edgeBuilder) deviceEdges() error {
	f := b.f
	for _, name := range f.net.DeviceNames() {
		d := f.net.Devices[name]
		if err := b.ingressEdges(d); err != nil {
			return err
		}
		if err := b.policyEdges(d); err != nil {
			return err
		}
		b.acceptEdges(d)
		egress := map[string]common.GenericSet[state.Kind]{}
		for _, vrf := range d.VRFNames() {
			if err := b.fibEdges(d, vrf, forwardFib, egress); err != nil {
				return err
			}
		}
		for _, ifName := range common.SortedKeys(egress) {
			if err := b.interfaceEgressEdges(d, ifName, egress[ifName]); err != nil {
				return err
			}
		}
	}
	for _, l := range f.net.Links() {
		if err := b.linkEgressEdges(l); err != nil {
			return err
		}
	}
	return nil
}

func sortedStates[V any](m map[state.Expr]V) []state.Expr {
	res := make([]state.Expr, 0, len(m))
	for s := range m {
		res = append(res, s)
	}
	slices.SortFunc(res, state.Compare)
	return res
}
