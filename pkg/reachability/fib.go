/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"github.com/np-guard/models/pkg/ipblock"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/common"
	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// fibStates names the states a FIB lookup connects. The forward pass and the session
// return pass route with the same facts between different states.
type fibStates struct {
	postInVrf  func(node, vrf string) state.Expr
	preOutVrf  func(node, vrf string) state.Expr
	preOutEdge func(node1, iface1, node2, iface2 string) state.Expr
	// per interface outcome without a known neighbour, keyed by the PreOutInterface kind
	// of the forward pass
	preOutInterface map[state.Kind]func(node, iface string) state.Expr
}

var forwardFib = fibStates{
	postInVrf:  state.PostInVrf,
	preOutVrf:  state.PreOutVrf,
	preOutEdge: state.PreOutEdge,
	preOutInterface: map[state.Kind]func(node, iface string) state.Expr{
		state.KindPreOutInterfaceDeliveredToSubnet:   state.PreOutInterfaceDeliveredToSubnet,
		state.KindPreOutInterfaceExitsNetwork:        state.PreOutInterfaceExitsNetwork,
		state.KindPreOutInterfaceInsufficientInfo:    state.PreOutInterfaceInsufficientInfo,
		state.KindPreOutInterfaceNeighborUnreachable: state.PreOutInterfaceNeighborUnreachable,
	},
}

// sessionFib routes return flows of FIB-lookup sessions. They skip the egress filters
// and translations, so they go straight to the interface outcomes.
var sessionFib = fibStates{
	postInVrf:  state.PostInVrfSession,
	preOutVrf:  state.PreOutVrfSession,
	preOutEdge: state.PreOutEdgeSession,
	preOutInterface: map[state.Kind]func(node, iface string) state.Expr{
		state.KindPreOutInterfaceDeliveredToSubnet:   state.NodeInterfaceDeliveredToSubnet,
		state.KindPreOutInterfaceExitsNetwork:        state.NodeInterfaceExitsNetwork,
		state.KindPreOutInterfaceInsufficientInfo:    state.NodeInterfaceInsufficientInfo,
		state.KindPreOutInterfaceNeighborUnreachable: state.NodeInterfaceNeighborUnreachable,
	},
}

func interfaceOutcomes(fwd *network.InterfaceForwarding) map[state.Kind]*ipblock.IPBlock {
	return map[state.Kind]*ipblock.IPBlock{
		state.KindPreOutInterfaceDeliveredToSubnet:   fwd.DeliveredToSubnet,
		state.KindPreOutInterfaceExitsNetwork:        fwd.ExitsNetwork,
		state.KindPreOutInterfaceInsufficientInfo:    fwd.InsufficientInfo,
		state.KindPreOutInterfaceNeighborUnreachable: fwd.NeighborUnreachable,
	}
}

// dstBDD is the set of packets whose destination is in block; Zero for a nil block.
func (f *Factory) dstBDD(block *ipblock.IPBlock) (bdd.BDD, error) {
	if block == nil {
		return f.f.Zero(), nil
	}
	return f.pkt.DstIPSpace(block)
}

// fibEdges generates the lookup edges of one VRF between the states of fs. The
// interface outcomes used are recorded in egress, per interface.
func (b *edgeBuilder) fibEdges(d *network.Device, vrfName string, fs fibStates,
	egress map[string]common.GenericSet[state.Kind]) error {
	f := b.f
	vrf := d.VRFs[vrfName]
	postIn, preOut := fs.postInVrf(d.Name, vrfName), fs.preOutVrf(d.Name, vrfName)

	accepted := f.f.Zero()
	routed := f.f.Zero()
	for _, ifName := range vrf.InterfaceNames() {
		if !f.activeInterface(d.Name, ifName) {
			continue
		}
		fwd := vrf.Interfaces[ifName]
		acc, err := f.dstBDD(fwd.Accepted)
		if err != nil {
			return err
		}
		if !acc.IsZero() {
			accepted = accepted.Or(acc)
			b.add(postIn, state.InterfaceAccept(d.Name, ifName), transition.Constrain(acc))
		}
		outcomes := interfaceOutcomes(fwd)
		for _, kind := range common.SortedKeys(outcomes) {
			dst, err := f.dstBDD(outcomes[kind])
			if err != nil {
				return err
			}
			if dst.IsZero() {
				continue
			}
			routed = routed.Or(dst)
			b.add(preOut, fs.preOutInterface[kind](d.Name, ifName), transition.Constrain(dst))
			if egress != nil {
				if egress[ifName] == nil {
					egress[ifName] = common.NewGenericSet[state.Kind]()
				}
				egress[ifName].Add(kind)
			}
		}
	}

	nextVrfs := f.f.Zero()
	for _, next := range vrf.NextVRFNames() {
		dst, err := f.dstBDD(vrf.NextVRF[next])
		if err != nil {
			return err
		}
		nextVrfs = nextVrfs.Or(dst)
		b.add(postIn, fs.postInVrf(d.Name, next), transition.Constrain(dst.Diff(accepted)))
	}

	nullRouted, err := f.dstBDD(vrf.NullRouted)
	if err != nil {
		return err
	}
	routed = routed.Or(nullRouted)
	b.add(preOut, state.NodeDropNullRoute(d.Name), transition.Constrain(nullRouted))

	for _, e := range vrf.ArpTrue {
		if !f.activeInterface(e.Link.Node1, e.Link.Iface1) || !f.activeInterface(e.Link.Node2, e.Link.Iface2) {
			continue
		}
		dst, err := f.dstBDD(e.Dst)
		if err != nil {
			return err
		}
		routed = routed.Or(dst)
		b.add(preOut, fs.preOutEdge(e.Link.Node1, e.Link.Iface1, e.Link.Node2, e.Link.Iface2), transition.Constrain(dst))
	}

	routable := routed.Or(nextVrfs)
	if vrf.Routable != nil {
		if routable, err = f.dstBDD(vrf.Routable); err != nil {
			return err
		}
	}
	b.add(postIn, preOut, transition.Constrain(routable.Diff(accepted).Diff(nextVrfs)))
	b.add(postIn, state.NodeDropNoRoute(d.Name), transition.Constrain(accepted.Or(routable).Or(nextVrfs).Not()))
	return nil
}
