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
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// headerSpaceBDD converts a match evaluated at node. With an empty node the source
// interface fields are ignored.
func (f *Factory) headerSpaceBDD(node string, hs *network.HeaderSpace) (bdd.BDD, error) {
	res := f.f.One()
	for _, ips := range []struct {
		vec     bdd.BitVec
		block   *ipblock.IPBlock
		negated bool
	}{
		{f.pkt.SrcIP, hs.SrcIPs, false},
		{f.pkt.DstIP, hs.DstIPs, false},
		{f.pkt.SrcIP, hs.NotSrcIPs, true},
		{f.pkt.DstIP, hs.NotDstIPs, true},
	} {
		if ips.block == nil {
			continue
		}
		space, err := bdd.IPSpace(ips.vec, ips.block)
		if err != nil {
			return bdd.BDD{}, err
		}
		if ips.negated {
			space = space.Not()
		}
		res = res.And(space)
	}
	if len(hs.Protocols) > 0 {
		protocols := f.f.Zero()
		for _, p := range hs.Protocols {
			b, err := f.pkt.Protocol(p)
			if err != nil {
				return bdd.BDD{}, configErrorf("%v", err)
			}
			protocols = protocols.Or(b)
		}
		res = res.And(protocols)
	}
	res = res.And(portsBDD(f.pkt.SrcPort, hs.SrcPorts)).And(portsBDD(f.pkt.DstPort, hs.DstPorts))
	if node != "" && hs.MatchesSource() {
		src := f.f.Zero()
		if hs.OriginatingFromDevice {
			src = src.Or(f.sourceBDD(node, sourceOriginatingFromDevice))
		}
		for _, iface := range hs.SrcInterfaces {
			b, ok := f.sources[node].Value(iface)
			if !ok {
				return bdd.BDD{}, configErrorf("device %s has no interface %s to match sources on", node, iface)
			}
			src = src.Or(b)
		}
		res = res.And(src)
	}
	return res, nil
}

func portsBDD(vec bdd.BitVec, ranges []network.PortRange) bdd.BDD {
	if len(ranges) == 0 {
		return vec.Range(0, vec.Max())
	}
	res := vec.Range(1, 0)
	for _, r := range ranges {
		res = res.Or(vec.Range(uint64(r.Min), uint64(r.Max)))
	}
	return res
}

// permitBDD is the set of packets a filter of node permits: the first matching line
// decides and unmatched packets are denied. An empty filter name permits everything.
func (f *Factory) permitBDD(node, filter string, q *Query) (bdd.BDD, error) {
	if filter == "" || q.IgnoreFilters {
		return f.f.One(), nil
	}
	key := common.Pair[string]{First: node, Second: filter}
	if b, ok := f.permits[key]; ok {
		return b, nil
	}
	acl, ok := f.net.Devices[node].Filters[filter]
	if !ok {
		return bdd.BDD{}, configErrorf("device %s has no filter %s", node, filter)
	}
	res := f.f.Zero()
	for i := len(acl.Lines) - 1; i >= 0; i-- {
		line := &acl.Lines[i]
		match, err := f.headerSpaceBDD(node, &line.Match)
		if err != nil {
			return bdd.BDD{}, err
		}
		action := f.f.Zero()
		if line.Action == network.Permit {
			action = f.f.One()
		}
		res = match.Ite(action, res)
	}
	f.permits[key] = res
	return res, nil
}

// fieldVec returns the bit-vector of a rewritable field.
func (f *Factory) fieldVec(field network.Field) bdd.BitVec {
	switch field {
	case network.FieldSrcIP:
		return f.pkt.SrcIP
	case network.FieldDstIP:
		return f.pkt.DstIP
	case network.FieldSrcPort:
		return f.pkt.SrcPort
	default:
		return f.pkt.DstPort
	}
}

// stepRange is the set of values a translation step writes.
func (f *Factory) stepRange(step *network.TransformationStep) (bdd.BDD, error) {
	vec := f.fieldVec(step.Field)
	if step.Field.IsIP() {
		return bdd.IPSpace(vec, step.Pool)
	}
	return vec.Range(uint64(step.Ports.Min), uint64(step.Ports.Max)), nil
}

// transformation converts a translation of node into a transition.
func (f *Factory) transformation(node string, t *network.Transformation) (transition.Transition, error) {
	if t == nil {
		return transition.Identity, nil
	}
	guard := f.f.One()
	if t.Guard != nil {
		var err error
		if guard, err = f.headerSpaceBDD(node, t.Guard); err != nil {
			return nil, err
		}
	}
	var steps []transition.Transition
	for i := range t.Steps {
		set, err := f.stepRange(&t.Steps[i])
		if err != nil {
			return nil, err
		}
		steps = append(steps, transition.SetVars(f.fieldVec(t.Steps[i].Field).VarSet(), set))
	}
	andThen, err := f.transformation(node, t.AndThen)
	if err != nil {
		return nil, err
	}
	orElse, err := f.transformation(node, t.OrElse)
	if err != nil {
		return nil, err
	}
	return transition.Branch(guard, transition.Compose(append(steps, andThen)...), orElse), nil
}

// translationPools returns, per field, the union of every pool a translation of the
// network writes into that field.
func (f *Factory) translationPools() (map[network.Field]bdd.BDD, error) {
	res := map[network.Field]bdd.BDD{}
	for _, name := range f.net.DeviceNames() {
		d := f.net.Devices[name]
		for _, ifName := range d.ActiveInterfaceNames() {
			iface := d.Interfaces[ifName]
			steps := append(iface.IncomingTransformation.AllSteps(), iface.OutgoingTransformation.AllSteps()...)
			for i := range steps {
				set, err := f.stepRange(&steps[i])
				if err != nil {
					return nil, err
				}
				if prev, ok := res[steps[i].Field]; ok {
					set = set.Or(prev)
				}
				res[steps[i].Field] = set
			}
		}
	}
	return res, nil
}

// finalHeaderSpace is the header space expected at the dispositions: the query header
// space, widened on every translated field it constrains by the translation pools.
func (f *Factory) finalHeaderSpace(q *Query) (bdd.BDD, error) {
	res, err := f.headerSpaceBDD("", &q.HeaderSpace)
	if err != nil {
		return bdd.BDD{}, err
	}
	pools, err := f.translationPools()
	if err != nil {
		return bdd.BDD{}, err
	}
	for _, field := range []network.Field{network.FieldSrcIP, network.FieldDstIP, network.FieldSrcPort, network.FieldDstPort} {
		pool, ok := pools[field]
		vars := f.fieldVec(field).VarSet()
		if !ok || !res.DependsOn(vars) {
			continue
		}
		res = res.Or(res.Exist(vars).And(pool))
	}
	return res, nil
}
