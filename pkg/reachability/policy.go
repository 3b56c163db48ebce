/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"slices"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/common"
	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// policyLeaves maps each action key of a compiled packet policy to the packets taking
// that action. The leaves partition the packets entering the policy.
type policyLeaves struct {
	byKey   map[string]bdd.BDD
	actions map[string]network.PolicyAction
}

func (l *policyLeaves) add(action network.PolicyAction, b bdd.BDD) {
	if b.IsZero() {
		return
	}
	key := action.Key()
	if prev, ok := l.byKey[key]; ok {
		b = b.Or(prev)
	}
	l.byKey[key] = b
	l.actions[key] = action
}

// compilePolicy evaluates the statements of a policy of node symbolically.
func (f *Factory) compilePolicy(node string, p *network.PacketPolicy) (*policyLeaves, error) {
	leaves := &policyLeaves{byKey: map[string]bdd.BDD{}, actions: map[string]network.PolicyAction{}}
	rest, err := f.compileStatements(node, p.Statements, f.f.One(), leaves)
	if err != nil {
		return nil, err
	}
	leaves.add(p.Default, rest)
	return leaves, nil
}

// compileStatements returns the packets of cur that fall off the end of stmts.
func (f *Factory) compileStatements(node string, stmts []network.Statement, cur bdd.BDD,
	leaves *policyLeaves) (bdd.BDD, error) {
	for _, stmt := range stmts {
		if cur.IsZero() {
			break
		}
		switch s := stmt.(type) {
		case network.Return:
			leaves.add(s.Action, cur)
			return f.f.Zero(), nil
		case network.If:
			match, err := f.headerSpaceBDD(node, &s.Match)
			if err != nil {
				return bdd.BDD{}, err
			}
			fallThrough, err := f.compileStatements(node, s.Then, cur.And(match), leaves)
			if err != nil {
				return bdd.BDD{}, err
			}
			cur = cur.Diff(match).Or(fallThrough)
		default:
			return bdd.BDD{}, invariantErrorf("unknown packet policy statement %T", stmt)
		}
	}
	return cur, nil
}

// policyEdges connects the packet policies used by the interfaces of a device to the
// actions they take.
func (b *edgeBuilder) policyEdges(d *network.Device) error {
	used := map[common.Pair[string]]bool{}
	for _, name := range d.ActiveInterfaceNames() {
		iface := d.Interfaces[name]
		if iface.PacketPolicy != "" {
			used[common.Pair[string]{First: iface.VRF, Second: iface.PacketPolicy}] = true
		}
	}
	for _, use := range sortedPairs(used) {
		vrf, name := use.First, use.Second
		p, ok := d.PacketPolicies[name]
		if !ok {
			return configErrorf("device %s has no packet policy %s", d.Name, name)
		}
		leaves, err := b.f.compilePolicy(d.Name, p)
		if err != nil {
			return err
		}
		stmt := state.PacketPolicyStatement(d.Name, vrf, name)
		for _, key := range common.SortedKeys(leaves.byKey) {
			actionState := state.PacketPolicyAction(d.Name, vrf, name, key)
			b.add(stmt, actionState, transition.Constrain(leaves.byKey[key]))
			action := leaves.actions[key]
			switch action.Kind {
			case network.PolicyDrop:
				b.add(actionState, state.NodeDropAclIn(d.Name), transition.Identity)
			case network.PolicyFibLookup:
				target := action.VRF
				if target == "" {
					target = vrf
				}
				b.add(actionState, state.PostInVrf(d.Name, target), transition.Identity)
			default:
				return invariantErrorf("unknown packet policy action %d", action.Kind)
			}
		}
	}
	return nil
}

func sortedPairs(m map[common.Pair[string]]bool) []common.Pair[string] {
	res := make([]common.Pair[string], 0, len(m))
	for p := range m {
		res = append(res, p)
	}
	slices.SortFunc(res, common.ComparePairs[string])
	return res
}
