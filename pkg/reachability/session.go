/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"fmt"
	"strings"

	"github.com/np-guard/models/pkg/netp"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
	"github.com/np-guard/reachability-analyzer/pkg/common"
	"github.com/np-guard/reachability-analyzer/pkg/logging"
	"github.com/np-guard/reachability-analyzer/pkg/network"
	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// SessionScope is where the return flows of a session arrive: an InterfaceScope or an
// OriginatingScope.
type SessionScope interface {
	fmt.Stringer
	isSessionScope()
}

// InterfaceScope matches return flows received on any of Interfaces.
type InterfaceScope struct {
	Interfaces []string
}

// OriginatingScope matches return flows of connections the device opened from a VRF.
type OriginatingScope struct {
	VRF string
}

func (s InterfaceScope) String() string   { return "interfaces " + strings.Join(s.Interfaces, ",") }
func (s OriginatingScope) String() string { return "originating vrf " + s.VRF }
func (InterfaceScope) isSessionScope()    {}
func (OriginatingScope) isSessionScope()  {}

// SessionActionKind is what a device does with the return flows of a session.
type SessionActionKind int

const (
	// SessionAccept accepts the return flows at the device.
	SessionAccept SessionActionKind = iota
	// SessionFibLookup routes the return flows with the session FIB.
	SessionFibLookup
	// SessionForwardOutInterface sends the return flows back where the forward flows came from.
	SessionForwardOutInterface
)

// SessionAction is the action of a session. OutInterface and NextHop are set for
// SessionForwardOutInterface only; a nil NextHop means the forward flows did not come
// from a known neighbour.
type SessionAction struct {
	Kind         SessionActionKind
	OutInterface string
	NextHop      *common.Pair[string]
}

func (a SessionAction) String() string {
	switch a.Kind {
	case SessionAccept:
		return "accept"
	case SessionFibLookup:
		return "fib-lookup"
	case SessionForwardOutInterface:
		if a.NextHop == nil {
			return "forward-out " + a.OutInterface
		}
		return fmt.Sprintf("forward-out %s to %s[%s]", a.OutInterface, a.NextHop.First, a.NextHop.Second)
	default:
		return fmt.Sprintf("SessionActionKind(%d)", int(a.Kind))
	}
}

// Session is the state a device keeps for the return flows of the connections it
// forwarded or opened.
type Session struct {
	Node   string
	Scope  SessionScope
	Action SessionAction
	// Flows are the return flows, with source and destination swapped from the forward flows.
	Flows bdd.BDD
	// Transformation undoes, on the return flows, the translations of the forward flows.
	Transformation transition.Transition
}

func (s *Session) String() string {
	return fmt.Sprintf("session at %s on %s: %s", s.Node, s.Scope, s.Action)
}

// sessionProtocols is the set of packets of the protocols sessions are created for.
func (f *Factory) sessionProtocols() bdd.BDD {
	res := f.f.Zero()
	for _, p := range []netp.ProtocolString{netp.ProtocolStringTCP, netp.ProtocolStringUDP, netp.ProtocolStringICMP} {
		b, _ := f.pkt.Protocol(p)
		res = res.Or(b)
	}
	return res
}

// returnFlows turns forward flows into the matching return flows.
func (f *Factory) returnFlows(forward bdd.BDD) bdd.BDD {
	return f.pkt.SwapSourceAndDestination(f.pkt.ProjectHeader(forward))
}

// sessionBuilder computes the sessions created by the flows of a forward pass.
type sessionBuilder struct {
	f         *Factory
	q         *Query
	reach     map[state.Expr]bdd.BDD
	protocols bdd.BDD
}

func (sb *sessionBuilder) at(s state.Expr) bdd.BDD {
	if b, ok := sb.reach[s]; ok {
		return b
	}
	return sb.f.f.Zero()
}

// computeSessions returns the sessions created by reach, the packets present at each
// state of the forward pass.
func (f *Factory) computeSessions(q *Query, reach map[state.Expr]bdd.BDD) ([]*Session, error) {
	sb := &sessionBuilder{f: f, q: q, reach: reach, protocols: f.sessionProtocols()}
	var res []*Session
	for _, name := range sessionDevices(f.net).AsList() {
		d := f.net.Devices[name]
		for _, vrf := range d.VRFNames() {
			if !d.VRFs[vrf].OriginatingSessions {
				continue
			}
			sessions, err := sb.originatingSessions(d, vrf)
			if err != nil {
				return nil, err
			}
			res = append(res, sessions...)
		}
		for _, ifName := range d.ActiveInterfaceNames() {
			if d.Interfaces[ifName].FirewallSession == nil {
				continue
			}
			sessions, err := sb.interfaceSessions(d, ifName)
			if err != nil {
				return nil, err
			}
			res = append(res, sessions...)
		}
	}
	sessionsCreated.Add(float64(len(res)))
	logging.Debugf("sessions: %d created", len(res))
	return res, nil
}

// originatingSessions are created by flows the device accepts in a VRF that originates
// sessions: the device opens connections to the senders of those flows.
func (sb *sessionBuilder) originatingSessions(d *network.Device, vrf string) ([]*Session, error) {
	f := sb.f
	accepted := sb.at(state.VrfAccept(d.Name, vrf)).And(sb.protocols)
	if accepted.IsZero() {
		return nil, nil
	}
	var res []*Session
	for _, src := range f.sources[d.Name].Values() {
		if src == sourceOriginatingFromDevice {
			continue
		}
		fromSrc := accepted.And(f.sourceBDD(d.Name, src))
		for _, lastHop := range sb.lastHops(d.Name, src) {
			flows := fromSrc.And(f.lastHopBDD(d.Name, src, lastHop))
			if flows.IsZero() {
				continue
			}
			rev, err := sb.reverseIncoming(d, src, lastHop)
			if err != nil {
				return nil, err
			}
			res = append(res, &Session{
				Node:           d.Name,
				Scope:          OriginatingScope{VRF: vrf},
				Action:         SessionAction{Kind: SessionFibLookup},
				Flows:          f.returnFlows(flows),
				Transformation: rev,
			})
		}
	}
	return res, nil
}

// interfaceSessions are created by flows leaving an interface with a firewall session.
func (sb *sessionBuilder) interfaceSessions(d *network.Device, out string) ([]*Session, error) {
	f := sb.f
	iface := d.Interfaces[out]
	permitOut, err := f.permitBDD(d.Name, iface.OutgoingFilter, sb.q)
	if err != nil {
		return nil, err
	}
	leaving := f.f.Zero()
	for _, l := range f.net.Links() {
		if l.Node1 == d.Name && l.Iface1 == out {
			leaving = leaving.Or(sb.at(state.PreOutEdgePostNat(l.Node1, l.Iface1, l.Node2, l.Iface2)).And(permitOut))
		}
	}
	leaving = leaving.Or(sb.at(state.SetupSessionDeliveredToSubnet(d.Name, out))).
		Or(sb.at(state.SetupSessionExitsNetwork(d.Name, out))).
		And(sb.protocols)
	if leaving.IsZero() {
		return nil, nil
	}
	scope := InterfaceScope{Interfaces: iface.FirewallSession.SessionInterfaces}
	if len(scope.Interfaces) == 0 {
		scope.Interfaces = []string{out}
	}
	var res []*Session
	for _, src := range f.sources[d.Name].Values() {
		fromSrc := leaving.And(f.sourceBDD(d.Name, src))
		if fromSrc.IsZero() {
			continue
		}
		if src == sourceOriginatingFromDevice {
			rev, err := sb.reverseOutgoing(d, out, src, noLastHop)
			if err != nil {
				return nil, err
			}
			res = append(res, &Session{
				Node:           d.Name,
				Scope:          scope,
				Action:         SessionAction{Kind: SessionAccept},
				Flows:          f.returnFlows(fromSrc),
				Transformation: rev,
			})
			continue
		}
		for _, lastHop := range sb.lastHops(d.Name, src) {
			flows := fromSrc.And(f.lastHopBDD(d.Name, src, lastHop))
			if flows.IsZero() {
				continue
			}
			action := SessionAction{Kind: SessionFibLookup}
			if !iface.FirewallSession.FibLookup {
				action = SessionAction{Kind: SessionForwardOutInterface, OutInterface: src}
				if lastHop != noLastHop {
					nh := lastHop
					action.NextHop = &nh
				}
			}
			revOut, err := sb.reverseOutgoing(d, out, src, lastHop)
			if err != nil {
				return nil, err
			}
			revIn, err := sb.reverseIncoming(d, src, lastHop)
			if err != nil {
				return nil, err
			}
			res = append(res, &Session{
				Node:           d.Name,
				Scope:          scope,
				Action:         action,
				Flows:          f.returnFlows(flows),
				Transformation: transition.Compose(revOut, revIn),
			})
		}
	}
	return res, nil
}

func (sb *sessionBuilder) lastHops(node, iface string) []common.Pair[string] {
	if !sb.f.hasLastHops(node, iface) {
		return []common.Pair[string]{noLastHop}
	}
	return sb.f.lastHopValues(node, iface)
}

// reverseIncoming undoes the incoming translation of iface for the flows received from
// lastHop.
func (sb *sessionBuilder) reverseIncoming(d *network.Device, iface string, lastHop common.Pair[string]) (transition.Transition, error) {
	f := sb.f
	t := d.Interfaces[iface].IncomingTransformation
	if t == nil {
		return transition.Identity, nil
	}
	permitIn, err := f.permitBDD(d.Name, d.Interfaces[iface].IncomingFilter, sb.q)
	if err != nil {
		return nil, err
	}
	pre := sb.at(state.PreInInterface(d.Name, iface)).And(permitIn).And(f.lastHopBDD(d.Name, iface, lastHop))
	return f.reverseTransformation(t.AllSteps(), pre)
}

// reverseOutgoing undoes the outgoing translation of out for the flows received on src
// from lastHop.
func (sb *sessionBuilder) reverseOutgoing(d *network.Device, out, src string, lastHop common.Pair[string]) (transition.Transition, error) {
	f := sb.f
	iface := d.Interfaces[out]
	if iface.OutgoingTransformation == nil {
		return transition.Identity, nil
	}
	permitPre, err := f.permitBDD(d.Name, iface.PreTransformationOutgoingFilter, sb.q)
	if err != nil {
		return nil, err
	}
	pre := f.f.Zero()
	for _, l := range f.net.Links() {
		if l.Node1 == d.Name && l.Iface1 == out {
			pre = pre.Or(sb.at(state.PreOutEdge(l.Node1, l.Iface1, l.Node2, l.Iface2)))
		}
	}
	for _, ctor := range forwardFib.preOutInterface {
		pre = pre.Or(sb.at(ctor(d.Name, out)))
	}
	pre = pre.And(permitPre).And(f.sourceBDD(d.Name, src))
	if src != sourceOriginatingFromDevice {
		pre = pre.And(f.lastHopBDD(d.Name, src, lastHop))
	}
	return f.reverseTransformation(iface.OutgoingTransformation.AllSteps(), pre)
}

// reverseTransformation maps return flows whose swapped field fell in the pool of a
// translation step back to the values the forward flows had before the translation.
// Fields are restored one at a time, so the result is then restricted to the swapped
// 5-tuples of pre: a return flow never gets back to a header no forward flow had.
func (f *Factory) reverseTransformation(steps []network.TransformationStep, pre bdd.BDD) (transition.Transition, error) {
	pools := map[network.Field]bdd.BDD{}
	for i := range steps {
		set, err := f.stepRange(&steps[i])
		if err != nil {
			return nil, err
		}
		if prev, ok := pools[steps[i].Field]; ok {
			set = set.Or(prev)
		}
		pools[steps[i].Field] = set
	}
	var res []transition.Transition
	for _, field := range common.SortedKeys(pools) {
		vec := f.fieldVec(field)
		swapped := f.pkt.Swapped(vec)
		original := f.pkt.SwapSourceAndDestination(pre.Project(vec.VarSet()))
		if original.IsZero() {
			continue
		}
		guard := f.pkt.SwapSourceAndDestination(pools[field])
		res = append(res, transition.Branch(guard, transition.SetVars(swapped.VarSet(), original), transition.Identity))
	}
	res = append(res, transition.Constrain(f.pkt.SwapSourceAndDestination(f.pkt.ProjectHeader(pre))))
	return transition.Compose(res...), nil
}
