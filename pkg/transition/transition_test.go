/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
)

type fixture struct {
	pkt *bdd.Packet
	f   *bdd.Factory
	tag bdd.BitVec
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	pkt, err := bdd.NewPacket(2)
	require.Nil(t, err)
	tag, err := pkt.AllocateTag("tag", 2)
	require.Nil(t, err)
	return fixture{pkt: pkt, f: pkt.Factory(), tag: tag}
}

func TestComposeLaws(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	c := Constrain(fx.pkt.DstPort.Value(22))

	require.Equal(t, Zero, Compose(c, Zero, Identity))
	require.Equal(t, c, Compose(Identity, c, Identity))
	require.Equal(t, Identity, Compose())
	require.Equal(t, Identity, Constrain(fx.f.One()))
	require.Equal(t, Zero, Constrain(fx.f.Zero()))

	merged := Compose(c, Constrain(fx.pkt.IPProtocol.Value(6)))
	mc, ok := merged.(Constraint)
	require.True(t, ok)
	require.True(t, mc.Pred.Equal(fx.pkt.DstPort.Value(22).And(fx.pkt.IPProtocol.Value(6))))

	require.Equal(t, Zero, Compose(c, Constrain(fx.pkt.DstPort.Value(23))))
}

func TestUnion(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	c22 := Constrain(fx.pkt.DstPort.Value(22))
	c23 := Constrain(fx.pkt.DstPort.Value(23))

	require.Equal(t, Zero, Union())
	require.Equal(t, Zero, Union(Zero, Zero))
	require.Equal(t, Identity, Union(c22, Identity))

	u, ok := Union(c22, Zero, c23).(Constraint)
	require.True(t, ok)
	require.True(t, u.Pred.Equal(fx.pkt.DstPort.Value(22).Or(fx.pkt.DstPort.Value(23))))

	notC22 := Constrain(fx.pkt.DstPort.Value(22).Not())
	require.Equal(t, Identity, Union(c22, notC22))

	set := SetVars(fx.tag.VarSet(), fx.tag.Value(1))
	o, ok := Union(set, c22, Union(c23, set)).(Or)
	require.True(t, ok)
	require.Len(t, o.Transitions, 3)
}

func TestEraseAndSet(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	set := SetVars(fx.tag.VarSet(), fx.tag.Value(2))
	in := fx.pkt.DstPort.Value(80).And(fx.tag.Value(1))

	out := set.Forward(in)
	require.True(t, out.Equal(fx.pkt.DstPort.Value(80).And(fx.tag.Value(2))))

	// packets with any tag could have produced out
	require.True(t, set.Backward(out).Equal(fx.pkt.DstPort.Value(80)))
	// nothing with tag 3 after the transition
	require.True(t, set.Backward(fx.tag.Value(3)).IsZero())

	remove := RemoveVars(fx.tag.VarSet(), fx.f)
	require.True(t, remove.Forward(in).Equal(fx.pkt.DstPort.Value(80)))
}

func TestForwardBackwardConsistency(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	p := fx.pkt
	guard := p.IPProtocol.Value(6)
	nat := SetVars(p.SrcIP.VarSet(), p.SrcIP.Value(0x01010101))
	transitions := []Transition{
		Identity,
		Constrain(p.DstPort.Range(1, 1023)),
		nat,
		Compose(Constrain(p.DstPort.Value(443)), nat, SetVars(fx.tag.VarSet(), fx.tag.Value(3))),
		Union(Constrain(p.DstPort.Value(22)), nat),
		Branch(guard, nat, Constrain(p.DstPort.Value(53))),
	}
	inputs := []bdd.BDD{
		fx.f.One(),
		p.DstPort.Value(443).And(p.IPProtocol.Value(6)),
		p.SrcIP.Value(0x0a000001).And(p.DstPort.Value(53)),
	}
	for _, tr := range transitions {
		for _, s := range inputs {
			fwd := tr.Forward(s)
			// every packet of s that gets through maps back to itself
			domain := tr.Backward(fx.f.One())
			require.True(t, s.And(domain).Subset(tr.Backward(fwd)), tr.String())
		}
	}
}

func TestBranch(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	p := fx.pkt
	guard := p.DstIP.Value(0x0a000001)
	nat := SetVars(p.DstIP.VarSet(), p.DstIP.Value(0xc0a80001))
	br := Branch(guard, nat, Identity)

	matched := p.DstIP.Value(0x0a000001).And(p.DstPort.Value(80))
	require.True(t, br.Forward(matched).Equal(p.DstIP.Value(0xc0a80001).And(p.DstPort.Value(80))))

	other := p.DstIP.Value(0x0a000002)
	require.True(t, br.Forward(other).Equal(other))
	require.True(t, IsSelfLoopSafe(Constrain(guard)))
	require.False(t, IsSelfLoopSafe(nat))
}
