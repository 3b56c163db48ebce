/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transition defines the edge labels of the reachability graph: relations
// over packet sets that can be applied forward (from the source state of the edge to
// its target) and backward.
package transition

import (
	"fmt"
	"strings"

	"github.com/np-guard/reachability-analyzer/pkg/bdd"
)

// Transition is a closed set of variants: Identity, Zero, Constraint, EraseAndSet,
// Composite and Or. Use the constructors of this package rather than the struct
// literals, they keep transitions in a simplified form.
type Transition interface {
	// Forward returns the packets entering the target state given packets s at the source state.
	Forward(s bdd.BDD) bdd.BDD
	// Backward returns the packets at the source state that produce some packet of s at the target.
	Backward(s bdd.BDD) bdd.BDD
	String() string

	isTransition()
}

type identity struct{}

type zero struct{}

// Identity lets every packet through unchanged.
var Identity Transition = identity{}

// Zero lets no packet through.
var Zero Transition = zero{}

func (identity) Forward(s bdd.BDD) bdd.BDD  { return s }
func (identity) Backward(s bdd.BDD) bdd.BDD { return s }
func (identity) String() string             { return "identity" }
func (identity) isTransition()              {}

func (zero) Forward(s bdd.BDD) bdd.BDD  { return s.Factory().Zero() }
func (zero) Backward(s bdd.BDD) bdd.BDD { return s.Factory().Zero() }
func (zero) String() string             { return "zero" }
func (zero) isTransition()              {}

// Constraint keeps the packets of Pred.
type Constraint struct {
	Pred bdd.BDD
}

func (c Constraint) Forward(s bdd.BDD) bdd.BDD  { return s.And(c.Pred) }
func (c Constraint) Backward(s bdd.BDD) bdd.BDD { return s.And(c.Pred) }
func (c Constraint) String() string             { return "constraint" }
func (Constraint) isTransition()                {}

// EraseAndSet forgets the values of Vars and then constrains them to Set. Set must
// only depend on Vars.
type EraseAndSet struct {
	Vars bdd.VarSet
	Set  bdd.BDD
}

func (e EraseAndSet) Forward(s bdd.BDD) bdd.BDD {
	return s.Exist(e.Vars).And(e.Set)
}

func (e EraseAndSet) Backward(s bdd.BDD) bdd.BDD {
	return s.And(e.Set).Exist(e.Vars)
}

func (e EraseAndSet) String() string { return fmt.Sprintf("eraseAndSet(%v)", e.Vars.Vars()) }
func (EraseAndSet) isTransition()    {}

// Composite applies its transitions in order.
type Composite struct {
	Transitions []Transition
}

func (c Composite) Forward(s bdd.BDD) bdd.BDD {
	for _, t := range c.Transitions {
		if s.IsZero() {
			return s
		}
		s = t.Forward(s)
	}
	return s
}

func (c Composite) Backward(s bdd.BDD) bdd.BDD {
	for i := len(c.Transitions) - 1; i >= 0; i-- {
		if s.IsZero() {
			return s
		}
		s = c.Transitions[i].Backward(s)
	}
	return s
}

func (c Composite) String() string {
	return "compose(" + join(c.Transitions) + ")"
}

func (Composite) isTransition() {}

// Or is the union of alternative transitions.
type Or struct {
	Transitions []Transition
}

func (o Or) Forward(s bdd.BDD) bdd.BDD {
	res := s.Factory().Zero()
	for _, t := range o.Transitions {
		res = res.Or(t.Forward(s))
	}
	return res
}

func (o Or) Backward(s bdd.BDD) bdd.BDD {
	res := s.Factory().Zero()
	for _, t := range o.Transitions {
		res = res.Or(t.Backward(s))
	}
	return res
}

func (o Or) String() string {
	return "or(" + join(o.Transitions) + ")"
}

func (Or) isTransition() {}

func join(ts []Transition) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
