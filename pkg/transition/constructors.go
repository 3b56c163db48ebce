/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transition

import (
	"github.com/np-guard/reachability-analyzer/pkg/bdd"
)

// Constrain keeps the packets of pred.
func Constrain(pred bdd.BDD) Transition {
	switch {
	case pred.IsZero():
		return Zero
	case pred.IsOne():
		return Identity
	default:
		return Constraint{Pred: pred}
	}
}

// SetVars forgets vars and constrains them to set.
func SetVars(vars bdd.VarSet, set bdd.BDD) Transition {
	if set.IsZero() {
		return Zero
	}
	if vars.Empty() {
		return Constrain(set)
	}
	return EraseAndSet{Vars: vars, Set: set}
}

// RemoveVars forgets vars.
func RemoveVars(vars bdd.VarSet, f *bdd.Factory) Transition {
	if vars.Empty() {
		return Identity
	}
	return EraseAndSet{Vars: vars, Set: f.One()}
}

// Compose applies ts in order. Zero annihilates, Identity is the unit and adjacent
// constraints are merged.
func Compose(ts ...Transition) Transition {
	var flat []Transition
	for _, t := range ts {
		if c, ok := t.(Composite); ok {
			flat = append(flat, c.Transitions...)
		} else {
			flat = append(flat, t)
		}
	}
	var res []Transition
	for _, t := range flat {
		switch t := t.(type) {
		case zero:
			return Zero
		case identity:
			continue
		case Constraint:
			if len(res) > 0 {
				if prev, ok := res[len(res)-1].(Constraint); ok {
					merged := prev.Pred.And(t.Pred)
					if merged.IsZero() {
						return Zero
					}
					res[len(res)-1] = Constraint{Pred: merged}
					continue
				}
			}
			res = append(res, t)
		default:
			res = append(res, t)
		}
	}
	switch len(res) {
	case 0:
		return Identity
	case 1:
		return res[0]
	default:
		return Composite{Transitions: res}
	}
}

// Union is the union of ts. Zero is the unit, constraints are merged into one, and
// an Identity absorbs every constraint.
func Union(ts ...Transition) Transition {
	var flat []Transition
	for _, t := range ts {
		if o, ok := t.(Or); ok {
			flat = append(flat, o.Transitions...)
		} else {
			flat = append(flat, t)
		}
	}
	hasIdentity := false
	for _, t := range flat {
		if t == Identity {
			hasIdentity = true
		}
	}
	var res []Transition
	constraintAt := -1
	for _, t := range flat {
		switch t := t.(type) {
		case zero:
			continue
		case identity:
			if constraintAt < 0 {
				constraintAt = len(res)
				res = append(res, Identity)
			}
		case Constraint:
			if hasIdentity {
				continue
			}
			if constraintAt < 0 {
				constraintAt = len(res)
				res = append(res, t)
				continue
			}
			merged := res[constraintAt].(Constraint).Pred.Or(t.Pred)
			res[constraintAt] = Constrain(merged)
			if res[constraintAt] == Identity {
				hasIdentity = true
			}
		default:
			res = append(res, t)
		}
	}
	switch len(res) {
	case 0:
		return Zero
	case 1:
		return res[0]
	default:
		return Or{Transitions: res}
	}
}

// Branch applies then to the packets of guard and otherwise to the rest.
func Branch(guard bdd.BDD, then, otherwise Transition) Transition {
	return Union(Compose(Constrain(guard), then), Compose(Constrain(guard.Not()), otherwise))
}

// IsSelfLoopSafe tells whether a self-loop labeled t can be dropped without changing
// which packets reach the successors of its state.
func IsSelfLoopSafe(t Transition) bool {
	switch t.(type) {
	case identity, zero, Constraint:
		return true
	default:
		return false
	}
}
