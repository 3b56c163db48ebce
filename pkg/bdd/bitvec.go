/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bdd

import (
	"fmt"
	"slices"
)

// BitVec is an unsigned integer encoded by consecutive variables, most significant bit first.
type BitVec struct {
	f    *Factory
	name string
	vars []int
}

// NewBitVec allocates width fresh variables of f for a named integer field.
func NewBitVec(f *Factory, name string, width int) (BitVec, error) {
	if width <= 0 || width > 64 {
		return BitVec{}, fmt.Errorf("invalid width %d for field %s", width, name)
	}
	vars, err := f.Allocate(width)
	if err != nil {
		return BitVec{}, fmt.Errorf("field %s: %w", name, err)
	}
	return BitVec{f: f, name: name, vars: vars}, nil
}

func (v BitVec) Name() string {
	return v.name
}

func (v BitVec) Width() int {
	return len(v.vars)
}

// Max is the largest value the field can hold.
func (v BitVec) Max() uint64 {
	if v.Width() == 64 {
		return ^uint64(0)
	}
	return 1<<v.Width() - 1
}

// Vars returns the variable indices of the field, most significant first.
func (v BitVec) Vars() []int {
	return slices.Clone(v.vars)
}

// VarSet returns the field's variables as a quantification set.
func (v BitVec) VarSet() VarSet {
	return v.f.NewVarSet(v.vars...)
}

// bit returns the variable encoding bit position pos, 0 being the least significant.
func (v BitVec) bit(pos int) int {
	return v.vars[len(v.vars)-1-pos]
}

func (v BitVec) literal(pos int, set bool) BDD {
	if set {
		return v.f.Var(v.bit(pos))
	}
	return v.f.NVar(v.bit(pos))
}

// Value is the set where the field equals x.
func (v BitVec) Value(x uint64) BDD {
	res := v.f.One()
	for pos := 0; pos < v.Width(); pos++ {
		res = res.And(v.literal(pos, x&(1<<pos) != 0))
	}
	return res
}

// Leq is the set where the field is at most x.
func (v BitVec) Leq(x uint64) BDD {
	res := v.f.One()
	for pos := 0; pos < v.Width(); pos++ {
		notSet := v.literal(pos, false)
		if x&(1<<pos) != 0 {
			res = notSet.Or(res)
		} else {
			res = notSet.And(res)
		}
	}
	return res
}

// Geq is the set where the field is at least x.
func (v BitVec) Geq(x uint64) BDD {
	res := v.f.One()
	for pos := 0; pos < v.Width(); pos++ {
		set := v.literal(pos, true)
		if x&(1<<pos) != 0 {
			res = set.And(res)
		} else {
			res = set.Or(res)
		}
	}
	return res
}

// Range is the set where lo <= field <= hi.
func (v BitVec) Range(lo, hi uint64) BDD {
	if lo > hi {
		return v.f.Zero()
	}
	return v.Geq(lo).And(v.Leq(hi))
}

// Prefix is the set where the length most significant bits of the field match those of x.
func (v BitVec) Prefix(x uint64, length int) BDD {
	res := v.f.One()
	for i := 0; i < length && i < v.Width(); i++ {
		pos := v.Width() - 1 - i
		res = res.And(v.literal(pos, x&(1<<pos) != 0))
	}
	return res
}

// Decode reads the field's value from a full assignment, indexed by variable.
func (v BitVec) Decode(assignment []bool) uint64 {
	var x uint64
	for _, variable := range v.vars {
		x <<= 1
		if assignment[variable] {
			x |= 1
		}
	}
	return x
}

// BitsFor returns the number of bits needed to encode n distinct values.
func BitsFor(n int) int {
	bits := 1
	for 1<<bits < n {
		bits++
	}
	return bits
}
