/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bdd

import (
	"fmt"
)

// FiniteDomain encodes a finite set of values into a bit-vector. Several domains may
// share the same bit-vector when their values never coexist, e.g. the source
// interface of different devices.
type FiniteDomain[T comparable] struct {
	vec    BitVec
	values []T
	index  map[T]uint64
	valid  BDD
}

// NewFiniteDomain assigns values the codes 0..len(values)-1 in order.
func NewFiniteDomain[T comparable](vec BitVec, values []T) (*FiniteDomain[T], error) {
	if uint64(len(values)) > vec.Max()+1 {
		return nil, fmt.Errorf("%d values do not fit in the %d bits of %s", len(values), vec.Width(), vec.Name())
	}
	d := &FiniteDomain[T]{vec: vec, index: make(map[T]uint64, len(values))}
	valid := vec.f.Zero()
	for i, v := range values {
		if _, dup := d.index[v]; dup {
			return nil, fmt.Errorf("duplicate value %v in domain %s", v, vec.Name())
		}
		d.index[v] = uint64(i)
		d.values = append(d.values, v)
		valid = valid.Or(vec.Value(uint64(i)))
	}
	d.valid = valid
	return d, nil
}

// Value is the set where the domain holds v.
func (d *FiniteDomain[T]) Value(v T) (BDD, bool) {
	i, ok := d.index[v]
	if !ok {
		return d.vec.f.Zero(), false
	}
	return d.vec.Value(i), true
}

// Contains tells whether v is a value of the domain.
func (d *FiniteDomain[T]) Contains(v T) bool {
	_, ok := d.index[v]
	return ok
}

// Values returns the domain values in code order.
func (d *FiniteDomain[T]) Values() []T {
	return append([]T(nil), d.values...)
}

// IsValid is the set where the domain holds one of its values.
func (d *FiniteDomain[T]) IsValid() BDD {
	return d.valid
}

// VarSet returns the variables of the underlying bit-vector.
func (d *FiniteDomain[T]) VarSet() VarSet {
	return d.vec.VarSet()
}

// ValuesOf returns the domain values that b allows.
func (d *FiniteDomain[T]) ValuesOf(b BDD) []T {
	var res []T
	for _, v := range d.values {
		if b.Intersects(d.vec.Value(d.index[v])) {
			res = append(res, v)
		}
	}
	return res
}
