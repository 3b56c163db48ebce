/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"cmp"
	"maps"
	"slices"
)

// //////////////////////////////////////////////////////////////////////////////////////////////

// a genericSet is a generic implementation of a set over ordered elements.
// elements are always listed in sorted order, so that everything derived from a set
// (graph states, edges, reports) is deterministic.
// //////////////////////////////////////////////////////////////////////////////////////////////

type GenericSet[T cmp.Ordered] map[T]bool

func NewGenericSet[T cmp.Ordered](items ...T) GenericSet[T] {
	res := GenericSet[T]{}
	for _, i := range items {
		res[i] = true
	}
	return res
}

func (s GenericSet[T]) Add(items ...T) {
	for _, i := range items {
		s[i] = true
	}
}

func (s GenericSet[T]) Contains(item T) bool {
	return s[item]
}

// AsList returns the elements, sorted.
func (s GenericSet[T]) AsList() []T {
	return SortedKeys(s)
}

// SortedKeys returns the keys of a map, sorted.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
