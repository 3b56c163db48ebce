/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import "cmp"

type Pair[T any] struct {
	First  T
	Second T
}

// ComparePairs orders pairs by First, then by Second.
func ComparePairs[T cmp.Ordered](a, b Pair[T]) int {
	if c := cmp.Compare(a.First, b.First); c != 0 {
		return c
	}
	return cmp.Compare(a.Second, b.Second)
}
