/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package state

import (
	"fmt"
	"strings"
)

// Disposition is the final fate of a packet.
type Disposition int

const (
	Accepted Disposition = iota
	DeniedIn
	DeniedOut
	NoRoute
	NullRouted
	DeliveredToSubnet
	ExitsNetwork
	InsufficientInfo
	NeighborUnreachable
	Loop
)

var dispositionNames = [...]string{
	Accepted:            "accepted",
	DeniedIn:            "denied-in",
	DeniedOut:           "denied-out",
	NoRoute:             "no-route",
	NullRouted:          "null-routed",
	DeliveredToSubnet:   "delivered-to-subnet",
	ExitsNetwork:        "exits-network",
	InsufficientInfo:    "insufficient-info",
	NeighborUnreachable: "neighbor-unreachable",
	Loop:                "loop",
}

func (d Disposition) String() string {
	if d < 0 || int(d) >= len(dispositionNames) {
		return fmt.Sprintf("Disposition(%d)", int(d))
	}
	return dispositionNames[d]
}

// ParseDisposition is the inverse of Disposition.String.
func ParseDisposition(s string) (Disposition, error) {
	for i, name := range dispositionNames {
		if strings.EqualFold(name, s) {
			return Disposition(i), nil
		}
	}
	return 0, fmt.Errorf("unknown disposition %q", s)
}

// AllDispositions lists every disposition, Loop included.
func AllDispositions() []Disposition {
	res := make([]Disposition, len(dispositionNames))
	for i := range res {
		res[i] = Disposition(i)
	}
	return res
}

// SuccessDispositions are the dispositions of packets that leave the network as intended.
func SuccessDispositions() []Disposition {
	return []Disposition{Accepted, DeliveredToSubnet, ExitsNetwork}
}

// FailureDispositions are the complement of SuccessDispositions.
func FailureDispositions() []Disposition {
	return []Disposition{DeniedIn, DeniedOut, NoRoute, NullRouted, InsufficientInfo, NeighborUnreachable, Loop}
}

// IsSuccess tells whether d is one of SuccessDispositions.
func (d Disposition) IsSuccess() bool {
	return d == Accepted || d == DeliveredToSubnet || d == ExitsNetwork
}

var dispositionStates = map[Disposition]Kind{
	Accepted:            KindAccept,
	DeniedIn:            KindDropAclIn,
	DeniedOut:           KindDropAclOut,
	NoRoute:             KindDropNoRoute,
	NullRouted:          KindDropNullRoute,
	DeliveredToSubnet:   KindDeliveredToSubnet,
	ExitsNetwork:        KindExitsNetwork,
	InsufficientInfo:    KindInsufficientInfo,
	NeighborUnreachable: KindNeighborUnreachable,
}

// DispositionState returns the global state of a disposition. Loop has none: loops
// are found by the loop detector.
func DispositionState(d Disposition) (Expr, bool) {
	k, ok := dispositionStates[d]
	return Expr{Kind: k}, ok
}

// nodeDispositions maps each device terminal state to its global disposition state.
var nodeDispositions = map[Kind]Kind{
	KindNodeAccept:                       KindAccept,
	KindNodeDropAclIn:                    KindDropAclIn,
	KindNodeDropAclOut:                   KindDropAclOut,
	KindNodeDropNoRoute:                  KindDropNoRoute,
	KindNodeDropNullRoute:                KindDropNullRoute,
	KindNodeInterfaceDeliveredToSubnet:   KindDeliveredToSubnet,
	KindNodeInterfaceExitsNetwork:        KindExitsNetwork,
	KindNodeInterfaceInsufficientInfo:    KindInsufficientInfo,
	KindNodeInterfaceNeighborUnreachable: KindNeighborUnreachable,
}

// GlobalDisposition returns the global disposition state a device terminal state feeds.
func (e Expr) GlobalDisposition() (Expr, bool) {
	k, ok := nodeDispositions[e.Kind]
	return Expr{Kind: k}, ok
}

// DispositionOf returns the disposition a global or device terminal state stands for.
func (e Expr) DispositionOf() (Disposition, bool) {
	k := e.Kind
	if global, ok := nodeDispositions[k]; ok {
		k = global
	}
	for d, dk := range dispositionStates {
		if dk == k {
			return d, true
		}
	}
	return 0, false
}
