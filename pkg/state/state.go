/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package state defines the nodes of the reachability graph: each Expr names one
// stage of packet processing in one scope (device, VRF, interface or link).
package state

import (
	"fmt"
)

// Kind is the variant tag of an Expr.
type Kind int

const (
	KindInvalid Kind = iota

	KindOriginateVrf
	KindOriginateInterface
	KindOriginateInterfaceLink

	KindPreInInterface
	KindPostInInterface
	KindPacketPolicyStatement
	KindPacketPolicyAction
	KindPostInVrf
	KindPreOutVrf
	KindInterfaceAccept
	KindVrfAccept
	KindPreOutEdge
	KindPreOutEdgePostNat
	KindPreOutInterfaceDeliveredToSubnet
	KindPreOutInterfaceExitsNetwork
	KindPreOutInterfaceInsufficientInfo
	KindPreOutInterfaceNeighborUnreachable
	KindSetupSessionDeliveredToSubnet
	KindSetupSessionExitsNetwork

	KindPostInVrfSession
	KindPreOutVrfSession
	KindPreOutEdgeSession

	KindNodeAccept
	KindNodeDropAclIn
	KindNodeDropAclOut
	KindNodeDropNoRoute
	KindNodeDropNullRoute
	KindNodeInterfaceDeliveredToSubnet
	KindNodeInterfaceExitsNetwork
	KindNodeInterfaceInsufficientInfo
	KindNodeInterfaceNeighborUnreachable

	KindAccept
	KindDropAclIn
	KindDropAclOut
	KindDropNoRoute
	KindDropNullRoute
	KindDeliveredToSubnet
	KindExitsNetwork
	KindInsufficientInfo
	KindNeighborUnreachable

	KindQuery
)

var kindNames = map[Kind]string{
	KindOriginateVrf:                       "OriginateVrf",
	KindOriginateInterface:                 "OriginateInterface",
	KindOriginateInterfaceLink:             "OriginateInterfaceLink",
	KindPreInInterface:                     "PreInInterface",
	KindPostInInterface:                    "PostInInterface",
	KindPacketPolicyStatement:              "PacketPolicyStatement",
	KindPacketPolicyAction:                 "PacketPolicyAction",
	KindPostInVrf:                          "PostInVrf",
	KindPreOutVrf:                          "PreOutVrf",
	KindInterfaceAccept:                    "InterfaceAccept",
	KindVrfAccept:                          "VrfAccept",
	KindPreOutEdge:                         "PreOutEdge",
	KindPreOutEdgePostNat:                  "PreOutEdgePostNat",
	KindPreOutInterfaceDeliveredToSubnet:   "PreOutInterfaceDeliveredToSubnet",
	KindPreOutInterfaceExitsNetwork:        "PreOutInterfaceExitsNetwork",
	KindPreOutInterfaceInsufficientInfo:    "PreOutInterfaceInsufficientInfo",
	KindPreOutInterfaceNeighborUnreachable: "PreOutInterfaceNeighborUnreachable",
	KindSetupSessionDeliveredToSubnet:      "SetupSessionDeliveredToSubnet",
	KindSetupSessionExitsNetwork:           "SetupSessionExitsNetwork",
	KindPostInVrfSession:                   "PostInVrfSession",
	KindPreOutVrfSession:                   "PreOutVrfSession",
	KindPreOutEdgeSession:                  "PreOutEdgeSession",
	KindNodeAccept:                         "NodeAccept",
	KindNodeDropAclIn:                      "NodeDropAclIn",
	KindNodeDropAclOut:                     "NodeDropAclOut",
	KindNodeDropNoRoute:                    "NodeDropNoRoute",
	KindNodeDropNullRoute:                  "NodeDropNullRoute",
	KindNodeInterfaceDeliveredToSubnet:     "NodeInterfaceDeliveredToSubnet",
	KindNodeInterfaceExitsNetwork:          "NodeInterfaceExitsNetwork",
	KindNodeInterfaceInsufficientInfo:      "NodeInterfaceInsufficientInfo",
	KindNodeInterfaceNeighborUnreachable:   "NodeInterfaceNeighborUnreachable",
	KindAccept:                             "Accept",
	KindDropAclIn:                          "DropAclIn",
	KindDropAclOut:                         "DropAclOut",
	KindDropNoRoute:                        "DropNoRoute",
	KindDropNullRoute:                      "DropNullRoute",
	KindDeliveredToSubnet:                  "DeliveredToSubnet",
	KindExitsNetwork:                       "ExitsNetwork",
	KindInsufficientInfo:                   "InsufficientInfo",
	KindNeighborUnreachable:                "NeighborUnreachable",
	KindQuery:                              "Query",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Expr is a graph node. Two Exprs denote the same stage iff they are equal, so Expr
// is used directly as a map key. Fields not relevant to a Kind are left empty.
type Expr struct {
	Kind   Kind
	Node   string
	VRF    string
	Iface  string
	Node2  string
	Iface2 string
	Policy string
	Action string
}

func (e Expr) String() string {
	switch e.Kind {
	case KindOriginateVrf, KindPostInVrf, KindPreOutVrf, KindVrfAccept, KindPostInVrfSession, KindPreOutVrfSession:
		return fmt.Sprintf("%s(%s, %s)", e.Kind, e.Node, e.VRF)
	case KindOriginateInterface, KindOriginateInterfaceLink, KindPreInInterface, KindPostInInterface,
		KindInterfaceAccept, KindPreOutInterfaceDeliveredToSubnet, KindPreOutInterfaceExitsNetwork,
		KindPreOutInterfaceInsufficientInfo, KindPreOutInterfaceNeighborUnreachable,
		KindSetupSessionDeliveredToSubnet, KindSetupSessionExitsNetwork,
		KindNodeInterfaceDeliveredToSubnet, KindNodeInterfaceExitsNetwork,
		KindNodeInterfaceInsufficientInfo, KindNodeInterfaceNeighborUnreachable:
		return fmt.Sprintf("%s(%s, %s)", e.Kind, e.Node, e.Iface)
	case KindPreOutEdge, KindPreOutEdgePostNat, KindPreOutEdgeSession:
		return fmt.Sprintf("%s(%s, %s, %s, %s)", e.Kind, e.Node, e.Iface, e.Node2, e.Iface2)
	case KindPacketPolicyStatement:
		return fmt.Sprintf("%s(%s, %s, %s)", e.Kind, e.Node, e.VRF, e.Policy)
	case KindPacketPolicyAction:
		return fmt.Sprintf("%s(%s, %s, %s, %s)", e.Kind, e.Node, e.VRF, e.Policy, e.Action)
	case KindNodeAccept, KindNodeDropAclIn, KindNodeDropAclOut, KindNodeDropNoRoute, KindNodeDropNullRoute:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Node)
	default:
		return e.Kind.String()
	}
}

// Less orders Exprs by kind, then by scope identifiers.
func (e Expr) Less(o Expr) bool {
	if e.Kind != o.Kind {
		return e.Kind < o.Kind
	}
	a := [...]string{e.Node, e.VRF, e.Iface, e.Node2, e.Iface2, e.Policy, e.Action}
	b := [...]string{o.Node, o.VRF, o.Iface, o.Node2, o.Iface2, o.Policy, o.Action}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Compare is Less as a three-way comparison, for slices.SortFunc.
func Compare(a, b Expr) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// IsOrigination tells whether e is a place where flows enter the graph.
func (e Expr) IsOrigination() bool {
	switch e.Kind {
	case KindOriginateVrf, KindOriginateInterface, KindOriginateInterfaceLink:
		return true
	default:
		return false
	}
}

// IsNodeDisposition tells whether e is a terminal stage of a single device.
func (e Expr) IsNodeDisposition() bool {
	_, ok := nodeDispositions[e.Kind]
	return ok
}

// IsDisposition tells whether e is a global disposition state.
func (e Expr) IsDisposition() bool {
	for _, k := range nodeDispositions {
		if k == e.Kind {
			return true
		}
	}
	return false
}
