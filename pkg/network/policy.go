/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

// PolicyActionKind is what a packet policy does with a packet.
type PolicyActionKind int

const (
	// PolicyDrop drops the packet.
	PolicyDrop PolicyActionKind = iota
	// PolicyFibLookup routes the packet with the table of a VRF.
	PolicyFibLookup
)

// PolicyAction is the outcome of a packet policy.
type PolicyAction struct {
	Kind PolicyActionKind
	// VRF is the table used by PolicyFibLookup; empty means the VRF of the ingress interface.
	VRF string
}

// Key names the action in graph states.
func (a PolicyAction) Key() string {
	switch a.Kind {
	case PolicyDrop:
		return "drop"
	default:
		if a.VRF == "" {
			return "fib"
		}
		return "fib:" + a.VRF
	}
}

// Statement is either an If or a Return.
type Statement interface {
	isStatement()
}

// If evaluates Then for packets matching Match. Packets falling off the end of Then
// continue with the statement after the If.
type If struct {
	Match HeaderSpace
	Then  []Statement
}

// Return ends evaluation with Action.
type Return struct {
	Action PolicyAction
}

func (If) isStatement()     {}
func (Return) isStatement() {}

// PacketPolicy is an ordered policy that replaces the VRF lookup for packets received
// on the interfaces using it.
type PacketPolicy struct {
	Name       string
	Statements []Statement
	// Default applies to packets reaching the end of Statements.
	Default PolicyAction
}
