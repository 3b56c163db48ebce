/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"cmp"
	"fmt"
	"regexp"

	"github.com/np-guard/reachability-analyzer/pkg/state"
)

// LocationKind tells where at a device traffic starts.
type LocationKind int

const (
	// LocationVrf is traffic originated by the device in a VRF.
	LocationVrf LocationKind = iota
	// LocationInterface is traffic originated by the device from an interface address.
	LocationInterface
	// LocationInterfaceLink is traffic entering the device on an interface.
	LocationInterfaceLink
)

// IngressLocation is a place where flows are assumed to start.
type IngressLocation struct {
	Kind LocationKind
	Node string
	// Name is the VRF for LocationVrf and the interface otherwise.
	Name string
}

func VrfLocation(node, vrf string) IngressLocation {
	return IngressLocation{Kind: LocationVrf, Node: node, Name: vrf}
}

func InterfaceLocation(node, iface string) IngressLocation {
	return IngressLocation{Kind: LocationInterface, Node: node, Name: iface}
}

func InterfaceLinkLocation(node, iface string) IngressLocation {
	return IngressLocation{Kind: LocationInterfaceLink, Node: node, Name: iface}
}

func (l IngressLocation) String() string {
	switch l.Kind {
	case LocationVrf:
		return fmt.Sprintf("%s[vrf=%s]", l.Node, l.Name)
	case LocationInterface:
		return fmt.Sprintf("%s[iface=%s]", l.Node, l.Name)
	default:
		return fmt.Sprintf("%s[%s]", l.Node, l.Name)
	}
}

var locationRegexp = regexp.MustCompile(`^([^\[\]]+)\[(?:(vrf|iface)=)?([^\[\]]+)\]$`)

// ParseIngressLocation is the inverse of IngressLocation.String.
func ParseIngressLocation(s string) (IngressLocation, error) {
	m := locationRegexp.FindStringSubmatch(s)
	if m == nil {
		return IngressLocation{}, fmt.Errorf("invalid location %q, expected node[iface], node[iface=name] or node[vrf=name]", s)
	}
	switch m[2] {
	case "vrf":
		return VrfLocation(m[1], m[3]), nil
	case "iface":
		return InterfaceLocation(m[1], m[3]), nil
	default:
		return InterfaceLinkLocation(m[1], m[3]), nil
	}
}

// CompareLocations orders locations by node, kind and name.
func CompareLocations(a, b IngressLocation) int {
	if c := cmp.Compare(a.Node, b.Node); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// State returns the origination state of the location.
func (l IngressLocation) State() state.Expr {
	switch l.Kind {
	case LocationVrf:
		return state.OriginateVrf(l.Node, l.Name)
	case LocationInterface:
		return state.OriginateInterface(l.Node, l.Name)
	default:
		return state.OriginateInterfaceLink(l.Node, l.Name)
	}
}

// locationOf is the inverse of IngressLocation.State.
func locationOf(s state.Expr) (IngressLocation, bool) {
	switch s.Kind {
	case state.KindOriginateVrf:
		return VrfLocation(s.Node, s.VRF), true
	case state.KindOriginateInterface:
		return InterfaceLocation(s.Node, s.Iface), true
	case state.KindOriginateInterfaceLink:
		return InterfaceLinkLocation(s.Node, s.Iface), true
	default:
		return IngressLocation{}, false
	}
}
