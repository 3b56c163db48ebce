/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/np-guard/models/pkg/ipblock"
	"github.com/np-guard/models/pkg/netp"
)

// PortRange is an inclusive range of transport ports.
type PortRange struct {
	Min int64
	Max int64
}

// AllPorts is the full port range.
func AllPorts() PortRange {
	return PortRange{Min: int64(netp.MinPort), Max: int64(netp.MaxPort)}
}

func (r PortRange) String() string {
	if r.Min == r.Max {
		return strconv.FormatInt(r.Min, 10)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// ParsePortRange reads "22" or "1024-65535".
func ParsePortRange(s string) (PortRange, error) {
	lo, hi, isRange := strings.Cut(strings.TrimSpace(s), "-")
	first, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port %q: %w", s, err)
	}
	last := first
	if isRange {
		if last, err = strconv.ParseInt(strings.TrimSpace(hi), 10, 64); err != nil {
			return PortRange{}, fmt.Errorf("invalid port range %q: %w", s, err)
		}
	}
	if first < int64(netp.MinPort) || last > int64(netp.MaxPort) || first > last {
		return PortRange{}, fmt.Errorf("port range %q must be within [%d, %d]", s, netp.MinPort, netp.MaxPort)
	}
	return PortRange{Min: first, Max: last}, nil
}

// HeaderSpace matches packets. Empty fields match everything, so the zero value
// matches every packet.
type HeaderSpace struct {
	SrcIPs    *ipblock.IPBlock
	DstIPs    *ipblock.IPBlock
	NotSrcIPs *ipblock.IPBlock
	NotDstIPs *ipblock.IPBlock
	Protocols []netp.ProtocolString
	SrcPorts  []PortRange
	DstPorts  []PortRange

	// SrcInterfaces matches packets received on one of these interfaces of the device
	// evaluating the match.
	SrcInterfaces []string
	// OriginatingFromDevice matches packets the device originated itself. When both
	// source fields are set, either one suffices.
	OriginatingFromDevice bool
}

// MatchesSource tells whether the header space restricts where packets come from.
func (h *HeaderSpace) MatchesSource() bool {
	return len(h.SrcInterfaces) > 0 || h.OriginatingFromDevice
}

// LineAction is the verdict of a filter line.
type LineAction int

const (
	Deny LineAction = iota
	Permit
)

func (a LineAction) String() string {
	if a == Permit {
		return "permit"
	}
	return "deny"
}

// FilterLine applies Action to the packets of Match.
type FilterLine struct {
	Name   string
	Action LineAction
	Match  HeaderSpace
}

// Filter is an ordered list of lines; the first matching line decides and packets
// matching no line are denied.
type Filter struct {
	Name  string
	Lines []FilterLine
}
