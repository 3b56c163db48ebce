/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/np-guard/models/pkg/ipblock"
	"github.com/np-guard/models/pkg/netp"
	"gopkg.in/yaml.v3"
)

// The facts document: a YAML rendition of Network, with CIDR lists and port ranges as strings.

type networkDoc struct {
	Devices []deviceDoc `yaml:"devices"`
}

type deviceDoc struct {
	Name           string      `yaml:"name"`
	Interfaces     []ifaceDoc  `yaml:"interfaces"`
	VRFs           []vrfDoc    `yaml:"vrfs"`
	Filters        []filterDoc `yaml:"filters"`
	PacketPolicies []policyDoc `yaml:"packet-policies"`
}

type ifaceDoc struct {
	Name                             string             `yaml:"name"`
	VRF                              string             `yaml:"vrf"`
	Shutdown                         bool               `yaml:"shutdown"`
	IncomingFilter                   string             `yaml:"incoming-filter"`
	PostTransformationIncomingFilter string             `yaml:"post-transformation-incoming-filter"`
	PreTransformationOutgoingFilter  string             `yaml:"pre-transformation-outgoing-filter"`
	OutgoingFilter                   string             `yaml:"outgoing-filter"`
	IncomingTransformation           *transformationDoc `yaml:"incoming-transformation"`
	OutgoingTransformation           *transformationDoc `yaml:"outgoing-transformation"`
	PacketPolicy                     string             `yaml:"packet-policy"`
	FirewallSession                  *sessionDoc        `yaml:"firewall-session"`
}

type sessionDoc struct {
	FibLookup         bool     `yaml:"fib-lookup"`
	SessionInterfaces []string `yaml:"session-interfaces"`
}

type transformationDoc struct {
	Guard   *headerSpaceDoc    `yaml:"guard"`
	Steps   []stepDoc          `yaml:"steps"`
	AndThen *transformationDoc `yaml:"and-then"`
	OrElse  *transformationDoc `yaml:"or-else"`
}

type stepDoc struct {
	Field string   `yaml:"field"`
	Pool  []string `yaml:"pool"`
	Ports string   `yaml:"ports"`
}

type headerSpaceDoc struct {
	SrcIPs                []string `yaml:"src-ips"`
	DstIPs                []string `yaml:"dst-ips"`
	NotSrcIPs             []string `yaml:"not-src-ips"`
	NotDstIPs             []string `yaml:"not-dst-ips"`
	Protocols             []string `yaml:"protocols"`
	SrcPorts              []string `yaml:"src-ports"`
	DstPorts              []string `yaml:"dst-ports"`
	SrcInterfaces         []string `yaml:"src-interfaces"`
	OriginatingFromDevice bool     `yaml:"originating-from-device"`
}

type filterDoc struct {
	Name  string    `yaml:"name"`
	Lines []lineDoc `yaml:"lines"`
}

type lineDoc struct {
	Name   string         `yaml:"name"`
	Action string         `yaml:"action"`
	Match  headerSpaceDoc `yaml:"match"`
}

type policyDoc struct {
	Name       string         `yaml:"name"`
	Statements []statementDoc `yaml:"statements"`
	Default    actionDoc      `yaml:"default"`
}

type statementDoc struct {
	If     *ifDoc     `yaml:"if"`
	Return *actionDoc `yaml:"return"`
}

type ifDoc struct {
	Match headerSpaceDoc `yaml:"match"`
	Then  []statementDoc `yaml:"then"`
}

type actionDoc struct {
	Action string `yaml:"action"`
	VRF    string `yaml:"vrf"`
}

type vrfDoc struct {
	Name                string                   `yaml:"name"`
	OriginatingSessions bool                     `yaml:"originating-sessions"`
	Routes              []routeDoc               `yaml:"routes"`
	Routable            []string                 `yaml:"routable"`
	NullRouted          []string                 `yaml:"null-routed"`
	NextVRF             map[string][]string      `yaml:"next-vrf"`
	Interfaces          map[string]forwardingDoc `yaml:"interfaces"`
	ArpTrue             []arpTrueDoc             `yaml:"arp-true"`
}

type routeDoc struct {
	Name              string `yaml:"name"`
	Destination       string `yaml:"destination"`
	Priority          int    `yaml:"priority"`
	Action            string `yaml:"action"`
	Interface         string `yaml:"interface"`
	Neighbor          string `yaml:"neighbor"`
	NeighborInterface string `yaml:"neighbor-interface"`
	Connected         bool   `yaml:"connected"`
	NextVRF           string `yaml:"next-vrf"`
}

type forwardingDoc struct {
	Accepted            []string `yaml:"accepted"`
	DeliveredToSubnet   []string `yaml:"delivered-to-subnet"`
	ExitsNetwork        []string `yaml:"exits-network"`
	NeighborUnreachable []string `yaml:"neighbor-unreachable"`
	InsufficientInfo    []string `yaml:"insufficient-info"`
}

type arpTrueDoc struct {
	Interface         string   `yaml:"interface"`
	Neighbor          string   `yaml:"neighbor"`
	NeighborInterface string   `yaml:"neighbor-interface"`
	Dst               []string `yaml:"dst"`
}

// Load reads a facts document from a file.
func Load(path string) (*Network, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network facts: %w", err)
	}
	res, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse converts a facts document into a Network. Routes are compiled into forwarding
// facts and the result is validated.
func Parse(content []byte) (*Network, error) {
	var doc networkDoc
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parsing network facts: %w", err)
	}
	res := &Network{Devices: map[string]*Device{}}
	for i := range doc.Devices {
		d, err := doc.Devices[i].toDevice()
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", doc.Devices[i].Name, err)
		}
		if _, ok := res.Devices[d.Name]; ok {
			return nil, fmt.Errorf("duplicate device %s", d.Name)
		}
		res.Devices[d.Name] = d
	}
	for _, name := range res.DeviceNames() {
		d := res.Devices[name]
		for _, vrfName := range d.VRFNames() {
			if err := RoutesToFacts(d, d.VRFs[vrfName]); err != nil {
				return nil, err
			}
		}
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (dd *deviceDoc) toDevice() (*Device, error) {
	if dd.Name == "" {
		return nil, errors.New("missing device name")
	}
	d := &Device{
		Name:           dd.Name,
		Interfaces:     map[string]*Interface{},
		VRFs:           map[string]*VRF{},
		Filters:        map[string]*Filter{},
		PacketPolicies: map[string]*PacketPolicy{},
	}
	for i := range dd.Interfaces {
		iface, err := dd.Interfaces[i].toInterface()
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", dd.Interfaces[i].Name, err)
		}
		d.Interfaces[iface.Name] = iface
	}
	for i := range dd.Filters {
		f, err := dd.Filters[i].toFilter()
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", dd.Filters[i].Name, err)
		}
		d.Filters[f.Name] = f
	}
	for i := range dd.PacketPolicies {
		p, err := dd.PacketPolicies[i].toPolicy()
		if err != nil {
			return nil, fmt.Errorf("packet policy %s: %w", dd.PacketPolicies[i].Name, err)
		}
		d.PacketPolicies[p.Name] = p
	}
	for i := range dd.VRFs {
		v, err := dd.VRFs[i].toVRF()
		if err != nil {
			return nil, fmt.Errorf("vrf %s: %w", dd.VRFs[i].Name, err)
		}
		for j := range v.ArpTrue {
			v.ArpTrue[j].Link.Node1 = d.Name
		}
		d.VRFs[v.Name] = v
	}
	// interfaces without a VRF belong to the default one, which always exists when used
	for _, iface := range d.Interfaces {
		if _, ok := d.VRFs[iface.VRF]; !ok && iface.VRF == DefaultVRF {
			d.VRFs[DefaultVRF] = &VRF{Name: DefaultVRF}
		}
	}
	return d, nil
}

func (id *ifaceDoc) toInterface() (*Interface, error) {
	if id.Name == "" {
		return nil, errors.New("missing interface name")
	}
	res := &Interface{
		Name:                             id.Name,
		VRF:                              id.VRF,
		Shutdown:                         id.Shutdown,
		IncomingFilter:                   id.IncomingFilter,
		PostTransformationIncomingFilter: id.PostTransformationIncomingFilter,
		PreTransformationOutgoingFilter:  id.PreTransformationOutgoingFilter,
		OutgoingFilter:                   id.OutgoingFilter,
		PacketPolicy:                     id.PacketPolicy,
	}
	if res.VRF == "" {
		res.VRF = DefaultVRF
	}
	var err error
	if res.IncomingTransformation, err = id.IncomingTransformation.toTransformation(); err != nil {
		return nil, fmt.Errorf("incoming transformation: %w", err)
	}
	if res.OutgoingTransformation, err = id.OutgoingTransformation.toTransformation(); err != nil {
		return nil, fmt.Errorf("outgoing transformation: %w", err)
	}
	if id.FirewallSession != nil {
		res.FirewallSession = &FirewallSessionInfo{
			FibLookup:         id.FirewallSession.FibLookup,
			SessionInterfaces: id.FirewallSession.SessionInterfaces,
		}
	}
	return res, nil
}

func (td *transformationDoc) toTransformation() (*Transformation, error) {
	if td == nil {
		return nil, nil
	}
	res := &Transformation{}
	if td.Guard != nil {
		guard, err := td.Guard.toHeaderSpace()
		if err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
		res.Guard = &guard
	}
	for _, sd := range td.Steps {
		field, err := ParseField(sd.Field)
		if err != nil {
			return nil, err
		}
		step := TransformationStep{Field: field}
		if field.IsIP() {
			if step.Pool, err = parseIPBlock(sd.Pool); err != nil {
				return nil, fmt.Errorf("%s pool: %w", field, err)
			}
			if step.Pool == nil || step.Pool.IsEmpty() {
				return nil, fmt.Errorf("%s step has an empty pool", field)
			}
		} else if step.Ports, err = ParsePortRange(sd.Ports); err != nil {
			return nil, fmt.Errorf("%s step: %w", field, err)
		}
		res.Steps = append(res.Steps, step)
	}
	var err error
	if res.AndThen, err = td.AndThen.toTransformation(); err != nil {
		return nil, err
	}
	if res.OrElse, err = td.OrElse.toTransformation(); err != nil {
		return nil, err
	}
	return res, nil
}

func (hd *headerSpaceDoc) toHeaderSpace() (HeaderSpace, error) {
	res := HeaderSpace{SrcInterfaces: hd.SrcInterfaces, OriginatingFromDevice: hd.OriginatingFromDevice}
	var err error
	for _, field := range []struct {
		name string
		src  []string
		dst  **ipblock.IPBlock
	}{
		{"src-ips", hd.SrcIPs, &res.SrcIPs},
		{"dst-ips", hd.DstIPs, &res.DstIPs},
		{"not-src-ips", hd.NotSrcIPs, &res.NotSrcIPs},
		{"not-dst-ips", hd.NotDstIPs, &res.NotDstIPs},
	} {
		if *field.dst, err = parseIPBlock(field.src); err != nil {
			return HeaderSpace{}, fmt.Errorf("%s: %w", field.name, err)
		}
	}
	for _, p := range hd.Protocols {
		proto := netp.ProtocolString(strings.ToUpper(p))
		switch proto {
		case netp.ProtocolStringTCP, netp.ProtocolStringUDP, netp.ProtocolStringICMP:
			res.Protocols = append(res.Protocols, proto)
		default:
			return HeaderSpace{}, fmt.Errorf("unknown protocol %q", p)
		}
	}
	if res.SrcPorts, err = parsePortRanges(hd.SrcPorts); err != nil {
		return HeaderSpace{}, err
	}
	if res.DstPorts, err = parsePortRanges(hd.DstPorts); err != nil {
		return HeaderSpace{}, err
	}
	return res, nil
}

func (fd *filterDoc) toFilter() (*Filter, error) {
	res := &Filter{Name: fd.Name}
	for i := range fd.Lines {
		ld := &fd.Lines[i]
		line := FilterLine{Name: ld.Name}
		switch strings.ToLower(ld.Action) {
		case "permit", "accept", "allow":
			line.Action = Permit
		case "deny", "drop":
			line.Action = Deny
		default:
			return nil, fmt.Errorf("line %d: unknown action %q", i, ld.Action)
		}
		if line.Name == "" {
			line.Name = fmt.Sprintf("line%d", i)
		}
		var err error
		if line.Match, err = ld.Match.toHeaderSpace(); err != nil {
			return nil, fmt.Errorf("line %s: %w", line.Name, err)
		}
		res.Lines = append(res.Lines, line)
	}
	return res, nil
}

func (pd *policyDoc) toPolicy() (*PacketPolicy, error) {
	res := &PacketPolicy{Name: pd.Name}
	var err error
	if res.Statements, err = toStatements(pd.Statements); err != nil {
		return nil, err
	}
	if res.Default, err = pd.Default.toAction(); err != nil {
		return nil, fmt.Errorf("default action: %w", err)
	}
	return res, nil
}

func toStatements(docs []statementDoc) ([]Statement, error) {
	var res []Statement
	for i := range docs {
		sd := &docs[i]
		switch {
		case sd.If != nil && sd.Return != nil:
			return nil, fmt.Errorf("statement %d has both if and return", i)
		case sd.If != nil:
			match, err := sd.If.Match.toHeaderSpace()
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}
			then, err := toStatements(sd.If.Then)
			if err != nil {
				return nil, err
			}
			res = append(res, If{Match: match, Then: then})
		case sd.Return != nil:
			action, err := sd.Return.toAction()
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}
			res = append(res, Return{Action: action})
		default:
			return nil, fmt.Errorf("statement %d is empty", i)
		}
	}
	return res, nil
}

func (ad *actionDoc) toAction() (PolicyAction, error) {
	switch strings.ToLower(ad.Action) {
	case "drop":
		return PolicyAction{Kind: PolicyDrop}, nil
	case "fib", "fib-lookup", "":
		return PolicyAction{Kind: PolicyFibLookup, VRF: ad.VRF}, nil
	default:
		return PolicyAction{}, fmt.Errorf("unknown packet policy action %q", ad.Action)
	}
}

func (vd *vrfDoc) toVRF() (*VRF, error) {
	name := vd.Name
	if name == "" {
		name = DefaultVRF
	}
	res := &VRF{
		Name:                name,
		OriginatingSessions: vd.OriginatingSessions,
		NextVRF:             map[string]*ipblock.IPBlock{},
		Interfaces:          map[string]*InterfaceForwarding{},
	}
	var err error
	for i := range vd.Routes {
		rd := &vd.Routes[i]
		if rd.Name == "" {
			rd.Name = fmt.Sprintf("route%d", i)
		}
		action, err := parseRouteAction(rd.Action)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rd.Name, err)
		}
		r, err := NewRoute(rd.Name, rd.Destination, action, rd.Priority)
		if err != nil {
			return nil, err
		}
		r.NextHop = NextHop{Interface: rd.Interface, Neighbor: rd.Neighbor, NeighborInterface: rd.NeighborInterface,
			Connected: rd.Connected}
		r.NextVRF = rd.NextVRF
		res.Routes = append(res.Routes, r)
	}
	if res.Routable, err = parseIPBlock(vd.Routable); err != nil {
		return nil, fmt.Errorf("routable: %w", err)
	}
	if res.NullRouted, err = parseIPBlock(vd.NullRouted); err != nil {
		return nil, fmt.Errorf("null-routed: %w", err)
	}
	for vrf, cidrs := range vd.NextVRF {
		if res.NextVRF[vrf], err = parseIPBlock(cidrs); err != nil {
			return nil, fmt.Errorf("next-vrf %s: %w", vrf, err)
		}
	}
	for iface := range vd.Interfaces {
		fd := vd.Interfaces[iface]
		fwd := &InterfaceForwarding{}
		for _, field := range []struct {
			name string
			src  []string
			dst  **ipblock.IPBlock
		}{
			{"accepted", fd.Accepted, &fwd.Accepted},
			{"delivered-to-subnet", fd.DeliveredToSubnet, &fwd.DeliveredToSubnet},
			{"exits-network", fd.ExitsNetwork, &fwd.ExitsNetwork},
			{"neighbor-unreachable", fd.NeighborUnreachable, &fwd.NeighborUnreachable},
			{"insufficient-info", fd.InsufficientInfo, &fwd.InsufficientInfo},
		} {
			if *field.dst, err = parseIPBlock(field.src); err != nil {
				return nil, fmt.Errorf("interface %s %s: %w", iface, field.name, err)
			}
		}
		res.Interfaces[iface] = fwd
	}
	for i := range vd.ArpTrue {
		ad := &vd.ArpTrue[i]
		dst, err := parseIPBlock(ad.Dst)
		if err != nil {
			return nil, fmt.Errorf("arp-true %s: %w", ad.Interface, err)
		}
		res.ArpTrue = append(res.ArpTrue, ArpTrueEdge{
			Link: Link{Iface1: ad.Interface, Node2: ad.Neighbor, Iface2: ad.NeighborInterface},
			Dst:  orEmpty(dst),
		})
	}
	return res, nil
}

func parseRouteAction(s string) (RouteAction, error) {
	switch strings.ToLower(s) {
	case "deliver", "":
		return Deliver, nil
	case "delegate":
		return Delegate, nil
	case "drop":
		return Drop, nil
	default:
		return 0, fmt.Errorf("unknown route action %q", s)
	}
}

// ParseHeaderSpace builds a header space from textual fields, as they appear in facts
// documents and query settings.
func ParseHeaderSpace(srcIPs, dstIPs, protocols, srcPorts, dstPorts []string) (HeaderSpace, error) {
	hd := headerSpaceDoc{SrcIPs: srcIPs, DstIPs: dstIPs, Protocols: protocols, SrcPorts: srcPorts, DstPorts: dstPorts}
	return hd.toHeaderSpace()
}

// ParseIPs unions a list of CIDRs or addresses; an empty list gives nil.
func ParseIPs(cidrs []string) (*ipblock.IPBlock, error) {
	return parseIPBlock(cidrs)
}

// parseIPBlock unions a list of CIDRs or addresses; an empty list gives nil.
func parseIPBlock(cidrs []string) (*ipblock.IPBlock, error) {
	if len(cidrs) == 0 {
		return nil, nil
	}
	res := ipblock.New()
	for _, c := range cidrs {
		b, err := ipblock.FromCidrOrAddress(strings.TrimSpace(c))
		if err != nil {
			return nil, err
		}
		res = res.Union(b)
	}
	return res, nil
}

func parsePortRanges(ranges []string) ([]PortRange, error) {
	var res []PortRange
	for _, s := range ranges {
		r, err := ParsePortRange(s)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}
