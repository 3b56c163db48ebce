/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"errors"
	"fmt"

	"github.com/np-guard/reachability-analyzer/pkg/common"
)

// ReferenceError reports a name used by a device that the facts do not define.
type ReferenceError struct {
	Device string
	Msg    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("device %s: %s", e.Device, e.Msg)
}

// Validate checks that every name referenced by the facts exists. All problems are
// reported, joined into one error.
func (n *Network) Validate() error {
	var errs []error
	for _, name := range n.DeviceNames() {
		errs = append(errs, n.validateDevice(n.Devices[name])...)
	}
	return errors.Join(errs...)
}

func (n *Network) validateDevice(d *Device) []error {
	var errs []error
	report := func(format string, args ...any) {
		errs = append(errs, &ReferenceError{Device: d.Name, Msg: fmt.Sprintf(format, args...)})
	}
	for _, ifName := range d.InterfaceNames() {
		iface := d.Interfaces[ifName]
		if _, ok := d.VRFs[iface.VRF]; !ok {
			report("interface %s is in unknown vrf %s", ifName, iface.VRF)
		}
		for _, filter := range []string{iface.IncomingFilter, iface.PostTransformationIncomingFilter,
			iface.PreTransformationOutgoingFilter, iface.OutgoingFilter} {
			if _, ok := d.Filters[filter]; filter != "" && !ok {
				report("interface %s uses unknown filter %s", ifName, filter)
			}
		}
		if _, ok := d.PacketPolicies[iface.PacketPolicy]; iface.PacketPolicy != "" && !ok {
			report("interface %s uses unknown packet policy %s", ifName, iface.PacketPolicy)
		}
		if iface.FirewallSession != nil {
			for _, si := range iface.FirewallSession.SessionInterfaces {
				if _, ok := d.Interfaces[si]; !ok {
					report("interface %s has unknown session interface %s", ifName, si)
				}
			}
		}
	}
	for _, policyName := range common.SortedKeys(d.PacketPolicies) {
		for _, a := range d.PacketPolicies[policyName].actions() {
			if _, ok := d.VRFs[a.VRF]; a.Kind == PolicyFibLookup && a.VRF != "" && !ok {
				report("packet policy %s looks up unknown vrf %s", policyName, a.VRF)
			}
		}
	}
	for _, vrfName := range d.VRFNames() {
		vrf := d.VRFs[vrfName]
		for _, next := range vrf.NextVRFNames() {
			if _, ok := d.VRFs[next]; !ok {
				report("vrf %s delegates to unknown vrf %s", vrfName, next)
			}
		}
		for _, ifName := range vrf.InterfaceNames() {
			if _, ok := d.Interfaces[ifName]; !ok {
				report("vrf %s forwards to unknown interface %s", vrfName, ifName)
			}
		}
		for _, e := range vrf.ArpTrue {
			if _, ok := d.Interfaces[e.Link.Iface1]; !ok {
				report("vrf %s forwards to unknown interface %s", vrfName, e.Link.Iface1)
			}
			if _, ok := n.Interface(e.Link.Node2, e.Link.Iface2); !ok {
				report("vrf %s forwards to unknown neighbor %s[%s]", vrfName, e.Link.Node2, e.Link.Iface2)
			}
		}
	}
	return errs
}

// actions lists every action the policy can return, default included.
func (p *PacketPolicy) actions() []PolicyAction {
	res := []PolicyAction{p.Default}
	var walk func([]Statement)
	walk = func(stmts []Statement) {
		for _, s := range stmts {
			switch s := s.(type) {
			case If:
				walk(s.Then)
			case Return:
				res = append(res, s.Action)
			}
		}
	}
	walk(p.Statements)
	return res
}
