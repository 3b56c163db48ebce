/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subcmds

import (
	"fmt"
	"slices"
	"strings"

	"github.com/np-guard/models/pkg/netp"
	"github.com/spf13/pflag"

	"github.com/np-guard/reachability-analyzer/pkg/state"
)

var (
	_ pflag.Value = (*protocolSetting)(nil)
	_ pflag.Value = (*dispositionsSetting)(nil)
	_ pflag.Value = (*formatSetting)(nil)
)

type protocolSetting netp.ProtocolString

func (ps *protocolSetting) String() string {
	return string(*ps)
}

func (ps *protocolSetting) Set(v string) error {
	allowedProtocols := []string{string(netp.ProtocolStringICMP), string(netp.ProtocolStringTCP), string(netp.ProtocolStringUDP)}
	v = strings.ToUpper(v)
	if slices.Contains(allowedProtocols, v) {
		*ps = protocolSetting(v)
		return nil
	}
	return fmt.Errorf("%s", mustBeOneOf(allowedProtocols))
}

func (ps *protocolSetting) Type() string {
	return stringType
}

// dispositionsSetting accumulates dispositions given as a comma separated list or by
// repeating the flag.
type dispositionsSetting []state.Disposition

func (ds *dispositionsSetting) String() string {
	names := make([]string, len(*ds))
	for i, d := range *ds {
		names[i] = d.String()
	}
	return "[" + strings.Join(names, ",") + "]"
}

func (ds *dispositionsSetting) Set(v string) error {
	for _, name := range strings.Split(v, ",") {
		d, err := state.ParseDisposition(strings.TrimSpace(name))
		if err != nil {
			return fmt.Errorf("%w; %s", err, mustBeOneOf(allDispositionNames()))
		}
		*ds = append(*ds, d)
	}
	return nil
}

func (ds *dispositionsSetting) Type() string {
	return "stringSlice"
}

func allDispositionNames() []string {
	all := state.AllDispositions()
	res := make([]string, len(all))
	for i, d := range all {
		res[i] = d.String()
	}
	return res
}
