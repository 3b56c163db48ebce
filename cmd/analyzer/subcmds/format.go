/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subcmds

import (
	"fmt"
	"slices"
	"strings"

	"github.com/np-guard/reachability-analyzer/pkg/report"
)

type formatSetting string

const (
	jsonFormat formatSetting = "json"
	textFormat formatSetting = "txt"
	mdFormat   formatSetting = "md"
	dotFormat  formatSetting = "dot"
	svgFormat  formatSetting = "svg"

	stringType = "string"
)

var allFormats = []string{
	string(jsonFormat),
	string(textFormat),
	string(mdFormat),
	string(dotFormat),
	string(svgFormat),
}

var reportFormats = []formatSetting{textFormat, mdFormat, jsonFormat}

func (fs *formatSetting) String() string {
	return string(*fs)
}

func (fs *formatSetting) Set(v string) error {
	v = strings.ToLower(v)
	if slices.Contains(allFormats, v) {
		*fs = formatSetting(v)
		return nil
	}
	return fmt.Errorf("%s", mustBeOneOf(allFormats))
}

func (fs *formatSetting) Type() string {
	return stringType
}

func toStringArray(fs []formatSetting) []string {
	ret := make([]string, len(fs))
	for i := range fs {
		ret[i] = string(fs[i])
	}
	return ret
}

func (fs *formatSetting) ToReportFormat() report.OutFormat {
	switch *fs {
	case mdFormat:
		return report.MD
	case jsonFormat:
		return report.JSON
	}
	return report.Text
}

// validateFormatForMode defaults the output format to the first supported format.
func validateFormatForMode(mode string, supportedFormats []formatSetting, args *inArgs) error {
	if args.outputFormat == "" {
		args.outputFormat = supportedFormats[0]
	}
	if !slices.Contains(supportedFormats, args.outputFormat) {
		return fmt.Errorf("output format for %s %s", mode, mustBeOneOf(toStringArray(supportedFormats)))
	}
	return nil
}
