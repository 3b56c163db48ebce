/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package reachability

import (
	"fmt"
)

// ConfigError reports facts or query parameters that are inconsistent with each other,
// e.g. sources that no packet of the header space can come from. Err, when set, is the
// problem found while checking the facts.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// InvariantError reports an internal inconsistency of the analysis. It is a bug.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "internal error: " + e.Msg
}

func invariantErrorf(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedError reports a valid request that the analysis does not handle.
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Feature
}

func unsupportedErrorf(format string, args ...any) error {
	return &UnsupportedError{Feature: fmt.Sprintf(format, args...)}
}
