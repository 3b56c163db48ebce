/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerbosityLevels(t *testing.T) {
	tests := []struct {
		verbosity  Verbosity
		expectWarn bool
		expectDbg  bool
	}{
		{LowVerbosity, false, false},
		{MediumVerbosity, true, false},
		{HighVerbosity, true, true},
	}
	for _, tt := range tests {
		buf := &bytes.Buffer{}
		l := newLogger(buf, tt.verbosity)
		l.l.Warn("warning message")
		l.l.Debug("debug message")
		require.Equal(t, tt.expectWarn, bytes.Contains(buf.Bytes(), []byte("warning message")))
		require.Equal(t, tt.expectDbg, bytes.Contains(buf.Bytes(), []byte("debug message")))
	}
}

func TestReturnErrorf(t *testing.T) {
	err := ReturnErrorf("device %s has no VRF %q", "r1", "blue")
	require.EqualError(t, err, `device r1 has no VRF "blue"`)
}
