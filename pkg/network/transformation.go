/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"fmt"
	"strings"

	"github.com/np-guard/models/pkg/ipblock"
)

// Field is a rewritable header field.
type Field int

const (
	FieldSrcIP Field = iota
	FieldDstIP
	FieldSrcPort
	FieldDstPort
)

var fieldNames = [...]string{
	FieldSrcIP:   "src-ip",
	FieldDstIP:   "dst-ip",
	FieldSrcPort: "src-port",
	FieldDstPort: "dst-port",
}

func (f Field) String() string {
	return fieldNames[f]
}

// IsIP tells whether the field holds an address.
func (f Field) IsIP() bool {
	return f == FieldSrcIP || f == FieldDstIP
}

// ParseField is the inverse of Field.String.
func ParseField(s string) (Field, error) {
	for i, name := range fieldNames {
		if strings.EqualFold(name, s) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown header field %q", s)
}

// TransformationStep rewrites one field to any value of a pool.
type TransformationStep struct {
	Field Field
	// Pool is the replacement address pool, for address fields.
	Pool *ipblock.IPBlock
	// Ports is the replacement port range, for port fields.
	Ports PortRange
}

// Transformation is a guarded address and port translation. Packets matching Guard (or
// every packet when Guard is nil) get Steps applied and then AndThen; the others go
// through OrElse. A nil transformation leaves packets unchanged.
type Transformation struct {
	Guard   *HeaderSpace
	Steps   []TransformationStep
	AndThen *Transformation
	OrElse  *Transformation
}

// AllSteps returns the steps of t and of every transformation chained from it.
func (t *Transformation) AllSteps() []TransformationStep {
	if t == nil {
		return nil
	}
	res := append([]TransformationStep(nil), t.Steps...)
	res = append(res, t.AndThen.AllSteps()...)
	return append(res, t.OrElse.AllSteps()...)
}
