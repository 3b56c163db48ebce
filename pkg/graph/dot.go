/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package graph

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-graphviz"

	"github.com/np-guard/reachability-analyzer/pkg/state"
	"github.com/np-guard/reachability-analyzer/pkg/transition"
)

// ToDOT renders the graph in Graphviz DOT format. Origination states are drawn as
// inverted houses, dispositions as double octagons.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph reachability {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=10];\n\n")

	for _, s := range g.States() {
		fmt.Fprintf(&buf, "  %q [%s];\n", s.String(), strings.Join(nodeAttrs(s), ", "))
	}
	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Pre.String(), e.Post.String(), edgeLabel(e.Transition))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(s state.Expr) []string {
	switch {
	case s.IsOrigination():
		return []string{"shape=invhouse", "fillcolor=lightblue"}
	case s == state.Query:
		return []string{"shape=doublecircle", "fillcolor=gold"}
	case s.IsDisposition():
		return []string{"shape=doubleoctagon", "fillcolor=lightgrey"}
	case s.IsNodeDisposition():
		return []string{"shape=octagon"}
	default:
		return []string{}
	}
}

func edgeLabel(t transition.Transition) string {
	switch t := t.(type) {
	case transition.Composite:
		parts := make([]string, len(t.Transitions))
		for i, sub := range t.Transitions {
			parts[i] = edgeLabel(sub)
		}
		return strings.Join(parts, ";")
	case transition.Or:
		return fmt.Sprintf("or[%d]", len(t.Transitions))
	case transition.Constraint:
		return "filter"
	case transition.EraseAndSet:
		return "set"
	default:
		return t.String()
	}
}

// RenderSVG renders a DOT document to SVG with Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Digest hashes the structure of the graph: its states, its edges and the shape of
// their transitions. Two graphs built from the same inputs have the same digest.
func (g *Graph) Digest() uint64 {
	d := xxhash.New()
	for _, e := range g.Edges() {
		_, _ = d.WriteString(e.Pre.String())
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(e.Post.String())
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(shape(e.Transition))
		_, _ = d.WriteString("\n")
	}
	return d.Sum64()
}

func shape(t transition.Transition) string {
	switch t := t.(type) {
	case transition.Composite:
		return "compose(" + shapes(t.Transitions) + ")"
	case transition.Or:
		return "or(" + shapes(t.Transitions) + ")"
	case transition.EraseAndSet:
		return fmt.Sprintf("set%v", t.Vars.Vars())
	default:
		return t.String()
	}
}

func shapes(ts []transition.Transition) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = shape(t)
	}
	return strings.Join(parts, ",")
}
