/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bdd is the packet-set algebra used by the reachability engine. It wraps a
// rudd decision diagram table behind a Factory (the arena) and immutable BDD values
// (handles into it). A Factory and every BDD it produced must be used from a single
// goroutine; independent analyses use independent factories.
package bdd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dalzilio/rudd"
)

const (
	defaultNodeSize  = 1 << 16
	defaultCacheSize = 1 << 14
)

// Factory owns one decision diagram table with a fixed number of variables.
type Factory struct {
	b       *rudd.BDD
	numVars int
	next    int
	one     rudd.Node
	zero    rudd.Node
}

// FactoryOption tunes the size of the underlying node table and operation caches.
type FactoryOption func(*factoryConfig)

type factoryConfig struct {
	nodeSize  int
	cacheSize int
}

// WithNodeSize sets the initial number of nodes of the table.
func WithNodeSize(n int) FactoryOption {
	return func(c *factoryConfig) { c.nodeSize = n }
}

// WithCacheSize sets the initial size of the operation caches.
func WithCacheSize(n int) FactoryOption {
	return func(c *factoryConfig) { c.cacheSize = n }
}

// NewFactory creates a table over numVars boolean variables.
func NewFactory(numVars int, opts ...FactoryOption) (*Factory, error) {
	if numVars <= 0 {
		return nil, fmt.Errorf("number of variables must be positive, got %d", numVars)
	}
	cfg := factoryConfig{nodeSize: defaultNodeSize, cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	b, err := rudd.New(numVars, rudd.Nodesize(cfg.nodeSize), rudd.Cachesize(cfg.cacheSize))
	if err != nil {
		return nil, err
	}
	return &Factory{b: b, numVars: numVars, one: b.True(), zero: b.False()}, nil
}

// NumVars returns the number of variables of the table.
func (f *Factory) NumVars() int {
	return f.numVars
}

// Allocate reserves n consecutive, still unused variables and returns their indices.
func (f *Factory) Allocate(n int) ([]int, error) {
	if f.next+n > f.numVars {
		return nil, fmt.Errorf("cannot allocate %d variables: only %d of %d left", n, f.numVars-f.next, f.numVars)
	}
	vars := make([]int, n)
	for i := range vars {
		vars[i] = f.next + i
	}
	f.next += n
	return vars, nil
}

func (f *Factory) wrap(n rudd.Node) BDD {
	return BDD{f: f, n: n}
}

// One is the universal set.
func (f *Factory) One() BDD {
	return f.wrap(f.one)
}

// Zero is the empty set.
func (f *Factory) Zero() BDD {
	return f.wrap(f.zero)
}

// Var is the set of assignments where variable i is true.
func (f *Factory) Var(i int) BDD {
	return f.wrap(f.b.Ithvar(i))
}

// NVar is the set of assignments where variable i is false.
func (f *Factory) NVar(i int) BDD {
	return f.wrap(f.b.NIthvar(i))
}

// Or returns the union of all operands; the union of nothing is Zero.
func (f *Factory) Or(bs ...BDD) BDD {
	if len(bs) == 0 {
		return f.Zero()
	}
	return f.wrap(f.b.Or(nodes(bs)...))
}

// And returns the intersection of all operands; the intersection of nothing is One.
func (f *Factory) And(bs ...BDD) BDD {
	if len(bs) == 0 {
		return f.One()
	}
	return f.wrap(f.b.And(nodes(bs)...))
}

func nodes(bs []BDD) []rudd.Node {
	ns := make([]rudd.Node, len(bs))
	for i, b := range bs {
		ns[i] = b.n
	}
	return ns
}

// VarSet is a set of variables used for quantification.
type VarSet struct {
	vars []int
	cube rudd.Node
}

// NewVarSet builds the set of the given variable indices.
func (f *Factory) NewVarSet(vars ...int) VarSet {
	sorted := slices.Clone(vars)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return VarSet{vars: sorted, cube: f.b.Makeset(sorted)}
}

// Vars returns the sorted variable indices of the set.
func (s VarSet) Vars() []int {
	return slices.Clone(s.vars)
}

// Empty tells whether the set has no variables.
func (s VarSet) Empty() bool {
	return len(s.vars) == 0
}

// Union returns the set of variables in either set.
func (f *Factory) Union(sets ...VarSet) VarSet {
	var all []int
	for _, s := range sets {
		all = append(all, s.vars...)
	}
	return f.NewVarSet(all...)
}

// Complement returns every variable of the factory not in s.
func (f *Factory) Complement(s VarSet) VarSet {
	in := make(map[int]bool, len(s.vars))
	for _, v := range s.vars {
		in[v] = true
	}
	var rest []int
	for i := 0; i < f.numVars; i++ {
		if !in[i] {
			rest = append(rest, i)
		}
	}
	return f.NewVarSet(rest...)
}

// Pairing substitutes variables simultaneously, e.g. to swap two bit-vectors.
type Pairing struct {
	r rudd.Replacer
}

// NewPairing maps each variable of from to the variable at the same position of to.
func (f *Factory) NewPairing(from, to []int) (*Pairing, error) {
	if len(from) != len(to) {
		return nil, errors.New("pairing requires the same number of source and target variables")
	}
	r, err := f.b.NewReplacer(from, to)
	if err != nil {
		return nil, err
	}
	return &Pairing{r: r}, nil
}

// BDD is an immutable set of variable assignments owned by a Factory.
type BDD struct {
	f *Factory
	n rudd.Node
}

// Factory returns the arena owning b.
func (b BDD) Factory() *Factory {
	return b.f
}

func (b BDD) And(o BDD) BDD {
	return b.f.wrap(b.f.b.And(b.n, o.n))
}

func (b BDD) Or(o BDD) BDD {
	return b.f.wrap(b.f.b.Or(b.n, o.n))
}

func (b BDD) Not() BDD {
	return b.f.wrap(b.f.b.Not(b.n))
}

// Diff returns the assignments of b that are not in o.
func (b BDD) Diff(o BDD) BDD {
	return b.And(o.Not())
}

// Imp returns the implication b => o.
func (b BDD) Imp(o BDD) BDD {
	return b.Not().Or(o)
}

// Ite returns (b and t) or (not b and e).
func (b BDD) Ite(t, e BDD) BDD {
	return b.And(t).Or(b.Not().And(e))
}

// Exist existentially quantifies the variables of vars.
func (b BDD) Exist(vars VarSet) BDD {
	if vars.Empty() {
		return b
	}
	return b.f.wrap(b.f.b.Exist(b.n, vars.cube))
}

// Project keeps only the constraints b puts on vars.
func (b BDD) Project(vars VarSet) BDD {
	return b.Exist(b.f.Complement(vars))
}

// Replace applies a pairing.
func (b BDD) Replace(p *Pairing) BDD {
	return b.f.wrap(b.f.b.Replace(b.n, p.r))
}

// IsZero tells whether b is the empty set.
func (b BDD) IsZero() bool {
	return b.f.b.Equal(b.n, b.f.zero)
}

// IsOne tells whether b is the universal set.
func (b BDD) IsOne() bool {
	return b.f.b.Equal(b.n, b.f.one)
}

// Equal tells whether b and o denote the same set.
func (b BDD) Equal(o BDD) bool {
	return b.f.b.Equal(b.n, o.n)
}

// Intersects tells whether b and o share an assignment.
func (b BDD) Intersects(o BDD) bool {
	return !b.And(o).IsZero()
}

// Subset tells whether every assignment of b is in o.
func (b BDD) Subset(o BDD) bool {
	return b.Diff(o).IsZero()
}

// DependsOn tells whether the value of some variable of vars affects membership in b.
func (b BDD) DependsOn(vars VarSet) bool {
	return !b.Exist(vars).Equal(b)
}

// Valid tells whether b was produced by a factory.
func (b BDD) Valid() bool {
	return b.f != nil
}
