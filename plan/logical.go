// Copyright 2024 The GraphCypher Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package plan implements the logical planner from §4.5: it turns a
// parsed query into a tree of logical operators that describe what
// must happen, leaving how (access paths, join strategy) to the
// physical planner in package optimize.
package plan

import (
	"github.com/cypherdb/graphengine/ast"
)

// Operator is implemented by every logical plan node. Variables lists
// the binding names the operator introduces or passes through; the
// builder uses it to find the variables two patterns share, to expand
// `RETURN *`, and to reset scope after WITH. It is not used to check
// that referenced identifiers are bound.
type Operator interface {
	Children() []Operator
	Variables() []string
}

type base struct {
	children []Operator
	vars     []string
}

func (b *base) Children() []Operator  { return b.children }
func (b *base) Variables() []string   { return b.vars }

// ---- Leaves: scans ----

// UnitScan produces exactly one row binding no variables, the identity
// input for a clause sequence that opens with CREATE/UNWIND rather than
// a MATCH (mirrors the relational "dual table" pattern).
type UnitScan struct {
	base
}

func newUnitScan() *UnitScan { return &UnitScan{} }


// AllNodesScan binds Variable to every node in the graph.
type AllNodesScan struct {
	base
	Variable string
}

// LabelScan binds Variable to every node carrying Label.
type LabelScan struct {
	base
	Variable string
	Label    string
}

// AllRelationshipsScan binds Variable to every edge in the graph.
type AllRelationshipsScan struct {
	base
	Variable string
}

// TypeScan binds Variable to every edge carrying Type.
type TypeScan struct {
	base
	Variable string
	Type     string
}

func newAllNodesScan(variable string) *AllNodesScan {
	return &AllNodesScan{base: base{vars: []string{variable}}, Variable: variable}
}

func newLabelScan(variable, label string) *LabelScan {
	return &LabelScan{base: base{vars: []string{variable}}, Variable: variable, Label: label}
}

func newAllRelationshipsScan(variable string) *AllRelationshipsScan {
	return &AllRelationshipsScan{base: base{vars: []string{variable}}, Variable: variable}
}

func newTypeScan(variable, relType string) *TypeScan {
	return &TypeScan{base: base{vars: []string{variable}}, Variable: variable, Type: relType}
}

// ---- Pattern traversal ----

// Expand performs a single-hop traversal from FromVar to ToVar over
// RelVar, restricted to RelTypes (empty means any type) and Direction.
type Expand struct {
	base
	FromVar    string
	ToVar      string
	RelVar     string // "" when the relationship isn't bound to a name
	RelTypes   []string
	Direction  ast.Direction
	Optional   bool // true for OPTIONAL MATCH patterns: no match yields NULLs
	ToVarBound bool // ToVar already bound earlier in the query: verify, don't (re)bind
}

func newExpand(input Operator, fromVar, toVar, relVar string, relTypes []string, dir ast.Direction, optional, toVarBound bool) *Expand {
	vars := append([]string{}, input.Variables()...)
	if !toVarBound {
		vars = append(vars, toVar)
	}
	if relVar != "" {
		vars = append(vars, relVar)
	}
	return &Expand{
		base:       base{children: []Operator{input}, vars: vars},
		FromVar:    fromVar,
		ToVar:      toVar,
		RelVar:     relVar,
		RelTypes:   relTypes,
		Direction:  dir,
		Optional:   optional,
		ToVarBound: toVarBound,
	}
}

// VarLengthExpand performs a variable-length (bounded BFS) traversal
// from FromVar to ToVar, binding PathVar (if present) to the full path
// and RelVar (if present) to the list of traversed relationship ids.
type VarLengthExpand struct {
	base
	FromVar   string
	ToVar     string
	RelVar    string
	PathVar   string
	RelTypes  []string
	Direction ast.Direction
	MinHops   int
	MaxHops   int // -1 when unbounded; resolved against the configured hop cap by the executor
	Optional  bool
}

func newVarLengthExpand(input Operator, fromVar, toVar, relVar, pathVar string, relTypes []string, dir ast.Direction, min, max int, optional bool) *VarLengthExpand {
	vars := append(append([]string{}, input.Variables()...), toVar)
	if relVar != "" {
		vars = append(vars, relVar)
	}
	if pathVar != "" {
		vars = append(vars, pathVar)
	}
	return &VarLengthExpand{
		base:      base{children: []Operator{input}, vars: vars},
		FromVar:   fromVar,
		ToVar:     toVar,
		RelVar:    relVar,
		PathVar:   pathVar,
		RelTypes:  relTypes,
		Direction: dir,
		MinHops:   min,
		MaxHops:   max,
		Optional:  optional,
	}
}

// ---- Combining ----

// Filter passes through only rows where Predicate evaluates to TRUE.
type Filter struct {
	base
	Predicate ast.Expr
}

func newFilter(input Operator, predicate ast.Expr) *Filter {
	return &Filter{base: base{children: []Operator{input}, vars: input.Variables()}, Predicate: predicate}
}

// HashJoin joins Left and Right on the variables they share.
type HashJoin struct {
	base
	JoinVars []string
}

func newHashJoin(left, right Operator, joinVars []string) *HashJoin {
	vars := append(append([]string{}, left.Variables()...), right.Variables()...)
	return &HashJoin{base: base{children: []Operator{left, right}, vars: dedupStrings(vars)}, JoinVars: joinVars}
}

// NewHashJoinSwapped rebuilds a HashJoin with its build/probe sides
// reversed; exported for the physical planner's join-reordering pass,
// which picks the smaller side as the build side (§4.6).
func NewHashJoinSwapped(newLeft, newRight Operator, joinVars []string) *HashJoin {
	return newHashJoin(newLeft, newRight, joinVars)
}

// CartesianProduct combines every row of Left with every row of Right;
// the physical planner collects these into PhysicalPlan.Cartesian since
// they're the quadratic fallback when no shared variable exists (§4.6).
type CartesianProduct struct {
	base
}

func newCartesianProduct(left, right Operator) *CartesianProduct {
	vars := append(append([]string{}, left.Variables()...), right.Variables()...)
	return &CartesianProduct{base: base{children: []Operator{left, right}, vars: dedupStrings(vars)}}
}

// ---- Projection / grouping / ordering ----

// ProjectItem is one projected expression plus its output alias.
type ProjectItem struct {
	Expr  ast.Expr
	Alias string
}

// Projection evaluates Items against each input row, producing a row
// whose binding is exactly the projected names (WITH/RETURN semantics:
// projecting narrows scope to only the named items).
type Projection struct {
	base
	Items    []ProjectItem
	Distinct bool
}

func newProjection(input Operator, items []ProjectItem, distinct bool) *Projection {
	vars := make([]string, len(items))
	for i, it := range items {
		vars[i] = it.Alias
	}
	return &Projection{base: base{children: []Operator{input}, vars: vars}, Items: items, Distinct: distinct}
}

// AggregateItem is one aggregate function application in an Aggregation
// operator, e.g. `count(n)` aliased as `c`.
type AggregateItem struct {
	Func     string
	Distinct bool
	Arg      ast.Expr // nil for count(*)
	Star     bool
	Alias    string
}

// Aggregation groups rows by GroupKeys (evaluated once per row) and
// computes Aggregates per group; GroupKeys with no entries means a
// single implicit group over the whole input (§4.4: "a RETURN with any
// aggregate function and no explicit grouping keys aggregates over the
// entire result").
type Aggregation struct {
	base
	GroupKeys  []ProjectItem
	Aggregates []AggregateItem
}

func newAggregation(input Operator, groupKeys []ProjectItem, aggregates []AggregateItem) *Aggregation {
	vars := make([]string, 0, len(groupKeys)+len(aggregates))
	for _, k := range groupKeys {
		vars = append(vars, k.Alias)
	}
	for _, a := range aggregates {
		vars = append(vars, a.Alias)
	}
	return &Aggregation{base: base{children: []Operator{input}, vars: vars}, GroupKeys: groupKeys, Aggregates: aggregates}
}

// Distinct removes duplicate rows by structural equality over every
// bound variable.
type Distinct struct {
	base
}

func newDistinct(input Operator) *Distinct {
	return &Distinct{base: base{children: []Operator{input}, vars: input.Variables()}}
}

// SortItem is one ORDER BY term.
type SortItem struct {
	Expr ast.Expr
	Desc bool
}

// Sort materializes the input and re-emits it ordered; stable (Testable
// Property 9).
type Sort struct {
	base
	Items []SortItem
}

func newSort(input Operator, items []SortItem) *Sort {
	return &Sort{base: base{children: []Operator{input}, vars: input.Variables()}, Items: items}
}

// Skip drops the first N rows.
type Skip struct {
	base
	Count ast.Expr
}

func newSkip(input Operator, count ast.Expr) *Skip {
	return &Skip{base: base{children: []Operator{input}, vars: input.Variables()}, Count: count}
}

// Limit caps the output at N rows, and (§5) suppresses the
// unbounded-result safety error on the operators beneath it.
type Limit struct {
	base
	Count ast.Expr
}

func newLimit(input Operator, count ast.Expr) *Limit {
	return &Limit{base: base{children: []Operator{input}, vars: input.Variables()}, Count: count}
}

// ---- Mutating operators ----

// CreateItem describes one node or relationship to create.
type CreateItem struct {
	IsNode     bool
	Variable   string
	Labels     []string
	Properties *ast.MapLiteral

	// relationship-only fields
	FromVar   string
	ToVar     string
	RelType   string
	Direction ast.Direction
}

// Create builds new nodes/relationships per Items for every input row
// (an empty input as a single implicit row when CREATE has no
// preceding MATCH).
type Create struct {
	base
	Items []CreateItem
}

func newCreate(input Operator, items []CreateItem) *Create {
	vars := append([]string{}, input.Variables()...)
	for _, it := range items {
		if it.Variable != "" {
			vars = append(vars, it.Variable)
		}
	}
	return &Create{base: base{children: []Operator{input}, vars: dedupStrings(vars)}, Items: items}
}

// SetItem is one property/label/map assignment.
type SetItem struct {
	Variable string
	Property string
	Expr     ast.Expr
	Labels   []string
	IsMap    bool // `n = {...}` or `n += {...}`
	Merge    bool // true for `+=`, false for whole-map replace
}

// SetProperties applies Items to the bound node/relationship of each
// input row.
type SetProperties struct {
	base
	Items []SetItem
}

func newSetProperties(input Operator, items []SetItem) *SetProperties {
	return &SetProperties{base: base{children: []Operator{input}, vars: input.Variables()}, Items: items}
}

// Merge implements MERGE: for each input row, match Pattern; if no
// match, create it; then apply OnMatchSet or OnCreate accordingly.
type Merge struct {
	base
	Pattern    *ast.PatternPath
	OnMatchSet []ast.SetItem
	OnCreate   []ast.SetItem
}

func newMerge(input Operator, pattern *ast.PatternPath, onMatch, onCreate []ast.SetItem, boundVars []string) *Merge {
	vars := append(append([]string{}, input.Variables()...), boundVars...)
	return &Merge{base: base{children: []Operator{input}, vars: dedupStrings(vars)}, Pattern: pattern, OnMatchSet: onMatch, OnCreate: onCreate}
}

// RemoveItem is one REMOVE target: a property or a label.
type RemoveItem struct {
	Variable string
	Property string
	Label    string
}

// RemoveProperties implements REMOVE.
type RemoveProperties struct {
	base
	Items []RemoveItem
}

func newRemoveProperties(input Operator, items []RemoveItem) *RemoveProperties {
	return &RemoveProperties{base: base{children: []Operator{input}, vars: input.Variables()}, Items: items}
}

// Delete implements DELETE/DETACH DELETE; Detach=false fails with
// CONSTRAINT if a targeted node still has edges (Testable Property 7).
type Delete struct {
	base
	Exprs  []ast.Expr
	Detach bool
}

func newDelete(input Operator, exprs []ast.Expr, detach bool) *Delete {
	return &Delete{base: base{children: []Operator{input}, vars: input.Variables()}, Exprs: exprs, Detach: detach}
}

// ---- Set-combining (UNION) ----

// SetUnion implements UNION / UNION ALL across single-query branches,
// each already planned independently.
type SetUnion struct {
	base
	All bool
}

func newSetUnion(branches []Operator, all bool) *SetUnion {
	var vars []string
	if len(branches) > 0 {
		vars = append(vars, branches[0].Variables()...)
	}
	return &SetUnion{base: base{children: branches, vars: vars}, All: all}
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
