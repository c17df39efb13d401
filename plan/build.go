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

package plan

import (
	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
)

// Build turns a parsed query into a logical operator tree. UNION
// branches are planned independently and combined with SetUnion.
func Build(q *ast.Query) (Operator, error) {
	branch, err := buildSingle(q.First)
	if err != nil {
		return nil, err
	}
	if len(q.Unions) == 0 {
		return branch, nil
	}
	branches := []Operator{branch}
	all := false
	for _, u := range q.Unions {
		b, err := buildSingle(u.Query)
		if err != nil {
			return nil, err
		}
		branches = append(branches, b)
		all = all || u.All
	}
	return newSetUnion(branches, all), nil
}

// builder threads the bound-variable set through a sequence of clauses
// within a single (non-UNION) query.
type builder struct {
	bound map[string]bool
}

func buildSingle(sq *ast.SingleQuery) (Operator, error) {
	if len(sq.Clauses) == 0 {
		return nil, core.ErrEmptyQuery.New()
	}
	b := &builder{bound: map[string]bool{}}
	var op Operator = newUnitScan()
	for _, clause := range sq.Clauses {
		next, err := b.applyClause(op, clause)
		if err != nil {
			return nil, err
		}
		op = next
	}
	return op, nil
}

func (b *builder) applyClause(input Operator, clause ast.Clause) (Operator, error) {
	switch c := clause.(type) {
	case *ast.Match:
		return b.buildMatch(input, c)
	case *ast.With:
		return b.buildWith(input, c)
	case *ast.Return:
		return b.buildReturn(input, c)
	case *ast.Create:
		return b.buildCreate(input, c)
	case *ast.Merge:
		return b.buildMerge(input, c)
	case *ast.SetClause:
		return b.buildSet(input, c)
	case *ast.RemoveClause:
		return b.buildRemove(input, c)
	case *ast.DeleteClause:
		return b.buildDelete(input, c)
	default:
		return nil, core.ErrSyntax.New("unsupported clause")
	}
}

// ---- MATCH ----

func (b *builder) buildMatch(input Operator, m *ast.Match) (Operator, error) {
	op := input
	for _, pp := range m.Patterns {
		patternOp, err := b.buildPattern(pp, m.Optional)
		if err != nil {
			return nil, err
		}
		op = combine(op, patternOp)
	}
	if m.Where != nil {
		op = newFilter(op, m.Where)
	}
	return op, nil
}

// combine joins left and right on their shared bound variables, or
// falls back to a Cartesian product when they share none (§4.6 calls
// out this fallback as the quadratic case the optimizer must flag).
func combine(left, right Operator) Operator {
	if isEmptyUnit(left) {
		return right
	}
	shared := sharedVars(left, right)
	if len(shared) == 0 {
		return newCartesianProduct(left, right)
	}
	return newHashJoin(left, right, shared)
}

func isEmptyUnit(op Operator) bool {
	_, ok := op.(*UnitScan)
	return ok
}

func sharedVars(left, right Operator) []string {
	leftSet := make(map[string]bool, len(left.Variables()))
	for _, v := range left.Variables() {
		leftSet[v] = true
	}
	var shared []string
	for _, v := range right.Variables() {
		if leftSet[v] {
			shared = append(shared, v)
		}
	}
	return shared
}

// buildPattern compiles one pattern path into a scan+expand chain,
// tracking which variables were already bound so repeated node
// variables become verification (ToVarBound) rather than fresh binds.
func (b *builder) buildPattern(pp *ast.PatternPath, optional bool) (Operator, error) {
	if len(pp.Nodes) == 0 {
		return nil, core.ErrSyntax.New("empty pattern")
	}
	first := pp.Nodes[0]
	var op Operator
	if b.bound[first.Variable] && first.Variable != "" {
		// Already bound elsewhere: still need a candidate source to
		// traverse from; a bare AllNodesScan is filtered later via the
		// shared-variable join the combine() step introduces.
		op = scanForNode(first)
	} else {
		op = scanForNode(first)
		b.markNodeBound(first)
	}
	op = wrapNodeFilters(op, first)

	prevVar := first.Variable
	for i, rel := range pp.Rels {
		next := pp.Nodes[i+1]
		toVarBound := next.Variable != "" && b.bound[next.Variable]
		if rel.VarLength {
			minHops := 1
			maxHops := -1 // resolved to the configured cap by the executor
			if rel.MinHops != nil {
				minHops = *rel.MinHops
			}
			if rel.MaxHops != nil {
				maxHops = *rel.MaxHops
			}
			op = newVarLengthExpand(op, prevVar, next.Variable, rel.Variable, pp.Variable, rel.Types, rel.Direction, minHops, maxHops, optional)
		} else {
			op = newExpand(op, prevVar, next.Variable, rel.Variable, rel.Types, rel.Direction, optional, toVarBound)
		}
		if rel.Variable != "" {
			b.bound[rel.Variable] = true
		}
		if !toVarBound {
			b.markNodeBound(next)
		}
		op = wrapNodeFilters(op, next)
		if rel.Properties != nil {
			op = newFilter(op, propertyEqualityExpr(rel.Variable, rel.Properties))
		}
		prevVar = next.Variable
	}
	if pp.Variable != "" {
		b.bound[pp.Variable] = true
	}
	return op, nil
}

func (b *builder) markNodeBound(n *ast.NodePattern) {
	if n.Variable != "" {
		b.bound[n.Variable] = true
	}
}

func scanForNode(n *ast.NodePattern) Operator {
	variable := n.Variable
	if variable == "" {
		variable = "_anon"
	}
	if len(n.Labels) > 0 {
		return newLabelScan(variable, n.Labels[0])
	}
	return newAllNodesScan(variable)
}

// wrapNodeFilters adds Filter operators for any node labels beyond the
// one consumed by the scan, and for inline property-map constraints.
func wrapNodeFilters(op Operator, n *ast.NodePattern) Operator {
	extraLabels := n.Labels
	if len(extraLabels) > 0 {
		extraLabels = extraLabels[1:]
	}
	for _, label := range extraLabels {
		op = newFilter(op, &ast.HasLabel{Target: &ast.Identifier{Name: n.Variable}, Label: label})
	}
	if n.Properties != nil {
		op = newFilter(op, propertyEqualityExpr(n.Variable, n.Properties))
	}
	return op
}

// propertyEqualityExpr turns an inline `{k: v, ...}` pattern constraint
// into an AND-chain of `target.k = v` comparisons.
func propertyEqualityExpr(variable string, props *ast.MapLiteral) ast.Expr {
	var expr ast.Expr
	for _, pair := range props.Pairs {
		cmp := &ast.BinaryOp{
			Op:    "=",
			Left:  &ast.Property{Target: &ast.Identifier{Name: variable}, Property: pair.Key},
			Right: pair.Value,
		}
		if expr == nil {
			expr = cmp
		} else {
			expr = &ast.BinaryOp{Op: "AND", Left: expr, Right: cmp}
		}
	}
	return expr
}

// ---- WITH / RETURN ----

func (b *builder) buildWith(input Operator, w *ast.With) (Operator, error) {
	op, err := b.buildProjectionLike(input, w.Items, w.Distinct, w.OrderBy, w.Skip, w.Limit)
	if err != nil {
		return nil, err
	}
	if w.Where != nil {
		op = newFilter(op, w.Where)
	}
	// WITH narrows scope to exactly its projected names.
	b.bound = map[string]bool{}
	for _, v := range op.Variables() {
		b.bound[v] = true
	}
	return op, nil
}

func (b *builder) buildReturn(input Operator, r *ast.Return) (Operator, error) {
	return b.buildProjectionLike(input, r.Items, r.Distinct, r.OrderBy, r.Skip, r.Limit)
}

func (b *builder) buildProjectionLike(input Operator, items []*ast.ProjectionItem, distinct bool, orderBy []*ast.SortItem, skip, limit ast.Expr) (Operator, error) {
	op := input

	aggs, groupKeys, hasAgg := splitAggregates(items, input.Variables())
	var projItems []ProjectItem
	if hasAgg {
		op = newAggregation(op, groupKeys, aggs)
	} else {
		projItems = projectionItems(items, input.Variables())
	}
	if len(orderBy) > 0 {
		items := make([]SortItem, len(orderBy))
		for i, s := range orderBy {
			items[i] = SortItem{Expr: s.Expr, Desc: s.Desc}
			for _, p := range projItems { // ORDER BY may name a projection alias
				if id, ok := s.Expr.(*ast.Identifier); ok && id.Name == p.Alias {
					items[i].Expr = p.Expr
				}
			}
		}
		op = newSort(op, items)
	}
	if !hasAgg { // after Sort, so ORDER BY still sees the variables the projection drops
		op = newProjection(op, projItems, false)
	}
	if distinct {
		op = newDistinct(op)
	}
	if skip != nil {
		op = newSkip(op, skip)
	}
	if limit != nil {
		op = newLimit(op, limit)
	}
	return op, nil
}

// projectionItems expands `RETURN *` into one item per currently bound
// variable, in binding order.
func projectionItems(items []*ast.ProjectionItem, bound []string) []ProjectItem {
	var out []ProjectItem
	for _, it := range items {
		if it.Star {
			for _, v := range bound {
				out = append(out, ProjectItem{Expr: &ast.Identifier{Name: v}, Alias: v})
			}
			continue
		}
		alias := it.Alias
		if alias == "" {
			alias = exprText(it.Expr)
		}
		out = append(out, ProjectItem{Expr: it.Expr, Alias: alias})
	}
	return out
}

// splitAggregates detects whether any projection item contains an
// aggregate function call; if so every non-aggregate item becomes a
// grouping key per §4.4's implicit-GROUP-BY rule.
func splitAggregates(items []*ast.ProjectionItem, bound []string) ([]AggregateItem, []ProjectItem, bool) {
	hasAgg := false
	for _, it := range items {
		if containsAggregate(it.Expr) {
			hasAgg = true
			break
		}
	}
	if !hasAgg {
		return nil, nil, false
	}
	var aggs []AggregateItem
	var keys []ProjectItem
	for _, it := range items {
		alias := it.Alias
		if alias == "" {
			alias = exprText(it.Expr)
		}
		if fc, ok := it.Expr.(*ast.FunctionCall); ok && isAggregateName(fc.Name) {
			var arg ast.Expr
			if len(fc.Args) > 0 {
				arg = fc.Args[0]
			}
			aggs = append(aggs, AggregateItem{Func: fc.Name, Distinct: fc.Distinct, Arg: arg, Star: fc.Star, Alias: alias})
		} else {
			keys = append(keys, ProjectItem{Expr: it.Expr, Alias: alias})
		}
	}
	return aggs, keys, true
}

func containsAggregate(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.FunctionCall:
		if isAggregateName(n.Name) {
			return true
		}
		for _, a := range n.Args {
			if containsAggregate(a) {
				return true
			}
		}
	case *ast.BinaryOp:
		return containsAggregate(n.Left) || containsAggregate(n.Right)
	case *ast.UnaryOp:
		return containsAggregate(n.Operand)
	case *ast.Not:
		return containsAggregate(n.Operand)
	case *ast.Property:
		return containsAggregate(n.Target)
	}
	return false
}

func isAggregateName(name string) bool {
	switch lower(name) {
	case "count", "sum", "avg", "min", "max", "collect":
		return true
	}
	return false
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// exprText produces a default column name for an unaliased projection
// item; identifiers and property lookups get their natural name,
// function calls their function name, and other expressions the fixed
// name "expr".
func exprText(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Name
	case *ast.Property:
		return exprText(n.Target) + "." + n.Property
	case *ast.FunctionCall:
		return n.Name
	default:
		return "expr"
	}
}

// ---- CREATE ----

func (b *builder) buildCreate(input Operator, c *ast.Create) (Operator, error) {
	var items []CreateItem
	for _, pp := range c.Patterns {
		patItems, err := b.createItemsForPattern(pp)
		if err != nil {
			return nil, err
		}
		items = append(items, patItems...)
	}
	return newCreate(input, items), nil
}

func (b *builder) createItemsForPattern(pp *ast.PatternPath) ([]CreateItem, error) {
	var items []CreateItem
	for _, n := range pp.Nodes {
		items = append(items, CreateItem{IsNode: true, Variable: n.Variable, Labels: n.Labels, Properties: n.Properties})
		b.markNodeBound(n)
	}
	for i, rel := range pp.Rels {
		items = append(items, CreateItem{
			IsNode: false, Variable: rel.Variable,
			FromVar: pp.Nodes[i].Variable, ToVar: pp.Nodes[i+1].Variable,
			RelType: firstOr(rel.Types, ""), Direction: rel.Direction, Properties: rel.Properties,
		})
		if rel.Variable != "" {
			b.bound[rel.Variable] = true
		}
	}
	return items, nil
}

func firstOr(ss []string, def string) string {
	if len(ss) == 0 {
		return def
	}
	return ss[0]
}

// ---- MERGE ----

func (b *builder) buildMerge(input Operator, m *ast.Merge) (Operator, error) {
	var boundVars []string
	for _, n := range m.Pattern.Nodes {
		if n.Variable != "" {
			boundVars = append(boundVars, n.Variable)
			b.bound[n.Variable] = true
		}
	}
	for _, r := range m.Pattern.Rels {
		if r.Variable != "" {
			boundVars = append(boundVars, r.Variable)
			b.bound[r.Variable] = true
		}
	}
	return newMerge(input, m.Pattern, derefSetItems(m.OnMatchSet), derefSetItems(m.OnCreate), boundVars), nil
}

func derefSetItems(items []*ast.SetItem) []ast.SetItem {
	out := make([]ast.SetItem, len(items))
	for i, it := range items {
		out[i] = *it
	}
	return out
}

// ---- SET / REMOVE / DELETE ----

func (b *builder) buildSet(input Operator, s *ast.SetClause) (Operator, error) {
	items := make([]SetItem, len(s.Items))
	for i, it := range s.Items {
		items[i] = SetItem{
			Variable: it.Variable,
			Property: it.Property,
			Expr:     it.Expr,
			Labels:   it.Labels,
			IsMap:    it.Property == "" && len(it.Labels) == 0 && it.Expr != nil,
		}
	}
	return newSetProperties(input, items), nil
}

func (b *builder) buildRemove(input Operator, r *ast.RemoveClause) (Operator, error) {
	items := make([]RemoveItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = RemoveItem{Variable: it.Variable, Property: it.Property, Label: it.Label}
	}
	return newRemoveProperties(input, items), nil
}

func (b *builder) buildDelete(input Operator, d *ast.DeleteClause) (Operator, error) {
	return newDelete(input, d.Exprs, d.Detach), nil
}
