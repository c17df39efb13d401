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

// Package eval implements the pure expression evaluator described in
// §4.4: a function from (expression, binding environment) to (value,
// error), with short-circuit three-valued AND/OR/NOT and the built-in
// function library.
package eval

import (
	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
)

// Evaluator evaluates expression trees against a binding environment
// plus query parameters ($name references).
type Evaluator struct {
	Params map[string]core.Value
	Graph  GraphReader
}

// GraphReader is the narrow read surface the evaluator needs from the
// graph storage adapter to resolve property access on NODE/RELATIONSHIP
// values (e.g. `n.name` once n is bound to a NODE(id) reference).
type GraphReader interface {
	NodeByID(ctx *core.Context, id int64) (*core.Node, bool, error)
	EdgeByID(ctx *core.Context, id int64) (*core.Edge, bool, error)
}

func New(graph GraphReader, params map[string]core.Value) *Evaluator {
	if params == nil {
		params = map[string]core.Value{}
	}
	return &Evaluator{Params: params, Graph: graph}
}

// Eval evaluates expr against binding, returning NULL (not an error)
// for most type mismatches involving NULL operands.
func (e *Evaluator) Eval(ctx *core.Context, expr ast.Expr, binding core.Binding) (core.Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value, nil
	case *ast.Identifier:
		v, ok := binding[n.Name]
		if !ok {
			return core.Value{}, core.ErrUndefinedVariable.New(n.Name)
		}
		return v, nil
	case *ast.Parameter:
		v, ok := e.Params[n.Name]
		if !ok {
			return core.Null(), nil
		}
		return v, nil
	case *ast.ListLiteral:
		vals := make([]core.Value, len(n.Items))
		for i, it := range n.Items {
			v, err := e.Eval(ctx, it, binding)
			if err != nil {
				return core.Value{}, err
			}
			vals[i] = v
		}
		return core.List(vals), nil
	case *ast.MapLiteral:
		m := make(map[string]core.Value, len(n.Pairs))
		for _, pair := range n.Pairs {
			v, err := e.Eval(ctx, pair.Value, binding)
			if err != nil {
				return core.Value{}, err
			}
			m[pair.Key] = v
		}
		return core.Map(m), nil
	case *ast.UnaryOp:
		v, err := e.Eval(ctx, n.Operand, binding)
		if err != nil {
			return core.Value{}, err
		}
		if v.IsNull() {
			return core.Null(), nil
		}
		if !v.IsNumeric() {
			return core.Value{}, core.ErrTypeMismatch.New("unary " + n.Op + " on " + v.Kind().String())
		}
		if n.Op == "-" {
			if v.Kind() == core.KindInt {
				return core.Int(-v.AsInt()), nil
			}
			return core.Float(-v.AsFloat()), nil
		}
		return v, nil
	case *ast.Not:
		v, err := e.Eval(ctx, n.Operand, binding)
		if err != nil {
			return core.Value{}, err
		}
		return notValue(v), nil
	case *ast.BinaryOp:
		return e.evalBinary(ctx, n, binding)
	case *ast.StringMatch:
		return e.evalStringMatch(ctx, n, binding)
	case *ast.InExpr:
		return e.evalIn(ctx, n, binding)
	case *ast.IsNullExpr:
		v, err := e.Eval(ctx, n.Operand, binding)
		if err != nil {
			return core.Value{}, err
		}
		result := v.IsNull()
		if n.Negated {
			result = !result
		}
		return core.Bool(result), nil
	case *ast.RegexMatch:
		return e.evalRegex(ctx, n, binding)
	case *ast.Property:
		return e.evalProperty(ctx, n, binding)
	case *ast.Index:
		return e.evalIndex(ctx, n, binding)
	case *ast.FunctionCall:
		return e.evalCall(ctx, n, binding)
	case *ast.Case:
		return e.evalCase(ctx, n, binding)
	case *ast.HasLabel:
		return e.evalHasLabel(ctx, n, binding)
	default:
		return core.Value{}, core.ErrTypeMismatch.New("unsupported expression node")
	}
}

// notValue implements Kleene NOT: NOT NULL = NULL.
func notValue(v core.Value) core.Value {
	if v.IsNull() {
		return core.Null()
	}
	return core.Bool(!v.AsBool())
}

func (e *Evaluator) evalBinary(ctx *core.Context, n *ast.BinaryOp, binding core.Binding) (core.Value, error) {
	switch n.Op {
	case "AND":
		return e.evalAnd(ctx, n.Left, n.Right, binding)
	case "OR":
		return e.evalOr(ctx, n.Left, n.Right, binding)
	case "XOR":
		l, err := e.Eval(ctx, n.Left, binding)
		if err != nil {
			return core.Value{}, err
		}
		r, err := e.Eval(ctx, n.Right, binding)
		if err != nil {
			return core.Value{}, err
		}
		if l.IsNull() || r.IsNull() {
			return core.Null(), nil
		}
		return core.Bool(l.AsBool() != r.AsBool()), nil
	case "=", "<>", "<", "<=", ">", ">=":
		return e.evalComparison(ctx, n, binding)
	default:
		l, err := e.Eval(ctx, n.Left, binding)
		if err != nil {
			return core.Value{}, err
		}
		r, err := e.Eval(ctx, n.Right, binding)
		if err != nil {
			return core.Value{}, err
		}
		return core.Arithmetic(n.Op, l, r)
	}
}

// evalAnd implements short-circuit three-valued AND: FALSE as soon as a
// FALSE operand is seen without evaluating the rest; TRUE AND NULL =
// NULL; FALSE AND NULL = FALSE.
func (e *Evaluator) evalAnd(ctx *core.Context, leftExpr, rightExpr ast.Expr, binding core.Binding) (core.Value, error) {
	l, err := e.Eval(ctx, leftExpr, binding)
	if err != nil {
		return core.Value{}, err
	}
	if !l.IsNull() && !l.AsBool() {
		return core.Bool(false), nil
	}
	r, err := e.Eval(ctx, rightExpr, binding)
	if err != nil {
		return core.Value{}, err
	}
	if !r.IsNull() && !r.AsBool() {
		return core.Bool(false), nil
	}
	if l.IsNull() || r.IsNull() {
		return core.Null(), nil
	}
	return core.Bool(true), nil
}

// evalOr implements short-circuit three-valued OR: TRUE as soon as a
// TRUE operand is seen; TRUE OR NULL = TRUE; FALSE OR NULL = NULL.
func (e *Evaluator) evalOr(ctx *core.Context, leftExpr, rightExpr ast.Expr, binding core.Binding) (core.Value, error) {
	l, err := e.Eval(ctx, leftExpr, binding)
	if err != nil {
		return core.Value{}, err
	}
	if !l.IsNull() && l.AsBool() {
		return core.Bool(true), nil
	}
	r, err := e.Eval(ctx, rightExpr, binding)
	if err != nil {
		return core.Value{}, err
	}
	if !r.IsNull() && r.AsBool() {
		return core.Bool(true), nil
	}
	if l.IsNull() || r.IsNull() {
		return core.Null(), nil
	}
	return core.Bool(false), nil
}

func (e *Evaluator) evalComparison(ctx *core.Context, n *ast.BinaryOp, binding core.Binding) (core.Value, error) {
	l, err := e.Eval(ctx, n.Left, binding)
	if err != nil {
		return core.Value{}, err
	}
	r, err := e.Eval(ctx, n.Right, binding)
	if err != nil {
		return core.Value{}, err
	}
	if n.Op == "=" || n.Op == "<>" {
		if l.IsNull() || r.IsNull() {
			return core.Null(), nil
		}
		eq := l.Equal(r)
		if n.Op == "<>" {
			eq = !eq
		}
		return core.Bool(eq), nil
	}
	cmp, isNull, err := l.Compare(r)
	if err != nil {
		return core.Value{}, err
	}
	if isNull {
		return core.Null(), nil
	}
	switch n.Op {
	case "<":
		return core.Bool(cmp < 0), nil
	case "<=":
		return core.Bool(cmp <= 0), nil
	case ">":
		return core.Bool(cmp > 0), nil
	case ">=":
		return core.Bool(cmp >= 0), nil
	}
	return core.Value{}, core.ErrTypeMismatch.New("unknown comparison operator " + n.Op)
}

func (e *Evaluator) evalStringMatch(ctx *core.Context, n *ast.StringMatch, binding core.Binding) (core.Value, error) {
	l, err := e.Eval(ctx, n.Left, binding)
	if err != nil {
		return core.Value{}, err
	}
	r, err := e.Eval(ctx, n.Right, binding)
	if err != nil {
		return core.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return core.Null(), nil
	}
	if l.Kind() != core.KindString || r.Kind() != core.KindString {
		return core.Value{}, core.ErrTypeMismatch.New(n.Op + " requires strings")
	}
	switch n.Op {
	case "STARTS WITH":
		return core.Bool(len(l.AsString()) >= len(r.AsString()) && l.AsString()[:len(r.AsString())] == r.AsString()), nil
	case "ENDS WITH":
		ls, rs := l.AsString(), r.AsString()
		return core.Bool(len(ls) >= len(rs) && ls[len(ls)-len(rs):] == rs), nil
	case "CONTAINS":
		return core.Bool(stringsContains(l.AsString(), r.AsString())), nil
	}
	return core.Value{}, core.ErrTypeMismatch.New("unknown string operator " + n.Op)
}

func stringsContains(s, substr string) bool {
	return len(substr) == 0 || indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

func (e *Evaluator) evalIn(ctx *core.Context, n *ast.InExpr, binding core.Binding) (core.Value, error) {
	operand, err := e.Eval(ctx, n.Operand, binding)
	if err != nil {
		return core.Value{}, err
	}
	list, err := e.Eval(ctx, n.List, binding)
	if err != nil {
		return core.Value{}, err
	}
	if list.IsNull() {
		return core.Null(), nil
	}
	if list.Kind() != core.KindList {
		return core.Value{}, core.ErrNotAList.New(list.Kind())
	}
	if operand.IsNull() {
		return core.Null(), nil
	}
	sawNull := false
	for _, item := range list.AsList() {
		if item.IsNull() {
			sawNull = true
			continue
		}
		if operand.Equal(item) {
			return core.Bool(true), nil
		}
	}
	if sawNull {
		return core.Null(), nil
	}
	return core.Bool(false), nil
}

func (e *Evaluator) evalRegex(ctx *core.Context, n *ast.RegexMatch, binding core.Binding) (core.Value, error) {
	l, err := e.Eval(ctx, n.Left, binding)
	if err != nil {
		return core.Value{}, err
	}
	r, err := e.Eval(ctx, n.Right, binding)
	if err != nil {
		return core.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return core.Null(), nil
	}
	if l.Kind() != core.KindString || r.Kind() != core.KindString {
		return core.Value{}, core.ErrTypeMismatch.New("=~ requires strings")
	}
	return matchRegex(l.AsString(), r.AsString())
}

func (e *Evaluator) evalProperty(ctx *core.Context, n *ast.Property, binding core.Binding) (core.Value, error) {
	target, err := e.Eval(ctx, n.Target, binding)
	if err != nil {
		return core.Value{}, err
	}
	if target.IsNull() {
		return core.Null(), nil
	}
	switch target.Kind() {
	case core.KindMap:
		v, ok := target.AsMap()[n.Property]
		if !ok {
			return core.Null(), nil
		}
		return v, nil
	case core.KindNode:
		node, ok, err := e.Graph.NodeByID(ctx, target.AsNodeID())
		if err != nil {
			return core.Value{}, err
		}
		if !ok {
			return core.Null(), nil
		}
		v, ok := node.Properties[n.Property]
		if !ok {
			return core.Null(), nil
		}
		return v, nil
	case core.KindRelationship:
		edge, ok, err := e.Graph.EdgeByID(ctx, target.AsRelationshipID())
		if err != nil {
			return core.Value{}, err
		}
		if !ok {
			return core.Null(), nil
		}
		v, ok := edge.Properties[n.Property]
		if !ok {
			return core.Null(), nil
		}
		return v, nil
	default:
		return core.Value{}, core.ErrTypeMismatch.New("cannot access property of " + target.Kind().String())
	}
}

func (e *Evaluator) evalIndex(ctx *core.Context, n *ast.Index, binding core.Binding) (core.Value, error) {
	target, err := e.Eval(ctx, n.Target, binding)
	if err != nil {
		return core.Value{}, err
	}
	idx, err := e.Eval(ctx, n.Index, binding)
	if err != nil {
		return core.Value{}, err
	}
	if target.IsNull() || idx.IsNull() {
		return core.Null(), nil
	}
	switch target.Kind() {
	case core.KindList:
		if idx.Kind() != core.KindInt {
			return core.Value{}, core.ErrTypeMismatch.New("list index must be an integer")
		}
		list := target.AsList()
		i := idx.AsInt()
		if i < 0 {
			i += int64(len(list))
		}
		if i < 0 || i >= int64(len(list)) {
			return core.Null(), nil
		}
		return list[i], nil
	case core.KindMap:
		if idx.Kind() != core.KindString {
			return core.Value{}, core.ErrTypeMismatch.New("map index must be a string")
		}
		v, ok := target.AsMap()[idx.AsString()]
		if !ok {
			return core.Null(), nil
		}
		return v, nil
	default:
		return core.Value{}, core.ErrTypeMismatch.New("cannot index " + target.Kind().String())
	}
}

func (e *Evaluator) evalCase(ctx *core.Context, n *ast.Case, binding core.Binding) (core.Value, error) {
	if n.Test != nil {
		testVal, err := e.Eval(ctx, n.Test, binding)
		if err != nil {
			return core.Value{}, err
		}
		for _, w := range n.Whens {
			condVal, err := e.Eval(ctx, w.Cond, binding)
			if err != nil {
				return core.Value{}, err
			}
			if !condVal.IsNull() && testVal.Equal(condVal) {
				return e.Eval(ctx, w.Result, binding)
			}
		}
	} else {
		for _, w := range n.Whens {
			condVal, err := e.Eval(ctx, w.Cond, binding)
			if err != nil {
				return core.Value{}, err
			}
			if !condVal.IsNull() && condVal.AsBool() {
				return e.Eval(ctx, w.Result, binding)
			}
		}
	}
	if n.Default != nil {
		return e.Eval(ctx, n.Default, binding)
	}
	return core.Null(), nil
}

func (e *Evaluator) evalHasLabel(ctx *core.Context, n *ast.HasLabel, binding core.Binding) (core.Value, error) {
	target, err := e.Eval(ctx, n.Target, binding)
	if err != nil {
		return core.Value{}, err
	}
	if target.IsNull() {
		return core.Null(), nil
	}
	if target.Kind() != core.KindNode {
		return core.Value{}, core.ErrTypeMismatch.New("label check on non-node value")
	}
	node, ok, err := e.Graph.NodeByID(ctx, target.AsNodeID())
	if err != nil {
		return core.Value{}, err
	}
	if !ok {
		return core.Null(), nil
	}
	return core.Bool(node.HasLabel(n.Label)), nil
}

// IsTruthy reports whether v is the two-valued TRUE needed by Filter:
// per §4.7, Filter only passes rows where the predicate is TRUE, not
// NULL and not FALSE.
func IsTruthy(v core.Value) bool {
	return !v.IsNull() && v.Kind() == core.KindBool && v.AsBool()
}
