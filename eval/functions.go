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

package eval

import (
	"math"
	"strings"

	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
)

// scalarFunctions is the minimum built-in set from §4.4, keyed
// case-insensitively. Each entry validates arity and argument types; a
// NULL argument always short-circuits to a NULL result (aggregates are
// handled separately by the Aggregation iterator in eval/aggregate.go).
var scalarFunctions = map[string]func(args []core.Value) (core.Value, error){
	"toupper": func(a []core.Value) (core.Value, error) {
		return unaryString(a, strings.ToUpper)
	},
	"tolower": func(a []core.Value) (core.Value, error) {
		return unaryString(a, strings.ToLower)
	},
	"length": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 1, 1); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() {
			return core.Null(), nil
		}
		if a[0].Kind() != core.KindString {
			return core.Value{}, core.ErrTypeMismatch.New("length() requires a string")
		}
		return core.Int(int64(len([]rune(a[0].AsString())))), nil
	},
	"size": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 1, 1); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() {
			return core.Null(), nil
		}
		switch a[0].Kind() {
		case core.KindList:
			return core.Int(int64(len(a[0].AsList()))), nil
		case core.KindString:
			return core.Int(int64(len([]rune(a[0].AsString())))), nil
		default:
			return core.Value{}, core.ErrNotAList.New(a[0].Kind())
		}
	},
	"substring": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 2, 3); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() || a[1].IsNull() || (len(a) == 3 && a[2].IsNull()) {
			return core.Null(), nil
		}
		if a[0].Kind() != core.KindString || !a[1].IsNumeric() {
			return core.Value{}, core.ErrTypeMismatch.New("substring() requires (string, int[, int])")
		}
		runes := []rune(a[0].AsString())
		start := int(a[1].AsInt())
		if start < 0 {
			start = 0
		}
		if start > len(runes) {
			start = len(runes)
		}
		end := len(runes)
		if len(a) == 3 {
			if !a[2].IsNumeric() {
				return core.Value{}, core.ErrTypeMismatch.New("substring() length must be numeric")
			}
			end = start + int(a[2].AsInt())
			if end > len(runes) {
				end = len(runes)
			}
		}
		if end < start {
			end = start
		}
		return core.String(string(runes[start:end])), nil
	},
	"tostring": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 1, 1); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() {
			return core.Null(), nil
		}
		return core.String(a[0].String()), nil
	},
	"startswith": func(a []core.Value) (core.Value, error) {
		return stringPredicate(a, func(s, p string) bool { return strings.HasPrefix(s, p) })
	},
	"endswith": func(a []core.Value) (core.Value, error) {
		return stringPredicate(a, func(s, p string) bool { return strings.HasSuffix(s, p) })
	},
	"contains": func(a []core.Value) (core.Value, error) {
		return stringPredicate(a, func(s, p string) bool { return strings.Contains(s, p) })
	},
	"abs": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 1, 1); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() {
			return core.Null(), nil
		}
		if !a[0].IsNumeric() {
			return core.Value{}, core.ErrTypeMismatch.New("abs() requires a number")
		}
		if a[0].Kind() == core.KindInt {
			v := a[0].AsInt()
			if v < 0 {
				v = -v
			}
			return core.Int(v), nil
		}
		return core.Float(math.Abs(a[0].AsFloat())), nil
	},
	"ceil": func(a []core.Value) (core.Value, error) { return unaryMath(a, math.Ceil) },
	"floor": func(a []core.Value) (core.Value, error) { return unaryMath(a, math.Floor) },
	"round": func(a []core.Value) (core.Value, error) { return unaryMath(a, math.Round) },
	"sqrt": func(a []core.Value) (core.Value, error) { return unaryMath(a, math.Sqrt) },
	"keys": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 1, 1); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() {
			return core.Null(), nil
		}
		if a[0].Kind() != core.KindMap {
			return core.Value{}, core.ErrNotAMap.New(a[0].Kind())
		}
		m := a[0].AsMap()
		keys := make([]core.Value, 0, len(m))
		for k := range m {
			keys = append(keys, core.String(k))
		}
		return core.List(keys), nil
	},
	"head": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 1, 1); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() {
			return core.Null(), nil
		}
		if a[0].Kind() != core.KindList {
			return core.Value{}, core.ErrNotAList.New(a[0].Kind())
		}
		list := a[0].AsList()
		if len(list) == 0 {
			return core.Null(), nil
		}
		return list[0], nil
	},
	"tail": func(a []core.Value) (core.Value, error) {
		if err := arity(a, 1, 1); err != nil {
			return core.Value{}, err
		}
		if a[0].IsNull() {
			return core.Null(), nil
		}
		if a[0].Kind() != core.KindList {
			return core.Value{}, core.ErrNotAList.New(a[0].Kind())
		}
		list := a[0].AsList()
		if len(list) == 0 {
			return core.List(nil), nil
		}
		return core.List(append([]core.Value{}, list[1:]...)), nil
	},
}

func arity(args []core.Value, min, max int) error {
	if len(args) < min || len(args) > max {
		return core.ErrWrongArity.New("function", rangeText(min, max), len(args))
	}
	return nil
}

func rangeText(min, max int) string {
	if min == max {
		return itoa(min)
	}
	return itoa(min) + ".." + itoa(max)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func unaryString(a []core.Value, f func(string) string) (core.Value, error) {
	if err := arity(a, 1, 1); err != nil {
		return core.Value{}, err
	}
	if a[0].IsNull() {
		return core.Null(), nil
	}
	if a[0].Kind() != core.KindString {
		return core.Value{}, core.ErrTypeMismatch.New("expected a string argument")
	}
	return core.String(f(a[0].AsString())), nil
}

func unaryMath(a []core.Value, f func(float64) float64) (core.Value, error) {
	if err := arity(a, 1, 1); err != nil {
		return core.Value{}, err
	}
	if a[0].IsNull() {
		return core.Null(), nil
	}
	if !a[0].IsNumeric() {
		return core.Value{}, core.ErrTypeMismatch.New("expected a numeric argument")
	}
	return core.Float(f(a[0].Float64())), nil
}

func stringPredicate(a []core.Value, f func(s, p string) bool) (core.Value, error) {
	if err := arity(a, 2, 2); err != nil {
		return core.Value{}, err
	}
	if a[0].IsNull() || a[1].IsNull() {
		return core.Null(), nil
	}
	if a[0].Kind() != core.KindString || a[1].Kind() != core.KindString {
		return core.Value{}, core.ErrTypeMismatch.New("expected string arguments")
	}
	return core.Bool(f(a[0].AsString(), a[1].AsString())), nil
}

// aggregateNames lists the function names reserved for aggregation;
// the logical planner routes calls to these into an Aggregation
// operator rather than the plain scalar evaluator.
var aggregateNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "collect": true,
}

// IsAggregateFunction reports whether name (case-insensitive) names one
// of the built-in aggregate functions.
func IsAggregateFunction(name string) bool {
	return aggregateNames[strings.ToLower(name)]
}

func (e *Evaluator) evalCall(ctx *core.Context, n *ast.FunctionCall, binding core.Binding) (core.Value, error) {
	lname := strings.ToLower(n.Name)
	if IsAggregateFunction(lname) {
		return core.Value{}, core.ErrUndefinedFunction.New(n.Name + " (aggregate function used outside of an aggregation context)")
	}
	if lname == "size" && n.Star {
		return core.Value{}, core.ErrWrongArity.New(n.Name, "1", 0)
	}
	switch lname {
	case "id", "labels", "type":
		return e.evalGraphIntrospection(ctx, lname, n, binding)
	}
	fn, ok := scalarFunctions[lname]
	if !ok {
		return core.Value{}, core.ErrUndefinedFunction.New(n.Name)
	}
	args := make([]core.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.Eval(ctx, a, binding)
		if err != nil {
			return core.Value{}, err
		}
		args[i] = v
	}
	return fn(args)
}

// evalGraphIntrospection handles id()/labels()/type(), the graph-element
// identity functions (§8 Scenario S5 relies on id() to target a DELETE).
// Unlike the scalarFunctions map these need e.Graph to resolve a bound
// NODE/RELATIONSHIP value back to its stored labels or relationship type,
// so they're dispatched here rather than through fn(args).
func (e *Evaluator) evalGraphIntrospection(ctx *core.Context, lname string, n *ast.FunctionCall, binding core.Binding) (core.Value, error) {
	if len(n.Args) != 1 {
		return core.Value{}, core.ErrWrongArity.New(n.Name, "1", len(n.Args))
	}
	target, err := e.Eval(ctx, n.Args[0], binding)
	if err != nil {
		return core.Value{}, err
	}
	if target.IsNull() {
		return core.Null(), nil
	}

	switch lname {
	case "id":
		switch target.Kind() {
		case core.KindNode:
			return core.Int(target.AsNodeID()), nil
		case core.KindRelationship:
			return core.Int(target.AsRelationshipID()), nil
		default:
			return core.Value{}, core.ErrTypeMismatch.New("id() requires a node or relationship")
		}
	case "labels":
		if target.Kind() != core.KindNode {
			return core.Value{}, core.ErrTypeMismatch.New("labels() requires a node")
		}
		node, ok, err := e.Graph.NodeByID(ctx, target.AsNodeID())
		if err != nil {
			return core.Value{}, err
		}
		if !ok {
			return core.Null(), nil
		}
		labels := make([]core.Value, len(node.Labels))
		for i, l := range node.Labels {
			labels[i] = core.String(l)
		}
		return core.List(labels), nil
	default: // "type"
		if target.Kind() != core.KindRelationship {
			return core.Value{}, core.ErrTypeMismatch.New("type() requires a relationship")
		}
		edge, ok, err := e.Graph.EdgeByID(ctx, target.AsRelationshipID())
		if err != nil {
			return core.Value{}, err
		}
		if !ok {
			return core.Null(), nil
		}
		return core.String(edge.Type), nil
	}
}
