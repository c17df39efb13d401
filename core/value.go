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

package core

import (
	"fmt"
	"math"
	"sort"
)

// ValueKind tags the runtime value union described in the data model.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindNode
	KindRelationship
	KindPath
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOLEAN"
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindList:
		return "LIST"
	case KindMap:
		return "MAP"
	case KindNode:
		return "NODE"
	case KindRelationship:
		return "RELATIONSHIP"
	case KindPath:
		return "PATH"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged union over the property and expression value
// domain: null, boolean, 64-bit integer, 64-bit float, string, list,
// map, node/relationship reference, and path.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
	path *PathValue
}

// PathValue is an alternating node/edge reference sequence of odd
// length >= 1 (a single node is a path of length 0).
type PathValue struct {
	NodeIDs []int64
	EdgeIDs []int64
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func List(vs []Value) Value      { return Value{kind: KindList, list: vs} }
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, m: m}
}
func NodeRef(id int64) Value          { return Value{kind: KindNode, i: id} }
func RelationshipRef(id int64) Value  { return Value{kind: KindRelationship, i: id} }
func Path(p PathValue) Value          { return Value{kind: KindPath, path: &p} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) AsBool() bool            { return v.b }
func (v Value) AsInt() int64            { return v.i }
func (v Value) AsFloat() float64        { return v.f }
func (v Value) AsString() string        { return v.s }
func (v Value) AsList() []Value         { return v.list }
func (v Value) AsMap() map[string]Value { return v.m }
func (v Value) AsNodeID() int64         { return v.i }
func (v Value) AsRelationshipID() int64 { return v.i }
func (v Value) AsPath() PathValue       { return *v.path }

// IsNumeric reports whether v is an Int or Float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Float64 returns v as a float64, coercing Int->Float. Only valid when
// IsNumeric() is true.
func (v Value) Float64() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Equal implements value equality per §4.3: same type, structurally
// equal. NULL participates in three-valued comparisons via Compare, not
// here — Equal is the two-valued structural notion used for IN, DISTINCT,
// and map/list element comparisons.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		// Int/Float mixed equality is numeric, handled in Compare; Equal
		// mirrors that single special case since list/map members reuse it.
		if v.IsNumeric() && o.IsNumeric() {
			return v.Float64() == o.Float64()
		}
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindNode, KindRelationship:
		return v.i == o.i
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, vv := range v.m {
			ov, ok := o.m[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	case KindPath:
		if len(v.path.NodeIDs) != len(o.path.NodeIDs) || len(v.path.EdgeIDs) != len(o.path.EdgeIDs) {
			return false
		}
		for i := range v.path.NodeIDs {
			if v.path.NodeIDs[i] != o.path.NodeIDs[i] {
				return false
			}
		}
		for i := range v.path.EdgeIDs {
			if v.path.EdgeIDs[i] != o.path.EdgeIDs[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Compare implements the total order for numeric/string types described
// in §4.3. It returns (cmp, nullResult, err): when either operand is
// NULL, nullResult is true and cmp is meaningless (three-valued logic);
// mixing incompatible non-null types returns ErrIncomparableType.
func (v Value) Compare(o Value) (int, bool, error) {
	if v.IsNull() || o.IsNull() {
		return 0, true, nil
	}
	switch {
	case v.IsNumeric() && o.IsNumeric():
		a, b := v.Float64(), o.Float64()
		switch {
		case a < b:
			return -1, false, nil
		case a > b:
			return 1, false, nil
		default:
			return 0, false, nil
		}
	case v.kind == KindString && o.kind == KindString:
		switch {
		case v.s < o.s:
			return -1, false, nil
		case v.s > o.s:
			return 1, false, nil
		default:
			return 0, false, nil
		}
	case v.kind == KindBool && o.kind == KindBool:
		if v.b == o.b {
			return 0, false, nil
		}
		if !v.b && o.b {
			return -1, false, nil
		}
		return 1, false, nil
	default:
		return 0, false, ErrIncomparableType.New(v.kind, o.kind)
	}
}

// Arithmetic applies a binary arithmetic operator per §4.3: Int x Int
// -> Int except / and ^ which always yield Float; any Float operand
// promotes the other; any NULL operand yields NULL; division/modulo by
// zero yield NULL (never an error); + is additionally defined for
// String concatenation and List concatenation.
func Arithmetic(op string, a, b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}
	if op == "+" {
		if a.kind == KindString || b.kind == KindString {
			return String(a.stringify() + b.stringify()), nil
		}
		if a.kind == KindList || b.kind == KindList {
			return List(append(append([]Value{}, a.list...), b.list...)), nil
		}
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return Value{}, ErrTypeMismatch.New(fmt.Sprintf("%s %s %s", a.kind, op, b.kind))
	}

	bothInt := a.kind == KindInt && b.kind == KindInt
	switch op {
	case "+":
		if bothInt {
			return Int(a.i + b.i), nil
		}
		return Float(a.Float64() + b.Float64()), nil
	case "-":
		if bothInt {
			return Int(a.i - b.i), nil
		}
		return Float(a.Float64() - b.Float64()), nil
	case "*":
		if bothInt {
			return Int(a.i * b.i), nil
		}
		return Float(a.Float64() * b.Float64()), nil
	case "/":
		if b.Float64() == 0 {
			return Null(), nil
		}
		return Float(a.Float64() / b.Float64()), nil
	case "%":
		if bothInt {
			if b.i == 0 {
				return Null(), nil
			}
			return Int(a.i % b.i), nil
		}
		if b.Float64() == 0 {
			return Null(), nil
		}
		return Float(math.Mod(a.Float64(), b.Float64())), nil
	case "^":
		return Float(math.Pow(a.Float64(), b.Float64())), nil
	default:
		return Value{}, ErrTypeMismatch.New("unknown operator " + op)
	}
}

func (v Value) stringify() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%v", v.f)
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	default:
		return ""
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	default:
		return v.stringify()
	}
}

// SortValues sorts a slice of values using Compare, with NULLs last —
// used by Sort and ORDER BY; stable to satisfy Testable Property 9.
func SortValues(vals []Value, desc bool) {
	sort.SliceStable(vals, func(i, j int) bool {
		a, b := vals[i], vals[j]
		if a.IsNull() {
			return false
		}
		if b.IsNull() {
			return true
		}
		cmp, _, err := a.Compare(b)
		if err != nil {
			return false
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}
