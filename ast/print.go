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

package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cypherdb/graphengine/core"
)

// Print renders an AST back into Cypher source text. It is not required
// to reproduce the original formatting, only a string that reparses to
// an equal AST (modulo Position), satisfying the parse round-trip
// property (Testable Property 2).
func Print(q *Query) string {
	var sb strings.Builder
	sb.WriteString(printSingleQuery(q.First))
	for _, u := range q.Unions {
		sb.WriteString(" UNION ")
		if u.All {
			sb.WriteString("ALL ")
		}
		sb.WriteString(printSingleQuery(u.Query))
	}
	return sb.String()
}

func printSingleQuery(sq *SingleQuery) string {
	parts := make([]string, 0, len(sq.Clauses))
	for _, c := range sq.Clauses {
		parts = append(parts, printClause(c))
	}
	return strings.Join(parts, " ")
}

func printClause(c Clause) string {
	switch n := c.(type) {
	case *Match:
		s := ""
		if n.Optional {
			s += "OPTIONAL "
		}
		s += "MATCH " + printPatternList(n.Patterns)
		if n.Where != nil {
			s += " WHERE " + printExpr(n.Where)
		}
		return s
	case *With:
		s := "WITH "
		if n.Distinct {
			s += "DISTINCT "
		}
		s += printProjectionList(n.Items)
		s += printOrderSkipLimit(n.OrderBy, n.Skip, n.Limit)
		if n.Where != nil {
			s += " WHERE " + printExpr(n.Where)
		}
		return s
	case *Return:
		s := "RETURN "
		if n.Distinct {
			s += "DISTINCT "
		}
		s += printProjectionList(n.Items)
		s += printOrderSkipLimit(n.OrderBy, n.Skip, n.Limit)
		return s
	case *Create:
		return "CREATE " + printPatternList(n.Patterns)
	case *Merge:
		return "MERGE " + printPattern(n.Pattern)
	case *SetClause:
		items := make([]string, len(n.Items))
		for i, it := range n.Items {
			items[i] = printSetItem(it)
		}
		return "SET " + strings.Join(items, ", ")
	case *RemoveClause:
		items := make([]string, len(n.Items))
		for i, it := range n.Items {
			if it.Label != "" {
				items[i] = fmt.Sprintf("%s:%s", it.Variable, it.Label)
			} else {
				items[i] = fmt.Sprintf("%s.%s", it.Variable, it.Property)
			}
		}
		return "REMOVE " + strings.Join(items, ", ")
	case *DeleteClause:
		s := ""
		if n.Detach {
			s += "DETACH "
		}
		exprs := make([]string, len(n.Exprs))
		for i, e := range n.Exprs {
			exprs[i] = printExpr(e)
		}
		return s + "DELETE " + strings.Join(exprs, ", ")
	}
	return ""
}

func printSetItem(it *SetItem) string {
	if len(it.Labels) > 0 {
		return it.Variable + ":" + strings.Join(it.Labels, ":")
	}
	if it.Property != "" {
		return fmt.Sprintf("%s.%s = %s", it.Variable, it.Property, printExpr(it.Expr))
	}
	return fmt.Sprintf("%s = %s", it.Variable, printExpr(it.Expr))
}

func printOrderSkipLimit(order []*SortItem, skip, limit Expr) string {
	var sb strings.Builder
	if len(order) > 0 {
		items := make([]string, len(order))
		for i, o := range order {
			items[i] = printExpr(o.Expr)
			if o.Desc {
				items[i] += " DESC"
			}
		}
		sb.WriteString(" ORDER BY " + strings.Join(items, ", "))
	}
	if skip != nil {
		sb.WriteString(" SKIP " + printExpr(skip))
	}
	if limit != nil {
		sb.WriteString(" LIMIT " + printExpr(limit))
	}
	return sb.String()
}

func printProjectionList(items []*ProjectionItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if it.Star {
			parts[i] = "*"
			continue
		}
		s := printExpr(it.Expr)
		if it.Alias != "" {
			s += " AS " + it.Alias
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

func printPatternList(paths []*PatternPath) string {
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = printPattern(p)
	}
	return strings.Join(parts, ", ")
}

func printPattern(p *PatternPath) string {
	var sb strings.Builder
	if p.Variable != "" {
		sb.WriteString(p.Variable + " = ")
	}
	sb.WriteString(printNodePattern(p.Nodes[0]))
	for i, rel := range p.Rels {
		sb.WriteString(printRelPattern(rel))
		sb.WriteString(printNodePattern(p.Nodes[i+1]))
	}
	return sb.String()
}

func printNodePattern(n *NodePattern) string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(n.Variable)
	for _, l := range n.Labels {
		sb.WriteString(":" + l)
	}
	if n.Properties != nil {
		sb.WriteString(" " + printMapLiteral(n.Properties))
	}
	sb.WriteByte(')')
	return sb.String()
}

func printRelPattern(r *RelPattern) string {
	var sb strings.Builder
	if r.Direction == DirIn {
		sb.WriteString("<-")
	} else if r.Direction == DirBoth {
		sb.WriteString("<-")
	} else {
		sb.WriteString("-")
	}
	sb.WriteByte('[')
	sb.WriteString(r.Variable)
	if len(r.Types) > 0 {
		sb.WriteString(":" + strings.Join(r.Types, "|"))
	}
	if r.VarLength {
		sb.WriteString("*")
		if r.MinHops != nil {
			sb.WriteString(strconv.Itoa(*r.MinHops))
			if r.MaxHops == nil {
				sb.WriteString("..")
			} else if *r.MaxHops != *r.MinHops {
				sb.WriteString(".." + strconv.Itoa(*r.MaxHops))
			}
		}
	}
	if r.Properties != nil {
		sb.WriteString(" " + printMapLiteral(r.Properties))
	}
	sb.WriteByte(']')
	if r.Direction == DirOut || r.Direction == DirBoth {
		sb.WriteString("->")
	} else {
		sb.WriteString("-")
	}
	return sb.String()
}

func printMapLiteral(m *MapLiteral) string {
	parts := make([]string, len(m.Pairs))
	for i, pair := range m.Pairs {
		parts[i] = pair.Key + ":" + printExpr(pair.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func printExpr(e Expr) string {
	switch n := e.(type) {
	case *Identifier:
		return n.Name
	case *Parameter:
		return "$" + n.Name
	case *Literal:
		return printLiteralValue(n)
	case *ListLiteral:
		parts := make([]string, len(n.Items))
		for i, it := range n.Items {
			parts[i] = printExpr(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *MapLiteral:
		return printMapLiteral(n)
	case *UnaryOp:
		return n.Op + printExpr(n.Operand)
	case *Not:
		return "NOT " + printExpr(n.Operand)
	case *BinaryOp:
		return fmt.Sprintf("(%s %s %s)", printExpr(n.Left), n.Op, printExpr(n.Right))
	case *StringMatch:
		return fmt.Sprintf("(%s %s %s)", printExpr(n.Left), n.Op, printExpr(n.Right))
	case *InExpr:
		return fmt.Sprintf("(%s IN %s)", printExpr(n.Operand), printExpr(n.List))
	case *IsNullExpr:
		if n.Negated {
			return printExpr(n.Operand) + " IS NOT NULL"
		}
		return printExpr(n.Operand) + " IS NULL"
	case *RegexMatch:
		return fmt.Sprintf("(%s =~ %s)", printExpr(n.Left), printExpr(n.Right))
	case *Property:
		return printExpr(n.Target) + "." + n.Property
	case *Index:
		return printExpr(n.Target) + "[" + printExpr(n.Index) + "]"
	case *FunctionCall:
		if n.Star {
			return n.Name + "(*)"
		}
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = printExpr(a)
		}
		prefix := ""
		if n.Distinct {
			prefix = "DISTINCT "
		}
		return n.Name + "(" + prefix + strings.Join(args, ", ") + ")"
	case *Case:
		var sb strings.Builder
		sb.WriteString("case ")
		if n.Test != nil {
			sb.WriteString(printExpr(n.Test) + " ")
		}
		for _, w := range n.Whens {
			sb.WriteString("when " + printExpr(w.Cond) + " then " + printExpr(w.Result) + " ")
		}
		if n.Default != nil {
			sb.WriteString("else " + printExpr(n.Default) + " ")
		}
		sb.WriteString("end")
		return sb.String()
	}
	return ""
}

func printLiteralValue(l *Literal) string {
	v := l.Value
	switch v.Kind() {
	case core.KindNull:
		return "null"
	case core.KindBool:
		return strconv.FormatBool(v.AsBool())
	case core.KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case core.KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case core.KindString:
		return strconv.Quote(v.AsString())
	default:
		return ""
	}
}
