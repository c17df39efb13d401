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

package rowexec

import (
	"io"

	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/eval"
	"github.com/cypherdb/graphengine/plan"
)

// createIter materializes its (typically small, often single-row from
// UnitScan) input and, for each row, creates every CreateItem in
// pattern order so that relationship items can reference node
// variables created earlier in the same CREATE clause.
type createIter struct {
	g         GraphStore
	items     []plan.CreateItem
	in        BindingIter
	evaluator *eval.Evaluator

	out   []core.Binding
	pos   int
	built bool
}

func newCreateIter(g GraphStore, items []plan.CreateItem, in BindingIter, evaluator *eval.Evaluator) *createIter {
	return &createIter{g: g, items: items, in: in, evaluator: evaluator}
}

func (it *createIter) build(ctx *core.Context) error {
	rows, err := drainAll(ctx, it.in)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		rows = []core.Binding{core.NewBinding()}
	}
	for _, b := range rows {
		cur := b.Copy()
		for _, item := range it.items {
			if item.IsNode {
				if _, bound := cur[item.Variable]; item.Variable != "" && bound {
					continue // node variable already matched by an earlier clause
				}
				props, err := evalMapLiteral(ctx, it.evaluator, item.Properties, cur)
				if err != nil {
					return err
				}
				id, err := it.g.AddNode(ctx, nil, item.Labels, props)
				if err != nil {
					return err
				}
				if item.Variable != "" {
					cur = cur.With(item.Variable, core.NodeRef(id))
				}
				continue
			}
			fromVal, ok := cur[item.FromVar]
			if !ok {
				return core.ErrUndefinedVariable.New(item.FromVar)
			}
			toVal, ok := cur[item.ToVar]
			if !ok {
				return core.ErrUndefinedVariable.New(item.ToVar)
			}
			source, target := fromVal.AsNodeID(), toVal.AsNodeID()
			if item.Direction == ast.DirIn {
				source, target = target, source
			}
			props, err := evalMapLiteral(ctx, it.evaluator, item.Properties, cur)
			if err != nil {
				return err
			}
			id, err := it.g.AddEdge(ctx, nil, source, target, item.RelType, 1.0, props)
			if err != nil {
				return err
			}
			if item.Variable != "" {
				cur = cur.With(item.Variable, core.RelationshipRef(id))
			}
		}
		it.out = append(it.out, cur)
	}
	it.built = true
	return nil
}

func evalMapLiteral(ctx *core.Context, evaluator *eval.Evaluator, m *ast.MapLiteral, binding core.Binding) (map[string]core.Value, error) {
	if m == nil {
		return map[string]core.Value{}, nil
	}
	out := make(map[string]core.Value, len(m.Pairs))
	for _, pair := range m.Pairs {
		v, err := evaluator.Eval(ctx, pair.Value, binding)
		if err != nil {
			return nil, err
		}
		out[pair.Key] = v
	}
	return out, nil
}

func (it *createIter) Next(ctx *core.Context) (core.Binding, error) {
	if !it.built {
		if err := it.build(ctx); err != nil {
			return nil, err
		}
	}
	if it.pos >= len(it.out) {
		return nil, io.EOF
	}
	b := it.out[it.pos]
	it.pos++
	return b, nil
}

func (it *createIter) Close(ctx *core.Context) error { return nil }

// setPropertiesIter applies SET items to the bound node/relationship of
// each input row, passing the row through unchanged for downstream
// RETURN clauses (§4.5: SET is a pass-through mutation).
type setPropertiesIter struct {
	g         GraphStore
	items     []plan.SetItem
	in        BindingIter
	evaluator *eval.Evaluator
}

func newSetPropertiesIter(g GraphStore, items []plan.SetItem, in BindingIter, evaluator *eval.Evaluator) *setPropertiesIter {
	return &setPropertiesIter{g: g, items: items, in: in, evaluator: evaluator}
}

func (it *setPropertiesIter) Next(ctx *core.Context) (core.Binding, error) {
	b, err := it.in.Next(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range it.items {
		target, ok := b[item.Variable]
		if !ok {
			return nil, core.ErrUndefinedVariable.New(item.Variable)
		}
		if target.Kind() != core.KindNode {
			return nil, core.ErrTypeMismatch.New("SET target must be a node")
		}
		id := target.AsNodeID()
		switch {
		case len(item.Labels) > 0:
			for _, l := range item.Labels {
				if err := it.g.AddLabel(ctx, id, l); err != nil {
					return nil, err
				}
			}
		case item.Property != "":
			v, err := it.evaluator.Eval(ctx, item.Expr, b)
			if err != nil {
				return nil, err
			}
			if err := it.g.MergeNodeProperties(ctx, id, map[string]core.Value{item.Property: v}); err != nil {
				return nil, err
			}
		case item.IsMap:
			v, err := it.evaluator.Eval(ctx, item.Expr, b)
			if err != nil {
				return nil, err
			}
			if v.Kind() != core.KindMap {
				return nil, core.ErrNotAMap.New(v.Kind())
			}
			if err := it.g.UpdateNodeProperties(ctx, id, v.AsMap()); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func (it *setPropertiesIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// removePropertiesIter applies REMOVE items (drop a property or a
// label) to each input row's bound node.
type removePropertiesIter struct {
	g     GraphStore
	items []plan.RemoveItem
	in    BindingIter
}

func newRemovePropertiesIter(g GraphStore, items []plan.RemoveItem, in BindingIter) *removePropertiesIter {
	return &removePropertiesIter{g: g, items: items, in: in}
}

func (it *removePropertiesIter) Next(ctx *core.Context) (core.Binding, error) {
	b, err := it.in.Next(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range it.items {
		target, ok := b[item.Variable]
		if !ok {
			return nil, core.ErrUndefinedVariable.New(item.Variable)
		}
		if target.Kind() != core.KindNode {
			return nil, core.ErrTypeMismatch.New("REMOVE target must be a node")
		}
		id := target.AsNodeID()
		if item.Label != "" {
			if err := it.g.RemoveLabel(ctx, id, item.Label); err != nil {
				return nil, err
			}
			continue
		}
		if item.Property != "" {
			node, ok, err := it.g.NodeByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			delete(node.Properties, item.Property)
			if err := it.g.UpdateNodeProperties(ctx, id, node.Properties); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func (it *removePropertiesIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// deleteIter deletes the bound node/relationship targets of each input
// row. Detach=false fails with CONSTRAINT if a targeted node still has
// edges (Testable Property 7); Detach=true cascades.
type deleteIter struct {
	g         GraphStore
	exprs     []ast.Expr
	detach    bool
	in        BindingIter
	evaluator *eval.Evaluator
}

func newDeleteIter(g GraphStore, exprs []ast.Expr, detach bool, in BindingIter, evaluator *eval.Evaluator) *deleteIter {
	return &deleteIter{g: g, exprs: exprs, detach: detach, in: in, evaluator: evaluator}
}

func (it *deleteIter) Next(ctx *core.Context) (core.Binding, error) {
	b, err := it.in.Next(ctx)
	if err != nil {
		return nil, err
	}
	for _, expr := range it.exprs {
		v, err := it.evaluator.Eval(ctx, expr, b)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		switch v.Kind() {
		case core.KindNode:
			if err := it.g.DeleteNode(ctx, v.AsNodeID(), it.detach); err != nil {
				return nil, err
			}
		case core.KindRelationship:
			if err := it.g.DeleteEdge(ctx, v.AsRelationshipID()); err != nil {
				return nil, err
			}
		default:
			return nil, core.ErrTypeMismatch.New("DELETE target must be a node or relationship")
		}
	}
	return b, nil
}

func (it *deleteIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }
