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
	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/eval"
)

// mergeIter implements MERGE (§4.5/§9): for each input row, match the
// pattern's nodes and relationship against the graph; any element not
// already found is created. ON MATCH SET applies when every element
// was found; ON CREATE SET applies when any element had to be created.
type mergeIter struct {
	g         GraphStore
	pattern   *ast.PatternPath
	onMatch   []ast.SetItem
	onCreate  []ast.SetItem
	in        BindingIter
	evaluator *eval.Evaluator
}

func newMergeIter(g GraphStore, pattern *ast.PatternPath, onMatch, onCreate []ast.SetItem, in BindingIter, evaluator *eval.Evaluator) *mergeIter {
	return &mergeIter{g: g, pattern: pattern, onMatch: onMatch, onCreate: onCreate, in: in, evaluator: evaluator}
}

func (it *mergeIter) Next(ctx *core.Context) (core.Binding, error) {
	b, err := it.in.Next(ctx)
	if err != nil {
		return nil, err
	}
	cur := b.Copy()
	anyCreated := false

	nodeIDs := make([]int64, len(it.pattern.Nodes))
	for i, n := range it.pattern.Nodes {
		if existing, ok := cur[n.Variable]; n.Variable != "" && ok {
			nodeIDs[i] = existing.AsNodeID()
			continue
		}
		id, created, err := it.matchOrCreateNode(ctx, n, cur)
		if err != nil {
			return nil, err
		}
		nodeIDs[i] = id
		anyCreated = anyCreated || created
		if n.Variable != "" {
			cur = cur.With(n.Variable, core.NodeRef(id))
		}
	}

	for i, rel := range it.pattern.Rels {
		source, target := nodeIDs[i], nodeIDs[i+1]
		if rel.Direction == ast.DirIn {
			source, target = target, source
		}
		relType := ""
		if len(rel.Types) > 0 {
			relType = rel.Types[0]
		}
		id, created, err := it.matchOrCreateEdge(ctx, source, target, relType)
		if err != nil {
			return nil, err
		}
		anyCreated = anyCreated || created
		if rel.Variable != "" {
			cur = cur.With(rel.Variable, core.RelationshipRef(id))
		}
	}

	items := it.onMatch
	if anyCreated {
		items = it.onCreate
	}
	for _, item := range items {
		if err := it.applySetItem(ctx, item, cur); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (it *mergeIter) matchOrCreateNode(ctx *core.Context, n *ast.NodePattern, binding core.Binding) (int64, bool, error) {
	props, err := evalMapLiteral(ctx, it.evaluator, n.Properties, binding)
	if err != nil {
		return 0, false, err
	}
	var candidates []*core.Node
	if len(n.Labels) > 0 {
		candidates, err = it.g.FindNodesByLabel(ctx, n.Labels[0])
	} else {
		candidates, err = it.g.AllNodes(ctx)
	}
	if err != nil {
		return 0, false, err
	}
	for _, c := range candidates {
		if nodeMatches(c, n.Labels, props) {
			return c.ID, false, nil
		}
	}
	id, err := it.g.AddNode(ctx, nil, n.Labels, props)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func nodeMatches(n *core.Node, labels []string, props map[string]core.Value) bool {
	for _, l := range labels {
		if !n.HasLabel(l) {
			return false
		}
	}
	for k, v := range props {
		nv, ok := n.Properties[k]
		if !ok || !nv.Equal(v) {
			return false
		}
	}
	return true
}

func (it *mergeIter) matchOrCreateEdge(ctx *core.Context, source, target int64, relType string) (int64, bool, error) {
	edges, err := it.g.IterOutgoing(ctx, source, relType)
	if err != nil {
		return 0, false, err
	}
	for _, e := range edges {
		if e.Target == target {
			return e.ID, false, nil
		}
	}
	id, err := it.g.AddEdge(ctx, nil, source, target, relType, 1.0, nil)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (it *mergeIter) applySetItem(ctx *core.Context, item ast.SetItem, binding core.Binding) error {
	target, ok := binding[item.Variable]
	if !ok || target.Kind() != core.KindNode {
		return nil
	}
	id := target.AsNodeID()
	switch {
	case len(item.Labels) > 0:
		for _, l := range item.Labels {
			if err := it.g.AddLabel(ctx, id, l); err != nil {
				return err
			}
		}
	case item.Property != "":
		v, err := it.evaluator.Eval(ctx, item.Expr, binding)
		if err != nil {
			return err
		}
		return it.g.MergeNodeProperties(ctx, id, map[string]core.Value{item.Property: v})
	case item.Expr != nil:
		v, err := it.evaluator.Eval(ctx, item.Expr, binding)
		if err != nil {
			return err
		}
		if v.Kind() == core.KindMap {
			return it.g.UpdateNodeProperties(ctx, id, v.AsMap())
		}
	}
	return nil
}

func (it *mergeIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }
