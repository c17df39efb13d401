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
)

// expandIter performs the single-hop traversal described in §4.7: for
// each input binding, enumerate the candidate edges out of FromVar (in
// Direction, restricted to RelTypes) and emit one binding per
// (edge, other-endpoint) pair. ToVarBound verifies against an already
// bound value rather than introducing a fresh one. Optional emits a
// single all-NULL binding when a bound row has zero matches.
type expandIter struct {
	g   GraphStore
	op  *expandSpec
	in  BindingIter

	cur        core.Binding
	pending    []*core.Edge
	pendingI   int
	emittedAny bool
}

type expandSpec struct {
	FromVar    string
	ToVar      string
	RelVar     string
	RelTypes   []string
	Direction  ast.Direction
	Optional   bool
	ToVarBound bool
}

func newExpandIter(g GraphStore, spec *expandSpec, in BindingIter) *expandIter {
	return &expandIter{g: g, op: spec, in: in}
}

func (it *expandIter) Next(ctx *core.Context) (core.Binding, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		if it.cur == nil {
			next, err := it.in.Next(ctx)
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, err
			}
			it.cur = next
			edges, err := it.candidateEdges(ctx, next)
			if err != nil {
				return nil, err
			}
			it.pending = edges
			it.pendingI = 0
			it.emittedAny = false
		}

		for it.pendingI < len(it.pending) {
			e := it.pending[it.pendingI]
			it.pendingI++
			other := e.OtherEndpoint(it.cur[it.op.FromVar].AsNodeID())
			if it.op.ToVarBound {
				existing, ok := it.cur[it.op.ToVar]
				if !ok || existing.AsNodeID() != other {
					continue
				}
			}
			out := it.cur
			if !it.op.ToVarBound {
				out = out.With(it.op.ToVar, core.NodeRef(other))
			}
			if it.op.RelVar != "" {
				out = out.With(it.op.RelVar, core.RelationshipRef(e.ID))
			}
			it.emittedAny = true
			return out, nil
		}

		if it.op.Optional && !it.emittedAny {
			out := it.cur.With(it.op.ToVar, core.Null())
			if it.op.RelVar != "" {
				out = out.With(it.op.RelVar, core.Null())
			}
			it.emittedAny = true
			it.cur = nil
			return out, nil
		}
		it.cur = nil
	}
}

func (it *expandIter) candidateEdges(ctx *core.Context, b core.Binding) ([]*core.Edge, error) {
	fromVal, ok := b[it.op.FromVar]
	if !ok || fromVal.IsNull() {
		return nil, nil
	}
	fromID := fromVal.AsNodeID()
	relType := ""
	if len(it.op.RelTypes) == 1 {
		relType = it.op.RelTypes[0]
	}
	var out []*core.Edge
	switch it.op.Direction {
	case ast.DirOut:
		edges, err := it.g.IterOutgoing(ctx, fromID, relType)
		if err != nil {
			return nil, err
		}
		out = filterByTypes(edges, it.op.RelTypes)
	case ast.DirIn:
		edges, err := it.g.IterIncoming(ctx, fromID, relType)
		if err != nil {
			return nil, err
		}
		out = filterByTypes(edges, it.op.RelTypes)
	default: // DirBoth or DirNone: any direction
		outEdges, err := it.g.IterOutgoing(ctx, fromID, relType)
		if err != nil {
			return nil, err
		}
		inEdges, err := it.g.IterIncoming(ctx, fromID, relType)
		if err != nil {
			return nil, err
		}
		out = append(filterByTypes(outEdges, it.op.RelTypes), filterByTypes(inEdges, it.op.RelTypes)...)
	}
	return out, nil
}

func filterByTypes(edges []*core.Edge, types []string) []*core.Edge {
	if len(types) <= 1 {
		return edges
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	var out []*core.Edge
	for _, e := range edges {
		if set[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

func (it *expandIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }

// varLengthExpandIter performs bounded breadth-first enumeration of all
// simple paths (no repeated relationship) between MinHops and MaxHops
// long, per §4.7's var-length semantics and §5's hop cap.
type varLengthExpandIter struct {
	g    GraphStore
	op   *varLengthSpec
	in   BindingIter
	pending []varLengthResult
	pendingI int
}

type varLengthSpec struct {
	FromVar   string
	ToVar     string
	RelVar    string
	PathVar   string
	RelTypes  []string
	Direction ast.Direction
	MinHops   int
	MaxHops   int
	Optional  bool
}

type varLengthResult struct {
	base    core.Binding
	nodeIDs []int64
	edgeIDs []int64
}

func newVarLengthExpandIter(g GraphStore, spec *varLengthSpec, in BindingIter) *varLengthExpandIter {
	return &varLengthExpandIter{g: g, op: spec, in: in}
}

func (it *varLengthExpandIter) Next(ctx *core.Context) (core.Binding, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		if it.pendingI < len(it.pending) {
			r := it.pending[it.pendingI]
			it.pendingI++
			return it.materialize(r), nil
		}
		next, err := it.in.Next(ctx)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		results, err := it.search(ctx, next)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 && it.op.Optional {
			it.pending = []varLengthResult{{base: next, nodeIDs: nil, edgeIDs: nil}}
		} else {
			it.pending = results
		}
		it.pendingI = 0
	}
}

// search performs the capped BFS from the FromVar node, enumerating
// every simple path whose hop count falls in [MinHops, MaxHops]
// (MaxHops<0 meaning "use the configured cap", resolved here against
// ctx.Limits.MaxExpandDepth per §5).
func (it *varLengthExpandIter) search(ctx *core.Context, b core.Binding) ([]varLengthResult, error) {
	fromVal, ok := b[it.op.FromVar]
	if !ok || fromVal.IsNull() {
		return nil, nil
	}
	maxHops := it.op.MaxHops
	if maxHops < 0 || maxHops > ctx.Limits.MaxExpandDepth {
		maxHops = ctx.Limits.MaxExpandDepth
	}
	type frame struct {
		nodeIDs []int64
		edgeIDs []int64
	}
	start := frame{nodeIDs: []int64{fromVal.AsNodeID()}}
	queue := []frame{start}
	var results []varLengthResult

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		depth := len(f.edgeIDs)
		if depth >= it.op.MinHops && depth > 0 {
			results = append(results, varLengthResult{base: b, nodeIDs: append([]int64{}, f.nodeIDs...), edgeIDs: append([]int64{}, f.edgeIDs...)})
		}
		if depth >= maxHops {
			continue
		}
		cur := f.nodeIDs[len(f.nodeIDs)-1]
		relType := ""
		if len(it.op.RelTypes) == 1 {
			relType = it.op.RelTypes[0]
		}
		var candidates []*core.Edge
		switch it.op.Direction {
		case ast.DirOut:
			edges, err := it.g.IterOutgoing(ctx, cur, relType)
			if err != nil {
				return nil, err
			}
			candidates = filterByTypes(edges, it.op.RelTypes)
		case ast.DirIn:
			edges, err := it.g.IterIncoming(ctx, cur, relType)
			if err != nil {
				return nil, err
			}
			candidates = filterByTypes(edges, it.op.RelTypes)
		default:
			out, err := it.g.IterOutgoing(ctx, cur, relType)
			if err != nil {
				return nil, err
			}
			in, err := it.g.IterIncoming(ctx, cur, relType)
			if err != nil {
				return nil, err
			}
			candidates = append(filterByTypes(out, it.op.RelTypes), filterByTypes(in, it.op.RelTypes)...)
		}
		for _, e := range candidates {
			if containsInt64(f.edgeIDs, e.ID) {
				continue // simple path: no repeated relationship
			}
			other := e.OtherEndpoint(cur)
			queue = append(queue, frame{
				nodeIDs: append(append([]int64{}, f.nodeIDs...), other),
				edgeIDs: append(append([]int64{}, f.edgeIDs...), e.ID),
			})
		}
	}
	return results, nil
}

func containsInt64(xs []int64, x int64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (it *varLengthExpandIter) materialize(r varLengthResult) core.Binding {
	out := r.base
	if len(r.nodeIDs) == 0 {
		out = out.With(it.op.ToVar, core.Null())
		if it.op.RelVar != "" {
			out = out.With(it.op.RelVar, core.Null())
		}
		if it.op.PathVar != "" {
			out = out.With(it.op.PathVar, core.Null())
		}
		return out
	}
	out = out.With(it.op.ToVar, core.NodeRef(r.nodeIDs[len(r.nodeIDs)-1]))
	if it.op.RelVar != "" {
		rels := make([]core.Value, len(r.edgeIDs))
		for i, id := range r.edgeIDs {
			rels[i] = core.RelationshipRef(id)
		}
		out = out.With(it.op.RelVar, core.List(rels))
	}
	if it.op.PathVar != "" {
		out = out.With(it.op.PathVar, core.Path(core.PathValue{NodeIDs: r.nodeIDs, EdgeIDs: r.edgeIDs}))
	}
	return out
}

func (it *varLengthExpandIter) Close(ctx *core.Context) error { return it.in.Close(ctx) }
