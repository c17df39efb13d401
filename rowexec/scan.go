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

	"github.com/cypherdb/graphengine/core"
)

// GraphStore is the read/write surface rowexec needs from the storage
// adapter; storage.GraphStore satisfies it.
type GraphStore interface {
	AllNodes(ctx *core.Context) ([]*core.Node, error)
	AllEdges(ctx *core.Context) ([]*core.Edge, error)
	FindNodesByLabel(ctx *core.Context, label string) ([]*core.Node, error)
	FindEdgesByType(ctx *core.Context, relType string) ([]*core.Edge, error)
	IterOutgoing(ctx *core.Context, id int64, relType string) ([]*core.Edge, error)
	IterIncoming(ctx *core.Context, id int64, relType string) ([]*core.Edge, error)
	NodeByID(ctx *core.Context, id int64) (*core.Node, bool, error)
	EdgeByID(ctx *core.Context, id int64) (*core.Edge, bool, error)

	AddNode(ctx *core.Context, id *int64, labels []string, props map[string]core.Value) (int64, error)
	AddEdge(ctx *core.Context, id *int64, source, target int64, relType string, weight float64, props map[string]core.Value) (int64, error)
	UpdateNodeProperties(ctx *core.Context, id int64, props map[string]core.Value) error
	MergeNodeProperties(ctx *core.Context, id int64, updates map[string]core.Value) error
	SetNodeLabels(ctx *core.Context, id int64, labels []string) error
	AddLabel(ctx *core.Context, id int64, label string) error
	RemoveLabel(ctx *core.Context, id int64, label string) error
	DeleteNode(ctx *core.Context, id int64, cascade bool) error
	DeleteEdge(ctx *core.Context, id int64) error
}

// unitIter yields exactly one empty binding, the identity input for
// CREATE-only queries.
type unitIter struct{ done bool }

func (it *unitIter) Next(ctx *core.Context) (core.Binding, error) {
	if it.done {
		return nil, io.EOF
	}
	it.done = true
	return core.NewBinding(), nil
}
func (it *unitIter) Close(ctx *core.Context) error { return nil }

// nodeScanIter walks a pre-fetched node slice, binding Variable to each.
type nodeScanIter struct {
	variable string
	nodes    []*core.Node
	pos      int
}

func newAllNodesScanIter(ctx *core.Context, g GraphStore, variable string) (BindingIter, error) {
	nodes, err := g.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	return &nodeScanIter{variable: variable, nodes: nodes}, nil
}

func newLabelScanIter(ctx *core.Context, g GraphStore, variable, label string) (BindingIter, error) {
	nodes, err := g.FindNodesByLabel(ctx, label)
	if err != nil {
		return nil, err
	}
	return &nodeScanIter{variable: variable, nodes: nodes}, nil
}

func (it *nodeScanIter) Next(ctx *core.Context) (core.Binding, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.nodes) {
		return nil, io.EOF
	}
	n := it.nodes[it.pos]
	it.pos++
	return core.NewBinding().With(it.variable, core.NodeRef(n.ID)), nil
}
func (it *nodeScanIter) Close(ctx *core.Context) error { return nil }

// edgeScanIter walks a pre-fetched edge slice, binding Variable to each
// edge; the edge's source and target are not bound.
type edgeScanIter struct {
	variable string
	edges    []*core.Edge
	pos      int
}

func newAllRelationshipsScanIter(ctx *core.Context, g GraphStore, variable string) (BindingIter, error) {
	edges, err := g.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	return &edgeScanIter{variable: variable, edges: edges}, nil
}

func newTypeScanIter(ctx *core.Context, g GraphStore, variable, relType string) (BindingIter, error) {
	edges, err := g.FindEdgesByType(ctx, relType)
	if err != nil {
		return nil, err
	}
	return &edgeScanIter{variable: variable, edges: edges}, nil
}

func (it *edgeScanIter) Next(ctx *core.Context) (core.Binding, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.edges) {
		return nil, io.EOF
	}
	e := it.edges[it.pos]
	it.pos++
	return core.NewBinding().With(it.variable, core.RelationshipRef(e.ID)), nil
}
func (it *edgeScanIter) Close(ctx *core.Context) error { return nil }
