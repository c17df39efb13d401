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

// Package storage implements the graph storage adapter described in
// §4.8: a thin façade over two host-owned tables, `<table>_nodes` and
// `<table>_edges`. Persistence itself is delegated to the host (§1); this
// package models the shape of that host surface in-process so the rest
// of the pipeline can be exercised without a live relational engine.
package storage

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/cypherdb/graphengine/core"
)

// NodeRow mirrors one row of `<table>_nodes(id, labels, properties)`.
type NodeRow struct {
	ID         int64
	Labels     []string
	Properties map[string]core.Value
}

// EdgeRow mirrors one row of
// `<table>_edges(id, source, target, edge_type, weight, properties)`.
type EdgeRow struct {
	ID         int64
	Source     int64
	Target     int64
	Type       string
	Weight     float64
	Properties map[string]core.Value
}

// GraphStore is the graph storage adapter: CRUD over node/edge rows,
// label/type lookups, and adjacency traversal, all issued as if each
// call were its own host query (§4.8: "the adapter does not keep an
// in-memory mirror; every traversal issues a host query" — here that
// host query is a lookup against the in-process tables below, which
// stand in for the host's companion relational tables per §1's scoping
// of persistence out of this component).
type GraphStore struct {
	mu       sync.RWMutex
	nodes    map[int64]*NodeRow
	edges    map[int64]*EdgeRow
	outAdj   map[int64][]int64 // node id -> outgoing edge ids
	inAdj    map[int64][]int64 // node id -> incoming edge ids
	nextNode int64
	nextEdge int64
}

// New returns an empty GraphStore, as if freshly attaching to a pair of
// empty `<table>_nodes`/`<table>_edges` tables.
func New() *GraphStore {
	return &GraphStore{
		nodes:  make(map[int64]*NodeRow),
		edges:  make(map[int64]*EdgeRow),
		outAdj: make(map[int64][]int64),
		inAdj:  make(map[int64][]int64),
	}
}

// AddNode implements add_node(id?, labels, properties) -> id.
func (g *GraphStore) AddNode(ctx *core.Context, id *int64, labels []string, props map[string]core.Value) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var newID int64
	if id != nil {
		newID = *id
		if _, exists := g.nodes[newID]; exists {
			return 0, core.ErrDuplicateNodeID.New(newID)
		}
		if newID >= g.nextNode {
			g.nextNode = newID + 1
		}
	} else {
		newID = g.nextNode
		g.nextNode++
	}
	if props == nil {
		props = map[string]core.Value{}
	}
	g.nodes[newID] = &NodeRow{ID: newID, Labels: append([]string{}, labels...), Properties: copyProps(props)}
	return newID, nil
}

// AddEdge implements add_edge(source, target, type, weight, properties)
// -> id, failing with CONSTRAINT if either endpoint is absent.
func (g *GraphStore) AddEdge(ctx *core.Context, id *int64, source, target int64, relType string, weight float64, props map[string]core.Value) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[source]; !ok {
		return 0, core.ErrEndpointMissing.New(source)
	}
	if _, ok := g.nodes[target]; !ok {
		return 0, core.ErrEndpointMissing.New(target)
	}

	var newID int64
	if id != nil {
		newID = *id
		if _, exists := g.edges[newID]; exists {
			return 0, core.ErrDuplicateEdgeID.New(newID)
		}
		if newID >= g.nextEdge {
			g.nextEdge = newID + 1
		}
	} else {
		newID = g.nextEdge
		g.nextEdge++
	}
	if weight == 0 {
		weight = 1.0
	}
	if props == nil {
		props = map[string]core.Value{}
	}
	g.edges[newID] = &EdgeRow{ID: newID, Source: source, Target: target, Type: relType, Weight: weight, Properties: copyProps(props)}
	g.outAdj[source] = append(g.outAdj[source], newID)
	g.inAdj[target] = append(g.inAdj[target], newID)
	return newID, nil
}

// UpdateNodeProperties implements update_node_properties(id, properties),
// replacing the node's whole property map.
func (g *GraphStore) UpdateNodeProperties(ctx *core.Context, id int64, props map[string]core.Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return errors.Wrapf(core.ErrStorageFailure.New("node not found"), "update_node_properties(%d)", id)
	}
	n.Properties = copyProps(props)
	return nil
}

// MergeNodeProperties sets individual keys on a node's property map
// without touching keys left unmentioned, used by `SET n.prop = expr`.
func (g *GraphStore) MergeNodeProperties(ctx *core.Context, id int64, updates map[string]core.Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return errors.Wrapf(core.ErrStorageFailure.New("node not found"), "merge_node_properties(%d)", id)
	}
	if n.Properties == nil {
		n.Properties = map[string]core.Value{}
	}
	for k, v := range updates {
		n.Properties[k] = v
	}
	return nil
}

// SetNodeLabels implements set_node_labels(id, labels).
func (g *GraphStore) SetNodeLabels(ctx *core.Context, id int64, labels []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return errors.Wrapf(core.ErrStorageFailure.New("node not found"), "set_node_labels(%d)", id)
	}
	n.Labels = append([]string{}, labels...)
	return nil
}

// AddLabel implements add_label(id, label), a no-op if already present.
func (g *GraphStore) AddLabel(ctx *core.Context, id int64, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return errors.Wrapf(core.ErrStorageFailure.New("node not found"), "add_label(%d)", id)
	}
	for _, l := range n.Labels {
		if l == label {
			return nil
		}
	}
	n.Labels = append(n.Labels, label)
	return nil
}

// RemoveLabel implements remove_label(id, label).
func (g *GraphStore) RemoveLabel(ctx *core.Context, id int64, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return errors.Wrapf(core.ErrStorageFailure.New("node not found"), "remove_label(%d)", id)
	}
	out := n.Labels[:0]
	for _, l := range n.Labels {
		if l != label {
			out = append(out, l)
		}
	}
	n.Labels = out
	return nil
}

// DeleteNode implements delete_node(id, cascade): without cascade it
// fails with CONSTRAINT if connected edges exist (Testable Property 7).
func (g *GraphStore) DeleteNode(ctx *core.Context, id int64, cascade bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	connected := len(g.outAdj[id]) + len(g.inAdj[id])
	if connected > 0 && !cascade {
		return core.ErrNodeHasEdges.New(id, connected)
	}
	if cascade {
		for _, eid := range append([]int64{}, g.outAdj[id]...) {
			g.deleteEdgeLocked(eid)
		}
		for _, eid := range append([]int64{}, g.inAdj[id]...) {
			g.deleteEdgeLocked(eid)
		}
	}
	delete(g.nodes, id)
	delete(g.outAdj, id)
	delete(g.inAdj, id)
	return nil
}

// DeleteEdge removes one edge by id.
func (g *GraphStore) DeleteEdge(ctx *core.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteEdgeLocked(id)
	return nil
}

func (g *GraphStore) deleteEdgeLocked(id int64) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	g.outAdj[e.Source] = removeID(g.outAdj[e.Source], id)
	g.inAdj[e.Target] = removeID(g.inAdj[e.Target], id)
	delete(g.edges, id)
}

func removeID(ids []int64, target int64) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// NodeByID returns the node with the given id, if present.
func (g *GraphStore) NodeByID(ctx *core.Context, id int64) (*core.Node, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, false, nil
	}
	return toCoreNode(n), true, nil
}

// EdgeByID returns the edge with the given id, if present.
func (g *GraphStore) EdgeByID(ctx *core.Context, id int64) (*core.Edge, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[id]
	if !ok {
		return nil, false, nil
	}
	return toCoreEdge(e), true, nil
}

// FindNodesByLabel implements find_nodes_by_label(label) -> iterator,
// returning rows in identifier-ascending order per §5's default
// ordering guarantee for scans.
func (g *GraphStore) FindNodesByLabel(ctx *core.Context, label string) ([]*core.Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*core.Node
	for _, n := range g.nodes {
		if label == "" || n.hasLabel(label) {
			out = append(out, toCoreNode(n))
		}
	}
	sortNodesByID(out)
	return out, nil
}

// FindEdgesByType implements find_edges_by_type(type) -> iterator.
func (g *GraphStore) FindEdgesByType(ctx *core.Context, relType string) ([]*core.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*core.Edge
	for _, e := range g.edges {
		if relType == "" || e.Type == relType {
			out = append(out, toCoreEdge(e))
		}
	}
	sortEdgesByID(out)
	return out, nil
}

// IterOutgoing implements iter_outgoing(id, type?).
func (g *GraphStore) IterOutgoing(ctx *core.Context, id int64, relType string) ([]*core.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*core.Edge
	for _, eid := range g.outAdj[id] {
		e := g.edges[eid]
		if e == nil {
			continue
		}
		if relType == "" || e.Type == relType {
			out = append(out, toCoreEdge(e))
		}
	}
	sortEdgesByID(out)
	return out, nil
}

// IterIncoming implements iter_incoming(id, type?).
func (g *GraphStore) IterIncoming(ctx *core.Context, id int64, relType string) ([]*core.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*core.Edge
	for _, eid := range g.inAdj[id] {
		e := g.edges[eid]
		if e == nil {
			continue
		}
		if relType == "" || e.Type == relType {
			out = append(out, toCoreEdge(e))
		}
	}
	sortEdgesByID(out)
	return out, nil
}

// AllNodes returns every node, identifier-ascending, for AllNodesScan.
func (g *GraphStore) AllNodes(ctx *core.Context) ([]*core.Node, error) {
	return g.FindNodesByLabel(ctx, "")
}

// AllEdges returns every edge, identifier-ascending, for
// AllRelationshipsScan.
func (g *GraphStore) AllEdges(ctx *core.Context) ([]*core.Edge, error) {
	return g.FindEdgesByType(ctx, "")
}

// NodeCount and EdgeCount back the schema tracker's cardinality
// estimates when it rebuilds from a scan.
func (g *GraphStore) NodeCount(ctx *core.Context) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *GraphStore) EdgeCount(ctx *core.Context) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

func (n *NodeRow) hasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func toCoreNode(n *NodeRow) *core.Node {
	return &core.Node{ID: n.ID, Labels: append([]string{}, n.Labels...), Properties: copyProps(n.Properties)}
}

func toCoreEdge(e *EdgeRow) *core.Edge {
	return &core.Edge{ID: e.ID, Source: e.Source, Target: e.Target, Type: e.Type, Weight: e.Weight, Properties: copyProps(e.Properties)}
}

func copyProps(m map[string]core.Value) map[string]core.Value {
	out := make(map[string]core.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortNodesByID(ns []*core.Node) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].ID < ns[j].ID })
}

func sortEdgesByID(es []*core.Edge) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}
