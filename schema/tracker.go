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

// Package schema implements the schema tracker from §4.9: the process
// keeps exactly one mutable structure, an in-memory catalog of known
// labels and relationship types with per-label cardinality estimates,
// guarded by a single mutex (§5: "the schema tracker is the only
// process-wide mutable state; every other structure is either
// immutable or owned by a single goroutine").
package schema

import (
	"sync"

	"github.com/cypherdb/graphengine/core"
)

// GraphSource is the subset of the storage adapter the tracker needs to
// rebuild its catalog from scratch.
type GraphSource interface {
	AllNodes(ctx *core.Context) ([]*core.Node, error)
	AllEdges(ctx *core.Context) ([]*core.Edge, error)
}

// Tracker is the schema tracker: O(1) hashed membership checks for
// labels and relationship types, plus a frequency estimate per label
// used by the physical planner's cost model (§4.6).
type Tracker struct {
	mu          sync.RWMutex
	labelCount  map[string]int
	relTypeCnt  map[string]int
	nodeTotal   int
	edgeTotal   int
	initialized bool
}

// NewTracker returns an empty tracker; it discovers labels and
// relationship types lazily on first use (§4.9: "lazy discovery").
func NewTracker() *Tracker {
	return &Tracker{
		labelCount: make(map[string]int),
		relTypeCnt: make(map[string]int),
	}
}

// Rebuild performs a full scan of the graph source and replaces the
// catalog atomically. Called on first use and whenever the planner
// asks for a refresh after a burst of mutations (§4.9: "rebuild on
// demand, never eagerly on every write").
func (t *Tracker) Rebuild(ctx *core.Context, src GraphSource) error {
	nodes, err := src.AllNodes(ctx)
	if err != nil {
		return err
	}
	edges, err := src.AllEdges(ctx)
	if err != nil {
		return err
	}

	labelCount := make(map[string]int)
	for _, n := range nodes {
		for _, l := range n.Labels {
			labelCount[l]++
		}
	}
	relTypeCnt := make(map[string]int)
	for _, e := range edges {
		relTypeCnt[e.Type]++
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.labelCount = labelCount
	t.relTypeCnt = relTypeCnt
	t.nodeTotal = len(nodes)
	t.edgeTotal = len(edges)
	t.initialized = true
	return nil
}

// EnsureInitialized rebuilds the catalog once, on first access, if it
// has never been populated.
func (t *Tracker) EnsureInitialized(ctx *core.Context, src GraphSource) error {
	t.mu.RLock()
	ready := t.initialized
	t.mu.RUnlock()
	if ready {
		return nil
	}
	return t.Rebuild(ctx, src)
}

// HasLabel reports whether any node currently carries label.
func (t *Tracker) HasLabel(label string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.labelCount[label] > 0
}

// HasRelType reports whether any edge currently carries relType.
func (t *Tracker) HasRelType(relType string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.relTypeCnt[relType] > 0
}

// LabelFrequency returns the estimated fraction of nodes carrying
// label, used by the cost model to prefer a LabelScan over
// AllNodesScan+Filter when the label is selective (§4.6).
func (t *Tracker) LabelFrequency(label string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.nodeTotal == 0 {
		return 0
	}
	return float64(t.labelCount[label]) / float64(t.nodeTotal)
}

// RelTypeFrequency returns the estimated fraction of edges carrying
// relType.
func (t *Tracker) RelTypeFrequency(relType string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.edgeTotal == 0 {
		return 0
	}
	return float64(t.relTypeCnt[relType]) / float64(t.edgeTotal)
}

// NodeCount and EdgeCount return the last-observed totals, used as the
// base cardinality for AllNodesScan/AllRelationshipsScan cost estimates.
func (t *Tracker) NodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodeTotal
}

func (t *Tracker) EdgeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.edgeTotal
}

// Labels returns a snapshot of all known labels.
func (t *Tracker) Labels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.labelCount))
	for l := range t.labelCount {
		out = append(out, l)
	}
	return out
}

// RelTypes returns a snapshot of all known relationship types.
func (t *Tracker) RelTypes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.relTypeCnt))
	for rt := range t.relTypeCnt {
		out = append(out, rt)
	}
	return out
}
