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

// Package optimize implements the physical planner from §4.6: it takes
// a logical operator tree and decides access paths and join order,
// annotating the tree with cost estimates and the resource limits the
// executor must enforce.
package optimize

import (
	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/plan"
	"github.com/cypherdb/graphengine/schema"
)

// PhysicalPlan pairs a (possibly rewritten) logical tree with the
// per-node cost estimates and resource limits computed for it.
type PhysicalPlan struct {
	Root      plan.Operator
	Cost      map[plan.Operator]Cost
	Limits    core.Limits
	HasLimit  bool
	Cartesian []plan.Operator // CartesianProduct nodes retained; Engine.Query logs a debug line when any exist
}

// Cost is the estimated (rows, relative work) for one operator,
// computed bottom-up per §4.6's formulas.
type Cost struct {
	EstimatedRows float64
	RelativeWork  float64
}

// Plan runs the physical planner: label/type-scan selection is already
// baked into the logical tree by package plan (it chooses LabelScan
// over AllNodesScan+Filter whenever a label is named), so this stage's
// job is cost estimation, join-order advice, and resource-limit wiring.
func Plan(root plan.Operator, tracker *schema.Tracker, limits core.Limits) *PhysicalPlan {
	p := &PhysicalPlan{Cost: map[plan.Operator]Cost{}, Limits: limits}
	p.HasLimit = containsLimit(root)
	p.Root = reorderJoins(root, tracker)
	estimate(p.Root, tracker, p.Cost)
	collectCartesian(p.Root, p)
	return p
}

func containsLimit(op plan.Operator) bool {
	if _, ok := op.(*plan.Limit); ok {
		return true
	}
	for _, c := range op.Children() {
		if containsLimit(c) {
			return true
		}
	}
	return false
}

func collectCartesian(op plan.Operator, p *PhysicalPlan) {
	if _, ok := op.(*plan.CartesianProduct); ok {
		p.Cartesian = append(p.Cartesian, op)
	}
	for _, c := range op.Children() {
		collectCartesian(c, p)
	}
}

// reorderJoins walks the tree and, for HashJoin nodes, orders the
// smaller-estimated-cardinality side as the build side (left), per
// §4.6's greedy rule: "prefer the access path with the smallest
// estimated cardinality as the build side of a hash join."
func reorderJoins(op plan.Operator, tracker *schema.Tracker) plan.Operator {
	children := op.Children()
	for i, c := range children {
		children[i] = reorderJoins(c, tracker)
	}
	hj, ok := op.(*plan.HashJoin)
	if !ok {
		return op
	}
	left, right := hj.Children()[0], hj.Children()[1]
	if estimateRows(left, tracker) > estimateRows(right, tracker) {
		return swapHashJoinSides(hj)
	}
	return op
}

// swapHashJoinSides goes through the exported plan.NewHashJoinSwapped
// constructor since HashJoin's children are unexported; it rebuilds an equivalent node
// with the operand order reversed (hash join is commutative).
func swapHashJoinSides(hj *plan.HashJoin) plan.Operator {
	children := hj.Children()
	return plan.NewHashJoinSwapped(children[1], children[0], hj.JoinVars)
}

// estimate computes bottom-up cardinality/work estimates for every
// node in the tree using the formulas in §4.6:
//   - AllNodesScan/AllRelationshipsScan: the tracker's observed totals
//   - LabelScan/TypeScan: total * frequency
//   - Expand: input rows * average out-degree estimate (approximated
//     here as twice the edge/node ratio, since no per-label degree histogram
//     is maintained)
//   - Filter: input rows * a flat selectivity guess of 0.33 absent
//     histogram statistics
//   - Join: product of both sides divided by the larger side's
//     distinct-key estimate (approximated as the smaller side's rows)
func estimate(op plan.Operator, tracker *schema.Tracker, out map[plan.Operator]Cost) Cost {
	if c, ok := out[op]; ok {
		return c
	}
	var childCosts []Cost
	for _, c := range op.Children() {
		childCosts = append(childCosts, estimate(c, tracker, out))
	}

	var c Cost
	switch n := op.(type) {
	case *plan.UnitScan:
		c = Cost{EstimatedRows: 1, RelativeWork: 1}
	case *plan.AllNodesScan:
		rows := float64(tracker.NodeCount())
		c = Cost{EstimatedRows: rows, RelativeWork: rows}
	case *plan.LabelScan:
		rows := float64(tracker.NodeCount()) * tracker.LabelFrequency(n.Label)
		c = Cost{EstimatedRows: rows, RelativeWork: rows}
	case *plan.AllRelationshipsScan:
		rows := float64(tracker.EdgeCount())
		c = Cost{EstimatedRows: rows, RelativeWork: rows}
	case *plan.TypeScan:
		rows := float64(tracker.EdgeCount()) * tracker.RelTypeFrequency(n.Type)
		c = Cost{EstimatedRows: rows, RelativeWork: rows}
	case *plan.Expand, *plan.VarLengthExpand:
		avgDegree := averageDegree(tracker)
		rows := childCosts[0].EstimatedRows * avgDegree
		c = Cost{EstimatedRows: rows, RelativeWork: rows}
	case *plan.Filter:
		rows := childCosts[0].EstimatedRows * 0.33
		c = Cost{EstimatedRows: rows, RelativeWork: childCosts[0].RelativeWork + childCosts[0].EstimatedRows}
	case *plan.HashJoin:
		build, probe := childCosts[0], childCosts[1]
		buildKeys := build.EstimatedRows
		if buildKeys < 1 {
			buildKeys = 1
		}
		rows := (build.EstimatedRows * probe.EstimatedRows) / buildKeys
		c = Cost{EstimatedRows: rows, RelativeWork: build.RelativeWork + probe.RelativeWork + build.EstimatedRows}
	case *plan.CartesianProduct:
		left, right := childCosts[0], childCosts[1]
		c = Cost{EstimatedRows: left.EstimatedRows * right.EstimatedRows, RelativeWork: left.RelativeWork * right.RelativeWork}
	case *plan.Aggregation:
		rows := childCosts[0].EstimatedRows
		if len(n.GroupKeys) > 0 {
			rows = rows * 0.1
		} else {
			rows = 1
		}
		c = Cost{EstimatedRows: rows, RelativeWork: childCosts[0].RelativeWork}
	case *plan.Distinct:
		c = Cost{EstimatedRows: childCosts[0].EstimatedRows * 0.8, RelativeWork: childCosts[0].RelativeWork}
	case *plan.Sort:
		rows := childCosts[0].EstimatedRows
		c = Cost{EstimatedRows: rows, RelativeWork: childCosts[0].RelativeWork + rows*logCeil(rows)}
	case *plan.Limit:
		c = Cost{EstimatedRows: childCosts[0].EstimatedRows, RelativeWork: childCosts[0].RelativeWork}
	default:
		if len(childCosts) > 0 {
			c = childCosts[0]
		} else {
			c = Cost{EstimatedRows: 1, RelativeWork: 1}
		}
	}
	out[op] = c
	return c
}

func estimateRows(op plan.Operator, tracker *schema.Tracker) float64 {
	out := map[plan.Operator]Cost{}
	return estimate(op, tracker, out).EstimatedRows
}

func averageDegree(tracker *schema.Tracker) float64 {
	nodes := tracker.NodeCount()
	if nodes == 0 {
		return 1
	}
	return (2 * float64(tracker.EdgeCount())) / float64(nodes)
}

func logCeil(n float64) float64 {
	if n <= 1 {
		return 1
	}
	count := 0.0
	for v := 1.0; v < n; v *= 2 {
		count++
	}
	return count
}
