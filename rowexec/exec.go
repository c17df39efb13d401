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
	"github.com/cypherdb/graphengine/optimize"
	"github.com/cypherdb/graphengine/plan"
)

// Executor compiles a physical plan into a BindingIter tree and drives
// it to a final core.RowIter of named output columns.
type Executor struct {
	Graph  GraphStore
	Params map[string]core.Value
}

func NewExecutor(graph GraphStore, params map[string]core.Value) *Executor {
	return &Executor{Graph: graph, Params: params}
}

func (ex *Executor) newEvaluator() *eval.Evaluator {
	return eval.New(ex.Graph, ex.Params)
}

// Compile builds the BindingIter tree for op. ctx is used here to
// pre-fetch scan candidate lists (§4.7 treats Open/first-Next as
// equivalent for the simple in-process scans this adapter performs), to
// evaluate SKIP/LIMIT counts, to mark an explicit LIMIT on the context,
// and to drain the left side of a Cartesian product.
func (ex *Executor) Compile(ctx *core.Context, op plan.Operator) (BindingIter, error) {
	switch n := op.(type) {
	case *plan.UnitScan:
		return &unitIter{}, nil

	case *plan.AllNodesScan:
		return newAllNodesScanIter(ctx, ex.Graph, n.Variable)
	case *plan.LabelScan:
		return newLabelScanIter(ctx, ex.Graph, n.Variable, n.Label)
	case *plan.AllRelationshipsScan:
		return newAllRelationshipsScanIter(ctx, ex.Graph, n.Variable)
	case *plan.TypeScan:
		return newTypeScanIter(ctx, ex.Graph, n.Variable, n.Type)

	case *plan.Expand:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		spec := &expandSpec{
			FromVar: n.FromVar, ToVar: n.ToVar, RelVar: n.RelVar,
			RelTypes: n.RelTypes, Direction: n.Direction, Optional: n.Optional, ToVarBound: n.ToVarBound,
		}
		return newExpandIter(ex.Graph, spec, in), nil

	case *plan.VarLengthExpand:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		spec := &varLengthSpec{
			FromVar: n.FromVar, ToVar: n.ToVar, RelVar: n.RelVar, PathVar: n.PathVar,
			RelTypes: n.RelTypes, Direction: n.Direction, MinHops: n.MinHops, MaxHops: n.MaxHops, Optional: n.Optional,
		}
		return newVarLengthExpandIter(ex.Graph, spec, in), nil

	case *plan.Filter:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newFilterIter(in, n.Predicate, ex.newEvaluator()), nil

	case *plan.HashJoin:
		left, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		right, err := ex.Compile(ctx, n.Children()[1])
		if err != nil {
			return nil, err
		}
		return newHashJoinIter(left, right, n.JoinVars), nil

	case *plan.CartesianProduct:
		left, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		rightOp := n.Children()[1]
		return newCartesianIter(ctx, left, func() (BindingIter, error) {
			return ex.Compile(ctx, rightOp)
		})

	case *plan.Projection:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newProjectionIter(in, n.Items, ex.newEvaluator()), nil

	case *plan.Aggregation:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newAggregationIter(in, n.GroupKeys, n.Aggregates, ex.newEvaluator()), nil

	case *plan.Distinct:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newDistinctIter(in), nil

	case *plan.Sort:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newSortIter(in, n.Items, ex.newEvaluator()), nil

	case *plan.Skip:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		count, err := ex.evalCountExpr(ctx, n.Count)
		if err != nil {
			return nil, err
		}
		return newSkipIter(in, count), nil

	case *plan.Limit:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		count, err := ex.evalCountExpr(ctx, n.Count)
		if err != nil {
			return nil, err
		}
		ctx.MarkHasExplicitLimit()
		return newLimitIter(in, count), nil

	case *plan.Create:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newCreateIter(ex.Graph, n.Items, in, ex.newEvaluator()), nil

	case *plan.Merge:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newMergeIter(ex.Graph, n.Pattern, n.OnMatchSet, n.OnCreate, in, ex.newEvaluator()), nil

	case *plan.SetProperties:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newSetPropertiesIter(ex.Graph, n.Items, in, ex.newEvaluator()), nil

	case *plan.RemoveProperties:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newRemovePropertiesIter(ex.Graph, n.Items, in), nil

	case *plan.Delete:
		in, err := ex.Compile(ctx, n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newDeleteIter(ex.Graph, n.Exprs, n.Detach, in, ex.newEvaluator()), nil

	case *plan.SetUnion:
		branches := make([]BindingIter, len(n.Children()))
		for i, c := range n.Children() {
			b, err := ex.Compile(ctx, c)
			if err != nil {
				return nil, err
			}
			branches[i] = b
		}
		return newUnionIter(branches, n.All), nil

	default:
		return nil, core.ErrSyntax.New("unsupported physical operator")
	}
}

func (ex *Executor) evalCountExpr(ctx *core.Context, expr ast.Expr) (int64, error) {
	v, err := ex.newEvaluator().Eval(ctx, expr, core.NewBinding())
	if err != nil {
		return 0, err
	}
	if v.Kind() != core.KindInt {
		return 0, core.ErrTypeMismatch.New("SKIP/LIMIT requires an integer")
	}
	n := v.AsInt()
	if n < 0 {
		return 0, core.ErrTypeMismatch.New("SKIP/LIMIT must be non-negative")
	}
	return n, nil
}

// Run compiles phys and drains it into output rows under the given
// output column order (as computed by the caller from the top-level
// projection/aggregation item aliases), enforcing the row-count safety
// valve (§5) on every row produced when no LIMIT is present.
func Run(ctx *core.Context, phys *optimize.PhysicalPlan, graph GraphStore, params map[string]core.Value, columns []string) ([]core.Row, core.Schema, error) {
	ex := NewExecutor(graph, params)
	iter, err := ex.Compile(ctx, phys.Root)
	if err != nil {
		return nil, nil, err
	}
	schema := make(core.Schema, len(columns))
	for i, c := range columns {
		schema[i] = &core.Column{Name: c}
	}

	var rows []core.Row
	count := 0
	for {
		b, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = iter.Close(ctx)
			return nil, nil, err
		}
		count++
		if err := capCheck(ctx, count); err != nil {
			_ = iter.Close(ctx)
			return nil, nil, err
		}
		row := make(core.Row, len(columns))
		for i, c := range columns {
			row[i] = b[c]
		}
		rows = append(rows, row)
	}
	if err := iter.Close(ctx); err != nil {
		return nil, nil, err
	}
	return rows, schema, nil
}
