package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/plan"
	"github.com/cypherdb/graphengine/schema"
	"github.com/cypherdb/graphengine/storage"
)

func buildTracker(t *testing.T, labelCounts map[string]int, relCounts map[string]int) *schema.Tracker {
	t.Helper()
	g := storage.New()
	ctx := core.NewEmptyContext()
	ids := map[string]int64{}
	for label, n := range labelCounts {
		for i := 0; i < n; i++ {
			id, err := g.AddNode(ctx, nil, []string{label}, nil)
			require.NoError(t, err)
			ids[label] = id
		}
	}
	for relType, n := range relCounts {
		// wire edges between arbitrary existing nodes so EdgeCount matches n
		var a, b int64
		for _, id := range ids {
			if a == 0 {
				a = id
			} else {
				b = id
			}
		}
		if a == 0 || b == 0 {
			a, _ = g.AddNode(ctx, nil, nil, nil)
			b, _ = g.AddNode(ctx, nil, nil, nil)
		}
		for i := 0; i < n; i++ {
			_, err := g.AddEdge(ctx, nil, a, b, relType, 1.0, nil)
			require.NoError(t, err)
		}
	}
	tr := schema.NewTracker()
	require.NoError(t, tr.Rebuild(ctx, g))
	return tr
}

func parse(t *testing.T, src string) plan.Operator {
	t.Helper()
	q, err := ast.Parse(src, 64)
	require.NoError(t, err)
	op, err := plan.Build(q)
	require.NoError(t, err)
	return op
}

func TestLabelScanCostScalesWithFrequency(t *testing.T) {
	tr := buildTracker(t, map[string]int{"Person": 8, "Company": 2}, nil)
	op := parse(t, "MATCH (n:Person) RETURN n")
	phys := Plan(op, tr, core.DefaultLimits())

	var scanCost Cost
	walk(phys.Root, func(o plan.Operator) {
		if _, ok := o.(*plan.LabelScan); ok {
			scanCost = phys.Cost[o]
		}
	})
	require.InDelta(t, 8.0, scanCost.EstimatedRows, 1e-9)
}

func TestJoinReorderPutsSmallerSideFirst(t *testing.T) {
	tr := buildTracker(t, map[string]int{"Big": 100, "Small": 2}, map[string]int{"REL": 5})
	op := parse(t, "MATCH (a:Big)-[:REL]->(b), (b)-[:REL]->(c:Small) RETURN c")
	phys := Plan(op, tr, core.DefaultLimits())

	var join *plan.HashJoin
	walk(phys.Root, func(o plan.Operator) {
		if hj, ok := o.(*plan.HashJoin); ok {
			join = hj
		}
	})
	require.NotNil(t, join, "expected a HashJoin in the physical plan")
	leftRows := phys.Cost[join.Children()[0]].EstimatedRows
	rightRows := phys.Cost[join.Children()[1]].EstimatedRows
	require.LessOrEqual(t, leftRows, rightRows, "build side should be the smaller-estimated side")
}

func TestCartesianProductIsFlagged(t *testing.T) {
	tr := buildTracker(t, map[string]int{"Person": 3}, nil)
	op := parse(t, "MATCH (a), (b) RETURN a, b")
	phys := Plan(op, tr, core.DefaultLimits())
	require.Len(t, phys.Cartesian, 1)
}

func TestFilterReducesEstimatedRows(t *testing.T) {
	tr := buildTracker(t, map[string]int{"Person": 10}, nil)
	op := parse(t, "MATCH (n:Person) WHERE n.age > 30 RETURN n")
	phys := Plan(op, tr, core.DefaultLimits())

	var filterCost, scanCost Cost
	walk(phys.Root, func(o plan.Operator) {
		switch o.(type) {
		case *plan.Filter:
			filterCost = phys.Cost[o]
		case *plan.LabelScan:
			scanCost = phys.Cost[o]
		}
	})
	require.Less(t, filterCost.EstimatedRows, scanCost.EstimatedRows)
}

func walk(op plan.Operator, fn func(plan.Operator)) {
	fn(op)
	for _, c := range op.Children() {
		walk(c, fn)
	}
}
