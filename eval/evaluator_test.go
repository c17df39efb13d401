package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
)

type noopGraph struct{}

func (noopGraph) NodeByID(ctx *core.Context, id int64) (*core.Node, bool, error) { return nil, false, nil }
func (noopGraph) EdgeByID(ctx *core.Context, id int64) (*core.Edge, bool, error) { return nil, false, nil }

func evalExpr(t *testing.T, src string, binding core.Binding) core.Value {
	t.Helper()
	q, err := ast.Parse("RETURN "+src, 64)
	require.NoError(t, err)
	item := q.First.Clauses[0].(*ast.Return).Items[0]
	e := New(noopGraph{}, nil)
	v, err := e.Eval(core.NewEmptyContext(), item.Expr, binding)
	require.NoError(t, err)
	return v
}

// TestThreeValuedLogic is Testable Property 5: the evaluator agrees
// with Kleene three-valued logic for AND/OR/NOT over {TRUE,FALSE,NULL}.
func TestThreeValuedLogic(t *testing.T) {
	tv, fv, nv := "true", "false", "null"
	cases := []struct {
		expr string
		want core.Value
	}{
		{tv + " AND " + tv, core.Bool(true)},
		{tv + " AND " + fv, core.Bool(false)},
		{fv + " AND " + tv, core.Bool(false)},
		{tv + " AND " + nv, core.Null()},
		{fv + " AND " + nv, core.Bool(false)},
		{nv + " AND " + nv, core.Null()},
		{tv + " OR " + fv, core.Bool(true)},
		{fv + " OR " + fv, core.Bool(false)},
		{tv + " OR " + nv, core.Bool(true)},
		{fv + " OR " + nv, core.Null()},
		{nv + " OR " + nv, core.Null()},
		{"NOT " + tv, core.Bool(false)},
		{"NOT " + fv, core.Bool(true)},
		{"NOT " + nv, core.Null()},
	}
	for _, c := range cases {
		got := evalExpr(t, c.expr, core.NewBinding())
		if c.want.IsNull() {
			require.True(t, got.IsNull(), c.expr)
		} else {
			require.True(t, got.Equal(c.want), "%s => got %v want %v", c.expr, got, c.want)
		}
	}
}

func TestIsNullTwoValued(t *testing.T) {
	got := evalExpr(t, "null IS NULL", core.NewBinding())
	require.True(t, got.Equal(core.Bool(true)))
	got = evalExpr(t, "1 IS NOT NULL", core.NewBinding())
	require.True(t, got.Equal(core.Bool(true)))
}

func TestStringFunctions(t *testing.T) {
	require.True(t, evalExpr(t, `toUpper("abc")`, core.NewBinding()).Equal(core.String("ABC")))
	require.True(t, evalExpr(t, `length("abc")`, core.NewBinding()).Equal(core.Int(3)))
	require.True(t, evalExpr(t, `startsWith("abcdef","abc")`, core.NewBinding()).Equal(core.Bool(true)))
}

func TestMathFunctionsNullPropagate(t *testing.T) {
	got := evalExpr(t, `abs(null)`, core.NewBinding())
	require.True(t, got.IsNull())
}

func TestIdentifierLookup(t *testing.T) {
	binding := core.NewBinding().With("x", core.Int(5))
	got := evalExpr(t, "x + 1", binding)
	require.True(t, got.Equal(core.Int(6)))
}

func TestAggregatorCountIgnoresNull(t *testing.T) {
	agg, err := NewAggregator("count", false)
	require.NoError(t, err)
	require.NoError(t, agg.Accumulate(core.Int(1)))
	require.NoError(t, agg.Accumulate(core.Null()))
	require.NoError(t, agg.Accumulate(core.Int(2)))
	require.True(t, agg.Result().Equal(core.Int(2)))
}

func TestAggregatorDistinctSum(t *testing.T) {
	agg, err := NewAggregator("sum", true)
	require.NoError(t, err)
	require.NoError(t, agg.Accumulate(core.Int(3)))
	require.NoError(t, agg.Accumulate(core.Int(3)))
	require.NoError(t, agg.Accumulate(core.Int(4)))
	require.True(t, agg.Result().Equal(core.Int(7)))
}
