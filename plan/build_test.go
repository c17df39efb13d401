package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/ast"
)

func parseQuery(t *testing.T, src string) *ast.Query {
	t.Helper()
	q, err := ast.Parse(src, 64)
	require.NoError(t, err)
	return q
}

func TestBuildSimpleMatchReturn(t *testing.T) {
	q := parseQuery(t, "MATCH (n:Person) RETURN n.name")
	op, err := Build(q)
	require.NoError(t, err)

	proj, ok := op.(*Projection)
	require.True(t, ok, "root should be a Projection, got %T", op)
	require.Len(t, proj.Items, 1)
	require.Equal(t, "n.name", proj.Items[0].Alias)

	scan, ok := proj.Children()[0].(*LabelScan)
	require.True(t, ok, "expected a LabelScan beneath the projection, got %T", proj.Children()[0])
	require.Equal(t, "Person", scan.Label)
	require.Equal(t, "n", scan.Variable)
}

// TestBuildMultiLabelNodeAddsHasLabelFilter verifies a node pattern
// naming more than one label compiles to a scan on the first label plus
// a Filter carrying the rest, rather than silently dropping them.
func TestBuildMultiLabelNodeAddsHasLabelFilter(t *testing.T) {
	q := parseQuery(t, "MATCH (n:Person:Employee) RETURN n")
	op, err := Build(q)
	require.NoError(t, err)

	proj := op.(*Projection)
	filter, ok := proj.Children()[0].(*Filter)
	require.True(t, ok, "expected a Filter for the extra label, got %T", proj.Children()[0])
	hasLabel, ok := filter.Predicate.(*ast.HasLabel)
	require.True(t, ok, "expected HasLabel predicate, got %T", filter.Predicate)
	require.Equal(t, "Employee", hasLabel.Label)

	_, ok = filter.Children()[0].(*LabelScan)
	require.True(t, ok)
}

// TestBuildRepeatedVariableJoinsOnSharedVariable verifies two MATCH
// patterns sharing a node variable combine via HashJoin keyed on it,
// rather than a Cartesian product.
func TestBuildRepeatedVariableJoinsOnSharedVariable(t *testing.T) {
	q := parseQuery(t, "MATCH (a)-[:KNOWS]->(b), (b)-[:KNOWS]->(c) RETURN c")
	op, err := Build(q)
	require.NoError(t, err)

	proj := op.(*Projection)
	join, ok := proj.Children()[0].(*HashJoin)
	require.True(t, ok, "expected a HashJoin over the shared variable, got %T", proj.Children()[0])
	require.Contains(t, join.JoinVars, "b")
}

// TestBuildDisjointPatternsCartesianProduct verifies two patterns with
// no shared variable fall back to CartesianProduct (§4.6's flagged case).
func TestBuildDisjointPatternsCartesianProduct(t *testing.T) {
	q := parseQuery(t, "MATCH (a), (b) RETURN a, b")
	op, err := Build(q)
	require.NoError(t, err)

	proj := op.(*Projection)
	_, ok := proj.Children()[0].(*CartesianProduct)
	require.True(t, ok, "expected a CartesianProduct, got %T", proj.Children()[0])
}

// TestBuildImplicitAggregationGroup verifies an aggregate with no
// explicit grouping key produces an Aggregation with empty GroupKeys.
func TestBuildImplicitAggregationGroup(t *testing.T) {
	q := parseQuery(t, "MATCH (n) RETURN count(n) AS c")
	op, err := Build(q)
	require.NoError(t, err)

	agg, ok := op.(*Aggregation)
	require.True(t, ok, "expected an Aggregation, got %T", op)
	require.Empty(t, agg.GroupKeys)
	require.Len(t, agg.Aggregates, 1)
	require.Equal(t, "count", agg.Aggregates[0].Func)
	require.Equal(t, "c", agg.Aggregates[0].Alias)
}

func TestBuildUnionProducesSetUnion(t *testing.T) {
	q := parseQuery(t, "MATCH (n) RETURN n.id AS id UNION MATCH (m) RETURN m.id AS id")
	op, err := Build(q)
	require.NoError(t, err)

	union, ok := op.(*SetUnion)
	require.True(t, ok, "expected a SetUnion, got %T", op)
	require.False(t, union.All)
	require.Len(t, union.Children(), 2)
}

func TestBuildCreatePattern(t *testing.T) {
	q := parseQuery(t, "CREATE (a:Person {name: 'Ann'})-[:KNOWS]->(b:Person {name: 'Bo'})")
	op, err := Build(q)
	require.NoError(t, err)

	create, ok := op.(*Create)
	require.True(t, ok, "expected a Create, got %T", op)
	require.Len(t, create.Items, 3)
	require.True(t, create.Items[0].IsNode)
	require.True(t, create.Items[1].IsNode)
	require.False(t, create.Items[2].IsNode)
	require.Equal(t, "a", create.Items[2].FromVar)
	require.Equal(t, "b", create.Items[2].ToVar)
	require.Equal(t, "KNOWS", create.Items[2].RelType)

	_, ok = create.Children()[0].(*UnitScan)
	require.True(t, ok, "CREATE with no preceding MATCH should start from a UnitScan")
}
