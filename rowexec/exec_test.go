package rowexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/ast"
	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/optimize"
	"github.com/cypherdb/graphengine/plan"
	"github.com/cypherdb/graphengine/schema"
	"github.com/cypherdb/graphengine/storage"
)

func runQuery(t *testing.T, g *storage.GraphStore, src string, columns []string) []core.Row {
	t.Helper()
	q, err := ast.Parse(src, 64)
	require.NoError(t, err)
	logical, err := plan.Build(q)
	require.NoError(t, err)
	tr := schema.NewTracker()
	ctx := core.NewEmptyContext()
	require.NoError(t, tr.EnsureInitialized(ctx, g))
	phys := optimize.Plan(logical, tr, core.DefaultLimits())
	rows, _, err := Run(ctx, phys, g, nil, columns)
	require.NoError(t, err)
	return rows
}

func seedFriendGraph(t *testing.T) *storage.GraphStore {
	t.Helper()
	g := storage.New()
	ctx := core.NewEmptyContext()
	ann, err := g.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String("Ann")})
	require.NoError(t, err)
	bo, err := g.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String("Bo")})
	require.NoError(t, err)
	cid, err := g.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String("Cal")})
	require.NoError(t, err)
	_, err = g.AddEdge(ctx, nil, ann, bo, "KNOWS", 1.0, nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ctx, nil, bo, cid, "KNOWS", 1.0, nil)
	require.NoError(t, err)
	return g
}

func TestRunMatchReturnsProjectedColumn(t *testing.T) {
	g := seedFriendGraph(t)
	rows := runQuery(t, g, "MATCH (n:Person) RETURN n.name AS name", []string{"name"})
	require.Len(t, rows, 3)
	var names []string
	for _, r := range rows {
		names = append(names, r[0].AsString())
	}
	require.ElementsMatch(t, []string{"Ann", "Bo", "Cal"}, names)
}

func TestRunExpandOneHop(t *testing.T) {
	g := seedFriendGraph(t)
	rows := runQuery(t, g, "MATCH (a:Person {name: 'Ann'})-[:KNOWS]->(b) RETURN b.name AS name", []string{"name"})
	require.Len(t, rows, 1)
	require.Equal(t, "Bo", rows[0][0].AsString())
}

func TestRunVarLengthExpand(t *testing.T) {
	g := seedFriendGraph(t)
	rows := runQuery(t, g, "MATCH (a:Person {name: 'Ann'})-[:KNOWS*1..2]->(b) RETURN b.name AS name", []string{"name"})
	var names []string
	for _, r := range rows {
		names = append(names, r[0].AsString())
	}
	require.ElementsMatch(t, []string{"Bo", "Cal"}, names)
}

func TestRunCreateThenMatch(t *testing.T) {
	g := storage.New()
	ctx := core.NewEmptyContext()
	q, err := ast.Parse("CREATE (a:Person {name: 'Dee'})", 64)
	require.NoError(t, err)
	logical, err := plan.Build(q)
	require.NoError(t, err)
	tr := schema.NewTracker()
	require.NoError(t, tr.EnsureInitialized(ctx, g))
	phys := optimize.Plan(logical, tr, core.DefaultLimits())
	_, _, err = Run(ctx, phys, g, nil, []string{"a"})
	require.NoError(t, err)

	require.NoError(t, tr.Rebuild(ctx, g))
	rows := runQuery(t, g, "MATCH (n:Person) RETURN n.name AS name", []string{"name"})
	require.Len(t, rows, 1)
	require.Equal(t, "Dee", rows[0][0].AsString())
}

func TestRunDeleteNodeWithEdgesFailsWithoutDetach(t *testing.T) {
	g := seedFriendGraph(t)
	ctx := core.NewEmptyContext()
	q, err := ast.Parse("MATCH (n:Person {name: 'Bo'}) DELETE n", 64)
	require.NoError(t, err)
	logical, err := plan.Build(q)
	require.NoError(t, err)
	tr := schema.NewTracker()
	require.NoError(t, tr.EnsureInitialized(ctx, g))
	phys := optimize.Plan(logical, tr, core.DefaultLimits())
	_, _, err = Run(ctx, phys, g, nil, []string{"n"})
	require.Error(t, err)
	qe, ok := err.(*core.QueryError)
	require.True(t, ok)
	require.Equal(t, core.Constraint, qe.Category)
}

func TestRunAggregateCountOverEmptyMatchYieldsOneRow(t *testing.T) {
	g := storage.New()
	rows := runQuery(t, g, "MATCH (n:Person) RETURN count(n) AS c", []string{"c"})
	require.Len(t, rows, 1)
	require.Equal(t, int64(0), rows[0][0].AsInt())
}

func TestRunSortAndLimit(t *testing.T) {
	g := seedFriendGraph(t)
	rows := runQuery(t, g, "MATCH (n:Person) RETURN n.name AS name ORDER BY n.name DESC LIMIT 2", []string{"name"})
	require.Len(t, rows, 2)
	require.Equal(t, "Cal", rows[0][0].AsString())
	require.Equal(t, "Bo", rows[1][0].AsString())
}

func TestRunRowLimitExceededWithoutLimitClause(t *testing.T) {
	g := storage.New()
	ctx := core.NewEmptyContext()
	limits := core.DefaultLimits()
	limits.MaxRowsWithoutLimit = 2
	ctx.Limits = limits
	for i := 0; i < 5; i++ {
		_, err := g.AddNode(ctx, nil, []string{"Person"}, nil)
		require.NoError(t, err)
	}
	q, err := ast.Parse("MATCH (n:Person) RETURN n", 64)
	require.NoError(t, err)
	logical, err := plan.Build(q)
	require.NoError(t, err)
	tr := schema.NewTracker()
	require.NoError(t, tr.EnsureInitialized(ctx, g))
	phys := optimize.Plan(logical, tr, limits)
	_, _, err = Run(ctx, phys, g, nil, []string{"n"})
	require.Error(t, err)
	qe, ok := err.(*core.QueryError)
	require.True(t, ok)
	require.Equal(t, core.Runtime, qe.Category)
}

func TestRunMergeMatchesExistingNode(t *testing.T) {
	g := storage.New()
	ctx := core.NewEmptyContext()
	_, err := g.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String("Ann")})
	require.NoError(t, err)

	q, err := ast.Parse("MERGE (n:Person {name: 'Ann'})", 64)
	require.NoError(t, err)
	logical, err := plan.Build(q)
	require.NoError(t, err)
	tr := schema.NewTracker()
	require.NoError(t, tr.EnsureInitialized(ctx, g))
	phys := optimize.Plan(logical, tr, core.DefaultLimits())
	_, _, err = Run(ctx, phys, g, nil, []string{"n"})
	require.NoError(t, err)

	require.Equal(t, 1, g.NodeCount(ctx), "MERGE on an existing match must not create a duplicate node")
}
