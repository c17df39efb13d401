package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/core"
)

func mustParse(t *testing.T, src string) *Query {
	t.Helper()
	q, err := Parse(src, 64)
	require.NoError(t, err, "query: %s", src)
	return q
}

func TestParseSimpleMatchReturn(t *testing.T) {
	q := mustParse(t, `MATCH (n:Person) WHERE n.age > 25 RETURN n.age`)
	require.Len(t, q.First.Clauses, 2)
	m, ok := q.First.Clauses[0].(*Match)
	require.True(t, ok)
	require.Equal(t, []string{"Person"}, m.Patterns[0].Nodes[0].Labels)
	require.NotNil(t, m.Where)
	ret, ok := q.First.Clauses[1].(*Return)
	require.True(t, ok)
	require.Len(t, ret.Items, 1)
}

func TestParseRelationshipPatternDirectionsAndVarLength(t *testing.T) {
	q := mustParse(t, `MATCH (a)-[:KNOWS*1..2]->(b) RETURN count(*)`)
	m := q.First.Clauses[0].(*Match)
	rel := m.Patterns[0].Rels[0]
	require.Equal(t, DirOut, rel.Direction)
	require.True(t, rel.VarLength)
	require.Equal(t, 1, *rel.MinHops)
	require.Equal(t, 2, *rel.MaxHops)
}

func TestParseLeftArrow(t *testing.T) {
	q := mustParse(t, `MATCH (a)<-[:KNOWS]-(b) RETURN a`)
	rel := q.First.Clauses[0].(*Match).Patterns[0].Rels[0]
	require.Equal(t, DirIn, rel.Direction)
}

func TestParseCreateWithProperties(t *testing.T) {
	q := mustParse(t, `CREATE (n:Person {name:"Alice",age:30}) RETURN n.name`)
	c := q.First.Clauses[0].(*Create)
	n := c.Patterns[0].Nodes[0]
	require.Len(t, n.Properties.Pairs, 2)
}

func TestParseUnion(t *testing.T) {
	q := mustParse(t, `MATCH (n:Person) RETURN n.name UNION ALL MATCH (n:Dog) RETURN n.name`)
	require.Len(t, q.Unions, 1)
	require.True(t, q.Unions[0].All)
}

func TestParseDeleteDetach(t *testing.T) {
	q := mustParse(t, `MATCH (n) WHERE id(n)=1 DETACH DELETE n`)
	d := q.First.Clauses[1].(*DeleteClause)
	require.True(t, d.Detach)
}

func TestParseEmptyQueryIsSemanticError(t *testing.T) {
	_, err := Parse(``, 64)
	require.Error(t, err)
	qe, ok := err.(*core.QueryError)
	require.True(t, ok)
	require.Equal(t, core.Semantic, qe.Category)
}

func TestParseSyntaxErrorHasLocation(t *testing.T) {
	_, err := Parse(`MATCH (n RETURN n`, 64)
	require.Error(t, err)
	qe, ok := err.(*core.QueryError)
	require.True(t, ok)
	require.Equal(t, core.Syntax, qe.Category)
	require.Equal(t, 1, qe.Line)
	require.Equal(t, 10, qe.Column)
}

// TestParseRoundTrip is Testable Property 2: for every syntactically
// valid query Q, parse(Q) succeeds, and the AST pretty-printed and
// re-parsed yields an AST equal to the first (modulo source position).
func TestParseRoundTrip(t *testing.T) {
	queries := []string{
		`MATCH (n:Person) WHERE n.age > 25 RETURN n.age`,
		`MATCH (a)-[:KNOWS*1..2]->(b) RETURN count(*)`,
		`CREATE (n:Person {name:"Alice",age:30}) RETURN n.name`,
		`MATCH (n) WHERE n.id = 1 DELETE n`,
		`MATCH (n) RETURN n.name ORDER BY n.name DESC LIMIT 2`,
		`MATCH (a)<-[:KNOWS]-(b) RETURN a, b`,
		`MATCH (n) SET n.age = n.age + 1, n:Employee RETURN n`,
		`MATCH (n) WHERE n.name STARTS WITH "A" RETURN n`,
		`MATCH (n) WHERE n.x IS NOT NULL RETURN n`,
	}
	for _, src := range queries {
		first := mustParse(t, src)
		printed := Print(first)
		second := mustParse(t, printed)
		diff := cmp.Diff(first, second,
			cmpopts.IgnoreFields(Position{}, "Line", "Column"),
			cmp.Comparer(func(a, b core.Value) bool { return a.Equal(b) }))
		require.Empty(t, diff, "round-trip mismatch for %q -> %q", src, printed)
	}
}
