package graphcypher

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/core"
)

// TestEmptyGraphCreateAndReturn covers Testable Scenario S1: CREATE on
// an empty graph then RETURN the created property.
func TestEmptyGraphCreateAndReturn(t *testing.T) {
	e := New(nil)
	res, err := e.Query(nil, `CREATE (n:Person {name: "Alice", age: 30}) RETURN n.name AS name`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "Alice", res.Rows[0][0].AsString())
}

// TestFilterBySelectivePredicate covers Scenario S2.
func TestFilterBySelectivePredicate(t *testing.T) {
	e := New(nil)
	ctx := core.NewEmptyContext()
	_, err := e.Store.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"age": core.Int(30)})
	require.NoError(t, err)
	_, err = e.Store.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"age": core.Int(20)})
	require.NoError(t, err)
	_, err = e.Store.AddNode(ctx, nil, []string{"Dog"}, nil)
	require.NoError(t, err)

	res, err := e.Query(nil, `MATCH (n:Person) WHERE n.age > 25 RETURN n.age AS age`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, int64(30), res.Rows[0][0].AsInt())
}

// TestVarLengthPathCount covers Scenario S3: a 1..2 hop variable-length
// expansion over a 3-node chain yields all three reachable paths
// (1->2, 2->3, 1->2->3).
func TestVarLengthPathCount(t *testing.T) {
	e := New(nil)
	ctx := core.NewEmptyContext()
	n1, _ := e.Store.AddNode(ctx, nil, []string{"Person"}, nil)
	n2, _ := e.Store.AddNode(ctx, nil, []string{"Person"}, nil)
	n3, _ := e.Store.AddNode(ctx, nil, []string{"Person"}, nil)
	_, err := e.Store.AddEdge(ctx, nil, n1, n2, "KNOWS", 1.0, nil)
	require.NoError(t, err)
	_, err = e.Store.AddEdge(ctx, nil, n2, n3, "KNOWS", 1.0, nil)
	require.NoError(t, err)

	res, err := e.Query(nil, `MATCH (a)-[:KNOWS*1..2]->(b) RETURN count(*) AS c`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, int64(3), res.Rows[0][0].AsInt())
}

// TestDeleteIsolatedNode covers Scenario S4: deleting a node with no
// edges succeeds and leaves the graph empty.
func TestDeleteIsolatedNode(t *testing.T) {
	e := New(nil)
	ctx := core.NewEmptyContext()
	_, err := e.Store.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String("Solo")})
	require.NoError(t, err)

	_, err = e.Query(nil, `MATCH (n) WHERE n.name = "Solo" DELETE n`, nil)
	require.NoError(t, err)

	res, err := e.Query(nil, `MATCH (n) RETURN count(*) AS c`, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Rows[0][0].AsInt())
}

// TestDeleteConnectedNodeFailsWithoutDetach covers Scenario S5 with an
// `id(n)=<id>` predicate naming the connected node: deleting a node that
// still has an edge fails with a CONSTRAINT (5000) error and applies no
// mutation.
func TestDeleteConnectedNodeFailsWithoutDetach(t *testing.T) {
	e := New(nil)
	ctx := core.NewEmptyContext()
	a, err := e.Store.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String("A")})
	require.NoError(t, err)
	b, _ := e.Store.AddNode(ctx, nil, []string{"Person"}, nil)
	_, err = e.Store.AddEdge(ctx, nil, a, b, "KNOWS", 1.0, nil)
	require.NoError(t, err)

	_, err = e.Query(nil, fmt.Sprintf(`MATCH (n) WHERE id(n)=%d DELETE n`, a), nil)
	require.Error(t, err)
	qe, ok := errors.Cause(err).(*core.QueryError)
	require.True(t, ok, "expected a *core.QueryError cause, got %T", errors.Cause(err))
	require.Equal(t, core.Constraint, qe.Category)
	require.Equal(t, 5000+2, qe.Code)

	require.Equal(t, 2, e.Store.NodeCount(ctx), "failed DELETE must not remove the node")
}

// TestIDFunctionReturnsNodeIdentifier exercises id() directly: it must
// resolve to the bound node's stable identifier, not raise
// ErrUndefinedFunction.
func TestIDFunctionReturnsNodeIdentifier(t *testing.T) {
	e := New(nil)
	ctx := core.NewEmptyContext()
	id, err := e.Store.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String("A")})
	require.NoError(t, err)

	res, err := e.Query(nil, `MATCH (n) RETURN id(n) AS id, labels(n) AS labels`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, id, res.Rows[0][0].AsInt())
	require.Equal(t, []core.Value{core.String("Person")}, res.Rows[0][1].AsList())
}

// TestOrderByDescLimit covers Scenario S6.
func TestOrderByDescLimit(t *testing.T) {
	e := New(nil)
	ctx := core.NewEmptyContext()
	for _, name := range []string{"Ann", "Bo", "Cal", "Deb"} {
		_, err := e.Store.AddNode(ctx, nil, []string{"Person"}, map[string]core.Value{"name": core.String(name)})
		require.NoError(t, err)
	}

	res, err := e.Query(nil, `MATCH (n) RETURN n.name AS name ORDER BY n.name DESC LIMIT 2`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "Deb", res.Rows[0][0].AsString())
	require.Equal(t, "Cal", res.Rows[1][0].AsString())
}

func TestExplainDescribesPlanShape(t *testing.T) {
	e := New(nil)
	out, err := e.Explain(nil, `MATCH (n:Person) RETURN n.name`)
	require.NoError(t, err)
	require.Contains(t, out, "LabelScan")
	require.Contains(t, out, "Projection")
}
