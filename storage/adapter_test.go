package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/core"
)

func TestAddEdgeFailsOnMissingEndpoint(t *testing.T) {
	g := New()
	ctx := core.NewEmptyContext()
	a, err := g.AddNode(ctx, nil, []string{"Person"}, nil)
	require.NoError(t, err)

	_, err = g.AddEdge(ctx, nil, a, 999, "KNOWS", 1.0, nil)
	require.Error(t, err)
	qe, ok := err.(*core.QueryError)
	require.True(t, ok)
	require.Equal(t, core.Constraint, qe.Category)
}

func TestDeleteNodeWithEdgesRequiresDetach(t *testing.T) {
	g := New()
	ctx := core.NewEmptyContext()
	a, _ := g.AddNode(ctx, nil, nil, nil)
	b, _ := g.AddNode(ctx, nil, nil, nil)
	_, err := g.AddEdge(ctx, nil, a, b, "KNOWS", 1.0, nil)
	require.NoError(t, err)

	err = g.DeleteNode(ctx, a, false)
	require.Error(t, err)
	qe, ok := err.(*core.QueryError)
	require.True(t, ok)
	require.Equal(t, core.Constraint, qe.Category)

	require.NoError(t, g.DeleteNode(ctx, a, true))
	_, ok, err = g.NodeByID(ctx, a)
	require.NoError(t, err)
	require.False(t, ok)

	edges, err := g.AllEdges(ctx)
	require.NoError(t, err)
	require.Empty(t, edges)
}

func TestFindNodesByLabelOrderedByID(t *testing.T) {
	g := New()
	ctx := core.NewEmptyContext()
	var last *int64
	for i := 0; i < 5; i++ {
		id, err := g.AddNode(ctx, nil, []string{"Person"}, nil)
		require.NoError(t, err)
		if last != nil {
			require.Less(t, *last, id)
		}
		last = &id
	}
	nodes, err := g.FindNodesByLabel(ctx, "Person")
	require.NoError(t, err)
	require.Len(t, nodes, 5)
	for i := 1; i < len(nodes); i++ {
		require.Less(t, nodes[i-1].ID, nodes[i].ID)
	}
}

func TestMergeNodePropertiesOnlyTouchesGivenKeys(t *testing.T) {
	g := New()
	ctx := core.NewEmptyContext()
	id, _ := g.AddNode(ctx, nil, nil, map[string]core.Value{"a": core.Int(1), "b": core.Int(2)})
	require.NoError(t, g.MergeNodeProperties(ctx, id, map[string]core.Value{"b": core.Int(20), "c": core.Int(3)}))
	n, _, _ := g.NodeByID(ctx, id)
	require.True(t, n.Properties["a"].Equal(core.Int(1)))
	require.True(t, n.Properties["b"].Equal(core.Int(20)))
	require.True(t, n.Properties["c"].Equal(core.Int(3)))
}

func TestAddLabelIsIdempotent(t *testing.T) {
	g := New()
	ctx := core.NewEmptyContext()
	id, _ := g.AddNode(ctx, nil, []string{"Person"}, nil)
	require.NoError(t, g.AddLabel(ctx, id, "Person"))
	n, _, _ := g.NodeByID(ctx, id)
	require.Equal(t, []string{"Person"}, n.Labels)
}

func TestIterOutgoingFiltersByType(t *testing.T) {
	g := New()
	ctx := core.NewEmptyContext()
	a, _ := g.AddNode(ctx, nil, nil, nil)
	b, _ := g.AddNode(ctx, nil, nil, nil)
	c, _ := g.AddNode(ctx, nil, nil, nil)
	_, _ = g.AddEdge(ctx, nil, a, b, "KNOWS", 1.0, nil)
	_, _ = g.AddEdge(ctx, nil, a, c, "LIKES", 1.0, nil)

	out, err := g.IterOutgoing(ctx, a, "KNOWS")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, b, out[0].Target)

	out, err = g.IterOutgoing(ctx, a, "")
	require.NoError(t, err)
	require.Len(t, out, 2)
}
