package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cypherdb/graphengine/core"
	"github.com/cypherdb/graphengine/storage"
)

func TestEnsureInitializedRebuildsOnce(t *testing.T) {
	g := storage.New()
	ctx := core.NewEmptyContext()
	g.AddNode(ctx, nil, []string{"Person"}, nil)
	g.AddNode(ctx, nil, []string{"Person"}, nil)
	g.AddNode(ctx, nil, []string{"Company"}, nil)

	tr := NewTracker()
	require.False(t, tr.HasLabel("Person"))
	require.NoError(t, tr.EnsureInitialized(ctx, g))
	require.True(t, tr.HasLabel("Person"))
	require.True(t, tr.HasLabel("Company"))
	require.False(t, tr.HasLabel("Widget"))
	require.Equal(t, 3, tr.NodeCount())
	require.InDelta(t, 2.0/3.0, tr.LabelFrequency("Person"), 1e-9)

	// Adding a node after init without Rebuild must not change the
	// catalog (lazy discovery per §4.9: rebuild on demand only).
	g.AddNode(ctx, nil, []string{"Widget"}, nil)
	require.NoError(t, tr.EnsureInitialized(ctx, g))
	require.False(t, tr.HasLabel("Widget"))

	require.NoError(t, tr.Rebuild(ctx, g))
	require.True(t, tr.HasLabel("Widget"))
	require.Equal(t, 4, tr.NodeCount())
}

func TestRelTypeFrequency(t *testing.T) {
	g := storage.New()
	ctx := core.NewEmptyContext()
	a, _ := g.AddNode(ctx, nil, nil, nil)
	b, _ := g.AddNode(ctx, nil, nil, nil)
	c, _ := g.AddNode(ctx, nil, nil, nil)
	g.AddEdge(ctx, nil, a, b, "KNOWS", 1.0, nil)
	g.AddEdge(ctx, nil, b, c, "KNOWS", 1.0, nil)
	g.AddEdge(ctx, nil, a, c, "LIKES", 1.0, nil)

	tr := NewTracker()
	require.NoError(t, tr.Rebuild(ctx, g))
	require.True(t, tr.HasRelType("KNOWS"))
	require.InDelta(t, 2.0/3.0, tr.RelTypeFrequency("KNOWS"), 1e-9)
	require.InDelta(t, 1.0/3.0, tr.RelTypeFrequency("LIKES"), 1e-9)
	require.Equal(t, 3, tr.EdgeCount())
}
