package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTreeLinksParentsAndChildren(t *testing.T) {
	tree := BuildTree([]Row{
		{ID: "women", Name: "Women", Position: 1},
		{ID: "shoes", ParentID: "women", Name: "Shoes", Position: 2},
		{ID: "sandals", ParentID: "shoes", Name: "Sandals", Position: 3},
		{ID: "boots", ParentID: "shoes", Name: "Boots", Position: 4},
	})

	root, err := tree.Root()
	require.NoError(t, err)
	assert.Equal(t, RootID, root.ID())
	assert.Nil(t, root.Parent())
	require.Len(t, root.Subcategories(), 1)

	shoes, ok := tree.ByID("shoes")
	require.True(t, ok)
	assert.Equal(t, "Shoes", shoes.DisplayName())
	assert.Equal(t, "women", shoes.Parent().ID())

	subs := shoes.Subcategories()
	require.Len(t, subs, 2)
	assert.Equal(t, "sandals", subs[0].ID())
	assert.Equal(t, "boots", subs[1].ID())
}

func TestBuildTreeOrphanAttachesToRoot(t *testing.T) {
	tree := BuildTree([]Row{
		{ID: "a", ParentID: "missing", Name: "A"},
		{ID: "b", ParentID: "b", Name: "B"}, // self-reference
	})

	root, err := tree.Root()
	require.NoError(t, err)
	assert.Len(t, root.Subcategories(), 2, "orphans and self-references land under the root")

	a, ok := tree.ByID("a")
	require.True(t, ok)
	assert.Equal(t, RootID, a.Parent().ID())
}

func TestBuildTreeEmpty(t *testing.T) {
	tree := BuildTree(nil)

	root, err := tree.Root()
	require.NoError(t, err)
	assert.Empty(t, root.Subcategories())
}

func TestByIDMiss(t *testing.T) {
	tree := BuildTree([]Row{{ID: "a", Name: "A"}})

	_, ok := tree.ByID("z")
	assert.False(t, ok)
}

func TestZeroValueTree(t *testing.T) {
	var tree *Tree

	_, err := tree.Root()
	assert.Error(t, err)

	_, ok := tree.ByID("a")
	assert.False(t, ok)
}
