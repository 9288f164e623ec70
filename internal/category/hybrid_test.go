package category

import (
	"fmt"
	"testing"

	"ugc/exporter/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridMapsStayCappedRegardlessOfCatalogSize(t *testing.T) {
	cfg := testConfig()

	for _, total := range []int{1500, 5000, 10000} {
		t.Run(fmt.Sprintf("N%d", total), func(t *testing.T) {
			tree := catalog.BuildTree(balancedRows(total, 4))

			s, err := newHybridStrategy(tree, cfg)
			require.NoError(t, err)

			// Resolve every category to put maximum pressure on the
			// overflow cache.
			for i := 1; i <= total; i++ {
				id := fmt.Sprintf("c%d", i)
				entry, ok := s.Lookup(id)
				require.True(t, ok, "category %s must resolve", id)
				verifyEntry(t, tree, id, entry, cfg.Separator)
			}

			sizes := s.MapSizes()
			assert.LessOrEqual(t, sizes["primary"], cfg.PrimaryMapCap)
			assert.LessOrEqual(t, sizes["overflow"], cfg.OverflowCacheCap)
			assert.LessOrEqual(t, sizes["primary"]+sizes["overflow"], cfg.MaxObjectKeys)
		})
	}
}

// Regression: when a lookup walks up to a pre-indexed ancestor, that
// ancestor's own id must appear in the resolved parent chain.
// Dropping it silently truncates the breadcrumb of every walked
// category.
func TestHybridWalkIncludesMappedAncestor(t *testing.T) {
	cfg := testConfig()
	cfg.PrimaryMapCap = 2 // only c1 and c2 get pre-indexed
	tree := catalog.BuildTree(chainRows(5))

	s, err := newHybridStrategy(tree, cfg)
	require.NoError(t, err)

	entry, ok := s.Lookup("c5")
	require.True(t, ok)

	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, entry.ParentIDs,
		"the mapped ancestor c2 must be the root-most element of the appended chain")
	assert.Equal(t, "Level 1 > Level 2 > Level 3 > Level 4 > Level 5", entry.FullName)
	verifyEntry(t, tree, "c5", entry, cfg.Separator)
}

func TestHybridOverflowMemoization(t *testing.T) {
	cfg := testConfig()
	cfg.PrimaryMapCap = 2
	tree := catalog.BuildTree(chainRows(6))

	s, err := newHybridStrategy(tree, cfg)
	require.NoError(t, err)

	first, ok := s.Lookup("c6")
	require.True(t, ok)
	assert.Equal(t, 1, s.MapSizes()["overflow"], "walk results are memoized")

	second, ok := s.Lookup("c6")
	require.True(t, ok)
	assert.Equal(t, first, second, "cached and walked results must agree")
}

func TestHybridFullOverflowStillResolves(t *testing.T) {
	cfg := testConfig()
	cfg.PrimaryMapCap = 1
	cfg.OverflowCacheCap = 1
	tree := catalog.BuildTree(chainRows(4))

	s, err := newHybridStrategy(tree, cfg)
	require.NoError(t, err)

	_, ok := s.Lookup("c3")
	require.True(t, ok)
	require.Equal(t, 1, s.MapSizes()["overflow"])

	entry, ok := s.Lookup("c4")
	require.True(t, ok, "a full overflow cache must not fail the lookup")
	verifyEntry(t, tree, "c4", entry, cfg.Separator)
	assert.Equal(t, 1, s.MapSizes()["overflow"], "full cache admits nothing new")
}

// Regression: mutually-cyclic rows survive tree construction as an
// orphan cluster reachable through ByID but not from the root. The
// walk must stop at the traversal depth bound and miss instead of
// climbing the cycle forever.
func TestHybridCyclicParentChainMisses(t *testing.T) {
	cfg := testConfig()
	rows := append(chainRows(3),
		catalog.Row{ID: "a", ParentID: "b", Name: "A", Position: 10},
		catalog.Row{ID: "b", ParentID: "a", Name: "B", Position: 11},
	)
	tree := catalog.BuildTree(rows)

	s, err := newHybridStrategy(tree, cfg)
	require.NoError(t, err)

	_, ok := s.Lookup("a")
	assert.False(t, ok, "a category on a cyclic parent chain must miss, not hang")

	entry, ok := s.Lookup("c3")
	require.True(t, ok, "healthy categories keep resolving alongside the cycle")
	verifyEntry(t, tree, "c3", entry, cfg.Separator)
}

func TestHybridWalkDepthLimit(t *testing.T) {
	cfg := testConfig()
	cfg.PrimaryMapCap = 1
	cfg.MaxTraversalDepth = 5
	tree := catalog.BuildTree(chainRows(12))

	s, err := newHybridStrategy(tree, cfg)
	require.NoError(t, err)

	entry, ok := s.Lookup("c4")
	require.True(t, ok, "chains inside the depth limit resolve")
	verifyEntry(t, tree, "c4", entry, cfg.Separator)

	_, ok = s.Lookup("c12")
	assert.False(t, ok, "chains past the depth limit are skipped")
	assert.Equal(t, 1, s.MapSizes()["overflow"], "skipped lookups are not memoized")
}

func TestHybridUnknownCategoryMiss(t *testing.T) {
	tree := catalog.BuildTree(chainRows(3))

	s, err := newHybridStrategy(tree, testConfig())
	require.NoError(t, err)

	_, ok := s.Lookup("other-catalog-id")
	assert.False(t, ok)
}
