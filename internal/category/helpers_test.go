package category

import (
	"fmt"
	"strings"
	"testing"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/config"

	"github.com/stretchr/testify/require"
)

func testConfig() config.CategoryConfig {
	return config.CategoryConfig{
		Separator:               " > ",
		MaxObjectKeys:           2000,
		SmallCatalogMax:         1500,
		LargeCatalogMin:         1500,
		EstimationCap:           5000,
		ChunkSize:               1600,
		MaxTraversalDepth:       20,
		PrimaryMapCap:           650,
		OverflowCacheCap:        300,
		MaxCategoriesPerProduct: 1900,
	}
}

// balancedRows generates total categories as a balanced tree in
// breadth-first order: node i's children are i*branching+1 through
// i*branching+branching, with the first branching nodes under the
// root.
func balancedRows(total, branching int) []catalog.Row {
	rows := make([]catalog.Row, 0, total)
	for i := 1; i <= total; i++ {
		parentID := catalog.RootID
		if p := (i - 1) / branching; p >= 1 {
			parentID = fmt.Sprintf("c%d", p)
		}
		rows = append(rows, catalog.Row{
			ID:       fmt.Sprintf("c%d", i),
			ParentID: parentID,
			Name:     fmt.Sprintf("Category %d", i),
			Position: i,
		})
	}
	return rows
}

// chainRows generates a single path of depth n: c1 > c2 > ... > cn.
func chainRows(n int) []catalog.Row {
	rows := make([]catalog.Row, 0, n)
	for i := 1; i <= n; i++ {
		parentID := catalog.RootID
		if i > 1 {
			parentID = fmt.Sprintf("c%d", i-1)
		}
		rows = append(rows, catalog.Row{
			ID:       fmt.Sprintf("c%d", i),
			ParentID: parentID,
			Name:     fmt.Sprintf("Level %d", i),
			Position: i,
		})
	}
	return rows
}

// verifyEntry checks the breadcrumb round-trip invariant for one
// category: FullName must be the separator-joined display names of
// ParentIDs followed by the node's own name, with the root excluded.
func verifyEntry(t *testing.T, tree catalog.Provider, id string, entry IndexEntry, sep string) {
	t.Helper()

	node, ok := tree.ByID(id)
	require.True(t, ok, "category %s should exist in the tree", id)

	var ids, names []string
	for p := node.Parent(); p != nil && p.ID() != catalog.RootID; p = p.Parent() {
		ids = append([]string{p.ID()}, ids...)
		names = append([]string{p.DisplayName()}, names...)
	}

	require.Equal(t, strings.Join(ids, ","), strings.Join(entry.ParentIDs, ","),
		"parent chain mismatch for %s", id)
	require.Equal(t, strings.Join(append(names, node.DisplayName()), sep), entry.FullName,
		"breadcrumb mismatch for %s", id)
	require.Len(t, entry.ParentIDs, len(strings.Split(entry.FullName, sep))-1,
		"parent count must equal breadcrumb segments minus one for %s", id)
}

type failingProvider struct{}

func (failingProvider) Root() (catalog.Node, error) {
	return nil, fmt.Errorf("catalog unavailable")
}

func (failingProvider) ByID(string) (catalog.Node, bool) {
	return nil, false
}
