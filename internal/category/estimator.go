package category

import (
	"ugc/exporter/internal/catalog"
)

// EstimateCategoryCount approximates how many categories are reachable
// from the catalog root. It breadth-first walks from the root's
// immediate children and stops once limit nodes have been counted, so
// enormous or accidentally cyclic catalogs cost a bounded amount of
// work. The result only steers strategy selection; it is never used to
// size the index itself.
func EstimateCategoryCount(provider catalog.Provider, limit int) (int, error) {
	root, err := provider.Root()
	if err != nil {
		return 0, err
	}

	count := 0
	queue := root.Subcategories()
	for len(queue) > 0 && count < limit {
		node := queue[0]
		queue = queue[1:]
		if node == nil {
			continue
		}
		count++
		queue = append(queue, node.Subcategories()...)
	}

	return count, nil
}
