package category

import (
	"strings"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/config"

	log "github.com/sirupsen/logrus"
)

// singleMapStrategy indexes the whole tree into one map. Only selected
// when the estimated catalog size keeps the map safely under the key
// quota; admission is still hard-capped at MaxObjectKeys in case the
// estimate undershot.
type singleMapStrategy struct {
	entries map[string]IndexEntry
}

type bfsItem struct {
	node        catalog.Node
	parentIDs   []string
	parentNames []string
}

func newSingleMapStrategy(provider catalog.Provider, cfg config.CategoryConfig) (Strategy, error) {
	root, err := provider.Root()
	if err != nil {
		return nil, err
	}

	s := &singleMapStrategy{entries: make(map[string]IndexEntry)}

	queue := make([]bfsItem, 0, len(root.Subcategories()))
	for _, child := range root.Subcategories() {
		queue = append(queue, bfsItem{node: child})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.node == nil {
			continue
		}

		if len(s.entries) >= cfg.MaxObjectKeys {
			log.Warnf("category index reached the %d key quota while building the flat map; remaining categories are not indexed", cfg.MaxObjectKeys)
			break
		}

		name := item.node.DisplayName()
		fullName := name
		if len(item.parentNames) > 0 {
			fullName = strings.Join(item.parentNames, cfg.Separator) + cfg.Separator + name
		}

		s.entries[item.node.ID()] = IndexEntry{
			FullName:  fullName,
			ParentIDs: item.parentIDs,
		}

		// Each child gets its own copy of the accumulated path so
		// sibling branches never alias the same backing array.
		for _, child := range item.node.Subcategories() {
			childIDs := make([]string, 0, len(item.parentIDs)+1)
			childIDs = append(childIDs, item.parentIDs...)
			childIDs = append(childIDs, item.node.ID())

			childNames := make([]string, 0, len(item.parentNames)+1)
			childNames = append(childNames, item.parentNames...)
			childNames = append(childNames, name)

			queue = append(queue, bfsItem{node: child, parentIDs: childIDs, parentNames: childNames})
		}
	}

	return s, nil
}

func (s *singleMapStrategy) Name() string { return string(TierSingleMap) }

func (s *singleMapStrategy) Lookup(id string) (IndexEntry, bool) {
	entry, ok := s.entries[id]
	return entry, ok
}

func (s *singleMapStrategy) MapSizes() map[string]int {
	return map[string]int{"entries": len(s.entries)}
}
