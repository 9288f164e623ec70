package category

import (
	"strings"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/config"

	log "github.com/sirupsen/logrus"
)

// hybridStrategy guarantees quota compliance at any catalog size. A
// breadth-first pass pre-indexes categories until the primary map hits
// its admission cap; everything past the cap is resolved on demand by
// walking parent pointers up to the nearest pre-indexed ancestor and
// memoized in a bounded overflow cache. Both maps are capped
// independently, so worst-case memory never depends on catalog size
// and worst-case lookup cost is tree depth, not tree size.
type hybridStrategy struct {
	provider    catalog.Provider
	separator   string
	primary     map[string]IndexEntry
	overflow    map[string]IndexEntry
	overflowCap int
	maxDepth    int
}

func newHybridStrategy(provider catalog.Provider, cfg config.CategoryConfig) (Strategy, error) {
	root, err := provider.Root()
	if err != nil {
		return nil, err
	}

	s := &hybridStrategy{
		provider:    provider,
		separator:   cfg.Separator,
		primary:     make(map[string]IndexEntry, cfg.PrimaryMapCap),
		overflow:    make(map[string]IndexEntry),
		overflowCap: cfg.OverflowCacheCap,
		maxDepth:    cfg.MaxTraversalDepth,
	}

	queue := make([]bfsItem, 0, len(root.Subcategories()))
	for _, child := range root.Subcategories() {
		queue = append(queue, bfsItem{node: child})
	}

	for len(queue) > 0 && len(s.primary) < cfg.PrimaryMapCap {
		item := queue[0]
		queue = queue[1:]
		if item.node == nil {
			continue
		}

		name := item.node.DisplayName()
		fullName := name
		if len(item.parentNames) > 0 {
			fullName = strings.Join(item.parentNames, s.separator) + s.separator + name
		}

		s.primary[item.node.ID()] = IndexEntry{
			FullName:  fullName,
			ParentIDs: item.parentIDs,
		}

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

func (s *hybridStrategy) Name() string { return string(TierHybrid) }

// Lookup checks the primary map, then the overflow cache, and finally
// resolves the entry by walking the ancestor chain through the host
// catalog. When the walk finds a pre-indexed ancestor, that ancestor's
// own id stays in the chain as the root-most appended element; the
// full parent chain must survive the handoff between map and walk.
func (s *hybridStrategy) Lookup(id string) (IndexEntry, bool) {
	if entry, ok := s.primary[id]; ok {
		return entry, true
	}
	if entry, ok := s.overflow[id]; ok {
		return entry, true
	}

	node, ok := s.provider.ByID(id)
	if !ok || node == nil || id == catalog.RootID {
		return IndexEntry{}, false
	}

	entry, ok := s.resolveByWalk(node)
	if !ok {
		return IndexEntry{}, false
	}

	// Best-effort memoization: a full overflow cache drops the entry,
	// never the result.
	if len(s.overflow) < s.overflowCap {
		s.overflow[id] = entry
	}

	return entry, true
}

// resolveByWalk climbs parent pointers up to maxDepth steps. A chain
// longer than that means a malformed or cyclic tree; the walk stops
// with a warning and the lookup misses instead of spinning.
func (s *hybridStrategy) resolveByWalk(node catalog.Node) (IndexEntry, bool) {
	// Collected leaf-to-root while climbing, reversed on assembly.
	climbedIDs := make([]string, 0, 8)
	climbedNames := make([]string, 0, 8)

	for p := node.Parent(); p != nil && p.ID() != catalog.RootID; p = p.Parent() {
		if mapped, ok := s.primary[p.ID()]; ok {
			return s.assemble(node, mapped, p.ID(), climbedIDs, climbedNames), true
		}
		if mapped, ok := s.overflow[p.ID()]; ok {
			return s.assemble(node, mapped, p.ID(), climbedIDs, climbedNames), true
		}
		if len(climbedIDs) >= s.maxDepth {
			log.Warnf("category %s ancestor chain exceeds traversal depth %d, skipping", node.ID(), s.maxDepth)
			return IndexEntry{}, false
		}
		climbedIDs = append(climbedIDs, p.ID())
		climbedNames = append(climbedNames, p.DisplayName())
	}

	// No mapped ancestor below the root: the climbed chain is the
	// whole ancestry.
	parentIDs := reversed(climbedIDs)
	segments := append(reversed(climbedNames), node.DisplayName())
	return IndexEntry{
		FullName:  strings.Join(segments, s.separator),
		ParentIDs: parentIDs,
	}, true
}

func (s *hybridStrategy) assemble(node catalog.Node, mapped IndexEntry, mappedID string, climbedIDs, climbedNames []string) IndexEntry {
	parentIDs := make([]string, 0, len(mapped.ParentIDs)+1+len(climbedIDs))
	parentIDs = append(parentIDs, mapped.ParentIDs...)
	parentIDs = append(parentIDs, mappedID)
	parentIDs = append(parentIDs, reversed(climbedIDs)...)

	segments := make([]string, 0, 2+len(climbedNames))
	segments = append(segments, mapped.FullName)
	segments = append(segments, reversed(climbedNames)...)
	segments = append(segments, node.DisplayName())

	return IndexEntry{
		FullName:  strings.Join(segments, s.separator),
		ParentIDs: parentIDs,
	}
}

func (s *hybridStrategy) MapSizes() map[string]int {
	return map[string]int{
		"primary":  len(s.primary),
		"overflow": len(s.overflow),
	}
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
