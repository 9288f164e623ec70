package category

import (
	"strconv"
	"strings"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/config"

	log "github.com/sirupsen/logrus"
)

// chunkedStrategy collects the whole tree depth-first, then partitions
// the node list into fixed-size chunks so no single map risks the key
// quota. Parent display names are resolved inside each chunk where
// possible and through a global id-to-name registry otherwise; the
// registry stores names only, never paths, which keeps its own key
// count proportional to the catalog but one key per category.
type chunkedStrategy struct {
	chunks []map[string]IndexEntry
	names  map[string]string
}

type collectedNode struct {
	id        string
	name      string
	parentIDs []string
}

func newChunkedStrategy(provider catalog.Provider, cfg config.CategoryConfig) (Strategy, error) {
	root, err := provider.Root()
	if err != nil {
		return nil, err
	}

	s := &chunkedStrategy{names: make(map[string]string)}

	collected := make([]collectedNode, 0)
	for _, child := range root.Subcategories() {
		collected = s.collect(child, nil, 0, cfg, collected)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}

	for start := 0; start < len(collected); start += chunkSize {
		end := start + chunkSize
		if end > len(collected) {
			end = len(collected)
		}
		s.chunks = append(s.chunks, s.buildChunk(collected[start:end], cfg))
	}

	return s, nil
}

// collect walks one branch depth-first, tagging every node with the
// ancestor path in effect when it was visited. Branches deeper than
// the traversal limit are pruned; a legitimate catalog never nests
// that far, so over-depth means a malformed or cyclic tree.
func (s *chunkedStrategy) collect(node catalog.Node, parentIDs []string, depth int, cfg config.CategoryConfig, acc []collectedNode) []collectedNode {
	if node == nil {
		return acc
	}
	if depth > cfg.MaxTraversalDepth {
		log.Warnf("category %s exceeds traversal depth %d, pruning branch", node.ID(), cfg.MaxTraversalDepth)
		return acc
	}

	s.names[node.ID()] = node.DisplayName()
	acc = append(acc, collectedNode{
		id:        node.ID(),
		name:      node.DisplayName(),
		parentIDs: parentIDs,
	})

	childIDs := make([]string, 0, len(parentIDs)+1)
	childIDs = append(childIDs, parentIDs...)
	childIDs = append(childIDs, node.ID())

	for _, child := range node.Subcategories() {
		acc = s.collect(child, childIDs, depth+1, cfg, acc)
	}

	return acc
}

func (s *chunkedStrategy) buildChunk(nodes []collectedNode, cfg config.CategoryConfig) map[string]IndexEntry {
	local := make(map[string]string, len(nodes))
	for _, n := range nodes {
		local[n.id] = n.name
	}

	chunk := make(map[string]IndexEntry, len(nodes))
	for _, n := range nodes {
		segments := make([]string, 0, len(n.parentIDs)+1)
		for _, pid := range n.parentIDs {
			name, ok := local[pid]
			if !ok {
				name = s.names[pid]
			}
			segments = append(segments, name)
		}
		segments = append(segments, n.name)

		chunk[n.id] = IndexEntry{
			FullName:  strings.Join(segments, cfg.Separator),
			ParentIDs: n.parentIDs,
		}
	}

	return chunk
}

func (s *chunkedStrategy) Name() string { return string(TierChunked) }

// Lookup scans chunks in traversal order until a hit. Linear in the
// number of chunks, which is acceptable for the mid-size tier this
// strategy serves.
func (s *chunkedStrategy) Lookup(id string) (IndexEntry, bool) {
	for _, chunk := range s.chunks {
		if entry, ok := chunk[id]; ok {
			return entry, true
		}
	}
	return IndexEntry{}, false
}

func (s *chunkedStrategy) MapSizes() map[string]int {
	sizes := map[string]int{"names_registry": len(s.names)}
	for i, chunk := range s.chunks {
		sizes["chunk_"+strconv.Itoa(i)] = len(chunk)
	}
	return sizes
}
