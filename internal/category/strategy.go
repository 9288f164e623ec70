// Package category builds and serves the category-hierarchy index used
// during feed export. The index maps every category id to its full
// breadcrumb name and ancestor chain. Because the hosting platform
// caps the number of enumerable keys one object graph may hold, the
// package picks between three indexing strategies by catalog size and
// keeps every internal map structurally below that cap.
package category

import (
	"fmt"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/config"
)

// IndexEntry is the resolved view of one category. ParentIDs runs from
// the root-most ancestor down to the immediate parent and never
// includes the category itself, so len(ParentIDs) always equals the
// number of separator-joined segments in FullName minus one.
type IndexEntry struct {
	FullName  string
	ParentIDs []string
}

// Strategy resolves a category id to its index entry. A miss means the
// id is not part of this catalog's tree (cross-catalog assignment) and
// the caller skips it.
type Strategy interface {
	Name() string
	Lookup(id string) (IndexEntry, bool)
	MapSizes() map[string]int
}

// Tier names the available strategies, cheapest first.
type Tier string

const (
	TierSingleMap Tier = "singlemap"
	TierChunked   Tier = "chunked"
	TierHybrid    Tier = "hybrid"
)

// SelectTier picks a strategy tier from the estimated category count.
// Below SmallCatalogMax one flat map is provably under the key quota;
// at or above LargeCatalogMin only the hybrid keeps its footprint
// independent of catalog size. The middle tier exists only when the
// configured thresholds leave a gap between them.
func SelectTier(estimated int, cfg config.CategoryConfig) Tier {
	switch {
	case estimated < cfg.SmallCatalogMax:
		return TierSingleMap
	case estimated < cfg.LargeCatalogMin:
		return TierChunked
	default:
		return TierHybrid
	}
}

// BuildStrategy constructs the strategy for the given tier. Callers
// handle construction failures; the export keeps running with whatever
// index it can get.
func BuildStrategy(tier Tier, provider catalog.Provider, cfg config.CategoryConfig) (Strategy, error) {
	switch tier {
	case TierSingleMap:
		return newSingleMapStrategy(provider, cfg)
	case TierChunked:
		return newChunkedStrategy(provider, cfg)
	case TierHybrid:
		return newHybridStrategy(provider, cfg)
	default:
		return nil, fmt.Errorf("unknown strategy tier %q", tier)
	}
}
