package category

import (
	"fmt"
	"strings"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/config"
	"ugc/exporter/internal/domain"

	log "github.com/sirupsen/logrus"
)

// CacheStatistics reports which strategy is active and how big its
// internal maps are. Exposed for job logging and tests.
type CacheStatistics struct {
	Strategy string         `json:"strategy"`
	MapSizes map[string]int `json:"map_sizes"`
}

// Manager owns the category index for exactly one job run. It is
// constructed per job, passed explicitly to whoever assembles export
// records, and cleared when the job ends so no category data leaks
// into a later run against a different catalog. The job driver calls
// strictly sequentially; there is no locking here by contract.
type Manager struct {
	provider catalog.Provider
	cfg      config.CategoryConfig
	strategy Strategy
}

func NewManager(provider catalog.Provider, cfg config.CategoryConfig) *Manager {
	return &Manager{
		provider: provider,
		cfg:      cfg,
	}
}

// PreInitialize builds the whole index up front so the first products
// of a job do not absorb the build cost unpredictably. Callers treat a
// failure as non-fatal: the index falls back to lazy initialization on
// the first lookup.
func (m *Manager) PreInitialize() error {
	if m.strategy != nil {
		return nil
	}

	estimated, err := EstimateCategoryCount(m.provider, m.cfg.EstimationCap)
	if err != nil {
		return fmt.Errorf("failed to estimate catalog size: %w", err)
	}

	tier := SelectTier(estimated, m.cfg)
	log.Infof("category index: ~%d categories, using %s strategy", estimated, tier)

	strategy, err := BuildStrategy(tier, m.provider, m.cfg)
	if err != nil {
		return fmt.Errorf("failed to build %s strategy: %w", tier, err)
	}

	m.strategy = strategy
	return nil
}

// ensureStrategy is the lazy path behind every lookup. Estimation or
// construction failures degrade to the cheapest strategy rather than
// failing the export; a broken catalog read then simply yields an
// empty index and products without category metadata.
func (m *Manager) ensureStrategy() Strategy {
	if m.strategy != nil {
		return m.strategy
	}

	estimated, err := EstimateCategoryCount(m.provider, m.cfg.EstimationCap)
	if err != nil {
		log.Warnf("catalog size estimation failed, falling back to %s strategy: %v", TierSingleMap, err)
		estimated = 0
	}

	tier := SelectTier(estimated, m.cfg)
	strategy, err := BuildStrategy(tier, m.provider, m.cfg)
	if err != nil {
		log.Warnf("failed to build %s strategy, falling back to %s: %v", tier, TierSingleMap, err)
		strategy, err = BuildStrategy(TierSingleMap, m.provider, m.cfg)
		if err != nil {
			log.Warnf("failed to build fallback strategy, categories will not be resolved: %v", err)
			strategy = emptyStrategy{}
		}
	}

	m.strategy = strategy
	return m.strategy
}

// CategoriesForProduct resolves a product's category assignments into
// a deduplicated list of id/name pairs covering each assigned category
// and all of its ancestors, root excluded. Unknown ids (cross-catalog
// assignments) are skipped. The result is capped well under the
// platform key quota to leave headroom for the rest of the export
// payload; it is never nil.
func (m *Manager) CategoriesForProduct(assignmentIDs []string) []domain.CategoryPair {
	strategy := m.ensureStrategy()

	pairs := make([]domain.CategoryPair, 0, len(assignmentIDs))
	seen := make(map[string]struct{}, len(assignmentIDs))

	for _, id := range assignmentIDs {
		if len(pairs) >= m.cfg.MaxCategoriesPerProduct {
			log.Warnf("product category list capped at %d entries", m.cfg.MaxCategoriesPerProduct)
			break
		}

		entry, ok := strategy.Lookup(id)
		if !ok {
			continue
		}

		names := splitFullName(entry.FullName, m.cfg.Separator)
		if len(names) != len(entry.ParentIDs)+1 {
			log.Warnf("category %s has inconsistent breadcrumb %q, skipping", id, entry.FullName)
			continue
		}

		for i, parentID := range entry.ParentIDs {
			if _, dup := seen[parentID]; dup {
				continue
			}
			if len(pairs) >= m.cfg.MaxCategoriesPerProduct {
				break
			}
			seen[parentID] = struct{}{}
			pairs = append(pairs, domain.CategoryPair{CategoryID: parentID, CategoryName: names[i]})
		}

		if _, dup := seen[id]; dup {
			continue
		}
		if len(pairs) >= m.cfg.MaxCategoriesPerProduct {
			break
		}
		seen[id] = struct{}{}
		pairs = append(pairs, domain.CategoryPair{CategoryID: id, CategoryName: names[len(names)-1]})
	}

	return pairs
}

// Stats implements the cache statistics surface of the job driver
// contract.
func (m *Manager) Stats() CacheStatistics {
	if m.strategy == nil {
		return CacheStatistics{Strategy: "uninitialized", MapSizes: map[string]int{}}
	}
	return CacheStatistics{
		Strategy: m.strategy.Name(),
		MapSizes: m.strategy.MapSizes(),
	}
}

// Clear drops all strategy state. Called between job runs and on the
// job's failure path so a later run rebuilds from its own catalog.
func (m *Manager) Clear() {
	m.strategy = nil
}

func splitFullName(fullName, separator string) []string {
	return strings.Split(fullName, separator)
}

type emptyStrategy struct{}

func (emptyStrategy) Name() string                     { return "empty" }
func (emptyStrategy) Lookup(string) (IndexEntry, bool) { return IndexEntry{}, false }
func (emptyStrategy) MapSizes() map[string]int         { return map[string]int{} }
