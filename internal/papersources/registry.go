package papersources

import (
	"sort"
	"sync"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// Registry manages the process-wide set of provider clients. It provides
// thread-safe registration and retrieval; because clients (and their rate
// limiters) are registered once and shared, every concurrent research job
// draws from the same per-provider rate budget.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source to the registry, replacing any source with the same
// type. This method is thread-safe.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// EnabledSources returns the enabled sources among the requested types,
// ordered by source type for deterministic dispatch. If types is empty, all
// enabled registered sources are returned. Requested types that are not
// registered or not enabled are skipped.
func (r *Registry) EnabledSources(types []domain.SourceType) []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sources []PaperSource
	if len(types) == 0 {
		for _, source := range r.sources {
			if source.IsEnabled() {
				sources = append(sources, source)
			}
		}
	} else {
		for _, st := range types {
			if source, ok := r.sources[st]; ok && source.IsEnabled() {
				sources = append(sources, source)
			}
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].SourceType() < sources[j].SourceType()
	})
	return sources
}
