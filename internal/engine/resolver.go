package engine

import (
	"strings"

	"github.com/miradorstack/mirador-coverage/internal/catalog"
	"github.com/miradorstack/mirador-coverage/internal/models"
)

// Resolver maps a metric name to the integration that produces it. Resolve
// never fails; unknown names resolve to models.CustomIntegration.
type Resolver interface {
	Resolve(metricName string) string
}

// PrefixResolver matches metric names against the two-segment prefixes derived
// by the catalog. Names in namespaces of other depths may resolve loosely.
type PrefixResolver struct {
	source catalog.Source
}

// NewPrefixResolver reads the catalog through source on every call so reloads apply immediately.
func NewPrefixResolver(source catalog.Source) *PrefixResolver {
	if source == nil {
		source = catalog.FallbackIndex()
	}
	return &PrefixResolver{source: source}
}

// Resolve implements Resolver. Integrations are walked in sorted key order and
// the longest matching prefix wins.
func (r *PrefixResolver) Resolve(metricName string) string {
	idx := r.source.Current()
	lower := strings.ToLower(strings.TrimSpace(metricName))
	if lower == "" {
		return models.CustomIntegration
	}
	keys := idx.Integrations()

	best, bestLen := "", 0
	for _, key := range keys {
		for _, prefix := range idx.Prefixes(key) {
			p := strings.ToLower(prefix)
			if p != "" && len(p) > bestLen && strings.HasPrefix(lower, p) {
				best, bestLen = key, len(p)
			}
		}
	}
	if best != "" {
		return best
	}

	parts := strings.SplitN(lower, ".", 3)
	if len(parts) >= 2 {
		candidate := parts[0] + "." + parts[1]
		for _, key := range keys {
			for _, prefix := range idx.Prefixes(key) {
				if strings.EqualFold(prefix, candidate) {
					return key
				}
			}
		}
	}

	return models.CustomIntegration
}
