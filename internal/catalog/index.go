package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

// Index is the immutable lookup structure built from catalog files. It maps
// integration keys to their derived name prefixes and owns the metric definitions.
type Index struct {
	patterns      map[string]*models.IntegrationPattern
	keys          []string
	byIntegration map[string][]models.MetricDefinition
	all           []models.MetricDefinition
	byName        map[string]int
	fallback      bool
}

// Source exposes the current catalog index. Implementations must return a
// non-nil index that is never mutated after publication.
type Source interface {
	Current() *Index
}

// NewIndex builds an index from in-memory definitions grouped by their Integration field.
// Definitions without an integration are ignored.
func NewIndex(defs ...models.MetricDefinition) *Index {
	b := newBuilder()
	for _, def := range defs {
		if def.Integration == "" || def.Name == "" {
			continue
		}
		b.add(def.Integration, "", []models.MetricDefinition{def})
	}
	return b.build()
}

// Current lets a bare index act as its own Source.
func (i *Index) Current() *Index { return i }

// Fallback reports whether the index was substituted with the built-in pattern set.
func (i *Index) Fallback() bool { return i.fallback }

// Integrations returns the known integration keys in sorted order.
func (i *Index) Integrations() []string {
	return append([]string(nil), i.keys...)
}

// Pattern returns the pattern for key.
func (i *Index) Pattern(key string) (models.IntegrationPattern, bool) {
	p, ok := i.patterns[key]
	if !ok {
		return models.IntegrationPattern{}, false
	}
	out := *p
	out.Prefixes = append([]string(nil), p.Prefixes...)
	out.Metrics = append([]string(nil), p.Metrics...)
	return out, true
}

// Prefixes returns the sorted prefix set of key without copying. Callers must not modify it.
func (i *Index) Prefixes(key string) []string {
	if p, ok := i.patterns[key]; ok {
		return p.Prefixes
	}
	return nil
}

// MetricsFor returns the metric definitions owned by an integration.
func (i *Index) MetricsFor(key string) []models.MetricDefinition {
	return append([]models.MetricDefinition(nil), i.byIntegration[key]...)
}

// Detail projects the pattern and metric definitions of key.
func (i *Index) Detail(key string) (models.IntegrationDetail, bool) {
	pattern, ok := i.Pattern(key)
	if !ok {
		return models.IntegrationDetail{}, false
	}
	defs := i.MetricsFor(key)
	if defs == nil {
		defs = []models.MetricDefinition{}
	}
	prefixes := pattern.Prefixes
	if prefixes == nil {
		prefixes = []string{}
	}
	return models.IntegrationDetail{
		Integration: pattern.Key,
		DisplayName: pattern.DisplayName,
		Prefixes:    prefixes,
		Metrics:     defs,
		Fallback:    i.fallback,
	}, true
}

// MetricNamesFor returns the metric names owned by an integration.
func (i *Index) MetricNamesFor(key string) []string {
	if p, ok := i.patterns[key]; ok {
		return append([]string(nil), p.Metrics...)
	}
	return nil
}

// Definition looks up a metric by exact name. The first loaded definition wins.
func (i *Index) Definition(name string) (models.MetricDefinition, bool) {
	idx, ok := i.byName[name]
	if !ok {
		return models.MetricDefinition{}, false
	}
	return i.all[idx], true
}

// Len returns the number of loaded metric definitions.
func (i *Index) Len() int { return len(i.all) }

// All returns every loaded definition in load order.
func (i *Index) All() []models.MetricDefinition {
	return append([]models.MetricDefinition(nil), i.all...)
}

// SearchByKeyword returns definitions whose name, description or short name
// contains keyword, case-insensitively.
func (i *Index) SearchByKeyword(keyword string) []models.MetricDefinition {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil
	}
	var matched []models.MetricDefinition
	for _, def := range i.all {
		if strings.Contains(strings.ToLower(def.Name), kw) ||
			strings.Contains(strings.ToLower(def.Description), kw) ||
			strings.Contains(strings.ToLower(def.ShortName), kw) {
			matched = append(matched, def)
		}
	}
	return matched
}

// Summary reports totals per integration and per metric type.
func (i *Index) Summary() models.CatalogSummary {
	summary := models.CatalogSummary{
		TotalMetrics:         len(i.all),
		Integrations:         len(i.keys),
		IntegrationBreakdown: make(map[string]int, len(i.keys)),
		MetricTypes:          make(map[string]int),
		Fallback:             i.fallback,
	}
	for _, key := range i.keys {
		summary.IntegrationBreakdown[key] = len(i.byIntegration[key])
	}
	for _, def := range i.all {
		summary.MetricTypes[string(def.Type)]++
	}
	return summary
}

type builder struct {
	patterns      map[string]*models.IntegrationPattern
	prefixSets    map[string]map[string]struct{}
	byIntegration map[string][]models.MetricDefinition
	all           []models.MetricDefinition
}

func newBuilder() *builder {
	return &builder{
		patterns:      make(map[string]*models.IntegrationPattern),
		prefixSets:    make(map[string]map[string]struct{}),
		byIntegration: make(map[string][]models.MetricDefinition),
	}
}

func (b *builder) add(key, source string, defs []models.MetricDefinition) {
	pattern, ok := b.patterns[key]
	if !ok {
		pattern = &models.IntegrationPattern{Key: key, DisplayName: displayName(key), Source: source}
		b.patterns[key] = pattern
		b.prefixSets[key] = make(map[string]struct{})
	}
	set := b.prefixSets[key]
	for _, def := range defs {
		pattern.Metrics = append(pattern.Metrics, def.Name)
		if prefix, ok := namePrefix(def.Name); ok {
			set[prefix] = struct{}{}
		}
	}
	b.byIntegration[key] = append(b.byIntegration[key], defs...)
	b.all = append(b.all, defs...)
}

func (b *builder) build() *Index {
	idx := &Index{
		patterns:      b.patterns,
		keys:          make([]string, 0, len(b.patterns)),
		byIntegration: b.byIntegration,
		all:           b.all,
		byName:        make(map[string]int, len(b.all)),
	}
	for key, pattern := range b.patterns {
		idx.keys = append(idx.keys, key)
		if len(pattern.Prefixes) == 0 {
			for prefix := range b.prefixSets[key] {
				pattern.Prefixes = append(pattern.Prefixes, prefix)
			}
		}
		sort.Strings(pattern.Prefixes)
	}
	sort.Strings(idx.keys)
	for pos, def := range b.all {
		if _, exists := idx.byName[def.Name]; !exists {
			idx.byName[def.Name] = pos
		}
	}
	return idx
}

// namePrefix returns the first two dot-separated segments of name. Namespaces
// deeper than two segments collapse onto their first two.
func namePrefix(name string) (string, bool) {
	parts := strings.SplitN(name, ".", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "." + parts[1], true
}

func displayName(key string) string {
	// Casers carry state, so one is built per call.
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}
