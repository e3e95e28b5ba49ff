package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

const (
	defaultDocTimeout     = 10 * time.Second
	defaultDocConcurrency = 8
)

// MetricsProvider returns the metric names a customer already collects. It
// degrades to an empty slice instead of failing.
type MetricsProvider interface {
	GetMetrics(ctx context.Context, customerID string) []string
}

// DocumentationProvider resolves setup documentation for an integration.
type DocumentationProvider interface {
	GetIntegrationDocumentation(ctx context.Context, integration string) (models.IntegrationDocs, error)
}

// IntegrationMetricsProvider lists the metrics an integration can report.
type IntegrationMetricsProvider interface {
	GetIntegrationMetrics(ctx context.Context, integration string) ([]string, error)
}

// AnalyzerOptions tunes documentation lookups.
type AnalyzerOptions struct {
	DocTimeout     time.Duration
	DocConcurrency int
}

// Analyzer compares suggested metrics with what a customer collects.
type Analyzer struct {
	logger   *slog.Logger
	metrics  MetricsProvider
	resolver Resolver
	docs     DocumentationProvider
	catalog  IntegrationMetricsProvider
	opts     AnalyzerOptions
}

// NewAnalyzer constructs a coverage analyzer. docs and catalog may be nil, in
// which case documentation fields and available metrics stay empty.
func NewAnalyzer(
	logger *slog.Logger,
	metrics MetricsProvider,
	resolver Resolver,
	docs DocumentationProvider,
	catalog IntegrationMetricsProvider,
	opts AnalyzerOptions,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DocTimeout <= 0 {
		opts.DocTimeout = defaultDocTimeout
	}
	if opts.DocConcurrency <= 0 {
		opts.DocConcurrency = defaultDocConcurrency
	}
	return &Analyzer{
		logger:   logger,
		metrics:  metrics,
		resolver: resolver,
		docs:     docs,
		catalog:  catalog,
		opts:     opts,
	}
}

// Analyze computes coverage of suggested against the metrics the customer
// collects. Only internal faults produce an error, always an *AnalysisError.
func (a *Analyzer) Analyze(ctx context.Context, suggested []models.SuggestedMetric, customerID string) (result models.CoverageResult, err error) {
	const op = "engine.Analyze"
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("coverage analysis panicked", slog.Any("panic", r))
			result = models.CoverageResult{}
			err = &AnalysisError{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if a.metrics == nil {
		return models.CoverageResult{}, &AnalysisError{Op: op, Err: errors.New("metrics provider not configured")}
	}
	if a.resolver == nil {
		return models.CoverageResult{}, &AnalysisError{Op: op, Err: errors.New("resolver not configured")}
	}

	existing := a.metrics.GetMetrics(ctx, customerID)
	existingSet := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		existingSet[name] = struct{}{}
	}

	total := 0
	missing := make([]models.MissingMetric, 0)
	for _, s := range suggested {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			a.logger.Debug("skipping suggested metric without a name")
			continue
		}
		total++
		if _, ok := existingSet[name]; ok {
			continue
		}
		integration := a.resolver.Resolve(name)
		missing = append(missing, models.MissingMetric{
			Name:        name,
			Integration: integration,
			Description: firstNonEmpty(s.Description, fmt.Sprintf("Metric from %s integration", integration)),
			Type:        firstNonEmpty(s.Type, string(models.MetricTypeGauge)),
			Unit:        s.Unit,
			SetupSteps:  []string{},
			Priority:    ClassifyPriority(name),
		})
	}

	if err := a.attachDocumentation(ctx, missing); err != nil {
		return models.CoverageResult{}, &AnalysisError{Op: op, Err: err}
	}

	return models.CoverageResult{
		ExistingMetrics:    sortedKeys(existingSet),
		MissingMetrics:     missing,
		TotalSuggested:     total,
		CoveragePercentage: CoveragePercentage(total, len(missing)),
		Recommendations:    AggregateRecommendations(missing),
	}, nil
}

// attachDocumentation fills documentation fields, one lookup per integration.
// A failed lookup leaves that integration's fields empty.
func (a *Analyzer) attachDocumentation(ctx context.Context, missing []models.MissingMetric) error {
	if a.docs == nil || len(missing) == 0 {
		return nil
	}

	integrations := make([]string, 0)
	seen := make(map[string]struct{})
	for _, m := range missing {
		if _, ok := seen[m.Integration]; ok {
			continue
		}
		seen[m.Integration] = struct{}{}
		integrations = append(integrations, m.Integration)
	}

	var mu sync.Mutex
	docs := make(map[string]models.IntegrationDocs, len(integrations))

	var g errgroup.Group
	g.SetLimit(a.opts.DocConcurrency)
	for _, integration := range integrations {
		integration := integration
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("documentation lookup for %s panicked: %v", integration, r)
				}
			}()
			doc, ok := a.lookupDocs(ctx, integration)
			if !ok {
				return nil
			}
			mu.Lock()
			docs[integration] = doc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i := range missing {
		doc, ok := docs[missing[i].Integration]
		if !ok {
			continue
		}
		missing[i].SetupURL = doc.SetupURL
		missing[i].MetricsURL = doc.MetricsURL
		if len(doc.SetupSteps) > 0 {
			missing[i].SetupSteps = append([]string(nil), doc.SetupSteps...)
		}
	}
	return nil
}

func (a *Analyzer) lookupDocs(ctx context.Context, integration string) (models.IntegrationDocs, bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, a.opts.DocTimeout)
	defer cancel()

	doc, err := a.docs.GetIntegrationDocumentation(lookupCtx, integration)
	if err != nil {
		a.logger.Warn("documentation lookup failed", slog.String("integration", integration), slog.Any("error", err))
		return models.IntegrationDocs{}, false
	}
	return doc, true
}

// CoveragePercentage returns the share of suggestions already collected. An
// empty suggestion list counts as full coverage.
func CoveragePercentage(total, missing int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(total-missing) / float64(total) * 100
}

// RoundCoverage rounds a percentage to one decimal place for display.
func RoundCoverage(pct float64) float64 {
	return math.Round(pct*10) / 10
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
