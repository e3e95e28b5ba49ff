package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/miradorstack/mirador-coverage/internal/cache"
	"github.com/miradorstack/mirador-coverage/internal/metrics"
)

const (
	// DefaultCustomerMetricsTTL bounds how long a fetched metric list is reused.
	DefaultCustomerMetricsTTL = 300 * time.Second
	// DefaultEndpointTimeout bounds a custom endpoint read.
	DefaultEndpointTimeout = 30 * time.Second
	// CustomerIDPlaceholder is substituted in the endpoint template.
	CustomerIDPlaceholder = "{customer_id}"

	defaultCacheKey = "default"
)

// ActiveMetricsLister is the backend call used when no custom endpoint applies.
type ActiveMetricsLister interface {
	ListActiveMetrics(ctx context.Context) ([]byte, error)
}

// CustomerMetricsOptions configures CustomerMetricsProvider.
type CustomerMetricsOptions struct {
	EndpointTemplate string
	EndpointTimeout  time.Duration
	TTL              time.Duration
}

type customerMetricsEntry struct {
	Metrics   []string  `json:"metrics"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CustomerMetricsProvider fetches the metric names a customer already collects
// and caches them per customer. Callers without a customer id share one entry.
type CustomerMetricsProvider struct {
	logger     *slog.Logger
	backend    ActiveMetricsLister
	template   string
	ttl        time.Duration
	httpClient *http.Client
	cache      cache.Provider
	group      singleflight.Group
	now        func() time.Time
}

// NewCustomerMetricsProvider constructs a provider. A nil cache disables caching.
func NewCustomerMetricsProvider(logger *slog.Logger, backend ActiveMetricsLister, cacheProvider cache.Provider, opts CustomerMetricsOptions) *CustomerMetricsProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCustomerMetricsTTL
	}
	if opts.EndpointTimeout <= 0 {
		opts.EndpointTimeout = DefaultEndpointTimeout
	}
	return &CustomerMetricsProvider{
		logger:     logger,
		backend:    backend,
		template:   strings.TrimSpace(opts.EndpointTemplate),
		ttl:        opts.TTL,
		httpClient: &http.Client{Timeout: opts.EndpointTimeout},
		cache:      cacheProvider,
		now:        time.Now,
	}
}

// GetMetrics returns the customer's collected metric names. Failures are
// logged and produce an empty slice; they are not cached.
func (p *CustomerMetricsProvider) GetMetrics(ctx context.Context, customerID string) []string {
	customerID = strings.TrimSpace(customerID)
	key := cacheKey(customerID)

	if names, ok := p.cached(ctx, key); ok {
		metrics.ObserveCacheLookup(true)
		return names
	}
	metrics.ObserveCacheLookup(false)

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	results := p.group.DoChan(key, func() (interface{}, error) {
		if names, ok := p.cached(fetchCtx, key); ok {
			return names, nil
		}
		names, err := p.fetch(fetchCtx, customerID)
		if err != nil {
			return nil, err
		}
		p.store(fetchCtx, key, names)
		return names, nil
	})

	select {
	case <-ctx.Done():
		p.logger.Warn("customer metrics lookup abandoned", slog.String("customer_id", customerID), slog.Any("error", ctx.Err()))
		return []string{}
	case res := <-results:
		if res.Err != nil {
			p.logger.Error("failed to get customer metrics", slog.String("customer_id", customerID), slog.Any("error", res.Err))
			return []string{}
		}
		names := res.Val.([]string)
		return append([]string(nil), names...)
	}
}

// Invalidate drops the cached entry for customerID.
func (p *CustomerMetricsProvider) Invalidate(ctx context.Context, customerID string) {
	if err := p.cache.Del(ctx, cacheKey(strings.TrimSpace(customerID))); err != nil {
		p.logger.Warn("failed to invalidate customer metrics", slog.String("customer_id", customerID), slog.Any("error", err))
	}
}

func (p *CustomerMetricsProvider) cached(ctx context.Context, key string) ([]string, bool) {
	data, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("customer metrics cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	var entry customerMetricsEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if p.now().Sub(entry.FetchedAt) >= p.ttl {
		return nil, false
	}
	return entry.Metrics, true
}

func (p *CustomerMetricsProvider) store(ctx context.Context, key string, names []string) {
	payload, err := json.Marshal(customerMetricsEntry{Metrics: names, FetchedAt: p.now()})
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, payload, p.ttl); err != nil {
		p.logger.Warn("customer metrics cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (p *CustomerMetricsProvider) fetch(ctx context.Context, customerID string) ([]string, error) {
	if p.template != "" && customerID != "" {
		names, err := p.fetchFromEndpoint(ctx, customerID)
		metrics.ObserveCustomerFetch(metrics.SourceEndpoint, outcome(err))
		return names, err
	}

	if p.backend == nil {
		metrics.ObserveCustomerFetch(metrics.SourceBackend, metrics.OutcomeError)
		return nil, errors.New("monitoring backend not configured")
	}
	body, err := p.backend.ListActiveMetrics(ctx)
	if err != nil {
		metrics.ObserveCustomerFetch(metrics.SourceBackend, metrics.OutcomeError)
		return nil, err
	}
	names, err := ParseActiveMetrics(body)
	metrics.ObserveCustomerFetch(metrics.SourceBackend, outcome(err))
	return names, err
}

func (p *CustomerMetricsProvider) fetchFromEndpoint(ctx context.Context, customerID string) ([]string, error) {
	endpoint := strings.ReplaceAll(p.template, CustomerIDPlaceholder, url.PathEscape(customerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build customer metrics request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("customer metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("customer metrics endpoint returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read customer metrics response: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("customer metrics response is not valid JSON (%d bytes read)", len(body))
	}
	names, ok := ParseCustomerMetrics(body)
	if !ok {
		p.logger.Warn("unexpected response format from customer metrics endpoint", slog.String("customer_id", customerID))
		return []string{}, nil
	}
	return names, nil
}

// ParseCustomerMetrics accepts a bare array of names, or an object holding the
// array under "metrics" or "data". ok is false for any other shape.
func ParseCustomerMetrics(body []byte) ([]string, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	root := gjson.ParseBytes(body)
	switch {
	case root.IsArray():
		return stringValues(root), true
	case root.IsObject():
		if m := root.Get("metrics"); m.IsArray() {
			return stringValues(m), true
		}
		if d := root.Get("data"); d.IsArray() {
			return stringValues(d), true
		}
	}
	return nil, false
}

// ParseActiveMetrics extracts metric names from a backend listing. The typed
// entity list ({"data":[{"type":"metrics","id":...}]}) is preferred; a flat
// "metrics" array and a bare array are accepted as older formats.
func ParseActiveMetrics(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("active metrics response is not valid JSON")
	}
	root := gjson.ParseBytes(body)

	if data := root.Get("data"); data.IsArray() {
		names := make([]string, 0)
		data.ForEach(func(_, item gjson.Result) bool {
			if item.Get("type").String() == "metrics" {
				if id := item.Get("id").String(); id != "" {
					names = append(names, id)
				}
			}
			return true
		})
		return names, nil
	}
	if m := root.Get("metrics"); m.IsArray() {
		return stringValues(m), nil
	}
	if root.IsArray() {
		return stringValues(root), nil
	}
	return nil, errors.New("unrecognised active metrics response format")
}

func stringValues(arr gjson.Result) []string {
	names := make([]string, 0)
	arr.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String && item.Str != "" {
			names = append(names, item.Str)
		}
		return true
	})
	return names
}

func cacheKey(customerID string) string {
	if customerID == "" {
		customerID = defaultCacheKey
	}
	return "customer_metrics_" + customerID
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}
