package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/miradorstack/mirador-coverage/internal/catalog"
	"github.com/miradorstack/mirador-coverage/internal/engine"
	"github.com/miradorstack/mirador-coverage/internal/models"
)

const maxResponseBytes = 32 << 20

// BackendClient is the monitoring-backend surface used by the coverage engine.
type BackendClient interface {
	ListActiveMetrics(ctx context.Context) ([]byte, error)
	GetIntegrationDocumentation(ctx context.Context, integration string) (models.IntegrationDocs, error)
	GetIntegrationMetrics(ctx context.Context, integration string) ([]string, error)
	Validate(ctx context.Context) error
}

// DatadogOptions configures DatadogClient.
type DatadogOptions struct {
	BaseURL           string
	APIKey            string
	AppKey            string
	ActiveMetricsPath string
	ValidatePath      string
	ActiveWindow      time.Duration
	Timeout           time.Duration
	MaxRetries        int
	// RateLimit caps requests per second against the API; RateBurst allows short bursts.
	RateLimit float64
	RateBurst int
}

// DatadogClient wraps the Datadog metrics API. Documentation and per-integration
// metric lists are served locally from the documentation pack and the catalog.
type DatadogClient struct {
	baseURL           string
	apiKey            string
	appKey            string
	activeMetricsPath string
	validatePath      string
	activeWindow      time.Duration
	maxRetries        int
	httpClient        *http.Client
	limiter           *rate.Limiter
	docs              engine.DocumentationProvider
	catalog           catalog.Source
}

// NewDatadogClient constructs a client targeting the configured Datadog site.
func NewDatadogClient(opts DatadogOptions, docs engine.DocumentationProvider, source catalog.Source) *DatadogClient {
	if opts.ActiveMetricsPath == "" {
		opts.ActiveMetricsPath = "/api/v2/metrics"
	}
	if opts.ValidatePath == "" {
		opts.ValidatePath = "/api/v1/validate"
	}
	if opts.ActiveWindow <= 0 {
		opts.ActiveWindow = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}
	return &DatadogClient{
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		apiKey:            opts.APIKey,
		appKey:            opts.AppKey,
		activeMetricsPath: opts.ActiveMetricsPath,
		validatePath:      opts.ValidatePath,
		activeWindow:      opts.ActiveWindow,
		maxRetries:        opts.MaxRetries,
		httpClient:        &http.Client{Timeout: opts.Timeout},
		limiter:           rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		docs:              docs,
		catalog:           source,
	}
}

// ListActiveMetrics returns the raw body of the active-metrics listing.
func (c *DatadogClient) ListActiveMetrics(ctx context.Context) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("datadog client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("datadog base URL not configured")
	}

	endpoint := c.resolvePath(c.activeMetricsPath)
	query := url.Values{}
	query.Set("filter[queried]", "true")
	query.Set("window[seconds]", strconv.FormatInt(int64(c.activeWindow/time.Second), 10))
	endpoint += "?" + query.Encode()

	body, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("datadog active metrics request failed: %w", err)
	}
	return body, nil
}

// Validate checks that the configured API key is accepted.
func (c *DatadogClient) Validate(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("datadog client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("datadog base URL not configured")
	}
	body, err := c.getWithRetry(ctx, c.resolvePath(c.validatePath))
	if err != nil {
		return fmt.Errorf("datadog validate request failed: %w", err)
	}
	if !gjson.GetBytes(body, "valid").Bool() {
		return errors.New("datadog rejected the configured API key")
	}
	return nil
}

// GetIntegrationDocumentation implements engine.DocumentationProvider.
func (c *DatadogClient) GetIntegrationDocumentation(ctx context.Context, integration string) (models.IntegrationDocs, error) {
	if c == nil || c.docs == nil {
		return models.IntegrationDocs{}, fmt.Errorf("documentation provider not configured")
	}
	return c.docs.GetIntegrationDocumentation(ctx, integration)
}

// GetIntegrationMetrics implements engine.IntegrationMetricsProvider.
func (c *DatadogClient) GetIntegrationMetrics(ctx context.Context, integration string) ([]string, error) {
	if c == nil || c.catalog == nil {
		return nil, fmt.Errorf("catalog not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.catalog.Current().MetricNamesFor(integration), nil
}

func (c *DatadogClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// getWithRetry retries transport failures and 5xx/429 responses with
// exponential backoff. Other statuses fail immediately. Every attempt
// waits on the client rate limiter.
func (c *DatadogClient) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		data, err := c.get(ctx, endpoint)
		if err != nil {
			var statusErr *statusError
			if errors.As(err, &statusErr) && !statusErr.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, retry); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *DatadogClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("DD-API-KEY", c.apiKey)
	}
	if c.appKey != "" {
		req.Header.Set("DD-APPLICATION-KEY", c.appKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("datadog returned %s", e.status)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}
