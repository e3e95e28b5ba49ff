package models

// Priority captures monitoring urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// CustomIntegration is reported for metrics that match no known integration.
const CustomIntegration = "custom"

// MissingMetric describes a suggested metric the customer does not collect yet.
type MissingMetric struct {
	Name        string   `json:"metric_name"`
	Integration string   `json:"integration"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Unit        string   `json:"unit"`
	SetupURL    string   `json:"setup_url"`
	MetricsURL  string   `json:"metrics_url"`
	SetupSteps  []string `json:"setup_steps"`
	Priority    Priority `json:"priority"`
}

// RecommendedMetric is the per-metric entry listed under a recommendation.
type RecommendedMetric struct {
	Name     string   `json:"name"`
	Priority Priority `json:"priority"`
}

// Recommendation groups missing metrics that a single integration setup would cover.
type Recommendation struct {
	Integration       string              `json:"integration"`
	MissingCount      int                 `json:"missing_metrics_count"`
	HighPriorityCount int                 `json:"high_priority_count"`
	SetupURL          string              `json:"setup_url"`
	Description       string              `json:"description"`
	Priority          Priority            `json:"priority"`
	Metrics           []RecommendedMetric `json:"metrics"`
}

// CoverageResult is the outcome of one coverage analysis.
type CoverageResult struct {
	ExistingMetrics    []string         `json:"existing_metrics"`
	MissingMetrics     []MissingMetric  `json:"missing_metrics"`
	TotalSuggested     int              `json:"total_suggested"`
	CoveragePercentage float64          `json:"coverage_percentage"`
	Recommendations    []Recommendation `json:"recommendations"`
}

// IntegrationDocs carries setup documentation pointers for an integration.
type IntegrationDocs struct {
	Description string   `json:"description" yaml:"description"`
	SetupURL    string   `json:"setup_url" yaml:"setupURL"`
	MetricsURL  string   `json:"metrics_url" yaml:"metricsURL"`
	SetupSteps  []string `json:"setup_steps" yaml:"setupSteps"`
}

// SetupGuide is the per-integration setup projection.
type SetupGuide struct {
	Integration        string   `json:"integration"`
	Description        string   `json:"description"`
	SetupURL           string   `json:"setup_url"`
	MetricsURL         string   `json:"metrics_url"`
	SetupSteps         []string `json:"setup_steps"`
	AvailableMetrics   []string `json:"available_metrics"`
	EstimatedSetupTime string   `json:"estimated_setup_time"`
}

// CatalogSummary reports what the catalog currently holds.
type CatalogSummary struct {
	TotalMetrics         int            `json:"total_metrics"`
	Integrations         int            `json:"integrations"`
	IntegrationBreakdown map[string]int `json:"integration_breakdown"`
	MetricTypes          map[string]int `json:"metric_types"`
	Fallback             bool           `json:"fallback"`
}

// AnalyzeRequest is the input of a coverage analysis. Metrics entries may be
// bare names or objects, see SuggestedMetric.
type AnalyzeRequest struct {
	CustomerID string            `json:"customer_id"`
	Metrics    []SuggestedMetric `json:"metrics"`
}

// SetupGuideRequest selects the integration for a setup guide.
type SetupGuideRequest struct {
	Integration string `json:"integration"`
}

// IntegrationDetail lists what the catalog holds for one integration.
type IntegrationDetail struct {
	Integration string             `json:"integration"`
	DisplayName string             `json:"display_name"`
	Prefixes    []string           `json:"prefixes"`
	Metrics     []MetricDefinition `json:"metrics"`
	Fallback    bool               `json:"fallback"`
}

// IntegrationRequest selects an integration by catalog key.
type IntegrationRequest struct {
	Integration string `json:"integration"`
}
