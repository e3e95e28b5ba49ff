package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

const defaultSetupTime = "10-20 minutes"

var setupTimeEstimates = map[string]string{
	"aws":        "15-30 minutes",
	"azure":      "15-30 minutes",
	"gcp":        "15-30 minutes",
	"nginx":      "5-10 minutes",
	"mysql":      "10-15 minutes",
	"postgresql": "10-15 minutes",
	"redis":      "5-10 minutes",
	"docker":     "10-20 minutes",
	"kubernetes": "20-45 minutes",
	"custom":     "5-15 minutes",
}

// EstimateSetupTime returns a rough setup duration for an integration.
func EstimateSetupTime(integration string) string {
	if est, ok := setupTimeEstimates[strings.ToLower(integration)]; ok {
		return est
	}
	return defaultSetupTime
}

// SetupGuide projects documentation and available metrics for one integration.
// Lookup failures leave the corresponding fields empty.
func (a *Analyzer) SetupGuide(ctx context.Context, integration string) models.SetupGuide {
	guide := models.SetupGuide{
		Integration:        integration,
		Description:        fmt.Sprintf("Set up %s integration", integration),
		SetupSteps:         []string{},
		AvailableMetrics:   []string{},
		EstimatedSetupTime: EstimateSetupTime(integration),
	}

	if a.docs != nil {
		if doc, ok := a.lookupDocs(ctx, integration); ok {
			guide.Description = firstNonEmpty(doc.Description, guide.Description)
			guide.SetupURL = doc.SetupURL
			guide.MetricsURL = doc.MetricsURL
			if len(doc.SetupSteps) > 0 {
				guide.SetupSteps = append([]string(nil), doc.SetupSteps...)
			}
		}
	}

	if a.catalog != nil {
		metrics, err := a.catalog.GetIntegrationMetrics(ctx, integration)
		if err != nil {
			a.logger.Warn("integration metrics lookup failed", slog.String("integration", integration), slog.Any("error", err))
		} else if len(metrics) > 0 {
			guide.AvailableMetrics = metrics
		}
	}
	return guide
}
