package engine

import (
	"fmt"
	"sort"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

// AggregateRecommendations groups missing metrics by integration and ranks the
// groups: any high-priority metric first, then more high-priority metrics, then
// more missing metrics. Equal groups keep first-appearance order.
func AggregateRecommendations(missing []models.MissingMetric) []models.Recommendation {
	if len(missing) == 0 {
		return []models.Recommendation{}
	}

	order := make([]string, 0)
	groups := make(map[string][]models.MissingMetric)
	for _, m := range missing {
		if _, ok := groups[m.Integration]; !ok {
			order = append(order, m.Integration)
		}
		groups[m.Integration] = append(groups[m.Integration], m)
	}

	recs := make([]models.Recommendation, 0, len(order))
	for _, integration := range order {
		recs = append(recs, buildRecommendation(integration, groups[integration]))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		hi, hj := recs[i].Priority == models.PriorityHigh, recs[j].Priority == models.PriorityHigh
		if hi != hj {
			return hi
		}
		if recs[i].HighPriorityCount != recs[j].HighPriorityCount {
			return recs[i].HighPriorityCount > recs[j].HighPriorityCount
		}
		return recs[i].MissingCount > recs[j].MissingCount
	})
	return recs
}

func buildRecommendation(integration string, metrics []models.MissingMetric) models.Recommendation {
	rec := models.Recommendation{
		Integration:  integration,
		MissingCount: len(metrics),
		SetupURL:     metrics[0].SetupURL,
		Description:  fmt.Sprintf("Set up %s integration to monitor %d missing metrics", integration, len(metrics)),
		Priority:     models.PriorityMedium,
		Metrics:      make([]models.RecommendedMetric, 0, len(metrics)),
	}
	for _, m := range metrics {
		if m.Priority == models.PriorityHigh {
			rec.HighPriorityCount++
		}
		rec.Metrics = append(rec.Metrics, models.RecommendedMetric{Name: m.Name, Priority: m.Priority})
	}
	if rec.HighPriorityCount > 0 {
		rec.Priority = models.PriorityHigh
	}
	return rec
}
