package engine

import (
	"strings"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

var (
	highPriorityKeywords = []string{
		"cpu", "memory", "disk", "error", "latency", "response_time",
		"availability", "uptime", "connection", "queue",
	}
	mediumPriorityKeywords = []string{
		"request", "throughput", "rate", "count", "usage", "utilization",
	}
)

// ClassifyPriority scores how urgent it is to collect a metric from keywords in its name.
func ClassifyPriority(metricName string) models.Priority {
	lower := strings.ToLower(metricName)
	if containsAny(lower, highPriorityKeywords) {
		return models.PriorityHigh
	}
	if containsAny(lower, mediumPriorityKeywords) {
		return models.PriorityMedium
	}
	return models.PriorityLow
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
