package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestedMetricDecodesNamesAndObjects(t *testing.T) {
	var got []SuggestedMetric
	require.NoError(t, json.Unmarshal([]byte(`[
		"system.cpu.user",
		{"metric_name": "nginx.net.connections", "type": "gauge", "unit": "connection"},
		{"name": "redis.mem.used", "description": "Memory used"}
	]`), &got))

	require.Len(t, got, 3)
	assert.Equal(t, SuggestedMetric{Name: "system.cpu.user"}, got[0])
	assert.Equal(t, SuggestedMetric{Name: "nginx.net.connections", Type: "gauge", Unit: "connection"}, got[1])
	assert.Equal(t, SuggestedMetric{Name: "redis.mem.used", Description: "Memory used"}, got[2])
}

func TestSuggestedMetricMalformedEntriesDecodeEmpty(t *testing.T) {
	var got []SuggestedMetric
	require.NoError(t, json.Unmarshal([]byte(`[
		"system.cpu.user",
		42,
		["nested"],
		true,
		null,
		{"name": 7},
		{"metric_name": {"x": 1}, "type": 3},
		{"metric_name": 9, "name": "fallback.name"}
	]`), &got))

	require.Len(t, got, 8)
	assert.Equal(t, "system.cpu.user", got[0].Name)
	for i := 1; i < 7; i++ {
		assert.Empty(t, got[i].Name, "entry %d", i)
	}
	assert.Empty(t, got[6].Type)
	assert.Equal(t, "fallback.name", got[7].Name)
}

func TestAnalyzeRequestToleratesMalformedMetrics(t *testing.T) {
	var req AnalyzeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"customer_id":"acme","metrics":["a.b.c",42,{"name":7}]}`), &req))
	assert.Equal(t, "acme", req.CustomerID)
	require.Len(t, req.Metrics, 3)
	assert.Equal(t, "a.b.c", req.Metrics[0].Name)
}
