package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MetricType enumerates the catalog metric kinds.
type MetricType string

const (
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeCount     MetricType = "count"
	MetricTypeRate      MetricType = "rate"
	MetricTypeHistogram MetricType = "histogram"
	MetricTypeUnknown   MetricType = "unknown"
)

// ParseMetricType normalises a raw catalog value. Unrecognised values map to unknown.
func ParseMetricType(raw string) MetricType {
	switch MetricType(strings.ToLower(strings.TrimSpace(raw))) {
	case MetricTypeGauge:
		return MetricTypeGauge
	case MetricTypeCount:
		return MetricTypeCount
	case MetricTypeRate:
		return MetricTypeRate
	case MetricTypeHistogram, "distribution":
		return MetricTypeHistogram
	default:
		return MetricTypeUnknown
	}
}

// MetricDefinition is one row of an integration catalog file.
type MetricDefinition struct {
	Name        string     `json:"name"`
	Type        MetricType `json:"type"`
	Interval    string     `json:"interval,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	PerUnit     string     `json:"per_unit,omitempty"`
	Description string     `json:"description,omitempty"`
	Orientation string     `json:"orientation,omitempty"`
	Integration string     `json:"integration"`
	ShortName   string     `json:"short_name,omitempty"`
	Curated     string     `json:"curated_metric,omitempty"`
}

// IntegrationPattern is the derived lookup record for one integration.
type IntegrationPattern struct {
	Key         string   `json:"integration"`
	Prefixes    []string `json:"prefixes"`
	DisplayName string   `json:"display_name"`
	Metrics     []string `json:"metrics,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// SuggestedMetric is a metric proposed by a recommender. It decodes from either
// a bare JSON string or an object carrying metric_name or name. Any other
// value, or a name that is not a string, decodes to an empty Name so the
// entry is skipped during analysis instead of failing the whole request.
type SuggestedMetric struct {
	Name        string `json:"metric_name"`
	Type        string `json:"type,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SuggestedMetric) UnmarshalJSON(data []byte) error {
	*s = SuggestedMetric{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		s.Name = name
		return nil
	case '{':
	default:
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	name := stringField(fields, "metric_name")
	if name == "" {
		name = stringField(fields, "name")
	}
	*s = SuggestedMetric{
		Name:        name,
		Type:        stringField(fields, "type"),
		Unit:        stringField(fields, "unit"),
		Description: stringField(fields, "description"),
	}
	return nil
}

// stringField returns fields[key] when it holds a JSON string.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// SuggestedNames wraps bare metric names into suggestions.
func SuggestedNames(names ...string) []SuggestedMetric {
	out := make([]SuggestedMetric, 0, len(names))
	for _, name := range names {
		out = append(out, SuggestedMetric{Name: name})
	}
	return out
}
