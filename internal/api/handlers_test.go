package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-coverage/internal/engine"
	"github.com/miradorstack/mirador-coverage/internal/models"
	"github.com/miradorstack/mirador-coverage/internal/utils"
)

func TestDecodeStructAcceptsMixedMetrics(t *testing.T) {
	in, err := structpb.NewStruct(map[string]any{
		"customer_id": "acme",
		"metrics": []any{
			"system.cpu.user",
			map[string]any{"metric_name": "nginx.net.connections", "type": "gauge"},
			map[string]any{"name": "redis.mem.used", "unit": "byte"},
		},
	})
	require.NoError(t, err)

	var req models.AnalyzeRequest
	require.NoError(t, DecodeStruct(in, &req))
	assert.Equal(t, "acme", req.CustomerID)
	require.Len(t, req.Metrics, 3)
	assert.Equal(t, "system.cpu.user", req.Metrics[0].Name)
	assert.Equal(t, "gauge", req.Metrics[1].Type)
	assert.Equal(t, "redis.mem.used", req.Metrics[2].Name)
	assert.Equal(t, "byte", req.Metrics[2].Unit)

	assert.Error(t, DecodeStruct(nil, &req))
}

func TestDecodeStructSkipsMalformedMetrics(t *testing.T) {
	in, err := structpb.NewStruct(map[string]any{
		"metrics": []any{
			"system.cpu.user",
			float64(42),
			[]any{"nested"},
			map[string]any{"name": float64(7)},
		},
	})
	require.NoError(t, err)

	var req models.AnalyzeRequest
	require.NoError(t, DecodeStruct(in, &req))
	require.Len(t, req.Metrics, 4)
	assert.Equal(t, "system.cpu.user", req.Metrics[0].Name)
	for _, m := range req.Metrics[1:] {
		assert.Empty(t, m.Name)
	}
}

func TestEncodeStructKeepsJSONNames(t *testing.T) {
	out, err := EncodeStruct(models.CoverageResult{
		ExistingMetrics:    []string{"a.b.c"},
		MissingMetrics:     []models.MissingMetric{},
		TotalSuggested:     1,
		CoveragePercentage: 100,
		Recommendations:    []models.Recommendation{},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), out.Fields["coverage_percentage"].GetNumberValue())
	assert.Len(t, out.Fields["existing_metrics"].GetListValue().GetValues(), 1)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		grpcCode   codes.Code
		httpStatus int
	}{
		{utils.InvalidArgument("op", "bad"), codes.InvalidArgument, http.StatusBadRequest},
		{utils.NewAppError("op", "missing", utils.ErrNotFound), codes.NotFound, http.StatusNotFound},
		{&engine.AnalysisError{Op: "engine.Analyze", Err: errors.New("boom")}, codes.Internal, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), codes.Internal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grpcCode, status.Code(GRPCError(tc.err)), tc.err.Error())
		assert.Equal(t, tc.httpStatus, HTTPStatus(tc.err), tc.err.Error())
	}
	assert.NoError(t, GRPCError(nil))
}
