package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-coverage/internal/api"
	"github.com/miradorstack/mirador-coverage/internal/catalog"
	"github.com/miradorstack/mirador-coverage/internal/config"
	"github.com/miradorstack/mirador-coverage/internal/docs"
	"github.com/miradorstack/mirador-coverage/internal/engine"
	"github.com/miradorstack/mirador-coverage/internal/models"
	"github.com/miradorstack/mirador-coverage/internal/utils"
)

type staticMetrics []string

func (s staticMetrics) GetMetrics(context.Context, string) []string {
	return append([]string(nil), s...)
}

type catalogMetrics struct{ source catalog.Source }

func (c catalogMetrics) GetIntegrationMetrics(_ context.Context, integration string) ([]string, error) {
	return c.source.Current().MetricNamesFor(integration), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, existing ...string) *CoverageService {
	t.Helper()
	idx := catalog.NewIndex(
		models.MetricDefinition{Name: "nginx.net.connections", Integration: "nginx", Type: models.MetricTypeGauge},
		models.MetricDefinition{Name: "nginx.net.request_per_s", Integration: "nginx", Type: models.MetricTypeGauge},
		models.MetricDefinition{Name: "system.cpu.user", Integration: "system", Type: models.MetricTypeGauge},
	)
	library, err := docs.NewLibrary("", quietLogger())
	require.NoError(t, err)

	analyzer := engine.NewAnalyzer(
		quietLogger(),
		staticMetrics(existing),
		engine.NewPrefixResolver(idx),
		library,
		catalogMetrics{source: idx},
		engine.AnalyzerOptions{},
	)
	return NewCoverageService(quietLogger(), analyzer, idx)
}

func TestAnalyzeRoundsCoverage(t *testing.T) {
	svc := newTestService(t, "nginx.net.connections", "system.cpu.user")

	result, err := svc.Analyze(context.Background(), models.AnalyzeRequest{
		CustomerID: "acme",
		Metrics:    models.SuggestedNames("nginx.net.connections", "nginx.net.request_per_s", "system.cpu.user"),
	})
	require.NoError(t, err)
	assert.Equal(t, 66.7, result.CoveragePercentage)
	require.Len(t, result.MissingMetrics, 1)
	assert.Equal(t, "nginx", result.MissingMetrics[0].Integration)
	assert.Equal(t, "https://docs.datadoghq.com/integrations/nginx/", result.MissingMetrics[0].SetupURL)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "nginx", result.Recommendations[0].Integration)
}

func TestAnalyzeWithoutAnalyzer(t *testing.T) {
	svc := NewCoverageService(quietLogger(), nil, nil)
	_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{})
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(api.GRPCError(err)))
}

func TestSetupGuideRequiresIntegration(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SetupGuide(context.Background(), "  ")
	assert.True(t, errors.Is(err, utils.ErrInvalidArgument))

	guide, err := svc.SetupGuide(context.Background(), "nginx")
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx.net.connections", "nginx.net.request_per_s"}, guide.AvailableMetrics)
	assert.Equal(t, "5-10 minutes", guide.EstimatedSetupTime)
}

func TestAnalyzeSkipsUnnamedSuggestions(t *testing.T) {
	svc := newTestService(t, "system.cpu.user")

	var req models.AnalyzeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"metrics":["system.cpu.user",42,{"name":7},["x"],"nginx.net.connections"]}`), &req))

	result, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalSuggested)
	assert.Equal(t, float64(50), result.CoveragePercentage)
}

func TestIntegrationLookup(t *testing.T) {
	svc := newTestService(t)

	detail, err := svc.Integration(context.Background(), " nginx ")
	require.NoError(t, err)
	assert.Equal(t, "nginx", detail.Integration)
	assert.Len(t, detail.Metrics, 2)

	_, err = svc.Integration(context.Background(), "cassandra")
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	assert.Equal(t, codes.NotFound, status.Code(api.GRPCError(err)))

	_, err = svc.Integration(context.Background(), "")
	assert.True(t, errors.Is(err, utils.ErrInvalidArgument))
}

func TestCatalogSummaryDefaultsToFallback(t *testing.T) {
	svc := NewCoverageService(quietLogger(), nil, nil)
	summary := svc.CatalogSummary(context.Background())
	assert.True(t, summary.Fallback)
	assert.Equal(t, 12, summary.Integrations)
}

func TestGRPCRoundTrip(t *testing.T) {
	svc := newTestService(t, "nginx.net.connections", "system.cpu.user")

	server, err := api.NewServer(config.ServerConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second}, svc)
	require.NoError(t, err)
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient(server.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{
		"customer_id": "acme",
		"metrics": []any{
			"nginx.net.connections",
			map[string]any{"name": "nginx.net.request_per_s", "unit": "request"},
			"system.cpu.user",
		},
	})
	require.NoError(t, err)

	resp := &structpb.Struct{}
	require.NoError(t, conn.Invoke(ctx, api.MethodAnalyzeCoverage, req, resp))
	assert.Equal(t, 66.7, resp.Fields["coverage_percentage"].GetNumberValue())
	assert.Equal(t, float64(3), resp.Fields["total_suggested"].GetNumberValue())

	missing := resp.Fields["missing_metrics"].GetListValue().GetValues()
	require.Len(t, missing, 1)
	assert.Equal(t, "request", missing[0].GetStructValue().Fields["unit"].GetStringValue())

	empty, _ := structpb.NewStruct(map[string]any{"integration": ""})
	err = conn.Invoke(ctx, api.MethodGetSetupGuide, empty, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	summary := &structpb.Struct{}
	require.NoError(t, conn.Invoke(ctx, api.MethodGetCatalogSummary, &structpb.Struct{}, summary))
	assert.Equal(t, float64(3), summary.Fields["total_metrics"].GetNumberValue())

	known, _ := structpb.NewStruct(map[string]any{"integration": "nginx"})
	detail := &structpb.Struct{}
	require.NoError(t, conn.Invoke(ctx, api.MethodGetIntegration, known, detail))
	assert.Len(t, detail.Fields["metrics"].GetListValue().GetValues(), 2)

	unknown, _ := structpb.NewStruct(map[string]any{"integration": "cassandra"})
	err = conn.Invoke(ctx, api.MethodGetIntegration, unknown, &structpb.Struct{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	require.NoError(t, err)
	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}))
	reply, err := stream.Recv()
	require.NoError(t, err)
	var services []string
	for _, entry := range reply.GetListServicesResponse().GetService() {
		services = append(services, entry.GetName())
	}
	assert.Contains(t, services, api.CoverageServiceName)
	require.NoError(t, stream.CloseSend())
}
