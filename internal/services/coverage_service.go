package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-coverage/internal/api"
	"github.com/miradorstack/mirador-coverage/internal/catalog"
	"github.com/miradorstack/mirador-coverage/internal/engine"
	"github.com/miradorstack/mirador-coverage/internal/metrics"
	"github.com/miradorstack/mirador-coverage/internal/models"
	"github.com/miradorstack/mirador-coverage/internal/utils"
)

// CoverageService fronts the analyzer for both the REST and gRPC surfaces.
type CoverageService struct {
	logger    *slog.Logger
	analyzer  *engine.Analyzer
	catalog   catalog.Source
	latencies *utils.LatencyTracker
}

// NewCoverageService constructs the service facade. A nil source reports the
// built-in fallback catalog.
func NewCoverageService(logger *slog.Logger, analyzer *engine.Analyzer, source catalog.Source) *CoverageService {
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		source = catalog.FallbackIndex()
	}
	return &CoverageService{
		logger:    logger,
		analyzer:  analyzer,
		catalog:   source,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs one coverage analysis. The reported percentage is rounded to
// one decimal place.
func (s *CoverageService) Analyze(ctx context.Context, req models.AnalyzeRequest) (models.CoverageResult, error) {
	const op = "services.Analyze"
	if s.analyzer == nil {
		return models.CoverageResult{}, utils.NewAppError(op, "analyzer not configured", nil)
	}

	s.logger.Debug("coverage analysis requested", slog.String("customer_id", req.CustomerID), slog.Int("suggested", len(req.Metrics)))

	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, req.Metrics, req.CustomerID)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		s.logger.Error("coverage analysis failed", slog.String("customer_id", req.CustomerID), slog.Any("error", err))
		return models.CoverageResult{}, err
	}

	result.CoveragePercentage = engine.RoundCoverage(result.CoveragePercentage)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	metrics.ObserveCoverage(result.CoveragePercentage)

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p := s.latencies.Percentiles(50, 95)
		s.logger.Info("analysis latency", slog.Duration("p50", p[0]), slog.Duration("p95", p[1]), slog.Int("samples", count))
	}
	return result, nil
}

// SetupGuide returns setup documentation and available metrics for an integration.
func (s *CoverageService) SetupGuide(ctx context.Context, integration string) (models.SetupGuide, error) {
	const op = "services.SetupGuide"
	integration = strings.TrimSpace(integration)
	if integration == "" {
		return models.SetupGuide{}, utils.InvalidArgument(op, "integration is required")
	}
	if s.analyzer == nil {
		return models.SetupGuide{}, utils.NewAppError(op, "analyzer not configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return models.SetupGuide{}, err
	}
	return s.analyzer.SetupGuide(ctx, integration), nil
}

// Integration returns the catalog entry for one integration key.
func (s *CoverageService) Integration(ctx context.Context, key string) (models.IntegrationDetail, error) {
	const op = "services.Integration"
	key = strings.TrimSpace(key)
	if key == "" {
		return models.IntegrationDetail{}, utils.InvalidArgument(op, "integration is required")
	}
	if err := ctx.Err(); err != nil {
		return models.IntegrationDetail{}, err
	}
	detail, ok := s.catalog.Current().Detail(key)
	if !ok {
		return models.IntegrationDetail{}, utils.NewAppError(op, fmt.Sprintf("integration %q is not in the catalog", key), utils.ErrNotFound)
	}
	return detail, nil
}

// CatalogSummary reports the live catalog.
func (s *CoverageService) CatalogSummary(ctx context.Context) models.CatalogSummary {
	return s.catalog.Current().Summary()
}

// AnalyzeCoverage implements api.CoverageServer.
func (s *CoverageService) AnalyzeCoverage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	var in models.AnalyzeRequest
	if err := api.DecodeStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.Analyze(ctx, in)
	if err != nil {
		return nil, api.GRPCError(err)
	}
	return encode(result)
}

// GetSetupGuide implements api.CoverageServer.
func (s *CoverageService) GetSetupGuide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	var in models.SetupGuideRequest
	if err := api.DecodeStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	guide, err := s.SetupGuide(ctx, in.Integration)
	if err != nil {
		return nil, api.GRPCError(err)
	}
	return encode(guide)
}

// GetIntegration implements api.CoverageServer.
func (s *CoverageService) GetIntegration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	var in models.IntegrationRequest
	if err := api.DecodeStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	detail, err := s.Integration(ctx, in.Integration)
	if err != nil {
		return nil, api.GRPCError(err)
	}
	return encode(detail)
}

// GetCatalogSummary implements api.CoverageServer.
func (s *CoverageService) GetCatalogSummary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encode(s.CatalogSummary(ctx))
}

func encode(v any) (*structpb.Struct, error) {
	out, err := api.EncodeStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
