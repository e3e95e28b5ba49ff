package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-coverage/internal/config"
	"github.com/miradorstack/mirador-coverage/internal/models"
	"github.com/miradorstack/mirador-coverage/internal/utils"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// CoverageAPI is the domain surface exposed over REST.
type CoverageAPI interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (models.CoverageResult, error)
	SetupGuide(ctx context.Context, integration string) (models.SetupGuide, error)
	Integration(ctx context.Context, key string) (models.IntegrationDetail, error)
	CatalogSummary(ctx context.Context) models.CatalogSummary
}

// NewRouter mounts the REST routes on a gin engine.
func NewRouter(svc CoverageAPI, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger))

	h := &restHandlers{svc: svc, logger: logger}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "SERVING"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/coverage/analyze", h.handleAnalyze)
		v1.GET("/integrations/:key", h.handleIntegration)
		v1.GET("/integrations/:key/setup-guide", h.handleSetupGuide)
		v1.GET("/catalog/summary", h.handleCatalogSummary)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return router
}

type restHandlers struct {
	svc    CoverageAPI
	logger *slog.Logger
}

func (h *restHandlers) handleAnalyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.svc.Analyze(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *restHandlers) handleSetupGuide(c *gin.Context) {
	guide, err := h.svc.SetupGuide(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, guide)
}

func (h *restHandlers) handleIntegration(c *gin.Context) {
	detail, err := h.svc.Integration(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *restHandlers) handleCatalogSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CatalogSummary(c.Request.Context()))
}

func (h *restHandlers) writeError(c *gin.Context, err error) {
	code := HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(RequestIDHeader)),
			slog.Any("error", err),
		)
	}
	c.JSON(code, gin.H{"error": utils.Message(err)})
}

// requestID keeps a caller supplied id or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if strings.HasPrefix(c.Request.URL.Path, "/metrics") || c.Request.URL.Path == "/healthz" {
			return
		}
		logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("request_id", c.GetString(RequestIDHeader)),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// HTTPServer serves the REST router.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer binds the REST listener.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) (*HTTPServer, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	return &HTTPServer{
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		listener: lis,
	}, nil
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *HTTPServer) Start() error {
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address exposes the bound listener address.
func (s *HTTPServer) Address() string {
	return s.listener.Addr().String()
}
