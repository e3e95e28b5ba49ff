package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

type metricEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

var activeMetrics = []string{
	"system.cpu.user",
	"system.cpu.system",
	"system.mem.used",
	"system.disk.in_use",
	"nginx.net.connections",
	"aws.ec2.cpuutilization",
	"docker.cpu.usage",
}

var customerMetrics = map[string][]string{
	"acme":    {"system.cpu.user", "system.mem.used", "postgresql.connections", "redis.net.clients"},
	"initech": {"kubernetes.cpu.usage.total", "kubernetes.memory.usage", "kubernetes.pods.running"},
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	apiKey := flag.String("api-key", "", "expected DD-API-KEY; empty accepts any")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("service", "datadog-mock"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/v1/validate", func(w http.ResponseWriter, r *http.Request) {
		if !authorised(r, *apiKey) {
			writeJSON(w, http.StatusForbidden, map[string]any{"errors": []string{"Forbidden"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	})

	mux.HandleFunc("GET /api/v2/metrics", func(w http.ResponseWriter, r *http.Request) {
		if !authorised(r, *apiKey) {
			writeJSON(w, http.StatusForbidden, map[string]any{"errors": []string{"Forbidden"}})
			return
		}
		data := make([]metricEntity, 0, len(activeMetrics))
		for _, name := range activeMetrics {
			data = append(data, metricEntity{Type: "metrics", ID: name})
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})
	})

	// Stands in for a deployment-specific endpoint configured through
	// customerMetrics.endpointTemplate.
	mux.HandleFunc("GET /customers/{id}/metrics", func(w http.ResponseWriter, r *http.Request) {
		names, ok := customerMetrics[strings.ToLower(r.PathValue("id"))]
		if !ok {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"metrics": names})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func authorised(r *http.Request, apiKey string) bool {
	return apiKey == "" || r.Header.Get("DD-API-KEY") == apiKey
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
