package api

import (
	"context"
	"fmt"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-coverage/internal/config"
)

// CoverageServiceName is the fully qualified gRPC service name.
const CoverageServiceName = "mirador.coverage.v1.CoverageService"

// Full method names of CoverageService.
const (
	MethodAnalyzeCoverage   = "/" + CoverageServiceName + "/AnalyzeCoverage"
	MethodGetSetupGuide     = "/" + CoverageServiceName + "/GetSetupGuide"
	MethodGetIntegration    = "/" + CoverageServiceName + "/GetIntegration"
	MethodGetCatalogSummary = "/" + CoverageServiceName + "/GetCatalogSummary"
)

// CoverageServer is the gRPC surface of the coverage engine. Payloads are
// google.protobuf.Struct values carrying the JSON shapes of the REST API.
// No file descriptor is registered for the service, so reflection lists it
// but cannot describe its methods.
type CoverageServer interface {
	AnalyzeCoverage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSetupGuide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetIntegration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCatalogSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv CoverageServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(fullMethod string, call unaryCall) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CoverageServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CoverageServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var coverageServiceDesc = grpc.ServiceDesc{
	ServiceName: CoverageServiceName,
	HandlerType: (*CoverageServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AnalyzeCoverage",
			Handler:    unaryHandler(MethodAnalyzeCoverage, CoverageServer.AnalyzeCoverage),
		},
		{
			MethodName: "GetSetupGuide",
			Handler:    unaryHandler(MethodGetSetupGuide, CoverageServer.GetSetupGuide),
		},
		{
			MethodName: "GetIntegration",
			Handler:    unaryHandler(MethodGetIntegration, CoverageServer.GetIntegration),
		},
		{
			MethodName: "GetCatalogSummary",
			Handler:    unaryHandler(MethodGetCatalogSummary, CoverageServer.GetCatalogSummary),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterCoverageServer attaches srv to a gRPC registrar.
func RegisterCoverageServer(s grpc.ServiceRegistrar, srv CoverageServer) {
	s.RegisterService(&coverageServiceDesc, srv)
}

// Server wraps the gRPC server implementation and lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
}

// NewServer constructs a gRPC server bound to the configured address.
func NewServer(cfg config.ServerConfig, service CoverageServer, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	RegisterCoverageServer(grpcServer, service)
	grpc_prometheus.Register(grpcServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(CoverageServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	reflection.Register(grpcServer)

	return &Server{
		cfg:        cfg,
		grpcServer: grpcServer,
		health:     healthSrv,
		listener:   lis,
	}, nil
}

// Start serves incoming gRPC requests until Shutdown is invoked.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown marks the server as not serving and stops gracefully, falling
// back to Stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address exposes the bound listener address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
