package server

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/internal/observability"
)

// HealthService is the service name reported alongside the overall status.
const HealthService = "rlnc.dashboard.Playback"

const requestIDMetadataKey = "x-request-id"

// NewGRPCServer builds the gRPC server exposing grpc.health.v1. Both the
// overall status and HealthService start SERVING; flip them through the
// returned health server during shutdown.
func NewGRPCServer(log logging.Logger, collector *observability.APICollector) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(log),
			collector.UnaryServerInterceptor(),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// RequestIDUnaryServerInterceptor adopts an incoming x-request-id or mints
// one, so RPC logs correlate with HTTP logs.
func RequestIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	base = logging.OrNoop(base)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(requestIDMetadataKey); len(vals) > 0 && vals[0] != "" {
				ctx = logging.ContextWithRequestID(ctx, vals[0])
			}
		}
		ctx, _ = logging.EnsureRequestID(ctx)

		method := ""
		if info != nil {
			method = info.FullMethod
		}
		resp, err := handler(ctx, req)
		if err != nil {
			base.Warn(ctx, "rpc failed", logging.String("method", method), logging.Err(err))
		} else {
			base.Debug(ctx, "rpc handled", logging.String("method", method))
		}
		return resp, err
	}
}
