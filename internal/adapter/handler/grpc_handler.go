package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/rl1809/pantry/internal/logging"
)

// GRPCServer serves the standard health service so orchestrators can probe
// the process on its gRPC port.
type GRPCServer struct {
	Server *grpc.Server
	health *health.Server
}

func NewGRPCServer() *GRPCServer {
	srv := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPCServer{Server: srv, health: hs}
}

// SetServing flips the overall health status.
func (g *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", st)
}

// Stop reports NOT_SERVING to health watchers and drains in-flight calls.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.Server.GracefulStop()
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	logging.Debug().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("took", time.Since(start)).
		Msg("grpc call")
	return resp, err
}
