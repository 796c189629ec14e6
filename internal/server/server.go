package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
)

const shutdownTimeout = 10 * time.Second

// Server hosts the gRPC service and the HTTP metrics endpoint.
type Server struct {
	GRPC    *grpc.Server
	Health  *health.Server
	metrics *http.Server
	logger  *slog.Logger
}

// New registers svc, the health service and reflection. A nil metrics handler
// disables the HTTP listener.
func New(svc InterpretServiceServer, metricsAddr string, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	RegisterInterpretServiceServer(gs, svc)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	s := &Server{GRPC: gs, Health: hs, logger: logger}
	if metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics)
		s.metrics = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	return s
}

// Serve runs until ctx is cancelled or a listener fails, then stops both servers.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server.grpc.serving", "addr", lis.Addr().String())
		return s.GRPC.Serve(lis)
	})
	if s.metrics != nil {
		g.Go(func() error {
			s.logger.Info("server.metrics.serving", "addr", s.metrics.Addr)
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("server.shutdown")
		s.Health.Shutdown()
		if s.metrics != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = s.metrics.Shutdown(shutdownCtx)
		}
		s.GRPC.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		reqID := requestID(ctx)
		ctx = common.WithRequestID(ctx, reqID)
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("server.rpc", "method", info.FullMethod, "request_id", reqID, "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		} else {
			logger.Debug("server.rpc", "method", info.FullMethod, "request_id", reqID, "elapsed_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}

// requestID takes x-request-id from incoming metadata or makes a new one.
func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}
