package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/logging"
	"github.com/joseph-ayodele/lab-interpreter/internal/metrics"
	"github.com/joseph-ayodele/lab-interpreter/internal/server"
)

var cmdServe = &cli.Command{
	Name:  "serve",
	Usage: "Run the gRPC interpret service with health and /metrics",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "grpc-addr", Usage: "gRPC listen address (overrides server.grpc_addr)"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "Metrics listen address (overrides server.metrics_addr)"},
	},
	Action: runServe,
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer e.close()

	grpcAddr := e.cfg.Server.GRPCAddr
	if v := cmd.String("grpc-addr"); v != "" {
		grpcAddr = v
	}
	metricsAddr := e.cfg.Server.MetricsAddr
	if v := cmd.String("metrics-addr"); v != "" {
		metricsAddr = v
	}

	log := logging.Logger(e.logger, logging.SourceServer)
	svc := server.NewInterpretServer(e.proc, e.runs, log)
	srv := server.New(svc, metricsAddr, metrics.Handler(e.registry), log)

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}
	return srv.Serve(ctx, lis)
}
