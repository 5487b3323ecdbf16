package main

import (
	"context"
	"flag"
	"net"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/mtr002/job-system/internal/config"
	jobgrpc "github.com/mtr002/job-system/internal/grpc"
	"github.com/mtr002/job-system/internal/handlers"
	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/jobs"
	"github.com/mtr002/job-system/internal/logger"
	"github.com/mtr002/job-system/internal/nats"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init("job-worker", "info")
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.ServiceName+"-worker", cfg.LogLevel)
	logger.Logger.Info().Msg("Starting worker service with gRPC")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := jobs.NewRegistry()
	handlers.Register(registry)

	var natsServer *nats.Server
	manager := jobs.NewManager(registry,
		jobs.WithDrainInterval(cfg.DrainInterval()),
		jobs.WithObserver(func(entry interfaces.HistoryEntry) {
			if natsServer == nil {
				return
			}
			if err := natsServer.PublishTransition(entry); err != nil {
				logger.Logger.Warn().Err(err).Msg("Failed to publish job status")
			}
		}),
	)

	if cfg.NATS.Enabled {
		natsServer, err = nats.NewServer(cfg.NATS.URL, manager)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create NATS server")
		}
		if err := natsServer.Subscribe(); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to subscribe to NATS")
		}
		defer natsServer.Close()
		logger.Logger.Info().Str("url", cfg.NATS.URL).Msg("NATS consumer started")
	}

	for i := 0; i < cfg.Worker.Count; i++ {
		if _, err := manager.CreateWorker(); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create worker")
		}
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to listen")
	}

	s := grpc.NewServer()
	jobgrpc.RegisterJobServiceServer(s, jobgrpc.NewServer(manager))

	go func() {
		logger.Logger.Info().Str("addr", cfg.GRPCAddr()).Msg("Worker service gRPC server listening")
		if err := s.Serve(lis); err != nil {
			logger.Logger.Error().Err(err).Msg("gRPC server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Logger.Info().Msg("Shutting down gracefully...")
	s.GracefulStop()
	if err := manager.Shutdown(context.Background()); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to stop workers")
	}
	if cfg.HistoryFile != "" {
		if err := manager.DumpHistoryToFile(cfg.HistoryFile); err != nil {
			logger.Logger.Error().Err(err).Str("path", cfg.HistoryFile).Msg("Failed to dump history")
		}
	}
	logger.Logger.Info().Msg("Worker service stopped")
}
