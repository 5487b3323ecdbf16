package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mtr002/job-system/internal/api"
	"github.com/mtr002/job-system/internal/config"
	"github.com/mtr002/job-system/internal/handlers"
	"github.com/mtr002/job-system/internal/interfaces"
	"github.com/mtr002/job-system/internal/jobs"
	"github.com/mtr002/job-system/internal/logger"
	"github.com/mtr002/job-system/internal/nats"
	"github.com/mtr002/job-system/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init("job-server", "info")
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.ServiceName, cfg.LogLevel)
	logger.Logger.Info().Msg("Starting job server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	var natsServer *nats.Server

	registry := jobs.NewRegistry()
	handlers.Register(registry)

	manager := jobs.NewManager(registry,
		jobs.WithDrainInterval(cfg.DrainInterval()),
		jobs.WithObserver(func(entry interfaces.HistoryEntry) {
			websocket.BroadcastJobUpdate(hub, entry)
			if natsServer != nil {
				if err := natsServer.PublishTransition(entry); err != nil {
					logger.Logger.Warn().Err(err).Msg("Failed to publish job status")
				}
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

	server := api.NewServer(manager, hub, cfg.HTTPAddr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Logger.Info().Msg("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Logger.Error().Err(err).Msg("Server error")
	}

	// No deadline: workers always finish the job they hold.
	if err := manager.Shutdown(context.Background()); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to stop workers")
	}

	if cfg.HistoryFile != "" {
		if err := manager.DumpHistoryToFile(cfg.HistoryFile); err != nil {
			logger.Logger.Error().Err(err).Str("path", cfg.HistoryFile).Msg("Failed to dump history")
		} else {
			logger.Logger.Info().Str("path", cfg.HistoryFile).Msg("History written")
		}
	}

	logger.Logger.Info().Msg("Server stopped")
}
