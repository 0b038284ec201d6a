package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bubblehouse/connector/internal/bootstrap"
	"github.com/bubblehouse/connector/internal/infrastructure/config"
	"github.com/bubblehouse/connector/internal/infrastructure/queue"
)

func main() {
	var (
		configPath      string
		backlogInterval time.Duration
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.DurationVar(&backlogInterval, "backlog-interval", time.Minute, "How often the export log backlog gauge is refreshed")
	flag.Parse()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(cfg, log, backlogInterval); err != nil {
		log.Error("Worker exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, backlogInterval time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(shutdownCtx); err != nil {
			log.Warn("Error during shutdown", zap.Error(err))
		}
	}()

	app.Logger.Info("Starting Bubblehouse export worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("queue", cfg.Queue.Key),
	)

	q, locker, err := app.Queue(ctx)
	if err != nil {
		return err
	}

	if app.Metrics != nil {
		app.Metrics.StartPeriodicCollection(ctx, backlogInterval)
	}

	consumer := queue.NewConsumer(q, app.Handler, queue.DefaultConsumerConfig(), app.Logger, queue.WithLocker(locker))
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	app.Logger.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return consumer.Stop(shutdownCtx)
}
