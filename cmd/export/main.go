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
	"github.com/bubblehouse/connector/internal/domain/export"
	"github.com/bubblehouse/connector/internal/infrastructure/config"
)

func main() {
	var (
		configPath string
		orderID    int64
		enqueue    bool
		pending    bool
		limit      int
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.Int64Var(&orderID, "order-id", 0, "Export the order with this id")
	flag.BoolVar(&enqueue, "enqueue", false, "Push -order-id onto the export queue instead of exporting inline")
	flag.BoolVar(&pending, "pending", false, "List export log records still PENDING")
	flag.IntVar(&limit, "limit", 100, "Maximum number of records listed by -pending")
	flag.Parse()

	if orderID <= 0 && !pending {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, orderID, enqueue, pending, limit))
}

func run(cfg *config.Config, orderID int64, enqueue, pending bool, limit int) int {
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(shutdownCtx); err != nil {
			log.Warn("Error during shutdown", zap.Error(err))
		}
	}()

	switch {
	case pending:
		return listPending(ctx, app, limit)
	case enqueue:
		q, _, err := app.Queue(ctx)
		if err != nil {
			app.Logger.Error("Failed to connect to queue", zap.Error(err))
			return 1
		}
		if err := q.Push(ctx, orderID); err != nil {
			app.Logger.Error("Failed to enqueue order", zap.Int64("order_id", orderID), zap.Error(err))
			return 1
		}
		app.Logger.Info("Order queued for export", zap.Int64("order_id", orderID))
		return 0
	default:
		if err := app.Handler.Process(ctx, orderID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		app.Logger.Info("Order exported", zap.Int64("order_id", orderID))
		return 0
	}
}

func listPending(ctx context.Context, app *bootstrap.App, limit int) int {
	records, err := app.Records.FindByStatus(ctx, export.StatusPending, limit)
	if err != nil {
		app.Logger.Error("Failed to list pending records", zap.Error(err))
		return 1
	}

	if len(records) == 0 {
		app.Logger.Info("No pending export records")
		return 0
	}

	app.Logger.Info("Pending export records", zap.Int("count", len(records)))
	for _, r := range records {
		fmt.Printf("  - %s  %s  %s  %s\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.MessageType, r.MessageBody)
	}
	return 0
}

func printUsage() {
	fmt.Println(`Bubblehouse order export

Usage:
  export -order-id <id> [-enqueue]
  export -pending [-limit <n>]

Flags:
  -config string    Path to config file (default: ./config.toml)
  -order-id int     Export the order with this id
  -enqueue          Push the order onto the export queue for the worker
  -pending          List export log records still PENDING
  -limit int        Maximum number of records listed by -pending (default: 100)

Environment Variables:
  BHC_DATABASE_HOST, BHC_DATABASE_PASSWORD, BHC_BUBBLEHOUSE_SHARED_SECRET, ...
  Any config key, upper-cased with BHC_ prefix and '.' replaced by '_'.`)
}
