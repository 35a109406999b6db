package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"posto/internal/amqp"
	"posto/internal/cli"
	"posto/internal/worker"
)

func main() {
	cfg := cli.Bootstrap()

	slog.Info("Starting statement-worker")

	if cfg.AMQPURL == "" {
		slog.Error("Statement worker requires AMQP_URL")
		os.Exit(1)
	}

	repo := cli.InitSQLite(cfg.SQLiteDBPath)
	defer repo.Close()

	writer, err := cli.NewStatementWriter(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize statement backend", "error", err, "backend", cfg.StatementBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	stWorker := worker.NewStatementWorker(repo, cli.Tariff(cfg), writer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeStatementRequests(ctx, func(msg *amqp.StatementRequestMessage) error {
			return stWorker.HandleStatementRequest(ctx, msg)
		})
	})

	slog.Info("Statement worker running", "backend", cfg.StatementBackend, "queue", cfg.AMQPQueue)

	if err := g.Wait(); err != nil && err != context.Canceled {
		slog.Error("Statement worker stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Statement worker stopped gracefully")
}
