package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"walletwatcher/internal/amqp"
	"walletwatcher/internal/cli"
	"walletwatcher/internal/log"
	"walletwatcher/internal/prices"
	"walletwatcher/internal/scheduler"
	"walletwatcher/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting wallet-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(context.Background(), logger, cfg.SQLiteDBPath)
	defer store.Close()
	marks := cli.InitMarkers(logger, cfg.MarkersPath)
	calendar := cli.Calendar(cfg)

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithLocation(calendar.Location),
		scheduler.WithRetentionDays(cfg.RetentionDays),
		scheduler.WithInterval(cfg.PriceRefreshInterval),
	}
	client := prices.NewClient(cfg.PriceFeedURL, cfg.PriceFetchTimeout, logger)
	daily := scheduler.NewDailyMaintenance(store, marks, schedOpts...)
	refresher := scheduler.NewPriceRefresher(prices.NewCachedFeed(client, cfg.PriceRefreshInterval), store, marks, schedOpts...)

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()
	jobs := worker.New(daily, refresher, publisher, logger)

	c := cron.New(
		cron.WithLocation(calendar.Location),
		cron.WithLogger(worker.CronLogger{Logger: logger}),
		cron.WithChain(cron.Recover(worker.CronLogger{Logger: logger}), cron.SkipIfStillRunning(worker.CronLogger{Logger: logger})),
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		stopped := c.Stop()
		select {
		case <-stopped.Done():
		case <-shutdownCtx.Done():
		}
	})

	if err := jobs.Schedule(ctx, c, cfg.DailySchedule, cfg.PriceSchedule); err != nil {
		logger.Error("Failed to schedule jobs", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Running startup jobs")
	jobs.RunAll(ctx)

	// The worker consumes the event queue as an audit log when a broker is configured.
	if consumer, ok := publisher.(*amqp.Client); ok {
		go func() {
			if err := consumer.ConsumeEvents(ctx, jobs.HandleEvent); err != nil && ctx.Err() == nil {
				logger.Error("Event consumer stopped", log.FieldError, err)
			}
		}()
	}

	c.Start()
	logger.Info("Worker scheduled",
		"daily_schedule", cfg.DailySchedule,
		"price_schedule", cfg.PriceSchedule,
		"retention_days", cfg.RetentionDays)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
