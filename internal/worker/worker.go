// Package worker runs the background jobs that keep a wallet tidy without a
// user session: the daily retention pass and the asset-price refresh.
package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"walletwatcher/internal/amqp"
	"walletwatcher/internal/log"
	"walletwatcher/internal/scheduler"
	"walletwatcher/internal/services"
)

type DailyRunner interface {
	RunDailyTasks(ctx context.Context) scheduler.DailyResult
}

type PriceRunner interface {
	Run(ctx context.Context) scheduler.RefreshResult
}

// Worker wraps the schedulers with event publishing and logging.
type Worker struct {
	daily  DailyRunner
	prices PriceRunner
	events services.EventPublisher
	logger *log.Logger
}

// New builds a worker. A nil daily runner disables the retention job, which
// the server leaves to the wallet's load path.
func New(daily DailyRunner, prices PriceRunner, events services.EventPublisher, logger *log.Logger) *Worker {
	if events == nil {
		events = services.NoopPublisher{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Worker{daily: daily, prices: prices, events: events, logger: logger.WithComponent(log.ComponentWorker)}
}

func (w *Worker) RunDaily(ctx context.Context) scheduler.DailyResult {
	if w.daily == nil {
		return scheduler.DailyResult{}
	}
	res := w.daily.RunDailyTasks(ctx)
	if res.Ran {
		w.publish(ctx, amqp.EventMaintenanceRan, map[string]any{"day": res.Day, "deleted": res.Deleted})
	}
	return res
}

func (w *Worker) RunPrices(ctx context.Context) scheduler.RefreshResult {
	if w.prices == nil {
		return scheduler.RefreshResult{}
	}
	res := w.prices.Run(ctx)
	if res.Ran {
		w.publish(ctx, amqp.EventPricesRefreshed, map[string]int{"stored": res.Stored})
	}
	return res
}

// RunAll runs both jobs concurrently and waits for them.
func (w *Worker) RunAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.RunDaily(gctx)
		return nil
	})
	g.Go(func() error {
		w.RunPrices(gctx)
		return nil
	})
	_ = g.Wait()
}

// Schedule registers both jobs on c. Jobs take ctx so shutdown cancels in-flight work.
func (w *Worker) Schedule(ctx context.Context, c *cron.Cron, dailySpec, priceSpec string) error {
	if _, err := c.AddFunc(dailySpec, func() { w.RunDaily(ctx) }); err != nil {
		return fmt.Errorf("schedule daily maintenance %q: %w", dailySpec, err)
	}
	if _, err := c.AddFunc(priceSpec, func() { w.RunPrices(ctx) }); err != nil {
		return fmt.Errorf("schedule price refresh %q: %w", priceSpec, err)
	}
	return nil
}

// HandleEvent writes a consumed wallet event to the audit log.
func (w *Worker) HandleEvent(ctx context.Context, ev *amqp.WalletEvent) error {
	w.logger.InfoContext(ctx, "Wallet event",
		log.FieldEventKind, ev.Kind,
		"event_id", ev.ID.String(),
		"occurred_at", ev.OccurredAt,
		"payload_bytes", len(ev.Payload))
	return nil
}

func (w *Worker) publish(ctx context.Context, kind string, payload any) {
	if err := w.events.Publish(ctx, kind, payload); err != nil {
		w.logger.WarnContext(ctx, "Event not published", log.FieldEventKind, kind, log.FieldError, err)
	}
}

// CronLogger adapts the wallet logger to cron's logging interface.
type CronLogger struct {
	Logger *log.Logger
}

var _ cron.Logger = CronLogger{}

func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug("cron: "+msg, keysAndValues...)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Logger.Error("cron: "+msg, append([]interface{}{log.FieldError, err}, keysAndValues...)...)
}
