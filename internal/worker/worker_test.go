package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"walletwatcher/internal/amqp"
	"walletwatcher/internal/log"
	"walletwatcher/internal/scheduler"
)

type fakeDaily struct{ res scheduler.DailyResult }

func (f fakeDaily) RunDailyTasks(context.Context) scheduler.DailyResult { return f.res }

type fakePrices struct {
	mu    sync.Mutex
	calls int
	res   scheduler.RefreshResult
}

func (f *fakePrices) Run(context.Context) scheduler.RefreshResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.res
}

type recorder struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (r *recorder) Publish(_ context.Context, kind string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	return r.err
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
}

func TestRunAllPublishesForJobsThatRan(t *testing.T) {
	tests := []struct {
		name  string
		daily scheduler.DailyResult
		price scheduler.RefreshResult
		want  []string
	}{
		{"nothing due", scheduler.DailyResult{}, scheduler.RefreshResult{}, nil},
		{"daily only", scheduler.DailyResult{Ran: true, Day: "2024-03-15"}, scheduler.RefreshResult{}, []string{amqp.EventMaintenanceRan}},
		{"prices only", scheduler.DailyResult{}, scheduler.RefreshResult{Ran: true, Stored: 4}, []string{amqp.EventPricesRefreshed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			w := New(fakeDaily{res: tt.daily}, &fakePrices{res: tt.price}, rec, log.Discard())
			w.RunAll(context.Background())
			if got := rec.seen(); strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("published %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNilDailyRunnerIsSkipped(t *testing.T) {
	prices := &fakePrices{res: scheduler.RefreshResult{Ran: true}}
	w := New(nil, prices, nil, nil)
	if res := w.RunDaily(context.Background()); res.Ran {
		t.Errorf("RunDaily with nil runner = %+v", res)
	}
	if res := w.RunPrices(context.Background()); !res.Ran {
		t.Errorf("RunPrices = %+v", res)
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}
	w := New(nil, &fakePrices{res: scheduler.RefreshResult{Ran: true, Stored: 1}}, rec, log.Discard())
	if res := w.RunPrices(context.Background()); res.Stored != 1 {
		t.Errorf("RunPrices = %+v", res)
	}
}

func TestScheduleRejectsBadSpecs(t *testing.T) {
	w := New(fakeDaily{}, &fakePrices{}, nil, log.Discard())
	c := cron.New()
	if err := w.Schedule(context.Background(), c, "not a spec", "@every 1m"); err == nil {
		t.Error("expected error for bad daily spec")
	}
	if err := w.Schedule(context.Background(), cron.New(), "@daily", "@every 1m"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestScheduledJobRuns(t *testing.T) {
	prices := &fakePrices{}
	w := New(nil, prices, nil, log.Discard())
	c := cron.New(cron.WithSeconds())
	if err := w.Schedule(context.Background(), c, "@every 1h", "* * * * * *"); err != nil {
		t.Fatal(err)
	}
	c.Start()
	defer c.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		prices.mu.Lock()
		calls := prices.calls
		prices.mu.Unlock()
		if calls > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("price job never ran")
}

func TestHandleEventAndCronLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
	w := New(nil, nil, nil, logger)

	ev, err := amqp.NewWalletEvent(amqp.EventTransactionAdded, map[string]int{"id": 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), amqp.EventTransactionAdded) {
		t.Errorf("audit log missing event kind: %s", buf.String())
	}

	CronLogger{Logger: logger}.Error(errors.New("panic in job"), "job failed", "entry", 1)
	if !strings.Contains(buf.String(), "cron: job failed") || !strings.Contains(buf.String(), "panic in job") {
		t.Errorf("cron error not logged: %s", buf.String())
	}
}
