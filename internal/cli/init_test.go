package cli

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"walletwatcher/internal/config"
	"walletwatcher/internal/log"
)

func TestCalendarFromConfig(t *testing.T) {
	cal := Calendar(&config.Config{WeekStart: "monday", Timezone: "UTC"})
	if cal.WeekStart != time.Monday {
		t.Errorf("WeekStart = %v", cal.WeekStart)
	}
	if cal.Location != time.UTC {
		t.Errorf("Location = %v", cal.Location)
	}
}

func TestInitPublisherWithoutBroker(t *testing.T) {
	pub, closeFn := InitPublisher(log.Discard(), &config.Config{})
	defer closeFn()
	if err := pub.Publish(context.Background(), "anything", nil); err != nil {
		t.Errorf("noop publisher returned %v", err)
	}
}

func TestRunEveryStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		RunEvery(ctx, time.Millisecond, func(context.Context) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not return after cancel")
	}
	if calls.Load() < 3 {
		t.Errorf("calls = %d", calls.Load())
	}
}
