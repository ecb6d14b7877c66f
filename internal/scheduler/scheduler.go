// Package scheduler gates background maintenance: a once-per-calendar-day
// retention purge and a rolling-interval asset price refresh. Both remember
// their last successful run in a marker store and never return errors to
// the foreground; failures are logged and retried on the next invocation.
package scheduler

import (
	"time"

	"walletwatcher/internal/log"
)

const (
	// DailyMarkerKey holds the local calendar date (YYYY-MM-DD) of the last purge.
	DailyMarkerKey = "lastSchedulerRun"
	// PriceMarkerKey holds the RFC3339Nano instant of the last successful price fetch.
	PriceMarkerKey = "lastAssetPriceFetch"

	DefaultRetentionDays = 365
	DefaultPriceInterval = time.Hour
)

type settings struct {
	now           func() time.Time
	location      *time.Location
	logger        *log.Logger
	retentionDays int
	interval      time.Duration
}

func defaults() settings {
	return settings{
		now:           time.Now,
		location:      time.Local,
		logger:        log.New(log.Config{Component: log.ComponentScheduler}),
		retentionDays: DefaultRetentionDays,
		interval:      DefaultPriceInterval,
	}
}

type Option func(*settings)

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLocation sets the calendar used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentScheduler)
		}
	}
}

func WithRetentionDays(days int) Option {
	return func(s *settings) {
		if days > 0 {
			s.retentionDays = days
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

func apply(opts []Option) settings {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
