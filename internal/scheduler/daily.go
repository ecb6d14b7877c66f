package scheduler

import (
	"context"
	"sync"

	"walletwatcher/internal/core"
	"walletwatcher/internal/log"
	"walletwatcher/internal/markers"
)

// Purger deletes transactions older than a number of days.
type Purger interface {
	DeleteTransactionsOlderThan(ctx context.Context, days int) (int, error)
}

// DailyResult describes what a RunDailyTasks call did.
type DailyResult struct {
	Ran     bool
	Deleted int
	Day     string
}

// DailyMaintenance runs the retention purge at most once per local calendar day.
// Overlapping processes may both run it; the purge is idempotent.
type DailyMaintenance struct {
	purger  Purger
	markers markers.Store
	cfg     settings
	mu      sync.Mutex
}

func NewDailyMaintenance(p Purger, m markers.Store, opts ...Option) *DailyMaintenance {
	return &DailyMaintenance{purger: p, markers: m, cfg: apply(opts)}
}

// RunDailyTasks purges old transactions unless the marker already holds
// today's date. The marker is written only after a successful purge.
func (d *DailyMaintenance) RunDailyTasks(ctx context.Context) DailyResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	today := d.cfg.now().In(d.cfg.location).Format(core.DayLayout)
	logger := d.cfg.logger

	last, ok, err := d.markers.Get(ctx, DailyMarkerKey)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read maintenance marker", log.FieldError, err)
	}
	if ok && last == today {
		logger.DebugContext(ctx, "Daily maintenance already ran", log.FieldMarker, last)
		return DailyResult{Day: today}
	}

	logger.InfoContext(ctx, "Running daily maintenance", "day", today, "retention_days", d.cfg.retentionDays)
	deleted, err := d.purger.DeleteTransactionsOlderThan(ctx, d.cfg.retentionDays)
	if err != nil {
		logger.ErrorContext(ctx, "Daily maintenance purge failed", log.FieldError, err, log.FieldOperation, log.OpPurge)
		return DailyResult{Day: today}
	}
	if deleted > 0 {
		logger.InfoContext(ctx, "Deleted old transactions", log.FieldCount, deleted)
	}

	if err := d.markers.Set(ctx, DailyMarkerKey, today); err != nil {
		logger.ErrorContext(ctx, "Failed to write maintenance marker", log.FieldError, err)
	}
	return DailyResult{Ran: true, Deleted: deleted, Day: today}
}
