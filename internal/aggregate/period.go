// Package aggregate derives dashboard figures from stored collections.
// Everything here is pure: callers pass the data and a reference instant.
package aggregate

import (
	"time"

	"walletwatcher/internal/core"
)

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Calendar decides where weeks start and which zone days are cut in.
// A nil Location means the reference instant's own location.
type Calendar struct {
	WeekStart time.Weekday
	Location  *time.Location
}

// DefaultCalendar starts weeks on Sunday.
var DefaultCalendar = Calendar{WeekStart: time.Sunday}

// Bounds returns the window of the given period containing ref.
func (c Calendar) Bounds(period core.Period, ref time.Time) Window {
	if c.Location != nil {
		ref = ref.In(c.Location)
	}
	loc := ref.Location()
	y, m, d := ref.Date()

	var start, next time.Time
	switch period {
	case core.Week:
		offset := (int(ref.Weekday()) - int(c.WeekStart) + 7) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 0, 7)
	case core.Year:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(1, 0, 0)
	default:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)
	}
	return Window{Start: start, End: next.Add(-time.Nanosecond)}
}

// Filter keeps transactions dated inside the period containing ref, preserving order.
func (c Calendar) Filter(txs []core.Transaction, period core.Period, ref time.Time) []core.Transaction {
	w := c.Bounds(period, ref)
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if w.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

func FilterByPeriod(txs []core.Transaction, period core.Period, ref time.Time) []core.Transaction {
	return DefaultCalendar.Filter(txs, period, ref)
}
