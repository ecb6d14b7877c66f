package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"walletwatcher/internal/aggregate"
	"walletwatcher/internal/core"
	"walletwatcher/internal/importer"
)

// View is the dashboard for one period window.
type View struct {
	Period      core.Period                `json:"period"`
	Granularity aggregate.Granularity      `json:"granularity"`
	Window      aggregate.Window           `json:"window"`
	Currency    string                     `json:"currency"`
	Overview    core.Overview              `json:"overview"`
	Budgets     []aggregate.BudgetRow      `json:"budgets"`
	Savings     []aggregate.SavingsRow     `json:"savings"`
	Spending    []aggregate.SeriesPoint    `json:"spending"`
	Recent      []aggregate.TransactionRow `json:"recent"`
}

// View derives the dashboard from the current snapshot. The spending series
// covers every transaction regardless of period.
func (w *Wallet) View(period core.Period, granularity aggregate.Granularity, ref time.Time) View {
	snap := w.Snapshot()
	filtered := w.calendar.Filter(snap.Transactions, period, ref)
	window := w.calendar.Bounds(period, ref)
	series := aggregate.Calendar{WeekStart: w.calendar.WeekStart, Location: window.Start.Location()}

	v := View{
		Period:      period,
		Granularity: granularity,
		Window:      window,
		Overview:    aggregate.ComputeOverview(filtered, snap.Categories),
		Budgets:     aggregate.ActiveBudgets(snap.Budgets, snap.Categories, filtered, period),
		Savings:     aggregate.SavingsRows(snap.SavingsGoals),
		Spending:    series.SpendingSeries(snap.Transactions, granularity),
		Recent:      aggregate.RecentTransactions(filtered, snap.Categories, aggregate.DefaultRecentLimit),
	}
	if snap.Profile != nil {
		v.Currency = snap.Profile.CurrencyCode
	}
	return v
}

// Assets builds a price card per tracked symbol from the last days of samples.
func (w *Wallet) Assets(ctx context.Context, days int) ([]aggregate.Asset, error) {
	out := make([]aggregate.Asset, len(aggregate.TrackedAssets))
	g, gctx := errgroup.WithContext(ctx)
	for i, info := range aggregate.TrackedAssets {
		g.Go(func() error {
			history, err := w.store.GetAssetHistory(gctx, info.Symbol, days)
			if err != nil {
				return err
			}
			out[i] = aggregate.AssetSummary(info, history)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportRows returns every transaction, newest first, joined with category names.
func (w *Wallet) ExportRows() []aggregate.TransactionRow {
	snap := w.Snapshot()
	return aggregate.JoinCategories(snap.Transactions, snap.Categories)
}

// Statement collects what the PDF statement prints for a period.
func (w *Wallet) Statement(period core.Period, ref time.Time) (importer.Statement, error) {
	snap := w.Snapshot()
	if snap.Profile == nil {
		return importer.Statement{}, ErrNoProfile
	}
	filtered := w.calendar.Filter(snap.Transactions, period, ref)
	return importer.Statement{
		Username: snap.Profile.Username,
		Currency: snap.Profile.CurrencyCode,
		Period:   period,
		Window:   w.calendar.Bounds(period, ref),
		Overview: aggregate.ComputeOverview(filtered, snap.Categories),
		Rows:     aggregate.JoinCategories(filtered, snap.Categories),
	}, nil
}

// Now is the facade's clock, shared with handlers so views use one time source.
func (w *Wallet) Now() time.Time { return w.now() }
