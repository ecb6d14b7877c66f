package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatcher/internal/core"
)

func day(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFilterByPeriodMonth(t *testing.T) {
	txs := []core.Transaction{
		{ID: 1, Date: day("2024-03-01T00:00:00Z")},
		{ID: 2, Date: day("2024-03-31T23:59:59Z")},
		{ID: 3, Date: day("2024-02-28T12:00:00Z")},
		{ID: 4, Date: day("2024-04-01T00:00:00Z")},
	}
	got := FilterByPeriod(txs, core.Month, day("2024-03-15T10:00:00Z"))

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestBounds(t *testing.T) {
	// 2024-03-13 is a Wednesday.
	ref := day("2024-03-13T15:00:00Z")
	tests := []struct {
		name      string
		cal       Calendar
		period    core.Period
		wantStart string
		wantEnd   string
	}{
		{"week from sunday", DefaultCalendar, core.Week, "2024-03-10T00:00:00Z", "2024-03-16T23:59:59.999999999Z"},
		{"week from monday", Calendar{WeekStart: time.Monday}, core.Week, "2024-03-11T00:00:00Z", "2024-03-17T23:59:59.999999999Z"},
		{"month", DefaultCalendar, core.Month, "2024-03-01T00:00:00Z", "2024-03-31T23:59:59.999999999Z"},
		{"year", DefaultCalendar, core.Year, "2024-01-01T00:00:00Z", "2024-12-31T23:59:59.999999999Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.cal.Bounds(tt.period, ref)
			assert.Equal(t, tt.wantStart, w.Start.Format(time.RFC3339Nano))
			assert.Equal(t, tt.wantEnd, w.End.Format(time.RFC3339Nano))
		})
	}
}

func TestBoundsWeekOnStartDay(t *testing.T) {
	w := DefaultCalendar.Bounds(core.Week, day("2024-03-10T00:00:00Z"))
	assert.True(t, w.Start.Equal(day("2024-03-10T00:00:00Z")))
}

func TestBoundsUsesCalendarLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	cal := Calendar{WeekStart: time.Sunday, Location: loc}
	// 03:00 UTC on April 1st is still March 31st in EST.
	w := cal.Bounds(core.Month, day("2024-04-01T03:00:00Z"))
	assert.Equal(t, time.March, w.Start.Month())
	assert.True(t, w.Contains(day("2024-04-01T04:59:59Z")))
	assert.False(t, w.Contains(day("2024-04-01T05:00:00Z")))
}

func TestActiveBudgets(t *testing.T) {
	categories := []core.Category{{ID: 1, Name: "Food"}, {ID: 2, Name: "Bills"}, {ID: 3, Name: "Travel"}, {ID: 4, Name: "Gifts"}}
	budgets := []core.Budget{
		{CategoryID: 1, Amount: 100, Recurrence: core.Monthly},
		{CategoryID: 2, Amount: 50, Recurrence: core.Weekly},
		{CategoryID: 3, Amount: 500, Recurrence: core.OneTime},
		{CategoryID: 4, Amount: 0, Recurrence: core.Monthly},
		{CategoryID: 99, Amount: 10, Recurrence: core.Monthly},
	}
	txs := []core.Transaction{
		{Type: core.Expense, CategoryID: 1, Amount: 40},
		{Type: core.Expense, CategoryID: 1, Amount: 80},
		{Type: core.Income, CategoryID: 1, Amount: 1000},
		{Type: core.Expense, CategoryID: 3, Amount: 125},
	}

	rows := ActiveBudgets(budgets, categories, txs, core.Month)

	require.Len(t, rows, 2)
	assert.Equal(t, "Food", rows[0].Name)
	assert.InDelta(t, 120, rows[0].Spent, 1e-9)
	assert.InDelta(t, 120, rows[0].Percentage, 1e-9)
	assert.False(t, rows[0].Achieved)

	assert.Equal(t, "Travel", rows[1].Name)
	assert.InDelta(t, 25, rows[1].Percentage, 1e-9)
	assert.True(t, rows[1].Achieved)
}

func TestActiveBudgetsSkipsIncomeCategory(t *testing.T) {
	categories := []core.Category{{ID: 1, Name: "Food"}, {ID: 8, Name: "Income"}, {ID: 9, Name: " income "}}
	budgets := []core.Budget{
		{CategoryID: 1, Amount: 100, Recurrence: core.OneTime},
		{CategoryID: 8, Amount: 5000, Recurrence: core.OneTime},
		{CategoryID: 9, Amount: 10, Recurrence: core.Monthly},
	}
	rows := ActiveBudgets(budgets, categories, nil, core.Month)
	require.Len(t, rows, 1)
	assert.Equal(t, "Food", rows[0].Name)
}

func TestActiveBudgetsSortIsCaseSensitive(t *testing.T) {
	categories := []core.Category{{ID: 1, Name: "food"}, {ID: 2, Name: "Zoo"}}
	budgets := []core.Budget{
		{CategoryID: 1, Amount: 1, Recurrence: core.OneTime},
		{CategoryID: 2, Amount: 1, Recurrence: core.OneTime},
	}
	rows := ActiveBudgets(budgets, categories, nil, core.Week)
	require.Len(t, rows, 2)
	assert.Equal(t, "Zoo", rows[0].Name)
}

func TestBudgetProgressZeroAmount(t *testing.T) {
	row := BudgetProgress(core.Budget{CategoryID: 1}, core.Category{ID: 1, Name: "Food"},
		[]core.Transaction{{Type: core.Expense, CategoryID: 1, Amount: 10}})
	assert.Zero(t, row.Percentage)
	assert.False(t, row.Achieved)
}

func TestSavingsRows(t *testing.T) {
	rows := SavingsRows([]core.SavingsGoal{
		{Name: "Vacation", TargetAmount: 200, CurrentAmount: 50},
		{Name: "Car", TargetAmount: 100, CurrentAmount: 110},
		{Name: "Empty", TargetAmount: 0, CurrentAmount: 10},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, "Car", rows[0].Name)
	assert.True(t, rows[0].Reached)
	assert.Equal(t, "Empty", rows[1].Name)
	assert.Zero(t, rows[1].Percentage)
	assert.False(t, rows[1].Reached)
	assert.InDelta(t, 25, rows[2].Percentage, 1e-9)
}

func TestComputeOverviewUsesAbsoluteAmounts(t *testing.T) {
	cats := []core.Category{{ID: 1, Name: "Food"}}
	ov := ComputeOverview([]core.Transaction{
		{Type: core.Income, Amount: 1000},
		{Type: core.Expense, Amount: -200, CategoryID: 1},
		{Type: core.Expense, Amount: 50.5, CategoryID: 7},
	}, cats)

	assert.InDelta(t, 1000, ov.Income, 1e-9)
	assert.InDelta(t, 250.5, ov.Expense, 1e-9)
	assert.InDelta(t, 749.5, ov.Balance, 1e-9)
	require.Len(t, ov.ByCategory, 2)
	assert.Equal(t, "Food", ov.ByCategory[0].Name)
	assert.Equal(t, UncategorizedName, ov.ByCategory[1].Name)
}

func TestSpendingSeries(t *testing.T) {
	txs := []core.Transaction{
		{Type: core.Expense, Amount: 10, Date: day("2024-03-02T10:00:00Z")},
		{Type: core.Expense, Amount: 5, Date: day("2024-03-02T18:00:00Z")},
		{Type: core.Expense, Amount: 7, Date: day("2023-12-31T10:00:00Z")},
		{Type: core.Income, Amount: 100, Date: day("2024-03-02T10:00:00Z")},
	}
	tests := []struct {
		g    Granularity
		want []SeriesPoint
	}{
		{Daily, []SeriesPoint{{"2023-12-31", 7}, {"2024-03-02", 15}}},
		{Monthly, []SeriesPoint{{"2023-12", 7}, {"2024-03", 15}}},
		{Yearly, []SeriesPoint{{"2023", 7}, {"2024", 15}}},
	}
	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			assert.Equal(t, tt.want, SpendingSeries(txs, tt.g))
		})
	}
}

func TestSpendingSeriesUsesCalendarLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 2024-03-01 02:00 IST is still February in UTC.
	txs := []core.Transaction{{Type: core.Expense, Amount: 10, Date: day("2024-02-29T20:30:00Z")}}

	cal := Calendar{WeekStart: time.Sunday, Location: ist}
	assert.Equal(t, []SeriesPoint{{"2024-03", 10}}, cal.SpendingSeries(txs, Monthly))
	assert.Equal(t, []SeriesPoint{{"2024-03-01", 10}}, cal.SpendingSeries(txs, Daily))
	assert.Len(t, cal.Filter(txs, core.Month, time.Date(2024, 3, 15, 0, 0, 0, 0, ist)), 1)

	assert.Equal(t, []SeriesPoint{{"2024-02", 10}}, SpendingSeries(txs, Monthly))
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, Monthly, g)

	g, err = ParseGranularity("Daily")
	require.NoError(t, err)
	assert.Equal(t, Daily, g)

	_, err = ParseGranularity("hourly")
	assert.True(t, core.IsValidation(err))
}

func TestRecentTransactions(t *testing.T) {
	var txs []core.Transaction
	for i := 1; i <= 7; i++ {
		txs = append(txs, core.Transaction{ID: int64(i), CategoryID: 1})
	}
	rows := RecentTransactions(txs, []core.Category{{ID: 1, Name: "Food"}}, 0)
	require.Len(t, rows, DefaultRecentLimit)
	assert.Equal(t, "Food", rows[0].CategoryName)

	assert.Len(t, RecentTransactions(txs[:2], nil, 5), 2)
}

func TestAssetSummary(t *testing.T) {
	info := TrackedAssets[0]
	history := []core.AssetPrice{
		{Symbol: "GOLD", Price: 110},
		{Symbol: "GOLD", Price: 105},
		{Symbol: "GOLD", Price: 100},
	}
	a := AssetSummary(info, history)

	assert.Equal(t, "GOLD", a.Symbol)
	assert.InDelta(t, 110, a.Price, 1e-9)
	assert.InDelta(t, 10, a.Change, 1e-9)
	assert.InDelta(t, 10, a.ChangePercent, 1e-9)
	assert.Equal(t, []float64{100, 105, 110}, a.History)
}

func TestAssetSummaryEmptyAndZeroBase(t *testing.T) {
	empty := AssetSummary(TrackedAssets[3], nil)
	assert.Zero(t, empty.Price)
	assert.Empty(t, empty.History)

	zero := AssetSummary(TrackedAssets[1], []core.AssetPrice{{Price: 5}, {Price: 0}})
	assert.Zero(t, zero.ChangePercent)
	assert.InDelta(t, 5, zero.Change, 1e-9)
}
