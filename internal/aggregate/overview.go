package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"walletwatcher/internal/core"
)

// UncategorizedName labels transactions whose category no longer exists.
const UncategorizedName = "Uncategorized"

// ComputeOverview totals income and expense by absolute amount.
func ComputeOverview(txs []core.Transaction, categories []core.Category) core.Overview {
	names := categoryNames(categories)
	income, expense := decimal.Zero, decimal.Zero
	byCat := make(map[int64]decimal.Decimal)

	for _, tx := range txs {
		amt := decimal.NewFromFloat(tx.Amount).Abs()
		switch tx.Type {
		case core.Income:
			income = income.Add(amt)
		case core.Expense:
			expense = expense.Add(amt)
			byCat[tx.CategoryID] = byCat[tx.CategoryID].Add(amt)
		}
	}

	ov := core.Overview{
		Income:  income.InexactFloat64(),
		Expense: expense.InexactFloat64(),
		Balance: income.Sub(expense).InexactFloat64(),
	}
	for id, amt := range byCat {
		ov.ByCategory = append(ov.ByCategory, core.CategoryAmount{
			CategoryID: id,
			Name:       nameOr(names, id),
			Amount:     amt.InexactFloat64(),
		})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		if ov.ByCategory[i].Amount != ov.ByCategory[j].Amount {
			return ov.ByCategory[i].Amount > ov.ByCategory[j].Amount
		}
		return ov.ByCategory[i].Name < ov.ByCategory[j].Name
	})
	return ov
}

type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// ParseGranularity accepts daily/monthly/yearly; empty means monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Monthly, nil
	case Daily, Monthly, Yearly:
		return g, nil
	}
	return "", &core.ValidationError{Field: "granularity", Message: fmt.Sprintf("unknown granularity %q", s)}
}

func (g Granularity) layout() string {
	switch g {
	case Daily:
		return core.DayLayout
	case Yearly:
		return "2006"
	}
	return "2006-01"
}

// SeriesPoint is one bucket of the spending chart.
type SeriesPoint struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
}

// SpendingSeries buckets expense totals by date key, oldest bucket first,
// using the default calendar.
func SpendingSeries(txs []core.Transaction, g Granularity) []SeriesPoint {
	return DefaultCalendar.SpendingSeries(txs, g)
}

// SpendingSeries buckets expense totals by the date in the calendar's
// location, so keys agree with the period windows. A nil Location keeps each
// transaction's own zone.
func (c Calendar) SpendingSeries(txs []core.Transaction, g Granularity) []SeriesPoint {
	layout := g.layout()
	buckets := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		at := tx.Date
		if c.Location != nil {
			at = at.In(c.Location)
		}
		key := at.Format(layout)
		buckets[key] = buckets[key].Add(decimal.NewFromFloat(tx.Amount).Abs())
	}

	points := make([]SeriesPoint, 0, len(buckets))
	for k, v := range buckets {
		points = append(points, SeriesPoint{Key: k, Amount: v.InexactFloat64()})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Key < points[j].Key })
	return points
}

// TransactionRow is a transaction joined with its category name.
type TransactionRow struct {
	core.Transaction
	CategoryName string `json:"categoryName"`
}

// DefaultRecentLimit is how many rows the recent transactions card shows.
const DefaultRecentLimit = 5

// RecentTransactions returns the first n rows of an already newest-first list.
func RecentTransactions(txs []core.Transaction, categories []core.Category, n int) []TransactionRow {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	if n > len(txs) {
		n = len(txs)
	}
	return JoinCategories(txs[:n], categories)
}

func JoinCategories(txs []core.Transaction, categories []core.Category) []TransactionRow {
	names := categoryNames(categories)
	rows := make([]TransactionRow, len(txs))
	for i, tx := range txs {
		rows[i] = TransactionRow{Transaction: tx, CategoryName: nameOr(names, tx.CategoryID)}
	}
	return rows
}

func categoryNames(categories []core.Category) map[int64]string {
	m := make(map[int64]string, len(categories))
	for _, c := range categories {
		m[c.ID] = c.Name
	}
	return m
}

func nameOr(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return UncategorizedName
}
