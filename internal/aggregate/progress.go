package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"walletwatcher/internal/core"
)

// BudgetRow is one line of the budget goals card.
type BudgetRow struct {
	CategoryID  int64           `json:"categoryId"`
	Name        string          `json:"name"`
	Amount      float64         `json:"amount"`
	Spent       float64         `json:"spent"`
	Percentage  float64         `json:"percentage"`
	Achieved    bool            `json:"achieved"`
	Recurrence  core.Recurrence `json:"recurrence"`
	IsCompleted bool            `json:"isCompleted"`
}

// BudgetProgress measures spending against a budget over an already filtered set.
func BudgetProgress(b core.Budget, c core.Category, filtered []core.Transaction) BudgetRow {
	spent := decimal.Zero
	for _, tx := range filtered {
		if tx.Type == core.Expense && tx.CategoryID == b.CategoryID {
			spent = spent.Add(decimal.NewFromFloat(tx.Amount).Abs())
		}
	}
	row := BudgetRow{
		CategoryID:  b.CategoryID,
		Name:        c.Name,
		Amount:      b.Amount,
		Spent:       spent.InexactFloat64(),
		Recurrence:  b.Recurrence,
		IsCompleted: b.IsCompleted,
	}
	if b.Amount > 0 {
		row.Percentage = percent(spent, decimal.NewFromFloat(b.Amount))
		row.Achieved = spent.LessThanOrEqual(decimal.NewFromFloat(b.Amount))
	}
	return row
}

// ActiveBudgets lists budgets relevant to the period, sorted by category name.
// One-time budgets are relevant to every period. The income category is left
// out whatever its case.
func ActiveBudgets(budgets []core.Budget, categories []core.Category, filtered []core.Transaction, period core.Period) []BudgetRow {
	names := make(map[int64]core.Category, len(categories))
	for _, c := range categories {
		names[c.ID] = c
	}

	rows := make([]BudgetRow, 0, len(budgets))
	for _, b := range budgets {
		if b.Amount <= 0 {
			continue
		}
		if p, ok := b.Recurrence.Period(); ok && p != period {
			continue
		}
		cat, ok := names[b.CategoryID]
		if !ok || strings.EqualFold(strings.TrimSpace(cat.Name), core.IncomeCategoryName) {
			continue
		}
		rows = append(rows, BudgetProgress(b, cat, filtered))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// SavingsRow is one line of the savings goals card.
type SavingsRow struct {
	core.SavingsGoal
	Percentage float64 `json:"percentage"`
	Reached    bool    `json:"reached"`
}

func SavingsProgress(g core.SavingsGoal) SavingsRow {
	row := SavingsRow{SavingsGoal: g}
	if g.TargetAmount != 0 {
		row.Percentage = percent(decimal.NewFromFloat(g.CurrentAmount), decimal.NewFromFloat(g.TargetAmount))
	}
	row.Reached = row.Percentage >= 100
	return row
}

func SavingsRows(goals []core.SavingsGoal) []SavingsRow {
	rows := make([]SavingsRow, 0, len(goals))
	for _, g := range goals {
		rows = append(rows, SavingsProgress(g))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
