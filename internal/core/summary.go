package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	CategoryID int64   `json:"categoryId"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
}

// Overview holds the income, expense and balance totals of a transaction window.
type Overview struct {
	Income     float64          `json:"income"`
	Expense    float64          `json:"expense"`
	Balance    float64          `json:"balance"`
	ByCategory []CategoryAmount `json:"byCategory,omitempty"`
}
