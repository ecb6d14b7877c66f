package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	OneTime Recurrence = "one-time"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
	Yearly  Recurrence = "yearly"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ProfileID is the fixed key of the singleton profile row.
const ProfileID int64 = 1

// MaxDescriptionLength bounds transaction descriptions and goal names.
const MaxDescriptionLength = 200

type (
	Recurrence string
	TxType     string
	Period     string
	Theme      string

	Profile struct {
		ID           int64  `json:"id"`
		Username     string `json:"username"`
		CountryCode  string `json:"country"`
		CurrencyCode string `json:"currency"`
		Theme        Theme  `json:"theme"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID          int64     `json:"id"`
		Date        time.Time `json:"date"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
		Type        TxType    `json:"type"`
		CategoryID  int64     `json:"categoryId"`
	}

	Budget struct {
		CategoryID  int64      `json:"categoryId"`
		Amount      float64    `json:"amount"`
		Recurrence  Recurrence `json:"recurrence"`
		IsCompleted bool       `json:"isCompleted"`
	}

	// SavingsGoal.Recurrence may be empty; an empty recurrence never auto-completes.
	SavingsGoal struct {
		ID            int64      `json:"id"`
		Name          string     `json:"name"`
		TargetAmount  float64    `json:"targetAmount"`
		CurrentAmount float64    `json:"currentAmount"`
		Recurrence    Recurrence `json:"recurrence,omitempty"`
		IsCompleted   bool       `json:"isCompleted"`
	}

	AssetPrice struct {
		ID     int64     `json:"id"`
		Symbol string    `json:"symbol"`
		Date   time.Time `json:"date"`
		Price  float64   `json:"price"`
	}
)

// IncomeCategoryName is the seeded category that holds earnings. It never carries a spending budget row.
const IncomeCategoryName = "Income"

// DefaultCategories are seeded, in order, when a profile is created.
var DefaultCategories = []string{
	"Groceries",
	"Utilities",
	"Rent/Mortgage",
	"Transportation",
	"Dining Out",
	"Entertainment",
	"Shopping",
	IncomeCategoryName,
}

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidRecurrence  = errors.New("invalid recurrence")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidTheme       = errors.New("invalid theme")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
)

func (r Recurrence) Valid() bool {
	switch r {
	case OneTime, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// ParseRecurrence accepts the canonical names case-insensitively.
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
	return r, nil
}

// Period returns the aggregation window a recurring cadence is evaluated in.
// One-time recurrences have no window.
func (r Recurrence) Period() (Period, bool) {
	switch r {
	case Weekly:
		return Week, true
	case Monthly:
		return Month, true
	case Yearly:
		return Year, true
	}
	return "", false
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (p Period) Valid() bool {
	return p == Week || p == Month || p == Year
}

// ParsePeriod defaults to Month for an empty string.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Month, nil
	}
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if t != ThemeLight && t != ThemeDark {
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
	return t, nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date cannot be zero"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Message: ErrEmptyDescription.Error()}
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: ErrDescriptionTooLong.Error()}
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount <= 0 {
		return &ValidationError{Field: "amount", Message: ErrInvalidAmount.Error()}
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "type", Message: ErrInvalidType.Error()}
	}
	return nil
}

func (b Budget) Validate() error {
	if math.IsNaN(b.Amount) || math.IsInf(b.Amount, 0) || b.Amount < 0 {
		return &ValidationError{Field: "amount", Message: ErrInvalidAmount.Error()}
	}
	if !b.Recurrence.Valid() {
		return &ValidationError{Field: "recurrence", Message: ErrInvalidRecurrence.Error()}
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	if utf8.RuneCountInString(g.Name) > MaxDescriptionLength {
		return &ValidationError{Field: "name", Message: ErrDescriptionTooLong.Error()}
	}
	if math.IsNaN(g.TargetAmount) || math.IsInf(g.TargetAmount, 0) || g.TargetAmount <= 0 {
		return &ValidationError{Field: "targetAmount", Message: ErrInvalidAmount.Error()}
	}
	if g.Recurrence != "" && !g.Recurrence.Valid() {
		return &ValidationError{Field: "recurrence", Message: ErrInvalidRecurrence.Error()}
	}
	return nil
}
