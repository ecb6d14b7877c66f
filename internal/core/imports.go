package core

import (
	"strings"
	"time"
)

// ImportEntry is a validated transaction whose category is named, not keyed.
// Names are resolved case-insensitively at import time and created when missing.
type ImportEntry struct {
	Date         time.Time
	Description  string
	Amount       float64
	Type         TxType
	CategoryName string
}

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Imported          int `json:"imported"`
	Skipped           int `json:"skipped"`
	CreatedCategories int `json:"createdCategories"`
}

// CategoryKey normalises a category name for case-insensitive matching.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
