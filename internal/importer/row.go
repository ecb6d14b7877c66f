// Package importer converts between stored transactions and the portable
// formats users move data with: spreadsheets, QR report payloads and PDF
// statements.
package importer

import (
	"fmt"
	"strings"
	"time"

	"walletwatcher/internal/core"
)

// UncategorizedName is used for rows without a category.
const UncategorizedName = "Uncategorized"

// Columns is the header contract shared by every tabular source.
var Columns = []string{"Date", "Description", "Amount", "Category", "Type"}

// Row is one untyped line from an import source.
type Row struct {
	Date        string
	Description string
	Amount      string
	Category    string
	Type        string
}

// Parse converts the row into an import entry. Only an unparseable date,
// amount or type rejects a row; descriptions are taken as given. Amounts are
// stored as absolute values.
func (r Row) Parse(loc *time.Location) (core.ImportEntry, error) {
	date, err := core.ParseTimestamp(r.Date, loc)
	if err != nil {
		return core.ImportEntry{}, err
	}
	amount, err := core.ParsePositiveAmount(r.Amount)
	if err != nil {
		return core.ImportEntry{}, &core.ValidationError{Field: "amount", Message: fmt.Sprintf("unparseable amount %q", r.Amount)}
	}
	txType, err := core.ParseTxType(r.Type)
	if err != nil {
		return core.ImportEntry{}, &core.ValidationError{Field: "type", Message: err.Error()}
	}
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = UncategorizedName
	}

	return core.ImportEntry{
		Date:         date,
		Description:  strings.TrimSpace(r.Description),
		Amount:       amount,
		Type:         txType,
		CategoryName: category,
	}, nil
}

// ParseRows keeps the valid rows and counts the rest as skipped.
func ParseRows(rows []Row, loc *time.Location) (entries []core.ImportEntry, skipped int) {
	entries = make([]core.ImportEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.Parse(loc)
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped
}

// RowsFromTable maps a header row plus data rows onto Rows. Header names
// match case-insensitively in any order; unknown columns are ignored.
func RowsFromTable(table [][]string) ([]Row, error) {
	if len(table) == 0 {
		return nil, &core.ValidationError{Field: "header", Message: "sheet is empty"}
	}
	idx := map[string]int{}
	for i, h := range table[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"date", "amount", "type"} {
		if _, ok := idx[col]; !ok {
			return nil, &core.ValidationError{Field: "header", Message: fmt.Sprintf("missing column %q", col)}
		}
	}

	cell := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(table)-1)
	for _, rec := range table[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			Date:        cell(rec, "date"),
			Description: cell(rec, "description"),
			Amount:      cell(rec, "amount"),
			Category:    cell(rec, "category"),
			Type:        cell(rec, "type"),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
