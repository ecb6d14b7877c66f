package importer

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"walletwatcher/internal/aggregate"
	"walletwatcher/internal/core"
)

// Statement is everything printed on a period statement.
type Statement struct {
	Username string
	Currency string
	Period   core.Period
	Window   aggregate.Window
	Overview core.Overview
	Rows     []aggregate.TransactionRow
}

func BuildStatementPDF(st Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Wallet Watcher Statement", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Wallet Watcher Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Account: %s", st.Username)))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s (%s to %s)", st.Period,
		st.Window.Start.Format(core.DayLayout), st.Window.End.Format(core.DayLayout)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	for _, line := range []struct {
		label  string
		amount float64
	}{
		{"Income", st.Overview.Income},
		{"Expense", st.Overview.Expense},
		{"Balance", st.Overview.Balance},
	} {
		pdf.Cell(40, 8, line.label)
		pdf.Cell(0, 8, money(st.Currency, line.amount))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(28, 7, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(72, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(36, 7, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(34, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, tx := range st.Rows {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		pdf.CellFormat(28, 6, tx.Date.Format(core.DayLayout), "1", 0, "L", false, 0, "")
		pdf.CellFormat(72, 6, tr(truncate(tx.Description, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(36, 6, tr(truncate(tx.CategoryName, 20)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, string(tx.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(34, 6, money(st.Currency, tx.Amount), "1", 1, "R", false, 0, "")
	}
	if len(st.Rows) == 0 {
		pdf.MultiCell(0, 7, "No transactions in this period.", "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(currency string, v float64) string {
	return fmt.Sprintf("%s %.2f", currency, v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
