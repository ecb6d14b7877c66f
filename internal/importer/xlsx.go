package importer

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"walletwatcher/internal/aggregate"
)

const exportSheet = "Transactions"

// ReadXLSX reads rows from the first sheet of a workbook. Date cells stored
// as Excel serial numbers are converted to calendar dates in loc.
func ReadXLSX(r io.Reader, loc *time.Location) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	table, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	rows, err := RowsFromTable(table)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Date = normaliseSerialDate(rows[i].Date, loc)
	}
	return rows, nil
}

func normaliseSerialDate(v string, loc *time.Location) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).Format(time.RFC3339)
}

// WriteXLSX writes transactions with the import header so exports round-trip.
func WriteXLSX(w io.Writer, txs []aggregate.TransactionRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			tx.Date.Format(time.RFC3339),
			tx.Description,
			tx.Amount,
			tx.CategoryName,
			string(tx.Type),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
