package sheets

import (
	"context"

	"walletwatcher/internal/importer"
)

// RowReader yields transaction rows from a remote spreadsheet.
type RowReader interface {
	ReadRows(ctx context.Context) ([]importer.Row, error)
}
