package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"strconv"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"walletwatcher/internal/aggregate"
	"walletwatcher/internal/core"
)

const (
	ReportType    = "WalletWatcherReport"
	ReportVersion = 1

	DefaultQRSize = 512
)

// QREntry uses short keys to keep the payload small enough for a QR code.
type QREntry struct {
	D   string  `json:"d"`
	Dsc string  `json:"dsc"`
	A   float64 `json:"a"`
	T   string  `json:"t"`
	C   string  `json:"c"`
}

type QRPayload struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Data    []QREntry `json:"data"`
}

// EncodeReport builds the JSON payload for a set of transactions.
func EncodeReport(txs []aggregate.TransactionRow) ([]byte, error) {
	p := QRPayload{Type: ReportType, Version: ReportVersion, Data: make([]QREntry, 0, len(txs))}
	for _, tx := range txs {
		c := tx.CategoryName
		if c == "" {
			c = UncategorizedName
		}
		p.Data = append(p.Data, QREntry{
			D:   tx.Date.UTC().Format(time.RFC3339Nano),
			Dsc: tx.Description,
			A:   tx.Amount,
			T:   string(tx.Type),
			C:   c,
		})
	}
	return json.Marshal(p)
}

// DecodeReport validates a scanned payload and returns its rows.
func DecodeReport(raw []byte) ([]Row, error) {
	var p QRPayload
	if err := json.Unmarshal(bytes.TrimSpace(raw), &p); err != nil {
		return nil, &core.ValidationError{Field: "payload", Message: "not a wallet report"}
	}
	if p.Type != ReportType {
		return nil, &core.ValidationError{Field: "type", Message: fmt.Sprintf("unexpected report type %q", p.Type)}
	}
	if p.Version != ReportVersion {
		return nil, &core.ValidationError{Field: "version", Message: fmt.Sprintf("unsupported report version %d", p.Version)}
	}

	rows := make([]Row, 0, len(p.Data))
	for _, e := range p.Data {
		rows = append(rows, Row{
			Date:        e.D,
			Description: e.Dsc,
			Amount:      strconv.FormatFloat(e.A, 'f', -1, 64),
			Category:    e.C,
			Type:        e.T,
		})
	}
	return rows, nil
}

// RenderQR encodes payload as a square PNG of size pixels.
func RenderQR(payload []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	code, err := qr.Encode(string(payload), qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
