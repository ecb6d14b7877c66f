package prices

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"walletwatcher/internal/core"
)

// Figure is a price as the feed sends it: a quoted locale string such as
// "₹1,234.56" or a bare number.
type Figure string

func (f *Figure) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Figure(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = Figure(n.String())
	return nil
}

// Value parses the figure, reporting false when it is empty or malformed.
func (f Figure) Value() (float64, bool) {
	if f == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(string(f), 64); err == nil {
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	d, err := core.ParseAmount(string(f))
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

type Metal struct {
	Price Figure `json:"price"`
	Unit  string `json:"unit"`
}

type Gold struct {
	K18  Figure `json:"18k"`
	K22  Figure `json:"22k"`
	K24  Figure `json:"24k"`
	Unit string `json:"unit"`
}

// Quote is the upstream payload.
type Quote struct {
	Currency string `json:"currency"`
	Gold     Gold   `json:"gold"`
	Silver   Metal  `json:"silver"`
	Platinum Metal  `json:"platinum"`
	Nifty    Figure `json:"nifty"`
}

// Samples maps a quote onto the tracked symbols, skipping unparsable figures.
func Samples(q Quote, at time.Time) []core.AssetPrice {
	fields := []struct {
		symbol string
		figure Figure
	}{
		{"GOLD", q.Gold.K24},
		{"SILVER", q.Silver.Price},
		{"PLATINUM", q.Platinum.Price},
		{"NIFTY", q.Nifty},
	}
	out := make([]core.AssetPrice, 0, len(fields))
	for _, f := range fields {
		v, ok := f.figure.Value()
		if !ok {
			continue
		}
		out = append(out, core.AssetPrice{Symbol: f.symbol, Date: at, Price: v})
	}
	return out
}
