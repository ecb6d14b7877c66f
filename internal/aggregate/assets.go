package aggregate

import (
	"github.com/shopspring/decimal"

	"walletwatcher/internal/core"
)

// AssetInfo describes how a tracked symbol is displayed.
type AssetInfo struct {
	Symbol string
	Name   string
	Unit   string
}

// TrackedAssets lists the symbols sampled from the price feed, in display order.
var TrackedAssets = []AssetInfo{
	{Symbol: "GOLD", Name: "Gold 24K", Unit: "10g"},
	{Symbol: "SILVER", Name: "Silver", Unit: "kg"},
	{Symbol: "PLATINUM", Name: "Platinum", Unit: "10g"},
	{Symbol: "NIFTY", Name: "NIFTY 50", Unit: "pts"},
}

// Asset is a price card: latest price, change across the window and the series.
type Asset struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Unit          string    `json:"unit"`
	History       []float64 `json:"history"`
}

// AssetSummary builds a card from newest-first history samples.
func AssetSummary(info AssetInfo, history []core.AssetPrice) Asset {
	a := Asset{Symbol: info.Symbol, Name: info.Name, Unit: info.Unit, History: []float64{}}
	if len(history) == 0 {
		return a
	}
	for i := len(history) - 1; i >= 0; i-- {
		a.History = append(a.History, history[i].Price)
	}

	latest := decimal.NewFromFloat(history[0].Price)
	oldest := decimal.NewFromFloat(history[len(history)-1].Price)
	change := latest.Sub(oldest)

	a.Price = latest.InexactFloat64()
	a.Change = change.InexactFloat64()
	a.ChangePercent = percent(change, oldest)
	return a
}
