package core

import "strings"

// FallbackCurrency is used for country codes missing from the table.
const FallbackCurrency = "USD"

type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

var countries = []Country{
	{Code: "US", Name: "United States", Currency: "USD"},
	{Code: "CA", Name: "Canada", Currency: "CAD"},
	{Code: "GB", Name: "United Kingdom", Currency: "GBP"},
	{Code: "AU", Name: "Australia", Currency: "AUD"},
	{Code: "DE", Name: "Germany", Currency: "EUR"},
	{Code: "FR", Name: "France", Currency: "EUR"},
	{Code: "JP", Name: "Japan", Currency: "JPY"},
	{Code: "IN", Name: "India", Currency: "INR"},
	{Code: "BR", Name: "Brazil", Currency: "BRL"},
	{Code: "ZA", Name: "South Africa", Currency: "ZAR"},
}

// Countries returns a copy of the supported country table.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// CurrencyFor maps a country code to its currency, falling back to USD.
func CurrencyFor(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range countries {
		if c.Code == code {
			return c.Currency
		}
	}
	return FallbackCurrency
}
