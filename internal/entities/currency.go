package entities

import (
	"regexp"
	"strings"
)

var codeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsCode reports whether code is a 3-letter uppercase currency code.
func IsCode(code string) bool {
	return codeRe.MatchString(code)
}

type Currency struct {
	Code    string `json:"code"`
	Country string `json:"country"`
	Flag    string `json:"flag"`
}

var knownCurrencies = map[string]Currency{
	"USD": {Code: "USD", Country: "United States", Flag: "🇺🇸"},
	"CLP": {Code: "CLP", Country: "Chile", Flag: "🇨🇱"},
	"MXN": {Code: "MXN", Country: "Mexico", Flag: "🇲🇽"},
	"GTQ": {Code: "GTQ", Country: "Guatemala", Flag: "🇬🇹"},
	"HNL": {Code: "HNL", Country: "Honduras", Flag: "🇭🇳"},
	"CRC": {Code: "CRC", Country: "Costa Rica", Flag: "🇨🇷"},
	"BZD": {Code: "BZD", Country: "Belize", Flag: "🇧🇿"},
	"EUR": {Code: "EUR", Country: "Euro Area", Flag: "🇪🇺"},
	"JPY": {Code: "JPY", Country: "Japan", Flag: "🇯🇵"},
	"GBP": {Code: "GBP", Country: "United Kingdom", Flag: "🇬🇧"},
	"CAD": {Code: "CAD", Country: "Canada", Flag: "🇨🇦"},
	"BRL": {Code: "BRL", Country: "Brazil", Flag: "🇧🇷"},
}

// LookupCurrency returns display metadata for code. Unknown codes get the code
// as the country and no flag.
func LookupCurrency(code string) Currency {
	code = NormalizeCode(code)
	if c, ok := knownCurrencies[code]; ok {
		return c
	}
	return Currency{Code: code, Country: code}
}

// DashboardRow is one line of the rates table.
type DashboardRow struct {
	Currency
	Name      string   `json:"name,omitempty"`
	Rate      *float64 `json:"rate"`
	Supported bool     `json:"supported"`
}
