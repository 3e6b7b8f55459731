package entities

import (
	"maps"
	"slices"
	"time"
)

// FetchMeta describes where a payload came from. It never drives control flow.
type FetchMeta struct {
	Cached          bool   `json:"cached"`
	Stale           bool   `json:"stale"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	Source          string `json:"source"`
	Error           string `json:"error,omitempty"`
}

// RatesPayload holds rates expressed as 1 unit of Base -> X units of currency.
// Base itself is never a key of Rates.
type RatesPayload struct {
	Base  string             `json:"base"`
	Date  *string            `json:"date"`
	Rates map[string]float64 `json:"rates"`
	Meta  FetchMeta          `json:"meta"`
}

func NewRatesPayload(base string, date *string, rates map[string]float64) *RatesPayload {
	if rates == nil {
		rates = make(map[string]float64)
	}
	return &RatesPayload{
		Base:  base,
		Date:  date,
		Rates: rates,
	}
}

func (p *RatesPayload) Clone() *RatesPayload {
	if p == nil {
		return nil
	}
	out := *p
	out.Rates = maps.Clone(p.Rates)
	if out.Rates == nil {
		out.Rates = make(map[string]float64)
	}
	if p.Date != nil {
		d := *p.Date
		out.Date = &d
	}
	return &out
}

type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrendPayload is a historical series for one symbol, sorted ascending by date.
type TrendPayload struct {
	Base   string       `json:"base"`
	Symbol string       `json:"symbol"`
	Days   int          `json:"days"`
	Points []TrendPoint `json:"points"`
	Meta   FetchMeta    `json:"meta"`
}

func (p *TrendPayload) Clone() *TrendPayload {
	if p == nil {
		return nil
	}
	out := *p
	out.Points = slices.Clone(p.Points)
	if out.Points == nil {
		out.Points = []TrendPoint{}
	}
	return &out
}

// Conversion is the result of converting Amount of From into To through Base.
// FxRate is 1 From -> To, RateFromVsBase is 1 Base -> From.
type Conversion struct {
	Base           string  `json:"base"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	Amount         float64 `json:"amount"`
	Converted      float64 `json:"converted"`
	FxRate         float64 `json:"fx_rate"`
	RateFromVsBase float64 `json:"rate_from_vs_base"`
}

// CacheEntry is a payload together with the time it was written.
type CacheEntry struct {
	StoredAt time.Time `json:"stored_at"`
	Payload  []byte    `json:"payload"`
}
