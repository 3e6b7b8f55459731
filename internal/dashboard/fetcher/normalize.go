package fetcher

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/langowen/fxdash/internal/entities"
	"github.com/tidwall/gjson"
)

// normalizeLatest shapes a /latest body into a RatesPayload. Anything other than
// an object of numeric rates collapses to an empty table. When wanted is non-empty
// the table is filtered down to it; base never appears as a key.
func normalizeLatest(body gjson.Result, base string, wanted []string) *entities.RatesPayload {
	var date *string
	if d := body.Get("date"); d.Type == gjson.String && d.Str != "" {
		s := d.Str
		date = &s
	}

	rates := make(map[string]float64)
	table := body.Get("rates")
	if !table.IsObject() {
		return entities.NewRatesPayload(base, date, rates)
	}

	if len(wanted) > 0 {
		for _, code := range wanted {
			if v, ok := toFloat(table.Get(code)); ok {
				rates[code] = v
			}
		}
		return entities.NewRatesPayload(base, date, rates)
	}

	table.ForEach(func(k, v gjson.Result) bool {
		code := entities.NormalizeCode(k.String())
		if code == base || !entities.IsCode(code) {
			return true
		}
		if f, ok := toFloat(v); ok {
			rates[code] = f
		}
		return true
	})

	return entities.NewRatesPayload(base, date, rates)
}

func normalizeCurrencies(body gjson.Result) map[string]string {
	out := make(map[string]string)
	if !body.IsObject() {
		return out
	}

	body.ForEach(func(k, v gjson.Result) bool {
		code := entities.NormalizeCode(k.String())
		if entities.IsCode(code) && v.Type == gjson.String {
			out[code] = v.Str
		}
		return true
	})

	return out
}

// reshapeTrend turns {"rates": {"YYYY-MM-DD": {"SYM": v}}} into ascending points,
// skipping days without a usable value for symbol.
func reshapeTrend(body gjson.Result, symbol string) []entities.TrendPoint {
	points := make([]entities.TrendPoint, 0)

	table := body.Get("rates")
	if !table.IsObject() {
		return points
	}

	table.ForEach(func(day, obj gjson.Result) bool {
		if !obj.IsObject() {
			return true
		}
		if v, ok := toFloat(obj.Get(symbol)); ok {
			points = append(points, entities.TrendPoint{Date: day.String(), Value: v})
		}
		return true
	})

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})

	return points
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}
