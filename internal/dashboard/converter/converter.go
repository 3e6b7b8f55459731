// Package converter computes cross-currency conversions from a single rate table
// expressed against a base currency.
package converter

import (
	"math"

	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	amountPlaces = 6
	ratePlaces   = 10
)

// Convert converts amount of from into to. rates maps each currency c to the number
// of c units bought by 1 unit of base; base itself is implicitly 1 and never a key.
// Cross pairs always route through base.
func Convert(amount float64, from, to, base string, rates map[string]float64) (entities.Conversion, error) {
	from = entities.NormalizeCode(from)
	to = entities.NormalizeCode(to)
	base = entities.NormalizeCode(base)

	res := entities.Conversion{
		Base:   base,
		From:   from,
		To:     to,
		Amount: amount,
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return res, errors.Wrapf(entities.ErrInvalidAmount, "amount %v", amount)
	}

	if from == to {
		res.Converted = amount
		res.FxRate = 1
		res.RateFromVsBase = 1
		if from != base {
			if r, err := rateFor(from, base, rates); err == nil {
				res.RateFromVsBase = round(r, ratePlaces)
			}
		}
		return res, nil
	}

	rateFrom, err := rateFor(from, base, rates)
	if err != nil {
		return res, err
	}

	rateTo, err := rateFor(to, base, rates)
	if err != nil {
		return res, err
	}

	var converted, fx float64
	switch {
	case from == base:
		converted = amount * rateTo
		fx = rateTo
	case to == base:
		converted = amount / rateFrom
		fx = 1 / rateFrom
	default:
		converted = (amount / rateFrom) * rateTo
		fx = rateTo / rateFrom
	}

	res.Converted = round(converted, amountPlaces)
	res.FxRate = round(fx, ratePlaces)
	res.RateFromVsBase = round(rateFrom, ratePlaces)

	return res, nil
}

func rateFor(code, base string, rates map[string]float64) (float64, error) {
	if code == base {
		return 1, nil
	}

	r, ok := rates[code]
	if !ok {
		return 0, errors.Wrapf(entities.ErrRateUnavailable, "no rate for %s", code)
	}

	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, errors.Wrapf(entities.ErrRateUnavailable, "invalid rate %v for %s", r, code)
	}

	return r, nil
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
