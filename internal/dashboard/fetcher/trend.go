package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
)

const (
	MinTrendDays     = 7
	MaxTrendDays     = 180
	DefaultTrendDays = 30

	dateLayout = "2006-01-02"
)

// ClampDays bounds days to [MinTrendDays, MaxTrendDays].
func ClampDays(days int) int {
	switch {
	case days < MinTrendDays:
		return MinTrendDays
	case days > MaxTrendDays:
		return MaxTrendDays
	default:
		return days
	}
}

// FetchTrend returns the daily series of symbol against base over the last days
// (clamped) days. Upstream API versions name the pair parameters differently, so
// from/to is tried first and base/symbols second.
func (f *Fetcher) FetchTrend(ctx context.Context, base, symbol string, days int) (*entities.TrendPayload, error) {
	const op = "fetcher.FetchTrend"

	base = entities.NormalizeCode(base)
	symbol = entities.NormalizeCode(symbol)

	if !entities.IsCode(base) {
		return nil, errors.Wrapf(entities.ErrUnsupportedCurrency, "%s: invalid base %q", op, base)
	}
	if !entities.IsCode(symbol) {
		return nil, errors.Wrapf(entities.ErrUnsupportedCurrency, "%s: invalid symbol %q", op, symbol)
	}
	if symbol == base {
		return nil, errors.Wrapf(entities.ErrUnsupportedCurrency, "%s: symbol must be different from base", op)
	}

	days = ClampDays(days)
	key := fmt.Sprintf("trend:%s:%s:%d", base, symbol, days)

	if payload, ok := f.freshTrend(ctx, key); ok {
		f.metrics.CacheLookups.WithLabelValues(kindTrend, "hit").Inc()
		return payload, nil
	}
	f.metrics.CacheLookups.WithLabelValues(kindTrend, "miss").Inc()

	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		return f.refreshTrend(context.WithoutCancel(ctx), key, base, symbol, days)
	})
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	return v.(*entities.TrendPayload).Clone(), nil
}

func (f *Fetcher) freshTrend(ctx context.Context, key string) (*entities.TrendPayload, bool) {
	var payload entities.TrendPayload
	if !f.loadFresh(ctx, key, f.config.Fetcher.RatesTTL, &payload) {
		return nil, false
	}

	payload.Meta = f.meta(f.config.Fetcher.RatesTTL, true, sourceCache)
	if payload.Points == nil {
		payload.Points = []entities.TrendPoint{}
	}

	return &payload, true
}

func (f *Fetcher) refreshTrend(ctx context.Context, key, base, symbol string, days int) (*entities.TrendPayload, error) {
	const op = "fetcher.refreshTrend"

	if payload, ok := f.freshTrend(ctx, key); ok {
		return payload, nil
	}

	end := f.now().UTC()
	start := end.AddDate(0, 0, -days)
	endpoint := fmt.Sprintf("%s/%s..%s",
		strings.TrimRight(f.config.Fetcher.HistoryURL, "/"),
		start.Format(dateLayout),
		end.Format(dateLayout),
	)

	res, err := f.runAttempts(ctx, kindTrend, []attempt{
		{
			name:     "timeseries_from_to",
			endpoint: endpoint,
			params:   url.Values{"from": {base}, "to": {symbol}},
		},
		{
			name:     "timeseries_base_symbols",
			endpoint: endpoint,
			params:   url.Values{"base": {base}, "symbols": {symbol}},
		},
	})
	if err != nil {
		var stale entities.TrendPayload
		if f.loadStale(ctx, kindTrend, key, &stale) {
			stale.Meta = f.meta(f.config.Fetcher.RatesTTL, true, sourceCacheFallback)
			stale.Meta.Stale = true
			stale.Meta.Error = err.Error()
			if stale.Points == nil {
				stale.Points = []entities.TrendPoint{}
			}
			f.log.Warn("serving stale trend", "op", op, "key", key, "error", err)
			return &stale, nil
		}

		f.log.Error("trend unavailable", "op", op, "key", key, "error", err)
		return nil, errors.Wrapf(entities.ErrUpstreamUnavailable, "unable to fetch timeseries: %v", err)
	}

	payload := &entities.TrendPayload{
		Base:   base,
		Symbol: symbol,
		Days:   days,
		Points: reshapeTrend(res.body, symbol),
		Meta:   f.meta(f.config.Fetcher.RatesTTL, false, sourceName(f.config.Fetcher.HistoryURL)+"/timeseries"),
	}

	if res.malformed {
		payload.Meta.Error = entities.ErrUpstreamMalformedPayload.Error()
		return payload, nil
	}

	f.store(ctx, key, payload)

	return payload, nil
}
