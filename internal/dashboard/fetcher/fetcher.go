package fetcher

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/langowen/fxdash/deploy/config"
	"github.com/langowen/fxdash/internal/dashboard/metrics"
	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	kindLatest     = "latest"
	kindCurrencies = "currencies"
	kindTrend      = "trend"

	keyCurrencies = "currencies"

	sourceCache         = "cache"
	sourceCacheFallback = "cache_fallback"
)

// Fetcher produces rate, trend and supported-currency payloads, backed by Storage
// and falling back to stale entries when the upstream API fails.
type Fetcher struct {
	storage    Storage
	httpClient HTTPClient
	publisher  Publisher
	config     *config.Config

	base    string
	symbols []string

	group   singleflight.Group
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Fetcher)

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.log = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// NewFetcher wires the fetcher. publisher may be nil.
func NewFetcher(storage Storage, client HTTPClient, publisher Publisher, cfg *config.Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		storage:    storage,
		httpClient: client,
		publisher:  publisher,
		config:     cfg,
		base:       entities.NormalizeCode(cfg.Fetcher.BaseCurrency),
		now:        time.Now,
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.publisher == nil {
		f.publisher = nopPublisher{}
	}
	if f.metrics == nil {
		f.metrics = metrics.Nop()
	}
	f.log = f.log.With("component", "fetcher")
	f.symbols = f.normalizeSymbols(cfg.Split("Symbols"))

	return f
}

// Base is the fixed reference currency of every payload.
func (f *Fetcher) Base() string {
	return f.base
}

// Symbols is the configured dashboard set, base excluded.
func (f *Fetcher) Symbols() []string {
	return slices.Clone(f.symbols)
}

// FetchLatestRates returns the latest rates for the configured dashboard set.
func (f *Fetcher) FetchLatestRates(ctx context.Context) (*entities.RatesPayload, error) {
	return f.FetchRates(ctx, f.symbols)
}

// FetchRates returns the latest rates for symbols. An empty list asks for the whole table.
func (f *Fetcher) FetchRates(ctx context.Context, symbols []string) (*entities.RatesPayload, error) {
	const op = "fetcher.FetchRates"

	symbols = f.normalizeSymbols(symbols)
	key := latestKey(f.base, symbols)

	if payload, ok := f.freshRates(ctx, key); ok {
		f.metrics.CacheLookups.WithLabelValues(kindLatest, "hit").Inc()
		return payload, nil
	}
	f.metrics.CacheLookups.WithLabelValues(kindLatest, "miss").Inc()

	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		return f.refreshRates(context.WithoutCancel(ctx), key, symbols)
	})
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	return v.(*entities.RatesPayload).Clone(), nil
}

func (f *Fetcher) freshRates(ctx context.Context, key string) (*entities.RatesPayload, bool) {
	var payload entities.RatesPayload
	if !f.loadFresh(ctx, key, f.config.Fetcher.RatesTTL, &payload) {
		return nil, false
	}

	payload.Meta = f.meta(f.config.Fetcher.RatesTTL, true, sourceCache)
	if payload.Rates == nil {
		payload.Rates = make(map[string]float64)
	}

	return &payload, true
}

func (f *Fetcher) refreshRates(ctx context.Context, key string, symbols []string) (*entities.RatesPayload, error) {
	const op = "fetcher.refreshRates"

	if payload, ok := f.freshRates(ctx, key); ok {
		return payload, nil
	}

	wanted := symbols
	if len(symbols) > 0 {
		wanted = f.filterSupported(ctx, symbols)
		if len(wanted) == 0 {
			payload := entities.NewRatesPayload(f.base, nil, nil)
			payload.Meta = f.meta(f.config.Fetcher.RatesTTL, false, sourceName(f.config.Fetcher.LatestURL))
			payload.Meta.Error = "none of the requested symbols is supported upstream"
			return payload, nil
		}
	}

	attempts := make([]attempt, 0, 2)
	if len(wanted) > 0 {
		attempts = append(attempts, attempt{
			name:     "latest_symbols",
			endpoint: f.config.Fetcher.LatestURL,
			params:   url.Values{"base": {f.base}, "symbols": {strings.Join(wanted, ",")}},
			fallOver: rejected,
		})
	}
	attempts = append(attempts, attempt{
		name:     "latest_full",
		endpoint: f.config.Fetcher.LatestURL,
		params:   url.Values{"base": {f.base}},
	})

	res, err := f.runAttempts(ctx, kindLatest, attempts)
	if err != nil {
		var stale entities.RatesPayload
		if f.loadStale(ctx, kindLatest, key, &stale) {
			stale.Meta = f.meta(f.config.Fetcher.RatesTTL, true, sourceCacheFallback)
			stale.Meta.Stale = true
			stale.Meta.Error = err.Error()
			if stale.Rates == nil {
				stale.Rates = make(map[string]float64)
			}
			f.log.Warn("serving stale rates", "op", op, "key", key, "error", err)
			return &stale, nil
		}

		f.log.Error("rates unavailable", "op", op, "key", key, "error", err)
		return nil, errors.Wrapf(entities.ErrUpstreamUnavailable, "unable to fetch latest FX rates: %v", err)
	}

	payload := normalizeLatest(res.body, f.base, wanted)
	payload.Meta = f.meta(f.config.Fetcher.RatesTTL, false, sourceName(res.attempt.endpoint))

	if res.malformed {
		payload.Meta.Error = entities.ErrUpstreamMalformedPayload.Error()
		return payload, nil
	}

	f.store(ctx, key, payload)

	return payload, nil
}

// GetSupportedCurrencies returns the upstream code -> display name table.
func (f *Fetcher) GetSupportedCurrencies(ctx context.Context) (map[string]string, error) {
	const op = "fetcher.GetSupportedCurrencies"

	var cached map[string]string
	if f.loadFresh(ctx, keyCurrencies, f.config.Fetcher.CurrenciesTTL, &cached) {
		f.metrics.CacheLookups.WithLabelValues(kindCurrencies, "hit").Inc()
		return cached, nil
	}
	f.metrics.CacheLookups.WithLabelValues(kindCurrencies, "miss").Inc()

	v, err, _ := f.group.Do(keyCurrencies, func() (interface{}, error) {
		return f.refreshCurrencies(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	out := v.(map[string]string)
	clone := make(map[string]string, len(out))
	for k, name := range out {
		clone[k] = name
	}

	return clone, nil
}

func (f *Fetcher) refreshCurrencies(ctx context.Context) (map[string]string, error) {
	const op = "fetcher.refreshCurrencies"

	var cached map[string]string
	if f.loadFresh(ctx, keyCurrencies, f.config.Fetcher.CurrenciesTTL, &cached) {
		return cached, nil
	}

	res, err := f.runAttempts(ctx, kindCurrencies, []attempt{{
		name:     "currencies",
		endpoint: f.config.Fetcher.CurrenciesURL,
	}})
	if err != nil {
		var stale map[string]string
		if f.loadStale(ctx, kindCurrencies, keyCurrencies, &stale) {
			f.log.Warn("serving stale currencies", "op", op, "error", err)
			return stale, nil
		}
		return nil, errors.Wrapf(entities.ErrUpstreamUnavailable, "unable to fetch supported currencies: %v", err)
	}

	supported := normalizeCurrencies(res.body)
	if res.malformed {
		return supported, nil
	}

	f.store(ctx, keyCurrencies, supported)

	return supported, nil
}

// filterSupported drops symbols the upstream does not serve. When the supported
// set cannot be obtained the symbols are used as is.
func (f *Fetcher) filterSupported(ctx context.Context, symbols []string) []string {
	supported, err := f.GetSupportedCurrencies(ctx)
	if err != nil {
		f.log.Warn("supported currencies unavailable, requesting unfiltered symbols", "error", err)
		return symbols
	}
	if len(supported) == 0 {
		return symbols
	}

	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := supported[s]; ok {
			out = append(out, s)
		} else {
			f.log.Debug("skipping unsupported symbol", "symbol", s)
		}
	}

	return out
}

func (f *Fetcher) normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))

	for _, s := range symbols {
		s = entities.NormalizeCode(s)
		if s == "" || s == f.base || !entities.IsCode(s) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	slices.Sort(out)

	return out
}

func (f *Fetcher) meta(ttl time.Duration, cached bool, source string) entities.FetchMeta {
	return entities.FetchMeta{
		Cached:          cached,
		CacheTTLSeconds: int(ttl / time.Second),
		Source:          source,
	}
}

func latestKey(base string, symbols []string) string {
	return "latest:" + base + ":" + strings.Join(symbols, ",")
}

// sourceName renders an endpoint as host + path for FetchMeta.Source.
func sourceName(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return strings.TrimPrefix(u.Host, "api.") + u.Path
}
