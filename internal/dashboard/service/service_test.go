package service

import (
	"context"
	"math"
	"testing"

	"github.com/langowen/fxdash/deploy/config"
	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	rates        map[string]float64
	ratesErr     error
	supported    map[string]string
	supportedErr error
	trendErr     error

	requested [][]string
	trendArgs []interface{}
}

func (f *fakeFetcher) Base() string { return "USD" }

func (f *fakeFetcher) FetchLatestRates(ctx context.Context) (*entities.RatesPayload, error) {
	return f.FetchRates(ctx, []string{"CLP", "EUR"})
}

func (f *fakeFetcher) FetchRates(_ context.Context, symbols []string) (*entities.RatesPayload, error) {
	f.requested = append(f.requested, symbols)
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}

	date := "2026-01-19"
	p := entities.NewRatesPayload("USD", &date, map[string]float64{})
	for k, v := range f.rates {
		p.Rates[k] = v
	}
	p.Meta = entities.FetchMeta{Source: "frankfurter.dev/v1/latest", CacheTTLSeconds: 600}

	return p, nil
}

func (f *fakeFetcher) FetchTrend(_ context.Context, base, symbol string, days int) (*entities.TrendPayload, error) {
	f.trendArgs = []interface{}{base, symbol, days}
	if f.trendErr != nil {
		return nil, f.trendErr
	}
	return &entities.TrendPayload{Base: base, Symbol: symbol, Days: days, Points: []entities.TrendPoint{}}, nil
}

func (f *fakeFetcher) GetSupportedCurrencies(context.Context) (map[string]string, error) {
	return f.supported, f.supportedErr
}

func newTestService(t *testing.T, f *fakeFetcher) *Service {
	t.Helper()

	cfg := &config.Config{
		App:     config.App{Title: "FX", BuildTag: "v1", GitSHA: "abc", BuildTimeUTC: "now"},
		Fetcher: config.Fetcher{BaseCurrency: "USD", Symbols: "USD,CLP,EUR,clp"},
	}

	svc, err := NewService(f, cfg)
	require.NoError(t, err)

	return svc
}

func TestService_Convert(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		rates:     map[string]float64{"EUR": 0.8, "JPY": 160.0},
		supported: map[string]string{"USD": "US Dollar", "EUR": "Euro", "JPY": "Yen"},
	}
	svc := newTestService(t, f)

	res, err := svc.Convert(context.Background(), 8, "eur", "JPY")
	require.NoError(t, err)

	assert.Equal(t, 1600.0, res.Converted)
	assert.Equal(t, "EUR", res.From)
	assert.Equal(t, "JPY", res.To)
	if assert.NotNil(t, res.Date) {
		assert.Equal(t, "2026-01-19", *res.Date)
	}
	assert.Equal(t, [][]string{{"EUR", "JPY"}}, f.requested)
}

func TestService_Convert_SameCurrency(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		rates:     map[string]float64{"EUR": 0.8},
		supported: map[string]string{"USD": "US Dollar", "EUR": "Euro"},
	}
	svc := newTestService(t, f)

	res, err := svc.Convert(context.Background(), 10, "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Converted)
	assert.Equal(t, 1.0, res.FxRate)

	f.ratesErr = entities.ErrUpstreamUnavailable
	res, err = svc.Convert(context.Background(), 12.5, "EUR", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 12.5, res.Converted)
}

func TestService_Convert_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		amount   float64
		from, to string
		ratesErr error
		wantErr  error
	}{
		{name: "negative_amount", amount: -1, from: "USD", to: "EUR", wantErr: entities.ErrInvalidAmount},
		{name: "inf_amount", amount: math.Inf(1), from: "USD", to: "EUR", wantErr: entities.ErrInvalidAmount},
		{name: "bad_code", amount: 1, from: "US", to: "EUR", wantErr: entities.ErrUnsupportedCurrency},
		{name: "unsupported_code", amount: 10, from: "JPY", to: "USD", wantErr: entities.ErrUnsupportedCurrency},
		{name: "rate_missing", amount: 10, from: "EUR", to: "GBP", wantErr: entities.ErrRateUnavailable},
		{name: "upstream_down", amount: 10, from: "EUR", to: "USD", ratesErr: entities.ErrUpstreamUnavailable, wantErr: entities.ErrUpstreamUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := &fakeFetcher{
				rates:     map[string]float64{"EUR": 0.8},
				ratesErr:  tc.ratesErr,
				supported: map[string]string{"USD": "US Dollar", "EUR": "Euro", "GBP": "Pound"},
			}
			svc := newTestService(t, f)

			_, err := svc.Convert(context.Background(), tc.amount, tc.from, tc.to)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestService_Convert_UnknownSupportedSetAllowsAll(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		rates:        map[string]float64{"JPY": 150},
		supportedErr: entities.ErrUpstreamUnavailable,
	}
	svc := newTestService(t, f)

	res, err := svc.Convert(context.Background(), 2, "USD", "JPY")
	require.NoError(t, err)
	assert.Equal(t, 300.0, res.Converted)
}

func TestService_Dashboard(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		rates:     map[string]float64{"EUR": 0.9},
		supported: map[string]string{"USD": "US Dollar", "EUR": "Euro"},
	}
	svc := newTestService(t, f)

	d := svc.Dashboard(context.Background())
	assert.Equal(t, "FX", d.Title)
	assert.Empty(t, d.Error)
	require.Len(t, d.Rows, 3)

	assert.Equal(t, "USD", d.Rows[0].Code)
	require.NotNil(t, d.Rows[0].Rate)
	assert.Equal(t, 1.0, *d.Rows[0].Rate)

	assert.Equal(t, "CLP", d.Rows[1].Code)
	assert.Equal(t, "Chile", d.Rows[1].Country)
	assert.Nil(t, d.Rows[1].Rate)
	assert.False(t, d.Rows[1].Supported)

	assert.Equal(t, "EUR", d.Rows[2].Code)
	assert.Equal(t, "Euro", d.Rows[2].Name)
	require.NotNil(t, d.Rows[2].Rate)
	assert.Equal(t, 0.9, *d.Rows[2].Rate)
	assert.True(t, d.Rows[2].Supported)
}

func TestService_Dashboard_UpstreamDown(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{ratesErr: errors.Wrap(entities.ErrUpstreamUnavailable, "boom")}
	svc := newTestService(t, f)

	d := svc.Dashboard(context.Background())
	assert.Contains(t, d.Error, "boom")
	require.Len(t, d.Rows, 3)
	assert.NotNil(t, d.Rows[0].Rate)
	assert.Nil(t, d.Rows[2].Rate)
}

func TestService_TrendAndVersion(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{}
	svc := newTestService(t, f)

	_, err := svc.Trend(context.Background(), "eur", 30)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"USD", "eur", 30}, f.trendArgs)

	assert.Equal(t, Version{App: "FX", Base: "USD", BuildTag: "v1", GitSHA: "abc", BuildTimeUTC: "now"}, svc.Version())

	list := svc.Currencies(context.Background())
	assert.Equal(t, "USD", list.Base)
	require.Len(t, list.Currencies, 3)
	assert.True(t, list.Currencies[1].Supported)
}
