package public

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/langowen/fxdash/deploy/config"
	"github.com/langowen/fxdash/internal/dashboard/service"
	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	convertErr error
	ratesErr   error
	trendErr   error
	dashboard  *service.Dashboard

	convertArgs []interface{}
	trendArgs   []interface{}
}

func (f *fakeService) Dashboard(context.Context) *service.Dashboard {
	return f.dashboard
}

func (f *fakeService) Currencies(context.Context) *service.CurrencyList {
	return &service.CurrencyList{
		Base: "USD",
		Currencies: []service.CurrencyInfo{
			{Currency: entities.LookupCurrency("USD"), Name: "US Dollar", Supported: true},
		},
	}
}

func (f *fakeService) Rates(context.Context) (*entities.RatesPayload, error) {
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	date := "2026-01-19"
	return entities.NewRatesPayload("USD", &date, map[string]float64{"EUR": 0.9}), nil
}

func (f *fakeService) Convert(_ context.Context, amount float64, from, to string) (*service.ConvertResult, error) {
	f.convertArgs = []interface{}{amount, from, to}
	if f.convertErr != nil {
		return nil, f.convertErr
	}
	return &service.ConvertResult{
		Conversion: entities.Conversion{Base: "USD", From: from, To: to, Amount: amount, Converted: 1600, FxRate: 200, RateFromVsBase: 0.8},
	}, nil
}

func (f *fakeService) Trend(_ context.Context, symbol string, days int) (*entities.TrendPayload, error) {
	f.trendArgs = []interface{}{symbol, days}
	if f.trendErr != nil {
		return nil, f.trendErr
	}
	return &entities.TrendPayload{Base: "USD", Symbol: symbol, Days: days, Points: []entities.TrendPoint{}}, nil
}

func (f *fakeService) Version() service.Version {
	return service.Version{App: "FX", Base: "USD", BuildTag: "dev", GitSHA: "abc", BuildTimeUTC: "unknown"}
}

func newTestRouter(svc Service) http.Handler {
	return NewServer(&http.Server{}, &config.Config{}, svc).Routes()
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return out
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(&fakeService{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Version(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(&fakeService{}), "/api/version")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	for _, k := range []string{"app", "base", "build_tag", "git_sha", "build_time_utc"} {
		assert.Contains(t, body, k)
	}
}

func TestServer_Currencies(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(&fakeService{}), "/api/currencies")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"base":"USD","currencies":[{"code":"USD","country":"United States","flag":"🇺🇸","name":"US Dollar","supported":true}]}`,
		rec.Body.String())
}

func TestServer_Rates(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(&fakeService{}), "/api/rates")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"base":"USD","date":"2026-01-19","rates":{"EUR":0.9},"meta":{"cached":false,"stale":false,"cache_ttl_seconds":0,"source":""}}`,
		rec.Body.String())

	rec = do(t, newTestRouter(&fakeService{ratesErr: errors.Wrap(entities.ErrUpstreamUnavailable, "x")}), "/api/rates")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "upstream unavailable")
}

func TestServer_Convert(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	rec := do(t, newTestRouter(svc), "/api/convert?amount=8&from=EUR&to=JPY")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, 1600.0, body["converted"])
	assert.Equal(t, 200.0, body["fx_rate"])
	assert.Equal(t, 0.8, body["rate_from_vs_base"])
	assert.Contains(t, body, "date")
	assert.Contains(t, body, "meta")
	assert.Equal(t, []interface{}{8.0, "EUR", "JPY"}, svc.convertArgs)
}

func TestServer_Convert_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{name: "missing_amount", target: "/api/convert?from=EUR&to=JPY", status: http.StatusBadRequest},
		{name: "bad_amount", target: "/api/convert?amount=abc&from=EUR&to=JPY", status: http.StatusBadRequest},
		{name: "missing_to", target: "/api/convert?amount=1&from=EUR", status: http.StatusBadRequest},
		{name: "invalid_amount", target: "/api/convert?amount=-1&from=EUR&to=JPY", err: entities.ErrInvalidAmount, status: http.StatusBadRequest},
		{name: "unsupported", target: "/api/convert?amount=1&from=XXX&to=USD", err: entities.ErrUnsupportedCurrency, status: http.StatusBadRequest},
		{name: "rate_unavailable", target: "/api/convert?amount=1&from=EUR&to=JPY", err: entities.ErrRateUnavailable, status: http.StatusUnprocessableEntity},
		{name: "upstream", target: "/api/convert?amount=1&from=EUR&to=JPY", err: entities.ErrUpstreamUnavailable, status: http.StatusBadGateway},
		{name: "unexpected", target: "/api/convert?amount=1&from=EUR&to=JPY", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, newTestRouter(&fakeService{convertErr: tc.err}), tc.target)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["detail"])
		})
	}
}

func TestServer_Trend(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	h := newTestRouter(svc)

	rec := do(t, h, "/api/timeseries?symbol=EUR")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"EUR", 30}, svc.trendArgs)

	rec = do(t, h, "/api/trend?symbol=JPY&days=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"JPY", 1}, svc.trendArgs)

	rec = do(t, h, "/api/trend?symbol=JPY&days=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "/api/trend")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newTestRouter(&fakeService{trendErr: entities.ErrUnsupportedCurrency}), "/api/trend?symbol=USD")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Home(t *testing.T) {
	t.Parallel()

	rate := 0.912345678
	one := 1.0
	date := "2026-01-19"
	svc := &fakeService{dashboard: &service.Dashboard{
		Title: "CRNCY - USD FX Dashboard",
		Base:  "USD",
		Date:  &date,
		Rows: []entities.DashboardRow{
			{Currency: entities.LookupCurrency("USD"), Rate: &one, Supported: true},
			{Currency: entities.LookupCurrency("EUR"), Rate: &rate, Supported: true},
			{Currency: entities.LookupCurrency("CLP"), Supported: false},
		},
	}}

	rec := do(t, newTestRouter(svc), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "CRNCY - USD FX Dashboard")
	assert.Contains(t, body, "0.9123")
	assert.Contains(t, body, "n/a")
	assert.Contains(t, body, "2026-01-19")
	assert.NotContains(t, body, "Rates unavailable")
}

func TestServer_Home_ErrorBanner(t *testing.T) {
	t.Parallel()

	svc := &fakeService{dashboard: &service.Dashboard{
		Title: "FX",
		Base:  "USD",
		Error: "upstream unavailable and no cached data",
	}}

	rec := do(t, newTestRouter(svc), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rates unavailable: upstream unavailable and no cached data")
}
