package service

import (
	"context"
	"log/slog"
	"math"

	"github.com/langowen/fxdash/deploy/config"
	"github.com/langowen/fxdash/internal/dashboard/converter"
	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
)

// Service validates presentation input and orchestrates the fetcher and the
// conversion engine.
type Service struct {
	fetcher Fetcher
	cfg     *config.Config
	codes   []string
	log     *slog.Logger
}

// Dashboard is everything the HTML page renders.
type Dashboard struct {
	Title string
	Base  string
	Date  *string
	Rows  []entities.DashboardRow
	Meta  entities.FetchMeta
	Error string
}

type CurrencyInfo struct {
	entities.Currency
	Name      string `json:"name,omitempty"`
	Supported bool   `json:"supported"`
}

type CurrencyList struct {
	Base       string         `json:"base"`
	Currencies []CurrencyInfo `json:"currencies"`
}

type ConvertResult struct {
	entities.Conversion
	Date *string            `json:"date"`
	Meta entities.FetchMeta `json:"meta"`
}

type Version struct {
	App          string `json:"app"`
	Base         string `json:"base"`
	BuildTag     string `json:"build_tag"`
	GitSHA       string `json:"git_sha"`
	BuildTimeUTC string `json:"build_time_utc"`
}

func NewService(fetcher Fetcher, cfg *config.Config) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New("service: nil fetcher")
	}

	return &Service{
		fetcher: fetcher,
		cfg:     cfg,
		codes:   dashboardCodes(fetcher.Base(), cfg.Split("Symbols")),
		log:     slog.Default().With("component", "service"),
	}, nil
}

func (s *Service) Base() string {
	return s.fetcher.Base()
}

func (s *Service) Version() Version {
	return Version{
		App:          s.cfg.App.Title,
		Base:         s.fetcher.Base(),
		BuildTag:     s.cfg.App.BuildTag,
		GitSHA:       s.cfg.App.GitSHA,
		BuildTimeUTC: s.cfg.App.BuildTimeUTC,
	}
}

// Dashboard never fails: upstream trouble is reported through Dashboard.Error
// and rows without a rate.
func (s *Service) Dashboard(ctx context.Context) *Dashboard {
	const op = "service.Dashboard"

	base := s.fetcher.Base()
	d := &Dashboard{
		Title: s.cfg.App.Title,
		Base:  base,
	}

	rates := map[string]float64{}
	payload, err := s.fetcher.FetchLatestRates(ctx)
	if err != nil {
		s.log.Error("dashboard rates unavailable", "op", op, "error", err)
		d.Error = err.Error()
	} else {
		rates = payload.Rates
		d.Date = payload.Date
		d.Meta = payload.Meta
		if payload.Meta.Error != "" {
			d.Error = payload.Meta.Error
		}
	}

	supported := s.supported(ctx)

	d.Rows = make([]entities.DashboardRow, 0, len(s.codes))
	for _, code := range s.codes {
		row := entities.DashboardRow{
			Currency:  entities.LookupCurrency(code),
			Supported: isSupported(supported, base, code),
		}
		if name, ok := supported[code]; ok {
			row.Name = name
		}

		if code == base {
			one := 1.0
			row.Rate = &one
		} else if v, ok := rates[code]; ok {
			v := v
			row.Rate = &v
		}

		d.Rows = append(d.Rows, row)
	}

	return d
}

// Currencies lists the dashboard set with display metadata.
func (s *Service) Currencies(ctx context.Context) *CurrencyList {
	base := s.fetcher.Base()
	supported := s.supported(ctx)

	out := &CurrencyList{
		Base:       base,
		Currencies: make([]CurrencyInfo, 0, len(s.codes)),
	}
	for _, code := range s.codes {
		out.Currencies = append(out.Currencies, CurrencyInfo{
			Currency:  entities.LookupCurrency(code),
			Name:      supported[code],
			Supported: isSupported(supported, base, code),
		})
	}

	return out
}

func (s *Service) Rates(ctx context.Context) (*entities.RatesPayload, error) {
	return s.fetcher.FetchLatestRates(ctx)
}

// Convert converts amount of from into to using the latest rates of both codes.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (*ConvertResult, error) {
	const op = "service.Convert"

	base := s.fetcher.Base()
	from = entities.NormalizeCode(from)
	to = entities.NormalizeCode(to)

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, errors.Wrap(entities.ErrInvalidAmount, op)
	}

	for _, code := range []string{from, to} {
		if !entities.IsCode(code) {
			return nil, errors.Wrapf(entities.ErrUnsupportedCurrency, "%s: invalid code %q", op, code)
		}
	}

	supported := s.supported(ctx)
	for _, code := range []string{from, to} {
		if !isSupported(supported, base, code) {
			return nil, errors.Wrapf(entities.ErrUnsupportedCurrency, "%s: %s", op, code)
		}
	}

	symbols := make([]string, 0, 2)
	for _, code := range []string{from, to} {
		if code != base && (len(symbols) == 0 || symbols[0] != code) {
			symbols = append(symbols, code)
		}
	}

	res := &ConvertResult{}
	var rates map[string]float64

	payload, err := s.fetcher.FetchRates(ctx, symbols)
	switch {
	case err == nil:
		rates = payload.Rates
		res.Date = payload.Date
		res.Meta = payload.Meta
	case from != to:
		return nil, errors.Wrap(err, op)
	default:
		s.log.Warn("rates unavailable for same-currency conversion", "op", op, "error", err)
	}

	conv, err := converter.Convert(amount, from, to, base, rates)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	res.Conversion = conv

	return res, nil
}

func (s *Service) Trend(ctx context.Context, symbol string, days int) (*entities.TrendPayload, error) {
	return s.fetcher.FetchTrend(ctx, s.fetcher.Base(), symbol, days)
}

// supported returns the upstream currency table, or nil when it is unknown.
func (s *Service) supported(ctx context.Context) map[string]string {
	supported, err := s.fetcher.GetSupportedCurrencies(ctx)
	if err != nil {
		s.log.Warn("supported currencies unavailable", "error", err)
		return nil
	}
	return supported
}

// isSupported treats an unknown or empty supported set as supporting everything.
func isSupported(supported map[string]string, base, code string) bool {
	if code == base || len(supported) == 0 {
		return true
	}
	_, ok := supported[code]
	return ok
}

// dashboardCodes keeps the configured order, with base first.
func dashboardCodes(base string, symbols []string) []string {
	out := []string{base}
	seen := map[string]struct{}{base: {}}

	for _, s := range symbols {
		s = entities.NormalizeCode(s)
		if !entities.IsCode(s) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
