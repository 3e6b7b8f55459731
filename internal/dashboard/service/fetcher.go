package service

import (
	"context"

	"github.com/langowen/fxdash/internal/entities"
)

type Fetcher interface {
	Base() string
	FetchLatestRates(ctx context.Context) (*entities.RatesPayload, error)
	FetchRates(ctx context.Context, symbols []string) (*entities.RatesPayload, error)
	FetchTrend(ctx context.Context, base, symbol string, days int) (*entities.TrendPayload, error)
	GetSupportedCurrencies(ctx context.Context) (map[string]string, error)
}
