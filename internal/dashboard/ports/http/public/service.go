package public

import (
	"context"

	"github.com/langowen/fxdash/internal/dashboard/service"
	"github.com/langowen/fxdash/internal/entities"
)

type Service interface {
	Dashboard(ctx context.Context) *service.Dashboard
	Currencies(ctx context.Context) *service.CurrencyList
	Rates(ctx context.Context) (*entities.RatesPayload, error)
	Convert(ctx context.Context, amount float64, from, to string) (*service.ConvertResult, error)
	Trend(ctx context.Context, symbol string, days int) (*entities.TrendPayload, error)
	Version() service.Version
}
