package app

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/langowen/fxdash/deploy/config"
	"github.com/langowen/fxdash/internal/dashboard/adapter/api_client/frankfurter"
	"github.com/langowen/fxdash/internal/dashboard/adapter/storage/memory"
	"github.com/langowen/fxdash/internal/dashboard/adapter/storage/redis"
	"github.com/langowen/fxdash/internal/dashboard/fetcher"
	"github.com/langowen/fxdash/internal/dashboard/metrics"
	"github.com/langowen/fxdash/internal/dashboard/ports/http/public"
	"github.com/langowen/fxdash/internal/dashboard/service"
	"github.com/prometheus/client_golang/prometheus"
	redisPack "github.com/redis/go-redis/v9"
)

var exit = os.Exit

// fatal logs a structured error and terminates the process.
func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	exit(1)
}

type DashboardApp struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	closers []func() error
}

func NewDashboardApp(cfg *config.Config) *DashboardApp {
	return &DashboardApp{cfg: cfg}
}

// Start wires every component and serves HTTP until ctx is cancelled. The
// returned channel closes once the server and the cache backend are shut down.
func (a *DashboardApp) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	slog.With("config", a.cfg).Info("starting dashboard")

	a.metrics = metrics.New(prometheus.DefaultRegisterer)

	storage, publisher := a.initStorage(ctx)
	slog.Info("Cache storage initialized", "backend", a.cfg.Cache.Backend)

	httpClient := a.initHTTPClient()
	slog.Info("HTTP client initialized")

	fetch := fetcher.NewFetcher(storage, httpClient, publisher, a.cfg,
		fetcher.WithLogger(slog.Default()),
		fetcher.WithMetrics(a.metrics),
	)
	slog.Info("Fetcher initialized", "base", fetch.Base(), "symbols", fetch.Symbols())

	dashService := a.initService(fetch)
	slog.Info("Service initialized")

	serverDone := public.StartServer(ctx, dashService, a.cfg)
	slog.Info("server started", "port", a.cfg.HTTPServer.Port)

	done := make(chan struct{})
	go func() {
		<-serverDone
		for _, closeFn := range a.closers {
			if err := closeFn(); err != nil {
				slog.Error("Failed to close resource", "error", err)
			}
		}
		close(done)
	}()

	return done
}

func (a *DashboardApp) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parseLevel(a.cfg.App.LogLevel),
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelDebug
	}
	return level
}

func (a *DashboardApp) initStorage(ctx context.Context) (fetcher.Storage, fetcher.Publisher) {
	switch a.cfg.Cache.Backend {
	case config.CacheBackendRedis:
		rdStorage := a.initRedis(ctx)
		a.closers = append(a.closers, rdStorage.Close)
		return rdStorage, rdStorage
	case config.CacheBackendMemory, "":
		return memory.NewStorage(), nil
	default:
		fatal("Unknown cache backend", "backend", a.cfg.Cache.Backend)
		return nil, nil
	}
}

func (a *DashboardApp) initRedis(ctx context.Context) *redis.Storage {
	options := &redisPack.Options{
		Addr:     a.cfg.Redis.Host,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}

	rdStorage, err := redis.InitStorage(ctx, options, a.cfg.Cache.Prefix, a.cfg.Redis.ConnectRetries, a.cfg.Redis.ConnectBackoff)
	if err != nil {
		fatal("Failed to initialize Redis storage", "error", err)
	}

	return rdStorage
}

func (a *DashboardApp) initHTTPClient() *frankfurter.HTTPClient {
	return frankfurter.NewHTTPClient(a.cfg.Fetcher.Timeout, a.metrics)
}

func (a *DashboardApp) initService(fetch *fetcher.Fetcher) *service.Service {
	dashService, err := service.NewService(fetch, a.cfg)
	if err != nil {
		fatal("Failed to initialize service", "error", err)
	}

	return dashService
}
