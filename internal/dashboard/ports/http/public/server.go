package public

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/fxdash/deploy/config"
	mwLogger "github.com/langowen/fxdash/internal/dashboard/ports/http/public/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Server  *http.Server
	cfg     *config.Config
	service Service
}

func NewServer(server *http.Server, cfg *config.Config, service Service) *Server {
	return &Server{
		Server:  server,
		cfg:     cfg,
		service: service,
	}
}

// Routes builds the router. It is separate from StartServer so tests can drive
// it through httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.Home)
	r.Get("/health", s.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.GetVersion)
		r.Get("/currencies", s.GetCurrencies)
		r.Get("/rates", s.GetRates)
		r.Get("/convert", s.GetConvert)
		r.Get("/timeseries", s.GetTrend)
		r.Get("/trend", s.GetTrend)
	})

	return r
}

func StartServer(ctx context.Context, service Service, cfg *config.Config) <-chan struct{} {
	serverConfig := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	server := NewServer(serverConfig, cfg, service)
	server.Server.Handler = server.Routes()

	doneChan := make(chan struct{})

	go func() {
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}
