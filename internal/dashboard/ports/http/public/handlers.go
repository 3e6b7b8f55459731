package public

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/langowen/fxdash/internal/dashboard/fetcher"
)

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) GetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Version())
}

func (s *Server) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Currencies(r.Context()))
}

func (s *Server) GetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.service.Rates(r.Context())
	if err != nil {
		RespondWithServiceError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, rates)
}

func (s *Server) GetConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawAmount := strings.TrimSpace(q.Get("amount"))
	if rawAmount == "" {
		RespondWithError(w, http.StatusBadRequest, "amount is required")
		return
	}
	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "amount must be a number")
		return
	}

	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		RespondWithError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	res, err := s.service.Convert(r.Context(), amount, from, to)
	if err != nil {
		RespondWithServiceError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, res)
}

func (s *Server) GetTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	symbol := q.Get("symbol")
	if symbol == "" {
		RespondWithError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	days := fetcher.DefaultTrendDays
	if raw := q.Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = v
	}

	trend, err := s.service.Trend(r.Context(), symbol, days)
	if err != nil {
		RespondWithServiceError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, trend)
}
