package public

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	//go:embed templates/*.html
	templates embed.FS

	pages = template.Must(template.New("pages").Funcs(template.FuncMap{
		"rate": formatRate,
	}).ParseFS(templates, "templates/*.html"))
)

// Home renders the dashboard. Upstream failures show up as a banner, never as
// an error status.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	data := s.service.Dashboard(r.Context())

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		slog.Error("Failed to render dashboard", "error", err)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write dashboard", "error", err)
	}
}

func formatRate(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return decimal.NewFromFloat(*v).Round(4).String()
}
