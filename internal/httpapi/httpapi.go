// Package httpapi exposes Hardstop's read-only HTTP surface: the brief
// envelope, a health snapshot per source, and a liveness endpoint mapped
// from the run-status evaluator's exit code. Every handler reads from a
// Store the caller already populated from a completed run — the HTTP
// layer performs no pipeline work of its own.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/WhatsYourWhy/hardstop/pkg/brief"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// Store is the read surface the HTTP handlers query. It is satisfied by
// a thin adapter over the already-built repositories and evaluators;
// kept as an interface here so handler tests can supply a fake.
type Store interface {
	Brief(window time.Duration, now time.Time) brief.Envelope
	SourceHealth() map[string]SourceHealthStatus
	RunStatus() (hstypes.ExitCode, []string)
}

// SourceHealthStatus is the per-source snapshot the /health/sources
// endpoint reports.
type SourceHealthStatus struct {
	Score       int                 `json:"score"`
	BudgetState hstypes.BudgetState `json:"budget_state"`
}

// NewRouter builds the chi router serving Hardstop's read-only API. clk
// is used only to timestamp the /brief window cutoff, never to back any
// provenance-relevant computation — the envelope's own fields carry
// whatever clock the run that produced them used.
func NewRouter(store Store, clk clock.Clock, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthzHandler(store))
	r.Get("/brief", briefHandler(store, clk))
	r.Get("/health/sources", sourceHealthHandler(store))

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			next.ServeHTTP(w, req)
			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Dur("duration", time.Since(started)).
				Str("request_id", middleware.GetReqID(req.Context())).
				Msg("http request")
		})
	}
}

// healthzHandler reports 200 for a healthy or warning exit code and 503
// for a broken one, so standard liveness tooling can key off status
// alone without parsing a body.
func healthzHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, messages := store.RunStatus()
		status := http.StatusOK
		if code == hstypes.ExitBroken {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{
			"exit_code": int(code),
			"messages":  messages,
		})
	}
}

func briefHandler(store Store, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window := parseWindow(r.URL.Query().Get("window_hours"), 24*time.Hour)
		envelope := store.Brief(window, clk.Now())
		writeJSON(w, http.StatusOK, envelope)
	}
}

func sourceHealthHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.SourceHealth())
	}
}

func parseWindow(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil {
		return fallback
	}
	return hours
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
