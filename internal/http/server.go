// Package http exposes the JSON API of the ledger and the Telegram webhook
// endpoint. Handlers translate between wire shapes and the ledger service;
// all ledger semantics live behind it.
package http

import (
	"net/http"
	"time"

	"kirana/internal/bot"
	applog "kirana/internal/log"
	"kirana/internal/services"
)

type Server struct {
	http.Server
	ledger   *services.LedgerService
	telegram *bot.Telegram
	logger   *applog.Logger
}

// NewServer wires the routes. telegram may be nil when the bot is disabled;
// the webhook endpoint then answers 404.
func NewServer(addr string, ledger *services.LedgerService, telegram *bot.Telegram, logger *applog.Logger) *Server {
	s := &Server{
		ledger:   ledger,
		telegram: telegram,
		logger:   logger.WithComponent(applog.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/years", s.handleYears)
	mux.HandleFunc("GET /api/years/{year}/months", s.handleMonths)
	mux.HandleFunc("GET /api/due", s.handleDue)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	if telegram != nil {
		mux.HandleFunc("POST /telegram/webhook", s.handleTelegramWebhook)
	}

	s.Addr = addr
	s.Handler = s.logRequests(mux)
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16
	return s
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "HTTP request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rec.status,
			applog.FieldDuration, time.Since(start).Milliseconds())
	})
}
