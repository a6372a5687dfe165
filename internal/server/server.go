package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"simtrade/internal/ledger"
	"simtrade/internal/leaderboard"
	"simtrade/internal/marketdata"
	"simtrade/internal/pricing"
	"simtrade/internal/replay"
)

// HealthFunc reports whether the backing data source is reachable.
type HealthFunc func(ctx context.Context) error

// Deps carries everything the handlers need. Clock is nil in live mode,
// which disables the replay control surface.
type Deps struct {
	Logger   *zap.Logger
	Provider marketdata.Provider
	Pricing  *pricing.Engine
	Ledger   *ledger.Engine
	Store    ledger.Store
	Board    *leaderboard.Aggregator
	Hub      *Hub
	Clock    *replay.Clock
	Health   HealthFunc
}

// Server is the HTTP surface. Handlers share the process-wide clock and
// caches; only admin calls mutate the clock and only the day-advance
// notifier invalidates caches.
type Server struct {
	logger   *zap.Logger
	provider marketdata.Provider
	pricing  *pricing.Engine
	ledger   *ledger.Engine
	store    ledger.Store
	board    *leaderboard.Aggregator
	hub      *Hub
	clock    *replay.Clock
	health   HealthFunc

	httpSrv *http.Server
}

func New(addr string, deps Deps) *Server {
	s := &Server{
		logger:   deps.Logger,
		provider: deps.Provider,
		pricing:  deps.Pricing,
		ledger:   deps.Ledger,
		store:    deps.Store,
		board:    deps.Board,
		hub:      deps.Hub,
		clock:    deps.Clock,
		health:   deps.Health,
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.logRequests(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// routes wires every handler onto a plain ServeMux. Path parameters are
// parsed by the handlers themselves.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)

	mux.HandleFunc("/api/replay/status", s.handleReplayStatus)
	mux.HandleFunc("/api/replay/pause", s.handleReplayPause)
	mux.HandleFunc("/api/replay/resume", s.handleReplayResume)
	mux.HandleFunc("/api/replay/speed", s.handleReplaySpeed)
	mux.HandleFunc("/api/replay/seek", s.handleReplaySeek)

	mux.HandleFunc("/api/quotes", s.handleQuotes)
	mux.HandleFunc("/api/quotes/", s.handleQuote)
	mux.HandleFunc("/api/series", s.handleSeries)
	mux.HandleFunc("/api/instruments/", s.handleHistory)

	mux.HandleFunc("/api/trade", s.handleTrade)
	mux.HandleFunc("/api/convert", s.handleConvert)
	mux.HandleFunc("/api/accounts/", s.handleAccount)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)

	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.ServeWS)
	}

	return mux
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpSrv.Addr))
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// LedgerPriceFunc adapts the pricing engine to the ledger's price lookup,
// translating unknown instruments into the ledger's own sentinel.
func LedgerPriceFunc(eng *pricing.Engine) ledger.PriceFunc {
	return func(ctx context.Context, instrumentID, currency string) (float64, error) {
		price, err := eng.PriceOf(ctx, instrumentID, currency)
		if err != nil {
			if errors.Is(err, pricing.ErrInstrumentNotFound) {
				return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownInstrument, instrumentID)
			}
			return 0, err
		}
		return price, nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, envelope{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
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
		// The recorder does not implement http.Hijacker, which the
		// websocket upgrade needs.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}
