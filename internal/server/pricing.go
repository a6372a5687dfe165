package server

import (
	"net/http"
	"strings"

	"simtrade/internal/marketdata"
)

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	currency := strings.ToUpper(r.URL.Query().Get("currency"))
	if currency == "" {
		writeBadRequest(w, "currency is required")
		return
	}
	quotes, err := s.pricing.AllQuotes(r.Context(), currency)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":  true,
		"currency": currency,
		"quotes":   quotes,
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/quotes/")
	if id == "" || strings.Contains(id, "/") {
		writeBadRequest(w, "instrument id missing or malformed")
		return
	}
	currency := strings.ToUpper(r.URL.Query().Get("currency"))
	if currency == "" {
		writeBadRequest(w, "currency is required")
		return
	}
	quote, err := s.pricing.Quote(r.Context(), id, currency)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"quote":   quote,
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query()

	kind := marketdata.Kind(q.Get("kind"))
	switch kind {
	case marketdata.KindOHLCV, marketdata.KindBalance, marketdata.KindTimeSeries:
	default:
		writeBadRequest(w, "kind must be ohlcv, balance or timeseries")
		return
	}
	currency := strings.ToUpper(q.Get("currency"))
	subtype := q.Get("subtype")
	if currency == "" || subtype == "" {
		writeBadRequest(w, "currency and subtype are required")
		return
	}

	series, err := s.provider.Series(r.Context(), marketdata.SeriesRequest{
		Kind:     kind,
		Currency: currency,
		Subtype:  subtype,
		From:     q.Get("from"),
		To:       q.Get("to"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"series":  series,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/instruments/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "history" {
		writeBadRequest(w, "path must be /api/instruments/{id}/history")
		return
	}
	id := parts[0]

	q := r.URL.Query()
	currency := strings.ToUpper(q.Get("currency"))
	if currency == "" {
		writeBadRequest(w, "currency is required")
		return
	}

	points, err := s.pricing.History(r.Context(), id, currency, q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":      true,
		"instrumentId": id,
		"currency":     currency,
		"history":      points,
	})
}
