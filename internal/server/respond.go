package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"simtrade/internal/ledger"
	"simtrade/internal/marketdata"
	"simtrade/internal/pricing"
	"simtrade/internal/replay"
)

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		"success": false,
		"error":   "bad_request",
		"message": msg,
	})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{
		"success": false,
		"error":   "method_not_allowed",
		"message": "method not allowed",
	})
}

// writeRejection reports a refused trade or conversion. Rejections are
// game outcomes, not transport failures, so they go out as 200 with
// success=false and enough context to explain the refusal.
func writeRejection(w http.ResponseWriter, rej *ledger.Rejection) {
	body := envelope{
		"success": false,
		"error":   string(rej.Code),
		"message": rej.Reason,
	}
	switch rej.Code {
	case ledger.RejectInsufficientFunds, ledger.RejectInsufficientHoldings:
		body["available"] = rej.Available
		body["required"] = rej.Required
	case ledger.RejectRateLimited:
		body["retryAfterMs"] = rej.RetryAfter.Milliseconds()
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError maps domain errors onto the wire. Unrecognized errors are
// logged and reported as opaque 500s.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if rej, ok := ledger.AsRejection(err); ok {
		writeRejection(w, rej)
		return
	}
	switch {
	case errors.Is(err, marketdata.ErrSourceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			"success": false,
			"error":   "source_unavailable",
			"message": err.Error(),
		})
	case errors.Is(err, pricing.ErrInstrumentNotFound), errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{
			"success": false,
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, replay.ErrOutOfRange):
		// Soft no-op: the clock is unchanged and the caller is told why.
		writeJSON(w, http.StatusOK, envelope{
			"success": false,
			"error":   "out_of_range",
			"message": err.Error(),
		})
	case errors.Is(err, replay.ErrSpeedTooFast):
		writeBadRequest(w, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{
			"success": false,
			"error":   "internal",
			"message": "internal error",
		})
	}
}
