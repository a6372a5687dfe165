package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"simtrade/internal/ledger"
)

type tradeResponse struct {
	Success bool `json:"success"`
	*ledger.TradeReceipt
}

type convertResponse struct {
	Success bool `json:"success"`
	*ledger.ConvertReceipt
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var body struct {
		PlayerID     uint            `json:"playerId"`
		AccountID    uint            `json:"accountId"`
		InstrumentID string          `json:"instrumentId"`
		Currency     string          `json:"currency"`
		Side         string          `json:"side"`
		Quantity     decimal.Decimal `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	side := ledger.Side(strings.ToLower(body.Side))
	if side != ledger.SideBuy && side != ledger.SideSell {
		writeBadRequest(w, "side must be buy or sell")
		return
	}
	if body.InstrumentID == "" || body.Currency == "" {
		writeBadRequest(w, "instrumentId and currency are required")
		return
	}

	receipt, err := s.ledger.Trade(r.Context(), ledger.TradeRequest{
		PlayerID:     body.PlayerID,
		AccountID:    body.AccountID,
		InstrumentID: body.InstrumentID,
		Currency:     strings.ToUpper(body.Currency),
		Side:         side,
		Quantity:     body.Quantity,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeResponse{Success: true, TradeReceipt: receipt})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var body struct {
		PlayerID      uint            `json:"playerId"`
		FromAccountID uint            `json:"fromAccountId"`
		ToAccountID   uint            `json:"toAccountId"`
		Amount        decimal.Decimal `json:"amount"`
		FromCurrency  string          `json:"fromCurrency"`
		ToCurrency    string          `json:"toCurrency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}

	ctx := r.Context()
	from, err := s.store.Account(ctx, body.FromAccountID)
	if err != nil {
		s.writeAccountLookupError(w, err, body.FromAccountID)
		return
	}
	to, err := s.store.Account(ctx, body.ToAccountID)
	if err != nil {
		s.writeAccountLookupError(w, err, body.ToAccountID)
		return
	}
	if body.FromCurrency != "" && !strings.EqualFold(body.FromCurrency, from.Currency) {
		writeRejection(w, &ledger.Rejection{
			Code:   ledger.RejectNotFound,
			Reason: fmt.Sprintf("account %d does not hold %s", from.ID, strings.ToUpper(body.FromCurrency)),
		})
		return
	}
	if body.ToCurrency != "" && !strings.EqualFold(body.ToCurrency, to.Currency) {
		writeRejection(w, &ledger.Rejection{
			Code:   ledger.RejectNotFound,
			Reason: fmt.Sprintf("account %d does not hold %s", to.ID, strings.ToUpper(body.ToCurrency)),
		})
		return
	}

	// The rate is looked up once, before the transaction. Same-currency
	// requests skip the lookup; the engine rejects them.
	rate := 1.0
	if from.Currency != to.Currency {
		rate, err = s.pricing.Rate(ctx, from.Currency, to.Currency)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	receipt, err := s.ledger.Convert(ctx, ledger.ConvertRequest{
		PlayerID:      body.PlayerID,
		FromAccountID: body.FromAccountID,
		ToAccountID:   body.ToAccountID,
		Amount:        body.Amount,
	}, decimal.NewFromFloat(rate))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{Success: true, ConvertReceipt: receipt})
}

// writeAccountLookupError keeps the trading surface uniform: a missing
// account is the same structured rejection the engine itself produces.
func (s *Server) writeAccountLookupError(w http.ResponseWriter, err error, id uint) {
	if errors.Is(err, ledger.ErrNotFound) {
		writeRejection(w, &ledger.Rejection{
			Code:   ledger.RejectNotFound,
			Reason: fmt.Sprintf("account %d not found", id),
		})
		return
	}
	s.writeError(w, err)
}

type holdingView struct {
	ledger.Holding
	Price float64 `json:"price,omitempty"`
	Value float64 `json:"value,omitempty"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
	if rest == "" || strings.Contains(rest, "/") {
		writeBadRequest(w, "account id missing or malformed")
		return
	}
	id64, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		writeBadRequest(w, "account id must be numeric")
		return
	}
	id := uint(id64)

	ctx := r.Context()
	account, err := s.store.Account(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	holdings, err := s.store.HoldingsByAccount(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trades, err := s.store.TradesByAccount(ctx, id, 20)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]holdingView, len(holdings))
	for i, h := range holdings {
		views[i] = holdingView{Holding: h}
		price, perr := s.pricing.PriceOf(ctx, h.InstrumentID, account.Currency)
		if perr != nil {
			continue
		}
		views[i].Price = price
		qty, _ := h.Quantity.Float64()
		views[i].Value = qty * price
	}

	writeJSON(w, http.StatusOK, envelope{
		"success":  true,
		"account":  account,
		"holdings": views,
		"trades":   trades,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	entries, err := s.board.Standings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"leaderboard": entries,
	})
}
