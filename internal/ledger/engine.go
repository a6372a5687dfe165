package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceFunc supplies the current tradable price of an instrument in a
// given currency. Errors wrapping ErrUnknownInstrument become not_found
// rejections; anything else aborts the trade outright.
type PriceFunc func(ctx context.Context, instrumentID, currency string) (float64, error)

// Engine validates, locks, applies and records trades and conversions.
type Engine struct {
	store    Store
	price    PriceFunc
	cooldown time.Duration
	logger   *zap.Logger

	now func() time.Time
}

func NewEngine(store Store, price PriceFunc, cooldown time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		price:    price,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// TradeRequest asks to buy or sell quantity of an instrument through an
// account. PlayerID identifies the caller for the ownership check.
type TradeRequest struct {
	PlayerID     uint
	AccountID    uint
	InstrumentID string
	Currency     string
	Side         Side
	Quantity     decimal.Decimal
}

// TradeReceipt reports an applied trade.
type TradeReceipt struct {
	TradeID      string          `json:"tradeId"`
	Side         Side            `json:"side"`
	InstrumentID string          `json:"instrumentId"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Total        decimal.Decimal `json:"totalCost"`
	Cash         decimal.Decimal `json:"newCash"`
}

// Trade runs the full pipeline for one buy or sell. The instrument is
// priced before any row is locked, then the owner, account and position
// are mutated inside a single transaction. Rejections roll back with
// nothing written.
func (e *Engine) Trade(ctx context.Context, req TradeRequest) (*TradeReceipt, error) {
	if req.Side != SideBuy && req.Side != SideSell {
		return nil, fmt.Errorf("ledger: invalid side %q", req.Side)
	}
	if !req.Quantity.IsPositive() {
		return nil, reject(RejectInvalidQuantity, "quantity must be positive")
	}

	rawPrice, err := e.price(ctx, req.InstrumentID, req.Currency)
	if err != nil {
		if errors.Is(err, ErrUnknownInstrument) {
			return nil, reject(RejectNotFound, "instrument %s is not tradable in %s", req.InstrumentID, req.Currency)
		}
		return nil, fmt.Errorf("price %s: %w", req.InstrumentID, err)
	}
	if rawPrice <= 0 {
		return nil, reject(RejectNotFound, "instrument %s has no positive price", req.InstrumentID)
	}

	price := decimal.NewFromFloat(rawPrice)
	total := price.Mul(req.Quantity)
	now := e.now()

	var receipt *TradeReceipt
	err = e.store.Tx(ctx, func(tx Tx) error {
		player, err := tx.PlayerForUpdate(req.PlayerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return reject(RejectNotFound, "player %d not found", req.PlayerID)
			}
			return err
		}

		if player.LastTradeAt != nil {
			if wait := e.cooldown - now.Sub(*player.LastTradeAt); wait > 0 {
				rej := reject(RejectRateLimited, "trading again too quickly")
				rej.RetryAfter = wait
				return rej
			}
		}

		account, err := tx.AccountForUpdate(req.AccountID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return reject(RejectNotFound, "account %d not found", req.AccountID)
			}
			return err
		}
		if account.PlayerID != req.PlayerID {
			return reject(RejectNotFound, "account %d not found", req.AccountID)
		}
		if account.Currency != req.Currency {
			return reject(RejectNotFound, "account %d does not hold %s", req.AccountID, req.Currency)
		}

		holding, err := tx.HoldingForUpdate(req.AccountID, req.InstrumentID)
		if err != nil {
			return err
		}

		switch req.Side {
		case SideBuy:
			if account.Cash.LessThan(total) {
				rej := reject(RejectInsufficientFunds, "need %s, have %s", total, account.Cash)
				rej.Available = account.Cash
				rej.Required = total
				return rej
			}
			account.Cash = account.Cash.Sub(total)

			if holding == nil {
				holding = &Holding{
					AccountID:    req.AccountID,
					InstrumentID: req.InstrumentID,
					Quantity:     req.Quantity,
					AvgCost:      price,
				}
			} else {
				held := holding.AvgCost.Mul(holding.Quantity)
				newQty := holding.Quantity.Add(req.Quantity)
				holding.AvgCost = held.Add(total).Div(newQty)
				holding.Quantity = newQty
			}
			if err := tx.SaveHolding(holding); err != nil {
				return err
			}

		case SideSell:
			held := decimal.Zero
			if holding != nil {
				held = holding.Quantity
			}
			if held.LessThan(req.Quantity) {
				rej := reject(RejectInsufficientHoldings, "need %s, have %s", req.Quantity, held)
				rej.Available = held
				rej.Required = req.Quantity
				return rej
			}
			account.Cash = account.Cash.Add(total)

			holding.Quantity = holding.Quantity.Sub(req.Quantity)
			if holding.Quantity.LessThanOrEqual(dustThreshold) {
				if err := tx.DeleteHolding(holding); err != nil {
					return err
				}
			} else {
				// AvgCost stays put on sells
				if err := tx.SaveHolding(holding); err != nil {
					return err
				}
			}
		}

		if err := tx.SaveAccount(account); err != nil {
			return err
		}

		trade := &Trade{
			ID:           ulid.Make().String(),
			PlayerID:     req.PlayerID,
			AccountID:    req.AccountID,
			InstrumentID: req.InstrumentID,
			Side:         req.Side,
			Quantity:     req.Quantity,
			Price:        price,
			Total:        total,
			CashAfter:    account.Cash,
			ExecutedAt:   now,
		}
		if err := tx.AppendTrade(trade); err != nil {
			return err
		}

		player.LastTradeAt = &now
		player.LastActiveAt = &now
		if err := tx.SavePlayer(player); err != nil {
			return err
		}

		receipt = &TradeReceipt{
			TradeID:      trade.ID,
			Side:         req.Side,
			InstrumentID: req.InstrumentID,
			Quantity:     req.Quantity,
			Price:        price,
			Total:        total,
			Cash:         account.Cash,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("trade applied",
		zap.String("trade_id", receipt.TradeID),
		zap.Uint("player_id", req.PlayerID),
		zap.String("instrument", req.InstrumentID),
		zap.String("side", string(req.Side)),
		zap.String("quantity", req.Quantity.String()),
		zap.String("total", total.String()))
	return receipt, nil
}

// ConvertRequest moves cash between two same-owner accounts at a rate the
// caller already fetched. Amount is in the source account's currency.
type ConvertRequest struct {
	PlayerID      uint
	FromAccountID uint
	ToAccountID   uint
	Amount        decimal.Decimal
}

// ConvertReceipt reports an applied conversion.
type ConvertReceipt struct {
	ConversionID string          `json:"conversionId"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	AmountFrom   decimal.Decimal `json:"amountFrom"`
	AmountTo     decimal.Decimal `json:"amountTo"`
	Rate         decimal.Decimal `json:"exchangeRate"`
	FromCash     decimal.Decimal `json:"fromCash"`
	ToCash       decimal.Decimal `json:"toCash"`
}

// Convert debits one account and credits the other atomically. The two
// accounts are locked in ascending ID order so concurrent conversions
// cannot deadlock each other.
func (e *Engine) Convert(ctx context.Context, req ConvertRequest, rate decimal.Decimal) (*ConvertReceipt, error) {
	if !req.Amount.IsPositive() {
		return nil, reject(RejectInvalidQuantity, "amount must be positive")
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("ledger: non-positive conversion rate %s", rate)
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, reject(RejectSameCurrency, "source and destination are the same account")
	}

	now := e.now()

	var receipt *ConvertReceipt
	err := e.store.Tx(ctx, func(tx Tx) error {
		player, err := tx.PlayerForUpdate(req.PlayerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return reject(RejectNotFound, "player %d not found", req.PlayerID)
			}
			return err
		}

		firstID, secondID := req.FromAccountID, req.ToAccountID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		first, err := lockAccount(tx, firstID)
		if err != nil {
			return err
		}
		second, err := lockAccount(tx, secondID)
		if err != nil {
			return err
		}

		from, to := first, second
		if from.ID != req.FromAccountID {
			from, to = second, first
		}

		if from.PlayerID != req.PlayerID {
			return reject(RejectNotFound, "account %d not found", from.ID)
		}
		if to.PlayerID != req.PlayerID {
			return reject(RejectNotFound, "account %d not found", to.ID)
		}
		if from.Currency == to.Currency {
			return reject(RejectSameCurrency, "both accounts hold %s", from.Currency)
		}
		if from.Cash.LessThan(req.Amount) {
			rej := reject(RejectInsufficientFunds, "need %s, have %s", req.Amount, from.Cash)
			rej.Available = from.Cash
			rej.Required = req.Amount
			return rej
		}

		amountTo := req.Amount.Mul(rate)
		from.Cash = from.Cash.Sub(req.Amount)
		to.Cash = to.Cash.Add(amountTo)

		if err := tx.SaveAccount(from); err != nil {
			return err
		}
		if err := tx.SaveAccount(to); err != nil {
			return err
		}

		conv := &Conversion{
			ID:            ulid.Make().String(),
			PlayerID:      req.PlayerID,
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			FromCurrency:  from.Currency,
			ToCurrency:    to.Currency,
			AmountFrom:    req.Amount,
			AmountTo:      amountTo,
			Rate:          rate,
			ExecutedAt:    now,
		}
		if err := tx.AppendConversion(conv); err != nil {
			return err
		}

		player.LastActiveAt = &now
		if err := tx.SavePlayer(player); err != nil {
			return err
		}

		receipt = &ConvertReceipt{
			ConversionID: conv.ID,
			FromCurrency: from.Currency,
			ToCurrency:   to.Currency,
			AmountFrom:   req.Amount,
			AmountTo:     amountTo,
			Rate:         rate,
			FromCash:     from.Cash,
			ToCash:       to.Cash,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("conversion applied",
		zap.String("conversion_id", receipt.ConversionID),
		zap.Uint("player_id", req.PlayerID),
		zap.String("from", receipt.FromCurrency),
		zap.String("to", receipt.ToCurrency),
		zap.String("amount", req.Amount.String()))
	return receipt, nil
}

func lockAccount(tx Tx, id uint) (*Account, error) {
	account, err := tx.AccountForUpdate(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, reject(RejectNotFound, "account %d not found", id)
		}
		return nil, err
	}
	return account, nil
}
