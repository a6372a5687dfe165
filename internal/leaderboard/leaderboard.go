package leaderboard

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"simtrade/internal/ledger"
)

// Book is the ledger read surface the aggregator consumes.
type Book interface {
	Players(ctx context.Context) ([]ledger.Player, error)
	AccountsByPlayer(ctx context.Context, playerID uint) ([]ledger.Account, error)
	HoldingsByAccount(ctx context.Context, accountID uint) ([]ledger.Holding, error)
}

// PriceFunc returns the current price of an instrument in a currency.
type PriceFunc func(ctx context.Context, instrumentID, currency string) (float64, error)

// Entry is one leaderboard row.
type Entry struct {
	Rank          int     `json:"rank"`
	PlayerID      uint    `json:"playerId"`
	Name          string  `json:"name"`
	Cash          float64 `json:"cash"`
	HoldingsValue float64 `json:"holdingsValue"`
	TotalValue    float64 `json:"totalValue"`
}

// Aggregator computes standings. A player's wealth is cash plus
// marked-to-market holdings across all accounts; amounts in different
// currencies are summed as-is, without conversion.
type Aggregator struct {
	book   Book
	price  PriceFunc
	logger *zap.Logger
}

func New(book Book, price PriceFunc, logger *zap.Logger) *Aggregator {
	return &Aggregator{book: book, price: price, logger: logger}
}

// Standings ranks every player by total value, highest first. Holdings
// that fail to price are valued at their recorded cost basis.
func (a *Aggregator) Standings(ctx context.Context) ([]Entry, error) {
	players, err := a.book.Players(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(players))
	for _, player := range players {
		accounts, err := a.book.AccountsByPlayer(ctx, player.ID)
		if err != nil {
			return nil, err
		}

		entry := Entry{PlayerID: player.ID, Name: player.Name}
		for _, account := range accounts {
			cash, _ := account.Cash.Float64()
			entry.Cash += cash

			holdings, err := a.book.HoldingsByAccount(ctx, account.ID)
			if err != nil {
				return nil, err
			}
			for _, h := range holdings {
				qty, _ := h.Quantity.Float64()
				price, err := a.price(ctx, h.InstrumentID, account.Currency)
				if err != nil || price <= 0 {
					price, _ = h.AvgCost.Float64()
					a.logger.Debug("holding valued at cost basis",
						zap.String("instrument", h.InstrumentID),
						zap.Uint("account_id", account.ID))
				}
				entry.HoldingsValue += qty * price
			}
		}
		entry.TotalValue = entry.Cash + entry.HoldingsValue
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalValue > entries[j].TotalValue
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
