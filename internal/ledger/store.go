package ledger

import "context"

// Tx is one atomic unit of ledger work. ForUpdate reads take row locks
// held until the transaction ends, serializing concurrent mutations of
// the same player.
type Tx interface {
	PlayerForUpdate(id uint) (*Player, error)
	AccountForUpdate(id uint) (*Account, error)
	// HoldingForUpdate returns (nil, nil) when the position does not exist.
	HoldingForUpdate(accountID uint, instrumentID string) (*Holding, error)

	SavePlayer(*Player) error
	SaveAccount(*Account) error
	SaveHolding(*Holding) error
	DeleteHolding(*Holding) error
	AppendTrade(*Trade) error
	AppendConversion(*Conversion) error
}

// Store persists the ledger. Tx runs fn in a transaction, committing when
// fn returns nil and rolling back otherwise. The plain reads never lock.
type Store interface {
	Tx(ctx context.Context, fn func(Tx) error) error

	Player(ctx context.Context, id uint) (*Player, error)
	Players(ctx context.Context) ([]Player, error)
	Account(ctx context.Context, id uint) (*Account, error)
	AccountsByPlayer(ctx context.Context, playerID uint) ([]Account, error)
	HoldingsByAccount(ctx context.Context, accountID uint) ([]Holding, error)
	TradesByAccount(ctx context.Context, accountID uint, limit int) ([]Trade, error)

	CreatePlayer(ctx context.Context, p *Player) error
	CreateAccount(ctx context.Context, a *Account) error
}
