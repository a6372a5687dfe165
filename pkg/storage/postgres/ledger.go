package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"simtrade/internal/ledger"
)

func allModels() []interface{} {
	return []interface{}{
		&OHLCVRecord{},
		&BalanceRecord{},
		&ledger.Player{},
		&ledger.Account{},
		&ledger.Holding{},
		&ledger.Trade{},
		&ledger.Conversion{},
	}
}

// LedgerStore implements ledger.Store on the shared gorm client. Locked
// reads use SELECT ... FOR UPDATE so concurrent mutations of one player
// serialize at the database.
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(client *PostgresClient) *LedgerStore {
	return &LedgerStore{db: client.DB}
}

func (s *LedgerStore) Tx(ctx context.Context, fn func(ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{db: tx})
	})
}

func (s *LedgerStore) Player(ctx context.Context, id uint) (*ledger.Player, error) {
	var p ledger.Player
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapNotFound(err, "player %d", id)
	}
	return &p, nil
}

func (s *LedgerStore) Players(ctx context.Context) ([]ledger.Player, error) {
	var players []ledger.Player
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}
	return players, nil
}

func (s *LedgerStore) Account(ctx context.Context, id uint) (*ledger.Account, error) {
	var a ledger.Account
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, mapNotFound(err, "account %d", id)
	}
	return &a, nil
}

func (s *LedgerStore) AccountsByPlayer(ctx context.Context, playerID uint) ([]ledger.Account, error) {
	var accounts []ledger.Account
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	return accounts, nil
}

func (s *LedgerStore) HoldingsByAccount(ctx context.Context, accountID uint) ([]ledger.Holding, error) {
	var holdings []ledger.Holding
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("instrument_id ASC").
		Find(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("select holdings: %w", err)
	}
	return holdings, nil
}

func (s *LedgerStore) TradesByAccount(ctx context.Context, accountID uint, limit int) ([]ledger.Trade, error) {
	q := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("executed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var trades []ledger.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("select trades: %w", err)
	}
	return trades, nil
}

func (s *LedgerStore) CreatePlayer(ctx context.Context, p *ledger.Player) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

func (s *LedgerStore) CreateAccount(ctx context.Context, a *ledger.Account) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) PlayerForUpdate(id uint) (*ledger.Player, error) {
	var p ledger.Player
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if err != nil {
		return nil, mapNotFound(err, "player %d", id)
	}
	return &p, nil
}

func (t *ledgerTx) AccountForUpdate(id uint) (*ledger.Account, error) {
	var a ledger.Account
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, id).Error
	if err != nil {
		return nil, mapNotFound(err, "account %d", id)
	}
	return &a, nil
}

func (t *ledgerTx) HoldingForUpdate(accountID uint, instrumentID string) (*ledger.Holding, error) {
	var h ledger.Holding
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ? AND instrument_id = ?", accountID, instrumentID).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select holding: %w", err)
	}
	return &h, nil
}

func (t *ledgerTx) SavePlayer(p *ledger.Player) error {
	return t.db.Save(p).Error
}

func (t *ledgerTx) SaveAccount(a *ledger.Account) error {
	return t.db.Save(a).Error
}

func (t *ledgerTx) SaveHolding(h *ledger.Holding) error {
	return t.db.Save(h).Error
}

func (t *ledgerTx) DeleteHolding(h *ledger.Holding) error {
	return t.db.Delete(h).Error
}

func (t *ledgerTx) AppendTrade(tr *ledger.Trade) error {
	return t.db.Create(tr).Error
}

func (t *ledgerTx) AppendConversion(c *ledger.Conversion) error {
	return t.db.Create(c).Error
}

func mapNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ledger.ErrNotFound)...)
	}
	return err
}
