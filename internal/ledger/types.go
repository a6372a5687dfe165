package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// positions at or below this quantity are deleted outright after a sell
var dustThreshold = decimal.NewFromFloat(1e-9)

// Player owns one account per currency. LastTradeAt backs the trade
// cooldown; both timestamps are written inside the same transaction as
// the mutation that touched them.
type Player struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"type:text;not null;uniqueIndex" json:"name"`
	LastTradeAt  *time.Time `json:"lastTradeAt,omitempty"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// Account is a player's wallet in one currency.
type Account struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	PlayerID  uint            `gorm:"not null;index:idx_account_owner,unique" json:"playerId"`
	Currency  string          `gorm:"type:varchar(8);not null;index:idx_account_owner,unique" json:"currency"`
	Cash      decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"cash"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Holding is an account's position in one instrument. AvgCost is the
// weighted average entry price; sells never change it.
type Holding struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	AccountID    uint            `gorm:"not null;index:idx_holding_position,unique" json:"accountId"`
	InstrumentID string          `gorm:"type:text;not null;index:idx_holding_position,unique" json:"instrumentId"`
	Quantity     decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"quantity"`
	AvgCost      decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"avgCost"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Trade is the immutable record of one applied trade.
type Trade struct {
	ID           string          `gorm:"type:varchar(26);primaryKey" json:"id"`
	PlayerID     uint            `gorm:"not null;index" json:"playerId"`
	AccountID    uint            `gorm:"not null;index" json:"accountId"`
	InstrumentID string          `gorm:"type:text;not null" json:"instrumentId"`
	Side         Side            `gorm:"type:varchar(4);not null" json:"side"`
	Quantity     decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"price"`
	Total        decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"total"`
	CashAfter    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"cashAfter"`
	ExecutedAt   time.Time       `gorm:"not null;index" json:"executedAt"`
}

// Conversion is the immutable record of one cross-currency transfer.
type Conversion struct {
	ID            string          `gorm:"type:varchar(26);primaryKey" json:"id"`
	PlayerID      uint            `gorm:"not null;index" json:"playerId"`
	FromAccountID uint            `gorm:"not null" json:"fromAccountId"`
	ToAccountID   uint            `gorm:"not null" json:"toAccountId"`
	FromCurrency  string          `gorm:"type:varchar(8);not null" json:"fromCurrency"`
	ToCurrency    string          `gorm:"type:varchar(8);not null" json:"toCurrency"`
	AmountFrom    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"amountFrom"`
	AmountTo      decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"amountTo"`
	Rate          decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"rate"`
	ExecutedAt    time.Time       `gorm:"not null;index" json:"executedAt"`
}
