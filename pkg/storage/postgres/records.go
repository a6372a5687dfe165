package postgres

import "time"

// Series categories recorded alongside OHLCV rows. Category only feeds
// the asset listing; range queries key on (currency, subtype).
const (
	CategoryMarket    = "market"
	CategoryCommodity = "commodity"
	CategoryForex     = "forex"
)

// OHLCVRecord is one archived daily candle. Dates are ISO yyyy-mm-dd so
// string comparison orders them chronologically.
type OHLCVRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Currency string `gorm:"type:varchar(8);not null;index:idx_ohlcv_series_date,unique"`
	Subtype  string `gorm:"type:text;not null;index:idx_ohlcv_series_date,unique"`
	Date     string `gorm:"type:varchar(10);not null;index:idx_ohlcv_series_date,unique;index:idx_ohlcv_date"`

	Category string `gorm:"type:varchar(16);not null;index:idx_ohlcv_category"`

	Open   float64 `gorm:"type:numeric;not null"`
	High   float64 `gorm:"type:numeric;not null"`
	Low    float64 `gorm:"type:numeric;not null"`
	Close  float64 `gorm:"type:numeric;not null"`
	Volume float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (OHLCVRecord) TableName() string {
	return "archive_ohlcv"
}

// BalanceRecord is one archived daily balance-sheet snapshot.
type BalanceRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Currency string `gorm:"type:varchar(8);not null;index:idx_balance_series_date,unique"`
	Subtype  string `gorm:"type:text;not null;index:idx_balance_series_date,unique"`
	Date     string `gorm:"type:varchar(10);not null;index:idx_balance_series_date,unique;index:idx_balance_date"`

	Assets      float64 `gorm:"type:numeric;not null"`
	Liabilities float64 `gorm:"type:numeric;not null"`
	Equity      float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (BalanceRecord) TableName() string {
	return "archive_balance"
}
