package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"simtrade/internal/marketdata"
)

// InsertOHLCVBatch archives candles, silently skipping rows whose
// (currency, subtype, date) already exist.
func (p *PostgresClient) InsertOHLCVBatch(ctx context.Context, records []OHLCVRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "currency"},
			{Name: "subtype"},
			{Name: "date"},
		},
		DoNothing: true,
	}).Create(&records)
	if tx.Error != nil {
		return 0, fmt.Errorf("insert ohlcv batch: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// InsertBalanceBatch archives balance snapshots with the same conflict
// handling as InsertOHLCVBatch.
func (p *PostgresClient) InsertBalanceBatch(ctx context.Context, records []BalanceRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "currency"},
			{Name: "subtype"},
			{Name: "date"},
		},
		DoNothing: true,
	}).Create(&records)
	if tx.Error != nil {
		return 0, fmt.Errorf("insert balance batch: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// OHLCVRange reads one candle series between from and asOf inclusive,
// date ascending, at most limit rows. An empty from leaves the range
// open at the bottom.
func (p *PostgresClient) OHLCVRange(ctx context.Context, currency, subtype, from, asOf string, limit int) ([]marketdata.OHLCVPoint, error) {
	q := p.DB.WithContext(ctx).
		Model(&OHLCVRecord{}).
		Where("currency = ? AND subtype = ?", currency, subtype).
		Where("date <= ?", asOf)
	if from != "" {
		q = q.Where("date >= ?", from)
	}

	var rows []OHLCVRecord
	if err := q.Order("date ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select ohlcv range: %w", err)
	}

	points := make([]marketdata.OHLCVPoint, len(rows))
	for i, r := range rows {
		points[i] = marketdata.OHLCVPoint{
			Date:   r.Date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return points, nil
}

// BalanceRange reads one balance series with OHLCVRange's bounds.
func (p *PostgresClient) BalanceRange(ctx context.Context, currency, subtype, from, asOf string, limit int) ([]marketdata.BalancePoint, error) {
	q := p.DB.WithContext(ctx).
		Model(&BalanceRecord{}).
		Where("currency = ? AND subtype = ?", currency, subtype).
		Where("date <= ?", asOf)
	if from != "" {
		q = q.Where("date >= ?", from)
	}

	var rows []BalanceRecord
	if err := q.Order("date ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select balance range: %w", err)
	}

	points := make([]marketdata.BalancePoint, len(rows))
	for i, r := range rows {
		points[i] = marketdata.BalancePoint{
			Date:        r.Date,
			Assets:      r.Assets,
			Liabilities: r.Liabilities,
			Equity:      r.Equity,
		}
	}
	return points, nil
}

// ArchivedDates lists every distinct archived date ascending. The replay
// clock is built from this timeline.
func (p *PostgresClient) ArchivedDates(ctx context.Context) ([]string, error) {
	var dates []string
	err := p.DB.WithContext(ctx).
		Model(&OHLCVRecord{}).
		Distinct("date").
		Order("date ASC").
		Pluck("date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("select archived dates: %w", err)
	}
	return dates, nil
}

// ArchivedAssets lists the distinct commodity codes archived for a
// currency.
func (p *PostgresClient) ArchivedAssets(ctx context.Context, currency string) ([]string, error) {
	var assets []string
	err := p.DB.WithContext(ctx).
		Model(&OHLCVRecord{}).
		Where("currency = ? AND category = ?", currency, CategoryCommodity).
		Distinct("subtype").
		Order("subtype ASC").
		Pluck("subtype", &assets).Error
	if err != nil {
		return nil, fmt.Errorf("select archived assets: %w", err)
	}
	return assets, nil
}

// ArchivedCurrencies lists the distinct currencies present in the
// archive.
func (p *PostgresClient) ArchivedCurrencies(ctx context.Context) ([]string, error) {
	var currencies []string
	err := p.DB.WithContext(ctx).
		Model(&OHLCVRecord{}).
		Distinct("currency").
		Order("currency ASC").
		Pluck("currency", &currencies).Error
	if err != nil {
		return nil, fmt.Errorf("select archived currencies: %w", err)
	}
	return currencies, nil
}
