package marketdata

import (
	"context"
	"fmt"

	"simtrade/internal/replay"
)

// ArchiveReader is the slice of the archive store the replay provider
// reads. Ranges are inclusive date bounds, ordered ascending and capped
// at limit rows.
type ArchiveReader interface {
	OHLCVRange(ctx context.Context, currency, subtype, from, asOf string, limit int) ([]OHLCVPoint, error)
	BalanceRange(ctx context.Context, currency, subtype, from, asOf string, limit int) ([]BalancePoint, error)
	ArchivedAssets(ctx context.Context, currency string) ([]string, error)
	ArchivedCurrencies(ctx context.Context) ([]string, error)
}

// ReplayProvider serves archived data, never past the replay clock's
// current date. Scalar indicator series are not archived, so timeseries
// requests return an empty series rather than an error.
type ReplayProvider struct {
	archive ArchiveReader
	clock   *replay.Clock
	maxRows int
}

func NewReplayProvider(archive ArchiveReader, clock *replay.Clock, maxRows int) *ReplayProvider {
	return &ReplayProvider{archive: archive, clock: clock, maxRows: maxRows}
}

func (p *ReplayProvider) Series(ctx context.Context, req SeriesRequest) (Series, error) {
	s := Series{Kind: req.Kind, Currency: req.Currency, Subtype: req.Subtype}

	// clamp the upper bound to the clock so the future stays invisible
	asOf := req.To
	if current := p.clock.CurrentDate(); asOf == "" || asOf > current {
		asOf = current
	}

	var err error
	switch req.Kind {
	case KindOHLCV:
		s.OHLCV, err = p.archive.OHLCVRange(ctx, req.Currency, req.Subtype, req.From, asOf, p.maxRows)
	case KindBalance:
		s.Balance, err = p.archive.BalanceRange(ctx, req.Currency, req.Subtype, req.From, asOf, p.maxRows)
	case KindTimeSeries:
		return s, nil
	default:
		return Series{}, fmt.Errorf("marketdata: unknown series kind %q", req.Kind)
	}
	if err != nil {
		return Series{}, fmt.Errorf("archive read: %w", err)
	}
	return s, nil
}

func (p *ReplayProvider) Assets(ctx context.Context, currency string) ([]string, error) {
	assets, err := p.archive.ArchivedAssets(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("archive read: %w", err)
	}
	return assets, nil
}

func (p *ReplayProvider) Currencies(ctx context.Context) ([]string, error) {
	currencies, err := p.archive.ArchivedCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive read: %w", err)
	}
	return currencies, nil
}

func (p *ReplayProvider) Status(ctx context.Context) (SimStatus, error) {
	return SimStatus{CurrentDate: p.clock.CurrentDate()}, nil
}
