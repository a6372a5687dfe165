package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"simtrade/internal/marketdata"
)

type fakeProvider struct {
	ohlcv      map[string][]marketdata.OHLCVPoint // keyed currency|subtype
	balance    map[string][]marketdata.BalancePoint
	assets     map[string][]string
	currencies []string
	seriesErr  error
}

func (f *fakeProvider) Series(ctx context.Context, req marketdata.SeriesRequest) (marketdata.Series, error) {
	if f.seriesErr != nil {
		return marketdata.Series{}, f.seriesErr
	}
	s := marketdata.Series{Kind: req.Kind, Currency: req.Currency, Subtype: req.Subtype}
	key := req.Currency + "|" + req.Subtype
	switch req.Kind {
	case marketdata.KindOHLCV:
		s.OHLCV = f.ohlcv[key]
	case marketdata.KindBalance:
		s.Balance = f.balance[key]
	}
	return s, nil
}

func (f *fakeProvider) Assets(ctx context.Context, currency string) ([]string, error) {
	return f.assets[currency], nil
}

func (f *fakeProvider) Currencies(ctx context.Context) ([]string, error) {
	return f.currencies, nil
}

func (f *fakeProvider) Status(ctx context.Context) (marketdata.SimStatus, error) {
	return marketdata.SimStatus{CurrentDate: "2031-06-01"}, nil
}

func closes(values ...float64) []marketdata.OHLCVPoint {
	base := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]marketdata.OHLCVPoint, len(values))
	for i, v := range values {
		points[i] = marketdata.OHLCVPoint{
			Date:  base.AddDate(0, 0, i).Format("2006-01-02"),
			Close: v,
		}
	}
	return points
}

func equities(values ...float64) []marketdata.BalancePoint {
	base := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]marketdata.BalancePoint, len(values))
	for i, v := range values {
		points[i] = marketdata.BalancePoint{
			Date:   base.AddDate(0, 0, i).Format("2006-01-02"),
			Equity: v,
		}
	}
	return points
}

func newTestEngine() (*Engine, *fakeProvider) {
	provider := &fakeProvider{
		ohlcv: map[string][]marketdata.OHLCVPoint{
			"USD|market": closes(10, 11, 12.5),
			"USD|GOLD":   closes(100, 102, 99),
			"USD|EUR":    closes(1.08, 1.10),
			"EUR|USD":    closes(0.92, 0.91),
		},
		balance: map[string][]marketdata.BalancePoint{
			"USD|central_bank": equities(2.0e9, 2.5e9),
		},
		assets:     map[string][]string{"USD": {"GOLD", "market", "central_bank"}},
		currencies: []string{"USD", "EUR"},
	}
	return NewEngine(provider, zap.NewNop()), provider
}

func TestResolveTagsEachKind(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	inst, err := e.Resolve(ctx, "MARKET", "USD")
	require.NoError(t, err)
	assert.Equal(t, KindFixed, inst.Kind)
	assert.Equal(t, SectionIndices, inst.Section)

	inst, err = e.Resolve(ctx, "GOLD", "USD")
	require.NoError(t, err)
	assert.Equal(t, KindCommodity, inst.Kind)
	assert.Equal(t, "GOLD", inst.Asset)

	inst, err = e.Resolve(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, KindForex, inst.Kind)
	assert.Equal(t, "EUR", inst.Counter)

	// series claimed by built-ins never resolve as commodities
	_, err = e.Resolve(ctx, "central_bank", "USD")
	assert.ErrorIs(t, err, ErrInstrumentNotFound)

	_, err = e.Resolve(ctx, "NOPE", "USD")
	assert.ErrorIs(t, err, ErrInstrumentNotFound)
}

func TestQuoteDerivation(t *testing.T) {
	e, _ := newTestEngine()

	q, err := e.Quote(context.Background(), "MARKET", "USD")
	require.NoError(t, err)

	assert.Equal(t, 12.5, q.Price)
	assert.Equal(t, 11.0, q.PreviousClose)
	assert.InDelta(t, 1.5, q.Change, 1e-9)
	assert.InDelta(t, 13.636363, q.ChangePercent, 1e-5)
	assert.Equal(t, []float64{10, 11, 12.5}, q.Sparkline)
}

func TestQuoteSingleObservation(t *testing.T) {
	e, provider := newTestEngine()
	provider.ohlcv["USD|GOLD"] = closes(42)

	q, err := e.Quote(context.Background(), "GOLD", "USD")
	require.NoError(t, err)

	assert.Equal(t, 42.0, q.Price)
	assert.Equal(t, 42.0, q.PreviousClose)
	assert.Zero(t, q.Change)
	assert.Zero(t, q.ChangePercent)
}

func TestQuoteSparklineKeepsLastFifty(t *testing.T) {
	e, provider := newTestEngine()
	values := make([]float64, 60)
	for i := range values {
		values[i] = float64(i + 1)
	}
	provider.ohlcv["USD|market"] = closes(values...)

	q, err := e.Quote(context.Background(), "MARKET", "USD")
	require.NoError(t, err)

	require.Len(t, q.Sparkline, sparklineLen)
	assert.Equal(t, 11.0, q.Sparkline[0])
	assert.Equal(t, 60.0, q.Sparkline[sparklineLen-1])
}

func TestQuoteScaledEquityFund(t *testing.T) {
	e, _ := newTestEngine()

	q, err := e.Quote(context.Background(), "CBANK", "USD")
	require.NoError(t, err)

	assert.Equal(t, 2500.0, q.Price)
	assert.Equal(t, 2000.0, q.PreviousClose)
}

func TestQuoteNormalizedIndex(t *testing.T) {
	e, provider := newTestEngine()
	provider.ohlcv["USD|market"] = closes(50, 60)

	q, err := e.Quote(context.Background(), "ECONIDX", "USD")
	require.NoError(t, err)

	assert.Equal(t, 1200.0, q.Price)
	assert.Equal(t, 1000.0, q.PreviousClose)
}

func TestAllQuotesSkipsFailingInstruments(t *testing.T) {
	e, provider := newTestEngine()
	provider.assets["USD"] = append(provider.assets["USD"], "BROKEN") // no series rows

	quotes, err := e.AllQuotes(context.Background(), "USD")
	require.NoError(t, err)

	ids := make([]string, 0, len(quotes))
	for _, q := range quotes {
		ids = append(ids, q.ID)
	}
	// 4 built-ins + GOLD + EUR forex; BROKEN is dropped
	assert.ElementsMatch(t, []string{"MARKET", "ECONIDX", "CBANK", "CBSMA", "GOLD", "EUR"}, ids)
}

func TestAllQuotesEmptyWhenEverySeriesFails(t *testing.T) {
	e, provider := newTestEngine()
	provider.seriesErr = fmt.Errorf("wrapped: %w", marketdata.ErrSourceUnavailable)

	quotes, err := e.AllQuotes(context.Background(), "USD")
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestHistoryPairsDatesWithDerivedValues(t *testing.T) {
	e, _ := newTestEngine()

	points, err := e.History(context.Background(), "ECONIDX", "USD", "", "")
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, "2031-01-01", points[0].Date)
	assert.Equal(t, 1000.0, points[0].Value)
	assert.Equal(t, 1250.0, points[2].Value) // 12.5/10*1000
}

func TestRate(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	rate, err := e.Rate(ctx, "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	// one EUR quoted in USD: the USD|EUR series' latest close
	rate, err = e.Rate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.10, rate)

	// one USD quoted in EUR
	rate, err = e.Rate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 0.91, rate)

	_, err = e.Rate(ctx, "JPY", "USD")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInstrumentNotFound))
}
