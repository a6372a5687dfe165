package pricing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"simtrade/internal/marketdata"
)

// ErrInstrumentNotFound reports an ID that resolves to no instrument in
// the requested currency, or one with no priced observations.
var ErrInstrumentNotFound = errors.New("pricing: instrument not found")

// Engine resolves instrument IDs and derives tradable prices from the
// simulation series behind them.
type Engine struct {
	provider marketdata.Provider
	logger   *zap.Logger
}

func NewEngine(provider marketdata.Provider, logger *zap.Logger) *Engine {
	return &Engine{provider: provider, logger: logger}
}

// Quote is the priced view of one instrument. Price is the latest derived
// value; PreviousClose falls back to the price itself when only a single
// observation exists.
type Quote struct {
	ID            string    `json:"id"`
	Section       string    `json:"section"`
	Currency      string    `json:"currency"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previousClose"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Sparkline     []float64 `json:"sparkline"`
}

// HistoryPoint pairs one derived price with its simulation date.
type HistoryPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Resolve maps an instrument ID to its tagged form for the given pricing
// currency. Built-in names win, then currency codes as forex pairs, then
// the simulation's asset listing as commodities.
func (e *Engine) Resolve(ctx context.Context, id, currency string) (Instrument, error) {
	for _, f := range fixedInstruments {
		if f.id == id {
			return Instrument{ID: id, Kind: KindFixed, Section: f.section, Currency: currency, fixed: &f}, nil
		}
	}

	if id != currency {
		currencies, err := e.provider.Currencies(ctx)
		if err != nil {
			return Instrument{}, err
		}
		for _, c := range currencies {
			if c == id {
				return Instrument{ID: id, Kind: KindForex, Section: SectionForex, Currency: currency, Counter: id}, nil
			}
		}
	}

	assets, err := e.provider.Assets(ctx, currency)
	if err != nil {
		return Instrument{}, err
	}
	for _, a := range assets {
		if a != id {
			continue
		}
		if _, reserved := reservedSubtypes[a]; reserved {
			break
		}
		return Instrument{ID: id, Kind: KindCommodity, Section: SectionCommodities, Currency: currency, Asset: id}, nil
	}

	return Instrument{}, fmt.Errorf("%w: %s (%s)", ErrInstrumentNotFound, id, currency)
}

// Instruments enumerates every tradable in the given pricing currency:
// the built-ins, one commodity per listed asset, and one forex pair per
// other supported currency.
func (e *Engine) Instruments(ctx context.Context, currency string) ([]Instrument, error) {
	var out []Instrument
	for _, f := range fixedInstruments {
		f := f
		out = append(out, Instrument{ID: f.id, Kind: KindFixed, Section: f.section, Currency: currency, fixed: &f})
	}

	assets, err := e.provider.Assets(ctx, currency)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if _, reserved := reservedSubtypes[a]; reserved {
			continue
		}
		out = append(out, Instrument{ID: a, Kind: KindCommodity, Section: SectionCommodities, Currency: currency, Asset: a})
	}

	currencies, err := e.provider.Currencies(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range currencies {
		if c == currency {
			continue
		}
		out = append(out, Instrument{ID: c, Kind: KindForex, Section: SectionForex, Currency: currency, Counter: c})
	}
	return out, nil
}

// Quote prices one instrument by ID.
func (e *Engine) Quote(ctx context.Context, id, currency string) (Quote, error) {
	inst, err := e.Resolve(ctx, id, currency)
	if err != nil {
		return Quote{}, err
	}
	return e.quote(ctx, inst)
}

// AllQuotes prices the whole catalog for one currency. Instruments that
// fail to price are logged and left out rather than failing the batch.
func (e *Engine) AllQuotes(ctx context.Context, currency string) ([]Quote, error) {
	instruments, err := e.Instruments(ctx, currency)
	if err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(instruments))
	for _, inst := range instruments {
		q, err := e.quote(ctx, inst)
		if err != nil {
			e.logger.Debug("instrument skipped",
				zap.String("id", inst.ID),
				zap.String("currency", currency),
				zap.Error(err))
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// History returns the derived price series for charting, optionally
// bounded by inclusive from/to date labels.
func (e *Engine) History(ctx context.Context, id, currency, from, to string) ([]HistoryPoint, error) {
	inst, err := e.Resolve(ctx, id, currency)
	if err != nil {
		return nil, err
	}
	dates, values, err := e.priceSeries(ctx, inst, from, to)
	if err != nil {
		return nil, err
	}
	points := make([]HistoryPoint, len(values))
	for i := range values {
		points[i] = HistoryPoint{Date: dates[i], Value: values[i]}
	}
	return points, nil
}

// PriceOf returns the current tradable price for one instrument.
func (e *Engine) PriceOf(ctx context.Context, id, currency string) (float64, error) {
	q, err := e.Quote(ctx, id, currency)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// Rate returns the conversion rate from one currency into another: the
// current price of one unit of from quoted in to. Converting multiplies
// by it. Same-currency rates are 1.
func (e *Engine) Rate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}
	q, err := e.quote(ctx, Instrument{ID: from, Kind: KindForex, Section: SectionForex, Currency: to, Counter: from})
	if err != nil {
		return 0, err
	}
	if q.Price <= 0 {
		return 0, fmt.Errorf("pricing: no usable %s/%s rate", from, to)
	}
	return q.Price, nil
}

func (e *Engine) quote(ctx context.Context, inst Instrument) (Quote, error) {
	_, values, err := e.priceSeries(ctx, inst, "", "")
	if err != nil {
		return Quote{}, err
	}
	if len(values) == 0 {
		return Quote{}, fmt.Errorf("%w: %s has no observations", ErrInstrumentNotFound, inst.ID)
	}

	price := values[len(values)-1]
	prev := price
	if len(values) > 1 {
		prev = values[len(values)-2]
	}
	change := price - prev
	pct := 0.0
	if prev != 0 {
		pct = change / prev * 100
	}

	start := len(values) - sparklineLen
	if start < 0 {
		start = 0
	}
	spark := make([]float64, len(values)-start)
	copy(spark, values[start:])

	return Quote{
		ID:            inst.ID,
		Section:       inst.Section,
		Currency:      inst.Currency,
		Price:         price,
		PreviousClose: prev,
		Change:        change,
		ChangePercent: pct,
		Sparkline:     spark,
	}, nil
}

// priceSeries fetches the raw series behind inst and derives its price
// history as parallel date and value slices.
func (e *Engine) priceSeries(ctx context.Context, inst Instrument, from, to string) ([]string, []float64, error) {
	req := marketdata.SeriesRequest{Currency: inst.Currency, From: from, To: to}
	switch inst.Kind {
	case KindFixed:
		req.Kind = inst.fixed.source
		req.Subtype = inst.fixed.subtype
	case KindCommodity:
		req.Kind = marketdata.KindOHLCV
		req.Subtype = inst.Asset
	case KindForex:
		req.Kind = marketdata.KindOHLCV
		req.Subtype = inst.Counter
	default:
		return nil, nil, fmt.Errorf("pricing: unhandled instrument kind %d", inst.Kind)
	}

	series, err := e.provider.Series(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	var values []float64
	if inst.Kind == KindFixed {
		values = inst.fixed.derive(series)
	} else {
		values = series.Closes()
	}
	return series.Dates(), values, nil
}
