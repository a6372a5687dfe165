package marketdata

import (
	"context"

	"simtrade/pkg/simfeed"
)

// LiveProvider serves data straight from the running simulation's API.
// Any transport or upstream failure surfaces as ErrSourceUnavailable.
type LiveProvider struct {
	client *simfeed.Client
}

func NewLiveProvider(client *simfeed.Client) *LiveProvider {
	return &LiveProvider{client: client}
}

func (p *LiveProvider) Series(ctx context.Context, req SeriesRequest) (Series, error) {
	payload, err := p.client.Series(ctx, string(req.Kind), req.Currency, req.Subtype, req.From, req.To)
	if err != nil {
		return Series{}, sourceUnavailable(err)
	}
	return seriesFromPayload(req, payload), nil
}

func (p *LiveProvider) Assets(ctx context.Context, currency string) ([]string, error) {
	assets, err := p.client.Assets(ctx, currency)
	if err != nil {
		return nil, sourceUnavailable(err)
	}
	return assets, nil
}

func (p *LiveProvider) Currencies(ctx context.Context) ([]string, error) {
	currencies, err := p.client.Currencies(ctx)
	if err != nil {
		return nil, sourceUnavailable(err)
	}
	return currencies, nil
}

func (p *LiveProvider) Status(ctx context.Context) (SimStatus, error) {
	status, err := p.client.Status(ctx)
	if err != nil {
		return SimStatus{}, sourceUnavailable(err)
	}
	return SimStatus{CurrentDate: status.CurrentDate}, nil
}

func seriesFromPayload(req SeriesRequest, payload simfeed.SeriesPayload) Series {
	s := Series{Kind: req.Kind, Currency: req.Currency, Subtype: req.Subtype}
	switch req.Kind {
	case KindOHLCV:
		s.OHLCV = make([]OHLCVPoint, 0, len(payload.Points))
		for _, p := range payload.Points {
			s.OHLCV = append(s.OHLCV, OHLCVPoint{
				Date:   p.Date,
				Open:   p.Open,
				High:   p.High,
				Low:    p.Low,
				Close:  p.Close,
				Volume: p.Volume,
			})
		}
	case KindBalance:
		s.Balance = make([]BalancePoint, 0, len(payload.Points))
		for _, p := range payload.Points {
			s.Balance = append(s.Balance, BalancePoint{
				Date:        p.Date,
				Assets:      p.Assets,
				Liabilities: p.Liabilities,
				Equity:      p.Equity,
			})
		}
	case KindTimeSeries:
		s.Values = make([]ValuePoint, 0, len(payload.Points))
		for _, p := range payload.Points {
			s.Values = append(s.Values, ValuePoint{Date: p.Date, Value: p.Value})
		}
	}
	return s
}
