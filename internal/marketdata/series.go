package marketdata

import "strings"

// Kind selects which archive/feed table a series request targets.
type Kind string

const (
	KindOHLCV      Kind = "ohlcv"
	KindBalance    Kind = "balance"
	KindTimeSeries Kind = "timeseries"
)

// OHLCVPoint is one daily candle. Date labels are ISO yyyy-mm-dd so their
// lexicographic order matches chronological order.
type OHLCVPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// BalancePoint is one daily balance-sheet snapshot.
type BalancePoint struct {
	Date        string  `json:"date"`
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
	Equity      float64 `json:"equity"`
}

// ValuePoint is one daily observation of a scalar indicator.
type ValuePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// SeriesRequest identifies one series. From/To are optional inclusive date
// bounds; an empty To means "up to the current simulation date" in replay
// mode and "latest available" in live mode.
type SeriesRequest struct {
	Kind     Kind
	Currency string
	Subtype  string
	From     string
	To       string
}

// Key is the canonical cache key for the request.
func (r SeriesRequest) Key() string {
	return strings.Join([]string{string(r.Kind), r.Currency, r.Subtype, r.From, r.To}, "|")
}

// Series holds the points for exactly one of the three kinds; the other
// two slices stay nil. Points are ordered by date ascending with unique
// dates.
type Series struct {
	Kind     Kind           `json:"kind"`
	Currency string         `json:"currency"`
	Subtype  string         `json:"subtype"`
	OHLCV    []OHLCVPoint   `json:"ohlcv,omitempty"`
	Balance  []BalancePoint `json:"balance,omitempty"`
	Values   []ValuePoint   `json:"values,omitempty"`
}

// Len reports the number of points regardless of kind.
func (s Series) Len() int {
	switch s.Kind {
	case KindOHLCV:
		return len(s.OHLCV)
	case KindBalance:
		return len(s.Balance)
	case KindTimeSeries:
		return len(s.Values)
	}
	return 0
}

// Empty reports whether the series carries no points.
func (s Series) Empty() bool { return s.Len() == 0 }

// Dates returns the date labels in order.
func (s Series) Dates() []string {
	out := make([]string, 0, s.Len())
	switch s.Kind {
	case KindOHLCV:
		for _, p := range s.OHLCV {
			out = append(out, p.Date)
		}
	case KindBalance:
		for _, p := range s.Balance {
			out = append(out, p.Date)
		}
	case KindTimeSeries:
		for _, p := range s.Values {
			out = append(out, p.Date)
		}
	}
	return out
}

// Closes returns the close column of an OHLCV series.
func (s Series) Closes() []float64 {
	out := make([]float64, 0, len(s.OHLCV))
	for _, p := range s.OHLCV {
		out = append(out, p.Close)
	}
	return out
}

// Equities returns the equity column of a balance series.
func (s Series) Equities() []float64 {
	out := make([]float64, 0, len(s.Balance))
	for _, p := range s.Balance {
		out = append(out, p.Equity)
	}
	return out
}

// SimStatus is the upstream simulation's own view of where it stands.
type SimStatus struct {
	CurrentDate string `json:"currentDate"`
}
