package pricing

import "simtrade/internal/marketdata"

const (
	equityScale  = 1e6 // balance sheet figures trade in millions
	smaWindow    = 190
	indexBase    = 1000
	sparklineLen = 50
)

func deriveCloses(s marketdata.Series) []float64 {
	return s.Closes()
}

func deriveScaledEquity(s marketdata.Series) []float64 {
	return scaleDown(s.Equities(), equityScale)
}

func deriveSmoothedEquity(s marketdata.Series) []float64 {
	return movingAverage(scaleDown(s.Equities(), equityScale), smaWindow)
}

func deriveNormalized(s marketdata.Series) []float64 {
	return normalize(s.Closes(), indexBase)
}

func scaleDown(values []float64, divisor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / divisor
	}
	return out
}

// movingAverage computes a simple moving average over window using a
// running sum. Positions before the window fills keep the raw value, so
// the output always has the input's length.
func movingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = v
		}
	}
	return out
}

// normalize rebases values so the first observation equals base. A zero
// first observation cannot anchor a rebase; the values pass through
// unchanged.
func normalize(values []float64, base float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if len(values) == 0 || values[0] == 0 {
		return out
	}
	first := values[0]
	for i, v := range values {
		out[i] = v / first * base
	}
	return out
}
