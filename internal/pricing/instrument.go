package pricing

import "simtrade/internal/marketdata"

// Kind tags how an instrument's price series is sourced and derived.
type Kind int

const (
	// KindFixed is a built-in instrument derived from the market index
	// or the central bank balance sheet.
	KindFixed Kind = iota
	// KindCommodity prices a simulation asset by its daily closes.
	KindCommodity
	// KindForex prices one unit of another supported currency.
	KindForex
)

const (
	SectionIndices     = "indices"
	SectionFunds       = "funds"
	SectionCommodities = "commodities"
	SectionForex       = "forex"
)

// Instrument is a fully resolved tradable. API instrument IDs resolve to
// exactly one of these at the engine boundary; past that point only the
// tag is consulted, never the ID text.
type Instrument struct {
	ID       string
	Kind     Kind
	Section  string
	Currency string // pricing currency

	// Asset is the simulation asset code for commodities; Counter is the
	// quoted currency for forex pairs.
	Asset   string
	Counter string

	// set by Resolve/Instruments for KindFixed only
	fixed *fixedInstrument
}

type fixedInstrument struct {
	id      string
	section string
	source  marketdata.Kind
	subtype string
	derive  func(marketdata.Series) []float64
}

// Built-in instruments and the raw series they derive from. The market
// index trades at its raw close, the central bank fund at equity scaled
// to millions, the smoothed fund at a moving average of that, and the
// economy index at closes rebased to 1000.
var fixedInstruments = []fixedInstrument{
	{id: "MARKET", section: SectionIndices, source: marketdata.KindOHLCV, subtype: "market", derive: deriveCloses},
	{id: "ECONIDX", section: SectionIndices, source: marketdata.KindOHLCV, subtype: "market", derive: deriveNormalized},
	{id: "CBANK", section: SectionFunds, source: marketdata.KindBalance, subtype: "central_bank", derive: deriveScaledEquity},
	{id: "CBSMA", section: SectionFunds, source: marketdata.KindBalance, subtype: "central_bank", derive: deriveSmoothedEquity},
}

// reservedSubtypes keeps series already claimed by built-ins out of the
// commodity listing.
var reservedSubtypes = map[string]struct{}{
	"market":       {},
	"central_bank": {},
}
