package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookups for rows that do not exist.
var ErrNotFound = errors.New("ledger: not found")

// ErrUnknownInstrument marks a price lookup for an ID the pricing side
// cannot resolve. The engine turns it into a not_found rejection.
var ErrUnknownInstrument = errors.New("ledger: unknown instrument")

// RejectCode enumerates the reasons a trade or conversion is refused.
type RejectCode string

const (
	RejectNotFound             RejectCode = "not_found"
	RejectInvalidQuantity      RejectCode = "invalid_quantity"
	RejectInsufficientFunds    RejectCode = "insufficient_funds"
	RejectInsufficientHoldings RejectCode = "insufficient_holdings"
	RejectRateLimited          RejectCode = "rate_limited"
	RejectSameCurrency         RejectCode = "same_currency"
)

// Rejection is a structured refusal. It satisfies error so it can travel
// out of the store transaction, rolling it back on the way.
type Rejection struct {
	Code       RejectCode
	Reason     string
	Available  decimal.Decimal
	Required   decimal.Decimal
	RetryAfter time.Duration
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

// AsRejection unwraps err into a Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

func reject(code RejectCode, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}
