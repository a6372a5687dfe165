package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"simtrade/internal/ledger"
	"simtrade/internal/ledger/ledgertest"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

// fixture: player 1 with a USD account (id 1, cash 10000) and an EUR
// account (id 2, cash 500). Every known instrument prices at *price.
func newFixture(t *testing.T, cooldown time.Duration) (*ledger.Engine, *ledgertest.Store, *float64) {
	t.Helper()
	store := ledgertest.New()
	ctx := context.Background()
	require.NoError(t, store.CreatePlayer(ctx, &ledger.Player{ID: 1, Name: "ada"}))
	require.NoError(t, store.CreateAccount(ctx, &ledger.Account{ID: 1, PlayerID: 1, Currency: "USD", Cash: dec("10000")}))
	require.NoError(t, store.CreateAccount(ctx, &ledger.Account{ID: 2, PlayerID: 1, Currency: "EUR", Cash: dec("500")}))

	price := 100.0
	priceFn := func(ctx context.Context, instrumentID, currency string) (float64, error) {
		if instrumentID == "GHOST" {
			return 0, ledger.ErrUnknownInstrument
		}
		return price, nil
	}
	engine := ledger.NewEngine(store, priceFn, cooldown, zap.NewNop())
	return engine, store, &price
}

func trade(e *ledger.Engine, side ledger.Side, qty string) (*ledger.TradeReceipt, error) {
	return e.Trade(context.Background(), ledger.TradeRequest{
		PlayerID:     1,
		AccountID:    1,
		InstrumentID: "GOLD",
		Currency:     "USD",
		Side:         side,
		Quantity:     dec(qty),
	})
}

func TestBuyCreatesPosition(t *testing.T) {
	engine, store, _ := newFixture(t, 0)

	receipt, err := trade(engine, ledger.SideBuy, "10")
	require.NoError(t, err)

	assertDec(t, "100", receipt.Price)
	assertDec(t, "1000", receipt.Total)
	assertDec(t, "9000", receipt.Cash)
	assert.NotEmpty(t, receipt.TradeID)

	ctx := context.Background()
	account, err := store.Account(ctx, 1)
	require.NoError(t, err)
	assertDec(t, "9000", account.Cash)

	holdings, err := store.HoldingsByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "GOLD", holdings[0].InstrumentID)
	assertDec(t, "10", holdings[0].Quantity)
	assertDec(t, "100", holdings[0].AvgCost)

	trades, err := store.TradesByAccount(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assertDec(t, "9000", trades[0].CashAfter)

	player, err := store.Player(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, player.LastTradeAt)
	assert.NotNil(t, player.LastActiveAt)
}

func TestBuyAveragesCostAcrossFills(t *testing.T) {
	engine, store, price := newFixture(t, 0)

	_, err := trade(engine, ledger.SideBuy, "10")
	require.NoError(t, err)

	*price = 200
	_, err = trade(engine, ledger.SideBuy, "10")
	require.NoError(t, err)

	holdings, err := store.HoldingsByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assertDec(t, "20", holdings[0].Quantity)
	assertDec(t, "150", holdings[0].AvgCost)

	account, err := store.Account(context.Background(), 1)
	require.NoError(t, err)
	assertDec(t, "7000", account.Cash)
}

func TestBuyInsufficientFunds(t *testing.T) {
	engine, store, _ := newFixture(t, 0)

	_, err := trade(engine, ledger.SideBuy, "200") // 20000 > 10000
	require.Error(t, err)

	rej, ok := ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectInsufficientFunds, rej.Code)
	assertDec(t, "10000", rej.Available)
	assertDec(t, "20000", rej.Required)

	account, err := store.Account(context.Background(), 1)
	require.NoError(t, err)
	assertDec(t, "10000", account.Cash)
	assert.Empty(t, store.Trades())
}

func TestSellInsufficientHoldings(t *testing.T) {
	engine, store, _ := newFixture(t, 0)

	_, err := trade(engine, ledger.SideSell, "1")
	rej, ok := ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectInsufficientHoldings, rej.Code)
	assertDec(t, "0", rej.Available)

	_, err = trade(engine, ledger.SideBuy, "10")
	require.NoError(t, err)

	_, err = trade(engine, ledger.SideSell, "15")
	rej, ok = ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectInsufficientHoldings, rej.Code)
	assertDec(t, "10", rej.Available)
	assertDec(t, "15", rej.Required)

	// the failed sell left the position alone
	holdings, err := store.HoldingsByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assertDec(t, "10", holdings[0].Quantity)
}

func TestSellKeepsAvgCost(t *testing.T) {
	engine, store, price := newFixture(t, 0)

	_, err := trade(engine, ledger.SideBuy, "10")
	require.NoError(t, err)

	*price = 150
	receipt, err := trade(engine, ledger.SideSell, "4")
	require.NoError(t, err)
	assertDec(t, "600", receipt.Total)
	assertDec(t, "9600", receipt.Cash) // 10000 - 1000 + 600

	holdings, err := store.HoldingsByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assertDec(t, "6", holdings[0].Quantity)
	assertDec(t, "100", holdings[0].AvgCost)
}

func TestSellToDustDeletesHolding(t *testing.T) {
	engine, store, _ := newFixture(t, 0)
	ctx := context.Background()

	_, err := trade(engine, ledger.SideBuy, "10")
	require.NoError(t, err)

	_, err = trade(engine, ledger.SideSell, "10")
	require.NoError(t, err)

	holdings, err := store.HoldingsByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	account, err := store.Account(ctx, 1)
	require.NoError(t, err)
	assertDec(t, "10000", account.Cash)

	// residue below the dust threshold is swept too
	_, err = trade(engine, ledger.SideBuy, "10")
	require.NoError(t, err)
	_, err = trade(engine, ledger.SideSell, "9.9999999995")
	require.NoError(t, err)

	holdings, err = store.HoldingsByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestTradeRejectsInvalidQuantity(t *testing.T) {
	engine, _, _ := newFixture(t, 0)

	for _, qty := range []string{"0", "-3"} {
		_, err := trade(engine, ledger.SideBuy, qty)
		rej, ok := ledger.AsRejection(err)
		require.True(t, ok, "qty %s", qty)
		assert.Equal(t, ledger.RejectInvalidQuantity, rej.Code)
	}
}

func TestTradeRejectsUnknownInstrument(t *testing.T) {
	engine, _, _ := newFixture(t, 0)

	_, err := engine.Trade(context.Background(), ledger.TradeRequest{
		PlayerID:     1,
		AccountID:    1,
		InstrumentID: "GHOST",
		Currency:     "USD",
		Side:         ledger.SideBuy,
		Quantity:     dec("1"),
	})
	rej, ok := ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectNotFound, rej.Code)
}

func TestTradeRejectsForeignAndMismatchedAccounts(t *testing.T) {
	engine, store, _ := newFixture(t, 0)
	ctx := context.Background()
	require.NoError(t, store.CreatePlayer(ctx, &ledger.Player{ID: 2, Name: "grace"}))

	// account 1 belongs to player 1
	_, err := engine.Trade(ctx, ledger.TradeRequest{
		PlayerID: 2, AccountID: 1, InstrumentID: "GOLD", Currency: "USD",
		Side: ledger.SideBuy, Quantity: dec("1"),
	})
	rej, ok := ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectNotFound, rej.Code)

	// account 1 holds USD, not EUR
	_, err = engine.Trade(ctx, ledger.TradeRequest{
		PlayerID: 1, AccountID: 1, InstrumentID: "GOLD", Currency: "EUR",
		Side: ledger.SideBuy, Quantity: dec("1"),
	})
	rej, ok = ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectNotFound, rej.Code)
}

func TestTradeCooldown(t *testing.T) {
	engine, store, _ := newFixture(t, 2*time.Second)

	_, err := trade(engine, ledger.SideBuy, "1")
	require.NoError(t, err)

	_, err = trade(engine, ledger.SideBuy, "1")
	rej, ok := ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectRateLimited, rej.Code)
	assert.Greater(t, rej.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rej.RetryAfter, 2*time.Second)

	assert.Len(t, store.Trades(), 1)
}

func TestTradeCooldownUnderConcurrency(t *testing.T) {
	engine, store, _ := newFixture(t, 2*time.Second)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = trade(engine, ledger.SideBuy, "1")
		}(i)
	}
	wg.Wait()

	var applied, limited int
	for _, err := range results {
		if err == nil {
			applied++
			continue
		}
		rej, ok := ledger.AsRejection(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, ledger.RejectRateLimited, rej.Code)
		limited++
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, limited)
	assert.Len(t, store.Trades(), 1)

	account, err := store.Account(context.Background(), 1)
	require.NoError(t, err)
	assertDec(t, "9900", account.Cash)
}

func TestTradeRollsBackOnRecordFailure(t *testing.T) {
	engine, store, _ := newFixture(t, 0)
	store.FailAppendTrade = errors.New("disk on fire")

	_, err := trade(engine, ledger.SideBuy, "10")
	require.Error(t, err)
	_, isRejection := ledger.AsRejection(err)
	assert.False(t, isRejection)

	ctx := context.Background()
	account, err := store.Account(ctx, 1)
	require.NoError(t, err)
	assertDec(t, "10000", account.Cash)

	holdings, err := store.HoldingsByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func convert(e *ledger.Engine, from, to uint, amount, rate string) (*ledger.ConvertReceipt, error) {
	return e.Convert(context.Background(), ledger.ConvertRequest{
		PlayerID:      1,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        dec(amount),
	}, dec(rate))
}

func TestConvertMovesCashAtRate(t *testing.T) {
	engine, store, _ := newFixture(t, 0)

	receipt, err := convert(engine, 1, 2, "1100", "0.9")
	require.NoError(t, err)

	assertDec(t, "8900", receipt.FromCash)
	assertDec(t, "1490", receipt.ToCash) // 500 + 1100*0.9
	assertDec(t, "990", receipt.AmountTo)
	assert.Equal(t, "USD", receipt.FromCurrency)
	assert.Equal(t, "EUR", receipt.ToCurrency)

	ctx := context.Background()
	from, err := store.Account(ctx, 1)
	require.NoError(t, err)
	assertDec(t, "8900", from.Cash)
	to, err := store.Account(ctx, 2)
	require.NoError(t, err)
	assertDec(t, "1490", to.Cash)

	require.Len(t, store.Conversions(), 1)

	// conversions mark activity but never arm the trade cooldown
	player, err := store.Player(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, player.LastActiveAt)
	assert.Nil(t, player.LastTradeAt)
}

func TestConvertRejections(t *testing.T) {
	engine, store, _ := newFixture(t, 0)
	ctx := context.Background()

	_, err := convert(engine, 1, 2, "0", "0.9")
	rej, ok := ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectInvalidQuantity, rej.Code)

	_, err = convert(engine, 1, 1, "10", "0.9")
	rej, ok = ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectSameCurrency, rej.Code)

	// another USD account forced in to exercise the currency check
	require.NoError(t, store.CreateAccount(ctx, &ledger.Account{ID: 7, PlayerID: 1, Currency: "USD", Cash: dec("1")}))
	_, err = convert(engine, 1, 7, "10", "1")
	rej, ok = ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectSameCurrency, rej.Code)

	_, err = convert(engine, 1, 2, "99999", "0.9")
	rej, ok = ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectInsufficientFunds, rej.Code)

	require.NoError(t, store.CreatePlayer(ctx, &ledger.Player{ID: 2, Name: "grace"}))
	require.NoError(t, store.CreateAccount(ctx, &ledger.Account{ID: 8, PlayerID: 2, Currency: "JPY", Cash: dec("0")}))
	_, err = convert(engine, 1, 8, "10", "150")
	rej, ok = ledger.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectNotFound, rej.Code)

	_, err = convert(engine, 1, 2, "10", "0")
	require.Error(t, err)
	_, isRejection := ledger.AsRejection(err)
	assert.False(t, isRejection)
}

func TestConvertAtomicUnderRecordFailure(t *testing.T) {
	engine, store, _ := newFixture(t, 0)
	store.FailAppendConversion = errors.New("disk on fire")

	_, err := convert(engine, 1, 2, "1000", "0.9")
	require.Error(t, err)

	ctx := context.Background()
	from, err := store.Account(ctx, 1)
	require.NoError(t, err)
	assertDec(t, "10000", from.Cash)
	to, err := store.Account(ctx, 2)
	require.NoError(t, err)
	assertDec(t, "500", to.Cash)
	assert.Empty(t, store.Conversions())
}
