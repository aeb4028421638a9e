package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/common"
	"vellum/internal/engine"
)

const symbol = "BTC-USDT"

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestEngine() *engine.Engine {
	return engine.New(common.FeeConfig{
		MakerRate:   d("0.001"),
		TakerRate:   d("0.002"),
		FeeCurrency: "USDT",
	})
}

func limit(id string, side common.Side, price, qty string) common.Order {
	return common.Order{
		ID:       id,
		Symbol:   symbol,
		Type:     common.Limit,
		Side:     side,
		Price:    d(price),
		Quantity: d(qty),
		Owner:    id + "-owner",
	}
}

// 1. Simple match.
func TestSubmit_SimpleMatch(t *testing.T) {
	e := newTestEngine()

	trades, err := e.Submit(limit("sell1", common.Sell, "50000", "1"))
	require.NoError(t, err)
	assert.Empty(t, trades)

	trades, err = e.Submit(limit("buy1", common.Buy, "50000", "1"))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.True(t, tr.Price.Equal(d("50000")))
	assert.True(t, tr.Quantity.Equal(d("1")))
	assert.Equal(t, common.Buy, tr.AggressorSide)
	assert.Equal(t, "sell1", tr.MakerOrderID)
	assert.Equal(t, "buy1", tr.TakerOrderID)

	bids, asks := e.Depth(symbol, 10)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

// 2. IOC partial.
func TestSubmit_IOCPartial(t *testing.T) {
	e := newTestEngine()

	_, err := e.Submit(limit("sell1", common.Sell, "50000", "0.5"))
	require.NoError(t, err)

	ioc := limit("buy1", common.Buy, "50000", "1.0")
	ioc.Type = common.IOC
	trades, err := e.Submit(ioc)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(d("0.5")))

	bids, asks := e.Depth(symbol, 10)
	assert.Empty(t, bids, "IOC residual must never rest")
	assert.Empty(t, asks)
}

// 3. FOK unfillable.
func TestSubmit_FOKUnfillable(t *testing.T) {
	e := newTestEngine()

	_, err := e.Submit(limit("sell1", common.Sell, "50000", "0.5"))
	require.NoError(t, err)

	fok := limit("buy1", common.Buy, "50000", "1.0")
	fok.Type = common.FOK
	trades, err := e.Submit(fok)
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, asks := e.Depth(symbol, 10)
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Quantity.Equal(d("0.5")), "the resting sell must be untouched")
}

// FOK law: full feasibility fills exactly the requested quantity.
func TestSubmit_FOKFillsExactly(t *testing.T) {
	e := newTestEngine()
	_, err := e.Submit(limit("sell1", common.Sell, "50000", "0.6"))
	require.NoError(t, err)
	_, err = e.Submit(limit("sell2", common.Sell, "50001", "0.6"))
	require.NoError(t, err)

	fok := limit("buy1", common.Buy, "50001", "1.0")
	fok.Type = common.FOK
	trades, err := e.Submit(fok)
	require.NoError(t, err)

	var total decimal.Decimal
	for _, tr := range trades {
		total = total.Add(tr.Quantity)
	}
	assert.True(t, total.Equal(d("1.0")))
}

// 4. Stop-limit trigger.
func TestSubmit_StopLimitTrigger(t *testing.T) {
	e := newTestEngine()

	stop := common.Order{
		ID:        "stop1",
		Symbol:    symbol,
		Type:      common.StopLimit,
		Side:      common.Sell,
		Quantity:  d("1.0"),
		Price:     d("48900"),
		StopPrice: d("49000"),
	}
	trades, err := e.Submit(stop)
	require.NoError(t, err)
	assert.Empty(t, trades)

	e.UpdateMarketPrice(symbol, d("49000"))
	_, asks := e.Depth(symbol, 10)
	require.Len(t, asks, 1, "triggered order rests as a LIMIT since no bid crosses it yet")
	assert.True(t, asks[0].Price.Equal(d("48900")))

	trades, err = e.Submit(limit("buy1", common.Buy, "48900", "1.0"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("48900")))
	assert.True(t, trades[0].Quantity.Equal(d("1.0")))
}

// 5. Take-profit trigger.
func TestSubmit_TakeProfitTrigger(t *testing.T) {
	e := newTestEngine()

	tp := common.Order{
		ID:              "tp1",
		Symbol:          symbol,
		Type:            common.TakeProfit,
		Side:            common.Sell,
		Quantity:        d("1.0"),
		Price:           d("51000"),
		TakeProfitPrice: d("51000"),
	}
	_, err := e.Submit(tp)
	require.NoError(t, err)

	e.UpdateMarketPrice(symbol, d("51000"))

	trades, err := e.Submit(limit("buy1", common.Buy, "51000", "1.0"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("51000")))
	assert.True(t, trades[0].Quantity.Equal(d("1.0")))
}

// 6. Price-time priority.
func TestSubmit_PriceTimePriority(t *testing.T) {
	e := newTestEngine()

	_, err := e.Submit(limit("o1", common.Buy, "50000", "1"))
	require.NoError(t, err)
	_, err = e.Submit(limit("o2", common.Buy, "50000", "1"))
	require.NoError(t, err)

	trades, err := e.Submit(limit("s1", common.Sell, "50000", "1"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "o1", trades[0].MakerOrderID)

	trades, err = e.Submit(limit("s2", common.Sell, "50000", "1"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "o2", trades[0].MakerOrderID)
}

// Fee check.
func TestSubmit_Fees(t *testing.T) {
	e := newTestEngine()
	_, err := e.Submit(limit("sell1", common.Sell, "50000", "1"))
	require.NoError(t, err)

	trades, err := e.Submit(limit("buy1", common.Buy, "50000", "1"))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	assert.True(t, trades[0].MakerFee.Equal(d("50")))
	assert.True(t, trades[0].TakerFee.Equal(d("100")))
}

// Credit hook: a refusing hook rejects the order without mutating the book.
func TestSubmit_InsufficientFunds(t *testing.T) {
	e := newTestEngine()
	e.SetBalanceHook(func(owner, currency string, required decimal.Decimal) bool {
		return false
	})

	_, err := e.Submit(limit("buy1", common.Buy, "50000", "1"))
	assert.ErrorIs(t, err, engine.ErrInsufficientFunds)

	bids, _ := e.Depth(symbol, 10)
	assert.Empty(t, bids)
}

// Invalid orders are rejected before touching the book.
func TestSubmit_InvalidOrder(t *testing.T) {
	e := newTestEngine()
	_, err := e.Submit(common.Order{Symbol: symbol, Type: common.Limit, Side: common.Buy, Quantity: d("0")})
	assert.ErrorIs(t, err, common.ErrInvalidOrder)
}

// No self-cross: the book never ends up with best_bid >= best_ask.
func TestSubmit_NoCross(t *testing.T) {
	e := newTestEngine()
	_, err := e.Submit(limit("s1", common.Sell, "100", "5"))
	require.NoError(t, err)
	_, err = e.Submit(limit("b1", common.Buy, "105", "2"))
	require.NoError(t, err)

	bids, asks := e.Depth(symbol, 10)
	if len(bids) > 0 && len(asks) > 0 {
		assert.True(t, bids[0].Price.LessThan(asks[0].Price))
	}
}

func TestCancelOrder(t *testing.T) {
	e := newTestEngine()
	_, err := e.Submit(limit("b1", common.Buy, "100", "1"))
	require.NoError(t, err)

	assert.True(t, e.CancelOrder(symbol, common.Buy, d("100"), "b1"))
	bids, _ := e.Depth(symbol, 10)
	assert.Empty(t, bids)

	assert.False(t, e.CancelOrder(symbol, common.Buy, d("100"), "b1"))
}
