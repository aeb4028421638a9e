package book_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/book"
	"vellum/internal/common"
)

// --- Setup & helpers ---------------------------------------------------

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// restingOrder builds an already-resting LIMIT order at price/qty, the way
// the matching core would before calling book.Add.
func restingOrder(id string, side common.Side, price, qty string) *common.Order {
	return &common.Order{
		ID:          id,
		Symbol:      "BTC-USDT",
		Type:        common.Limit,
		Side:        side,
		Price:       d(price),
		Quantity:    d(qty),
		OriginalQty: d(qty),
	}
}

// --- Tests ---------------------------------------------------------------

func TestBook_AddAndBest(t *testing.T) {
	b := book.New("BTC-USDT")

	b.Add(restingOrder("b1", common.Buy, "99", "1"))
	b.Add(restingOrder("b2", common.Buy, "100", "1"))
	b.Add(restingOrder("s1", common.Sell, "101", "1"))
	b.Add(restingOrder("s2", common.Sell, "102", "1"))

	price, head, ok := b.Best(common.Buy)
	require.True(t, ok)
	assert.True(t, price.Equal(d("100")))
	assert.Equal(t, "b2", head.ID)

	price, head, ok = b.Best(common.Sell)
	require.True(t, ok)
	assert.True(t, price.Equal(d("101")))
	assert.Equal(t, "s1", head.ID)
}

func TestBook_FIFOWithinLevel(t *testing.T) {
	b := book.New("BTC-USDT")

	b.Add(restingOrder("o1", common.Buy, "100", "1"))
	b.Add(restingOrder("o2", common.Buy, "100", "1"))

	_, head, ok := b.Best(common.Buy)
	require.True(t, ok)
	assert.Equal(t, "o1", head.ID, "earliest arrival must match first")
}

func TestBook_RemoveDropsEmptyLevel(t *testing.T) {
	b := book.New("BTC-USDT")
	b.Add(restingOrder("o1", common.Buy, "100", "1"))

	removed := b.Remove(common.Buy, d("100"), "o1")
	assert.True(t, removed)

	_, _, ok := b.Best(common.Buy)
	assert.False(t, ok, "level must be pruned once its queue is empty")
}

func TestBook_RemoveUnknownOrderIsNotAnError(t *testing.T) {
	b := book.New("BTC-USDT")
	b.Add(restingOrder("o1", common.Buy, "100", "1"))

	assert.False(t, b.Remove(common.Buy, d("100"), "nonexistent"))
	assert.False(t, b.Remove(common.Buy, d("50"), "o1"))
}

func TestBook_Depth(t *testing.T) {
	b := book.New("BTC-USDT")
	b.Add(restingOrder("b1", common.Buy, "100", "1"))
	b.Add(restingOrder("b2", common.Buy, "100", "2"))
	b.Add(restingOrder("b3", common.Buy, "99", "5"))
	b.Add(restingOrder("s1", common.Sell, "101", "3"))

	bids, asks := b.Depth(10)
	require.Len(t, bids, 2)
	assert.True(t, bids[0].Price.Equal(d("100")), "bids must be sorted descending")
	assert.True(t, bids[0].Quantity.Equal(d("3")))
	assert.True(t, bids[1].Price.Equal(d("99")))

	require.Len(t, asks, 1)
	assert.True(t, asks[0].Price.Equal(d("101")))
}

func TestBook_ConditionalOrdering(t *testing.T) {
	b := book.New("BTC-USDT")

	// SELL-side stops sort descending (trigger as price falls).
	lo := &common.Order{ID: "lo", Type: common.StopLoss, Side: common.Sell, StopPrice: d("48000")}
	hi := &common.Order{ID: "hi", Type: common.StopLoss, Side: common.Sell, StopPrice: d("49000")}
	b.AddConditional(lo)
	b.AddConditional(hi)

	stops := b.StopOrders()
	require.Len(t, stops, 2)
	assert.Equal(t, "hi", stops[0].ID)
	assert.Equal(t, "lo", stops[1].ID)

	assert.True(t, b.RemoveConditional("hi"))
	assert.Len(t, b.StopOrders(), 1)
	assert.False(t, b.RemoveConditional("hi"))
}
