package persistence_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/book"
	"vellum/internal/common"
	"vellum/internal/persistence"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	original := book.New("BTC-USDT")
	now := time.Now()

	original.Add(&common.Order{ID: "b1", Symbol: "BTC-USDT", Type: common.Limit, Side: common.Buy, Price: d("100"), Quantity: d("1"), Timestamp: now})
	original.Add(&common.Order{ID: "b2", Symbol: "BTC-USDT", Type: common.Limit, Side: common.Buy, Price: d("100"), Quantity: d("2"), Timestamp: now})
	original.Add(&common.Order{ID: "s1", Symbol: "BTC-USDT", Type: common.Limit, Side: common.Sell, Price: d("101"), Quantity: d("3"), Timestamp: now})
	original.AddConditional(&common.Order{ID: "stop1", Symbol: "BTC-USDT", Type: common.StopLoss, Side: common.Sell, Quantity: d("1"), StopPrice: d("90"), Timestamp: now})

	snap := persistence.Build(original)
	restored, err := persistence.Restore("BTC-USDT", snap)
	require.NoError(t, err)

	price, head, ok := restored.Best(common.Buy)
	require.True(t, ok)
	assert.True(t, price.Equal(d("100")))
	assert.Equal(t, "b1", head.ID, "FIFO order must survive a round trip")

	_, askHead, ok := restored.Best(common.Sell)
	require.True(t, ok)
	assert.Equal(t, "s1", askHead.ID)

	stops := restored.StopOrders()
	require.Len(t, stops, 1)
	assert.Equal(t, "stop1", stops[0].ID)
}

func TestRestore_CorruptedSnapshot(t *testing.T) {
	snap := persistence.Snapshot{
		Symbol: "BTC-USDT",
		Bids: []persistence.PriceLevelRecord{{
			Price: "100",
			Orders: []persistence.OrderRecord{{
				OrderID:  "b1",
				Symbol:   "BTC-USDT",
				Type:     "LIMIT",
				Side:     "BUY",
				Quantity: "not-a-number",
			}},
		}},
	}

	_, err := persistence.Restore("BTC-USDT", snap)
	assert.ErrorIs(t, err, persistence.ErrCorruptedSnapshot)
}
