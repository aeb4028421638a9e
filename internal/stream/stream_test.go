package stream_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"vellum/internal/common"
	"vellum/internal/engine"
	"vellum/internal/stream"
)

func TestHub_BroadcastsTrades(t *testing.T) {
	eng := engine.New(common.FeeConfig{FeeCurrency: "USDT"})
	hub := stream.NewHub()
	hub.Subscribe(eng)

	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	// Drive a trade through the real engine surface: a resting sell, then a
	// crossing buy, rather than reaching into engine internals.
	_, err = eng.Submit(common.Order{
		ID: "s1", Symbol: "BTC-USDT", Type: common.Limit, Side: common.Sell,
		Price: decimal.RequireFromString("50000"), Quantity: decimal.RequireFromString("1"),
	})
	require.NoError(t, err)
	_, err = eng.Submit(common.Order{
		ID: "b1", Symbol: "BTC-USDT", Type: common.Limit, Side: common.Buy,
		Price: decimal.RequireFromString("50000"), Quantity: decimal.RequireFromString("1"),
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event stream.TradeEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "BTC-USDT", event.Symbol)
	require.Equal(t, "50000", event.Price)
}
