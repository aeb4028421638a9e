// Package stream broadcasts trade events over websocket connections. It
// subscribes to an engine.Engine's trade notifier and fans each trade out
// to every connected client as JSON, the concrete form of spec.md §6's
// subscribe_trades. Grounded on VictorVVedtion-perp-dex's api/websocket
// hub/client split, generalized from a multi-channel subscription hub down
// to vellum's single trade-event channel, and on
// original_source/api/websocket_api.py for the "push every trade to every
// subscriber" semantics.
package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"vellum/internal/common"
	"vellum/internal/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TradeEvent is the JSON payload pushed to every connected client.
type TradeEvent struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Timestamp     string `json:"timestamp"`
}

func toEvent(t common.Trade) TradeEvent {
	return TradeEvent{
		Symbol:        t.Symbol,
		Price:         t.Price.String(),
		Quantity:      t.Quantity.String(),
		AggressorSide: t.AggressorSide.String(),
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
		Timestamp:     t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// Hub tracks connected clients and fans trades out to all of them.
type Hub struct {
	clientsMu sync.Mutex
	clients   map[*client]struct{}
}

// NewHub constructs an empty hub. Call Subscribe(eng) to wire it to an
// engine's trade notifier.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Subscribe registers the hub as a trade listener on eng. Listener panics
// are already recovered by the engine (see internal/engine/notifier.go);
// Subscribe itself never blocks matching since writes to a slow client are
// best-effort and dropped if its send buffer is full.
func (h *Hub) Subscribe(eng *engine.Engine) {
	eng.SubscribeTrades(func(t common.Trade) {
		h.broadcast(toEvent(t))
	})
}

func (h *Hub) broadcast(event TradeEvent) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			log.Warn().Str("client", c.id).Msg("dropping trade event, client send buffer full")
		}
	}
}

// ServeHTTP upgrades the connection and registers it with the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:   conn.RemoteAddr().String(),
		conn: conn,
		send: make(chan TradeEvent, sendBufferSize),
	}
	h.register(c)
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan TradeEvent
}

// readPump only exists to notice disconnects and keepalive pongs; vellum's
// stream is push-only, clients never send trade subscriptions over it.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
