package engine

import (
	"github.com/rs/zerolog/log"

	"vellum/internal/common"
)

// emitTrade updates last-trade-price then calls every listener synchronously
// in registration order, per spec section 4.4. It runs before the caller
// decrements any residual quantity, so a listener observing this trade sees
// a consistent last price. A listener panic is recovered and logged; it
// never reaches the matching loop.
func (e *Engine) emitTrade(trade common.Trade) {
	e.setLastTradePrice(trade.Symbol, trade.Price)

	e.listenersMu.Lock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.Unlock()

	for _, l := range listeners {
		e.callListener(l, trade)
	}
}

func (e *Engine) callListener(l Listener, trade common.Trade) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Err(ErrListenerFailure).
				Interface("panic", r).
				Str("tradeID", trade.ID).
				Msg("trade listener panicked")
		}
	}()
	l(trade)
}
