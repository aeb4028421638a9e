package engine

import (
	"github.com/shopspring/decimal"

	"vellum/internal/common"
)

// runConditionalScan implements spec section 4.3: snapshot the conditional
// queues, fire every order whose trigger condition now holds against the
// symbol's last trade price, and repeat while a pass triggered anything
// (a triggered order can itself trade and move last price further).
// Caller must already hold s.mu.
func (e *Engine) runConditionalScan(s *symbolState, symbol string) {
	for {
		lastPrice, ok := e.LastTradePrice(symbol)
		if !ok {
			return
		}

		triggeredAny := false
		for _, o := range s.book.StopOrders() {
			if !stopTriggers(o, lastPrice) {
				continue
			}
			if !s.book.RemoveConditional(o.ID) {
				continue // already consumed by an earlier pass's cascade
			}
			derived := e.synthesizeTriggered(o)
			e.process(s, &derived)
			triggeredAny = true
		}
		for _, o := range s.book.TakeProfitOrders() {
			if !takeProfitTriggers(o, lastPrice) {
				continue
			}
			if !s.book.RemoveConditional(o.ID) {
				continue
			}
			derived := e.synthesizeTriggered(o)
			e.process(s, &derived)
			triggeredAny = true
		}

		if !triggeredAny {
			return
		}
	}
}

func stopTriggers(o *common.Order, lastPrice decimal.Decimal) bool {
	if o.Side == common.Buy {
		return lastPrice.GreaterThanOrEqual(o.StopPrice)
	}
	return lastPrice.LessThanOrEqual(o.StopPrice)
}

func takeProfitTriggers(o *common.Order, lastPrice decimal.Decimal) bool {
	if o.Side == common.Buy {
		return lastPrice.LessThanOrEqual(o.TakeProfitPrice)
	}
	return lastPrice.GreaterThanOrEqual(o.TakeProfitPrice)
}

// synthesizeTriggered converts a triggered conditional order into the
// concrete order the matching core re-enters, per spec section 4.3:
// STOP_LIMIT -> LIMIT at the original price, STOP_LOSS -> MARKET,
// TAKE_PROFIT -> LIMIT at price (or take_profit_price if price is absent).
func (e *Engine) synthesizeTriggered(o *common.Order) common.Order {
	derived := common.Order{
		ID:          o.ID + "-triggered",
		Symbol:      o.Symbol,
		Side:        o.Side,
		Quantity:    o.Quantity,
		OriginalQty: o.Quantity,
		Owner:       o.Owner,
		Timestamp:   e.now(),
	}
	derived = derived.WithSeq(e.nextSeq())

	switch o.Type {
	case common.StopLoss:
		derived.Type = common.Market
	case common.StopLimit:
		derived.Type = common.Limit
		derived.Price = o.Price
	case common.TakeProfit:
		derived.Type = common.Limit
		if o.HasPrice() {
			derived.Price = o.Price
		} else {
			derived.Price = o.TakeProfitPrice
		}
	}
	return derived
}
