package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"vellum/internal/common"
)

// Submit admits order, matches it against the book, and returns every trade
// it produced. See spec section 4.2 for the full step sequence.
func (e *Engine) Submit(order common.Order) ([]common.Trade, error) {
	order.Normalize(e.now())
	order = order.WithSeq(e.nextSeq())
	if err := order.Validate(); err != nil {
		return nil, err
	}

	s := e.stateFor(order.Symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	return e.process(s, &order)
}

// UpdateMarketPrice records an out-of-band last-trade price and re-scans the
// symbol's conditional queues, per spec section 4.2 step 6.
func (e *Engine) UpdateMarketPrice(symbol string, price decimal.Decimal) {
	e.setLastTradePrice(symbol, price)
	s := e.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	e.runConditionalScan(s, symbol)
}

// CancelOrder removes a resting LIMIT-type order from symbol's book.
// Returns whether removal occurred; a nonexistent order is not an error.
func (e *Engine) CancelOrder(symbol string, side common.Side, price decimal.Decimal, orderID string) bool {
	s := e.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Remove(side, price, orderID)
}

// process runs the matching core for order against s, already locked for
// this symbol. Conditional order types short-circuit straight to parking
// (spec section 4.2 step 4's note).
func (e *Engine) process(s *symbolState, order *common.Order) ([]common.Trade, error) {
	if order.Type.IsConditional() {
		s.book.AddConditional(order)
		return nil, nil
	}

	if err := e.checkCredit(order); err != nil {
		return nil, err
	}

	if order.Type == common.FOK {
		if !e.fokFeasible(s, order) {
			return nil, nil
		}
	}

	trades := e.matchLoop(s, order)
	e.disposeResidual(s, order)

	if len(trades) > 0 {
		e.runConditionalScan(s, order.Symbol)
	}
	return trades, nil
}

// checkCredit invokes the configured hook, if any, for BUY orders of the
// basic types. Conditional types never reach here (see process).
func (e *Engine) checkCredit(order *common.Order) error {
	if e.creditHook == nil || order.Side != common.Buy {
		return nil
	}
	required := order.Quantity
	if order.HasPrice() {
		required = order.Price.Mul(order.Quantity)
	}
	if !e.creditHook(order.Owner, e.fees.FeeCurrency, required) {
		return fmt.Errorf("%w: owner %s requires %s %s", ErrInsufficientFunds, order.Owner, required, e.fees.FeeCurrency)
	}
	return nil
}

// fokFeasible runs the FOK feasibility scan (spec section 4.2 step 2),
// symmetric for BUY and SELL per spec section 9's second open question.
func (e *Engine) fokFeasible(s *symbolState, order *common.Order) bool {
	opposite := opposite(order.Side)
	var available decimal.Decimal
	if order.HasPrice() {
		available = s.book.FeasibleQuantity(opposite, order.Price)
	} else {
		available = s.book.TotalQuantity(opposite)
	}
	return available.GreaterThanOrEqual(order.Quantity)
}

// matchLoop walks the opposite side best-first, producing trades until
// order is filled, the opposite side is empty, or the price guard fails.
func (e *Engine) matchLoop(s *symbolState, order *common.Order) []common.Trade {
	var trades []common.Trade
	opposite := opposite(order.Side)

	for order.Quantity.IsPositive() {
		level := s.book.BestLevel(opposite)
		if level == nil || len(level.Orders) == 0 {
			break
		}
		if !priceGuardPasses(order, level.Price) {
			break
		}

		head := level.Orders[0]
		execQty := decimal.Min(order.Quantity, head.Quantity)

		trade := common.NewTrade(
			order.Symbol, level.Price, execQty, order.Side,
			head.ID, order.ID,
			e.fees.MakerRate, e.fees.TakerRate, e.fees.FeeCurrency,
			e.now(),
		)
		e.emitTrade(trade)
		trades = append(trades, trade)

		order.Quantity = order.Quantity.Sub(execQty)
		head.Quantity = head.Quantity.Sub(execQty)

		if head.Quantity.IsZero() {
			level.Orders = level.Orders[1:]
		}
		if len(level.Orders) == 0 {
			s.book.DropLevel(opposite, level)
		}
	}
	return trades
}

// priceGuardPasses implements spec section 4.2 step 3's per-type guard.
// MARKET orders, and any order admitted without a price, never guard.
func priceGuardPasses(order *common.Order, bestOppositePrice decimal.Decimal) bool {
	if order.Type == common.Market || !order.HasPrice() {
		return true
	}
	if order.Side == common.Buy {
		return !order.Price.LessThan(bestOppositePrice) // break if order.price < best_ask
	}
	return !order.Price.GreaterThan(bestOppositePrice) // break if order.price > best_bid
}

// disposeResidual routes whatever quantity remains after matching, per
// spec section 4.2 step 4. Conditional types never reach here.
func (e *Engine) disposeResidual(s *symbolState, order *common.Order) {
	switch order.Type {
	case common.Limit:
		if order.Quantity.IsPositive() {
			s.book.Add(order)
		}
	case common.Market, common.IOC, common.FOK:
		// Residual is discarded: MARKET and FOK never rest by construction,
		// IOC cancels whatever could not be filled immediately.
	}
}

func opposite(side common.Side) common.Side {
	if side == common.Buy {
		return common.Sell
	}
	return common.Buy
}
