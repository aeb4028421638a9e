package book

import (
	"sort"

	"vellum/internal/common"
)

// conditionalList selects which queue order belongs to: stop orders
// (STOP_LOSS, STOP_LIMIT) or take-profit orders.
func (b *Book) conditionalList(t common.OrderType) *[]*common.Order {
	if t == common.TakeProfit {
		return &b.takeProfitOrders
	}
	return &b.stopOrders
}

// triggerPrice returns the price that activates order, and the sort
// direction for its queue per spec section 4.3: SELL-side stops and
// BUY-side take-profits are sorted descending, the other pairs ascending.
func triggerPrice(o *common.Order) (price float64, descending bool) {
	switch o.Type {
	case common.StopLoss, common.StopLimit:
		p, _ := o.StopPrice.Float64()
		return p, o.Side == common.Sell
	case common.TakeProfit:
		p, _ := o.TakeProfitPrice.Float64()
		return p, o.Side == common.Buy
	default:
		return 0, false
	}
}

// AddConditional places a STOP_LOSS, STOP_LIMIT, or TAKE_PROFIT order into
// its list, keeping the list sorted by trigger price so a scan can
// short-circuit once it reaches an order that cannot yet be triggered.
func (b *Book) AddConditional(order *common.Order) {
	list := b.conditionalList(order.Type)
	*list = append(*list, order)
	_, descending := triggerPrice(order)
	sort.SliceStable(*list, func(i, j int) bool {
		pi, _ := triggerPrice((*list)[i])
		pj, _ := triggerPrice((*list)[j])
		if descending {
			return pi > pj
		}
		return pi < pj
	})
}

// RemoveConditional drops orderID from whichever conditional list it is
// parked in. Returns whether it was found.
func (b *Book) RemoveConditional(orderID string) bool {
	for _, list := range []*[]*common.Order{&b.stopOrders, &b.takeProfitOrders} {
		for i, o := range *list {
			if o.ID == orderID {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return true
			}
		}
	}
	return false
}

// StopOrders returns a snapshot slice of the stop-order queue, for the
// conditional engine's trigger scan. Mutating the returned slice does not
// affect the book; remove triggered entries with RemoveConditional.
func (b *Book) StopOrders() []*common.Order {
	out := make([]*common.Order, len(b.stopOrders))
	copy(out, b.stopOrders)
	return out
}

// TakeProfitOrders returns a snapshot slice of the take-profit queue.
func (b *Book) TakeProfitOrders() []*common.Order {
	out := make([]*common.Order, len(b.takeProfitOrders))
	copy(out, b.takeProfitOrders)
	return out
}
