package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"vellum/internal/common"
)

// Book is the per-symbol order book: ordered bid/ask price levels plus the
// conditional order queues awaiting a trigger.
type Book struct {
	Symbol string

	bids *btree.BTreeG[*PriceLevel]
	asks *btree.BTreeG[*PriceLevel]

	stopOrders       []*common.Order
	takeProfitOrders []*common.Order
}

// New constructs an empty book for symbol. Symbols are auto-created by the
// engine on first use; New is never called with an invalid symbol.
func New(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		bids:   newBidLevels(),
		asks:   newAskLevels(),
	}
}

func (b *Book) levels(side common.Side) *btree.BTreeG[*PriceLevel] {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

// Best returns the best price and the head (oldest) order on that side, or
// ok=false if the side is empty.
func (b *Book) Best(side common.Side) (price decimal.Decimal, head *common.Order, ok bool) {
	level, found := b.levels(side).MinMut()
	if !found || len(level.Orders) == 0 {
		return decimal.Zero, nil, false
	}
	return level.Price, level.Orders[0], true
}

// BestLevel returns the mutable head price level on side, or nil if empty.
// Used by the matching loop, which needs to mutate the level in place as it
// walks the FIFO queue.
func (b *Book) BestLevel(side common.Side) *PriceLevel {
	level, found := b.levels(side).MinMut()
	if !found {
		return nil
	}
	return level
}

// DropLevel removes an emptied price level from its side. Called by the
// matching loop once a level's queue has been drained.
func (b *Book) DropLevel(side common.Side, level *PriceLevel) {
	b.levels(side).Delete(level)
}

// Add inserts a LIMIT order at its price, appending to the tail of that
// price level's FIFO queue. The price level is created if it does not exist.
func (b *Book) Add(order *common.Order) {
	levels := b.levels(order.Side)
	level, ok := levels.GetMut(&PriceLevel{Price: order.Price})
	if ok {
		level.Orders = append(level.Orders, order)
		return
	}
	levels.Set(&PriceLevel{Price: order.Price, Orders: []*common.Order{order}})
}

// Remove cancels a resting order at price on side. Returns whether removal
// occurred; a nonexistent order is not an error, per spec section 7.
func (b *Book) Remove(side common.Side, price decimal.Decimal, orderID string) bool {
	levels := b.levels(side)
	level, ok := levels.GetMut(&PriceLevel{Price: price})
	if !ok {
		return false
	}
	for i, o := range level.Orders {
		if o.ID == orderID {
			level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
			if len(level.Orders) == 0 {
				levels.Delete(level)
			}
			return true
		}
	}
	return false
}

// LevelSummary is one aggregated row of a depth snapshot.
type LevelSummary struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Depth returns up to `levels` best bids and asks, each with the summed
// residual quantity resting at that price.
func (b *Book) Depth(levels int) (bids, asks []LevelSummary) {
	return summarize(b.bids, levels), summarize(b.asks, levels)
}

func summarize(tree *btree.BTreeG[*PriceLevel], limit int) []LevelSummary {
	out := make([]LevelSummary, 0, limit)
	tree.Scan(func(level *PriceLevel) bool {
		if len(out) >= limit {
			return false
		}
		total := decimal.Zero
		for _, o := range level.Orders {
			total = total.Add(o.Quantity)
		}
		out = append(out, LevelSummary{Price: level.Price, Quantity: total})
		return true
	})
	return out
}

// AllLevels returns every occupied price level on side, best price first,
// for persistence snapshots. The returned PriceLevels and their Orders
// slices are the live book data; callers must not mutate them.
func (b *Book) AllLevels(side common.Side) []*PriceLevel {
	var out []*PriceLevel
	b.levels(side).Scan(func(level *PriceLevel) bool {
		out = append(out, level)
		return true
	})
	return out
}

// TotalQuantity sums the resting quantity on side, used for FOK feasibility
// on MARKET orders (spec section 9, first open question).
func (b *Book) TotalQuantity(side common.Side) decimal.Decimal {
	total := decimal.Zero
	b.levels(side).Scan(func(level *PriceLevel) bool {
		for _, o := range level.Orders {
			total = total.Add(o.Quantity)
		}
		return true
	})
	return total
}

// FeasibleQuantity sums resting quantity at prices not worse than limit, in
// best-first order, for the FOK feasibility scan (spec section 4.2 step 2).
// side is the resting side being scanned (the opposite of the aggressor).
func (b *Book) FeasibleQuantity(side common.Side, limit decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	b.levels(side).Scan(func(level *PriceLevel) bool {
		if side == common.Sell && level.Price.GreaterThan(limit) {
			return false
		}
		if side == common.Buy && level.Price.LessThan(limit) {
			return false
		}
		for _, o := range level.Orders {
			total = total.Add(o.Quantity)
		}
		return true
	})
	return total
}
