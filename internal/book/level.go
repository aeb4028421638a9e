// Package book implements the per-symbol price level book: two ordered
// price->FIFO-queue maps (bids descending, asks ascending) plus the
// conditional order queues (stop and take-profit), per spec section 4.1.
package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"vellum/internal/common"
)

// PriceLevel is one occupied price on one side of the book: a price and the
// FIFO queue of resting orders at that price, oldest first.
type PriceLevel struct {
	Price  decimal.Decimal
	Orders []*common.Order
}

func bidLess(a, b *PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
func askLess(a, b *PriceLevel) bool { return a.Price.LessThan(b.Price) }

func newBidLevels() *btree.BTreeG[*PriceLevel] { return btree.NewBTreeG(bidLess) }
func newAskLevels() *btree.BTreeG[*PriceLevel] { return btree.NewBTreeG(askLess) }
