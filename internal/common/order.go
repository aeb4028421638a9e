package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidOrder is returned by Validate (and by anything that calls it)
// when an order fails admission. No state is mutated when this is returned.
var ErrInvalidOrder = errors.New("invalid order")

// Order is an instruction to buy or sell a quantity of a symbol. Quantity is
// mutated downward in place as the order is matched; OriginalQty never
// changes and is kept for reporting and fee-basis purposes.
type Order struct {
	ID              string
	Symbol          string
	Type            OrderType
	Side            Side
	Quantity        decimal.Decimal
	OriginalQty     decimal.Decimal
	Price           decimal.Decimal // zero value means "absent", see HasPrice
	StopPrice       decimal.Decimal
	TakeProfitPrice decimal.Decimal
	Owner           string
	Timestamp       time.Time

	// seq records arrival order. It is assigned once, on admission. Ties
	// between orders at the same price are broken by their position in the
	// price level's FIFO queue, not by comparing seq.
	seq uint64
}

// HasPrice reports whether Price was supplied. A zero decimal and an absent
// price are indistinguishable, which is safe because Validate rejects a
// literal zero or negative price wherever Price is required.
func (o Order) HasPrice() bool { return !o.Price.IsZero() }

func (o Order) Seq() uint64 { return o.seq }

// WithSeq returns a copy of the order with its arrival sequence set. Used by
// the engine on admission; callers never need to set this themselves.
func (o Order) WithSeq(seq uint64) Order {
	o.seq = seq
	return o
}

// Validate enforces spec admission invariants: positive quantity, a positive
// price for price-bearing types, and trigger prices for conditional types.
// It never mutates state; callers reject the order before it touches a book.
func (o *Order) Validate() error {
	if o.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, o.Quantity)
	}
	switch o.Type {
	case Limit, StopLimit, TakeProfit:
		if !o.Price.IsPositive() {
			return fmt.Errorf("%w: %s requires a positive price", ErrInvalidOrder, o.Type)
		}
	}
	switch o.Type {
	case StopLoss, StopLimit:
		if !o.StopPrice.IsPositive() {
			return fmt.Errorf("%w: %s requires a positive stop_price", ErrInvalidOrder, o.Type)
		}
	}
	if o.Type == TakeProfit && !o.TakeProfitPrice.IsPositive() {
		return fmt.Errorf("%w: TAKE_PROFIT requires a positive take_profit_price", ErrInvalidOrder)
	}
	return nil
}

// Normalize fills in an id, owner-visible timestamp, and OriginalQty when the
// caller left them unset. Called once on ingress, before Validate.
func (o *Order) Normalize(now time.Time) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = now
	}
	if o.OriginalQty.IsZero() {
		o.OriginalQty = o.Quantity
	}
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%s symbol=%s type=%s side=%s qty=%s price=%s owner=%s}",
		o.ID, o.Symbol, o.Type, o.Side, o.Quantity, o.Price, o.Owner,
	)
}
