// Package persistence implements the snapshot/restore codec named in spec
// section 6: an ordered list of (price, [orders]) pairs per side, plus the
// two conditional lists, with decimals serialized as strings and timestamps
// as RFC3339. Grounded on original_source/engine/persistence.py.
package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vellum/internal/book"
	"vellum/internal/common"
)

// ErrCorruptedSnapshot is returned by LoadFromFile/Restore when the stored format
// fails validation. Per spec section 7, the caller continues with an empty
// book for that symbol rather than treating this as fatal.
var ErrCorruptedSnapshot = errors.New("corrupted snapshot")

// OrderRecord is the wire shape of one order within a snapshot, exactly the
// field set spec section 6 names.
type OrderRecord struct {
	OrderID         string `json:"order_id"`
	Symbol          string `json:"symbol"`
	Type            string `json:"type"`
	Side            string `json:"side"`
	Quantity        string `json:"quantity"`
	Price           string `json:"price,omitempty"`
	StopPrice       string `json:"stop_price,omitempty"`
	TakeProfitPrice string `json:"take_profit_price,omitempty"`
	Timestamp       string `json:"timestamp"`
}

// PriceLevelRecord is one occupied price level: the price and its FIFO
// queue of orders, oldest first.
type PriceLevelRecord struct {
	Price  string        `json:"price"`
	Orders []OrderRecord `json:"orders"`
}

// Snapshot is the full persisted state of one symbol's book.
type Snapshot struct {
	Symbol           string             `json:"symbol"`
	Bids             []PriceLevelRecord `json:"bids"`
	Asks             []PriceLevelRecord `json:"asks"`
	StopOrders       []OrderRecord      `json:"stop_orders"`
	TakeProfitOrders []OrderRecord      `json:"take_profit_orders"`
}

// Build converts a live book into its persisted representation. The book is
// only read, never mutated.
func Build(b *book.Book) Snapshot {
	return Snapshot{
		Symbol:           b.Symbol,
		Bids:             buildLevels(b.AllLevels(common.Buy)),
		Asks:             buildLevels(b.AllLevels(common.Sell)),
		StopOrders:       buildOrders(b.StopOrders()),
		TakeProfitOrders: buildOrders(b.TakeProfitOrders()),
	}
}

func buildLevels(levels []*book.PriceLevel) []PriceLevelRecord {
	out := make([]PriceLevelRecord, 0, len(levels))
	for _, level := range levels {
		out = append(out, PriceLevelRecord{
			Price:  level.Price.String(),
			Orders: buildOrders(level.Orders),
		})
	}
	return out
}

func buildOrders(orders []*common.Order) []OrderRecord {
	out := make([]OrderRecord, 0, len(orders))
	for _, o := range orders {
		out = append(out, toRecord(o))
	}
	return out
}

func toRecord(o *common.Order) OrderRecord {
	rec := OrderRecord{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Type:      o.Type.String(),
		Side:      o.Side.String(),
		Quantity:  o.Quantity.String(),
		Timestamp: o.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if o.HasPrice() {
		rec.Price = o.Price.String()
	}
	if !o.StopPrice.IsZero() {
		rec.StopPrice = o.StopPrice.String()
	}
	if !o.TakeProfitPrice.IsZero() {
		rec.TakeProfitPrice = o.TakeProfitPrice.String()
	}
	return rec
}

// Restore rebuilds a book from snap. Any malformed field yields
// ErrCorruptedSnapshot and no partial book is returned.
func Restore(symbol string, snap Snapshot) (*book.Book, error) {
	b := book.New(symbol)

	for _, level := range snap.Bids {
		if err := restoreLevel(b, level); err != nil {
			return nil, err
		}
	}
	for _, level := range snap.Asks {
		if err := restoreLevel(b, level); err != nil {
			return nil, err
		}
	}
	for _, rec := range snap.StopOrders {
		o, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		b.AddConditional(o)
	}
	for _, rec := range snap.TakeProfitOrders {
		o, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		b.AddConditional(o)
	}
	return b, nil
}

func restoreLevel(b *book.Book, level PriceLevelRecord) error {
	for _, rec := range level.Orders {
		o, err := fromRecord(rec)
		if err != nil {
			return err
		}
		b.Add(o)
	}
	return nil
}

func fromRecord(rec OrderRecord) (*common.Order, error) {
	orderType, ok := parseOrderType(rec.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrCorruptedSnapshot, rec.Type)
	}
	side, ok := parseSide(rec.Side)
	if !ok {
		return nil, fmt.Errorf("%w: unknown side %q", ErrCorruptedSnapshot, rec.Side)
	}
	quantity, err := parseDecimal(rec.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: quantity: %s", ErrCorruptedSnapshot, err)
	}
	price, err := parseOptionalDecimal(rec.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: price: %s", ErrCorruptedSnapshot, err)
	}
	stopPrice, err := parseOptionalDecimal(rec.StopPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: stop_price: %s", ErrCorruptedSnapshot, err)
	}
	takeProfitPrice, err := parseOptionalDecimal(rec.TakeProfitPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: take_profit_price: %s", ErrCorruptedSnapshot, err)
	}
	timestamp, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %s", ErrCorruptedSnapshot, err)
	}

	return &common.Order{
		ID:              rec.OrderID,
		Symbol:          rec.Symbol,
		Type:            orderType,
		Side:            side,
		Quantity:        quantity,
		OriginalQty:     quantity,
		Price:           price,
		StopPrice:       stopPrice,
		TakeProfitPrice: takeProfitPrice,
		Timestamp:       timestamp,
	}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseSide(s string) (common.Side, bool) {
	switch s {
	case "BUY":
		return common.Buy, true
	case "SELL":
		return common.Sell, true
	default:
		return 0, false
	}
}

func parseOrderType(s string) (common.OrderType, bool) {
	switch s {
	case "MARKET":
		return common.Market, true
	case "LIMIT":
		return common.Limit, true
	case "IOC":
		return common.IOC, true
	case "FOK":
		return common.FOK, true
	case "STOP_LOSS":
		return common.StopLoss, true
	case "STOP_LIMIT":
		return common.StopLimit, true
	case "TAKE_PROFIT":
		return common.TakeProfit, true
	default:
		return 0, false
	}
}
