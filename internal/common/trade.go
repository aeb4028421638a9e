package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record produced by the matching core.
// Once created a Trade is never mutated.
type Trade struct {
	ID            string
	Timestamp     time.Time
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	AggressorSide Side
	MakerOrderID  string
	TakerOrderID  string
	MakerFee      decimal.Decimal
	TakerFee      decimal.Decimal
	FeeCurrency   string
}

// NewTrade builds a Trade with fees computed as quantity * price * rate,
// per spec. rates and feeCurrency come from the engine's fee configuration.
func NewTrade(symbol string, price, quantity decimal.Decimal, aggressorSide Side, makerOrderID, takerOrderID string, makerRate, takerRate decimal.Decimal, feeCurrency string, now time.Time) Trade {
	notional := quantity.Mul(price)
	return Trade{
		ID:            uuid.New().String(),
		Timestamp:     now,
		Symbol:        symbol,
		Price:         price,
		Quantity:      quantity,
		AggressorSide: aggressorSide,
		MakerOrderID:  makerOrderID,
		TakerOrderID:  takerOrderID,
		MakerFee:      notional.Mul(makerRate),
		TakerFee:      notional.Mul(takerRate),
		FeeCurrency:   feeCurrency,
	}
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{id=%s symbol=%s price=%s qty=%s aggressor=%s maker=%s taker=%s}",
		t.ID, t.Symbol, t.Price, t.Quantity, t.AggressorSide, t.MakerOrderID, t.TakerOrderID,
	)
}
