package common

import "github.com/shopspring/decimal"

// FeeConfig is process-wide and immutable after the engine is constructed.
type FeeConfig struct {
	MakerRate   decimal.Decimal
	TakerRate   decimal.Decimal
	FeeCurrency string
}
