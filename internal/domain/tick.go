package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketTick is the latest market price for a symbol. Ticks are transient:
// only the most recent tick per symbol is retained.
type MarketTick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
