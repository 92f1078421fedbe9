package domain

import (
	"github.com/shopspring/decimal"
)

// Position is the open position for a symbol. Size is signed: positive means
// long, negative means short. Seq is the engine-assigned sequence marker used
// for last-write-wins ordering; it is zero for positions normalized from a
// snapshot, which carries no sequence.
type Position struct {
	Symbol        string          `json:"symbol"`
	Size          decimal.Decimal `json:"size"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	Seq           uint64          `json:"seq,omitempty"`
}

// IsShort reports whether the position is on the short side.
func (p Position) IsShort() bool {
	return p.Size.IsNegative()
}

// IsClosed reports whether the position has been fully closed. A stream
// position event with zero size is the engine's closure signal.
func (p Position) IsClosed() bool {
	return p.Size.IsZero()
}
