package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side is the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide validates the raw side string coming off the wire.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", errors.Errorf("unknown trade side %q", s)
}

// Trade is a single executed trade reported by the engine. The same trade may
// arrive twice (once via snapshot, once via stream); Identity collapses the
// duplicates.
type Trade struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	// PnL is nil until the trade is closed and settled.
	PnL *decimal.Decimal `json:"pnl,omitempty"`
}

// Identity derives the dedup key from the fields no source may disagree on.
func (t Trade) Identity() string {
	return fmt.Sprintf("%d|%s|%s|%s", t.Timestamp.UnixMilli(), t.Symbol, t.Price.String(), t.Side)
}

// Enrich folds a duplicate record into the receiver. The richer record wins:
// a settled PnL is never cleared by a record that lacks one. Returns true
// when anything changed.
func (t *Trade) Enrich(other Trade) bool {
	if other.PnL == nil {
		return false
	}
	if t.PnL != nil && t.PnL.Equal(*other.PnL) {
		return false
	}
	pnl := *other.PnL
	t.PnL = &pnl
	return true
}

// Clone returns a deep copy safe to hand to readers outside the reconciler.
func (t Trade) Clone() Trade {
	out := t
	if t.PnL != nil {
		pnl := *t.PnL
		out.PnL = &pnl
	}
	return out
}
