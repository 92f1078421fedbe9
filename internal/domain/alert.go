package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertKind classifies operator alerts derived from market ticks.
type AlertKind string

const (
	AlertPrice  AlertKind = "price"
	AlertVolume AlertKind = "volume"
)

// Alert records a significant market move for the operator. Alerts are kept
// in a bounded in-memory window, newest first.
type Alert struct {
	Timestamp time.Time       `json:"timestamp"`
	Kind      AlertKind       `json:"kind"`
	Symbol    string          `json:"symbol"`
	Message   string          `json:"message"`
	OldValue  decimal.Decimal `json:"old_value"`
	NewValue  decimal.Decimal `json:"new_value"`
	ChangePct decimal.Decimal `json:"change_pct"`
}
