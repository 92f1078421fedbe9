package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// OperatingState describes the lifecycle phase reported by the trading engine.
type OperatingState string

const (
	StateStarting OperatingState = "starting"
	StateRunning  OperatingState = "running"
	StatePaused   OperatingState = "paused"
	StateError    OperatingState = "error"
)

// ParseOperatingState validates the raw state string coming off the wire.
func ParseOperatingState(s string) (OperatingState, error) {
	switch OperatingState(s) {
	case StateStarting, StateRunning, StatePaused, StateError:
		return OperatingState(s), nil
	}
	return "", errors.Errorf("unknown operating state %q", s)
}

// BotStatus is the engine-wide status block. It is replaced wholesale on
// every snapshot; stream events never update it directly.
type BotStatus struct {
	State       OperatingState  `json:"status"`
	Uptime      time.Duration   `json:"uptime"`
	TradesToday int             `json:"trades_today"`
	PnLToday    decimal.Decimal `json:"pnl_today"`
}
