package reconciler

import (
	"github.com/vadiminshakov/botwatch/internal/domain"
)

// state is the canonical in-memory state. It is owned exclusively by the
// Reconciler; everything handed out crosses the boundary as a deep copy.
type state struct {
	status      domain.BotStatus
	trades      []domain.Trade // ordered by timestamp descending
	positions   map[string]domain.Position
	ticks       map[string]domain.MarketTick
	performance domain.PerformanceMetrics
	alerts      []domain.Alert // newest first
	degraded    bool
}

func newState() state {
	return state{
		positions: make(map[string]domain.Position),
		ticks:     make(map[string]domain.MarketTick),
	}
}

// View is a read-only copy of canonical state for presentation consumers.
// Mutating a View never affects the reconciler.
type View struct {
	Status         domain.BotStatus             `json:"status"`
	Trades         []domain.Trade               `json:"trades"`
	Positions      map[string]domain.Position   `json:"positions"`
	Ticks          map[string]domain.MarketTick `json:"market_data"`
	Performance    domain.PerformanceMetrics    `json:"performance"`
	Alerts         []domain.Alert               `json:"alerts"`
	StreamDegraded bool                         `json:"stream_degraded"`
}

func (s *state) view() View {
	trades := make([]domain.Trade, len(s.trades))
	for i, t := range s.trades {
		trades[i] = t.Clone()
	}

	positions := make(map[string]domain.Position, len(s.positions))
	for symbol, p := range s.positions {
		positions[symbol] = p
	}

	ticks := make(map[string]domain.MarketTick, len(s.ticks))
	for symbol, t := range s.ticks {
		ticks[symbol] = t
	}

	performance := s.performance
	performance.Positions = make(map[string]domain.Position, len(s.performance.Positions))
	for symbol, p := range s.performance.Positions {
		performance.Positions[symbol] = p
	}

	alerts := make([]domain.Alert, len(s.alerts))
	copy(alerts, s.alerts)

	return View{
		Status:         s.status,
		Trades:         trades,
		Positions:      positions,
		Ticks:          ticks,
		Performance:    performance,
		Alerts:         alerts,
		StreamDegraded: s.degraded,
	}
}

// insertTrade places t at its timestamp-descending slot. The collection stays
// non-increasing by timestamp even when the stream delivers out of order.
func (s *state) insertTrade(t domain.Trade) {
	idx := len(s.trades)
	for i, existing := range s.trades {
		if !existing.Timestamp.After(t.Timestamp) {
			idx = i
			break
		}
	}
	s.trades = append(s.trades, domain.Trade{})
	copy(s.trades[idx+1:], s.trades[idx:])
	s.trades[idx] = t
}

// trimTrades caps the retained trade window.
func (s *state) trimTrades(cap int) {
	if cap > 0 && len(s.trades) > cap {
		s.trades = s.trades[:cap]
	}
}

// findTrade returns the index of the trade with the given identity, or -1.
func (s *state) findTrade(identity string) int {
	for i, t := range s.trades {
		if t.Identity() == identity {
			return i
		}
	}
	return -1
}
