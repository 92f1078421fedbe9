// Package reconciler merges snapshot and stream data into one consistent
// canonical state. It is the only component allowed to mutate that state:
// producers post immutable events into the inbox, a single loop applies them
// in arrival order, and consumers read deep copies or subscribe to change
// notifications.
package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/botwatch/internal/domain"
	"github.com/vadiminshakov/botwatch/internal/event"
)

// Entity names the class of state touched by a mutation, for subscribers.
type Entity string

const (
	EntityStatus      Entity = "status"
	EntityTrades      Entity = "trades"
	EntityPositions   Entity = "positions"
	EntityMarket      Entity = "market"
	EntityPerformance Entity = "performance"
	EntityAlerts      Entity = "alerts"
	EntityStream      Entity = "stream"
)

// Listener receives change notifications. Listeners run inside the
// apply-and-notify critical section and must return quickly; hand the work to
// a channel if it can block.
type Listener func(Entity)

const (
	defaultTradeWindow = 500
	defaultAlertWindow = 100
	defaultInboxSize   = 256
)

// Config tunes the retention windows and alert thresholds.
type Config struct {
	// TradeWindow caps the retained trade history (default 500).
	TradeWindow int
	// AlertWindow caps the retained alert history (default 100).
	AlertWindow int
	// PriceAlertPercent raises a price alert when a tick moves more than this
	// percent against the previous tick (default 2).
	PriceAlertPercent decimal.Decimal
	// VolumeAlertRatio raises a volume alert when tick volume grows by this
	// factor or more against the previous tick (default 1.5).
	VolumeAlertRatio decimal.Decimal
}

func (c Config) withDefaults() Config {
	if c.TradeWindow <= 0 {
		c.TradeWindow = defaultTradeWindow
	}
	if c.AlertWindow <= 0 {
		c.AlertWindow = defaultAlertWindow
	}
	if c.PriceAlertPercent.IsZero() {
		c.PriceAlertPercent = decimal.NewFromInt(2)
	}
	if c.VolumeAlertRatio.IsZero() {
		c.VolumeAlertRatio = decimal.NewFromFloat(1.5)
	}
	return c
}

// Reconciler owns canonical state and applies events under the merge
// invariants. All mutation happens on the Run goroutine; the mutex exists for
// external readers and spans the whole apply-and-notify step so no partial
// mutation is ever observable.
type Reconciler struct {
	cfg   Config
	inbox chan event.Event
	l     *zap.Logger

	mu        sync.RWMutex
	state     state
	listeners map[uuid.UUID]Listener
}

// New creates a reconciler with empty state.
func New(cfg Config, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		cfg:       cfg.withDefaults(),
		inbox:     make(chan event.Event, defaultInboxSize),
		l:         logger,
		state:     newState(),
		listeners: make(map[uuid.UUID]Listener),
	}
}

// Inbox is where producers post events. The reconciler never closes it.
func (r *Reconciler) Inbox() chan<- event.Event {
	return r.inbox
}

// Run drains the inbox until ctx is cancelled. It must run in exactly one
// goroutine.
func (r *Reconciler) Run(ctx context.Context) error {
	r.l.Info("reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.l.Info("reconciler stopping")
			return ctx.Err()
		case ev := <-r.inbox:
			r.Apply(ev)
		}
	}
}

// Apply mutates state with one event, synchronously and atomically, then
// notifies subscribers. By this layer every event is schema-valid; an unknown
// event type is a programming defect and is only logged.
func (r *Reconciler) Apply(ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []Entity
	switch e := ev.(type) {
	case event.SnapshotEvent:
		changed = r.applySnapshot(e.Snapshot)
	case event.TradeEvent:
		changed = r.applyTrade(e.Trade)
	case event.PositionEvent:
		changed = r.applyPosition(e.Position)
	case event.TickEvent:
		changed = r.applyTick(e.Tick)
	case event.StreamHealthEvent:
		changed = r.applyStreamHealth(e.Degraded)
	default:
		r.l.Error("unknown event type", zap.Uint8("kind", uint8(ev.Kind())))
		return
	}

	for _, entity := range changed {
		for _, fn := range r.listeners {
			fn(entity)
		}
	}
}

// CurrentState returns a deep copy of canonical state.
func (r *Reconciler) CurrentState() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.view()
}

// Subscribe registers a change listener and returns its unsubscribe handle.
func (r *Reconciler) Subscribe(fn Listener) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// applySnapshot replaces status wholesale, merges trades by identity keeping
// local-only entries, and upserts positions only for symbols present in the
// performance payload (absence in a snapshot is not evidence of closure).
func (r *Reconciler) applySnapshot(snap domain.Snapshot) []Entity {
	changed := []Entity{EntityStatus, EntityPerformance}

	r.state.status = snap.Status

	tradesChanged := false
	for _, t := range snap.Trades {
		if idx := r.state.findTrade(t.Identity()); idx >= 0 {
			if r.state.trades[idx].Enrich(t) {
				tradesChanged = true
			}
			continue
		}
		r.state.insertTrade(t.Clone())
		tradesChanged = true
	}
	r.state.trimTrades(r.cfg.TradeWindow)
	if tradesChanged {
		changed = append(changed, EntityTrades)
	}

	positions := snap.Performance.Positions
	positionsChanged := false
	for symbol, pos := range positions {
		// a snapshot row carries no sequence; keep the existing watermark so
		// stream events older than it still lose after a resync.
		if existing, ok := r.state.positions[symbol]; ok {
			pos.Seq = existing.Seq
		}
		r.state.positions[symbol] = pos
		positionsChanged = true
	}
	if positionsChanged {
		changed = append(changed, EntityPositions)
	}

	r.state.performance = snap.Performance

	r.l.Debug("snapshot applied",
		zap.String("status", string(snap.Status.State)),
		zap.Int("trades", len(snap.Trades)),
		zap.Int("positions", len(positions)))
	return changed
}

// applyTrade updates an existing entry in place on identity match, otherwise
// inserts at the timestamp-ordered slot and trims the window. Applying the
// same trade twice leaves exactly one entry.
func (r *Reconciler) applyTrade(t domain.Trade) []Entity {
	if idx := r.state.findTrade(t.Identity()); idx >= 0 {
		if !r.state.trades[idx].Enrich(t) {
			return nil
		}
		return []Entity{EntityTrades}
	}

	r.state.insertTrade(t.Clone())
	r.state.trimTrades(r.cfg.TradeWindow)
	return []Entity{EntityTrades}
}

// applyPosition upserts by symbol with last-write-wins on the event's own
// sequence marker, not receipt order. A zero-size event closes the position.
func (r *Reconciler) applyPosition(p domain.Position) []Entity {
	if existing, ok := r.state.positions[p.Symbol]; ok && p.Seq < existing.Seq {
		r.l.Debug("stale position event ignored",
			zap.String("symbol", p.Symbol),
			zap.Uint64("seq", p.Seq),
			zap.Uint64("current_seq", existing.Seq))
		return nil
	}

	if p.IsClosed() {
		delete(r.state.positions, p.Symbol)
	} else {
		r.state.positions[p.Symbol] = p
	}
	return []Entity{EntityPositions}
}

// applyTick overwrites the latest tick for the symbol and derives alerts from
// significant moves against the previous tick.
func (r *Reconciler) applyTick(t domain.MarketTick) []Entity {
	prev, seen := r.state.ticks[t.Symbol]
	r.state.ticks[t.Symbol] = t

	changed := []Entity{EntityMarket}
	if !seen {
		return changed
	}

	if alert, ok := priceAlert(prev, t, r.cfg.PriceAlertPercent); ok {
		r.addAlert(alert)
		changed = append(changed, EntityAlerts)
	}
	if alert, ok := volumeAlert(prev, t, r.cfg.VolumeAlertRatio); ok {
		r.addAlert(alert)
		changed = append(changed, EntityAlerts)
	}
	return changed
}

func (r *Reconciler) applyStreamHealth(degraded bool) []Entity {
	if r.state.degraded == degraded {
		return nil
	}
	r.state.degraded = degraded
	if degraded {
		r.l.Warn("stream degraded, relying on periodic resync")
	} else {
		r.l.Info("stream recovered")
	}
	return []Entity{EntityStream}
}

func (r *Reconciler) addAlert(a domain.Alert) {
	r.state.alerts = append([]domain.Alert{a}, r.state.alerts...)
	if len(r.state.alerts) > r.cfg.AlertWindow {
		r.state.alerts = r.state.alerts[:r.cfg.AlertWindow]
	}
	r.l.Info("alert raised",
		zap.String("kind", string(a.Kind)),
		zap.String("symbol", a.Symbol),
		zap.String("change_pct", a.ChangePct.String()))
}

var hundred = decimal.NewFromInt(100)

// priceAlert reports a move whose absolute percent change against the
// previous tick exceeds thresholdPercent.
func priceAlert(prev, cur domain.MarketTick, thresholdPercent decimal.Decimal) (domain.Alert, bool) {
	if !prev.Price.IsPositive() {
		return domain.Alert{}, false
	}

	changePct := cur.Price.Sub(prev.Price).Div(prev.Price).Mul(hundred)
	if changePct.Abs().LessThanOrEqual(thresholdPercent) {
		return domain.Alert{}, false
	}

	return domain.Alert{
		Timestamp: cur.Timestamp,
		Kind:      domain.AlertPrice,
		Symbol:    cur.Symbol,
		Message:   fmt.Sprintf("significant price change: %s%%", changePct.Round(2)),
		OldValue:  prev.Price,
		NewValue:  cur.Price,
		ChangePct: changePct,
	}, true
}

// volumeAlert reports volume growth by thresholdRatio or more against the
// previous tick. Ticks without volume never alert.
func volumeAlert(prev, cur domain.MarketTick, thresholdRatio decimal.Decimal) (domain.Alert, bool) {
	if !prev.Volume.IsPositive() || !cur.Volume.IsPositive() {
		return domain.Alert{}, false
	}

	ratio := cur.Volume.Div(prev.Volume)
	if ratio.LessThan(thresholdRatio) {
		return domain.Alert{}, false
	}

	changePct := ratio.Sub(decimal.NewFromInt(1)).Mul(hundred)
	return domain.Alert{
		Timestamp: cur.Timestamp,
		Kind:      domain.AlertVolume,
		Symbol:    cur.Symbol,
		Message:   fmt.Sprintf("significant volume increase: %s%%", changePct.Round(2)),
		OldValue:  prev.Volume,
		NewValue:  cur.Volume,
		ChangePct: changePct,
	}, true
}
