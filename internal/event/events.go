// Package event defines the typed events consumed by the reconciler loop.
// Every producer (snapshot loader, stream ingestor, resync scheduler) emits
// immutable event values into one inbox; only the reconciler mutates state.
package event

import (
	"github.com/vadiminshakov/botwatch/internal/domain"
)

// Kind identifies the event variant.
type Kind uint8

const (
	KindSnapshot Kind = iota + 1
	KindTrade
	KindPosition
	KindTick
	KindStreamHealth
)

// Event is implemented by all reconciler inbox events.
type Event interface {
	Kind() Kind
}

// SnapshotEvent carries a full atomic snapshot fetched from the engine.
type SnapshotEvent struct {
	Snapshot domain.Snapshot
}

func (SnapshotEvent) Kind() Kind { return KindSnapshot }

// TradeEvent carries a single trade pushed over the stream.
type TradeEvent struct {
	Trade domain.Trade
}

func (TradeEvent) Kind() Kind { return KindTrade }

// PositionEvent carries a position upsert pushed over the stream.
type PositionEvent struct {
	Position domain.Position
}

func (PositionEvent) Kind() Kind { return KindPosition }

// TickEvent carries a market tick pushed over the stream.
type TickEvent struct {
	Tick domain.MarketTick
}

func (TickEvent) Kind() Kind { return KindTick }

// StreamHealthEvent reports stream degradation (reconnect backoff exhausted)
// or recovery so the operator surface can reflect it.
type StreamHealthEvent struct {
	Degraded bool
}

func (StreamHealthEvent) Kind() Kind { return KindStreamHealth }
