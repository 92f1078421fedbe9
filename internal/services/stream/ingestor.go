// Package stream consumes the trading engine's push channel and forwards
// typed events to the reconciler in arrival order.
package stream

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/botwatch/internal/event"
	"github.com/vadiminshakov/botwatch/internal/failure"
	"github.com/vadiminshakov/botwatch/internal/wire"
)

const (
	eventMarketData = "market_data"
	eventTrade      = "trade"
	eventPosition   = "position"

	defaultMinBackoff = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
	handshakeTimeout  = 10 * time.Second

	// after this many consecutive failed dials the stream is reported as
	// degraded; attempts continue at the ceiling interval.
	degradeAfterAttempts = 5
)

// envelope is the wire framing of every pushed message.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Ingestor maintains one long-lived websocket connection to the engine.
// Malformed messages are dropped and counted, never fatal. Connection loss
// triggers reconnect with capped exponential backoff; events published during
// an outage are lost to the stream, so every successful reconnect signals the
// resync scheduler to fetch a fresh snapshot.
type Ingestor struct {
	url         string
	inbox       chan<- event.Event
	onReconnect func()
	l           *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration

	dropped atomic.Uint64
}

// Option tunes the ingestor.
type Option func(*Ingestor)

// WithBackoff overrides the reconnect backoff bounds.
func WithBackoff(min, max time.Duration) Option {
	return func(i *Ingestor) {
		i.minBackoff = min
		i.maxBackoff = max
	}
}

// NewIngestor creates an ingestor feeding inbox. onReconnect is invoked after
// every successful reconnect (not the first connect) and may be nil.
func NewIngestor(url string, inbox chan<- event.Event, onReconnect func(), logger *zap.Logger, opts ...Option) *Ingestor {
	i := &Ingestor{
		url:         url,
		inbox:       inbox,
		onReconnect: onReconnect,
		l:           logger,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Dropped returns the count of malformed messages discarded so far.
func (i *Ingestor) Dropped() uint64 {
	return i.dropped.Load()
}

// Run dials and consumes the push channel until ctx is cancelled. It never
// returns a stream error: failures feed the reconnect loop, and repeated
// exhaustion of the backoff ceiling is surfaced as a degradation event.
func (i *Ingestor) Run(ctx context.Context) error {
	b := &backoff.Backoff{
		Min:    i.minBackoff,
		Max:    i.maxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var (
		attempts  int
		degraded  bool
		connected bool
	)

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, resp, err := dialer.DialContext(ctx, i.url, nil)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			attempts++
			delay := b.Duration()
			i.l.Warn("stream connect failed",
				zap.Error(failure.Transport(err, "dial push channel")),
				zap.Int("attempt", attempts),
				zap.Duration("retry_in", delay))

			if !degraded && attempts >= degradeAfterAttempts {
				degraded = true
				i.l.Error("reconnect backoff exhausted, reporting stream as degraded",
					zap.Error(&failure.Failure{Kind: failure.ReconnectExhausted, Err: err}))
				i.forward(ctx, event.StreamHealthEvent{Degraded: true})
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		b.Reset()
		attempts = 0
		if degraded {
			degraded = false
			i.forward(ctx, event.StreamHealthEvent{Degraded: false})
		}

		if connected {
			i.l.Info("stream reconnected, requesting resync to heal missed events")
			if i.onReconnect != nil {
				i.onReconnect()
			}
		} else {
			i.l.Info("stream connected", zap.String("url", i.url))
			connected = true
		}

		i.readLoop(ctx, conn)
	}
}

// readLoop consumes messages until the connection breaks or ctx is cancelled.
func (i *Ingestor) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				i.l.Warn("stream read failed", zap.Error(err))
			}
			return
		}

		ev, err := i.classify(msg)
		if err != nil {
			i.dropped.Add(1)
			i.l.Warn("malformed stream message dropped",
				zap.Error(err),
				zap.Uint64("dropped_total", i.dropped.Load()))
			continue
		}

		if !i.forward(ctx, ev) {
			return
		}
	}
}

// classify validates the envelope and decodes the payload into a typed event.
func (i *Ingestor) classify(msg []byte) (event.Event, error) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, failure.Schema(err, "decode envelope")
	}

	switch env.Event {
	case eventMarketData:
		tick, err := wire.DecodeTick(env.Data)
		if err != nil {
			return nil, err
		}
		return event.TickEvent{Tick: tick}, nil
	case eventTrade:
		trade, err := wire.DecodeTrade(env.Data)
		if err != nil {
			return nil, err
		}
		return event.TradeEvent{Trade: trade}, nil
	case eventPosition:
		position, err := wire.DecodeStreamPosition(env.Data)
		if err != nil {
			return nil, err
		}
		return event.PositionEvent{Position: position}, nil
	default:
		return nil, failure.Schemaf(errors.Errorf("got %q", env.Event), "unknown event kind")
	}
}

// forward posts the event unless teardown already ran; results arriving after
// cancellation are discarded.
func (i *Ingestor) forward(ctx context.Context, ev event.Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case i.inbox <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
