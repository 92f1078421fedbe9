package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/botwatch/internal/services/reconciler"
)

const heartbeatInterval = 30 * time.Second

// StateReader is the reconciler's read-only presentation surface: a deep-copy
// view of current state plus a change-notification subscription.
type StateReader interface {
	CurrentState() reconciler.View
	Subscribe(fn reconciler.Listener) (unsubscribe func())
}

// Server exposes HTTP endpoints serving the HTML UI, read-only JSON state and
// an SSE change feed. It holds no state of its own: every handler reads a
// fresh copy from the reconciler, so the dashboard keeps showing last-known-
// good data during any transient upstream failure.
type Server struct {
	Addr   string
	Reader StateReader
	l      *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, reader StateReader, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Reader: reader, l: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/market-data", s.handleMarketData)
	mux.HandleFunc("/api/performance", s.handlePerformance)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Reader.CurrentState())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view := s.Reader.CurrentState()
	s.writeJSON(w, map[string]any{
		"status":          view.Status.State,
		"uptime":          view.Status.Uptime.String(),
		"trades_today":    view.Status.TradesToday,
		"pnl_today":       view.Status.PnLToday,
		"open_positions":  len(view.Positions),
		"stream_degraded": view.StreamDegraded,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.Reader.CurrentState().Trades
	if limit := queryLimit(r, len(trades)); limit < len(trades) {
		trades = trades[:limit]
	}
	s.writeJSON(w, trades)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Reader.CurrentState().Positions)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Reader.CurrentState().Ticks)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Reader.CurrentState().Performance)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.Reader.CurrentState().Alerts
	if limit := queryLimit(r, len(alerts)); limit < len(alerts) {
		alerts = alerts[:limit]
	}
	s.writeJSON(w, alerts)
}

func queryLimit(r *http.Request, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return max
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 || limit > max {
		return max
	}
	return limit
}

// handleStream pushes one SSE event per reconciler change notification. The
// listener runs inside the reconciler's critical section, so it only drops
// the entity name into a buffered channel; slow clients lose notifications
// rather than stalling the merge loop, and the next /api read catches them up.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes := make(chan reconciler.Entity, 64)
	unsubscribe := s.Reader.Subscribe(func(entity reconciler.Entity) {
		select {
		case changes <- entity:
		default:
		}
	})
	defer unsubscribe()

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	send := func(entity reconciler.Entity) {
		fmt.Fprintf(w, "event: change\n")
		fmt.Fprintf(w, "data: {\"entity\":%q}\n\n", entity)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case entity := <-changes:
			send(entity)
		}
	}
}
