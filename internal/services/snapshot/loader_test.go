package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/botwatch/internal/clients"
	"github.com/vadiminshakov/botwatch/internal/failure"
)

const (
	statusBody = `{"status":"running","uptime":"2h45m","trades_today":5,"pnl_today":"120.50"}`
	tradesBody = `[{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"buy","price":"65000","size":"0.5"}]`
	perfBody   = `{
		"total_trades":42,"winning_trades":25,"losing_trades":17,
		"total_pnl":"310.75","largest_win":"55.0","largest_loss":"-20.5",
		"average_win":"18.4","average_loss":"-9.1","win_rate":"59.52","risk_reward_ratio":"2.02",
		"positions":{"BTC-USDT":{"size":"0.5","entry_price":"64000","unrealized_pnl":"500.0"}}
	}`
)

// engineStub serves the three snapshot endpoints and lets a test break one of
// them per run.
func engineStub(t *testing.T, broken map[string]int) *httptest.Server {
	t.Helper()
	bodies := map[string]string{
		"/api/status":      statusBody,
		"/api/trades":      tradesBody,
		"/api/performance": perfBody,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code, ok := broken[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadAssemblesFullSnapshot(t *testing.T) {
	srv := engineStub(t, nil)
	loader := NewLoader(clients.NewEngineClient(srv.URL), zap.NewNop())

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Status.TradesToday)
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, "BTC-USDT", snap.Trades[0].Symbol)
	assert.Equal(t, 42, snap.Performance.TotalTrades)

	pos := snap.Performance.Positions["BTC-USDT"]
	assert.True(t, pos.EntryPrice.Equal(decimal.NewFromInt(64000)))
}

func TestLoadIsAtomicAcrossEndpoints(t *testing.T) {
	for _, path := range []string{"/api/status", "/api/trades", "/api/performance"} {
		t.Run(path, func(t *testing.T) {
			srv := engineStub(t, map[string]int{path: http.StatusInternalServerError})
			loader := NewLoader(clients.NewEngineClient(srv.URL), zap.NewNop())

			snap, err := loader.Load(context.Background())
			require.Error(t, err)
			assert.True(t, failure.IsKind(err, failure.TransportError))

			// nothing partial leaks out
			assert.Empty(t, snap.Trades)
			assert.Zero(t, snap.Status.TradesToday)
			assert.Nil(t, snap.Performance.Positions)
		})
	}
}

func TestLoadReportsSchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/status":
			_, _ = w.Write([]byte(`{"status":"running"}`)) // missing fields
		case "/api/trades":
			_, _ = w.Write([]byte(tradesBody))
		case "/api/performance":
			_, _ = w.Write([]byte(perfBody))
		}
	}))
	t.Cleanup(srv.Close)

	loader := NewLoader(clients.NewEngineClient(srv.URL), zap.NewNop())
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
}

func TestLoadHitsEveryEndpointOncePerCall(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/api/status":
			_, _ = w.Write([]byte(statusBody))
		case "/api/trades":
			_, _ = w.Write([]byte(tradesBody))
		case "/api/performance":
			_, _ = w.Write([]byte(perfBody))
		}
	}))
	t.Cleanup(srv.Close)

	loader := NewLoader(clients.NewEngineClient(srv.URL), zap.NewNop())
	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}
