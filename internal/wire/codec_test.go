package wire

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/botwatch/internal/domain"
	"github.com/vadiminshakov/botwatch/internal/failure"
)

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"status":"running","uptime":"2h45m","trades_today":5,"pnl_today":"120.50"}`,
		},
		{
			name:    "numeric pnl also accepted",
			payload: `{"status":"running","uptime":"2h45m","trades_today":5,"pnl_today":120.50}`,
		},
		{
			name:    "missing uptime",
			payload: `{"status":"running","trades_today":5,"pnl_today":"120.50"}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			payload: `{"status":"running","uptime":"2h45m","trades_today":5,"pnl_today":"120.50","mode":"live"}`,
			wantErr: true,
		},
		{
			name:    "state outside enum",
			payload: `{"status":"stopped","uptime":"2h45m","trades_today":5,"pnl_today":"120.50"}`,
			wantErr: true,
		},
		{
			name:    "negative trade count",
			payload: `{"status":"running","uptime":"2h45m","trades_today":-1,"pnl_today":"120.50"}`,
			wantErr: true,
		},
		{
			name:    "uptime not a duration",
			payload: `{"status":"running","uptime":"two hours","trades_today":5,"pnl_today":"120.50"}`,
			wantErr: true,
		},
		{
			name:    "wrong type for trades_today",
			payload: `{"status":"running","uptime":"2h45m","trades_today":"5","pnl_today":"120.50"}`,
			wantErr: true,
		},
		{
			name:    "trailing data",
			payload: `{"status":"running","uptime":"2h45m","trades_today":5,"pnl_today":"120.50"}{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := DecodeStatus([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StateRunning, status.State)
			assert.Equal(t, 2*time.Hour+45*time.Minute, status.Uptime)
			assert.Equal(t, 5, status.TradesToday)
			assert.True(t, status.PnLToday.Equal(decimal.RequireFromString("120.50")))
		})
	}
}

func TestDecodeTrade(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid without pnl",
			payload: `{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"buy","price":"65000.1","size":"0.5"}`,
		},
		{
			name:    "valid with pnl",
			payload: `{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"sell","price":"65000.1","size":"0.5","pnl":"-3.2"}`,
		},
		{
			name:    "side outside enum",
			payload: `{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"hold","price":"65000.1","size":"0.5"}`,
			wantErr: true,
		},
		{
			name:    "missing symbol",
			payload: `{"timestamp":"2026-03-01T12:00:00Z","type":"buy","price":"65000.1","size":"0.5"}`,
			wantErr: true,
		},
		{
			name:    "zero price",
			payload: `{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"buy","price":"0","size":"0.5"}`,
			wantErr: true,
		},
		{
			name:    "negative size",
			payload: `{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"buy","price":"65000.1","size":"-0.5"}`,
			wantErr: true,
		},
		{
			name:    "timestamp not RFC 3339",
			payload: `{"timestamp":"01.03.2026 12:00","symbol":"BTC-USDT","type":"buy","price":"65000.1","size":"0.5"}`,
			wantErr: true,
		},
		{
			name:    "extra field",
			payload: `{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"buy","price":"65000.1","size":"0.5","fee":"0.01"}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			payload: `[1,2,3]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade, err := DecodeTrade([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "BTC-USDT", trade.Symbol)
			assert.True(t, trade.Price.Equal(decimal.RequireFromString("65000.1")))
		})
	}
}

func TestDecodeTradesRejectsWholeBatchOnOneBadRow(t *testing.T) {
	payload := `[
		{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"buy","price":"65000","size":"0.5"},
		{"timestamp":"2026-03-01T12:01:00Z","symbol":"ETH-USDT","type":"buy","price":"0","size":"1"}
	]`

	_, err := DecodeTrades([]byte(payload))
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
	assert.Contains(t, err.Error(), "index 1")
}

func TestDecodeTradesPreservesOrderAndPnL(t *testing.T) {
	payload := `[
		{"timestamp":"2026-03-01T12:01:00Z","symbol":"ETH-USDT","type":"sell","price":"3200","size":"1","pnl":"14.2"},
		{"timestamp":"2026-03-01T12:00:00Z","symbol":"BTC-USDT","type":"buy","price":"65000","size":"0.5"}
	]`

	trades, err := DecodeTrades([]byte(payload))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "ETH-USDT", trades[0].Symbol)
	require.NotNil(t, trades[0].PnL)
	assert.True(t, trades[0].PnL.Equal(decimal.RequireFromString("14.2")))

	assert.Equal(t, "BTC-USDT", trades[1].Symbol)
	assert.Nil(t, trades[1].PnL)
}

func TestDecodePerformance(t *testing.T) {
	valid := `{
		"total_trades":42,"winning_trades":25,"losing_trades":17,
		"total_pnl":"310.75","largest_win":"55.0","largest_loss":"-20.5",
		"average_win":"18.4","average_loss":"-9.1","win_rate":"59.52","risk_reward_ratio":"2.02",
		"positions":{"BTC-USDT":{"size":"0.5","entry_price":"64000","unrealized_pnl":"500.0"}}
	}`

	metrics, err := DecodePerformance([]byte(valid))
	require.NoError(t, err)
	assert.Equal(t, 42, metrics.TotalTrades)
	assert.True(t, metrics.TotalPnL.Equal(decimal.RequireFromString("310.75")))

	pos, ok := metrics.Positions["BTC-USDT"]
	require.True(t, ok)
	assert.Equal(t, "BTC-USDT", pos.Symbol)
	assert.True(t, pos.Size.Equal(decimal.RequireFromString("0.5")))
	assert.Zero(t, pos.Seq)

	t.Run("positions field required even when empty", func(t *testing.T) {
		noPositions := `{
			"total_trades":42,"winning_trades":25,"losing_trades":17,
			"total_pnl":"310.75","largest_win":"55.0","largest_loss":"-20.5",
			"average_win":"18.4","average_loss":"-9.1","win_rate":"59.52","risk_reward_ratio":"2.02"
		}`
		_, err := DecodePerformance([]byte(noPositions))
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
	})

	t.Run("bad position poisons payload", func(t *testing.T) {
		badPosition := `{
			"total_trades":42,"winning_trades":25,"losing_trades":17,
			"total_pnl":"310.75","largest_win":"55.0","largest_loss":"-20.5",
			"average_win":"18.4","average_loss":"-9.1","win_rate":"59.52","risk_reward_ratio":"2.02",
			"positions":{"BTC-USDT":{"entry_price":"64000","unrealized_pnl":"500.0"}}
		}`
		_, err := DecodePerformance([]byte(badPosition))
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
	})
}

func TestDecodeStreamPosition(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"symbol":"BTC-USDT","size":"1.5","entry_price":"64000","unrealized_pnl":"120","seq":2}`,
		},
		{
			name:    "zero size is a valid closure",
			payload: `{"symbol":"BTC-USDT","size":"0","entry_price":"64000","unrealized_pnl":"0","seq":3}`,
		},
		{
			name:    "missing seq",
			payload: `{"symbol":"BTC-USDT","size":"1.5","entry_price":"64000","unrealized_pnl":"120"}`,
			wantErr: true,
		},
		{
			name:    "negative seq",
			payload: `{"symbol":"BTC-USDT","size":"1.5","entry_price":"64000","unrealized_pnl":"120","seq":-1}`,
			wantErr: true,
		},
		{
			name:    "fractional seq",
			payload: `{"symbol":"BTC-USDT","size":"1.5","entry_price":"64000","unrealized_pnl":"120","seq":1.5}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := DecodeStreamPosition([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "BTC-USDT", pos.Symbol)
			assert.NotZero(t, pos.Seq)
		})
	}
}

func TestDecodeTick(t *testing.T) {
	t.Run("with volume", func(t *testing.T) {
		tick, err := DecodeTick([]byte(`{"symbol":"BTC-USDT","price":"65000","volume":"12.5","timestamp":"2026-03-01T12:00:00Z"}`))
		require.NoError(t, err)
		assert.Equal(t, "BTC-USDT", tick.Symbol)
		assert.True(t, tick.Volume.Equal(decimal.RequireFromString("12.5")))
	})

	t.Run("volume optional", func(t *testing.T) {
		tick, err := DecodeTick([]byte(`{"symbol":"BTC-USDT","price":"65000","timestamp":"2026-03-01T12:00:00Z"}`))
		require.NoError(t, err)
		assert.True(t, tick.Volume.IsZero())
	})

	t.Run("non-positive price rejected", func(t *testing.T) {
		_, err := DecodeTick([]byte(`{"symbol":"BTC-USDT","price":"-1","timestamp":"2026-03-01T12:00:00Z"}`))
		require.Error(t, err)
		assert.True(t, failure.IsKind(err, failure.SchemaMismatch))
	})
}
