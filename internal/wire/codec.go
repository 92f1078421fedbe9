// Package wire decodes the trading engine's JSON payloads into domain
// entities. The same entity shapes travel over the snapshot endpoints and the
// push channel, so both layers share one codec. Decoding is strict: unknown
// fields, missing fields and wrong types are all schema mismatches, and
// numbers never pass through float64 on their way into decimals.
package wire

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/botwatch/internal/domain"
	"github.com/vadiminshakov/botwatch/internal/failure"
)

type statusDTO struct {
	Status      *string      `json:"status"`
	Uptime      *string      `json:"uptime"`
	TradesToday *json.Number `json:"trades_today"`
	PnLToday    *json.Number `json:"pnl_today"`
}

type tradeDTO struct {
	Timestamp *string      `json:"timestamp"`
	Symbol    *string      `json:"symbol"`
	Type      *string      `json:"type"`
	Price     *json.Number `json:"price"`
	Size      *json.Number `json:"size"`
	PnL       *json.Number `json:"pnl,omitempty"`
}

type performanceDTO struct {
	TotalTrades     *json.Number           `json:"total_trades"`
	WinningTrades   *json.Number           `json:"winning_trades"`
	LosingTrades    *json.Number           `json:"losing_trades"`
	TotalPnL        *json.Number           `json:"total_pnl"`
	LargestWin      *json.Number           `json:"largest_win"`
	LargestLoss     *json.Number           `json:"largest_loss"`
	AverageWin      *json.Number           `json:"average_win"`
	AverageLoss     *json.Number           `json:"average_loss"`
	WinRate         *json.Number           `json:"win_rate"`
	RiskRewardRatio *json.Number           `json:"risk_reward_ratio"`
	Positions       map[string]positionDTO `json:"positions"`
}

type positionDTO struct {
	Size          *json.Number `json:"size"`
	EntryPrice    *json.Number `json:"entry_price"`
	UnrealizedPnL *json.Number `json:"unrealized_pnl"`
}

type streamPositionDTO struct {
	Symbol        *string      `json:"symbol"`
	Size          *json.Number `json:"size"`
	EntryPrice    *json.Number `json:"entry_price"`
	UnrealizedPnL *json.Number `json:"unrealized_pnl"`
	Seq           *json.Number `json:"seq"`
}

type tickDTO struct {
	Symbol    *string      `json:"symbol"`
	Price     *json.Number `json:"price"`
	Volume    *json.Number `json:"volume,omitempty"`
	Timestamp *string      `json:"timestamp"`
}

// decodeStrict rejects unknown fields, trailing data and any non-JSON noise.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func requireDecimal(n *json.Number, field string) (decimal.Decimal, error) {
	if n == nil {
		return decimal.Decimal{}, errors.Errorf("missing field %q", field)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "field %q is not a number", field)
	}
	return d, nil
}

func requireInt(n *json.Number, field string) (int, error) {
	if n == nil {
		return 0, errors.Errorf("missing field %q", field)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, errors.Wrapf(err, "field %q is not an integer", field)
	}
	return int(i), nil
}

func requireString(s *string, field string) (string, error) {
	if s == nil {
		return "", errors.Errorf("missing field %q", field)
	}
	return *s, nil
}

func requireTime(s *string, field string) (time.Time, error) {
	raw, err := requireString(s, field)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "field %q is not an RFC 3339 timestamp", field)
	}
	return ts, nil
}

// DecodeStatus parses the /api/status payload.
func DecodeStatus(data []byte) (domain.BotStatus, error) {
	var dto statusDTO
	if err := decodeStrict(data, &dto); err != nil {
		return domain.BotStatus{}, failure.Schema(err, "decode status")
	}

	rawState, err := requireString(dto.Status, "status")
	if err != nil {
		return domain.BotStatus{}, failure.Schema(err, "decode status")
	}
	state, err := domain.ParseOperatingState(rawState)
	if err != nil {
		return domain.BotStatus{}, failure.Schema(err, "decode status")
	}

	rawUptime, err := requireString(dto.Uptime, "uptime")
	if err != nil {
		return domain.BotStatus{}, failure.Schema(err, "decode status")
	}
	uptime, err := time.ParseDuration(rawUptime)
	if err != nil {
		return domain.BotStatus{}, failure.Schemaf(err, "field %q is not a duration", "uptime")
	}

	tradesToday, err := requireInt(dto.TradesToday, "trades_today")
	if err != nil {
		return domain.BotStatus{}, failure.Schema(err, "decode status")
	}
	if tradesToday < 0 {
		return domain.BotStatus{}, failure.Schemaf(errors.Errorf("got %d", tradesToday), "field %q must be non-negative", "trades_today")
	}

	pnlToday, err := requireDecimal(dto.PnLToday, "pnl_today")
	if err != nil {
		return domain.BotStatus{}, failure.Schema(err, "decode status")
	}

	return domain.BotStatus{
		State:       state,
		Uptime:      uptime,
		TradesToday: tradesToday,
		PnLToday:    pnlToday,
	}, nil
}

// DecodeTrade parses a single trade payload, shared by the /api/trades rows
// and the stream's trade events.
func DecodeTrade(data []byte) (domain.Trade, error) {
	var dto tradeDTO
	if err := decodeStrict(data, &dto); err != nil {
		return domain.Trade{}, failure.Schema(err, "decode trade")
	}
	return tradeFromDTO(dto)
}

// DecodeTrades parses the /api/trades array.
func DecodeTrades(data []byte) ([]domain.Trade, error) {
	var dtos []tradeDTO
	if err := decodeStrict(data, &dtos); err != nil {
		return nil, failure.Schema(err, "decode trades")
	}

	trades := make([]domain.Trade, 0, len(dtos))
	for i, dto := range dtos {
		trade, err := tradeFromDTO(dto)
		if err != nil {
			return nil, errors.Wrapf(err, "trade at index %d", i)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func tradeFromDTO(dto tradeDTO) (domain.Trade, error) {
	ts, err := requireTime(dto.Timestamp, "timestamp")
	if err != nil {
		return domain.Trade{}, failure.Schema(err, "decode trade")
	}

	symbol, err := requireString(dto.Symbol, "symbol")
	if err != nil {
		return domain.Trade{}, failure.Schema(err, "decode trade")
	}

	rawSide, err := requireString(dto.Type, "type")
	if err != nil {
		return domain.Trade{}, failure.Schema(err, "decode trade")
	}
	side, err := domain.ParseSide(rawSide)
	if err != nil {
		return domain.Trade{}, failure.Schema(err, "decode trade")
	}

	price, err := requireDecimal(dto.Price, "price")
	if err != nil {
		return domain.Trade{}, failure.Schema(err, "decode trade")
	}
	if !price.IsPositive() {
		return domain.Trade{}, failure.Schemaf(errors.Errorf("got %s", price), "field %q must be positive", "price")
	}

	size, err := requireDecimal(dto.Size, "size")
	if err != nil {
		return domain.Trade{}, failure.Schema(err, "decode trade")
	}
	if !size.IsPositive() {
		return domain.Trade{}, failure.Schemaf(errors.Errorf("got %s", size), "field %q must be positive", "size")
	}

	trade := domain.Trade{
		Timestamp: ts,
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Size:      size,
	}
	if dto.PnL != nil {
		pnl, err := requireDecimal(dto.PnL, "pnl")
		if err != nil {
			return domain.Trade{}, failure.Schema(err, "decode trade")
		}
		trade.PnL = &pnl
	}
	return trade, nil
}

// DecodePerformance parses the /api/performance payload, including the open
// positions keyed by symbol.
func DecodePerformance(data []byte) (domain.PerformanceMetrics, error) {
	var dto performanceDTO
	if err := decodeStrict(data, &dto); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if dto.Positions == nil {
		return domain.PerformanceMetrics{}, failure.Schemaf(errors.New("missing field"), "field %q is required", "positions")
	}

	var (
		metrics domain.PerformanceMetrics
		err     error
	)
	if metrics.TotalTrades, err = requireInt(dto.TotalTrades, "total_trades"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.WinningTrades, err = requireInt(dto.WinningTrades, "winning_trades"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.LosingTrades, err = requireInt(dto.LosingTrades, "losing_trades"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.TotalPnL, err = requireDecimal(dto.TotalPnL, "total_pnl"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.LargestWin, err = requireDecimal(dto.LargestWin, "largest_win"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.LargestLoss, err = requireDecimal(dto.LargestLoss, "largest_loss"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.AverageWin, err = requireDecimal(dto.AverageWin, "average_win"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.AverageLoss, err = requireDecimal(dto.AverageLoss, "average_loss"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.WinRate, err = requireDecimal(dto.WinRate, "win_rate"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}
	if metrics.RiskRewardRatio, err = requireDecimal(dto.RiskRewardRatio, "risk_reward_ratio"); err != nil {
		return domain.PerformanceMetrics{}, failure.Schema(err, "decode performance")
	}

	metrics.Positions = make(map[string]domain.Position, len(dto.Positions))
	for symbol, p := range dto.Positions {
		pos, err := positionFromDTO(symbol, p)
		if err != nil {
			return domain.PerformanceMetrics{}, errors.Wrapf(err, "position %q", symbol)
		}
		metrics.Positions[symbol] = pos
	}
	return metrics, nil
}

func positionFromDTO(symbol string, dto positionDTO) (domain.Position, error) {
	size, err := requireDecimal(dto.Size, "size")
	if err != nil {
		return domain.Position{}, failure.Schema(err, "decode position")
	}
	entryPrice, err := requireDecimal(dto.EntryPrice, "entry_price")
	if err != nil {
		return domain.Position{}, failure.Schema(err, "decode position")
	}
	unrealized, err := requireDecimal(dto.UnrealizedPnL, "unrealized_pnl")
	if err != nil {
		return domain.Position{}, failure.Schema(err, "decode position")
	}
	return domain.Position{
		Symbol:        symbol,
		Size:          size,
		EntryPrice:    entryPrice,
		UnrealizedPnL: unrealized,
	}, nil
}

// DecodeStreamPosition parses the stream's position event payload, which adds
// the sequence marker to the snapshot position shape.
func DecodeStreamPosition(data []byte) (domain.Position, error) {
	var dto streamPositionDTO
	if err := decodeStrict(data, &dto); err != nil {
		return domain.Position{}, failure.Schema(err, "decode position event")
	}

	symbol, err := requireString(dto.Symbol, "symbol")
	if err != nil {
		return domain.Position{}, failure.Schema(err, "decode position event")
	}
	pos, err := positionFromDTO(symbol, positionDTO{
		Size:          dto.Size,
		EntryPrice:    dto.EntryPrice,
		UnrealizedPnL: dto.UnrealizedPnL,
	})
	if err != nil {
		return domain.Position{}, err
	}

	if dto.Seq == nil {
		return domain.Position{}, failure.Schemaf(errors.New("missing field"), "field %q is required", "seq")
	}
	seq, err := dto.Seq.Int64()
	if err != nil || seq < 0 {
		return domain.Position{}, failure.Schemaf(errors.Errorf("got %s", dto.Seq.String()), "field %q must be a non-negative integer", "seq")
	}
	pos.Seq = uint64(seq)
	return pos, nil
}

// DecodeTick parses the stream's market_data event payload.
func DecodeTick(data []byte) (domain.MarketTick, error) {
	var dto tickDTO
	if err := decodeStrict(data, &dto); err != nil {
		return domain.MarketTick{}, failure.Schema(err, "decode market tick")
	}

	symbol, err := requireString(dto.Symbol, "symbol")
	if err != nil {
		return domain.MarketTick{}, failure.Schema(err, "decode market tick")
	}
	price, err := requireDecimal(dto.Price, "price")
	if err != nil {
		return domain.MarketTick{}, failure.Schema(err, "decode market tick")
	}
	if !price.IsPositive() {
		return domain.MarketTick{}, failure.Schemaf(errors.Errorf("got %s", price), "field %q must be positive", "price")
	}
	ts, err := requireTime(dto.Timestamp, "timestamp")
	if err != nil {
		return domain.MarketTick{}, failure.Schema(err, "decode market tick")
	}

	tick := domain.MarketTick{
		Symbol:    symbol,
		Price:     price,
		Timestamp: ts,
	}
	if dto.Volume != nil {
		volume, err := requireDecimal(dto.Volume, "volume")
		if err != nil {
			return domain.MarketTick{}, failure.Schema(err, "decode market tick")
		}
		tick.Volume = volume
	}
	return tick, nil
}
