// Package clients wraps the trading engine's HTTP API. The engine is the
// origin of all data; this client only reads from it.
package clients

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/botwatch/internal/domain"
	"github.com/vadiminshakov/botwatch/internal/failure"
	"github.com/vadiminshakov/botwatch/internal/wire"
)

const (
	statusPath      = "/api/status"
	tradesPath      = "/api/trades"
	performancePath = "/api/performance"

	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 4 << 20
)

// EngineClient fetches snapshot payloads from the trading engine.
type EngineClient struct {
	baseURL string
	http    *http.Client
}

// NewEngineClient creates a client for the engine API at baseURL.
func NewEngineClient(baseURL string) *EngineClient {
	return &EngineClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Status fetches and validates the engine status block.
func (c *EngineClient) Status(ctx context.Context) (domain.BotStatus, error) {
	body, err := c.get(ctx, statusPath)
	if err != nil {
		return domain.BotStatus{}, err
	}
	return wire.DecodeStatus(body)
}

// Trades fetches and validates the engine trade history.
func (c *EngineClient) Trades(ctx context.Context) ([]domain.Trade, error) {
	body, err := c.get(ctx, tradesPath)
	if err != nil {
		return nil, err
	}
	return wire.DecodeTrades(body)
}

// Performance fetches and validates the engine performance metrics, which
// carry the open positions known to the engine.
func (c *EngineClient) Performance(ctx context.Context) (domain.PerformanceMetrics, error) {
	body, err := c.get(ctx, performancePath)
	if err != nil {
		return domain.PerformanceMetrics{}, err
	}
	return wire.DecodePerformance(body)
}

func (c *EngineClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, failure.Transportf(err, "build request for %s", path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, failure.Transportf(err, "request %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure.Transportf(errors.Errorf("unexpected status %s", resp.Status), "request %s", path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, failure.Transportf(err, "read response body for %s", path)
	}
	return body, nil
}
