// Package snapshot fetches point-in-time full state from the trading engine.
package snapshot

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/botwatch/internal/domain"
)

// EngineAPI is the subset of the engine client the loader needs.
type EngineAPI interface {
	Status(ctx context.Context) (domain.BotStatus, error)
	Trades(ctx context.Context) ([]domain.Trade, error)
	Performance(ctx context.Context) (domain.PerformanceMetrics, error)
}

// Loader issues the three snapshot fetches as one atomic triple: if any of
// them fails, the other results are discarded so a partial status+trades+
// performance trio is never applied.
type Loader struct {
	api EngineAPI
	l   *zap.Logger
}

// NewLoader creates a snapshot loader on top of the engine API.
func NewLoader(api EngineAPI, logger *zap.Logger) *Loader {
	return &Loader{api: api, l: logger}
}

// Load fetches status, trades and performance concurrently and returns the
// normalized snapshot, or the first typed failure encountered.
func (l *Loader) Load(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status, err := l.api.Status(gctx)
		if err != nil {
			return err
		}
		snap.Status = status
		return nil
	})
	g.Go(func() error {
		trades, err := l.api.Trades(gctx)
		if err != nil {
			return err
		}
		snap.Trades = trades
		return nil
	})
	g.Go(func() error {
		performance, err := l.api.Performance(gctx)
		if err != nil {
			return err
		}
		snap.Performance = performance
		return nil
	})

	if err := g.Wait(); err != nil {
		l.l.Warn("snapshot load failed, discarding partial results", zap.Error(err))
		return domain.Snapshot{}, err
	}
	return snap, nil
}
