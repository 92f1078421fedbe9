// Command botwatch runs the monitoring core for a trading engine: it keeps a
// single consistent, deduplicated view of bot status, open positions and
// trade history, reconciled from the engine's snapshot API and push channel,
// and serves it to the operator over HTTP/SSE.
//
// Usage:
//
//	botwatch --config config.yaml
//	botwatch --engine-url http://127.0.0.1:5000 --stream-url ws://127.0.0.1:5000/stream
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/botwatch/config"
	"github.com/vadiminshakov/botwatch/internal/clients"
	"github.com/vadiminshakov/botwatch/internal/services/reconciler"
	"github.com/vadiminshakov/botwatch/internal/services/resync"
	"github.com/vadiminshakov/botwatch/internal/services/snapshot"
	"github.com/vadiminshakov/botwatch/internal/services/stream"
	"github.com/vadiminshakov/botwatch/internal/web"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := clients.NewEngineClient(cfg.EngineURL)
	loader := snapshot.NewLoader(engine, logger.Named("snapshot"))

	rec := reconciler.New(reconciler.Config{
		TradeWindow:       cfg.TradeWindow,
		AlertWindow:       cfg.AlertWindow,
		PriceAlertPercent: cfg.PriceAlertPercent,
		VolumeAlertRatio:  cfg.VolumeAlertRatio,
	}, logger.Named("reconciler"))

	scheduler := resync.NewScheduler(loader, rec.Inbox(), cfg.ResyncInterval, logger.Named("resync"))
	ingestor := stream.NewIngestor(cfg.StreamURL, rec.Inbox(), scheduler.Trigger, logger.Named("stream"),
		stream.WithBackoff(cfg.MinBackoff, cfg.MaxBackoff))
	server := web.NewServer(cfg.ListenAddr, rec, logger.Named("web"))

	logger.Info("botwatch starting",
		zap.String("engine_url", cfg.EngineURL),
		zap.String("stream_url", cfg.StreamURL),
		zap.String("listen", cfg.ListenAddr),
		zap.Duration("resync_interval", cfg.ResyncInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rec.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return ingestor.Run(gctx) })
	g.Go(func() error { return server.Start(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("botwatch stopped with error", zap.Error(err))
	}
	logger.Info("botwatch stopped")
}
