package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/curvemarket/internal/notify"
	"github.com/alanyoungcy/curvemarket/internal/server"
	"github.com/alanyoungcy/curvemarket/internal/server/handler"
	"github.com/alanyoungcy/curvemarket/internal/server/ws"
	"github.com/alanyoungcy/curvemarket/internal/service"
)

// ServerMode runs the HTTP + WebSocket API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startAPI(ctx, g, deps)
	return g.Wait()
}

// MonitorMode tails the durable trade stream and forwards entries to the
// configured notification channels. No API is served.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.tailTradeStream(ctx, deps)
	})
	return g.Wait()
}

// FullMode runs the API and the trade-stream monitor together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startAPI(ctx, g, deps)
	g.Go(func() error {
		return a.tailTradeStream(ctx, deps)
	})
	return g.Wait()
}

// startAPI builds the service layer, registers all HTTP routes, and adds the
// server and WebSocket hub goroutines to g.
func (a *App) startAPI(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	clock := service.NewSlotClock(
		a.cfg.SlotGenesisTime(time.Now().UTC()),
		a.cfg.Engine.SlotDuration.Duration,
	)

	adminSvc := service.NewAdminService(deps.Stores, deps.Tx, a.logger)
	marketSvc := service.NewMarketService(deps.Stores, deps.Tx, deps.MarketCache, deps.SignalBus, clock, a.logger)
	tradeSvc := service.NewTradeService(
		deps.Stores, deps.Tx, deps.MarketCache, deps.LockManager,
		deps.RateLimiter, deps.SignalBus, clock, a.logger,
		a.cfg.Engine.TradeRateLimit, a.cfg.Engine.TradeRateWindow.Duration,
	)
	liquiditySvc := service.NewLiquidityService(
		deps.Stores, deps.Tx, deps.MarketCache, deps.LockManager, deps.SignalBus, a.logger,
	)
	settlementSvc := service.NewSettlementService(
		deps.Stores, deps.Tx, deps.MarketCache, deps.LockManager, deps.SignalBus,
		deps.Notifier, deps.Archiver, a.logger,
	)

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimiter:     deps.RateLimiter,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Admin:      handler.NewAdminHandler(adminSvc, a.logger),
		Markets:    handler.NewMarketHandler(marketSvc, a.logger),
		Trades:     handler.NewTradeHandler(tradeSvc, a.logger),
		Liquidity:  handler.NewLiquidityHandler(liquiditySvc, a.logger),
		Resolution: handler.NewResolutionHandler(settlementSvc, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// monitorPollInterval is the backoff after a failed stream read.
const monitorPollInterval = 2 * time.Second

// tailTradeStream reads the durable trade stream from its tail and forwards
// each entry to the notifier. Stream IDs persist across restarts only within
// this process; a fresh monitor starts from new entries.
func (a *App) tailTradeStream(ctx context.Context, deps *Dependencies) error {
	lastID := "$"
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := deps.SignalBus.StreamRead(ctx, service.StreamTrades, lastID, 100)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.WarnContext(ctx, "monitor: stream read failed",
				slog.String("stream", service.StreamTrades),
				slog.String("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(monitorPollInterval):
			}
			continue
		}

		if len(msgs) == 0 {
			// StreamRead already blocked waiting for entries.
			continue
		}

		for _, msg := range msgs {
			lastID = msg.ID
			a.logger.InfoContext(ctx, "monitor: trade observed",
				slog.String("stream_id", msg.ID),
				slog.String("payload", string(msg.Payload)),
			)
			if deps.Notifier != nil {
				if err := deps.Notifier.Notify(ctx, notify.EventTrade, "Trade executed", string(msg.Payload)); err != nil {
					a.logger.WarnContext(ctx, "monitor: notify failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}
