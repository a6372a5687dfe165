package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simtrade/config"
	"simtrade/internal/ledger"
	"simtrade/internal/leaderboard"
	"simtrade/internal/marketdata"
	"simtrade/internal/pricing"
	"simtrade/internal/replay"
	"simtrade/internal/server"
	"simtrade/logger"
	"simtrade/pkg/simfeed"
	"simtrade/pkg/storage/postgres"
)

const broadcastTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trading-game server",
	Long: `Serve starts the HTTP and websocket surfaces. In replay mode prices come
from the postgres archive on a virtual clock; in live mode they come from
the external simulation's REST endpoint with day advances pushed over its
websocket feed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	pg, err := postgres.Initialize(cfg.Postgres, cfg.Log.Environment, true)
	if err != nil {
		return err
	}
	defer pg.Close()

	store := postgres.NewLedgerStore(pg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		base  marketdata.Provider
		clock *replay.Clock
		feed  *simfeed.Feed
	)
	switch cfg.Mode {
	case config.ModeReplay:
		clock, err = replay.LoadClock(ctx, pg, cfg.Replay.MsPerDay)
		if err != nil {
			return err
		}
		base = marketdata.NewReplayProvider(pg, clock, cfg.Replay.MaxRows)
		log.Info("replay mode",
			zap.Int("days", clock.Status().TotalDates),
			zap.Int64("msPerDay", cfg.Replay.MsPerDay))
	case config.ModeLive:
		client := simfeed.NewClient(cfg.Sim.REST.BaseURL, cfg.Sim.REST.Timeout)
		base = marketdata.NewLiveProvider(client)
		feed = simfeed.NewFeed(cfg.Sim.Feed.URL, cfg.Sim.Feed.HandshakeTimeout, log)
		log.Info("live mode",
			zap.String("rest", cfg.Sim.REST.BaseURL),
			zap.String("feed", cfg.Sim.Feed.URL))
	}

	cached := marketdata.NewCachedProvider(base, cfg.Cache.SeriesTTL, cfg.Cache.MetadataTTL)
	priceEngine := pricing.NewEngine(cached, log)
	ledgerEngine := ledger.NewEngine(store, server.LedgerPriceFunc(priceEngine), cfg.Trade.Cooldown, log)
	board := leaderboard.New(store, priceEngine.PriceOf, log)
	hub := server.NewHub(log)

	notifier := marketdata.NewNotifier(log, cached.InvalidateAll,
		server.DayBroadcast(hub, cached, priceEngine, log, broadcastTimeout))

	if clock != nil {
		go notifier.RunPolling(ctx, clock, cfg.Replay.PollInterval)
	} else {
		feed.SetDayHandler(notifier.Observe)
		go feed.Listen(ctx)
	}

	health := func(hctx context.Context) error {
		if !pg.IsHealthy(hctx) {
			return errors.New("database unreachable")
		}
		if cfg.Mode == config.ModeLive {
			if _, serr := cached.Status(hctx); serr != nil {
				return serr
			}
		}
		return nil
	}

	srv := server.New(cfg.Server.Addr, server.Deps{
		Logger:   log,
		Provider: cached,
		Pricing:  priceEngine,
		Ledger:   ledgerEngine,
		Store:    store,
		Board:    board,
		Hub:      hub,
		Clock:    clock,
		Health:   health,
	})

	errCh := make(chan error, 1)
	go func() {
		if serr := srv.Start(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	select {
	case <-ctx.Done():
	case serr := <-errCh:
		return serr
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", zap.Error(serr))
	}
	hub.Close()
	return nil
}
