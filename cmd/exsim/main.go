package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fibonsai/exchange-simulator/internal/account"
	"github.com/fibonsai/exchange-simulator/internal/asset"
	"github.com/fibonsai/exchange-simulator/internal/config"
	"github.com/fibonsai/exchange-simulator/internal/event"
	"github.com/fibonsai/exchange-simulator/internal/eventsink"
	"github.com/fibonsai/exchange-simulator/internal/infra"
	"github.com/fibonsai/exchange-simulator/internal/logging"
	"github.com/fibonsai/exchange-simulator/internal/metrics"
	"github.com/fibonsai/exchange-simulator/internal/routes"
	"github.com/fibonsai/exchange-simulator/internal/server"
	"github.com/fibonsai/exchange-simulator/internal/simulation"
	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, App: cfg.AppName})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exsim exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("exsim exited cleanly")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	catalog := asset.NewCatalog(cfg.DefaultAsset)
	if err := catalog.Init(); err != nil {
		return fmt.Errorf("load assets: %w", err)
	}
	if _, err := catalog.Default(); err != nil {
		return fmt.Errorf("default asset %s: %w", cfg.DefaultAsset, err)
	}

	var wallets *wallet.Service
	m := metrics.New(func() int { return wallets.Len() })
	wallets = wallet.NewService(catalog, logger,
		wallet.WithEventOptions(
			event.WithBufferSize(cfg.EventBufferSize),
			event.WithDeliveryTimeout(cfg.DeliveryTimeout),
		),
		wallet.WithObserver(m),
	)
	if len(cfg.SingleAddressAssets) > 0 {
		wallets.SingleAddressAssets(cfg.SingleAddressAssets...)
	}
	accounts := account.NewService(wallets, logger)

	sinks := []eventsink.Sink{eventsink.NewLogSink(logger)}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL, infra.WithClientName(cfg.AppName))
		if err != nil {
			if !cfg.IsDev() {
				return fmt.Errorf("connect redis: %w", err)
			}
			logger.Warn("redis unavailable, continuing without it", "error", err)
		} else {
			cache = client
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Warn("close redis", "error", err)
				}
			}()
			sinks = append(sinks, eventsink.NewRedisPublisher(cache, cfg.RedisEventsChannel))
		}
	}

	if cfg.NATSURL != "" {
		nc, err := eventsink.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		sinks = append(sinks, eventsink.NewNATSPublisher(nc, cfg.NATSSubject))
	}

	deps := routes.Deps{
		Cfg:      cfg,
		Logger:   logger,
		Wallets:  wallets,
		Accounts: accounts,
		Assets:   catalog,
		Metrics:  m,
	}
	if cache != nil {
		deps.Cache = cache
	}
	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Forward follows the stream across resets: a completed stream is
	// replaced by a subscription to the fresh one.
	g.Go(func() error {
		for {
			err := eventsink.Forward(gctx, wallets.Events(gctx), logger, sinks...)
			if gctx.Err() != nil {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})

	if cfg.SimulatedAccounts > 0 {
		g.Go(func() error {
			_, err := simulation.Setup{
				Wallets:  wallets,
				Accounts: accounts,
				Logger:   logger,
				Count:    cfg.SimulatedAccounts,
				Deposit:  decimal.NewNullDecimal(cfg.SimulatedDeposit),
			}.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Address())
		return srv.Listen()
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
