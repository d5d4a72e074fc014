package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/fibonsai/exchange-simulator/internal/account"
	"github.com/fibonsai/exchange-simulator/internal/config"
	"github.com/fibonsai/exchange-simulator/internal/metrics"
	"github.com/fibonsai/exchange-simulator/internal/middleware"
	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Cache    redis.UniversalClient
	Logger   *slog.Logger
	Wallets  *wallet.Service
	Accounts *account.Service
	Assets   wallet.AssetResolver
	Metrics  *metrics.Metrics
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Wallets == nil || d.Accounts == nil || d.Assets == nil {
		return fmt.Errorf("routes: wallet, account and asset services are required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(middleware.IdempotencyConfig{
			Cache:    d.Cache,
			TTL:      d.Cfg.IdempotencyTTL,
			Logger:   d.Logger,
			Required: !d.Cfg.IsDev(),
		}))
	}

	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAccountRoutes(api, account.NewHandler(d.Accounts))
	RegisterWalletRoutes(api, wallet.NewHandler(d.Wallets, d.Assets))

	return nil
}
