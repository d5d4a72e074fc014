package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fibonsai/exchange-simulator/internal/account"
	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

// RegisterWalletRoutes wires wallet, constraint and admin endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:owner", h.List)
	r.Get("/wallets/:owner/assets/:symbol", h.ByAsset)
	r.Get("/wallets/:owner/:address", h.ByAddress)
	r.Put("/wallets/:owner/:address/state", h.SetState)
	r.Post("/wallets/:owner/:address/deposit", h.Deposit)
	r.Post("/wallets/:owner/:address/withdraw", h.Withdraw)

	r.Put("/constraints/single-address", h.SingleAddress)
	r.Post("/admin/reset", h.Reset)
}

// RegisterAccountRoutes wires account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Add)
}
