// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"tourneypay/internal/handlers"
	"tourneypay/internal/middleware"
	"tourneypay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers are the constructed HTTP handlers the router mounts.
type Handlers struct {
	Auth    *middleware.AuthMiddleware
	Wallet  *handlers.WalletHandler
	History *handlers.HistoryHandler
	Admin   *handlers.AdminHandler
	Health  *handlers.HealthHandler

	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.HealthCheck)
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.Metrics, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", h.Auth.Handler)

	setupWalletRoutes(api, h)
	setupAdminRoutes(api, h)
}

func setupWalletRoutes(router fiber.Router, h Handlers) {
	read := middleware.HasPermission(models.PermissionWalletRead)
	write := middleware.HasPermission(models.PermissionWalletWrite)

	wallet := router.Group("/wallet")
	wallet.Get("/", read, h.Wallet.GetWallet)
	wallet.Get("/balance", read, h.Wallet.GetBalance)
	wallet.Get("/stats", read, h.History.GetStats)
	wallet.Get("/transactions", read, h.History.GetTransactions)
	wallet.Get("/transactions/ref/:reference", read, h.History.GetByReference)

	wallet.Post("/deposit", write, h.Wallet.Deposit)
	wallet.Post("/withdraw", write, h.Wallet.Withdraw)
	wallet.Post("/transfer", write, h.Wallet.Transfer)
	wallet.Post("/donate", write, h.Wallet.Donate)
}

func setupAdminRoutes(router fiber.Router, h Handlers) {
	admin := router.Group("/admin", middleware.AdminAuthMiddleware)

	donations := admin.Group("/donations", middleware.HasPermission(models.PermissionReadAdmin))
	donations.Get("/overview", h.Admin.DonationOverview)
	donations.Get("/top-receivers", h.Admin.TopReceivers)
	donations.Get("/top-donators", h.Admin.TopDonators)

	admin.Get("/transactions/totals", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.TypeTotals)
	admin.Get("/cache/stats", middleware.HasPermission(models.PermissionReadAdmin), h.Health.CacheStats)

	write := middleware.HasPermission(models.PermissionWriteAdmin)
	admin.Post("/wallets/:userId/freeze", write, h.Admin.FreezeWallet)
	admin.Post("/wallets/:userId/unfreeze", write, h.Admin.UnfreezeWallet)
	admin.Post("/reconcile", write, h.Admin.Reconcile)
}
