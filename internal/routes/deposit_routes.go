package routes

import (
	"github.com/gofiber/fiber/v2"

	"TractorMandi/internal/handlers"
	"TractorMandi/internal/middleware"
)

func SetupDepositRoutes(app *fiber.App) {
	deposit := app.Group("/api/deposits", middleware.Protected())

	// Request an EMD for an auction
	deposit.Post("/", handlers.RequestDeposit)

	// Gateway callback: confirm payment (idempotent)
	deposit.Post("/:id/confirm", handlers.ConfirmDeposit)

	// Refund a deposit (admin)
	deposit.Post("/:id/refund", middleware.AdminOnly(), handlers.RefundDeposit)

	// Retry gateway refunds that failed (admin)
	deposit.Post("/retry-refunds", middleware.AdminOnly(), handlers.RetryFailedRefunds)

	// Get specific deposit
	deposit.Get("/:id", handlers.GetDeposit)
}
