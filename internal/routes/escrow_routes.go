package routes

import (
	"github.com/gofiber/fiber/v2"

	"TractorMandi/internal/handlers"
	"TractorMandi/internal/middleware"
)

func SetupEscrowRoutes(app *fiber.App) {
	escrow := app.Group("/api/escrows", middleware.Protected())

	// Create escrow for a purchase
	escrow.Post("/", handlers.CreateEscrow)

	// Gateway callback: confirm the buyer's payment (idempotent)
	escrow.Post("/:id/confirm", handlers.ConfirmEscrowPayment)

	// Release funds to seller (admin)
	escrow.Post("/:id/release", middleware.AdminOnly(), handlers.ReleaseEscrow)

	// Refund funds to buyer (admin)
	escrow.Post("/:id/refund", middleware.AdminOnly(), handlers.RefundEscrow)

	// Raise a dispute (buyer or seller)
	escrow.Post("/:id/dispute", handlers.RaiseDispute)

	// Get specific escrow
	escrow.Get("/:id", handlers.GetEscrow)
}
