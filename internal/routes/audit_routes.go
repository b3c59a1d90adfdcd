package routes

import (
	"github.com/gofiber/fiber/v2"

	"TractorMandi/internal/handlers"
	"TractorMandi/internal/middleware"
)

func SetupAuditRoutes(app *fiber.App) {
	audit := app.Group("/api/audit", middleware.Protected(), middleware.AdminOnly())

	// Verify a stream's hash chain
	audit.Get("/:stream/verify", handlers.VerifyAuditChain)

	// List a stream's records
	audit.Get("/:stream", handlers.GetAuditRecords)
}
