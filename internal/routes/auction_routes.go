package routes

import (
	"github.com/gofiber/fiber/v2"

	"TractorMandi/internal/handlers"
	"TractorMandi/internal/middleware"
)

func SetupAuctionRoutes(app *fiber.App) {
	auction := app.Group("/api/auctions", middleware.Protected())

	// Create auction for an approved vehicle (admin)
	auction.Post("/", middleware.AdminOnly(), handlers.CreateAuction)

	// End auction explicitly (admin); scheduler does the same on its own
	auction.Post("/:id/end", middleware.AdminOnly(), handlers.EndAuction)

	// Place a bid (requires a paid deposit)
	auction.Post("/:id/bids", handlers.PlaceBid)

	// Read side
	auction.Get("/:id", handlers.GetAuction)
	auction.Get("/:id/bids", handlers.GetAuctionBids)
}
