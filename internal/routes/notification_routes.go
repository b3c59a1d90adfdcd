package routes

import (
	"github.com/gofiber/fiber/v2"

	"TractorMandi/internal/handlers"
	"TractorMandi/internal/middleware"
)

func SetupNotificationRoutes(app *fiber.App) {
	notification := app.Group("/api/notifications", middleware.Protected())

	// Get all my notifications
	notification.Get("/", handlers.GetMyNotifications)

	// Mark one as read
	notification.Put("/:id/read", handlers.MarkNotificationRead)
}
