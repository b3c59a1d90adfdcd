package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"TractorMandi/internal/database"
	"TractorMandi/internal/handlers"
	"TractorMandi/internal/routes"
	"TractorMandi/internal/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	log.Printf("🔍 Environment:")
	log.Printf("   DB_HOST: '%s'", os.Getenv("DB_HOST"))
	log.Printf("   JWT_SECRET: '%s'", maskSecret(os.Getenv("JWT_SECRET")))
	log.Printf("   RAZORPAY_KEY_ID: '%s'", os.Getenv("RAZORPAY_KEY_ID"))
	log.Printf("   RAZORPAY_KEY_SECRET: '%s'", maskSecret(os.Getenv("RAZORPAY_KEY_SECRET")))
	log.Printf("   RESEND_API_KEY: '%s'", maskSecret(os.Getenv("RESEND_API_KEY")))

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("❌ Failed to migrate database:", err)
	}
	log.Println("✅ Database connected and migrated successfully")

	// Select the payment gateway at startup. Business logic only ever sees
	// the PaymentProvider interface.
	var gateway services.PaymentProvider
	if os.Getenv("RAZORPAY_KEY_ID") != "" && os.Getenv("RAZORPAY_KEY_SECRET") != "" {
		gateway = services.NewRazorpayProvider()
		log.Println("✅ Razorpay gateway configured")
	} else {
		gateway = services.NewFakeProvider(os.Getenv("FAKE_GATEWAY_SECRET"))
		log.Println("⚠️  No gateway credentials found — running with the in-memory fake gateway (test mode)")
	}

	// Wire the settlement core
	emailService := services.NewEmailService()
	notifier := services.NewNotificationService(database.DB, emailService)
	auditService := services.NewAuditService(database.DB)
	depositService := services.NewDepositService(database.DB, gateway, auditService, notifier)
	bidService := services.NewBidService(database.DB, auditService, notifier)
	auctionService := services.NewAuctionService(database.DB, depositService, auditService, notifier)
	escrowService := services.NewEscrowService(database.DB, gateway, auditService, notifier)

	handlers.InitServices(auctionService, bidService, depositService, escrowService, auditService)

	// Start the auction lifecycle scheduler
	scheduler := services.NewScheduler(auctionService, 30*time.Second)
	scheduler.Start()
	defer scheduler.Stop()
	log.Println("✅ Auction scheduler started")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:   "TractorMandi API v1.0",
		BodyLimit: 10 * 1024 * 1024,
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to TractorMandi API",
			"status":  "running",
			"version": "1.0",
		})
	})

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "TractorMandi",
		})
	})

	// Setup application routes
	routes.SetupAuctionRoutes(app)
	routes.SetupDepositRoutes(app)
	routes.SetupEscrowRoutes(app)
	routes.SetupAuditRoutes(app)
	routes.SetupNotificationRoutes(app)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 TractorMandi server starting on http://localhost:%s", port)
	log.Fatal(app.Listen(":" + port))
}

// Helper function to mask sensitive data in logs
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
