package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/rgtransmissoes/whatsapp-backend/database"
	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
	"github.com/rgtransmissoes/whatsapp-backend/internal/routes"
	"github.com/rgtransmissoes/whatsapp-backend/internal/services"
	"github.com/rgtransmissoes/whatsapp-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found - checking environment variables")
	}

	if os.Getenv("EVOLUTION_API_URL") == "" || os.Getenv("EVOLUTION_API_KEY") == "" {
		log.Println("⚠️  Evolution API credentials not found - WhatsApp features will be limited")
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Conversation{},
			&models.Message{},
			&models.ConversationState{},
			&models.BotConfig{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
	}
	storage.SetStore(store)

	// Initialize gateway client
	evolutionService, err := services.NewEvolutionService()
	if err != nil {
		log.Printf("⚠️  Evolution service not initialized: %v", err)
	} else {
		services.SetEvolutionService(evolutionService)
		log.Println("✅ Evolution gateway client initialized")
	}

	// Initialize conversation services
	flow := services.NewFlow()
	var gateway services.GatewaySender
	if evolutionService != nil {
		gateway = evolutionService
	}
	dispatcher := services.NewDispatcher(store, gateway)
	whatsappService := services.NewWhatsAppService(store, flow, dispatcher)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "RG Transmissões WhatsApp Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Key",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Root endpoint with service status
	app.Get("/", func(c *fiber.Ctx) error {
		response := fiber.Map{
			"service": "RG Transmissões WhatsApp Backend",
			"version": "1.0.0",
			"status":  "healthy",
			"gateway": fiber.Map{
				"configured": evolutionService != nil,
			},
		}

		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			dbStatus := "connected"
			if err != nil {
				dbStatus = "error: " + err.Error()
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error: " + err.Error()
			}

			var conversationCount, messageCount int64
			database.DB.Model(&models.Conversation{}).Count(&conversationCount)
			database.DB.Model(&models.Message{}).Count(&messageCount)

			response["database"] = fiber.Map{
				"status":        dbStatus,
				"conversations": conversationCount,
				"messages":      messageCount,
			}
		}

		return c.JSON(response)
	})

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": status == "healthy",
				"gateway":  evolutionService != nil,
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, whatsappService)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 RG Transmissões backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📱 WhatsApp gateway: %s", getGatewayStatus(evolutionService))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getGatewayStatus(es *services.EvolutionService) string {
	if es == nil {
		return "Not configured"
	}
	return "Configured"
}
