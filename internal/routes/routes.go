package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rgtransmissoes/whatsapp-backend/internal/handlers"
	"github.com/rgtransmissoes/whatsapp-backend/internal/middleware"
	"github.com/rgtransmissoes/whatsapp-backend/internal/services"
	"github.com/rgtransmissoes/whatsapp-backend/internal/storage"
)

// SetupRoutes configures all API routes. Store and gateway client come
// from the package-level registries populated in main.go.
func SetupRoutes(app *fiber.App, whatsappService *services.WhatsAppService) {
	store := storage.GetStore()
	evolutionService := services.GetEvolutionService()

	webhookHandler := handlers.NewWebhookHandler(store, whatsappService)
	botHandler := handlers.NewBotHandler(store, evolutionService)
	conversationHandler := handlers.NewConversationHandler(store)

	// ========== WEBHOOK ROUTES ==========
	// The provider posts events here; the path scopes which instance
	// the event belongs to. Always acknowledged with 200.
	app.Post("/webhook/:instanceId", webhookHandler.HandleWebhook)

	// ========== ADMIN ROUTES ==========
	api := app.Group("/api", middleware.RequireAdminKey())

	bot := api.Group("/bot")
	bot.Post("/enable", botHandler.EnableBot)
	bot.Get("/status", botHandler.BotStatus)
	bot.Post("/disable", botHandler.DisableBot)

	conversations := api.Group("/conversations")
	conversations.Get("/", conversationHandler.ListConversations)
	conversations.Get("/:id/messages", conversationHandler.GetConversationMessages)
}
