package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/rgtransmissoes/whatsapp-backend/internal/services"
	"github.com/rgtransmissoes/whatsapp-backend/internal/storage"
)

// WebhookHandler receives gateway events for the bot
type WebhookHandler struct {
	store           storage.Store
	whatsappService *services.WhatsAppService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(store storage.Store, whatsappService *services.WhatsAppService) *WebhookHandler {
	return &WebhookHandler{
		store:           store,
		whatsappService: whatsappService,
	}
}

// HandleWebhook processes incoming gateway events. It always answers
// 200 {received:true}: a non-2xx here would make the provider retry-storm
// a handler that is already broken, so internal failures are logged and
// swallowed.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	instanceID := c.Params("instanceId")

	var envelope services.WebhookEnvelope
	if err := c.BodyParser(&envelope); err != nil {
		log.Printf("⚠️ Malformed webhook payload for %s: %v", instanceID, err)
		return c.JSON(fiber.Map{"received": true})
	}
	if envelope.Event == "" {
		log.Printf("⚠️ Webhook payload without event field for %s", instanceID)
		return c.JSON(fiber.Map{"received": true})
	}

	// Only the active bot configuration's instance is acted upon
	config, err := h.store.GetActiveBotConfig()
	if err != nil {
		log.Printf("⚠️ Webhook for %s but no active bot configuration", instanceID)
		return c.JSON(fiber.Map{"received": true})
	}
	if config.InstanceID != instanceID {
		log.Printf("⚠️ Webhook for inactive instance %s (active: %s), ignoring", instanceID, config.InstanceID)
		return c.JSON(fiber.Map{"received": true})
	}

	h.whatsappService.HandleEvent(instanceID, envelope)

	return c.JSON(fiber.Map{"received": true})
}
