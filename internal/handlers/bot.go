package handlers

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
	"github.com/rgtransmissoes/whatsapp-backend/internal/services"
	"github.com/rgtransmissoes/whatsapp-backend/internal/storage"
)

// BotHandler manages the gateway instance lifecycle. Unlike the webhook
// path, these are admin-facing flows with a human waiting for feedback,
// so failures ARE surfaced as structured error responses.
type BotHandler struct {
	store     storage.Store
	evolution *services.EvolutionService
}

// NewBotHandler creates a new bot administration handler
func NewBotHandler(store storage.Store, evolution *services.EvolutionService) *BotHandler {
	return &BotHandler{
		store:     store,
		evolution: evolution,
	}
}

type enableBotRequest struct {
	InstanceName string `json:"instance_name"`
}

// EnableBot creates and connects a gateway instance and activates it as
// the bot configuration. Returns the pairing data (QR code) from the
// gateway.
func (h *BotHandler) EnableBot(c *fiber.Ctx) error {
	if h.evolution == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "gateway client not configured",
		})
	}

	var req enableBotRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.InstanceName == "" {
		req.InstanceName = "rgtransmissoes"
	}

	webhookBase := os.Getenv("WEBHOOK_BASE_URL")
	if webhookBase == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "WEBHOOK_BASE_URL not configured",
		})
	}
	webhookURL := fmt.Sprintf("%s/webhook/%s", webhookBase, req.InstanceName)
	token := uuid.NewString()

	createResp, err := h.evolution.CreateInstance(req.InstanceName, token, webhookURL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to create instance: %v", err),
		})
	}
	if !createResp.Success {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": createResp.Error,
		})
	}

	connectResp, err := h.evolution.ConnectInstance(req.InstanceName)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to connect instance: %v", err),
		})
	}
	if !connectResp.Success {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": connectResp.Error,
		})
	}

	config := &models.BotConfig{
		InstanceID:    req.InstanceName,
		InstanceToken: token,
		WebhookURL:    webhookURL,
	}
	if err := h.store.ActivateBotConfig(config); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to activate bot configuration: %v", err),
		})
	}

	log.Printf("✅ Bot enabled on instance %s", req.InstanceName)

	return c.JSON(fiber.Map{
		"success":  true,
		"instance": req.InstanceName,
		"webhook":  webhookURL,
		"pairing":  connectResp.Data,
	})
}

// BotStatus reports the active configuration and live connection state
func (h *BotHandler) BotStatus(c *fiber.Ctx) error {
	config, err := h.store.GetActiveBotConfig()
	if err != nil {
		return c.JSON(fiber.Map{
			"enabled": false,
		})
	}

	response := fiber.Map{
		"enabled":  true,
		"instance": config.InstanceID,
		"webhook":  config.WebhookURL,
	}

	if h.evolution != nil {
		stateResp, err := h.evolution.GetConnectionState(config.InstanceID)
		if err != nil {
			response["connection"] = fiber.Map{"error": err.Error()}
		} else if !stateResp.Success {
			response["connection"] = fiber.Map{"error": stateResp.Error}
		} else {
			response["connection"] = stateResp.Data
		}
	}

	return c.JSON(response)
}

// DisableBot logs out and deletes the gateway instance, then deactivates
// the configuration.
func (h *BotHandler) DisableBot(c *fiber.Ctx) error {
	config, err := h.store.GetActiveBotConfig()
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no active bot configuration",
		})
	}

	if h.evolution != nil {
		if resp, err := h.evolution.LogoutInstance(config.InstanceID); err != nil {
			log.Printf("⚠️ Failed to logout instance %s: %v", config.InstanceID, err)
		} else if !resp.Success {
			log.Printf("⚠️ Gateway refused logout for %s: %s", config.InstanceID, resp.Error)
		}
		if resp, err := h.evolution.DeleteInstance(config.InstanceID); err != nil {
			log.Printf("⚠️ Failed to delete instance %s: %v", config.InstanceID, err)
		} else if !resp.Success {
			log.Printf("⚠️ Gateway refused delete for %s: %s", config.InstanceID, resp.Error)
		}
	}

	if err := h.store.DeactivateBotConfig(config.InstanceID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to deactivate bot configuration: %v", err),
		})
	}

	log.Printf("🛑 Bot disabled on instance %s", config.InstanceID)

	return c.JSON(fiber.Map{"success": true})
}
