package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rgtransmissoes/whatsapp-backend/internal/storage"
)

// ConversationHandler exposes read-only conversation data to the admin panel
type ConversationHandler struct {
	store storage.Store
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(store storage.Store) *ConversationHandler {
	return &ConversationHandler{store: store}
}

// ListConversations returns the most recently active conversations
func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	conversations, err := h.store.ListConversations(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// GetConversationMessages returns the full message log of one conversation
func (h *ConversationHandler) GetConversationMessages(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid conversation id",
		})
	}

	conversation, err := h.store.GetConversation(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "conversation not found",
		})
	}

	messages, err := h.store.ListMessages(conversation.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"conversation": conversation,
		"messages":     messages,
	})
}
