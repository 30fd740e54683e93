package storage

import (
	"errors"
	"time"

	"github.com/rgtransmissoes/whatsapp-backend/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// ErrStateConflict is returned by CommitTransition when another request
// advanced the conversation state between our read and our write.
var ErrStateConflict = errors.New("conversation state was modified concurrently")

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for conversation persistence
type Store interface {
	// Conversation operations
	FindOrCreateConversation(phoneNumber, displayNameHint string) (*models.Conversation, error)
	GetConversationByPhone(phoneNumber string) (*models.Conversation, error)
	GetConversation(id uint) (*models.Conversation, error)
	ListConversations(limit int) ([]*models.Conversation, error)
	UpdateConversationStatus(conversationID uint, status models.ConversationStatus) error

	// Message operations. AppendMessage is idempotent on providerMessageID:
	// the second call with the same id returns the stored row and created=false.
	// Every append bumps the conversation's LastMessageAt to
	// max(current, timestamp), regardless of direction.
	AppendMessage(conversationID uint, direction models.MessageDirection, content, providerMessageID string, timestamp time.Time) (msg *models.Message, created bool, err error)
	ListMessages(conversationID uint) ([]*models.Message, error)

	// State operations
	GetOrInitState(conversationID uint) (*models.ConversationState, error)
	CommitTransition(conversationID uint, expectedVersion int, nextStep models.ConversationStep, answers models.QuoteAnswers) error

	// Bot configuration operations
	GetActiveBotConfig() (*models.BotConfig, error)
	ActivateBotConfig(config *models.BotConfig) error
	DeactivateBotConfig(instanceID string) error
}
